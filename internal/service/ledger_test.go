package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
)

func TestLedger_ReserveAndRelease(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	b := e.book(t, 1)

	require.NoError(t, e.ledger.ReserveCopy(ctx, b.ID))
	assert.Equal(t, 0, e.available(t, b.ID))

	err := e.ledger.ReserveCopy(ctx, b.ID)
	requireCode(t, err, domainerrors.CodeOutOfStock)

	require.NoError(t, e.ledger.ReleaseCopy(ctx, b.ID))
	assert.Equal(t, 1, e.available(t, b.ID))

	// Releasing into a full pool is ignored rather than exceeding the total.
	require.NoError(t, e.ledger.ReleaseCopy(ctx, b.ID))
	assert.Equal(t, 1, e.available(t, b.ID))
}

func TestLedger_UnknownBook(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	requireCode(t, e.ledger.ReserveCopy(ctx, "book-missing"), domainerrors.CodeNotFound)
	requireCode(t, e.ledger.ReleaseCopy(ctx, "book-missing"), domainerrors.CodeNotFound)
	_, err := e.ledger.AdjustTotals(ctx, "book-missing", 3)
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestLedger_AdjustTotalsRejectsNegative(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.ledger.AdjustTotals(context.Background(), e.book(t, 1).ID, -1)
	requireCode(t, err, domainerrors.CodeValidation)
}

func TestLedger_AuditDetectsDrift(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	b := e.book(t, 2)
	e.approvedLoan(t, e.member(t).ID, b.ID)
	e.requireConsistent(t, b.ID)

	require.NoError(t, e.ledger.ReleaseCopy(ctx, b.ID))
	requireCode(t, e.ledger.Audit(ctx, b.ID), domainerrors.CodeDataIntegrity)
}
