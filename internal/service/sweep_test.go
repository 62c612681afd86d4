package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/notify"
)

func TestSweep_OverdueFinesAccrueWithoutDuplicates(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	m := e.member(t)
	b := e.book(t, 1)
	loan := e.approvedLoan(t, m.ID, b.ID)

	e.clock.Set(day(16))
	res, err := e.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FinesAssessed)
	assert.Zero(t, res.FinesRaised)
	assert.Empty(t, res.Errors)

	fines, err := e.fines.ListByMember(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, fines, 1)
	assertMoney(t, "1.00", fines[0].Amount)
	fineID := fines[0].ID

	sent := e.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.KindLoanOverdue, sent[0].Kind)
	assert.Equal(t, loan.ID, sent[0].LoanID)

	res, err = e.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.FinesAssessed)
	assert.Zero(t, res.FinesRaised)

	e.clock.Set(day(17))
	res, err = e.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FinesRaised)
	assert.Len(t, e.notifier.Sent(), 1)

	e.clock.Set(day(18))
	ret, err := e.borrow.Return(ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, ret.Fine)
	assert.Equal(t, fineID, ret.Fine.ID)
	assertMoney(t, "2.00", ret.Fine.Amount)

	fines, err = e.fines.ListByMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, fines, 1)
}

func TestSweep_RaisedFineReopensPaidFine(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	loan := e.approvedLoan(t, e.member(t).ID, e.book(t, 1).ID)

	e.clock.Set(day(15))
	_, err := e.sweep.Run(ctx)
	require.NoError(t, err)

	f, err := e.store.GetFineByLoan(ctx, loan.ID)
	require.NoError(t, err)
	_, err = e.fines.RecordPayment(ctx, f.ID, f.Amount, domain.PaymentCash, "")
	require.NoError(t, err)

	e.clock.Set(day(16))
	_, err = e.sweep.Run(ctx)
	require.NoError(t, err)

	f, err = e.fines.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FinePartiallyPaid, f.Status)
	assertMoney(t, "0.50", f.Outstanding())
}

func TestSweep_WaivedFineIsLeftAlone(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	loan := e.approvedLoan(t, e.member(t).ID, e.book(t, 1).ID)

	e.clock.Set(day(15))
	_, err := e.sweep.Run(ctx)
	require.NoError(t, err)
	f, err := e.store.GetFineByLoan(ctx, loan.ID)
	require.NoError(t, err)
	_, err = e.fines.Waive(ctx, f.ID, "hospital stay")
	require.NoError(t, err)

	e.clock.Set(day(20))
	res, err := e.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.FinesRaised)

	f, err = e.fines.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FineWaived, f.Status)
	assertMoney(t, "0.50", f.Amount)
}

func TestSweep_RespectsPolicySwitches(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.policy(t, domain.PolicyPatch{AutoOverdueFines: boolPtr(false)})
	e.approvedLoan(t, e.member(t).ID, e.book(t, 1).ID)

	b := e.book(t, 1)
	r, err := e.reservations.Create(ctx, e.member(t).ID, b.ID)
	require.NoError(t, err)
	_, err = e.reservations.Approve(ctx, r.ID)
	require.NoError(t, err)

	e.clock.Set(day(20))
	res, err := e.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.FinesAssessed)
	assert.Zero(t, res.Notified)

	e.policy(t, domain.PolicyPatch{AutomaticNotifications: boolPtr(true)})
	res, err = e.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notified)

	res, err = e.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Notified)

	got, err := e.reservations.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.NotificationSent)
	assert.True(t, got.ExpiryDate.Equal(day(23)))
}

func TestSweep_NotifySkipsBooksWithoutCopies(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.policy(t, domain.PolicyPatch{AutomaticNotifications: boolPtr(true)})
	b := e.book(t, 1)
	e.approvedLoan(t, e.member(t).ID, b.ID)

	r, err := e.reservations.Create(ctx, e.member(t).ID, b.ID)
	require.NoError(t, err)
	_, err = e.reservations.Approve(ctx, r.ID)
	require.NoError(t, err)

	res, err := e.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Notified)
}

func TestSweep_ExpiresReservations(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	r, err := e.reservations.Create(ctx, e.member(t).ID, e.book(t, 1).ID)
	require.NoError(t, err)
	_, err = e.reservations.Approve(ctx, r.ID)
	require.NoError(t, err)
	_, err = e.reservations.Notify(ctx, r.ID)
	require.NoError(t, err)

	e.clock.Set(day(4))
	res, err := e.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)

	res, err = e.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Expired)
}
