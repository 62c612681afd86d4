package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/notify"
)

func TestReservation_FulfillAfterDeadlineIsExpired(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.policy(t, domain.PolicyPatch{ReservationExpiryDays: intPtr(3)})
	b1 := e.book(t, 2)
	m := e.member(t)

	r1, err := e.reservations.Create(ctx, m.ID, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationPending, r1.Status)
	assert.Nil(t, r1.ExpiryDate)

	e.clock.Set(day(1))
	r1, err = e.reservations.Approve(ctx, r1.ID)
	require.NoError(t, err)
	assert.False(t, r1.NotificationSent)

	r1, err = e.reservations.Notify(ctx, r1.ID)
	require.NoError(t, err)
	assert.True(t, r1.NotificationSent)
	require.NotNil(t, r1.ExpiryDate)
	assert.True(t, r1.ExpiryDate.Equal(day(4)))

	e.clock.Set(day(5))
	_, err = e.reservations.Fulfill(ctx, r1.ID)
	requireCode(t, err, domainerrors.CodeExpired)

	assert.Equal(t, 2, e.available(t, b1.ID))
	loans, err := e.borrow.ListByMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestReservation_FulfillCreatesApprovedLoan(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	b := e.book(t, 1)
	m := e.member(t)

	r, err := e.reservations.Create(ctx, m.ID, b.ID)
	require.NoError(t, err)
	_, err = e.reservations.Approve(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, e.available(t, b.ID), "approval is a soft hold")

	res, err := e.reservations.Fulfill(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationFulfilled, res.Reservation.Status)
	assert.Equal(t, res.Loan.ID, res.Reservation.BorrowRecordID)
	assert.Equal(t, domain.BorrowApproved, res.Loan.Status)
	assert.Equal(t, m.ID, res.Loan.MemberID)
	assert.Equal(t, 0, e.available(t, b.ID))
	e.requireConsistent(t, b.ID)

	_, err = e.reservations.Fulfill(ctx, r.ID)
	requireCode(t, err, domainerrors.CodeInvalidTransition)
}

func TestReservation_FulfillOutOfStockRollsBack(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	b := e.book(t, 1)
	waiting := e.member(t)

	r, err := e.reservations.Create(ctx, waiting.ID, b.ID)
	require.NoError(t, err)
	_, err = e.reservations.Approve(ctx, r.ID)
	require.NoError(t, err)

	e.approvedLoan(t, e.member(t).ID, b.ID)

	_, err = e.reservations.Fulfill(ctx, r.ID)
	requireCode(t, err, domainerrors.CodeOutOfStock)

	got, err := e.reservations.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationApproved, got.Status)
	assert.Empty(t, got.BorrowRecordID)

	loans, err := e.borrow.ListByMember(ctx, waiting.ID)
	require.NoError(t, err)
	assert.Empty(t, loans, "the loan created inside the failed fulfillment must not survive")
	e.requireConsistent(t, b.ID)
}

func TestReservation_FulfillRequiresApproval(t *testing.T) {
	e := newTestEnv(t)
	r, err := e.reservations.Create(context.Background(), e.member(t).ID, e.book(t, 1).ID)
	require.NoError(t, err)

	_, err = e.reservations.Fulfill(context.Background(), r.ID)
	requireCode(t, err, domainerrors.CodeInvalidTransition)
}

func TestReservation_NotifyKeepsFirstDeadline(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	b := e.book(t, 1)
	m := e.member(t)

	r, err := e.reservations.Create(ctx, m.ID, b.ID)
	require.NoError(t, err)

	_, err = e.reservations.Notify(ctx, r.ID)
	requireCode(t, err, domainerrors.CodeInvalidTransition)

	_, err = e.reservations.Approve(ctx, r.ID)
	require.NoError(t, err)
	first, err := e.reservations.Notify(ctx, r.ID)
	require.NoError(t, err)

	e.clock.Set(day(1))
	second, err := e.reservations.Notify(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, second.ExpiryDate.Equal(*first.ExpiryDate))
	assert.True(t, second.NotifiedAt.Equal(day(1)))

	sent := e.notifier.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, notify.KindReservationReady, sent[0].Kind)
	assert.Equal(t, m.ID, sent[0].MemberID)
	assert.Equal(t, r.ID, sent[0].ReservationID)

	e.clock.Set(day(10))
	_, err = e.reservations.Notify(ctx, r.ID)
	requireCode(t, err, domainerrors.CodeExpired)
}

func TestReservation_NotifierFailureDoesNotUndoNotify(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.notifier.err = errors.New("outbox unavailable")

	r, err := e.reservations.Create(ctx, e.member(t).ID, e.book(t, 1).ID)
	require.NoError(t, err)
	_, err = e.reservations.Approve(ctx, r.ID)
	require.NoError(t, err)

	got, err := e.reservations.Notify(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.NotificationSent)
}

func TestReservation_Cancel(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	b := e.book(t, 1)
	m := e.member(t)

	r, err := e.reservations.Create(ctx, m.ID, b.ID)
	require.NoError(t, err)

	_, err = e.reservations.Cancel(ctx, r.ID, "librarian", "")
	requireCode(t, err, domainerrors.CodeValidation)

	cancelled, err := e.reservations.Cancel(ctx, r.ID, domain.CancelledByMember, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, cancelled.Status)
	assert.Equal(t, domain.CancelledByMember, cancelled.CancelledBy)
	assert.Equal(t, "changed my mind", cancelled.CancelReason)

	_, err = e.reservations.Cancel(ctx, r.ID, domain.CancelledByAdmin, "")
	requireCode(t, err, domainerrors.CodeInvalidTransition)

	// A cancelled hold does not block a new one.
	r2, err := e.reservations.Create(ctx, m.ID, b.ID)
	require.NoError(t, err)
	_, err = e.reservations.Approve(ctx, r2.ID)
	require.NoError(t, err)
	admin, err := e.reservations.Cancel(ctx, r2.ID, domain.CancelledByAdmin, "stock withdrawn")
	require.NoError(t, err)
	assert.Equal(t, domain.CancelledByAdmin, admin.CancelledBy)
}

func TestReservation_CreatePolicy(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.policy(t, domain.PolicyPatch{MaxReservationsPerMember: intPtr(2)})
	m := e.member(t)
	b1, b2, b3, b4 := e.book(t, 1), e.book(t, 1), e.book(t, 1), e.book(t, 1)

	_, err := e.reservations.Create(ctx, m.ID, b1.ID)
	require.NoError(t, err)
	_, err = e.reservations.Create(ctx, m.ID, b1.ID)
	requireCode(t, err, domainerrors.CodePolicyViolation)

	e.approvedLoan(t, m.ID, b4.ID)
	_, err = e.reservations.Create(ctx, m.ID, b4.ID)
	requireCode(t, err, domainerrors.CodePolicyViolation)

	_, err = e.reservations.Create(ctx, m.ID, b2.ID)
	require.NoError(t, err)
	_, err = e.reservations.Create(ctx, m.ID, b3.ID)
	requireCode(t, err, domainerrors.CodePolicyViolation)

	_, err = e.reservations.Create(ctx, m.ID, "book-missing")
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestReservation_ExpireStaleIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	b := e.book(t, 1)

	notified, err := e.reservations.Create(ctx, e.member(t).ID, b.ID)
	require.NoError(t, err)
	_, err = e.reservations.Approve(ctx, notified.ID)
	require.NoError(t, err)
	_, err = e.reservations.Notify(ctx, notified.ID)
	require.NoError(t, err)

	quiet, err := e.reservations.Create(ctx, e.member(t).ID, b.ID)
	require.NoError(t, err)
	_, err = e.reservations.Approve(ctx, quiet.ID)
	require.NoError(t, err)

	e.clock.Set(day(30))
	n, err := e.reservations.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = e.reservations.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := e.reservations.Get(ctx, notified.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationExpired, got.Status)

	got, err = e.reservations.Get(ctx, quiet.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationApproved, got.Status, "never-notified reservations have no deadline")

	expired, err := e.reservations.ListByStatus(ctx, domain.ReservationExpired)
	require.NoError(t, err)
	assert.Len(t, expired, 1)

	_, err = e.reservations.ListByStatus(ctx, domain.ReservationStatus("LOST"))
	requireCode(t, err, domainerrors.CodeValidation)
}
