package domain

import (
	"slices"
	"time"

	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
)

// ReservationStatus is the lifecycle state of a hold.
type ReservationStatus string

// Reservation states.
const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationApproved  ReservationStatus = "APPROVED"
	ReservationFulfilled ReservationStatus = "FULFILLED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:  {ReservationApproved, ReservationCancelled, ReservationExpired},
	ReservationApproved: {ReservationFulfilled, ReservationCancelled, ReservationExpired},
}

// CanTransitionTo reports whether the reservation state machine allows s -> next.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	return slices.Contains(reservationTransitions[s], next)
}

// IsTerminal reports whether no transition leaves s.
func (s ReservationStatus) IsTerminal() bool {
	return len(reservationTransitions[s]) == 0
}

// Valid reports whether s is a known reservation state.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationApproved, ReservationFulfilled, ReservationCancelled, ReservationExpired:
		return true
	}
	return false
}

// Who cancelled a reservation.
const (
	CancelledByMember = "member"
	CancelledByAdmin  = "admin"
)

// Reservation is a hold a member places on a book.
// Approval is a soft hold: it does not touch the copy counters.
type Reservation struct {
	ID               string            `json:"id"`
	MemberID         string            `json:"memberID"`
	BookID           string            `json:"bookID"`
	ReservationDate  time.Time         `json:"reservationDate"`
	ApprovedDate     *time.Time        `json:"approvedDate,omitempty"`
	NotifiedAt       *time.Time        `json:"notifiedAt,omitempty"`
	ExpiryDate       *time.Time        `json:"expiryDate,omitempty"`
	Status           ReservationStatus `json:"status"`
	NotificationSent bool              `json:"notificationSent"`
	BorrowRecordID   string            `json:"borrowRecordID,omitempty"`
	CancelledBy      string            `json:"cancelledBy,omitempty"`
	CancelReason     string            `json:"cancelReason,omitempty"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Transition moves the reservation to next, rejecting moves outside the table.
func (r *Reservation) Transition(next ReservationStatus, now time.Time) error {
	if !r.Status.CanTransitionTo(next) {
		return domainerrors.InvalidTransitionf("reservation %s cannot move from %s to %s", r.ID, r.Status, next)
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

// IsActive reports whether the reservation is still PENDING or APPROVED.
func (r *Reservation) IsActive() bool {
	return !r.Status.IsTerminal()
}

// DeadlinePassed reports whether now is past the expiry date. A reservation
// without an expiry date has no deadline.
func (r *Reservation) DeadlinePassed(now time.Time) bool {
	return r.ExpiryDate != nil && now.After(*r.ExpiryDate)
}

// MarkNotified records a notification at now. The first notification starts
// the pickup window; later ones keep it.
func (r *Reservation) MarkNotified(now time.Time, expiryDays int) error {
	if r.Status != ReservationApproved {
		return domainerrors.InvalidTransitionf("reservation %s is %s; only APPROVED reservations can be notified", r.ID, r.Status)
	}
	if r.ExpiryDate == nil {
		expiry := now.Add(time.Duration(expiryDays) * Day)
		r.ExpiryDate = &expiry
	}
	r.NotificationSent = true
	r.NotifiedAt = &now
	r.UpdatedAt = now
	return nil
}
