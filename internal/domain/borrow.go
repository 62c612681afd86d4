package domain

import (
	"math"
	"slices"
	"time"

	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
)

// Day is the unit for loan durations, overdue counts and reservation expiry.
const Day = 24 * time.Hour

// BorrowStatus is the lifecycle state of a loan.
type BorrowStatus string

// Loan states.
const (
	BorrowPending  BorrowStatus = "PENDING"
	BorrowApproved BorrowStatus = "APPROVED"
	BorrowRejected BorrowStatus = "REJECTED"
	BorrowReturned BorrowStatus = "RETURNED"
)

var borrowTransitions = map[BorrowStatus][]BorrowStatus{
	BorrowPending:  {BorrowApproved, BorrowRejected},
	BorrowApproved: {BorrowReturned},
}

// CanTransitionTo reports whether the loan state machine allows s -> next.
func (s BorrowStatus) CanTransitionTo(next BorrowStatus) bool {
	return slices.Contains(borrowTransitions[s], next)
}

// IsTerminal reports whether no transition leaves s.
func (s BorrowStatus) IsTerminal() bool {
	return len(borrowTransitions[s]) == 0
}

// Valid reports whether s is a known loan state.
func (s BorrowStatus) Valid() bool {
	switch s {
	case BorrowPending, BorrowApproved, BorrowRejected, BorrowReturned:
		return true
	}
	return false
}

// BorrowRecord is a single loan request from creation through return.
type BorrowRecord struct {
	ID           string       `json:"id"`
	MemberID     string       `json:"memberID"`
	BookID       string       `json:"bookID"`
	RequestDate  time.Time    `json:"requestDate"`
	IssueDate    *time.Time   `json:"issueDate,omitempty"`
	DueDate      *time.Time   `json:"dueDate,omitempty"`
	ReturnDate   *time.Time   `json:"returnDate,omitempty"`
	Status       BorrowStatus `json:"status"`
	RenewalCount int          `json:"renewalCount"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Transition moves the record to next, rejecting moves outside the table.
func (r *BorrowRecord) Transition(next BorrowStatus, now time.Time) error {
	if !r.Status.CanTransitionTo(next) {
		return domainerrors.InvalidTransitionf("loan %s cannot move from %s to %s", r.ID, r.Status, next)
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

// Approve issues the loan at now with a due date duration days later.
func (r *BorrowRecord) Approve(now time.Time, durationDays int) error {
	if err := r.Transition(BorrowApproved, now); err != nil {
		return err
	}
	due := now.Add(time.Duration(durationDays) * Day)
	r.IssueDate = &now
	r.DueDate = &due
	return nil
}

// MarkReturned closes the loan at now.
func (r *BorrowRecord) MarkReturned(now time.Time) error {
	if err := r.Transition(BorrowReturned, now); err != nil {
		return err
	}
	r.ReturnDate = &now
	return nil
}

// IsActive reports whether the loan currently holds a copy.
func (r *BorrowRecord) IsActive() bool {
	return r.Status == BorrowApproved && r.ReturnDate == nil
}

// IsOverdue reports whether an active loan is past its due date.
func (r *BorrowRecord) IsOverdue(now time.Time) bool {
	return r.IsActive() && r.DueDate != nil && now.After(*r.DueDate)
}

// DaysOverdue returns the whole days, rounded up, by which at exceeds the due date.
func (r *BorrowRecord) DaysOverdue(at time.Time) int {
	if r.DueDate == nil {
		return 0
	}
	return DaysBetween(*r.DueDate, at)
}

// DaysBetween returns ceil((to-from)/Day), or 0 when to is not after from.
func DaysBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(math.Ceil(float64(to.Sub(from)) / float64(Day)))
}
