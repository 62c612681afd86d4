package store

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// BookFilter narrows ListBooks. The zero value lists every book.
type BookFilter struct {
	Category      string
	AvailableOnly bool
}

// LoanFilter narrows loan queries. Empty fields do not filter.
type LoanFilter struct {
	MemberID string
	BookID   string
	Statuses []domain.BorrowStatus
	// DueBefore keeps APPROVED, unreturned loans whose due date is before it.
	DueBefore *time.Time
}

// ReservationFilter narrows reservation queries. Empty fields do not filter.
type ReservationFilter struct {
	MemberID string
	BookID   string
	Statuses []domain.ReservationStatus
	// ExpiredBefore keeps reservations whose expiry date is before it.
	ExpiredBefore *time.Time
	// ExcludeMemberID drops reservations held by this member.
	ExcludeMemberID string
}

// FineFilter narrows ListFines. Empty fields do not filter.
type FineFilter struct {
	MemberID string
	Statuses []domain.FineStatus
}

// InvalidLoan is a loan whose book or member no longer exists.
type InvalidLoan struct {
	Loan          *domain.BorrowRecord `json:"loan"`
	MissingBook   bool                 `json:"missingBook"`
	MissingMember bool                 `json:"missingMember"`
}

// Summary is the dashboard projection over engine state.
type Summary struct {
	Books        BookTotals                       `json:"books"`
	Loans        LoanTotals                       `json:"loans"`
	Reservations map[domain.ReservationStatus]int `json:"reservations"`
	Fines        FineTotals                       `json:"fines"`
	GeneratedAt  time.Time                        `json:"generatedAt"`
}

// BookTotals counts titles and copies.
type BookTotals struct {
	Titles          int `json:"titles"`
	TotalCopies     int `json:"totalCopies"`
	CopiesAvailable int `json:"copiesAvailable"`
}

// LoanTotals counts loans by circulation state.
type LoanTotals struct {
	Pending  int `json:"pending"`
	Active   int `json:"active"`
	Overdue  int `json:"overdue"`
	Returned int `json:"returned"`
	Rejected int `json:"rejected"`
	Invalid  int `json:"invalid"`
}

// FineTotals aggregates the fine ledger.
type FineTotals struct {
	Count       int             `json:"count"`
	Issued      decimal.Decimal `json:"issued"`
	Collected   decimal.Decimal `json:"collected"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Waived      decimal.Decimal `json:"waived"`
}
