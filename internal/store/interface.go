// Package store defines the persistence interface for the circulation engine.
package store

import (
	"context"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// Queries are the reads and writes available both inside and outside a
// transaction. Every write that guards a counter or a status is a
// compare-and-set at the storage layer.
type Queries interface {
	// Books
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error)
	ListBooks(ctx context.Context, filter BookFilter) ([]*domain.Book, error)
	UpdateBookDetails(ctx context.Context, book *domain.Book) error
	SetBookCopies(ctx context.Context, id string, total, available int, now time.Time) error
	DeleteBook(ctx context.Context, id string) error
	// DecrementAvailable takes one copy if any is free. It returns false when
	// the book has no free copy.
	DecrementAvailable(ctx context.Context, bookID string, now time.Time) (bool, error)
	// IncrementAvailable returns one copy, never exceeding the total. It
	// returns false when the pool was already full.
	IncrementAvailable(ctx context.Context, bookID string, now time.Time) (bool, error)

	// Members
	CreateMember(ctx context.Context, member *domain.Member) error
	GetMember(ctx context.Context, id string) (*domain.Member, error)
	ListMembers(ctx context.Context) ([]*domain.Member, error)
	UpdateMember(ctx context.Context, member *domain.Member) error
	DeleteMember(ctx context.Context, id string) error

	// Loans
	CreateLoan(ctx context.Context, loan *domain.BorrowRecord) error
	GetLoan(ctx context.Context, id string) (*domain.BorrowRecord, error)
	ListLoans(ctx context.Context, filter LoanFilter) ([]*domain.BorrowRecord, error)
	// UpdateLoan persists loan only if its stored status is still expected.
	UpdateLoan(ctx context.Context, loan *domain.BorrowRecord, expected domain.BorrowStatus) error
	CountLoans(ctx context.Context, filter LoanFilter) (int, error)
	ListInvalidLoans(ctx context.Context) ([]*InvalidLoan, error)
	DeleteLoan(ctx context.Context, id string) error

	// Reservations
	CreateReservation(ctx context.Context, res *domain.Reservation) error
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]*domain.Reservation, error)
	CountReservations(ctx context.Context, filter ReservationFilter) (int, error)
	// UpdateReservation persists res only if its stored status is still expected.
	UpdateReservation(ctx context.Context, res *domain.Reservation, expected domain.ReservationStatus) error

	// Fines
	CreateFine(ctx context.Context, fine *domain.Fine) error
	GetFine(ctx context.Context, id string) (*domain.Fine, error)
	GetFineByLoan(ctx context.Context, loanID string) (*domain.Fine, error)
	ListFines(ctx context.Context, filter FineFilter) ([]*domain.Fine, error)
	UpdateFine(ctx context.Context, fine *domain.Fine) error
	AddPayment(ctx context.Context, payment *domain.Payment) error
	ListPayments(ctx context.Context, fineID string) ([]domain.Payment, error)
	ListAllPayments(ctx context.Context) ([]domain.Payment, error)

	// Settings
	GetPolicy(ctx context.Context) (*domain.PolicySettings, error)
	SavePolicy(ctx context.Context, policy *domain.PolicySettings) error

	// Audit
	AddAudit(ctx context.Context, entry *domain.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}

// Tx is a unit of work. All calls made through it commit or roll back together.
type Tx interface {
	Queries

	// Truncate removes all engine state. Used by backup restore.
	Truncate(ctx context.Context) error
}

// Store is the full persistence surface.
type Store interface {
	Queries

	// InTx runs fn in a write transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Reports returns the read-only aggregates used by dashboards.
	Reports(ctx context.Context, now time.Time) (*Summary, error)

	Ping(ctx context.Context) error
	Close() error
}
