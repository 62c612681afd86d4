package service

import (
	"context"
	"log/slog"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/keylock"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// InventoryLedger is the only writer of a book's copy counts.
//
// Counter updates are compare-and-set statements at the storage layer, so a
// decrement can never drive copies_available below zero. Workflows that read
// state before touching the counters additionally hold the per-book lock so
// their read-check-write sequence is linearizable per book while different
// books proceed independently.
type InventoryLedger struct {
	store  store.Store
	locks  *keylock.Locker[string]
	clock  Clock
	logger *slog.Logger
}

// NewInventoryLedger creates a ledger.
func NewInventoryLedger(s store.Store, clock Clock, logger *slog.Logger) *InventoryLedger {
	return &InventoryLedger{
		store:  s,
		locks:  keylock.New[string](),
		clock:  clock,
		logger: logger,
	}
}

// Lock serializes workflow steps for one book. Call the returned func to release.
func (l *InventoryLedger) Lock(bookID string) func() {
	return l.locks.Lock(bookID)
}

// ReserveCopy takes one free copy of bookID.
func (l *InventoryLedger) ReserveCopy(ctx context.Context, bookID string) error {
	return l.store.InTx(ctx, func(tx store.Tx) error {
		return l.reserveCopyTx(ctx, tx, bookID)
	})
}

// ReleaseCopy returns one copy of bookID to the free pool.
func (l *InventoryLedger) ReleaseCopy(ctx context.Context, bookID string) error {
	return l.store.InTx(ctx, func(tx store.Tx) error {
		_, err := l.releaseCopyTx(ctx, tx, bookID)
		return err
	})
}

func (l *InventoryLedger) reserveCopyTx(ctx context.Context, q store.Queries, bookID string) error {
	ok, err := q.DecrementAvailable(ctx, bookID, l.clock.Now())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := q.GetBook(ctx, bookID); err != nil {
		return notFoundAs(err, "book", bookID)
	}
	return domainerrors.OutOfStockf("book %s has no copy available", bookID)
}

// releaseCopyTx reports false when the pool was already full. The counter is
// never pushed past the total.
func (l *InventoryLedger) releaseCopyTx(ctx context.Context, q store.Queries, bookID string) (bool, error) {
	ok, err := q.IncrementAvailable(ctx, bookID, l.clock.Now())
	if err != nil {
		return false, err
	}
	if !ok {
		if _, err := q.GetBook(ctx, bookID); err != nil {
			return false, notFoundAs(err, "book", bookID)
		}
		l.logger.Warn("release on full copy pool ignored", "book_id", bookID)
	}
	return ok, nil
}

// AdjustResult reports the outcome of a total-copies change.
type AdjustResult struct {
	Book    *domain.Book `json:"book"`
	Clamped bool         `json:"clamped"`
}

// AdjustTotals sets the total copies of bookID. Available copies become the
// new total minus the copies on loan; the total may not drop below the
// number of active loans.
func (l *InventoryLedger) AdjustTotals(ctx context.Context, bookID string, newTotal int) (*AdjustResult, error) {
	if newTotal < 0 {
		return nil, domainerrors.Validationf("totalCopies must be >= 0")
	}

	unlock := l.Lock(bookID)
	defer unlock()

	var result *AdjustResult
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		result, err = l.adjustTotalsTx(ctx, tx, bookID, newTotal)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (l *InventoryLedger) adjustTotalsTx(ctx context.Context, q store.Queries, bookID string, newTotal int) (*AdjustResult, error) {
	book, err := q.GetBook(ctx, bookID)
	if err != nil {
		return nil, notFoundAs(err, "book", bookID)
	}

	active, err := q.CountLoans(ctx, store.LoanFilter{
		BookID:   bookID,
		Statuses: []domain.BorrowStatus{domain.BorrowApproved},
	})
	if err != nil {
		return nil, err
	}
	if newTotal < active {
		return nil, domainerrors.PolicyViolationf("book %s has %d copies on loan; total cannot drop to %d", bookID, active, newTotal)
	}

	available := newTotal - active
	clamped := available < book.CopiesAvailable

	now := l.clock.Now()
	if err := q.SetBookCopies(ctx, bookID, newTotal, available, now); err != nil {
		return nil, notFoundAs(err, "book", bookID)
	}
	if clamped {
		l.logger.Info("available copies clamped",
			"book_id", bookID, "total", newTotal, "available_before", book.CopiesAvailable, "available_after", available)
	}

	book.TotalCopies = newTotal
	book.CopiesAvailable = available
	book.UpdatedAt = now
	return &AdjustResult{Book: book, Clamped: clamped}, nil
}

// Audit compares a book's counters with its active loans.
func (l *InventoryLedger) Audit(ctx context.Context, bookID string) error {
	book, err := l.store.GetBook(ctx, bookID)
	if err != nil {
		return notFoundAs(err, "book", bookID)
	}
	active, err := l.store.CountLoans(ctx, store.LoanFilter{
		BookID:   bookID,
		Statuses: []domain.BorrowStatus{domain.BorrowApproved},
	})
	if err != nil {
		return err
	}
	return book.CheckCopies(active)
}
