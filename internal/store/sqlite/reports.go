package sqlite

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

type bookTotalsRow struct {
	Titles    int `db:"titles"`
	Total     int `db:"total_copies"`
	Available int `db:"copies_available"`
}

type statusCountRow struct {
	Status string `db:"status"`
	Count  int    `db:"n"`
}

type fineTotalsRow struct {
	Count       int   `db:"n"`
	Issued      int64 `db:"issued"`
	Collected   int64 `db:"collected"`
	Outstanding int64 `db:"outstanding"`
	Waived      int64 `db:"waived"`
}

// Reports runs the dashboard aggregates concurrently on read connections.
func (s *Store) Reports(ctx context.Context, now time.Time) (*store.Summary, error) {
	var (
		books        bookTotalsRow
		loanCounts   []statusCountRow
		overdue      int
		invalid      int
		reservations []statusCountRow
		fines        fineTotalsRow
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.rdb.GetContext(ctx, &books, `
			SELECT COUNT(*) AS titles,
			       COALESCE(SUM(total_copies), 0) AS total_copies,
			       COALESCE(SUM(copies_available), 0) AS copies_available
			FROM books`)
	})
	g.Go(func() error {
		return s.rdb.SelectContext(ctx, &loanCounts,
			`SELECT status, COUNT(*) AS n FROM borrow_records GROUP BY status`)
	})
	g.Go(func() error {
		return s.rdb.GetContext(ctx, &overdue, `
			SELECT COUNT(*) FROM borrow_records
			WHERE status = 'APPROVED' AND return_date IS NULL AND due_date < ?`, formatTime(now))
	})
	g.Go(func() error {
		return s.rdb.GetContext(ctx, &invalid, `
			SELECT COUNT(*) FROM borrow_records r
			LEFT JOIN books b ON b.id = r.book_id
			LEFT JOIN members m ON m.id = r.member_id
			WHERE b.id IS NULL OR m.id IS NULL`)
	})
	g.Go(func() error {
		return s.rdb.SelectContext(ctx, &reservations,
			`SELECT status, COUNT(*) AS n FROM reservations GROUP BY status`)
	})
	g.Go(func() error {
		return s.rdb.GetContext(ctx, &fines, `
			SELECT COUNT(*) AS n,
			       COALESCE(SUM(amount_cents), 0) AS issued,
			       COALESCE(SUM(amount_paid_cents), 0) AS collected,
			       COALESCE(SUM(CASE WHEN status <> 'WAIVED' THEN amount_cents - amount_paid_cents ELSE 0 END), 0) AS outstanding,
			       COALESCE(SUM(CASE WHEN status = 'WAIVED' THEN amount_cents - amount_paid_cents ELSE 0 END), 0) AS waived
			FROM fines`)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build summary: %w", err)
	}

	sum := &store.Summary{
		Books: store.BookTotals{
			Titles:          books.Titles,
			TotalCopies:     books.Total,
			CopiesAvailable: books.Available,
		},
		Reservations: map[domain.ReservationStatus]int{
			domain.ReservationPending:   0,
			domain.ReservationApproved:  0,
			domain.ReservationFulfilled: 0,
			domain.ReservationCancelled: 0,
			domain.ReservationExpired:   0,
		},
		Fines: store.FineTotals{
			Count:       fines.Count,
			Issued:      fromCents(fines.Issued),
			Collected:   fromCents(fines.Collected),
			Outstanding: fromCents(fines.Outstanding),
			Waived:      fromCents(fines.Waived),
		},
		GeneratedAt: now,
	}
	for _, row := range loanCounts {
		switch domain.BorrowStatus(row.Status) {
		case domain.BorrowPending:
			sum.Loans.Pending = row.Count
		case domain.BorrowApproved:
			sum.Loans.Active = row.Count
		case domain.BorrowReturned:
			sum.Loans.Returned = row.Count
		case domain.BorrowRejected:
			sum.Loans.Rejected = row.Count
		}
	}
	sum.Loans.Overdue = overdue
	sum.Loans.Invalid = invalid
	for _, row := range reservations {
		sum.Reservations[domain.ReservationStatus(row.Status)] = row.Count
	}
	return sum, nil
}
