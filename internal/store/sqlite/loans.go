package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

const loanColumns = `id, member_id, book_id, request_date, issue_date, due_date, return_date, status, renewal_count, updated_at`

func scanLoan(scanner interface{ Scan(dest ...any) error }) (*domain.BorrowRecord, error) {
	var (
		r                              domain.BorrowRecord
		requestDate, updatedAt, status string
		issueDate, dueDate, returnDate sql.NullString
	)
	err := scanner.Scan(&r.ID, &r.MemberID, &r.BookID, &requestDate, &issueDate, &dueDate, &returnDate,
		&status, &r.RenewalCount, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = domain.BorrowStatus(status)
	if r.RequestDate, err = parseTime(requestDate); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if r.IssueDate, err = parseNullableTime(issueDate); err != nil {
		return nil, err
	}
	if r.DueDate, err = parseNullableTime(dueDate); err != nil {
		return nil, err
	}
	if r.ReturnDate, err = parseNullableTime(returnDate); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateLoan inserts a loan. Returns store.ErrAlreadyExists when the member
// already has an open loan for the book.
func (q *queries) CreateLoan(ctx context.Context, r *domain.BorrowRecord) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO borrow_records (`+loanColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.MemberID, r.BookID, formatTime(r.RequestDate),
		nullTimeString(r.IssueDate), nullTimeString(r.DueDate), nullTimeString(r.ReturnDate),
		string(r.Status), r.RenewalCount, formatTime(r.UpdatedAt))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

// GetLoan returns the loan with id or store.ErrNotFound.
func (q *queries) GetLoan(ctx context.Context, id string) (*domain.BorrowRecord, error) {
	r, err := scanLoan(q.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM borrow_records WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func loanWhere(f store.LoanFilter) *whereBuilder {
	var w whereBuilder
	if f.MemberID != "" {
		w.add("member_id = ?", f.MemberID)
	}
	if f.BookID != "" {
		w.add("book_id = ?", f.BookID)
	}
	if len(f.Statuses) > 0 {
		marks, args := inClause(f.Statuses)
		w.add("status IN ("+marks+")", args...)
	}
	if f.DueBefore != nil {
		w.add("status = 'APPROVED' AND return_date IS NULL AND due_date < ?", formatTime(*f.DueBefore))
	}
	return &w
}

// ListLoans returns loans matching filter, oldest request first.
func (q *queries) ListLoans(ctx context.Context, f store.LoanFilter) ([]*domain.BorrowRecord, error) {
	w := loanWhere(f)
	return q.listLoans(ctx,
		`SELECT `+loanColumns+` FROM borrow_records`+w.String()+` ORDER BY request_date, id`, w.args...)
}

func (q *queries) listLoans(ctx context.Context, query string, args ...any) ([]*domain.BorrowRecord, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	var loans []*domain.BorrowRecord
	for rows.Next() {
		r, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, r)
	}
	return loans, rows.Err()
}

// CountLoans counts loans matching filter.
func (q *queries) CountLoans(ctx context.Context, f store.LoanFilter) (int, error) {
	w := loanWhere(f)
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM borrow_records`+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count loans: %w", err)
	}
	return n, nil
}

// UpdateLoan writes loan if the stored status still equals expected.
// Returns store.ErrStale when another writer moved it first.
func (q *queries) UpdateLoan(ctx context.Context, r *domain.BorrowRecord, expected domain.BorrowStatus) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE borrow_records
		SET issue_date = ?, due_date = ?, return_date = ?, status = ?, renewal_count = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		nullTimeString(r.IssueDate), nullTimeString(r.DueDate), nullTimeString(r.ReturnDate),
		string(r.Status), r.RenewalCount, formatTime(r.UpdatedAt), r.ID, string(expected))
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := q.GetLoan(ctx, r.ID); err != nil {
			return err
		}
		return store.ErrStale
	}
	return nil
}

// ListInvalidLoans returns loans whose book or member is gone.
func (q *queries) ListInvalidLoans(ctx context.Context) ([]*store.InvalidLoan, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT r.id, r.member_id, r.book_id, r.request_date, r.issue_date, r.due_date, r.return_date,
		       r.status, r.renewal_count, r.updated_at,
		       b.id IS NULL, m.id IS NULL
		FROM borrow_records r
		LEFT JOIN books b ON b.id = r.book_id
		LEFT JOIN members m ON m.id = r.member_id
		WHERE b.id IS NULL OR m.id IS NULL
		ORDER BY r.request_date, r.id`)
	if err != nil {
		return nil, fmt.Errorf("query invalid loans: %w", err)
	}
	defer rows.Close()

	var out []*store.InvalidLoan
	for rows.Next() {
		var inv store.InvalidLoan
		loan, err := scanLoan(rowScanner(func(dest ...any) error {
			return rows.Scan(append(dest, &inv.MissingBook, &inv.MissingMember)...)
		}))
		if err != nil {
			return nil, fmt.Errorf("scan invalid loan: %w", err)
		}
		inv.Loan = loan
		out = append(out, &inv)
	}
	return out, rows.Err()
}

// DeleteLoan removes a loan row.
func (q *queries) DeleteLoan(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM borrow_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete loan: %w", err)
	}
	return requireOne(res)
}

// rowScanner adapts a closure to the scanner interface.
type rowScanner func(dest ...any) error

func (f rowScanner) Scan(dest ...any) error { return f(dest...) }
