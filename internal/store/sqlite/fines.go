package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

const fineColumns = `id, member_id, borrow_record_id, amount_cents, amount_paid_cents, status, reason,
	issue_date, waived_reason, waived_at, updated_at`

func scanFine(scanner interface{ Scan(dest ...any) error }) (*domain.Fine, error) {
	var (
		f                            domain.Fine
		borrowRecordID, waivedReason sql.NullString
		waivedAt                     sql.NullString
		amount, paid                 int64
		status, issueDate, updatedAt string
	)
	err := scanner.Scan(&f.ID, &f.MemberID, &borrowRecordID, &amount, &paid, &status, &f.Reason,
		&issueDate, &waivedReason, &waivedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	f.BorrowRecordID = borrowRecordID.String
	f.WaivedReason = waivedReason.String
	f.Amount = fromCents(amount)
	f.AmountPaid = fromCents(paid)
	f.Status = domain.FineStatus(status)

	if f.IssueDate, err = parseTime(issueDate); err != nil {
		return nil, err
	}
	if f.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if f.WaivedAt, err = parseNullableTime(waivedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFine inserts a fine. Returns store.ErrAlreadyExists when the loan is
// already fined.
func (q *queries) CreateFine(ctx context.Context, f *domain.Fine) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO fines (`+fineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.MemberID, nullString(f.BorrowRecordID), toCents(f.Amount), toCents(f.AmountPaid),
		string(f.Status), f.Reason, formatTime(f.IssueDate),
		nullString(f.WaivedReason), nullTimeString(f.WaivedAt), formatTime(f.UpdatedAt))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert fine: %w", err)
	}
	return nil
}

// GetFine returns the fine with id, without its payments.
func (q *queries) GetFine(ctx context.Context, id string) (*domain.Fine, error) {
	f, err := scanFine(q.db.QueryRowContext(ctx, `SELECT `+fineColumns+` FROM fines WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

// GetFineByLoan returns the fine attached to a loan or store.ErrNotFound.
func (q *queries) GetFineByLoan(ctx context.Context, loanID string) (*domain.Fine, error) {
	f, err := scanFine(q.db.QueryRowContext(ctx,
		`SELECT `+fineColumns+` FROM fines WHERE borrow_record_id = ?`, loanID))
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

// ListFines returns fines matching filter, newest first.
func (q *queries) ListFines(ctx context.Context, filter store.FineFilter) ([]*domain.Fine, error) {
	var w whereBuilder
	if filter.MemberID != "" {
		w.add("member_id = ?", filter.MemberID)
	}
	if len(filter.Statuses) > 0 {
		marks, args := inClause(filter.Statuses)
		w.add("status IN ("+marks+")", args...)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+fineColumns+` FROM fines`+w.String()+` ORDER BY issue_date DESC, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query fines: %w", err)
	}
	defer rows.Close()

	var fines []*domain.Fine
	for rows.Next() {
		f, err := scanFine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fine: %w", err)
		}
		fines = append(fines, f)
	}
	return fines, rows.Err()
}

// UpdateFine overwrites the fine ledger fields. The CHECK constraints reject
// an amountPaid above amount.
func (q *queries) UpdateFine(ctx context.Context, f *domain.Fine) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE fines
		SET amount_cents = ?, amount_paid_cents = ?, status = ?, reason = ?,
		    waived_reason = ?, waived_at = ?, updated_at = ?
		WHERE id = ?`,
		toCents(f.Amount), toCents(f.AmountPaid), string(f.Status), f.Reason,
		nullString(f.WaivedReason), nullTimeString(f.WaivedAt), formatTime(f.UpdatedAt), f.ID)
	if isConstraintViolation(err) {
		return fmt.Errorf("update fine %s: %w", f.ID, store.ErrStale)
	}
	if err != nil {
		return fmt.Errorf("update fine: %w", err)
	}
	return requireOne(res)
}

const paymentColumns = `id, fine_id, amount_cents, method, notes, created_at`

func scanPayment(scanner interface{ Scan(dest ...any) error }) (domain.Payment, error) {
	var (
		p              domain.Payment
		cents          int64
		method, create string
	)
	if err := scanner.Scan(&p.ID, &p.FineID, &cents, &method, &p.Notes, &create); err != nil {
		return p, err
	}
	p.Amount = fromCents(cents)
	p.Method = domain.PaymentMethod(method)
	ts, err := parseTime(create)
	if err != nil {
		return p, err
	}
	p.Timestamp = ts
	return p, nil
}

// AddPayment appends to a fine's payment log.
func (q *queries) AddPayment(ctx context.Context, p *domain.Payment) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.FineID, toCents(p.Amount), string(p.Method), p.Notes, formatTime(p.Timestamp))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// ListPayments returns a fine's payments in the order they were made.
func (q *queries) ListPayments(ctx context.Context, fineID string) ([]domain.Payment, error) {
	return q.listPayments(ctx, `SELECT `+paymentColumns+` FROM payments WHERE fine_id = ? ORDER BY created_at, id`, fineID)
}

// ListAllPayments returns every payment.
func (q *queries) ListAllPayments(ctx context.Context) ([]domain.Payment, error) {
	return q.listPayments(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at, id`)
}

func (q *queries) listPayments(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
