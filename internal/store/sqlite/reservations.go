package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

const reservationColumns = `id, member_id, book_id, reservation_date, approved_date, notified_at, expiry_date,
	status, notification_sent, borrow_record_id, cancelled_by, cancel_reason, updated_at`

func scanReservation(scanner interface{ Scan(dest ...any) error }) (*domain.Reservation, error) {
	var (
		r                                     domain.Reservation
		reservationDate, status, updatedAt    string
		approvedDate, notifiedAt, expiryDate  sql.NullString
		borrowRecordID, cancelledBy, cancelRe sql.NullString
	)
	err := scanner.Scan(&r.ID, &r.MemberID, &r.BookID, &reservationDate, &approvedDate, &notifiedAt, &expiryDate,
		&status, &r.NotificationSent, &borrowRecordID, &cancelledBy, &cancelRe, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = domain.ReservationStatus(status)
	r.BorrowRecordID = borrowRecordID.String
	r.CancelledBy = cancelledBy.String
	r.CancelReason = cancelRe.String

	if r.ReservationDate, err = parseTime(reservationDate); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if r.ApprovedDate, err = parseNullableTime(approvedDate); err != nil {
		return nil, err
	}
	if r.NotifiedAt, err = parseNullableTime(notifiedAt); err != nil {
		return nil, err
	}
	if r.ExpiryDate, err = parseNullableTime(expiryDate); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReservation inserts a reservation. Returns store.ErrAlreadyExists when
// the member already has an open reservation for the book.
func (q *queries) CreateReservation(ctx context.Context, r *domain.Reservation) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.MemberID, r.BookID, formatTime(r.ReservationDate),
		nullTimeString(r.ApprovedDate), nullTimeString(r.NotifiedAt), nullTimeString(r.ExpiryDate),
		string(r.Status), r.NotificationSent,
		nullString(r.BorrowRecordID), nullString(r.CancelledBy), nullString(r.CancelReason),
		formatTime(r.UpdatedAt))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetReservation returns the reservation with id or store.ErrNotFound.
func (q *queries) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	r, err := scanReservation(q.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func reservationWhere(f store.ReservationFilter) *whereBuilder {
	var w whereBuilder
	if f.MemberID != "" {
		w.add("member_id = ?", f.MemberID)
	}
	if f.ExcludeMemberID != "" {
		w.add("member_id <> ?", f.ExcludeMemberID)
	}
	if f.BookID != "" {
		w.add("book_id = ?", f.BookID)
	}
	if len(f.Statuses) > 0 {
		marks, args := inClause(f.Statuses)
		w.add("status IN ("+marks+")", args...)
	}
	if f.ExpiredBefore != nil {
		w.add("expiry_date IS NOT NULL AND expiry_date < ?", formatTime(*f.ExpiredBefore))
	}
	return &w
}

// ListReservations returns reservations matching filter in queue order.
func (q *queries) ListReservations(ctx context.Context, f store.ReservationFilter) ([]*domain.Reservation, error) {
	w := reservationWhere(f)
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations`+w.String()+` ORDER BY reservation_date, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var out []*domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountReservations counts reservations matching filter.
func (q *queries) CountReservations(ctx context.Context, f store.ReservationFilter) (int, error) {
	w := reservationWhere(f)
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations`+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return n, nil
}

// UpdateReservation writes r if the stored status still equals expected.
func (q *queries) UpdateReservation(ctx context.Context, r *domain.Reservation, expected domain.ReservationStatus) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE reservations
		SET approved_date = ?, notified_at = ?, expiry_date = ?, status = ?, notification_sent = ?,
		    borrow_record_id = ?, cancelled_by = ?, cancel_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		nullTimeString(r.ApprovedDate), nullTimeString(r.NotifiedAt), nullTimeString(r.ExpiryDate),
		string(r.Status), r.NotificationSent,
		nullString(r.BorrowRecordID), nullString(r.CancelledBy), nullString(r.CancelReason),
		formatTime(r.UpdatedAt), r.ID, string(expected))
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := q.GetReservation(ctx, r.ID); err != nil {
			return err
		}
		return store.ErrStale
	}
	return nil
}
