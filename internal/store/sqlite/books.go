package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// bookColumns must match the scan order in scanBook.
const bookColumns = `id, title, author, isbn, category, total_copies, copies_available, created_at, updated_at`

func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var (
		b                    domain.Book
		createdAt, updatedAt string
	)
	err := scanner.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category,
		&b.TotalCopies, &b.CopiesAvailable, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBook inserts a book. Returns store.ErrAlreadyExists on a duplicate
// id or ISBN.
func (q *queries) CreateBook(ctx context.Context, b *domain.Book) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Author, b.ISBN, b.Category,
		b.TotalCopies, b.CopiesAvailable, formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

// GetBook returns the book with id or store.ErrNotFound.
func (q *queries) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	b, err := scanBook(q.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// GetBooksByIDs returns the books that exist among ids, in ids order.
func (q *queries) GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks, args := inClause(ids)
	books, err := q.listBooks(ctx, `SELECT `+bookColumns+` FROM books WHERE id IN (`+marks+`)`, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	ordered := make([]*domain.Book, 0, len(books))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			ordered = append(ordered, b)
		}
	}
	return ordered, nil
}

// ListBooks returns books ordered by title.
func (q *queries) ListBooks(ctx context.Context, filter store.BookFilter) ([]*domain.Book, error) {
	var w whereBuilder
	if filter.Category != "" {
		w.add("category = ?", filter.Category)
	}
	if filter.AvailableOnly {
		w.add("copies_available > 0")
	}
	return q.listBooks(ctx, `SELECT `+bookColumns+` FROM books`+w.String()+` ORDER BY title, id`, w.args...)
}

func (q *queries) listBooks(ctx context.Context, query string, args ...any) ([]*domain.Book, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// UpdateBookDetails updates the descriptive fields. Copy counts are untouched.
func (q *queries) UpdateBookDetails(ctx context.Context, b *domain.Book) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE books SET title = ?, author = ?, isbn = ?, category = ?, updated_at = ?
		WHERE id = ?`,
		b.Title, b.Author, b.ISBN, b.Category, formatTime(b.UpdatedAt), b.ID)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return requireOne(res)
}

// SetBookCopies overwrites both counters.
func (q *queries) SetBookCopies(ctx context.Context, id string, total, available int, now time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE books SET total_copies = ?, copies_available = ?, updated_at = ?
		WHERE id = ?`,
		total, available, formatTime(now), id)
	if isConstraintViolation(err) {
		return fmt.Errorf("set copies %d/%d on %s: %w", available, total, id, store.ErrStale)
	}
	if err != nil {
		return fmt.Errorf("set book copies: %w", err)
	}
	return requireOne(res)
}

// DeleteBook removes a book. Loans referencing it become invalid records.
func (q *queries) DeleteBook(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return requireOne(res)
}

// DecrementAvailable is an atomic compare-and-decrement.
func (q *queries) DecrementAvailable(ctx context.Context, bookID string, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE books SET copies_available = copies_available - 1, updated_at = ?
		WHERE id = ? AND copies_available > 0`,
		formatTime(now), bookID)
	if err != nil {
		return false, fmt.Errorf("decrement available: %w", err)
	}
	n, err := rowsAffected(res)
	return n == 1, err
}

// IncrementAvailable is an atomic increment capped at total_copies.
func (q *queries) IncrementAvailable(ctx context.Context, bookID string, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE books SET copies_available = copies_available + 1, updated_at = ?
		WHERE id = ? AND copies_available < total_copies`,
		formatTime(now), bookID)
	if err != nil {
		return false, fmt.Errorf("increment available: %w", err)
	}
	n, err := rowsAffected(res)
	return n == 1, err
}
