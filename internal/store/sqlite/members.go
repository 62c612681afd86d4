package sqlite

import (
	"context"
	"fmt"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

const memberColumns = `id, membership_id, name, contact, email, role, active, created_at, updated_at`

func scanMember(scanner interface{ Scan(dest ...any) error }) (*domain.Member, error) {
	var (
		m                    domain.Member
		role                 string
		createdAt, updatedAt string
	)
	err := scanner.Scan(&m.ID, &m.MembershipID, &m.Name, &m.Contact, &m.Email,
		&role, &m.Active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMember inserts a member. Returns store.ErrAlreadyExists when the id
// or membership id is taken.
func (q *queries) CreateMember(ctx context.Context, m *domain.Member) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.MembershipID, m.Name, m.Contact, m.Email, string(m.Role), m.Active,
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetMember returns the member with id or store.ErrNotFound.
func (q *queries) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	m, err := scanMember(q.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// ListMembers returns all members ordered by name.
func (q *queries) ListMembers(ctx context.Context) ([]*domain.Member, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpdateMember overwrites the mutable member fields.
func (q *queries) UpdateMember(ctx context.Context, m *domain.Member) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE members SET membership_id = ?, name = ?, contact = ?, email = ?, role = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		m.MembershipID, m.Name, m.Contact, m.Email, string(m.Role), m.Active, formatTime(m.UpdatedAt), m.ID)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return requireOne(res)
}

// DeleteMember removes a member. Their loans become invalid records.
func (q *queries) DeleteMember(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return requireOne(res)
}
