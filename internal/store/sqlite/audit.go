package sqlite

import (
	"context"
	"fmt"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// AddAudit appends an audit entry.
func (q *queries) AddAudit(ctx context.Context, e *domain.AuditEntry) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, action, entity_type, entity_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.EntityType, e.EntityID, e.Detail, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the newest entries first, at most limit of them.
func (q *queries) ListAudit(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, action, entity_type, entity_id, detail, created_at
		FROM audit_log ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []*domain.AuditEntry
	for rows.Next() {
		var (
			e         domain.AuditEntry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
