package sqlite

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const keyPolicy = "policy"

// GetPolicy returns the stored policy or store.ErrNotFound when none was saved.
func (q *queries) GetPolicy(ctx context.Context) (*domain.PolicySettings, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, keyPolicy).Scan(&value)
	if err != nil {
		return nil, notFound(err)
	}

	var p domain.PolicySettings
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	return &p, nil
}

// SavePolicy stores p, replacing any previous policy.
func (q *queries) SavePolicy(ctx context.Context, p *domain.PolicySettings) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode policy: %w", err)
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO settings (key, value, updated_at) VALUES (?, ?, ?)`,
		keyPolicy, string(data), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}
