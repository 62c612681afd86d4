package service

import (
	"context"
	"log/slog"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

// SettingsService reads and updates the library policy.
type SettingsService struct {
	store     store.Store
	validator *validation.Validator
	clock     Clock
	logger    *slog.Logger
}

// NewSettingsService creates a settings service.
func NewSettingsService(s store.Store, v *validation.Validator, clock Clock, logger *slog.Logger) *SettingsService {
	return &SettingsService{store: s, validator: v, clock: clock, logger: logger}
}

// Get returns the current policy, or the defaults if none was saved.
func (s *SettingsService) Get(ctx context.Context) (domain.PolicySettings, error) {
	return loadPolicy(ctx, s.store)
}

// Update applies patch and saves the result if it validates.
func (s *SettingsService) Update(ctx context.Context, patch domain.PolicyPatch) (domain.PolicySettings, error) {
	var updated domain.PolicySettings
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		current, err := loadPolicy(ctx, tx)
		if err != nil {
			return err
		}
		updated = patch.Apply(current)
		if err := s.validator.Validate(updated); err != nil {
			return err
		}
		updated.UpdatedAt = s.clock.Now()
		return tx.SavePolicy(ctx, &updated)
	})
	if err != nil {
		return domain.PolicySettings{}, err
	}

	s.logger.Info("settings updated",
		"max_books_per_member", updated.MaxBooksPerMember,
		"borrow_duration_days", updated.BorrowDurationDays,
		"fine_per_day", updated.FinePerDay.String(),
	)
	return updated, nil
}

// Reset restores the default policy.
func (s *SettingsService) Reset(ctx context.Context) (domain.PolicySettings, error) {
	p := domain.DefaultPolicy()
	p.UpdatedAt = s.clock.Now()
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if err := tx.SavePolicy(ctx, &p); err != nil {
			return err
		}
		return audit(ctx, tx, domain.AuditResetSettings, "settings", "policy", "", s.clock)
	})
	if err != nil {
		return domain.PolicySettings{}, err
	}
	s.logger.Info("settings reset to defaults")
	return p, nil
}
