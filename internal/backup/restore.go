package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// Reindexer rebuilds derived indexes after a restore.
type Reindexer interface {
	Reindex(ctx context.Context) (int, error)
}

// RestoreService replaces engine state from backups.
type RestoreService struct {
	store     store.Store
	reindexer Reindexer
	logger    *slog.Logger
	now       func() time.Time
}

// NewRestoreService creates a RestoreService. reindexer may be nil.
func NewRestoreService(s store.Store, reindexer Reindexer, logger *slog.Logger) *RestoreService {
	return &RestoreService{
		store:     s,
		reindexer: reindexer,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Restore validates doc and replaces all state with it in one transaction.
// An invalid document fails with VALIDATION and leaves state untouched.
func (s *RestoreService) Restore(ctx context.Context, doc *Document, opts RestoreOptions) (*RestoreResult, error) {
	start := time.Now()
	s.logger.Info("starting restore",
		"created_at", doc.Manifest.CreatedAt,
		"counts", doc.Counts(),
		"dry_run", opts.DryRun)

	v := Validate(doc)
	for _, w := range v.Warnings {
		s.logger.Warn("backup warning", "warning", w)
	}
	if !v.Valid {
		return nil, domainerrors.ValidationWithDetails("backup failed validation", v.Errors).WithCause(ErrCorruptedBackup)
	}

	result := &RestoreResult{Imported: doc.Counts(), DryRun: opts.DryRun}
	if opts.DryRun {
		result.Duration = time.Since(start)
		return result, nil
	}

	if err := s.store.InTx(ctx, func(tx store.Tx) error { return s.replace(ctx, tx, doc) }); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Validationf("backup has conflicting records: %v", err).WithCause(ErrCorruptedBackup)
		}
		return nil, fmt.Errorf("restore: %w", err)
	}

	if s.reindexer != nil {
		if _, err := s.reindexer.Reindex(ctx); err != nil {
			s.logger.Warn("search reindex after restore failed", "error", err)
		}
	}

	result.Duration = time.Since(start)
	s.logger.Info("restore complete", "imported", result.Imported, "duration", result.Duration)
	return result, nil
}

// RestoreFile reads an archive and restores it.
func (s *RestoreService) RestoreFile(ctx context.Context, path string, opts RestoreOptions) (*RestoreResult, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.Restore(ctx, doc, opts)
}

// replace writes entities in dependency order: fines reference loans and
// payments reference fines.
func (s *RestoreService) replace(ctx context.Context, tx store.Tx, doc *Document) error {
	if err := tx.Truncate(ctx); err != nil {
		return err
	}
	settings := doc.Settings
	if err := tx.SavePolicy(ctx, &settings); err != nil {
		return fmt.Errorf("restore settings: %w", err)
	}
	for _, b := range doc.Books {
		if err := tx.CreateBook(ctx, b); err != nil {
			return fmt.Errorf("restore book %s: %w", b.ID, err)
		}
	}
	for _, m := range doc.Members {
		if err := tx.CreateMember(ctx, m); err != nil {
			return fmt.Errorf("restore member %s: %w", m.ID, err)
		}
	}
	for _, l := range doc.Loans {
		if err := tx.CreateLoan(ctx, l); err != nil {
			return fmt.Errorf("restore loan %s: %w", l.ID, err)
		}
	}
	for _, r := range doc.Reservations {
		if err := tx.CreateReservation(ctx, r); err != nil {
			return fmt.Errorf("restore reservation %s: %w", r.ID, err)
		}
	}
	for _, f := range doc.Fines {
		if err := tx.CreateFine(ctx, f); err != nil {
			return fmt.Errorf("restore fine %s: %w", f.ID, err)
		}
	}
	for i := range doc.Payments {
		if err := tx.AddPayment(ctx, &doc.Payments[i]); err != nil {
			return fmt.Errorf("restore payment %s: %w", doc.Payments[i].ID, err)
		}
	}

	auditID, err := id.Generate(id.PrefixAudit)
	if err != nil {
		return err
	}
	return tx.AddAudit(ctx, &domain.AuditEntry{
		ID:         auditID,
		Action:     domain.AuditRestoreBackup,
		EntityType: "backup",
		EntityID:   doc.Manifest.CreatedAt.Format(time.RFC3339),
		Detail:     fmt.Sprintf("%+v", doc.Counts()),
		CreatedAt:  s.now(),
	})
}
