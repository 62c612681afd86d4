package service

import (
	"context"
	"errors"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// notFoundAs turns a store miss into a typed NOT_FOUND naming the entity.
func notFoundAs(err error, kind, entityID string) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFoundf("%s %s not found", kind, entityID)
	}
	return err
}

// staleAs reports a lost compare-and-set as an invalid transition.
func staleAs(err error, kind, entityID string) error {
	if errors.Is(err, store.ErrStale) {
		return domainerrors.InvalidTransitionf("%s %s was modified concurrently", kind, entityID)
	}
	return err
}

// loadPolicy reads the stored policy, falling back to the defaults.
func loadPolicy(ctx context.Context, q store.Queries) (domain.PolicySettings, error) {
	p, err := q.GetPolicy(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return domain.DefaultPolicy(), nil
	}
	if err != nil {
		return domain.PolicySettings{}, err
	}
	return *p, nil
}

func audit(ctx context.Context, q store.Queries, action, entityType, entityID, detail string, clock Clock) error {
	auditID, err := id.Generate(id.PrefixAudit)
	if err != nil {
		return err
	}
	return q.AddAudit(ctx, &domain.AuditEntry{
		ID:         auditID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  clock.Now(),
	})
}
