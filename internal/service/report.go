package service

import (
	"context"

	"github.com/shelfwise/shelfwise-server/internal/store"
)

// ReportService serves read-only dashboard projections.
type ReportService struct {
	store store.Store
	clock Clock
}

// NewReportService creates a report service.
func NewReportService(s store.Store, clock Clock) *ReportService {
	return &ReportService{store: s, clock: clock}
}

// Summary aggregates books, loans, reservations and fines.
func (s *ReportService) Summary(ctx context.Context) (*store.Summary, error) {
	return s.store.Reports(ctx, s.clock.Now())
}
