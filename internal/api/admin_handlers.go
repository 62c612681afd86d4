package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "runSweep",
		Method:      http.MethodPost,
		Path:        "/api/admin/sweep",
		Summary:     "Run maintenance sweep",
		Description: "Expires stale reservations, accrues overdue fines and sends ready notices once",
		Tags:        []string{"Admin"},
	}, s.handleRunSweep)

	huma.Register(s.api, huma.Operation{
		OperationID: "reportSummary",
		Method:      http.MethodGet,
		Path:        "/api/reports/summary",
		Summary:     "Circulation summary",
		Description: "Read-only dashboard totals for books, loans, reservations and fines",
		Tags:        []string{"Reports"},
	}, s.handleReportSummary)
}

// SweepOutput wraps the sweep result.
type SweepOutput struct {
	Body *service.SweepResult
}

// SummaryOutput wraps the dashboard summary.
type SummaryOutput struct {
	Body *store.Summary
}

func (s *Server) handleRunSweep(ctx context.Context, _ *struct{}) (*SweepOutput, error) {
	result, err := s.services.Sweep.Run(ctx)
	if err != nil {
		return nil, err
	}
	return &SweepOutput{Body: result}, nil
}

func (s *Server) handleReportSummary(ctx context.Context, _ *struct{}) (*SummaryOutput, error) {
	summary, err := s.services.Reports.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return &SummaryOutput{Body: summary}, nil
}
