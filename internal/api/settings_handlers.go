package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/backup"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSettings",
		Method:      http.MethodGet,
		Path:        "/api/settings",
		Summary:     "Get circulation policy",
		Tags:        []string{"Settings"},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSettings",
		Method:      http.MethodPut,
		Path:        "/api/settings",
		Summary:     "Update circulation policy",
		Description: "Partial update; omitted fields keep their value",
		Tags:        []string{"Settings"},
	}, s.handleUpdateSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetSettings",
		Method:      http.MethodPost,
		Path:        "/api/settings/reset",
		Summary:     "Reset circulation policy",
		Tags:        []string{"Settings"},
	}, s.handleResetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportBackup",
		Method:      http.MethodGet,
		Path:        "/api/settings/backup/export",
		Summary:     "Export backup",
		Description: "Returns every book, member, loan, reservation, fine and payment with the policy",
		Tags:        []string{"Backup"},
	}, s.handleExportBackup)

	huma.Register(s.api, huma.Operation{
		OperationID:      "restoreBackup",
		Method:           http.MethodPost,
		Path:             "/api/settings/backup/restore",
		Summary:          "Restore backup",
		Description:      "Validates the document and replaces all state in one transaction",
		Tags:             []string{"Backup"},
		SkipValidateBody: true,
	}, s.handleRestoreBackup)
}

// === DTOs ===

// SettingsOutput wraps the policy.
type SettingsOutput struct {
	Body domain.PolicySettings
}

// UpdateSettingsInput wraps a partial policy update for Huma.
type UpdateSettingsInput struct {
	Body domain.PolicyPatch
}

// BackupOutput wraps an exported document.
type BackupOutput struct {
	ContentDisposition string `header:"Content-Disposition"`
	Body               *backup.Document
}

// RestoreBackupInput carries the raw document. The operation skips schema
// validation; backup.Validate checks the decoded document instead.
type RestoreBackupInput struct {
	DryRun  bool   `query:"dryRun" doc:"Validate without writing"`
	RawBody []byte `contentType:"application/json"`
}

// RestoreOutput wraps the restore result.
type RestoreOutput struct {
	Body *backup.RestoreResult
}

// === Handlers ===

func (s *Server) handleGetSettings(ctx context.Context, _ *struct{}) (*SettingsOutput, error) {
	policy, err := s.services.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: policy}, nil
}

func (s *Server) handleUpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*SettingsOutput, error) {
	policy, err := s.services.Settings.Update(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: policy}, nil
}

func (s *Server) handleResetSettings(ctx context.Context, _ *struct{}) (*SettingsOutput, error) {
	policy, err := s.services.Settings.Reset(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: policy}, nil
}

func (s *Server) handleExportBackup(ctx context.Context, _ *struct{}) (*BackupOutput, error) {
	doc, err := s.services.Backup.Export(ctx)
	if err != nil {
		return nil, err
	}
	doc.Books = nonNil(doc.Books)
	doc.Members = nonNil(doc.Members)
	doc.Loans = nonNil(doc.Loans)
	doc.Reservations = nonNil(doc.Reservations)
	doc.Fines = nonNil(doc.Fines)
	doc.Payments = nonNil(doc.Payments)

	name := "shelfwise-backup-" + doc.Manifest.CreatedAt.Format("2006-01-02-150405") + ".json"
	return &BackupOutput{
		ContentDisposition: `attachment; filename="` + name + `"`,
		Body:               doc,
	}, nil
}

func (s *Server) handleRestoreBackup(ctx context.Context, input *RestoreBackupInput) (*RestoreOutput, error) {
	doc, err := backup.DecodeJSON(input.RawBody)
	if err != nil {
		return nil, domainerrors.Validationf("%v", err)
	}
	if doc.Manifest.Version != backup.FormatVersion {
		return nil, domainerrors.Validationf("%v: %q", backup.ErrVersionMismatch, doc.Manifest.Version)
	}

	result, err := s.services.Restore.Restore(ctx, doc, backup.RestoreOptions{DryRun: input.DryRun})
	if err != nil {
		if errors.Is(err, backup.ErrCorruptedBackup) {
			s.logger.Warn("rejected backup restore", "error", err)
		}
		return nil, err
	}
	return &RestoreOutput{Body: result}, nil
}
