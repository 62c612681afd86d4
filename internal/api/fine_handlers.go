package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

func (s *Server) registerFineRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listFines",
		Method:      http.MethodGet,
		Path:        "/api/fines",
		Summary:     "List fines",
		Tags:        []string{"Fines"},
	}, s.handleListFines)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUnpaidFines",
		Method:      http.MethodGet,
		Path:        "/api/fines/unpaid",
		Summary:     "List unpaid fines",
		Tags:        []string{"Fines"},
	}, s.handleListUnpaidFines)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPartiallyPaidFines",
		Method:      http.MethodGet,
		Path:        "/api/fines/partially-paid",
		Summary:     "List partially paid fines",
		Tags:        []string{"Fines"},
	}, s.handleListPartiallyPaidFines)

	huma.Register(s.api, huma.Operation{
		OperationID: "fineReport",
		Method:      http.MethodGet,
		Path:        "/api/fines/report",
		Summary:     "Fine totals",
		Description: "Issued, collected, outstanding and waived amounts",
		Tags:        []string{"Fines"},
	}, s.handleFineReport)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMemberFines",
		Method:      http.MethodGet,
		Path:        "/api/fines/member/{memberID}",
		Summary:     "List a member's fines",
		Tags:        []string{"Fines"},
	}, s.handleListMemberFines)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFine",
		Method:      http.MethodGet,
		Path:        "/api/fines/{id}",
		Summary:     "Get fine",
		Description: "Returns the fine with its payment log",
		Tags:        []string{"Fines"},
	}, s.handleGetFine)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createManualFine",
		Method:        http.MethodPost,
		Path:          "/api/fines/manual",
		Summary:       "Create manual fine",
		Tags:          []string{"Fines"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateManualFine)

	huma.Register(s.api, huma.Operation{
		OperationID: "payFine",
		Method:      http.MethodPost,
		Path:        "/api/fines/{id}/pay",
		Summary:     "Record payment",
		Description: "Fails with INVALID_AMOUNT when the amount exceeds what is outstanding",
		Tags:        []string{"Fines"},
	}, s.handlePayFine)

	huma.Register(s.api, huma.Operation{
		OperationID: "waiveFine",
		Method:      http.MethodPost,
		Path:        "/api/fines/{id}/waive",
		Summary:     "Waive fine",
		Tags:        []string{"Fines"},
	}, s.handleWaiveFine)
}

// === DTOs ===

// FineIDInput addresses one fine.
type FineIDInput struct {
	ID string `path:"id" doc:"Fine ID"`
}

// MemberFinesInput addresses a member's fines.
type MemberFinesInput struct {
	MemberID string `path:"memberID" doc:"Member ID"`
}

// FineOutput wraps a single fine.
type FineOutput struct {
	Body *domain.Fine
}

// FinesOutput wraps a list of fines.
type FinesOutput struct {
	Body []*domain.Fine
}

// FineReportOutput wraps the fine totals.
type FineReportOutput struct {
	Body store.FineTotals
}

// ManualFineRequest is the request body for a staff-issued fine.
type ManualFineRequest struct {
	MemberID string          `json:"memberID" minLength:"1" doc:"Fined member"`
	Amount   decimal.Decimal `json:"amount" doc:"Amount, at most two decimal places"`
	Reason   string          `json:"reason" minLength:"1" maxLength:"500" doc:"Why the fine was issued"`
}

// ManualFineInput wraps the manual fine request for Huma.
type ManualFineInput struct {
	Body ManualFineRequest
}

// PayFineRequest is the request body for recording a payment.
type PayFineRequest struct {
	Amount decimal.Decimal      `json:"amount" doc:"Amount paid"`
	Method domain.PaymentMethod `json:"method,omitempty" enum:"CASH,CARD,BANK_TRANSFER,ONLINE,OTHER" doc:"Defaults to CASH"`
	Notes  string               `json:"notes,omitempty" maxLength:"500" doc:"Free-form notes"`
}

// PayFineInput wraps the payment request for Huma.
type PayFineInput struct {
	ID   string `path:"id" doc:"Fine ID"`
	Body PayFineRequest
}

// WaiveFineRequest is the request body for waiving a fine.
type WaiveFineRequest struct {
	Reason string `json:"reason" minLength:"1" maxLength:"500" doc:"Why the fine was waived"`
}

// WaiveFineInput wraps the waive request for Huma.
type WaiveFineInput struct {
	ID   string `path:"id" doc:"Fine ID"`
	Body WaiveFineRequest
}

// === Handlers ===

func (s *Server) handleListFines(ctx context.Context, _ *struct{}) (*FinesOutput, error) {
	fines, err := s.services.Fines.List(ctx)
	if err != nil {
		return nil, err
	}
	return &FinesOutput{Body: nonNil(fines)}, nil
}

func (s *Server) handleListUnpaidFines(ctx context.Context, _ *struct{}) (*FinesOutput, error) {
	fines, err := s.services.Fines.ListUnpaid(ctx)
	if err != nil {
		return nil, err
	}
	return &FinesOutput{Body: nonNil(fines)}, nil
}

func (s *Server) handleListPartiallyPaidFines(ctx context.Context, _ *struct{}) (*FinesOutput, error) {
	fines, err := s.services.Fines.ListPartiallyPaid(ctx)
	if err != nil {
		return nil, err
	}
	return &FinesOutput{Body: nonNil(fines)}, nil
}

func (s *Server) handleFineReport(ctx context.Context, _ *struct{}) (*FineReportOutput, error) {
	totals, err := s.services.Fines.Report(ctx)
	if err != nil {
		return nil, err
	}
	return &FineReportOutput{Body: totals}, nil
}

func (s *Server) handleListMemberFines(ctx context.Context, input *MemberFinesInput) (*FinesOutput, error) {
	fines, err := s.services.Fines.ListByMember(ctx, input.MemberID)
	if err != nil {
		return nil, err
	}
	return &FinesOutput{Body: nonNil(fines)}, nil
}

func (s *Server) handleGetFine(ctx context.Context, input *FineIDInput) (*FineOutput, error) {
	fine, err := s.services.Fines.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &FineOutput{Body: fine}, nil
}

func (s *Server) handleCreateManualFine(ctx context.Context, input *ManualFineInput) (*FineOutput, error) {
	fine, err := s.services.Fines.CreateManual(ctx, input.Body.MemberID, input.Body.Amount, input.Body.Reason)
	if err != nil {
		return nil, err
	}
	return &FineOutput{Body: fine}, nil
}

func (s *Server) handlePayFine(ctx context.Context, input *PayFineInput) (*FineOutput, error) {
	fine, err := s.services.Fines.RecordPayment(ctx, input.ID, input.Body.Amount, input.Body.Method, input.Body.Notes)
	if err != nil {
		return nil, err
	}
	return &FineOutput{Body: fine}, nil
}

func (s *Server) handleWaiveFine(ctx context.Context, input *WaiveFineInput) (*FineOutput, error) {
	fine, err := s.services.Fines.Waive(ctx, input.ID, input.Body.Reason)
	if err != nil {
		return nil, err
	}
	return &FineOutput{Body: fine}, nil
}
