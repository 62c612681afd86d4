package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

func (s *Server) registerBorrowRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "issueLoan",
		Method:        http.MethodPost,
		Path:          "/api/borrow/issue",
		Summary:       "Request a loan",
		Description:   "Creates a PENDING loan after checking member standing and the loan limit",
		Tags:          []string{"Borrow"},
		DefaultStatus: http.StatusCreated,
	}, s.handleIssueLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "approveLoan",
		Method:      http.MethodPost,
		Path:        "/api/borrow/approve/{id}",
		Summary:     "Approve loan",
		Description: "Takes one copy and starts the loan period. Fails with OUT_OF_STOCK when no copy is free.",
		Tags:        []string{"Borrow"},
	}, s.handleApproveLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "rejectLoan",
		Method:      http.MethodPost,
		Path:        "/api/borrow/reject/{id}",
		Summary:     "Reject loan",
		Tags:        []string{"Borrow"},
	}, s.handleRejectLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnLoan",
		Method:      http.MethodPost,
		Path:        "/api/borrow/return/{id}",
		Summary:     "Return loan",
		Description: "Closes the loan, frees its copy and fines late returns",
		Tags:        []string{"Borrow"},
	}, s.handleReturnLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "renewLoan",
		Method:      http.MethodPost,
		Path:        "/api/borrow/renew/{id}",
		Summary:     "Renew loan",
		Description: "Extends the due date by one loan period",
		Tags:        []string{"Borrow"},
	}, s.handleRenewLoan)

	for _, list := range []struct {
		id, path, summary string
		fn                func(context.Context) ([]*domain.BorrowRecord, error)
	}{
		{"listActiveLoans", "/api/borrow/active", "List active loans", s.services.Borrow.ListActive},
		{"listOverdueLoans", "/api/borrow/overdue", "List overdue loans", s.services.Borrow.ListOverdue},
		{"listPendingLoans", "/api/borrow/pending", "List pending loan requests", s.services.Borrow.ListPending},
	} {
		fn := list.fn
		huma.Register(s.api, huma.Operation{
			OperationID: list.id,
			Method:      http.MethodGet,
			Path:        list.path,
			Summary:     list.summary,
			Tags:        []string{"Borrow"},
		}, func(ctx context.Context, _ *struct{}) (*LoansOutput, error) {
			loans, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			return &LoansOutput{Body: nonNil(loans)}, nil
		})
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "listInvalidLoans",
		Method:      http.MethodGet,
		Path:        "/api/borrow/invalid",
		Summary:     "List invalid loans",
		Description: "Loans whose book or member no longer exists",
		Tags:        []string{"Borrow"},
	}, s.handleListInvalidLoans)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteInvalidLoan",
		Method:        http.MethodDelete,
		Path:          "/api/borrow/invalid/{id}",
		Summary:       "Delete invalid loan",
		Description:   "Removes one invalid loan. Valid loans are refused with CONFLICT.",
		Tags:          []string{"Borrow"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteInvalidLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "cleanupInvalidLoans",
		Method:      http.MethodPost,
		Path:        "/api/borrow/cleanup-invalid",
		Summary:     "Purge invalid loans",
		Tags:        []string{"Borrow"},
	}, s.handleCleanupInvalidLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMemberLoans",
		Method:      http.MethodGet,
		Path:        "/api/borrow/member/{memberID}",
		Summary:     "List a member's loans",
		Tags:        []string{"Borrow"},
	}, s.handleListMemberLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLoan",
		Method:      http.MethodGet,
		Path:        "/api/borrow/{id}",
		Summary:     "Get loan",
		Tags:        []string{"Borrow"},
	}, s.handleGetLoan)
}

// === DTOs ===

// IssueLoanRequest is the request body for requesting a loan.
type IssueLoanRequest struct {
	MemberID string `json:"memberID" minLength:"1" doc:"Borrowing member"`
	BookID   string `json:"bookID" minLength:"1" doc:"Requested book"`
}

// IssueLoanInput wraps the issue request for Huma.
type IssueLoanInput struct {
	Body IssueLoanRequest
}

// LoanIDInput addresses one loan.
type LoanIDInput struct {
	ID string `path:"id" doc:"Loan ID"`
}

// MemberLoansInput addresses a member's loans.
type MemberLoansInput struct {
	MemberID string `path:"memberID" doc:"Member ID"`
}

// LoanOutput wraps a single loan.
type LoanOutput struct {
	Body *domain.BorrowRecord
}

// LoansOutput wraps a list of loans.
type LoansOutput struct {
	Body []*domain.BorrowRecord
}

// ReturnOutput wraps a returned loan and any fine it produced.
type ReturnOutput struct {
	Body *service.ReturnResult
}

// InvalidLoansOutput wraps the invalid record listing.
type InvalidLoansOutput struct {
	Body []*store.InvalidLoan
}

// CleanupResponse reports how many records were purged.
type CleanupResponse struct {
	Deleted int `json:"deleted" doc:"Number of invalid loans removed"`
}

// CleanupOutput wraps the cleanup response for Huma.
type CleanupOutput struct {
	Body CleanupResponse
}

// === Handlers ===

func (s *Server) handleIssueLoan(ctx context.Context, input *IssueLoanInput) (*LoanOutput, error) {
	loan, err := s.services.Borrow.Issue(ctx, input.Body.MemberID, input.Body.BookID)
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: loan}, nil
}

func (s *Server) handleApproveLoan(ctx context.Context, input *LoanIDInput) (*LoanOutput, error) {
	loan, err := s.services.Borrow.Approve(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: loan}, nil
}

func (s *Server) handleRejectLoan(ctx context.Context, input *LoanIDInput) (*LoanOutput, error) {
	loan, err := s.services.Borrow.Reject(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: loan}, nil
}

func (s *Server) handleReturnLoan(ctx context.Context, input *LoanIDInput) (*ReturnOutput, error) {
	result, err := s.services.Borrow.Return(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReturnOutput{Body: result}, nil
}

func (s *Server) handleRenewLoan(ctx context.Context, input *LoanIDInput) (*LoanOutput, error) {
	loan, err := s.services.Borrow.Renew(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: loan}, nil
}

func (s *Server) handleListInvalidLoans(ctx context.Context, _ *struct{}) (*InvalidLoansOutput, error) {
	loans, err := s.services.Borrow.ListInvalid(ctx)
	if err != nil {
		return nil, err
	}
	return &InvalidLoansOutput{Body: nonNil(loans)}, nil
}

func (s *Server) handleDeleteInvalidLoan(ctx context.Context, input *LoanIDInput) (*struct{}, error) {
	if err := s.services.Borrow.DeleteInvalid(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleCleanupInvalidLoans(ctx context.Context, _ *struct{}) (*CleanupOutput, error) {
	n, err := s.services.Borrow.PurgeInvalid(ctx)
	if err != nil {
		return nil, err
	}
	return &CleanupOutput{Body: CleanupResponse{Deleted: n}}, nil
}

func (s *Server) handleListMemberLoans(ctx context.Context, input *MemberLoansInput) (*LoansOutput, error) {
	loans, err := s.services.Borrow.ListByMember(ctx, input.MemberID)
	if err != nil {
		return nil, err
	}
	return &LoansOutput{Body: nonNil(loans)}, nil
}

func (s *Server) handleGetLoan(ctx context.Context, input *LoanIDInput) (*LoanOutput, error) {
	loan, err := s.services.Borrow.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: loan}, nil
}
