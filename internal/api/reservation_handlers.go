package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

func (s *Server) registerReservationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createReservation",
		Method:        http.MethodPost,
		Path:          "/api/reservations",
		Summary:       "Reserve a book",
		Tags:          []string{"Reservations"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateReservation)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReservation",
		Method:      http.MethodGet,
		Path:        "/api/reservations/{id}",
		Summary:     "Get reservation",
		Tags:        []string{"Reservations"},
	}, s.handleGetReservation)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMemberReservations",
		Method:      http.MethodGet,
		Path:        "/api/reservations/member/{memberID}",
		Summary:     "List a member's reservations",
		Tags:        []string{"Reservations"},
	}, s.handleListMemberReservations)

	for _, list := range []struct {
		id, path string
		status   domain.ReservationStatus
	}{
		{"listPendingReservations", "/api/reservations/pending", domain.ReservationPending},
		{"listApprovedReservations", "/api/reservations/approved", domain.ReservationApproved},
		{"listExpiredReservations", "/api/reservations/expired", domain.ReservationExpired},
	} {
		status := list.status
		huma.Register(s.api, huma.Operation{
			OperationID: list.id,
			Method:      http.MethodGet,
			Path:        list.path,
			Summary:     "List " + string(status) + " reservations",
			Tags:        []string{"Reservations"},
		}, func(ctx context.Context, _ *struct{}) (*ReservationsOutput, error) {
			res, err := s.services.Reservations.ListByStatus(ctx, status)
			if err != nil {
				return nil, err
			}
			return &ReservationsOutput{Body: nonNil(res)}, nil
		})
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "approveReservation",
		Method:      http.MethodPost,
		Path:        "/api/reservations/{id}/approve",
		Summary:     "Approve reservation",
		Description: "Soft hold: no copy is taken until fulfillment",
		Tags:        []string{"Reservations"},
	}, s.handleApproveReservation)

	huma.Register(s.api, huma.Operation{
		OperationID: "notifyReservation",
		Method:      http.MethodPost,
		Path:        "/api/reservations/{id}/notify",
		Summary:     "Notify member",
		Description: "Sends a ready notice and starts the pickup deadline",
		Tags:        []string{"Reservations"},
	}, s.handleNotifyReservation)

	huma.Register(s.api, huma.Operation{
		OperationID: "fulfillReservation",
		Method:      http.MethodPost,
		Path:        "/api/reservations/{id}/fulfill",
		Summary:     "Fulfill reservation",
		Description: "Creates an approved loan and takes one copy in a single transaction",
		Tags:        []string{"Reservations"},
	}, s.handleFulfillReservation)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancelReservationAdmin",
		Method:      http.MethodPost,
		Path:        "/api/reservations/{id}/cancel-admin",
		Summary:     "Cancel reservation (staff)",
		Tags:        []string{"Reservations"},
	}, s.handleCancelReservationAdmin)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancelReservation",
		Method:      http.MethodDelete,
		Path:        "/api/reservations/{id}",
		Summary:     "Cancel reservation (member)",
		Tags:        []string{"Reservations"},
	}, s.handleCancelReservation)
}

// === DTOs ===

// CreateReservationRequest is the request body for reserving a book.
type CreateReservationRequest struct {
	MemberID string `json:"memberID" minLength:"1" doc:"Reserving member"`
	BookID   string `json:"bookID" minLength:"1" doc:"Reserved book"`
}

// CreateReservationInput wraps the create request for Huma.
type CreateReservationInput struct {
	Body CreateReservationRequest
}

// ReservationIDInput addresses one reservation.
type ReservationIDInput struct {
	ID string `path:"id" doc:"Reservation ID"`
}

// CancelReservationInput addresses a reservation to cancel.
type CancelReservationInput struct {
	ID     string `path:"id" doc:"Reservation ID"`
	Reason string `query:"reason" maxLength:"500" doc:"Optional cancellation reason"`
}

// MemberReservationsInput addresses a member's reservations.
type MemberReservationsInput struct {
	MemberID string `path:"memberID" doc:"Member ID"`
}

// ReservationOutput wraps a single reservation.
type ReservationOutput struct {
	Body *domain.Reservation
}

// ReservationsOutput wraps a list of reservations.
type ReservationsOutput struct {
	Body []*domain.Reservation
}

// FulfillOutput wraps the fulfilled reservation and its new loan.
type FulfillOutput struct {
	Body *service.FulfillResult
}

// === Handlers ===

func (s *Server) handleCreateReservation(ctx context.Context, input *CreateReservationInput) (*ReservationOutput, error) {
	res, err := s.services.Reservations.Create(ctx, input.Body.MemberID, input.Body.BookID)
	if err != nil {
		return nil, err
	}
	return &ReservationOutput{Body: res}, nil
}

func (s *Server) handleGetReservation(ctx context.Context, input *ReservationIDInput) (*ReservationOutput, error) {
	res, err := s.services.Reservations.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReservationOutput{Body: res}, nil
}

func (s *Server) handleListMemberReservations(ctx context.Context, input *MemberReservationsInput) (*ReservationsOutput, error) {
	res, err := s.services.Reservations.ListByMember(ctx, input.MemberID)
	if err != nil {
		return nil, err
	}
	return &ReservationsOutput{Body: nonNil(res)}, nil
}

func (s *Server) handleApproveReservation(ctx context.Context, input *ReservationIDInput) (*ReservationOutput, error) {
	res, err := s.services.Reservations.Approve(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReservationOutput{Body: res}, nil
}

func (s *Server) handleNotifyReservation(ctx context.Context, input *ReservationIDInput) (*ReservationOutput, error) {
	res, err := s.services.Reservations.Notify(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReservationOutput{Body: res}, nil
}

func (s *Server) handleFulfillReservation(ctx context.Context, input *ReservationIDInput) (*FulfillOutput, error) {
	result, err := s.services.Reservations.Fulfill(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &FulfillOutput{Body: result}, nil
}

func (s *Server) handleCancelReservationAdmin(ctx context.Context, input *CancelReservationInput) (*ReservationOutput, error) {
	res, err := s.services.Reservations.Cancel(ctx, input.ID, domain.CancelledByAdmin, input.Reason)
	if err != nil {
		return nil, err
	}
	return &ReservationOutput{Body: res}, nil
}

func (s *Server) handleCancelReservation(ctx context.Context, input *CancelReservationInput) (*ReservationOutput, error) {
	res, err := s.services.Reservations.Cancel(ctx, input.ID, domain.CancelledByMember, input.Reason)
	if err != nil {
		return nil, err
	}
	return &ReservationOutput{Body: res}, nil
}
