package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

func (s *Server) registerMemberRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createMember",
		Method:        http.MethodPost,
		Path:          "/api/members",
		Summary:       "Create member",
		Tags:          []string{"Members"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateMember)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMembers",
		Method:      http.MethodGet,
		Path:        "/api/members",
		Summary:     "List members",
		Tags:        []string{"Members"},
	}, s.handleListMembers)

	huma.Register(s.api, huma.Operation{
		OperationID: "getMember",
		Method:      http.MethodGet,
		Path:        "/api/members/{id}",
		Summary:     "Get member",
		Tags:        []string{"Members"},
	}, s.handleGetMember)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateMember",
		Method:      http.MethodPut,
		Path:        "/api/members/{id}",
		Summary:     "Update member",
		Description: "Partial update of name, contact, email, role and active flag",
		Tags:        []string{"Members"},
	}, s.handleUpdateMember)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteMember",
		Method:        http.MethodDelete,
		Path:          "/api/members/{id}",
		Summary:       "Delete member",
		Description:   "Removes the member. Their loans become invalid records.",
		Tags:          []string{"Members"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteMember)
}

// CreateMemberRequest is the request body for creating a member.
type CreateMemberRequest struct {
	MembershipID string      `json:"membershipID" minLength:"1" maxLength:"64" doc:"Library card number"`
	Name         string      `json:"name" minLength:"1" maxLength:"200" doc:"Full name"`
	Contact      string      `json:"contact,omitempty" maxLength:"100" doc:"Phone or address"`
	Email        string      `json:"email,omitempty" doc:"Email address"`
	Role         domain.Role `json:"role,omitempty" enum:"MEMBER,LIBRARIAN,ADMIN" doc:"Defaults to MEMBER"`
}

// CreateMemberInput wraps the create member request for Huma.
type CreateMemberInput struct {
	Body CreateMemberRequest
}

// MemberIDInput addresses one member.
type MemberIDInput struct {
	ID string `path:"id" doc:"Member ID"`
}

// UpdateMemberInput wraps a partial member edit for Huma.
type UpdateMemberInput struct {
	ID   string `path:"id" doc:"Member ID"`
	Body service.UpdateMemberInput
}

// MemberOutput wraps a single member.
type MemberOutput struct {
	Body *domain.Member
}

// MembersOutput wraps a list of members.
type MembersOutput struct {
	Body []*domain.Member
}

func (s *Server) handleCreateMember(ctx context.Context, input *CreateMemberInput) (*MemberOutput, error) {
	m, err := s.services.Members.Create(ctx, service.CreateMemberInput{
		MembershipID: input.Body.MembershipID,
		Name:         input.Body.Name,
		Contact:      input.Body.Contact,
		Email:        input.Body.Email,
		Role:         input.Body.Role,
	})
	if err != nil {
		return nil, err
	}
	return &MemberOutput{Body: m}, nil
}

func (s *Server) handleListMembers(ctx context.Context, _ *struct{}) (*MembersOutput, error) {
	members, err := s.services.Members.List(ctx)
	if err != nil {
		return nil, err
	}
	return &MembersOutput{Body: nonNil(members)}, nil
}

func (s *Server) handleGetMember(ctx context.Context, input *MemberIDInput) (*MemberOutput, error) {
	m, err := s.services.Members.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &MemberOutput{Body: m}, nil
}

func (s *Server) handleUpdateMember(ctx context.Context, input *UpdateMemberInput) (*MemberOutput, error) {
	m, err := s.services.Members.Update(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &MemberOutput{Body: m}, nil
}

func (s *Server) handleDeleteMember(ctx context.Context, input *MemberIDInput) (*struct{}, error) {
	if err := s.services.Members.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
