package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

// CreateMemberInput describes a new member.
type CreateMemberInput struct {
	MembershipID string      `json:"membershipID" validate:"required,max=64"`
	Name         string      `json:"name" validate:"required,max=200"`
	Contact      string      `json:"contact" validate:"max=100"`
	Email        string      `json:"email" validate:"omitempty,email"`
	Role         domain.Role `json:"role" validate:"omitempty,oneof=MEMBER LIBRARIAN ADMIN"`
}

// UpdateMemberInput is a partial member edit.
type UpdateMemberInput struct {
	Name    *string      `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Contact *string      `json:"contact,omitempty" validate:"omitempty,max=100"`
	Email   *string      `json:"email,omitempty" validate:"omitempty,email"`
	Role    *domain.Role `json:"role,omitempty" validate:"omitempty,oneof=MEMBER LIBRARIAN ADMIN"`
	Active  *bool        `json:"active,omitempty"`
}

// MemberService manages library members.
type MemberService struct {
	store     store.Store
	validator *validation.Validator
	clock     Clock
	logger    *slog.Logger
}

// NewMemberService creates a member service.
func NewMemberService(s store.Store, v *validation.Validator, clock Clock, logger *slog.Logger) *MemberService {
	return &MemberService{store: s, validator: v, clock: clock, logger: logger}
}

// Create registers an active member.
func (s *MemberService) Create(ctx context.Context, in CreateMemberInput) (*domain.Member, error) {
	in.MembershipID = strings.TrimSpace(in.MembershipID)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = domain.RoleMember
	}

	memberID, err := id.Generate(id.PrefixMember)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	m := &domain.Member{
		ID:           memberID,
		MembershipID: in.MembershipID,
		Name:         in.Name,
		Contact:      in.Contact,
		Email:        in.Email,
		Role:         in.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateMember(ctx, m); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflictf("membership id %s is already in use", in.MembershipID)
		}
		return nil, err
	}

	s.logger.Info("member created", "member_id", m.ID, "membership_id", m.MembershipID)
	return m, nil
}

// Get returns one member.
func (s *MemberService) Get(ctx context.Context, memberID string) (*domain.Member, error) {
	m, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, notFoundAs(err, "member", memberID)
	}
	return m, nil
}

// List returns all members.
func (s *MemberService) List(ctx context.Context) ([]*domain.Member, error) {
	return s.store.ListMembers(ctx)
}

// Update edits a member.
func (s *MemberService) Update(ctx context.Context, memberID string, in UpdateMemberInput) (*domain.Member, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	m, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, notFoundAs(err, "member", memberID)
	}
	if in.Name != nil {
		m.Name = strings.TrimSpace(*in.Name)
	}
	if in.Contact != nil {
		m.Contact = *in.Contact
	}
	if in.Email != nil {
		m.Email = *in.Email
	}
	if in.Role != nil {
		m.Role = *in.Role
	}
	if in.Active != nil {
		m.Active = *in.Active
	}
	m.UpdatedAt = s.clock.Now()

	if err := s.store.UpdateMember(ctx, m); err != nil {
		return nil, notFoundAs(err, "member", memberID)
	}
	s.logger.Info("member updated", "member_id", memberID, "active", m.Active)
	return m, nil
}

// Delete removes a member. Their loans become invalid records.
func (s *MemberService) Delete(ctx context.Context, memberID string) error {
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		m, err := tx.GetMember(ctx, memberID)
		if err != nil {
			return notFoundAs(err, "member", memberID)
		}
		if err := tx.DeleteMember(ctx, memberID); err != nil {
			return notFoundAs(err, "member", memberID)
		}
		return audit(ctx, tx, domain.AuditDeleteMember, "member", memberID, m.MembershipID, s.clock)
	})
	if err != nil {
		return err
	}
	s.logger.Info("member deleted", "member_id", memberID)
	return nil
}
