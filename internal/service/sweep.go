package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/notify"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// SweepResult counts what one sweep changed.
type SweepResult struct {
	Expired       int      `json:"expired"`
	FinesAssessed int      `json:"finesAssessed"`
	FinesRaised   int      `json:"finesRaised"`
	Notified      int      `json:"notified"`
	Errors        []string `json:"errors,omitempty"`
}

// SweepService runs the periodic background passes. Every pass is
// idempotent: a second run with the same clock changes nothing.
type SweepService struct {
	store        store.Store
	reservations *ReservationService
	fines        *FineService
	notifier     notify.Notifier
	clock        Clock
	logger       *slog.Logger
}

// NewSweepService creates a sweep service.
func NewSweepService(s store.Store, reservations *ReservationService, fines *FineService, notifier notify.Notifier, clock Clock, logger *slog.Logger) *SweepService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &SweepService{
		store:        s,
		reservations: reservations,
		fines:        fines,
		notifier:     notifier,
		clock:        clock,
		logger:       logger,
	}
}

// Run executes the expiry, overdue-fine and notification passes. A failing
// pass is recorded in the result and the remaining passes still run.
func (s *SweepService) Run(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{}
	fail := func(pass string, err error) {
		s.logger.Warn("sweep pass failed", "pass", pass, "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", pass, err))
	}

	policy, err := loadPolicy(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	if n, err := s.reservations.ExpireStale(ctx); err != nil {
		fail("expire", err)
	} else {
		result.Expired = n
	}

	if policy.AutoOverdueFines {
		created, raised, err := s.accrueOverdueFines(ctx, policy)
		result.FinesAssessed, result.FinesRaised = created, raised
		if err != nil {
			fail("overdue_fines", err)
		}
	}

	if policy.AutomaticNotifications {
		n, err := s.reservations.NotifyReady(ctx)
		result.Notified = n
		if err != nil {
			fail("notify", err)
		}
	}

	s.logger.Info("sweep completed",
		"expired", result.Expired,
		"fines_assessed", result.FinesAssessed,
		"fines_raised", result.FinesRaised,
		"notified", result.Notified,
		"errors", len(result.Errors),
	)
	return result, nil
}

// accrueOverdueFines brings the fine of every overdue loan up to date.
func (s *SweepService) accrueOverdueFines(ctx context.Context, policy domain.PolicySettings) (created, raised int, err error) {
	now := s.clock.Now()
	overdue, err := s.store.ListLoans(ctx, store.LoanFilter{DueBefore: &now})
	if err != nil {
		return 0, 0, err
	}

	var errs []error
	for _, candidate := range overdue {
		var (
			fine    *domain.Fine
			outcome assessment
		)
		err := s.store.InTx(ctx, func(tx store.Tx) error {
			loan, err := tx.GetLoan(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !loan.IsOverdue(now) {
				return nil
			}
			fine, outcome, err = s.fines.assessOverdueTx(ctx, tx, loan, loan.DaysOverdue(now), policy, now)
			return err
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("loan %s: %w", candidate.ID, err))
			continue
		}

		switch outcome {
		case assessCreated:
			created++
			s.enqueueOverdue(ctx, candidate, fine)
		case assessRaised:
			raised++
		}
	}
	return created, raised, errors.Join(errs...)
}

func (s *SweepService) enqueueOverdue(ctx context.Context, loan *domain.BorrowRecord, fine *domain.Fine) {
	n := notify.Notification{
		Kind:     notify.KindLoanOverdue,
		MemberID: loan.MemberID,
		BookID:   loan.BookID,
		LoanID:   loan.ID,
		Message:  fmt.Sprintf("Your loan is overdue. A fine of %s is accruing.", fine.Amount.StringFixed(2)),
	}
	if err := s.notifier.Enqueue(ctx, n); err != nil {
		s.logger.Warn("failed to enqueue notification", "loan_id", loan.ID, "error", err)
	}
}
