package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/keylock"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// FineService computes, tracks and settles fines.
// Mutations on a fine hold its key lock so a payment's outstanding check and
// its write cannot interleave with another payment on the same fine.
type FineService struct {
	store  store.Store
	locks  *keylock.Locker[string]
	clock  Clock
	logger *slog.Logger
}

// NewFineService creates a fine service.
func NewFineService(s store.Store, clock Clock, logger *slog.Logger) *FineService {
	return &FineService{
		store:  s,
		locks:  keylock.New[string](),
		clock:  clock,
		logger: logger,
	}
}

// checkAmount rejects non-positive amounts and sub-cent precision.
func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domainerrors.InvalidAmountf("amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return domainerrors.InvalidAmountf("amount %s has more than two decimal places", amount)
	}
	return nil
}

func newFine(memberID, loanID string, amount decimal.Decimal, reason string, now time.Time) (*domain.Fine, error) {
	fineID, err := id.Generate(id.PrefixFine)
	if err != nil {
		return nil, err
	}
	f := &domain.Fine{
		ID:             fineID,
		MemberID:       memberID,
		BorrowRecordID: loanID,
		Amount:         amount,
		AmountPaid:     decimal.Zero,
		Reason:         reason,
		IssueDate:      now,
		UpdatedAt:      now,
	}
	f.Refresh()
	return f, nil
}

// CreateManual issues a staff fine that is not tied to a loan.
func (s *FineService) CreateManual(ctx context.Context, memberID string, amount decimal.Decimal, reason string) (*domain.Fine, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domainerrors.Validationf("reason is required")
	}

	var fine *domain.Fine
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetMember(ctx, memberID); err != nil {
			return notFoundAs(err, "member", memberID)
		}
		var err error
		fine, err = newFine(memberID, "", amount, reason, s.clock.Now())
		if err != nil {
			return err
		}
		return tx.CreateFine(ctx, fine)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("manual fine created", "fine_id", fine.ID, "member_id", memberID, "amount", amount.String())
	return fine, nil
}

// CreateOverdueFine issues the fine for loanID. A loan is fined at most once.
func (s *FineService) CreateOverdueFine(ctx context.Context, memberID, loanID string, amount decimal.Decimal) (*domain.Fine, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}

	var fine *domain.Fine
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		loan, err := tx.GetLoan(ctx, loanID)
		if err != nil {
			return notFoundAs(err, "loan", loanID)
		}
		if loan.MemberID != memberID {
			return domainerrors.Validationf("loan %s does not belong to member %s", loanID, memberID)
		}
		if _, err := tx.GetFineByLoan(ctx, loanID); err == nil {
			return domainerrors.Conflictf("loan %s is already fined", loanID)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		fine, err = newFine(memberID, loanID, amount, overdueReason(loan.DaysOverdue(s.clock.Now())), s.clock.Now())
		if err != nil {
			return err
		}
		if err := tx.CreateFine(ctx, fine); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domainerrors.Conflictf("loan %s is already fined", loanID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("overdue fine created", "fine_id", fine.ID, "loan_id", loanID, "amount", amount.String())
	return fine, nil
}

func overdueReason(days int) string {
	if days == 1 {
		return "overdue by 1 day"
	}
	return fmt.Sprintf("overdue by %d days", days)
}

// assessment says what assessOverdueTx did to a loan's fine.
type assessment int

const (
	assessNone assessment = iota
	assessCreated
	assessRaised
)

// assessOverdueTx brings the fine of loan up to days*finePerDay. The fine is
// created if missing and otherwise only ever raised. Waived fines are left
// alone.
func (s *FineService) assessOverdueTx(ctx context.Context, q store.Queries, loan *domain.BorrowRecord, days int, policy domain.PolicySettings, now time.Time) (*domain.Fine, assessment, error) {
	amount := policy.OverdueFine(days)
	if !amount.IsPositive() {
		return nil, assessNone, nil
	}

	existing, err := q.GetFineByLoan(ctx, loan.ID)
	if errors.Is(err, store.ErrNotFound) {
		fine, err := newFine(loan.MemberID, loan.ID, amount, overdueReason(days), now)
		if err != nil {
			return nil, assessNone, err
		}
		if err := q.CreateFine(ctx, fine); err != nil {
			return nil, assessNone, err
		}
		return fine, assessCreated, nil
	}
	if err != nil {
		return nil, assessNone, err
	}

	if existing.IsWaived() || !amount.GreaterThan(existing.Amount) {
		return existing, assessNone, nil
	}

	existing.Amount = amount
	existing.Reason = overdueReason(days)
	existing.UpdatedAt = now
	existing.Refresh()
	if err := q.UpdateFine(ctx, existing); err != nil {
		return nil, assessNone, err
	}
	return existing, assessRaised, nil
}

// RecordPayment appends a payment and recomputes the fine's status.
func (s *FineService) RecordPayment(ctx context.Context, fineID string, amount decimal.Decimal, method domain.PaymentMethod, notes string) (*domain.Fine, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if method == "" {
		method = domain.PaymentCash
	}
	if !method.Valid() {
		return nil, domainerrors.Validationf("unknown payment method %q", method)
	}

	unlock := s.locks.Lock(fineID)
	defer unlock()

	var fine *domain.Fine
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		fine, err = tx.GetFine(ctx, fineID)
		if err != nil {
			return notFoundAs(err, "fine", fineID)
		}
		if fine.IsWaived() {
			return domainerrors.InvalidTransitionf("fine %s is waived", fineID)
		}
		if outstanding := fine.Outstanding(); amount.GreaterThan(outstanding) {
			return domainerrors.InvalidAmountf("payment %s exceeds outstanding %s", amount.StringFixed(2), outstanding.StringFixed(2)).
				WithDetails(map[string]string{"outstanding": outstanding.StringFixed(2)})
		}

		payID, err := id.Generate(id.PrefixPayment)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		payment := domain.Payment{
			ID:        payID,
			FineID:    fineID,
			Amount:    amount,
			Method:    method,
			Notes:     notes,
			Timestamp: now,
		}
		if err := tx.AddPayment(ctx, &payment); err != nil {
			return err
		}

		fine.AmountPaid = fine.AmountPaid.Add(amount)
		fine.UpdatedAt = now
		fine.Refresh()
		if err := tx.UpdateFine(ctx, fine); err != nil {
			return staleAs(err, "fine", fineID)
		}

		fine.Payments, err = tx.ListPayments(ctx, fineID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		"fine_id", fineID, "amount", amount.String(), "method", method, "status", fine.Status)
	return fine, nil
}

// Waive forgives the outstanding balance of an UNPAID or PARTIALLY_PAID fine.
func (s *FineService) Waive(ctx context.Context, fineID, reason string) (*domain.Fine, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domainerrors.Validationf("reason is required")
	}

	unlock := s.locks.Lock(fineID)
	defer unlock()

	var fine *domain.Fine
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		fine, err = tx.GetFine(ctx, fineID)
		if err != nil {
			return notFoundAs(err, "fine", fineID)
		}
		if fine.Status == domain.FinePaid || fine.Status == domain.FineWaived {
			return domainerrors.InvalidTransitionf("fine %s is %s and cannot be waived", fineID, fine.Status)
		}

		now := s.clock.Now()
		fine.Status = domain.FineWaived
		fine.WaivedReason = reason
		fine.WaivedAt = &now
		fine.UpdatedAt = now
		return tx.UpdateFine(ctx, fine)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("fine waived", "fine_id", fineID, "reason", reason)
	return fine, nil
}

// Get returns a fine with its payment log.
func (s *FineService) Get(ctx context.Context, fineID string) (*domain.Fine, error) {
	fine, err := s.store.GetFine(ctx, fineID)
	if err != nil {
		return nil, notFoundAs(err, "fine", fineID)
	}
	fine.Payments, err = s.store.ListPayments(ctx, fineID)
	if err != nil {
		return nil, err
	}
	return fine, nil
}

// List returns every fine.
func (s *FineService) List(ctx context.Context) ([]*domain.Fine, error) {
	return s.store.ListFines(ctx, store.FineFilter{})
}

// ListByMember returns the fines of one member.
func (s *FineService) ListByMember(ctx context.Context, memberID string) ([]*domain.Fine, error) {
	return s.store.ListFines(ctx, store.FineFilter{MemberID: memberID})
}

// ListUnpaid returns fines with no payment yet.
func (s *FineService) ListUnpaid(ctx context.Context) ([]*domain.Fine, error) {
	return s.store.ListFines(ctx, store.FineFilter{Statuses: []domain.FineStatus{domain.FineUnpaid}})
}

// ListPartiallyPaid returns fines with some but not all of the amount paid.
func (s *FineService) ListPartiallyPaid(ctx context.Context) ([]*domain.Fine, error) {
	return s.store.ListFines(ctx, store.FineFilter{Statuses: []domain.FineStatus{domain.FinePartiallyPaid}})
}

// FineLedger is the raw material for fine reporting.
type FineLedger struct {
	Fines    []*domain.Fine   `json:"fines"`
	Payments []domain.Payment `json:"payments"`
}

// Ledger returns every fine and every payment.
func (s *FineService) Ledger(ctx context.Context) (*FineLedger, error) {
	fines, err := s.store.ListFines(ctx, store.FineFilter{})
	if err != nil {
		return nil, err
	}
	payments, err := s.store.ListAllPayments(ctx)
	if err != nil {
		return nil, err
	}
	return &FineLedger{Fines: fines, Payments: payments}, nil
}

// Totals folds the ledger into issued, collected, outstanding and waived sums.
func (l *FineLedger) Totals() store.FineTotals {
	t := store.FineTotals{
		Issued:      decimal.Zero,
		Collected:   decimal.Zero,
		Outstanding: decimal.Zero,
		Waived:      decimal.Zero,
	}
	for _, f := range l.Fines {
		t.Count++
		t.Issued = t.Issued.Add(f.Amount)
		t.Collected = t.Collected.Add(f.AmountPaid)
		if f.IsWaived() {
			t.Waived = t.Waived.Add(f.Amount.Sub(f.AmountPaid))
		} else {
			t.Outstanding = t.Outstanding.Add(f.Outstanding())
		}
	}
	return t
}

// Report returns the fine totals.
func (s *FineService) Report(ctx context.Context) (store.FineTotals, error) {
	ledger, err := s.Ledger(ctx)
	if err != nil {
		return store.FineTotals{}, err
	}
	return ledger.Totals(), nil
}
