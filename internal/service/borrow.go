package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

var openLoanStatuses = []domain.BorrowStatus{domain.BorrowPending, domain.BorrowApproved}

// BorrowService runs the loan state machine.
type BorrowService struct {
	store  store.Store
	ledger *InventoryLedger
	fines  *FineService
	clock  Clock
	logger *slog.Logger
}

// NewBorrowService creates a borrow service.
func NewBorrowService(s store.Store, ledger *InventoryLedger, fines *FineService, clock Clock, logger *slog.Logger) *BorrowService {
	return &BorrowService{
		store:  s,
		ledger: ledger,
		fines:  fines,
		clock:  clock,
		logger: logger,
	}
}

// Issue creates a PENDING loan request.
func (s *BorrowService) Issue(ctx context.Context, memberID, bookID string) (*domain.BorrowRecord, error) {
	var loan *domain.BorrowRecord
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		policy, err := loadPolicy(ctx, tx)
		if err != nil {
			return err
		}
		loan, err = s.issueTx(ctx, tx, memberID, bookID, policy, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan requested", "loan_id", loan.ID, "member_id", memberID, "book_id", bookID)
	return loan, nil
}

func (s *BorrowService) issueTx(ctx context.Context, q store.Queries, memberID, bookID string, policy domain.PolicySettings, now time.Time) (*domain.BorrowRecord, error) {
	member, err := q.GetMember(ctx, memberID)
	if err != nil {
		return nil, notFoundAs(err, "member", memberID)
	}
	if !member.Active {
		return nil, domainerrors.PolicyViolationf("member %s is not active", memberID)
	}
	if _, err := q.GetBook(ctx, bookID); err != nil {
		return nil, notFoundAs(err, "book", bookID)
	}

	dup, err := q.CountLoans(ctx, store.LoanFilter{MemberID: memberID, BookID: bookID, Statuses: openLoanStatuses})
	if err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, domainerrors.PolicyViolationf("member %s already has an open loan for book %s", memberID, bookID)
	}

	open, err := q.CountLoans(ctx, store.LoanFilter{MemberID: memberID, Statuses: openLoanStatuses})
	if err != nil {
		return nil, err
	}
	if open >= policy.MaxBooksPerMember {
		return nil, domainerrors.PolicyViolationf("member %s has reached the limit of %d loans", memberID, policy.MaxBooksPerMember).
			WithDetails(map[string]int{"open": open, "max": policy.MaxBooksPerMember})
	}

	loanID, err := id.Generate(id.PrefixLoan)
	if err != nil {
		return nil, err
	}
	loan := &domain.BorrowRecord{
		ID:          loanID,
		MemberID:    memberID,
		BookID:      bookID,
		RequestDate: now,
		Status:      domain.BorrowPending,
		UpdatedAt:   now,
	}
	if err := q.CreateLoan(ctx, loan); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.PolicyViolationf("member %s already has an open loan for book %s", memberID, bookID)
		}
		return nil, err
	}
	return loan, nil
}

// checkRefs fails with DATA_INTEGRITY when loan points at a missing book or member.
func checkRefs(ctx context.Context, q store.Queries, loan *domain.BorrowRecord) error {
	if _, err := q.GetBook(ctx, loan.BookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.DataIntegrityf("loan %s references missing book %s", loan.ID, loan.BookID)
		}
		return err
	}
	if _, err := q.GetMember(ctx, loan.MemberID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.DataIntegrityf("loan %s references missing member %s", loan.ID, loan.MemberID)
		}
		return err
	}
	return nil
}

// lockLoanBook looks up the loan's book and takes its ledger lock.
func (s *BorrowService) lockLoanBook(ctx context.Context, loanID string) (func(), error) {
	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, notFoundAs(err, "loan", loanID)
	}
	return s.ledger.Lock(loan.BookID), nil
}

// Approve takes a copy for a PENDING loan and starts its loan period.
func (s *BorrowService) Approve(ctx context.Context, loanID string) (*domain.BorrowRecord, error) {
	unlock, err := s.lockLoanBook(ctx, loanID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var loan *domain.BorrowRecord
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		loan, err = tx.GetLoan(ctx, loanID)
		if err != nil {
			return notFoundAs(err, "loan", loanID)
		}
		policy, err := loadPolicy(ctx, tx)
		if err != nil {
			return err
		}
		return s.approveTx(ctx, tx, loan, policy, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan approved", "loan_id", loanID, "book_id", loan.BookID, "due_date", loan.DueDate)
	return loan, nil
}

// approveTx must run under the ledger lock of loan.BookID.
func (s *BorrowService) approveTx(ctx context.Context, q store.Queries, loan *domain.BorrowRecord, policy domain.PolicySettings, now time.Time) error {
	if err := checkRefs(ctx, q, loan); err != nil {
		return err
	}
	if err := loan.Approve(now, policy.BorrowDurationDays); err != nil {
		return err
	}
	if err := s.ledger.reserveCopyTx(ctx, q, loan.BookID); err != nil {
		return err
	}
	if err := q.UpdateLoan(ctx, loan, domain.BorrowPending); err != nil {
		return staleAs(err, "loan", loan.ID)
	}
	return nil
}

// Reject declines a PENDING loan. No copy is touched.
func (s *BorrowService) Reject(ctx context.Context, loanID string) (*domain.BorrowRecord, error) {
	var loan *domain.BorrowRecord
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		loan, err = tx.GetLoan(ctx, loanID)
		if err != nil {
			return notFoundAs(err, "loan", loanID)
		}
		if err := loan.Transition(domain.BorrowRejected, s.clock.Now()); err != nil {
			return err
		}
		return staleAs(tx.UpdateLoan(ctx, loan, domain.BorrowPending), "loan", loanID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan rejected", "loan_id", loanID)
	return loan, nil
}

// ReturnResult is a closed loan and the fine it produced, if any.
type ReturnResult struct {
	Loan *domain.BorrowRecord `json:"loan"`
	Fine *domain.Fine         `json:"fine,omitempty"`
}

// Return closes an APPROVED loan, frees its copy and fines late returns.
func (s *BorrowService) Return(ctx context.Context, loanID string) (*ReturnResult, error) {
	unlock, err := s.lockLoanBook(ctx, loanID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result := &ReturnResult{}
	var days int
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		loan, err := tx.GetLoan(ctx, loanID)
		if err != nil {
			return notFoundAs(err, "loan", loanID)
		}
		if err := checkRefs(ctx, tx, loan); err != nil {
			return err
		}

		now := s.clock.Now()
		if err := loan.MarkReturned(now); err != nil {
			return err
		}
		if err := tx.UpdateLoan(ctx, loan, domain.BorrowApproved); err != nil {
			return staleAs(err, "loan", loanID)
		}
		if _, err := s.ledger.releaseCopyTx(ctx, tx, loan.BookID); err != nil {
			return err
		}
		result.Loan = loan

		days = loan.DaysOverdue(now)
		if days == 0 {
			return nil
		}
		policy, err := loadPolicy(ctx, tx)
		if err != nil {
			return err
		}
		fine, _, err := s.fines.assessOverdueTx(ctx, tx, loan, days, policy, now)
		if err != nil {
			return fmt.Errorf("assess overdue fine: %w", err)
		}
		result.Fine = fine
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.With("loan_id", loanID, "book_id", result.Loan.BookID)
	if result.Fine != nil {
		log.Info("loan returned late", "days_overdue", days, "fine_id", result.Fine.ID, "amount", result.Fine.Amount.String())
	} else {
		log.Info("loan returned")
	}
	return result, nil
}

// Renew extends an APPROVED loan by one loan period.
func (s *BorrowService) Renew(ctx context.Context, loanID string) (*domain.BorrowRecord, error) {
	unlock, err := s.lockLoanBook(ctx, loanID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var loan *domain.BorrowRecord
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		loan, err = tx.GetLoan(ctx, loanID)
		if err != nil {
			return notFoundAs(err, "loan", loanID)
		}
		if err := checkRefs(ctx, tx, loan); err != nil {
			return err
		}
		if loan.Status != domain.BorrowApproved {
			return domainerrors.InvalidTransitionf("loan %s is %s; only APPROVED loans can be renewed", loanID, loan.Status)
		}
		policy, err := loadPolicy(ctx, tx)
		if err != nil {
			return err
		}
		if loan.RenewalCount >= policy.MaxRenewals {
			return domainerrors.RenewalLimitExceededf("loan %s was already renewed %d times", loanID, loan.RenewalCount)
		}
		now := s.clock.Now()
		if loan.IsOverdue(now) {
			return domainerrors.PolicyViolationf("loan %s is overdue and cannot be renewed", loanID)
		}
		waiting, err := tx.CountReservations(ctx, store.ReservationFilter{
			BookID:          loan.BookID,
			Statuses:        openReservationStatuses,
			ExcludeMemberID: loan.MemberID,
		})
		if err != nil {
			return err
		}
		if waiting > 0 {
			return domainerrors.PolicyViolationf("book %s is reserved by another member", loan.BookID)
		}

		due := loan.DueDate.Add(time.Duration(policy.BorrowDurationDays) * domain.Day)
		loan.DueDate = &due
		loan.RenewalCount++
		loan.UpdatedAt = now
		return staleAs(tx.UpdateLoan(ctx, loan, domain.BorrowApproved), "loan", loanID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan renewed", "loan_id", loanID, "renewal_count", loan.RenewalCount, "due_date", loan.DueDate)
	return loan, nil
}

// Get returns one loan.
func (s *BorrowService) Get(ctx context.Context, loanID string) (*domain.BorrowRecord, error) {
	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, notFoundAs(err, "loan", loanID)
	}
	return loan, nil
}

// ListByMember returns every loan of a member.
func (s *BorrowService) ListByMember(ctx context.Context, memberID string) ([]*domain.BorrowRecord, error) {
	return s.store.ListLoans(ctx, store.LoanFilter{MemberID: memberID})
}

// ListActive returns loans currently holding a copy.
func (s *BorrowService) ListActive(ctx context.Context) ([]*domain.BorrowRecord, error) {
	return s.store.ListLoans(ctx, store.LoanFilter{Statuses: []domain.BorrowStatus{domain.BorrowApproved}})
}

// ListOverdue returns active loans past their due date.
func (s *BorrowService) ListOverdue(ctx context.Context) ([]*domain.BorrowRecord, error) {
	now := s.clock.Now()
	return s.store.ListLoans(ctx, store.LoanFilter{DueBefore: &now})
}

// ListPending returns loan requests awaiting a decision.
func (s *BorrowService) ListPending(ctx context.Context) ([]*domain.BorrowRecord, error) {
	return s.store.ListLoans(ctx, store.LoanFilter{Statuses: []domain.BorrowStatus{domain.BorrowPending}})
}

// ListInvalid returns loans whose book or member no longer exists.
func (s *BorrowService) ListInvalid(ctx context.Context) ([]*store.InvalidLoan, error) {
	invalid, err := s.store.ListInvalidLoans(ctx)
	if err != nil {
		return nil, err
	}
	if invalid == nil {
		invalid = []*store.InvalidLoan{}
	}
	return invalid, nil
}

// DeleteInvalid removes one invalid loan. Valid loans are refused.
func (s *BorrowService) DeleteInvalid(ctx context.Context, loanID string) error {
	unlock, err := s.lockLoanBook(ctx, loanID)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		loan, err := tx.GetLoan(ctx, loanID)
		if err != nil {
			return notFoundAs(err, "loan", loanID)
		}
		refErr := checkRefs(ctx, tx, loan)
		if refErr == nil {
			return domainerrors.Conflictf("loan %s is not an invalid record", loanID)
		}
		if !errors.Is(refErr, domainerrors.ErrDataIntegrity) {
			return refErr
		}
		if err := s.deleteInvalidTx(ctx, tx, loan); err != nil {
			return err
		}
		return audit(ctx, tx, domain.AuditDeleteInvalidLoan, "loan", loanID, refErr.Error(), s.clock)
	})
	if err != nil {
		return err
	}

	s.logger.Warn("invalid loan deleted", "loan_id", loanID)
	return nil
}

// PurgeInvalid removes every invalid loan and returns how many were removed.
func (s *BorrowService) PurgeInvalid(ctx context.Context) (int, error) {
	var n int
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		invalid, err := tx.ListInvalidLoans(ctx)
		if err != nil {
			return err
		}
		for _, inv := range invalid {
			if err := s.deleteInvalidTx(ctx, tx, inv.Loan); err != nil {
				return err
			}
			if err := audit(ctx, tx, domain.AuditDeleteInvalidLoan, "loan", inv.Loan.ID, invalidDetail(inv), s.clock); err != nil {
				return err
			}
		}
		n = len(invalid)
		if n == 0 {
			return nil
		}
		return audit(ctx, tx, domain.AuditPurgeInvalidLoans, "loan", "*", fmt.Sprintf("%d records", n), s.clock)
	})
	if err != nil {
		return 0, err
	}

	if n > 0 {
		s.logger.Warn("invalid loans purged", "count", n)
	}
	return n, nil
}

func invalidDetail(inv *store.InvalidLoan) string {
	var missing []string
	if inv.MissingBook {
		missing = append(missing, "book "+inv.Loan.BookID)
	}
	if inv.MissingMember {
		missing = append(missing, "member "+inv.Loan.MemberID)
	}
	return fmt.Sprintf("loan %s references missing %s", inv.Loan.ID, strings.Join(missing, " and "))
}

// deleteInvalidTx removes loan, returning its copy when the book still exists.
func (s *BorrowService) deleteInvalidTx(ctx context.Context, q store.Queries, loan *domain.BorrowRecord) error {
	if loan.IsActive() {
		if _, err := s.ledger.releaseCopyTx(ctx, q, loan.BookID); err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
			return err
		}
	}
	if err := q.DeleteLoan(ctx, loan.ID); err != nil {
		return notFoundAs(err, "loan", loan.ID)
	}
	return nil
}
