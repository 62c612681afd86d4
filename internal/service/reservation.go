package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/notify"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

var openReservationStatuses = []domain.ReservationStatus{domain.ReservationPending, domain.ReservationApproved}

// ReservationService runs the reservation state machine. Approval is a soft
// hold; a copy is only taken when the reservation is fulfilled.
type ReservationService struct {
	store    store.Store
	ledger   *InventoryLedger
	borrow   *BorrowService
	notifier notify.Notifier
	clock    Clock
	logger   *slog.Logger
}

// NewReservationService creates a reservation service. A nil notifier
// discards notifications.
func NewReservationService(s store.Store, ledger *InventoryLedger, borrow *BorrowService, notifier notify.Notifier, clock Clock, logger *slog.Logger) *ReservationService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ReservationService{
		store:    s,
		ledger:   ledger,
		borrow:   borrow,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// Create places a PENDING hold for memberID on bookID.
func (s *ReservationService) Create(ctx context.Context, memberID, bookID string) (*domain.Reservation, error) {
	var res *domain.Reservation
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		member, err := tx.GetMember(ctx, memberID)
		if err != nil {
			return notFoundAs(err, "member", memberID)
		}
		if !member.Active {
			return domainerrors.PolicyViolationf("member %s is not active", memberID)
		}
		if _, err := tx.GetBook(ctx, bookID); err != nil {
			return notFoundAs(err, "book", bookID)
		}

		dup, err := tx.CountReservations(ctx, store.ReservationFilter{MemberID: memberID, BookID: bookID, Statuses: openReservationStatuses})
		if err != nil {
			return err
		}
		if dup > 0 {
			return domainerrors.PolicyViolationf("member %s already has an open reservation for book %s", memberID, bookID)
		}
		held, err := tx.CountLoans(ctx, store.LoanFilter{MemberID: memberID, BookID: bookID, Statuses: openLoanStatuses})
		if err != nil {
			return err
		}
		if held > 0 {
			return domainerrors.PolicyViolationf("member %s already has a loan for book %s", memberID, bookID)
		}

		policy, err := loadPolicy(ctx, tx)
		if err != nil {
			return err
		}
		open, err := tx.CountReservations(ctx, store.ReservationFilter{MemberID: memberID, Statuses: openReservationStatuses})
		if err != nil {
			return err
		}
		if open >= policy.MaxReservationsPerMember {
			return domainerrors.PolicyViolationf("member %s has reached the limit of %d reservations", memberID, policy.MaxReservationsPerMember)
		}

		resID, err := id.Generate(id.PrefixReservation)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		res = &domain.Reservation{
			ID:              resID,
			MemberID:        memberID,
			BookID:          bookID,
			ReservationDate: now,
			Status:          domain.ReservationPending,
			UpdatedAt:       now,
		}
		if err := tx.CreateReservation(ctx, res); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domainerrors.PolicyViolationf("member %s already has an open reservation for book %s", memberID, bookID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation created", "reservation_id", res.ID, "member_id", memberID, "book_id", bookID)
	return res, nil
}

// update loads a reservation, applies fn and saves it if the stored status
// did not change in between.
func (s *ReservationService) update(ctx context.Context, resID string, fn func(q store.Queries, res *domain.Reservation) error) (*domain.Reservation, error) {
	var res *domain.Reservation
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		res, err = tx.GetReservation(ctx, resID)
		if err != nil {
			return notFoundAs(err, "reservation", resID)
		}
		expected := res.Status
		if err := fn(tx, res); err != nil {
			return err
		}
		return staleAs(tx.UpdateReservation(ctx, res, expected), "reservation", resID)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Approve moves a PENDING reservation to APPROVED.
func (s *ReservationService) Approve(ctx context.Context, resID string) (*domain.Reservation, error) {
	res, err := s.update(ctx, resID, func(_ store.Queries, res *domain.Reservation) error {
		now := s.clock.Now()
		if err := res.Transition(domain.ReservationApproved, now); err != nil {
			return err
		}
		res.ApprovedDate = &now
		res.NotificationSent = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation approved", "reservation_id", resID)
	return res, nil
}

// Notify tells the member the book is ready and starts the pickup window.
// Delivery is asynchronous; a delivery failure never undoes the update.
func (s *ReservationService) Notify(ctx context.Context, resID string) (*domain.Reservation, error) {
	res, err := s.update(ctx, resID, func(q store.Queries, res *domain.Reservation) error {
		now := s.clock.Now()
		if res.Status == domain.ReservationApproved && res.DeadlinePassed(now) {
			return domainerrors.Expiredf("reservation %s expired at %s", resID, res.ExpiryDate.Format("2006-01-02 15:04"))
		}
		policy, err := loadPolicy(ctx, q)
		if err != nil {
			return err
		}
		return res.MarkNotified(now, policy.ReservationExpiryDays)
	})
	if err != nil {
		return nil, err
	}

	s.enqueueReady(ctx, res)
	s.logger.Info("reservation notified", "reservation_id", resID, "expiry_date", res.ExpiryDate)
	return res, nil
}

func (s *ReservationService) enqueueReady(ctx context.Context, res *domain.Reservation) {
	n := notify.Notification{
		Kind:          notify.KindReservationReady,
		MemberID:      res.MemberID,
		BookID:        res.BookID,
		ReservationID: res.ID,
		Message:       fmt.Sprintf("Your reserved book is ready for pickup until %s.", res.ExpiryDate.Format("2006-01-02")),
	}
	if err := s.notifier.Enqueue(ctx, n); err != nil {
		s.logger.Warn("failed to enqueue notification", "reservation_id", res.ID, "error", err)
	}
}

// FulfillResult is a fulfilled reservation and the loan it created.
type FulfillResult struct {
	Reservation *domain.Reservation  `json:"reservation"`
	Loan        *domain.BorrowRecord `json:"loan"`
}

// Fulfill turns an APPROVED reservation into an APPROVED loan. The deadline
// is checked before stock. The new loan, the copy it takes and the
// reservation update commit together or not at all.
func (s *ReservationService) Fulfill(ctx context.Context, resID string) (*FulfillResult, error) {
	current, err := s.store.GetReservation(ctx, resID)
	if err != nil {
		return nil, notFoundAs(err, "reservation", resID)
	}
	unlock := s.ledger.Lock(current.BookID)
	defer unlock()

	result := &FulfillResult{}
	res, err := s.update(ctx, resID, func(q store.Queries, res *domain.Reservation) error {
		if res.Status != domain.ReservationApproved {
			return domainerrors.InvalidTransitionf("reservation %s is %s; only APPROVED reservations can be fulfilled", resID, res.Status)
		}
		now := s.clock.Now()
		if res.DeadlinePassed(now) {
			return domainerrors.Expiredf("reservation %s expired at %s", resID, res.ExpiryDate.Format("2006-01-02 15:04"))
		}
		policy, err := loadPolicy(ctx, q)
		if err != nil {
			return err
		}

		loan, err := s.borrow.issueTx(ctx, q, res.MemberID, res.BookID, policy, now)
		if err != nil {
			return err
		}
		if err := s.borrow.approveTx(ctx, q, loan, policy, now); err != nil {
			return err
		}

		if err := res.Transition(domain.ReservationFulfilled, now); err != nil {
			return err
		}
		res.BorrowRecordID = loan.ID
		result.Loan = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Reservation = res

	s.logger.Info("reservation fulfilled", "reservation_id", resID, "loan_id", result.Loan.ID, "book_id", res.BookID)
	return result, nil
}

// Cancel moves an open reservation to CANCELLED, recording who cancelled it.
func (s *ReservationService) Cancel(ctx context.Context, resID, by, reason string) (*domain.Reservation, error) {
	if by != domain.CancelledByMember && by != domain.CancelledByAdmin {
		return nil, domainerrors.Validationf("cancelledBy must be %q or %q", domain.CancelledByMember, domain.CancelledByAdmin)
	}
	res, err := s.update(ctx, resID, func(_ store.Queries, res *domain.Reservation) error {
		if err := res.Transition(domain.ReservationCancelled, s.clock.Now()); err != nil {
			return err
		}
		res.CancelledBy = by
		res.CancelReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation cancelled", "reservation_id", resID, "by", by)
	return res, nil
}

// ExpireStale moves open reservations whose deadline passed before now to
// EXPIRED. Running it again finds nothing new.
func (s *ReservationService) ExpireStale(ctx context.Context) (int, error) {
	now := s.clock.Now()
	var n int
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		stale, err := tx.ListReservations(ctx, store.ReservationFilter{
			Statuses:      openReservationStatuses,
			ExpiredBefore: &now,
		})
		if err != nil {
			return err
		}
		for _, res := range stale {
			expected := res.Status
			if err := res.Transition(domain.ReservationExpired, now); err != nil {
				return err
			}
			if err := tx.UpdateReservation(ctx, res, expected); err != nil {
				if errors.Is(err, store.ErrStale) {
					continue
				}
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if n > 0 {
		s.logger.Info("reservations expired", "count", n)
	}
	return n, nil
}

// NotifyReady notifies APPROVED, never-notified reservations whose book has
// a free copy.
func (s *ReservationService) NotifyReady(ctx context.Context) (int, error) {
	approved, err := s.store.ListReservations(ctx, store.ReservationFilter{
		Statuses: []domain.ReservationStatus{domain.ReservationApproved},
	})
	if err != nil {
		return 0, err
	}

	var (
		n    int
		errs []error
	)
	for _, res := range approved {
		if res.NotificationSent {
			continue
		}
		book, err := s.store.GetBook(ctx, res.BookID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !book.IsAvailable() {
			continue
		}
		if _, err := s.Notify(ctx, res.ID); err != nil {
			errs = append(errs, fmt.Errorf("notify reservation %s: %w", res.ID, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// Get returns one reservation.
func (s *ReservationService) Get(ctx context.Context, resID string) (*domain.Reservation, error) {
	res, err := s.store.GetReservation(ctx, resID)
	if err != nil {
		return nil, notFoundAs(err, "reservation", resID)
	}
	return res, nil
}

// ListByMember returns every reservation of a member.
func (s *ReservationService) ListByMember(ctx context.Context, memberID string) ([]*domain.Reservation, error) {
	return s.store.ListReservations(ctx, store.ReservationFilter{MemberID: memberID})
}

// ListByStatus returns reservations in one state.
func (s *ReservationService) ListByStatus(ctx context.Context, status domain.ReservationStatus) ([]*domain.Reservation, error) {
	if !status.Valid() {
		return nil, domainerrors.Validationf("unknown reservation status %q", status)
	}
	return s.store.ListReservations(ctx, store.ReservationFilter{Statuses: []domain.ReservationStatus{status}})
}
