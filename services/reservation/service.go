package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	reservationRepo "adspot/database/repository/reservation"
	"adspot/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTxnAttempts bounds the optimistic-concurrency retry loop. Losing a
// write race this many times in a row means real contention; the caller gets
// ErrConflict and decides what to do.
const DefaultTxnAttempts = 4

// RefundScheduler queues a refund for out-of-band retry after an inline
// submission failed. Implemented by the cron package over asynq.
type RefundScheduler interface {
	ScheduleRefund(ctx context.Context, reservationID string, ref models.ChargeRef) error
}

// CreateReservationInput carries everything a renter's booking request needs.
type CreateReservationInput struct {
	ScreenID            string
	OwnerID             string
	RenterID            string
	Dates               []string
	AmountTotal         int64
	Currency            string
	ContentID           string
	SpecialInstructions string
}

// DefaultReservationService orchestrates the reservation lifecycle over a
// transactional store and a payment gateway.
type DefaultReservationService struct {
	Store       reservationRepo.Store
	Payments    PaymentGateway
	Notifier    Notifier
	RefundRetry RefundScheduler // optional
	Logger      *zap.Logger
	TxnAttempts int
	Now         func() time.Time // optional clock override
}

func NewReservationService(store reservationRepo.Store, payments PaymentGateway, notifier Notifier, logger *zap.Logger) *DefaultReservationService {
	return &DefaultReservationService{
		Store:       store,
		Payments:    payments,
		Notifier:    notifier,
		Logger:      logger,
		TxnAttempts: DefaultTxnAttempts,
	}
}

func (s *DefaultReservationService) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// today is the calendar date the lifecycle guards compare against. UTC, so a
// screen's go-live does not depend on which server runs the sweep.
func (s *DefaultReservationService) today() string {
	return s.clock().UTC().Format(models.DateFormat)
}

// CreateReservation validates the request, charges the renter, and persists
// a new reservation in status requested. No conflict check happens here:
// overlapping requests may coexist, only commitment is exclusive. A failed
// charge aborts the whole operation with nothing persisted.
func (s *DefaultReservationService) CreateReservation(ctx context.Context, input CreateReservationInput) (*models.Reservation, error) {
	dates, err := models.NormalizeDates(input.Dates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.clock()
	res := &models.Reservation{
		ID:                  uuid.New().String(),
		ScreenID:            input.ScreenID,
		OwnerID:             input.OwnerID,
		RenterID:            input.RenterID,
		Dates:               dates,
		Status:              models.StatusRequested,
		AmountTotal:         input.AmountTotal,
		Currency:            input.Currency,
		ContentID:           input.ContentID,
		SpecialInstructions: input.SpecialInstructions,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if input.Currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrInvalidInput)
	}

	// The renter is charged at request time, before the owner has seen the
	// booking. Declines and cancellations refund.
	receipt, err := s.Payments.AuthorizeAndCapture(ctx, models.ChargeRequest{
		Amount:     res.AmountTotal,
		Currency:   res.Currency,
		PayerRef:   res.RenterID,
		BookingRef: res.ID,
	})
	if err != nil {
		s.Logger.Warn("charge failed, reservation not created",
			zap.String("screenId", input.ScreenID),
			zap.String("renterId", input.RenterID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	res.ChargeRef = string(receipt.ChargeRef)

	err = s.Store.Transact(ctx, func(ctx context.Context, txn reservationRepo.Txn) error {
		return txn.Insert(ctx, res)
	})
	if err != nil {
		// The renter has been charged for a booking that does not exist;
		// give the money back before surfacing the failure.
		if refundErr := s.Payments.Refund(ctx, receipt.ChargeRef); refundErr != nil {
			s.alertRefundFailure(res.ID, receipt.ChargeRef, refundErr)
		}
		return nil, fmt.Errorf("failed to persist reservation: %w", err)
	}

	s.Logger.Info("reservation created",
		zap.String("reservationId", res.ID),
		zap.String("screenId", res.ScreenID),
		zap.Strings("dates", res.Dates),
		zap.Int64("amount", res.AmountTotal),
	)
	return res, nil
}

// AcceptBooking commits the reservation's dates to the screen. The read, the
// ownership and status guards, the committed-date overlap check and the
// write all happen inside one store transaction; losing a write race retries
// the whole sequence from a fresh read, a bounded number of times. This
// transactional boundary is what makes double-booking impossible.
func (s *DefaultReservationService) AcceptBooking(ctx context.Context, id, actingOwnerID string) (*models.Reservation, error) {
	var accepted *models.Reservation
	err := s.transactWithRetry(ctx, func(ctx context.Context, txn reservationRepo.Txn) error {
		res, err := s.getForUpdate(ctx, txn, id)
		if err != nil {
			return err
		}
		if res.OwnerID != actingOwnerID {
			return ErrForbidden
		}
		if res.Status == models.StatusCancelled {
			// Distinguished from a generic invalid transition so the app
			// can tell the owner to refresh rather than retry.
			return ErrAlreadyCancelled
		}
		next, err := NextStatus(res.Status, EventAccept, ActorOwner)
		if err != nil {
			return err
		}

		// Serialize against other accepts for this screen, then derive the
		// committed-date set inside this same transaction. Never cached.
		if err := txn.TouchScreen(ctx, res.ScreenID); err != nil {
			return err
		}
		others, err := txn.QueryByScreen(ctx, res.ScreenID, models.CommittedStatuses)
		if err != nil {
			return err
		}
		if clash := Overlap(res.Dates, CommittedDates(others, res.ID)); len(clash) > 0 {
			return &DateConflictError{Dates: clash}
		}

		res.Status = next
		res.UpdatedAt = s.clock()
		if err := txn.Update(ctx, res); err != nil {
			return err
		}
		accepted = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("booking accepted",
		zap.String("reservationId", accepted.ID),
		zap.String("screenId", accepted.ScreenID),
		zap.Strings("dates", accepted.Dates),
	)
	s.notify(ctx, accepted, models.StatusRequested)
	return accepted, nil
}

// DeclineBooking refuses a requested booking. The renter was charged at
// request time, so a decline also sends the money back; the refund is a
// compensating action and its failure never undoes the decline.
func (s *DefaultReservationService) DeclineBooking(ctx context.Context, id, actingOwnerID string) (*models.Reservation, error) {
	var declined *models.Reservation
	err := s.transactWithRetry(ctx, func(ctx context.Context, txn reservationRepo.Txn) error {
		res, err := s.getForUpdate(ctx, txn, id)
		if err != nil {
			return err
		}
		if res.OwnerID != actingOwnerID {
			return ErrForbidden
		}
		next, err := NextStatus(res.Status, EventDecline, ActorOwner)
		if err != nil {
			return err
		}
		res.Status = next
		res.UpdatedAt = s.clock()
		if err := txn.Update(ctx, res); err != nil {
			return err
		}
		declined = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("booking declined", zap.String("reservationId", declined.ID))
	s.submitRefund(ctx, declined)
	s.notify(ctx, declined, models.StatusRequested)
	return declined, nil
}

// CancelBooking withdraws a booking on behalf of the renter or the owner,
// per the role rules of the transition table. The status flip commits even
// if the subsequent refund submission fails: a cancellation must not be
// hostage to payment-provider availability, so refund failures go to the
// operational alert path instead of the caller.
func (s *DefaultReservationService) CancelBooking(ctx context.Context, id, actingUserID string, role Actor) (*models.Reservation, error) {
	if role != ActorOwner && role != ActorRenter {
		return nil, fmt.Errorf("%w: role must be owner or renter", ErrInvalidInput)
	}

	var cancelled *models.Reservation
	var previous models.ReservationStatus
	err := s.transactWithRetry(ctx, func(ctx context.Context, txn reservationRepo.Txn) error {
		res, err := s.getForUpdate(ctx, txn, id)
		if err != nil {
			return err
		}
		switch role {
		case ActorOwner:
			if res.OwnerID != actingUserID {
				return ErrForbidden
			}
		case ActorRenter:
			if res.RenterID != actingUserID {
				return ErrForbidden
			}
		}
		next, err := NextStatus(res.Status, EventCancel, role)
		if err != nil {
			return err
		}
		previous = res.Status
		res.Status = next
		res.UpdatedAt = s.clock()
		if err := txn.Update(ctx, res); err != nil {
			return err
		}
		cancelled = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("booking cancelled",
		zap.String("reservationId", cancelled.ID),
		zap.String("role", string(role)),
	)
	s.submitRefund(ctx, cancelled)
	s.notify(ctx, cancelled, previous)
	return cancelled, nil
}

// MarkRefundSettled records the payment provider's confirmation that the
// refund for a cancelled booking cleared.
func (s *DefaultReservationService) MarkRefundSettled(ctx context.Context, id string) (*models.Reservation, error) {
	var settled *models.Reservation
	err := s.transactWithRetry(ctx, func(ctx context.Context, txn reservationRepo.Txn) error {
		res, err := s.getForUpdate(ctx, txn, id)
		if err != nil {
			return err
		}
		next, err := NextStatus(res.Status, EventRefundSettled, ActorPayment)
		if err != nil {
			return err
		}
		res.Status = next
		res.UpdatedAt = s.clock()
		if err := txn.Update(ctx, res); err != nil {
			return err
		}
		settled = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("refund settled", zap.String("reservationId", settled.ID))
	return settled, nil
}

func (s *DefaultReservationService) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	res, err := s.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrReservationNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch reservation %s: %w", id, err)
	}
	return res, nil
}

func (s *DefaultReservationService) ListForScreen(ctx context.Context, screenID string) ([]models.Reservation, error) {
	return s.Store.ListByScreen(ctx, screenID)
}

func (s *DefaultReservationService) ListForOwner(ctx context.Context, ownerID string) ([]models.Reservation, error) {
	return s.Store.ListByOwner(ctx, ownerID)
}

func (s *DefaultReservationService) ListForRenter(ctx context.Context, renterID string) ([]models.Reservation, error) {
	return s.Store.ListByRenter(ctx, renterID)
}

// SweepResult summarizes one lifecycle sweep.
type SweepResult struct {
	WentLive  int
	Completed int
}

// RunLifecycleSweep advances time-driven transitions: accepted reservations
// whose dates include today go live, and live reservations whose dates have
// all passed complete. Each record transitions in its own transaction, so a
// sweep never holds more than one booking hostage to another's write race.
func (s *DefaultReservationService) RunLifecycleSweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	today := s.today()

	accepted, err := s.Store.ListByStatus(ctx, []models.ReservationStatus{models.StatusAccepted})
	if err != nil {
		return result, fmt.Errorf("sweep: listing accepted reservations: %w", err)
	}
	for i := range accepted {
		if !accepted[i].HasDate(today) {
			continue
		}
		if _, err := s.fireSystemEvent(ctx, accepted[i].ID, EventGoLive, today); err != nil {
			s.Logger.Warn("sweep: go-live failed",
				zap.String("reservationId", accepted[i].ID), zap.Error(err))
			continue
		}
		result.WentLive++
	}

	live, err := s.Store.ListByStatus(ctx, []models.ReservationStatus{models.StatusLive})
	if err != nil {
		return result, fmt.Errorf("sweep: listing live reservations: %w", err)
	}
	for i := range live {
		if !allDatesPassed(live[i].Dates, today) {
			continue
		}
		if _, err := s.fireSystemEvent(ctx, live[i].ID, EventComplete, today); err != nil {
			s.Logger.Warn("sweep: complete failed",
				zap.String("reservationId", live[i].ID), zap.Error(err))
			continue
		}
		result.Completed++
	}
	return result, nil
}

// fireSystemEvent applies a time-driven transition, re-checking its guard
// against the record actually read inside the transaction.
func (s *DefaultReservationService) fireSystemEvent(ctx context.Context, id string, event Event, today string) (*models.Reservation, error) {
	var updated *models.Reservation
	var previous models.ReservationStatus
	err := s.transactWithRetry(ctx, func(ctx context.Context, txn reservationRepo.Txn) error {
		res, err := s.getForUpdate(ctx, txn, id)
		if err != nil {
			return err
		}
		next, err := NextStatus(res.Status, event, ActorSystem)
		if err != nil {
			return err
		}
		switch event {
		case EventGoLive:
			if !res.HasDate(today) {
				return &InvalidTransitionError{Status: res.Status, Event: event}
			}
		case EventComplete:
			if !allDatesPassed(res.Dates, today) {
				return &InvalidTransitionError{Status: res.Status, Event: event}
			}
		}
		previous = res.Status
		res.Status = next
		res.UpdatedAt = s.clock()
		if err := txn.Update(ctx, res); err != nil {
			return err
		}
		updated = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated, previous)
	return updated, nil
}

// allDatesPassed reports whether every date is strictly before today. A
// booking stays live through its last display day and completes on the day
// after; otherwise a single-date booking would go live and complete in the
// same sweep. Dates are "YYYY-MM-DD", so lexicographic order is calendar
// order.
func allDatesPassed(dates []string, today string) bool {
	for _, d := range dates {
		if d >= today {
			return false
		}
	}
	return true
}

// transactWithRetry re-runs the transaction from scratch whenever the store
// aborts it for a write-write race, up to the configured attempt budget.
// Business failures (conflicts, guards) pass through untouched on the first
// occurrence; only ErrTxnConflict retries.
func (s *DefaultReservationService) transactWithRetry(ctx context.Context, fn func(ctx context.Context, txn reservationRepo.Txn) error) error {
	attempts := s.TxnAttempts
	if attempts <= 0 {
		attempts = DefaultTxnAttempts
	}
	for i := 0; i < attempts; i++ {
		err := s.Store.Transact(ctx, fn)
		if errors.Is(err, reservationRepo.ErrTxnConflict) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (s *DefaultReservationService) getForUpdate(ctx context.Context, txn reservationRepo.Txn, id string) (*models.Reservation, error) {
	res, err := txn.Get(ctx, id)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrReservationNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read reservation %s: %w", id, err)
	}
	return res, nil
}

// submitRefund sends the captured charge back. Failures are logged to the
// alert path and handed to the retry scheduler when one is wired; they are
// never surfaced to the caller of the cancel/decline that triggered them.
func (s *DefaultReservationService) submitRefund(ctx context.Context, res *models.Reservation) {
	if res.ChargeRef == "" {
		return
	}
	ref := models.ChargeRef(res.ChargeRef)
	if err := s.Payments.Refund(ctx, ref); err != nil {
		s.alertRefundFailure(res.ID, ref, err)
		if s.RefundRetry != nil {
			if schedErr := s.RefundRetry.ScheduleRefund(ctx, res.ID, ref); schedErr != nil {
				s.Logger.Error("failed to schedule refund retry",
					zap.String("reservationId", res.ID), zap.Error(schedErr))
			}
		}
	}
}

// alertRefundFailure is the operational alerting path for stranded money.
func (s *DefaultReservationService) alertRefundFailure(reservationID string, ref models.ChargeRef, err error) {
	s.Logger.Error("refund submission failed, manual remediation may be required",
		zap.String("reservationId", reservationID),
		zap.String("chargeRef", string(ref)),
		zap.Error(err),
	)
}

func (s *DefaultReservationService) notify(ctx context.Context, res *models.Reservation, from models.ReservationStatus) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.NotifyStatusChange(ctx, models.StatusChange{
		ReservationID: res.ID,
		ScreenID:      res.ScreenID,
		OwnerID:       res.OwnerID,
		RenterID:      res.RenterID,
		From:          from,
		To:            res.Status,
		Dates:         res.Dates,
		OccurredAt:    res.UpdatedAt,
	})
}
