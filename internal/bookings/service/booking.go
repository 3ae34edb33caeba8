package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"

	"trekkr/internal/bookingevents"
	bookingserrors "trekkr/internal/bookings/errors"
	"trekkr/internal/bookings/lifecycle"
	"trekkr/internal/bookings/repository"
	"trekkr/internal/bookings/validator"
	promos "trekkr/internal/promocodes/service"
	"trekkr/pkg/auth"
	"trekkr/pkg/config"
	apperrors "trekkr/pkg/errors"
	"trekkr/pkg/model"
	"trekkr/pkg/money"
	"trekkr/pkg/sanitizer"
)

const (
	maxBookingIDAttempts = 3
	staleBatchSize       = 200
)

type BookingService interface {
	Create(ctx context.Context, identity auth.Identity, req *model.CreateBookingRequest) (*model.Booking, error)
	Get(ctx context.Context, identity auth.Identity, bookingID string) (*model.Booking, error)
	List(ctx context.Context, identity auth.Identity, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	Cancel(ctx context.Context, identity auth.Identity, bookingID, reason string) (*model.Booking, error)
	Complete(ctx context.Context, identity auth.Identity, bookingID string) (*model.Booking, error)
	Refund(ctx context.Context, identity auth.Identity, bookingID string) (*model.Booking, error)
	// ExpireStale cancels pending unpaid bookings created more than olderThan ago.
	ExpireStale(ctx context.Context, olderThan time.Duration) (int, error)
}

type EventLookup interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// SeatReserver is the part of the inventory ledger bookings drive.
type SeatReserver interface {
	CheckAndReserve(ctx context.Context, event *model.Event, month string, year, day, seats int) (*model.SeatLedger, error)
	Release(ctx context.Context, eventID, month string, year, seats int) error
}

type PromoRedeemer interface {
	EvaluateForEvent(ctx context.Context, code string, event *model.Event, userID string, cart decimal.Decimal) (*promos.Evaluation, error)
	RecordUsage(ctx context.Context, eval *promos.Evaluation, userID, bookingID string) error
	ReleaseUsage(ctx context.Context, bookingID string) error
}

type bookingService struct {
	repo      repository.BookingRepository
	validator *validator.BookingValidator
	events    EventLookup
	seats     SeatReserver
	promos    PromoRedeemer
	publisher bookingevents.Publisher
	cfg       *config.Config
	now       func() time.Time
	newID     func(time.Time) string
}

func NewBookingService(
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	events EventLookup,
	seats SeatReserver,
	promos PromoRedeemer,
	publisher bookingevents.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		validator: validator,
		events:    events,
		seats:     seats,
		promos:    promos,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		newID:     NewBookingID,
	}
}

func (s *bookingService) Create(ctx context.Context, identity auth.Identity, req *model.CreateBookingRequest) (*model.Booking, error) {
	sanitizeRequest(req)
	date, err := s.validator.ValidateCreate(req)
	if err != nil {
		s.cfg.Log.Warn("Booking validation failed", "user_id", identity.UserID, "event_id", req.EventID, "error", err)
		return nil, validationError(err)
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsActive {
		return nil, apperrors.Validation("This event is not accepting bookings", map[string]any{"event_id": event.ID})
	}

	seats := len(req.Participants)
	total := money.Multiply(money.FromFloat(event.Price), seats)
	if req.TotalAmount != nil && !money.Equal(money.FromFloat(*req.TotalAmount), total) {
		s.cfg.Log.Warn("Client total does not match event price",
			"user_id", identity.UserID,
			"event_id", event.ID,
			"expected", total.StringFixed(money.Places),
			"received", *req.TotalAmount,
		)
		return nil, apperrors.Validation("Total amount does not match the event price", map[string]any{
			"expected": money.Float(total),
			"received": *req.TotalAmount,
		})
	}

	var eval *promos.Evaluation
	discount, final := decimal.Zero, total
	if req.PromoCode != "" {
		eval, err = s.promos.EvaluateForEvent(ctx, req.PromoCode, event, identity.UserID, total)
		if err != nil {
			return nil, err
		}
		discount, final = eval.DiscountAmount, eval.FinalAmount
	}

	booking := &model.Booking{
		UserID:          identity.UserID,
		EventID:         event.ID,
		EventTitle:      event.Title,
		SelectedDate:    date,
		SelectedDay:     date.Day(),
		SelectedMonth:   date.Month().String(),
		SelectedYear:    date.Year(),
		Participants:    req.Participants,
		SpecialRequests: req.SpecialRequests,
		PricePerPerson:  event.Price,
		TotalAmount:     money.Float(total),
		DiscountAmount:  money.Float(discount),
		FinalAmount:     money.Float(final),
		Status:          model.BookingPending,
		PaymentInfo: model.PaymentInfo{
			PaymentStatus: model.PaymentPending,
			Currency:      s.cfg.PaymentCurrency,
		},
	}
	if eval != nil {
		booking.PromoCode = eval.Promo.Code
	}

	for attempt := 1; ; attempt++ {
		booking.BookingID = s.newID(s.now())
		err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			if _, err := s.seats.CheckAndReserve(sessCtx, event, booking.SelectedMonth, booking.SelectedYear, booking.SelectedDay, seats); err != nil {
				return err
			}
			if err := s.repo.Create(sessCtx, booking); err != nil {
				return err
			}
			if eval != nil {
				return s.promos.RecordUsage(sessCtx, eval, identity.UserID, booking.BookingID)
			}
			return nil
		})
		if !errors.Is(err, bookingserrors.ErrDuplicateBookingID) || attempt == maxBookingIDAttempts {
			break
		}
		s.cfg.Log.Warn("Booking id collision, regenerating", "booking_id", booking.BookingID, "attempt", attempt)
	}
	if err != nil {
		if apperrors.IsAppError(err) {
			s.cfg.Log.Warn("Booking rejected", "user_id", identity.UserID, "event_id", event.ID, "error", err)
			return nil, err
		}
		s.cfg.Log.Error("Failed to create booking", "user_id", identity.UserID, "event_id", event.ID, "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"booking_id", booking.BookingID,
		"user_id", booking.UserID,
		"event_id", booking.EventID,
		"seats", seats,
		"final_amount", booking.FinalAmount,
	)
	s.publish(ctx, model.EventBookingCreated, booking, identity.UserID, "")
	return booking, nil
}

func (s *bookingService) Get(ctx context.Context, identity auth.Identity, bookingID string) (*model.Booking, error) {
	b, err := s.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(identity, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *bookingService) List(ctx context.Context, identity auth.Identity, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)
	if !identity.IsStaff() {
		filter.UserID = identity.UserID
	}

	sharedCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(sharedCtx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindAll(sharedCtx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings", "limit", limit, "offset", offset, "error", err)
			errFind = apperrors.Internal("Failed to retrieve bookings", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return bookings, count, nil
}

func (s *bookingService) Cancel(ctx context.Context, identity auth.Identity, bookingID, reason string) (*model.Booking, error) {
	reason = sanitizer.NormalizeText(reason)
	if reason == "" {
		return nil, apperrors.Validation("A cancellation reason is required", map[string]any{
			"fields": map[string]string{"reason": "reason is required"},
		})
	}

	b, err := s.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(identity, b); err != nil {
		return nil, err
	}

	return s.cancel(ctx, b, repository.StatusChange{
		From:   lifecycle.Sources(lifecycle.Cancel),
		Actor:  identity.UserID,
		Reason: reason,
	})
}

// cancel moves b to CANCELLED and gives back its seats, plus its promo
// redemption when it was never paid, in one transaction.
func (s *bookingService) cancel(ctx context.Context, b *model.Booking, change repository.StatusChange) (*model.Booking, error) {
	if _, err := lifecycle.Check(b.Status, lifecycle.Cancel); err != nil {
		return nil, apperrors.Conflict(err.Error())
	}
	change.To = model.BookingCancelled
	change.At = s.now()

	var before *model.Booking
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		var err error
		before, err = s.repo.Transition(sessCtx, b.BookingID, change)
		if err != nil {
			return err
		}
		if before.HoldsSeats() {
			if err := s.seats.Release(sessCtx, before.EventID, before.SelectedMonth, before.SelectedYear, before.Seats()); err != nil {
				return err
			}
		}
		if before.PromoCode != "" && before.PaymentInfo.PaymentStatus != model.PaymentSuccess {
			return s.promos.ReleaseUsage(sessCtx, before.BookingID)
		}
		return nil
	})
	if err != nil {
		return nil, s.mapTransitionError(err, b.BookingID, "Failed to cancel booking")
	}

	cancelled := applyChange(before, change)
	s.cfg.Log.Info("Booking cancelled",
		"booking_id", cancelled.BookingID,
		"from", before.Status,
		"cancelled_by", change.Actor,
		"reason", change.Reason,
	)
	s.publish(ctx, model.EventBookingCancelled, cancelled, change.Actor, change.Reason)
	return cancelled, nil
}

func (s *bookingService) Complete(ctx context.Context, identity auth.Identity, bookingID string) (*model.Booking, error) {
	if !identity.IsStaff() {
		return nil, apperrors.Forbidden("Only staff can complete bookings")
	}
	b, err := s.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.Check(b.Status, lifecycle.Complete); err != nil {
		return nil, apperrors.Conflict(err.Error())
	}

	change := repository.StatusChange{
		From:  lifecycle.Sources(lifecycle.Complete),
		To:    lifecycle.Target(lifecycle.Complete),
		Actor: identity.UserID,
		At:    s.now(),
	}
	before, err := s.repo.Transition(ctx, bookingID, change)
	if err != nil {
		return nil, s.mapTransitionError(err, bookingID, "Failed to complete booking")
	}

	completed := applyChange(before, change)
	s.cfg.Log.Info("Booking completed", "booking_id", bookingID, "actor", identity.UserID)
	s.publish(ctx, model.EventBookingCompleted, completed, identity.UserID, "")
	return completed, nil
}

func (s *bookingService) Refund(ctx context.Context, identity auth.Identity, bookingID string) (*model.Booking, error) {
	if !identity.IsStaff() {
		return nil, apperrors.Forbidden("Only staff can refund bookings")
	}
	b, err := s.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.Check(b.Status, lifecycle.Refund); err != nil {
		return nil, apperrors.Conflict(err.Error())
	}
	if b.PaymentInfo.PaymentStatus != model.PaymentSuccess {
		return nil, apperrors.Conflict("Only paid bookings can be refunded")
	}

	change := repository.StatusChange{
		From:       lifecycle.Sources(lifecycle.Refund),
		To:         lifecycle.Target(lifecycle.Refund),
		PaymentIn:  []model.PaymentStatus{model.PaymentSuccess},
		SetPayment: model.PaymentRefunded,
		Actor:      identity.UserID,
		At:         s.now(),
	}

	var before *model.Booking
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		var err error
		before, err = s.repo.Transition(sessCtx, bookingID, change)
		if err != nil {
			return err
		}
		if before.HoldsSeats() {
			return s.seats.Release(sessCtx, before.EventID, before.SelectedMonth, before.SelectedYear, before.Seats())
		}
		return nil
	})
	if err != nil {
		return nil, s.mapTransitionError(err, bookingID, "Failed to refund booking")
	}

	refunded := applyChange(before, change)
	s.cfg.Log.Info("Booking refunded", "booking_id", bookingID, "from", before.Status, "actor", identity.UserID)
	s.publish(ctx, model.EventBookingRefunded, refunded, identity.UserID, "")
	return refunded, nil
}

func (s *bookingService) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	stale, err := s.repo.FindStalePending(ctx, cutoff, staleBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale bookings: %w", err)
	}

	reason := fmt.Sprintf("Payment not completed within %s", olderThan)
	expired := 0
	for _, b := range stale {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		_, err := s.cancel(ctx, b, repository.StatusChange{
			From:       []model.BookingStatus{model.BookingPending},
			PaymentNot: model.PaymentSuccess,
			Actor:      model.SystemActor,
			Reason:     reason,
		})
		if err != nil {
			s.cfg.Log.Warn("Failed to expire stale booking", "booking_id", b.BookingID, "error", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		s.cfg.Log.Info("Expired stale bookings", "count", expired, "cutoff", cutoff)
	}
	return expired, nil
}

func (s *bookingService) find(ctx context.Context, bookingID string) (*model.Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	b, err := s.repo.FindByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", bookingID)
		}
		s.cfg.Log.Error("Failed to retrieve booking", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return b, nil
}

func (s *bookingService) mapTransitionError(err error, bookingID, message string) error {
	if errors.Is(err, bookingserrors.ErrStatusChanged) {
		return apperrors.Conflict("Booking " + bookingID + " was modified concurrently, please retry")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	s.cfg.Log.Error(message, "booking_id", bookingID, "error", err)
	return apperrors.Internal(message, err)
}

// publish is best effort: the booking is already committed.
func (s *bookingService) publish(ctx context.Context, eventType string, b *model.Booking, actor, reason string) {
	if err := s.publisher.Publish(ctx, model.NewBookingEvent(eventType, b, actor, reason)); err != nil {
		s.cfg.Log.Error("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", b.BookingID,
			"error", err,
		)
	}
}

func authorize(identity auth.Identity, b *model.Booking) error {
	if identity.IsStaff() || b.UserID == identity.UserID {
		return nil
	}
	return apperrors.Forbidden("You do not have access to this booking")
}

// applyChange renders the booking as the transition left it.
func applyChange(before *model.Booking, change repository.StatusChange) *model.Booking {
	after := *before
	at := change.At.UTC().Truncate(time.Millisecond)
	after.Status = change.To
	after.UpdatedAt = at
	switch change.To {
	case model.BookingCancelled:
		after.CancelledAt = &at
		after.CancelledBy = change.Actor
		after.CancellationReason = change.Reason
	case model.BookingCompleted:
		after.CompletedAt = &at
	case model.BookingRefunded:
		after.RefundedAt = &at
	}
	if change.SetPayment != "" {
		after.PaymentInfo.PaymentStatus = change.SetPayment
	}
	return &after
}

func validationError(err error) error {
	var verrs model.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Booking validation failed", verrs.Details())
	}
	return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
}

func sanitizeRequest(req *model.CreateBookingRequest) {
	req.EventID = strings.TrimSpace(req.EventID)
	req.SelectedDate = strings.TrimSpace(req.SelectedDate)
	req.SpecialRequests = sanitizer.NormalizeText(req.SpecialRequests)
	req.PromoCode = sanitizer.NormalizeCode(req.PromoCode)
	if month := sanitizer.NormalizeMonth(req.SelectedMonth); month != "" {
		req.SelectedMonth = month
	}
	for i := range req.Participants {
		p := &req.Participants[i]
		p.Name = sanitizer.NormalizeName(p.Name)
		p.Email = sanitizer.NormalizeEmail(p.Email)
		p.Phone = sanitizer.NormalizePhone(p.Phone)
		p.EmergencyContact.Name = sanitizer.NormalizeName(p.EmergencyContact.Name)
		p.EmergencyContact.Phone = sanitizer.NormalizePhone(p.EmergencyContact.Phone)
		p.EmergencyContact.Relation = sanitizer.NormalizeLabel(p.EmergencyContact.Relation)
	}
}
