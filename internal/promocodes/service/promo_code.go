package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trekkr/internal/promocodes/discount"
	promoerrors "trekkr/internal/promocodes/errors"
	"trekkr/internal/promocodes/repository"
	"trekkr/internal/promocodes/validator"
	"trekkr/pkg/config"
	apperrors "trekkr/pkg/errors"
	"trekkr/pkg/model"
	"trekkr/pkg/money"
	"trekkr/pkg/sanitizer"
)

// Evaluation is a promo code that passed every rule for a cart.
type Evaluation struct {
	Promo          *model.PromoCode
	CartAmount     decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
}

type PromoCodeService interface {
	Evaluate(ctx context.Context, code, eventID, userID string, cart decimal.Decimal) (*Evaluation, error)
	EvaluateForEvent(ctx context.Context, code string, event *model.Event, userID string, cart decimal.Decimal) (*Evaluation, error)
	// RecordUsage must run inside the booking's transaction.
	RecordUsage(ctx context.Context, eval *Evaluation, userID, bookingID string) error
	// ReleaseUsage undoes RecordUsage for a booking. A booking without a usage row is a no-op.
	ReleaseUsage(ctx context.Context, bookingID string) error

	Create(ctx context.Context, p *model.PromoCode) error
	GetByID(ctx context.Context, id string) (*model.PromoCode, error)
	GetAll(ctx context.Context, filter model.PromoCodeFilter, limit int, offset int64) ([]*model.PromoCode, int64, error)
	Update(ctx context.Context, id string, updates *model.PromoCodeUpdate) (*model.PromoCode, error)
	Deactivate(ctx context.Context, id string) error
}

// EventLookup resolves the event a promo code is evaluated against.
type EventLookup interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

type promoCodeService struct {
	repo      repository.PromoCodeRepository
	validator *validator.PromoCodeValidator
	events    EventLookup
	cfg       *config.Config
	now       func() time.Time
}

func NewPromoCodeService(
	repo repository.PromoCodeRepository,
	validator *validator.PromoCodeValidator,
	events EventLookup,
	cfg *config.Config,
) PromoCodeService {
	return &promoCodeService{
		repo:      repo,
		validator: validator,
		events:    events,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *promoCodeService) Evaluate(ctx context.Context, code, eventID, userID string, cart decimal.Decimal) (*Evaluation, error) {
	if eventID == "" {
		return nil, apperrors.InvalidInput("Event ID cannot be empty")
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.EvaluateForEvent(ctx, code, event, userID, cart)
}

func (s *promoCodeService) EvaluateForEvent(ctx context.Context, code string, event *model.Event, userID string, cart decimal.Decimal) (*Evaluation, error) {
	code = sanitizer.NormalizeCode(code)
	if code == "" {
		return nil, promoInvalid(discount.Fail(discount.ReasonInvalidCode))
	}
	if cart.IsNegative() {
		return nil, apperrors.InvalidInput("Order amount cannot be negative")
	}

	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, promoerrors.ErrNotFound) {
		s.cfg.Log.Error("Failed to load promo code", "code", code, "error", err)
		return nil, apperrors.Internal("Failed to evaluate promo code", err)
	}

	var usages int
	if promo != nil && promo.UserUsageLimit != nil && userID != "" {
		usages, err = s.repo.CountUserUsage(ctx, code, userID)
		if err != nil {
			s.cfg.Log.Error("Failed to count promo code usage", "code", code, "user_id", userID, "error", err)
			return nil, apperrors.Internal("Failed to evaluate promo code", err)
		}
	}

	result, err := discount.Evaluate(promo, discount.Input{
		EventID:       event.ID,
		EventCategory: event.Category,
		UserID:        userID,
		CartAmount:    cart,
		UserUsages:    usages,
		Now:           s.now(),
	})
	if err != nil {
		s.cfg.Log.Warn("Promo code rejected", "code", code, "event_id", event.ID, "user_id", userID, "error", err)
		return nil, promoInvalid(err)
	}

	return &Evaluation{
		Promo:          promo,
		CartAmount:     money.Round(cart),
		DiscountAmount: result.DiscountAmount,
		FinalAmount:    result.FinalAmount,
	}, nil
}

func (s *promoCodeService) RecordUsage(ctx context.Context, eval *Evaluation, userID, bookingID string) error {
	promo := eval.Promo

	if promo.UserUsageLimit != nil {
		usages, err := s.repo.CountUserUsage(ctx, promo.Code, userID)
		if err != nil {
			return apperrors.Internal("Failed to record promo code usage", err)
		}
		if usages >= *promo.UserUsageLimit {
			return promoInvalid(discount.Fail(discount.ReasonUserLimitReached))
		}
	}

	if err := s.repo.IncrementUsage(ctx, promo.ID); err != nil {
		if errors.Is(err, promoerrors.ErrUsageLimitReached) {
			s.cfg.Log.Warn("Promo code usage limit reached at redemption", "code", promo.Code, "booking_id", bookingID)
			return promoInvalid(discount.Fail(discount.ReasonUsageLimitReached))
		}
		return apperrors.Internal("Failed to record promo code usage", err)
	}

	usage := &model.PromoCodeUsage{
		PromoCodeID:    promo.ID,
		Code:           promo.Code,
		UserID:         userID,
		BookingID:      bookingID,
		OriginalAmount: money.Float(eval.CartAmount),
		DiscountAmount: money.Float(eval.DiscountAmount),
		FinalAmount:    money.Float(eval.FinalAmount),
		UsedAt:         s.now().UTC(),
	}
	if err := s.repo.InsertUsage(ctx, usage); err != nil {
		if errors.Is(err, promoerrors.ErrUsageExists) {
			return apperrors.Conflict("Promo code was already applied to this booking")
		}
		return apperrors.Internal("Failed to record promo code usage", err)
	}
	return nil
}

func (s *promoCodeService) ReleaseUsage(ctx context.Context, bookingID string) error {
	usage, err := s.repo.FindUsageByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, promoerrors.ErrUsageNotFound) {
			return nil
		}
		return apperrors.Internal("Failed to release promo code usage", err)
	}

	if err := s.repo.DeleteUsageByBooking(ctx, bookingID); err != nil {
		if errors.Is(err, promoerrors.ErrUsageNotFound) {
			return nil
		}
		return apperrors.Internal("Failed to release promo code usage", err)
	}
	if err := s.repo.DecrementUsage(ctx, usage.PromoCodeID); err != nil {
		return apperrors.Internal("Failed to release promo code usage", err)
	}

	s.cfg.Log.Info("Promo code usage released", "code", usage.Code, "booking_id", bookingID)
	return nil
}

func (s *promoCodeService) Create(ctx context.Context, p *model.PromoCode) error {
	p.ID = ""
	p.UsageCount = 0
	sanitize(p)

	if err := s.validator.Validate(p); err != nil {
		s.cfg.Log.Warn("Promo code validation failed", "code", p.Code, "error", err)
		return validationError(err)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, promoerrors.ErrDuplicateCode) {
			return apperrors.Conflict("Promo code " + p.Code + " already exists")
		}
		s.cfg.Log.Error("Failed to create promo code", "code", p.Code, "error", err)
		return apperrors.Internal("Failed to create promo code", err)
	}

	s.cfg.Log.Info("Promo code created successfully", "id", p.ID, "code", p.Code)
	return nil
}

func (s *promoCodeService) GetByID(ctx context.Context, id string) (*model.PromoCode, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Promo code ID cannot be empty")
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to retrieve promo code")
	}
	return p, nil
}

func (s *promoCodeService) GetAll(ctx context.Context, filter model.PromoCodeFilter, limit int, offset int64) ([]*model.PromoCode, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	sharedCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var count int64
	var promos []*model.PromoCode
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(sharedCtx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count promo codes", "error", err)
			errCount = apperrors.Internal("Failed to count promo codes", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		promos, err = s.repo.FindAll(sharedCtx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get promo codes", "limit", limit, "offset", offset, "error", err)
			errFind = apperrors.Internal("Failed to retrieve promo codes", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return promos, count, nil
}

func (s *promoCodeService) Update(ctx context.Context, id string, updates *model.PromoCodeUpdate) (*model.PromoCode, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Promo code ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to check promo code existence")
	}

	merged := mergePromoCodeUpdates(existing, updates)
	sanitize(merged)
	if err := s.validator.Validate(merged); err != nil {
		s.cfg.Log.Warn("Promo code validation failed", "id", id, "error", err)
		return nil, validationError(err)
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		return nil, s.mapRepoError(err, id, "Failed to update promo code")
	}

	s.cfg.Log.Info("Promo code updated successfully", "id", id, "code", merged.Code)
	return merged, nil
}

func (s *promoCodeService) Deactivate(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Promo code ID cannot be empty")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return s.mapRepoError(err, id, "Failed to deactivate promo code")
	}
	s.cfg.Log.Info("Promo code deactivated", "id", id)
	return nil
}

func (s *promoCodeService) mapRepoError(err error, id, message string) error {
	if errors.Is(err, promoerrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Promo code", id)
	}
	if errors.Is(err, promoerrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid promo code ID format")
	}
	s.cfg.Log.Error(message, "id", id, "error", err)
	return apperrors.Internal(message, err)
}

func promoInvalid(err error) error {
	var ruleErr *discount.RuleError
	if errors.As(err, &ruleErr) {
		return apperrors.PromoInvalid(string(ruleErr.Reason), ruleErr.Message)
	}
	return apperrors.PromoInvalid(string(discount.ReasonInvalidCode), err.Error())
}

func validationError(err error) error {
	var verrs model.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Promo code validation failed", verrs.Details())
	}
	return apperrors.Validation("Promo code validation failed", map[string]any{"error": err.Error()})
}

func sanitize(p *model.PromoCode) {
	p.Code = sanitizer.NormalizeCode(p.Code)
	p.Description = sanitizer.NormalizeText(p.Description)
	p.ApplicableEvents = sanitizer.NormalizeIDs(p.ApplicableEvents)
	p.ExcludedEvents = sanitizer.NormalizeIDs(p.ExcludedEvents)
	p.ApplicableCategories = sanitizer.NormalizeLabels(p.ApplicableCategories)
	p.TargetUsers = sanitizer.NormalizeStringSlice(p.TargetUsers, sanitizer.TrimAndNormalize)
}

func mergePromoCodeUpdates(existing *model.PromoCode, updates *model.PromoCodeUpdate) *model.PromoCode {
	merged := *existing

	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.Value != nil {
		merged.Value = *updates.Value
	}
	if updates.MinOrderAmount != nil {
		merged.MinOrderAmount = updates.MinOrderAmount
	}
	if updates.MaxDiscountAmount != nil {
		merged.MaxDiscountAmount = updates.MaxDiscountAmount
	}
	if updates.UsageLimit != nil {
		merged.UsageLimit = updates.UsageLimit
	}
	if updates.UserUsageLimit != nil {
		merged.UserUsageLimit = updates.UserUsageLimit
	}
	if updates.ValidFrom != nil {
		merged.ValidFrom = *updates.ValidFrom
	}
	if updates.ValidUntil != nil {
		merged.ValidUntil = *updates.ValidUntil
	}
	if updates.ApplicableEvents != nil {
		merged.ApplicableEvents = *updates.ApplicableEvents
	}
	if updates.ApplicableCategories != nil {
		merged.ApplicableCategories = *updates.ApplicableCategories
	}
	if updates.ExcludedEvents != nil {
		merged.ExcludedEvents = *updates.ExcludedEvents
	}
	if updates.IsPublic != nil {
		merged.IsPublic = *updates.IsPublic
	}
	if updates.TargetUsers != nil {
		merged.TargetUsers = *updates.TargetUsers
	}
	if updates.IsActive != nil {
		merged.IsActive = *updates.IsActive
	}

	merged.ID = existing.ID
	merged.Code = existing.Code
	merged.UsageCount = existing.UsageCount
	merged.CreatedAt = existing.CreatedAt
	return &merged
}
