package service

import (
	"context"
	"errors"
	"sync"

	eventserrors "trekkr/internal/events/errors"
	"trekkr/internal/events/repository"
	"trekkr/internal/events/validator"
	"trekkr/pkg/config"
	apperrors "trekkr/pkg/errors"
	"trekkr/pkg/model"
	"trekkr/pkg/sanitizer"
)

type EventService interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetAll(ctx context.Context, filter model.EventFilter, limit int, offset int64) ([]*model.Event, int64, error)
	Update(ctx context.Context, id string, updates *model.EventUpdate) (*model.Event, error)
	Availability(ctx context.Context, id, month string, year int) (*model.Availability, error)
}

// SeatCounter reports the live seat usage of a bucket.
type SeatCounter interface {
	Availability(ctx context.Context, event *model.Event, month string, year int) (*model.Availability, error)
}

type eventService struct {
	repo      repository.EventRepository
	validator *validator.EventValidator
	seats     SeatCounter
	cfg       *config.Config
}

func NewEventService(
	repo repository.EventRepository,
	validator *validator.EventValidator,
	seats SeatCounter,
	cfg *config.Config,
) EventService {
	return &eventService{
		repo:      repo,
		validator: validator,
		seats:     seats,
		cfg:       cfg,
	}
}

func (s *eventService) Create(ctx context.Context, e *model.Event) error {
	e.ID = ""
	s.sanitize(e)

	if err := s.validator.Validate(e); err != nil {
		s.cfg.Log.Warn("Event validation failed", "title", e.Title, "error", err)
		return validationError(err)
	}

	if err := s.repo.Create(ctx, e); err != nil {
		s.cfg.Log.Error("Failed to create event", "title", e.Title, "error", err)
		return apperrors.Internal("Failed to create event", err)
	}

	s.cfg.Log.Info("Event created successfully", "id", e.ID, "title", e.Title, "buckets", len(e.AvailableDates))
	return nil
}

func (s *eventService) GetByID(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Event ID cannot be empty")
	}

	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to retrieve event")
	}
	return e, nil
}

func (s *eventService) GetAll(ctx context.Context, filter model.EventFilter, limit int, offset int64) ([]*model.Event, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)
	filter.Category = sanitizer.NormalizeLabel(filter.Category)

	sharedCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var count int64
	var events []*model.Event
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(sharedCtx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count events", "error", err)
			errCount = apperrors.Internal("Failed to count events", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		events, err = s.repo.FindAll(sharedCtx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get events", "limit", limit, "offset", offset, "error", err)
			errFind = apperrors.Internal("Failed to retrieve events", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return events, count, nil
}

func (s *eventService) Update(ctx context.Context, id string, updates *model.EventUpdate) (*model.Event, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Event ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to check event existence")
	}

	merged := mergeEventUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validator.Validate(merged); err != nil {
		s.cfg.Log.Warn("Event validation failed", "id", id, "error", err)
		return nil, validationError(err)
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		return nil, s.mapRepoError(err, id, "Failed to update event")
	}

	s.cfg.Log.Info("Event updated successfully", "id", id, "title", merged.Title)
	return merged, nil
}

func (s *eventService) Availability(ctx context.Context, id, month string, year int) (*model.Availability, error) {
	canonical := sanitizer.NormalizeMonth(month)
	if canonical == "" {
		return nil, apperrors.InvalidInput("month must be a month name")
	}
	if year < 2000 || year > 2100 {
		return nil, apperrors.InvalidInput("year is out of range")
	}

	e, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.seats.Availability(ctx, e, canonical, year)
}

func (s *eventService) mapRepoError(err error, id, message string) error {
	if errors.Is(err, eventserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Event", id)
	}
	if errors.Is(err, eventserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid event ID format")
	}
	s.cfg.Log.Error(message, "id", id, "error", err)
	return apperrors.Internal(message, err)
}

func validationError(err error) error {
	var verrs model.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Event validation failed", verrs.Details())
	}
	return apperrors.Validation("Event validation failed", map[string]any{"error": err.Error()})
}

func (s *eventService) sanitize(e *model.Event) {
	e.Title = sanitizer.NormalizeName(e.Title)
	e.Description = sanitizer.NormalizeText(e.Description)
	e.Category = sanitizer.NormalizeLabel(e.Category)
	e.Location = sanitizer.TrimAndNormalize(e.Location)
	e.ImageURLs = sanitizer.NormalizeStringSlice(e.ImageURLs, sanitizer.NormalizeURL)
	for i := range e.AvailableDates {
		if month := sanitizer.NormalizeMonth(e.AvailableDates[i].Month); month != "" {
			e.AvailableDates[i].Month = month
		}
	}
}

func mergeEventUpdates(existing *model.Event, updates *model.EventUpdate) *model.Event {
	merged := *existing

	if updates.Title != nil {
		merged.Title = *updates.Title
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.Category != nil {
		merged.Category = *updates.Category
	}
	if updates.Location != nil {
		merged.Location = *updates.Location
	}
	if updates.Price != nil {
		merged.Price = *updates.Price
	}
	if updates.MaxParticipants != nil {
		merged.MaxParticipants = *updates.MaxParticipants
	}
	if updates.AvailableDates != nil {
		merged.AvailableDates = append([]model.AvailableDate(nil), (*updates.AvailableDates)...)
	}
	if updates.ImageURLs != nil {
		merged.ImageURLs = *updates.ImageURLs
	}
	if updates.TimeZone != nil {
		merged.TimeZone = *updates.TimeZone
	}
	if updates.IsActive != nil {
		merged.IsActive = *updates.IsActive
	}

	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt
	return &merged
}
