package service

import (
	"context"
	"errors"
	"fmt"

	inventoryerrors "trekkr/internal/inventory/errors"
	"trekkr/internal/inventory/repository"
	"trekkr/pkg/config"
	apperrors "trekkr/pkg/errors"
	"trekkr/pkg/model"
	"trekkr/pkg/sanitizer"
)

// InventoryService owns the per-bucket seat counters. Every method accepts a
// mongo.SessionContext so reservations commit or roll back with the booking.
type InventoryService interface {
	CheckAndReserve(ctx context.Context, event *model.Event, month string, year, day, seats int) (*model.SeatLedger, error)
	Release(ctx context.Context, eventID, month string, year, seats int) error
	Availability(ctx context.Context, event *model.Event, month string, year int) (*model.Availability, error)
	Recount(ctx context.Context, eventID, month string, year int) (*RecountResult, error)
}

const maxRecountAttempts = 5

type RecountResult struct {
	LedgerID string `json:"ledger_id"`
	Exists   bool   `json:"exists"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
}

func (r *RecountResult) Drift() int {
	return r.After - r.Before
}

type inventoryService struct {
	repo repository.LedgerRepository
	cfg  *config.Config
}

func NewInventoryService(repo repository.LedgerRepository, cfg *config.Config) InventoryService {
	return &inventoryService{
		repo: repo,
		cfg:  cfg,
	}
}

// resolveBucket finds the event's departure bucket for month and year and
// checks day when it is positive.
func resolveBucket(event *model.Event, month string, year, day int) (model.AvailableDate, error) {
	bucket, ok := event.FindDate(month, year)
	if !ok {
		name := sanitizer.NormalizeMonth(month)
		if name == "" {
			name = month
		}
		return bucket, &inventoryerrors.DateError{Message: fmt.Sprintf("%s %d is not available for this event", name, year)}
	}
	if day > 0 && !bucket.HasDay(day) {
		return bucket, &inventoryerrors.DateError{Message: fmt.Sprintf("%s %d, %d is not a departure date for this event", bucket.Month, day, year)}
	}
	return bucket, nil
}

func (s *inventoryService) CheckAndReserve(ctx context.Context, event *model.Event, month string, year, day, seats int) (*model.SeatLedger, error) {
	if seats < 1 {
		return nil, apperrors.Validation("At least one seat must be requested", map[string]any{"requested": seats})
	}

	bucket, err := resolveBucket(event, month, year, day)
	if err != nil {
		return nil, apperrors.DateUnavailable(err.Error())
	}

	ledger := &model.SeatLedger{
		ID:       model.SeatLedgerID(event.ID, bucket.Month, bucket.Year),
		EventID:  event.ID,
		Month:    bucket.Month,
		Year:     bucket.Year,
		Capacity: bucket.Capacity(event.MaxParticipants),
	}
	seed := func(ctx context.Context) (int, error) {
		return s.repo.CountReserved(ctx, event.ID, bucket.Month, bucket.Year)
	}
	if err := s.repo.Ensure(ctx, ledger, seed); err != nil {
		s.cfg.Log.Error("Failed to prepare seat ledger", "ledger_id", ledger.ID, "error", err)
		return nil, apperrors.Internal("Failed to check seat availability", err)
	}

	updated, ok, err := s.repo.Reserve(ctx, ledger.ID, seats)
	if err != nil {
		s.cfg.Log.Error("Failed to reserve seats", "ledger_id", ledger.ID, "seats", seats, "error", err)
		return nil, apperrors.Internal("Failed to reserve seats", err)
	}
	if !ok {
		capErr := &inventoryerrors.CapacityError{
			Remaining: updated.Remaining(),
			Requested: seats,
			Month:     bucket.Month,
			Year:      bucket.Year,
		}
		s.cfg.Log.Warn("Seat capacity exceeded",
			"ledger_id", ledger.ID,
			"capacity", updated.Capacity,
			"reserved", updated.Reserved,
			"requested", seats,
		)
		return nil, apperrors.CapacityExceeded(capErr.Error(), capErr.Remaining, capErr.Requested)
	}

	s.cfg.Log.Debug("Seats reserved", "ledger_id", ledger.ID, "seats", seats, "reserved", updated.Reserved)
	return updated, nil
}

func (s *inventoryService) Release(ctx context.Context, eventID, month string, year, seats int) error {
	if seats < 1 {
		return nil
	}

	id := model.SeatLedgerID(eventID, month, year)
	err := s.repo.Release(ctx, id, seats)
	if err == nil {
		return nil
	}
	if errors.Is(err, inventoryerrors.ErrInsufficientReserved) {
		// Never go negative. The auditor's recount repairs the counter.
		s.cfg.Log.Warn("Seat ledger drift on release", "ledger_id", id, "seats", seats)
		return nil
	}
	s.cfg.Log.Error("Failed to release seats", "ledger_id", id, "seats", seats, "error", err)
	return apperrors.Internal("Failed to release seats", err)
}

func (s *inventoryService) Availability(ctx context.Context, event *model.Event, month string, year int) (*model.Availability, error) {
	bucket, err := resolveBucket(event, month, year, 0)
	if err != nil {
		return nil, apperrors.DateUnavailable(err.Error())
	}

	capacity := bucket.Capacity(event.MaxParticipants)
	var reserved int

	ledger, err := s.repo.FindByID(ctx, model.SeatLedgerID(event.ID, bucket.Month, bucket.Year))
	switch {
	case err == nil:
		reserved = ledger.Reserved
	case errors.Is(err, inventoryerrors.ErrLedgerNotFound):
		reserved, err = s.repo.CountReserved(ctx, event.ID, bucket.Month, bucket.Year)
		if err != nil {
			s.cfg.Log.Error("Failed to count reserved seats", "event_id", event.ID, "error", err)
			return nil, apperrors.Internal("Failed to read seat availability", err)
		}
	default:
		s.cfg.Log.Error("Failed to read seat ledger", "event_id", event.ID, "error", err)
		return nil, apperrors.Internal("Failed to read seat availability", err)
	}

	return &model.Availability{
		EventID:   event.ID,
		Month:     bucket.Month,
		Year:      bucket.Year,
		Days:      bucket.Days,
		Capacity:  capacity,
		Reserved:  reserved,
		Remaining: max(capacity-reserved, 0),
	}, nil
}

// Recount replaces a bucket's reserved counter with the seats held by live
// bookings. The overwrite only lands if the counter did not move while the
// bookings were counted; otherwise the count is stale and is taken again.
func (s *inventoryService) Recount(ctx context.Context, eventID, month string, year int) (*RecountResult, error) {
	id := model.SeatLedgerID(eventID, month, year)

	for attempt := 1; attempt <= maxRecountAttempts; attempt++ {
		ledger, err := s.repo.FindByID(ctx, id)
		if errors.Is(err, inventoryerrors.ErrLedgerNotFound) {
			counted, err := s.repo.CountReserved(ctx, eventID, month, year)
			if err != nil {
				return nil, fmt.Errorf("failed to recount %s: %w", id, err)
			}
			return &RecountResult{LedgerID: id, After: counted}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", id, err)
		}

		counted, err := s.repo.CountReserved(ctx, eventID, month, year)
		if err != nil {
			return nil, fmt.Errorf("failed to recount %s: %w", id, err)
		}

		if counted != ledger.Reserved {
			err = s.repo.SetReserved(ctx, id, ledger.Reserved, counted)
			if errors.Is(err, inventoryerrors.ErrLedgerChanged) {
				s.cfg.Log.Debug("Seat ledger moved during recount", "ledger_id", id, "attempt", attempt)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to repair %s: %w", id, err)
			}
		}

		result := &RecountResult{LedgerID: id, Exists: true, Before: ledger.Reserved, After: counted}
		if result.Drift() != 0 {
			s.cfg.Log.Warn("Seat ledger drift repaired",
				"ledger_id", id,
				"before", result.Before,
				"after", result.After,
				"drift", result.Drift(),
			)
		}
		return result, nil
	}

	return nil, fmt.Errorf("failed to repair %s after %d attempts: %w", id, maxRecountAttempts, inventoryerrors.ErrLedgerChanged)
}
