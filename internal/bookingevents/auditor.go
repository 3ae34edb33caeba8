package bookingevents

import (
	"context"

	inventory "trekkr/internal/inventory/service"
	"trekkr/pkg/kafka"
	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

// LedgerRecounter repairs a bucket's reserved counter from the bookings.
type LedgerRecounter interface {
	Recount(ctx context.Context, eventID, month string, year int) (*inventory.RecountResult, error)
}

// Auditor recounts the seat ledger of every bucket a lifecycle event touches
// and reports drift between the counter and the bookings.
type Auditor struct {
	ledger LedgerRecounter
	log    *logger.Logger
}

func NewAuditor(ledger LedgerRecounter, log *logger.Logger) *Auditor {
	return &Auditor{ledger: ledger, log: log.Component("ledger_auditor")}
}

// Handle is a kafka.MessageHandler. Undecodable payloads are permanent
// failures; storage errors are retried.
func (a *Auditor) Handle(ctx context.Context, msg kafka.Message) error {
	var evt model.BookingEvent
	if err := msg.DecodeValue(&evt); err != nil {
		return kafka.NewPermanentError("undecodable booking event", err)
	}
	if evt.EventID == "" || evt.SelectedMonth == "" || evt.SelectedYear == 0 {
		return kafka.NewPermanentError("booking event without a seat bucket", nil)
	}

	result, err := a.ledger.Recount(ctx, evt.EventID, evt.SelectedMonth, evt.SelectedYear)
	if err != nil {
		return kafka.NewTransientError("seat ledger recount failed", err)
	}

	a.log.Info("Booking event audited",
		"ledger_id", result.LedgerID,
		"booking_id", evt.BookingID,
		"event_type", evt.Type,
		"ledger_exists", result.Exists,
		"reserved", result.After,
		"drift", result.Drift(),
	)
	return nil
}
