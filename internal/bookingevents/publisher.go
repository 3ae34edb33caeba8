// Package bookingevents carries booking lifecycle events over Kafka: the
// API publishes them and the ledger auditor consumes them.
package bookingevents

import (
	"context"

	"trekkr/pkg/kafka"
	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

const (
	Source        = "trekkr-api"
	SchemaVersion = "1"
)

// Publisher delivers lifecycle events. Callers treat delivery as best effort.
type Publisher interface {
	Publish(ctx context.Context, evt model.BookingEvent) error
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer messagePublisher
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish keys the message by booking id so every event of a booking lands
// on the same partition in order.
func (p *KafkaPublisher) Publish(ctx context.Context, evt model.BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(evt.BookingID).
		WithValue(evt).
		WithEventType(evt.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

// LogPublisher stands in when Kafka is disabled.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.Component("booking_events")}
}

func (p *LogPublisher) Publish(_ context.Context, evt model.BookingEvent) error {
	p.log.Info("Booking event",
		"type", evt.Type,
		"booking_id", evt.BookingID,
		"status", evt.Status,
		"payment_status", evt.PaymentStatus,
	)
	return nil
}
