package bookingevents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventory "trekkr/internal/inventory/service"
	"trekkr/pkg/kafka"
	"trekkr/pkg/logger"
	"trekkr/pkg/model"
)

type recordingProducer struct {
	messages []kafka.Message
}

func (p *recordingProducer) Publish(_ context.Context, msg kafka.Message) error {
	p.messages = append(p.messages, msg)
	return nil
}

func TestKafkaPublisher_KeysByBookingID(t *testing.T) {
	producer := &recordingProducer{}
	publisher := &KafkaPublisher{producer: producer}

	b := &model.Booking{
		BookingID:     "TRVLX2K9Q0A1B2",
		EventID:       "507f1f77bcf86cd799439011",
		SelectedMonth: "June",
		SelectedYear:  2025,
		Participants:  make([]model.Participant, 3),
		Status:        model.BookingPending,
	}
	require.NoError(t, publisher.Publish(context.Background(), model.NewBookingEvent(model.EventBookingCreated, b, "user-1", "")))

	require.Len(t, producer.messages, 1)
	msg := producer.messages[0]
	assert.Equal(t, "TRVLX2K9Q0A1B2", msg.Key)
	assert.Equal(t, model.EventBookingCreated, msg.GetEventType())
	assert.Equal(t, Source, msg.Headers[kafka.HeaderSource])

	var decoded model.BookingEvent
	require.NoError(t, msg.DecodeValue(&decoded))
	assert.Equal(t, 3, decoded.Seats)
	assert.Equal(t, "June", decoded.SelectedMonth)
}

type mockRecounter struct {
	recountFunc func(ctx context.Context, eventID, month string, year int) (*inventory.RecountResult, error)
	calls       int
}

func (m *mockRecounter) Recount(ctx context.Context, eventID, month string, year int) (*inventory.RecountResult, error) {
	m.calls++
	return m.recountFunc(ctx, eventID, month, year)
}

func eventMessage(t *testing.T, evt model.BookingEvent) kafka.Message {
	msg, err := kafka.NewMessage().WithKey(evt.BookingID).WithValue(evt).WithEventType(evt.Type).Build()
	require.NoError(t, err)
	return msg
}

func TestAuditor_Handle(t *testing.T) {
	valid := model.BookingEvent{
		Type:          model.EventBookingCancelled,
		BookingID:     "TRVLX2K9Q0A1B2",
		EventID:       "507f1f77bcf86cd799439011",
		SelectedMonth: "June",
		SelectedYear:  2025,
	}

	tests := []struct {
		name          string
		msg           func(t *testing.T) kafka.Message
		recountErr    error
		wantErrType   kafka.ErrorType
		wantRecounted bool
	}{
		{
			name:          "recounts the bucket",
			msg:           func(t *testing.T) kafka.Message { return eventMessage(t, valid) },
			wantRecounted: true,
		},
		{
			name: "garbage payload",
			msg: func(t *testing.T) kafka.Message {
				return kafka.Message{Key: "k", Value: []byte("{not json"), Headers: map[string]string{}}
			},
			wantErrType: kafka.ErrorTypePermanent,
		},
		{
			name: "missing bucket",
			msg: func(t *testing.T) kafka.Message {
				evt := valid
				evt.SelectedMonth = ""
				return eventMessage(t, evt)
			},
			wantErrType: kafka.ErrorTypePermanent,
		},
		{
			name:          "storage failure is retried",
			msg:           func(t *testing.T) kafka.Message { return eventMessage(t, valid) },
			recountErr:    errors.New("server selection error"),
			wantErrType:   kafka.ErrorTypeTransient,
			wantRecounted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recounter := &mockRecounter{
				recountFunc: func(ctx context.Context, eventID, month string, year int) (*inventory.RecountResult, error) {
					assert.Equal(t, valid.EventID, eventID)
					assert.Equal(t, "June", month)
					assert.Equal(t, 2025, year)
					if tt.recountErr != nil {
						return nil, tt.recountErr
					}
					return &inventory.RecountResult{LedgerID: "x", Exists: true, Before: 5, After: 3}, nil
				},
			}
			auditor := NewAuditor(recounter, logger.Discard())

			err := auditor.Handle(context.Background(), tt.msg(t))
			assert.Equal(t, tt.wantRecounted, recounter.calls == 1)
			if tt.wantErrType == kafka.ErrorTypeUnknown {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErrType, kafka.ClassifyError(err))
		})
	}
}
