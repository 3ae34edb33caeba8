package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trekkr/pkg/logger"
)

type fakeWriter struct {
	mu     sync.Mutex
	err    error
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestMessageBuilder_Build(t *testing.T) {
	msg, err := NewMessage().
		WithKey("TRVABC").
		WithValue(map[string]any{"bookingId": "TRVABC"}).
		WithEventType("booking.created").
		WithCorrelationID("req-1").
		WithSource("api").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "TRVABC", msg.Key)
	assert.JSONEq(t, `{"bookingId":"TRVABC"}`, string(msg.Value))
	assert.Equal(t, "booking.created", msg.GetEventType())
	assert.Equal(t, "req-1", msg.GetCorrelationID())
	assert.NotEmpty(t, msg.GetEventID())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])
}

func TestMessageBuilder_UnencodableValue(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	require.Error(t, err)
	assert.Equal(t, ErrorTypePermanent, ClassifyError(err))
}

func TestMessage_RetryCount(t *testing.T) {
	var msg Message
	assert.Equal(t, 0, msg.GetRetryCount())
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())
	assert.Equal(t, "12", msg.Headers[HeaderRetryCount])
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"explicit transient", NewTransientError("mongo", errors.New("x")), ErrorTypeTransient},
		{"explicit permanent", NewPermanentError("decode", errors.New("x")), ErrorTypePermanent},
		{"timeout text", errors.New("i/o Timeout while writing"), ErrorTypeTransient},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorTypeTransient},
		{"unknown", errors.New("invalid character 'x'"), ErrorTypePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("db", errors.New("down"))
	assert.True(t, ShouldRetry(transient, 0, 3))
	assert.False(t, ShouldRetry(transient, 3, 3))
	assert.False(t, ShouldRetry(errors.New("bad payload"), 0, 3))
	assert.False(t, ShouldRetry(nil, 0, 3))
}

func TestProducer_PublishRunsMiddlewareInOrder(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "booking-events", "", logger.Discard())

	var order []string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "first")
		return next(ctx, msg)
	})
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "second")
		assert.Equal(t, "booking-events", msg.Topic)
		return next(ctx, msg)
	})

	msg, err := NewMessage().WithKey("TRV1").WithValue("v").WithEventType("booking.created").Build()
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), msg))

	assert.Equal(t, []string{"first", "second"}, order)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "TRV1", string(w.msgs[0].Key))
	assert.Equal(t, "booking.created", headerValue(w.msgs[0], HeaderEventType))
}

func TestProducer_RejectsInvalidMessages(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "t", "", logger.Discard())
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")}), ErrProducerClosed)
}

func TestProducer_FailedWriteGoesToDLQ(t *testing.T) {
	writeErr := errors.New("leader not available")
	w := &fakeWriter{err: writeErr}
	dlq := &fakeWriter{}
	p := newProducer(w, dlq, "booking-events", "booking-events-dlq", logger.Discard())

	err := p.Publish(context.Background(), Message{Key: "TRV1", Value: []byte(`{}`)})
	assert.ErrorIs(t, err, writeErr)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "booking-events", headerValue(dlq.msgs[0], HeaderOriginalTopic))
	assert.Equal(t, "leader not available", headerValue(dlq.msgs[0], "dlq-error"))
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) == 0 {
		r.mu.Unlock()
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	r.mu.Unlock()
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_RetriesTransientThenSucceeds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reader := &fakeReader{queue: []kafka.Message{{Key: []byte("TRV1"), Value: []byte(`{}`), Offset: 7}}, cancel: cancel}
	attempts := 0
	handler := func(ctx context.Context, msg Message) error {
		attempts++
		if attempts < 3 {
			return NewTransientError("mongo", errors.New("server selection error"))
		}
		return nil
	}

	c := newConsumer(reader, nil, "booking-events", "ledger-auditor", 3, 0, handler, logger.Discard())
	err := c.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 3, attempts)
	require.Len(t, reader.committed, 1)
	assert.Equal(t, int64(7), reader.committed[0].Offset)
}

func TestConsumer_PermanentFailureIsDeadLettered(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reader := &fakeReader{queue: []kafka.Message{{Key: []byte("TRV1"), Value: []byte(`not json`)}}, cancel: cancel}
	dlq := &fakeWriter{}
	attempts := 0
	handler := func(ctx context.Context, msg Message) error {
		attempts++
		return NewPermanentError("decode", errors.New("invalid character"))
	}

	c := newConsumer(reader, dlq, "booking-events", "ledger-auditor", 3, 0, handler, logger.Discard())
	_ = c.Start(ctx)

	assert.Equal(t, 1, attempts)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "ledger-auditor", headerValue(dlq.msgs[0], "dlq-consumer-group"))
	assert.Len(t, reader.committed, 1)
}
