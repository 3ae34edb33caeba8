package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"trekkr/pkg/kafka"
)

// Metrics counts publish and consume outcomes. The zero value is ready to use
// and one instance is shared by every producer and consumer of a process.
type Metrics struct {
	published       atomic.Int64
	publishFailed   atomic.Int64
	publishDuration atomic.Int64

	consumed        atomic.Int64
	consumeFailed   atomic.Int64
	consumeDuration atomic.Int64
}

type Snapshot struct {
	MessagesPublished       int64  `json:"messages_published"`
	MessagesPublishedFailed int64  `json:"messages_published_failed"`
	AvgPublishDuration      string `json:"avg_publish_duration"`
	MessagesConsumed        int64  `json:"messages_consumed"`
	MessagesConsumedFailed  int64  `json:"messages_consumed_failed"`
	AvgConsumeDuration      string `json:"avg_consume_duration"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Snapshot() Snapshot {
	published := m.published.Load()
	consumed := m.consumed.Load()
	return Snapshot{
		MessagesPublished:       published,
		MessagesPublishedFailed: m.publishFailed.Load(),
		AvgPublishDuration:      average(m.publishDuration.Load(), published).String(),
		MessagesConsumed:        consumed,
		MessagesConsumedFailed:  m.consumeFailed.Load(),
		AvgConsumeDuration:      average(m.consumeDuration.Load(), consumed).String(),
	}
}

func average(total, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(total / count)
}

func (m *Metrics) ProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		if err != nil {
			m.publishFailed.Add(1)
			return err
		}
		m.publishDuration.Add(int64(time.Since(start)))
		m.published.Add(1)
		return nil
	}
}

func (m *Metrics) ConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		if err != nil {
			m.consumeFailed.Add(1)
			return err
		}
		m.consumeDuration.Add(int64(time.Since(start)))
		m.consumed.Add(1)
		return nil
	}
}
