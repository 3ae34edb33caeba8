package kafka_config

import "time"

const (
	DefaultKafkaBrokers           = "localhost:9092"
	DefaultAllowAutoTopicCreation = false
	DefaultEnableMiddleware       = true

	// Booking events are keyed by booking id and small, so batching buys
	// little and every publish waits for all in-sync replicas.
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"

	// The ledger auditor recounts idempotently, so a fresh group replays
	// the retained history rather than skipping it.
	DefaultConsumerStartOffset    = StartOldest
	DefaultConsumerMaxBytes       = 1 << 20
	DefaultConsumerMaxWait        = 500 * time.Millisecond
	DefaultConsumerCommitInterval = time.Second
	DefaultConsumerSessionTimeout = 10 * time.Second
	DefaultConsumerMaxRetries     = 3
	DefaultConsumerRetryDelay     = 500 * time.Millisecond
)
