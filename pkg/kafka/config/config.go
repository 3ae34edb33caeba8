package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"trekkr/pkg/logger"
)

const (
	StartOldest = "oldest"
	StartNewest = "newest"

	// Offsets understood by kafka-go's ReaderConfig.StartOffset.
	firstOffset int64 = -2
	lastOffset  int64 = -1
)

// Config is shared by the booking event producer in the API and the ledger
// auditor consumer. Topics and group ids live in pkg/config.
type Config struct {
	Brokers                []string
	AllowAutoTopicCreation bool
	EnableMiddleware       bool

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerRequireAcks  int    // -1 = all, 0 = none, 1 = leader only
	ProducerCompression  string // none, gzip, snappy, lz4, zstd

	ConsumerStartOffset    string
	ConsumerMaxBytes       int
	ConsumerMaxWait        time.Duration
	ConsumerCommitInterval time.Duration
	ConsumerSessionTimeout time.Duration
	ConsumerMaxRetries     int
	ConsumerRetryDelay     time.Duration
}

// Load reads the Kafka settings from the environment. Unlike the service
// config, a value that is set but cannot be parsed is an error rather than
// a silent fallback to the default.
func Load() (*Config, error) {
	env := &envReader{}

	cfg := &Config{
		Brokers:                splitBrokers(env.str(EnvKafkaBrokers, DefaultKafkaBrokers)),
		AllowAutoTopicCreation: env.boolean(EnvKafkaAutoCreateTopics, DefaultAllowAutoTopicCreation),
		EnableMiddleware:       env.boolean(EnvKafkaEnableMiddleware, DefaultEnableMiddleware),

		ProducerMaxAttempts:  env.integer(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts),
		ProducerBatchTimeout: env.duration(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout),
		ProducerRequireAcks:  env.integer(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks),
		ProducerCompression:  strings.ToLower(env.str(EnvKafkaProducerCompression, DefaultProducerCompression)),

		ConsumerStartOffset:    strings.ToLower(env.str(EnvKafkaConsumerStartOffset, DefaultConsumerStartOffset)),
		ConsumerMaxBytes:       env.integer(EnvKafkaConsumerMaxBytes, DefaultConsumerMaxBytes),
		ConsumerMaxWait:        env.duration(EnvKafkaConsumerMaxWait, DefaultConsumerMaxWait),
		ConsumerCommitInterval: env.duration(EnvKafkaConsumerCommitInterval, DefaultConsumerCommitInterval),
		ConsumerSessionTimeout: env.duration(EnvKafkaConsumerSessionTimeout, DefaultConsumerSessionTimeout),
		ConsumerMaxRetries:     env.integer(EnvKafkaConsumerMaxRetries, DefaultConsumerMaxRetries),
		ConsumerRetryDelay:     env.duration(EnvKafkaConsumerRetryDelay, DefaultConsumerRetryDelay),
	}

	errs := append(env.errs, cfg.problems()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("kafka configuration: %s", numbered(errs))
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if errs := cfg.problems(); len(errs) > 0 {
		return fmt.Errorf("kafka configuration: %s", numbered(errs))
	}
	return nil
}

// StartOffset maps ConsumerStartOffset onto the kafka-go sentinel offsets.
func (cfg *Config) StartOffset() int64 {
	if cfg.ConsumerStartOffset == StartNewest {
		return lastOffset
	}
	return firstOffset
}

func (cfg *Config) problems() []string {
	var errs []string

	if len(cfg.Brokers) == 0 {
		errs = append(errs, "At least one Kafka broker is required")
	}
	for i, broker := range cfg.Brokers {
		if broker == "" {
			errs = append(errs, fmt.Sprintf("Broker %d cannot be empty", i))
		}
	}

	if cfg.ProducerMaxAttempts <= 0 {
		errs = append(errs, fmt.Sprintf("ProducerMaxAttempts must be positive, got: %d", cfg.ProducerMaxAttempts))
	}
	if cfg.ProducerBatchTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ProducerBatchTimeout must be positive, got: %s", cfg.ProducerBatchTimeout))
	}
	switch cfg.ProducerCompression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		errs = append(errs, fmt.Sprintf("ProducerCompression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.ProducerCompression))
	}
	if cfg.ProducerRequireAcks < -1 || cfg.ProducerRequireAcks > 1 {
		errs = append(errs, fmt.Sprintf("ProducerRequireAcks must be -1, 0, or 1, got: %d", cfg.ProducerRequireAcks))
	}

	if cfg.ConsumerStartOffset != StartOldest && cfg.ConsumerStartOffset != StartNewest {
		errs = append(errs, fmt.Sprintf("ConsumerStartOffset must be %q or %q, got: %q", StartOldest, StartNewest, cfg.ConsumerStartOffset))
	}
	if cfg.ConsumerMaxBytes <= 0 {
		errs = append(errs, fmt.Sprintf("ConsumerMaxBytes must be positive, got: %d", cfg.ConsumerMaxBytes))
	}
	for name, d := range map[string]time.Duration{
		"ConsumerMaxWait":        cfg.ConsumerMaxWait,
		"ConsumerCommitInterval": cfg.ConsumerCommitInterval,
		"ConsumerSessionTimeout": cfg.ConsumerSessionTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}
	if cfg.ConsumerMaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("ConsumerMaxRetries cannot be negative, got: %d", cfg.ConsumerMaxRetries))
	}
	if cfg.ConsumerRetryDelay < 0 {
		errs = append(errs, fmt.Sprintf("ConsumerRetryDelay cannot be negative, got: %s", cfg.ConsumerRetryDelay))
	}

	return errs
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded",
		"brokers", cfg.Brokers,
		"auto_create_topics", cfg.AllowAutoTopicCreation,
		"enable_middleware", cfg.EnableMiddleware,
		"producer_require_acks", cfg.ProducerRequireAcks,
		"producer_compression", cfg.ProducerCompression,
		"consumer_start_offset", cfg.ConsumerStartOffset,
		"consumer_max_retries", cfg.ConsumerMaxRetries,
	)
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, broker := range strings.Split(raw, ",") {
		brokers = append(brokers, strings.TrimSpace(broker))
	}
	return brokers
}

func numbered(errs []string) string {
	var b strings.Builder
	for i, e := range errs {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, e)
	}
	return b.String()
}

// envReader records every malformed variable so Load reports them together.
type envReader struct {
	errs []string
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s must be an integer, got: %q", key, v))
		return def
	}
	return n
}

func (e *envReader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s must be a boolean, got: %q", key, v))
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s must be a duration, got: %q", key, v))
		return def
	}
	return d
}
