package kafka_config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, StartOldest, cfg.ConsumerStartOffset)
	assert.Equal(t, int64(-2), cfg.StartOffset())
	assert.Equal(t, DefaultConsumerRetryDelay, cfg.ConsumerRetryDelay)
}

func TestLoad_SplitsBrokers(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "kafka-1:9092, kafka-2:9092")
	t.Setenv(EnvKafkaConsumerStartOffset, "Newest")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
	assert.Equal(t, int64(-1), cfg.StartOffset())
}

func TestLoad_ReportsMalformedAndInvalidValues(t *testing.T) {
	t.Setenv(EnvKafkaProducerCompression, "brotli")
	t.Setenv(EnvKafkaConsumerRetryDelay, "-1s")
	t.Setenv(EnvKafkaConsumerMaxRetries, "three")
	t.Setenv(EnvKafkaConsumerStartOffset, "middle")

	_, err := Load()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "ProducerCompression")
	assert.Contains(t, msg, "ConsumerRetryDelay")
	assert.Contains(t, msg, `KAFKA_CONSUMER_MAX_RETRIES must be an integer, got: "three"`)
	assert.Contains(t, msg, "ConsumerStartOffset")
}

func TestValidate_EmptyBroker(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Brokers = []string{""}
	cfg.ConsumerMaxWait = 0

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broker 0 cannot be empty")
	assert.Contains(t, err.Error(), "ConsumerMaxWait")
}
