package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONCarriesServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Service: "api"})

	log.Info("hello", "booking_id", "TRV1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "api", record[SERVICE])
	assert.Equal(t, "TRV1", record["booking_id"])
	assert.Equal(t, "hello", record["msg"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Level: WARN})

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestComponentAndSecurity(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf}).Component("payments")

	log.Security("signature mismatch", "path", "/webhook")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "payments", record[COMPONENT])
	assert.Equal(t, true, record["security_event"])
	assert.Equal(t, "WARN", record["level"])
}
