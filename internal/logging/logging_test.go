package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "test")
	log.WithField("property_id", "P1").Info("property_data_processed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "property_data_processed", entry["event"])
	assert.Equal(t, "test", entry["environment"])
	assert.Equal(t, "P1", entry["property_id"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewUnknownLevel(t *testing.T) {
	log := NewWithWriter(&bytes.Buffer{}, "chatty", "dev")
	assert.Equal(t, logrus.InfoLevel, log.Logger.GetLevel())
}
