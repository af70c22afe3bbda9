package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/kanban/internal/config"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger.Info("dropped")
	logger.WithField("card_id", "c1").Warn("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "c1", entry["card_id"])
}

func TestNewWithOutput_BadLevelFallsBackToInfo(t *testing.T) {
	logger := NewWithOutput(config.LogConfig{Level: "loud", Format: "text"}, &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
