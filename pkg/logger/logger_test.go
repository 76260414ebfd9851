package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf))

	log.Debug("hidden")
	log.Info("visible", slog.String("key", "value"))

	require.NotContains(t, buf.String(), "hidden", "debug is below the default level")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record), "default format is JSON")
	assert.Equal(t, "visible", record["msg"])
	assert.Equal(t, "value", record["key"])
}

func TestNew_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatText))

	log.Info("hello")

	assert.True(t, strings.Contains(buf.String(), "msg=hello"))
}

func TestNew_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelError))

	log.Info("nope")
	log.Error("yep")

	out := buf.String()
	assert.NotContains(t, out, "nope")
	assert.Contains(t, out, "yep")
}

func TestNew_StaticAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithAttr(slog.String("service", "billing")))

	log.InfoContext(context.Background(), "started")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "billing", record["service"])
}

func TestWithFormat_InvalidPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("xml")))
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewFromConfig(logger.Config{Level: "warn", Format: "text"}, logger.WithOutput(&buf))

	log.Info("nope")
	log.Warn("yep")

	out := buf.String()
	assert.NotContains(t, out, "nope")
	assert.Contains(t, out, "msg=yep")
}
