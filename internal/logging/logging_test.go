package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/didchain/internal/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := logging.ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logging.New(&buf, logging.Config{Level: "info", Format: "json"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("published", "type", "diff")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "published", line["msg"])
	assert.Equal(t, "diff", line["type"])
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := logging.New(&bytes.Buffer{}, logging.Config{Format: "xml"})
	assert.Error(t, err)
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, logging.OrNop(nil))
	l := logging.Nop()
	assert.Same(t, l, logging.OrNop(l))
}
