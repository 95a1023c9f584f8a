package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xqtimeline/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug json", &config.LoggingConfig{Level: "debug", Format: "json"}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
	}
	for input, want := range tests {
		got, err := parseLogLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := parseLogLevel("chatty")
	assert.Error(t, err)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestJSONOutputCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithWriter(&config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	l.WithField("account_id", int64(42)).
		WithError(errors.New("boom")).
		InfoWithFields("Account failed", map[string]interface{}{"elapsed": 2 * time.Second})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "Account failed", lines[0]["message"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, float64(42), lines[0]["account_id"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Equal(t, "xqtimeline", lines[0]["app"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithWriter(&config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")

	assert.Len(t, decodeLines(t, &buf), 2)
}

func TestWithFieldsDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base, err := newWithWriter(&config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	_ = base.WithField("child", true)
	base.Info("parent")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["child"]
	assert.False(t, ok)
}

func TestTestLoggerCapturesDerivedLoggers(t *testing.T) {
	tl := NewTestLogger()
	tl.WithField("url", "https://xueqiu.com").WithError(errors.New("timeout")).Error("Navigation failed")
	tl.Info("done")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "ERROR", msgs[0].Level)
	assert.Equal(t, "https://xueqiu.com", msgs[0].Fields["url"])
	assert.EqualError(t, msgs[0].Error, "timeout")
	assert.True(t, tl.HasError())
	assert.True(t, tl.HasMessage("done"))
	assert.Contains(t, tl.String(), "[ERROR] Navigation failed")

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogNavigation(tl, "https://x/a.json", 200, 10*time.Millisecond)
	LogNavigation(tl, "https://x/b.json", 404, time.Millisecond)
	LogAccountOutcome(tl, 7, 20, 25, nil)
	LogAccountOutcome(tl, 8, 0, 0, errors.New("no response"))

	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
	assert.True(t, tl.HasMessage("Account timeline saved"))
	failed := tl.GetMessagesByLevel("ERROR")
	require.Len(t, failed, 1)
	assert.Equal(t, int64(8), failed[0].Fields["account_id"])
}

func TestGlobalLogger(t *testing.T) {
	tl := NewTestLogger()
	SetLogger(tl)
	defer SetLogger(nil)

	WithField("component", "runner").Info("started")
	assert.True(t, tl.HasMessage("started"))
}
