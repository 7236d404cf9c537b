package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelDebug, Options{Output: &buf})

	logger.Named("cache").With(String("path", "tex/hero.png")).Info("asset loaded",
		Int("loads", 1),
		Error(errors.New("boom")),
	)
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "asset loaded", entry["msg"])
	assert.Equal(t, "cache", entry["logger"])
	assert.Equal(t, "tex/hero.png", entry["path"])
	assert.Equal(t, float64(1), entry["loads"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelWarn, Options{Output: &buf})

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, logger.GetLevel())
	logger.Debug("kept")
	assert.Contains(t, buf.String(), "kept")

	buf.Reset()
	logger.SetLevel(LevelSilent)
	logger.Log(LevelError, "silenced")
	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"off":     LevelSilent,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()
	logger.Error("nothing happens", String("k", "v"))
	assert.NotNil(t, Provide())
}
