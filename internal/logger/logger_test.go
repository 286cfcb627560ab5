package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreLevel resets the global level changed by New.
func restoreLevel(t *testing.T) {
	level := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(level) })
}

func TestNew(t *testing.T) {
	t.Run("console output", func(t *testing.T) {
		restoreLevel(t)
		buf := &bytes.Buffer{}

		logger, err := New(Config{Level: "info", Console: true, Output: buf})
		require.NoError(t, err)
		defer logger.Close()

		zl := logger.Zerolog()
		zl.Info().Str("component", "test").Msg("hello")
		zl.Debug().Msg("hidden")

		assert.Contains(t, buf.String(), `"message":"hello"`)
		assert.NotContains(t, buf.String(), "hidden")
	})

	t.Run("file output", func(t *testing.T) {
		restoreLevel(t)
		logFile := filepath.Join(t.TempDir(), "logs", "test.log")

		logger, err := New(Config{Level: "debug", File: logFile})
		require.NoError(t, err)

		zl := logger.Zerolog()
		zl.Debug().Msg("test message")
		require.NoError(t, logger.Close())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "test message")
	})

	t.Run("rotating file output", func(t *testing.T) {
		restoreLevel(t)
		logFile := filepath.Join(t.TempDir(), "test.log")

		logger, err := New(Config{Level: "info", File: logFile, MaxSize: 1, MaxAge: 1})
		require.NoError(t, err)
		defer logger.Close()

		_, ok := logger.file.(*RotatingWriter)
		assert.True(t, ok)
	})

	t.Run("redaction", func(t *testing.T) {
		restoreLevel(t)
		buf := &bytes.Buffer{}

		logger, err := New(Config{Level: "info", Console: true, Output: buf, Redaction: true})
		require.NoError(t, err)
		assert.NotNil(t, logger.redactor)

		zl := logger.Zerolog()
		zl.Info().Str("auth", "Bearer abc.def.ghi").Msg("request")
		assert.NotContains(t, buf.String(), "abc.def.ghi")
		assert.Contains(t, buf.String(), "[REDACTED]")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		restoreLevel(t)

		logger, err := New(Config{Level: "loud"})
		require.NoError(t, err)
		assert.Equal(t, "info", logger.Level())
	})
}

func TestSetLevel(t *testing.T) {
	restoreLevel(t)
	buf := &bytes.Buffer{}

	logger, err := New(Config{Level: "info", Console: true, Output: buf})
	require.NoError(t, err)
	child := logger.Zerolog().With().Str("component", "child").Logger()

	child.Debug().Msg("before")
	require.NoError(t, logger.SetLevel("debug"))
	child.Debug().Msg("after")

	assert.NotContains(t, buf.String(), "before")
	assert.Contains(t, buf.String(), "after")
	assert.Equal(t, "debug", logger.Level())

	assert.Error(t, logger.SetLevel("chatty"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.True(t, cfg.Redaction)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 7, cfg.MaxAge)
	assert.True(t, cfg.Compress)
}
