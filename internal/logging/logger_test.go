package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerDefaultsToStderr(t *testing.T) {
	logger := NewLogger(nil)
	require.NotNil(t, logger)
	require.Equal(t, os.Stderr, logger.logger.Writer())
	require.Equal(t, LevelInfo, logger.level)
}

func TestLoggerFiltersBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Info("should be filtered")
	require.Empty(t, buf.String())

	logger.Warn("should appear", "kind", "assign-to-dif")
	require.Contains(t, buf.String(), "should appear")
	require.Contains(t, buf.String(), "kind=assign-to-dif")
}

func TestLoggerLevelsHavePrefixes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	logger.Debug("debug line")
	logger.Error("error line")

	output := buf.String()
	require.Contains(t, output, "[debug]")
	require.Contains(t, output, "[error]")
}

func TestDefaultLoggerSingleton(t *testing.T) {
	orig := Default()
	t.Cleanup(func() { SetDefault(orig) })

	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))

	Info("global info message")
	require.Contains(t, buf.String(), "global info message")
}
