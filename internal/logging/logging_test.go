package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/dkhoanguyen/dvrk-console/internal/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestMakeWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	logger, closer, err := Make(&env.Config{LoggingLevel: "info", LoggingPath: dir})
	require.NoError(t, err)

	logger.Info("console started")
	require.NoError(t, closer())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := os.ReadFile(dir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(content), "console started")
}

func TestMakeRejectsUnknownLevel(t *testing.T) {
	_, _, err := Make(&env.Config{LoggingLevel: "chatty"})
	assert.Error(t, err)
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(zapcore.AddSync(&buf), zapcore.WarnLevel)

	logger.Info("hidden")
	logger.Warn("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}
