package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel(" warn "))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestNew_WritesFileAndConsole(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, err := New(&Config{LogDir: dir, Level: LevelDebug, Console: true, Out: &console})
	require.NoError(t, err)

	logger.Info("test", "hello overlay", map[string]interface{}{"frames": 3})
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logger.GetLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello overlay")
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Contains(t, console.String(), "hello overlay")
}

func TestNew_LevelFiltersDebug(t *testing.T) {
	var console bytes.Buffer

	logger, err := New(&Config{Level: LevelWarn, Console: true, Out: &console})
	require.NoError(t, err)

	logger.Debug("test", "should not appear", nil)
	logger.Warn("test", "should appear", nil)

	assert.NotContains(t, console.String(), "should not appear")
	assert.Contains(t, console.String(), "should appear")
}

func TestComponentLogger(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(&Config{LogDir: dir, Level: LevelInfo})
	require.NoError(t, err)

	zl := logger.Component("overlay")
	zl.Info().Msg("tick")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logger.GetLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"overlay"`)
}
