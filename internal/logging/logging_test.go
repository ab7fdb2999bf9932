package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"support-chat/internal/config"
)

func resetGlobalLevel(t *testing.T) {
	t.Helper()
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
}

func TestInit_JSONToFallback(t *testing.T) {
	resetGlobalLevel(t)
	var buf bytes.Buffer
	logger, closer, err := Init(config.Logging{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	logger.Info().Msg("hidden")
	logger.Warn().Str("k", "v").Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"k":"v"`)
	require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestInit_TextFormat(t *testing.T) {
	resetGlobalLevel(t)
	var buf bytes.Buffer
	logger, _, err := Init(config.Logging{Level: "debug", Format: "text"}, &buf)
	require.NoError(t, err)

	logger.Debug().Msg("hello console")
	require.Contains(t, buf.String(), "hello console")
	require.NotContains(t, buf.String(), `"message"`)
}

func TestInit_File(t *testing.T) {
	resetGlobalLevel(t)
	path := filepath.Join(t.TempDir(), "chat.log")
	var buf bytes.Buffer
	logger, closer, err := Init(config.Logging{Level: "info", File: path}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("to file")
	require.NoError(t, closer.Close())
	require.Empty(t, buf.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "to file")
}

func TestInit_Errors(t *testing.T) {
	resetGlobalLevel(t)
	_, _, err := Init(config.Logging{Level: "loud"}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid level")

	_, _, err = Init(config.Logging{Format: "xml"}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown format")

	_, _, err = Init(config.Logging{File: filepath.Join(t.TempDir(), "missing", "x.log")}, nil)
	require.Error(t, err)
}
