package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filecrane/filecrane/internal/config"
)

func TestBuildLoggerLevels(t *testing.T) {
	defer func() { flagVerbose, flagQuiet = false, false }()

	cfg := config.DefaultConfig()
	cfg.Logging.LogFormat = "text"

	cfg.Logging.LogLevel = "warn"
	logger := buildLogger(cfg)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))

	// --verbose wins over the config level.
	flagVerbose = true
	logger = buildLogger(cfg)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	flagVerbose = false

	// --quiet suppresses everything below error.
	flagQuiet = true
	logger = buildLogger(cfg)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelError))
	flagQuiet = false
}

func TestRootCmdHasSubcommands(t *testing.T) {
	cmd := newRootCmd()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	require.True(t, names["serve"])
	require.True(t, names["config"])
}
