//go:build !js
// +build !js

package main

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/soypat/hellodom/internal/config"
)

func subcommand(t *testing.T, name string) *cobra.Command {
	t.Helper()
	cmd, _, err := newRootCmd().Find([]string{name})
	require.NoError(t, err)
	require.Equal(t, name, cmd.Name())
	return cmd
}

func TestApplyFlagsServe(t *testing.T) {
	serveCmd := subcommand(t, "serve")
	require.NoError(t, serveCmd.ParseFlags([]string{
		"--listen", ":9999",
		"--watch",
		"--watch-dir", "./cmd/hellodom,.",
		"--static", "www",
	}))
	cfg := config.Default()

	applyFlags(serveCmd, cfg)

	assert.Equal(t, ":9999", cfg.Listen)
	assert.True(t, cfg.Watch)
	assert.Equal(t, []string{"./cmd/hellodom", "."}, cfg.WatchDirs)
	assert.Equal(t, "www", cfg.StaticDir)
	assert.False(t, cfg.Reload, "unset flags keep the loaded value")
	assert.False(t, cfg.Verbose)
	assert.Equal(t, config.Default().WASMDir, cfg.WASMDir)
}

func TestApplyFlagsBuild(t *testing.T) {
	buildCmd := subcommand(t, "build")
	require.NoError(t, buildCmd.ParseFlags([]string{"--out", "dist", "--dir", "./app", "-v"}))
	cfg := config.Default()

	applyFlags(buildCmd, cfg)

	assert.Equal(t, "dist", cfg.OutDir)
	assert.Equal(t, "./app", cfg.WASMDir)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, config.Default().Listen, cfg.Listen)
}

func TestFreshCommandsStartClean(t *testing.T) {
	require.NoError(t, subcommand(t, "build").ParseFlags([]string{"-v"}))
	require.True(t, verbose)

	serveCmd := subcommand(t, "serve")
	require.NoError(t, serveCmd.ParseFlags(nil))
	cfg := config.Default()
	applyFlags(serveCmd, cfg)

	assert.False(t, verbose)
	assert.False(t, cfg.Verbose)
}

func TestExecuteLogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := logger
	logger = zap.New(core)
	t.Cleanup(func() { logger = prev })

	cmd := &cobra.Command{
		Use:           "failing",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(*cobra.Command, []string) error {
			return errors.New("listen \":80\" failed")
		},
	}
	cmd.SetArgs([]string{})

	err := execute(cmd)

	require.Error(t, err)
	entries := logs.FilterMessage("command failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "listen \":80\" failed", entries[0].ContextMap()["error"])
}

func TestExecuteSuccessLogsNothing(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger
	logger = zap.New(core)
	t.Cleanup(func() { logger = prev })

	cmd := &cobra.Command{Use: "ok", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.SetArgs([]string{})

	require.NoError(t, execute(cmd))
	assert.Zero(t, logs.Len())
}
