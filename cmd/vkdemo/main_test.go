package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubastard/vkdemo/engine/core"
	"github.com/hubastard/vkdemo/engine/gfx/frame"
)

func parsedConfig(t *testing.T, args ...string) core.Config {
	t.Helper()
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(args))
	path, err := cmd.Flags().GetString("config")
	require.NoError(t, err)

	cfg := core.DefaultConfig()
	if path != "" {
		cfg, err = core.LoadConfig(path)
		require.NoError(t, err)
	}
	var over core.Config
	over.Window.Width, _ = cmd.Flags().GetInt("width")
	over.Window.Height, _ = cmd.Flags().GetInt("height")
	over.Render.PresentMode, _ = cmd.Flags().GetString("present-mode")
	over.Render.MaxSamples, _ = cmd.Flags().GetInt("msaa")
	over.Render.Validation, _ = cmd.Flags().GetBool("validation")
	over.Scene.ShaderDir, _ = cmd.Flags().GetString("shader-dir")
	over.Log.Level, _ = cmd.Flags().GetString("log-level")
	applyFlags(cmd, &cfg, over)
	return cfg
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	cfg := parsedConfig(t, "--width", "1024", "--present-mode", "fifo")
	def := core.DefaultConfig()
	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, def.Window.Height, cfg.Window.Height)
	assert.Equal(t, "fifo", cfg.Render.PresentMode)
	assert.Equal(t, def.Log.Level, cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "vkdemo.toml")
	require.NoError(t, os.WriteFile(p, []byte("[render]\nmax_samples = 8\nvalidation = true\n"), 0o644))

	cfg := parsedConfig(t, "--config", p, "--msaa", "2")
	assert.Equal(t, 2, cfg.Render.MaxSamples)
	assert.True(t, cfg.Render.Validation, "file value survives an unset flag")

	cfg = parsedConfig(t, "--config", p, "--validation=false")
	assert.False(t, cfg.Render.Validation)
}

func TestPresentModeFlagListsEveryMode(t *testing.T) {
	usage := newRootCmd().Flags().Lookup("present-mode").Usage
	for _, name := range []string{"mailbox", "fifo", "fifo_relaxed", "immediate"} {
		_, err := frame.ParsePresentMode(name)
		require.NoError(t, err, name)
		assert.Contains(t, usage, name)
	}
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Log.Level = "loud"
	_, err := newLogger(cfg, true)
	assert.Error(t, err)

	cfg.Log.Level = "debug"
	log, err := newLogger(cfg, true)
	require.NoError(t, err)
	assert.NotNil(t, log)
}
