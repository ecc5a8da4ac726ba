// Command vkdemo renders a textured, lit model with Vulkan and keeps the
// swapchain valid across resizes, minimization and shader reloads.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hubastard/vkdemo/engine/assets"
	"github.com/hubastard/vkdemo/engine/core"
	vkbackend "github.com/hubastard/vkdemo/engine/gfx/vulkan"
	"github.com/hubastard/vkdemo/engine/platform"
	"github.com/hubastard/vkdemo/engine/profiler"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		over       core.Config
		jsonLogs   bool
	)
	cmd := &cobra.Command{
		Use:           "vkdemo",
		Short:         "Render a model with Vulkan",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := core.DefaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = core.LoadConfig(configPath); err != nil {
					return report(err)
				}
			}
			applyFlags(cmd, &cfg, over)
			if err := cfg.Validate(); err != nil {
				return report(err)
			}
			log, err := newLogger(cfg, jsonLogs)
			if err != nil {
				return report(err)
			}
			return report(run(cfg, log))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "TOML or YAML config file")
	f.IntVar(&over.Window.Width, "width", 0, "window width")
	f.IntVar(&over.Window.Height, "height", 0, "window height")
	f.StringVar(&over.Render.PresentMode, "present-mode", "", "mailbox, fifo, fifo_relaxed or immediate")
	f.IntVar(&over.Render.MaxSamples, "msaa", 0, "maximum MSAA sample count")
	f.BoolVar(&over.Render.Validation, "validation", false, "enable the validation layer")
	f.StringVar(&over.Scene.Model, "model", "", "OBJ model")
	f.StringVar(&over.Scene.Texture, "texture", "", "PNG/JPEG/BMP texture")
	f.StringVar(&over.Scene.ShaderDir, "shader-dir", "", "directory with mesh.wgsl, watched for changes")
	f.StringVar(&over.Log.Level, "log-level", "", "debug, info, warn or error")
	f.BoolVar(&over.Profile.Dump, "profile-dump", false, "write a speedscope profile on exit")
	f.BoolVar(&jsonLogs, "log-json", false, "log JSON even on a terminal")
	return cmd
}

// applyFlags copies the flags the user actually set over cfg.
func applyFlags(cmd *cobra.Command, cfg *core.Config, over core.Config) {
	set := cmd.Flags().Changed
	if set("width") {
		cfg.Window.Width = over.Window.Width
	}
	if set("height") {
		cfg.Window.Height = over.Window.Height
	}
	if set("present-mode") {
		cfg.Render.PresentMode = over.Render.PresentMode
	}
	if set("msaa") {
		cfg.Render.MaxSamples = over.Render.MaxSamples
	}
	if set("validation") {
		cfg.Render.Validation = over.Render.Validation
	}
	if set("model") {
		cfg.Scene.Model = over.Scene.Model
	}
	if set("texture") {
		cfg.Scene.Texture = over.Scene.Texture
	}
	if set("shader-dir") {
		cfg.Scene.ShaderDir = over.Scene.ShaderDir
	}
	if set("log-level") {
		cfg.Log.Level = over.Log.Level
	}
	if set("profile-dump") {
		cfg.Profile.Dump = over.Profile.Dump
	}
}

func newLogger(cfg core.Config, forceJSON bool) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if !forceJSON && term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
}

func report(err error) error {
	if err != nil {
		fmt.Fprintln(os.Stderr, "vkdemo:", err)
	}
	return err
}

func run(cfg core.Config, log *slog.Logger) error {
	slog.SetDefault(log)
	profiler.Init(cfg.Profile.Capacity)

	start := time.Now()
	sc, err := assets.LoadScene(context.Background(), assets.SceneSources{
		Model:     cfg.Scene.Model,
		Texture:   cfg.Scene.Texture,
		ShaderDir: cfg.Scene.ShaderDir,
	})
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}
	log.Info("scene loaded",
		"vertices", len(sc.Mesh.Vertices),
		"indices", len(sc.Mesh.Indices),
		"texture", sc.Texture.Bounds().Size().String(),
		"took", time.Since(start).Round(time.Millisecond).String())

	newWindow := func(cfg core.Config) (core.Window, error) {
		return platform.NewGLFWWindow(cfg.Window)
	}
	return core.Run(&App{}, cfg, log, newWindow, vkbackend.Factory(sc, log))
}
