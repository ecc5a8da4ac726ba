package main

import (
	"path/filepath"

	"github.com/hubastard/vkdemo/engine/assets"
	"github.com/hubastard/vkdemo/engine/core"
	"github.com/hubastard/vkdemo/engine/platform"
	"github.com/hubastard/vkdemo/engine/profiler"
)

type App struct {
	watcher *platform.ShaderWatcher
	orbit   *LayerOrbit
	stats   *LayerStats
}

func (a *App) OnStart(e *core.Engine) error {
	if dir := e.Config.Scene.ShaderDir; dir != "" {
		w, err := platform.WatchShaders(dir, filepath.Ext(assets.MeshShaderName), e.Events.Push, e.Log)
		if err != nil {
			// reload is a convenience; the embedded pipeline is already up
			e.Log.Warn("shader hot reload disabled", "err", err)
		} else {
			a.watcher = w
		}
	}

	a.orbit = &LayerOrbit{}
	e.Layers.Push(e, a.orbit)
	a.stats = &LayerStats{}
	e.Layers.Push(e, a.stats)
	e.Log.Info("started", "device", e.Renderer.DeviceName(), "profiler", profiler.Enabled())
	return nil
}

func (a *App) OnUpdate(e *core.Engine, dt float64)    {}
func (a *App) OnRender(e *core.Engine, alpha float64) {}
func (a *App) OnEvent(e *core.Engine, ev core.Event)  {}

func (a *App) OnShutdown(e *core.Engine) {
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			e.Log.Warn("close shader watcher", "err", err)
		}
	}
	if e.Config.Profile.Dump && profiler.Enabled() {
		if err := profiler.Dump(profiler.DefaultDumpName); err != nil {
			e.Log.Error("profile dump", "err", err)
		} else {
			e.Log.Info("profile written", "path", profiler.DefaultDumpName)
		}
	}
}
