package main

import (
	"github.com/hubastard/vkdemo/engine/core"
	"github.com/hubastard/vkdemo/engine/profiler"
	"github.com/hubastard/vkdemo/engine/scene"
)

// LayerOrbit turns the model under the mouse and feeds the renderer its
// transforms every frame.
type LayerOrbit struct {
	ctrl  *scene.OrbitController
	light scene.Vec3
}

func (l *LayerOrbit) OnAttach(e *core.Engine) {
	w, h := e.Window.FramebufferSize()
	l.ctrl = scene.NewOrbitController(w, h)
	l.light = scene.Vec3(e.Config.Scene.LightPos)
}

func (l *LayerOrbit) OnDetach(e *core.Engine) {}

func (l *LayerOrbit) OnUpdate(e *core.Engine, dt float64) {
	if e.Input.IsKeyDown(core.KeyEscape) {
		e.Window.RequestClose()
	}
}

func (l *LayerOrbit) OnRender(e *core.Engine, alpha float64) {
	end := profiler.Start("LayerOrbit.OnRender")
	e.Renderer.SetUniforms(l.ctrl.Uniforms(l.light))
	end()
}

func (l *LayerOrbit) OnEvent(e *core.Engine, ev core.Event) bool {
	if v, ok := ev.(core.EventKey); ok && v.Down && v.Key == core.KeyP && v.Mods&core.ModCtrl != 0 {
		if path, err := profiler.Open(); err == nil {
			e.Log.Info("speedscope dump", "path", path)
		} else {
			e.Log.Warn("profiler dump", "err", err)
		}
		return true
	}
	return l.ctrl.HandleEvent(e, ev)
}
