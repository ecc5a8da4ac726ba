package core

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// WindowFactory opens the platform window.
type WindowFactory func(Config) (Window, error)

// RendererFactory creates the renderer for win. Events the renderer emits
// (surface rebuilds) go to q.
type RendererFactory func(win Window, cfg Config, q *EventQueue) (Renderer, error)

// Run wires the platform window + renderer and executes the main loop until
// the window closes or a frame fails.
func Run(app App, cfg Config, log *slog.Logger, newWindow WindowFactory, newRenderer RendererFactory) (err error) {
	// GLFW and the presentation queue live on the main OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if log == nil {
		log = slog.Default()
	}

	win, err := newWindow(cfg)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer win.Destroy()

	q := NewEventQueue()
	win.SetEventCallback(q.Push)

	rend, err := newRenderer(win, cfg, q)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	defer rend.Shutdown()

	eng := &Engine{
		Window:   win,
		Renderer: rend,
		Input:    NewInput(),
		Layers:   &LayerStack{},
		Events:   q,
		Config:   cfg,
		Log:      log,
		start:    time.Now(),
	}
	if err := app.OnStart(eng); err != nil {
		return fmt.Errorf("start app: %w", err)
	}
	defer func() {
		// GPU work must be finished before layers and the app free anything.
		if werr := rend.WaitIdle(); werr != nil {
			err = errors.Join(err, fmt.Errorf("wait idle: %w", werr))
		}
		eng.Layers.DetachAll(eng)
		app.OnShutdown(eng)
		log.Info("engine exit", "uptime", eng.Uptime().Round(time.Millisecond).String())
	}()

	// Fixed-timestep (60 Hz) with interpolation
	const tick = time.Second / 60
	var (
		accum   time.Duration
		prev    = time.Now()
		maxStep = 10 // prevent spiral of death
	)

	for !win.ShouldClose() {
		now := time.Now()
		accum += now.Sub(prev)
		prev = now

		// Poll OS events; callbacks fill the queue
		win.PollEvents()
		for _, ev := range q.Drain() {
			eng.dispatch(app, ev)
		}

		steps := 0
		for accum >= tick && steps < maxStep {
			dt := float64(tick) / float64(time.Second)
			app.OnUpdate(eng, dt)
			eng.Layers.ForEach(func(l Layer) { l.OnUpdate(eng, dt) })
			accum -= tick
			steps++
		}
		if steps == maxStep {
			accum = 0
		}
		alpha := float64(accum) / float64(tick)

		app.OnRender(eng, alpha)
		eng.Layers.ForEach(func(l Layer) { l.OnRender(eng, alpha) })

		if err := rend.DrawFrame(); err != nil {
			return fmt.Errorf("draw frame: %w", err)
		}
	}
	return nil
}

// dispatch routes one queued event through the engine services, the app and
// then the layers.
func (e *Engine) dispatch(app App, ev Event) {
	e.Input.Handle(ev)
	switch v := ev.(type) {
	case EventResize:
		// GLFW re-reports the current size while a minimized window waits
		// for events; the surface already matches it.
		if ext := e.Renderer.Stats().Extent; int(ext.Width) != v.W || int(ext.Height) != v.H {
			e.Renderer.RequestResize()
		}
	case EventCloseRequested:
		e.Window.RequestClose()
	case EventShaderChanged:
		if err := e.Renderer.ReloadShaders(); err != nil {
			// keep running on the previous pipeline
			e.Log.Error("shader reload failed", "path", v.Path, "err", err)
		} else {
			e.Log.Info("shaders reloaded", "path", v.Path)
		}
	}
	app.OnEvent(e, ev)
	e.Layers.Dispatch(e, ev)
}
