package core

import (
	"log/slog"
	"time"

	"github.com/hubastard/vkdemo/engine/gfx/frame"
)

// App defines the application hooks.
type App interface {
	OnStart(e *Engine) error           // called once after window/renderer init
	OnUpdate(e *Engine, dt float64)    // called at a fixed tick (60Hz by default)
	OnRender(e *Engine, alpha float64) // before the frame is drawn, alpha in [0..1]
	OnEvent(e *Engine, ev Event)       // input/window events
	OnShutdown(e *Engine)              // before exit, device idle
}

// Engine exposes core services to the App.
type Engine struct {
	Window   Window
	Renderer Renderer
	Input    *Input
	Layers   *LayerStack
	Events   *EventQueue
	Config   Config
	Log      *slog.Logger
	start    time.Time
}

func (e *Engine) Uptime() time.Duration { return time.Since(e.start) }

// Window abstraction.
type Window interface {
	PollEvents()
	WaitEvents()
	ShouldClose() bool
	RequestClose()
	FramebufferSize() (int, int)
	SetTitle(title string)
	SetEventCallback(cb func(Event))
	Destroy()
}

// Uniforms is the per-frame transform snapshot copied into the current
// slot's uniform buffer. Matrices are column-major.
type Uniforms struct {
	Model    [16]float32
	View     [16]float32
	Proj     [16]float32
	LightPos [4]float32
}

// Renderer abstraction. DrawFrame errors are fatal.
type Renderer interface {
	DrawFrame() error
	SetUniforms(u Uniforms)
	RequestResize()
	ReloadShaders() error
	WaitIdle() error
	Stats() frame.Stats
	DeviceName() string
	Shutdown()
}
