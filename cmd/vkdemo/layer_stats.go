package main

import (
	"time"

	"github.com/hubastard/vkdemo/engine/core"
	"github.com/hubastard/vkdemo/engine/gfx/frame"
	"github.com/hubastard/vkdemo/engine/profiler"
	"github.com/hubastard/vkdemo/engine/scratch"
)

const (
	titleEvery = time.Second
	logEvery   = 5 * time.Second
)

// LayerStats shows the frame rate in the window title and logs frame and
// runtime counters at debug level.
type LayerStats struct {
	title     string
	buf       *scratch.Buffer
	lastTitle time.Time
	lastLog   time.Time
	prev      frame.Stats
}

func (l *LayerStats) OnAttach(e *core.Engine) {
	l.title = e.Config.Window.Title
	l.buf = scratch.New(128)
	l.lastTitle = time.Now()
	l.lastLog = l.lastTitle
	l.prev = e.Renderer.Stats()
}

func (l *LayerStats) OnDetach(e *core.Engine) {
	s := e.Renderer.Stats()
	e.Log.Info("frame totals", "frames", s.Frames, "skipped", s.Skipped, "rebuilds", s.Rebuilds)
}

func (l *LayerStats) OnUpdate(e *core.Engine, dt float64) {}

func (l *LayerStats) OnRender(e *core.Engine, alpha float64) {
	now := time.Now()
	if elapsed := now.Sub(l.lastTitle); elapsed >= titleEvery {
		s := e.Renderer.Stats()
		frames := s.Frames - l.prev.Frames
		fps := float64(frames) / elapsed.Seconds()
		ms := 0.0
		if frames > 0 {
			ms = elapsed.Seconds() * 1000 / float64(frames)
		}
		l.buf.Reset().S(l.title).S(" | ").F64(fps, 0).S(" FPS (").F64(ms, 2).S(" ms) | ").
			U(uint64(s.Extent.Width)).C('x').U(uint64(s.Extent.Height))
		e.Window.SetTitle(l.buf.String())
		l.prev = s
		l.lastTitle = now
	}

	if now.Sub(l.lastLog) >= logEvery {
		s := e.Renderer.Stats()
		rt := profiler.ReadRuntime()
		e.Log.Debug("stats",
			"frames", s.Frames,
			"skipped", s.Skipped,
			"rebuilds", s.Rebuilds,
			"heap_mb", float64(rt.HeapAlloc)/(1<<20),
			"mallocs", rt.Mallocs,
			"gc", rt.NumGC,
			"goroutines", rt.Goroutines)
		l.lastLog = now
	}
}

func (l *LayerStats) OnEvent(e *core.Engine, ev core.Event) bool {
	if v, ok := ev.(core.EventSurfaceRebuilt); ok {
		e.Log.Debug("surface rebuilt", "width", v.W, "height", v.H)
	}
	return false
}
