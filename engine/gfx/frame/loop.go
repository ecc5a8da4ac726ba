package frame

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/hubastard/vkdemo/engine/profiler"
)

// State is the position of the loop inside one DrawFrame call.
type State int32

const (
	StateIdle State = iota
	StateAcquiring
	StateRecording
	StateSubmitted
	StatePresenting
	StateInvalidated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateRecording:
		return "recording"
	case StateSubmitted:
		return "submitted"
	case StatePresenting:
		return "presenting"
	case StateInvalidated:
		return "invalidated"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Counters is a snapshot of the loop's frame index and resize request.
type Counters struct {
	Index           int
	ResizeRequested bool
}

// Stats accumulates over the lifetime of a Loop.
type Stats struct {
	Frames   uint64 // submissions
	Skipped  uint64 // iterations dropped on a stale acquire
	Rebuilds uint64 // surface rebuilds after startup
	Extent   Extent
}

type LoopOptions struct {
	Window   Window
	Device   QueueDevice
	Surface  *SurfaceManager
	Sync     *SyncController
	Targets  *Targets
	Recorder Recorder
	// Samples per pixel of the color and depth targets.
	Samples int
	// OnRebuild runs after every successful surface build, startup included.
	OnRebuild func(SurfaceConfiguration)
	Logger    *slog.Logger
}

// Loop drives acquire, record, submit and present for one surface, and
// rebuilds the surface resources whenever they go stale.
type Loop struct {
	win       Window
	dev       QueueDevice
	surface   *SurfaceManager
	sync      *SyncController
	targets   *Targets
	rec       Recorder
	samples   int
	onRebuild func(SurfaceConfiguration)
	log       *slog.Logger

	cfg    SurfaceConfiguration
	index  int
	resize atomic.Bool
	state  atomic.Int32
	stats  Stats
}

func NewLoop(opts LoopOptions) (*Loop, error) {
	switch {
	case opts.Window == nil:
		return nil, errors.New("frame: loop needs a window")
	case opts.Device == nil:
		return nil, errors.New("frame: loop needs a queue device")
	case opts.Surface == nil || opts.Sync == nil || opts.Targets == nil:
		return nil, errors.New("frame: loop needs surface, sync and targets")
	case opts.Recorder == nil:
		return nil, errors.New("frame: loop needs a recorder")
	case opts.Sync.Len() == 0:
		return nil, errors.New("frame: sync controller not initialized")
	}
	l := &Loop{
		win:       opts.Window,
		dev:       opts.Device,
		surface:   opts.Surface,
		sync:      opts.Sync,
		targets:   opts.Targets,
		rec:       opts.Recorder,
		samples:   max(opts.Samples, 1),
		onRebuild: opts.OnRebuild,
		log:       opts.Logger,
	}
	if l.log == nil {
		l.log = slog.Default()
	}
	return l, nil
}

// Start builds the surface resources for the first time.
func (l *Loop) Start() error {
	if err := l.rebuild(); err != nil {
		return fmt.Errorf("start frame loop: %w", err)
	}
	l.log.Info("frame loop ready", "frames_in_flight", l.sync.Len(), "samples", l.samples)
	return nil
}

// RequestResize marks the surface for a rebuild after the next present. Safe
// to call from any goroutine.
func (l *Loop) RequestResize() { l.resize.Store(true) }

// DrawFrame runs one iteration. Stale or suboptimal surfaces are handled
// internally; every returned error is fatal.
func (l *Loop) DrawFrame() error {
	if l.cfg.Extent.IsZero() {
		return errors.New("frame: DrawFrame before Start")
	}
	i := l.index
	slot := l.sync.Slot(i)

	l.setState(StateAcquiring)
	end := profiler.Start("frame.wait")
	err := l.sync.WaitForSlot(i)
	end()
	if err != nil {
		return l.fail(err)
	}

	end = profiler.Start("frame.acquire")
	image, st, err := l.surface.AcquireNext(Infinite, slot.ImageAvailable)
	end()
	if err != nil {
		return l.fail(err)
	}
	if st == StatusStale {
		l.stats.Skipped++
		l.log.Info("surface stale on acquire, rebuilding", "slot", i)
		return l.invalidate()
	}
	acquiredSuboptimal := st == StatusSuboptimal

	l.setState(StateRecording)
	end = profiler.Start("frame.record")
	err = l.record(i, image, slot)
	end()
	if err != nil {
		return l.fail(err)
	}

	end = profiler.Start("frame.submit")
	err = l.dev.Submit(slot.Commands, slot.ImageAvailable, slot.RenderComplete, slot.Fence)
	end()
	if err != nil {
		return l.fail(fmt.Errorf("submit slot %d: %w", i, err))
	}
	l.stats.Frames++
	l.setState(StateSubmitted)

	l.setState(StatePresenting)
	end = profiler.Start("frame.present")
	st, err = l.surface.Present(slot.RenderComplete, image)
	end()
	if err != nil {
		return l.fail(err)
	}
	if st.NeedsRebuild() || acquiredSuboptimal || l.resize.Load() {
		l.log.Info("surface invalidated after present",
			"status", st.String(), "acquired_suboptimal", acquiredSuboptimal, "resize_requested", l.resize.Load())
		if err := l.invalidate(); err != nil {
			return err
		}
	}

	// The slot was submitted, so the index moves on even after a rebuild.
	l.index = l.sync.Advance(i)
	l.setState(StateIdle)
	return nil
}

func (l *Loop) record(i, image int, slot *InFlightFrame) error {
	if err := l.rec.Prepare(i, l.cfg.Extent); err != nil {
		return fmt.Errorf("prepare slot %d: %w", i, err)
	}
	if err := l.sync.ResetSlot(i); err != nil {
		return err
	}
	if err := slot.Commands.Reset(); err != nil {
		return fmt.Errorf("reset commands of slot %d: %w", i, err)
	}
	fb := l.targets.Framebuffer(image)
	if err := l.rec.Record(slot.Commands, i, image, fb, l.cfg.Extent); err != nil {
		return fmt.Errorf("record slot %d image %d: %w", i, image, err)
	}
	return nil
}

// Rebuild runs the resize path immediately.
func (l *Loop) Rebuild() error { return l.invalidate() }

func (l *Loop) invalidate() error {
	l.setState(StateInvalidated)
	if err := l.rebuild(); err != nil {
		return l.fail(err)
	}
	l.stats.Rebuilds++
	l.setState(StateIdle)
	return nil
}

// rebuild waits out a minimized window, drains the device and recreates the
// swapchain and targets at the current framebuffer size.
func (l *Loop) rebuild() error {
	defer profiler.Start("frame.rebuild")()

	w, h := l.win.FramebufferSize()
	for w <= 0 || h <= 0 {
		l.win.WaitEvents()
		w, h = l.win.FramebufferSize()
	}

	if err := l.dev.WaitIdle(); err != nil {
		return fmt.Errorf("wait idle before rebuild: %w", err)
	}
	l.targets.Teardown()

	cfg, chain, err := l.surface.Build(Extent{Width: uint32(w), Height: uint32(h)})
	if err != nil {
		return fmt.Errorf("rebuild surface: %w", err)
	}
	if err := l.targets.Rebuild(cfg, chain, l.samples); err != nil {
		return fmt.Errorf("rebuild targets: %w", err)
	}

	l.cfg = cfg
	l.stats.Extent = cfg.Extent
	l.resize.Store(false)
	if l.onRebuild != nil {
		l.onRebuild(cfg)
	}
	return nil
}

func (l *Loop) fail(err error) error {
	l.setState(StateIdle)
	return err
}

func (l *Loop) setState(s State) { l.state.Store(int32(s)) }

func (l *Loop) State() State                 { return State(l.state.Load()) }
func (l *Loop) Index() int                   { return l.index }
func (l *Loop) Stats() Stats                 { return l.stats }
func (l *Loop) Config() SurfaceConfiguration { return l.cfg }

func (l *Loop) Counters() Counters {
	return Counters{Index: l.index, ResizeRequested: l.resize.Load()}
}
