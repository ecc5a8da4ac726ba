package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubastard/vkdemo/engine/gfx/frame"
)

type fakeWindow struct {
	cb      func(Event)
	polls   int
	closeAt int
	script  map[int][]Event // poll number -> events delivered by callbacks
	closed  bool
	titles  []string
	destroy int
}

func (w *fakeWindow) PollEvents() {
	w.polls++
	for _, ev := range w.script[w.polls] {
		w.cb(ev)
	}
}
func (w *fakeWindow) WaitEvents()                     {}
func (w *fakeWindow) ShouldClose() bool               { return w.closed || w.polls >= w.closeAt }
func (w *fakeWindow) RequestClose()                   { w.closed = true }
func (w *fakeWindow) FramebufferSize() (int, int)     { return 800, 600 }
func (w *fakeWindow) SetTitle(t string)               { w.titles = append(w.titles, t) }
func (w *fakeWindow) SetEventCallback(cb func(Event)) { w.cb = cb }
func (w *fakeWindow) Destroy()                        { w.destroy++ }

type fakeRenderer struct {
	draws, resizes, reloads, idles, shutdowns int
	failDrawAt                                int
	failReload                                bool
	uniforms                                  Uniforms
	extent                                    frame.Extent
}

func (r *fakeRenderer) DrawFrame() error {
	r.draws++
	if r.draws == r.failDrawAt {
		return frame.ErrDeviceLost
	}
	return nil
}
func (r *fakeRenderer) SetUniforms(u Uniforms) { r.uniforms = u }
func (r *fakeRenderer) RequestResize()         { r.resizes++ }
func (r *fakeRenderer) ReloadShaders() error {
	r.reloads++
	if r.failReload {
		return errors.New("bad shader")
	}
	return nil
}
func (r *fakeRenderer) WaitIdle() error    { r.idles++; return nil }
func (r *fakeRenderer) Stats() frame.Stats { return frame.Stats{Frames: uint64(r.draws), Extent: r.extent} }
func (r *fakeRenderer) DeviceName() string { return "fake" }
func (r *fakeRenderer) Shutdown()          { r.shutdowns++ }

type recordingApp struct {
	started, shutdown bool
	events            []Event
	renders           int
	startErr          error
}

func (a *recordingApp) OnStart(e *Engine) error           { a.started = true; return a.startErr }
func (a *recordingApp) OnUpdate(e *Engine, dt float64)    {}
func (a *recordingApp) OnRender(e *Engine, alpha float64) { a.renders++ }
func (a *recordingApp) OnEvent(e *Engine, ev Event)       { a.events = append(a.events, ev) }
func (a *recordingApp) OnShutdown(e *Engine)              { a.shutdown = true }

func runWith(app App, win *fakeWindow, rend *fakeRenderer) error {
	return Run(app, DefaultConfig(), nil,
		func(Config) (Window, error) { return win, nil },
		func(Window, Config, *EventQueue) (Renderer, error) { return rend, nil })
}

func TestRunDrawsUntilClose(t *testing.T) {
	win := &fakeWindow{closeAt: 5}
	rend := &fakeRenderer{}
	app := &recordingApp{}

	require.NoError(t, runWith(app, win, rend))
	assert.True(t, app.started)
	assert.True(t, app.shutdown)
	assert.Equal(t, 5, rend.draws)
	assert.Equal(t, 5, app.renders)
	assert.Equal(t, 1, rend.idles)
	assert.Equal(t, 1, rend.shutdowns)
	assert.Equal(t, 1, win.destroy)
}

func TestRunRoutesEvents(t *testing.T) {
	win := &fakeWindow{closeAt: 4, script: map[int][]Event{
		1: {EventResize{W: 640, H: 480}, EventKey{Key: KeyR, Down: true}},
		2: {EventShaderChanged{Path: "mesh.wgsl"}},
		3: {EventCloseRequested{}},
	}}
	rend := &fakeRenderer{failReload: true}
	app := &recordingApp{}

	require.NoError(t, runWith(app, win, rend))
	assert.Equal(t, 1, rend.resizes)
	assert.Equal(t, 1, rend.reloads, "failed reload keeps running")
	assert.True(t, win.closed)
	assert.Equal(t, 3, rend.draws, "close takes effect on the next check")
	require.Len(t, app.events, 4)
	assert.Equal(t, EventResize{W: 640, H: 480}, app.events[0])
}

func TestRunStopsOnFatalFrame(t *testing.T) {
	win := &fakeWindow{closeAt: 100}
	rend := &fakeRenderer{failDrawAt: 3}
	app := &recordingApp{}

	err := runWith(app, win, rend)
	require.ErrorIs(t, err, frame.ErrDeviceLost)
	assert.Equal(t, 3, rend.draws)
	assert.True(t, app.shutdown)
	assert.Equal(t, 1, rend.idles)
	assert.Equal(t, 1, rend.shutdowns)
}

func TestRunStartFailure(t *testing.T) {
	rend := &fakeRenderer{}
	err := runWith(&recordingApp{startErr: errors.New("no model")}, &fakeWindow{closeAt: 1}, rend)
	require.Error(t, err)
	assert.Equal(t, 0, rend.draws)
	assert.Equal(t, 1, rend.shutdowns)
}

func TestRunSkipsResizeToCurrentExtent(t *testing.T) {
	win := &fakeWindow{closeAt: 4, script: map[int][]Event{
		1: {EventResize{W: 0, H: 0}},
		2: {EventResize{W: 800, H: 600}},
		3: {EventResize{W: 1024, H: 768}},
	}}
	rend := &fakeRenderer{extent: frame.Extent{Width: 800, Height: 600}}
	app := &recordingApp{}

	require.NoError(t, runWith(app, win, rend))
	assert.Equal(t, 2, rend.resizes, "restore to the built size needs no rebuild")
	assert.Len(t, app.events, 3, "the app still sees every resize")
}
