package frame

import (
	"errors"
	"fmt"
	"time"
)

// fakeGPU simulates an in-order queue. Submissions stay pending until a
// fence wait (or an idle wait) retires them, oldest first.
type fakeGPU struct {
	pending    []*fakeSubmission
	maxPending int
	submitted  int
	retired    int

	support   SurfaceSupport
	swapchain *fakeSwapchain // latest
	chains    int            // swapchains created
	buildHint []Extent       // extent of every successful surface build

	// acquire/present scripts keyed by call number (1-based)
	acquireScript map[int]Status
	presentScript map[int]Status
	acquireErr    map[int]error
	presentErr    map[int]error
	submitErr     map[int]error // keyed by submit call number
	acquires      int
	presents      int
	submits       int

	failFence     int // fail the n-th fence creation (1-based), 0 = never
	fences        int
	failDepth     bool
	failFB        int // fail the n-th framebuffer creation, 0 = never
	framebuffers  int
	live          map[string]int // live object counts by kind
	trace         []string
	idleWaits     int
	destroyedOnce map[any]bool
}

type fakeSubmission struct {
	id    int
	fence *fakeFence
	cmd   *fakeCmd
}

func newFakeGPU() *fakeGPU {
	return &fakeGPU{
		support: SurfaceSupport{
			Capabilities: SurfaceCapabilities{
				MinImageCount:  2,
				MaxImageCount:  0,
				CurrentExtent:  Extent{UndefinedExtent, UndefinedExtent},
				MinImageExtent: Extent{1, 1},
				MaxImageExtent: Extent{4096, 4096},
			},
			Formats: []SurfaceFormat{
				{Format: FormatB8G8R8A8UNorm, ColorSpace: ColorSpaceSRGBNonlinear},
				{Format: FormatB8G8R8A8SRGB, ColorSpace: ColorSpaceSRGBNonlinear},
			},
			PresentModes: []PresentMode{PresentModeFIFO, PresentModeMailbox},
		},
		acquireScript: map[int]Status{},
		presentScript: map[int]Status{},
		acquireErr:    map[int]error{},
		presentErr:    map[int]error{},
		submitErr:     map[int]error{},
		live:          map[string]int{},
		destroyedOnce: map[any]bool{},
	}
}

func (g *fakeGPU) create(kind string) { g.live[kind]++ }

func (g *fakeGPU) destroy(kind string, obj any) {
	if g.destroyedOnce[obj] {
		panic(fmt.Sprintf("double destroy of %s", kind))
	}
	g.destroyedOnce[obj] = true
	g.live[kind]--
}

func (g *fakeGPU) retireOldest() {
	s := g.pending[0]
	g.pending = g.pending[1:]
	s.fence.signaled = true
	s.cmd.retiredSubmits++
	g.retired++
	g.trace = append(g.trace, fmt.Sprintf("retire %d", s.id))
}

// ---- SurfaceDevice ----

func (g *fakeGPU) SurfaceSupport() (SurfaceSupport, error) { return g.support, nil }

func (g *fakeGPU) CreateSwapchain(cfg SurfaceConfiguration, old Swapchain) (Swapchain, error) {
	if old != nil && old.(*fakeSwapchain).destroyed {
		return nil, errors.New("fake: old swapchain already destroyed")
	}
	g.chains++
	g.create("swapchain")
	sc := &fakeSwapchain{gpu: g, cfg: cfg}
	for i := 0; i < int(cfg.ImageCount); i++ {
		sc.images = append(sc.images, ChainImage{Image: i, View: fmt.Sprintf("view-%d-%d", g.chains, i)})
	}
	g.swapchain = sc
	g.trace = append(g.trace, fmt.Sprintf("swapchain %v", cfg.Extent))
	return sc, nil
}

type fakeSwapchain struct {
	gpu       *fakeGPU
	cfg       SurfaceConfiguration
	images    ImageChain
	next      int
	destroyed bool
}

func (s *fakeSwapchain) Images() ImageChain { return s.images }

func (s *fakeSwapchain) Acquire(_ time.Duration, signal Semaphore) (int, Status, error) {
	g := s.gpu
	g.acquires++
	g.trace = append(g.trace, "acquire")
	if err := g.acquireErr[g.acquires]; err != nil {
		return -1, StatusOK, err
	}
	st := g.acquireScript[g.acquires]
	if st == StatusStale {
		return -1, st, nil
	}
	signal.(*fakeSemaphore).signaled = true
	idx := s.next
	s.next = (s.next + 1) % len(s.images)
	return idx, st, nil
}

func (s *fakeSwapchain) Present(wait Semaphore, index int) (Status, error) {
	g := s.gpu
	g.presents++
	g.trace = append(g.trace, fmt.Sprintf("present %d", index))
	if err := g.presentErr[g.presents]; err != nil {
		return StatusOK, err
	}
	wait.(*fakeSemaphore).signaled = false
	return g.presentScript[g.presents], nil
}

func (s *fakeSwapchain) Destroy() {
	s.gpu.destroy("swapchain", s)
	s.destroyed = true
}

// ---- SyncDevice ----

type fakeFence struct {
	gpu      *fakeGPU
	signaled bool
}

func (f *fakeFence) Wait(time.Duration) error {
	for !f.signaled {
		if len(f.gpu.pending) == 0 {
			return errors.New("fake: waiting on a fence nothing will signal")
		}
		f.gpu.retireOldest()
	}
	return nil
}

func (f *fakeFence) Reset() error { f.signaled = false; return nil }
func (f *fakeFence) Destroy()     { f.gpu.destroy("fence", f) }

type fakeSemaphore struct {
	gpu      *fakeGPU
	signaled bool
}

func (s *fakeSemaphore) Destroy() { s.gpu.destroy("semaphore", s) }

type fakeCmd struct {
	resets         int
	recorded       int
	retiredSubmits int
}

func (c *fakeCmd) Reset() error { c.resets++; return nil }

func (g *fakeGPU) CreateFence(signaled bool) (Fence, error) {
	g.fences++
	if g.failFence == g.fences {
		return nil, errors.New("fake: out of fences")
	}
	g.create("fence")
	return &fakeFence{gpu: g, signaled: signaled}, nil
}

func (g *fakeGPU) CreateSemaphore() (Semaphore, error) {
	g.create("semaphore")
	return &fakeSemaphore{gpu: g}, nil
}

func (g *fakeGPU) AllocateCommandBuffer() (CommandBuffer, error) { return &fakeCmd{}, nil }

// ---- TargetDevice ----

type fakeAttachment struct {
	gpu     *fakeGPU
	kind    string
	ext     Extent
	samples int
}

func (a *fakeAttachment) View() View { return a }
func (a *fakeAttachment) Destroy()   { a.gpu.destroy(a.kind, a) }

type fakeFramebuffer struct {
	gpu   *fakeGPU
	ext   Extent
	views []View
}

func (f *fakeFramebuffer) Destroy() { f.gpu.destroy("framebuffer", f) }

func (g *fakeGPU) CreateColorTarget(ext Extent, _ PixelFormat, samples int) (Attachment, error) {
	g.create("color")
	return &fakeAttachment{gpu: g, kind: "color", ext: ext, samples: samples}, nil
}

func (g *fakeGPU) CreateDepthTarget(ext Extent, samples int) (Attachment, error) {
	if g.failDepth {
		return nil, errors.New("fake: no depth format")
	}
	g.create("depth")
	return &fakeAttachment{gpu: g, kind: "depth", ext: ext, samples: samples}, nil
}

func (g *fakeGPU) CreateFramebuffer(ext Extent, views []View) (Framebuffer, error) {
	g.framebuffers++
	if g.failFB == g.framebuffers {
		return nil, errors.New("fake: framebuffer")
	}
	g.create("framebuffer")
	return &fakeFramebuffer{gpu: g, ext: ext, views: views}, nil
}

// ---- QueueDevice ----

func (g *fakeGPU) Submit(cmd CommandBuffer, wait, signal Semaphore, fence Fence) error {
	g.submits++
	if err := g.submitErr[g.submits]; err != nil {
		return err
	}
	ws := wait.(*fakeSemaphore)
	if !ws.signaled {
		return errors.New("fake: submit waits on an unsignaled semaphore")
	}
	ws.signaled = false
	f := fence.(*fakeFence)
	if f.signaled {
		return errors.New("fake: submit with a signaled fence")
	}
	g.submitted++
	sub := &fakeSubmission{id: g.submitted, fence: f, cmd: cmd.(*fakeCmd)}
	ss := signal.(*fakeSemaphore)
	ss.signaled = true
	g.pending = append(g.pending, sub)
	g.maxPending = max(g.maxPending, len(g.pending))
	g.trace = append(g.trace, fmt.Sprintf("submit %d", sub.id))
	return nil
}

func (g *fakeGPU) WaitIdle() error {
	g.idleWaits++
	for len(g.pending) > 0 {
		g.retireOldest()
	}
	g.trace = append(g.trace, "idle")
	return nil
}

// ---- Window ----

// fakeWindow replays sizes; the last one repeats forever.
type fakeWindow struct {
	sizes [][2]int
	waits int
}

func (w *fakeWindow) FramebufferSize() (int, int) {
	s := w.sizes[0]
	return s[0], s[1]
}

func (w *fakeWindow) WaitEvents() {
	w.waits++
	if len(w.sizes) > 1 {
		w.sizes = w.sizes[1:]
	}
}

// ---- Recorder ----

// fakeRecorder checks that a slot's uniforms are only rewritten after the
// GPU retired the previous submission from that slot.
type fakeRecorder struct {
	gpu        *fakeGPU
	lastSubmit map[int]int // slot -> submission id
	violations []string
	prepared   []int
	records    int
	failRecord bool
}

func newFakeRecorder(g *fakeGPU) *fakeRecorder {
	return &fakeRecorder{gpu: g, lastSubmit: map[int]int{}}
}

func (r *fakeRecorder) Prepare(slot int, _ Extent) error {
	if id, ok := r.lastSubmit[slot]; ok && id > r.gpu.retired {
		r.violations = append(r.violations,
			fmt.Sprintf("slot %d uniforms written while submission %d pending", slot, id))
	}
	r.prepared = append(r.prepared, slot)
	// the next submission will carry this slot's uniforms
	r.lastSubmit[slot] = r.gpu.submitted + 1
	return nil
}

func (r *fakeRecorder) Record(cmd CommandBuffer, _, _ int, fb Framebuffer, _ Extent) error {
	if r.failRecord {
		return errors.New("fake: record")
	}
	if fb == nil {
		return errors.New("fake: nil framebuffer")
	}
	cmd.(*fakeCmd).recorded++
	r.records++
	return nil
}

// newTestLoop wires a started loop over a fake GPU.
func newTestLoop(g *fakeGPU, win *fakeWindow, frames, samples int) (*Loop, *fakeRecorder, error) {
	sync := NewSyncController(g)
	if err := sync.Init(frames); err != nil {
		return nil, nil, err
	}
	rec := newFakeRecorder(g)
	l, err := NewLoop(LoopOptions{
		Window:   win,
		Device:   g,
		Surface:  NewSurfaceManager(g, DefaultSurfacePreferences(), nil),
		Sync:     sync,
		Targets:  NewTargets(g),
		Recorder: rec,
		Samples:  samples,
		OnRebuild: func(cfg SurfaceConfiguration) {
			g.buildHint = append(g.buildHint, cfg.Extent)
		},
	})
	if err != nil {
		return nil, nil, err
	}
	if err := l.Start(); err != nil {
		return nil, nil, err
	}
	return l, rec, nil
}
