package frame

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SurfacePreferences are tried first when configuring the surface.
type SurfacePreferences struct {
	Format      SurfaceFormat
	PresentMode PresentMode
}

func DefaultSurfacePreferences() SurfacePreferences {
	return SurfacePreferences{
		Format:      SurfaceFormat{Format: FormatB8G8R8A8SRGB, ColorSpace: ColorSpaceSRGBNonlinear},
		PresentMode: PresentModeMailbox,
	}
}

// SurfaceManager owns the swapchain and its image chain.
type SurfaceManager struct {
	dev   SurfaceDevice
	prefs SurfacePreferences
	log   *slog.Logger

	cfg   SurfaceConfiguration
	sc    Swapchain
	chain ImageChain
}

func NewSurfaceManager(dev SurfaceDevice, prefs SurfacePreferences, log *slog.Logger) *SurfaceManager {
	if log == nil {
		log = slog.Default()
	}
	return &SurfaceManager{dev: dev, prefs: prefs, log: log}
}

// Build queries the surface, derives a configuration and creates a
// swapchain for it. A previous swapchain is handed to the device for reuse
// and then destroyed; hint is the window framebuffer size.
func (m *SurfaceManager) Build(hint Extent) (SurfaceConfiguration, ImageChain, error) {
	sup, err := m.dev.SurfaceSupport()
	if err != nil {
		return SurfaceConfiguration{}, nil, fmt.Errorf("query surface support: %w", err)
	}
	if len(sup.Formats) == 0 || len(sup.PresentModes) == 0 {
		return SurfaceConfiguration{}, nil, fmt.Errorf("%w: %d formats, %d present modes",
			ErrSurfaceUnsupported, len(sup.Formats), len(sup.PresentModes))
	}

	f := ChooseFormat(sup.Formats, m.prefs.Format)
	cfg := SurfaceConfiguration{
		Format:      f.Format,
		ColorSpace:  f.ColorSpace,
		PresentMode: ChoosePresentMode(sup.PresentModes, m.prefs.PresentMode),
		Extent:      ChooseExtent(sup.Capabilities, hint),
		ImageCount:  ChooseImageCount(sup.Capabilities),
	}

	sc, err := m.dev.CreateSwapchain(cfg, m.sc)
	// The old swapchain is retired by the create call whether it succeeded
	// or not.
	m.releaseSwapchain()
	if err != nil {
		return SurfaceConfiguration{}, nil, fmt.Errorf("create swapchain %v: %w", cfg.Extent, err)
	}

	m.sc = sc
	m.cfg = cfg
	m.chain = sc.Images()
	m.log.Info("swapchain created",
		"extent", cfg.Extent.String(),
		"images", len(m.chain),
		"format", cfg.Format.String(),
		"present_mode", cfg.PresentMode.String())
	return cfg, m.chain, nil
}

var errNoSwapchain = errors.New("frame: no swapchain built")

// AcquireNext returns the index of the next presentable image. Stale is not
// an error; any error is fatal.
func (m *SurfaceManager) AcquireNext(timeout time.Duration, signal Semaphore) (int, Status, error) {
	if m.sc == nil {
		return -1, StatusOK, errNoSwapchain
	}
	idx, st, err := m.sc.Acquire(timeout, signal)
	if err != nil {
		return -1, st, fmt.Errorf("acquire image: %w", err)
	}
	if st == StatusStale {
		return -1, st, nil
	}
	if idx < 0 || idx >= len(m.chain) {
		return -1, st, fmt.Errorf("acquire image: index %d out of range [0,%d)", idx, len(m.chain))
	}
	return idx, st, nil
}

// Present queues image for display once wait is signaled.
func (m *SurfaceManager) Present(wait Semaphore, index int) (Status, error) {
	if m.sc == nil {
		return StatusOK, errNoSwapchain
	}
	st, err := m.sc.Present(wait, index)
	if err != nil {
		return st, fmt.Errorf("present image %d: %w", index, err)
	}
	return st, nil
}

// Teardown destroys the chain. The device must be idle.
func (m *SurfaceManager) Teardown() {
	m.releaseSwapchain()
	m.cfg = SurfaceConfiguration{}
}

func (m *SurfaceManager) releaseSwapchain() {
	if m.sc != nil {
		m.sc.Destroy()
	}
	m.sc = nil
	m.chain = nil
}

func (m *SurfaceManager) Config() SurfaceConfiguration { return m.cfg }
func (m *SurfaceManager) Chain() ImageChain            { return m.chain }

// ---- selection ----

// ChooseFormat returns want if the surface offers it, else the first format.
func ChooseFormat(avail []SurfaceFormat, want SurfaceFormat) SurfaceFormat {
	for _, f := range avail {
		if f == want {
			return f
		}
	}
	if len(avail) == 0 {
		return want
	}
	return avail[0]
}

// ChoosePresentMode returns want if offered, else FIFO, which every surface
// supports.
func ChoosePresentMode(avail []PresentMode, want PresentMode) PresentMode {
	for _, m := range avail {
		if m == want {
			return m
		}
	}
	return PresentModeFIFO
}

// ChooseExtent uses the surface's current extent unless it is undefined, in
// which case the framebuffer size is used. The result is always clamped into
// the surface's min/max bounds.
func ChooseExtent(caps SurfaceCapabilities, framebuffer Extent) Extent {
	ext := caps.CurrentExtent
	if ext.Width == UndefinedExtent {
		ext = framebuffer
	}
	return Extent{
		Width:  clamp(ext.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(ext.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum, bounded by the
// maximum when there is one.
func ChooseImageCount(caps SurfaceCapabilities) uint32 {
	n := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && n > caps.MaxImageCount {
		n = caps.MaxImageCount
	}
	return n
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
