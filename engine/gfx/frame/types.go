// Package frame drives the per-frame lifecycle of a swapchain renderer:
// image acquisition, in-flight frame synchronization, and the rebuild of
// every resource whose lifetime follows the presentation surface.
//
// The package is backend-agnostic. Devices, swapchains and sync primitives
// are reached through the interfaces in device.go; engine/gfx/vulkan
// provides the real implementation.
package frame

import (
	"fmt"
	"strings"
	"time"
)

// DefaultFramesInFlight is the number of frames the CPU may record ahead of
// the GPU.
const DefaultFramesInFlight = 2

// Infinite is the timeout used for fence waits and image acquisition.
const Infinite time.Duration = 1<<63 - 1

// UndefinedExtent is the CurrentExtent component a surface reports when its
// size is determined by the swapchain rather than by the window.
const UndefinedExtent = ^uint32(0)

// Extent is a 2D size in pixels.
type Extent struct {
	Width, Height uint32
}

func (e Extent) IsZero() bool { return e.Width == 0 || e.Height == 0 }

func (e Extent) Aspect() float32 {
	if e.Height == 0 {
		return 1
	}
	return float32(e.Width) / float32(e.Height)
}

func (e Extent) String() string { return fmt.Sprintf("%dx%d", e.Width, e.Height) }

// PixelFormat values match VkFormat.
type PixelFormat uint32

const (
	FormatUndefined     PixelFormat = 0
	FormatR8G8B8A8UNorm PixelFormat = 37
	FormatR8G8B8A8SRGB  PixelFormat = 43
	FormatB8G8R8A8UNorm PixelFormat = 44
	FormatB8G8R8A8SRGB  PixelFormat = 50
)

func (f PixelFormat) String() string {
	switch f {
	case FormatUndefined:
		return "undefined"
	case FormatR8G8B8A8UNorm:
		return "r8g8b8a8_unorm"
	case FormatR8G8B8A8SRGB:
		return "r8g8b8a8_srgb"
	case FormatB8G8R8A8UNorm:
		return "b8g8r8a8_unorm"
	case FormatB8G8R8A8SRGB:
		return "b8g8r8a8_srgb"
	}
	return fmt.Sprintf("format(%d)", uint32(f))
}

// ColorSpace values match VkColorSpaceKHR.
type ColorSpace uint32

const ColorSpaceSRGBNonlinear ColorSpace = 0

// PresentMode values match VkPresentModeKHR.
type PresentMode uint32

const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFIFO        PresentMode = 2
	PresentModeFIFORelaxed PresentMode = 3
)

var presentModeNames = map[PresentMode]string{
	PresentModeImmediate:   "immediate",
	PresentModeMailbox:     "mailbox",
	PresentModeFIFO:        "fifo",
	PresentModeFIFORelaxed: "fifo_relaxed",
}

func (m PresentMode) String() string {
	if s, ok := presentModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("present_mode(%d)", uint32(m))
}

// ParsePresentMode maps a config name ("mailbox", "fifo", ...) to a mode.
func ParsePresentMode(s string) (PresentMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range presentModeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("frame: unknown present mode %q", s)
}

type SurfaceFormat struct {
	Format     PixelFormat
	ColorSpace ColorSpace
}

// SurfaceCapabilities is the subset of VkSurfaceCapabilitiesKHR the
// configuration depends on. MaxImageCount == 0 means unbounded.
type SurfaceCapabilities struct {
	MinImageCount  uint32
	MaxImageCount  uint32
	CurrentExtent  Extent
	MinImageExtent Extent
	MaxImageExtent Extent
}

// SurfaceSupport is everything a surface reports for swapchain creation.
type SurfaceSupport struct {
	Capabilities SurfaceCapabilities
	Formats      []SurfaceFormat
	PresentModes []PresentMode
}

// SurfaceConfiguration is derived from SurfaceSupport on every (re)build.
type SurfaceConfiguration struct {
	Format      PixelFormat
	ColorSpace  ColorSpace
	PresentMode PresentMode
	Extent      Extent
	ImageCount  uint32
}

// View is an opaque image view handle owned by a backend.
type View any

// ChainImage is one presentable image of a swapchain.
type ChainImage struct {
	Image any
	View  View
}

// ImageChain is the ordered set of presentable images of a swapchain.
type ImageChain []ChainImage
