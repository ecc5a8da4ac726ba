package vkbackend

import (
	"time"

	vk "github.com/goki/vulkan"

	"github.com/hubastard/vkdemo/engine/gfx/frame"
)

type swapchain struct {
	d      *Device
	handle vk.Swapchain
	images frame.ImageChain
	views  []vk.ImageView
}

func (s *swapchain) Images() frame.ImageChain { return s.images }

func (s *swapchain) Acquire(timeout time.Duration, signal frame.Semaphore) (int, frame.Status, error) {
	var idx uint32
	ret := vk.AcquireNextImage(s.d.dev, s.handle, timeoutNS(timeout), signal.(*semaphore).handle, vk.NullFence, &idx)
	st, err := presentStatus(ret, "acquire next image")
	if err != nil || st == frame.StatusStale {
		return -1, st, err
	}
	return int(idx), st, nil
}

func (s *swapchain) Present(wait frame.Semaphore, index int) (frame.Status, error) {
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.(*semaphore).handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.handle},
		PImageIndices:      []uint32{uint32(index)},
	}
	return presentStatus(vk.QueuePresent(s.d.queue, &info), "queue present")
}

// Destroy releases the image views and the swapchain. The images themselves
// belong to the swapchain.
func (s *swapchain) Destroy() {
	for _, v := range s.views {
		vk.DestroyImageView(s.d.dev, v, nil)
	}
	s.views = nil
	s.images = nil
	if s.handle != vk.NullSwapchain {
		vk.DestroySwapchain(s.d.dev, s.handle, nil)
		s.handle = vk.NullSwapchain
	}
}

// SurfaceSupport reads capabilities, formats and present modes of the
// window surface.
func (d *Device) SurfaceSupport() (frame.SurfaceSupport, error) {
	var caps vk.SurfaceCapabilities
	if err := check(vk.GetPhysicalDeviceSurfaceCapabilities(d.gpu.handle, d.surface, &caps), "surface capabilities"); err != nil {
		return frame.SurfaceSupport{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	var nf uint32
	if err := check(vk.GetPhysicalDeviceSurfaceFormats(d.gpu.handle, d.surface, &nf, nil), "surface formats"); err != nil {
		return frame.SurfaceSupport{}, err
	}
	formats := make([]vk.SurfaceFormat, nf)
	if nf > 0 {
		if err := check(vk.GetPhysicalDeviceSurfaceFormats(d.gpu.handle, d.surface, &nf, formats), "surface formats"); err != nil {
			return frame.SurfaceSupport{}, err
		}
	}

	var nm uint32
	if err := check(vk.GetPhysicalDeviceSurfacePresentModes(d.gpu.handle, d.surface, &nm, nil), "present modes"); err != nil {
		return frame.SurfaceSupport{}, err
	}
	modes := make([]vk.PresentMode, nm)
	if nm > 0 {
		if err := check(vk.GetPhysicalDeviceSurfacePresentModes(d.gpu.handle, d.surface, &nm, modes), "present modes"); err != nil {
			return frame.SurfaceSupport{}, err
		}
	}

	sup := frame.SurfaceSupport{
		Capabilities: frame.SurfaceCapabilities{
			MinImageCount:  caps.MinImageCount,
			MaxImageCount:  caps.MaxImageCount,
			CurrentExtent:  extentFrom(caps.CurrentExtent),
			MinImageExtent: extentFrom(caps.MinImageExtent),
			MaxImageExtent: extentFrom(caps.MaxImageExtent),
		},
	}
	for i := range formats {
		formats[i].Deref()
		sup.Formats = append(sup.Formats, frame.SurfaceFormat{
			Format:     frame.PixelFormat(formats[i].Format),
			ColorSpace: frame.ColorSpace(formats[i].ColorSpace),
		})
	}
	for _, m := range modes {
		sup.PresentModes = append(sup.PresentModes, frame.PresentMode(m))
	}
	return sup, nil
}

// CreateSwapchain builds a swapchain for cfg, handing old to the driver so
// it can recycle its images. The caller destroys old afterwards.
func (d *Device) CreateSwapchain(cfg frame.SurfaceConfiguration, old frame.Swapchain) (frame.Swapchain, error) {
	var caps vk.SurfaceCapabilities
	if err := check(vk.GetPhysicalDeviceSurfaceCapabilities(d.gpu.handle, d.surface, &caps), "surface capabilities"); err != nil {
		return nil, err
	}
	caps.Deref()

	oldHandle := vk.NullSwapchain
	if o, ok := old.(*swapchain); ok && o != nil {
		oldHandle = o.handle
	}

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.surface,
		MinImageCount:    cfg.ImageCount,
		ImageFormat:      vk.Format(cfg.Format),
		ImageColorSpace:  vk.ColorSpace(cfg.ColorSpace),
		ImageExtent:      extentTo(cfg.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   compositeAlpha(caps.SupportedCompositeAlpha),
		PresentMode:      vk.PresentMode(cfg.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     oldHandle,
	}
	s := &swapchain{d: d}
	if err := check(vk.CreateSwapchain(d.dev, &info, nil, &s.handle), "create swapchain"); err != nil {
		return nil, err
	}

	var n uint32
	if err := check(vk.GetSwapchainImages(d.dev, s.handle, &n, nil), "swapchain images"); err != nil {
		s.Destroy()
		return nil, err
	}
	imgs := make([]vk.Image, n)
	if err := check(vk.GetSwapchainImages(d.dev, s.handle, &n, imgs), "swapchain images"); err != nil {
		s.Destroy()
		return nil, err
	}
	for _, img := range imgs {
		view, err := d.createView(img, vk.Format(cfg.Format), vk.ImageAspectFlags(vk.ImageAspectColorBit), 1)
		if err != nil {
			s.Destroy()
			return nil, err
		}
		s.views = append(s.views, view)
		s.images = append(s.images, frame.ChainImage{Image: img, View: view})
	}
	return s, nil
}

// compositeAlpha picks the first supported mode, opaque preferred.
func compositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	for _, m := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if supported&vk.CompositeAlphaFlags(m) != 0 {
			return m
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func extentFrom(e vk.Extent2D) frame.Extent { return frame.Extent{Width: e.Width, Height: e.Height} }
func extentTo(e frame.Extent) vk.Extent2D   { return vk.Extent2D{Width: e.Width, Height: e.Height} }
