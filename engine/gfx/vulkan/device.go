package vkbackend

import (
	"fmt"
	"log/slog"

	vk "github.com/goki/vulkan"
)

var deviceExtensions = []string{vk.KhrSwapchainExtensionName}

// gpu is a physical device that passed selection, with the properties the
// backend consults after creation.
type gpu struct {
	handle      vk.PhysicalDevice
	name        string
	kind        vk.PhysicalDeviceType
	queueFamily uint32
	memTypes    []vk.MemoryPropertyFlags
	colorMSAA   vk.SampleCountFlags
	depthMSAA   vk.SampleCountFlags
	anisotropy  float32 // 0 when unsupported
}

// deviceScore ranks device types; discrete wins.
func deviceScore(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 1000
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 500
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 200
	case vk.PhysicalDeviceTypeCpu:
		return 50
	}
	return 10
}

// pickGPU returns the best device with a queue that can draw and present to
// surface, the swapchain extension and at least one format and present mode.
func pickGPU(inst vk.Instance, surface vk.Surface, log *slog.Logger) (*gpu, error) {
	var n uint32
	if err := check(vk.EnumeratePhysicalDevices(inst, &n, nil), "enumerate devices"); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNoSuitableDevice
	}
	devs := make([]vk.PhysicalDevice, n)
	if err := check(vk.EnumeratePhysicalDevices(inst, &n, devs), "enumerate devices"); err != nil {
		return nil, err
	}

	var best *gpu
	for _, d := range devs {
		g, reason := inspectGPU(d, surface)
		if g == nil {
			log.Debug("device rejected", "reason", reason)
			continue
		}
		log.Debug("device candidate", "name", g.name, "score", deviceScore(g.kind))
		if best == nil || deviceScore(g.kind) > deviceScore(best.kind) {
			best = g
		}
	}
	if best == nil {
		return nil, ErrNoSuitableDevice
	}
	return best, nil
}

func inspectGPU(d vk.PhysicalDevice, surface vk.Surface) (*gpu, string) {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(d, &props)
	props.Deref()
	props.Limits.Deref()
	g := &gpu{
		handle:    d,
		name:      vk.ToString(props.DeviceName[:]),
		kind:      props.DeviceType,
		colorMSAA: props.Limits.FramebufferColorSampleCounts,
		depthMSAA: props.Limits.FramebufferDepthSampleCounts,
	}

	family, ok := graphicsPresentQueue(d, surface)
	if !ok {
		return nil, g.name + ": no graphics queue that can present"
	}
	g.queueFamily = family

	if !hasExtensions(d, deviceExtensions) {
		return nil, g.name + ": swapchain extension missing"
	}

	var nf, nm uint32
	vk.GetPhysicalDeviceSurfaceFormats(d, surface, &nf, nil)
	vk.GetPhysicalDeviceSurfacePresentModes(d, surface, &nm, nil)
	if nf == 0 || nm == 0 {
		return nil, g.name + ": surface has no formats or present modes"
	}

	var mem vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d, &mem)
	mem.Deref()
	g.memTypes = make([]vk.MemoryPropertyFlags, mem.MemoryTypeCount)
	for i := range g.memTypes {
		mem.MemoryTypes[i].Deref()
		g.memTypes[i] = mem.MemoryTypes[i].PropertyFlags
	}

	var feats vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(d, &feats)
	feats.Deref()
	if feats.SamplerAnisotropy == vk.True {
		g.anisotropy = props.Limits.MaxSamplerAnisotropy
	}
	return g, ""
}

func graphicsPresentQueue(d vk.PhysicalDevice, surface vk.Surface) (uint32, bool) {
	var n uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(d, &n, nil)
	families := make([]vk.QueueFamilyProperties, n)
	vk.GetPhysicalDeviceQueueFamilyProperties(d, &n, families)
	for i := uint32(0); i < n; i++ {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		var present vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(d, i, surface, &present)
		if present == vk.True {
			return i, true
		}
	}
	return 0, false
}

func hasExtensions(d vk.PhysicalDevice, want []string) bool {
	var n uint32
	if vk.EnumerateDeviceExtensionProperties(d, "", &n, nil) != vk.Success {
		return false
	}
	props := make([]vk.ExtensionProperties, n)
	if vk.EnumerateDeviceExtensionProperties(d, "", &n, props) != vk.Success {
		return false
	}
	have := make(map[string]bool, n)
	for i := range props {
		props[i].Deref()
		have[vk.ToString(props[i].ExtensionName[:])] = true
	}
	for _, w := range want {
		if !have[w] {
			return false
		}
	}
	return true
}

// maxSamples returns the largest power of two not above want that both
// color and depth attachments support. want <= 0 means no cap.
func maxSamples(color, depth vk.SampleCountFlags, want int) int {
	if want <= 0 {
		want = 64
	}
	both := color & depth
	for n := 64; n > 1; n >>= 1 {
		if n <= want && both&vk.SampleCountFlags(n) != 0 {
			return n
		}
	}
	return 1
}

// findMemoryType returns the first type allowed by typeBits that has every
// flag in want.
func findMemoryType(types []vk.MemoryPropertyFlags, typeBits uint32, want vk.MemoryPropertyFlags) (uint32, bool) {
	for i, flags := range types {
		if typeBits&(1<<uint(i)) != 0 && flags&want == want {
			return uint32(i), true
		}
	}
	return 0, false
}

// Device is the logical device with its single graphics+present queue and
// the command pool every command buffer comes from.
type Device struct {
	gpu     *gpu
	surface vk.Surface
	dev     vk.Device
	queue   vk.Queue
	pool    vk.CommandPool
	depth   vk.Format
	log     *slog.Logger
}

func newDevice(g *gpu, surface vk.Surface, validation bool, log *slog.Logger) (*Device, error) {
	var layers []string
	if validation {
		layers = []string{validationLayer}
	}
	info := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: g.queueFamily,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		}},
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: cstrs(deviceExtensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     cstrs(layers),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: boolVK(g.anisotropy > 0),
		}},
	}

	d := &Device{gpu: g, surface: surface, log: log}
	if err := check(vk.CreateDevice(g.handle, &info, nil, &d.dev), "create device"); err != nil {
		return nil, err
	}
	vk.GetDeviceQueue(d.dev, g.queueFamily, 0, &d.queue)

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: g.queueFamily,
	}
	if err := check(vk.CreateCommandPool(d.dev, &poolInfo, nil, &d.pool), "create command pool"); err != nil {
		vk.DestroyDevice(d.dev, nil)
		return nil, err
	}

	var ok bool
	if d.depth, ok = d.findFormat(depthCandidates, vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)); !ok {
		d.destroy()
		return nil, fmt.Errorf("%w: %s has no depth attachment format", ErrNoSuitableDevice, g.name)
	}
	log.Info("device created", "name", g.name, "queue_family", g.queueFamily, "depth_format", d.depth)
	return d, nil
}

var depthCandidates = []vk.Format{vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint}

func hasStencil(f vk.Format) bool {
	return f == vk.FormatD32SfloatS8Uint || f == vk.FormatD24UnormS8Uint
}

// findFormat returns the first candidate whose optimal tiling has features.
func (d *Device) findFormat(candidates []vk.Format, features vk.FormatFeatureFlags) (vk.Format, bool) {
	for _, f := range candidates {
		if d.optimalFeatures(f)&features == features {
			return f, true
		}
	}
	return vk.FormatUndefined, false
}

func (d *Device) optimalFeatures(f vk.Format) vk.FormatFeatureFlags {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.gpu.handle, f, &props)
	props.Deref()
	return props.OptimalTilingFeatures
}

func (d *Device) memoryType(typeBits uint32, want vk.MemoryPropertyFlags) (uint32, error) {
	i, ok := findMemoryType(d.gpu.memTypes, typeBits, want)
	if !ok {
		return 0, fmt.Errorf("vulkan: no memory type with flags %#x in mask %#x", want, typeBits)
	}
	return i, nil
}

// WaitIdle blocks until the device has finished all submitted work.
func (d *Device) WaitIdle() error {
	return check(vk.DeviceWaitIdle(d.dev), "wait device idle")
}

func (d *Device) Name() string { return d.gpu.name }

// destroy frees the command pool, and with it every command buffer, then the
// device.
func (d *Device) destroy() {
	if d.dev == nil {
		return
	}
	vk.DestroyCommandPool(d.dev, d.pool, nil)
	vk.DestroyDevice(d.dev, nil)
	d.dev = nil
}

func boolVK(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
