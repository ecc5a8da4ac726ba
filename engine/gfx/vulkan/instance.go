package vkbackend

import (
	"fmt"
	"log/slog"
	"slices"
	"unsafe"

	vk "github.com/goki/vulkan"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

type instance struct {
	handle vk.Instance
	debug  vk.DebugReportCallback
	hooked bool
	log    *slog.Logger
}

// newInstance creates the Vulkan instance with the window's surface
// extensions. Validation is dropped with a warning when the layer is not
// installed.
func newInstance(appName string, exts []string, validation bool, log *slog.Logger) (*instance, error) {
	if validation && !layerAvailable(validationLayer) {
		log.Warn("validation layer not installed, continuing without it", "layer", validationLayer)
		validation = false
	}

	exts = slices.Clone(exts)
	var layers []string
	if validation {
		exts = append(exts, vk.ExtDebugReportExtensionName)
		layers = append(layers, validationLayer)
	}

	info := vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   cstr(appName),
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        cstr("vkdemo"),
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			ApiVersion:         vk.MakeVersion(1, 1, 0),
		},
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: cstrs(exts),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     cstrs(layers),
	}

	var handle vk.Instance
	if err := check(vk.CreateInstance(&info, nil, &handle), "create instance"); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(handle); err != nil {
		vk.DestroyInstance(handle, nil)
		return nil, fmt.Errorf("init instance: %w", err)
	}

	in := &instance{handle: handle, log: log}
	if validation {
		if err := in.installDebugReport(); err != nil {
			in.destroy()
			return nil, err
		}
	}
	log.Info("vulkan instance created", "extensions", exts, "validation", validation)
	return in, nil
}

func layerAvailable(name string) bool {
	var n uint32
	if vk.EnumerateInstanceLayerProperties(&n, nil) != vk.Success || n == 0 {
		return false
	}
	props := make([]vk.LayerProperties, n)
	if vk.EnumerateInstanceLayerProperties(&n, props) != vk.Success {
		return false
	}
	for i := range props {
		props[i].Deref()
		if vk.ToString(props[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

// installDebugReport forwards validation messages to the logger.
func (in *instance) installDebugReport() error {
	info := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: in.report,
	}
	if err := check(vk.CreateDebugReportCallback(in.handle, &info, nil, &in.debug), "create debug report callback"); err != nil {
		return err
	}
	in.hooked = true
	return nil
}

// report is the debug report callback. Returning false lets the call that
// triggered the message proceed.
func (in *instance) report(flags vk.DebugReportFlags, _ vk.DebugReportObjectType, _ uint64, _ uint64,
	code int32, prefix string, msg string, _ unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		in.log.Error("vulkan validation", "layer", prefix, "code", code, "msg", msg)
	default:
		in.log.Warn("vulkan validation", "layer", prefix, "code", code, "msg", msg)
	}
	return vk.False
}

func (in *instance) destroy() {
	if in.hooked {
		vk.DestroyDebugReportCallback(in.handle, in.debug, nil)
		in.hooked = false
	}
	vk.DestroyInstance(in.handle, nil)
}
