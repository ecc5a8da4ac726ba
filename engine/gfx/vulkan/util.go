package vkbackend

import (
	"errors"
	"fmt"
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/hubastard/vkdemo/engine/gfx/frame"
)

// ErrNoSuitableDevice: no physical device can render and present to the
// window surface.
var ErrNoSuitableDevice = errors.New("vulkan: no suitable device")

// check turns a non-success result into an error. Device loss is reported
// as frame.ErrDeviceLost so callers can test for it without importing vk.
func check(ret vk.Result, what string) error {
	switch ret {
	case vk.Success:
		return nil
	case vk.ErrorDeviceLost:
		return fmt.Errorf("%s: %w", what, frame.ErrDeviceLost)
	}
	return fmt.Errorf("%s: %w", what, vk.Error(ret))
}

// presentStatus sorts an acquire or present result into the recoverable
// statuses and fatal errors.
func presentStatus(ret vk.Result, what string) (frame.Status, error) {
	switch ret {
	case vk.Success:
		return frame.StatusOK, nil
	case vk.Suboptimal:
		return frame.StatusSuboptimal, nil
	case vk.ErrorOutOfDate:
		return frame.StatusStale, nil
	}
	return frame.StatusOK, check(ret, what)
}

// cstr terminates s for the C side of the bindings.
func cstr(s string) string { return s + "\x00" }

func cstrs(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = cstr(s)
	}
	return out
}

func timeoutNS(d time.Duration) uint64 {
	if d < 0 || d == frame.Infinite {
		return vk.MaxUint64
	}
	return uint64(d)
}

// asBytes views a fixed-size value as raw bytes for mapped-memory copies.
func asBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

// releaser destroys what was pushed onto it in reverse order.
type releaser struct {
	fns []func()
}

func (r *releaser) push(f func()) { r.fns = append(r.fns, f) }

func (r *releaser) release() {
	for i := len(r.fns) - 1; i >= 0; i-- {
		r.fns[i]()
	}
	r.fns = nil
}

func (r *releaser) len() int { return len(r.fns) }
