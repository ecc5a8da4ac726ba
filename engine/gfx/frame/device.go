package frame

import "time"

// Semaphore is a GPU to GPU signal.
type Semaphore interface {
	Destroy()
}

// Fence is a GPU to CPU signal.
type Fence interface {
	Wait(timeout time.Duration) error
	Reset() error
	Destroy()
}

type CommandBuffer interface {
	Reset() error
}

// Attachment is a render target image owned by the dependent resource set.
type Attachment interface {
	View() View
	Destroy()
}

type Framebuffer interface {
	Destroy()
}

// Swapchain is the chain of presentable images created for one surface
// configuration.
type Swapchain interface {
	Images() ImageChain
	Acquire(timeout time.Duration, signal Semaphore) (int, Status, error)
	Present(wait Semaphore, index int) (Status, error)
	Destroy()
}

// SurfaceDevice creates swapchains for the window surface. old is the
// swapchain being replaced, or nil.
type SurfaceDevice interface {
	SurfaceSupport() (SurfaceSupport, error)
	CreateSwapchain(cfg SurfaceConfiguration, old Swapchain) (Swapchain, error)
}

type SyncDevice interface {
	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)
	AllocateCommandBuffer() (CommandBuffer, error)
}

// TargetDevice creates the extent-dependent attachments. Depth targets are
// returned already transitioned to the depth attachment layout.
type TargetDevice interface {
	CreateColorTarget(ext Extent, format PixelFormat, samples int) (Attachment, error)
	CreateDepthTarget(ext Extent, samples int) (Attachment, error)
	CreateFramebuffer(ext Extent, attachments []View) (Framebuffer, error)
}

// QueueDevice submits recorded work. Submit waits on wait at the color
// attachment output stage, then signals signal and fence.
type QueueDevice interface {
	Submit(cmd CommandBuffer, wait, signal Semaphore, fence Fence) error
	WaitIdle() error
}

// Window is what the rebuild path needs from the OS window.
type Window interface {
	FramebufferSize() (int, int)
	WaitEvents()
}

// Recorder fills a frame. Prepare runs after the slot's fence has been
// waited on, so the slot's uniform memory is free to overwrite.
type Recorder interface {
	Prepare(slot int, ext Extent) error
	Record(cmd CommandBuffer, slot, image int, fb Framebuffer, ext Extent) error
}
