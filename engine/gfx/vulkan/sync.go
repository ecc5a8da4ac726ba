package vkbackend

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/hubastard/vkdemo/engine/gfx/frame"
)

type fence struct {
	dev    vk.Device
	handle vk.Fence
}

func (f *fence) Wait(timeout time.Duration) error {
	ret := vk.WaitForFences(f.dev, 1, []vk.Fence{f.handle}, vk.True, timeoutNS(timeout))
	if ret == vk.Timeout {
		return fmt.Errorf("wait fence: timed out after %v", timeout)
	}
	return check(ret, "wait fence")
}

func (f *fence) Reset() error {
	return check(vk.ResetFences(f.dev, 1, []vk.Fence{f.handle}), "reset fence")
}

func (f *fence) Destroy() { vk.DestroyFence(f.dev, f.handle, nil) }

type semaphore struct {
	dev    vk.Device
	handle vk.Semaphore
}

func (s *semaphore) Destroy() { vk.DestroySemaphore(s.dev, s.handle, nil) }

// commandBuffer is freed together with the pool it came from.
type commandBuffer struct {
	handle vk.CommandBuffer
}

func (c *commandBuffer) Reset() error {
	return check(vk.ResetCommandBuffer(c.handle, 0), "reset command buffer")
}

func (d *Device) CreateFence(signaled bool) (frame.Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	f := &fence{dev: d.dev}
	if err := check(vk.CreateFence(d.dev, &info, nil, &f.handle), "create fence"); err != nil {
		return nil, err
	}
	return f, nil
}

func (d *Device) CreateSemaphore() (frame.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	s := &semaphore{dev: d.dev}
	if err := check(vk.CreateSemaphore(d.dev, &info, nil, &s.handle), "create semaphore"); err != nil {
		return nil, err
	}
	return s, nil
}

func (d *Device) AllocateCommandBuffer() (frame.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cmds := make([]vk.CommandBuffer, 1)
	if err := check(vk.AllocateCommandBuffers(d.dev, &info, cmds), "allocate command buffer"); err != nil {
		return nil, err
	}
	return &commandBuffer{handle: cmds[0]}, nil
}

// Submit queues cmd. The color output stage waits on wait; signal and
// fence fire when the GPU is done.
func (d *Device) Submit(cmd frame.CommandBuffer, wait, signal frame.Semaphore, f frame.Fence) error {
	cb, ok := cmd.(*commandBuffer)
	if !ok {
		return fmt.Errorf("submit: foreign command buffer %T", cmd)
	}
	ws, ss, fe := wait.(*semaphore), signal.(*semaphore), f.(*fence)
	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{ws.handle},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{ss.handle},
	}
	return check(vk.QueueSubmit(d.queue, 1, []vk.SubmitInfo{info}, fe.handle), "queue submit")
}

// oneShot records and runs commands outside the frame loop and waits for
// them, for uploads and layout transitions at setup time.
func (d *Device) oneShot(record func(cmd vk.CommandBuffer)) error {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cmds := make([]vk.CommandBuffer, 1)
	if err := check(vk.AllocateCommandBuffers(d.dev, &info, cmds), "allocate one-shot commands"); err != nil {
		return err
	}
	defer vk.FreeCommandBuffers(d.dev, d.pool, 1, cmds)

	begin := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := check(vk.BeginCommandBuffer(cmds[0], &begin), "begin one-shot commands"); err != nil {
		return err
	}
	record(cmds[0])
	if err := check(vk.EndCommandBuffer(cmds[0]), "end one-shot commands"); err != nil {
		return err
	}
	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    cmds,
	}
	if err := check(vk.QueueSubmit(d.queue, 1, []vk.SubmitInfo{submit}, vk.NullFence), "submit one-shot commands"); err != nil {
		return err
	}
	return check(vk.QueueWaitIdle(d.queue), "wait one-shot commands")
}
