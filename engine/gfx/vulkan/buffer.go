package vkbackend

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

const hostVisible = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit

type buffer struct {
	d      *Device
	handle vk.Buffer
	mem    vk.DeviceMemory
	size   vk.DeviceSize
	mapped unsafe.Pointer
}

func (d *Device) createBuffer(size int, usage vk.BufferUsageFlagBits, props vk.MemoryPropertyFlagBits) (*buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("vulkan: buffer size %d", size)
	}
	b := &buffer{d: d, size: vk.DeviceSize(size)}
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        b.size,
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	if err := check(vk.CreateBuffer(d.dev, &info, nil, &b.handle), "create buffer"); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev, b.handle, &req)
	req.Deref()
	typ, err := d.memoryType(req.MemoryTypeBits, vk.MemoryPropertyFlags(props))
	if err != nil {
		b.destroy()
		return nil, err
	}
	alloc := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typ,
	}
	if err := check(vk.AllocateMemory(d.dev, &alloc, nil, &b.mem), "allocate buffer memory"); err != nil {
		b.destroy()
		return nil, err
	}
	if err := check(vk.BindBufferMemory(d.dev, b.handle, b.mem, 0), "bind buffer memory"); err != nil {
		b.destroy()
		return nil, err
	}
	return b, nil
}

// mapPersistent maps the whole buffer for the rest of its life.
func (b *buffer) mapPersistent() error {
	return check(vk.MapMemory(b.d.dev, b.mem, 0, b.size, 0, &b.mapped), "map buffer")
}

func (b *buffer) write(data []byte) error {
	if vk.DeviceSize(len(data)) > b.size {
		return fmt.Errorf("vulkan: write of %d bytes into %d byte buffer", len(data), b.size)
	}
	if b.mapped != nil {
		vk.Memcopy(b.mapped, data)
		return nil
	}
	var p unsafe.Pointer
	if err := check(vk.MapMemory(b.d.dev, b.mem, 0, b.size, 0, &p), "map buffer"); err != nil {
		return err
	}
	vk.Memcopy(p, data)
	vk.UnmapMemory(b.d.dev, b.mem)
	return nil
}

func (b *buffer) destroy() {
	if b.mapped != nil {
		vk.UnmapMemory(b.d.dev, b.mem)
		b.mapped = nil
	}
	if b.handle != vk.NullBuffer {
		vk.DestroyBuffer(b.d.dev, b.handle, nil)
		b.handle = vk.NullBuffer
	}
	if b.mem != vk.NullDeviceMemory {
		vk.FreeMemory(b.d.dev, b.mem, nil)
		b.mem = vk.NullDeviceMemory
	}
}

// staging returns a host-visible transfer source filled with data.
func (d *Device) staging(data []byte) (*buffer, error) {
	b, err := d.createBuffer(len(data), vk.BufferUsageTransferSrcBit, hostVisible)
	if err != nil {
		return nil, fmt.Errorf("staging buffer: %w", err)
	}
	if err := b.write(data); err != nil {
		b.destroy()
		return nil, err
	}
	return b, nil
}

// uploadBuffer copies data into a new device-local buffer through a staging
// buffer.
func (d *Device) uploadBuffer(data []byte, usage vk.BufferUsageFlagBits) (*buffer, error) {
	stage, err := d.staging(data)
	if err != nil {
		return nil, err
	}
	defer stage.destroy()

	dst, err := d.createBuffer(len(data), usage|vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, err
	}
	err = d.oneShot(func(cmd vk.CommandBuffer) {
		vk.CmdCopyBuffer(cmd, stage.handle, dst.handle, 1, []vk.BufferCopy{{Size: stage.size}})
	})
	if err != nil {
		dst.destroy()
		return nil, err
	}
	return dst, nil
}
