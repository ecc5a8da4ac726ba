package vkbackend

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/hubastard/vkdemo/engine/gfx/frame"
)

type imageSpec struct {
	ext     frame.Extent
	format  vk.Format
	mips    uint32
	samples int
	usage   vk.ImageUsageFlagBits
	aspect  vk.ImageAspectFlagBits
}

// image is a device-local image with its memory and a view over all mips.
type image struct {
	d      *Device
	handle vk.Image
	mem    vk.DeviceMemory
	view   vk.ImageView
	spec   imageSpec
}

func (d *Device) createImage(spec imageSpec) (*image, error) {
	if spec.mips == 0 {
		spec.mips = 1
	}
	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        spec.format,
		Extent:        vk.Extent3D{Width: spec.ext.Width, Height: spec.ext.Height, Depth: 1},
		MipLevels:     spec.mips,
		ArrayLayers:   1,
		Samples:       vk.SampleCountFlagBits(max(spec.samples, 1)),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(spec.usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	img := &image{d: d, spec: spec}
	if err := check(vk.CreateImage(d.dev, &info, nil, &img.handle), "create image"); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.dev, img.handle, &req)
	req.Deref()
	typ, err := d.memoryType(req.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		img.Destroy()
		return nil, err
	}
	alloc := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typ,
	}
	if err := check(vk.AllocateMemory(d.dev, &alloc, nil, &img.mem), "allocate image memory"); err != nil {
		img.Destroy()
		return nil, err
	}
	if err := check(vk.BindImageMemory(d.dev, img.handle, img.mem, 0), "bind image memory"); err != nil {
		img.Destroy()
		return nil, err
	}
	if img.view, err = d.createView(img.handle, spec.format, vk.ImageAspectFlags(spec.aspect), spec.mips); err != nil {
		img.Destroy()
		return nil, err
	}
	return img, nil
}

func (d *Device) createView(img vk.Image, format vk.Format, aspect vk.ImageAspectFlags, mips uint32) (vk.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: mips,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if err := check(vk.CreateImageView(d.dev, &info, nil, &view), "create image view"); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

func (img *image) View() frame.View { return img.view }

func (img *image) Destroy() {
	d := img.d.dev
	if img.view != vk.NullImageView {
		vk.DestroyImageView(d, img.view, nil)
		img.view = vk.NullImageView
	}
	if img.handle != vk.NullImage {
		vk.DestroyImage(d, img.handle, nil)
		img.handle = vk.NullImage
	}
	if img.mem != vk.NullDeviceMemory {
		vk.FreeMemory(d, img.mem, nil)
		img.mem = vk.NullDeviceMemory
	}
}

// barrierFor returns access masks and stages for the layout transitions the
// backend performs.
func barrierFor(from, to vk.ImageLayout) (src, dst vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags, err error) {
	switch {
	case from == vk.ImageLayoutUndefined && to == vk.ImageLayoutTransferDstOptimal:
		return 0, vk.AccessFlags(vk.AccessTransferWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit), nil
	case from == vk.ImageLayoutTransferDstOptimal && to == vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessShaderReadBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), nil
	case from == vk.ImageLayoutUndefined && to == vk.ImageLayoutDepthStencilAttachmentOptimal:
		return 0, vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit), nil
	}
	return 0, 0, 0, 0, fmt.Errorf("vulkan: unsupported layout transition %d -> %d", from, to)
}

// transition moves every mip of img from one layout to another.
func (d *Device) transition(img *image, from, to vk.ImageLayout) error {
	src, dst, srcStage, dstStage, err := barrierFor(from, to)
	if err != nil {
		return err
	}
	aspect := vk.ImageAspectFlags(img.spec.aspect)
	if to == vk.ImageLayoutDepthStencilAttachmentOptimal && hasStencil(img.spec.format) {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       src,
		DstAccessMask:       dst,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: img.spec.mips,
			LayerCount: 1,
		},
	}
	return d.oneShot(func(cmd vk.CommandBuffer) {
		vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	})
}

// CreateColorTarget creates the transient multisample color image that
// resolves into the chain image.
func (d *Device) CreateColorTarget(ext frame.Extent, format frame.PixelFormat, samples int) (frame.Attachment, error) {
	img, err := d.createImage(imageSpec{
		ext:     ext,
		format:  vk.Format(format),
		samples: samples,
		usage:   vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransientAttachmentBit,
		aspect:  vk.ImageAspectColorBit,
	})
	if err != nil {
		return nil, fmt.Errorf("color target %v: %w", ext, err)
	}
	return img, nil
}

// CreateDepthTarget creates the depth image and moves it into the depth
// attachment layout.
func (d *Device) CreateDepthTarget(ext frame.Extent, samples int) (frame.Attachment, error) {
	img, err := d.createImage(imageSpec{
		ext:     ext,
		format:  d.depth,
		samples: samples,
		usage:   vk.ImageUsageDepthStencilAttachmentBit,
		aspect:  vk.ImageAspectDepthBit,
	})
	if err != nil {
		return nil, fmt.Errorf("depth target %v: %w", ext, err)
	}
	if err := d.transition(img, vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal); err != nil {
		img.Destroy()
		return nil, err
	}
	return img, nil
}
