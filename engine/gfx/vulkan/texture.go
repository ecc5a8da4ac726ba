package vkbackend

import (
	goimage "image"

	vk "github.com/goki/vulkan"

	"github.com/hubastard/vkdemo/engine/assets"
	"github.com/hubastard/vkdemo/engine/gfx/frame"
)

const textureFormat = vk.FormatR8g8b8a8Srgb

type texture struct {
	img     *image
	sampler vk.Sampler
}

// createTexture uploads src with a full mip chain. Mips are blitted on the
// GPU when the format supports linear blits and built on the CPU otherwise.
func (d *Device) createTexture(src *goimage.RGBA) (*texture, error) {
	b := src.Bounds()
	mips := assets.MipLevels(b.Dx(), b.Dy())
	img, err := d.createImage(imageSpec{
		ext:    frame.Extent{Width: uint32(b.Dx()), Height: uint32(b.Dy())},
		format: textureFormat,
		mips:   mips,
		usage:  vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit,
		aspect: vk.ImageAspectColorBit,
	})
	if err != nil {
		return nil, err
	}
	tex := &texture{img: img}

	blit := d.optimalFeatures(textureFormat)&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit) != 0
	if blit {
		err = d.uploadLevels(img, []*goimage.RGBA{src})
		if err == nil {
			err = d.blitMips(img)
		}
	} else {
		d.log.Debug("linear blit unsupported, building mips on the cpu")
		levels := assets.Mipmaps(src)
		if err = d.transition(img, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err == nil {
			if err = d.copyLevels(img, levels); err == nil {
				err = d.transition(img, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
			}
		}
	}
	if err == nil {
		tex.sampler, err = d.createSampler(mips)
	}
	if err != nil {
		tex.destroy(d)
		return nil, err
	}
	return tex, nil
}

// uploadLevels moves every mip to transfer-dst and copies levels into the
// first ones.
func (d *Device) uploadLevels(img *image, levels []*goimage.RGBA) error {
	if err := d.transition(img, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		return err
	}
	return d.copyLevels(img, levels)
}

func (d *Device) copyLevels(img *image, levels []*goimage.RGBA) error {
	var data []byte
	regions := make([]vk.BufferImageCopy, 0, len(levels))
	for i, l := range levels {
		regions = append(regions, vk.BufferImageCopy{
			BufferOffset: vk.DeviceSize(len(data)),
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:   uint32(i),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{Width: uint32(l.Bounds().Dx()), Height: uint32(l.Bounds().Dy()), Depth: 1},
		})
		data = append(data, l.Pix...)
	}
	stage, err := d.staging(data)
	if err != nil {
		return err
	}
	defer stage.destroy()
	return d.oneShot(func(cmd vk.CommandBuffer) {
		vk.CmdCopyBufferToImage(cmd, stage.handle, img.handle, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
	})
}

// blitMips fills mips 1..n-1 by halving the previous level and leaves every
// level shader-readable. Level 0 must hold the image in transfer-dst layout.
func (d *Device) blitMips(img *image) error {
	w, h := int32(img.spec.ext.Width), int32(img.spec.ext.Height)
	mips := img.spec.mips
	barrier := func(level uint32, from, to vk.ImageLayout, src, dst vk.AccessFlagBits) vk.ImageMemoryBarrier {
		return vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(src),
			DstAccessMask:       vk.AccessFlags(dst),
			OldLayout:           from,
			NewLayout:           to,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               img.handle,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:   vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel: level,
				LevelCount:   1,
				LayerCount:   1,
			},
		}
	}
	transfer := vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	fragment := vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)

	return d.oneShot(func(cmd vk.CommandBuffer) {
		for i := uint32(1); i < mips; i++ {
			toSrc := barrier(i-1, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal,
				vk.AccessTransferWriteBit, vk.AccessTransferReadBit)
			vk.CmdPipelineBarrier(cmd, transfer, transfer, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toSrc})

			nw, nh := max(w/2, 1), max(h/2, 1)
			region := vk.ImageBlit{
				SrcSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), MipLevel: i - 1, LayerCount: 1},
				SrcOffsets:     [2]vk.Offset3D{{}, {X: w, Y: h, Z: 1}},
				DstSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), MipLevel: i, LayerCount: 1},
				DstOffsets:     [2]vk.Offset3D{{}, {X: nw, Y: nh, Z: 1}},
			}
			vk.CmdBlitImage(cmd, img.handle, vk.ImageLayoutTransferSrcOptimal, img.handle, vk.ImageLayoutTransferDstOptimal,
				1, []vk.ImageBlit{region}, vk.FilterLinear)

			toRead := barrier(i-1, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
				vk.AccessTransferReadBit, vk.AccessShaderReadBit)
			vk.CmdPipelineBarrier(cmd, transfer, fragment, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toRead})
			w, h = nw, nh
		}
		last := barrier(mips-1, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
			vk.AccessTransferWriteBit, vk.AccessShaderReadBit)
		vk.CmdPipelineBarrier(cmd, transfer, fragment, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{last})
	})
}

func (d *Device) createSampler(mips uint32) (vk.Sampler, error) {
	info := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        vk.FilterLinear,
		MinFilter:        vk.FilterLinear,
		MipmapMode:       vk.SamplerMipmapModeLinear,
		AddressModeU:     vk.SamplerAddressModeRepeat,
		AddressModeV:     vk.SamplerAddressModeRepeat,
		AddressModeW:     vk.SamplerAddressModeRepeat,
		AnisotropyEnable: boolVK(d.gpu.anisotropy > 0),
		MaxAnisotropy:    max(d.gpu.anisotropy, 1),
		CompareOp:        vk.CompareOpAlways,
		MaxLod:           float32(mips),
		BorderColor:      vk.BorderColorIntOpaqueBlack,
	}
	var s vk.Sampler
	if err := check(vk.CreateSampler(d.dev, &info, nil, &s), "create sampler"); err != nil {
		return vk.NullSampler, err
	}
	return s, nil
}

func (t *texture) destroy(d *Device) {
	if t.sampler != vk.NullSampler {
		vk.DestroySampler(d.dev, t.sampler, nil)
		t.sampler = vk.NullSampler
	}
	t.img.Destroy()
}
