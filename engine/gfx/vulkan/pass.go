package vkbackend

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/hubastard/vkdemo/engine/gfx/frame"
)

// renderPass clears color and depth and leaves the chain image ready to
// present. With samples > 1 the multisample color attachment resolves into
// the chain image as a third attachment.
type renderPass struct {
	handle  vk.RenderPass
	format  vk.Format
	samples int
}

func (d *Device) createRenderPass(format vk.Format, samples int) (*renderPass, error) {
	msaa := samples > 1
	color := vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCountFlagBits(samples),
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	if msaa {
		color.StoreOp = vk.AttachmentStoreOpDontCare
		color.FinalLayout = vk.ImageLayoutColorAttachmentOptimal
	}
	depth := vk.AttachmentDescription{
		Format:         d.depth,
		Samples:        vk.SampleCountFlagBits(samples),
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutDepthStencilAttachmentOptimal,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	attachments := []vk.AttachmentDescription{color, depth}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}},
		PDepthStencilAttachment: &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}
	if msaa {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		})
		subpass.PResolveAttachments = []vk.AttachmentReference{{Attachment: 2, Layout: vk.ImageLayoutColorAttachmentOptimal}}
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{externalDependency()},
	}
	rp := &renderPass{format: format, samples: samples}
	if err := check(vk.CreateRenderPass(d.dev, &info, nil, &rp.handle), "create render pass"); err != nil {
		return nil, err
	}
	return rp, nil
}

// externalDependency orders this frame's attachment clears after the
// previous frame's writes. Depth and MSAA color targets are shared by every
// slot, so the source side needs the write accesses, not just the stages.
func externalDependency() vk.SubpassDependency {
	writes := vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit)
	dst := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit)
	return vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  dst | vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
		DstStageMask:  dst,
		SrcAccessMask: writes,
		DstAccessMask: writes,
	}
}

func (d *Device) destroyRenderPass(rp *renderPass) {
	if rp != nil {
		vk.DestroyRenderPass(d.dev, rp.handle, nil)
	}
}

type framebuffer struct {
	dev    vk.Device
	handle vk.Framebuffer
}

func (f *framebuffer) Destroy() { vk.DestroyFramebuffer(f.dev, f.handle, nil) }

func (d *Device) createFramebuffer(rp *renderPass, ext frame.Extent, views []frame.View) (*framebuffer, error) {
	handles := make([]vk.ImageView, len(views))
	for i, v := range views {
		h, ok := v.(vk.ImageView)
		if !ok {
			return nil, fmt.Errorf("framebuffer attachment %d: foreign view %T", i, v)
		}
		handles[i] = h
	}
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.handle,
		AttachmentCount: uint32(len(handles)),
		PAttachments:    handles,
		Width:           ext.Width,
		Height:          ext.Height,
		Layers:          1,
	}
	fb := &framebuffer{dev: d.dev}
	if err := check(vk.CreateFramebuffer(d.dev, &info, nil, &fb.handle), "create framebuffer"); err != nil {
		return nil, err
	}
	return fb, nil
}
