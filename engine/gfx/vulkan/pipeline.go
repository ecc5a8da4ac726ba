package vkbackend

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/hubastard/vkdemo/engine/assets"
)

// Descriptor bindings of the mesh shader.
const (
	bindingUniforms = 0
	bindingTexture  = 1
	bindingSampler  = 2
)

func vertexBinding() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(assets.Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}
}

func vertexAttributes() []vk.VertexInputAttributeDescription {
	var v assets.Vertex
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(v.Pos))},
		{Location: 1, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(v.Color))},
		{Location: 2, Format: vk.FormatR32g32Sfloat, Offset: uint32(unsafe.Offsetof(v.UV))},
		{Location: 3, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(v.Normal))},
	}
}

func (d *Device) createDescriptorLayout() (vk.DescriptorSetLayout, error) {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         bindingUniforms,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
		},
		{
			Binding:         bindingTexture,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
		{
			Binding:         bindingSampler,
			DescriptorType:  vk.DescriptorTypeSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := check(vk.CreateDescriptorSetLayout(d.dev, &info, nil, &layout), "create descriptor set layout"); err != nil {
		return vk.NullDescriptorSetLayout, err
	}
	return layout, nil
}

func (d *Device) createPipelineLayout(set vk.DescriptorSetLayout) (vk.PipelineLayout, error) {
	info := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{set},
	}
	var layout vk.PipelineLayout
	if err := check(vk.CreatePipelineLayout(d.dev, &info, nil, &layout), "create pipeline layout"); err != nil {
		return layout, err
	}
	return layout, nil
}

// shaderModuleInfo describes spirv; CodeSize is in bytes.
func shaderModuleInfo(spirv []uint32) vk.ShaderModuleCreateInfo {
	return vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(spirv) * 4),
		PCode:    spirv,
	}
}

func (d *Device) createShaderModule(spirv []uint32) (vk.ShaderModule, error) {
	if len(spirv) == 0 {
		return nil, fmt.Errorf("create shader module: empty spir-v")
	}
	info := shaderModuleInfo(spirv)
	var mod vk.ShaderModule
	if err := check(vk.CreateShaderModule(d.dev, &info, nil, &mod), "create shader module"); err != nil {
		return nil, err
	}
	return mod, nil
}

// createPipeline builds the mesh pipeline for rp from a SPIR-V module that
// holds both entry points. Viewport and scissor are dynamic so the
// pipeline survives a resize.
func (d *Device) createPipeline(spirv []uint32, layout vk.PipelineLayout, rp *renderPass) (vk.Pipeline, error) {
	mod, err := d.createShaderModule(spirv)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyShaderModule(d.dev, mod, nil)

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: mod,
			PName:  cstr(assets.VertexEntry),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: mod,
			PName:  cstr(assets.FragmentEntry),
		},
	}
	attrs := vertexAttributes()
	dynamic := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}

	info := vk.GraphicsPipelineCreateInfo{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   1,
			PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{vertexBinding()},
			VertexAttributeDescriptionCount: uint32(len(attrs)),
			PVertexAttributeDescriptions:    attrs,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeNone),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCountFlagBits(rp.samples),
			MinSampleShading:     1,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:  vk.True,
			DepthWriteEnable: vk.True,
			DepthCompareOp:   vk.CompareOpLess,
			MaxDepthBounds:   1,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
					vk.ColorComponentBBit | vk.ColorComponentABit),
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamic)),
			PDynamicStates:    dynamic,
		},
		Layout:            layout,
		RenderPass:        rp.handle,
		BasePipelineIndex: -1,
	}
	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(d.dev, nil, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if err := check(ret, "create graphics pipeline"); err != nil {
		return nil, err
	}
	return pipelines[0], nil
}
