package vkbackend

import (
	vk "github.com/goki/vulkan"
)

// descriptors holds one set per frame slot, each pointing at that slot's
// uniform buffer and the shared texture.
type descriptors struct {
	pool vk.DescriptorPool
	sets []vk.DescriptorSet
}

func (d *Device) createDescriptors(layout vk.DescriptorSetLayout, ubos []*buffer, uboSize int, tex *texture) (*descriptors, error) {
	n := uint32(len(ubos))
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       n,
		PoolSizeCount: 3,
		PPoolSizes: []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: n},
			{Type: vk.DescriptorTypeSampledImage, DescriptorCount: n},
			{Type: vk.DescriptorTypeSampler, DescriptorCount: n},
		},
	}
	ds := &descriptors{}
	if err := check(vk.CreateDescriptorPool(d.dev, &poolInfo, nil, &ds.pool), "create descriptor pool"); err != nil {
		return nil, err
	}

	layouts := make([]vk.DescriptorSetLayout, n)
	for i := range layouts {
		layouts[i] = layout
	}
	alloc := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     ds.pool,
		DescriptorSetCount: n,
		PSetLayouts:        layouts,
	}
	ds.sets = make([]vk.DescriptorSet, n)
	if err := check(vk.AllocateDescriptorSets(d.dev, &alloc, &ds.sets[0]), "allocate descriptor sets"); err != nil {
		d.destroyDescriptors(ds)
		return nil, err
	}

	for i, set := range ds.sets {
		writes := []vk.WriteDescriptorSet{
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      bindingUniforms,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				PBufferInfo: []vk.DescriptorBufferInfo{{
					Buffer: ubos[i].handle,
					Range:  vk.DeviceSize(uboSize),
				}},
			},
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      bindingTexture,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeSampledImage,
				PImageInfo: []vk.DescriptorImageInfo{{
					ImageView:   tex.img.view,
					ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
				}},
			},
			{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      bindingSampler,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeSampler,
				PImageInfo:      []vk.DescriptorImageInfo{{Sampler: tex.sampler}},
			},
		}
		vk.UpdateDescriptorSets(d.dev, uint32(len(writes)), writes, 0, nil)
	}
	return ds, nil
}

// destroyDescriptors frees the pool and with it every set.
func (d *Device) destroyDescriptors(ds *descriptors) {
	vk.DestroyDescriptorPool(d.dev, ds.pool, nil)
	ds.sets = nil
}
