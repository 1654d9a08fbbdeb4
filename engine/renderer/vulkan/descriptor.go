package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/scene"
)

// Ray-tracing shader stage bits by registry value; both pipelines read the
// same descriptor set, so the layout declares the ray stages up front.
const (
	shaderStageRaygenBit       vk.ShaderStageFlags = 0x00000100
	shaderStageClosestHitBit   vk.ShaderStageFlags = 0x00000400
	shaderStageMissBit         vk.ShaderStageFlags = 0x00000800
	shaderStageIntersectionBit vk.ShaderStageFlags = 0x00001000
)

/**
 * @brief DescriptorBindings materializes the scene's binding-slot contract
 * as one Vulkan descriptor set. Counts are baked into the layout, so any
 * growth of the model store or texture list rebuilds layout, pool and set
 * from scratch.
 */
type DescriptorBindings struct {
	context *VulkanContext

	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
	Set    vk.DescriptorSet

	counts scene.BindingCounts
}

func NewDescriptorBindings(context *VulkanContext, counts scene.BindingCounts) (*DescriptorBindings, error) {
	d := &DescriptorBindings{context: context}
	if err := d.build(counts); err != nil {
		return nil, err
	}
	return d, nil
}

func slotDescriptorType(slot scene.BindingSlot) vk.DescriptorType {
	switch slot {
	case scene.BindingCamera:
		return vk.DescriptorTypeUniformBuffer
	case scene.BindingTextures:
		return vk.DescriptorTypeCombinedImageSampler
	default:
		return vk.DescriptorTypeStorageBuffer
	}
}

func slotStageFlags(slot scene.BindingSlot) vk.ShaderStageFlags {
	switch slot {
	case scene.BindingCamera:
		return vk.ShaderStageFlags(vk.ShaderStageVertexBit) | shaderStageRaygenBit
	case scene.BindingTextures:
		return vk.ShaderStageFlags(vk.ShaderStageFragmentBit) | shaderStageClosestHitBit
	default:
		return vk.ShaderStageFlags(vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit) |
			shaderStageClosestHitBit | shaderStageIntersectionBit
	}
}

func (d *DescriptorBindings) build(counts scene.BindingCounts) error {
	d.counts = counts

	bindings := make([]vk.DescriptorSetLayoutBinding, 0, scene.BindingSlotCount)
	poolSizes := make([]vk.DescriptorPoolSize, 0, scene.BindingSlotCount)
	for slot := scene.BindingSlot(0); slot < scene.BindingSlotCount; slot++ {
		count := counts.CountFor(slot)
		if count == 0 {
			// A zero-count binding is invalid; the scene substitutes
			// placeholder resources so this only happens before setup.
			return fmt.Errorf("binding slot %d has no resources", slot)
		}
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(slot),
			DescriptorType:  slotDescriptorType(slot),
			DescriptorCount: count,
			StageFlags:      slotStageFlags(slot),
		})
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            slotDescriptorType(slot),
			DescriptorCount: count,
		})
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	if res := vk.CreateDescriptorSetLayout(d.context.Device.LogicalDevice, &layoutInfo, d.context.Allocator, &d.Layout); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       1,
	}
	if res := vk.CreateDescriptorPool(d.context.Device.LogicalDevice, &poolInfo, d.context.Allocator, &d.Pool); res != vk.Success {
		d.Destroy()
		err := fmt.Errorf("failed to create descriptor pool: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.Pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{d.Layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(d.context.Device.LogicalDevice, &allocInfo, &sets[0]); res != vk.Success {
		d.Destroy()
		err := fmt.Errorf("failed to allocate descriptor set: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	d.Set = sets[0]
	return nil
}

// Rebuild tears the layout, pool and set down and rebuilds them for the new
// counts. Required whenever a model or texture is added after setup.
func (d *DescriptorBindings) Rebuild(counts scene.BindingCounts) error {
	d.Destroy()
	return d.build(counts)
}

func (d *DescriptorBindings) Destroy() {
	device := d.context.Device.LogicalDevice
	if d.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(device, d.Pool, d.context.Allocator)
		d.Pool = vk.NullDescriptorPool
		d.Set = vk.NullDescriptorSet
	}
	if d.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device, d.Layout, d.context.Allocator)
		d.Layout = vk.NullDescriptorSetLayout
	}
}

// UpdateFromScene writes every binding slot from the scene's current
// resources, in store order.
func (d *DescriptorBindings) UpdateFromScene(s *scene.Scene) error {
	if d.counts != s.BindingCounts() {
		return fmt.Errorf("descriptor counts are stale; call Rebuild first")
	}

	writes := make([]vk.WriteDescriptorSet, 0, scene.BindingSlotCount)

	cameraInfo, err := bufferInfo(s.CameraBuffer())
	if err != nil {
		return err
	}
	writes = append(writes, d.bufferWrite(scene.BindingCamera, []vk.DescriptorBufferInfo{cameraInfo}))

	models := s.Models()

	materialInfos := make([]vk.DescriptorBufferInfo, 0, len(models)+1)
	matIndexInfos := make([]vk.DescriptorBufferInfo, 0, len(models))
	vertexInfos := make([]vk.DescriptorBufferInfo, 0, len(models))
	indexInfos := make([]vk.DescriptorBufferInfo, 0, len(models))
	for _, g := range models {
		mi, err := bufferInfo(g.MatColorBuffer)
		if err != nil {
			return err
		}
		materialInfos = append(materialInfos, mi)
		ii, err := bufferInfo(g.MatIndexBuffer)
		if err != nil {
			return err
		}
		matIndexInfos = append(matIndexInfos, ii)
		vi, err := bufferInfo(g.VertexBuffer)
		if err != nil {
			return err
		}
		vertexInfos = append(vertexInfos, vi)
		xi, err := bufferInfo(g.IndexBuffer)
		if err != nil {
			return err
		}
		indexInfos = append(indexInfos, xi)
	}
	implicitMatInfo, err := bufferInfo(s.ImplicitMaterialBuffer())
	if err != nil {
		return err
	}
	materialInfos = append(materialInfos, implicitMatInfo)

	sceneDescInfo, err := bufferInfo(s.SceneDescriptionBuffer())
	if err != nil {
		return err
	}
	implicitInfo, err := bufferInfo(s.ImplicitBuffer())
	if err != nil {
		return err
	}

	writes = append(writes,
		d.bufferWrite(scene.BindingMaterials, materialInfos),
		d.bufferWrite(scene.BindingSceneDesc, []vk.DescriptorBufferInfo{sceneDescInfo}),
		d.bufferWrite(scene.BindingMatIndices, matIndexInfos),
		d.bufferWrite(scene.BindingVertices, vertexInfos),
		d.bufferWrite(scene.BindingIndices, indexInfos),
		d.bufferWrite(scene.BindingImplicits, []vk.DescriptorBufferInfo{implicitInfo}),
	)

	imageInfos := make([]vk.DescriptorImageInfo, 0, len(s.Textures()))
	for _, tex := range s.Textures() {
		vt, ok := tex.(*VulkanTexture)
		if !ok {
			return fmt.Errorf("texture %d is not a device texture", len(imageInfos))
		}
		imageInfos = append(imageInfos, vk.DescriptorImageInfo{
			Sampler:     vt.Sampler,
			ImageView:   vt.Image.View,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		})
	}
	writes = append(writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          d.Set,
		DstBinding:      uint32(scene.BindingTextures),
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: uint32(len(imageInfos)),
		PImageInfo:      imageInfos,
	})

	vk.UpdateDescriptorSets(d.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return nil
}

func (d *DescriptorBindings) bufferWrite(slot scene.BindingSlot, infos []vk.DescriptorBufferInfo) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          d.Set,
		DstBinding:      uint32(slot),
		DescriptorType:  slotDescriptorType(slot),
		DescriptorCount: uint32(len(infos)),
		PBufferInfo:     infos,
	}
}

func bufferInfo(buf scene.Buffer) (vk.DescriptorBufferInfo, error) {
	vb, ok := buf.(*VulkanBuffer)
	if !ok || vb == nil {
		return vk.DescriptorBufferInfo{}, fmt.Errorf("binding refers to a buffer the allocator does not own")
	}
	return vk.DescriptorBufferInfo{
		Buffer: vb.Handle,
		Offset: 0,
		Range:  vk.DeviceSize(vk.WholeSize),
	}, nil
}
