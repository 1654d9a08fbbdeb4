package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

/**
 * @brief DeviceAllocator implements the scene's resource-allocation
 * capability on the Vulkan device. Buffer and texture uploads are staged
 * inside a transfer scope; EndTransfer submits the batch, waits for the
 * queue and releases every staging buffer at once.
 */
type DeviceAllocator struct {
	context *VulkanContext

	transfer *VulkanCommandBuffer
	staging  []*VulkanBuffer
}

func NewDeviceAllocator(context *VulkanContext) *DeviceAllocator {
	return &DeviceAllocator{context: context}
}

func (a *DeviceAllocator) BeginTransfer() error {
	if a.transfer != nil {
		return fmt.Errorf("transfer scope already open")
	}
	cb, err := AllocateAndBeginSingleUse(a.context, a.context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	a.transfer = cb
	return nil
}

func (a *DeviceAllocator) EndTransfer() error {
	if a.transfer == nil {
		return fmt.Errorf("no transfer scope open")
	}
	err := a.transfer.EndSingleUse(a.context, a.context.Device.GraphicsCommandPool, a.context.Device.GraphicsQueue)
	a.transfer = nil

	for _, s := range a.staging {
		s.Destroy(a.context)
	}
	a.staging = nil
	return err
}

func (a *DeviceAllocator) CreateBuffer(data []byte, usage scene.BufferUsage) (scene.Buffer, error) {
	if a.transfer == nil {
		return nil, fmt.Errorf("CreateBuffer outside transfer scope")
	}
	buffer, staging, err := NewDeviceLocalBuffer(a.context, a.transfer, data, translateUsage(usage))
	if err != nil {
		return nil, err
	}
	a.staging = append(a.staging, staging)
	return buffer, nil
}

func (a *DeviceAllocator) CreateUniformBuffer(size uint64) (scene.Buffer, error) {
	return NewVulkanBuffer(
		a.context,
		vk.DeviceSize(size),
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit|vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
}

func (a *DeviceAllocator) CreateTexture(img *metadata.ImageData) (scene.Texture, error) {
	if a.transfer == nil {
		return nil, fmt.Errorf("CreateTexture outside transfer scope")
	}
	texture, staging, err := NewSampledTexture(a.context, a.transfer, img.Width, img.Height, img.Pixels)
	if err != nil {
		return nil, err
	}
	a.staging = append(a.staging, staging)
	return texture, nil
}

func (a *DeviceAllocator) DestroyBuffer(buf scene.Buffer) {
	vb, ok := buf.(*VulkanBuffer)
	if !ok {
		core.LogWarn("DestroyBuffer called with a foreign buffer handle")
		return
	}
	vb.Destroy(a.context)
}

func (a *DeviceAllocator) DestroyTexture(tex scene.Texture) {
	vt, ok := tex.(*VulkanTexture)
	if !ok {
		core.LogWarn("DestroyTexture called with a foreign texture handle")
		return
	}
	vt.Destroy(a.context)
}

func translateUsage(usage scene.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlags
	if usage&scene.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if usage&scene.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if usage&scene.BufferUsageStorage != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	}
	if usage&scene.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	if usage&scene.BufferUsageTransferDst != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}
	if usage&scene.BufferUsageDeviceAddress != 0 {
		flags |= bufferUsageShaderDeviceAddressBit
	}
	if usage&scene.BufferUsageAccelBuildInput != 0 {
		flags |= bufferUsageAccelStructBuildInputReadOnlyBit
	}
	if usage&scene.BufferUsageShaderBindingTable != 0 {
		flags |= bufferUsageShaderBindingTableBit
	}
	return flags
}

// Ray-tracing usage bits by registry value; the binding's generated
// constants stop at the core 1.1 set.
const (
	// VK_BUFFER_USAGE_SHADER_BINDING_TABLE_BIT_KHR
	bufferUsageShaderBindingTableBit vk.BufferUsageFlags = 0x00000400
	// VK_BUFFER_USAGE_SHADER_DEVICE_ADDRESS_BIT
	bufferUsageShaderDeviceAddressBit vk.BufferUsageFlags = 0x00020000
	// VK_BUFFER_USAGE_ACCELERATION_STRUCTURE_BUILD_INPUT_READ_ONLY_BIT_KHR
	bufferUsageAccelStructBuildInputReadOnlyBit vk.BufferUsageFlags = 0x00080000
)
