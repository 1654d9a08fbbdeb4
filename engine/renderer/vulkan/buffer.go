package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
)

type VulkanBuffer struct {
	Handle    vk.Buffer
	Memory    vk.DeviceMemory
	TotalSize vk.DeviceSize
	Usage     vk.BufferUsageFlags
}

// Size implements the allocator buffer contract.
func (b *VulkanBuffer) Size() uint64 {
	return uint64(b.TotalSize)
}

func NewVulkanBuffer(
	context *VulkanContext,
	size vk.DeviceSize,
	usage vk.BufferUsageFlags,
	memoryPropertyFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {

	buffer := &VulkanBuffer{
		TotalSize: size,
		Usage:     usage,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &buffer.Handle); res != vk.Success {
		err := fmt.Errorf("failed to create buffer: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}

	var memReq vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memReq)
	memReq.Deref()

	memoryIndex := context.FindMemoryIndex(memReq.MemoryTypeBits, uint32(memoryPropertyFlags))
	if memoryIndex < 0 {
		buffer.Destroy(context)
		return nil, fmt.Errorf("no suitable memory type for buffer of %d bytes", size)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &buffer.Memory); res != vk.Success {
		buffer.Destroy(context)
		err := fmt.Errorf("failed to allocate buffer memory: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		buffer.Destroy(context)
		return nil, fmt.Errorf("failed to bind buffer memory: %s", VulkanResultString(res, true))
	}

	return buffer, nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = vk.NullBuffer
	}
	b.TotalSize = 0
}

// LoadData maps the buffer's memory and copies data into it. Only valid on
// host-visible buffers.
func (b *VulkanBuffer) LoadData(context *VulkanContext, offset vk.DeviceSize, data []byte) error {
	var pData unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, offset, vk.DeviceSize(len(data)), 0, &pData); res != vk.Success {
		err := fmt.Errorf("failed to map buffer memory: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	return nil
}

// CopyTo records a full copy into dest on the given command buffer.
func (b *VulkanBuffer) CopyTo(cb *VulkanCommandBuffer, dest *VulkanBuffer, size vk.DeviceSize) {
	copyRegion := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}
	vk.CmdCopyBuffer(cb.Handle, b.Handle, dest.Handle, 1, []vk.BufferCopy{copyRegion})
}

// NewDeviceLocalBuffer creates a device-local buffer and fills it from data
// through a host-visible staging buffer on the provided transfer command
// buffer. The returned staging buffer must outlive the submission; the
// caller frees it after the transfer completes.
func NewDeviceLocalBuffer(
	context *VulkanContext,
	cb *VulkanCommandBuffer,
	data []byte,
	usage vk.BufferUsageFlags) (*VulkanBuffer, *VulkanBuffer, error) {

	size := vk.DeviceSize(len(data))

	staging, err := NewVulkanBuffer(
		context,
		size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, nil, err
	}
	if err := staging.LoadData(context, 0, data); err != nil {
		staging.Destroy(context)
		return nil, nil, err
	}

	deviceLocal, err := NewVulkanBuffer(
		context,
		size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		staging.Destroy(context)
		return nil, nil, err
	}

	staging.CopyTo(cb, deviceLocal, size)
	return deviceLocal, staging, nil
}
