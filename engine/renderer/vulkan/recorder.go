package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

/**
 * @brief CommandRecorder adapts one open command buffer to the scene's
 * recording capabilities: per-draw raster commands and fenced in-frame
 * buffer updates. One recorder is valid for exactly one frame.
 */
type CommandRecorder struct {
	context  *VulkanContext
	cb       *VulkanCommandBuffer
	pipeline *VulkanPipeline
	bindings *DescriptorBindings
}

func NewCommandRecorder(context *VulkanContext, cb *VulkanCommandBuffer, pipeline *VulkanPipeline, bindings *DescriptorBindings) *CommandRecorder {
	return &CommandRecorder{
		context:  context,
		cb:       cb,
		pipeline: pipeline,
		bindings: bindings,
	}
}

// BindPipeline binds the raster pipeline, its descriptor set and the
// dynamic viewport state for the current target extent.
func (r *CommandRecorder) BindPipeline() {
	r.pipeline.Bind(r.cb, vk.PipelineBindPointGraphics)
	vk.CmdBindDescriptorSets(r.cb.Handle,
		vk.PipelineBindPointGraphics,
		r.pipeline.PipelineLayout,
		0, 1, []vk.DescriptorSet{r.bindings.Set},
		0, nil)

	viewport := vk.Viewport{
		Width:    float32(r.context.FramebufferWidth),
		Height:   float32(r.context.FramebufferHeight),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(r.cb.Handle, 0, 1, []vk.Viewport{viewport})
	scissor := vk.Rect2D{
		Extent: vk.Extent2D{
			Width:  r.context.FramebufferWidth,
			Height: r.context.FramebufferHeight,
		},
	}
	vk.CmdSetScissor(r.cb.Handle, 0, 1, []vk.Rect2D{scissor})
}

func (r *CommandRecorder) PushConstants(pc metadata.PushConstants) {
	data := unsafe.Slice((*byte)(unsafe.Pointer(&pc)), unsafe.Sizeof(pc))
	vk.CmdPushConstants(r.cb.Handle,
		r.pipeline.PipelineLayout,
		vk.ShaderStageFlags(vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit),
		0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (r *CommandRecorder) BindGeometry(vertexBuffer, indexBuffer scene.Buffer) {
	vb, ok := vertexBuffer.(*VulkanBuffer)
	if !ok {
		core.LogError("BindGeometry called with a foreign vertex buffer")
		return
	}
	ib, ok := indexBuffer.(*VulkanBuffer)
	if !ok {
		core.LogError("BindGeometry called with a foreign index buffer")
		return
	}
	vk.CmdBindVertexBuffers(r.cb.Handle, 0, 1, []vk.Buffer{vb.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(r.cb.Handle, ib.Handle, 0, vk.IndexTypeUint32)
}

func (r *CommandRecorder) DrawIndexed(indexCount uint32) {
	vk.CmdDrawIndexed(r.cb.Handle, indexCount, 1, 0, 0, 0)
}

// UpdateBuffer records an in-frame device-local buffer update, fenced on
// both sides so the new contents are only visible to this frame's reads.
func (r *CommandRecorder) UpdateBuffer(buf scene.Buffer, data []byte) {
	vb, ok := buf.(*VulkanBuffer)
	if !ok {
		core.LogError("UpdateBuffer called with a foreign buffer")
		return
	}

	before := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
		DstAccessMask: vk.AccessFlags(vk.AccessTransferWriteBit),
	}
	vk.CmdPipelineBarrier(r.cb.Handle,
		vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0,
		1, []vk.MemoryBarrier{before},
		0, nil,
		0, nil)

	vk.CmdUpdateBuffer(r.cb.Handle, vb.Handle, 0, vk.DeviceSize(len(data)), unsafe.Pointer(&data[0]))

	after := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
	}
	vk.CmdPipelineBarrier(r.cb.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit),
		0,
		1, []vk.MemoryBarrier{after},
		0, nil,
		0, nil)
}
