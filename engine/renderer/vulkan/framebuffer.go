package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
)

// Format of the offscreen color attachment the raster pass renders into.
const OffscreenColorFormat = vk.FormatR8g8b8a8Unorm

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

// VulkanRenderTarget owns the offscreen color and depth images the raster
// pipeline renders into, plus the framebuffer binding them to the pass.
type VulkanRenderTarget struct {
	Color       *VulkanImage
	Depth       *VulkanImage
	Framebuffer *VulkanFramebuffer
	Width       uint32
	Height      uint32
}

func FramebufferCreate(context *VulkanContext, renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	outFramebuffer := &VulkanFramebuffer{
		Attachments: make([]vk.ImageView, len(attachments)),
		Renderpass:  renderpass,
	}
	copy(outFramebuffer.Attachments, attachments)

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var pFramebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &pFramebuffer); res != vk.Success {
		err := fmt.Errorf("failed to create framebuffer: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	outFramebuffer.Handle = pFramebuffer
	return outFramebuffer, nil
}

func (vfb *VulkanFramebuffer) Destroy(context *VulkanContext) {
	vk.DestroyFramebuffer(context.Device.LogicalDevice, vfb.Handle, context.Allocator)
	vfb.Attachments = nil
	vfb.Handle = vk.NullFramebuffer
	vfb.Renderpass = nil
}

func NewRenderTarget(context *VulkanContext, renderpass *VulkanRenderpass, width, height uint32) (*VulkanRenderTarget, error) {
	target := &VulkanRenderTarget{
		Width:  width,
		Height: height,
	}

	var err error
	target.Color, err = NewVulkanImage(
		context,
		width, height,
		OffscreenColorFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageSampledBit|vk.ImageUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit),
		true)
	if err != nil {
		return nil, err
	}

	target.Depth, err = NewVulkanImage(
		context,
		width, height,
		context.Device.DepthFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		true)
	if err != nil {
		target.Color.Destroy(context)
		return nil, err
	}

	target.Framebuffer, err = FramebufferCreate(context, renderpass, width, height, []vk.ImageView{target.Color.View, target.Depth.View})
	if err != nil {
		target.Depth.Destroy(context)
		target.Color.Destroy(context)
		return nil, err
	}
	return target, nil
}

// Resize recreates the target images at the new extent. Callers must ensure
// the device is idle first.
func (t *VulkanRenderTarget) Resize(context *VulkanContext, renderpass *VulkanRenderpass, width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	t.Destroy(context)

	recreated, err := NewRenderTarget(context, renderpass, width, height)
	if err != nil {
		return err
	}
	*t = *recreated
	return nil
}

func (t *VulkanRenderTarget) Destroy(context *VulkanContext) {
	if t.Framebuffer != nil {
		t.Framebuffer.Destroy(context)
		t.Framebuffer = nil
	}
	if t.Depth != nil {
		t.Depth.Destroy(context)
		t.Depth = nil
	}
	if t.Color != nil {
		t.Color.Destroy(context)
		t.Color = nil
	}
}
