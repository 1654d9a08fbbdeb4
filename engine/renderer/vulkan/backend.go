package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/scene"
)

/**
 * @brief Renderer owns the Vulkan instance, device and the offscreen render
 * target, and records one rasterization pass per frame into it. Presentation
 * of the target image is left to the embedding application.
 */
type Renderer struct {
	platform *platform.Platform
	debug    bool

	context   *VulkanContext
	allocator *DeviceAllocator
	bindings  *DescriptorBindings
	pipeline  *VulkanPipeline

	vertShader *VulkanShaderStage
	fragShader *VulkanShaderStage

	commandBuffer *VulkanCommandBuffer
	frameFence    *VulkanFence

	FrameNumber uint64
}

func NewRenderer(p *platform.Platform, debug bool) *Renderer {
	return &Renderer{
		platform: p,
		debug:    debug,
		context:  &VulkanContext{},
	}
}

func (vr *Renderer) Initialize(appName string, width, height uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	// TODO: custom allocator.
	vr.context.Allocator = nil
	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Prism Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	if vr.platform != nil && vr.platform.Window != nil {
		requiredExtensions = append(requiredExtensions, vr.platform.Window.GetRequiredInstanceExtensions()...)
	}

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugUtilsExtensionName, vk.ExtDebugReportExtensionName)
		core.LogInfo("Required extensions:")
		for i := 0; i < len(requiredExtensions); i++ {
			core.LogInfo(requiredExtensions[i])
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	requiredValidationLayerNames := []string{}
	if vr.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredValidationLayerNames = []string{"VK_LAYER_KHRONOS_validation"}

		if runtime.GOOS == "darwin" {
			createInfo.Flags |= 1
		}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res, true))
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layers: %s", VulkanResultString(res, true))
		}

		for i := range requiredValidationLayerNames {
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				end := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
				if requiredValidationLayerNames[i] == vk.ToString(availableLayers[j].LayerName[:end+1]) {
					found = true
					break
				}
			}
			if !found {
				err := fmt.Errorf("required validation layer is missing: %s", requiredValidationLayerNames[i])
				core.LogError(err.Error())
				return err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledLayerCount = uint32(len(requiredValidationLayerNames))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredValidationLayerNames)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed to create the Vulkan instance: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if vr.debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg); res != vk.Success {
			core.LogWarn("vk.CreateDebugReportCallback failed with %s", VulkanResultString(res, true))
		} else {
			vr.context.debugMessenger = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}

	if err := DeviceCreate(vr.context); err != nil {
		core.LogError("failed to create device: %s", err.Error())
		return err
	}

	if !DeviceDetectDepthFormat(vr.context.Device) {
		err := fmt.Errorf("failed to find a supported depth format")
		core.LogError(err.Error())
		return err
	}

	renderpass, err := RenderpassCreate(vr.context,
		float32(width), float32(height),
		0.0, 0.0, 0.0, 1.0,
		1.0, 0)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = renderpass

	target, err := NewRenderTarget(vr.context, renderpass, width, height)
	if err != nil {
		return err
	}
	vr.context.Target = target

	cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
	if err != nil {
		return err
	}
	vr.commandBuffer = cb

	fence, err := NewFence(vr.context, true)
	if err != nil {
		return err
	}
	vr.frameFence = fence

	vr.allocator = NewDeviceAllocator(vr.context)

	core.LogInfo("Vulkan renderer initialized.")
	return nil
}

// Allocator returns the device allocator backing scene resource uploads.
func (vr *Renderer) Allocator() *DeviceAllocator {
	return vr.allocator
}

// SetClearColor sets the color the offscreen target is cleared to at the
// start of every pass.
func (vr *Renderer) SetClearColor(r, g, b, a float32) {
	rp := vr.context.MainRenderpass
	rp.R, rp.G, rp.B, rp.A = r, g, b, a
}

/**
 * @brief PrepareScene builds the descriptor bindings for the scene's current
 * resource counts and the graphics pipeline consuming them. Must be called
 * after the scene's resources are uploaded and before the first frame.
 */
func (vr *Renderer) PrepareScene(s *scene.Scene, vertShaderPath, fragShaderPath string) error {
	bindings, err := NewDescriptorBindings(vr.context, s.BindingCounts())
	if err != nil {
		return err
	}
	if err := bindings.UpdateFromScene(s); err != nil {
		bindings.Destroy()
		return err
	}
	vr.bindings = bindings

	vert, err := NewShaderModule(vr.context, vertShaderPath, vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	vr.vertShader = vert

	frag, err := NewShaderModule(vr.context, fragShaderPath, vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	vr.fragShader = frag

	pipeline, err := NewGraphicsPipeline(vr.context, &VulkanPipelineConfig{
		Renderpass:           vr.context.MainRenderpass,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{bindings.Layout},
		Stages: []vk.PipelineShaderStageCreateInfo{
			vert.ShaderStageCreateInfo,
			frag.ShaderStageCreateInfo,
		},
		Viewport: vk.Viewport{
			X: 0, Y: float32(vr.context.FramebufferHeight),
			Width:    float32(vr.context.FramebufferWidth),
			Height:   -float32(vr.context.FramebufferHeight),
			MinDepth: 0.0, MaxDepth: 1.0,
		},
		Scissor: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: vr.context.FramebufferWidth, Height: vr.context.FramebufferHeight},
		},
	})
	if err != nil {
		return err
	}
	vr.pipeline = pipeline
	return nil
}

/**
 * @brief RefreshBindings rebuilds the descriptor set after the scene's
 * resource counts changed, e.g. a model was hot-reloaded with a different
 * texture set.
 */
func (vr *Renderer) RefreshBindings(s *scene.Scene) error {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	if err := vr.bindings.Rebuild(s.BindingCounts()); err != nil {
		return err
	}
	return vr.bindings.UpdateFromScene(s)
}

/**
 * @brief RenderFrame records and submits one rasterization pass over the
 * scene's instance table, waiting for the previous frame's fence first.
 */
func (vr *Renderer) RenderFrame(s *scene.Scene) error {
	if !vr.frameFence.FenceWait(vr.context, fenceWaitTimeoutNs) {
		return fmt.Errorf("frame fence wait failed")
	}
	if err := vr.frameFence.FenceReset(vr.context); err != nil {
		return err
	}

	cb := vr.commandBuffer
	cb.Reset()
	if err := cb.Begin(false, false, false); err != nil {
		return err
	}

	recorder := NewCommandRecorder(vr.context, cb, vr.pipeline, vr.bindings)

	// Camera upload happens outside the render pass.
	s.UpdateCameraBuffer(recorder)

	vr.context.MainRenderpass.RenderpassBegin(cb, vr.context.Target.Framebuffer.Handle)
	recorder.BindPipeline()
	if err := s.Rasterize(recorder); err != nil {
		vr.context.MainRenderpass.RenderpassEnd(cb)
		cb.End()
		return err
	}
	vr.context.MainRenderpass.RenderpassEnd(cb)

	if err := cb.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}
	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vr.frameFence.Handle); res != vk.Success {
		err := fmt.Errorf("queue submit failed: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	cb.UpdateSubmitted()

	vr.FrameNumber++
	return nil
}

/**
 * @brief Raytrace dispatches the scene's ray generation over the output
 * extent through an application-provided ray recorder. The raster pipeline
 * is untouched; convergence policy lives in the scene's accumulator.
 */
func (vr *Renderer) Raytrace(s *scene.Scene, rec scene.RayRecorder, clearColor math.Vec4) {
	s.Raytrace(rec, clearColor)
}

// Resized recreates the offscreen target at the new extent. The caller must
// already have propagated the size to the scene.
func (vr *Renderer) Resized(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}

	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height
	vr.context.MainRenderpass.W = float32(width)
	vr.context.MainRenderpass.H = float32(height)

	return vr.context.Target.Resize(vr.context, vr.context.MainRenderpass, width, height)
}

// WaitIdle blocks until the device finished all submitted work. Call before
// destroying resources the in-flight frame may still read.
func (vr *Renderer) WaitIdle() {
	if vr.context.Device != nil && vr.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	}
}

// Shutdown tears everything down in reverse dependency order. Scene
// resources must already be destroyed through the allocator.
func (vr *Renderer) Shutdown() {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	if vr.pipeline != nil {
		vr.pipeline.Destroy(vr.context)
		vr.pipeline = nil
	}
	if vr.vertShader != nil {
		vr.vertShader.Destroy(vr.context)
		vr.vertShader = nil
	}
	if vr.fragShader != nil {
		vr.fragShader.Destroy(vr.context)
		vr.fragShader = nil
	}
	if vr.bindings != nil {
		vr.bindings.Destroy()
		vr.bindings = nil
	}
	if vr.frameFence != nil {
		vr.frameFence.FenceDestroy(vr.context)
		vr.frameFence = nil
	}
	if vr.commandBuffer != nil {
		vr.commandBuffer.Free(vr.context, vr.context.Device.GraphicsCommandPool)
		vr.commandBuffer = nil
	}
	if vr.context.Target != nil {
		vr.context.Target.Destroy(vr.context)
		vr.context.Target = nil
	}
	if vr.context.MainRenderpass != nil {
		vr.context.MainRenderpass.RenderpassDestroy(vr.context)
		vr.context.MainRenderpass = nil
	}

	DeviceDestroy(vr.context)

	if vr.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		vr.context.debugMessenger = vk.NullDebugReportCallback
	}

	if vr.context.Instance != nil {
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		vr.context.Instance = nil
	}
	core.LogInfo("Vulkan renderer shut down.")
}

// One second, in nanoseconds.
const fenceWaitTimeoutNs uint64 = 1_000_000_000

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogInfo("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
