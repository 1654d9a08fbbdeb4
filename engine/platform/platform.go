package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/prism/engine/camera"
	"github.com/spaghettifunk/prism/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window

	// OnResize is invoked from the framebuffer-size callback with the new
	// extent. A zero extent (minimized window) is reported as-is.
	OnResize func(width, height uint32)

	camera *camera.Orbit

	lastX, lastY float64
	orbiting     bool
	panning      bool
}

func New(cam *camera.Orbit) (*Platform, error) {
	return &Platform{camera: cam}, nil
}

func (p *Platform) Startup(applicationName string, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	if p.camera != nil {
		p.camera.SetWindowSize(width, height)
	}

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetScrollCallback(p.scrollCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
	}
	glfw.Terminate()
	return nil
}

func (p *Platform) ShouldClose() bool {
	return p.Window.ShouldClose()
}

func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.KeyEscape, glfw.KeyQ:
		w.SetShouldClose(true)
	case glfw.KeyR:
		if p.camera != nil {
			p.camera.Reset()
		}
	}
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	pressed := action == glfw.Press
	switch button {
	case glfw.MouseButtonLeft:
		p.orbiting = pressed
	case glfw.MouseButtonMiddle, glfw.MouseButtonRight:
		p.panning = pressed
	}
	if pressed {
		p.lastX, p.lastY = w.GetCursorPos()
	}
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	if p.camera == nil || (!p.orbiting && !p.panning) {
		return
	}
	dx := float32(xpos - p.lastX)
	dy := float32(ypos - p.lastY)
	p.lastX, p.lastY = xpos, ypos

	if p.orbiting {
		p.camera.Orbit(dx, dy)
	} else {
		p.camera.Pan(dx, dy)
	}
}

func (p *Platform) scrollCallback(w *glfw.Window, xoff, yoff float64) {
	if p.camera != nil {
		p.camera.Dolly(float32(yoff))
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	if p.camera != nil {
		p.camera.SetWindowSize(uint32(width), uint32(height))
	}
	if p.OnResize != nil {
		p.OnResize(uint32(width), uint32(height))
	}
}
