package engine

import (
	"path/filepath"

	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/camera"
	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/vulkan"
	"github.com/spaghettifunk/prism/engine/scene"
)

/**
 * @brief Application wires the window, camera, renderer and scene together
 * and drives the frame loop. One instance per process.
 */
type Application struct {
	config   *config.Config
	camera   *camera.Orbit
	platform *platform.Platform
	renderer *vulkan.Renderer
	scene    *scene.Scene
	watcher  *assets.Watcher

	clock   *core.Clock
	metrics *core.Metrics

	isRunning     bool
	pendingResize bool
	resizeWidth   uint32
	resizeHeight  uint32
}

func New(cfg *config.Config, debug bool) (*Application, error) {
	cam := camera.New()

	plat, err := platform.New(cam)
	if err != nil {
		return nil, err
	}

	return &Application{
		config:   cfg,
		camera:   cam,
		platform: plat,
		renderer: vulkan.NewRenderer(plat, debug),
		clock:    core.NewClock(),
		metrics:  core.NewMetrics(),
	}, nil
}

// Initialize brings up the window and device, uploads every scene resource
// named in the configuration and prepares the descriptor bindings and
// pipeline consuming them.
func (app *Application) Initialize() error {
	cfg := app.config

	if err := app.platform.Startup(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height); err != nil {
		return err
	}
	app.platform.OnResize = app.onResize

	if err := app.renderer.Initialize(cfg.AppName, cfg.Window.Width, cfg.Window.Height); err != nil {
		return err
	}
	cc := cfg.Renderer.ClearColor
	app.renderer.SetClearColor(cc[0], cc[1], cc[2], cc[3])

	objLoader := &loaders.ObjLoader{}
	imgLoader := &loaders.ImageLoader{}
	s, err := scene.New(&scene.Config{
		Allocator: app.renderer.Allocator(),
		Camera:    app.camera,
		Decoder:   imgLoader.Load,
		Loader:    objLoader.Load,
		MaxFrames: cfg.Renderer.MaxFrames,
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
	})
	if err != nil {
		return err
	}
	app.scene = s

	if err := app.loadSceneContent(); err != nil {
		return err
	}

	vertPath := filepath.Join(cfg.AssetsDir, "shaders", "scene.vert.spv")
	fragPath := filepath.Join(cfg.AssetsDir, "shaders", "scene.frag.spv")
	if err := app.renderer.PrepareScene(s, vertPath, fragPath); err != nil {
		return err
	}

	if cfg.Renderer.Raytracing {
		// Acceleration-structure building needs a device backend with the
		// ray-tracing extensions; without one the raster path is used.
		core.LogWarn("ray tracing requested but no acceleration backend is wired, falling back to rasterization")
	}

	watcher, err := assets.NewWatcher()
	if err != nil {
		core.LogWarn("asset watcher unavailable: %s", err)
	} else if err := watcher.Watch(cfg.AssetsDir); err != nil {
		core.LogWarn("asset watcher failed on %s: %s", cfg.AssetsDir, err)
		watcher.Close()
	} else {
		app.watcher = watcher
	}

	app.isRunning = true
	return nil
}

func (app *Application) loadSceneContent() error {
	cfg := app.config

	for _, m := range cfg.Scene.Models {
		scale := m.Scale
		if scale == 0 {
			scale = 1
		}
		transform := math.NewMat4Translation(math.Vec3{X: m.Translate[0], Y: m.Translate[1], Z: m.Translate[2]}).
			Mul(math.NewMat4Scale(math.Vec3{X: scale, Y: scale, Z: scale}))
		if err := app.scene.LoadModelFile(filepath.Join(cfg.AssetsDir, m.Path), transform); err != nil {
			return err
		}
	}

	for _, sp := range cfg.Scene.Spheres {
		app.scene.AddImplicitSphere(math.Vec3{X: sp.Center[0], Y: sp.Center[1], Z: sp.Center[2]}, sp.Radius, sp.Material)
	}
	for _, cu := range cfg.Scene.Cubes {
		app.scene.AddImplicitCube(
			math.Vec3{X: cu.Minimum[0], Y: cu.Minimum[1], Z: cu.Minimum[2]},
			math.Vec3{X: cu.Maximum[0], Y: cu.Maximum[1], Z: cu.Maximum[2]},
			cu.Material)
	}
	if len(cfg.Scene.Spheres)+len(cfg.Scene.Cubes) > 0 {
		mat := metadata.NewDefaultMaterial()
		mat.Diffuse = math.Vec3{X: 0.8, Y: 0.8, Z: 0.8}
		app.scene.AddImplicitMaterial(mat)
	}

	light := cfg.Scene.Light
	app.scene.SetLight(math.Vec3{X: light.Position[0], Y: light.Position[1], Z: light.Position[2]}, light.Intensity, light.Type)

	if err := app.scene.CreateImplicitBuffers(); err != nil {
		return err
	}
	if err := app.scene.CreateCameraBuffer(); err != nil {
		return err
	}
	return app.scene.CreateSceneDescriptionBuffer()
}

// Run drives the frame loop until the window closes or Shutdown is called.
func (app *Application) Run() error {
	app.clock.Start()
	app.clock.Update()

	for app.isRunning && !app.platform.ShouldClose() {
		app.platform.PumpMessages()
		app.drainAssetChanges()

		if app.pendingResize {
			if err := app.renderer.Resized(app.resizeWidth, app.resizeHeight); err != nil {
				return err
			}
			app.scene.OnResize(app.resizeWidth, app.resizeHeight)
			app.pendingResize = false
		}

		if err := app.renderer.RenderFrame(app.scene); err != nil {
			return err
		}

		app.clock.Update()
		app.metrics.Update(app.clock.DeltaSeconds())
		if app.renderer.FrameNumber%600 == 0 {
			fps, ms := app.metrics.Frame()
			core.LogDebug("frame %d: %.1f fps, %.2f ms", app.renderer.FrameNumber, fps, ms)
		}
	}

	return app.Shutdown()
}

// drainAssetChanges empties the watcher channel. Any change restarts
// accumulation so the next frames reflect the new content.
func (app *Application) drainAssetChanges() {
	if app.watcher == nil {
		return
	}
	for {
		select {
		case change := <-app.watcher.Changes():
			core.LogInfo("asset changed: %s", change.Path)
			app.scene.ResetFrame()
		default:
			return
		}
	}
}

func (app *Application) onResize(width, height uint32) {
	app.pendingResize = true
	app.resizeWidth = width
	app.resizeHeight = height
}

// Shutdown tears everything down in reverse initialization order: watcher,
// scene resources, device objects, then the window.
func (app *Application) Shutdown() error {
	if !app.isRunning {
		return nil
	}
	app.isRunning = false
	app.clock.Stop()

	if app.watcher != nil {
		app.watcher.Close()
		app.watcher = nil
	}
	if app.scene != nil {
		app.renderer.WaitIdle()
		app.scene.DestroyResources()
		app.scene = nil
	}
	if app.renderer != nil {
		app.renderer.Shutdown()
		app.renderer = nil
	}
	return app.platform.Shutdown()
}
