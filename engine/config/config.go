package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// MaxFrames bounds progressive accumulation; rendering pauses once this
	// many frames have been blended.
	MaxFrames  int32      `toml:"max_frames"`
	ClearColor [4]float32 `toml:"clear_color"`
	Raytracing bool       `toml:"raytracing"`
}

type ModelConfig struct {
	Path      string     `toml:"path"`
	Translate [3]float32 `toml:"translate"`
	Scale     float32    `toml:"scale"`
}

type SphereConfig struct {
	Center   [3]float32 `toml:"center"`
	Radius   float32    `toml:"radius"`
	Material int32      `toml:"material"`
}

type CubeConfig struct {
	Minimum  [3]float32 `toml:"minimum"`
	Maximum  [3]float32 `toml:"maximum"`
	Material int32      `toml:"material"`
}

type LightConfig struct {
	Position  [3]float32 `toml:"position"`
	Intensity float32    `toml:"intensity"`
	// 0 point light, 1 infinite (directional).
	Type int32 `toml:"type"`
}

type SceneConfig struct {
	Models  []ModelConfig  `toml:"models"`
	Spheres []SphereConfig `toml:"spheres"`
	Cubes   []CubeConfig   `toml:"cubes"`
	Light   LightConfig    `toml:"light"`
}

type Config struct {
	AppName   string         `toml:"app_name"`
	AssetsDir string         `toml:"assets_dir"`
	Window    WindowConfig   `toml:"window"`
	Renderer  RendererConfig `toml:"renderer"`
	Scene     SceneConfig    `toml:"scene"`
}

func Default() *Config {
	return &Config{
		AppName:   "Prism",
		AssetsDir: "assets",
		Window: WindowConfig{
			Title:  "Prism",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			MaxFrames:  100,
			ClearColor: [4]float32{1, 1, 1, 1},
			Raytracing: true,
		},
		Scene: SceneConfig{
			Light: LightConfig{
				Position:  [3]float32{10, 15, 8},
				Intensity: 100,
			},
		},
	}
}

// Load reads the TOML file at path over the defaults. A missing file is not
// an error; the defaults stand.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size must be non-zero, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.MaxFrames <= 0 {
		return fmt.Errorf("renderer max_frames must be positive, got %d", c.Renderer.MaxFrames)
	}
	for i, s := range c.Scene.Spheres {
		if s.Radius <= 0 {
			return fmt.Errorf("sphere %d has non-positive radius", i)
		}
	}
	for i, m := range c.Scene.Models {
		if m.Path == "" {
			return fmt.Errorf("model %d has no path", i)
		}
	}
	return nil
}
