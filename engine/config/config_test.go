package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, uint32(1280), cfg.Window.Width)
	assert.Equal(t, int32(100), cfg.Renderer.MaxFrames)
	assert.True(t, cfg.Renderer.Raytracing)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_name = "demo"

[window]
width = 640
height = 480

[renderer]
max_frames = 10
clear_color = [0.1, 0.2, 0.3, 1.0]

[[scene.models]]
path = "media/scenes/wuson.obj"
scale = 2.0

[[scene.spheres]]
center = [0.0, 1.0, 0.0]
radius = 0.5

[scene.light]
position = [5.0, 5.0, 5.0]
intensity = 50.0
type = 1
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.AppName)
	assert.Equal(t, uint32(640), cfg.Window.Width)
	assert.Equal(t, int32(10), cfg.Renderer.MaxFrames)
	assert.Equal(t, [4]float32{0.1, 0.2, 0.3, 1.0}, cfg.Renderer.ClearColor)
	require.Len(t, cfg.Scene.Models, 1)
	assert.Equal(t, float32(2.0), cfg.Scene.Models[0].Scale)
	require.Len(t, cfg.Scene.Spheres, 1)
	assert.Equal(t, float32(0.5), cfg.Scene.Spheres[0].Radius)
	assert.Equal(t, int32(1), cfg.Scene.Light.Type)
	// Untouched sections keep their defaults.
	assert.Equal(t, "assets", cfg.AssetsDir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"zero window", "[window]\nwidth = 0\nheight = 0\n"},
		{"negative frames", "[renderer]\nmax_frames = -1\n"},
		{"bad sphere", "[[scene.spheres]]\nradius = 0.0\n"},
		{"model without path", "[[scene.models]]\nscale = 1.0\n"},
		{"broken toml", "not toml at all ["},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.toml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}
