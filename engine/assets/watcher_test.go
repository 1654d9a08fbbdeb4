package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want AssetKind
	}{
		{"models/cube.obj", AssetKindModel},
		{"models/cube.mtl", AssetKindModel},
		{"textures/wood.png", AssetKindImage},
		{"textures/wood.jpeg", AssetKindImage},
		{"shaders/raytrace.rgen", AssetKindShader},
		{"shaders/frag.spv", AssetKindShader},
		{"notes.txt", AssetKindNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classify(tc.path), tc.path)
	}
}

func TestWatcherIndexesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "models")
	require.NoError(t, os.Mkdir(sub, 0o755))
	objPath := filepath.Join(sub, "cube.obj")
	require.NoError(t, os.WriteFile(objPath, []byte("v 0 0 0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(dir))

	assert.True(t, w.Known(objPath), "pre-existing assets are indexed on Watch")
	assert.False(t, w.Known(filepath.Join(dir, "readme.txt")))
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(dir))

	texPath := filepath.Join(dir, "albedo.png")
	require.NoError(t, os.WriteFile(texPath, []byte("png-ish"), 0o644))

	select {
	case c := <-w.Changes():
		assert.Equal(t, texPath, c.Path)
		assert.Equal(t, AssetKindImage, c.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("no change event for new texture")
	}
}
