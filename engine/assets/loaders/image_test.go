package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePng(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: byte(x), G: byte(y), B: 0x40, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, "tex.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestImageLoaderDecodesToRGBA8(t *testing.T) {
	path := writePng(t, t.TempDir(), 4, 3)

	img, err := (&ImageLoader{}).Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(4), img.Width)
	assert.Equal(t, uint32(3), img.Height)
	require.Len(t, img.Pixels, 4*3*4)

	// Pixel (2,1): row-major, 4 bytes apiece.
	off := (1*4 + 2) * 4
	assert.Equal(t, byte(2), img.Pixels[off])
	assert.Equal(t, byte(1), img.Pixels[off+1])
	assert.Equal(t, byte(0x40), img.Pixels[off+2])
	assert.Equal(t, byte(0xff), img.Pixels[off+3])
}

func TestImageLoaderRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := (&ImageLoader{}).Load(path)
	require.Error(t, err)
}

func TestImageLoaderMissingFile(t *testing.T) {
	_, err := (&ImageLoader{}).Load(filepath.Join(t.TempDir(), "absent.png"))
	require.Error(t, err)
}
