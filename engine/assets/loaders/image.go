package loaders

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief ImageLoader decodes texture files into tightly packed RGBA8 pixel
 * buffers. PNG, JPEG and BMP are registered; a decode failure is returned
 * to the caller, which substitutes a placeholder (recoverable content
 * error, never fatal).
 */
type ImageLoader struct{}

func (il *ImageLoader) Load(path string) (*metadata.ImageData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	src, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	bounds := src.Bounds()
	rgba, ok := src.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	}

	out := &metadata.ImageData{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Pixels: rgba.Pix,
	}
	if len(out.Pixels) != int(out.Width*out.Height*4) {
		return nil, fmt.Errorf("decoding %s (%s): unexpected pixel buffer size", path, format)
	}
	return out, nil
}
