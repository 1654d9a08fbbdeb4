package metadata

/**
 * @brief Decoded RGBA8 pixel data ready for staging upload.
 */
type ImageData struct {
	Width  uint32
	Height uint32
	/** @brief Tightly packed RGBA, len == Width*Height*4. */
	Pixels []byte
}

// NewSolidImage returns a 1x1 image of the given colour. Used for the
// opaque-white dummy texture when a scene has no textures at all, and for
// the magenta substitute when decoding a texture file fails.
func NewSolidImage(r, g, b, a byte) *ImageData {
	return &ImageData{Width: 1, Height: 1, Pixels: []byte{r, g, b, a}}
}
