package metadata

import "github.com/spaghettifunk/prism/engine/math"

/**
 * @brief A flat, fixed-layout material record shared by both pipelines.
 * Field order and sizes must match the shader-side scalar block layout;
 * the record is 80 bytes. Immutable once uploaded.
 */
type Material struct {
	Ambient       math.Vec3
	Diffuse       math.Vec3
	Specular      math.Vec3
	Transmittance math.Vec3
	Emission      math.Vec3
	Shininess     float32
	IOR           float32
	Dissolve      float32
	/** @brief Illumination model (see wavefront mtl illum). */
	Illum int32
	/** @brief Index into the model-local texture list, -1 when untextured. */
	TextureID int32
}

// NewDefaultMaterial mirrors the loader fallback used when an asset carries
// no material definitions at all.
func NewDefaultMaterial() Material {
	return Material{
		Ambient:   math.Vec3{X: 0.1, Y: 0.1, Z: 0.1},
		Diffuse:   math.Vec3{X: 0.7, Y: 0.7, Z: 0.7},
		Specular:  math.Vec3{X: 1.0, Y: 1.0, Z: 1.0},
		Shininess: 1.0,
		IOR:       1.0,
		Dissolve:  1.0,
		Illum:     1,
		TextureID: -1,
	}
}

// Linearize gamma-decodes the authoring-space colour triples into linear
// shading space. Applied exactly once, at load time.
func (m *Material) Linearize(gamma float32) {
	m.Ambient = m.Ambient.Pow(gamma)
	m.Diffuse = m.Diffuse.Pow(gamma)
	m.Specular = m.Specular.Pow(gamma)
}
