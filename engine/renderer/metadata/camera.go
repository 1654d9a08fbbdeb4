package metadata

import "github.com/spaghettifunk/prism/engine/math"

/**
 * @brief The per-frame camera uniform block. Recomputed every frame from
 * the camera capability; never persisted.
 */
type CameraMatrices struct {
	View        math.Mat4
	Proj        math.Mat4
	ViewInverse math.Mat4
	ProjInverse math.Mat4
}

/**
 * @brief Push data supplied directly to the shader stages on every draw or
 * trace dispatch. InstanceID selects the scene-description record in the
 * raster path; Frame drives the accumulation weighting in the ray path.
 */
type PushConstants struct {
	InstanceID     int32
	Frame          int32
	LightPosition  math.Vec3
	LightIntensity float32
	LightType      int32
}
