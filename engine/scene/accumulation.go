package scene

import (
	"github.com/spaghettifunk/prism/engine/math"
)

/**
 * @brief Accumulator tracks how many ray-traced samples have been blended
 * into the output image for the current camera pose. Session-scoped state,
 * owned by the scene; there are no package-level statics.
 *
 * The counter resets to zero on any change of the view matrix or field of
 * view (exact equality, no tolerance) and increments by one otherwise.
 * Once the counter reaches the target the image is considered converged
 * and the ray-tracing pipeline is skipped until the next reset.
 */
type Accumulator struct {
	refView math.Mat4
	refFov  float32
	frame   int32
	target  int32
}

// resetSentinel makes the Update immediately following a reset land on
// frame zero.
const resetSentinel int32 = -1

func NewAccumulator(target int32) *Accumulator {
	return &Accumulator{
		frame:  resetSentinel,
		target: target,
	}
}

// Update evaluates the transition rule for one frame and returns the new
// counter value. Must be called exactly once per frame, before deciding
// whether to invoke the ray-tracing pipeline.
func (a *Accumulator) Update(view math.Mat4, fov float32) int32 {
	if view != a.refView || fov != a.refFov {
		a.frame = resetSentinel
		a.refView = view
		a.refFov = fov
	}
	a.frame++
	return a.frame
}

// Reset forces re-accumulation: the next Update returns zero regardless of
// camera state. Invoked on resize and on any external invalidation.
func (a *Accumulator) Reset() {
	a.frame = resetSentinel
}

// Frame returns the current counter value.
func (a *Accumulator) Frame() int32 {
	return a.frame
}

// Converged reports whether the target sample count has been reached.
func (a *Accumulator) Converged() bool {
	return a.frame >= a.target
}

// Target returns the configured maximum number of accumulated frames.
func (a *Accumulator) Target() int32 {
	return a.target
}
