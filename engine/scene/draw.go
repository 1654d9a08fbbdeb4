package scene

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief DrawRecorder records the rasterization path's per-draw commands.
 * Implemented over the device command buffer by renderer/vulkan; tests use
 * an in-memory fake.
 */
type DrawRecorder interface {
	PushConstants(pc metadata.PushConstants)
	BindGeometry(vertexBuffer, indexBuffer Buffer)
	DrawIndexed(indexCount uint32)
}

// RayRecorder records one ray-tracing dispatch over the full output extent.
type RayRecorder interface {
	TraceRays(width, height uint32, clearColor math.Vec4, pc metadata.PushConstants)
}

// FrameRecorder schedules an in-frame buffer update, fenced so the write is
// not visible to the previous frame's reads nor overtaken by this frame's.
type FrameRecorder interface {
	UpdateBuffer(buf Buffer, data []byte)
}

// Rasterize issues one indexed draw per instance, strictly in instance-table
// order. No reordering, batching or culling: the instance index pushed per
// draw must equal the table position.
func (s *Scene) Rasterize(rec DrawRecorder) error {
	for i := range s.instances {
		inst := &s.instances[i]
		if inst.ObjIndex >= uint32(len(s.models)) {
			core.LogError("instance %d references geometry %d of %d", i, inst.ObjIndex, len(s.models))
			return core.ErrGeometryIndex
		}
		model := &s.models[inst.ObjIndex]

		s.push.InstanceID = int32(i)
		rec.PushConstants(s.push)
		rec.BindGeometry(model.VertexBuffer, model.IndexBuffer)
		rec.DrawIndexed(model.IndexCount)
	}
	return nil
}

// Raytrace evaluates the accumulation state machine and, unless the image
// has converged, records one trace dispatch. Skipping when converged leaves
// the previously produced image on screen; it is a compute-avoidance policy,
// not an error.
func (s *Scene) Raytrace(rec RayRecorder, clearColor math.Vec4) {
	frame := s.accum.Update(s.camera.ViewMatrix(), s.camera.FieldOfView())
	if s.accum.Converged() {
		return
	}
	s.push.Frame = frame
	rec.TraceRays(s.width, s.height, clearColor, s.push)
}
