package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type drawCall struct {
	instanceID   int32
	vertexBuffer Buffer
	indexBuffer  Buffer
	indexCount   uint32
}

type fakeDrawRecorder struct {
	pending metadata.PushConstants
	bound   [2]Buffer
	calls   []drawCall
}

func (r *fakeDrawRecorder) PushConstants(pc metadata.PushConstants) {
	r.pending = pc
}

func (r *fakeDrawRecorder) BindGeometry(vertexBuffer, indexBuffer Buffer) {
	r.bound = [2]Buffer{vertexBuffer, indexBuffer}
}

func (r *fakeDrawRecorder) DrawIndexed(indexCount uint32) {
	r.calls = append(r.calls, drawCall{
		instanceID:   r.pending.InstanceID,
		vertexBuffer: r.bound[0],
		indexBuffer:  r.bound[1],
		indexCount:   indexCount,
	})
}

type traceCall struct {
	width, height uint32
	clearColor    math.Vec4
	frame         int32
}

type fakeRayRecorder struct {
	calls []traceCall
}

func (r *fakeRayRecorder) TraceRays(width, height uint32, clearColor math.Vec4, pc metadata.PushConstants) {
	r.calls = append(r.calls, traceCall{width: width, height: height, clearColor: clearColor, frame: pc.Frame})
}

func TestRasterizeDrawsInstancesInLoadOrder(t *testing.T) {
	alloc := &fakeAllocator{}
	s, _ := newTestScene(t, alloc)

	require.NoError(t, s.LoadModel(makeMesh(3), math.NewMat4Identity()))
	require.NoError(t, s.LoadModel(makeMesh(5), math.NewMat4Identity()))

	rec := &fakeDrawRecorder{}
	require.NoError(t, s.Rasterize(rec))

	require.Len(t, rec.calls, 2, "exactly one indexed draw per instance")
	models := s.Models()
	for i, call := range rec.calls {
		assert.Equal(t, int32(i), call.instanceID)
		assert.Same(t, models[i].VertexBuffer, call.vertexBuffer, "draw %d must bind its own vertex buffer", i)
		assert.Same(t, models[i].IndexBuffer, call.indexBuffer, "draw %d must bind its own index buffer", i)
		assert.Equal(t, models[i].IndexCount, call.indexCount)
	}
}

func TestRasterizeRejectsDanglingGeometryIndex(t *testing.T) {
	alloc := &fakeAllocator{}
	s, _ := newTestScene(t, alloc)

	require.NoError(t, s.LoadModel(makeMesh(3), math.NewMat4Identity()))
	s.instances[0].ObjIndex = 5

	err := s.Rasterize(&fakeDrawRecorder{})
	require.ErrorIs(t, err, core.ErrGeometryIndex)
}

func TestRaytraceSkipsWhenConverged(t *testing.T) {
	alloc := &fakeAllocator{}
	cam := &fakeCamera{view: staticView(), fov: 60}
	s, err := New(&Config{
		Allocator: alloc,
		Camera:    cam,
		MaxFrames: 3,
		Width:     320,
		Height:    200,
	})
	require.NoError(t, err)

	rec := &fakeRayRecorder{}
	clear := math.Vec4{X: 1, W: 1}
	for i := 0; i < 10; i++ {
		s.Raytrace(rec, clear)
	}
	// Frames 0, 1, 2 accumulate; frame 3 onward is converged and skipped.
	require.Len(t, rec.calls, 3)
	for i, call := range rec.calls {
		assert.Equal(t, int32(i), call.frame)
		assert.Equal(t, uint32(320), call.width)
		assert.Equal(t, uint32(200), call.height)
		assert.Equal(t, clear, call.clearColor)
	}

	// Moving the camera re-enters accumulation.
	cam.lookFrom(9)
	s.Raytrace(rec, clear)
	require.Len(t, rec.calls, 4)
	assert.Equal(t, int32(0), rec.calls[3].frame)
}

func TestUpdateCameraBufferWritesFullBlock(t *testing.T) {
	alloc := &fakeAllocator{}
	s, _ := newTestScene(t, alloc)
	require.NoError(t, s.CreateCameraBuffer())

	var gotBuf Buffer
	var gotLen int
	s.UpdateCameraBuffer(frameRecorderFunc(func(buf Buffer, data []byte) {
		gotBuf = buf
		gotLen = len(data)
	}))

	assert.Same(t, s.CameraBuffer(), gotBuf)
	assert.Equal(t, 256, gotLen, "four mat4s")
}

type frameRecorderFunc func(buf Buffer, data []byte)

func (f frameRecorderFunc) UpdateBuffer(buf Buffer, data []byte) { f(buf, data) }
