package scene

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageStorage
	BufferUsageUniform
	BufferUsageTransferDst
	BufferUsageDeviceAddress
	BufferUsageAccelBuildInput
	BufferUsageShaderBindingTable
)

// RayTracingBufferUsage is the usage set every vertex and index buffer is
// created with. The buffers later serve as acceleration-structure build
// input, so this set is required even when ray tracing is disabled.
const RayTracingBufferUsage = BufferUsageStorage | BufferUsageDeviceAddress | BufferUsageAccelBuildInput

// Buffer is an opaque handle to a device buffer owned by the Allocator.
type Buffer interface {
	Size() uint64
}

// Texture is an opaque handle to a device image + sampler pair owned by
// the Allocator.
type Texture interface{}

/**
 * @brief Allocator is the resource-allocation capability the scene consumes.
 * It owns all device memory; the scene only holds handles.
 *
 * Uploads happen inside a transfer scope: BeginTransfer opens a short-lived
 * command sequence, EndTransfer submits it and blocks until completion, then
 * releases all staging memory. Load-time correctness over throughput.
 */
type Allocator interface {
	BeginTransfer() error
	EndTransfer() error

	// CreateBuffer stages the host array into a new device-local buffer.
	// Must be called inside a transfer scope.
	CreateBuffer(data []byte, usage BufferUsage) (Buffer, error)
	// CreateUniformBuffer creates an empty device-local buffer suitable for
	// per-frame command-stream updates. Valid outside a transfer scope.
	CreateUniformBuffer(size uint64) (Buffer, error)
	// CreateTexture stages the pixel data into a new sampled image.
	// Must be called inside a transfer scope.
	CreateTexture(img *metadata.ImageData) (Texture, error)

	DestroyBuffer(buf Buffer)
	DestroyTexture(tex Texture)
}

// Camera is the camera-manipulation capability, polled once per frame.
type Camera interface {
	ViewMatrix() math.Mat4
	FieldOfView() float32
}

// ImageDecoder decodes a texture file into RGBA8 pixels. A returned error
// is a recoverable content error: the scene substitutes a placeholder.
type ImageDecoder func(path string) (*metadata.ImageData, error)

// MeshLoader parses a model file into host arrays. A returned error is
// fatal for the load.
type MeshLoader func(path string) (*metadata.MeshData, error)
