package scene

import (
	"fmt"
	"unsafe"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type GeometryKind int

const (
	GeometryTriangles GeometryKind = iota
	GeometryAABBs
)

/**
 * @brief BlasInput describes one bottom-level acceleration structure build:
 * either one geometry entry's triangles, or the AABBs of the whole implicit
 * set. The referenced buffers were created with acceleration-build usage at
 * load time.
 */
type BlasInput struct {
	Kind GeometryKind

	// Triangle geometry.
	VertexBuffer Buffer
	VertexCount  uint32
	VertexStride uint32
	IndexBuffer  Buffer
	IndexCount   uint32

	// AABB geometry.
	AabbBuffer Buffer
	AabbCount  uint32
	AabbStride uint32

	Opaque bool
}

// PrimitiveCount returns the number of acceleration primitives this input
// produces.
func (in BlasInput) PrimitiveCount() uint32 {
	if in.Kind == GeometryAABBs {
		return in.AabbCount
	}
	return in.IndexCount / 3
}

// Hit-group (shader binding table) offsets. Mesh instances and the implicit
// wrapper use different hit groups so the dispatch logic can tell a
// triangle hit from an analytic one.
const (
	HitGroupMesh     uint32 = 0
	HitGroupImplicit uint32 = 1
)

/**
 * @brief TlasInstance is one packed top-level instance record: a row-major
 * 3x4 transform plus the identity/dispatch fields the device consumes.
 */
type TlasInstance struct {
	/** @brief Row-major 3x4 world transform, translation in column 3. */
	Transform [12]float32
	/** @brief Instance identity; equals the instance-table position. 24 bits. */
	CustomIndex uint32
	Mask        uint8
	/** @brief Hit-group offset into the shader binding table. */
	SBTOffset uint32
	/** @brief Index into the bottom-level handle list. */
	BlasIndex int
	/** @brief Disable triangle facing cull for this instance. */
	DisableFaceCull bool
}

// Opaque device-side acceleration structure handles, owned by the backend.
type (
	BlasHandle interface{}
	TlasHandle interface{}
)

/**
 * @brief AccelBackend executes acceleration-structure builds on the device.
 * The vendor-specific ray-tracing extension entry points live with the
 * integrating device layer; the scene prepares every build input and the
 * exact instance ordering on the host. Build failure is fatal: the caller
 * must not fall back to rasterization.
 */
type AccelBackend interface {
	BuildBottomLevel(inputs []BlasInput) ([]BlasHandle, error)
	BuildTopLevel(instances []TlasInstance, blas []BlasHandle) (TlasHandle, error)
	Destroy()
}

type accelState struct {
	backend AccelBackend
	blas    []BlasHandle
	tlas    TlasHandle
}

// PackTransform3x4 packs a column-major world transform into the row-major
// 3x4 layout top-level instance records use, translation in column 3.
func PackTransform3x4(m math.Mat4) [12]float32 {
	t := math.NewMat4Transposed(m)
	var out [12]float32
	copy(out[:], t.Data[:12])
	return out
}

// BottomLevelInputs produces one triangle input per geometry entry, in
// store order, plus exactly one AABB input wrapping the implicit set.
func (s *Scene) BottomLevelInputs() ([]BlasInput, error) {
	if s.implicitBuf == nil {
		return nil, fmt.Errorf("scene: implicit buffers must be created before acceleration build")
	}

	vertexStride := uint32(unsafe.Sizeof(metadata.Vertex{}))
	aabbStride := uint32(unsafe.Sizeof(metadata.ImplicitPrimitive{}))

	inputs := make([]BlasInput, 0, len(s.models)+1)
	for i := range s.models {
		model := &s.models[i]
		inputs = append(inputs, BlasInput{
			Kind:         GeometryTriangles,
			VertexBuffer: model.VertexBuffer,
			VertexCount:  model.VertexCount,
			VertexStride: vertexStride,
			IndexBuffer:  model.IndexBuffer,
			IndexCount:   model.IndexCount,
			Opaque:       true,
		})
	}
	inputs = append(inputs, BlasInput{
		Kind:       GeometryAABBs,
		AabbBuffer: s.implicitBuf,
		AabbCount:  uint32(len(s.implicits)),
		AabbStride: aabbStride,
	})
	return inputs, nil
}

// TopLevelInstances produces one record per instance-table entry, in table
// order, followed by exactly one wrapper for the implicit bottom-level
// structure. Hit-shader dispatch depends on this ordering: mesh instances
// first, implicit wrapper last.
func (s *Scene) TopLevelInstances() []TlasInstance {
	records := make([]TlasInstance, 0, len(s.instances)+1)
	for i := range s.instances {
		inst := &s.instances[i]
		records = append(records, TlasInstance{
			Transform:       PackTransform3x4(inst.Transform),
			CustomIndex:     uint32(i),
			Mask:            0xFF,
			SBTOffset:       HitGroupMesh,
			BlasIndex:       int(inst.ObjIndex),
			DisableFaceCull: true,
		})
	}
	// Implicit AABBs are authored in world space; the wrapper carries an
	// identity transform and always addresses the last bottom-level entry.
	records = append(records, TlasInstance{
		Transform:   PackTransform3x4(math.NewMat4Identity()),
		CustomIndex: uint32(len(s.instances)),
		Mask:        0xFF,
		SBTOffset:   HitGroupImplicit,
		BlasIndex:   len(s.models),
	})
	return records
}

// InitRayTracing builds the two-level acceleration hierarchy: one
// bottom-level structure per geometry source and one top-level structure
// instancing them. Build happens once per scene load; the structures are
// immutable afterward.
func (s *Scene) InitRayTracing(backend AccelBackend) error {
	if s.accel != nil {
		return fmt.Errorf("scene: acceleration structures already built")
	}

	inputs, err := s.BottomLevelInputs()
	if err != nil {
		return err
	}
	blas, err := backend.BuildBottomLevel(inputs)
	if err != nil {
		core.LogError("bottom-level acceleration build failed: %s", err)
		return err
	}
	if len(blas) != len(inputs) {
		return fmt.Errorf("scene: backend returned %d bottom-level handles for %d inputs", len(blas), len(inputs))
	}

	tlas, err := backend.BuildTopLevel(s.TopLevelInstances(), blas)
	if err != nil {
		core.LogError("top-level acceleration build failed: %s", err)
		return err
	}

	s.accel = &accelState{backend: backend, blas: blas, tlas: tlas}
	core.LogInfo("acceleration structures built: %d bottom-level, %d top-level instances",
		len(blas), len(s.instances)+1)
	return nil
}

// TopLevelHandle returns the ray-tracing entry point, or nil when
// InitRayTracing has not run.
func (s *Scene) TopLevelHandle() TlasHandle {
	if s.accel == nil {
		return nil
	}
	return s.accel.tlas
}
