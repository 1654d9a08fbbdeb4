package scene

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/math"
)

type fakeBlas struct{ index int }
type fakeTlas struct{ instances []TlasInstance }

type fakeAccelBackend struct {
	blasInputs    []BlasInput
	tlasInstances []TlasInstance
	destroyed     bool
	failBottom    bool
	shortHandles  bool
}

func (b *fakeAccelBackend) BuildBottomLevel(inputs []BlasInput) ([]BlasHandle, error) {
	if b.failBottom {
		return nil, fmt.Errorf("simulated device build failure")
	}
	b.blasInputs = inputs
	n := len(inputs)
	if b.shortHandles {
		n--
	}
	handles := make([]BlasHandle, n)
	for i := range handles {
		handles[i] = &fakeBlas{index: i}
	}
	return handles, nil
}

func (b *fakeAccelBackend) BuildTopLevel(instances []TlasInstance, blas []BlasHandle) (TlasHandle, error) {
	b.tlasInstances = instances
	return &fakeTlas{instances: instances}, nil
}

func (b *fakeAccelBackend) Destroy() { b.destroyed = true }

func loadedScene(t *testing.T, nModels int) *Scene {
	t.Helper()
	s, _ := newTestScene(t, &fakeAllocator{})
	for i := 0; i < nModels; i++ {
		require.NoError(t, s.LoadModel(makeMesh(3*(i+1)), math.NewMat4Translation(math.Vec3{X: float32(i)})))
	}
	require.NoError(t, s.CreateImplicitBuffers())
	return s
}

func TestBottomLevelInputsOnePerGeometryPlusImplicit(t *testing.T) {
	s := loadedScene(t, 3)
	s.AddImplicitSphere(math.Vec3{}, 1, 0)

	inputs, err := s.BottomLevelInputs()
	require.NoError(t, err)
	require.Len(t, inputs, 4)

	for i := 0; i < 3; i++ {
		assert.Equal(t, GeometryTriangles, inputs[i].Kind)
		assert.Equal(t, uint32(44), inputs[i].VertexStride)
		assert.Equal(t, s.Models()[i].IndexCount/3, inputs[i].PrimitiveCount())
		assert.Same(t, s.Models()[i].VertexBuffer, inputs[i].VertexBuffer)
	}

	last := inputs[3]
	assert.Equal(t, GeometryAABBs, last.Kind)
	assert.Equal(t, uint32(32), last.AabbStride)
	assert.Same(t, s.ImplicitBuffer(), last.AabbBuffer)
}

func TestBottomLevelInputsRequireImplicitBuffers(t *testing.T) {
	s, _ := newTestScene(t, &fakeAllocator{})
	require.NoError(t, s.LoadModel(makeMesh(3), math.NewMat4Identity()))

	_, err := s.BottomLevelInputs()
	require.Error(t, err)
}

func TestTopLevelInstancesOrderingAndImplicitWrapper(t *testing.T) {
	s := loadedScene(t, 3)

	records := s.TopLevelInstances()
	require.Len(t, records, len(s.Instances())+1, "one record per instance plus the implicit wrapper")

	for i := 0; i < 3; i++ {
		assert.Equal(t, uint32(i), records[i].CustomIndex)
		assert.Equal(t, HitGroupMesh, records[i].SBTOffset)
		assert.Equal(t, i, records[i].BlasIndex)
		assert.Equal(t, uint8(0xFF), records[i].Mask)
		// Translation lands in column 3 of the packed 3x4.
		assert.Equal(t, float32(i), records[i].Transform[3])
	}

	wrapper := records[3]
	assert.Equal(t, uint32(3), wrapper.CustomIndex)
	assert.Equal(t, HitGroupImplicit, wrapper.SBTOffset)
	assert.Equal(t, 3, wrapper.BlasIndex, "wrapper must address the last bottom-level entry")
	assert.Equal(t, PackTransform3x4(math.NewMat4Identity()), wrapper.Transform)
}

func TestPackTransform3x4(t *testing.T) {
	m := math.NewMat4Translation(math.Vec3{X: 1, Y: 2, Z: 3})
	packed := PackTransform3x4(m)

	// Rows carry the identity basis, translation in column 3.
	want := [12]float32{
		1, 0, 0, 1,
		0, 1, 0, 2,
		0, 0, 1, 3,
	}
	assert.Equal(t, want, packed)
}

func TestInitRayTracingBuildsBothLevels(t *testing.T) {
	s := loadedScene(t, 2)
	backend := &fakeAccelBackend{}

	require.NoError(t, s.InitRayTracing(backend))
	assert.Len(t, backend.blasInputs, 3)
	assert.Len(t, backend.tlasInstances, 3)
	require.NotNil(t, s.TopLevelHandle())

	// Rebuilding is not a supported path: structures are immutable.
	require.Error(t, s.InitRayTracing(backend))
}

func TestInitRayTracingBuildFailureIsFatal(t *testing.T) {
	s := loadedScene(t, 1)
	backend := &fakeAccelBackend{failBottom: true}

	require.Error(t, s.InitRayTracing(backend))
	assert.Nil(t, s.TopLevelHandle())
}

func TestInitRayTracingRejectsShortHandleList(t *testing.T) {
	s := loadedScene(t, 1)
	backend := &fakeAccelBackend{shortHandles: true}

	require.Error(t, s.InitRayTracing(backend))
}

func TestDestroyResourcesTearsDownAccelBackend(t *testing.T) {
	s := loadedScene(t, 1)
	backend := &fakeAccelBackend{}
	require.NoError(t, s.InitRayTracing(backend))

	s.DestroyResources()
	assert.True(t, backend.destroyed)
}
