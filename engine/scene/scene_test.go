package scene

import (
	"encoding/binary"
	"fmt"
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type fakeBuffer struct {
	data  []byte
	usage BufferUsage
}

func (b *fakeBuffer) Size() uint64 { return uint64(len(b.data)) }

type fakeTexture struct {
	img *metadata.ImageData
}

type fakeAllocator struct {
	inTransfer        bool
	transferCount     int
	buffers           []*fakeBuffer
	textures          []*fakeTexture
	destroyedBuffers  int
	destroyedTextures int
	failBufferAfter   int // fail the Nth CreateBuffer call (1-based), 0 = never
	bufferCalls       int
}

func (a *fakeAllocator) BeginTransfer() error {
	a.inTransfer = true
	a.transferCount++
	return nil
}

func (a *fakeAllocator) EndTransfer() error {
	a.inTransfer = false
	return nil
}

func (a *fakeAllocator) CreateBuffer(data []byte, usage BufferUsage) (Buffer, error) {
	if !a.inTransfer {
		return nil, fmt.Errorf("CreateBuffer outside transfer scope")
	}
	a.bufferCalls++
	if a.failBufferAfter > 0 && a.bufferCalls >= a.failBufferAfter {
		return nil, fmt.Errorf("simulated allocation failure")
	}
	buf := &fakeBuffer{data: append([]byte(nil), data...), usage: usage}
	a.buffers = append(a.buffers, buf)
	return buf, nil
}

func (a *fakeAllocator) CreateUniformBuffer(size uint64) (Buffer, error) {
	buf := &fakeBuffer{data: make([]byte, size), usage: BufferUsageUniform}
	a.buffers = append(a.buffers, buf)
	return buf, nil
}

func (a *fakeAllocator) CreateTexture(img *metadata.ImageData) (Texture, error) {
	if !a.inTransfer {
		return nil, fmt.Errorf("CreateTexture outside transfer scope")
	}
	tex := &fakeTexture{img: img}
	a.textures = append(a.textures, tex)
	return tex, nil
}

func (a *fakeAllocator) DestroyBuffer(buf Buffer)   { a.destroyedBuffers++ }
func (a *fakeAllocator) DestroyTexture(tex Texture) { a.destroyedTextures++ }

type fakeCamera struct {
	view math.Mat4
	fov  float32
}

func (c *fakeCamera) ViewMatrix() math.Mat4 { return c.view }
func (c *fakeCamera) FieldOfView() float32  { return c.fov }
func (c *fakeCamera) lookFrom(x float32)    { c.view = math.NewMat4Translation(math.Vec3{X: x}) }

func newTestScene(t *testing.T, alloc *fakeAllocator) (*Scene, *fakeCamera) {
	t.Helper()
	cam := &fakeCamera{view: math.NewMat4Identity(), fov: 60}
	s, err := New(&Config{
		Allocator: alloc,
		Camera:    cam,
		MaxFrames: 10,
		Width:     800,
		Height:    600,
	})
	require.NoError(t, err)
	return s, cam
}

// makeMesh builds a valid mesh with the given number of vertices, one
// triangle per three vertices.
func makeMesh(nVertices int) *metadata.MeshData {
	mesh := &metadata.MeshData{}
	for i := 0; i < nVertices; i++ {
		mesh.Vertices = append(mesh.Vertices, metadata.Vertex{
			Position: math.Vec3{X: float32(i)},
			Normal:   math.Vec3{Z: 1},
		})
	}
	for i := 0; i+2 < nVertices; i += 3 {
		mesh.Indices = append(mesh.Indices, uint32(i), uint32(i+1), uint32(i+2))
	}
	return mesh
}

func TestLoadModelAppendsAlignedEntries(t *testing.T) {
	alloc := &fakeAllocator{}
	s, _ := newTestScene(t, alloc)

	const n = 4
	for i := 0; i < n; i++ {
		require.NoError(t, s.LoadModel(makeMesh(3), math.NewMat4Translation(math.Vec3{X: float32(i)})))
	}

	require.Len(t, s.Models(), n)
	require.Len(t, s.Instances(), n)
	for i, inst := range s.Instances() {
		assert.Equal(t, uint32(i), inst.ObjIndex, "instance %d must reference geometry %d", i, i)
	}
	// One blocking transfer per load.
	assert.Equal(t, n, alloc.transferCount)
}

func TestLoadModelVertexBuffersCarryAccelUsage(t *testing.T) {
	alloc := &fakeAllocator{}
	s, _ := newTestScene(t, alloc)
	require.NoError(t, s.LoadModel(makeMesh(3), math.NewMat4Identity()))

	model := s.Models()[0]
	vb := model.VertexBuffer.(*fakeBuffer)
	ib := model.IndexBuffer.(*fakeBuffer)
	for _, buf := range []*fakeBuffer{vb, ib} {
		assert.NotZero(t, buf.usage&BufferUsageStorage)
		assert.NotZero(t, buf.usage&BufferUsageDeviceAddress)
		assert.NotZero(t, buf.usage&BufferUsageAccelBuildInput)
	}
	assert.NotZero(t, vb.usage&BufferUsageVertex)
	assert.NotZero(t, ib.usage&BufferUsageIndex)
}

func TestLoadModelZeroTexturesYieldsOneWhitePlaceholder(t *testing.T) {
	alloc := &fakeAllocator{}
	s, _ := newTestScene(t, alloc)

	require.NoError(t, s.LoadModel(makeMesh(3), math.NewMat4Identity()))
	require.NoError(t, s.LoadModel(makeMesh(3), math.NewMat4Identity()))

	require.Len(t, s.Textures(), 1)
	img := alloc.textures[0].img
	assert.Equal(t, uint32(1), img.Width)
	assert.Equal(t, uint32(1), img.Height)
	assert.Equal(t, []byte{255, 255, 255, 255}, img.Pixels)
}

func TestLoadModelDecodeFailureSubstitutesMagenta(t *testing.T) {
	alloc := &fakeAllocator{}
	cam := &fakeCamera{view: math.NewMat4Identity(), fov: 60}
	s, err := New(&Config{
		Allocator: alloc,
		Camera:    cam,
		MaxFrames: 10,
		Width:     800,
		Height:    600,
		Decoder: func(path string) (*metadata.ImageData, error) {
			return nil, fmt.Errorf("unreadable: %s", path)
		},
	})
	require.NoError(t, err)

	mesh := makeMesh(3)
	mesh.Textures = []string{"missing.png"}
	require.NoError(t, s.LoadModel(mesh, math.NewMat4Identity()), "decode failure must not fail the load")

	require.Len(t, s.Textures(), 1)
	assert.Equal(t, []byte{255, 0, 255, 255}, alloc.textures[0].img.Pixels)
}

func TestLoadModelTexOffsetTracksGlobalTextureCount(t *testing.T) {
	alloc := &fakeAllocator{}
	cam := &fakeCamera{view: math.NewMat4Identity(), fov: 60}
	s, err := New(&Config{
		Allocator: alloc,
		Camera:    cam,
		MaxFrames: 10,
		Width:     800,
		Height:    600,
		Decoder: func(path string) (*metadata.ImageData, error) {
			return metadata.NewSolidImage(1, 2, 3, 255), nil
		},
	})
	require.NoError(t, err)

	first := makeMesh(3)
	first.Textures = []string{"a.png", "b.png"}
	second := makeMesh(3)
	second.Textures = []string{"c.png"}

	require.NoError(t, s.LoadModel(first, math.NewMat4Identity()))
	require.NoError(t, s.LoadModel(second, math.NewMat4Identity()))

	assert.Equal(t, uint32(0), s.Instances()[0].TexOffset)
	assert.Equal(t, uint32(2), s.Instances()[1].TexOffset)
	assert.Len(t, s.Textures(), 3)
}

func TestLoadModelMalformedMeshIsFatal(t *testing.T) {
	cases := []struct {
		name string
		mesh *metadata.MeshData
	}{
		{"nil mesh", nil},
		{"no vertices", &metadata.MeshData{Indices: []uint32{0, 1, 2}}},
		{"no indices", &metadata.MeshData{Vertices: make([]metadata.Vertex, 3)}},
		{"index count not triangles", &metadata.MeshData{
			Vertices: make([]metadata.Vertex, 3),
			Indices:  []uint32{0, 1},
		}},
		{"index out of range", &metadata.MeshData{
			Vertices: make([]metadata.Vertex, 3),
			Indices:  []uint32{0, 1, 7},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alloc := &fakeAllocator{}
			s, _ := newTestScene(t, alloc)
			err := s.LoadModel(tc.mesh, math.NewMat4Identity())
			require.ErrorIs(t, err, core.ErrMalformedMesh)
			assert.Empty(t, s.Models(), "no partial entry may be appended")
			assert.Empty(t, s.Instances())
			assert.Empty(t, alloc.buffers, "validation must run before any allocation")
		})
	}
}

func TestLoadModelAllocationFailureLeavesNoPartialEntry(t *testing.T) {
	alloc := &fakeAllocator{failBufferAfter: 3}
	s, _ := newTestScene(t, alloc)

	err := s.LoadModel(makeMesh(3), math.NewMat4Identity())
	require.Error(t, err)
	assert.Empty(t, s.Models())
	assert.Empty(t, s.Instances())
	// The two buffers created before the failure were destroyed again.
	assert.Equal(t, 2, alloc.destroyedBuffers)
}

func readFloat32(t *testing.T, data []byte, offset int) float32 {
	t.Helper()
	require.LessOrEqual(t, offset+4, len(data))
	return stdmath.Float32frombits(binary.LittleEndian.Uint32(data[offset : offset+4]))
}

func TestLoadModelLinearizesMaterialColors(t *testing.T) {
	alloc := &fakeAllocator{}
	s, _ := newTestScene(t, alloc)

	mesh := makeMesh(3)
	mesh.Materials = []metadata.Material{{
		Ambient:  math.Vec3{X: 0.5, Y: 0.5, Z: 0.5},
		Diffuse:  math.Vec3{X: 0.5, Y: 0.5, Z: 0.5},
		Specular: math.Vec3{X: 0.5, Y: 0.5, Z: 0.5},
	}}
	mesh.MatIndices = []int32{0}
	require.NoError(t, s.LoadModel(mesh, math.NewMat4Identity()))

	matBuf := s.Models()[0].MatColorBuffer.(*fakeBuffer)
	want := float32(stdmath.Pow(0.5, 2.2)) // ≈ 0.2176
	// Ambient at offset 0, diffuse at 12, specular at 24 in the 80-byte record.
	for _, offset := range []int{0, 12, 24} {
		got := readFloat32(t, matBuf.data, offset)
		assert.InDelta(t, want, got, 1e-5)
	}
}

func TestImplicitBuffersNeverEmpty(t *testing.T) {
	alloc := &fakeAllocator{}
	s, _ := newTestScene(t, alloc)

	require.NoError(t, s.CreateImplicitBuffers())

	implBuf := s.ImplicitBuffer().(*fakeBuffer)
	matBuf := s.ImplicitMaterialBuffer().(*fakeBuffer)
	assert.Equal(t, uint64(32), implBuf.Size(), "exactly one default-valued primitive")
	assert.Equal(t, uint64(80), matBuf.Size(), "exactly one default-valued material")
}

func TestAddImplicitSphereBounds(t *testing.T) {
	alloc := &fakeAllocator{}
	s, _ := newTestScene(t, alloc)

	s.AddImplicitSphere(math.Vec3{X: 1, Y: 2, Z: 3}, 0.5, 7)
	require.NoError(t, s.CreateImplicitBuffers())

	implBuf := s.ImplicitBuffer().(*fakeBuffer)
	require.Equal(t, uint64(32), implBuf.Size())
	assert.InDelta(t, 0.5, readFloat32(t, implBuf.data, 0), 1e-6)  // min.x
	assert.InDelta(t, 1.5, readFloat32(t, implBuf.data, 12), 1e-6) // max.x
}

func TestSceneDescriptionBufferMatchesInstances(t *testing.T) {
	alloc := &fakeAllocator{}
	s, _ := newTestScene(t, alloc)

	require.NoError(t, s.LoadModel(makeMesh(3), math.NewMat4Identity()))
	require.NoError(t, s.LoadModel(makeMesh(6), math.NewMat4Identity()))
	require.NoError(t, s.CreateSceneDescriptionBuffer())

	descBuf := s.SceneDescriptionBuffer().(*fakeBuffer)
	const recordSize = 2*64 + 2*4 // two mat4s plus objIndex and texOffset
	assert.Equal(t, uint64(2*recordSize), descBuf.Size())
}

func TestDestroyResourcesRunsOnce(t *testing.T) {
	alloc := &fakeAllocator{}
	s, _ := newTestScene(t, alloc)

	require.NoError(t, s.LoadModel(makeMesh(3), math.NewMat4Identity()))
	require.NoError(t, s.CreateImplicitBuffers())
	require.NoError(t, s.CreateCameraBuffer())
	require.NoError(t, s.CreateSceneDescriptionBuffer())

	s.DestroyResources()
	// 4 scene-level buffers + 4 geometry buffers.
	assert.Equal(t, 8, alloc.destroyedBuffers)
	assert.Equal(t, 1, alloc.destroyedTextures)

	s.DestroyResources()
	assert.Equal(t, 8, alloc.destroyedBuffers, "second call must be a no-op")
}

func TestCameraMatricesAreConsistentInverses(t *testing.T) {
	alloc := &fakeAllocator{}
	s, cam := newTestScene(t, alloc)
	cam.lookFrom(5)

	m := s.CameraMatrices()
	roundTrip := m.View.Mul(m.ViewInverse)
	identity := math.NewMat4Identity()
	for i := 0; i < 16; i++ {
		assert.InDelta(t, identity.Data[i], roundTrip.Data[i], 1e-5)
	}
}
