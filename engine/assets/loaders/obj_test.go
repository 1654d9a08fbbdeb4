package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
)

func writeAsset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const quadObj = `# a unit quad out of two triangles
mtllib quad.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
usemtl red
f 1/1/1 2/2/1 3/3/1
usemtl blue
f 1/1/1 3/3/1 4/4/1
`

const quadMtl = `newmtl red
Kd 1 0 0
Ns 32
map_Kd red.png
newmtl blue
Kd 0 0 1
d 0.5
`

func TestObjLoaderParsesQuad(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "quad.mtl", quadMtl)
	path := writeAsset(t, dir, "quad.obj", quadObj)

	mesh, err := (&ObjLoader{}).Load(path)
	require.NoError(t, err)

	assert.Len(t, mesh.Vertices, 4, "shared corners must deduplicate")
	assert.Len(t, mesh.Indices, 6)
	require.Len(t, mesh.MatIndices, 2)
	assert.Equal(t, int32(0), mesh.MatIndices[0])
	assert.Equal(t, int32(1), mesh.MatIndices[1])

	require.Len(t, mesh.Materials, 2)
	assert.InDelta(t, 1.0, mesh.Materials[0].Diffuse.X, 1e-6)
	assert.InDelta(t, 32.0, mesh.Materials[0].Shininess, 1e-6)
	assert.Equal(t, int32(0), mesh.Materials[0].TextureID)
	assert.Equal(t, int32(-1), mesh.Materials[1].TextureID)
	assert.InDelta(t, 0.5, mesh.Materials[1].Dissolve, 1e-6)

	assert.Equal(t, []string{"red.png"}, mesh.Textures)

	// Texcoord origin is flipped to top-left.
	assert.InDelta(t, 1.0, mesh.Vertices[0].Texcoord.Y, 1e-6)
}

func TestObjLoaderTriangulatesPolygonFan(t *testing.T) {
	dir := t.TempDir()
	path := writeAsset(t, dir, "pentagon.obj", `
v 0 0 0
v 1 0 0
v 1.5 1 0
v 0.5 2 0
v -0.5 1 0
f 1 2 3 4 5
`)

	mesh, err := (&ObjLoader{}).Load(path)
	require.NoError(t, err)
	assert.Len(t, mesh.Indices, 9, "a pentagon fans into three triangles")
	assert.Len(t, mesh.MatIndices, 3)
	// No materials in the file: the default takes slot zero.
	require.Len(t, mesh.Materials, 1)
	assert.Equal(t, int32(0), mesh.MatIndices[0])
}

func TestObjLoaderGeneratesMissingNormals(t *testing.T) {
	dir := t.TempDir()
	path := writeAsset(t, dir, "tri.obj", `
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`)

	mesh, err := (&ObjLoader{}).Load(path)
	require.NoError(t, err)
	require.Len(t, mesh.Vertices, 3)
	for _, v := range mesh.Vertices {
		assert.InDelta(t, 1.0, v.Normal.Z, 1e-6, "counter-clockwise triangle in XY faces +Z")
	}
}

func TestObjLoaderNegativeIndices(t *testing.T) {
	dir := t.TempDir()
	path := writeAsset(t, dir, "rel.obj", `
v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`)

	mesh, err := (&ObjLoader{}).Load(path)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
}

func TestObjLoaderMalformedInputsAreFatal(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
	}{
		{"no faces", "v 0 0 0\nv 1 0 0\nv 0 1 0\n"},
		{"face index out of range", "v 0 0 0\nf 1 2 3\n"},
		{"bad vertex", "v 0 zero 0\nf 1 1 1\n"},
		{"short face", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeAsset(t, dir, "bad.obj", tc.content)
			_, err := (&ObjLoader{}).Load(path)
			require.ErrorIs(t, err, core.ErrMalformedMesh)
		})
	}
}

func TestObjLoaderMissingFile(t *testing.T) {
	_, err := (&ObjLoader{}).Load(filepath.Join(t.TempDir(), "nope.obj"))
	require.ErrorIs(t, err, core.ErrMalformedMesh)
}

func TestObjLoaderMissingMaterialLibDegrades(t *testing.T) {
	dir := t.TempDir()
	path := writeAsset(t, dir, "lonely.obj", `
mtllib missing.mtl
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`)

	mesh, err := (&ObjLoader{}).Load(path)
	require.NoError(t, err, "a missing mtl file must not fail the geometry load")
	require.Len(t, mesh.Materials, 1)
}
