package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/math"
)

func TestBindingCountsPerSlot(t *testing.T) {
	bc := BindingCounts{Objects: 3, Textures: 5}

	cases := []struct {
		slot BindingSlot
		want uint32
	}{
		{BindingCamera, 1},
		{BindingMaterials, 4}, // one per geometry plus the implicit materials
		{BindingSceneDesc, 1},
		{BindingTextures, 5},
		{BindingMatIndices, 3},
		{BindingVertices, 3},
		{BindingIndices, 3},
		{BindingImplicits, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, bc.CountFor(tc.slot), "slot %d", tc.slot)
	}
}

func TestBindingCountsSnapshotScene(t *testing.T) {
	s, _ := newTestScene(t, &fakeAllocator{})
	require.NoError(t, s.LoadModel(makeMesh(3), math.NewMat4Identity()))
	require.NoError(t, s.LoadModel(makeMesh(3), math.NewMat4Identity()))

	bc := s.BindingCounts()
	assert.Equal(t, uint32(2), bc.Objects)
	// Zero loaded texture files still leave the single white placeholder.
	assert.Equal(t, uint32(1), bc.Textures)
}

func TestBindingSlotNumbersAreTheSharedContract(t *testing.T) {
	// The slot numbers are consumed verbatim by the shader code of both
	// pipelines; renumbering is a breaking change.
	assert.Equal(t, BindingSlot(0), BindingCamera)
	assert.Equal(t, BindingSlot(1), BindingMaterials)
	assert.Equal(t, BindingSlot(2), BindingSceneDesc)
	assert.Equal(t, BindingSlot(3), BindingTextures)
	assert.Equal(t, BindingSlot(4), BindingMatIndices)
	assert.Equal(t, BindingSlot(5), BindingVertices)
	assert.Equal(t, BindingSlot(6), BindingIndices)
	assert.Equal(t, BindingSlot(7), BindingImplicits)
	assert.Equal(t, BindingSlot(8), BindingSlotCount)
}
