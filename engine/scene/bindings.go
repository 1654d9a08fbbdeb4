package scene

// The descriptor binding contract shared by the raster and ray-tracing
// pipelines. Slot numbers and per-geometry array ordering here must match
// the shader code exactly: geometry i occupies position i in the material,
// material-index, vertex and index arrays alike.
type BindingSlot uint32

const (
	// Camera matrices uniform.
	BindingCamera BindingSlot = iota
	// Material arrays, one buffer per geometry plus one for the implicit set.
	BindingMaterials
	// Scene description (the instance table).
	BindingSceneDesc
	// Texture samplers, one per loaded texture.
	BindingTextures
	// Per-face material index buffers, one per geometry.
	BindingMatIndices
	// Vertex buffers, one per geometry.
	BindingVertices
	// Index buffers, one per geometry.
	BindingIndices
	// Implicit primitive buffer.
	BindingImplicits

	BindingSlotCount
)

/**
 * @brief BindingCounts snapshots the per-slot descriptor counts at layout
 * creation time. The counts are baked into the descriptor layout; when
 * either value grows the layout must be rebuilt, not merely rewritten.
 */
type BindingCounts struct {
	Objects  uint32
	Textures uint32
}

// CountFor returns the descriptor count for a binding slot under this
// snapshot.
func (bc BindingCounts) CountFor(slot BindingSlot) uint32 {
	switch slot {
	case BindingCamera, BindingSceneDesc, BindingImplicits:
		return 1
	case BindingMaterials:
		// One per geometry plus the implicit material buffer.
		return bc.Objects + 1
	case BindingTextures:
		return bc.Textures
	case BindingMatIndices, BindingVertices, BindingIndices:
		return bc.Objects
	default:
		return 0
	}
}

// BindingCounts returns the snapshot for the scene's current stores.
func (s *Scene) BindingCounts() BindingCounts {
	return BindingCounts{
		Objects:  uint32(len(s.models)),
		Textures: uint32(len(s.textures)),
	}
}
