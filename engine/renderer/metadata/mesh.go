package metadata

import "github.com/spaghettifunk/prism/engine/math"

/**
 * @brief Represents a single mesh vertex as consumed by the vertex input
 * stage and by the closest-hit shaders through the vertex storage buffers.
 * 44 bytes, no padding.
 */
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	Color    math.Vec3
	Texcoord math.Vec2
}

/**
 * @brief A parsed mesh asset: everything the model store needs to create
 * the device-resident geometry entry. Produced by the asset loaders.
 */
type MeshData struct {
	Vertices []Vertex
	Indices  []uint32
	/** @brief One material record per distinct material in the asset. */
	Materials []Material
	/** @brief One entry per triangle, indexing into Materials. */
	MatIndices []int32
	/** @brief Texture filenames referenced by the materials, in TextureID order. */
	Textures []string
}

/**
 * @brief One scene-description record per instance, uploaded as a storage
 * buffer and read by the vertex, fragment and hit shader stages.
 */
type InstanceData struct {
	Transform   math.Mat4
	TransformIT math.Mat4
	/** @brief Index of the geometry entry this instance places. */
	ObjIndex int32
	/** @brief Offset of this instance's textures in the global texture array. */
	TexOffset int32
}
