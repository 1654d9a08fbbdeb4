package metadata

import "github.com/spaghettifunk/prism/engine/math"

type ImplicitType int32

const (
	ImplicitTypeSphere ImplicitType = iota
	ImplicitTypeCube
)

/**
 * @brief An analytic primitive rendered through the intersection shader.
 * Minimum/Maximum double as the AABB fed to the bottom-level acceleration
 * structure. 32 bytes, matching the shader-side record.
 */
type ImplicitPrimitive struct {
	Minimum math.Vec3
	Maximum math.Vec3
	ObjType ImplicitType
	/** @brief Index into the implicit material list, not the mesh materials. */
	MaterialID int32
}
