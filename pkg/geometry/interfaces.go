package geometry

import "github.com/df07/go-progressive-raytracer/pkg/core"

// AABB and Shape are aliases onto the core package's definitions so every
// shape in this package can be stored interchangeably in a core.Shape-based
// BVH.
type AABB = core.AABB
type Shape = core.Shape

var (
	NewAABB           = core.NewAABB
	NewAABBFromPoints  = core.NewAABBFromPoints
)
