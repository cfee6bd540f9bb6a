package geometry

import (
	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// Box represents a rectangular box made up of 6 quads with optional rotation
type Box struct {
	Center   core.Vec3 // Center point of the box
	Size     core.Vec3 // Half-extents along each axis (half width, height, depth)
	Rotation core.Vec3 // Rotation angles in radians (X, Y, Z)
	Material core.BSDF // Material for all faces
	faces    [6]*Quad  // The 6 quad faces
	bbox     AABB       // Cached bounding box
}

// NewBox creates a new box with the given center, size, rotation, and material
// Size represents half-extents (so a size of (1,1,1) creates a 2x2x2 box)
// Rotation is in radians around X, Y, Z axes (applied in that order)
func NewBox(center, size, rotation core.Vec3, material core.BSDF) *Box {
	box := &Box{
		Center:   center,
		Size:     size,
		Rotation: rotation,
		Material: material,
	}

	box.generateFaces()

	return box
}

// NewAxisAlignedBox creates a new axis-aligned box (no rotation)
func NewAxisAlignedBox(center, size core.Vec3, material core.BSDF) *Box {
	return NewBox(center, size, core.NewVec3(0, 0, 0), material)
}

// generateFaces creates the 6 quad faces of the box
func (b *Box) generateFaces() {
	corners := [8]core.Vec3{
		core.NewVec3(-1, -1, -1),
		core.NewVec3(1, -1, -1),
		core.NewVec3(1, 1, -1),
		core.NewVec3(-1, 1, -1),
		core.NewVec3(-1, -1, 1),
		core.NewVec3(1, -1, 1),
		core.NewVec3(1, 1, 1),
		core.NewVec3(-1, 1, 1),
	}

	for i := range corners {
		corners[i] = core.NewVec3(
			corners[i].X*b.Size.X,
			corners[i].Y*b.Size.Y,
			corners[i].Z*b.Size.Z,
		)
		corners[i] = corners[i].Rotate(b.Rotation)
		corners[i] = corners[i].Add(b.Center)
	}

	b.faces[0] = NewQuad(corners[4], corners[5].Subtract(corners[4]), corners[7].Subtract(corners[4]), b.Material)
	b.faces[1] = NewQuad(corners[1], corners[0].Subtract(corners[1]), corners[2].Subtract(corners[1]), b.Material)
	b.faces[2] = NewQuad(corners[5], corners[1].Subtract(corners[5]), corners[6].Subtract(corners[5]), b.Material)
	b.faces[3] = NewQuad(corners[0], corners[4].Subtract(corners[0]), corners[3].Subtract(corners[0]), b.Material)
	b.faces[4] = NewQuad(corners[3], corners[7].Subtract(corners[3]), corners[2].Subtract(corners[3]), b.Material)
	b.faces[5] = NewQuad(corners[4], corners[0].Subtract(corners[4]), corners[5].Subtract(corners[4]), b.Material)

	b.bbox = NewAABBFromPoints(corners[0], corners[1], corners[2], corners[3],
		corners[4], corners[5], corners[6], corners[7])
}

// Hit tests if a ray intersects with any face of the box
func (b *Box) Hit(ray core.Ray, tMin, tMax float64) (*core.HitPoint, bool) {
	var closestHit *core.HitPoint
	closestT := tMax

	for _, face := range b.faces {
		if hit, isHit := face.Hit(ray, tMin, closestT); isHit {
			if hit.T < closestT {
				closestT = hit.T
				closestHit = hit
			}
		}
	}

	return closestHit, closestHit != nil
}

// BoundingBox returns the axis-aligned bounding box for this box
func (b *Box) BoundingBox() AABB {
	return b.bbox
}
