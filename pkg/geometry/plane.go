package geometry

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// Plane represents an infinite plane defined by a point and normal
type Plane struct {
	Point    core.Vec3
	Normal   core.Vec3
	Material core.BSDF
}

// NewPlane creates a new plane
func NewPlane(point, normal core.Vec3, material core.BSDF) *Plane {
	return &Plane{
		Point:    point,
		Normal:   normal.Normalize(),
		Material: material,
	}
}

// Hit tests if a ray intersects with the plane
func (p *Plane) Hit(ray core.Ray, tMin, tMax float64) (*core.HitPoint, bool) {
	denominator := ray.Direction.Dot(p.Normal)
	if math.Abs(denominator) < 1e-8 {
		return nil, false
	}

	t := p.Point.Subtract(ray.Origin).Dot(p.Normal) / denominator
	if t < tMin || t > tMax {
		return nil, false
	}

	hitPoint := ray.At(t)

	hit := &core.HitPoint{
		T:        t,
		Point:    hitPoint,
		Material: p.Material,
	}
	hit.SetFaceNormal(ray, p.Normal)

	return hit, true
}

// BoundingBox returns an effectively-infinite bounding box; planes are not
// meant to be stored in a finite-scene BVH leaf without one of the other
// bounded shapes alongside them.
func (p *Plane) BoundingBox() AABB {
	const big = 1e6
	return NewAABB(core.NewVec3(-big, -big, -big), core.NewVec3(big, big, big))
}
