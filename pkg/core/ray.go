package core

import "math"

// RayFlags records what a ray is being used for, so intersection and BSDF
// code can special-case volume boundaries and shadow probes without an
// extra parameter on every call.
type RayFlags uint8

const (
	RayNone RayFlags = 0
	// RayVisibility marks a shadow/occlusion probe: intersection code can
	// stop at the first hit instead of finding the closest one.
	RayVisibility RayFlags = 1 << iota
	// RayVolume marks a ray currently traveling through a participating
	// medium, so volume boundary checks know to apply.
	RayVolume
)

// rayEpsilon scales with the magnitude of the origin so offsets stay
// meaningful far from the world origin, matching the offset convention
// used throughout the original tracer's geometry kernel.
const rayEpsilon = 1e-4

// Ray represents a ray with an origin, direction, a valid parametric range
// [TMin, TMax], a time sample (for motion blur) and usage flags.
type Ray struct {
	Origin    Vec3
	Direction Vec3
	TMin      float64
	TMax      float64
	Time      float64
	Flags     RayFlags
}

// NewRay creates a ray with a default valid range starting at an
// origin-scaled epsilon and extending to infinity.
func NewRay(origin, direction Vec3) Ray {
	return Ray{
		Origin:    origin,
		Direction: direction,
		TMin:      rayEpsilon * math.Max(1.0, origin.Length()),
		TMax:      math.Inf(1),
		Time:      0,
	}
}

// NewRayTo creates a normalized ray from origin toward target, with TMax
// clamped just short of the target distance so the target itself is not
// re-intersected.
func NewRayTo(origin, target Vec3) Ray {
	toTarget := target.Subtract(origin)
	distance := toTarget.Length()
	r := NewRay(origin, toTarget.Normalize())
	r.TMax = distance * (1.0 - 1e-4)
	return r
}

// WithTime returns a copy of the ray stamped with the given time sample.
func (r Ray) WithTime(t float64) Ray {
	r.Time = t
	return r
}

// WithFlags returns a copy of the ray with the given flags set.
func (r Ray) WithFlags(flags RayFlags) Ray {
	r.Flags = flags
	return r
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}
