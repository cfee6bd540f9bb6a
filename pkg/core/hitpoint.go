package core

// PathVolumeInfo records the participating medium a path is currently
// inside, as the surface hit that bounds it. Only one level is tracked:
// entering a volume replaces CurrentVolume, and the tracers reset to an
// empty PathVolumeInfo (vacuum) on exit, so nested media are not kept as
// a stack and leaving an inner volume does not restore the outer one.
type PathVolumeInfo struct {
	CurrentVolume  *HitPoint // surface that currently bounds the ray, nil if in vacuum
	IsScattered    bool
	RRDepth        int
	IsVolumeOnly   bool // ray scattered inside a volume, not off a surface
	ScatteredStart bool
}

// Clone returns a value copy suitable for forking onto a new path segment.
func (v *PathVolumeInfo) Clone() *PathVolumeInfo {
	if v == nil {
		return &PathVolumeInfo{}
	}
	cp := *v
	return &cp
}

// HitPoint describes a ray/geometry intersection together with everything a
// BSDF or light needs to shade it: position, the two normal conventions
// (geometric vs. shading), the partial derivatives of position with
// respect to the surface parameterization (used by anisotropic materials
// and bump mapping), and the material/light the intersection belongs to.
//
// Field names follow the original tracer's hit-point record rather than
// inventing new vocabulary: Dpdu/Dpdv, IntoObject.
type HitPoint struct {
	T             float64
	Point         Vec3
	Normal        Vec3 // geometric normal, always on the incident side
	ShadingNormal Vec3 // shading normal, may differ under normal mapping
	FrontFace     bool
	IntoObject    bool // true if the ray entered the surface from outside
	UV            Vec2
	Dpdu, Dpdv    Vec3
	Material      BSDF
	Light         Emitter // non-nil if this point lies on an emissive surface
	Volume        *PathVolumeInfo
}

// SetFaceNormal orients the geometric and shading normal against the ray
// direction and records which side of the surface was hit, following the
// convention the rest of the renderer depends on (normal always points
// against the incoming ray).
func (h *HitPoint) SetFaceNormal(ray Ray, outwardNormal Vec3) {
	h.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	h.IntoObject = h.FrontFace
	if h.FrontFace {
		h.Normal = outwardNormal
	} else {
		h.Normal = outwardNormal.Negate()
	}
	h.ShadingNormal = h.Normal
}

// OffsetOrigin nudges a new ray's origin off the surface along the
// geometric normal so self-intersection doesn't reoccur at the epsilon
// scale Ray.TMin already bakes in.
func (h *HitPoint) OffsetOrigin(direction Vec3) Vec3 {
	n := h.Normal
	if n.Dot(direction) < 0 {
		n = n.Negate()
	}
	return h.Point.Add(n.Multiply(1e-4))
}
