package material

import (
	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// Emissive is a one-sided (or two-sided) area-light surface material: it
// scatters nothing, only emits. Area lights in pkg/lights wrap a shape
// using this material so that a camera ray hitting the shape directly
// picks up EmittedRadiance.
type Emissive struct {
	Radiance  core.Vec3
	TwoSided  bool
}

// NewEmissive creates an Emissive material with the given one-sided radiance.
func NewEmissive(radiance core.Vec3) *Emissive {
	return &Emissive{Radiance: radiance}
}

// NewEmissiveTwoSided creates an Emissive material that emits from both faces.
func NewEmissiveTwoSided(radiance core.Vec3) *Emissive {
	return &Emissive{Radiance: radiance, TwoSided: true}
}

func (e *Emissive) IsDelta() bool             { return true }
func (e *Emissive) IsVolumeTransmission() bool { return false }
func (e *Emissive) Glossiness() float64       { return 0 }

func (e *Emissive) Albedo(hit *core.HitPoint) core.Vec3 { return core.Vec3{} }

func (e *Emissive) Evaluate(hit *core.HitPoint, wo, wi core.Vec3, mode core.TransportMode) (core.Vec3, float64) {
	return core.Vec3{}, 0
}

func (e *Emissive) PDF(hit *core.HitPoint, wo, wi core.Vec3, mode core.TransportMode) float64 {
	return 0
}

func (e *Emissive) Sample(hit *core.HitPoint, wo core.Vec3, u1, u2, u3 float64, mode core.TransportMode) (core.BSDFSample, bool) {
	return core.BSDFSample{}, false
}

func (e *Emissive) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) core.Vec3 {
	if !e.TwoSided && hit.ShadingNormal.Dot(wo) <= 0 {
		return core.Vec3{}
	}
	return e.Radiance
}

func (e *Emissive) GetRayOrigin(hit *core.HitPoint, direction core.Vec3) core.Vec3 {
	return hit.OffsetOrigin(direction)
}
