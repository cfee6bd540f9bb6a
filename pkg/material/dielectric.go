package material

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// Dielectric is a smooth refractive material (glass, water) with a single
// index of refraction. Like Metal with zero fuzz it is a delta
// distribution: it can only be sampled, never evaluated against an
// arbitrary wi.
type Dielectric struct {
	RefractiveIndex float64
}

// NewDielectric creates a dielectric material with the given index of refraction.
func NewDielectric(refractiveIndex float64) *Dielectric {
	return &Dielectric{RefractiveIndex: refractiveIndex}
}

func (d *Dielectric) IsDelta() bool             { return true }
func (d *Dielectric) IsVolumeTransmission() bool { return true }
func (d *Dielectric) Glossiness() float64       { return 0 }

func (d *Dielectric) Albedo(hit *core.HitPoint) core.Vec3 {
	return core.NewVec3(1, 1, 1)
}

func (d *Dielectric) Evaluate(hit *core.HitPoint, wo, wi core.Vec3, mode core.TransportMode) (core.Vec3, float64) {
	return core.Vec3{}, 0
}

func (d *Dielectric) PDF(hit *core.HitPoint, wo, wi core.Vec3, mode core.TransportMode) float64 {
	return 0
}

func (d *Dielectric) Sample(hit *core.HitPoint, wo core.Vec3, u1, u2, u3 float64, mode core.TransportMode) (core.BSDFSample, bool) {
	n := hit.ShadingNormal
	incident := wo.Negate()

	var etaIOverT float64
	var normal core.Vec3
	if hit.IntoObject {
		etaIOverT = 1.0 / d.RefractiveIndex
		normal = n
	} else {
		etaIOverT = d.RefractiveIndex
		normal = n.Negate()
	}

	cosTheta := math.Min(normal.Negate().Dot(incident), 1.0)
	reflectance := schlickReflectance(cosTheta, etaIOverT)

	refracted, canRefract := refract(incident, normal, etaIOverT)

	if !canRefract || u3 < reflectance {
		reflected := reflect(incident, normal)
		event := core.Specular | core.Reflect
		return core.BSDFSample{Direction: reflected, Value: core.NewVec3(1, 1, 1), PDF: 1.0, Event: event}, true
	}

	event := core.Specular | core.Transmit
	// Radiance transport (not importance) scales by (1/eta)^2 across a
	// refractive boundary; light tracing must skip this factor, which is
	// why mode is threaded through every BSDF call.
	value := core.NewVec3(1, 1, 1)
	if mode == core.TransportRadiance {
		value = value.Multiply(etaIOverT * etaIOverT)
	}
	return core.BSDFSample{Direction: refracted, Value: value, PDF: 1.0, Event: event}, true
}

func (d *Dielectric) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) core.Vec3 {
	return core.Vec3{}
}

func (d *Dielectric) GetRayOrigin(hit *core.HitPoint, direction core.Vec3) core.Vec3 {
	return hit.OffsetOrigin(direction)
}
