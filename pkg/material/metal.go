package material

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// Metal is a reflective material whose reflection direction is perturbed
// by Fuzz, drawn from a lobe around the ideal mirror direction. Fuzz==0 is
// a delta (perfect mirror) BSDF; Fuzz>0 makes it a sampleable glossy lobe.
type Metal struct {
	Albedo_ core.Vec3
	Fuzz    float64
}

// NewMetal creates a new metal material; fuzz is clamped to [0,1].
func NewMetal(albedo core.Vec3, fuzz float64) *Metal {
	if fuzz > 1 {
		fuzz = 1
	}
	if fuzz < 0 {
		fuzz = 0
	}
	return &Metal{Albedo_: albedo, Fuzz: fuzz}
}

func (m *Metal) IsDelta() bool             { return m.Fuzz == 0 }
func (m *Metal) IsVolumeTransmission() bool { return false }
func (m *Metal) Glossiness() float64       { return m.Fuzz }

func (m *Metal) Albedo(hit *core.HitPoint) core.Vec3 { return m.Albedo_ }

func (m *Metal) Evaluate(hit *core.HitPoint, wo, wi core.Vec3, mode core.TransportMode) (core.Vec3, float64) {
	if m.IsDelta() {
		return core.Vec3{}, 0
	}
	reflected := reflect(wo.Negate(), hit.ShadingNormal)
	cosAlpha := reflected.Dot(wi)
	if cosAlpha <= 0 {
		return core.Vec3{}, 0
	}
	// A cheap Phong-like glossy lobe: concentrate around the ideal
	// reflection direction in inverse proportion to Fuzz.
	exponent := 2.0/(m.Fuzz*m.Fuzz+1e-3) - 2.0
	pdf := (exponent + 1) / (2 * math.Pi) * math.Pow(cosAlpha, exponent)
	cosTheta := wi.Dot(hit.ShadingNormal)
	if cosTheta <= 0 {
		return core.Vec3{}, 0
	}
	return m.Albedo_.Multiply(pdf * cosTheta), pdf
}

func (m *Metal) PDF(hit *core.HitPoint, wo, wi core.Vec3, mode core.TransportMode) float64 {
	_, pdf := m.Evaluate(hit, wo, wi, mode)
	return pdf
}

func (m *Metal) Sample(hit *core.HitPoint, wo core.Vec3, u1, u2, u3 float64, mode core.TransportMode) (core.BSDFSample, bool) {
	reflected := reflect(wo.Negate(), hit.ShadingNormal).Normalize()

	if m.Fuzz > 0 {
		local, _ := cosineSampleHemisphere(u1, u2)
		basis := newONB(reflected)
		perturbed := basis.local(local)
		reflected = reflected.Add(perturbed.Multiply(m.Fuzz)).Normalize()
	}

	if reflected.Dot(hit.ShadingNormal) <= 0 {
		return core.BSDFSample{}, false
	}

	event := core.Reflect
	if m.IsDelta() {
		event |= core.Specular
		return core.BSDFSample{Direction: reflected, Value: m.Albedo_, PDF: 1.0, Event: event}, true
	}

	event |= core.Glossy
	value, pdf := m.Evaluate(hit, wo, reflected, mode)
	if pdf <= 0 {
		return core.BSDFSample{}, false
	}
	return core.BSDFSample{Direction: reflected, Value: value.Multiply(1.0 / pdf), PDF: pdf, Event: event}, true
}

func (m *Metal) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) core.Vec3 {
	return core.Vec3{}
}

func (m *Metal) GetRayOrigin(hit *core.HitPoint, direction core.Vec3) core.Vec3 {
	return hit.OffsetOrigin(direction)
}
