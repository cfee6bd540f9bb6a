package material

import (
	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// Mix stochastically blends two BSDFs: with probability Amount it behaves
// like B, otherwise like A. Evaluate/PDF combine both components linearly
// (the physically correct behavior for a mixture); Sample picks one
// component per sample to keep variance and cost bounded.
type Mix struct {
	A, B   core.BSDF
	Amount float64 // probability of selecting B
}

// NewMix creates a Mix material blending a and b by the given amount (0=a, 1=b).
func NewMix(a, b core.BSDF, amount float64) *Mix {
	return &Mix{A: a, B: b, Amount: amount}
}

func (m *Mix) IsDelta() bool {
	return m.A.IsDelta() && m.B.IsDelta()
}

func (m *Mix) IsVolumeTransmission() bool {
	return m.A.IsVolumeTransmission() || m.B.IsVolumeTransmission()
}

func (m *Mix) Glossiness() float64 {
	return m.A.Glossiness()*(1-m.Amount) + m.B.Glossiness()*m.Amount
}

func (m *Mix) Albedo(hit *core.HitPoint) core.Vec3 {
	return m.A.Albedo(hit).Multiply(1 - m.Amount).Add(m.B.Albedo(hit).Multiply(m.Amount))
}

func (m *Mix) Evaluate(hit *core.HitPoint, wo, wi core.Vec3, mode core.TransportMode) (core.Vec3, float64) {
	var value core.Vec3
	var pdf float64
	if !m.A.IsDelta() {
		va, pa := m.A.Evaluate(hit, wo, wi, mode)
		value = value.Add(va.Multiply(1 - m.Amount))
		pdf += pa * (1 - m.Amount)
	}
	if !m.B.IsDelta() {
		vb, pb := m.B.Evaluate(hit, wo, wi, mode)
		value = value.Add(vb.Multiply(m.Amount))
		pdf += pb * m.Amount
	}
	return value, pdf
}

func (m *Mix) PDF(hit *core.HitPoint, wo, wi core.Vec3, mode core.TransportMode) float64 {
	_, pdf := m.Evaluate(hit, wo, wi, mode)
	return pdf
}

func (m *Mix) Sample(hit *core.HitPoint, wo core.Vec3, u1, u2, u3 float64, mode core.TransportMode) (core.BSDFSample, bool) {
	if u3 < m.Amount {
		return m.B.Sample(hit, wo, u1, u2, u3/m.Amount, mode)
	}
	return m.A.Sample(hit, wo, u1, u2, (u3-m.Amount)/(1-m.Amount), mode)
}

func (m *Mix) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) core.Vec3 {
	return m.A.EmittedRadiance(hit, wo).Add(m.B.EmittedRadiance(hit, wo))
}

func (m *Mix) GetRayOrigin(hit *core.HitPoint, direction core.Vec3) core.Vec3 {
	return hit.OffsetOrigin(direction)
}
