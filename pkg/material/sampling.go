package material

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// cosineSampleHemisphere draws a direction in the hemisphere around +Z
// with a cosine-weighted distribution, using Malley's method (a polar
// uniform disk sample, r = sqrt(u1), lifted onto the hemisphere).
func cosineSampleHemisphere(u1, u2 float64) (core.Vec3, float64) {
	r := math.Sqrt(u1)
	theta := 2.0 * math.Pi * u2
	x := r * math.Cos(theta)
	y := r * math.Sin(theta)
	z := math.Sqrt(math.Max(0, 1.0-u1))
	pdf := z / math.Pi
	return core.NewVec3(x, y, z), pdf
}

// onb builds an orthonormal basis around the given normal (treated as Z).
type onb struct {
	u, v, w core.Vec3
}

func newONB(normal core.Vec3) onb {
	w := normal.Normalize()
	var a core.Vec3
	if math.Abs(w.X) > 0.9 {
		a = core.NewVec3(0, 1, 0)
	} else {
		a = core.NewVec3(1, 0, 0)
	}
	v := w.Cross(a).Normalize()
	u := w.Cross(v)
	return onb{u: u, v: v, w: w}
}

func (b onb) local(p core.Vec3) core.Vec3 {
	return b.u.Multiply(p.X).Add(b.v.Multiply(p.Y)).Add(b.w.Multiply(p.Z))
}

func reflect(d, n core.Vec3) core.Vec3 {
	return d.Subtract(n.Multiply(2 * d.Dot(n)))
}

// refract computes the refracted direction of d across a surface with
// normal n (pointing against d) and relative index of refraction
// etaIOverT (incident IOR / transmitted IOR). Returns false on total
// internal reflection.
func refract(d, n core.Vec3, etaIOverT float64) (core.Vec3, bool) {
	cosThetaI := -d.Dot(n)
	sin2ThetaI := math.Max(0, 1.0-cosThetaI*cosThetaI)
	sin2ThetaT := etaIOverT * etaIOverT * sin2ThetaI
	if sin2ThetaT >= 1.0 {
		return core.Vec3{}, false
	}
	cosThetaT := math.Sqrt(1.0 - sin2ThetaT)
	t := d.Multiply(etaIOverT).Add(n.Multiply(etaIOverT*cosThetaI - cosThetaT))
	return t, true
}

// schlickReflectance approximates the Fresnel reflectance for dielectrics.
func schlickReflectance(cosine, refractiveIndex float64) float64 {
	r0 := (1 - refractiveIndex) / (1 + refractiveIndex)
	r0 = r0 * r0
	return r0 + (1-r0)*math.Pow(1-cosine, 5)
}
