package material

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// Lambertian is a perfectly diffuse reflector whose albedo may vary
// spatially via a ColorSource (solid color, image texture, or procedural).
type Lambertian struct {
	Albedo_ ColorSource
}

// NewLambertian creates a Lambertian material from a solid color.
func NewLambertian(color core.Vec3) *Lambertian {
	return &Lambertian{Albedo_: NewSolidColor(color)}
}

// NewLambertianTexture creates a Lambertian material from any ColorSource.
func NewLambertianTexture(source ColorSource) *Lambertian {
	return &Lambertian{Albedo_: source}
}

func (l *Lambertian) IsDelta() bool                 { return false }
func (l *Lambertian) IsVolumeTransmission() bool     { return false }
func (l *Lambertian) Glossiness() float64            { return 1.0 }

func (l *Lambertian) Albedo(hit *core.HitPoint) core.Vec3 {
	return l.Albedo_.Evaluate(hit.UV, hit.Point)
}

func (l *Lambertian) Evaluate(hit *core.HitPoint, wo, wi core.Vec3, mode core.TransportMode) (core.Vec3, float64) {
	cosTheta := hit.ShadingNormal.Dot(wi)
	if cosTheta <= 0 {
		return core.Vec3{}, 0
	}
	albedo := l.Albedo_.Evaluate(hit.UV, hit.Point)
	return albedo.Multiply(cosTheta / math.Pi), cosTheta / math.Pi
}

func (l *Lambertian) PDF(hit *core.HitPoint, wo, wi core.Vec3, mode core.TransportMode) float64 {
	cosTheta := hit.ShadingNormal.Dot(wi)
	if cosTheta <= 0 {
		return 0
	}
	return cosTheta / math.Pi
}

func (l *Lambertian) Sample(hit *core.HitPoint, wo core.Vec3, u1, u2, u3 float64, mode core.TransportMode) (core.BSDFSample, bool) {
	local, pdf := cosineSampleHemisphere(u1, u2)
	basis := newONB(hit.ShadingNormal)
	wi := basis.local(local)

	if pdf <= 0 {
		return core.BSDFSample{}, false
	}

	albedo := l.Albedo_.Evaluate(hit.UV, hit.Point)
	cosTheta := hit.ShadingNormal.Dot(wi)
	value := albedo.Multiply(cosTheta / (math.Pi * pdf))

	return core.BSDFSample{Direction: wi, Value: value, PDF: pdf, Event: core.Diffuse | core.Reflect}, true
}

func (l *Lambertian) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) core.Vec3 {
	return core.Vec3{}
}

func (l *Lambertian) GetRayOrigin(hit *core.HitPoint, direction core.Vec3) core.Vec3 {
	return hit.OffsetOrigin(direction)
}
