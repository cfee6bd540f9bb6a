package lights

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/geometry"
)

// QuadLight is a rectangular area light: a Quad shape whose material is
// expected to be emissive. It is both directly intersectable (a camera ray
// can hit it like any other quad) and direct-light-sampleable.
type QuadLight struct {
	*geometry.Quad
	Area float64
}

// NewQuadLight creates a new quad light from a corner and two edge vectors.
func NewQuadLight(corner, u, v core.Vec3, mat core.BSDF) *QuadLight {
	return &QuadLight{
		Quad: geometry.NewQuad(corner, u, v, mat),
		Area: u.Cross(v).Length(),
	}
}

// WrapQuad makes an existing quad shape (whose material is expected to be
// emissive) sampleable as an area light without re-creating the geometry.
func WrapQuad(q *geometry.Quad) *QuadLight {
	return &QuadLight{Quad: q, Area: q.U.Cross(q.V).Length()}
}

func (ql *QuadLight) Illuminate(point core.Vec3, u1, u2 float64) (core.LightSample, bool) {
	samplePoint := ql.Corner.Add(ql.U.Multiply(u1)).Add(ql.V.Multiply(u2))

	toLight := samplePoint.Subtract(point)
	distance := toLight.Length()
	if distance < 1e-8 {
		return core.LightSample{}, false
	}
	direction := toLight.Multiply(1.0 / distance)

	cosTheta := math.Abs(ql.Normal.Dot(direction.Negate()))
	if cosTheta < 1e-8 {
		return core.LightSample{}, false
	}

	pdf := (1.0 / ql.Area) * distance * distance / cosTheta

	radiance := ql.Material.EmittedRadiance(&core.HitPoint{Point: samplePoint, Normal: ql.Normal, ShadingNormal: ql.Normal}, direction.Negate())
	if radiance.IsZero() {
		return core.LightSample{}, false
	}

	return core.LightSample{Direction: direction, Distance: distance, Radiance: radiance, PDF: pdf}, true
}

func (ql *QuadLight) IlluminatePDF(point core.Vec3, direction core.Vec3) float64 {
	ray := core.NewRay(point, direction)
	hit, ok := ql.Quad.Hit(ray, ray.TMin, math.Inf(1))
	if !ok {
		return 0
	}
	cosTheta := math.Abs(ql.Normal.Dot(direction.Negate()))
	if cosTheta < 1e-8 {
		return 0
	}
	return (1.0 / ql.Area) * hit.T * hit.T / cosTheta
}

func (ql *QuadLight) Emit(u1, u2, u3, u4 float64) (core.EmissionSample, bool) {
	point := ql.Corner.Add(ql.U.Multiply(u1)).Add(ql.V.Multiply(u2))
	direction, dirPDF := sampleCosineHemisphere(ql.Normal, u3, u4)

	radiance := ql.Material.EmittedRadiance(&core.HitPoint{Point: point, Normal: ql.Normal, ShadingNormal: ql.Normal}, direction)

	return core.EmissionSample{
		Point:     point,
		Normal:    ql.Normal,
		Direction: direction,
		Radiance:  radiance,
		PDFArea:   1.0 / ql.Area,
		PDFDir:    dirPDF,
	}, true
}

func (ql *QuadLight) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) (core.Vec3, float64) {
	radiance := ql.Material.EmittedRadiance(hit, wo)
	if radiance.IsZero() {
		return core.Vec3{}, 0
	}
	cosTheta := math.Abs(ql.Normal.Dot(wo))
	if cosTheta < 1e-8 {
		return radiance, 0
	}
	pdf := (1.0 / ql.Area) * hit.T * hit.T / cosTheta
	return radiance, pdf
}

func (ql *QuadLight) Power(sceneRadius float64) float64 {
	return ql.Material.EmittedRadiance(&core.HitPoint{Normal: ql.Normal, ShadingNormal: ql.Normal}, ql.Normal).Luminance() * ql.Area * math.Pi
}

// EmissiveMaterial exposes the backing quad's material so a scene can
// resolve surface hits on the quad back to this light.
func (ql *QuadLight) EmissiveMaterial() core.BSDF { return ql.Material }

func (ql *QuadLight) IsEnvironmental() bool                 { return false }
func (ql *QuadLight) IsIntersectable() bool                 { return true }
func (ql *QuadLight) IsDirectLightSamplingEnabled() bool { return true }
