package lights

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/geometry"
)

// DiscLight is a circular area light.
type DiscLight struct {
	*geometry.Disc
	Area float64
}

// NewDiscLight creates a new disc light.
func NewDiscLight(center, normal core.Vec3, radius float64, mat core.BSDF) *DiscLight {
	return &DiscLight{
		Disc: geometry.NewDisc(center, normal, radius, mat),
		Area: math.Pi * radius * radius,
	}
}

// WrapDisc makes an existing disc shape (whose material is expected to be
// emissive) sampleable as an area light without re-creating the geometry.
func WrapDisc(d *geometry.Disc) *DiscLight {
	return &DiscLight{Disc: d, Area: math.Pi * d.Radius * d.Radius}
}

func (dl *DiscLight) Illuminate(point core.Vec3, u1, u2 float64) (core.LightSample, bool) {
	samplePoint, normal := dl.Disc.SampleUniform(core.NewVec2(u1, u2))

	toLight := samplePoint.Subtract(point)
	distance := toLight.Length()
	if distance < 1e-8 {
		return core.LightSample{}, false
	}
	direction := toLight.Multiply(1.0 / distance)

	cosTheta := math.Abs(normal.Dot(direction.Negate()))
	if cosTheta < 1e-8 {
		return core.LightSample{}, false
	}

	pdf := (1.0 / dl.Area) * distance * distance / cosTheta
	radiance := dl.Material.EmittedRadiance(&core.HitPoint{Point: samplePoint, Normal: normal, ShadingNormal: normal}, direction.Negate())
	if radiance.IsZero() {
		return core.LightSample{}, false
	}

	return core.LightSample{Direction: direction, Distance: distance, Radiance: radiance, PDF: pdf}, true
}

func (dl *DiscLight) IlluminatePDF(point core.Vec3, direction core.Vec3) float64 {
	ray := core.NewRay(point, direction)
	hit, ok := dl.Disc.Hit(ray, ray.TMin, math.Inf(1))
	if !ok {
		return 0
	}
	cosTheta := math.Abs(dl.Normal.Dot(direction.Negate()))
	if cosTheta < 1e-8 {
		return 0
	}
	return (1.0 / dl.Area) * hit.T * hit.T / cosTheta
}

func (dl *DiscLight) Emit(u1, u2, u3, u4 float64) (core.EmissionSample, bool) {
	point, normal := dl.Disc.SampleUniform(core.NewVec2(u1, u2))
	direction, dirPDF := sampleCosineHemisphere(normal, u3, u4)
	radiance := dl.Material.EmittedRadiance(&core.HitPoint{Point: point, Normal: normal, ShadingNormal: normal}, direction)

	return core.EmissionSample{
		Point: point, Normal: normal, Direction: direction, Radiance: radiance,
		PDFArea: 1.0 / dl.Area, PDFDir: dirPDF,
	}, true
}

func (dl *DiscLight) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) (core.Vec3, float64) {
	radiance := dl.Material.EmittedRadiance(hit, wo)
	if radiance.IsZero() {
		return core.Vec3{}, 0
	}
	cosTheta := math.Abs(dl.Normal.Dot(wo))
	if cosTheta < 1e-8 {
		return radiance, 0
	}
	return radiance, (1.0 / dl.Area) * hit.T * hit.T / cosTheta
}

func (dl *DiscLight) Power(sceneRadius float64) float64 {
	return dl.Material.EmittedRadiance(&core.HitPoint{Normal: dl.Normal, ShadingNormal: dl.Normal}, dl.Normal).Luminance() * dl.Area * math.Pi
}

// EmissiveMaterial exposes the backing disc's material so a scene can
// resolve surface hits on the disc back to this light.
func (dl *DiscLight) EmissiveMaterial() core.BSDF { return dl.Material }

func (dl *DiscLight) IsEnvironmental() bool                 { return false }
func (dl *DiscLight) IsIntersectable() bool                 { return true }
func (dl *DiscLight) IsDirectLightSamplingEnabled() bool { return true }
