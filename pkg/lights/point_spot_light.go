package lights

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// PointLight is a delta (zero-area) isotropic point light. Like all delta
// lights it cannot be hit by a camera ray and has no directional PDF of
// its own — IlluminatePDF is always zero since there is exactly one
// direction toward it from any point.
type PointLight struct {
	Position core.Vec3
	Intensity core.Vec3
}

// NewPointLight creates an isotropic point light with the given intensity (W/sr).
func NewPointLight(position, intensity core.Vec3) *PointLight {
	return &PointLight{Position: position, Intensity: intensity}
}

func (pl *PointLight) Illuminate(point core.Vec3, u1, u2 float64) (core.LightSample, bool) {
	toLight := pl.Position.Subtract(point)
	distance := toLight.Length()
	if distance < 1e-8 {
		return core.LightSample{}, false
	}
	direction := toLight.Multiply(1.0 / distance)
	radiance := pl.Intensity.Multiply(1.0 / (distance * distance))
	return core.LightSample{Direction: direction, Distance: distance, Radiance: radiance, PDF: 1.0}, true
}

func (pl *PointLight) IlluminatePDF(point core.Vec3, direction core.Vec3) float64 { return 0 }

func (pl *PointLight) Emit(u1, u2, u3, u4 float64) (core.EmissionSample, bool) {
	z := 1.0 - 2.0*u1
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * u2
	direction := core.NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)

	return core.EmissionSample{
		Point: pl.Position, Normal: direction, Direction: direction,
		Radiance: pl.Intensity, PDFArea: 1.0, PDFDir: 1.0 / (4.0 * math.Pi),
	}, true
}

func (pl *PointLight) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) (core.Vec3, float64) {
	return core.Vec3{}, 0
}

func (pl *PointLight) Power(sceneRadius float64) float64 {
	return pl.Intensity.Luminance() * 4 * math.Pi
}

func (pl *PointLight) IsEnvironmental() bool                 { return false }
func (pl *PointLight) IsIntersectable() bool                 { return false }
func (pl *PointLight) IsDirectLightSamplingEnabled() bool { return true }

// SpotLight is a point light restricted to a cone, with a smooth falloff
// between an inner (full intensity) and outer (zero intensity) angle: a
// smoothstep of the cosine to the spot axis.
type SpotLight struct {
	Position              core.Vec3
	Direction             core.Vec3
	Intensity             core.Vec3
	CosTotalWidth         float64
	CosFalloffStart       float64
}

// NewSpotLight creates a spot light. totalWidth and falloffStart are half-angles in radians.
func NewSpotLight(position, direction, intensity core.Vec3, totalWidth, falloffStart float64) *SpotLight {
	return &SpotLight{
		Position:        position,
		Direction:       direction.Normalize(),
		Intensity:       intensity,
		CosTotalWidth:   math.Cos(totalWidth),
		CosFalloffStart: math.Cos(falloffStart),
	}
}

func (sl *SpotLight) falloff(direction core.Vec3) float64 {
	cosTheta := sl.Direction.Dot(direction)
	if cosTheta < sl.CosTotalWidth {
		return 0
	}
	if cosTheta > sl.CosFalloffStart {
		return 1
	}
	delta := (cosTheta - sl.CosTotalWidth) / (sl.CosFalloffStart - sl.CosTotalWidth)
	return delta * delta * (3 - 2*delta)
}

func (sl *SpotLight) Illuminate(point core.Vec3, u1, u2 float64) (core.LightSample, bool) {
	toLight := sl.Position.Subtract(point)
	distance := toLight.Length()
	if distance < 1e-8 {
		return core.LightSample{}, false
	}
	direction := toLight.Multiply(1.0 / distance)
	falloff := sl.falloff(direction.Negate())
	if falloff <= 0 {
		return core.LightSample{}, false
	}
	radiance := sl.Intensity.Multiply(falloff / (distance * distance))
	return core.LightSample{Direction: direction, Distance: distance, Radiance: radiance, PDF: 1.0}, true
}

func (sl *SpotLight) IlluminatePDF(point core.Vec3, direction core.Vec3) float64 { return 0 }

func (sl *SpotLight) Emit(u1, u2, u3, u4 float64) (core.EmissionSample, bool) {
	u, v, w := buildBasis(sl.Direction)
	cosTheta := 1.0 - u1*(1.0-sl.CosTotalWidth)
	sinTheta := math.Sqrt(math.Max(0, 1.0-cosTheta*cosTheta))
	phi := 2.0 * math.Pi * u2
	direction := u.Multiply(sinTheta * math.Cos(phi)).Add(v.Multiply(sinTheta * math.Sin(phi))).Add(w.Multiply(cosTheta))

	falloff := sl.falloff(direction)
	pdfDir := 1.0 / (2.0 * math.Pi * (1.0 - sl.CosTotalWidth))

	return core.EmissionSample{
		Point: sl.Position, Normal: sl.Direction, Direction: direction,
		Radiance: sl.Intensity.Multiply(falloff), PDFArea: 1.0, PDFDir: pdfDir,
	}, true
}

func (sl *SpotLight) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) (core.Vec3, float64) {
	return core.Vec3{}, 0
}

func (sl *SpotLight) Power(sceneRadius float64) float64 {
	return sl.Intensity.Luminance() * 2 * math.Pi * (1.0 - 0.5*(sl.CosFalloffStart+sl.CosTotalWidth))
}

func (sl *SpotLight) IsEnvironmental() bool                 { return false }
func (sl *SpotLight) IsIntersectable() bool                 { return false }
func (sl *SpotLight) IsDirectLightSamplingEnabled() bool { return true }
