package lights

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// GradientInfiniteLight is a two-color vertical-gradient environment
// light (sky/ground), sampled uniformly over the sphere of directions like
// UniformInfiniteLight but returning a direction-dependent color.
type GradientInfiniteLight struct {
	Top, Bottom core.Vec3
	SceneRadius float64
}

// NewGradientInfiniteLight creates a sky/ground gradient environment light.
func NewGradientInfiniteLight(top, bottom core.Vec3, sceneRadius float64) *GradientInfiniteLight {
	return &GradientInfiniteLight{Top: top, Bottom: bottom, SceneRadius: sceneRadius}
}

// SetSceneRadius updates the finite-origin emission radius once the scene's
// true bounding sphere is known.
func (gl *GradientInfiniteLight) SetSceneRadius(r float64) { gl.SceneRadius = r }

func (gl *GradientInfiniteLight) colorFor(direction core.Vec3) core.Vec3 {
	t := 0.5 * (direction.Y + 1.0)
	return gl.Bottom.Multiply(1 - t).Add(gl.Top.Multiply(t))
}

func (gl *GradientInfiniteLight) Illuminate(point core.Vec3, u1, u2 float64) (core.LightSample, bool) {
	z := 1.0 - 2.0*u1
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * u2
	direction := core.NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)

	pdf := 1.0 / (4.0 * math.Pi)
	return core.LightSample{Direction: direction, Distance: math.Inf(1), Radiance: gl.colorFor(direction), PDF: pdf}, true
}

func (gl *GradientInfiniteLight) IlluminatePDF(point core.Vec3, direction core.Vec3) float64 {
	return 1.0 / (4.0 * math.Pi)
}

func (gl *GradientInfiniteLight) Emit(u1, u2, u3, u4 float64) (core.EmissionSample, bool) {
	sample, _ := gl.Illuminate(core.Vec3{}, u1, u2)
	originDisk := sampleDiskOnSphere(gl.SceneRadius, sample.Direction, u3, u4)

	return core.EmissionSample{
		Point:     originDisk,
		Normal:    sample.Direction.Negate(),
		Direction: sample.Direction.Negate(),
		Radiance:  sample.Radiance,
		PDFArea:   1.0 / (math.Pi * gl.SceneRadius * gl.SceneRadius),
		PDFDir:    1.0 / (4.0 * math.Pi),
	}, true
}

func (gl *GradientInfiniteLight) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) (core.Vec3, float64) {
	return gl.colorFor(wo.Negate()), 1.0 / (4.0 * math.Pi)
}

func (gl *GradientInfiniteLight) Power(sceneRadius float64) float64 {
	avg := gl.Top.Add(gl.Bottom).Multiply(0.5)
	return avg.Luminance() * math.Pi * sceneRadius * sceneRadius * math.Pi
}

func (gl *GradientInfiniteLight) IsEnvironmental() bool                 { return true }
func (gl *GradientInfiniteLight) IsIntersectable() bool                 { return false }
func (gl *GradientInfiniteLight) IsDirectLightSamplingEnabled() bool { return true }
