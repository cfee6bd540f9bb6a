package lights

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// UniformInfiniteLight is a constant-radiance environment light: every
// direction not otherwise occluded returns the same color. Infinite lights
// have no surface to hit directly, so IsIntersectable is false even though
// EmittedRadiance is still meaningful (a camera ray that escapes the scene
// samples it).
type UniformInfiniteLight struct {
	Radiance    core.Vec3
	SceneRadius float64
}

// NewUniformInfiniteLight creates a constant-color environment light. The
// scene radius is often not known until the scene's shapes have been
// collected into a BVH; pass a placeholder and call SetSceneRadius once
// Scene.Preprocess has computed the real bound.
func NewUniformInfiniteLight(radiance core.Vec3, sceneRadius float64) *UniformInfiniteLight {
	return &UniformInfiniteLight{Radiance: radiance, SceneRadius: sceneRadius}
}

// SetSceneRadius updates the finite-origin emission radius once the scene's
// true bounding sphere is known.
func (ul *UniformInfiniteLight) SetSceneRadius(r float64) { ul.SceneRadius = r }

func (ul *UniformInfiniteLight) Illuminate(point core.Vec3, u1, u2 float64) (core.LightSample, bool) {
	z := 1.0 - 2.0*u1
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * u2
	direction := core.NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)

	pdf := 1.0 / (4.0 * math.Pi)
	return core.LightSample{Direction: direction, Distance: math.Inf(1), Radiance: ul.Radiance, PDF: pdf}, true
}

func (ul *UniformInfiniteLight) IlluminatePDF(point core.Vec3, direction core.Vec3) float64 {
	return 1.0 / (4.0 * math.Pi)
}

func (ul *UniformInfiniteLight) Emit(u1, u2, u3, u4 float64) (core.EmissionSample, bool) {
	direction, _ := ul.Illuminate(core.Vec3{}, u1, u2)
	originDisk := sampleDiskOnSphere(ul.SceneRadius, direction.Direction, u3, u4)

	return core.EmissionSample{
		Point:     originDisk,
		Normal:    direction.Direction.Negate(),
		Direction: direction.Direction.Negate(),
		Radiance:  ul.Radiance,
		PDFArea:   1.0 / (math.Pi * ul.SceneRadius * ul.SceneRadius),
		PDFDir:    1.0 / (4.0 * math.Pi),
	}, true
}

func (ul *UniformInfiniteLight) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) (core.Vec3, float64) {
	return ul.Radiance, 1.0 / (4.0 * math.Pi)
}

func (ul *UniformInfiniteLight) Power(sceneRadius float64) float64 {
	return ul.Radiance.Luminance() * math.Pi * sceneRadius * sceneRadius * math.Pi
}

func (ul *UniformInfiniteLight) IsEnvironmental() bool                 { return true }
func (ul *UniformInfiniteLight) IsIntersectable() bool                 { return false }
func (ul *UniformInfiniteLight) IsDirectLightSamplingEnabled() bool { return true }

// sampleDiskOnSphere places an emission origin on a disk perpendicular to
// direction at the scene bounding sphere, the standard way to turn an
// infinite light into a finite-origin particle for light tracing.
func sampleDiskOnSphere(sceneRadius float64, direction core.Vec3, u1, u2 float64) core.Vec3 {
	u, v, w := buildBasis(direction)
	r := math.Sqrt(u1) * sceneRadius
	theta := 2.0 * math.Pi * u2
	diskPoint := u.Multiply(r * math.Cos(theta)).Add(v.Multiply(r * math.Sin(theta)))
	return diskPoint.Add(w.Multiply(sceneRadius))
}
