package lights

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/geometry"
)

// SphereLight is a spherical area light. From outside the sphere it uses
// cone sampling over the subtended solid angle; from inside (a shading
// point embedded in the sphere) it falls back to uniform sampling.
type SphereLight struct {
	*geometry.Sphere
}

// NewSphereLight creates a new spherical light.
func NewSphereLight(center core.Vec3, radius float64, mat core.BSDF) *SphereLight {
	return &SphereLight{Sphere: geometry.NewSphere(center, radius, mat)}
}

// WrapSphere makes an existing sphere shape (whose material is expected to
// be emissive) sampleable as an area light without re-creating the geometry.
func WrapSphere(s *geometry.Sphere) *SphereLight {
	return &SphereLight{Sphere: s}
}

func (sl *SphereLight) emit(point, normal, wo core.Vec3) core.Vec3 {
	return sl.Material.EmittedRadiance(&core.HitPoint{Point: point, Normal: normal, ShadingNormal: normal}, wo)
}

func (sl *SphereLight) Illuminate(point core.Vec3, u1, u2 float64) (core.LightSample, bool) {
	toCenter := sl.Center.Subtract(point)
	distanceToCenter := toCenter.Length()

	if distanceToCenter <= sl.Radius {
		return sl.sampleUniform(point, u1, u2)
	}
	return sl.sampleVisible(point, distanceToCenter, toCenter, u1, u2)
}

func (sl *SphereLight) sampleUniform(point core.Vec3, u1, u2 float64) (core.LightSample, bool) {
	z := 1.0 - 2.0*u1
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * u2
	localDir := core.NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)

	samplePoint := sl.Center.Add(localDir.Multiply(sl.Radius))
	direction := samplePoint.Subtract(point)
	distance := direction.Length()
	dirN := direction.Normalize()

	pdf := 1.0 / (4.0 * math.Pi * sl.Radius * sl.Radius)
	radiance := sl.emit(samplePoint, localDir, dirN.Negate())
	if radiance.IsZero() {
		return core.LightSample{}, false
	}

	return core.LightSample{Direction: dirN, Distance: distance, Radiance: radiance, PDF: pdf}, true
}

func (sl *SphereLight) sampleVisible(point core.Vec3, distanceToCenter float64, toCenter core.Vec3, u1, u2 float64) (core.LightSample, bool) {
	w := toCenter.Normalize()
	u, v, _ := buildBasis(w)

	sinThetaMax := sl.Radius / distanceToCenter
	cosThetaMax := math.Sqrt(math.Max(0, 1.0-sinThetaMax*sinThetaMax))

	cosTheta := 1.0 - u1*(1.0-cosThetaMax)
	sinTheta := math.Sqrt(math.Max(0, 1.0-cosTheta*cosTheta))
	phi := 2.0 * math.Pi * u2

	direction := u.Multiply(sinTheta * math.Cos(phi)).
		Add(v.Multiply(sinTheta * math.Sin(phi))).
		Add(w.Multiply(cosTheta))

	ray := core.NewRay(point, direction)
	hit, ok := sl.Sphere.Hit(ray, ray.TMin, math.Inf(1))
	if !ok {
		return sl.sampleUniform(point, u1, u2)
	}

	pdf := 1.0 / (2.0 * math.Pi * (1.0 - cosThetaMax))
	radiance := sl.emit(hit.Point, hit.Normal, direction.Negate())
	if radiance.IsZero() {
		return core.LightSample{}, false
	}

	return core.LightSample{Direction: direction, Distance: hit.T, Radiance: radiance, PDF: pdf}, true
}

func (sl *SphereLight) IlluminatePDF(point core.Vec3, direction core.Vec3) float64 {
	ray := core.NewRay(point, direction)
	_, ok := sl.Sphere.Hit(ray, ray.TMin, math.Inf(1))
	if !ok {
		return 0
	}

	distanceToCenter := sl.Center.Subtract(point).Length()
	if distanceToCenter <= sl.Radius {
		return 1.0 / (4.0 * math.Pi * sl.Radius * sl.Radius)
	}

	sinThetaMax := sl.Radius / distanceToCenter
	cosThetaMax := math.Sqrt(math.Max(0, 1.0-sinThetaMax*sinThetaMax))
	return 1.0 / (2.0 * math.Pi * (1.0 - cosThetaMax))
}

func (sl *SphereLight) Emit(u1, u2, u3, u4 float64) (core.EmissionSample, bool) {
	z := 1.0 - 2.0*u1
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * u2
	localDir := core.NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)

	point := sl.Center.Add(localDir.Multiply(sl.Radius))
	direction, dirPDF := sampleCosineHemisphere(localDir, u3, u4)
	radiance := sl.emit(point, localDir, direction)

	return core.EmissionSample{
		Point:     point,
		Normal:    localDir,
		Direction: direction,
		Radiance:  radiance,
		PDFArea:   1.0 / (4.0 * math.Pi * sl.Radius * sl.Radius),
		PDFDir:    dirPDF,
	}, true
}

func (sl *SphereLight) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) (core.Vec3, float64) {
	radiance := sl.Material.EmittedRadiance(hit, wo)
	if radiance.IsZero() {
		return core.Vec3{}, 0
	}

	distanceToCenter := sl.Center.Subtract(hit.Point.Add(wo.Multiply(hit.T))).Length()
	if distanceToCenter <= sl.Radius {
		return radiance, 1.0 / (4.0 * math.Pi * sl.Radius * sl.Radius)
	}
	sinThetaMax := sl.Radius / distanceToCenter
	cosThetaMax := math.Sqrt(math.Max(0, 1.0-sinThetaMax*sinThetaMax))
	return radiance, 1.0 / (2.0 * math.Pi * (1.0 - cosThetaMax))
}

func (sl *SphereLight) Power(sceneRadius float64) float64 {
	return sl.Material.EmittedRadiance(&core.HitPoint{Normal: core.NewVec3(0, 1, 0), ShadingNormal: core.NewVec3(0, 1, 0)}, core.NewVec3(0, 1, 0)).Luminance() *
		4 * math.Pi * sl.Radius * sl.Radius * math.Pi
}

// EmissiveMaterial exposes the backing sphere's material so a scene can
// resolve surface hits on the sphere back to this light.
func (sl *SphereLight) EmissiveMaterial() core.BSDF { return sl.Material }

func (sl *SphereLight) IsEnvironmental() bool                 { return false }
func (sl *SphereLight) IsIntersectable() bool                 { return true }
func (sl *SphereLight) IsDirectLightSamplingEnabled() bool { return true }
