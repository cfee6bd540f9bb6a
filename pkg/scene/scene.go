// Package scene assembles a Scene (camera, shapes, lights, light-selection
// strategy) ready for the engine to render. It is an out-of-core
// collaborator: scene-file compatibility is explicitly non-goal territory,
// but the scenes it builds are real, working inputs to pkg/renderer.
package scene

import (
	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/geometry"
	"github.com/df07/go-progressive-raytracer/pkg/lights"
	"github.com/df07/go-progressive-raytracer/pkg/lightstrategy"
	"github.com/df07/go-progressive-raytracer/pkg/material"
)

// Scene contains all the elements needed for rendering.
type Scene struct {
	Camera *geometry.Camera
	Shapes []geometry.Shape
	Lights []core.Emitter
	BVH    *geometry.BVH

	// LightStrategy is the strategy to use once built. A caller may set it
	// directly (e.g. the engine's DLSC wrapping); otherwise Preprocess
	// builds one per LightStrategyType.
	LightStrategy *lightstrategy.Strategy

	// LightStrategyType selects the strategy Preprocess builds when
	// LightStrategy is nil, from the lightstrategy.type config group of
	// spec.md §6. The zero value (lightstrategy.LogPower) matches the
	// engine's original no-config default.
	LightStrategyType lightstrategy.Type

	SamplingConfig SamplingConfig
	CameraConfig   geometry.CameraConfig

	// lightByMaterial resolves a surface hit's material back to the area
	// light it belongs to, so integrators can gather emission when a
	// camera/BSDF ray lands on a light directly. Built by Preprocess.
	lightByMaterial map[core.BSDF]core.Emitter
}

// emissiveBacked is satisfied by intersectable lights backed by a shape
// whose material does the emitting (quad/sphere/disc area lights).
type emissiveBacked interface {
	EmissiveMaterial() core.BSDF
}

// AttachLight sets hit.Light to the emitter the hit surface belongs to,
// if it is an area light's geometry; other hits are left untouched.
func (s *Scene) AttachLight(hit *core.HitPoint) {
	if hit == nil || hit.Material == nil || s.lightByMaterial == nil {
		return
	}
	if l, ok := s.lightByMaterial[hit.Material]; ok {
		hit.Light = l
	}
}

// SamplingConfig contains rendering configuration
type SamplingConfig struct {
	Width                     int
	Height                    int
	SamplesPerPixel           int
	MaxDepth                  int
	RussianRouletteMinBounces int
	RussianRouletteCap        float64 // path.russianroulette.cap; <= 0 defaults to 0.05
	AdaptiveMinSamples        float64
	AdaptiveThreshold         float64
	VarianceClampMax          float64
}

// sceneRadiusSettable is satisfied by infinite lights whose finite
// emission-origin radius isn't known until the scene's BVH exists.
type sceneRadiusSettable interface {
	SetSceneRadius(float64)
}

// NewGroundQuad creates a large quad to replace infinite ground planes,
// centered at the given point with normal pointing up (0,1,0).
func NewGroundQuad(center core.Vec3, size float64, mat core.BSDF) *geometry.Quad {
	corner := core.NewVec3(center.X-size/2, center.Y, center.Z-size/2)
	u := core.NewVec3(size, 0, 0)
	v := core.NewVec3(0, 0, size)
	return geometry.NewQuad(corner, u, v, mat)
}

// Preprocess prepares the scene for rendering: builds the BVH, patches
// infinite lights with the real scene radius now that it's known, and
// builds the default light-selection strategy if the caller didn't
// configure one explicitly.
func (s *Scene) Preprocess() error {
	s.BVH = geometry.NewBVH(s.Shapes)
	sceneRadius := s.BVH.Radius

	s.lightByMaterial = make(map[core.BSDF]core.Emitter, len(s.Lights))
	for _, light := range s.Lights {
		if settable, ok := light.(sceneRadiusSettable); ok {
			settable.SetSceneRadius(sceneRadius)
		}
		if eb, ok := light.(emissiveBacked); ok {
			s.lightByMaterial[eb.EmissiveMaterial()] = light
		}
	}

	if s.LightStrategy == nil {
		switch s.LightStrategyType {
		case lightstrategy.Uniform:
			s.LightStrategy = lightstrategy.NewUniformStrategy(len(s.Lights))
		case lightstrategy.Power:
			s.LightStrategy = lightstrategy.NewPowerStrategy(s.Lights, sceneRadius)
		default:
			// LogPower and DLSCCache (the DLSC wrapper is built by the
			// engine around this as its fallback) both land here.
			s.LightStrategy = lightstrategy.NewLogPowerStrategy(s.Lights, sceneRadius)
		}
	}

	return nil
}

// GetPrimitiveCount returns the total number of primitive objects in the scene
func (s *Scene) GetPrimitiveCount() int {
	count := 0
	for _, shape := range s.Shapes {
		count += s.countPrimitivesInShape(shape)
	}
	return count
}

func (s *Scene) countPrimitivesInShape(shape geometry.Shape) int {
	switch obj := shape.(type) {
	case *geometry.TriangleMesh:
		return obj.GetTriangleCount()
	default:
		return 1
	}
}

// AddSphereLight adds a spherical light to the scene.
func (s *Scene) AddSphereLight(center core.Vec3, radius float64, emission core.Vec3) {
	emissiveMat := material.NewEmissive(emission)
	sphereLight := lights.NewSphereLight(center, radius, emissiveMat)
	s.Lights = append(s.Lights, sphereLight)
	s.Shapes = append(s.Shapes, sphereLight.Sphere)
}

// AddQuadLight adds a rectangular area light to the scene.
func (s *Scene) AddQuadLight(corner, u, v core.Vec3, emission core.Vec3) {
	emissiveMat := material.NewEmissive(emission)
	quadLight := lights.NewQuadLight(corner, u, v, emissiveMat)
	s.Lights = append(s.Lights, quadLight)
	s.Shapes = append(s.Shapes, quadLight.Quad)
}

// AddDiscLight adds a circular area light to the scene.
func (s *Scene) AddDiscLight(center, normal core.Vec3, radius float64, emission core.Vec3) {
	emissiveMat := material.NewEmissive(emission)
	discLight := lights.NewDiscLight(center, normal, radius, emissiveMat)
	s.Lights = append(s.Lights, discLight)
	s.Shapes = append(s.Shapes, discLight.Disc)
}

// AddPointLight adds a delta point light to the scene.
func (s *Scene) AddPointLight(position, intensity core.Vec3) {
	s.Lights = append(s.Lights, lights.NewPointLight(position, intensity))
}

// AddSpotLight adds a delta spot light to the scene. totalWidth and
// falloffStart are half-angles in degrees.
func (s *Scene) AddSpotLight(position, direction, intensity core.Vec3, totalWidthDegrees, falloffStartDegrees float64) {
	const deg2rad = 3.14159265358979323846 / 180.0
	s.Lights = append(s.Lights, lights.NewSpotLight(position, direction, intensity, totalWidthDegrees*deg2rad, falloffStartDegrees*deg2rad))
}

// AddUniformInfiniteLight adds a constant-color environment light to the scene.
func (s *Scene) AddUniformInfiniteLight(emission core.Vec3) {
	s.Lights = append(s.Lights, lights.NewUniformInfiniteLight(emission, 1000.0))
}

// AddGradientInfiniteLight adds a sky/ground gradient environment light to the scene.
func (s *Scene) AddGradientInfiniteLight(topColor, bottomColor core.Vec3) {
	s.Lights = append(s.Lights, lights.NewGradientInfiniteLight(topColor, bottomColor, 1000.0))
}
