package scene

import (
	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/geometry"
	"github.com/df07/go-progressive-raytracer/pkg/material"
)

// CornellGeometryType selects which interior objects populate the Cornell
// box, so callers can pick between the classic two-box layout, two test
// spheres, or an empty box for light-transport diagnostics.
type CornellGeometryType int

const (
	CornellBoxes CornellGeometryType = iota
	CornellSpheres
	CornellEmpty
)

// NewCornellScene creates a classic Cornell box scene with quad walls and
// an area light in the ceiling.
func NewCornellScene(geometryType CornellGeometryType, cameraOverrides ...geometry.CameraConfig) *Scene {
	defaultCameraConfig := geometry.CameraConfig{
		Center:        core.NewVec3(278, 278, -800),
		LookAt:        core.NewVec3(278, 278, 0),
		Up:            core.NewVec3(0, 1, 0),
		Width:         400,
		Height:        400,
		Aspect:        1.0,
		VFov:          40.0,
		Aperture:      0.0,
		FocusDistance: 0.0,
	}

	cameraConfig := defaultCameraConfig
	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(defaultCameraConfig, cameraOverrides[0])
	}

	camera := geometry.NewCamera(cameraConfig)

	samplingConfig := SamplingConfig{
		Width:                     cameraConfig.Width,
		Height:                    cameraConfig.Height,
		SamplesPerPixel:           150,
		MaxDepth:                  40,
		RussianRouletteMinBounces: 4,
		AdaptiveMinSamples:        0.2,
		AdaptiveThreshold:         0.01,
		VarianceClampMax:          10.0,
	}

	s := &Scene{
		Camera:         camera,
		Shapes:         make([]geometry.Shape, 0),
		Lights:         make([]core.Emitter, 0),
		SamplingConfig: samplingConfig,
		CameraConfig:   cameraConfig,
	}

	white := material.NewLambertian(core.NewVec3(0.73, 0.73, 0.73))
	red := material.NewLambertian(core.NewVec3(0.65, 0.05, 0.05))
	green := material.NewLambertian(core.NewVec3(0.12, 0.45, 0.15))

	boxSize := 555.0

	floor := geometry.NewQuad(
		core.NewVec3(0, 0, 0),
		core.NewVec3(boxSize, 0, 0),
		core.NewVec3(0, 0, boxSize),
		white,
	)
	ceiling := geometry.NewQuad(
		core.NewVec3(0, boxSize, 0),
		core.NewVec3(boxSize, 0, 0),
		core.NewVec3(0, 0, boxSize),
		white,
	)
	backWall := geometry.NewQuad(
		core.NewVec3(0, 0, boxSize),
		core.NewVec3(boxSize, 0, 0),
		core.NewVec3(0, boxSize, 0),
		white,
	)
	leftWall := geometry.NewQuad(
		core.NewVec3(0, 0, 0),
		core.NewVec3(0, 0, boxSize),
		core.NewVec3(0, boxSize, 0),
		red,
	)
	rightWall := geometry.NewQuad(
		core.NewVec3(boxSize, 0, 0),
		core.NewVec3(0, boxSize, 0),
		core.NewVec3(0, 0, boxSize),
		green,
	)
	s.Shapes = append(s.Shapes, floor, ceiling, backWall, leftWall, rightWall)

	lightSize := 130.0
	lightOffset := (boxSize - lightSize) / 2.0
	s.AddQuadLight(
		core.NewVec3(lightOffset, boxSize-1, lightOffset),
		core.NewVec3(lightSize, 0, 0),
		core.NewVec3(0, 0, lightSize),
		core.NewVec3(15.0, 15.0, 15.0),
	)

	switch geometryType {
	case CornellSpheres:
		leftSphere := geometry.NewSphere(
			core.NewVec3(185, 82.5, 169), 82.5,
			material.NewMetal(core.NewVec3(0.8, 0.8, 0.9), 0.0),
		)
		rightSphere := geometry.NewSphere(
			core.NewVec3(370, 90, 351), 90,
			material.NewDielectric(1.5),
		)
		s.Shapes = append(s.Shapes, leftSphere, rightSphere)
	case CornellBoxes:
		tallBox := geometry.NewAxisAlignedBox(
			core.NewVec3(368, 165, 351), core.NewVec3(165, 330, 165), white,
		)
		shortBox := geometry.NewAxisAlignedBox(
			core.NewVec3(185, 82.5, 169), core.NewVec3(165, 165, 165), white,
		)
		s.Shapes = append(s.Shapes, tallBox, shortBox)
	case CornellEmpty:
		// No interior objects; light-transport diagnostics want bare walls.
	}

	return s
}
