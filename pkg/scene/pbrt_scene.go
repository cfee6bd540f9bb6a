package scene

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/geometry"
	"github.com/df07/go-progressive-raytracer/pkg/lights"
	"github.com/df07/go-progressive-raytracer/pkg/loaders"
	"github.com/df07/go-progressive-raytracer/pkg/material"
)

// NewPBRTScene builds a Scene from an already-parsed PBRT scene (see
// loaders.LoadPBRT). Scene-file syntax compatibility is explicitly out of
// scope for correctness; this is a real, working collaborator for the
// subset of PBRT directives the loader understands.
func NewPBRTScene(pbrtScene *loaders.PBRTScene, cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	scene := &Scene{
		Shapes:         make([]geometry.Shape, 0),
		Lights:         make([]core.Emitter, 0),
		SamplingConfig: createDefaultPBRTSamplingConfig(),
	}

	if err := convertCamera(pbrtScene, scene, cameraOverrides...); err != nil {
		return nil, fmt.Errorf("failed to convert camera: %v", err)
	}

	materials := make([]core.BSDF, len(pbrtScene.Materials))
	for i, matStmt := range pbrtScene.Materials {
		mat, err := convertMaterial(&matStmt)
		if err != nil {
			return nil, fmt.Errorf("failed to convert material: %v", err)
		}
		materials[i] = mat
	}

	for _, shapeStmt := range pbrtScene.Shapes {
		var shapeMaterial core.BSDF
		if shapeStmt.MaterialIndex >= 0 && shapeStmt.MaterialIndex < len(materials) {
			shapeMaterial = materials[shapeStmt.MaterialIndex]
		} else {
			return nil, fmt.Errorf("shape has no valid material (MaterialIndex: %d)", shapeStmt.MaterialIndex)
		}

		shape, err := convertShape(&shapeStmt, shapeMaterial, pbrtScene.BasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to convert shape: %v", err)
		}
		if shape != nil {
			scene.Shapes = append(scene.Shapes, shape)
		}
	}

	for _, lightStmt := range pbrtScene.LightSources {
		light, err := convertLight(&lightStmt)
		if err != nil {
			return nil, fmt.Errorf("failed to convert light: %v", err)
		}
		if light != nil {
			scene.Lights = append(scene.Lights, light)
		}
	}

	for _, attrBlock := range pbrtScene.Attributes {
		if err := processAttributeBlock(&attrBlock, scene, materials, pbrtScene.BasePath); err != nil {
			return nil, fmt.Errorf("failed to process attribute block: %v", err)
		}
	}

	return scene, nil
}

func createDefaultPBRTSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Width:                     400,
		Height:                    400,
		SamplesPerPixel:           100,
		MaxDepth:                  5,
		RussianRouletteMinBounces: 3,
		AdaptiveMinSamples:        0.25,
		AdaptiveThreshold:         0.01,
		VarianceClampMax:          10.0,
	}
}

func convertCamera(pbrtScene *loaders.PBRTScene, scene *Scene, cameraOverrides ...geometry.CameraConfig) error {
	cameraConfig := geometry.CameraConfig{
		Center:        core.NewVec3(0, 0, 0),
		LookAt:        core.NewVec3(0, 0, -1),
		Up:            core.NewVec3(0, 1, 0),
		Width:         400,
		Height:        400,
		Aspect:        1.0,
		VFov:          90.0,
		Aperture:      0.0,
		FocusDistance: 1.0,
	}

	if pbrtScene.LookAt != nil && pbrtScene.LookAtTo != nil && pbrtScene.LookAtUp != nil {
		cameraConfig.Center = *pbrtScene.LookAt
		cameraConfig.LookAt = *pbrtScene.LookAtTo
		cameraConfig.Up = *pbrtScene.LookAtUp
	}

	if pbrtScene.Camera != nil {
		if pbrtScene.Camera.Subtype == "perspective" {
			if fov, ok := pbrtScene.Camera.GetFloatParam("fov"); ok {
				if fov <= 0 || fov >= 180 {
					return fmt.Errorf("invalid camera FOV %f: must be between 0 and 180 degrees", fov)
				}
				cameraConfig.VFov = fov
			}
		}
	}

	if pbrtScene.Film != nil {
		if width, ok := pbrtScene.Film.GetFloatParam("xresolution"); ok {
			if width <= 0 || width > 8192 {
				return fmt.Errorf("invalid image width %f: must be between 1 and 8192", width)
			}
			cameraConfig.Width = int(width)
			scene.SamplingConfig.Width = int(width)
		}
		if height, ok := pbrtScene.Film.GetFloatParam("yresolution"); ok {
			if height <= 0 || height > 8192 {
				return fmt.Errorf("invalid image height %f: must be between 1 and 8192", height)
			}
			cameraConfig.Height = int(height)
			scene.SamplingConfig.Height = int(height)
			cameraConfig.Aspect = float64(cameraConfig.Width) / height
		}
	}

	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(cameraConfig, cameraOverrides[0])
		if cameraOverrides[0].Width > 0 {
			scene.SamplingConfig.Width = cameraOverrides[0].Width
			scene.SamplingConfig.Height = int(float64(cameraOverrides[0].Width) / cameraConfig.Aspect)
		}
	}

	scene.CameraConfig = cameraConfig
	scene.Camera = geometry.NewCamera(cameraConfig)

	return nil
}

func convertMaterial(stmt *loaders.PBRTStatement) (core.BSDF, error) {
	switch stmt.Subtype {
	case "diffuse":
		if rgb, ok := stmt.GetRGBParam("reflectance"); ok {
			return material.NewLambertian(*rgb), nil
		}
		return material.NewLambertian(core.NewVec3(0.7, 0.7, 0.7)), nil

	case "conductor":
		albedo := core.NewVec3(0.7, 0.6, 0.5)
		if rgb, ok := stmt.GetRGBParam("eta"); ok {
			albedo = *rgb
		}

		fuzz := 0.0
		if roughness, ok := stmt.GetFloatParam("roughness"); ok {
			if roughness < 0 || roughness > 1 {
				return nil, fmt.Errorf("invalid metal roughness %f: must be between 0 and 1", roughness)
			}
			fuzz = roughness
		}

		return material.NewMetal(albedo, fuzz), nil

	case "dielectric":
		ior := 1.5
		if eta, ok := stmt.GetFloatParam("eta"); ok {
			if eta <= 0 {
				return nil, fmt.Errorf("invalid dielectric IOR %f: must be positive", eta)
			}
			ior = eta
		}
		return material.NewDielectric(ior), nil

	default:
		return nil, fmt.Errorf("unsupported material type: %s", stmt.Subtype)
	}
}

func convertShape(stmt *loaders.PBRTStatement, mat core.BSDF, basePath string) (geometry.Shape, error) {
	if mat == nil {
		return nil, fmt.Errorf("shape has no material")
	}

	switch stmt.Subtype {
	case "sphere":
		radius := 1.0
		if r, ok := stmt.GetFloatParam("radius"); ok {
			if r <= 0 {
				return nil, fmt.Errorf("invalid sphere radius %f: must be positive", r)
			}
			radius = r
		}

		center := core.NewVec3(0, 0, 0)
		return geometry.NewSphere(center, radius, mat), nil

	case "bilinearPatch":
		p00, ok1 := stmt.GetPoint3Param("P00")
		p01, ok2 := stmt.GetPoint3Param("P01")
		p10, ok3 := stmt.GetPoint3Param("P10")
		_, ok4 := stmt.GetPoint3Param("P11")

		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil, fmt.Errorf("bilinearPatch missing corner points")
		}

		corner := *p00
		u := p01.Subtract(*p00)
		v := p10.Subtract(*p00)

		return geometry.NewQuad(corner, u, v, mat), nil

	case "trianglemesh":
		param, exists := stmt.Parameters["P"]
		if !exists || len(param.Values)%3 != 0 {
			return nil, fmt.Errorf("trianglemesh missing or invalid vertices")
		}

		vertices := make([]core.Vec3, 0, len(param.Values)/3)
		for i := 0; i < len(param.Values); i += 3 {
			x, err1 := strconv.ParseFloat(param.Values[i], 64)
			if err1 != nil {
				return nil, fmt.Errorf("invalid vertex X coordinate '%s': %v", param.Values[i], err1)
			}
			y, err2 := strconv.ParseFloat(param.Values[i+1], 64)
			if err2 != nil {
				return nil, fmt.Errorf("invalid vertex Y coordinate '%s': %v", param.Values[i+1], err2)
			}
			z, err3 := strconv.ParseFloat(param.Values[i+2], 64)
			if err3 != nil {
				return nil, fmt.Errorf("invalid vertex Z coordinate '%s': %v", param.Values[i+2], err3)
			}
			vertices = append(vertices, core.NewVec3(x, y, z))
		}

		indicesParam, exists := stmt.Parameters["indices"]
		if !exists || len(indicesParam.Values)%3 != 0 {
			return nil, fmt.Errorf("trianglemesh missing or invalid indices")
		}

		indices := make([]int, 0, len(indicesParam.Values))
		for _, idxStr := range indicesParam.Values {
			idx, _ := strconv.Atoi(idxStr)
			indices = append(indices, idx)
		}

		return geometry.NewTriangleMesh(vertices, indices, mat, nil), nil

	case "plymesh":
		filename, ok := stmt.GetStringParam("filename")
		if !ok {
			return nil, fmt.Errorf("plymesh missing filename")
		}
		path := filename
		if basePath != "" && !filepath.IsAbs(filename) {
			path = filepath.Join(basePath, filename)
		}
		plyData, err := loaders.LoadPLY(path)
		if err != nil {
			return nil, fmt.Errorf("plymesh %s: %w", filename, err)
		}
		// PLY normals are per-vertex while the mesh options take one per
		// triangle, so the mesh derives its own face normals.
		return geometry.NewTriangleMesh(plyData.Vertices, plyData.Faces, mat, nil), nil

	default:
		return nil, fmt.Errorf("unsupported shape type: %s", stmt.Subtype)
	}
}

func convertLight(stmt *loaders.PBRTStatement) (core.Emitter, error) {
	switch stmt.Subtype {
	case "point":
		intensity := core.NewVec3(10, 10, 10)
		if rgb, ok := stmt.GetRGBParam("I"); ok {
			intensity = *rgb
		}

		position := core.NewVec3(0, 5, 0)
		if pos, ok := stmt.GetPoint3Param("from"); ok {
			position = *pos
		}

		return lights.NewPointLight(position, intensity), nil

	case "distant":
		radiance := core.NewVec3(3, 3, 3)
		if rgb, ok := stmt.GetRGBParam("L"); ok {
			radiance = *rgb
		}

		// Distant (directional/sun) lights aren't modeled separately here;
		// approximate with a uniform environment term.
		return lights.NewUniformInfiniteLight(radiance, 1000.0), nil

	case "infinite":
		radiance := core.NewVec3(1, 1, 1)
		if rgb, ok := stmt.GetRGBParam("L"); ok {
			radiance = *rgb
		}

		return lights.NewUniformInfiniteLight(radiance, 1000.0), nil

	case "infinite-gradient":
		topColor := core.NewVec3(0.5, 0.7, 1.0)
		bottomColor := core.NewVec3(1.0, 1.0, 1.0)

		if rgb, ok := stmt.GetRGBParam("topColor"); ok {
			topColor = *rgb
		}
		if rgb, ok := stmt.GetRGBParam("bottomColor"); ok {
			bottomColor = *rgb
		}

		return lights.NewGradientInfiniteLight(topColor, bottomColor, 1000.0), nil

	default:
		return nil, fmt.Errorf("unsupported light type: %s", stmt.Subtype)
	}
}

func processAttributeBlock(block *loaders.AttributeBlock, scene *Scene, globalMaterials []core.BSDF, basePath string) error {
	localMaterials := make([]core.BSDF, len(block.Materials))
	for i, matStmt := range block.Materials {
		mat, err := convertMaterial(&matStmt)
		if err != nil {
			return fmt.Errorf("failed to convert material in attribute block: %v", err)
		}
		localMaterials[i] = mat
	}

	for _, shapeStmt := range block.Shapes {
		var shapeMaterial core.BSDF

		if shapeStmt.MaterialIndex >= 0 && shapeStmt.MaterialIndex < len(localMaterials) {
			shapeMaterial = localMaterials[shapeStmt.MaterialIndex]
		} else if shapeStmt.MaterialIndex >= 0 && shapeStmt.MaterialIndex < len(globalMaterials) {
			shapeMaterial = globalMaterials[shapeStmt.MaterialIndex]
		} else {
			return fmt.Errorf("shape has no valid material (MaterialIndex: %d, local materials: %d, global materials: %d)",
				shapeStmt.MaterialIndex, len(localMaterials), len(globalMaterials))
		}

		isAreaLight := false
		for _, lightStmt := range block.LightSources {
			if lightStmt.Type == "AreaLightSource" {
				if rgb, ok := lightStmt.GetRGBParam("L"); ok {
					shapeMaterial = material.NewEmissive(*rgb)
					isAreaLight = true
					break
				}
			}
		}

		shape, err := convertShape(&shapeStmt, shapeMaterial, basePath)
		if err != nil {
			return fmt.Errorf("failed to convert shape in attribute block: %v", err)
		}
		if shape != nil {
			scene.Shapes = append(scene.Shapes, shape)
			if isAreaLight {
				// An area-lit shape must also register as an emitter, or
				// next-event estimation and emission-on-hit never see it.
				switch concrete := shape.(type) {
				case *geometry.Quad:
					scene.Lights = append(scene.Lights, lights.WrapQuad(concrete))
				case *geometry.Sphere:
					scene.Lights = append(scene.Lights, lights.WrapSphere(concrete))
				case *geometry.Disc:
					scene.Lights = append(scene.Lights, lights.WrapDisc(concrete))
				}
			}
		}
	}

	for _, lightStmt := range block.LightSources {
		if lightStmt.Type != "AreaLightSource" {
			light, err := convertLight(&lightStmt)
			if err != nil {
				return fmt.Errorf("failed to convert light in attribute block: %v", err)
			}
			if light != nil {
				scene.Lights = append(scene.Lights, light)
			}
		}
	}

	return nil
}
