package scene

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/loaders"
	"github.com/df07/go-progressive-raytracer/pkg/material"
)

func TestConvertMaterial(t *testing.T) {
	tests := []struct {
		name     string
		stmt     *loaders.PBRTStatement
		expected string
	}{
		{
			name: "diffuse material",
			stmt: &loaders.PBRTStatement{
				Type:    "Material",
				Subtype: "diffuse",
				Parameters: map[string]loaders.PBRTParam{
					"reflectance": {Type: "rgb", Values: []string{"0.8", "0.6", "0.4"}},
				},
			},
			expected: "*material.Lambertian",
		},
		{
			name: "conductor material",
			stmt: &loaders.PBRTStatement{
				Type:    "Material",
				Subtype: "conductor",
				Parameters: map[string]loaders.PBRTParam{
					"eta":       {Type: "rgb", Values: []string{"0.2", "0.9", "1.0"}},
					"roughness": {Type: "float", Values: []string{"0.1"}},
				},
			},
			expected: "*material.Metal",
		},
		{
			name: "dielectric material",
			stmt: &loaders.PBRTStatement{
				Type:    "Material",
				Subtype: "dielectric",
				Parameters: map[string]loaders.PBRTParam{
					"eta": {Type: "float", Values: []string{"1.5"}},
				},
			},
			expected: "*material.Dielectric",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mat, err := convertMaterial(tt.stmt)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, fmt.Sprintf("%T", mat))
		})
	}
}

func TestConvertShape(t *testing.T) {
	mat := material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))

	sphereStmt := &loaders.PBRTStatement{
		Type:    "Shape",
		Subtype: "sphere",
		Parameters: map[string]loaders.PBRTParam{
			"radius": {Type: "float", Values: []string{"2.5"}},
		},
	}
	shape, err := convertShape(sphereStmt, mat, "")
	require.NoError(t, err)
	assert.Equal(t, "*geometry.Sphere", fmt.Sprintf("%T", shape))

	patchStmt := &loaders.PBRTStatement{
		Type:    "Shape",
		Subtype: "bilinearPatch",
		Parameters: map[string]loaders.PBRTParam{
			"P00": {Type: "point3", Values: []string{"0", "0", "0"}},
			"P01": {Type: "point3", Values: []string{"1", "0", "0"}},
			"P10": {Type: "point3", Values: []string{"0", "1", "0"}},
			"P11": {Type: "point3", Values: []string{"1", "1", "0"}},
		},
	}
	shape, err = convertShape(patchStmt, mat, "")
	require.NoError(t, err)
	assert.Equal(t, "*geometry.Quad", fmt.Sprintf("%T", shape))
}

// A plymesh shape resolves its filename against the scene file's directory
// and comes back as a triangle mesh.
func TestConvertShapePLYMesh(t *testing.T) {
	dir := t.TempDir()
	writeSingleTrianglePLY(t, filepath.Join(dir, "mesh.ply"))

	mat := material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))
	stmt := &loaders.PBRTStatement{
		Type:    "Shape",
		Subtype: "plymesh",
		Parameters: map[string]loaders.PBRTParam{
			"filename": {Type: "string", Values: []string{"mesh.ply"}},
		},
	}

	shape, err := convertShape(stmt, mat, dir)
	require.NoError(t, err)
	assert.Equal(t, "*geometry.TriangleMesh", fmt.Sprintf("%T", shape))

	// A missing file must surface as an error, not a nil shape.
	missing := &loaders.PBRTStatement{
		Type:    "Shape",
		Subtype: "plymesh",
		Parameters: map[string]loaders.PBRTParam{
			"filename": {Type: "string", Values: []string{"absent.ply"}},
		},
	}
	_, err = convertShape(missing, mat, dir)
	assert.Error(t, err)
}

// writeSingleTrianglePLY emits a minimal binary little-endian PLY: three
// vertices, one triangle.
func writeSingleTrianglePLY(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("ply\n")
	buf.WriteString("format binary_little_endian 1.0\n")
	buf.WriteString("element vertex 3\n")
	buf.WriteString("property float x\nproperty float y\nproperty float z\n")
	buf.WriteString("element face 1\n")
	buf.WriteString("property list uchar int vertex_indices\n")
	buf.WriteString("end_header\n")
	for _, p := range [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}} {
		binary.Write(&buf, binary.LittleEndian, p)
	}
	buf.WriteByte(3)
	binary.Write(&buf, binary.LittleEndian, [3]int32{0, 1, 2})
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestConvertLight(t *testing.T) {
	tests := []struct {
		name     string
		stmt     *loaders.PBRTStatement
		expected string
	}{
		{
			name: "point light",
			stmt: &loaders.PBRTStatement{
				Type:    "LightSource",
				Subtype: "point",
				Parameters: map[string]loaders.PBRTParam{
					"I":    {Type: "rgb", Values: []string{"10", "8", "6"}},
					"from": {Type: "point3", Values: []string{"0", "5", "0"}},
				},
			},
			expected: "*lights.PointLight",
		},
		{
			name: "distant light",
			stmt: &loaders.PBRTStatement{
				Type:    "LightSource",
				Subtype: "distant",
				Parameters: map[string]loaders.PBRTParam{
					"L":    {Type: "rgb", Values: []string{"3", "3", "3"}},
					"from": {Type: "point3", Values: []string{"0", "0", "0"}},
					"to":   {Type: "point3", Values: []string{"0", "0", "1"}},
				},
			},
			expected: "*lights.UniformInfiniteLight",
		},
		{
			name: "infinite light",
			stmt: &loaders.PBRTStatement{
				Type:    "LightSource",
				Subtype: "infinite",
				Parameters: map[string]loaders.PBRTParam{
					"L": {Type: "rgb", Values: []string{"1", "1", "1"}},
				},
			},
			expected: "*lights.UniformInfiniteLight",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			light, err := convertLight(tt.stmt)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, fmt.Sprintf("%T", light))
		})
	}
}

func TestConvertCamera(t *testing.T) {
	pbrtScene := &loaders.PBRTScene{
		LookAt:   &core.Vec3{X: 1, Y: 2, Z: 3},
		LookAtTo: &core.Vec3{X: 4, Y: 5, Z: 6},
		LookAtUp: &core.Vec3{X: 0, Y: 1, Z: 0},
		Camera: &loaders.PBRTStatement{
			Type:    "Camera",
			Subtype: "perspective",
			Parameters: map[string]loaders.PBRTParam{
				"fov": {Type: "float", Values: []string{"35"}},
			},
		},
		Film: &loaders.PBRTStatement{
			Type:    "Film",
			Subtype: "rgb",
			Parameters: map[string]loaders.PBRTParam{
				"xresolution": {Type: "integer", Values: []string{"800"}},
				"yresolution": {Type: "integer", Values: []string{"600"}},
			},
		},
	}

	scene := &Scene{
		SamplingConfig: createDefaultPBRTSamplingConfig(),
	}

	err := convertCamera(pbrtScene, scene)
	require.NoError(t, err)

	assert.Equal(t, core.Vec3{X: 1, Y: 2, Z: 3}, scene.CameraConfig.Center)
	assert.Equal(t, core.Vec3{X: 4, Y: 5, Z: 6}, scene.CameraConfig.LookAt)
	assert.Equal(t, 35.0, scene.CameraConfig.VFov)
	assert.Equal(t, 800, scene.SamplingConfig.Width)
	assert.Equal(t, 600, scene.SamplingConfig.Height)
}

func loadPBRTString(t *testing.T, content string) *Scene {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "pbrt_scene_test_*.pbrt")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())

	parsed, err := loaders.LoadPBRT(tmpFile.Name())
	require.NoError(t, err)

	s, err := NewPBRTScene(parsed)
	require.NoError(t, err)
	return s
}

func TestNewPBRTSceneIntegration(t *testing.T) {
	content := `# Integration test PBRT scene
LookAt 0 0 5  0 0 0  0 1 0
Camera "perspective" "float fov" 40

Film "rgb" "string filename" "test.png" "integer xresolution" 200 "integer yresolution" 200

Sampler "halton" "integer pixelsamples" 16
Integrator "volpath"

WorldBegin

# White material
Material "diffuse" "rgb reflectance" [0.8 0.8 0.8]

# Floor quad
Shape "bilinearPatch" "point3 P00" [-2 -1 -2] "point3 P01" [2 -1 -2] "point3 P10" [-2 -1 2] "point3 P11" [2 -1 2]

# Test attribute block with different material and shape
AttributeBegin
    Material "conductor" "rgb eta" [0.2 0.9 1.0] "float roughness" 0.1
    Shape "sphere" "float radius" 0.5
AttributeEnd

# Test light
LightSource "infinite" "rgb L" [2 2 2]

# Test area light
AttributeBegin
    Material "diffuse" "rgb reflectance" [0 0 0]
    AreaLightSource "diffuse" "rgb L" [15 12 8]
    Shape "bilinearPatch" "point3 P00" [-0.5 2 -0.5] "point3 P01" [0.5 2 -0.5] "point3 P10" [-0.5 2 0.5] "point3 P11" [0.5 2 0.5]
AttributeEnd

WorldEnd
`

	s := loadPBRTString(t, content)
	require.NotNil(t, s)
	assert.NotNil(t, s.Camera)
	assert.Equal(t, 200, s.SamplingConfig.Width)
	assert.Equal(t, 200, s.SamplingConfig.Height)
	assert.GreaterOrEqual(t, len(s.Shapes), 2)
	assert.GreaterOrEqual(t, len(s.Lights), 1)

	require.NoError(t, s.Preprocess())
	assert.NotNil(t, s.BVH)
	assert.NotNil(t, s.LightStrategy)
}

func TestPBRTSceneErrorHandling(t *testing.T) {
	_, err := loaders.LoadPBRT("nonexistent.pbrt")
	assert.Error(t, err)

	// Shapes outside WorldBegin are ignored, not an error.
	content := `# Invalid PBRT - missing WorldBegin
LookAt 0 0 1  0 0 0  0 1 0
Shape "sphere" "float radius" 1.0
`
	s := loadPBRTString(t, content)
	assert.Empty(t, s.Shapes)
}

func TestPBRTInputValidation(t *testing.T) {
	testCases := []struct {
		name        string
		content     string
		expectError bool
		errorMsg    string
	}{
		{
			name: "invalid FOV - too high",
			content: `LookAt 0 0 5  0 0 0  0 1 0
Camera "perspective" "float fov" 200
Film "rgb" "integer xresolution" 100 "integer yresolution" 100
WorldBegin
WorldEnd`,
			expectError: true,
			errorMsg:    "invalid camera FOV",
		},
		{
			name: "invalid FOV - negative",
			content: `LookAt 0 0 5  0 0 0  0 1 0
Camera "perspective" "float fov" -10
Film "rgb" "integer xresolution" 100 "integer yresolution" 100
WorldBegin
WorldEnd`,
			expectError: true,
			errorMsg:    "invalid camera FOV",
		},
		{
			name: "invalid sphere radius - negative",
			content: `LookAt 0 0 5  0 0 0  0 1 0
Camera "perspective" "float fov" 40
Film "rgb" "integer xresolution" 100 "integer yresolution" 100
WorldBegin
Material "diffuse" "rgb reflectance" [0.7 0.7 0.7]
Shape "sphere" "float radius" -1.0
WorldEnd`,
			expectError: true,
			errorMsg:    "invalid sphere radius",
		},
		{
			name: "invalid IOR - negative",
			content: `LookAt 0 0 5  0 0 0  0 1 0
Camera "perspective" "float fov" 40
Film "rgb" "integer xresolution" 100 "integer yresolution" 100
WorldBegin
Material "dielectric" "float eta" -1.5
Shape "sphere" "float radius" 1.0
WorldEnd`,
			expectError: true,
			errorMsg:    "invalid dielectric IOR",
		},
		{
			name: "invalid image width - too large",
			content: `LookAt 0 0 5  0 0 0  0 1 0
Camera "perspective" "float fov" 40
Film "rgb" "integer xresolution" 10000 "integer yresolution" 100
WorldBegin
WorldEnd`,
			expectError: true,
			errorMsg:    "invalid image width",
		},
		{
			name: "valid parameters",
			content: `LookAt 0 0 5  0 0 0  0 1 0
Camera "perspective" "float fov" 40
Film "rgb" "integer xresolution" 200 "integer yresolution" 200
WorldBegin
Material "dielectric" "float eta" 1.5
Shape "sphere" "float radius" 1.0
WorldEnd`,
			expectError: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tmpFile, err := os.CreateTemp("", "validation_*.pbrt")
			require.NoError(t, err)
			defer os.Remove(tmpFile.Name())

			_, err = tmpFile.WriteString(tc.content)
			require.NoError(t, err)
			require.NoError(t, tmpFile.Close())

			parsed, err := loaders.LoadPBRT(tmpFile.Name())
			require.NoError(t, err)

			_, err = NewPBRTScene(parsed)
			if tc.expectError {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tc.errorMsg))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
