package loaders

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// writeTestPLY builds a little-endian binary PLY with four vertices (a unit
// square) and two triangles, optionally interleaving normals and uchar
// colors into the vertex records.
func writeTestPLY(t *testing.T, filename string, includeNormals, includeColors bool) {
	t.Helper()
	var buf bytes.Buffer

	buf.WriteString("ply\n")
	buf.WriteString("format binary_little_endian 1.0\n")
	buf.WriteString("element vertex 4\n")
	buf.WriteString("property float x\n")
	buf.WriteString("property float y\n")
	buf.WriteString("property float z\n")
	if includeNormals {
		buf.WriteString("property float nx\n")
		buf.WriteString("property float ny\n")
		buf.WriteString("property float nz\n")
	}
	if includeColors {
		buf.WriteString("property uchar red\n")
		buf.WriteString("property uchar green\n")
		buf.WriteString("property uchar blue\n")
	}
	buf.WriteString("element face 2\n")
	buf.WriteString("property list uchar int vertex_indices\n")
	buf.WriteString("end_header\n")

	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	for _, p := range positions {
		binary.Write(&buf, binary.LittleEndian, p)
		if includeNormals {
			binary.Write(&buf, binary.LittleEndian, [3]float32{0, 0, 1})
		}
		if includeColors {
			buf.Write([]byte{255, 128, 0})
		}
	}

	for _, face := range [][3]int32{{0, 1, 2}, {0, 2, 3}} {
		buf.WriteByte(3)
		binary.Write(&buf, binary.LittleEndian, face)
	}

	require.NoError(t, os.WriteFile(filename, buf.Bytes(), 0o644))
}

func TestLoadPLYBasic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "basic.ply")
	writeTestPLY(t, path, false, false)

	data, err := LoadPLY(path)
	require.NoError(t, err)

	require.Len(t, data.Vertices, 4)
	assert.True(t, data.Vertices[1].Equals(core.NewVec3(1, 0, 0)))
	assert.True(t, data.Vertices[3].Equals(core.NewVec3(0, 1, 0)))
	assert.Equal(t, []int{0, 1, 2, 0, 2, 3}, data.Faces)
	assert.Empty(t, data.Normals)
}

func TestLoadPLYWithNormals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "normals.ply")
	writeTestPLY(t, path, true, false)

	data, err := LoadPLY(path)
	require.NoError(t, err)

	require.Len(t, data.Normals, 4)
	for _, n := range data.Normals {
		assert.True(t, n.Equals(core.NewVec3(0, 0, 1)))
	}
}

// Color properties interleaved into the vertex record must not throw off
// the position/normal offsets even though the loader discards them.
func TestLoadPLYSkipsUnusedVertexProperties(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colors.ply")
	writeTestPLY(t, path, true, true)

	data, err := LoadPLY(path)
	require.NoError(t, err)

	require.Len(t, data.Vertices, 4)
	assert.True(t, data.Vertices[2].Equals(core.NewVec3(1, 1, 0)))
	require.Len(t, data.Normals, 4)
	assert.True(t, data.Normals[0].Equals(core.NewVec3(0, 0, 1)))
	assert.Equal(t, []int{0, 1, 2, 0, 2, 3}, data.Faces)
}

func TestLoadPLYRejectsNonTriangularFaces(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("ply\nformat binary_little_endian 1.0\n")
	buf.WriteString("element vertex 4\n")
	buf.WriteString("property float x\nproperty float y\nproperty float z\n")
	buf.WriteString("element face 1\n")
	buf.WriteString("property list uchar int vertex_indices\n")
	buf.WriteString("end_header\n")
	for i := 0; i < 4; i++ {
		binary.Write(&buf, binary.LittleEndian, [3]float32{})
	}
	buf.WriteByte(4) // a quad face
	binary.Write(&buf, binary.LittleEndian, [4]int32{0, 1, 2, 3})

	path := filepath.Join(t.TempDir(), "quadface.ply")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	_, err := LoadPLY(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "triangular")
}

func TestLoadPLYRejectsUnsupportedFormats(t *testing.T) {
	for _, format := range []string{"ascii", "binary_big_endian"} {
		path := filepath.Join(t.TempDir(), format+".ply")
		content := "ply\nformat " + format + " 1.0\nelement vertex 0\nelement face 0\nend_header\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		_, err := LoadPLY(path)
		assert.Error(t, err, format)
	}
}

func TestLoadPLYMissingFile(t *testing.T) {
	_, err := LoadPLY(filepath.Join(t.TempDir(), "absent.ply"))
	assert.Error(t, err)
}

func TestParsePLYHeader(t *testing.T) {
	content := `ply
format binary_little_endian 1.0
comment test mesh
element vertex 100
property float x
property float y
property float z
property float nx
property float ny
property float nz
element face 50
property list uchar int vertex_indices
end_header
`
	path := filepath.Join(t.TempDir(), "header.ply")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	header, headerSize, err := parsePLYHeader(file)
	require.NoError(t, err)

	assert.Equal(t, "binary_little_endian", header.Format)
	assert.Equal(t, "1.0", header.Version)
	assert.Equal(t, 100, header.VertexCount)
	assert.Equal(t, 50, header.FaceCount)
	assert.True(t, header.HasNormals)
	assert.Len(t, header.VertexProps, 6)
	require.Len(t, header.FaceProps, 1)
	assert.True(t, header.FaceProps[0].IsList)
	assert.Equal(t, len(content), headerSize)
}

func TestLayoutVertexRecordRequiresPositions(t *testing.T) {
	_, err := layoutVertexRecord([]PLYProperty{
		{Name: "x", Type: "float"},
		{Name: "y", Type: "float"},
	})
	assert.Error(t, err)

	layout, err := layoutVertexRecord([]PLYProperty{
		{Name: "x", Type: "float"},
		{Name: "y", Type: "float"},
		{Name: "z", Type: "float"},
		{Name: "red", Type: "uchar"},
	})
	require.NoError(t, err)
	assert.Equal(t, 13, layout.recordSize)
	assert.False(t, layout.hasNormals)
}

func TestPLYTypeSize(t *testing.T) {
	assert.Equal(t, 4, plyTypeSize("float"))
	assert.Equal(t, 8, plyTypeSize("double"))
	assert.Equal(t, 2, plyTypeSize("ushort"))
	assert.Equal(t, 1, plyTypeSize("uchar"))
	assert.Equal(t, 4, plyTypeSize("int"))
}
