package loaders

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// PLYProperty is one property declaration from a PLY header. Scalar
// properties carry Type; list properties carry the count type and the
// element type instead.
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // type of the per-element count
	DataType string // type of the list elements
}

// PLYHeader is the parsed header of a PLY file: format, element counts and
// the per-element property layouts the binary reader needs to walk a
// vertex or face record.
type PLYHeader struct {
	Format      string // "binary_little_endian", "binary_big_endian", or "ascii"
	Version     string
	VertexCount int
	FaceCount   int
	VertexProps []PLYProperty
	FaceProps   []PLYProperty
	HasNormals  bool
}

// PLYData is the mesh payload of a PLY file: vertex positions, triangle
// indices, and per-vertex normals when the file declares them. Properties
// the renderer has no use for (colors, quality, confidence, custom
// scalars) are skipped at read time rather than materialized.
type PLYData struct {
	Vertices []core.Vec3
	Faces    []int       // triangle indices, 3 per face
	Normals  []core.Vec3 // empty if the file has no nx/ny/nz
}

// LoadPLY reads a binary little-endian PLY mesh from disk.
func LoadPLY(filename string) (*PLYData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	defer file.Close()

	header, headerSize, err := parsePLYHeader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PLY header: %w", err)
	}

	if _, err := file.Seek(int64(headerSize), io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek past PLY header: %w", err)
	}

	switch header.Format {
	case "binary_little_endian":
		data, err := readBinaryLittleEndian(file, header)
		if err != nil {
			return nil, fmt.Errorf("failed to read PLY data: %w", err)
		}
		return data, nil
	case "binary_big_endian", "ascii":
		return nil, fmt.Errorf("PLY format %q not supported", header.Format)
	default:
		return nil, fmt.Errorf("unrecognized PLY format %q", header.Format)
	}
}

// parsePLYHeader reads the text header and returns it together with the
// byte offset where the binary payload begins.
func parsePLYHeader(file *os.File) (*PLYHeader, int, error) {
	header := &PLYHeader{}

	scanner := bufio.NewScanner(file)
	bytesRead := 0
	currentElement := ""

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		bytesRead += len(scanner.Bytes()) + 1 // +1 for the newline

		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "ply", "comment":
			// magic line / free text
		case "format":
			if len(parts) >= 3 {
				header.Format = parts[1]
				header.Version = parts[2]
			}
		case "element":
			if len(parts) < 3 {
				return nil, 0, fmt.Errorf("malformed element line %q", line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil {
				return nil, 0, fmt.Errorf("invalid element count %q: %w", parts[2], err)
			}
			currentElement = parts[1]
			switch currentElement {
			case "vertex":
				header.VertexCount = count
			case "face":
				header.FaceCount = count
			}
		case "property":
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, 0, err
			}
			switch currentElement {
			case "vertex":
				header.VertexProps = append(header.VertexProps, prop)
				if prop.Name == "nx" || prop.Name == "ny" || prop.Name == "nz" {
					header.HasNormals = true
				}
			case "face":
				header.FaceProps = append(header.FaceProps, prop)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("error reading PLY header: %w", err)
	}

	return header, bytesRead, nil
}

func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("malformed property definition %q", strings.Join(parts, " "))
	}
	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("malformed list property %q", strings.Join(parts, " "))
		}
		return PLYProperty{IsList: true, ListType: parts[1], DataType: parts[2], Name: parts[3]}, nil
	}
	return PLYProperty{Type: parts[0], Name: parts[1]}, nil
}

// vertexLayout records, for the properties the renderer consumes, their
// byte offsets within one fixed-size vertex record, so the bulk reader can
// decode positions and normals directly without reflecting over every
// property per vertex.
type vertexLayout struct {
	recordSize int
	position   [3]int // offsets of x, y, z
	normal     [3]int // offsets of nx, ny, nz; valid only when hasNormals
	hasNormals bool
}

func layoutVertexRecord(props []PLYProperty) (vertexLayout, error) {
	layout := vertexLayout{position: [3]int{-1, -1, -1}, normal: [3]int{-1, -1, -1}}
	offset := 0
	for _, prop := range props {
		if prop.IsList {
			return layout, fmt.Errorf("list-typed vertex property %q not supported", prop.Name)
		}
		switch prop.Name {
		case "x", "y", "z", "nx", "ny", "nz":
			if prop.Type != "float" && prop.Type != "float32" {
				return layout, fmt.Errorf("vertex property %q must be float, got %q", prop.Name, prop.Type)
			}
		}
		switch prop.Name {
		case "x":
			layout.position[0] = offset
		case "y":
			layout.position[1] = offset
		case "z":
			layout.position[2] = offset
		case "nx":
			layout.normal[0] = offset
		case "ny":
			layout.normal[1] = offset
		case "nz":
			layout.normal[2] = offset
		}
		offset += plyTypeSize(prop.Type)
	}
	layout.recordSize = offset

	for axis, off := range layout.position {
		if off < 0 {
			return layout, fmt.Errorf("vertex element missing position axis %d", axis)
		}
	}
	layout.hasNormals = layout.normal[0] >= 0 && layout.normal[1] >= 0 && layout.normal[2] >= 0
	return layout, nil
}

func readFloat32At(record []byte, offset int) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(record[offset:])))
}

// readBinaryLittleEndian decodes the vertex and face payloads. Vertices
// are slurped in one bulk read and decoded by precomputed offsets; faces
// go through a buffered reader since their list properties are variable
// width.
func readBinaryLittleEndian(file *os.File, header *PLYHeader) (*PLYData, error) {
	layout, err := layoutVertexRecord(header.VertexProps)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, layout.recordSize*header.VertexCount)
	if _, err := io.ReadFull(file, raw); err != nil {
		return nil, fmt.Errorf("failed to read vertex data: %w", err)
	}

	data := &PLYData{
		Vertices: make([]core.Vec3, 0, header.VertexCount),
		Faces:    make([]int, 0, header.FaceCount*3),
	}
	if layout.hasNormals {
		data.Normals = make([]core.Vec3, 0, header.VertexCount)
	}

	for i := 0; i < header.VertexCount; i++ {
		record := raw[i*layout.recordSize : (i+1)*layout.recordSize]
		data.Vertices = append(data.Vertices, core.NewVec3(
			readFloat32At(record, layout.position[0]),
			readFloat32At(record, layout.position[1]),
			readFloat32At(record, layout.position[2]),
		))
		if layout.hasNormals {
			data.Normals = append(data.Normals, core.NewVec3(
				readFloat32At(record, layout.normal[0]),
				readFloat32At(record, layout.normal[1]),
				readFloat32At(record, layout.normal[2]),
			))
		}
	}

	reader := bufio.NewReaderSize(file, 1<<20)
	for i := 0; i < header.FaceCount; i++ {
		for _, prop := range header.FaceProps {
			if prop.IsList && prop.Name == "vertex_indices" {
				if err := readFaceIndices(reader, prop, data); err != nil {
					return nil, fmt.Errorf("face %d: %w", i, err)
				}
			} else if err := skipProperty(reader, prop); err != nil {
				return nil, fmt.Errorf("face %d, property %q: %w", i, prop.Name, err)
			}
		}
	}

	return data, nil
}

func readFaceIndices(reader *bufio.Reader, prop PLYProperty, data *PLYData) error {
	count, err := readListCount(reader, prop.ListType)
	if err != nil {
		return err
	}
	if count != 3 {
		return fmt.Errorf("only triangular faces are supported, got %d vertices", count)
	}

	for v := 0; v < 3; v++ {
		var idx int
		switch prop.DataType {
		case "int", "int32":
			var value int32
			if err := binary.Read(reader, binary.LittleEndian, &value); err != nil {
				return fmt.Errorf("failed to read face index: %w", err)
			}
			idx = int(value)
		case "uint", "uint32":
			var value uint32
			if err := binary.Read(reader, binary.LittleEndian, &value); err != nil {
				return fmt.Errorf("failed to read face index: %w", err)
			}
			idx = int(value)
		default:
			return fmt.Errorf("unsupported face index type %q", prop.DataType)
		}
		data.Faces = append(data.Faces, idx)
	}
	return nil
}

func readListCount(reader *bufio.Reader, listType string) (int, error) {
	switch listType {
	case "uchar", "uint8":
		b, err := reader.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("failed to read face vertex count: %w", err)
		}
		return int(b), nil
	case "int", "int32":
		var value int32
		if err := binary.Read(reader, binary.LittleEndian, &value); err != nil {
			return 0, fmt.Errorf("failed to read face vertex count: %w", err)
		}
		return int(value), nil
	default:
		return 0, fmt.Errorf("unsupported list count type %q", listType)
	}
}

func skipProperty(reader *bufio.Reader, prop PLYProperty) error {
	if !prop.IsList {
		_, err := reader.Discard(plyTypeSize(prop.Type))
		return err
	}
	count, err := readListCount(reader, prop.ListType)
	if err != nil {
		return err
	}
	_, err = reader.Discard(count * plyTypeSize(prop.DataType))
	return err
}

// plyTypeSize returns the byte width of a PLY scalar type.
func plyTypeSize(dataType string) int {
	switch dataType {
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default: // float, float32, int, int32, uint, uint32
		return 4
	}
}
