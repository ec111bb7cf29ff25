package sceneio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/meshview/pkg/encoding"
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50
)

// ErrTruncatedSTL is returned when a binary STL ends before its triangle count.
var ErrTruncatedSTL = errors.New("truncated STL data")

// stlDecoder reads binary and ASCII stereolithography files. STL carries
// no materials or texture coordinates.
type stlDecoder struct{}

func (stlDecoder) Name() string { return "stl" }

func (stlDecoder) Extensions() []string { return []string{"stl"} }

func (stlDecoder) Match(path string, head []byte, size int64) bool {
	if isBinarySTL(head, size) {
		return true
	}
	if hasExt(path, ".stl") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n"), []byte("solid")) &&
		bytes.Contains(head, []byte("facet"))
}

// isBinarySTL checks the size implied by the triangle count. ASCII files
// may also start with "solid", so the header text alone is not enough.
func isBinarySTL(head []byte, size int64) bool {
	if len(head) < stlHeaderSize+4 {
		return false
	}
	n := int64(binary.LittleEndian.Uint32(head[stlHeaderSize:]))
	return size == stlHeaderSize+4+n*stlTriangleSize
}

func (stlDecoder) Decode(path string, _ Flags) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	head := data[:min(len(data), sniffSize)]
	if isBinarySTL(head, int64(len(data))) {
		return decodeBinarySTL(data)
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return decodeASCIISTL(bytes.NewReader(data))
	}
	return decodeBinarySTL(data)
}

type stlTriangle struct {
	Normal   [3]float32
	Vertices [3][3]float32
	Attr     uint16
}

func decodeBinarySTL(data []byte) (*Scene, error) {
	if len(data) < stlHeaderSize+4 {
		return nil, ErrTruncatedSTL
	}
	r := bytes.NewReader(data)

	header := make([]byte, stlHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("reading triangle count: %w", err)
	}
	if int64(r.Len()) < int64(count)*stlTriangleSize {
		return nil, fmt.Errorf("%w: %d triangles declared, %d bytes left", ErrTruncatedSTL, count, r.Len())
	}

	name := strings.TrimSpace(encoding.TrimNullString(header))
	name = strings.TrimSpace(strings.TrimPrefix(name, "solid"))
	if name == "" {
		name = "stl"
	}

	m := newSTLMesh(name, int(count))
	for i := uint32(0); i < count; i++ {
		var tri stlTriangle
		if err := binary.Read(r, binary.LittleEndian, &tri); err != nil {
			return nil, fmt.Errorf("reading triangle %d: %w", i, err)
		}
		m.addTriangle(tri.Normal, tri.Vertices)
	}
	return &Scene{HasRoot: true, Meshes: []Mesh{m.result()}}, nil
}

// decodeASCIISTL reads "solid ... facet normal ... outer loop ... vertex".
// Several solids in one file become several meshes.
func decodeASCIISTL(r io.Reader) (*Scene, error) {
	sc := &Scene{HasRoot: true}
	scanner := bufio.NewScanner(r)

	var cur *stlMesh
	var normal [3]float32
	var verts [3][3]float32
	nv := 0
	line := 0

	parse3 := func(fields []string) ([3]float32, error) {
		var v [3]float32
		if len(fields) < 3 {
			return v, fmt.Errorf("%w: line %d: expected 3 values", ErrMalformed, line)
		}
		for i := 0; i < 3; i++ {
			f, err := strconv.ParseFloat(fields[i], 32)
			if err != nil {
				return v, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
			}
			v[i] = float32(f)
		}
		return v, nil
	}

	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "solid":
			name := strings.Join(fields[1:], " ")
			if name == "" {
				name = fmt.Sprintf("solid%d", len(sc.Meshes))
			}
			cur = newSTLMesh(name, 0)
		case "facet":
			if cur == nil {
				return nil, fmt.Errorf("%w: line %d: facet outside solid", ErrMalformed, line)
			}
			nv = 0
			normal = [3]float32{}
			if len(fields) >= 5 && fields[1] == "normal" {
				n, err := parse3(fields[2:])
				if err != nil {
					return nil, err
				}
				normal = n
			}
		case "vertex":
			if nv >= 3 {
				return nil, fmt.Errorf("%w: line %d: more than 3 vertices in facet", ErrMalformed, line)
			}
			v, err := parse3(fields[1:])
			if err != nil {
				return nil, err
			}
			verts[nv] = v
			nv++
		case "endfacet":
			if cur == nil || nv != 3 {
				return nil, fmt.Errorf("%w: line %d: facet with %d vertices", ErrMalformed, line, nv)
			}
			cur.addTriangle(normal, verts)
		case "endsolid":
			if cur != nil {
				sc.Meshes = append(sc.Meshes, cur.result())
				cur = nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if cur != nil {
		sc.Incomplete = true
		sc.warn("solid %q has no endsolid", cur.Name)
		sc.Meshes = append(sc.Meshes, cur.result())
	}
	return sc, nil
}

type stlMesh struct {
	Mesh
	zeroNormals bool
}

func newSTLMesh(name string, capacity int) *stlMesh {
	return &stlMesh{Mesh: Mesh{
		Name:      name,
		Material:  NoMaterial,
		Positions: make([][3]float32, 0, capacity*3),
		Normals:   make([][3]float32, 0, capacity*3),
		Faces:     make([][]uint32, 0, capacity),
	}}
}

// addTriangle appends three unshared vertices with the facet normal.
func (m *stlMesh) addTriangle(normal [3]float32, verts [3][3]float32) {
	base := uint32(len(m.Positions))
	for _, v := range verts {
		m.Positions = append(m.Positions, v)
		m.Normals = append(m.Normals, normal)
	}
	m.Faces = append(m.Faces, []uint32{base, base + 1, base + 2})
	if normal == ([3]float32{}) {
		m.zeroNormals = true
	}
}

// result returns the mesh. Files that leave any facet normal at zero get
// no normals at all, so they are regenerated from the geometry.
func (m *stlMesh) result() Mesh {
	if m.zeroNormals {
		m.Normals = nil
	}
	return m.Mesh
}
