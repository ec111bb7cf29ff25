// Package sceneio reads 3D scene files into a flat list of meshes and
// materials. Node hierarchy, cameras, lights and animation are discarded.
package sceneio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/logger"
)

// Common errors.
var (
	ErrUnsupported = errors.New("unsupported scene format")
	ErrMalformed   = errors.New("malformed scene data")
)

// NoMaterial marks a mesh that references no material slot.
const NoMaterial = -1

// UVOrigin is the corner a format places texture coordinate (0,0) at.
type UVOrigin int

const (
	// BottomLeft is the GL convention used by the renderer.
	BottomLeft UVOrigin = iota
	// TopLeft is used by glTF and most image-space exporters.
	TopLeft
)

// Flags select normalization steps applied after decoding.
type Flags uint32

const (
	// Triangulate splits polygons with more than three corners into a fan.
	Triangulate Flags = 1 << iota
	// JoinIdenticalVertices merges vertices with equal position, UV and normal.
	JoinIdenticalVertices
	// GenNormals computes smooth normals for meshes that have none.
	GenNormals
	// FlipUVs converts top-left texture origins to bottom-left.
	FlipUVs
	// PreTransform bakes node transforms into vertex positions for formats
	// that carry a node graph.
	PreTransform
)

// DefaultFlags is the normalization used by the viewer.
const DefaultFlags = Triangulate | JoinIdenticalVertices | GenNormals | FlipUVs | PreTransform

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Scene is the decoded content of one file.
type Scene struct {
	Format    string
	Meshes    []Mesh
	Materials []Material

	// HasRoot is false when the file decoded but carries no scene root.
	HasRoot bool
	// Incomplete is set when part of the file could not be decoded.
	Incomplete bool

	Warnings []string
}

// Mesh is one drawable piece of geometry. UVs and Normals are either empty
// or parallel to Positions. Faces index into Positions; after Triangulate
// every polygon face has exactly three indices, while point and line faces
// keep one or two.
type Mesh struct {
	Name      string
	Positions [][3]float32
	UVs       [][2]float32
	Normals   [][3]float32
	Faces     [][]uint32
	Material  int
	UVOrigin  UVOrigin
}

// HasUV reports whether every vertex carries a texture coordinate.
func (m *Mesh) HasUV() bool {
	return len(m.UVs) > 0 && len(m.UVs) == len(m.Positions)
}

// HasNormals reports whether every vertex carries a normal.
func (m *Mesh) HasNormals() bool {
	return len(m.Normals) > 0 && len(m.Normals) == len(m.Positions)
}

// TriangleCount returns the number of three-index faces.
func (m *Mesh) TriangleCount() int {
	n := 0
	for _, f := range m.Faces {
		if len(f) == 3 {
			n++
		}
	}
	return n
}

// Material is the diffuse part of a material definition.
type Material struct {
	Name string
	// Diffuse is nil when the file does not specify a diffuse color.
	Diffuse *[3]float32
	// Texture is a diffuse texture reference relative to the scene file.
	Texture string
	// TextureData holds an embedded diffuse image, if any.
	TextureData []byte
}

// HasTexture reports whether the material references a diffuse image.
func (m *Material) HasTexture() bool {
	return m.Texture != "" || len(m.TextureData) > 0
}

func (s *Scene) warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// Decoder reads one scene format.
type Decoder interface {
	// Name is a short format name used in logs.
	Name() string
	// Extensions lists the usual file extensions, without the dot.
	Extensions() []string
	// Match reports whether the decoder accepts a file with this name,
	// leading bytes and total size.
	Match(path string, head []byte, size int64) bool
	// Decode reads the file at path. Decoders open companion files
	// (material libraries, external buffers) relative to it. Only
	// PreTransform is read from flags; the rest is applied by Normalize.
	Decode(path string, flags Flags) (*Scene, error)
}

var decoders []Decoder

func init() {
	Register(gltfDecoder{})
	Register(stlDecoder{})
	Register(objDecoder{})
	Register(rsmDecoder{})
}

// Register adds a decoder. Decoders registered earlier are tried first.
func Register(d Decoder) {
	decoders = append(decoders, d)
}

// Formats lists the registered format names.
func Formats() []string {
	names := make([]string, len(decoders))
	for i, d := range decoders {
		names[i] = d.Name()
	}
	return names
}

// Extensions lists file extensions handled by the registered decoders,
// without the leading dot. Used for file dialog filters.
func Extensions() []string {
	var exts []string
	for _, d := range decoders {
		exts = append(exts, d.Extensions()...)
	}
	return exts
}

const sniffSize = 512

// Detect returns the decoder that accepts path.
func Detect(path string) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	head := make([]byte, sniffSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	head = head[:n]

	for _, d := range decoders {
		if d.Match(path, head, info.Size()) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
}

// Parse detects the format of path, decodes it and applies flags.
func Parse(path string, flags Flags) (*Scene, error) {
	d, err := Detect(path)
	if err != nil {
		return nil, err
	}

	sc, err := d.Decode(path, flags)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name(), err)
	}
	if sc == nil {
		return nil, nil
	}
	sc.Format = d.Name()

	Normalize(sc, flags)

	for _, w := range sc.Warnings {
		logger.Debug("scene warning", zap.String("format", sc.Format), zap.String("warning", w))
	}
	return sc, nil
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
