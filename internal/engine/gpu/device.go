// Package gpu defines the narrow graphics device used by the importer and the
// frame renderer, and its OpenGL implementation.
package gpu

import (
	"errors"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrEmptyMesh is returned when a mesh upload has no vertices or no indices.
var ErrEmptyMesh = errors.New("empty mesh data")

// MeshHandle identifies an uploaded vertex/index buffer pair. Zero is invalid.
type MeshHandle uint32

// TextureHandle identifies an uploaded 2D sampler object. Zero is invalid.
type TextureHandle uint32

// ProgramHandle identifies a linked shader program. Zero is invalid.
type ProgramHandle uint32

// Valid reports whether h refers to an uploaded mesh.
func (h MeshHandle) Valid() bool { return h != 0 }

// Valid reports whether h refers to an uploaded texture.
func (h TextureHandle) Valid() bool { return h != 0 }

// Primitive is the topology of an index buffer.
type Primitive int

const (
	Triangles Primitive = iota
	Lines
)

// FillMode selects how polygons are rasterized.
type FillMode int

const (
	Fill FillMode = iota
	Line
)

func (m FillMode) String() string {
	if m == Line {
		return "line"
	}
	return "fill"
}

// Vertex attribute locations shared by all shaders.
const (
	AttribPosition = 0
	AttribUV       = 1
)

// MeshData is an interleaved vertex buffer plus an index buffer.
// Each vertex is x,y,z followed by u,v when HasUV is set.
type MeshData struct {
	Vertices  []float32
	Indices   []uint32
	HasUV     bool
	Primitive Primitive
}

// Stride returns the number of floats per vertex.
func (d MeshData) Stride() int {
	if d.HasUV {
		return 5
	}
	return 3
}

// VertexCount returns the number of vertices in the buffer.
func (d MeshData) VertexCount() int {
	return len(d.Vertices) / d.Stride()
}

// Resources creates and releases GPU objects. The importer only needs this
// half of the device.
type Resources interface {
	CreateMesh(data MeshData) (MeshHandle, error)
	DeleteMesh(h MeshHandle)
	CreateTexture(img *image.RGBA) (TextureHandle, error)
	DeleteTexture(h TextureHandle)
}

// Device is the full set of operations the frame renderer issues.
type Device interface {
	Resources

	CreateProgram(name, vertexSrc, fragmentSrc string) (ProgramHandle, error)
	DeleteProgram(h ProgramHandle)
	UniformLocation(p ProgramHandle, name string) int32
	UseProgram(p ProgramHandle)

	SetUniformMat4(loc int32, m mgl32.Mat4)
	SetUniformVec3(loc int32, v mgl32.Vec3)
	SetUniformInt(loc int32, v int32)
	BindTexture(slot uint32, h TextureHandle)

	SetViewport(x, y, width, height int32)
	Clear(color mgl32.Vec3)
	SetDepthTest(enabled bool)
	SetCulling(enabled bool)
	SetFillMode(mode FillMode)
	SetLineWidth(width float32)

	Draw(h MeshHandle)
	ReadPixels(width, height int32) ([]byte, error)
}
