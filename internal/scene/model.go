// Package scene turns parsed scene files into GPU-resident models and owns
// the single model the viewer displays.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/engine/texture"
)

// DefaultColor is the flat color of meshes without a material or without a
// diffuse color.
var DefaultColor = mgl32.Vec3{0.8, 0.8, 0.8}

// MaterialIndex is a slot in Model.Materials, or NoMaterial.
type MaterialIndex int

// NoMaterial marks a mesh drawn with DefaultColor.
const NoMaterial MaterialIndex = -1

// Valid reports whether i addresses one of n material slots.
func (i MaterialIndex) Valid(n int) bool {
	return i >= 0 && int(i) < n
}

// Material is the flat color and optional diffuse texture of a surface.
type Material struct {
	Name    string
	Color   mgl32.Vec3
	Texture *texture.Texture
}

// Textured reports whether the material has an uploaded texture.
func (m *Material) Textured() bool {
	return m != nil && m.Texture.Valid()
}

// Mesh is one uploaded vertex/index buffer pair. Vertex positions are
// stored relative to the model's bounding volume center.
type Mesh struct {
	Name        string
	Handle      gpu.MeshHandle
	VertexCount int
	IndexCount  int
	HasUV       bool

	MaterialIndex MaterialIndex
	// Material is resolved from MaterialIndex at import; nil for NoMaterial.
	Material *Material
}

// TriangleCount returns the number of triangles drawn for the mesh.
func (m *Mesh) TriangleCount() int { return m.IndexCount / 3 }

// Model is the result of one successful import. Meshes and Materials are
// created and released together.
type Model struct {
	Name   string
	Path   string
	Format string

	Meshes    []Mesh
	Materials []*Material
	Bounds    BoundingVolume

	released bool
}

// Stats returns totals over all meshes.
func (m *Model) Stats() (meshes, vertices, triangles int) {
	for i := range m.Meshes {
		vertices += m.Meshes[i].VertexCount
		triangles += m.Meshes[i].TriangleCount()
	}
	return len(m.Meshes), vertices, triangles
}

// Release deletes all GPU resources of the model. Safe to call more than
// once and on a nil model.
func (m *Model) Release(res gpu.Resources) {
	if m == nil || m.released {
		return
	}
	for i := range m.Meshes {
		if m.Meshes[i].Handle.Valid() {
			res.DeleteMesh(m.Meshes[i].Handle)
			m.Meshes[i].Handle = 0
		}
	}
	for _, mat := range m.Materials {
		mat.Texture.Release(res)
	}
	m.released = true
}

// Released reports whether Release has been called.
func (m *Model) Released() bool { return m.released }
