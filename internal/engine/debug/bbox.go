// Package debug provides debug visualization utilities.
package debug

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/engine/gpu"
)

// BBoxWireframeVertexCount is the number of vertices for a bbox wireframe (12 edges × 2).
const BBoxWireframeVertexCount = 24

// GenerateBBoxWireframeVertices creates line vertices for a wireframe bounding box.
// Returns 24 vertices (12 edges × 2 endpoints), format: [x, y, z] per vertex.
func GenerateBBoxWireframeVertices(lo, hi mgl32.Vec3) []float32 {
	minX, minY, minZ := lo[0], lo[1], lo[2]
	maxX, maxY, maxZ := hi[0], hi[1], hi[2]
	return []float32{
		// Bottom face
		minX, minY, minZ, maxX, minY, minZ,
		maxX, minY, minZ, maxX, minY, maxZ,
		maxX, minY, maxZ, minX, minY, maxZ,
		minX, minY, maxZ, minX, minY, minZ,
		// Top face
		minX, maxY, minZ, maxX, maxY, minZ,
		maxX, maxY, minZ, maxX, maxY, maxZ,
		maxX, maxY, maxZ, minX, maxY, maxZ,
		minX, maxY, maxZ, minX, maxY, minZ,
		// Vertical edges
		minX, minY, minZ, minX, maxY, minZ,
		maxX, minY, minZ, maxX, maxY, minZ,
		maxX, minY, maxZ, maxX, maxY, maxZ,
		minX, minY, maxZ, minX, maxY, maxZ,
	}
}

// BBoxWireframe returns a line mesh for the box [lo, hi] grown by padding
// on every side. Swapped corners are reordered.
func BBoxWireframe(lo, hi mgl32.Vec3, padding float32) gpu.MeshData {
	for a := 0; a < 3; a++ {
		if lo[a] > hi[a] {
			lo[a], hi[a] = hi[a], lo[a]
		}
		lo[a] -= padding
		hi[a] += padding
	}

	indices := make([]uint32, BBoxWireframeVertexCount)
	for i := range indices {
		indices[i] = uint32(i)
	}
	return gpu.MeshData{
		Vertices:  GenerateBBoxWireframeVertices(lo, hi),
		Indices:   indices,
		Primitive: gpu.Lines,
	}
}
