package sceneio

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Normalize applies the selected steps to every mesh in order:
// triangulate, join identical vertices, generate normals, flip UVs.
// PreTransform is handled by the decoders that have a node graph.
func Normalize(sc *Scene, flags Flags) {
	for i := range sc.Meshes {
		m := &sc.Meshes[i]
		if !m.HasUV() {
			m.UVs = nil
		}
		if !m.HasNormals() {
			m.Normals = nil
		}
		if flags.Has(Triangulate) {
			triangulate(m)
		}
		if flags.Has(JoinIdenticalVertices) {
			joinIdentical(m)
		}
		if flags.Has(GenNormals) && m.Normals == nil {
			genNormals(m)
		}
		if flags.Has(FlipUVs) && m.UVOrigin == TopLeft {
			flipUVs(m)
		}
	}
}

// triangulate replaces every face with more than three corners by a fan
// around its first corner.
func triangulate(m *Mesh) {
	out := make([][]uint32, 0, len(m.Faces))
	for _, f := range m.Faces {
		if len(f) <= 3 {
			out = append(out, f)
			continue
		}
		for i := 1; i+1 < len(f); i++ {
			out = append(out, []uint32{f[0], f[i], f[i+1]})
		}
	}
	m.Faces = out
}

type vertexKey struct {
	pos    [3]float32
	uv     [2]float32
	normal [3]float32
}

// joinIdentical merges bitwise-equal vertices and remaps faces. Vertex order
// follows first occurrence.
func joinIdentical(m *Mesh) {
	n := len(m.Positions)
	if n == 0 {
		return
	}
	hasUV, hasNormals := m.HasUV(), m.HasNormals()

	remap := make([]uint32, n)
	seen := make(map[vertexKey]uint32, n)
	positions := m.Positions[:0:0]
	var uvs [][2]float32
	var normals [][3]float32

	for i := 0; i < n; i++ {
		k := vertexKey{pos: m.Positions[i]}
		if hasUV {
			k.uv = m.UVs[i]
		}
		if hasNormals {
			k.normal = m.Normals[i]
		}
		if idx, ok := seen[k]; ok {
			remap[i] = idx
			continue
		}
		idx := uint32(len(positions))
		seen[k] = idx
		remap[i] = idx
		positions = append(positions, m.Positions[i])
		if hasUV {
			uvs = append(uvs, m.UVs[i])
		}
		if hasNormals {
			normals = append(normals, m.Normals[i])
		}
	}

	if len(positions) == n {
		return
	}
	for _, f := range m.Faces {
		for j, idx := range f {
			if int(idx) < n {
				f[j] = remap[idx]
			}
		}
	}
	m.Positions, m.UVs, m.Normals = positions, uvs, normals
}

// normalWeldEpsilon is the grid used to treat split vertices as one point
// when smoothing normals.
const normalWeldEpsilon = 0.001

// maxWeldCell bounds grid coordinates so far-off vertices keep distinct keys.
const maxWeldCell = 1 << 62

func weldCell(v float32) int64 {
	c := math.Floor(float64(v) / normalWeldEpsilon)
	switch {
	case math.IsNaN(c):
		return 0
	case c > maxWeldCell:
		return maxWeldCell
	case c < -maxWeldCell:
		return -maxWeldCell
	}
	return int64(c)
}

// genNormals computes area-weighted face normals per vertex, then averages
// vertices that share a position so UV seams do not show as creases.
func genNormals(m *Mesh) {
	n := len(m.Positions)
	if n == 0 {
		return
	}
	acc := make([]mgl32.Vec3, n)
	for _, f := range m.Faces {
		if len(f) != 3 || int(f[0]) >= n || int(f[1]) >= n || int(f[2]) >= n {
			continue
		}
		a := mgl32.Vec3(m.Positions[f[0]])
		b := mgl32.Vec3(m.Positions[f[1]])
		c := mgl32.Vec3(m.Positions[f[2]])
		// The cross product length is twice the area, which gives the weighting.
		fn := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range f {
			acc[idx] = acc[idx].Add(fn)
		}
	}

	groups := make(map[[3]int64][]int)
	for i, p := range m.Positions {
		key := [3]int64{weldCell(p[0]), weldCell(p[1]), weldCell(p[2])}
		groups[key] = append(groups[key], i)
	}

	m.Normals = make([][3]float32, n)
	for _, idxs := range groups {
		var sum mgl32.Vec3
		for _, i := range idxs {
			sum = sum.Add(acc[i])
		}
		normal := mgl32.Vec3{0, 1, 0}
		if sum.Len() > 1e-12 {
			normal = sum.Normalize()
		}
		for _, i := range idxs {
			m.Normals[i] = normal
		}
	}
}

func flipUVs(m *Mesh) {
	for i := range m.UVs {
		m.UVs[i][1] = 1 - m.UVs[i][1]
	}
	m.UVOrigin = BottomLeft
}
