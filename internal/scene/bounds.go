package scene

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/sceneio"
)

// BoundingVolume is the axis-aligned extent of a scene in file coordinates.
type BoundingVolume struct {
	Min, Max mgl32.Vec3
	Center   mgl32.Vec3
	// Size is the largest extent along any axis.
	Size float32
}

// Radius returns half the diagonal of the box.
func (b BoundingVolume) Radius() float32 {
	return b.Max.Sub(b.Min).Len() / 2
}

// Local returns the box translated so its center is the origin.
func (b BoundingVolume) Local() BoundingVolume {
	return BoundingVolume{
		Min:  b.Min.Sub(b.Center),
		Max:  b.Max.Sub(b.Center),
		Size: b.Size,
	}
}

// ComputeBounds scans every vertex of every mesh. It fails with
// ErrEmptyScene when the meshes hold no vertices and with ErrParseFailed
// when a coordinate or the extent is not finite.
func ComputeBounds(meshes []sceneio.Mesh) (BoundingVolume, error) {
	var b BoundingVolume
	first := true
	for i := range meshes {
		for j, p := range meshes[i].Positions {
			v := mgl32.Vec3(p)
			if !finite(v) {
				return BoundingVolume{}, fmt.Errorf("%w: mesh %q vertex %d is %v", ErrParseFailed, meshes[i].Name, j, v)
			}
			if first {
				b.Min, b.Max = v, v
				first = false
				continue
			}
			for a := 0; a < 3; a++ {
				b.Min[a] = min(b.Min[a], v[a])
				b.Max[a] = max(b.Max[a], v[a])
			}
		}
	}
	if first {
		return BoundingVolume{}, fmt.Errorf("%w: no vertices", ErrEmptyScene)
	}

	b.Center = b.Min.Add(b.Max).Mul(0.5)
	ext := b.Max.Sub(b.Min)
	b.Size = max(ext[0], ext[1], ext[2])
	if !finite(mgl32.Vec3{b.Size}) || !finite(b.Center) {
		return BoundingVolume{}, fmt.Errorf("%w: extent overflows float32", ErrParseFailed)
	}
	return b, nil
}

func finite(v mgl32.Vec3) bool {
	for _, c := range v {
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return false
		}
	}
	return true
}
