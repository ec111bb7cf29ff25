package sceneio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/pkg/math"
)

const (
	rsmMagic      = "GRSM"
	rsmNameSize   = 40
	rsmMaxNodes   = 10000
	rsmMaxEntries = 1 << 20
)

// rsmDecoder reads Ragnarok Online resource models (GRSM 1.x). The node
// tree is baked in its rest pose; animation keys are skipped except the
// first rotation key, which replaces the rest rotation like the game does.
type rsmDecoder struct{}

func (rsmDecoder) Name() string { return "rsm" }

func (rsmDecoder) Extensions() []string { return []string{"rsm"} }

func (rsmDecoder) Match(path string, head []byte, _ int64) bool {
	return bytes.HasPrefix(head, []byte(rsmMagic)) || hasExt(path, ".rsm")
}

func (rsmDecoder) Decode(path string, flags Flags) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	model, err := parseRSM(data)
	if err != nil {
		return nil, err
	}
	return model.scene(rsmTextureDir(path), flags), nil
}

type rsmFace struct {
	vertex   [3]uint16
	texCoord [3]uint16
	texture  uint16
	twoSided bool
}

type rsmNode struct {
	name     string
	parent   string
	textures []int32

	basis    mgl32.Mat3
	offset   mgl32.Vec3
	position mgl32.Vec3
	rotAngle float32
	rotAxis  mgl32.Vec3
	scale    mgl32.Vec3
	// rotKey is the first rotation keyframe, if any.
	rotKey *math.Quat

	vertices  [][3]float32
	texCoords [][2]float32
	faces     []rsmFace
}

type rsmModel struct {
	major, minor uint8
	textures     []string
	root         string
	nodes        []rsmNode
}

func (m *rsmModel) atLeast(major, minor uint8) bool {
	return m.major > major || (m.major == major && m.minor >= minor)
}

// rsmReader reads little-endian fields and keeps the first error.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (rr *rsmReader) read(v any) {
	if rr.err == nil {
		rr.err = binary.Read(rr.r, binary.LittleEndian, v)
	}
}

func (rr *rsmReader) skip(n int64) {
	if rr.err != nil {
		return
	}
	if int64(rr.r.Len()) < n {
		rr.err = fmt.Errorf("%w: need %d bytes, %d left", ErrMalformed, n, rr.r.Len())
		return
	}
	_, rr.err = rr.r.Seek(n, 1)
}

// name reads a fixed-size NUL-padded string. The bytes stay in the file's
// code page; texture references are decoded by the importer.
func (rr *rsmReader) name() string {
	buf := make([]byte, rsmNameSize)
	rr.read(buf)
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

// count reads an element count and checks that at least elemSize bytes per
// element remain.
func (rr *rsmReader) count(what string, elemSize int) int {
	var n int32
	rr.read(&n)
	if rr.err != nil {
		return 0
	}
	if n < 0 || n > rsmMaxEntries || int64(n)*int64(elemSize) > int64(rr.r.Len()) {
		rr.err = fmt.Errorf("%w: %s count %d", ErrMalformed, what, n)
		return 0
	}
	return int(n)
}

func parseRSM(data []byte) (*rsmModel, error) {
	if len(data) < 6 || string(data[:4]) != rsmMagic {
		return nil, fmt.Errorf("%w: missing GRSM magic", ErrMalformed)
	}
	rr := &rsmReader{r: bytes.NewReader(data[4:])}
	m := &rsmModel{}
	rr.read(&m.major)
	rr.read(&m.minor)
	if m.major != 1 {
		return nil, fmt.Errorf("%w: RSM version %d.%d", ErrUnsupported, m.major, m.minor)
	}

	var animLength, shading int32
	rr.read(&animLength)
	rr.read(&shading)
	if m.atLeast(1, 4) {
		var alpha uint8
		rr.read(&alpha)
	}
	rr.skip(16)

	m.textures = make([]string, rr.count("texture", rsmNameSize))
	for i := range m.textures {
		m.textures[i] = rr.name()
	}
	m.root = rr.name()

	nodeCount := rr.count("node", 2*rsmNameSize)
	if nodeCount > rsmMaxNodes {
		return nil, fmt.Errorf("%w: %d nodes", ErrMalformed, nodeCount)
	}
	m.nodes = make([]rsmNode, nodeCount)
	for i := range m.nodes {
		m.readNode(rr, &m.nodes[i])
		if rr.err != nil {
			return nil, fmt.Errorf("node %d: %w", i, wrapMalformed(rr.err))
		}
	}
	if rr.err != nil {
		return nil, wrapMalformed(rr.err)
	}
	// Volume boxes follow; the viewer computes its own bounds.
	return m, nil
}

func wrapMalformed(err error) error {
	if errors.Is(err, ErrMalformed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrMalformed, err)
}

func (m *rsmModel) readNode(rr *rsmReader, n *rsmNode) {
	n.name = rr.name()
	n.parent = rr.name()

	n.textures = make([]int32, rr.count("node texture", 4))
	rr.read(n.textures)

	var basis [9]float32
	rr.read(&basis)
	n.basis = mgl32.Mat3(basis)
	rr.read(&n.offset)
	rr.read(&n.position)
	rr.read(&n.rotAngle)
	rr.read(&n.rotAxis)
	rr.read(&n.scale)

	n.vertices = make([][3]float32, rr.count("vertex", 12))
	rr.read(n.vertices)

	tvSize := 8
	if m.atLeast(1, 2) {
		tvSize = 12
	}
	n.texCoords = make([][2]float32, rr.count("texcoord", tvSize))
	for i := range n.texCoords {
		if m.atLeast(1, 2) {
			rr.skip(4) // vertex color
		}
		rr.read(&n.texCoords[i])
	}

	faceSize := 20
	if m.atLeast(1, 2) {
		faceSize = 24
	}
	n.faces = make([]rsmFace, rr.count("face", faceSize))
	for i := range n.faces {
		f := &n.faces[i]
		var padding uint16
		var twoSided int32
		rr.read(&f.vertex)
		rr.read(&f.texCoord)
		rr.read(&f.texture)
		rr.read(&padding)
		rr.read(&twoSided)
		f.twoSided = twoSided != 0
		if m.atLeast(1, 2) {
			rr.skip(4) // smoothing group
		}
	}

	if !m.atLeast(1, 5) {
		rr.skip(int64(rr.count("position key", 16)) * 16)
	}
	rotKeys := rr.count("rotation key", 20)
	for i := 0; i < rotKeys; i++ {
		var frame int32
		var q [4]float32
		rr.read(&frame)
		rr.read(&q)
		if i == 0 && rr.err == nil {
			n.rotKey = &math.Quat{W: q[3], V: math.Vec3{q[0], q[1], q[2]}}
		}
	}
	if m.atLeast(1, 5) {
		rr.skip(int64(rr.count("scale key", 16)) * 16)
	}
}

// scene converts the parsed model. Faces are grouped per node and texture;
// indices out of range mark the scene incomplete.
func (m *rsmModel) scene(textureDir string, flags Flags) *Scene {
	sc := &Scene{HasRoot: len(m.nodes) > 0}

	for _, ref := range m.textures {
		mat := Material{Name: ref}
		if ref != "" {
			mat.Texture = ref
			if textureDir != "" {
				mat.Texture = textureDir + "/" + ref
			}
		}
		sc.Materials = append(sc.Materials, mat)
	}

	byName := make(map[string]int, len(m.nodes))
	for i, n := range m.nodes {
		if _, dup := byName[n.name]; !dup {
			byName[n.name] = i
		}
	}

	// RSM space is Y-down.
	flip := math.Scale(1, -1, 1)
	for i := range m.nodes {
		n := &m.nodes[i]
		world := math.Identity()
		if flags.Has(PreTransform) {
			nodeWorld, ok := m.world(i, byName, sc)
			if !ok {
				continue
			}
			world = math.Compose(flip, nodeWorld, n.local())
		}
		for _, mesh := range m.meshes(n, sc) {
			sc.Meshes = append(sc.Meshes, transformMesh(mesh, world))
		}
	}
	return sc
}

// world returns the inherited transform of node idx.
func (m *rsmModel) world(idx int, byName map[string]int, sc *Scene) (math.Mat4, bool) {
	var chain []int
	seen := make(map[int]bool)
	for cur := idx; ; {
		if seen[cur] {
			sc.Incomplete = true
			sc.warn("node %q is its own ancestor", m.nodes[idx].name)
			return math.Mat4{}, false
		}
		seen[cur] = true
		chain = append(chain, cur)

		n := &m.nodes[cur]
		if n.parent == "" || n.name == m.root {
			break
		}
		parent, ok := byName[n.parent]
		if !ok {
			sc.warn("node %q has unknown parent %q", n.name, n.parent)
			break
		}
		cur = parent
	}

	transforms := make([]math.Mat4, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		transforms = append(transforms, m.nodes[chain[i]].transform())
	}
	return math.Compose(transforms...), true
}

// transform is the part of a node's placement its children inherit.
func (n *rsmNode) transform() math.Mat4 {
	rot := math.Identity()
	switch {
	case n.rotKey != nil:
		rot = math.Rotate(*n.rotKey)
	case n.rotAngle != 0:
		rot = math.RotateAxis(n.rotAxis, n.rotAngle)
	}
	scale := n.scale
	if scale == (math.Vec3{}) {
		scale = math.Vec3{1, 1, 1}
	}
	return math.TRS(n.position, rot, scale)
}

// local places the node's own vertices: basis first, then the pivot offset.
func (n *rsmNode) local() math.Mat4 {
	return math.Compose(math.Translate(n.offset[0], n.offset[1], n.offset[2]), n.basis.Mat4())
}

func (m *rsmModel) meshes(n *rsmNode, sc *Scene) []Mesh {
	groups := make(map[uint16]*Mesh)
	var order []uint16
	for _, f := range n.faces {
		if !n.validFace(f) {
			sc.Incomplete = true
			sc.warn("node %q has a face with out-of-range indices", n.name)
			continue
		}
		mesh, ok := groups[f.texture]
		if !ok {
			mesh = &Mesh{Name: n.name, Material: NoMaterial, UVOrigin: TopLeft}
			if int(f.texture) < len(n.textures) {
				if t := int(n.textures[f.texture]); t >= 0 && t < len(m.textures) {
					mesh.Material = t
				}
			}
			if len(order) > 0 {
				mesh.Name = fmt.Sprintf("%s#%d", n.name, len(order))
			}
			groups[f.texture] = mesh
			order = append(order, f.texture)
		}

		base := uint32(len(mesh.Positions))
		for k := 0; k < 3; k++ {
			mesh.Positions = append(mesh.Positions, n.vertices[f.vertex[k]])
			mesh.UVs = append(mesh.UVs, n.texCoords[f.texCoord[k]])
		}
		mesh.Faces = append(mesh.Faces, []uint32{base, base + 1, base + 2})
		if f.twoSided {
			mesh.Faces = append(mesh.Faces, []uint32{base, base + 2, base + 1})
		}
	}

	out := make([]Mesh, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	return out
}

func (n *rsmNode) validFace(f rsmFace) bool {
	for k := 0; k < 3; k++ {
		if int(f.vertex[k]) >= len(n.vertices) || int(f.texCoord[k]) >= len(n.texCoords) {
			return false
		}
	}
	return true
}

// rsmTextureDir finds the game's texture folder for a model stored under
// .../data/model/..., relative to the model file. It returns "" when the
// model is not inside such a tree.
func rsmTextureDir(path string) string {
	modelDir := filepath.Dir(path)
	for dir := modelDir; ; {
		if strings.EqualFold(filepath.Base(dir), "model") {
			texDir := filepath.Join(filepath.Dir(dir), "texture")
			rel, err := filepath.Rel(modelDir, texDir)
			if err != nil {
				return ""
			}
			return filepath.ToSlash(rel)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
