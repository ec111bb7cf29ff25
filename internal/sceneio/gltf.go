package sceneio

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/meshview/pkg/math"
)

// gltfDecoder reads glTF 2.0 JSON (.gltf) and binary (.glb) files.
type gltfDecoder struct{}

func (gltfDecoder) Name() string { return "gltf" }

func (gltfDecoder) Extensions() []string { return []string{"gltf", "glb"} }

func (gltfDecoder) Match(path string, head []byte, size int64) bool {
	if bytes.HasPrefix(head, []byte("glTF")) || hasExt(path, ".gltf", ".glb") {
		return true
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n\xef\xbb\xbf")
	return bytes.HasPrefix(trimmed, []byte("{")) && bytes.Contains(head, []byte(`"asset"`))
}

func (gltfDecoder) Decode(path string, flags Flags) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	return convertGLTF(doc, flags), nil
}

// gltfReader converts one document. Meshes referenced by several nodes
// are decoded once and copied per instance.
type gltfReader struct {
	doc   *gltf.Document
	sc    *Scene
	cache map[uint32][]Mesh
	path  map[uint32]bool
}

func convertGLTF(doc *gltf.Document, flags Flags) *Scene {
	r := &gltfReader{
		doc:   doc,
		sc:    &Scene{HasRoot: doc.Asset.Version != ""},
		cache: make(map[uint32][]Mesh),
		path:  make(map[uint32]bool),
	}
	r.sc.Materials = r.materials()

	if !flags.Has(PreTransform) || len(doc.Nodes) == 0 {
		for i := range doc.Meshes {
			for _, m := range r.mesh(uint32(i)) {
				r.sc.Meshes = append(r.sc.Meshes, cloneMesh(m))
			}
		}
		return r.sc
	}

	for _, idx := range r.roots() {
		r.visit(idx, math.Identity())
	}
	return r.sc
}

// roots returns the node indices of the default scene, falling back to the
// first scene and then to every node that is nobody's child.
func (r *gltfReader) roots() []uint32 {
	doc := r.doc
	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	if len(doc.Scenes) > 0 {
		return doc.Scenes[0].Nodes
	}
	child := make(map[uint32]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[c] = true
		}
	}
	var roots []uint32
	for i := range doc.Nodes {
		if !child[uint32(i)] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

func (r *gltfReader) visit(idx uint32, parent math.Mat4) {
	if int(idx) >= len(r.doc.Nodes) {
		r.sc.Incomplete = true
		r.sc.warn("node index %d out of range", idx)
		return
	}
	if r.path[idx] {
		r.sc.Incomplete = true
		r.sc.warn("node %d is its own ancestor", idx)
		return
	}
	r.path[idx] = true
	defer delete(r.path, idx)

	node := r.doc.Nodes[idx]
	world := math.Compose(parent, nodeMatrix(node))

	if node.Mesh != nil {
		if int(*node.Mesh) >= len(r.doc.Meshes) {
			r.sc.Incomplete = true
			r.sc.warn("node %d references missing mesh %d", idx, *node.Mesh)
		} else {
			for _, m := range r.mesh(*node.Mesh) {
				r.sc.Meshes = append(r.sc.Meshes, transformMesh(m, world))
			}
		}
	}
	for _, c := range node.Children {
		r.visit(c, world)
	}
}

// nodeMatrix returns the local transform of a node: its matrix when one is
// set, otherwise T*R*S.
func nodeMatrix(n *gltf.Node) math.Mat4 {
	var m math.Mat4
	var zero [16]float64
	for i, v := range n.Matrix {
		m[i] = float32(v)
	}
	if n.Matrix != zero && m != math.Identity() {
		return m
	}

	t := n.Translation
	s := n.Scale
	if s == [3]float64{} {
		s = [3]float64{1, 1, 1}
	}
	q := n.Rotation
	rot := math.Rotate(math.Quat{W: float32(q[3]), V: math.Vec3{float32(q[0]), float32(q[1]), float32(q[2])}})

	return math.TRS(
		math.Vec3{float32(t[0]), float32(t[1]), float32(t[2])},
		rot,
		math.Vec3{float32(s[0]), float32(s[1]), float32(s[2])},
	)
}

// transformMesh returns a copy of m with positions and normals moved by
// world. Mirroring transforms reverse the winding so front faces stay CCW.
func transformMesh(m Mesh, world math.Mat4) Mesh {
	out := cloneMesh(m)
	if world == math.Identity() {
		return out
	}

	for i, p := range m.Positions {
		out.Positions[i] = math.TransformPoint(world, math.Vec3(p))
	}

	basis := world.Mat3()
	det := basis.Det()
	if len(m.Normals) > 0 {
		if det == 0 {
			out.Normals = nil
		} else {
			nm := basis.Inv().Transpose()
			for i, n := range m.Normals {
				v := nm.Mul3x1(math.Vec3(n))
				if l := v.Len(); l > 0 {
					v = v.Mul(1 / l)
				}
				out.Normals[i] = v
			}
		}
	}
	if det < 0 {
		for _, f := range out.Faces {
			if len(f) == 3 {
				f[1], f[2] = f[2], f[1]
			}
		}
	}
	return out
}

func cloneMesh(m Mesh) Mesh {
	out := m
	out.Positions = append([][3]float32(nil), m.Positions...)
	out.UVs = append([][2]float32(nil), m.UVs...)
	out.Normals = append([][3]float32(nil), m.Normals...)
	out.Faces = make([][]uint32, len(m.Faces))
	for i, f := range m.Faces {
		out.Faces[i] = append([]uint32(nil), f...)
	}
	return out
}

// mesh decodes every primitive of a glTF mesh. Primitives that fail to
// decode mark the scene incomplete.
func (r *gltfReader) mesh(idx uint32) []Mesh {
	if cached, ok := r.cache[idx]; ok {
		return cached
	}
	gm := r.doc.Meshes[idx]
	var out []Mesh
	for pi, prim := range gm.Primitives {
		m, err := r.primitive(prim)
		if err != nil {
			r.sc.Incomplete = true
			r.sc.warn("mesh %d primitive %d: %v", idx, pi, err)
			continue
		}
		m.Name = gm.Name
		if m.Name == "" {
			m.Name = fmt.Sprintf("mesh%d", idx)
		}
		if len(gm.Primitives) > 1 {
			m.Name = fmt.Sprintf("%s.%d", m.Name, pi)
		}
		out = append(out, m)
	}
	r.cache[idx] = out
	return out
}

func (r *gltfReader) accessor(idx uint32) (*gltf.Accessor, error) {
	if int(idx) >= len(r.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d out of range", ErrMalformed, idx)
	}
	return r.doc.Accessors[idx], nil
}

func (r *gltfReader) primitive(prim *gltf.Primitive) (Mesh, error) {
	m := Mesh{Material: NoMaterial, UVOrigin: TopLeft}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return m, fmt.Errorf("%w: primitive has no POSITION attribute", ErrMalformed)
	}
	acr, err := r.accessor(posIdx)
	if err != nil {
		return m, err
	}
	if m.Positions, err = modeler.ReadPosition(r.doc, acr, nil); err != nil {
		return m, fmt.Errorf("positions: %w", err)
	}

	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if acr, err = r.accessor(uvIdx); err != nil {
			return m, err
		}
		if m.UVs, err = modeler.ReadTextureCoord(r.doc, acr, nil); err != nil {
			return m, fmt.Errorf("texcoords: %w", err)
		}
	}

	if nIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if acr, err = r.accessor(nIdx); err != nil {
			return m, err
		}
		if m.Normals, err = modeler.ReadNormal(r.doc, acr, nil); err != nil {
			return m, fmt.Errorf("normals: %w", err)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if acr, err = r.accessor(*prim.Indices); err != nil {
			return m, err
		}
		if indices, err = modeler.ReadIndices(r.doc, acr, nil); err != nil {
			return m, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(m.Positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	for _, i := range indices {
		if int(i) >= len(m.Positions) {
			return m, fmt.Errorf("%w: index %d exceeds %d vertices", ErrMalformed, i, len(m.Positions))
		}
	}

	m.Faces = assembleFaces(prim.Mode, indices)
	if prim.Material != nil {
		m.Material = int(*prim.Material)
	}
	return m, nil
}

// assembleFaces groups an index stream by primitive topology. Strips and
// fans become independent triangles; points and lines keep 1 or 2 indices.
func assembleFaces(mode gltf.PrimitiveMode, idx []uint32) [][]uint32 {
	var faces [][]uint32
	n := len(idx)
	switch mode {
	case gltf.PrimitiveTriangles:
		for i := 0; i+2 < n; i += 3 {
			faces = append(faces, []uint32{idx[i], idx[i+1], idx[i+2]})
		}
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < n; i++ {
			if i%2 == 0 {
				faces = append(faces, []uint32{idx[i], idx[i+1], idx[i+2]})
			} else {
				faces = append(faces, []uint32{idx[i+1], idx[i], idx[i+2]})
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < n; i++ {
			faces = append(faces, []uint32{idx[0], idx[i], idx[i+1]})
		}
	case gltf.PrimitiveLines:
		for i := 0; i+1 < n; i += 2 {
			faces = append(faces, []uint32{idx[i], idx[i+1]})
		}
	case gltf.PrimitiveLineStrip, gltf.PrimitiveLineLoop:
		for i := 0; i+1 < n; i++ {
			faces = append(faces, []uint32{idx[i], idx[i+1]})
		}
		if mode == gltf.PrimitiveLineLoop && n > 2 {
			faces = append(faces, []uint32{idx[n-1], idx[0]})
		}
	default:
		for _, i := range idx {
			faces = append(faces, []uint32{i})
		}
	}
	return faces
}

func (r *gltfReader) materials() []Material {
	out := make([]Material, len(r.doc.Materials))
	for i, gm := range r.doc.Materials {
		mat := Material{Name: gm.Name}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			if f := pbr.BaseColorFactor; f != nil {
				mat.Diffuse = &[3]float32{float32(f[0]), float32(f[1]), float32(f[2])}
			}
			if t := pbr.BaseColorTexture; t != nil {
				if err := r.resolveTexture(&mat, t.Index); err != nil {
					r.sc.warn("material %d texture: %v", i, err)
				}
			}
		}
		out[i] = mat
	}
	return out
}

func (r *gltfReader) resolveTexture(mat *Material, texIdx uint32) error {
	doc := r.doc
	if int(texIdx) >= len(doc.Textures) {
		return fmt.Errorf("texture %d out of range", texIdx)
	}
	src := doc.Textures[texIdx].Source
	if src == nil || int(*src) >= len(doc.Images) {
		return fmt.Errorf("texture %d has no image", texIdx)
	}
	img := doc.Images[*src]

	switch {
	case img.BufferView != nil:
		data, err := r.bufferView(*img.BufferView)
		if err != nil {
			return err
		}
		mat.TextureData = data
	case strings.HasPrefix(img.URI, "data:"):
		data, err := decodeDataURI(img.URI)
		if err != nil {
			return err
		}
		mat.TextureData = data
	case img.URI != "":
		uri, err := url.PathUnescape(img.URI)
		if err != nil {
			uri = img.URI
		}
		mat.Texture = uri
	default:
		return fmt.Errorf("image %d has no source", *src)
	}
	return nil
}

func (r *gltfReader) bufferView(idx uint32) ([]byte, error) {
	if int(idx) >= len(r.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", idx)
	}
	bv := r.doc.BufferViews[idx]
	if int(bv.Buffer) >= len(r.doc.Buffers) {
		return nil, fmt.Errorf("buffer %d out of range", bv.Buffer)
	}
	data := r.doc.Buffers[bv.Buffer].Data
	start := uint64(bv.ByteOffset)
	end := start + uint64(bv.ByteLength)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("buffer view %d exceeds buffer", idx)
	}
	return append([]byte(nil), data[start:end]...), nil
}

func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}
	meta, payload := uri[:comma], uri[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	return []byte(s), err
}
