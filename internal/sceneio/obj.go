package sceneio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// objDecoder reads Wavefront OBJ files and their MTL material libraries.
type objDecoder struct{}

func (objDecoder) Name() string { return "obj" }

func (objDecoder) Extensions() []string { return []string{"obj"} }

func (objDecoder) Match(path string, head []byte, size int64) bool {
	if hasExt(path, ".obj") {
		return true
	}
	// Headerless text with vertex and face records.
	return bytes.HasPrefix(head, []byte("v ")) ||
		(bytes.Contains(head, []byte("\nv ")) && bytes.Contains(head, []byte("\nf ")))
}

func (objDecoder) Decode(path string, _ Flags) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := newObjParser()
	if err := p.parse(f, p.parseObjLine); err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for _, lib := range p.matlibs {
		if err := p.loadMaterialLibrary(filepath.Join(dir, lib)); err != nil {
			p.sc.warn("material library %s: %v", lib, err)
		}
	}
	return p.build(), nil
}

// objCorner is one face corner: indices into the position, uv and normal
// pools, with -1 for an absent component.
type objCorner struct {
	v, vt, vn int
}

type objFace struct {
	corners []objCorner
}

// objGroup collects faces drawn with one material inside one object.
type objGroup struct {
	name     string
	material string
	faces    []objFace
}

type objParser struct {
	sc *Scene

	positions [][3]float32
	uvs       [][2]float32
	normals   [][3]float32

	groups   []*objGroup
	current  *objGroup
	object   string
	material string
	matlibs  []string

	// Material definitions in declaration order, then first-use order for
	// names never defined.
	matOrder []string
	matDefs  map[string]*Material

	line int
}

func newObjParser() *objParser {
	return &objParser{
		sc:      &Scene{HasRoot: true},
		matDefs: make(map[string]*Material),
	}
}

func (p *objParser) formatError(msg string) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformed, p.line, msg)
}

// parse reads the lines of r and dispatches them to parseLine.
func (p *objParser) parse(r io.Reader, parseLine func([]string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	p.line = 0
	for sc.Scan() {
		p.line++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		// Backslash continues a record on the next line.
		for strings.HasSuffix(line, "\\") && sc.Scan() {
			p.line++
			line = strings.TrimSuffix(line, "\\") + " " + strings.TrimSpace(sc.Text())
		}
		if err := parseLine(strings.Fields(line)); err != nil {
			return err
		}
	}
	return sc.Err()
}

func (p *objParser) parseObjLine(fields []string) error {
	switch fields[0] {
	case "v":
		v, err := p.parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		p.positions = append(p.positions, [3]float32{v[0], v[1], v[2]})
	case "vt":
		v, err := p.parseFloats(fields[1:], 1)
		if err != nil {
			return err
		}
		uv := [2]float32{v[0], 0}
		if len(v) > 1 {
			uv[1] = v[1]
		}
		p.uvs = append(p.uvs, uv)
	case "vn":
		v, err := p.parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		p.normals = append(p.normals, [3]float32{v[0], v[1], v[2]})
	case "f", "l", "p":
		return p.parseFace(fields[1:])
	case "o", "g":
		p.object = strings.Join(fields[1:], " ")
		p.current = nil
	case "usemtl":
		if len(fields) < 2 {
			return p.formatError("usemtl with no name")
		}
		p.material = strings.Join(fields[1:], " ")
		p.current = nil
	case "mtllib":
		if len(fields) < 2 {
			return p.formatError("mtllib with no file")
		}
		p.matlibs = append(p.matlibs, strings.Join(fields[1:], " "))
	case "s", "mg", "lod", "bevel", "c_interp", "d_interp", "shadow_obj", "trace_obj":
	default:
		p.sc.warn("line %d: unsupported record %q", p.line, fields[0])
	}
	return nil
}

func (p *objParser) parseFloats(fields []string, want int) ([]float32, error) {
	if len(fields) < want {
		return nil, p.formatError(fmt.Sprintf("expected %d values, got %d", want, len(fields)))
	}
	out := make([]float32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, p.formatError(err.Error())
		}
		out = append(out, float32(v))
	}
	return out, nil
}

// resolveIndex converts a 1-based or negative relative OBJ index.
func (p *objParser) resolveIndex(s string, count int) (int, error) {
	if s == "" {
		return -1, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, p.formatError(err.Error())
	}
	switch {
	case v > 0:
		v--
	case v < 0:
		v += count
	default:
		return 0, p.formatError("index 0")
	}
	if v < 0 || v >= count {
		return 0, p.formatError(fmt.Sprintf("index out of range (%d elements)", count))
	}
	return v, nil
}

// parseFace parses v[/vt][/vn] corners.
func (p *objParser) parseFace(fields []string) error {
	if len(fields) == 0 {
		return p.formatError("face with no corners")
	}
	face := objFace{corners: make([]objCorner, len(fields))}
	for i, f := range fields {
		parts := strings.Split(f, "/")
		var c objCorner
		var err error
		if c.v, err = p.resolveIndex(parts[0], len(p.positions)); err != nil {
			return err
		}
		if c.v < 0 {
			return p.formatError("corner without position")
		}
		c.vt, c.vn = -1, -1
		if len(parts) > 1 {
			if c.vt, err = p.resolveIndex(parts[1], len(p.uvs)); err != nil {
				return err
			}
		}
		if len(parts) > 2 {
			if c.vn, err = p.resolveIndex(parts[2], len(p.normals)); err != nil {
				return err
			}
		}
		face.corners[i] = c
	}

	if p.current == nil {
		p.current = &objGroup{name: p.object, material: p.material}
		p.groups = append(p.groups, p.current)
	}
	p.current.faces = append(p.current.faces, face)
	return nil
}

// build expands every group into a mesh with its own vertex pool.
func (p *objParser) build() *Scene {
	slots := make(map[string]int)
	for _, name := range p.matOrder {
		slots[name] = len(p.sc.Materials)
		p.sc.Materials = append(p.sc.Materials, *p.matDefs[name])
	}

	for gi, g := range p.groups {
		if len(g.faces) == 0 {
			continue
		}
		m := Mesh{Name: g.name, Material: NoMaterial, UVOrigin: BottomLeft}
		if m.Name == "" {
			m.Name = fmt.Sprintf("group%d", gi)
		}
		if g.material != "" {
			slot, ok := slots[g.material]
			if !ok {
				p.sc.warn("material %q used but not defined", g.material)
				slot = len(p.sc.Materials)
				slots[g.material] = slot
				p.sc.Materials = append(p.sc.Materials, Material{Name: g.material})
			}
			m.Material = slot
		}

		index := make(map[objCorner]uint32)
		allUV, allNormals := true, true
		for _, f := range g.faces {
			face := make([]uint32, len(f.corners))
			for i, c := range f.corners {
				idx, ok := index[c]
				if !ok {
					idx = uint32(len(m.Positions))
					index[c] = idx
					m.Positions = append(m.Positions, p.positions[c.v])
					if c.vt >= 0 {
						m.UVs = append(m.UVs, p.uvs[c.vt])
					} else {
						allUV = false
						m.UVs = append(m.UVs, [2]float32{})
					}
					if c.vn >= 0 {
						m.Normals = append(m.Normals, p.normals[c.vn])
					} else {
						allNormals = false
						m.Normals = append(m.Normals, [3]float32{})
					}
				}
				face[i] = idx
			}
			m.Faces = append(m.Faces, face)
		}
		// A mesh either has UVs on every vertex or none at all.
		if !allUV {
			m.UVs = nil
		}
		if !allNormals {
			m.Normals = nil
		}
		p.sc.Meshes = append(p.sc.Meshes, m)
	}
	return p.sc
}

// loadMaterialLibrary reads newmtl, Kd and map_Kd records.
func (p *objParser) loadMaterialLibrary(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var cur *Material
	return p.parse(f, func(fields []string) error {
		switch strings.ToLower(fields[0]) {
		case "newmtl":
			if len(fields) < 2 {
				return p.formatError("newmtl with no name")
			}
			name := strings.Join(fields[1:], " ")
			if _, ok := p.matDefs[name]; !ok {
				p.matOrder = append(p.matOrder, name)
			}
			cur = &Material{Name: name}
			p.matDefs[name] = cur
		case "kd":
			if cur == nil {
				return nil
			}
			v, err := p.parseFloats(fields[1:], 3)
			if err != nil {
				return err
			}
			cur.Diffuse = &[3]float32{v[0], v[1], v[2]}
		case "map_kd":
			if cur == nil {
				return nil
			}
			name, err := mapFileName(fields[1:])
			if err != nil {
				return p.formatError(err.Error())
			}
			cur.Texture = name
		}
		return nil
	})
}

// mapOptionArgs is the number of arguments each texture map option takes.
var mapOptionArgs = map[string]int{
	"-blendu": 1, "-blendv": 1, "-bm": 1, "-boost": 1, "-cc": 1, "-clamp": 1,
	"-imfchan": 1, "-texres": 1, "-type": 1, "-mm": 2,
	"-o": 3, "-s": 3, "-t": 3,
}

// mapFileName skips texture map options and returns the file name, which
// may contain spaces.
func mapFileName(fields []string) (string, error) {
	i := 0
	for i < len(fields) && strings.HasPrefix(fields[i], "-") {
		n, ok := mapOptionArgs[strings.ToLower(fields[i])]
		if !ok {
			n = 1
		}
		i++
		// -o, -s and -t take one to three numbers.
		for j := 0; j < n && i < len(fields); j++ {
			if _, err := strconv.ParseFloat(fields[i], 32); err != nil && j > 0 {
				break
			}
			i++
		}
	}
	if i >= len(fields) {
		return "", errors.New("texture map without file name")
	}
	return strings.Join(fields[i:], " "), nil
}
