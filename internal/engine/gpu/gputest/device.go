// Package gputest provides an in-memory gpu.Device that records every call,
// for tests that exercise rendering and import code without a GL context.
package gputest

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/engine/gpu"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("injected device failure")

// Draw records one draw call together with the state it was issued in.
type Draw struct {
	Mesh      gpu.MeshHandle
	Program   gpu.ProgramHandle
	Fill      gpu.FillMode
	Culling   bool
	LineWidth float32
	Texture   gpu.TextureHandle
	// Uniforms holds the values written to the active program before the
	// draw, keyed by uniform name.
	Uniforms map[string]any
}

type program struct {
	name     string
	uniforms map[string]int32
}

// Device is a recording gpu.Device. The zero value is not usable; call New.
type Device struct {
	Meshes   map[gpu.MeshHandle]gpu.MeshData
	Textures map[gpu.TextureHandle]*image.RGBA

	// Uniforms lists, per program name, the uniforms that program exposes.
	// Programs not listed expose every uniform they are asked about.
	Uniforms map[string][]string

	// Failure injection.
	FailProgram   string
	FailMeshAfter int
	FailTextures  bool

	Draws     []Draw
	Calls     []string
	Viewport  [4]int32
	Fill      gpu.FillMode
	Culling   bool
	DepthTest bool
	LineWidth float32
	Clears    int
	Pixels    []byte

	programs     map[gpu.ProgramHandle]*program
	locNames     map[int32]string
	active       gpu.ProgramHandle
	bound        gpu.TextureHandle
	pending      map[string]any
	nextID       uint32
	meshUploads  int
	nextLocation int32
}

// New returns an empty recording device.
func New() *Device {
	return &Device{
		Meshes:    make(map[gpu.MeshHandle]gpu.MeshData),
		Textures:  make(map[gpu.TextureHandle]*image.RGBA),
		Uniforms:  make(map[string][]string),
		LineWidth: 1,
		programs:  make(map[gpu.ProgramHandle]*program),
		locNames:  make(map[int32]string),
		pending:   make(map[string]any),
	}
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) record(format string, args ...any) {
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
}

// CreateMesh stores a copy of data.
func (d *Device) CreateMesh(data gpu.MeshData) (gpu.MeshHandle, error) {
	if len(data.Vertices) == 0 || len(data.Indices) == 0 {
		return 0, gpu.ErrEmptyMesh
	}
	d.meshUploads++
	if d.FailMeshAfter > 0 && d.meshUploads > d.FailMeshAfter {
		return 0, ErrInjected
	}
	cp := data
	cp.Vertices = append([]float32(nil), data.Vertices...)
	cp.Indices = append([]uint32(nil), data.Indices...)
	h := gpu.MeshHandle(d.id())
	d.Meshes[h] = cp
	d.record("create-mesh %d", h)
	return h, nil
}

func (d *Device) DeleteMesh(h gpu.MeshHandle) {
	delete(d.Meshes, h)
	d.record("delete-mesh %d", h)
}

func (d *Device) CreateTexture(img *image.RGBA) (gpu.TextureHandle, error) {
	if d.FailTextures {
		return 0, ErrInjected
	}
	h := gpu.TextureHandle(d.id())
	d.Textures[h] = img
	d.record("create-texture %d", h)
	return h, nil
}

func (d *Device) DeleteTexture(h gpu.TextureHandle) {
	delete(d.Textures, h)
	d.record("delete-texture %d", h)
}

func (d *Device) CreateProgram(name, vertexSrc, fragmentSrc string) (gpu.ProgramHandle, error) {
	if name == d.FailProgram {
		return 0, fmt.Errorf("%s: %w", name, ErrInjected)
	}
	if vertexSrc == "" || fragmentSrc == "" {
		return 0, fmt.Errorf("%s: empty shader source", name)
	}
	h := gpu.ProgramHandle(d.id())
	d.programs[h] = &program{name: name, uniforms: make(map[string]int32)}
	d.record("create-program %s", name)
	return h, nil
}

func (d *Device) DeleteProgram(h gpu.ProgramHandle) {
	delete(d.programs, h)
	d.record("delete-program %d", h)
}

// UniformLocation hands out unique locations, or -1 when the program's
// entry in Uniforms does not list name.
func (d *Device) UniformLocation(p gpu.ProgramHandle, name string) int32 {
	prog, ok := d.programs[p]
	if !ok {
		return -1
	}
	if allowed, ok := d.Uniforms[prog.name]; ok && !contains(allowed, name) {
		return -1
	}
	if loc, ok := prog.uniforms[name]; ok {
		return loc
	}
	loc := d.nextLocation
	d.nextLocation++
	prog.uniforms[name] = loc
	d.locNames[loc] = name
	return loc
}

func (d *Device) UseProgram(p gpu.ProgramHandle) {
	d.active = p
	d.pending = make(map[string]any)
}

func (d *Device) setUniform(loc int32, v any) {
	if loc < 0 {
		// Real drivers ignore writes to -1; the renderer must not issue them.
		d.record("uniform-write-to-missing-location")
		return
	}
	d.pending[d.locNames[loc]] = v
}

func (d *Device) SetUniformMat4(loc int32, m mgl32.Mat4) { d.setUniform(loc, m) }
func (d *Device) SetUniformVec3(loc int32, v mgl32.Vec3) { d.setUniform(loc, v) }
func (d *Device) SetUniformInt(loc int32, v int32)       { d.setUniform(loc, v) }

func (d *Device) BindTexture(slot uint32, h gpu.TextureHandle) {
	d.bound = h
	d.record("bind-texture %d %d", slot, h)
}

func (d *Device) SetViewport(x, y, width, height int32) {
	d.Viewport = [4]int32{x, y, width, height}
}

func (d *Device) Clear(color mgl32.Vec3) {
	d.Clears++
	d.record("clear")
}

func (d *Device) SetDepthTest(enabled bool) { d.DepthTest = enabled }

func (d *Device) SetCulling(enabled bool) {
	d.Culling = enabled
	d.record("culling %t", enabled)
}

func (d *Device) SetFillMode(mode gpu.FillMode) {
	d.Fill = mode
	d.record("fill %s", mode)
}

func (d *Device) SetLineWidth(width float32) {
	d.LineWidth = width
	d.record("line-width %g", width)
}

// Draw records the draw together with the current state snapshot.
func (d *Device) Draw(h gpu.MeshHandle) {
	u := make(map[string]any, len(d.pending))
	for k, v := range d.pending {
		u[k] = v
	}
	d.Draws = append(d.Draws, Draw{
		Mesh:      h,
		Program:   d.active,
		Fill:      d.Fill,
		Culling:   d.Culling,
		LineWidth: d.LineWidth,
		Texture:   d.bound,
		Uniforms:  u,
	})
	d.record("draw %d", h)
}

// ReadPixels returns Pixels when set, otherwise an opaque black buffer.
func (d *Device) ReadPixels(width, height int32) ([]byte, error) {
	n := int(width) * int(height) * 4
	if d.Pixels != nil {
		if len(d.Pixels) < n {
			return nil, fmt.Errorf("pixels: have %d bytes, need %d", len(d.Pixels), n)
		}
		return d.Pixels[:n], nil
	}
	out := make([]byte, n)
	for i := 3; i < n; i += 4 {
		out[i] = 255
	}
	return out, nil
}

// ProgramName returns the name a program was created with.
func (d *Device) ProgramName(h gpu.ProgramHandle) string {
	if p, ok := d.programs[h]; ok {
		return p.name
	}
	return ""
}

// LiveMeshes returns the handles of meshes not yet deleted, sorted.
func (d *Device) LiveMeshes() []gpu.MeshHandle {
	out := make([]gpu.MeshHandle, 0, len(d.Meshes))
	for h := range d.Meshes {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LiveTextures returns the handles of textures not yet deleted, sorted.
func (d *Device) LiveTextures() []gpu.TextureHandle {
	out := make([]gpu.TextureHandle, 0, len(d.Textures))
	for h := range d.Textures {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ResetFrame forgets recorded draws and calls, keeping resources.
func (d *Device) ResetFrame() {
	d.Draws = nil
	d.Calls = nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var _ gpu.Device = (*Device)(nil)
