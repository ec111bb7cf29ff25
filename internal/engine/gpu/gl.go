package gpu

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/shader"
	"github.com/Faultbox/meshview/internal/logger"
)

type glMesh struct {
	vao        uint32
	vbo        uint32
	ebo        uint32
	indexCount int32
	mode       uint32
}

// GLDevice implements Device on an OpenGL 4.1 core context.
// All methods must be called from the thread that owns the context.
type GLDevice struct {
	meshes   map[MeshHandle]*glMesh
	textures map[TextureHandle]uint32
	programs map[ProgramHandle]uint32
	nextID   uint32
	// lineWidths is the supported aliased line width range.
	lineWidths [2]float32
}

// maxStaleErrors bounds the drain loop; a lost context keeps reporting
// errors.
const maxStaleErrors = 16

// NewGLDevice loads GL function pointers and sets the default state.
// IMPORTANT: Must be called AFTER the OpenGL context is created!
func NewGLDevice() (*GLDevice, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.String("glsl", gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.FrontFace(gl.CCW)
	gl.CullFace(gl.BACK)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)

	var lineWidths [2]float32
	gl.GetFloatv(gl.ALIASED_LINE_WIDTH_RANGE, &lineWidths[0])
	logger.Debug("line width range", zap.Float32("min", lineWidths[0]), zap.Float32("max", lineWidths[1]))

	d := &GLDevice{
		meshes:     make(map[MeshHandle]*glMesh),
		textures:   make(map[TextureHandle]uint32),
		programs:   make(map[ProgramHandle]uint32),
		lineWidths: lineWidths,
	}
	d.clearErrors("init")
	return d, nil
}

// clearErrors drops error flags left by earlier calls, so the check after
// an upload only sees errors raised by that upload.
func (d *GLDevice) clearErrors(op string) {
	if stale := drainErrors(gl.GetError); len(stale) > 0 {
		logger.Debug("discarding stale GL errors", zap.String("before", op), zap.Uint32s("codes", stale))
	}
}

func drainErrors(getError func() uint32) []uint32 {
	var stale []uint32
	for len(stale) < maxStaleErrors {
		code := getError()
		if code == gl.NO_ERROR {
			break
		}
		stale = append(stale, code)
	}
	return stale
}

// clampLineWidth keeps width inside the driver's range. Forward-compatible
// core contexts reject widths above 1 with INVALID_VALUE.
func clampLineWidth(width float32, rng [2]float32) float32 {
	if rng[1] < rng[0] || rng[1] <= 0 {
		return 1
	}
	return min(max(width, rng[0]), rng[1])
}

func (d *GLDevice) id() uint32 {
	d.nextID++
	return d.nextID
}

// CreateMesh uploads an interleaved vertex buffer and its index buffer.
func (d *GLDevice) CreateMesh(data MeshData) (MeshHandle, error) {
	if len(data.Vertices) == 0 || len(data.Indices) == 0 {
		return 0, ErrEmptyMesh
	}

	m := &glMesh{indexCount: int32(len(data.Indices)), mode: gl.TRIANGLES}
	if data.Primitive == Lines {
		m.mode = gl.LINES
	}
	stride := int32(data.Stride() * 4)

	d.clearErrors("mesh upload")
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data.Vertices)*4, unsafe.Pointer(&data.Vertices[0]), gl.STATIC_DRAW)

	gl.VertexAttribPointerWithOffset(AttribPosition, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(AttribPosition)
	if data.HasUV {
		gl.VertexAttribPointerWithOffset(AttribUV, 2, gl.FLOAT, false, stride, 3*4)
		gl.EnableVertexAttribArray(AttribUV)
	}

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(data.Indices)*4, unsafe.Pointer(&data.Indices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		d.deleteMesh(m)
		return 0, fmt.Errorf("mesh upload: GL error 0x%x", code)
	}

	h := MeshHandle(d.id())
	d.meshes[h] = m
	return h, nil
}

// DeleteMesh releases the buffers behind h. Unknown handles are ignored.
func (d *GLDevice) DeleteMesh(h MeshHandle) {
	if m, ok := d.meshes[h]; ok {
		d.deleteMesh(m)
		delete(d.meshes, h)
	}
}

func (d *GLDevice) deleteMesh(m *glMesh) {
	if m.ebo != 0 {
		gl.DeleteBuffers(1, &m.ebo)
	}
	if m.vbo != 0 {
		gl.DeleteBuffers(1, &m.vbo)
	}
	if m.vao != 0 {
		gl.DeleteVertexArrays(1, &m.vao)
	}
}

// CreateTexture uploads img as a mipmapped, repeating 2D texture.
// Row 0 of img is the bottom row of the texture.
func (d *GLDevice) CreateTexture(img *image.RGBA) (TextureHandle, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return 0, fmt.Errorf("texture has zero size %dx%d", b.Dx(), b.Dy())
	}

	d.clearErrors("texture upload")
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(b.Dx()), int32(b.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &tex)
		return 0, fmt.Errorf("texture upload: GL error 0x%x", code)
	}

	h := TextureHandle(d.id())
	d.textures[h] = tex
	return h, nil
}

// DeleteTexture releases the texture behind h. Unknown handles are ignored.
func (d *GLDevice) DeleteTexture(h TextureHandle) {
	if tex, ok := d.textures[h]; ok {
		gl.DeleteTextures(1, &tex)
		delete(d.textures, h)
	}
}

// CreateProgram compiles and links a shader program.
func (d *GLDevice) CreateProgram(name, vertexSrc, fragmentSrc string) (ProgramHandle, error) {
	prog, err := shader.CompileProgram(shader.Source{Name: name, Vertex: vertexSrc, Fragment: fragmentSrc})
	if err != nil {
		return 0, err
	}
	h := ProgramHandle(d.id())
	d.programs[h] = prog
	return h, nil
}

// DeleteProgram deletes a linked program.
func (d *GLDevice) DeleteProgram(h ProgramHandle) {
	if prog, ok := d.programs[h]; ok {
		gl.DeleteProgram(prog)
		delete(d.programs, h)
	}
}

// UniformLocation returns -1 for unknown programs or inactive uniforms.
func (d *GLDevice) UniformLocation(p ProgramHandle, name string) int32 {
	prog, ok := d.programs[p]
	if !ok {
		return -1
	}
	return shader.UniformLocation(prog, name)
}

// UseProgram makes p the active program.
func (d *GLDevice) UseProgram(p ProgramHandle) {
	gl.UseProgram(d.programs[p])
}

func (d *GLDevice) SetUniformMat4(loc int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(loc, 1, false, &m[0])
}

func (d *GLDevice) SetUniformVec3(loc int32, v mgl32.Vec3) {
	gl.Uniform3f(loc, v[0], v[1], v[2])
}

func (d *GLDevice) SetUniformInt(loc int32, v int32) {
	gl.Uniform1i(loc, v)
}

// BindTexture binds h to the given texture unit. An invalid handle unbinds.
func (d *GLDevice) BindTexture(slot uint32, h TextureHandle) {
	gl.ActiveTexture(gl.TEXTURE0 + slot)
	gl.BindTexture(gl.TEXTURE_2D, d.textures[h])
}

func (d *GLDevice) SetViewport(x, y, width, height int32) {
	gl.Viewport(x, y, width, height)
}

// Clear clears the color and depth buffers.
func (d *GLDevice) Clear(color mgl32.Vec3) {
	gl.ClearColor(color[0], color[1], color[2], 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (d *GLDevice) SetDepthTest(enabled bool) {
	setCap(gl.DEPTH_TEST, enabled)
}

func (d *GLDevice) SetCulling(enabled bool) {
	setCap(gl.CULL_FACE, enabled)
}

func (d *GLDevice) SetFillMode(mode FillMode) {
	if mode == Line {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
		return
	}
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
}

// SetLineWidth sets the rasterized line width, clamped to the supported
// range.
func (d *GLDevice) SetLineWidth(width float32) {
	gl.LineWidth(clampLineWidth(width, d.lineWidths))
}

// Draw issues an indexed draw of the whole mesh.
func (d *GLDevice) Draw(h MeshHandle) {
	m, ok := d.meshes[h]
	if !ok {
		return
	}
	gl.BindVertexArray(m.vao)
	gl.DrawElementsWithOffset(m.mode, m.indexCount, gl.UNSIGNED_INT, 0)
	gl.BindVertexArray(0)
}

// ReadPixels reads the RGBA back buffer, bottom row first.
func (d *GLDevice) ReadPixels(width, height int32) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid read size %dx%d", width, height)
	}
	pixels := make([]byte, int(width)*int(height)*4)
	d.clearErrors("read pixels")
	gl.ReadPixels(0, 0, width, height, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
	if code := gl.GetError(); code != gl.NO_ERROR {
		return nil, fmt.Errorf("read pixels: GL error 0x%x", code)
	}
	return pixels, nil
}

// Close releases every object still owned by the device.
func (d *GLDevice) Close() {
	for h := range d.meshes {
		d.DeleteMesh(h)
	}
	for h := range d.textures {
		d.DeleteTexture(h)
	}
	for h := range d.programs {
		d.DeleteProgram(h)
	}
}

func setCap(capability uint32, enabled bool) {
	if enabled {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}

var _ Device = (*GLDevice)(nil)
