// Package renderer draws the current model every frame.
package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/debug"
	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/engine/renderer/shaders"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/scene"
	"github.com/Faultbox/meshview/pkg/math"
)

// Mode is the polygon rendering mode applied to a whole frame.
type Mode int

const (
	Solid Mode = iota
	Wireframe
)

func (m Mode) String() string {
	if m == Wireframe {
		return "wireframe"
	}
	return "solid"
}

// Path is the shading path chosen for one mesh.
type Path int

const (
	// PathFlat draws the material color.
	PathFlat Path = iota
	// PathTextured samples the material texture.
	PathTextured
	// PathHighlight draws wireframe edges in the highlight color.
	PathHighlight
)

func (p Path) String() string {
	switch p {
	case PathTextured:
		return "textured"
	case PathHighlight:
		return "highlight"
	}
	return "flat"
}

// ResolvePath picks the shading path for mesh under mode.
func ResolvePath(mode Mode, mesh *scene.Mesh) Path {
	switch {
	case mode == Wireframe:
		return PathHighlight
	case mesh.HasUV && mesh.Material.Textured():
		return PathTextured
	default:
		return PathFlat
	}
}

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int

	Mode               Mode
	ClearColor         mgl32.Vec3
	HighlightColor     mgl32.Vec3
	BoundsColor        mgl32.Vec3
	WireframeLineWidth float32
}

// DefaultConfig returns the renderer defaults.
func DefaultConfig() Config {
	return Config{
		Width:              800,
		Height:             600,
		Mode:               Solid,
		ClearColor:         mgl32.Vec3{0.2, 0.3, 0.3},
		HighlightColor:     mgl32.Vec3{0, 1, 0},
		BoundsColor:        mgl32.Vec3{1, 0.8, 0},
		WireframeLineWidth: 2,
	}
}

// Frame is everything Render needs for one frame.
type Frame struct {
	Camera     *camera.Camera
	Model      *scene.Model
	ShowBounds bool
}

// Stats counts the work of the last rendered frame.
type Stats struct {
	DrawCalls int
	Triangles int
}

// program caches the uniform locations of a linked shader program. Missing
// uniforms have location -1.
type program struct {
	handle     gpu.ProgramHandle
	mvp        int32
	color      int32
	lit        int32
	texture    int32
	hasTexture int32
}

// Renderer issues the per-frame draw calls.
type Renderer struct {
	dev    gpu.Device
	config Config
	mode   Mode

	flat     program
	textured program

	bounds      gpu.MeshHandle
	boundsModel *scene.Model

	stats Stats
}

// New compiles the shader programs. An error here is fatal to startup.
func New(dev gpu.Device, cfg Config) (*Renderer, error) {
	r := &Renderer{dev: dev, config: cfg, mode: cfg.Mode}

	var err error
	r.flat, err = r.createProgram("flat", shaders.FlatVertexShader, shaders.FlatFragmentShader)
	if err != nil {
		return nil, err
	}
	r.textured, err = r.createProgram("textured", shaders.TexturedVertexShader, shaders.TexturedFragmentShader)
	if err != nil {
		dev.DeleteProgram(r.flat.handle)
		return nil, err
	}

	dev.SetDepthTest(true)
	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

func (r *Renderer) createProgram(name, vs, fs string) (program, error) {
	h, err := r.dev.CreateProgram(name, vs, fs)
	if err != nil {
		return program{}, fmt.Errorf("creating %s program: %w", name, err)
	}
	p := program{
		handle:     h,
		mvp:        r.dev.UniformLocation(h, "uMVP"),
		color:      r.dev.UniformLocation(h, "uColor"),
		lit:        r.dev.UniformLocation(h, "uLit"),
		texture:    r.dev.UniformLocation(h, "uTexture"),
		hasTexture: r.dev.UniformLocation(h, "uHasTexture"),
	}
	logger.Debug("shader program created",
		zap.String("name", name),
		zap.Int32("uMVP", p.mvp),
		zap.Int32("uColor", p.color),
		zap.Int32("uLit", p.lit),
		zap.Int32("uTexture", p.texture),
		zap.Int32("uHasTexture", p.hasTexture),
	)
	return p, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	logger.Info("closing renderer")
	r.releaseBounds()
	r.dev.DeleteProgram(r.flat.handle)
	r.dev.DeleteProgram(r.textured.handle)
}

// Resize handles window resize. The new size applies from the next frame.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = max(width, 1)
	r.config.Height = max(height, 1)
	logger.Debug("renderer resized",
		zap.Int("width", r.config.Width),
		zap.Int("height", r.config.Height),
	)
}

// Size returns the framebuffer size in pixels.
func (r *Renderer) Size() (width, height int) {
	return r.config.Width, r.config.Height
}

// Mode returns the current render mode.
func (r *Renderer) Mode() Mode { return r.mode }

// SetMode sets the render mode for the next frame.
func (r *Renderer) SetMode(m Mode) { r.mode = m }

// ToggleWireframe switches between solid and wireframe and returns the new
// mode.
func (r *Renderer) ToggleWireframe() Mode {
	if r.mode == Wireframe {
		r.mode = Solid
	} else {
		r.mode = Wireframe
	}
	return r.mode
}

// Stats returns counters of the last frame.
func (r *Renderer) Stats() Stats { return r.stats }

// Render draws one frame. Without a model only the clear happens.
func (r *Renderer) Render(f Frame) {
	r.stats = Stats{}
	w, h := r.config.Width, r.config.Height
	r.dev.SetViewport(0, 0, int32(w), int32(h))
	r.dev.Clear(r.config.ClearColor)

	if f.Model != r.boundsModel {
		r.releaseBounds()
	}
	if f.Model == nil || f.Camera == nil {
		return
	}

	aspect := float32(w) / float32(h)
	mvp := math.MVP(f.Camera.ProjectionMatrix(aspect), f.Camera.ViewMatrix(), math.Identity())

	r.applyMode()
	for i := range f.Model.Meshes {
		mesh := &f.Model.Meshes[i]
		if !mesh.Handle.Valid() {
			continue
		}
		r.drawMesh(mesh, ResolvePath(r.mode, mesh), mvp)
	}
	r.dev.SetFillMode(gpu.Fill)
	r.dev.SetLineWidth(1)

	if f.ShowBounds {
		r.drawBounds(f.Model, mvp)
	}
}

func (r *Renderer) applyMode() {
	if r.mode == Wireframe {
		r.dev.SetFillMode(gpu.Line)
		r.dev.SetCulling(false)
		r.dev.SetLineWidth(r.config.WireframeLineWidth)
		return
	}
	r.dev.SetFillMode(gpu.Fill)
	r.dev.SetCulling(true)
}

func (r *Renderer) drawMesh(mesh *scene.Mesh, path Path, mvp mgl32.Mat4) {
	color := scene.DefaultColor
	if mesh.Material != nil {
		color = mesh.Material.Color
	}

	switch path {
	case PathHighlight:
		r.use(&r.flat, mvp, r.config.HighlightColor, false)
	case PathTextured:
		p := &r.textured
		r.use(p, mvp, color, true)
		r.dev.BindTexture(0, mesh.Material.Texture.Handle)
		setInt(r.dev, p.texture, 0)
		setInt(r.dev, p.hasTexture, 1)
	default:
		r.use(&r.flat, mvp, color, true)
	}

	r.dev.Draw(mesh.Handle)
	r.stats.DrawCalls++
	r.stats.Triangles += mesh.TriangleCount()
}

// use activates p and writes the uniforms every path shares. All uniforms
// are rewritten after each switch, so no value leaks between meshes.
func (r *Renderer) use(p *program, mvp mgl32.Mat4, color mgl32.Vec3, lit bool) {
	r.dev.UseProgram(p.handle)
	if p.mvp >= 0 {
		r.dev.SetUniformMat4(p.mvp, mvp)
	}
	if p.color >= 0 {
		r.dev.SetUniformVec3(p.color, color)
	}
	litValue := int32(0)
	if lit {
		litValue = 1
	}
	setInt(r.dev, p.lit, litValue)
}

func setInt(dev gpu.Device, loc, v int32) {
	if loc >= 0 {
		dev.SetUniformInt(loc, v)
	}
}

// drawBounds draws the model's box as lines. The line mesh is rebuilt when
// the model changes.
func (r *Renderer) drawBounds(m *scene.Model, mvp mgl32.Mat4) {
	if r.boundsModel != m {
		r.releaseBounds()
		r.boundsModel = m
		local := m.Bounds.Local()
		h, err := r.dev.CreateMesh(debug.BBoxWireframe(local.Min, local.Max, 0))
		if err != nil {
			logger.Warn("bounds overlay unavailable", zap.Error(err))
		}
		r.bounds = h
	}
	if !r.bounds.Valid() {
		return
	}
	r.use(&r.flat, mvp, r.config.BoundsColor, false)
	r.dev.Draw(r.bounds)
	r.stats.DrawCalls++
}

// ReleaseOverlay deletes the bounds mesh built for the previous model.
// Call it when the displayed model is replaced.
func (r *Renderer) ReleaseOverlay() {
	r.releaseBounds()
}

func (r *Renderer) releaseBounds() {
	if r.bounds.Valid() {
		r.dev.DeleteMesh(r.bounds)
	}
	r.bounds = 0
	r.boundsModel = nil
}
