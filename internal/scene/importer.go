package scene

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/engine/texture"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/sceneio"
	"github.com/Faultbox/meshview/pkg/encoding"
)

// Import errors. Errors returned by Import wrap one of these.
var (
	ErrParseFailed = errors.New("scene parse failed")
	ErrEmptyScene  = errors.New("scene has no renderable geometry")
)

// Options control how files are parsed and textures are loaded.
type Options struct {
	Flags sceneio.Flags
	// Charset decodes non-UTF-8 texture references.
	Charset encoding.Charset
	// MaxTextureSize downscales larger textures; 0 selects the loader default.
	MaxTextureSize int
}

// DefaultOptions returns the options used by the viewer.
func DefaultOptions() Options {
	return Options{
		Flags:   sceneio.DefaultFlags,
		Charset: encoding.Auto,
	}
}

// Importer parses scene files and uploads them as Models.
type Importer struct {
	res      gpu.Resources
	textures *texture.Loader
	opts     Options
}

// NewImporter creates an importer uploading through res.
func NewImporter(res gpu.Resources, opts Options) *Importer {
	if opts.Charset == "" {
		opts.Charset = encoding.Auto
	}
	return &Importer{
		res:      res,
		textures: texture.NewLoader(res, opts.MaxTextureSize),
		opts:     opts,
	}
}

// Import parses path and uploads its meshes and textures. On error nothing
// stays allocated on the device.
func (im *Importer) Import(path string) (*Model, error) {
	sc, err := sceneio.Parse(path, im.opts.Flags)
	switch {
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	case sc == nil:
		return nil, fmt.Errorf("%w: %s: no scene", ErrParseFailed, path)
	case !sc.HasRoot:
		return nil, fmt.Errorf("%w: %s: no scene root", ErrParseFailed, path)
	case sc.Incomplete:
		return nil, fmt.Errorf("%w: %s: scene is incomplete", ErrParseFailed, path)
	}

	bounds, err := ComputeBounds(sc.Meshes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	triangles := 0
	for i := range sc.Meshes {
		triangles += sc.Meshes[i].TriangleCount()
	}
	if triangles == 0 {
		return nil, fmt.Errorf("%w: %s: no triangles", ErrEmptyScene, path)
	}

	model := &Model{
		Name:   filepath.Base(path),
		Path:   path,
		Format: sc.Format,
		Bounds: bounds,
	}
	model.Materials = im.materials(sc.Materials, filepath.Dir(path))

	for i := range sc.Meshes {
		src := &sc.Meshes[i]
		if src.TriangleCount() == 0 {
			continue
		}
		mesh, err := im.upload(src, bounds.Center, model.Materials)
		if err != nil {
			model.Release(im.res)
			return nil, fmt.Errorf("uploading mesh %q: %w", src.Name, err)
		}
		model.Meshes = append(model.Meshes, mesh)
	}

	meshes, vertices, tris := model.Stats()
	logger.Info("scene imported",
		zap.String("path", path),
		zap.String("format", sc.Format),
		zap.Int("meshes", meshes),
		zap.Int("vertices", vertices),
		zap.Int("triangles", tris),
		zap.Int("materials", len(model.Materials)),
		zap.Float32("size", bounds.Size),
	)
	return model, nil
}

func (im *Importer) materials(src []sceneio.Material, dir string) []*Material {
	out := make([]*Material, len(src))
	for i := range src {
		sm := &src[i]
		mat := &Material{Name: sm.Name, Color: DefaultColor}
		if sm.Diffuse != nil {
			mat.Color = mgl32.Vec3(*sm.Diffuse)
		}
		if sm.HasTexture() {
			tex, err := im.loadTexture(sm, dir)
			if err != nil {
				logger.Warn("texture unavailable, using flat color",
					zap.String("material", sm.Name),
					zap.Error(err),
				)
			} else {
				mat.Texture = tex
			}
		}
		out[i] = mat
	}
	return out
}

func (im *Importer) loadTexture(sm *sceneio.Material, dir string) (*texture.Texture, error) {
	if len(sm.TextureData) > 0 {
		name := sm.Texture
		if name == "" {
			name = sm.Name + " (embedded)"
		}
		return im.textures.LoadBytes(sm.TextureData, name)
	}
	return im.textures.Load(ResolveTexturePath(dir, sm.Texture, im.opts.Charset))
}

// ResolveTexturePath turns a texture reference from a scene file into a
// file path. Relative references are taken from the scene's directory.
func ResolveTexturePath(dir, ref string, cs encoding.Charset) string {
	ref = encoding.NormalizeRef(ref, cs)
	p := filepath.FromSlash(ref)
	if filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return p
	}
	return filepath.Join(dir, p)
}

// upload builds the interleaved vertex buffer of one mesh, translated by
// -center, and its triangle index buffer.
func (im *Importer) upload(src *sceneio.Mesh, center mgl32.Vec3, mats []*Material) (Mesh, error) {
	hasUV := src.HasUV()
	data := gpu.MeshData{HasUV: hasUV, Primitive: gpu.Triangles}
	data.Vertices = make([]float32, 0, len(src.Positions)*data.Stride())
	for i, p := range src.Positions {
		data.Vertices = append(data.Vertices, p[0]-center[0], p[1]-center[1], p[2]-center[2])
		if hasUV {
			data.Vertices = append(data.Vertices, src.UVs[i][0], src.UVs[i][1])
		}
	}
	data.Indices = make([]uint32, 0, src.TriangleCount()*3)
	for _, f := range src.Faces {
		if len(f) == 3 {
			data.Indices = append(data.Indices, f...)
		}
	}

	h, err := im.res.CreateMesh(data)
	if err != nil {
		return Mesh{}, err
	}

	mesh := Mesh{
		Name:          src.Name,
		Handle:        h,
		VertexCount:   data.VertexCount(),
		IndexCount:    len(data.Indices),
		HasUV:         hasUV,
		MaterialIndex: MaterialIndex(src.Material),
	}
	if mesh.MaterialIndex.Valid(len(mats)) {
		mesh.Material = mats[mesh.MaterialIndex]
	} else {
		if mesh.MaterialIndex != NoMaterial {
			logger.Debug("mesh material out of range",
				zap.String("mesh", src.Name),
				zap.Int("index", src.Material),
				zap.Int("materials", len(mats)),
			)
		}
		mesh.MaterialIndex = NoMaterial
	}
	return mesh, nil
}
