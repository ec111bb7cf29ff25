package scene

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/engine/gpu/gputest"
	"github.com/Faultbox/meshview/internal/sceneio"
	"github.com/Faultbox/meshview/pkg/encoding"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// offsetOBJ is a two-triangle mesh far from the origin.
const offsetOBJ = `
v 10 10 10
v 12 10 10
v 12 14 10
v 10 14 16
f 1 2 3
f 1 3 4
`

const triangleOBJ = `
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`

func newImporter(dev *gputest.Device) *Importer {
	return NewImporter(dev, DefaultOptions())
}

func TestComputeBounds(t *testing.T) {
	t.Run("single point", func(t *testing.T) {
		b, err := ComputeBounds([]sceneio.Mesh{{Positions: [][3]float32{{3, -2, 7}}}})
		require.NoError(t, err)
		assert.Equal(t, mgl32.Vec3{3, -2, 7}, b.Center)
		assert.Zero(t, b.Size)
	})

	t.Run("box", func(t *testing.T) {
		b, err := ComputeBounds([]sceneio.Mesh{
			{Positions: [][3]float32{{-1, 0, 0}, {1, 2, 0}}},
			{Positions: [][3]float32{{0, 0, -3}}},
		})
		require.NoError(t, err)
		assert.Equal(t, mgl32.Vec3{-1, 0, -3}, b.Min)
		assert.Equal(t, mgl32.Vec3{1, 2, 0}, b.Max)
		assert.Equal(t, mgl32.Vec3{0, 1, -1.5}, b.Center)
		assert.Equal(t, float32(3), b.Size)

		local := b.Local()
		assert.Equal(t, mgl32.Vec3{-1, -1, -1.5}, local.Min)
		assert.Equal(t, mgl32.Vec3{}, local.Center)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ComputeBounds([]sceneio.Mesh{{Name: "nothing"}})
		assert.ErrorIs(t, err, ErrEmptyScene)
	})

	t.Run("not finite", func(t *testing.T) {
		nan := math32.NaN()
		for _, p := range [][3]float32{{nan, 0, 0}, {0, math32.Inf(1), 0}, {0, 0, math32.Inf(-1)}} {
			_, err := ComputeBounds([]sceneio.Mesh{{Positions: [][3]float32{{0, 0, 0}, p}}})
			assert.ErrorIs(t, err, ErrParseFailed, "%v", p)
		}
	})

	t.Run("extent overflows", func(t *testing.T) {
		_, err := ComputeBounds([]sceneio.Mesh{{Positions: [][3]float32{{-3e38, 0, 0}, {3e38, 0, 0}}}})
		assert.ErrorIs(t, err, ErrParseFailed)
	})
}

func TestImportRecentersVertices(t *testing.T) {
	dev := gputest.New()
	path := writeFile(t, t.TempDir(), "offset.obj", offsetOBJ)

	m, err := newImporter(dev).Import(path)
	require.NoError(t, err)

	assert.Equal(t, "offset.obj", m.Name)
	assert.Equal(t, mgl32.Vec3{11, 12, 13}, m.Bounds.Center)
	assert.Equal(t, float32(6), m.Bounds.Size)

	require.Len(t, m.Meshes, 1)
	mesh := m.Meshes[0]
	assert.Equal(t, 4, mesh.VertexCount)
	assert.Equal(t, 6, mesh.IndexCount)
	assert.False(t, mesh.HasUV)
	assert.Equal(t, NoMaterial, mesh.MaterialIndex)
	assert.Nil(t, mesh.Material)

	data := dev.Meshes[mesh.Handle]
	require.Equal(t, 3, data.Stride())

	var restored [][3]float32
	for i := 0; i < data.VertexCount(); i++ {
		v := data.Vertices[i*3 : i*3+3]
		restored = append(restored, [3]float32{v[0] + 11, v[1] + 12, v[2] + 13})
	}
	assert.ElementsMatch(t, [][3]float32{{10, 10, 10}, {12, 10, 10}, {12, 14, 10}, {10, 14, 16}}, restored)

	meshes, vertices, triangles := m.Stats()
	assert.Equal(t, []int{1, 4, 2}, []int{meshes, vertices, triangles})
}

func TestImportErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    error
	}{
		{"malformed", "bad.obj", "v 0 0 0\nf 1 2 9\n", ErrParseFailed},
		{"unsupported", "notes.txt", "hello", ErrParseFailed},
		{"no vertices", "empty.obj", "# nothing here\n", ErrEmptyScene},
		{"vertices without faces", "cloud.obj", "v 0 0 0\nv 1 1 1\n", ErrEmptyScene},
		{"points only", "points.obj", "v 0 0 0\nv 1 1 1\np 1 2\n", ErrEmptyScene},
		{"lines only", "lines.obj", "v 0 0 0\nv 1 1 1\nl 1 2\n", ErrEmptyScene},
		{"nan vertex", "nan.obj", "v 0 0 0\nv 1 0 0\nv nan 1 0\nf 1 2 3\n", ErrParseFailed},
		{"infinite vertex", "inf.obj", "v 0 0 0\nv 1 0 0\nv 0 +Inf 0\nf 1 2 3\n", ErrParseFailed},
		{"incomplete", "open.stl", "solid a\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nvertex 0 1 0\nendloop\nendfacet\n", ErrParseFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := gputest.New()
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			m, err := newImporter(dev).Import(path)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, m)
			assert.Empty(t, dev.LiveMeshes())
		})
	}

	_, err := newImporter(gputest.New()).Import(filepath.Join(t.TempDir(), "missing.obj"))
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestImportTextures(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "textures", "wood.png"))
	writeFile(t, dir, "box.mtl", `
newmtl wood
Kd 0.5 0.25 0
map_Kd textures\wood.png
newmtl broken
Kd 0 0 1
map_Kd nowhere.png
`)
	path := writeFile(t, dir, "box.obj", `
mtllib box.mtl
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
usemtl wood
f 1/1 2/2 3/3
usemtl broken
f 3 2 1
`)

	dev := gputest.New()
	m, err := newImporter(dev).Import(path)
	require.NoError(t, err, "a missing texture must not fail the import")

	require.Len(t, m.Materials, 2)
	wood, broken := m.Materials[0], m.Materials[1]
	assert.True(t, wood.Textured())
	assert.Equal(t, 2, wood.Texture.Width)
	assert.Equal(t, mgl32.Vec3{0.5, 0.25, 0}, wood.Color)
	assert.False(t, broken.Textured(), "decode failure degrades to flat color")
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, broken.Color)

	require.Len(t, m.Meshes, 2)
	assert.True(t, m.Meshes[0].HasUV)
	assert.Same(t, wood, m.Meshes[0].Material)
	assert.Equal(t, 5, dev.Meshes[m.Meshes[0].Handle].Stride())
	assert.Same(t, broken, m.Meshes[1].Material)
	assert.False(t, m.Meshes[1].HasUV)

	m.Release(dev)
	assert.Empty(t, dev.LiveMeshes())
	assert.Empty(t, dev.LiveTextures())
	m.Release(dev)
	assert.True(t, m.Released())
}

func TestImportTextureUploadFailureFallsBack(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"))
	writeFile(t, dir, "a.mtl", "newmtl a\nmap_Kd a.png\n")
	path := writeFile(t, dir, "a.obj", "mtllib a.mtl\nusemtl a\n"+triangleOBJ)

	dev := gputest.New()
	dev.FailTextures = true
	m, err := newImporter(dev).Import(path)
	require.NoError(t, err)
	assert.False(t, m.Materials[0].Textured())
	assert.Equal(t, DefaultColor, m.Materials[0].Color)
}

func TestImportMeshUploadFailureReleasesEverything(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"))
	writeFile(t, dir, "a.mtl", "newmtl a\nmap_Kd a.png\n")
	path := writeFile(t, dir, "two.obj", `
mtllib a.mtl
v 0 0 0
v 1 0 0
v 0 1 0
o first
usemtl a
f 1 2 3
o second
f 3 2 1
`)

	dev := gputest.New()
	dev.FailMeshAfter = 1
	m, err := newImporter(dev).Import(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, gputest.ErrInjected)
	assert.Nil(t, m)
	assert.Empty(t, dev.LiveMeshes())
	assert.Empty(t, dev.LiveTextures())
}

func TestUploadValidatesMaterialIndex(t *testing.T) {
	dev := gputest.New()
	im := newImporter(dev)
	mats := []*Material{{Name: "only", Color: DefaultColor}}
	src := &sceneio.Mesh{
		Name:      "stray",
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:     [][]uint32{{0, 1, 2}, {0, 1}},
		Material:  5,
	}

	mesh, err := im.upload(src, mgl32.Vec3{}, mats)
	require.NoError(t, err)
	assert.Equal(t, NoMaterial, mesh.MaterialIndex)
	assert.Nil(t, mesh.Material)
	assert.Equal(t, []uint32{0, 1, 2}, dev.Meshes[mesh.Handle].Indices, "only triangles are uploaded")

	src.Material = 0
	mesh, err = im.upload(src, mgl32.Vec3{}, mats)
	require.NoError(t, err)
	assert.Equal(t, MaterialIndex(0), mesh.MaterialIndex)
	assert.Same(t, mats[0], mesh.Material)
}

func TestMaterialIndexValid(t *testing.T) {
	assert.False(t, NoMaterial.Valid(3))
	assert.True(t, MaterialIndex(0).Valid(1))
	assert.False(t, MaterialIndex(1).Valid(1))
}

func TestResolveTexturePath(t *testing.T) {
	dir := filepath.FromSlash("/scenes/car")
	assert.Equal(t, filepath.Join(dir, "tex", "body.png"), ResolveTexturePath(dir, `tex\body.png`, encoding.Auto))
	assert.Equal(t, filepath.Join(dir, "wheel.png"), ResolveTexturePath(dir, "wheel.png\x00junk", encoding.Auto))

	abs := filepath.Join(t.TempDir(), "abs.png")
	assert.Equal(t, abs, ResolveTexturePath(dir, abs, encoding.Auto))
}

func TestStageReplacesModel(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.obj", triangleOBJ)
	b := writeFile(t, dir, "b.obj", offsetOBJ)
	empty := writeFile(t, dir, "empty.obj", "v 0 0 0\n")

	dev := gputest.New()
	stage := NewStage(newImporter(dev), dev)
	assert.Nil(t, stage.Current())

	ma, err := stage.Load(a)
	require.NoError(t, err)
	assert.Same(t, ma, stage.Current())
	aHandles := dev.LiveMeshes()
	require.Len(t, aHandles, 1)

	_, err = stage.Load(empty)
	assert.ErrorIs(t, err, ErrEmptyScene)
	assert.Same(t, ma, stage.Current(), "failed import keeps the previous model")
	assert.Equal(t, aHandles, dev.LiveMeshes())
	assert.False(t, ma.Released())

	mb, err := stage.Load(b)
	require.NoError(t, err)
	assert.Same(t, mb, stage.Current())
	assert.True(t, ma.Released())

	live := dev.LiveMeshes()
	require.Len(t, live, 1)
	assert.Equal(t, mb.Meshes[0].Handle, live[0])
	assert.NotContains(t, live, aHandles[0])

	stage.Close()
	assert.Nil(t, stage.Current())
	assert.Empty(t, dev.LiveMeshes())
}

// countingLoader records import order against a device.
type countingLoader struct {
	inner *Importer
	dev   *gputest.Device
	live  []int
}

func (l *countingLoader) Import(path string) (*Model, error) {
	l.live = append(l.live, len(l.dev.LiveMeshes()))
	return l.inner.Import(path)
}

func TestStageImportsBeforeReleasing(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.obj", triangleOBJ)

	dev := gputest.New()
	loader := &countingLoader{inner: newImporter(dev), dev: dev}
	stage := NewStage(loader, dev)

	_, err := stage.Load(a)
	require.NoError(t, err)
	_, err = stage.Load(a)
	require.NoError(t, err)

	// The old mesh was still live while the new one was imported.
	assert.Equal(t, []int{0, 1}, loader.live)
	assert.Len(t, dev.LiveMeshes(), 1)
}

var _ gpu.Resources = (*gputest.Device)(nil)
