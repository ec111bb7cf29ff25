package sceneio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const cubeMTL = `
# two materials
newmtl red
Kd 1 0 0
newmtl brick
Kd 0.5 0.5 0.5
map_Kd -s 1 1 1 textures\brick wall.png
`

const cubeOBJ = `
mtllib cube.mtl
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
v 0 0 2
vt 0 0
vt 1 0
vt 1 1
vt 0 1
o front
usemtl brick
f 1/1 2/2 3/3 4/4
o spike
usemtl red
f 1 2 5
f -5 -1 -2
usemtl missing
f 3 4 5
`

func TestParseOBJ(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cube.mtl", cubeMTL)
	path := writeFile(t, dir, "cube.obj", cubeOBJ)

	sc, err := Parse(path, DefaultFlags)
	require.NoError(t, err)
	assert.Equal(t, "obj", sc.Format)
	assert.True(t, sc.HasRoot)
	assert.False(t, sc.Incomplete)

	require.Len(t, sc.Materials, 3)
	assert.Equal(t, "red", sc.Materials[0].Name)
	assert.Equal(t, &[3]float32{1, 0, 0}, sc.Materials[0].Diffuse)
	assert.Equal(t, `textures\brick wall.png`, sc.Materials[1].Texture)
	assert.Equal(t, "missing", sc.Materials[2].Name)
	assert.Nil(t, sc.Materials[2].Diffuse)

	require.Len(t, sc.Meshes, 3)

	front := sc.Meshes[0]
	assert.Equal(t, "front", front.Name)
	assert.Equal(t, 1, front.Material)
	assert.True(t, front.HasUV())
	assert.Equal(t, 2, front.TriangleCount(), "quad is triangulated")
	assert.True(t, front.HasNormals(), "normals are generated")

	spike := sc.Meshes[1]
	assert.Equal(t, 0, spike.Material)
	assert.False(t, spike.HasUV())
	assert.Equal(t, 2, spike.TriangleCount())

	assert.Equal(t, 2, sc.Meshes[2].Material)
}

func TestParseOBJMixedUVDropsAttribute(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mixed.obj", `
v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
vt 0 0
vt 1 0
vt 0 1
f 1/1 2/2 3/3
f 2 4 3
`)
	sc, err := Parse(path, DefaultFlags)
	require.NoError(t, err)
	require.Len(t, sc.Meshes, 1)
	assert.False(t, sc.Meshes[0].HasUV())
	assert.Equal(t, NoMaterial, sc.Meshes[0].Material)
}

func TestParseOBJMissingLibraryIsWarning(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.obj", "mtllib nope.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n")
	sc, err := Parse(path, DefaultFlags)
	require.NoError(t, err)
	assert.NotEmpty(t, sc.Warnings)
	assert.Len(t, sc.Meshes, 1)
}

func TestParseOBJErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"index out of range", "v 0 0 0\nf 1 2 3\n"},
		{"zero index", "v 0 0 0\nf 0 0 0\n"},
		{"bad float", "v 0 zero 0\n"},
		{"short vertex", "v 1 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "bad.obj", tt.content)
			_, err := Parse(path, DefaultFlags)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestMapFileName(t *testing.T) {
	tests := []struct {
		fields []string
		want   string
	}{
		{[]string{"wood.png"}, "wood.png"},
		{[]string{"-bm", "0.3", "bump.png"}, "bump.png"},
		{[]string{"-o", "0.5", "tex", "ure.png"}, "tex ure.png"},
		{[]string{"-clamp", "on", "-mm", "0", "1", "a b.tga"}, "a b.tga"},
	}
	for _, tt := range tests {
		got, err := mapFileName(tt.fields)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := mapFileName([]string{"-bm", "1"})
	assert.Error(t, err)
}
