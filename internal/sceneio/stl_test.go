package sceneio

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binarySTL(t *testing.T, header string, tris []stlTriangle) []byte {
	t.Helper()
	var buf bytes.Buffer
	h := make([]byte, stlHeaderSize)
	copy(h, header)
	buf.Write(h)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(tris))))
	for _, tri := range tris {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, tri))
	}
	return buf.Bytes()
}

var stlTris = []stlTriangle{
	{Normal: [3]float32{0, 0, 1}, Vertices: [3][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}},
	{Normal: [3]float32{0, 0, 1}, Vertices: [3][3]float32{{1, 0, 0}, {1, 1, 0}, {0, 1, 0}}},
}

func TestParseBinarySTL(t *testing.T) {
	// A binary file whose header starts with "solid" must still be read as binary.
	data := binarySTL(t, "solid part42", stlTris)
	path := writeFile(t, t.TempDir(), "part.bin", string(data))

	sc, err := Parse(path, DefaultFlags)
	require.NoError(t, err)
	assert.Equal(t, "stl", sc.Format)
	require.Len(t, sc.Meshes, 1)

	m := sc.Meshes[0]
	assert.Equal(t, "part42", m.Name)
	assert.Equal(t, NoMaterial, m.Material)
	assert.Len(t, m.Positions, 4, "shared corners are joined")
	assert.Equal(t, 2, m.TriangleCount())
	assert.True(t, m.HasNormals())
	assert.Empty(t, sc.Materials)
}

func TestBinarySTLTruncated(t *testing.T) {
	data := binarySTL(t, "", stlTris)
	_, err := decodeBinarySTL(data[:len(data)-10])
	assert.ErrorIs(t, err, ErrTruncatedSTL)

	_, err = decodeBinarySTL(data[:20])
	assert.ErrorIs(t, err, ErrTruncatedSTL)
}

const asciiSTL = `solid wedge
  facet normal 0 0 0
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid wedge
solid
  facet normal 0 0 -1
    outer loop
      vertex 0 0 5
      vertex 0 1 5
      vertex 1 0 5
    endloop
  endfacet
endsolid
`

func TestParseASCIISTL(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wedge.stl", asciiSTL)
	sc, err := Parse(path, DefaultFlags)
	require.NoError(t, err)
	require.Len(t, sc.Meshes, 2)
	assert.Equal(t, "wedge", sc.Meshes[0].Name)
	assert.Equal(t, "solid1", sc.Meshes[1].Name)

	// Zero facet normals are regenerated from the winding.
	require.True(t, sc.Meshes[0].HasNormals())
	assert.InDeltaSlice(t, []float32{0, 0, 1}, sc.Meshes[0].Normals[0][:], 1e-6)
	assert.Equal(t, [3]float32{0, 0, -1}, sc.Meshes[1].Normals[0])
}

func TestASCIISTLErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"facet outside solid", "facet normal 0 0 1\n"},
		{"two vertices", "solid a\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nendloop\nendfacet\nendsolid\n"},
		{"bad number", "solid a\nfacet normal 0 0 1\nouter loop\nvertex 0 x 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeASCIISTL(bytes.NewReader([]byte(tt.content)))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestASCIISTLMissingEndsolid(t *testing.T) {
	sc, err := decodeASCIISTL(bytes.NewReader([]byte("solid a\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nvertex 0 1 0\nendloop\nendfacet\n")))
	require.NoError(t, err)
	assert.True(t, sc.Incomplete)
	assert.Len(t, sc.Meshes, 1)
}
