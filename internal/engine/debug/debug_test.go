package debug

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/engine/gpu/gputest"
)

func TestBBoxWireframe(t *testing.T) {
	data := BBoxWireframe(mgl32.Vec3{1, -1, 2}, mgl32.Vec3{-1, 1, -2}, 0.5)

	assert.Equal(t, gpu.Lines, data.Primitive)
	assert.False(t, data.HasUV)
	require.Equal(t, BBoxWireframeVertexCount, data.VertexCount())
	require.Len(t, data.Indices, BBoxWireframeVertexCount)

	lo := mgl32.Vec3{data.Vertices[0], data.Vertices[1], data.Vertices[2]}
	assert.Equal(t, mgl32.Vec3{-1.5, -1.5, -2.5}, lo, "corners are ordered and padded")

	for i := 0; i < data.VertexCount(); i++ {
		for a := 0; a < 3; a++ {
			v := data.Vertices[i*3+a]
			assert.True(t, v == lo[a] || v == -lo[a], "vertex %d axis %d = %v", i, a, v)
		}
	}
}

func TestBBoxEdgesAreAxisAligned(t *testing.T) {
	v := GenerateBBoxWireframeVertices(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 2, 3})
	for e := 0; e < 12; e++ {
		a := v[e*6 : e*6+3]
		b := v[e*6+3 : e*6+6]
		differ := 0
		for i := 0; i < 3; i++ {
			if a[i] != b[i] {
				differ++
			}
		}
		assert.Equal(t, 1, differ, "edge %d", e)
	}
}

func fixedClock() func() time.Time {
	ts := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestCaptureFlipsRows(t *testing.T) {
	dir := t.TempDir()
	sc := NewScreenshotCapture(filepath.Join(dir, "shots"), "meshview")
	sc.now = fixedClock()

	dev := gputest.New()
	// Bottom row red, top row blue.
	dev.Pixels = []byte{
		255, 0, 0, 255, 255, 0, 0, 255,
		0, 0, 255, 255, 0, 0, 255, 255,
	}

	name, err := sc.Capture(dev, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shots", "meshview_2026-03-01_12-30-45.png"), name)

	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	r, _, b, _ := img.At(0, 0).RGBA()
	assert.Zero(t, r)
	assert.NotZero(t, b, "top row of the PNG is the top of the framebuffer")
}

func TestCaptureDoesNotOverwrite(t *testing.T) {
	sc := NewScreenshotCapture(t.TempDir(), "shot")
	sc.now = fixedClock()
	pixels := make([]byte, 4)

	first, err := sc.CaptureFromPixels(pixels, 1, 1)
	require.NoError(t, err)
	second, err := sc.CaptureFromPixels(pixels, 1, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, "shot_2026-03-01_12-30-45_2.png", filepath.Base(second))
}

type failingReader struct{}

func (failingReader) ReadPixels(int32, int32) ([]byte, error) { return nil, errors.New("lost context") }

func TestCaptureErrors(t *testing.T) {
	sc := NewScreenshotCapture(t.TempDir(), "shot")

	_, err := sc.Capture(failingReader{}, 4, 4)
	assert.ErrorContains(t, err, "lost context")

	_, err = sc.Capture(gputest.New(), 0, 4)
	assert.Error(t, err)

	_, err = sc.CaptureFromPixels(make([]byte, 3), 1, 1)
	assert.ErrorContains(t, err, "size mismatch")
}
