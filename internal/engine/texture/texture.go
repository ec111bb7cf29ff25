// Package texture decodes material images and binds them as GPU samplers.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/logger"
)

// DefaultMaxSize is the largest edge uploaded without downscaling.
const DefaultMaxSize = 8192

// ErrUnknownFormat is returned when no decoder accepts the data.
var ErrUnknownFormat = errors.New("unknown image format")

// Texture is an uploaded 2D image owned by a material.
type Texture struct {
	Handle gpu.TextureHandle
	Width  int
	Height int
	Source string
}

// Valid reports whether the texture still holds a GPU handle.
func (t *Texture) Valid() bool {
	return t != nil && t.Handle.Valid()
}

// Release deletes the GPU texture. Safe to call more than once.
func (t *Texture) Release(res gpu.Resources) {
	if !t.Valid() {
		return
	}
	res.DeleteTexture(t.Handle)
	t.Handle = 0
}

// Loader decodes image files and uploads them.
type Loader struct {
	res     gpu.Resources
	maxSize int
}

// NewLoader creates a loader uploading through res. Images with an edge
// longer than maxSize are downscaled; maxSize <= 0 selects DefaultMaxSize.
func NewLoader(res gpu.Resources, maxSize int) *Loader {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Loader{res: res, maxSize: maxSize}
}

// Load reads, decodes and uploads an image file.
func (l *Loader) Load(path string) (*Texture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading texture: %w", err)
	}
	return l.LoadBytes(data, path)
}

// LoadBytes decodes and uploads encoded image data. name is used for the
// format hint and for logging.
func (l *Loader) LoadBytes(data []byte, name string) (*Texture, error) {
	img, err := Decode(data, name)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}

	rgba := l.prepare(img)
	h, err := l.res.CreateTexture(rgba)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", name, err)
	}

	b := rgba.Bounds()
	logger.Debug("texture loaded",
		zap.String("source", name),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()),
	)
	return &Texture{Handle: h, Width: b.Dx(), Height: b.Dy(), Source: name}, nil
}

// prepare downscales oversized images, converts to RGBA and flips rows so
// that row 0 is the bottom of the image, matching GL texture coordinates.
func (l *Loader) prepare(img image.Image) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > l.maxSize || h > l.maxSize {
		scale := float64(l.maxSize) / float64(max(w, h))
		w = max(1, int(float64(w)*scale))
		h = max(1, int(float64(h)*scale))
		logger.Warn("texture downscaled",
			zap.Int("from_width", b.Dx()), zap.Int("from_height", b.Dy()),
			zap.Int("to_width", w), zap.Int("to_height", h),
		)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}
	FlipVertical(dst)
	return dst
}

// Decode decodes PNG, JPEG, GIF, BMP, TIFF, WebP or TGA data. TGA has no
// signature, so it is tried when the name ends in .tga or nothing else matches.
func Decode(data []byte, name string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(name), ".tga") {
		return DecodeTGA(data)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	if !errors.Is(err, image.ErrFormat) {
		return nil, err
	}
	if tga, tgaErr := DecodeTGA(data); tgaErr == nil {
		return tga, nil
	}
	return nil, ErrUnknownFormat
}

// FlipVertical reverses the row order of img in place.
func FlipVertical(img *image.RGBA) {
	b := img.Bounds()
	rowLen := b.Dx() * 4
	tmp := make([]byte, rowLen)
	for top, bottom := b.Min.Y, b.Max.Y-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := img.Pix[img.PixOffset(b.Min.X, top):][:rowLen]
		c := img.Pix[img.PixOffset(b.Min.X, bottom):][:rowLen]
		copy(tmp, a)
		copy(a, c)
		copy(c, tmp)
	}
}
