package texture

import (
	"errors"
	"fmt"
	"image"
)

// TGA image types supported by DecodeTGA.
const (
	tgaTypeUncompressed = 2
	tgaTypeRLE          = 10

	tgaHeaderSize = 18
)

// ErrTGATruncated is returned when the pixel data ends early.
var ErrTGATruncated = errors.New("tga: data truncated")

// DecodeTGA decodes an uncompressed (type 2) or RLE (type 10) true-color TGA
// with 24 or 32 bits per pixel. The result is top row first.
func DecodeTGA(data []byte) (*image.NRGBA, error) {
	if len(data) < tgaHeaderSize {
		return nil, ErrTGATruncated
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	topToBottom := data[17]&0x20 != 0

	if colorMapType != 0 {
		return nil, fmt.Errorf("tga: color-mapped images not supported")
	}
	if imageType != tgaTypeUncompressed && imageType != tgaTypeRLE {
		return nil, fmt.Errorf("tga: unsupported image type %d", imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("tga: unsupported bit depth %d", bpp)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("tga: zero size %dx%d", width, height)
	}

	offset := tgaHeaderSize + idLength
	if offset > len(data) {
		return nil, ErrTGATruncated
	}

	r := &tgaReader{
		img:         image.NewNRGBA(image.Rect(0, 0, width, height)),
		src:         data[offset:],
		bpp:         bpp / 8,
		width:       width,
		height:      height,
		topToBottom: topToBottom,
	}

	var err error
	if imageType == tgaTypeUncompressed {
		err = r.readRaw(width * height)
	} else {
		err = r.readRLE()
	}
	if err != nil {
		return nil, err
	}
	return r.img, nil
}

type tgaReader struct {
	img         *image.NRGBA
	src         []byte
	pos         int
	bpp         int
	width       int
	height      int
	topToBottom bool
	pixel       int
}

// next reads one BGR(A) pixel from the source.
func (r *tgaReader) next() ([4]byte, error) {
	if r.pos+r.bpp > len(r.src) {
		return [4]byte{}, ErrTGATruncated
	}
	p := r.src[r.pos:]
	c := [4]byte{p[2], p[1], p[0], 255}
	if r.bpp == 4 {
		c[3] = p[3]
	}
	r.pos += r.bpp
	return c, nil
}

// put writes c at the current pixel, honoring the row order bit.
func (r *tgaReader) put(c [4]byte) {
	x := r.pixel % r.width
	y := r.pixel / r.width
	if !r.topToBottom {
		y = r.height - 1 - y
	}
	copy(r.img.Pix[r.img.PixOffset(x, y):], c[:])
	r.pixel++
}

func (r *tgaReader) readRaw(n int) error {
	for i := 0; i < n; i++ {
		c, err := r.next()
		if err != nil {
			return err
		}
		r.put(c)
	}
	return nil
}

func (r *tgaReader) readRLE() error {
	total := r.width * r.height
	for r.pixel < total {
		if r.pos >= len(r.src) {
			return ErrTGATruncated
		}
		packet := r.src[r.pos]
		r.pos++
		count := min(int(packet&0x7F)+1, total-r.pixel)

		if packet&0x80 == 0 {
			if err := r.readRaw(count); err != nil {
				return err
			}
			continue
		}

		c, err := r.next()
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			r.put(c)
		}
	}
	return nil
}
