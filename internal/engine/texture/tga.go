// Package texture decodes bundle images and owns the OpenGL textures the
// viewer samples, including the joint matrix texture of the animation
// controller.
package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// TGA image types.
const (
	TGATypeUncompressed = 2
	TGATypeRLE          = 10
)

// ErrUnsupportedTGA is returned for TGA variants the decoder does not read.
var ErrUnsupportedTGA = errors.New("unsupported TGA")

// tgaHeaderSize is the fixed TGA header length.
const tgaHeaderSize = 18

// DecodeTGA decodes an uncompressed or RLE true-color TGA with 24 or 32
// bits per pixel.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < tgaHeaderSize {
		return nil, fmt.Errorf("TGA data too short: %d bytes", len(data))
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := int(data[2])
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	topToBottom := data[17]&0x20 != 0

	if colorMapType != 0 {
		return nil, fmt.Errorf("%w: color-mapped image", ErrUnsupportedTGA)
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("%w: image type %d", ErrUnsupportedTGA, imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("%w: %d bits per pixel", ErrUnsupportedTGA, bpp)
	}
	offset := tgaHeaderSize + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("TGA data truncated")
	}

	d := &tgaDecoder{
		img:         image.NewRGBA(image.Rect(0, 0, width, height)),
		src:         data[offset:],
		bpp:         bpp / 8,
		width:       width,
		height:      height,
		topToBottom: topToBottom,
	}
	if imageType == TGATypeUncompressed {
		if len(d.src) < width*height*d.bpp {
			return nil, fmt.Errorf("TGA pixel data truncated")
		}
		for d.pixel < width*height {
			d.put(d.next())
		}
	} else {
		d.decodeRLE()
	}
	return d.img, nil
}

type tgaDecoder struct {
	img           *image.RGBA
	src           []byte
	pos           int
	pixel         int
	bpp           int
	width, height int
	topToBottom   bool
}

// next reads one BGR(A) pixel.
func (d *tgaDecoder) next() color.RGBA {
	p := d.src[d.pos : d.pos+d.bpp]
	d.pos += d.bpp
	c := color.RGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if d.bpp == 4 {
		c.A = p[3]
	}
	return c
}

func (d *tgaDecoder) available() bool {
	return d.pos+d.bpp <= len(d.src)
}

// put stores c at the current pixel, flipping rows for bottom-up images.
func (d *tgaDecoder) put(c color.RGBA) {
	x, y := d.pixel%d.width, d.pixel/d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	d.img.SetRGBA(x, y, c)
	d.pixel++
}

// decodeRLE reads run-length packets until the image is full or the data
// ends. A short stream leaves the remaining pixels transparent.
func (d *tgaDecoder) decodeRLE() {
	total := d.width * d.height
	for d.pixel < total && d.pos < len(d.src) {
		packet := d.src[d.pos]
		d.pos++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			if !d.available() {
				return
			}
			c := d.next()
			for i := 0; i < count && d.pixel < total; i++ {
				d.put(c)
			}
			continue
		}
		for i := 0; i < count && d.pixel < total; i++ {
			if !d.available() {
				return
			}
			d.put(d.next())
		}
	}
}
