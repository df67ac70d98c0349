package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp" // BMP decoder registration

	"github.com/Faultbox/midgard-anim/internal/logger"
	"github.com/Faultbox/midgard-anim/pkg/bundle"
)

// placeholderSize is the edge length of the missing-texture checkerboard.
const placeholderSize = 8

var (
	placeholderA = color.RGBA{R: 255, B: 255, A: 255}
	placeholderB = color.RGBA{A: 255}
)

// Decode decodes image data, using the file extension of path to pick the
// TGA decoder and the registered image decoders otherwise.
func Decode(data []byte, path string) (*image.RGBA, error) {
	var img image.Image
	var err error
	if strings.EqualFold(filepath.Ext(path), ".tga") {
		img, err = DecodeTGA(data)
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return ImageToRGBA(img), nil
}

// ImageToRGBA converts img to *image.RGBA with its origin at (0, 0).
func ImageToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// Placeholder returns a magenta and black checkerboard used when an image
// cannot be loaded.
func Placeholder() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	for y := 0; y < placeholderSize; y++ {
		for x := 0; x < placeholderSize; x++ {
			c := placeholderA
			if (x/2+y/2)%2 == 1 {
				c = placeholderB
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// LoadImages decodes every image of b. Paths are resolved against root.
// An image that is missing or fails to decode is logged and replaced by
// Placeholder, so the result always has one entry per bundle image.
func LoadImages(b *bundle.Bundle, root string) []*image.RGBA {
	log := logger.Named("texture")
	out := make([]*image.RGBA, len(b.Images))
	for i, im := range b.Images {
		path := im.Path
		if root != "" && !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}

		data, err := os.ReadFile(path)
		if err == nil {
			out[i], err = Decode(data, path)
		}
		if err != nil {
			log.Warn("using placeholder texture", zap.String("path", path), zap.Error(err))
			out[i] = Placeholder()
		}
	}
	return out
}
