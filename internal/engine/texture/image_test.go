package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/Faultbox/midgard-anim/pkg/bundle"
)

func solid(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestDecodeFormats(t *testing.T) {
	want := color.RGBA{R: 10, G: 20, B: 30, A: 255}

	var pngBuf, bmpBuf bytes.Buffer
	if err := png.Encode(&pngBuf, solid(want)); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpBuf, solid(want)); err != nil {
		t.Fatal(err)
	}
	tga := append(tgaHeader(TGATypeUncompressed, 1, 1, 24, 0), 30, 20, 10)

	tests := []struct {
		path string
		data []byte
	}{
		{"skin.png", pngBuf.Bytes()},
		{"skin.bmp", bmpBuf.Bytes()},
		{"skin.TGA", tga},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			img, err := Decode(tt.data, tt.path)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got := img.RGBAAt(0, 0); got != want {
				t.Errorf("pixel = %v, want %v", got, want)
			}
		})
	}

	if _, err := Decode([]byte("not an image"), "broken.png"); err == nil {
		t.Error("Decode accepted garbage")
	}
}

func TestImageToRGBARebasesOrigin(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	src.Set(5, 5, color.NRGBA{R: 255, A: 255})

	got := ImageToRGBA(src)
	if got.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Fatalf("bounds = %v", got.Bounds())
	}
	if c := got.RGBAAt(0, 0); c != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("pixel = %v", c)
	}
}

func TestLoadImagesFallsBack(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(color.RGBA{G: 255, A: 255})); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ok.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.png"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := &bundle.Bundle{Images: []bundle.Image{
		{Path: "ok.png"},
		{Path: "missing.png"},
		{Path: "bad.png"},
		{},
	}}
	imgs := LoadImages(b, dir)
	if len(imgs) != len(b.Images) {
		t.Fatalf("got %d images, want %d", len(imgs), len(b.Images))
	}
	if c := imgs[0].RGBAAt(0, 0); c != (color.RGBA{G: 255, A: 255}) {
		t.Errorf("loaded pixel = %v", c)
	}
	placeholder := Placeholder()
	for i := 1; i < len(imgs); i++ {
		if !bytes.Equal(imgs[i].Pix, placeholder.Pix) {
			t.Errorf("image %d is not the placeholder", i)
		}
	}
}
