package texture

import (
	"errors"
	"image/color"
	"testing"
)

func tgaHeader(imageType, width, height, bpp int, descriptor byte) []byte {
	h := make([]byte, tgaHeaderSize)
	h[2] = byte(imageType)
	h[12], h[13] = byte(width), byte(width>>8)
	h[14], h[15] = byte(height), byte(height>>8)
	h[16] = byte(bpp)
	h[17] = descriptor
	return h
}

func TestDecodeTGAUncompressed(t *testing.T) {
	// 2x2, 24 bit, bottom-up: first row in the file is the bottom row
	data := tgaHeader(TGATypeUncompressed, 2, 2, 24, 0)
	data = append(data,
		255, 0, 0, 0, 255, 0, // blue, green
		0, 0, 255, 255, 255, 255, // red, white
	)

	img, err := DecodeTGA(data)
	if err != nil {
		t.Fatalf("DecodeTGA: %v", err)
	}

	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{0, 1, color.RGBA{B: 255, A: 255}},
		{1, 1, color.RGBA{G: 255, A: 255}},
		{0, 0, color.RGBA{R: 255, A: 255}},
		{1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255}},
	}
	for _, tt := range tests {
		if got := img.At(tt.x, tt.y); got != tt.want {
			t.Errorf("At(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestDecodeTGARLE(t *testing.T) {
	// 3x1, 32 bit, top-down: a run of two red pixels then one raw green
	data := tgaHeader(TGATypeRLE, 3, 1, 32, 0x20)
	data = append(data,
		0x81, 0, 0, 255, 128,
		0x00, 0, 255, 0, 255,
	)

	img, err := DecodeTGA(data)
	if err != nil {
		t.Fatalf("DecodeTGA: %v", err)
	}
	want := []color.RGBA{
		{R: 255, A: 128},
		{R: 255, A: 128},
		{G: 255, A: 255},
	}
	for x, w := range want {
		if got := img.At(x, 0); got != w {
			t.Errorf("At(%d,0) = %v, want %v", x, got, w)
		}
	}
}

func TestDecodeTGAErrors(t *testing.T) {
	colorMapped := tgaHeader(TGATypeUncompressed, 1, 1, 24, 0)
	colorMapped[1] = 1

	tests := []struct {
		name        string
		data        []byte
		unsupported bool
	}{
		{"short header", []byte{0, 0, 2}, false},
		{"color mapped", colorMapped, true},
		{"grayscale", tgaHeader(3, 1, 1, 8, 0), true},
		{"16 bit", tgaHeader(TGATypeUncompressed, 1, 1, 16, 0), true},
		{"truncated pixels", append(tgaHeader(TGATypeUncompressed, 2, 2, 24, 0), 1, 2, 3), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTGA(tt.data)
			if err == nil {
				t.Fatal("DecodeTGA() succeeded")
			}
			if errors.Is(err, ErrUnsupportedTGA) != tt.unsupported {
				t.Errorf("DecodeTGA() error = %v, unsupported = %v", err, tt.unsupported)
			}
		})
	}
}
