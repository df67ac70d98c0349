package animation

import (
	"errors"
	stdmath "math"
	"testing"

	"github.com/x448/float16"

	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

const tolerance = 1e-4

func approxEqual(a, b, eps float32) bool {
	return stdmath.Abs(float64(a-b)) <= float64(eps)
}

func vecApprox(a, b math.Vec3, eps float32) bool {
	return approxEqual(a.X, b.X, eps) && approxEqual(a.Y, b.Y, eps) && approxEqual(a.Z, b.Z, eps)
}

// quatApprox treats q and -q as the same rotation.
func quatApprox(a, b math.Quat, eps float32) bool {
	return approxEqual(math.Abs(a.Dot(b)), 1, eps)
}

func matApprox(a, b math.Mat4, eps float32) bool {
	for i := range a {
		if !approxEqual(a[i], b[i], eps) {
			return false
		}
	}
	return true
}

// fakeBackend records texture calls instead of talking to a GPU.
type fakeBackend struct {
	createErr error

	created       int
	width, height int
	updates       int
	deleted       []TextureHandle
	last          []uint16
}

func (f *fakeBackend) CreateTexture(width, height int, data []uint16) (TextureHandle, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created++
	f.width, f.height = width, height
	f.last = append(f.last[:0], data...)
	return TextureHandle(f.created), nil
}

func (f *fakeBackend) UpdateTexture(tex TextureHandle, data []uint16) error {
	if int(tex) != f.created {
		return errors.New("unknown texture")
	}
	f.updates++
	f.last = append(f.last[:0], data...)
	return nil
}

func (f *fakeBackend) DeleteTexture(tex TextureHandle) {
	f.deleted = append(f.deleted, tex)
}

func newController(t *testing.T, b *bundle.Bundle, cfg Config) (*Controller, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	c, err := New(b, backend, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, backend
}

// jointRows decodes joint i of a texel buffer into the rows of its
// skinning matrix.
func jointRows(texels []uint16, i int) [12]float32 {
	var out [12]float32
	for k := range out {
		out[k] = float16.Frombits(texels[i*halvesPerJoint+k]).Float32()
	}
	return out
}

// rowsOf returns the top three rows of m.
func rowsOf(m math.Mat4) [12]float32 {
	var out [12]float32
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = m.At(r, c)
		}
	}
	return out
}
