package bundle

import (
	stdmath "math"
	"testing"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

func near(a, b, tol float32) bool {
	return stdmath.Abs(float64(a-b)) <= float64(tol)
}

func TestPackNormal(t *testing.T) {
	tests := []struct {
		name string
		in   math.Vec3
	}{
		{"up", math.Vec3{Y: 1}},
		{"down", math.Vec3{Y: -1}},
		{"diagonal", math.Vec3{X: 0.577, Y: -0.577, Z: 0.577}},
		{"default", math.Vec3{X: 0.5, Y: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnpackNormal(PackNormal(tt.in))
			const tol = 2.0 / 511
			if !near(got.X, tt.in.X, tol) || !near(got.Y, tt.in.Y, tol) || !near(got.Z, tt.in.Z, tol) {
				t.Errorf("UnpackNormal(PackNormal(%v)) = %v", tt.in, got)
			}
		})
	}
}

func TestPackNormalBits(t *testing.T) {
	// +1 on x is 511, -1 on y is 0x201 in the middle field
	got := PackNormal(math.Vec3{X: 1, Y: -1})
	want := uint32(0x201<<10 | 511)
	if got != want {
		t.Errorf("PackNormal = %#x, want %#x", got, want)
	}
}

func TestPackTangentHandedness(t *testing.T) {
	tests := []struct {
		w    float32
		want float32
	}{
		{1, 1},
		{-1, -1},
		{0, 0},
	}
	for _, tt := range tests {
		p := PackTangent(math.Vec4{1, 0, 0, tt.w})
		if got := UnpackTangentW(p); got != tt.want {
			t.Errorf("w=%v: unpacked %v", tt.w, got)
		}
		if x := UnpackNormal(p).X; !near(x, 1, 1e-3) {
			t.Errorf("w=%v: x = %v, want 1", tt.w, x)
		}
	}
}

func TestPackHalf2(t *testing.T) {
	u, v := UnpackHalf2(PackHalf2(0.25, 0.75))
	if u != 0.25 || v != 0.75 {
		t.Errorf("UnpackHalf2 = (%v, %v), want (0.25, 0.75)", u, v)
	}
}

func TestPackJointsCapped(t *testing.T) {
	got := PackJoints([]uint32{1, 2, 300, 4, 9})
	want := uint32(4<<24 | 255<<16 | 2<<8 | 1)
	if got != want {
		t.Errorf("PackJoints = %#x, want %#x", got, want)
	}
}

func TestPackWeights(t *testing.T) {
	tests := []struct {
		name string
		in   [4]float32
		want uint32
	}{
		{"all zero falls back to joint 0", [4]float32{}, NoWeights},
		{"single", [4]float32{1, 0, 0, 0}, 0x000000FF},
		{"split", [4]float32{0.5, 0.5, 0, 0}, 127<<8 | 127},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PackWeights(tt.in); got != tt.want {
				t.Errorf("PackWeights(%v) = %#x, want %#x", tt.in, got, tt.want)
			}
		})
	}
	if NoWeights != 0xFF000000 {
		t.Errorf("NoWeights = %#x", NoWeights)
	}
}

func TestVertexPutDecode(t *testing.T) {
	v := Vertex{
		Position: math.Vec3{X: 1, Y: 2, Z: 3},
		Normal:   11, Tangent: 22, TexCoord: 33, Joints: 44, Weights: 55,
	}
	buf := make([]byte, SkinnedVertexSize)
	v.Put(buf, true)
	if got := DecodeVertex(buf, true); got != v {
		t.Errorf("skinned decode = %+v, want %+v", got, v)
	}

	small := make([]byte, VertexSize)
	v.Put(small, false)
	got := DecodeVertex(small, false)
	if got.Joints != 0 || got.Weights != 0 || got.TexCoord != 33 {
		t.Errorf("unskinned decode = %+v", got)
	}
}

func TestAttribMask(t *testing.T) {
	m := AttribPosition | AttribNormal | AttribWeights
	if !m.Has(AttribNormal) || m.Has(AttribTangent) {
		t.Errorf("Has() wrong for %v", m)
	}
	if got := m.String(); got != "position|normal|weights" {
		t.Errorf("String() = %q", got)
	}
	if got := AttribMask(0).String(); got != "none" {
		t.Errorf("String() = %q, want none", got)
	}
}

func TestArenaStable(t *testing.T) {
	a := NewArena[int32](4)
	first := a.Alloc(3)
	first[0], first[2] = 7, 9
	second := a.Alloc(3) // forces a new chunk
	second[0] = 1
	big := a.Alloc(10)

	if first[0] != 7 || first[2] != 9 {
		t.Errorf("first slice changed: %v", first)
	}
	if len(big) != 10 || cap(first) != 3 {
		t.Errorf("len(big)=%d cap(first)=%d", len(big), cap(first))
	}
	if a.Chunks() != 3 {
		t.Errorf("Chunks() = %d, want 3", a.Chunks())
	}
	if a.Alloc(0) != nil {
		t.Error("Alloc(0) should be nil")
	}
}
