package math

import (
	"math"
	"testing"
)

func approxEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func matApprox(a, b Mat4) bool {
	for i := range a {
		if !approxEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func TestIdentity(t *testing.T) {
	m := Identity()
	for i := 0; i < 16; i++ {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		if m[i] != want {
			t.Errorf("Identity()[%d] = %v, want %v", i, m[i], want)
		}
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(Vec3{1, 2, 3})
	if got := m.Mul(Identity()); got != m {
		t.Errorf("M * I = %v, want %v", got, m)
	}
	if got := Identity().Mul(m); got != m {
		t.Errorf("I * M = %v, want %v", got, m)
	}
}

func TestTransformPoint(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		p    Vec3
		want Vec3
	}{
		{"translate", Translate(Vec3{10, 20, 30}), Vec3{1, 2, 3}, Vec3{11, 22, 33}},
		{"scale", Scale(Vec3{2, 2, 2}), Vec3{1, 2, 3}, Vec3{2, 4, 6}},
		{"rotate y 90", QuatFromYAngle(math.Pi / 2).ToMat4(), Vec3{1, 0, 0}, Vec3{0, 0, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.TransformPoint(tt.p)
			if !approxEqual(got.X, tt.want.X) || !approxEqual(got.Y, tt.want.Y) || !approxEqual(got.Z, tt.want.Z) {
				t.Errorf("TransformPoint(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestComposeMatchesProduct(t *testing.T) {
	tr := Vec3{1, -2, 3}
	rot := QuatFromAxisAngle(Vec3{0, 1, 0}, 0.7).Mul(QuatFromXAngle(0.3))
	sc := Vec3{2, 0.5, 1.5}

	want := Translate(tr).Mul(rot.ToMat4()).Mul(Scale(sc))
	got := Compose(tr, rot, sc)
	if !matApprox(got, want) {
		t.Errorf("Compose = %v, want %v", got, want)
	}
}

func TestTranspose(t *testing.T) {
	m := Translate(Vec3{4, 5, 6})
	tm := m.Transpose()
	if tm[3] != 4 || tm[7] != 5 || tm[11] != 6 {
		t.Errorf("Transpose did not move translation into the bottom row: %v", tm)
	}
	if tm.Transpose() != m {
		t.Error("Transpose twice should be the original matrix")
	}
}

func TestInverseAffine(t *testing.T) {
	m := Compose(Vec3{3, 1, -4}, QuatFromXAngle(1.1), Vec3{2, 3, 0.5})
	if got := m.Mul(m.InverseAffine()); !matApprox(got, Identity()) {
		t.Errorf("M * inverse(M) = %v, want identity", got)
	}
}

func TestInverseAffineSingular(t *testing.T) {
	m := Scale(Vec3{0, 1, 1})
	if got := m.InverseAffine(); got != Identity() {
		t.Errorf("singular inverse = %v, want identity", got)
	}
}

func TestPerspective(t *testing.T) {
	m := Perspective(float32(math.Pi/2), 2, 1, 100)

	if !approxEqual(m[0], 0.5) || !approxEqual(m[5], 1) {
		t.Errorf("Perspective scale = %f, %f, want 0.5, 1", m[0], m[5])
	}
	if m[11] != -1 {
		t.Errorf("Perspective [11] should be -1, got %f", m[11])
	}

	// the near plane maps to -1 in NDC
	clip := m.MulVec4(Vec4{0, 0, -1, 1})
	if !approxEqual(clip[2]/clip[3], -1) {
		t.Errorf("near plane depth = %f, want -1", clip[2]/clip[3])
	}
}

func TestLookAt(t *testing.T) {
	eye := Vec3{X: 0, Y: 2, Z: 5}
	m := LookAt(eye, Vec3{Y: 2}, Vec3{Y: 1})

	if p := m.TransformPoint(eye); !approxEqual(p.Length(), 0) {
		t.Errorf("eye maps to %v, want origin", p)
	}
	// the target sits straight down -Z
	p := m.TransformPoint(Vec3{Y: 2})
	if !approxEqual(p.X, 0) || !approxEqual(p.Y, 0) || !approxEqual(p.Z, -5) {
		t.Errorf("center maps to %v, want (0, 0, -5)", p)
	}
}
