package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q != (Quat{0, 0, 0, 1}) {
		t.Errorf("QuatIdentity() = %v, want (0,0,0,1)", q)
	}
	if q.ToMat4() != Identity() {
		t.Error("identity quaternion should produce the identity matrix")
	}
}

func TestQuatNormalize(t *testing.T) {
	n := Quat{X: 1, Y: 2, Z: 3, W: 4}.Normalize()
	if !approxEqual(n.Dot(n), 1) {
		t.Errorf("normalized length^2 = %v, want 1", n.Dot(n))
	}
	if got := (Quat{}).Normalize(); got != QuatIdentity() {
		t.Errorf("zero quaternion normalized = %v, want identity", got)
	}
}

func TestQuatFromAxisAngle(t *testing.T) {
	q := QuatFromYAngle(math.Pi / 2)
	if !approxEqual(q.W, float32(math.Cos(math.Pi/4))) || !approxEqual(q.Y, float32(math.Sin(math.Pi/4))) {
		t.Errorf("QuatFromYAngle(pi/2) = %v", q)
	}
	if !approxEqual(q.Angle(), math.Pi/2) {
		t.Errorf("Angle() = %v, want pi/2", q.Angle())
	}
}

func TestQuatInterpolationEndpoints(t *testing.T) {
	a := QuatFromXAngle(0.4)
	b := QuatFromYAngle(-1.2).Neg()

	tests := []struct {
		name string
		fn   func(Quat, Quat, float32) Quat
	}{
		{"slerp", Quat.Slerp},
		{"nlerp", Quat.Nlerp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(a, b, 0); got != a {
				t.Errorf("t=0: got %v, want %v", got, a)
			}
			if got := tt.fn(a, b, 1); got != b {
				t.Errorf("t=1: got %v, want %v", got, b)
			}
		})
	}
}

func TestQuatSlerpHalfway(t *testing.T) {
	q := QuatIdentity().Slerp(QuatFromYAngle(math.Pi/2), 0.5)
	want := QuatFromYAngle(math.Pi / 4)
	if !approxEqual(Abs(q.Dot(want)), 1) {
		t.Errorf("Slerp(0.5) = %v, want %v", q, want)
	}
}

func TestQuatNlerpShortestArc(t *testing.T) {
	a := QuatFromYAngle(0.2)
	b := QuatFromYAngle(0.4).Neg()
	got := a.Nlerp(b, 0.5)
	if !approxEqual(Abs(got.Dot(QuatFromYAngle(0.3))), 1) {
		t.Errorf("Nlerp across hemispheres = %v, want ~0.3 rad about Y", got)
	}
}

func TestQuatMulOrder(t *testing.T) {
	// x rotation applied after y rotation
	q := QuatFromXAngle(math.Pi / 2).Mul(QuatFromYAngle(math.Pi / 2))
	p := q.ToMat4().TransformPoint(Vec3{1, 0, 0})
	// Y(90) sends +X to -Z, then X(90) sends -Z to +Y
	if !approxEqual(p.X, 0) || !approxEqual(p.Y, 1) || !approxEqual(p.Z, 0) {
		t.Errorf("rotated point = %v, want (0,1,0)", p)
	}
}
