package math

import "math"

// Quat is a rotation quaternion. W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// QuatFromAxisAngle builds a rotation of angle radians about a unit axis.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	s, c := math.Sincos(float64(angle) / 2)
	return Quat{
		X: axis.X * float32(s),
		Y: axis.Y * float32(s),
		Z: axis.Z * float32(s),
		W: float32(c),
	}
}

// QuatFromXAngle rotates about the X axis.
func QuatFromXAngle(angle float32) Quat {
	return QuatFromAxisAngle(Vec3{X: 1}, angle)
}

// QuatFromYAngle rotates about the Y axis.
func QuatFromYAngle(angle float32) Quat {
	return QuatFromAxisAngle(Vec3{Y: 1}, angle)
}

// Vec4 returns the components as x, y, z, w.
func (q Quat) Vec4() Vec4 {
	return Vec4{q.X, q.Y, q.Z, q.W}
}

// Neg returns -q, which encodes the same rotation.
func (q Quat) Neg() Quat {
	return Quat{-q.X, -q.Y, -q.Z, -q.W}
}

// Dot returns the 4D dot product.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Normalize returns a unit quaternion. Degenerate input yields identity.
func (q Quat) Normalize() Quat {
	lenSq := q.Dot(q)
	if lenSq < 1e-8 {
		return QuatIdentity()
	}
	inv := float32(1 / math.Sqrt(float64(lenSq)))
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}

// Mul returns q * other: other is applied first, then q.
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

func (q Quat) lerpRaw(other Quat, t float32) Quat {
	return Quat{
		X: q.X + t*(other.X-q.X),
		Y: q.Y + t*(other.Y-q.Y),
		Z: q.Z + t*(other.Z-q.Z),
		W: q.W + t*(other.W-q.W),
	}
}

// Nlerp is a normalized linear interpolation along the shorter arc.
// t <= 0 returns q and t >= 1 returns other unchanged.
func (q Quat) Nlerp(other Quat, t float32) Quat {
	switch {
	case t <= 0:
		return q
	case t >= 1:
		return other
	}
	if q.Dot(other) < 0 {
		q = q.Neg()
	}
	return q.lerpRaw(other, t).Normalize()
}

// Slerp is a spherical linear interpolation along the shorter arc.
// t <= 0 returns q and t >= 1 returns other unchanged.
func (q Quat) Slerp(other Quat, t float32) Quat {
	switch {
	case t <= 0:
		return q
	case t >= 1:
		return other
	}

	dot := q.Dot(other)
	if dot < 0 {
		other = other.Neg()
		dot = -dot
	}

	// nearly parallel, sin(theta) would underflow
	if dot > 0.9995 {
		return q.lerpRaw(other, t).Normalize()
	}

	theta := math.Acos(float64(dot))
	sinTheta := math.Sin(theta)
	s0 := float32(math.Sin((1-float64(t))*theta) / sinTheta)
	s1 := float32(math.Sin(float64(t)*theta) / sinTheta)

	return Quat{
		X: q.X*s0 + other.X*s1,
		Y: q.Y*s0 + other.Y*s1,
		Z: q.Z*s0 + other.Z*s1,
		W: q.W*s0 + other.W*s1,
	}
}

// Angle returns the rotation angle in radians, in [0, pi].
func (q Quat) Angle() float32 {
	w := float64(Abs(q.Normalize().W))
	if w > 1 {
		w = 1
	}
	return float32(2 * math.Acos(w))
}

// ToMat4 converts the rotation to a column-major matrix.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()

	xx, yy, zz := q.X*q.X, q.Y*q.Y, q.Z*q.Z
	xy, xz, yz := q.X*q.Y, q.X*q.Z, q.Y*q.Z
	wx, wy, wz := q.W*q.X, q.W*q.Y, q.W*q.Z

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + wz), 2 * (xz - wy), 0,
		2 * (xy - wz), 1 - 2*(xx+zz), 2 * (yz + wx), 0,
		2 * (xz + wy), 2 * (yz - wx), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}
