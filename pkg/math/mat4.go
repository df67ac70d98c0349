package math

import "math"

// Mat4 is a 4x4 matrix in column-major order, element (row r, column c)
// at index c*4+r:
//
//	[m0 m4 m8  m12]
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
type Mat4 [16]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Perspective returns an OpenGL perspective projection. fovY is in
// radians.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := float32(1 / math.Tan(float64(fovY)/2))
	nf := 1 / (near - far)

	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, -1,
		0, 0, 2 * far * near * nf, 0,
	}
}

// LookAt returns a view matrix looking from eye towards center.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)

	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

// Ptr returns a pointer to the first element for GL uniform uploads.
func (m *Mat4) Ptr() *float32 {
	return &m[0]
}

// Translate returns a translation matrix.
func Translate(v Vec3) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = v.X, v.Y, v.Z
	return m
}

// Scale returns a scale matrix.
func Scale(v Vec3) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = v.X, v.Y, v.Z
	return m
}

// Compose builds translation * rotation * scale without the two
// intermediate products.
func Compose(t Vec3, r Quat, s Vec3) Mat4 {
	m := r.ToMat4()
	for row := 0; row < 3; row++ {
		m[0+row] *= s.X
		m[4+row] *= s.Y
		m[8+row] *= s.Z
	}
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float32 {
	return m[c*4+r]
}

// Mul returns m * other.
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[c*4+r] = m[r]*other[c*4] +
				m[4+r]*other[c*4+1] +
				m[8+r]*other[c*4+2] +
				m[12+r]*other[c*4+3]
		}
	}
	return out
}

// Transpose swaps rows and columns.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[r*4+c] = m[c*4+r]
		}
	}
	return out
}

// Translation returns the translation column.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// TransformPoint transforms p as a point (w = 1).
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	v := m.MulVec4(Vec4FromVec3(p, 1))
	if v[3] != 0 && v[3] != 1 {
		return Vec3{v[0] / v[3], v[1] / v[3], v[2] / v[3]}
	}
	return v.XYZ()
}

// MulVec4 returns m * v.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	var out Vec4
	for r := 0; r < 4; r++ {
		out[r] = m[r]*v[0] + m[4+r]*v[1] + m[8+r]*v[2] + m[12+r]*v[3]
	}
	return out
}

// InverseAffine inverts a matrix whose bottom row is (0, 0, 0, 1), such as
// any Compose result. A singular linear part yields identity.
func (m Mat4) InverseAffine() Mat4 {
	a, b, c := m[0], m[4], m[8]
	d, e, f := m[1], m[5], m[9]
	g, h, i := m[2], m[6], m[10]

	co00 := e*i - f*h
	co01 := -(d*i - f*g)
	co02 := d*h - e*g

	det := a*co00 + b*co01 + c*co02
	if det == 0 {
		return Identity()
	}
	inv := 1 / det

	var out Mat4
	// adjugate is the transposed cofactor matrix
	out[0] = co00 * inv
	out[1] = co01 * inv
	out[2] = co02 * inv
	out[4] = -(b*i - c*h) * inv
	out[5] = (a*i - c*g) * inv
	out[6] = -(a*h - b*g) * inv
	out[8] = (b*f - c*e) * inv
	out[9] = -(a*f - c*d) * inv
	out[10] = (a*e - b*d) * inv

	t := m.Translation()
	out[12] = -(out[0]*t.X + out[4]*t.Y + out[8]*t.Z)
	out[13] = -(out[1]*t.X + out[5]*t.Y + out[9]*t.Z)
	out[14] = -(out[2]*t.X + out[6]*t.Y + out[10]*t.Z)
	out[15] = 1
	return out
}
