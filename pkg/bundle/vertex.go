package bundle

import (
	"encoding/binary"
	stdmath "math"

	"github.com/x448/float16"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

// Packed vertex sizes in bytes.
const (
	VertexSize        = 24
	SkinnedVertexSize = 32
)

// NoWeights is stored for skinned vertices without any skin weight: all of
// the weight goes to joint 0.
const NoWeights uint32 = 0xFF000000

// Vertex is one packed vertex. Joints and Weights are only stored in the
// skinned layout.
type Vertex struct {
	Position math.Vec3
	Normal   uint32 // INT_2_10_10_10_REV
	Tangent  uint32 // INT_2_10_10_10_REV, w in the top bits
	TexCoord uint32 // two halves, u low
	Joints   uint32 // four uint8 joint indices
	Weights  uint32 // four uint8 weights
}

// Put encodes v little-endian into dst, which must hold at least
// VertexSize (or SkinnedVertexSize when skinned) bytes.
func (v *Vertex) Put(dst []byte, skinned bool) {
	le := binary.LittleEndian
	le.PutUint32(dst[0:], stdmath.Float32bits(v.Position.X))
	le.PutUint32(dst[4:], stdmath.Float32bits(v.Position.Y))
	le.PutUint32(dst[8:], stdmath.Float32bits(v.Position.Z))
	le.PutUint32(dst[12:], v.Normal)
	le.PutUint32(dst[16:], v.Tangent)
	le.PutUint32(dst[20:], v.TexCoord)
	if skinned {
		le.PutUint32(dst[24:], v.Joints)
		le.PutUint32(dst[28:], v.Weights)
	}
}

// DecodeVertex reads one vertex from src.
func DecodeVertex(src []byte, skinned bool) Vertex {
	le := binary.LittleEndian
	v := Vertex{
		Position: math.Vec3{
			X: stdmath.Float32frombits(le.Uint32(src[0:])),
			Y: stdmath.Float32frombits(le.Uint32(src[4:])),
			Z: stdmath.Float32frombits(le.Uint32(src[8:])),
		},
		Normal:   le.Uint32(src[12:]),
		Tangent:  le.Uint32(src[16:]),
		TexCoord: le.Uint32(src[20:]),
	}
	if skinned {
		v.Joints = le.Uint32(src[24:])
		v.Weights = le.Uint32(src[28:])
	}
	return v
}

// Vertex returns vertex i of the combined buffer.
func (b *Bundle) Vertex(i int) Vertex {
	stride := b.VertexStride()
	return DecodeVertex(b.Vertices[i*stride:], b.Skinned())
}

func signBit(x float32) uint32 {
	if x < 0 {
		return 1
	}
	return 0
}

// pack10 stores x in [-1, 1] as a 10 bit two's complement field scaled
// by 511.
func pack10(x float32) uint32 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	s := signBit(x)
	return s<<9 | uint32(int32(x*511+float32(s<<9)))&511
}

func unpack10(bits uint32) float32 {
	v := int32(bits&1023) << 22 >> 22
	return float32(v) / 511
}

// PackNormal encodes a unit vector as INT_2_10_10_10_REV with w = 0.
func PackNormal(n math.Vec3) uint32 {
	return pack10(n.Z)<<20 | pack10(n.Y)<<10 | pack10(n.X)
}

// PackTangent encodes xyz like PackNormal and the handedness sign w in the
// top two bits.
func PackTangent(t math.Vec4) uint32 {
	w := t[3]
	ws := signBit(w)
	wbits := ws<<1 | uint32(int32(w+float32(ws<<1)))&1
	return wbits<<30 | PackNormal(t.XYZ())
}

// UnpackNormal decodes the xyz part of a packed normal or tangent.
func UnpackNormal(p uint32) math.Vec3 {
	return math.Vec3{X: unpack10(p), Y: unpack10(p >> 10), Z: unpack10(p >> 20)}
}

// UnpackTangentW decodes the handedness of a packed tangent.
func UnpackTangentW(p uint32) float32 {
	return float32(int32(p) >> 30)
}

// PackHalf2 stores two floats as IEEE halves, u in the low bits.
func PackHalf2(u, v float32) uint32 {
	return uint32(float16.Fromfloat32(v).Bits())<<16 | uint32(float16.Fromfloat32(u).Bits())
}

// UnpackHalf2 reverses PackHalf2.
func UnpackHalf2(p uint32) (u, v float32) {
	return float16.Frombits(uint16(p)).Float32(), float16.Frombits(uint16(p >> 16)).Float32()
}

// PackJoints stores up to four joint indices, 8 bits each. Indices above
// 255 are capped.
func PackJoints(joints []uint32) uint32 {
	var packed uint32
	for i, j := range joints {
		if i == 4 {
			break
		}
		if j > 255 {
			j = 255
		}
		packed |= j << (8 * i)
	}
	return packed
}

// PackWeights quantises four weights in [0, 1] to 8 bits each. A zero
// result becomes NoWeights.
func PackWeights(w [4]float32) uint32 {
	var packed uint32
	for i, x := range w {
		packed |= uint32(math.Clamp01(x)*255) << (8 * i)
	}
	if packed == 0 {
		return NoWeights
	}
	return packed
}

// UnpackWeights returns the four weights as fractions of 255.
func UnpackWeights(p uint32) [4]float32 {
	var w [4]float32
	for i := range w {
		w[i] = float32((p>>(8*i))&0xFF) / 255
	}
	return w
}
