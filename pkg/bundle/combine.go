package bundle

import (
	"encoding/binary"
	"errors"
	"fmt"
	stdmath "math"
	"slices"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

// ErrPrimitiveSpan is returned when importer data does not line up with the
// mesh table or a primitive's attribute arrays are too short.
var ErrPrimitiveSpan = errors.New("invalid primitive span")

// PrimitiveSource is one primitive as an importer delivers it, before
// packing. Positions is required; the other float streams may be nil.
// Indices, Joints and Weights are raw little-endian streams in the
// declared component types.
type PrimitiveSource struct {
	Positions []math.Vec3
	TexCoords [][2]float32
	Normals   []math.Vec3
	Tangents  []math.Vec4

	Indices   []byte
	IndexType ComponentType

	Joints      []byte
	JointType   ComponentType
	JointCount  int
	JointStride int // bytes per vertex, 0 means tightly packed

	Weights      []byte
	WeightType   ComponentType
	WeightStride int
}

var defaultNormal = math.Vec3{X: 0.5, Y: 0.5}

// Combine packs every primitive of sources into one vertex buffer and one
// 32-bit index buffer. sources[m][p] supplies b.Meshes[m].Primitives[p].
// Indices are rebased by a running vertex cursor and each primitive's
// IndexOffset records where its indices start. The vertex layout follows
// b.Skinned, so skins must be attached before calling Combine.
func Combine(b *Bundle, sources [][]PrimitiveSource) error {
	if len(sources) != len(b.Meshes) {
		return fmt.Errorf("%w: %d source meshes for %d meshes", ErrPrimitiveSpan, len(sources), len(b.Meshes))
	}

	totalVertices, totalIndices := 0, 0
	for m := range sources {
		if len(sources[m]) != len(b.Meshes[m].Primitives) {
			return fmt.Errorf("%w: mesh %d has %d sources for %d primitives",
				ErrPrimitiveSpan, m, len(sources[m]), len(b.Meshes[m].Primitives))
		}
		for p := range sources[m] {
			src := &sources[m][p]
			if err := src.check(); err != nil {
				return fmt.Errorf("mesh %d primitive %d: %w", m, p, err)
			}
			totalVertices += len(src.Positions)
			totalIndices += src.numIndices()
		}
	}

	skinned := b.Skinned()
	stride := b.VertexStride()
	b.Vertices = make([]byte, totalVertices*stride)
	b.Indices = make([]uint32, totalIndices)

	vertexCursor, indexCursor := 0, 0
	for m := range sources {
		for p := range sources[m] {
			src := &sources[m][p]
			prim := &b.Meshes[m].Primitives[p]

			n := len(src.Positions)
			dst := b.Vertices[vertexCursor*stride : (vertexCursor+n)*stride]
			for v := 0; v < n; v++ {
				vert := src.packVertex(v, skinned)
				vert.Put(dst[v*stride:], skinned)
			}

			ni := src.numIndices()
			isz := src.IndexType.Size()
			for i := 0; i < ni; i++ {
				b.Indices[indexCursor+i] = readUint(src.Indices[i*isz:], isz) + uint32(vertexCursor)
			}

			prim.Attributes = src.attributes(skinned)
			prim.IndexType = ComponentUnsignedInt
			prim.NumVertices = int32(n)
			prim.NumIndices = int32(ni)
			prim.IndexOffset = int32(indexCursor)
			prim.JointType = src.JointType
			prim.JointCount = int16(src.JointCount)
			prim.JointStride = int16(src.JointStride)

			vertexCursor += n
			indexCursor += ni
		}
	}

	for s := range b.Skins {
		b.Skins[s].InverseBindMatrices = slices.Clone(b.Skins[s].InverseBindMatrices)
	}
	CombineAnimationBuffers(b)
	return nil
}

// CombineAnimationBuffers moves every sampler's keyframes into the bundle's
// two shared buffers and re-points the samplers at them, in clip then
// sampler order. This is the same layout the decoder produces.
func CombineAnimationBuffers(b *Bundle) {
	total := 0
	for a := range b.Animations {
		for s := range b.Animations[a].Samplers {
			total += b.Animations[a].Samplers[s].Count()
		}
	}

	times := make([]float32, total)
	values := make([]math.Vec4, total)
	cursor := 0
	for a := range b.Animations {
		for s := range b.Animations[a].Samplers {
			smp := &b.Animations[a].Samplers[s]
			n := smp.Count()
			copy(times[cursor:], smp.Times)
			copy(values[cursor:], smp.Values)
			smp.Times = times[cursor : cursor+n : cursor+n]
			smp.Values = values[cursor : cursor+n : cursor+n]
			cursor += n
		}
	}
	b.KeyTimes = times
	b.KeyValues = values
}

func (s *PrimitiveSource) numIndices() int {
	size := s.IndexType.Size()
	if size == 0 {
		return 0
	}
	return len(s.Indices) / size
}

func (s *PrimitiveSource) check() error {
	n := len(s.Positions)
	if n == 0 {
		return fmt.Errorf("%w: no positions", ErrPrimitiveSpan)
	}
	if len(s.Indices) > 0 {
		switch s.IndexType.Size() {
		case 1, 2, 4:
		default:
			return fmt.Errorf("%w: unsupported index type %d", ErrPrimitiveSpan, s.IndexType)
		}
	}
	if s.TexCoords != nil && len(s.TexCoords) < n {
		return fmt.Errorf("%w: %d texcoords for %d vertices", ErrPrimitiveSpan, len(s.TexCoords), n)
	}
	if s.Normals != nil && len(s.Normals) < n {
		return fmt.Errorf("%w: %d normals for %d vertices", ErrPrimitiveSpan, len(s.Normals), n)
	}
	if s.Tangents != nil && len(s.Tangents) < n {
		return fmt.Errorf("%w: %d tangents for %d vertices", ErrPrimitiveSpan, len(s.Tangents), n)
	}
	if s.Joints != nil && s.JointType.Size() == 0 {
		return fmt.Errorf("%w: unsupported joint type %d", ErrPrimitiveSpan, s.JointType)
	}
	if s.Weights != nil && s.WeightType.Size() == 0 {
		return fmt.Errorf("%w: unsupported weight type %d", ErrPrimitiveSpan, s.WeightType)
	}
	if s.Joints != nil && len(s.Joints) < n*s.jointStride() {
		return fmt.Errorf("%w: joint stream too short", ErrPrimitiveSpan)
	}
	if s.Weights != nil && len(s.Weights) < (n-1)*s.weightStride()+s.weightSpan() {
		return fmt.Errorf("%w: weight stream too short", ErrPrimitiveSpan)
	}
	return nil
}

func (s *PrimitiveSource) attributes(skinned bool) AttribMask {
	mask := AttribPosition
	if s.TexCoords != nil {
		mask |= AttribTexCoord
	}
	if s.Normals != nil {
		mask |= AttribNormal
	}
	if s.Tangents != nil {
		mask |= AttribTangent
	}
	if skinned && s.Joints != nil {
		mask |= AttribJoints
	}
	if skinned && s.Weights != nil {
		mask |= AttribWeights
	}
	return mask
}

func (s *PrimitiveSource) jointStride() int {
	return max(s.JointStride, s.JointType.Size()*s.JointCount)
}

// weightSpan is the number of bytes read per vertex: four floats, or
// JointCount integers.
func (s *PrimitiveSource) weightSpan() int {
	if s.WeightType == ComponentFloat {
		return 16
	}
	return s.WeightType.Size() * min(s.JointCount, 4)
}

func (s *PrimitiveSource) weightStride() int {
	return max(s.WeightStride, s.weightSpan())
}

func (s *PrimitiveSource) packVertex(v int, skinned bool) Vertex {
	normal := defaultNormal
	if s.Normals != nil {
		normal = s.Normals[v]
	}
	var tangent math.Vec4
	if s.Tangents != nil {
		tangent = s.Tangents[v]
	}
	var uv [2]float32
	if s.TexCoords != nil {
		uv = s.TexCoords[v]
	}

	vert := Vertex{
		Position: s.Positions[v],
		Normal:   PackNormal(normal),
		Tangent:  PackTangent(tangent),
		TexCoord: PackHalf2(uv[0], uv[1]),
	}
	if !skinned {
		return vert
	}

	if s.Joints != nil {
		jsz := s.JointType.Size()
		base := v * s.jointStride()
		joints := make([]uint32, 0, 4)
		for k := 0; k < s.JointCount && k < 4; k++ {
			joints = append(joints, readUint(s.Joints[base+k*jsz:], jsz))
		}
		vert.Joints = PackJoints(joints)
	}

	var weights [4]float32
	if s.Weights != nil {
		base := v * s.weightStride()
		if s.WeightType == ComponentFloat {
			for k := range weights {
				weights[k] = stdmath.Float32frombits(binary.LittleEndian.Uint32(s.Weights[base+4*k:]))
			}
		} else {
			wsz := s.WeightType.Size()
			maxVal := float32(uint64(1)<<(8*wsz) - 1)
			for k := 0; k < s.JointCount && k < 4; k++ {
				weights[k] = float32(readUint(s.Weights[base+k*wsz:], wsz)) / maxVal
			}
		}
	}
	vert.Weights = PackWeights(weights)
	return vert
}

func readUint(b []byte, size int) uint32 {
	switch size {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(binary.LittleEndian.Uint16(b))
	default:
		return binary.LittleEndian.Uint32(b)
	}
}
