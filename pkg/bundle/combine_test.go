package bundle_test

import (
	"errors"
	"testing"

	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/bundle/bundletest"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

func quad(n int) bundle.PrimitiveSource {
	src := bundle.PrimitiveSource{IndexType: bundle.ComponentUnsignedInt}
	for i := 0; i < n; i++ {
		src.Positions = append(src.Positions, math.Vec3{X: float32(i)})
	}
	src.Indices = bundletest.Uint32s(0, 1, 2, 2, 1, 3)
	return src
}

func TestCombineOffsetsIndices(t *testing.T) {
	b := &bundle.Bundle{Meshes: []bundle.Mesh{
		{Name: "a", Primitives: make([]bundle.Primitive, 2)},
		{Name: "b", Primitives: make([]bundle.Primitive, 1)},
	}}
	tri := bundle.PrimitiveSource{
		Positions: []math.Vec3{{}, {X: 1}, {Y: 1}},
		Indices:   bundletest.Uint16s(2, 1, 0),
		IndexType: bundle.ComponentUnsignedShort,
	}
	sources := [][]bundle.PrimitiveSource{{quad(4), tri}, {quad(4)}}

	if err := bundle.Combine(b, sources); err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if b.TotalVertices() != 11 || b.TotalIndices() != 15 {
		t.Fatalf("totals = %d vertices, %d indices", b.TotalVertices(), b.TotalIndices())
	}
	if len(b.Vertices) != 11*bundle.VertexSize {
		t.Errorf("unskinned buffer is %d bytes", len(b.Vertices))
	}

	want := []uint32{0, 1, 2, 2, 1, 3, 6, 5, 4, 7, 8, 9, 9, 8, 10}
	for i, idx := range b.Indices {
		if idx != want[i] {
			t.Errorf("Indices[%d] = %d, want %d", i, idx, want[i])
		}
	}

	offsets := []int32{0, 6, 9}
	prims := []*bundle.Primitive{&b.Meshes[0].Primitives[0], &b.Meshes[0].Primitives[1], &b.Meshes[1].Primitives[0]}
	for i, p := range prims {
		if p.IndexOffset != offsets[i] {
			t.Errorf("primitive %d IndexOffset = %d, want %d", i, p.IndexOffset, offsets[i])
		}
		if p.IndexType != bundle.ComponentUnsignedInt {
			t.Errorf("primitive %d IndexType = %d", i, p.IndexType)
		}
	}

	if err := b.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestCombineDefaults(t *testing.T) {
	b := &bundle.Bundle{Meshes: []bundle.Mesh{{Primitives: make([]bundle.Primitive, 1)}}}
	src := bundle.PrimitiveSource{Positions: []math.Vec3{{X: 1, Y: 2, Z: 3}}}
	if err := bundle.Combine(b, [][]bundle.PrimitiveSource{{src}}); err != nil {
		t.Fatalf("Combine: %v", err)
	}

	v := b.Vertex(0)
	if v.Position != (math.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("position = %v", v.Position)
	}
	if v.Normal != bundle.PackNormal(math.Vec3{X: 0.5, Y: 0.5}) {
		t.Errorf("missing normal packed as %#x", v.Normal)
	}
	if v.Tangent != 0 || v.TexCoord != 0 {
		t.Errorf("missing tangent/uv packed as %#x/%#x", v.Tangent, v.TexCoord)
	}
	if got := b.Meshes[0].Primitives[0].Attributes; got != bundle.AttribPosition {
		t.Errorf("Attributes = %v", got)
	}
}

func TestCombineSkinnedWeights(t *testing.T) {
	b := &bundle.Bundle{
		Meshes: []bundle.Mesh{{Primitives: make([]bundle.Primitive, 1)}},
		Nodes:  []bundle.Node{{Rotation: math.QuatIdentity(), Scale: math.Vec3{X: 1, Y: 1, Z: 1}}},
		Skins:  []bundle.Skin{{Skeleton: 0, Joints: []int32{0}, InverseBindMatrices: []math.Mat4{math.Identity()}}},
	}

	tests := []struct {
		name        string
		src         bundle.PrimitiveSource
		wantJoints  uint32
		wantWeights uint32
	}{
		{
			name: "float weights",
			src: bundle.PrimitiveSource{
				Positions:  []math.Vec3{{}},
				Joints:     bundletest.Uint16s(3, 2, 1, 0),
				JointType:  bundle.ComponentUnsignedShort,
				JointCount: 4,
				Weights:    bundletest.Float32s(1, 0, 0, 0),
				WeightType: bundle.ComponentFloat,
			},
			wantJoints:  0x00010203,
			wantWeights: 0x000000FF,
		},
		{
			name: "ushort weights normalised",
			src: bundle.PrimitiveSource{
				Positions:  []math.Vec3{{}},
				Joints:     []byte{5, 6, 0, 0},
				JointType:  bundle.ComponentUnsignedByte,
				JointCount: 4,
				Weights:    bundletest.Uint16s(65535, 0, 0, 0),
				WeightType: bundle.ComponentUnsignedShort,
			},
			wantJoints:  0x0605,
			wantWeights: 0xFF,
		},
		{
			name: "zero weights fall back",
			src: bundle.PrimitiveSource{
				Positions:  []math.Vec3{{}},
				Joints:     []byte{1, 0, 0, 0},
				JointType:  bundle.ComponentUnsignedByte,
				JointCount: 4,
				Weights:    []byte{0, 0, 0, 0},
				WeightType: bundle.ComponentUnsignedByte,
			},
			wantJoints:  1,
			wantWeights: bundle.NoWeights,
		},
		{
			name:        "no skin data",
			src:         bundle.PrimitiveSource{Positions: []math.Vec3{{}}},
			wantWeights: 0xFF000000,
		},
		{
			name: "strided joints",
			src: bundle.PrimitiveSource{
				Positions:   []math.Vec3{{}, {}},
				Joints:      []byte{1, 2, 0xAA, 0xAA, 3, 4, 0xAA, 0xAA},
				JointType:   bundle.ComponentUnsignedByte,
				JointCount:  2,
				JointStride: 4,
			},
			wantJoints:  0x0201,
			wantWeights: bundle.NoWeights,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := bundle.Combine(b, [][]bundle.PrimitiveSource{{tt.src}}); err != nil {
				t.Fatalf("Combine: %v", err)
			}
			if len(b.Vertices) != len(tt.src.Positions)*bundle.SkinnedVertexSize {
				t.Fatalf("skinned buffer is %d bytes", len(b.Vertices))
			}
			v := b.Vertex(0)
			if v.Joints != tt.wantJoints {
				t.Errorf("joints = %#x, want %#x", v.Joints, tt.wantJoints)
			}
			if v.Weights != tt.wantWeights {
				t.Errorf("weights = %#x, want %#x", v.Weights, tt.wantWeights)
			}
		})
	}
}

func TestCombineRejectsBadSpans(t *testing.T) {
	tests := []struct {
		name    string
		meshes  []bundle.Mesh
		sources [][]bundle.PrimitiveSource
	}{
		{"mesh count", []bundle.Mesh{{}}, nil},
		{"primitive count", []bundle.Mesh{{Primitives: make([]bundle.Primitive, 2)}}, [][]bundle.PrimitiveSource{{quad(4)}}},
		{"no positions", []bundle.Mesh{{Primitives: make([]bundle.Primitive, 1)}}, [][]bundle.PrimitiveSource{{{}}}},
		{"short normals", []bundle.Mesh{{Primitives: make([]bundle.Primitive, 1)}}, [][]bundle.PrimitiveSource{{{
			Positions: make([]math.Vec3, 3),
			Normals:   make([]math.Vec3, 2),
		}}}},
		{"bad index type", []bundle.Mesh{{Primitives: make([]bundle.Primitive, 1)}}, [][]bundle.PrimitiveSource{{{
			Positions: make([]math.Vec3, 3),
			Indices:   []byte{0, 0, 0},
			IndexType: bundle.ComponentFloat + 40,
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &bundle.Bundle{Meshes: tt.meshes}
			err := bundle.Combine(b, tt.sources)
			if !errors.Is(err, bundle.ErrPrimitiveSpan) {
				t.Errorf("Combine error = %v, want ErrPrimitiveSpan", err)
			}
		})
	}
}

func TestCombineAnimationBuffersShared(t *testing.T) {
	b := bundletest.Humanoid()

	if len(b.KeyTimes) != 10 || len(b.KeyValues) != 10 {
		t.Fatalf("shared buffers hold %d/%d keys, want 10", len(b.KeyTimes), len(b.KeyValues))
	}

	// samplers are consecutive views into the shared arrays
	cursor := 0
	for a := range b.Animations {
		for s := range b.Animations[a].Samplers {
			smp := &b.Animations[a].Samplers[s]
			if &smp.Times[0] != &b.KeyTimes[cursor] || &smp.Values[0] != &b.KeyValues[cursor] {
				t.Errorf("clip %d sampler %d is not a view at %d", a, s, cursor)
			}
			cursor += smp.Count()
		}
	}
}
