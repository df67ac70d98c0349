package bundle_test

import (
	"errors"
	"testing"

	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/bundle/bundletest"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

func nodesWithChildren(children ...[]int32) []bundle.Node {
	nodes := make([]bundle.Node, len(children))
	for i, c := range children {
		nodes[i] = bundle.Node{Children: c, Rotation: math.QuatIdentity()}
	}
	return nodes
}

func TestValidateFixtures(t *testing.T) {
	for name, b := range map[string]*bundle.Bundle{
		"two joint": bundletest.TwoJoint(),
		"humanoid":  bundletest.Humanoid(),
	} {
		if err := b.Validate(); err != nil {
			t.Errorf("%s: Validate() = %v", name, err)
		}
	}
}

func TestValidateHierarchy(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []bundle.Node
		wantErr error
	}{
		{"forest", nodesWithChildren([]int32{1}, nil, []int32{3}, nil), nil},
		{"child out of range", nodesWithChildren([]int32{5}), bundle.ErrChildOutOfRange},
		{"negative child", nodesWithChildren([]int32{-1}), bundle.ErrChildOutOfRange},
		{"self loop", nodesWithChildren([]int32{0}), bundle.ErrCyclicHierarchy},
		{"two parents", nodesWithChildren([]int32{2}, []int32{2}, nil), bundle.ErrCyclicHierarchy},
		{"cycle", nodesWithChildren([]int32{1}, []int32{2}, []int32{0}), bundle.ErrCyclicHierarchy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &bundle.Bundle{Nodes: tt.nodes}
			err := b.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReferences(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(b *bundle.Bundle)
		wantErr error
	}{
		{"skin joint", func(b *bundle.Bundle) { b.Skins[0].Joints[1] = 99 }, bundle.ErrJointOutOfRange},
		{"skin skeleton", func(b *bundle.Bundle) { b.Skins[0].Skeleton = 42 }, bundle.ErrJointOutOfRange},
		{"bind matrix count", func(b *bundle.Bundle) {
			b.Skins[0].InverseBindMatrices = b.Skins[0].InverseBindMatrices[:1]
		}, bundle.ErrJointOutOfRange},
		{"channel node", func(b *bundle.Bundle) { b.Animations[0].Channels[0].TargetNode = 7 }, bundle.ErrChannelOutOfRange},
		{"channel sampler", func(b *bundle.Bundle) { b.Animations[0].Channels[0].Sampler = 3 }, bundle.ErrChannelOutOfRange},
		{"index past buffer", func(b *bundle.Bundle) { b.Meshes[0].Primitives[0].NumIndices = 50 }, bundle.ErrPrimitiveSpan},
		{"index past vertices", func(b *bundle.Bundle) { b.Indices[0] = 1000 }, bundle.ErrPrimitiveSpan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bundletest.TwoJoint()
			tt.mutate(b)
			if err := b.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFindNode(t *testing.T) {
	b := bundletest.Humanoid()
	if got, ok := b.FindNode("mixamorig:Neck"); got != bundletest.HumanoidNeck || !ok {
		t.Errorf("FindNode(Neck) = %d, %v, want %d, true", got, ok, bundletest.HumanoidNeck)
	}
	if got, ok := b.FindNode("mixamorig:Tail"); got != 0 || ok {
		t.Errorf("FindNode(missing) = %d, %v, want 0, false", got, ok)
	}
}

func TestFindAnimRootNode(t *testing.T) {
	tests := []struct {
		name  string
		build func() *bundle.Bundle
		want  int
	}{
		{"skeleton set", bundletest.TwoJoint, 0},
		{"armature by name", bundletest.Humanoid, bundletest.HumanoidArmature},
		{"most children", func() *bundle.Bundle {
			b := bundletest.Humanoid()
			b.Nodes[0].Name = "Rig"
			return b
		}, bundletest.HumanoidHips},
		{"no skin", func() *bundle.Bundle {
			return &bundle.Bundle{Nodes: nodesWithChildren(nil, []int32{0})}
		}, 0},
		{"explicit skeleton", func() *bundle.Bundle {
			b := bundletest.Humanoid()
			b.Skins[0].Skeleton = bundletest.HumanoidSpine
			return b
		}, bundletest.HumanoidSpine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build().FindAnimRootNode(); got != tt.want {
				t.Errorf("FindAnimRootNode() = %d, want %d", got, tt.want)
			}
		})
	}
}
