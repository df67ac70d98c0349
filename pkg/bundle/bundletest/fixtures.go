// Package bundletest builds small in-memory bundles for tests.
package bundletest

import (
	"encoding/binary"
	stdmath "math"

	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

// Track is one channel plus its keyframes.
type Track struct {
	Node   int32
	Path   bundle.TargetPath
	Times  []float32
	Values []math.Vec4
}

// Clip builds an animation with one sampler per track. Keyframe storage is
// left per-sampler; call bundle.CombineAnimationBuffers to share it.
func Clip(name string, duration float32, tracks ...Track) bundle.Animation {
	anim := bundle.Animation{Name: name, Duration: duration, Speed: 1}
	for i, tr := range tracks {
		comps := int32(4)
		if tr.Path == bundle.PathTranslation {
			comps = 3
		}
		anim.Channels = append(anim.Channels, bundle.Channel{
			Sampler:    int32(i),
			TargetNode: tr.Node,
			TargetPath: tr.Path,
		})
		anim.Samplers = append(anim.Samplers, bundle.AnimSampler{
			Times:        tr.Times,
			Values:       tr.Values,
			NumComponent: comps,
		})
	}
	return anim
}

// RotationTrack animates node's rotation between the given key angles
// about Y, spread evenly over duration.
func RotationTrack(node int32, duration float32, anglesY ...float32) Track {
	tr := Track{Node: node, Path: bundle.PathRotation}
	for i, a := range anglesY {
		t := float32(0)
		if len(anglesY) > 1 {
			t = duration * float32(i) / float32(len(anglesY)-1)
		}
		tr.Times = append(tr.Times, t)
		tr.Values = append(tr.Values, math.QuatFromYAngle(a).Vec4())
	}
	return tr
}

// TranslationTrack animates node's translation between keys spread evenly
// over duration.
func TranslationTrack(node int32, duration float32, keys ...math.Vec3) Track {
	tr := Track{Node: node, Path: bundle.PathTranslation}
	for i, k := range keys {
		t := float32(0)
		if len(keys) > 1 {
			t = duration * float32(i) / float32(len(keys)-1)
		}
		tr.Times = append(tr.Times, t)
		tr.Values = append(tr.Values, math.Vec4FromVec3(k, 0))
	}
	return tr
}

func node(name string, t math.Vec3, children ...int32) bundle.Node {
	return bundle.Node{
		Kind:        bundle.NodeMesh,
		Index:       -1,
		Translation: t,
		Rotation:    math.QuatIdentity(),
		Scale:       math.Vec3{X: 1, Y: 1, Z: 1},
		Children:    children,
		Name:        name,
	}
}

// bindSkin attaches a skin over joints whose inverse bind matrices come
// from the rest pose below root.
func bindSkin(b *bundle.Bundle, skeleton int32, root int, joints ...int32) {
	globals := RestGlobals(b, root)
	skin := bundle.Skin{Skeleton: skeleton, Joints: joints}
	for _, j := range joints {
		skin.InverseBindMatrices = append(skin.InverseBindMatrices, globals[j].InverseAffine())
	}
	b.Skins = append(b.Skins, skin)
}

// RestGlobals returns global matrices of the rest pose starting at root.
// Nodes outside root's subtree are identity.
func RestGlobals(b *bundle.Bundle, root int) []math.Mat4 {
	out := make([]math.Mat4, len(b.Nodes))
	for i := range out {
		out[i] = math.Identity()
	}
	var walk func(n int, parent math.Mat4)
	walk = func(n int, parent math.Mat4) {
		nd := &b.Nodes[n]
		out[n] = parent.Mul(math.Compose(nd.Translation, nd.Rotation, nd.Scale))
		for _, c := range nd.Children {
			walk(int(c), out[n])
		}
	}
	walk(root, math.Identity())
	return out
}

// Uint16s encodes values as a little-endian uint16 stream.
func Uint16s(values ...uint16) []byte {
	buf := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[2*i:], v)
	}
	return buf
}

// Uint32s encodes values as a little-endian uint32 stream.
func Uint32s(values ...uint32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], v)
	}
	return buf
}

// Float32s encodes values as a little-endian float32 stream.
func Float32s(values ...float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], stdmath.Float32bits(v))
	}
	return buf
}

func triangle(offset float32) bundle.PrimitiveSource {
	return bundle.PrimitiveSource{
		Positions: []math.Vec3{{X: offset}, {X: offset + 1}, {X: offset, Y: 1}},
		TexCoords: [][2]float32{{0, 0}, {1, 0}, {0, 1}},
		Normals:   []math.Vec3{{Z: 1}, {Z: 1}, {Z: 1}},
		Indices:   Uint16s(0, 1, 2),
		IndexType: bundle.ComponentUnsignedShort,
	}
}

// TwoJoint returns a combined skinned bundle with a root joint (node 0)
// and one child bone (node 1, one unit up), one triangle mesh and a
// single clip "Turn" of duration 1s rotating the bone from 0 to 90
// degrees about Y.
func TwoJoint() *bundle.Bundle {
	b := &bundle.Bundle{
		Scale:  1,
		Meshes: []bundle.Mesh{{Name: "Body", Primitives: make([]bundle.Primitive, 1)}},
		Nodes: []bundle.Node{
			node("Root", math.Vec3{}, 1),
			node("Bone", math.Vec3{Y: 1}),
			{Kind: bundle.NodeMesh, Index: 0, Rotation: math.QuatIdentity(), Scale: math.Vec3{X: 1, Y: 1, Z: 1}, Name: "BodyMesh"},
		},
		Scenes: []bundle.Scene{{Name: "Scene", Nodes: []int32{0, 2}}},
		Animations: []bundle.Animation{
			Clip("Turn", 1, RotationTrack(1, 1, 0, stdmath.Pi/2)),
		},
	}
	bindSkin(b, 0, 0, 0, 1)

	src := triangle(0)
	src.Joints = []byte{0, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0}
	src.JointType = bundle.ComponentUnsignedByte
	src.JointCount = 4
	src.Weights = []byte{255, 0, 0, 0, 255, 0, 0, 0, 0, 0, 0, 0}
	src.WeightType = bundle.ComponentUnsignedByte
	if err := bundle.Combine(b, [][]bundle.PrimitiveSource{{src}}); err != nil {
		panic(err)
	}
	return b
}

// Humanoid node indices.
const (
	HumanoidArmature = 0
	HumanoidHips     = 1
	HumanoidSpine    = 2
	HumanoidNeck     = 3
	HumanoidLeg      = 4
)

// Humanoid returns a skinned bundle laid out like a mixamo rig with four
// locomotion clips and one action clip:
//
//	0 Idle   hips at z=0
//	1 Walk   hips at z=1
//	2 Jog    hips at z=2
//	3 Run    hips at z=3
//	4 Attack neck turns 0 -> 90 degrees about Y over 0.5s
//
// Locomotion clips last 1s and hold a constant pose.
func Humanoid() *bundle.Bundle {
	b := &bundle.Bundle{
		Scale:  1,
		Meshes: []bundle.Mesh{{Name: "Body", Primitives: make([]bundle.Primitive, 2)}},
		Nodes: []bundle.Node{
			node("Armature", math.Vec3{}, 1),
			node("mixamorig:Hips", math.Vec3{Y: 1}, 2, 4),
			node("mixamorig:Spine", math.Vec3{Y: 0.3}, 3),
			node("mixamorig:Neck", math.Vec3{Y: 0.5}),
			node("mixamorig:LeftUpLeg", math.Vec3{X: 0.2, Y: -0.1}),
		},
		Scenes: []bundle.Scene{{Name: "Scene", Nodes: []int32{0}}},
	}
	bindSkin(b, -1, HumanoidArmature, HumanoidHips, HumanoidSpine, HumanoidNeck, HumanoidLeg)

	for i, name := range []string{"Idle", "Walk", "Jog", "Run"} {
		z := float32(i)
		b.Animations = append(b.Animations, Clip(name, 1,
			TranslationTrack(HumanoidHips, 1, math.Vec3{Y: 1, Z: z}, math.Vec3{Y: 1, Z: z})))
	}
	b.Animations = append(b.Animations, Clip("Attack", 0.5,
		RotationTrack(HumanoidNeck, 0.5, 0, stdmath.Pi/2)))

	if err := bundle.Combine(b, [][]bundle.PrimitiveSource{{triangle(0), triangle(2)}}); err != nil {
		panic(err)
	}
	return b
}
