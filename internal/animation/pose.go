package animation

import (
	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

// Transform is the animated part of a node's local transform.
type Transform struct {
	Translation math.Vec3
	Rotation    math.Quat
}

// Pose holds one Transform per node, indexed like Bundle.Nodes.
type Pose []Transform

// NewPose allocates a pose for b and fills it with the rest pose.
func NewPose(b *bundle.Bundle) Pose {
	p := make(Pose, len(b.Nodes))
	p.Reset(b)
	return p
}

// Reset copies the rest translation and rotation of every node into p.
func (p Pose) Reset(b *bundle.Bundle) {
	for i := range p {
		p[i].Translation = b.Nodes[i].Translation
		p[i].Rotation = b.Nodes[i].Rotation
	}
}

// MergePoses blends dst toward src in place. Translations are lerped and
// rotations nlerped; t = 0 leaves dst untouched and t = 1 copies src.
func MergePoses(dst, src Pose, t float32) {
	for i := range dst {
		dst[i].Translation = dst[i].Translation.Lerp(src[i].Translation, t)
		dst[i].Rotation = dst[i].Rotation.Nlerp(src[i].Rotation, t)
	}
}

// SplitPose assembles dst from two layers: nodes below boundary come from
// locomotion, the rest from triggered.
func SplitPose(dst, locomotion, triggered Pose, boundary int) {
	boundary = max(0, min(boundary, len(dst)))
	copy(dst[:boundary], locomotion[:boundary])
	copy(dst[boundary:], triggered[boundary:])
}
