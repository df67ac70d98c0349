// Package debug provides the viewer's debug overlays and screenshots.
package debug

import (
	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

// BoxLineVertexCount is the number of vertices of a box wireframe
// (12 edges x 2).
const BoxLineVertexCount = 24

// BoxLines returns the 12 edges of an axis-aligned box as line vertices,
// three floats each.
func BoxLines(lo, hi math.Vec3) []float32 {
	return []float32{
		// bottom
		lo.X, lo.Y, lo.Z, hi.X, lo.Y, lo.Z,
		hi.X, lo.Y, lo.Z, hi.X, lo.Y, hi.Z,
		hi.X, lo.Y, hi.Z, lo.X, lo.Y, hi.Z,
		lo.X, lo.Y, hi.Z, lo.X, lo.Y, lo.Z,
		// top
		lo.X, hi.Y, lo.Z, hi.X, hi.Y, lo.Z,
		hi.X, hi.Y, lo.Z, hi.X, hi.Y, hi.Z,
		hi.X, hi.Y, hi.Z, lo.X, hi.Y, hi.Z,
		lo.X, hi.Y, hi.Z, lo.X, hi.Y, lo.Z,
		// verticals
		lo.X, lo.Y, lo.Z, lo.X, hi.Y, lo.Z,
		hi.X, lo.Y, lo.Z, hi.X, hi.Y, lo.Z,
		hi.X, lo.Y, hi.Z, hi.X, hi.Y, hi.Z,
		lo.X, lo.Y, hi.Z, lo.X, hi.Y, hi.Z,
	}
}

// SkeletonLines returns one line per parent to child bone of b's first
// skin, positioned by globals and scaled by b.Scale. dst is reused.
func SkeletonLines(dst []float32, b *bundle.Bundle, globals []math.Mat4) []float32 {
	dst = dst[:0]
	if len(b.Skins) == 0 || len(globals) < len(b.Nodes) {
		return dst
	}

	isJoint := make([]bool, len(b.Nodes))
	for _, j := range b.Skins[0].Joints {
		isJoint[j] = true
	}
	scale := b.Scale
	if scale <= 0 {
		scale = 1
	}

	for n := range b.Nodes {
		if !isJoint[n] {
			continue
		}
		from := globals[n].Translation().Scale(scale)
		for _, c := range b.Nodes[n].Children {
			if !isJoint[c] {
				continue
			}
			to := globals[c].Translation().Scale(scale)
			dst = append(dst, from.X, from.Y, from.Z, to.X, to.Y, to.Z)
		}
	}
	return dst
}
