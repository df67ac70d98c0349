package renderer

import (
	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

// drawCall is one glDrawElements range of the combined index buffer.
type drawCall struct {
	offset   int32
	count    int32
	material int // -1 when the primitive has none
}

func buildDrawCalls(b *bundle.Bundle) []drawCall {
	var calls []drawCall
	for m := range b.Meshes {
		for _, p := range b.Meshes[m].Primitives {
			if p.NumIndices <= 0 {
				continue
			}
			mat := int(p.Material)
			if mat < 0 || mat >= len(b.Materials) {
				mat = -1
			}
			calls = append(calls, drawCall{offset: p.IndexOffset, count: p.NumIndices, material: mat})
		}
	}
	return calls
}

// unpackColor splits an RGBA8 colour, red in the low byte. Zero is treated
// as unset and yields white.
func unpackColor(c uint32) [4]float32 {
	if c == 0 {
		return [4]float32{1, 1, 1, 1}
	}
	return [4]float32{
		float32(c&0xFF) / 255,
		float32(c>>8&0xFF) / 255,
		float32(c>>16&0xFF) / 255,
		float32(c>>24&0xFF) / 255,
	}
}

// materialImage resolves a material's base colour slot to an image index,
// or -1.
func materialImage(b *bundle.Bundle, mat int) int {
	if mat < 0 || mat >= len(b.Materials) {
		return -1
	}
	ref := b.Materials[mat].BaseColor
	if !ref.Valid() || int(ref.Index) >= len(b.Textures) {
		return -1
	}
	src := int(b.Textures[ref.Index].Source)
	if src < 0 || src >= len(b.Images) {
		return -1
	}
	return src
}

// Bounds returns the axis-aligned box of every vertex position in the
// bundle's bind pose, scaled by the bundle scale.
func Bounds(b *bundle.Bundle) (lo, hi math.Vec3, ok bool) {
	n := b.TotalVertices()
	if n == 0 {
		return lo, hi, false
	}
	lo = b.Vertex(0).Position
	hi = lo
	for i := 1; i < n; i++ {
		p := b.Vertex(i).Position
		lo = math.Vec3{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = math.Vec3{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	if s := b.Scale; s > 0 {
		lo, hi = lo.Scale(s), hi.Scale(s)
	}
	return lo, hi, true
}
