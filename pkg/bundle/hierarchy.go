package bundle

import (
	"errors"
	"fmt"
)

// Hierarchy validation errors.
var (
	ErrChildOutOfRange   = errors.New("child index out of range")
	ErrCyclicHierarchy   = errors.New("node hierarchy is not a forest")
	ErrJointOutOfRange   = errors.New("skin joint out of range")
	ErrChannelOutOfRange = errors.New("animation channel out of range")
)

// Validate checks the invariants the runtime relies on: the node graph is
// an acyclic forest with in-range children, skins and channels reference
// existing nodes, and every primitive's index range fits the combined
// buffers.
func (b *Bundle) Validate() error {
	if err := b.validateNodes(); err != nil {
		return err
	}

	numNodes := int32(len(b.Nodes))
	for s := range b.Skins {
		skin := &b.Skins[s]
		if skin.Skeleton < -1 || skin.Skeleton >= numNodes {
			return fmt.Errorf("%w: skin %d skeleton %d", ErrJointOutOfRange, s, skin.Skeleton)
		}
		if len(skin.InverseBindMatrices) != len(skin.Joints) {
			return fmt.Errorf("%w: skin %d has %d inverse bind matrices for %d joints",
				ErrJointOutOfRange, s, len(skin.InverseBindMatrices), len(skin.Joints))
		}
		for j, node := range skin.Joints {
			if node < 0 || node >= numNodes {
				return fmt.Errorf("%w: skin %d joint %d -> node %d", ErrJointOutOfRange, s, j, node)
			}
		}
	}

	for a := range b.Animations {
		anim := &b.Animations[a]
		for c, ch := range anim.Channels {
			if ch.TargetNode < 0 || ch.TargetNode >= numNodes ||
				ch.Sampler < 0 || int(ch.Sampler) >= len(anim.Samplers) {
				return fmt.Errorf("%w: animation %q channel %d", ErrChannelOutOfRange, anim.Name, c)
			}
		}
		for s := range anim.Samplers {
			if len(anim.Samplers[s].Values) != len(anim.Samplers[s].Times) {
				return fmt.Errorf("%w: animation %q sampler %d has %d times and %d values",
					ErrChannelOutOfRange, anim.Name, s, len(anim.Samplers[s].Times), len(anim.Samplers[s].Values))
			}
		}
	}

	totalVertices := uint32(b.TotalVertices())
	for m := range b.Meshes {
		for p := range b.Meshes[m].Primitives {
			prim := &b.Meshes[m].Primitives[p]
			end := int(prim.IndexOffset) + int(prim.NumIndices)
			if prim.IndexOffset < 0 || prim.NumIndices < 0 || end > len(b.Indices) {
				return fmt.Errorf("%w: mesh %d primitive %d indices [%d,%d) of %d",
					ErrPrimitiveSpan, m, p, prim.IndexOffset, end, len(b.Indices))
			}
			for _, idx := range b.PrimitiveIndices(prim) {
				if idx >= totalVertices {
					return fmt.Errorf("%w: mesh %d primitive %d index %d >= %d vertices",
						ErrPrimitiveSpan, m, p, idx, totalVertices)
				}
			}
		}
	}
	return nil
}

func (b *Bundle) validateNodes() error {
	parents := make([]int32, len(b.Nodes))
	for i := range parents {
		parents[i] = -1
	}

	for i := range b.Nodes {
		for _, c := range b.Nodes[i].Children {
			if c < 0 || int(c) >= len(b.Nodes) {
				return fmt.Errorf("%w: node %d child %d", ErrChildOutOfRange, i, c)
			}
			if parents[c] != -1 || int(c) == i {
				return fmt.Errorf("%w: node %d has more than one parent", ErrCyclicHierarchy, c)
			}
			parents[c] = int32(i)
		}
	}

	// with one parent per node, every node is reachable from a root
	// exactly when there is no cycle
	stack := make([]int32, 0, 64)
	for i, p := range parents {
		if p == -1 {
			stack = append(stack, int32(i))
		}
	}
	visited := 0
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visited++
		stack = append(stack, b.Nodes[n].Children...)
	}
	if visited != len(b.Nodes) {
		return fmt.Errorf("%w: %d nodes unreachable from any root", ErrCyclicHierarchy, len(b.Nodes)-visited)
	}
	return nil
}

// FindNode returns the index of the first node called name. A missing
// name resolves to node 0 with ok false.
func (b *Bundle) FindNode(name string) (index int, ok bool) {
	for i := range b.Nodes {
		if b.Nodes[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// FindAnimRootNode picks the node animation starts from: the first skin's
// skeleton if set, else the node named "Armature", else the node with the
// most children.
func (b *Bundle) FindAnimRootNode() int {
	if len(b.Skins) == 0 {
		return 0
	}
	if s := b.Skins[0].Skeleton; s != -1 {
		return int(s)
	}

	best, bestChildren := 0, 0
	for i := range b.Nodes {
		if b.Nodes[i].Name == "Armature" {
			return i
		}
		if n := len(b.Nodes[i].Children); n > bestChildren {
			best, bestChildren = i, n
		}
	}
	return best
}
