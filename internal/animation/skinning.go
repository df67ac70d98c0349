package animation

import (
	"github.com/x448/float16"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

// TexelsPerJoint is the number of RGBA texels one joint matrix occupies.
// Each texel is one row of the 3x4 affine part.
const TexelsPerJoint = 3

// halvesPerJoint is the number of half floats per joint.
const halvesPerJoint = TexelsPerJoint * 4

// TextureHandle identifies a texture owned by a TextureBackend.
type TextureHandle uint32

// TextureBackend stores the joint matrix buffer on the GPU. Data is
// width*height RGBA16F texels given as raw half-float bits.
type TextureBackend interface {
	CreateTexture(width, height int, data []uint16) (TextureHandle, error)
	UpdateTexture(tex TextureHandle, data []uint16) error
	DeleteTexture(tex TextureHandle)
}

// localMatrix returns node n's local TRS from pose, with the look-at offset
// folded in for the spine and neck joints.
func (c *Controller) localMatrix(n int, pose Pose) math.Mat4 {
	rot := pose[n].Rotation
	// spine and neck may resolve to the same node; both offsets apply
	if n == c.spineNode && math.Abs(c.spineX)+math.Abs(c.spineY) > math.Epsilon {
		rot = rotateNode(rot, c.spineX, c.spineY)
	}
	if n == c.neckNode && math.Abs(c.neckX)+math.Abs(c.neckY) > math.Epsilon {
		rot = rotateNode(rot, c.neckX, c.neckY)
	}
	return math.Compose(pose[n].Translation, rot, c.bundle.Nodes[n].Scale)
}

func rotateNode(rot math.Quat, xAngle, yAngle float32) math.Quat {
	return math.QuatFromXAngle(xAngle).Mul(math.QuatFromYAngle(yAngle)).Mul(rot)
}

// computeGlobals walks the hierarchy from the root node and fills
// c.globals. Nodes outside the root's subtree stay identity.
func (c *Controller) computeGlobals(pose Pose) {
	for i := range c.globals {
		c.globals[i] = math.Identity()
		c.visited[i] = false
	}

	root := c.rootNode
	c.globals[root] = c.localMatrix(root, pose)
	c.visited[root] = true
	c.stack = append(c.stack[:0], root)

	nodes := c.bundle.Nodes
	for len(c.stack) > 0 {
		n := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]

		for _, child := range nodes[n].Children {
			ci := int(child)
			if ci < 0 || ci >= len(nodes) || c.visited[ci] {
				continue
			}
			c.visited[ci] = true
			c.globals[ci] = c.globals[n].Mul(c.localMatrix(ci, pose))
			c.stack = append(c.stack, ci)
		}
	}
}

// packJoints writes transpose(global * inverseBind) for every joint as
// three half-float RGBA texels.
func (c *Controller) packJoints() {
	for i, joint := range c.skin.Joints {
		m := c.globals[joint].Mul(c.skin.InverseBindMatrices[i]).Transpose()
		dst := c.texels[i*halvesPerJoint : (i+1)*halvesPerJoint]
		for k := range dst {
			dst[k] = float16.Fromfloat32(m[k]).Bits()
		}
	}
}

// upload resolves pose into joint texels and pushes them to the backend.
func (c *Controller) upload(pose Pose) error {
	c.computeGlobals(pose)
	c.packJoints()
	return c.backend.UpdateTexture(c.texture, c.texels)
}
