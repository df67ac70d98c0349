// Package bundle holds the in-memory scene asset model: an index-addressed
// scene graph plus the single combined vertex and index buffers every
// primitive is sliced from.
package bundle

import (
	"fmt"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

// AttribMask records which vertex attributes a primitive carries.
type AttribMask uint32

// Vertex attribute bits.
const (
	AttribPosition AttribMask = 1 << iota
	AttribTexCoord
	AttribNormal
	AttribTangent
	AttribJoints
	AttribWeights
)

// Has reports whether all bits of a are set.
func (m AttribMask) Has(a AttribMask) bool {
	return m&a == a
}

// String lists the set attributes, e.g. "position|normal".
func (m AttribMask) String() string {
	names := []string{"position", "texcoord", "normal", "tangent", "joints", "weights"}
	s := ""
	for i, n := range names {
		if m&(1<<i) == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += n
	}
	if s == "" {
		return "none"
	}
	return s
}

// ComponentType is the element type of a vertex attribute or index stream.
type ComponentType int32

// Component types. Values match the on-disk encoding.
const (
	ComponentByte          ComponentType = 0
	ComponentUnsignedByte  ComponentType = 1
	ComponentShort         ComponentType = 2
	ComponentUnsignedShort ComponentType = 3
	ComponentInt           ComponentType = 4
	ComponentUnsignedInt   ComponentType = 5
	ComponentFloat         ComponentType = 6
	ComponentHalf          ComponentType = 11
)

// Size returns the byte width of one element, or 0 for unknown types.
func (c ComponentType) Size() int {
	switch c {
	case ComponentByte, ComponentUnsignedByte:
		return 1
	case ComponentShort, ComponentUnsignedShort, ComponentHalf:
		return 2
	case ComponentInt, ComponentUnsignedInt, ComponentFloat:
		return 4
	default:
		return 0
	}
}

// Primitive is one drawable range of the combined buffers.
type Primitive struct {
	Attributes  AttribMask
	IndexType   ComponentType
	NumIndices  int32
	NumVertices int32
	// IndexOffset is the first element of this primitive in Bundle.Indices.
	IndexOffset int32
	JointType   ComponentType
	JointCount  int16
	JointStride int16
	Material    int16
}

// Mesh groups primitives under a name.
type Mesh struct {
	Name       string
	Primitives []Primitive
}

// NodeKind discriminates what a node's Index refers to.
type NodeKind int32

const (
	// NodeMesh nodes index Bundle.Meshes.
	NodeMesh NodeKind = 0
	// NodeCamera nodes index Bundle.Cameras.
	NodeCamera NodeKind = 1
)

func (k NodeKind) String() string {
	switch k {
	case NodeMesh:
		return "mesh"
	case NodeCamera:
		return "camera"
	default:
		return fmt.Sprintf("NodeKind(%d)", int32(k))
	}
}

// Node is a transform in the scene hierarchy. Topology never changes after
// load; animation works on copies of Translation and Rotation.
type Node struct {
	Kind        NodeKind
	Index       int32
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3
	Children    []int32
	Name        string
}

// TextureRef points a material slot at a texture. Scale and Strength are
// IEEE half floats kept as raw bits.
type TextureRef struct {
	Index    uint16
	TexCoord uint16
	Scale    uint16
	Strength uint16
}

// NoTexture marks an empty material slot.
const NoTexture = 0xFFFF

// Valid reports whether the slot references a texture.
func (r TextureRef) Valid() bool {
	return r.Index != NoTexture
}

// Material describes surface shading inputs. Factors stored as halves are
// raw IEEE half bits; colours are packed RGBA8.
type Material struct {
	Normal            TextureRef
	Occlusion         TextureRef
	Emissive          TextureRef
	BaseColor         TextureRef
	Specular          TextureRef
	MetallicRoughness TextureRef

	EmissiveFactor  [3]uint16
	SpecularFactor  uint16
	DiffuseColor    uint32
	SpecularColor   uint32
	BaseColorFactor uint32
	DoubleSided     bool
	AlphaCutoff     float32
	AlphaMode       int32
	Name            string
}

// Texture pairs an image with a sampler.
type Texture struct {
	Sampler int32
	Source  int32
	Name    string
}

// Image is a texture source file, relative to the bundle.
type Image struct {
	Path string
}

// Sampler holds texture filtering and wrap modes.
type Sampler struct {
	MagFilter int32
	MinFilter int32
	WrapS     int32
	WrapT     int32
}

// Camera is a perspective or orthographic camera.
type Camera struct {
	AspectRatio float32
	YFov        float32
	ZFar        float32
	ZNear       float32
	Type        int32
	Name        string
}

// Scene lists the root nodes of one scene.
type Scene struct {
	Name  string
	Nodes []int32
}

// Skin binds a mesh to a joint hierarchy.
type Skin struct {
	// Skeleton is the root node index, or -1 when unknown.
	Skeleton            int32
	InverseBindMatrices []math.Mat4
	Joints              []int32
}

// NumJoints returns the joint count.
func (s *Skin) NumJoints() int {
	return len(s.Joints)
}

// TargetPath selects the node component a channel animates.
type TargetPath int32

// Channel target paths.
const (
	PathTranslation TargetPath = 1
	PathRotation    TargetPath = 2
	PathScale       TargetPath = 3
	PathWeights     TargetPath = 4
)

func (p TargetPath) String() string {
	switch p {
	case PathTranslation:
		return "translation"
	case PathRotation:
		return "rotation"
	case PathScale:
		return "scale"
	case PathWeights:
		return "weights"
	default:
		return fmt.Sprintf("TargetPath(%d)", int32(p))
	}
}

// Channel binds one sampler to one node component.
type Channel struct {
	Sampler    int32
	TargetNode int32
	TargetPath TargetPath
}

// AnimSampler is a keyframe track. Times and Values are views into the
// bundle's shared keyframe buffers and have equal length.
type AnimSampler struct {
	Times         []float32
	Values        []math.Vec4
	NumComponent  int32
	Interpolation float32
}

// Count returns the number of keyframes.
func (s *AnimSampler) Count() int {
	return len(s.Times)
}

// Animation is a named clip.
type Animation struct {
	Name     string
	Duration float32
	Speed    float32
	Channels []Channel
	Samplers []AnimSampler
}

// Bundle is a loaded scene asset.
type Bundle struct {
	Scale        float32
	DefaultScene int16

	Meshes     []Mesh
	Nodes      []Node
	Materials  []Material
	Textures   []Texture
	Images     []Image
	Samplers   []Sampler
	Cameras    []Camera
	Scenes     []Scene
	Skins      []Skin
	Animations []Animation

	// Vertices is the combined vertex buffer in the packed layout selected
	// by Skinned.
	Vertices []byte
	// Indices is the combined index buffer, already offset per primitive.
	Indices []uint32

	// KeyTimes and KeyValues back every AnimSampler of every clip.
	KeyTimes  []float32
	KeyValues []math.Vec4
}

// Skinned reports whether vertices use the skinned layout.
func (b *Bundle) Skinned() bool {
	return len(b.Skins) > 0
}

// VertexStride returns the packed vertex size in bytes.
func (b *Bundle) VertexStride() int {
	if b.Skinned() {
		return SkinnedVertexSize
	}
	return VertexSize
}

// TotalVertices returns the number of vertices in the combined buffer.
func (b *Bundle) TotalVertices() int {
	return len(b.Vertices) / b.VertexStride()
}

// TotalIndices returns the number of indices in the combined buffer.
func (b *Bundle) TotalIndices() int {
	return len(b.Indices)
}

// PrimitiveIndices returns the slice of Indices belonging to p.
func (b *Bundle) PrimitiveIndices(p *Primitive) []uint32 {
	start := int(p.IndexOffset)
	return b.Indices[start : start+int(p.NumIndices)]
}
