// Package formats provides the ABM (asset bundle mesh) binary codec.
// ABM stores a whole scene bundle: header counts, the combined vertex and
// index buffers compressed independently, then every table of the model.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

// ABM format errors.
var (
	ErrInvalidABMMagic       = errors.New("invalid ABM magic: expected 0xABFABF")
	ErrUnsupportedABMVersion = errors.New("unsupported ABM version")
	ErrTruncatedABMData      = errors.New("truncated ABM data")
	ErrCorruptABMData        = errors.New("corrupt ABM data")
)

// ABMVersion is the only version this codec reads or writes. Files are not
// forward or backward compatible.
const ABMVersion int32 = 42

// ABMMagic is stored in the first reserved header word.
const ABMMagic uint64 = 0xABFABF

// maxABMBuffer bounds a decompressed buffer so a corrupt header cannot
// trigger a huge allocation.
const maxABMBuffer = 1 << 30

// abmFileHeader is the fixed 72-byte prefix of every ABM file.
type abmFileHeader struct {
	Version       int32
	Reserved      [4]uint64
	Scale         float32
	Counts        ABMCounts
	Skinned       int16
	TotalIndices  int32
	TotalVertices int32
}

// ABMCounts holds the per-table element counts of the header.
type ABMCounts struct {
	Meshes       int16
	Nodes        int16
	Materials    int16
	Textures     int16
	Images       int16
	Samplers     int16
	Cameras      int16
	Scenes       int16
	Skins        int16
	Animations   int16
	DefaultScene int16
}

// ABMHeader is the decoded header, available without decompressing the
// body.
type ABMHeader struct {
	Version       int32
	Compressor    CompressorKind
	Scale         float32
	Counts        ABMCounts
	Skinned       bool
	TotalIndices  int32
	TotalVertices int32
}

// VertexStride returns the packed vertex size the header selects.
func (h *ABMHeader) VertexStride() int {
	if h.Skinned {
		return bundle.SkinnedVertexSize
	}
	return bundle.VertexSize
}

// ReadABMHeader decodes and checks the fixed header.
func ReadABMHeader(data []byte) (*ABMHeader, error) {
	var raw abmFileHeader
	if len(data) < binary.Size(raw) {
		return nil, ErrTruncatedABMData
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &raw); err != nil {
		return nil, ErrTruncatedABMData
	}

	if raw.Version != ABMVersion {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrUnsupportedABMVersion, raw.Version, ABMVersion)
	}
	if raw.Reserved[0] != ABMMagic {
		return nil, ErrInvalidABMMagic
	}

	h := &ABMHeader{
		Version:       raw.Version,
		Compressor:    CompressorKind(raw.Reserved[1]),
		Scale:         raw.Scale,
		Counts:        raw.Counts,
		Skinned:       raw.Skinned != 0,
		TotalIndices:  raw.TotalIndices,
		TotalVertices: raw.TotalVertices,
	}

	c := h.Counts
	for _, n := range []int16{c.Meshes, c.Nodes, c.Materials, c.Textures, c.Images,
		c.Samplers, c.Cameras, c.Scenes, c.Skins, c.Animations} {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative table count", ErrCorruptABMData)
		}
	}
	if h.TotalIndices < 0 || h.TotalVertices < 0 {
		return nil, fmt.Errorf("%w: negative buffer totals", ErrCorruptABMData)
	}
	return h, nil
}

// IsCurrentABM reports whether the file at path starts with a header this
// codec can load.
func IsCurrentABM(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, binary.Size(abmFileHeader{}))
	if _, err := io.ReadFull(f, buf); err != nil {
		return false
	}
	_, err = ReadABMHeader(buf)
	return err == nil
}

// ParseABM decodes an ABM file held in memory. The compressor is chosen by
// the header and released before returning. The decoded bundle has passed
// Bundle.Validate.
func ParseABM(data []byte) (*bundle.Bundle, error) {
	h, err := ReadABMHeader(data)
	if err != nil {
		return nil, err
	}
	ctx, err := NewCodecContext(h.Compressor, 0)
	if err != nil {
		return nil, err
	}
	defer ctx.Close()
	return decodeABM(h, data, ctx)
}

// ParseABMFile reads and decodes an ABM file.
func ParseABMFile(path string) (*bundle.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ABM file: %w", err)
	}
	return ParseABM(data)
}

func decodeABM(h *ABMHeader, data []byte, ctx *CodecContext) (*bundle.Bundle, error) {
	r := &abmReader{data: data, off: binary.Size(abmFileHeader{})}
	c := h.Counts

	b := &bundle.Bundle{
		Scale:        h.Scale,
		DefaultScene: c.DefaultScene,
	}

	vertexBytes := int(h.TotalVertices) * h.VertexStride()
	if vertexBytes > maxABMBuffer || int(h.TotalIndices)*4 > maxABMBuffer {
		return nil, fmt.Errorf("%w: buffers exceed %d bytes", ErrCorruptABMData, maxABMBuffer)
	}
	vertices, err := readCompressed(r, ctx, vertexBytes)
	if err != nil {
		return nil, fmt.Errorf("vertex buffer: %w", err)
	}
	b.Vertices = vertices

	indexBytes, err := readCompressed(r, ctx, int(h.TotalIndices)*4)
	if err != nil {
		return nil, fmt.Errorf("index buffer: %w", err)
	}
	b.Indices = make([]uint32, h.TotalIndices)
	for i := range b.Indices {
		b.Indices[i] = binary.LittleEndian.Uint32(indexBytes[4*i:])
	}

	ints := bundle.NewArena[int32](1024)

	b.Meshes = make([]bundle.Mesh, c.Meshes)
	for i := range b.Meshes {
		readMesh(r, &b.Meshes[i])
	}

	b.Nodes = make([]bundle.Node, c.Nodes)
	for i := range b.Nodes {
		n := &b.Nodes[i]
		n.Kind = bundle.NodeKind(r.i32())
		n.Index = r.i32()
		n.Translation = r.vec3()
		n.Rotation = r.vec4().Quat()
		n.Scale = r.vec3()
		n.Children = r.int32s(ints, r.count(4))
		n.Name = r.str()
	}

	b.Materials = make([]bundle.Material, c.Materials)
	for i := range b.Materials {
		readMaterial(r, &b.Materials[i])
	}

	b.Textures = make([]bundle.Texture, c.Textures)
	for i := range b.Textures {
		t := &b.Textures[i]
		t.Sampler = r.i32()
		t.Source = r.i32()
		t.Name = r.str()
	}

	b.Images = make([]bundle.Image, c.Images)
	for i := range b.Images {
		b.Images[i].Path = r.str()
	}

	b.Samplers = make([]bundle.Sampler, c.Samplers)
	for i := range b.Samplers {
		s := &b.Samplers[i]
		s.MagFilter, s.MinFilter, s.WrapS, s.WrapT = r.i32(), r.i32(), r.i32(), r.i32()
	}

	b.Cameras = make([]bundle.Camera, c.Cameras)
	for i := range b.Cameras {
		cam := &b.Cameras[i]
		cam.AspectRatio = r.f32()
		cam.YFov = r.f32()
		cam.ZFar = r.f32()
		cam.ZNear = r.f32()
		cam.Type = r.i32()
		cam.Name = r.str()
	}

	b.Scenes = make([]bundle.Scene, c.Scenes)
	for i := range b.Scenes {
		s := &b.Scenes[i]
		s.Name = r.str()
		s.Nodes = r.int32s(ints, r.count(4))
	}

	b.Skins = make([]bundle.Skin, c.Skins)
	for i := range b.Skins {
		s := &b.Skins[i]
		s.Skeleton = r.i32()
		numJoints := r.count(64 + 4)
		s.InverseBindMatrices = make([]math.Mat4, numJoints)
		for j := range s.InverseBindMatrices {
			s.InverseBindMatrices[j] = r.mat4()
		}
		s.Joints = r.int32s(ints, numJoints)
	}

	if err := readAnimations(r, b, int(c.Animations)); err != nil {
		return nil, err
	}

	if r.err != nil {
		return nil, r.err
	}
	if h.Skinned != b.Skinned() {
		return nil, fmt.Errorf("%w: skinned flag does not match skin table", ErrCorruptABMData)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptABMData, err)
	}
	return b, nil
}

func readCompressed(r *abmReader, ctx *CodecContext, size int) ([]byte, error) {
	n := r.u64()
	if r.err != nil {
		return nil, r.err
	}
	if n > uint64(len(r.data)-r.off) {
		return nil, ErrTruncatedABMData
	}
	src := r.take(int(n))
	out, err := ctx.comp.Decompress(make([]byte, 0, size), src, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptABMData, err)
	}
	if len(out) != size {
		return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", ErrCorruptABMData, len(out), size)
	}
	return out, nil
}

func readMesh(r *abmReader, m *bundle.Mesh) {
	m.Name = r.str()
	m.Primitives = make([]bundle.Primitive, r.count(5*4+4*2))
	for j := range m.Primitives {
		p := &m.Primitives[j]
		p.Attributes = bundle.AttribMask(r.i32())
		p.IndexType = bundle.ComponentType(r.i32())
		p.NumIndices = r.i32()
		p.NumVertices = r.i32()
		p.IndexOffset = r.i32()
		p.JointType = bundle.ComponentType(r.i16())
		p.JointCount = r.i16()
		p.JointStride = r.i16()
		p.Material = r.i16()
	}
}

func unpackTextureRef(v uint64) bundle.TextureRef {
	return bundle.TextureRef{
		TexCoord: uint16(v),
		Index:    uint16(v >> 16),
		Strength: uint16(v >> 32),
		Scale:    uint16(v >> 48),
	}
}

func readMaterial(r *abmReader, m *bundle.Material) {
	for _, slot := range []*bundle.TextureRef{
		&m.Normal, &m.Occlusion, &m.Emissive,
		&m.BaseColor, &m.Specular, &m.MetallicRoughness,
	} {
		*slot = unpackTextureRef(r.u64())
	}

	factors := r.u64()
	m.SpecularFactor = uint16(factors)
	m.EmissiveFactor[2] = uint16(factors >> 16)
	m.EmissiveFactor[1] = uint16(factors >> 32)
	m.EmissiveFactor[0] = uint16(factors >> 48)

	colors := r.u64()
	m.DiffuseColor = uint32(colors >> 32)
	m.SpecularColor = uint32(colors)

	base := r.u64()
	m.BaseColorFactor = uint32(base >> 32)
	m.DoubleSided = base&1 != 0

	m.AlphaCutoff = r.f32()
	m.AlphaMode = r.i32()
	m.Name = r.str()
}

// readAnimations reads the shared keyframe buffers and then each clip,
// handing every sampler the next Count keys of the shared buffers.
func readAnimations(r *abmReader, b *bundle.Bundle, numAnims int) error {
	total := r.count(4 + 16)
	if total > 0 {
		b.KeyTimes = make([]float32, total)
		for i := range b.KeyTimes {
			b.KeyTimes[i] = r.f32()
		}
		b.KeyValues = make([]math.Vec4, total)
		for i := range b.KeyValues {
			b.KeyValues[i] = r.vec4()
		}
	}

	cursor := 0
	b.Animations = make([]bundle.Animation, numAnims)
	for i := range b.Animations {
		a := &b.Animations[i]
		numSamplers := r.count(12)
		numChannels := r.count(12)
		a.Duration = r.f32()
		a.Speed = r.f32()
		a.Name = r.str()

		a.Channels = make([]bundle.Channel, numChannels)
		for j := range a.Channels {
			ch := &a.Channels[j]
			ch.Sampler = r.i32()
			ch.TargetNode = r.i32()
			ch.TargetPath = bundle.TargetPath(r.i32())
		}

		a.Samplers = make([]bundle.AnimSampler, numSamplers)
		for j := range a.Samplers {
			s := &a.Samplers[j]
			count := int(r.i32())
			s.NumComponent = r.i32()
			s.Interpolation = r.f32()
			if r.err != nil {
				return r.err
			}
			if count < 0 || count > total-cursor {
				return fmt.Errorf("%w: animation %d sampler %d overruns keyframe buffer", ErrCorruptABMData, i, j)
			}
			s.Times = b.KeyTimes[cursor : cursor+count : cursor+count]
			s.Values = b.KeyValues[cursor : cursor+count : cursor+count]
			cursor += count
		}
	}
	return r.err
}
