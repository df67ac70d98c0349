package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	stdmath "math"
	"os"

	"github.com/Faultbox/midgard-anim/pkg/bundle"
)

// ErrABMTableTooLarge is returned when a table has more entries than the
// 16-bit header count can describe.
var ErrABMTableTooLarge = errors.New("ABM table too large")

// EncodeABM serializes b into memory.
func EncodeABM(b *bundle.Bundle, ctx *CodecContext) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteABM(&buf, b, ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveABMFile serializes b to path.
func SaveABMFile(path string, b *bundle.Bundle, ctx *CodecContext) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating ABM file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := WriteABM(bw, b, ctx); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing ABM file: %w", err)
	}
	return f.Close()
}

func tableCount(name string, n int) (int16, error) {
	if n > stdmath.MaxInt16 {
		return 0, fmt.Errorf("%w: %d %s", ErrABMTableTooLarge, n, name)
	}
	return int16(n), nil
}

// WriteABM serializes b to w. Field order mirrors decodeABM.
func WriteABM(out io.Writer, b *bundle.Bundle, ctx *CodecContext) error {
	stride := b.VertexStride()
	if len(b.Vertices)%stride != 0 {
		return fmt.Errorf("vertex buffer of %d bytes is not a multiple of stride %d", len(b.Vertices), stride)
	}

	raw := abmFileHeader{
		Version:       ABMVersion,
		Reserved:      [4]uint64{ABMMagic, uint64(ctx.Kind())},
		Scale:         b.Scale,
		TotalIndices:  int32(b.TotalIndices()),
		TotalVertices: int32(b.TotalVertices()),
	}
	if b.Skinned() {
		raw.Skinned = 1
	}

	tables := []struct {
		name string
		n    int
		dst  *int16
	}{
		{"meshes", len(b.Meshes), &raw.Counts.Meshes},
		{"nodes", len(b.Nodes), &raw.Counts.Nodes},
		{"materials", len(b.Materials), &raw.Counts.Materials},
		{"textures", len(b.Textures), &raw.Counts.Textures},
		{"images", len(b.Images), &raw.Counts.Images},
		{"samplers", len(b.Samplers), &raw.Counts.Samplers},
		{"cameras", len(b.Cameras), &raw.Counts.Cameras},
		{"scenes", len(b.Scenes), &raw.Counts.Scenes},
		{"skins", len(b.Skins), &raw.Counts.Skins},
		{"animations", len(b.Animations), &raw.Counts.Animations},
	}
	for _, t := range tables {
		n, err := tableCount(t.name, t.n)
		if err != nil {
			return err
		}
		*t.dst = n
	}
	raw.Counts.DefaultScene = b.DefaultScene

	w := &abmWriter{w: out}
	if err := binary.Write(out, binary.LittleEndian, &raw); err != nil {
		return fmt.Errorf("writing ABM header: %w", err)
	}

	if err := writeCompressed(w, ctx, b.Vertices); err != nil {
		return fmt.Errorf("vertex buffer: %w", err)
	}
	indexBytes := make([]byte, 4*len(b.Indices))
	for i, idx := range b.Indices {
		binary.LittleEndian.PutUint32(indexBytes[4*i:], idx)
	}
	if err := writeCompressed(w, ctx, indexBytes); err != nil {
		return fmt.Errorf("index buffer: %w", err)
	}

	for i := range b.Meshes {
		writeMesh(w, &b.Meshes[i])
	}

	for i := range b.Nodes {
		n := &b.Nodes[i]
		w.i32(int32(n.Kind))
		w.i32(n.Index)
		w.vec3(n.Translation)
		w.vec4(n.Rotation.Vec4())
		w.vec3(n.Scale)
		w.i32(int32(len(n.Children)))
		w.int32s(n.Children)
		w.str(n.Name)
	}

	for i := range b.Materials {
		writeMaterial(w, &b.Materials[i])
	}

	for _, t := range b.Textures {
		w.i32(t.Sampler)
		w.i32(t.Source)
		w.str(t.Name)
	}

	for _, img := range b.Images {
		w.str(img.Path)
	}

	for _, s := range b.Samplers {
		w.i32(s.MagFilter)
		w.i32(s.MinFilter)
		w.i32(s.WrapS)
		w.i32(s.WrapT)
	}

	for _, c := range b.Cameras {
		w.f32(c.AspectRatio)
		w.f32(c.YFov)
		w.f32(c.ZFar)
		w.f32(c.ZNear)
		w.i32(c.Type)
		w.str(c.Name)
	}

	for _, s := range b.Scenes {
		w.str(s.Name)
		w.i32(int32(len(s.Nodes)))
		w.int32s(s.Nodes)
	}

	for i := range b.Skins {
		s := &b.Skins[i]
		if len(s.InverseBindMatrices) != len(s.Joints) {
			return fmt.Errorf("skin %d: %d inverse bind matrices for %d joints", i, len(s.InverseBindMatrices), len(s.Joints))
		}
		w.i32(s.Skeleton)
		w.i32(int32(len(s.Joints)))
		for _, m := range s.InverseBindMatrices {
			w.mat4(m)
		}
		w.int32s(s.Joints)
	}

	for a := range b.Animations {
		for s := range b.Animations[a].Samplers {
			smp := &b.Animations[a].Samplers[s]
			if len(smp.Values) != len(smp.Times) {
				return fmt.Errorf("animation %q sampler %d: %d values for %d times",
					b.Animations[a].Name, s, len(smp.Values), len(smp.Times))
			}
		}
	}
	writeAnimations(w, b)

	if w.err != nil {
		return fmt.Errorf("writing ABM body: %w", w.err)
	}
	return nil
}

func writeCompressed(w *abmWriter, ctx *CodecContext, src []byte) error {
	comp, err := ctx.comp.Compress(nil, src)
	if err != nil {
		return err
	}
	w.u64(uint64(len(comp)))
	w.write(comp)
	return w.err
}

func writeMesh(w *abmWriter, m *bundle.Mesh) {
	w.str(m.Name)
	w.i32(int32(len(m.Primitives)))
	for j := range m.Primitives {
		p := &m.Primitives[j]
		w.i32(int32(p.Attributes))
		w.i32(int32(p.IndexType))
		w.i32(p.NumIndices)
		w.i32(p.NumVertices)
		w.i32(p.IndexOffset)
		w.i16(int16(p.JointType))
		w.i16(p.JointCount)
		w.i16(p.JointStride)
		w.i16(p.Material)
	}
}

func packTextureRef(t bundle.TextureRef) uint64 {
	return uint64(t.Scale)<<48 | uint64(t.Strength)<<32 | uint64(t.Index)<<16 | uint64(t.TexCoord)
}

func writeMaterial(w *abmWriter, m *bundle.Material) {
	for _, slot := range []bundle.TextureRef{
		m.Normal, m.Occlusion, m.Emissive,
		m.BaseColor, m.Specular, m.MetallicRoughness,
	} {
		w.u64(packTextureRef(slot))
	}

	w.u64(uint64(m.EmissiveFactor[0])<<48 | uint64(m.EmissiveFactor[1])<<32 |
		uint64(m.EmissiveFactor[2])<<16 | uint64(m.SpecularFactor))
	w.u64(uint64(m.DiffuseColor)<<32 | uint64(m.SpecularColor))

	base := uint64(m.BaseColorFactor) << 32
	if m.DoubleSided {
		base |= 1
	}
	w.u64(base)

	w.f32(m.AlphaCutoff)
	w.i32(m.AlphaMode)
	w.str(m.Name)
}

// writeAnimations emits every sampler's keys as one concatenated block in
// clip then sampler order, followed by the per-clip records.
func writeAnimations(w *abmWriter, b *bundle.Bundle) {
	total := 0
	for a := range b.Animations {
		for s := range b.Animations[a].Samplers {
			total += b.Animations[a].Samplers[s].Count()
		}
	}

	w.i32(int32(total))
	if total > 0 {
		for a := range b.Animations {
			for s := range b.Animations[a].Samplers {
				for _, t := range b.Animations[a].Samplers[s].Times {
					w.f32(t)
				}
			}
		}
		for a := range b.Animations {
			for s := range b.Animations[a].Samplers {
				smp := &b.Animations[a].Samplers[s]
				for k := range smp.Times {
					w.vec4(smp.Values[k])
				}
			}
		}
	}

	for a := range b.Animations {
		anim := &b.Animations[a]
		w.i32(int32(len(anim.Samplers)))
		w.i32(int32(len(anim.Channels)))
		w.f32(anim.Duration)
		w.f32(anim.Speed)
		w.str(anim.Name)

		for _, ch := range anim.Channels {
			w.i32(ch.Sampler)
			w.i32(ch.TargetNode)
			w.i32(int32(ch.TargetPath))
		}
		for s := range anim.Samplers {
			smp := &anim.Samplers[s]
			w.i32(int32(smp.Count()))
			w.i32(smp.NumComponent)
			w.f32(smp.Interpolation)
		}
	}
}
