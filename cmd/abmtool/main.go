// abmtool is a CLI utility for inspecting and converting ABM bundles.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/x448/float16"

	"github.com/Faultbox/midgard-anim/internal/animation"
	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "nodes", "tree":
		cmdNodes(args)
	case "anims", "clips":
		cmdAnims(args)
	case "materials", "mats":
		cmdMaterials(args)
	case "verify":
		cmdVerify(args)
	case "recompress":
		cmdRecompress(args)
	case "pose":
		cmdPose(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`abmtool - ABM skinned bundle utility

Usage:
  abmtool <command> [options]

Commands:
  info <file.abm>                       Show header and table sizes
  nodes <file.abm>                      Print the node hierarchy
  anims <file.abm>                      List animation clips
  materials <file.abm>                  List materials and texture slots
  verify <file.abm>                     Decode, validate and re-encode
  recompress [-c zstd|snappy] [-level N] <in.abm> <out.abm>
                                        Rewrite with another compressor
  pose <file.abm> <clip> <time>         Print joint positions of a clip
                                        at normalized time 0..1

Examples:
  abmtool info hero.abm
  abmtool anims hero.abm
  abmtool recompress -c snappy hero.abm hero_fast.abm
  abmtool pose hero.abm 0 0.5`)
}

func fail(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func load(path string) *bundle.Bundle {
	b, err := formats.ParseABMFile(path)
	if err != nil {
		fail("Error: %v", err)
	}
	return b
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fail("Usage: abmtool info <file.abm>")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fail("Error: %v", err)
	}
	h, err := formats.ReadABMHeader(data)
	if err != nil {
		fail("Error: %v", err)
	}

	c := h.Counts
	fmt.Printf("File:       %s\n", args[0])
	fmt.Printf("Size:       %.2f KB\n", float64(len(data))/1024)
	fmt.Printf("Version:    %d\n", h.Version)
	fmt.Printf("Compressor: %s\n", h.Compressor)
	fmt.Printf("Scale:      %g\n", h.Scale)
	fmt.Printf("Skinned:    %v (vertex stride %d)\n", h.Skinned, h.VertexStride())
	fmt.Printf("Vertices:   %d\n", h.TotalVertices)
	fmt.Printf("Indices:    %d\n", h.TotalIndices)
	fmt.Println()
	fmt.Println("Tables:")
	for _, row := range []struct {
		name  string
		count int16
	}{
		{"meshes", c.Meshes},
		{"nodes", c.Nodes},
		{"materials", c.Materials},
		{"textures", c.Textures},
		{"images", c.Images},
		{"samplers", c.Samplers},
		{"cameras", c.Cameras},
		{"scenes", c.Scenes},
		{"skins", c.Skins},
		{"animations", c.Animations},
	} {
		fmt.Printf("  %-12s %d\n", row.name, row.count)
	}

	raw := int64(h.TotalVertices)*int64(h.VertexStride()) + int64(h.TotalIndices)*4
	if raw > 0 {
		fmt.Printf("\nGeometry:   %.2f KB raw, file is %.1f%% of raw\n",
			float64(raw)/1024, 100*float64(len(data))/float64(raw))
	}
}

func cmdNodes(args []string) {
	if len(args) < 1 {
		fail("Usage: abmtool nodes <file.abm>")
	}
	b := load(args[0])

	isChild := make([]bool, len(b.Nodes))
	for i := range b.Nodes {
		for _, c := range b.Nodes[i].Children {
			isChild[c] = true
		}
	}

	joints := make(map[int32]int)
	if len(b.Skins) > 0 {
		for j, n := range b.Skins[0].Joints {
			joints[n] = j
		}
	}

	type entry struct {
		node  int32
		depth int
	}
	var stack []entry
	for i := len(b.Nodes) - 1; i >= 0; i-- {
		if !isChild[i] {
			stack = append(stack, entry{int32(i), 0})
		}
	}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &b.Nodes[e.node]
		line := fmt.Sprintf("%s[%d] %s", strings.Repeat("  ", e.depth), e.node, n.Name)
		if j, ok := joints[e.node]; ok {
			line += fmt.Sprintf("  (joint %d)", j)
		}
		if n.Index >= 0 && n.Kind == bundle.NodeMesh && int(n.Index) < len(b.Meshes) {
			line += fmt.Sprintf("  mesh %q", b.Meshes[n.Index].Name)
		}
		fmt.Println(line)

		for c := len(n.Children) - 1; c >= 0; c-- {
			stack = append(stack, entry{n.Children[c], e.depth + 1})
		}
	}
}

func cmdAnims(args []string) {
	if len(args) < 1 {
		fail("Usage: abmtool anims <file.abm>")
	}
	b := load(args[0])

	fmt.Printf("%-4s %-24s %9s %6s %9s %9s\n", "#", "name", "duration", "speed", "channels", "keys")
	for i := range b.Animations {
		a := &b.Animations[i]
		keys := 0
		for s := range a.Samplers {
			keys += a.Samplers[s].Count()
		}
		fmt.Printf("%-4d %-24s %8.3fs %6.2f %9d %9d\n", i, a.Name, a.Duration, a.Speed, len(a.Channels), keys)
	}
	fmt.Fprintf(os.Stderr, "\n(%d clips, %d keyframes shared)\n", len(b.Animations), len(b.KeyTimes))
}

func formatRef(r bundle.TextureRef) string {
	if !r.Valid() {
		return "-"
	}
	return fmt.Sprintf("tex %d uv%d scale %.2f strength %.2f", r.Index, r.TexCoord,
		float16.Frombits(r.Scale).Float32(), float16.Frombits(r.Strength).Float32())
}

func cmdMaterials(args []string) {
	if len(args) < 1 {
		fail("Usage: abmtool materials <file.abm>")
	}
	b := load(args[0])

	for i := range b.Materials {
		m := &b.Materials[i]
		fmt.Printf("[%d] %s  base 0x%08X  cutoff %.2f  double-sided %v\n",
			i, m.Name, m.BaseColorFactor, m.AlphaCutoff, m.DoubleSided)
		for _, slot := range []struct {
			name string
			ref  bundle.TextureRef
		}{
			{"base color", m.BaseColor},
			{"normal", m.Normal},
			{"metal/rough", m.MetallicRoughness},
			{"occlusion", m.Occlusion},
			{"emissive", m.Emissive},
			{"specular", m.Specular},
		} {
			fmt.Printf("    %-12s %s\n", slot.name, formatRef(slot.ref))
		}
	}
	for i := range b.Images {
		fmt.Printf("image %d: %s\n", i, b.Images[i].Path)
	}
}

func cmdVerify(args []string) {
	if len(args) < 1 {
		fail("Usage: abmtool verify <file.abm>")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fail("Error: %v", err)
	}
	h, err := formats.ReadABMHeader(data)
	if err != nil {
		fail("Header: %v", err)
	}
	b, err := formats.ParseABM(data)
	if err != nil {
		fail("Decode: %v", err)
	}

	ctx, err := formats.NewCodecContext(h.Compressor, 0)
	if err != nil {
		fail("Error: %v", err)
	}
	defer ctx.Close()
	encoded, err := formats.EncodeABM(b, ctx)
	if err != nil {
		fail("Encode: %v", err)
	}
	again, err := formats.ParseABM(encoded)
	if err != nil {
		fail("Re-decode: %v", err)
	}
	if !bytes.Equal(again.Vertices, b.Vertices) || len(again.Indices) != len(b.Indices) {
		fail("Round trip changed geometry")
	}

	fmt.Printf("%s: OK (%d nodes, %d clips, %d vertices)\n",
		args[0], len(b.Nodes), len(b.Animations), b.TotalVertices())
}

func cmdRecompress(args []string) {
	fs := flag.NewFlagSet("recompress", flag.ExitOnError)
	comp := fs.String("c", "zstd", "Compressor (zstd, snappy)")
	level := fs.Int("level", formats.DefaultCompressionLevel, "zstd level")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fail("Usage: abmtool recompress [-c zstd|snappy] [-level N] <in.abm> <out.abm>")
	}

	kind, err := formats.ParseCompressorKind(*comp)
	if err != nil {
		fail("Error: %v", err)
	}
	b := load(fs.Arg(0))

	ctx, err := formats.NewCodecContext(kind, *level)
	if err != nil {
		fail("Error: %v", err)
	}
	defer ctx.Close()
	if err := formats.SaveABMFile(fs.Arg(1), b, ctx); err != nil {
		fail("Error: %v", err)
	}

	before, _ := os.Stat(fs.Arg(0))
	after, _ := os.Stat(fs.Arg(1))
	if before != nil && after != nil {
		fmt.Printf("%s -> %s (%s): %d -> %d bytes\n",
			fs.Arg(0), fs.Arg(1), kind, before.Size(), after.Size())
	}
}

// headlessBackend keeps joint textures in memory so the controller can run
// without a GL context.
type headlessBackend struct{}

func (headlessBackend) CreateTexture(int, int, []uint16) (animation.TextureHandle, error) {
	return 1, nil
}

func (headlessBackend) UpdateTexture(animation.TextureHandle, []uint16) error { return nil }

func (headlessBackend) DeleteTexture(animation.TextureHandle) {}

func cmdPose(args []string) {
	if len(args) < 3 {
		fail("Usage: abmtool pose <file.abm> <clip> <time>")
	}
	b := load(args[0])

	clip, err := strconv.Atoi(args[1])
	if err != nil {
		fail("Invalid clip %q: %v", args[1], err)
	}
	t, err := strconv.ParseFloat(args[2], 32)
	if err != nil {
		fail("Invalid time %q: %v", args[2], err)
	}

	ctrl, err := animation.New(b, headlessBackend{}, animation.Config{})
	if err != nil {
		fail("Error: %v", err)
	}
	defer ctrl.Destroy()

	if err := ctrl.PlayAnim(clip, float32(t)); err != nil {
		fail("Error: %v", err)
	}

	globals := ctrl.Globals()
	for j, n := range b.Skins[0].Joints {
		p := globals[n].Translation()
		fmt.Printf("%3d %-28s % .4f % .4f % .4f\n", j, b.Nodes[n].Name, p.X, p.Y, p.Z)
	}
}
