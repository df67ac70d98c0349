// Package renderer draws a bundle's combined mesh, skinned on the GPU from
// the animation controller's joint texture.
package renderer

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-anim/internal/animation"
	"github.com/Faultbox/midgard-anim/internal/engine/shader"
	"github.com/Faultbox/midgard-anim/internal/engine/texture"
	"github.com/Faultbox/midgard-anim/internal/logger"
	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

// Texture units.
const (
	unitBaseColor = 0
	unitJoints    = 1
)

// Renderer owns the GL buffers of one bundle.
type Renderer struct {
	bundle  *bundle.Bundle
	program *shader.Program
	log     *zap.Logger

	vao, vbo, ebo uint32
	calls         []drawCall
	images        []uint32

	width, height int
}

// New uploads b's vertex and index buffers and its images. images must
// hold one entry per bundle image, as texture.LoadImages returns.
// Must be called after the GL context is created.
func New(b *bundle.Bundle, images []*image.RGBA, width, height int) (*Renderer, error) {
	r := &Renderer{
		bundle: b,
		log:    logger.Named("renderer"),
		calls:  buildDrawCalls(b),
		width:  width,
		height: height,
	}

	var err error
	r.program, err = shader.New(meshVertexShader, meshFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("mesh shader: %w", err)
	}

	if len(b.Vertices) > 0 && len(b.Indices) > 0 {
		r.upload()
	}
	for _, img := range images {
		r.images = append(r.images, texture.UploadRGBA(img))
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)
	gl.Viewport(0, 0, int32(width), int32(height))

	r.log.Debug("renderer created",
		zap.Int("draw_calls", len(r.calls)),
		zap.Int("images", len(r.images)),
		zap.Bool("skinned", b.Skinned()))
	return r, nil
}

func (r *Renderer) upload() {
	b := r.bundle
	stride := int32(b.VertexStride())

	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)

	gl.GenBuffers(1, &r.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(b.Vertices), gl.Ptr(b.Vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &r.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(b.Indices)*4, gl.Ptr(b.Indices), gl.STATIC_DRAW)

	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 4, gl.INT_2_10_10_10_REV, true, stride, gl.PtrOffset(12))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(2, 2, gl.HALF_FLOAT, false, stride, gl.PtrOffset(20))
	gl.EnableVertexAttribArray(2)
	if b.Skinned() {
		gl.VertexAttribIPointer(3, 4, gl.UNSIGNED_BYTE, stride, gl.PtrOffset(24))
		gl.EnableVertexAttribArray(3)
		gl.VertexAttribPointer(4, 4, gl.UNSIGNED_BYTE, true, stride, gl.PtrOffset(28))
		gl.EnableVertexAttribArray(4)
	}

	gl.BindVertexArray(0)
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.width, r.height = width, height
	gl.Viewport(0, 0, int32(width), int32(height))
}

// Aspect returns the viewport aspect ratio.
func (r *Renderer) Aspect() float32 {
	if r.height == 0 {
		return 1
	}
	return float32(r.width) / float32(r.height)
}

// Begin clears the frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Draw renders every primitive. joints is the controller's joint texture
// and is ignored for unskinned bundles.
func (r *Renderer) Draw(viewProj math.Mat4, joints animation.TextureHandle) {
	if r.vao == 0 {
		return
	}
	b := r.bundle
	model := math.Scale(math.Vec3{X: b.Scale, Y: b.Scale, Z: b.Scale})
	if b.Scale <= 0 {
		model = math.Identity()
	}

	p := r.program
	p.Use()
	gl.UniformMatrix4fv(p.Uniform("uViewProj"), 1, false, viewProj.Ptr())
	gl.UniformMatrix4fv(p.Uniform("uModel"), 1, false, model.Ptr())
	gl.Uniform3f(p.Uniform("uLightDir"), -0.4, -0.8, -0.45)
	gl.Uniform1i(p.Uniform("uBaseColorTex"), unitBaseColor)
	gl.Uniform1i(p.Uniform("uJointTex"), unitJoints)

	skinned := int32(0)
	if b.Skinned() && joints != 0 {
		skinned = 1
		gl.ActiveTexture(gl.TEXTURE0 + unitJoints)
		gl.BindTexture(gl.TEXTURE_2D, uint32(joints))
	}
	gl.Uniform1i(p.Uniform("uSkinned"), skinned)

	gl.BindVertexArray(r.vao)
	for _, call := range r.calls {
		r.bindMaterial(call.material)
		gl.DrawElements(gl.TRIANGLES, call.count, gl.UNSIGNED_INT, gl.PtrOffset(int(call.offset)*4))
	}
	gl.BindVertexArray(0)
}

func (r *Renderer) bindMaterial(mat int) {
	p := r.program
	color := [4]float32{1, 1, 1, 1}
	cutoff := float32(0)
	if mat >= 0 {
		m := &r.bundle.Materials[mat]
		color = unpackColor(m.BaseColorFactor)
		if m.AlphaMode == 1 {
			cutoff = m.AlphaCutoff
		}
		if m.DoubleSided {
			gl.Disable(gl.CULL_FACE)
		} else {
			gl.Enable(gl.CULL_FACE)
		}
	}
	gl.Uniform4f(p.Uniform("uBaseColor"), color[0], color[1], color[2], color[3])
	gl.Uniform1f(p.Uniform("uAlphaCutoff"), cutoff)

	img := materialImage(r.bundle, mat)
	if img < 0 || img >= len(r.images) {
		gl.Uniform1i(p.Uniform("uHasTexture"), 0)
		return
	}
	gl.Uniform1i(p.Uniform("uHasTexture"), 1)
	gl.ActiveTexture(gl.TEXTURE0 + unitBaseColor)
	gl.BindTexture(gl.TEXTURE_2D, r.images[img])
}

// Close releases GL resources.
func (r *Renderer) Close() {
	for _, id := range r.images {
		texture.DeleteRGBA(id)
	}
	r.images = nil
	if r.ebo != 0 {
		gl.DeleteBuffers(1, &r.ebo)
	}
	if r.vbo != 0 {
		gl.DeleteBuffers(1, &r.vbo)
	}
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
	}
	r.program.Delete()
}
