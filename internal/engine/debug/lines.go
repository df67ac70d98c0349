package debug

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/midgard-anim/internal/engine/shader"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

const lineVertexShader = `#version 410 core
layout (location = 0) in vec3 aPos;
uniform mat4 uViewProj;
void main() {
	gl_Position = uViewProj * vec4(aPos, 1.0);
}
`

const lineFragmentShader = `#version 410 core
uniform vec4 uColor;
out vec4 FragColor;
void main() {
	FragColor = uColor;
}
`

// LineRenderer draws streamed line lists on top of the scene.
type LineRenderer struct {
	program  *shader.Program
	vao, vbo uint32
}

// NewLineRenderer compiles the line shader. Call with a current GL
// context.
func NewLineRenderer() (*LineRenderer, error) {
	p, err := shader.New(lineVertexShader, lineFragmentShader)
	if err != nil {
		return nil, err
	}
	r := &LineRenderer{program: p}

	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)
	gl.GenBuffers(1, &r.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)
	return r, nil
}

// Draw renders verts, three floats per vertex, as GL_LINES without depth
// testing.
func (r *LineRenderer) Draw(viewProj math.Mat4, verts []float32, color [4]float32) {
	if len(verts) < 6 {
		return
	}
	r.program.Use()
	gl.UniformMatrix4fv(r.program.Uniform("uViewProj"), 1, false, viewProj.Ptr())
	gl.Uniform4f(r.program.Uniform("uColor"), color[0], color[1], color[2], color[3])

	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.STREAM_DRAW)

	gl.Disable(gl.DEPTH_TEST)
	gl.DrawArrays(gl.LINES, 0, int32(len(verts)/3))
	gl.Enable(gl.DEPTH_TEST)
	gl.BindVertexArray(0)
}

// Close releases GL resources.
func (r *LineRenderer) Close() {
	gl.DeleteBuffers(1, &r.vbo)
	gl.DeleteVertexArrays(1, &r.vao)
	r.program.Delete()
}

// ReadPixels reads the current framebuffer as bottom-up RGBA bytes.
func ReadPixels(width, height int) []byte {
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels
}
