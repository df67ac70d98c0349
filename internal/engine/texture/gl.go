package texture

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/midgard-anim/internal/animation"
)

// GLBackend stores float textures through OpenGL. It implements
// animation.TextureBackend and must be used from the GL thread.
type GLBackend struct {
	sizes map[animation.TextureHandle][2]int32
}

// NewGLBackend returns a backend for the current GL context.
func NewGLBackend() *GLBackend {
	return &GLBackend{sizes: make(map[animation.TextureHandle][2]int32)}
}

// CreateTexture allocates an RGBA16F texture with nearest filtering, so
// shaders can fetch joint rows with texelFetch.
func (g *GLBackend) CreateTexture(width, height int, data []uint16) (animation.TextureHandle, error) {
	if len(data) < width*height*4 {
		return 0, fmt.Errorf("texture data has %d halves, need %d", len(data), width*height*4)
	}

	var id uint32
	gl.GenTextures(1, &id)
	if id == 0 {
		return 0, fmt.Errorf("glGenTextures failed")
	}
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, int32(width), int32(height), 0,
		gl.RGBA, gl.HALF_FLOAT, gl.Ptr(data))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	tex := animation.TextureHandle(id)
	g.sizes[tex] = [2]int32{int32(width), int32(height)}
	return tex, nil
}

// UpdateTexture replaces the whole texture.
func (g *GLBackend) UpdateTexture(tex animation.TextureHandle, data []uint16) error {
	size, ok := g.sizes[tex]
	if !ok {
		return fmt.Errorf("unknown texture %d", tex)
	}
	if len(data) < int(size[0]*size[1]*4) {
		return fmt.Errorf("texture data has %d halves, need %d", len(data), size[0]*size[1]*4)
	}
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, size[0], size[1], gl.RGBA, gl.HALF_FLOAT, gl.Ptr(data))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// DeleteTexture releases tex.
func (g *GLBackend) DeleteTexture(tex animation.TextureHandle) {
	if _, ok := g.sizes[tex]; !ok {
		return
	}
	id := uint32(tex)
	gl.DeleteTextures(1, &id)
	delete(g.sizes, tex)
}

// UploadRGBA creates a mipmapped RGBA8 texture from img.
func UploadRGBA(img *image.RGBA) uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(img.Bounds().Dx()), int32(img.Bounds().Dy()), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id
}

// DeleteRGBA releases a texture made by UploadRGBA.
func DeleteRGBA(id uint32) {
	gl.DeleteTextures(1, &id)
}
