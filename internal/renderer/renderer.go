// Package renderer draws avatar frames as a textured quad with OpenGL.
//
// All methods must run on the thread that owns the GL context.
package renderer

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/normanking/deskavatar/internal/avatar"
	"github.com/rs/zerolog"
)

// ErrUnsupportedFrame is returned for frames that carry no pixels.
var ErrUnsupportedFrame = errors.New("frame has no pixel data")

// Bitmap is a frame backed by premultiplied RGBA pixels.
type Bitmap interface {
	avatar.Frame
	Pixels() *image.RGBA
}

// Surface reports the drawable size in pixels.
type Surface interface {
	GetFramebufferSize() (width, height int)
}

// Config configures the renderer.
type Config struct {
	Opacity float32
}

// DefaultConfig returns the renderer defaults.
func DefaultConfig() Config {
	return Config{Opacity: 1}
}

// Renderer uploads each distinct frame once and draws it to fill the surface.
type Renderer struct {
	surface Surface
	config  Config
	logger  zerolog.Logger

	spriteShader *Shader
	quadVAO      uint32
	quadVBO      uint32

	textures map[Bitmap]uint32

	drawCalls int
}

// New creates a renderer. The GL context must already be current.
func New(surface Surface, cfg Config, logger zerolog.Logger) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl init: %w", err)
	}

	r := &Renderer{
		surface:  surface,
		config:   cfg,
		logger:   logger.With().Str("component", "renderer").Logger(),
		textures: make(map[Bitmap]uint32),
	}

	var err error
	r.spriteShader, err = NewShaderFromSource(spriteVertSrc, spriteFragSrc)
	if err != nil {
		return nil, fmt.Errorf("sprite shader: %w", err)
	}
	r.initQuad()

	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)

	r.logger.Debug().Str("gl_version", gl.GoStr(gl.GetString(gl.VERSION))).Msg("renderer ready")
	return r, nil
}

// quadVertices is a unit quad as two triangles: x, y, u, v. The origin is
// the top-left corner so image row 0 lands at the top.
var quadVertices = []float32{
	0, 0, 0, 0,
	1, 0, 1, 0,
	1, 1, 1, 1,

	0, 0, 0, 0,
	1, 1, 1, 1,
	0, 1, 0, 1,
}

func (r *Renderer) initQuad() {
	gl.GenVertexArrays(1, &r.quadVAO)
	gl.GenBuffers(1, &r.quadVBO)

	gl.BindVertexArray(r.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)

	stride := int32(4 * 4)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, stride, 2*4)
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)
}

// Projection maps frame pixel coordinates, origin top-left, to clip space.
func Projection(width, height int) mgl32.Mat4 {
	return mgl32.Ortho2D(0, float32(width), float32(height), 0)
}

// Draw clears the surface to transparent and draws f stretched to fill it.
func (r *Renderer) Draw(f avatar.Frame) error {
	bmp, ok := f.(Bitmap)
	if !ok {
		return ErrUnsupportedFrame
	}
	tex, err := r.texture(bmp)
	if err != nil {
		return err
	}

	fbW, fbH := r.surface.GetFramebufferSize()
	gl.Viewport(0, 0, int32(fbW), int32(fbH))
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	w, h := bmp.Size()
	r.spriteShader.Use()
	r.spriteShader.SetMat4("uProjection", Projection(w, h))
	r.spriteShader.SetVec2("uSize", mgl32.Vec2{float32(w), float32(h)})
	r.spriteShader.SetFloat("uOpacity", r.config.Opacity)
	r.spriteShader.SetInt("uTexture", 0)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.BindVertexArray(r.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)

	r.drawCalls++
	return nil
}

// DrawCalls returns the number of frames drawn so far.
func (r *Renderer) DrawCalls() int {
	return r.drawCalls
}

func (r *Renderer) texture(bmp Bitmap) (uint32, error) {
	if tex, ok := r.textures[bmp]; ok {
		return tex, nil
	}
	rgba := bmp.Pixels()
	if rgba == nil || len(rgba.Pix) == 0 {
		return 0, ErrUnsupportedFrame
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)

	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(rgba.Stride/4))
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA,
		int32(rgba.Bounds().Dx()), int32(rgba.Bounds().Dy()),
		0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	r.textures[bmp] = tex
	return tex, nil
}

// Shutdown releases every GL object.
func (r *Renderer) Shutdown() {
	for _, tex := range r.textures {
		gl.DeleteTextures(1, &tex)
	}
	clear(r.textures)

	gl.DeleteBuffers(1, &r.quadVBO)
	gl.DeleteVertexArrays(1, &r.quadVAO)
	if r.spriteShader != nil {
		r.spriteShader.Delete()
	}
}
