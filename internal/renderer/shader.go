// internal/renderer/shader.go
//
// Shader compilation and uniform management
package renderer

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Shader represents a compiled OpenGL shader program
type Shader struct {
	ID uint32

	// Uniform location cache
	uniformCache map[string]int32
}

// NewShaderFromSource compiles shaders from source strings
func NewShaderFromSource(vertSrc, fragSrc string) (*Shader, error) {
	vertShader, err := compileShader(terminated(vertSrc), gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(terminated(fragSrc), gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fragShader)

	// Link program
	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		return nil, fmt.Errorf("link failed: %s", log)
	}

	return &Shader{
		ID:           program,
		uniformCache: make(map[string]int32),
	}, nil
}

func terminated(src string) string {
	if strings.HasSuffix(src, "\x00") {
		return src
	}
	return src + "\x00"
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csource, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		typeName := "vertex"
		if shaderType == gl.FRAGMENT_SHADER {
			typeName = "fragment"
		}

		return 0, fmt.Errorf("%s compile error: %s", typeName, log)
	}

	return shader, nil
}

// Use activates this shader program
func (s *Shader) Use() {
	gl.UseProgram(s.ID)
}

// Delete releases shader resources
func (s *Shader) Delete() {
	gl.DeleteProgram(s.ID)
}

func (s *Shader) getUniformLocation(name string) int32 {
	if loc, ok := s.uniformCache[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(s.ID, gl.Str(name+"\x00"))
	s.uniformCache[name] = loc
	return loc
}

// SetInt sets an integer uniform
func (s *Shader) SetInt(name string, value int32) {
	gl.Uniform1i(s.getUniformLocation(name), value)
}

// SetFloat sets a float uniform
func (s *Shader) SetFloat(name string, value float32) {
	gl.Uniform1f(s.getUniformLocation(name), value)
}

// SetVec2 sets a vec2 uniform
func (s *Shader) SetVec2(name string, v mgl32.Vec2) {
	gl.Uniform2fv(s.getUniformLocation(name), 1, &v[0])
}

// SetMat4 sets a mat4 uniform
func (s *Shader) SetMat4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(s.getUniformLocation(name), 1, false, &m[0])
}

const spriteVertSrc = `#version 410 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec2 aUV;

uniform mat4 uProjection;
uniform vec2 uSize;

out vec2 vUV;

void main() {
	vUV = aUV;
	gl_Position = uProjection * vec4(aPos * uSize, 0.0, 1.0);
}
`

// Textures hold premultiplied alpha.
const spriteFragSrc = `#version 410 core
in vec2 vUV;

uniform sampler2D uTexture;
uniform float uOpacity;

out vec4 FragColor;

void main() {
	FragColor = texture(uTexture, vUV) * uOpacity;
}
`
