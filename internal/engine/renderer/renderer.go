// Package renderer draws the tile fleet with OpenGL.
package renderer

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/terravox/globe/internal/logger"
	"github.com/terravox/globe/internal/tiles"
	"github.com/terravox/globe/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

// tileBuffers is the GPU-side copy of one tile's mesh. gen mirrors the
// tile's mesh generation; a mismatch means the buffers are stale and
// must be re-uploaded before drawing.
type tileBuffers struct {
	gen        uint64
	vao        uint32
	posVBO     uint32
	nrmVBO     uint32
	uvVBO      uint32
	ebo        uint32
	indexCount int32
}

// Renderer owns the globe shader and the per-tile GPU buffers.
type Renderer struct {
	config  Config
	program uint32

	uViewProj int32
	uLightDir int32

	buffers map[*tiles.Tile]*tileBuffers
}

// New initializes OpenGL and compiles the globe shader. Must be called
// after the GL context exists.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config:  cfg,
		buffers: make(map[*tiles.Tile]*tileBuffers, tiles.FleetSize),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	rendererName := gl.GoStr(gl.GetString(gl.RENDERER))
	logger.Info("OpenGL initialized",
		zap.String("version", version),
		zap.String("renderer", rendererName),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	// Tile meshes wind counter-clockwise seen from outside the globe.
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.ClearColor(0.01, 0.01, 0.03, 1.0)

	var err error
	r.program, err = createGlobeProgram()
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}
	r.uViewProj = gl.GetUniformLocation(r.program, gl.Str("uViewProj\x00"))
	r.uLightDir = gl.GetUniformLocation(r.program, gl.Str("uLightDir\x00"))

	return r, nil
}

// Close frees every GPU buffer and the shader program.
func (r *Renderer) Close() {
	logger.Info("closing renderer")
	for _, b := range r.buffers {
		r.deleteBuffers(b)
	}
	r.buffers = nil
	if r.program != 0 {
		gl.DeleteProgram(r.program)
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// DrawGlobe draws every visible tile that has a mesh, uploading or
// refreshing GPU buffers for tiles whose mesh changed since the last
// frame.
func (r *Renderer) DrawGlobe(fleet []*tiles.Tile, viewProj math.Mat4, wireframe bool) {
	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.uViewProj, 1, false, viewProj.Ptr())

	// Fixed sun from the upper right of the default view.
	gl.Uniform3f(r.uLightDir, 0.45, 0.6, 0.66)

	if wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	}

	for _, t := range fleet {
		if !t.Visible() || t.Mesh() == nil {
			continue
		}
		b := r.tileBuffers(t)
		if b == nil || b.indexCount == 0 {
			continue
		}
		gl.BindVertexArray(b.vao)
		gl.DrawElements(gl.TRIANGLES, b.indexCount, gl.UNSIGNED_INT, nil)
	}
	gl.BindVertexArray(0)

	if wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
}

// tileBuffers returns up-to-date GPU buffers for a tile, creating or
// re-uploading them when the mesh generation moved on.
func (r *Renderer) tileBuffers(t *tiles.Tile) *tileBuffers {
	b, ok := r.buffers[t]
	if ok && b.gen == t.MeshGen() {
		return b
	}
	if !ok {
		b = &tileBuffers{}
		gl.GenVertexArrays(1, &b.vao)
		gl.BindVertexArray(b.vao)

		gl.GenBuffers(1, &b.posVBO)
		gl.BindBuffer(gl.ARRAY_BUFFER, b.posVBO)
		gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
		gl.EnableVertexAttribArray(0)

		gl.GenBuffers(1, &b.nrmVBO)
		gl.BindBuffer(gl.ARRAY_BUFFER, b.nrmVBO)
		gl.VertexAttribPointer(1, 3, gl.FLOAT, false, 3*4, nil)
		gl.EnableVertexAttribArray(1)

		gl.GenBuffers(1, &b.uvVBO)
		gl.BindBuffer(gl.ARRAY_BUFFER, b.uvVBO)
		gl.VertexAttribPointer(2, 2, gl.FLOAT, false, 2*4, nil)
		gl.EnableVertexAttribArray(2)

		gl.GenBuffers(1, &b.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.ebo)

		r.buffers[t] = b
	}

	m := t.Mesh()
	if len(m.Indices) == 0 {
		b.indexCount = 0
		b.gen = t.MeshGen()
		return b
	}

	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.posVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(m.Positions)*4, unsafe.Pointer(&m.Positions[0]), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.nrmVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(m.Normals)*4, unsafe.Pointer(&m.Normals[0]), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.uvVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(m.UVs)*4, unsafe.Pointer(&m.UVs[0]), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, unsafe.Pointer(&m.Indices[0]), gl.STATIC_DRAW)
	gl.BindVertexArray(0)

	b.indexCount = int32(len(m.Indices))
	b.gen = t.MeshGen()
	return b
}

func (r *Renderer) deleteBuffers(b *tileBuffers) {
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
	}
	for _, vbo := range []uint32{b.posVBO, b.nrmVBO, b.uvVBO, b.ebo} {
		if vbo != 0 {
			gl.DeleteBuffers(1, &vbo)
		}
	}
}

// createGlobeProgram compiles the lit globe shader.
func createGlobeProgram() (uint32, error) {
	vertexShaderSource := `
		#version 410 core

		layout (location = 0) in vec3 aPos;
		layout (location = 1) in vec3 aNormal;
		layout (location = 2) in vec2 aUV;

		uniform mat4 uViewProj;

		out vec3 vNormal;
		out vec2 vUV;

		void main() {
			gl_Position = uViewProj * vec4(aPos, 1.0);
			vNormal = aNormal;
			vUV = aUV;
		}
	` + "\x00"

	fragmentShaderSource := `
		#version 410 core

		in vec3 vNormal;
		in vec2 vUV;

		uniform vec3 uLightDir;

		out vec4 FragColor;

		void main() {
			// abs(vUV.y - 0.5) is 0 at the equator, 0.5 at the poles.
			float polar = smoothstep(0.37, 0.47, abs(vUV.y - 0.5));
			vec3 ground = vec3(0.32, 0.45, 0.26);
			vec3 snow = vec3(0.85, 0.87, 0.90);
			vec3 base = mix(ground, snow, polar);

			vec3 n = normalize(vNormal);
			float diffuse = max(dot(n, normalize(uLightDir)), 0.0);
			vec3 color = base * (0.25 + 0.75 * diffuse);
			FragColor = vec4(color, 1.0);
		}
	` + "\x00"

	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fragmentShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("link failed: %s", log)
	}

	logger.Debug("globe shader created", zap.Uint32("program", program))
	return program, nil
}

// compileShader compiles a shader from source.
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("compile failed: %s", log)
	}
	return shader, nil
}
