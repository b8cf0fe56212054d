package opengl

import (
	"strings"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/pkg/errors"

	"render-pipeline/math"
)

// program is a linked shader program with a lazily filled uniform
// location cache.
type program struct {
	name string
	id   uint32
	locs map[string]int32
}

func newShader(name, vertSrc, fragSrc string) (*program, error) {
	id, err := newProgram(vertSrc, fragSrc)
	if err != nil {
		return nil, errors.Wrapf(err, "%s shader", name)
	}
	return &program{name: name, id: id, locs: make(map[string]int32)}, nil
}

// withDefines inserts #define lines right after the #version directive.
func withDefines(src string, defines ...string) string {
	if len(defines) == 0 {
		return src
	}
	var b strings.Builder
	for _, d := range defines {
		b.WriteString("#define " + d + "\n")
	}
	i := strings.Index(src, "\n#version")
	if i < 0 {
		return b.String() + src
	}
	end := strings.Index(src[i+1:], "\n") + i + 2
	return src[:end] + b.String() + src[end:]
}

func (p *program) use() {
	gl.UseProgram(p.id)
}

// loc returns the location of a uniform, -1 when the linker dropped it.
func (p *program) loc(name string) int32 {
	if l, ok := p.locs[name]; ok {
		return l
	}
	l := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locs[name] = l
	return l
}

func (p *program) setInt(name string, v int32) {
	gl.Uniform1i(p.loc(name), v)
}

func (p *program) setBool(name string, v bool) {
	var i int32
	if v {
		i = 1
	}
	gl.Uniform1i(p.loc(name), i)
}

func (p *program) setFloat(name string, v float32) {
	gl.Uniform1f(p.loc(name), v)
}

func (p *program) setVec2(name string, x, y float32) {
	gl.Uniform2f(p.loc(name), x, y)
}

func (p *program) setVec3(name string, v math.Vec3) {
	gl.Uniform3f(p.loc(name), v.X, v.Y, v.Z)
}

func (p *program) setVec4(name string, x, y, z, w float32) {
	gl.Uniform4f(p.loc(name), x, y, z, w)
}

// setMat4 uploads a row-vector matrix untransposed: GLSL sees the
// transpose, so "m * v" in a shader equals v·m on the CPU side.
func (p *program) setMat4(name string, m math.Mat4) {
	gl.UniformMatrix4fv(p.loc(name), 1, false, m.Ptr())
}

func (p *program) setVec3Array(name string, vs []math.Vec3) {
	if len(vs) == 0 {
		return
	}
	gl.Uniform3fv(p.loc(name+"[0]"), int32(len(vs)), (*float32)(unsafe.Pointer(&vs[0])))
}

func (p *program) setFloatArray(name string, vs []float32) {
	if len(vs) == 0 {
		return
	}
	gl.Uniform1fv(p.loc(name+"[0]"), int32(len(vs)), &vs[0])
}

func (p *program) setIntArray(name string, vs []int32) {
	if len(vs) == 0 {
		return
	}
	gl.Uniform1iv(p.loc(name+"[0]"), int32(len(vs)), &vs[0])
}

func (p *program) setMat4Array(name string, ms []math.Mat4) {
	if len(ms) == 0 {
		return
	}
	gl.UniformMatrix4fv(p.loc(name+"[0]"), int32(len(ms)), false, &ms[0][0][0])
}

// setTexture binds tex to unit and points the sampler at it.
func (p *program) setTexture(name string, tex uint32, unit int32) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.Uniform1i(p.loc(name), unit)
}

func (p *program) destroy() {
	if p != nil && p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}

func newProgram(vertSrc, fragSrc string) (uint32, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, errors.Wrap(err, "vertex")
	}
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vert)
		return 0, errors.Wrap(err, "fragment")
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)
	gl.DeleteShader(vert)
	gl.DeleteShader(frag)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, errors.Errorf("link failed: %v", log)
	}
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, errors.Errorf("compile failed: %v", log)
	}
	return shader, nil
}
