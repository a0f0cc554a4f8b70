// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/sprite/gfx"
)

type stage struct {
	kind   uint32
	name   string
	source []byte
}

func newProgram(source gfx.ShaderSource) (*program, error) {
	stages := []stage{
		{kind: gl.VERTEX_SHADER, name: "vertex", source: source.Vertex},
		{kind: gl.FRAGMENT_SHADER, name: "fragment", source: source.Fragment},
	}
	if len(source.Geometry) > 0 {
		stages = append(stages, stage{kind: gl.GEOMETRY_SHADER, name: "geometry", source: source.Geometry})
	}

	var shaders []uint32
	defer func() {
		for _, shader := range shaders {
			gl.DeleteShader(shader)
		}
	}()

	for _, s := range stages {
		shader, err := compileShader(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %s", source.Name, err.Error())
		}
		shaders = append(shaders, shader)
	}

	id := gl.CreateProgram()
	for _, shader := range shaders {
		gl.AttachShader(id, shader)
	}
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		info := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(info))
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("%s: link failed: %s", source.Name, strings.TrimRight(info, "\x00"))
	}

	for _, shader := range shaders {
		gl.DetachShader(id, shader)
	}

	return &program{
		id:        id,
		locations: make(map[string]int32),
	}, nil
}

func compileShader(s stage) (uint32, error) {
	shader := gl.CreateShader(s.kind)
	csources, free := gl.Strs(string(s.source) + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		info := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(info))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s stage failed to compile: %s", s.name, strings.TrimRight(info, "\x00"))
	}
	return shader, nil
}

// program is a linked GL program with a cache of uniform locations
type program struct {
	id        uint32
	locations map[string]int32
}

func (p *program) Handle() uint64 {
	return uint64(p.id)
}

func (p *program) Use() {
	gl.UseProgram(p.id)
}

func (p *program) Release() {
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
	p.locations = make(map[string]int32)
}

// location returns -1 for names the linker dropped, GL ignores writes to it
func (p *program) location(name string, use bool) int32 {
	if use {
		p.Use()
	}
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locations[name] = loc
	return loc
}

func (p *program) SetFloat(name string, value float32, use bool) {
	gl.Uniform1f(p.location(name, use), value)
}

func (p *program) SetInteger(name string, value int32, use bool) {
	gl.Uniform1i(p.location(name, use), value)
}

func (p *program) SetVector2f(name string, x, y float32, use bool) {
	gl.Uniform2f(p.location(name, use), x, y)
}

func (p *program) SetVector2(name string, value glm.Vec2, use bool) {
	gl.Uniform2f(p.location(name, use), value.X(), value.Y())
}

func (p *program) SetVector3f(name string, x, y, z float32, use bool) {
	gl.Uniform3f(p.location(name, use), x, y, z)
}

func (p *program) SetVector3(name string, value glm.Vec3, use bool) {
	gl.Uniform3f(p.location(name, use), value.X(), value.Y(), value.Z())
}

func (p *program) SetVector4f(name string, x, y, z, w float32, use bool) {
	gl.Uniform4f(p.location(name, use), x, y, z, w)
}

func (p *program) SetVector4(name string, value glm.Vec4, use bool) {
	gl.Uniform4f(p.location(name, use), value.X(), value.Y(), value.Z(), value.W())
}

func (p *program) SetMatrix4(name string, value glm.Mat4, use bool) {
	gl.UniformMatrix4fv(p.location(name, use), 1, false, &value[0])
}
