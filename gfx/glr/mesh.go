// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"errors"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/devblok/sprite/model"
)

func newMesh(vertices []model.Vertex, indices []uint32) (*mesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, errors.New("glr.CreateMesh(): empty mesh")
	}

	m := &mesh{count: len(indices)}

	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(
		gl.ARRAY_BUFFER,
		len(vertices)*int(unsafe.Sizeof(model.Vertex{})),
		gl.Ptr(vertices),
		gl.STATIC_DRAW)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(
		gl.ELEMENT_ARRAY_BUFFER,
		len(indices)*4,
		gl.Ptr(indices),
		gl.STATIC_DRAW)

	for _, attr := range model.VertexAttributes() {
		gl.VertexAttribPointer(attr.Location, attr.Components, gl.FLOAT, false, model.VertexStride, gl.PtrOffset(int(attr.Offset)))
		gl.EnableVertexAttribArray(attr.Location)
	}

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return m, nil
}

// mesh keeps the element buffer bound in its vertex array
type mesh struct {
	vao   uint32
	vbo   uint32
	ebo   uint32
	count int
}

func (m *mesh) IndexCount() int {
	return m.count
}

func (m *mesh) Release() {
	if m.vao == 0 {
		return
	}
	gl.DeleteBuffers(1, &m.ebo)
	gl.DeleteBuffers(1, &m.vbo)
	gl.DeleteVertexArrays(1, &m.vao)
	m.vao, m.vbo, m.ebo = 0, 0, 0
}
