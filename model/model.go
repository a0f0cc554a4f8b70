// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package model holds the vertex layouts and fixed meshes the renderers
// consume. Layouts are shared between backends, so field order matters.
package model

import (
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Vertex is an interleaved sprite vertex: position, color, texture coordinate.
type Vertex struct {
	Pos   glm.Vec3
	Color glm.Vec3
	UV    glm.Vec2
}

// Attribute describes where a single vertex attribute lives inside Vertex.
type Attribute struct {
	Location   uint32
	Components int32
	Offset     uintptr
}

// VertexStride is the size of one Vertex in bytes.
const VertexStride = int32(unsafe.Sizeof(Vertex{}))

// VertexAttributes returns the attribute layout of Vertex,
// in shader location order.
func VertexAttributes() []Attribute {
	return []Attribute{
		{Location: 0, Components: 3, Offset: unsafe.Offsetof(Vertex{}.Pos)},
		{Location: 1, Components: 3, Offset: unsafe.Offsetof(Vertex{}.Color)},
		{Location: 2, Components: 2, Offset: unsafe.Offsetof(Vertex{}.UV)},
	}
}

// Uniform is the per-draw transform block. Only the combined
// model-view-projection matrix is sent to the shaders.
type Uniform struct {
	MVP glm.Mat4
}

// QuadVertices returns the four corners of a unit quad centered
// on the origin, each corner tinted differently.
func QuadVertices() []Vertex {
	return []Vertex{
		{Pos: glm.Vec3{0.5, 0.5, 0}, Color: glm.Vec3{1, 0, 0}, UV: glm.Vec2{1, 1}},   // top right
		{Pos: glm.Vec3{0.5, -0.5, 0}, Color: glm.Vec3{0, 1, 0}, UV: glm.Vec2{1, 0}},  // bottom right
		{Pos: glm.Vec3{-0.5, -0.5, 0}, Color: glm.Vec3{0, 0, 1}, UV: glm.Vec2{0, 0}}, // bottom left
		{Pos: glm.Vec3{-0.5, 0.5, 0}, Color: glm.Vec3{1, 1, 0}, UV: glm.Vec2{0, 1}},  // top left
	}
}

// QuadIndices returns the two triangles forming the quad.
func QuadIndices() []uint32 {
	return []uint32{
		0, 1, 3,
		1, 2, 3,
	}
}
