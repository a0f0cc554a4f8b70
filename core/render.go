// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"time"

	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/sprite/gfx"
	"github.com/devblok/sprite/model"
)

// Camera is a perspective camera looking at a fixed point
type Camera struct {
	// FieldOfView is the vertical field of view in degrees
	FieldOfView float32
	Near        float32
	Far         float32

	Eye    glm.Vec3
	Center glm.Vec3
	Up     glm.Vec3
}

// DefaultCamera looks from (0, 0, 4) at the origin with +Y up
func DefaultCamera(fov float32) Camera {
	return Camera{
		FieldOfView: fov,
		Near:        0.1,
		Far:         100,
		Eye:         glm.Vec3{0, 0, 4},
		Center:      glm.Vec3{0, 0, 0},
		Up:          glm.Vec3{0, 1, 0},
	}
}

// Projection returns the perspective projection for the given aspect ratio
func (c Camera) Projection(aspect float32) glm.Mat4 {
	return glm.Perspective(glm.DegToRad(c.FieldOfView), aspect, c.Near, c.Far)
}

// View returns the look-at view matrix
func (c Camera) View() glm.Mat4 {
	return glm.LookAtV(c.Eye, c.Center, c.Up)
}

// ModelViewProjection combines the transforms as projection * view * model
func ModelViewProjection(projection, view, modelMat glm.Mat4) glm.Mat4 {
	return projection.Mul4(view).Mul4(modelMat)
}

// NewSpriteRenderer uploads the quad mesh, the store has to be initialised
// before Draw is called.
func NewSpriteRenderer(device gfx.Device, store *ResourceStore, camera Camera) (*SpriteRenderer, error) {
	mesh, err := device.CreateMesh(model.QuadVertices(), model.QuadIndices())
	if err != nil {
		return nil, Fatal("NewSpriteRenderer()", err)
	}
	return &SpriteRenderer{
		device:  device,
		store:   store,
		camera:  camera,
		mesh:    mesh,
		model:   glm.Ident4(),
		shader:  NewResourceID(SpriteShader),
		texture: NewResourceID(AwesomeFace),
	}, nil
}

// SpriteRenderer draws a single textured quad
type SpriteRenderer struct {
	device gfx.Device
	store  *ResourceStore
	camera Camera
	mesh   gfx.Mesh

	model glm.Mat4
	mvp   glm.Mat4

	shader  ResourceID
	texture ResourceID
}

// Draw records the sprite into the current frame. Projection is rebuilt
// every frame from the current surface extent.
func (s *SpriteRenderer) Draw(dt time.Duration) error {
	width, height := s.device.Extent()
	if width <= 0 || height <= 0 {
		return gfx.ErrFrameSkipped
	}

	s.mvp = ModelViewProjection(
		s.camera.Projection(float32(width)/float32(height)),
		s.camera.View(),
		s.model,
	)

	program, err := s.store.Shader(s.shader)
	if err != nil {
		return errors.New(SpriteShader + ": " + err.Error())
	}
	texture, err := s.store.Texture(s.texture)
	if err != nil {
		return errors.New(AwesomeFace + ": " + err.Error())
	}

	program.Use()
	program.SetMatrix4("MVP", s.mvp, false)

	return s.device.Draw(gfx.DrawCall{
		Program:     program,
		Texture:     texture,
		TextureUnit: 0,
		Mesh:        s.mesh,
	})
}

// MVP returns the transform used by the last Draw
func (s *SpriteRenderer) MVP() glm.Mat4 {
	return s.mvp
}

// Release frees the quad mesh
func (s *SpriteRenderer) Release() {
	if s.mesh != nil {
		s.mesh.Release()
		s.mesh = nil
	}
}
