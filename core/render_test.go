// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/sprite/core"
	"github.com/devblok/sprite/gfx"
)

func approx(c *qt.C, got, want glm.Vec4) {
	c.Helper()
	c.Assert(got.ApproxEqualThreshold(want, 1e-5), qt.Equals, true, qt.Commentf("got %v, want %v", got, want))
}

func TestModelViewProjectionOrder(t *testing.T) {
	c := qt.New(t)
	camera := core.DefaultCamera(90)
	projection := camera.Projection(1)
	view := camera.View()
	modelMat := glm.Translate3D(1, 0, 0)

	mvp := core.ModelViewProjection(projection, view, modelMat)
	c.Assert(mvp.ApproxEqual(projection.Mul4(view).Mul4(modelMat)), qt.Equals, true)
	c.Assert(mvp.ApproxEqual(modelMat.Mul4(view).Mul4(projection)), qt.Equals, false)

	// (-0.5, 0.5) moved to (0.5, 0.5), 4 units in front of the eye.
	// With a 90 degree field of view and square aspect, x and y
	// are divided by the distance only.
	clip := mvp.Mul4x1(glm.Vec4{-0.5, 0.5, 0, 1})
	c.Assert(glm.FloatEqualThreshold(clip.W(), 4, 1e-5), qt.Equals, true)
	approx(c, clip.Mul(1/clip.W()), glm.Vec4{0.125, 0.125, clip.Z() / clip.W(), 1})
}

func TestProjectionUsesAspect(t *testing.T) {
	c := qt.New(t)
	camera := core.DefaultCamera(90)
	mvp := core.ModelViewProjection(camera.Projection(16.0/9.0), camera.View(), glm.Ident4())

	clip := mvp.Mul4x1(glm.Vec4{0.5, 0.5, 0, 1})
	c.Assert(glm.FloatEqualThreshold(clip.X()/clip.W(), 0.5*9.0/16.0/4, 1e-5), qt.Equals, true)
	c.Assert(glm.FloatEqualThreshold(clip.Y()/clip.W(), 0.125, 1e-5), qt.Equals, true)
}

func newTestRenderer(c *qt.C, device *fakeDevice) *core.SpriteRenderer {
	store := newTestStore(c, device, testAssets(c.TB))
	renderer, err := core.NewSpriteRenderer(device, store, core.DefaultCamera(90))
	c.Assert(err, qt.IsNil)
	return renderer
}

func TestSpriteRendererDraw(t *testing.T) {
	c := qt.New(t)
	device := newFakeDevice(1280, 720)
	renderer := newTestRenderer(c, device)

	c.Assert(device.meshes, qt.HasLen, 1)
	c.Assert(device.meshes[0].IndexCount(), qt.Equals, 6)

	c.Assert(device.BeginFrame(), qt.IsNil)
	c.Assert(renderer.Draw(16*time.Millisecond), qt.IsNil)
	c.Assert(device.EndFrame(), qt.IsNil)

	c.Assert(device.draws, qt.HasLen, 1)
	draw := device.draws[0]
	c.Assert(draw.call.Program.(*fakeProgram).source.Name, qt.Equals, core.SpriteShader)
	c.Assert(draw.call.Texture.(*fakeTexture).data.Name, qt.Equals, core.AwesomeFace)
	c.Assert(draw.call.Mesh, qt.Equals, gfx.Mesh(device.meshes[0]))
	c.Assert(draw.call.Program.(*fakeProgram).used, qt.Equals, 1)

	camera := core.DefaultCamera(90)
	want := core.ModelViewProjection(camera.Projection(1280.0/720.0), camera.View(), glm.Ident4())
	c.Assert(draw.mvp.ApproxEqual(want), qt.Equals, true)
	c.Assert(renderer.MVP().ApproxEqual(want), qt.Equals, true)

	renderer.Release()
	c.Assert(device.meshes[0].released, qt.Equals, true)
	renderer.Release()
}

func TestSpriteRendererFollowsResize(t *testing.T) {
	c := qt.New(t)
	device := newFakeDevice(1280, 720)
	renderer := newTestRenderer(c, device)

	c.Assert(device.Resize(800, 600), qt.IsNil)
	c.Assert(device.BeginFrame(), qt.IsNil)
	c.Assert(renderer.Draw(0), qt.IsNil)
	c.Assert(device.EndFrame(), qt.IsNil)

	draw := device.draws[0]
	c.Assert(draw.width, qt.Equals, 800)
	c.Assert(draw.height, qt.Equals, 600)

	camera := core.DefaultCamera(90)
	want := core.ModelViewProjection(camera.Projection(800.0/600.0), camera.View(), glm.Ident4())
	c.Assert(draw.mvp.ApproxEqual(want), qt.Equals, true)
}

func TestSpriteRendererMissingResources(t *testing.T) {
	c := qt.New(t)
	device := newFakeDevice(1280, 720)
	store := core.NewResourceStore(device, testAssets(t), core.DefaultManifest(), core.AssetsConfiguration{})
	renderer, err := core.NewSpriteRenderer(device, store, core.DefaultCamera(90))
	c.Assert(err, qt.IsNil)

	c.Assert(device.BeginFrame(), qt.IsNil)
	err = renderer.Draw(0)
	c.Assert(err, qt.ErrorMatches, "sprite_shader: unknown resource name")
	c.Assert(device.draws, qt.HasLen, 0)
}

func TestSpriteRendererSkipsEmptySurface(t *testing.T) {
	c := qt.New(t)
	device := newFakeDevice(1280, 720)
	renderer := newTestRenderer(c, device)

	device.Resize(0, 0)
	c.Assert(renderer.Draw(0), qt.Equals, gfx.ErrFrameSkipped)
}
