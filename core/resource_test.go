// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/sprite/core"
	"github.com/devblok/sprite/gfx"
)

func testAssets(t testing.TB) mapAssets {
	return mapAssets{
		"shaders/sprite.vert":      []byte("sprite vertex"),
		"shaders/sprite.frag":      []byte("sprite fragment"),
		"shaders/font.vert":        []byte("font vertex"),
		"shaders/font.frag":        []byte("font fragment"),
		"textures/awesomeface.png": encodePNG(t, stripes(4, 3)),
	}
}

func newTestStore(c *qt.C, device *fakeDevice, assets mapAssets) *core.ResourceStore {
	store := core.NewResourceStore(device, assets, core.DefaultManifest(), core.AssetsConfiguration{FlipTextures: true})
	c.Assert(store.Initialise(), qt.IsNil)
	return store
}

func TestResourceIDIsStable(t *testing.T) {
	c := qt.New(t)
	c.Assert(core.NewResourceID(core.SpriteShader), qt.Equals, core.NewResourceID("sprite_shader"))

	seen := make(map[core.ResourceID]string)
	for _, name := range []string{core.SpriteShader, core.TextShader, core.AwesomeFace} {
		id := core.NewResourceID(name)
		other, ok := seen[id]
		c.Assert(ok, qt.Equals, false, qt.Commentf("%s collides with %s", name, other))
		seen[id] = name
	}
}

func TestInitialiseRegistersManifest(t *testing.T) {
	c := qt.New(t)
	device := newFakeDevice(1280, 720)
	store := newTestStore(c, device, testAssets(t))

	c.Assert(store.ShaderCount(), qt.Equals, 2)
	c.Assert(store.TextureCount(), qt.Equals, 1)

	sprite, err := store.Shader(core.NewResourceID(core.SpriteShader))
	c.Assert(err, qt.IsNil)
	c.Assert(string(sprite.(*fakeProgram).source.Vertex), qt.Equals, "sprite vertex")
	c.Assert(string(sprite.(*fakeProgram).source.Fragment), qt.Equals, "sprite fragment")
	c.Assert(sprite.(*fakeProgram).source.Geometry, qt.IsNil)

	text, err := store.Shader(core.NewResourceID(core.TextShader))
	c.Assert(err, qt.IsNil)
	c.Assert(string(text.(*fakeProgram).source.Vertex), qt.Equals, "font vertex")
	c.Assert(text.Handle(), qt.Not(qt.Equals), sprite.Handle())

	face, err := store.Texture(core.NewResourceID(core.AwesomeFace))
	c.Assert(err, qt.IsNil)
	c.Assert(face.Width(), qt.Equals, 4)
	c.Assert(face.Height(), qt.Equals, 3)
	c.Assert(face.(*fakeTexture).data.Sampler, qt.Equals, gfx.DefaultSamplerParams)

	name, ok := store.Name(core.NewResourceID(core.AwesomeFace))
	c.Assert(ok, qt.Equals, true)
	c.Assert(name, qt.Equals, core.AwesomeFace)
}

func TestTexturesAreFlipped(t *testing.T) {
	c := qt.New(t)
	for _, flip := range []bool{true, false} {
		device := newFakeDevice(1280, 720)
		store := core.NewResourceStore(device, testAssets(t), core.DefaultManifest(), core.AssetsConfiguration{FlipTextures: flip})
		c.Assert(store.Initialise(), qt.IsNil)

		face, err := store.Texture(core.NewResourceID(core.AwesomeFace))
		c.Assert(err, qt.IsNil)
		firstRow := face.(*fakeTexture).data.Image.RGBAAt(0, 0).R
		if flip {
			c.Assert(firstRow, qt.Equals, uint8(20))
		} else {
			c.Assert(firstRow, qt.Equals, uint8(0))
		}
	}
}

func TestUnknownResource(t *testing.T) {
	c := qt.New(t)
	store := newTestStore(c, newFakeDevice(1280, 720), testAssets(t))

	_, err := store.Shader(core.NewResourceID("missing"))
	c.Assert(err, qt.Equals, core.ErrUnknownResource)

	_, err = store.Texture(core.NewResourceID(core.SpriteShader))
	c.Assert(err, qt.Equals, core.ErrUnknownResource)
}

func TestInitialiseFailuresAreFatal(t *testing.T) {
	c := qt.New(t)

	assets := testAssets(t)
	delete(assets, "shaders/font.frag")
	store := core.NewResourceStore(newFakeDevice(1280, 720), assets, core.DefaultManifest(), core.AssetsConfiguration{})
	err := store.Initialise()
	c.Assert(core.IsFatal(err), qt.Equals, true)
	c.Assert(err, qt.ErrorMatches, `.*shaders/font\.frag.*`)

	device := newFakeDevice(1280, 720)
	device.compileErr = errors.New("0:1(1): error: syntax error")
	store = core.NewResourceStore(device, testAssets(t), core.DefaultManifest(), core.AssetsConfiguration{})
	err = store.Initialise()
	c.Assert(core.IsFatal(err), qt.Equals, true)
	c.Assert(err, qt.ErrorMatches, `ResourceStore.Initialise\(\): shader sprite_shader: 0:1\(1\): error: syntax error`)

	assets = testAssets(t)
	assets["textures/awesomeface.png"] = []byte("garbage")
	store = core.NewResourceStore(newFakeDevice(1280, 720), assets, core.DefaultManifest(), core.AssetsConfiguration{})
	err = store.Initialise()
	c.Assert(core.IsFatal(err), qt.Equals, true)
	c.Assert(err, qt.ErrorMatches, `.*texture awesome_face: image decode failed.*`)
}

func TestSpirvShadersUseBinarySuffix(t *testing.T) {
	c := qt.New(t)
	device := newFakeDevice(1280, 720)
	device.format = gfx.ShaderFormatSPIRV

	assets := testAssets(t)
	for _, name := range []string{"sprite.vert", "sprite.frag", "font.vert", "font.frag"} {
		assets["shaders/"+name+".spv"] = []byte("spirv " + name)
	}
	store := newTestStore(c, device, assets)

	sprite, err := store.Shader(core.NewResourceID(core.SpriteShader))
	c.Assert(err, qt.IsNil)
	c.Assert(string(sprite.(*fakeProgram).source.Vertex), qt.Equals, "spirv sprite.vert")
}

func TestShutdownReleasesEverything(t *testing.T) {
	c := qt.New(t)
	device := newFakeDevice(1280, 720)
	store := newTestStore(c, device, testAssets(t))

	store.Shutdown()
	c.Assert(store.ShaderCount(), qt.Equals, 0)
	c.Assert(store.TextureCount(), qt.Equals, 0)
	for _, p := range device.programs {
		c.Assert(p.released, qt.Equals, true)
	}
	for _, tex := range device.textures {
		c.Assert(tex.released, qt.Equals, true)
	}

	_, err := store.Shader(core.NewResourceID(core.SpriteShader))
	c.Assert(err, qt.Equals, core.ErrUnknownResource)
	_, ok := store.Name(core.NewResourceID(core.SpriteShader))
	c.Assert(ok, qt.Equals, false)

	// second call has nothing left to release
	store.Shutdown()
	c.Assert(store.ShaderCount(), qt.Equals, 0)
}

func TestReloadReleasesPrevious(t *testing.T) {
	c := qt.New(t)
	device := newFakeDevice(1280, 720)
	store := newTestStore(c, device, testAssets(t))

	_, err := store.LoadShader(core.DefaultManifest().Shaders[0])
	c.Assert(err, qt.IsNil)
	c.Assert(store.ShaderCount(), qt.Equals, 2)
	c.Assert(device.programs[0].released, qt.Equals, true)
	c.Assert(device.programs[2].released, qt.Equals, false)
}

func TestFatalError(t *testing.T) {
	c := qt.New(t)
	c.Assert(core.Fatal("op", nil), qt.IsNil)

	inner := errors.New("boom")
	err := core.Fatal("Device.Create()", inner)
	c.Assert(err, qt.ErrorMatches, `Device.Create\(\): boom`)
	c.Assert(errors.Is(err, inner), qt.Equals, true)
	c.Assert(core.IsFatal(err), qt.Equals, true)
	c.Assert(core.IsFatal(inner), qt.Equals, false)
}
