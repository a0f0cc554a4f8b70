// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/devblok/sprite/gfx"
)

func TestSamplerModes(t *testing.T) {
	c := qt.New(t)

	c.Assert(wrapMode(gfx.WrapRepeat), qt.Equals, int32(gl.REPEAT))
	c.Assert(wrapMode(gfx.WrapClampToEdge), qt.Equals, int32(gl.CLAMP_TO_EDGE))
	c.Assert(wrapMode(gfx.WrapMirroredRepeat), qt.Equals, int32(gl.MIRRORED_REPEAT))

	c.Assert(filterMode(gfx.FilterNearest), qt.Equals, int32(gl.NEAREST))
	c.Assert(filterMode(gfx.FilterLinear), qt.Equals, int32(gl.LINEAR))
	c.Assert(filterMode(gfx.FilterLinearMipmapLinear), qt.Equals, int32(gl.LINEAR_MIPMAP_LINEAR))

	sampler := gfx.DefaultSamplerParams
	c.Assert(wrapMode(sampler.WrapS), qt.Equals, int32(gl.REPEAT))
	c.Assert(filterMode(sampler.MagFilter), qt.Equals, int32(gl.NEAREST))
	c.Assert(filterMode(sampler.MinFilter), qt.Equals, int32(gl.LINEAR_MIPMAP_LINEAR))
}

func TestDeviceRejectsDrawOutsideFrame(t *testing.T) {
	c := qt.New(t)
	d := &Device{width: 1280, height: 720}

	c.Assert(d.Draw(gfx.DrawCall{}), qt.ErrorMatches, `glr.Draw\(\): no frame in progress`)
	c.Assert(d.EndFrame(), qt.ErrorMatches, `glr.EndFrame\(\): no frame in progress`)

	d.width, d.height = 0, 0
	c.Assert(d.BeginFrame(), qt.Equals, gfx.ErrFrameSkipped)
	w, h := d.Extent()
	c.Assert([]int{w, h}, qt.DeepEquals, []int{0, 0})
}
