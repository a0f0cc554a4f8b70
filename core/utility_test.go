// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/sprite/core"
)

// stripes returns an image where every row has its own red value
func stripes(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(y * 10), G: uint8(x), B: 0, A: 255})
		}
	}
	return img
}

func encodePNG(t testing.TB, img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestGetPixelsKeepsOrientation(t *testing.T) {
	c := qt.New(t)
	pixels := core.GetPixels(stripes(3, 4), false)

	c.Assert(pixels.Bounds().Dx(), qt.Equals, 3)
	c.Assert(pixels.Bounds().Dy(), qt.Equals, 4)
	c.Assert(pixels.Pix, qt.HasLen, 3*4*4)
	c.Assert(pixels.RGBAAt(0, 0).R, qt.Equals, uint8(0))
	c.Assert(pixels.RGBAAt(2, 3).R, qt.Equals, uint8(30))
	c.Assert(pixels.RGBAAt(2, 3).G, qt.Equals, uint8(2))
}

func TestGetPixelsFlipped(t *testing.T) {
	c := qt.New(t)
	pixels := core.GetPixels(stripes(3, 5), true)

	for y := 0; y < 5; y++ {
		c.Assert(pixels.RGBAAt(1, y).R, qt.Equals, uint8((4-y)*10))
		c.Assert(pixels.RGBAAt(1, y).G, qt.Equals, uint8(1))
	}
}

func TestGetPixelsRebasesBounds(t *testing.T) {
	c := qt.New(t)
	sub := stripes(4, 4).SubImage(image.Rect(1, 1, 3, 3))
	pixels := core.GetPixels(sub, false)

	c.Assert(pixels.Bounds(), qt.Equals, image.Rect(0, 0, 2, 2))
	c.Assert(pixels.RGBAAt(0, 0).R, qt.Equals, uint8(10))
}

func TestDecodeTexture(t *testing.T) {
	c := qt.New(t)
	data := encodePNG(t, stripes(2, 2))

	pixels, err := core.DecodeTexture(data, true)
	c.Assert(err, qt.IsNil)
	c.Assert(pixels.RGBAAt(0, 0).R, qt.Equals, uint8(10))

	_, err = core.DecodeTexture([]byte("not an image"), false)
	c.Assert(err, qt.ErrorMatches, "image decode failed: .*")
}

func BenchmarkGetPixels(b *testing.B) {
	img := stripes(256, 256)
	for idx := 0; idx < b.N; idx++ {
		core.GetPixels(img, false)
	}
}

func BenchmarkGetPixelsFlipped(b *testing.B) {
	img := stripes(256, 256)
	for idx := 0; idx < b.N; idx++ {
		core.GetPixels(img, true)
	}
}
