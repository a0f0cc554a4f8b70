// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package glr

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/devblok/sprite/gfx"
)

func wrapMode(w gfx.Wrap) int32 {
	switch w {
	case gfx.WrapClampToEdge:
		return gl.CLAMP_TO_EDGE
	case gfx.WrapMirroredRepeat:
		return gl.MIRRORED_REPEAT
	default:
		return gl.REPEAT
	}
}

func filterMode(f gfx.Filter) int32 {
	switch f {
	case gfx.FilterLinear:
		return gl.LINEAR
	case gfx.FilterLinearMipmapLinear:
		return gl.LINEAR_MIPMAP_LINEAR
	default:
		return gl.NEAREST
	}
}

func newTexture(data gfx.TextureData) (*texture, error) {
	if data.Image == nil {
		return nil, errors.New("glr.UploadTexture(): no pixels")
	}
	bounds := data.Image.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("glr.UploadTexture(): %s is empty", data.Name)
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(data.Image.Stride/4))
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA,
		int32(width),
		int32(height),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(data.Image.Pix))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)

	sampler := data.Sampler
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrapMode(sampler.WrapS))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapMode(sampler.WrapT))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filterMode(sampler.MagFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filterMode(sampler.MinFilter))
	if sampler.Mipmaps {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &id)
		return nil, fmt.Errorf("glr.UploadTexture(): %s: error 0x%x", data.Name, code)
	}

	return &texture{
		id:     id,
		width:  width,
		height: height,
	}, nil
}

type texture struct {
	id     uint32
	width  int
	height int
}

func (t *texture) Handle() uint64 {
	return uint64(t.id)
}

func (t *texture) Width() int {
	return t.width
}

func (t *texture) Height() int {
	return t.height
}

func (t *texture) Release() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}
