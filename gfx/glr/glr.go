// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package glr is the OpenGL 4.1 core backend. It expects a current
// context on the calling thread for its entire lifetime.
package glr

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/sprite/core"
	"github.com/devblok/sprite/gfx"
	"github.com/devblok/sprite/model"
)

// Surface is the window side of the context
type Surface interface {
	// Swap presents the back buffer
	Swap()
}

// NewDevice initialises the function pointers of the current context
// and sets up the fixed pipeline state.
func NewDevice(surface Surface, cfg core.RendererConfiguration, width, height int) (gfx.Device, error) {
	if err := gl.Init(); err != nil {
		return nil, errors.New("gl.Init(): " + err.Error())
	}

	log.WithFields(log.Fields{
		"version":  gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer": gl.GoStr(gl.GetString(gl.RENDERER)),
		"glsl":     gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)),
	}).Info("OpenGL context ready")

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.FRAMEBUFFER_SRGB)
	if cfg.Multisampling > 0 {
		gl.Enable(gl.MULTISAMPLE)
	}

	color := cfg.ClearColor
	gl.ClearColor(color[0], color[1], color[2], color[3])

	d := &Device{
		surface: surface,
	}
	if err := d.Resize(width, height); err != nil {
		return nil, err
	}
	return d, nil
}

// Device renders through an OpenGL context
type Device struct {
	surface Surface
	width   int
	height  int
	inFrame bool
}

// ShaderFormat implements gfx.Device
func (d *Device) ShaderFormat() gfx.ShaderFormat {
	return gfx.ShaderFormatGLSL
}

// CompileProgram implements gfx.Device
func (d *Device) CompileProgram(source gfx.ShaderSource) (gfx.Program, error) {
	return newProgram(source)
}

// UploadTexture implements gfx.Device
func (d *Device) UploadTexture(data gfx.TextureData) (gfx.Texture, error) {
	return newTexture(data)
}

// CreateMesh implements gfx.Device
func (d *Device) CreateMesh(vertices []model.Vertex, indices []uint32) (gfx.Mesh, error) {
	return newMesh(vertices, indices)
}

// Resize implements gfx.Device. The default framebuffer follows the
// window, only the viewport has to change.
func (d *Device) Resize(width, height int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("negative extent %dx%d", width, height)
	}
	d.width, d.height = width, height
	if width > 0 && height > 0 {
		gl.Viewport(0, 0, int32(width), int32(height))
	}
	return nil
}

// Extent implements gfx.Device
func (d *Device) Extent() (int, int) {
	return d.width, d.height
}

// BeginFrame implements gfx.Device, a minimised window skips frames
func (d *Device) BeginFrame() error {
	if d.width == 0 || d.height == 0 {
		return gfx.ErrFrameSkipped
	}
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	d.inFrame = true
	return nil
}

// Draw implements gfx.Device
func (d *Device) Draw(call gfx.DrawCall) error {
	if !d.inFrame {
		return errors.New("glr.Draw(): no frame in progress")
	}
	prog, ok := call.Program.(*program)
	if !ok {
		return fmt.Errorf("glr.Draw(): foreign program %T", call.Program)
	}
	m, ok := call.Mesh.(*mesh)
	if !ok {
		return fmt.Errorf("glr.Draw(): foreign mesh %T", call.Mesh)
	}

	prog.Use()
	if call.Texture != nil {
		tex, ok := call.Texture.(*texture)
		if !ok {
			return fmt.Errorf("glr.Draw(): foreign texture %T", call.Texture)
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(call.TextureUnit))
		gl.BindTexture(gl.TEXTURE_2D, tex.id)
	}

	gl.BindVertexArray(m.vao)
	gl.DrawElements(gl.TRIANGLES, int32(m.count), gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("glr.Draw(): error 0x%x", code)
	}
	return nil
}

// EndFrame implements gfx.Device, swapping the window buffers
func (d *Device) EndFrame() error {
	if !d.inFrame {
		return errors.New("glr.EndFrame(): no frame in progress")
	}
	d.inFrame = false
	d.surface.Swap()
	return nil
}

// Release implements gfx.Releasable. Resources created by the device
// are released by their owners, the context itself belongs to the window.
func (d *Device) Release() {
	gl.UseProgram(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.Finish()
}
