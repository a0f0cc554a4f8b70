// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines rendering related features that backends must implement.
package gfx

import (
	"errors"
	"image"

	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/sprite/model"
)

// package errors
var (
	// ErrFrameSkipped is returned when the current frame cannot be
	// rendered or presented, the caller should carry on with the next one.
	ErrFrameSkipped = errors.New("frame skipped")

	// ErrUnsupportedExtent is returned when the surface reports
	// dimensions the backend cannot create a swapchain for.
	ErrUnsupportedExtent = errors.New("unsupported surface extent")
)

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Program is a linked GPU program. Setters take a use flag,
// when set the program is activated before the value is written.
type Program interface {
	Releasable

	// Handle returns the native handle of the program.
	Handle() uint64

	// Use makes the program current.
	Use()

	SetFloat(name string, value float32, use bool)
	SetInteger(name string, value int32, use bool)
	SetVector2f(name string, x, y float32, use bool)
	SetVector2(name string, value glm.Vec2, use bool)
	SetVector3f(name string, x, y, z float32, use bool)
	SetVector3(name string, value glm.Vec3, use bool)
	SetVector4f(name string, x, y, z, w float32, use bool)
	SetVector4(name string, value glm.Vec4, use bool)
	SetMatrix4(name string, value glm.Mat4, use bool)
}

// Texture is an uploaded 2D image.
type Texture interface {
	Releasable

	// Handle returns the native handle of the texture.
	Handle() uint64

	Width() int
	Height() int
}

// Mesh is a vertex and index buffer pair living on the device.
type Mesh interface {
	Releasable

	// IndexCount is the number of indices drawn for the mesh.
	IndexCount() int
}

// ShaderFormat tells which kind of shader input a device consumes.
type ShaderFormat int

// Supported shader formats
const (
	ShaderFormatGLSL ShaderFormat = iota
	ShaderFormatSPIRV
)

// ShaderSource holds the stages of a program before compilation.
// Geometry is optional.
type ShaderSource struct {
	Name     string
	Vertex   []byte
	Fragment []byte
	Geometry []byte
}

// Wrap is a texture coordinate wrapping mode.
type Wrap int

// Wrapping modes
const (
	WrapRepeat Wrap = iota
	WrapClampToEdge
	WrapMirroredRepeat
)

// Filter is a texture sampling filter.
type Filter int

// Sampling filters
const (
	FilterNearest Filter = iota
	FilterLinear
	FilterLinearMipmapLinear
)

// SamplerParams describe how a texture is sampled.
type SamplerParams struct {
	WrapS, WrapT Wrap
	MagFilter    Filter
	MinFilter    Filter
	Mipmaps      bool
}

// DefaultSamplerParams are used for sprite textures.
var DefaultSamplerParams = SamplerParams{
	WrapS:     WrapRepeat,
	WrapT:     WrapRepeat,
	MagFilter: FilterNearest,
	MinFilter: FilterLinearMipmapLinear,
	Mipmaps:   true,
}

// TextureData is decoded pixel data ready for upload.
type TextureData struct {
	Name    string
	Image   *image.RGBA
	Sampler SamplerParams
}

// DrawCall is a single indexed draw.
type DrawCall struct {
	Program     Program
	Texture     Texture
	TextureUnit int
	Mesh        Mesh
}

// Device is the render backend capability. One frame is rendered between
// BeginFrame and EndFrame, EndFrame presents it.
type Device interface {
	Releasable

	// ShaderFormat tells the shader format expected by CompileProgram.
	ShaderFormat() ShaderFormat

	// CompileProgram compiles and links a program from its stages.
	CompileProgram(ShaderSource) (Program, error)

	// UploadTexture uploads pixels and generates mip levels if requested.
	UploadTexture(TextureData) (Texture, error)

	// CreateMesh uploads vertex and index data.
	CreateMesh(vertices []model.Vertex, indices []uint32) (Mesh, error)

	// Resize notifies the device that the surface changed size.
	// Surface bound state is recreated before the next frame.
	Resize(width, height int) error

	// Extent returns the current surface size.
	Extent() (width, height int)

	// BeginFrame prepares the next frame, returns ErrFrameSkipped when
	// the frame has to be dropped.
	BeginFrame() error

	// Draw records a draw call into the current frame.
	Draw(DrawCall) error

	// EndFrame submits and presents the frame. Returns ErrFrameSkipped
	// when presentation failed transiently.
	EndFrame() error
}
