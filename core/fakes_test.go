// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"errors"
	"os"

	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/sprite/core"
	"github.com/devblok/sprite/gfx"
	"github.com/devblok/sprite/model"
)

type fakeProgram struct {
	handle   uint64
	source   gfx.ShaderSource
	released bool
	used     int
	matrices map[string]glm.Mat4
}

func (p *fakeProgram) Release()       { p.released = true }
func (p *fakeProgram) Handle() uint64 { return p.handle }
func (p *fakeProgram) Use()           { p.used++ }

func (p *fakeProgram) SetFloat(string, float32, bool)                               {}
func (p *fakeProgram) SetInteger(string, int32, bool)                               {}
func (p *fakeProgram) SetVector2f(string, float32, float32, bool)                   {}
func (p *fakeProgram) SetVector2(string, glm.Vec2, bool)                            {}
func (p *fakeProgram) SetVector3f(string, float32, float32, float32, bool)          {}
func (p *fakeProgram) SetVector3(string, glm.Vec3, bool)                            {}
func (p *fakeProgram) SetVector4f(string, float32, float32, float32, float32, bool) {}
func (p *fakeProgram) SetVector4(string, glm.Vec4, bool)                            {}

func (p *fakeProgram) SetMatrix4(name string, value glm.Mat4, use bool) {
	if use {
		p.Use()
	}
	p.matrices[name] = value
}

type fakeTexture struct {
	handle   uint64
	data     gfx.TextureData
	released bool
}

func (t *fakeTexture) Release()       { t.released = true }
func (t *fakeTexture) Handle() uint64 { return t.handle }
func (t *fakeTexture) Width() int     { return t.data.Image.Bounds().Dx() }
func (t *fakeTexture) Height() int    { return t.data.Image.Bounds().Dy() }

type fakeMesh struct {
	indices  int
	released bool
}

func (m *fakeMesh) Release()        { m.released = true }
func (m *fakeMesh) IndexCount() int { return m.indices }

type drawRecord struct {
	call   gfx.DrawCall
	width  int
	height int
	mvp    glm.Mat4
}

// fakeDevice keeps a real swapchain state machine, acquire and present
// outcomes are scripted per frame number.
type fakeDevice struct {
	format     gfx.ShaderFormat
	compileErr error

	swapchain *gfx.SwapchainTracker
	acquire   map[int]gfx.PresentResult
	present   map[int]gfx.PresentResult

	nextHandle uint64
	programs   []*fakeProgram
	textures   []*fakeTexture
	meshes     []*fakeMesh

	frame    int
	inFrame  bool
	draws    []drawRecord
	resizes  [][2]int
	released bool
}

func newFakeDevice(width, height int) *fakeDevice {
	return &fakeDevice{
		swapchain: gfx.NewSwapchainTracker(width, height),
		acquire:   make(map[int]gfx.PresentResult),
		present:   make(map[int]gfx.PresentResult),
	}
}

func (d *fakeDevice) handle() uint64 {
	d.nextHandle++
	return d.nextHandle
}

func (d *fakeDevice) Release()                       { d.released = true }
func (d *fakeDevice) ShaderFormat() gfx.ShaderFormat { return d.format }

func (d *fakeDevice) CompileProgram(source gfx.ShaderSource) (gfx.Program, error) {
	if d.compileErr != nil {
		return nil, d.compileErr
	}
	p := &fakeProgram{handle: d.handle(), source: source, matrices: make(map[string]glm.Mat4)}
	d.programs = append(d.programs, p)
	return p, nil
}

func (d *fakeDevice) UploadTexture(data gfx.TextureData) (gfx.Texture, error) {
	t := &fakeTexture{handle: d.handle(), data: data}
	d.textures = append(d.textures, t)
	return t, nil
}

func (d *fakeDevice) CreateMesh(vertices []model.Vertex, indices []uint32) (gfx.Mesh, error) {
	m := &fakeMesh{indices: len(indices)}
	d.meshes = append(d.meshes, m)
	return m, nil
}

func (d *fakeDevice) Resize(width, height int) error {
	d.resizes = append(d.resizes, [2]int{width, height})
	d.swapchain.Resized(width, height)
	return nil
}

func (d *fakeDevice) Extent() (int, int) {
	return d.swapchain.Extent()
}

func (d *fakeDevice) BeginFrame() error {
	d.frame++
	err := d.swapchain.Recreate(func(width, height int) (int, int, error) {
		return width, height, nil
	})
	if err != nil {
		return err
	}
	if err := d.swapchain.Acquired(d.acquire[d.frame]); err != nil {
		return err
	}
	d.inFrame = true
	return nil
}

func (d *fakeDevice) Draw(call gfx.DrawCall) error {
	if !d.inFrame {
		return errors.New("draw outside of frame")
	}
	width, height := d.Extent()
	record := drawRecord{call: call, width: width, height: height}
	if p, ok := call.Program.(*fakeProgram); ok {
		record.mvp = p.matrices["MVP"]
	}
	d.draws = append(d.draws, record)
	return nil
}

func (d *fakeDevice) EndFrame() error {
	if !d.inFrame {
		return errors.New("frame was not begun")
	}
	d.inFrame = false
	return d.swapchain.Presented(d.present[d.frame])
}

type mapAssets map[string][]byte

func (m mapAssets) ReadAsset(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

type fakeWindow struct {
	events [][]core.Event
	title  string
	polls  int
}

func (w *fakeWindow) PollEvents() []core.Event {
	w.polls++
	if len(w.events) == 0 {
		return nil
	}
	next := w.events[0]
	w.events = w.events[1:]
	return next
}

func (w *fakeWindow) SetTitle(title string) {
	w.title = title
}
