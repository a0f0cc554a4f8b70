// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package window opens the native SDL window for either backend and
// translates its events for the main loop driver.
package window

import (
	"errors"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/sprite/core"
)

// Init initialises the SDL video and event subsystems
func Init() error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return errors.New("sdl.Init(): " + err.Error())
	}
	return nil
}

// Quit shuts SDL down, windows must be destroyed first
func Quit() {
	sdl.Quit()
}

func windowFlags(cfg core.WindowConfiguration) uint32 {
	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_ALLOW_HIGHDPI)
	if cfg.Resizable {
		flags |= sdl.WINDOW_RESIZABLE
	}
	return flags
}

func create(cfg core.WindowConfiguration, flags uint32) (*sdl.Window, error) {
	window, err := sdl.CreateWindow(cfg.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width),
		int32(cfg.Height),
		windowFlags(cfg)|flags)
	if err != nil {
		return nil, errors.New("sdl.CreateWindow(): " + err.Error())
	}
	return window, nil
}

type glAttribute struct {
	attr  sdl.GLattr
	value int
}

// NewOpenGL opens a window with a current OpenGL 4.1 core context
func NewOpenGL(cfg core.Configuration) (*Window, error) {
	attributes := []glAttribute{
		{sdl.GL_CONTEXT_MAJOR_VERSION, 4},
		{sdl.GL_CONTEXT_MINOR_VERSION, 1},
		{sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE},
		{sdl.GL_CONTEXT_FLAGS, sdl.GL_CONTEXT_FORWARD_COMPATIBLE_FLAG},
		{sdl.GL_DOUBLEBUFFER, 1},
		{sdl.GL_DEPTH_SIZE, 24},
		{sdl.GL_FRAMEBUFFER_SRGB_CAPABLE, 1},
	}
	if samples := cfg.Renderer.Multisampling; samples > 0 {
		attributes = append(attributes,
			glAttribute{sdl.GL_MULTISAMPLEBUFFERS, 1},
			glAttribute{sdl.GL_MULTISAMPLESAMPLES, samples})
	}
	for _, a := range attributes {
		if err := sdl.GLSetAttribute(a.attr, a.value); err != nil {
			return nil, errors.New("sdl.GLSetAttribute(): " + err.Error())
		}
	}

	window, err := create(cfg.Window, sdl.WINDOW_OPENGL)
	if err != nil {
		return nil, err
	}

	context, err := window.GLCreateContext()
	if err != nil {
		window.Destroy()
		return nil, errors.New("sdl.GLCreateContext(): " + err.Error())
	}
	if err := window.GLMakeCurrent(context); err != nil {
		sdl.GLDeleteContext(context)
		window.Destroy()
		return nil, errors.New("sdl.GLMakeCurrent(): " + err.Error())
	}

	interval := 0
	if cfg.Renderer.VSync {
		interval = 1
	}
	if err := sdl.GLSetSwapInterval(interval); err != nil {
		log.WithError(err).Warn("Swap interval not supported")
	}

	w := &Window{
		window:  window,
		context: context,
		backend: core.BackendOpenGL,
	}
	log.WithFields(log.Fields{
		"title":  cfg.Window.Title,
		"width":  cfg.Window.Width,
		"height": cfg.Window.Height,
	}).Info("OpenGL window opened")
	return w, nil
}

// NewVulkan opens a window a Vulkan surface can be created for
func NewVulkan(cfg core.Configuration) (*Window, error) {
	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return nil, errors.New("sdl.VulkanLoadLibrary(): " + err.Error())
	}

	window, err := create(cfg.Window, sdl.WINDOW_VULKAN)
	if err != nil {
		sdl.VulkanUnloadLibrary()
		return nil, err
	}

	w := &Window{
		window:  window,
		backend: core.BackendVulkan,
	}
	log.WithFields(log.Fields{
		"title":      cfg.Window.Title,
		"width":      cfg.Window.Width,
		"height":     cfg.Window.Height,
		"extensions": w.VulkanInstanceExtensions(),
	}).Info("Vulkan window opened")
	return w, nil
}

// Window is an SDL window implementing core.Window
type Window struct {
	window  *sdl.Window
	context sdl.GLContext
	backend string
}

// Swap presents the OpenGL back buffer
func (w *Window) Swap() {
	w.window.GLSwap()
}

// VulkanInstanceExtensions lists the instance extensions surfaces need
func (w *Window) VulkanInstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

// VulkanProcAddr returns the loader entry point SDL resolved
func (w *Window) VulkanProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

// CreateVulkanSurface creates a surface for the given vk.Instance
func (w *Window) CreateVulkanSurface(instance interface{}) (unsafe.Pointer, error) {
	surface, err := w.window.VulkanCreateSurface(instance)
	if err != nil {
		return nil, errors.New("sdl.VulkanCreateSurface(): " + err.Error())
	}
	return surface, nil
}

// DrawableSize is the size in pixels, which differs from the window
// size on high DPI displays.
func (w *Window) DrawableSize() (int, int) {
	var width, height int32
	if w.backend == core.BackendVulkan {
		width, height = w.window.VulkanGetDrawableSize()
	} else {
		width, height = w.window.GLGetDrawableSize()
	}
	return int(width), int(height)
}

// PollEvents implements core.Window
func (w *Window) PollEvents() []core.Event {
	var events []core.Event
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if e, ok := translate(event, w.DrawableSize); ok {
			events = append(events, e)
		}
	}
	return events
}

// SetTitle implements core.Window
func (w *Window) SetTitle(title string) {
	w.window.SetTitle(title)
}

// Destroy closes the window and releases its context
func (w *Window) Destroy() {
	if w.window == nil {
		return
	}
	if w.context != nil {
		sdl.GLDeleteContext(w.context)
		w.context = nil
	}
	w.window.Destroy()
	w.window = nil
	if w.backend == core.BackendVulkan {
		sdl.VulkanUnloadLibrary()
	}
}

// translate maps SDL events the driver cares about. Resizes report the
// drawable size, a minimised window reports zero.
func translate(event sdl.Event, drawable func() (int, int)) (core.Event, bool) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return core.Event{Kind: core.EventQuit}, true
	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
			return core.Event{Kind: core.EventKeyEscape}, true
		}
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_SIZE_CHANGED, sdl.WINDOWEVENT_RESTORED:
			width, height := drawable()
			return core.Event{Kind: core.EventResize, Width: width, Height: height}, true
		case sdl.WINDOWEVENT_MINIMIZED:
			return core.Event{Kind: core.EventResize}, true
		}
	}
	return core.Event{}, false
}
