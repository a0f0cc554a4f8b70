// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package window

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/sprite/core"
)

func drawable() (int, int) {
	return 1600, 1200
}

func TestTranslate(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name  string
		event sdl.Event
		want  core.Event
		ok    bool
	}{{
		name:  "quit",
		event: &sdl.QuitEvent{Type: sdl.QUIT},
		want:  core.Event{Kind: core.EventQuit},
		ok:    true,
	}, {
		name:  "escape",
		event: &sdl.KeyboardEvent{Type: sdl.KEYDOWN, Keysym: sdl.Keysym{Sym: sdl.K_ESCAPE}},
		want:  core.Event{Kind: core.EventKeyEscape},
		ok:    true,
	}, {
		name:  "escape released",
		event: &sdl.KeyboardEvent{Type: sdl.KEYUP, Keysym: sdl.Keysym{Sym: sdl.K_ESCAPE}},
	}, {
		name:  "other key",
		event: &sdl.KeyboardEvent{Type: sdl.KEYDOWN, Keysym: sdl.Keysym{Sym: sdl.K_SPACE}},
	}, {
		name:  "resized",
		event: &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_SIZE_CHANGED},
		want:  core.Event{Kind: core.EventResize, Width: 1600, Height: 1200},
		ok:    true,
	}, {
		name:  "restored",
		event: &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_RESTORED},
		want:  core.Event{Kind: core.EventResize, Width: 1600, Height: 1200},
		ok:    true,
	}, {
		name:  "minimised",
		event: &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_MINIMIZED},
		want:  core.Event{Kind: core.EventResize},
		ok:    true,
	}, {
		name:  "focus",
		event: &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_FOCUS_GAINED},
	}, {
		name:  "mouse",
		event: &sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION},
	}}

	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			got, ok := translate(test.event, drawable)
			c.Assert(ok, qt.Equals, test.ok)
			c.Assert(got, qt.Equals, test.want)
		})
	}
}

func TestWindowFlags(t *testing.T) {
	c := qt.New(t)

	fixed := windowFlags(core.WindowConfiguration{})
	c.Assert(fixed&sdl.WINDOW_SHOWN, qt.Not(qt.Equals), uint32(0))
	c.Assert(fixed&sdl.WINDOW_ALLOW_HIGHDPI, qt.Not(qt.Equals), uint32(0))
	c.Assert(fixed&sdl.WINDOW_RESIZABLE, qt.Equals, uint32(0))

	resizable := windowFlags(core.WindowConfiguration{Resizable: true})
	c.Assert(resizable&sdl.WINDOW_RESIZABLE, qt.Not(qt.Equals), uint32(0))
}
