// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core holds the backend independent parts of the engine:
// configuration, timing, resources, the sprite renderer and the main loop driver.
package core

// EventKind identifies window events the driver reacts to
type EventKind int

// Window events
const (
	EventNone EventKind = iota
	EventQuit
	EventKeyEscape
	EventResize
)

func (k EventKind) String() string {
	switch k {
	case EventQuit:
		return "quit"
	case EventKeyEscape:
		return "escape"
	case EventResize:
		return "resize"
	default:
		return "none"
	}
}

// Event is a single window event, Width and Height are set for EventResize
type Event struct {
	Kind   EventKind
	Width  int
	Height int
}

// Window describes the native window the engine renders into.
// It's polled once per frame from the thread that created it.
type Window interface {
	// PollEvents drains pending window events
	PollEvents() []Event

	// SetTitle changes the window caption
	SetTitle(string)
}
