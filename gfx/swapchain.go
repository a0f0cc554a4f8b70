// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"errors"
	"fmt"
)

// SwapchainState is the presentation state of a swapchain backed device.
type SwapchainState int

// Swapchain states
const (
	SwapchainNormal SwapchainState = iota
	SwapchainRecreate
)

func (s SwapchainState) String() string {
	switch s {
	case SwapchainNormal:
		return "normal"
	case SwapchainRecreate:
		return "recreate"
	default:
		return fmt.Sprintf("SwapchainState(%d)", int(s))
	}
}

// PresentResult is the backend neutral outcome of an acquire or present.
type PresentResult int

// Acquire and present outcomes
const (
	PresentOK PresentResult = iota
	PresentSuboptimal
	PresentOutOfDate
	PresentFailed
)

// NewSwapchainTracker creates a tracker for a swapchain of the given size.
func NewSwapchainTracker(width, height int) *SwapchainTracker {
	return &SwapchainTracker{
		width:  width,
		height: height,
	}
}

// SwapchainTracker keeps the swapchain state machine:
//  Normal -> (resize | out of date on acquire | out of date on present) -> Recreate -> Normal
// It does not touch any native objects, the backend supplies the
// recreation step to Recreate.
type SwapchainTracker struct {
	state       SwapchainState
	width       int
	height      int
	recreations int
}

// State returns the current state.
func (t *SwapchainTracker) State() SwapchainState {
	return t.state
}

// Extent returns the size the swapchain has or will be recreated with.
func (t *SwapchainTracker) Extent() (int, int) {
	return t.width, t.height
}

// Recreations counts successful recreations.
func (t *SwapchainTracker) Recreations() int {
	return t.recreations
}

// Resized records a new surface size and requests recreation.
func (t *SwapchainTracker) Resized(width, height int) {
	t.width, t.height = width, height
	t.state = SwapchainRecreate
}

// Acquired handles the result of acquiring the next image.
// An out of date swapchain skips the frame.
func (t *SwapchainTracker) Acquired(result PresentResult) error {
	switch result {
	case PresentOK, PresentSuboptimal:
		return nil
	case PresentOutOfDate:
		t.state = SwapchainRecreate
		return ErrFrameSkipped
	default:
		return errors.New("swapchain image acquisition failed")
	}
}

// Presented handles the result of presenting an image. Suboptimal
// presents are kept but the swapchain is recreated before the next frame.
func (t *SwapchainTracker) Presented(result PresentResult) error {
	switch result {
	case PresentOK:
		return nil
	case PresentSuboptimal:
		t.state = SwapchainRecreate
		return nil
	case PresentOutOfDate:
		t.state = SwapchainRecreate
		return ErrFrameSkipped
	default:
		return errors.New("swapchain presentation failed")
	}
}

// Recreate runs recreate when recreation is pending. recreate receives
// the requested size and returns the size actually created.
// A zero or unsupported extent leaves the state untouched and skips
// the frame, recreation is retried on the next call.
func (t *SwapchainTracker) Recreate(recreate func(width, height int) (int, int, error)) error {
	if t.state != SwapchainRecreate {
		return nil
	}
	if t.width <= 0 || t.height <= 0 {
		return ErrFrameSkipped
	}

	width, height, err := recreate(t.width, t.height)
	if errors.Is(err, ErrUnsupportedExtent) {
		return ErrFrameSkipped
	} else if err != nil {
		return err
	}

	t.width, t.height = width, height
	t.state = SwapchainNormal
	t.recreations++
	return nil
}
