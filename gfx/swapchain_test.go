// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/sprite/gfx"
)

func recreateAs(calls *int) func(int, int) (int, int, error) {
	return func(w, h int) (int, int, error) {
		*calls++
		return w, h, nil
	}
}

func TestOutOfDateOnAcquireSkipsFrame(t *testing.T) {
	c := qt.New(t)
	tracker := gfx.NewSwapchainTracker(1280, 720)

	err := tracker.Acquired(gfx.PresentOutOfDate)
	c.Assert(errors.Is(err, gfx.ErrFrameSkipped), qt.Equals, true)
	c.Assert(tracker.State(), qt.Equals, gfx.SwapchainRecreate)

	var calls int
	c.Assert(tracker.Recreate(recreateAs(&calls)), qt.IsNil)
	c.Assert(calls, qt.Equals, 1)
	c.Assert(tracker.State(), qt.Equals, gfx.SwapchainNormal)
	c.Assert(tracker.Recreations(), qt.Equals, 1)
}

func TestPresentResults(t *testing.T) {
	tests := []struct {
		name    string
		result  gfx.PresentResult
		skipped bool
		state   gfx.SwapchainState
	}{
		{"ok", gfx.PresentOK, false, gfx.SwapchainNormal},
		{"suboptimal", gfx.PresentSuboptimal, false, gfx.SwapchainRecreate},
		{"out of date", gfx.PresentOutOfDate, true, gfx.SwapchainRecreate},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			tracker := gfx.NewSwapchainTracker(800, 600)
			err := tracker.Presented(test.result)
			c.Assert(errors.Is(err, gfx.ErrFrameSkipped), qt.Equals, test.skipped)
			c.Assert(tracker.State(), qt.Equals, test.state)
		})
	}
}

func TestFailedPresentIsAnError(t *testing.T) {
	c := qt.New(t)
	tracker := gfx.NewSwapchainTracker(800, 600)

	err := tracker.Presented(gfx.PresentFailed)
	c.Assert(err, qt.Not(qt.IsNil))
	c.Assert(errors.Is(err, gfx.ErrFrameSkipped), qt.Equals, false)

	err = tracker.Acquired(gfx.PresentFailed)
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestResizeRecreatesWithNewExtent(t *testing.T) {
	c := qt.New(t)
	tracker := gfx.NewSwapchainTracker(1280, 720)

	tracker.Resized(800, 600)
	c.Assert(tracker.State(), qt.Equals, gfx.SwapchainRecreate)

	var gotW, gotH int
	err := tracker.Recreate(func(w, h int) (int, int, error) {
		gotW, gotH = w, h
		return w, h, nil
	})
	c.Assert(err, qt.IsNil)
	c.Assert(gotW, qt.Equals, 800)
	c.Assert(gotH, qt.Equals, 600)

	w, h := tracker.Extent()
	c.Assert(w, qt.Equals, 800)
	c.Assert(h, qt.Equals, 600)
}

func TestRecreateWithoutRequestIsNoop(t *testing.T) {
	c := qt.New(t)
	tracker := gfx.NewSwapchainTracker(1280, 720)

	var calls int
	c.Assert(tracker.Recreate(recreateAs(&calls)), qt.IsNil)
	c.Assert(calls, qt.Equals, 0)
}

func TestUnsupportedExtentIsRetried(t *testing.T) {
	c := qt.New(t)
	tracker := gfx.NewSwapchainTracker(1280, 720)

	tracker.Resized(0, 0)
	var calls int
	err := tracker.Recreate(recreateAs(&calls))
	c.Assert(errors.Is(err, gfx.ErrFrameSkipped), qt.Equals, true)
	c.Assert(calls, qt.Equals, 0)
	c.Assert(tracker.State(), qt.Equals, gfx.SwapchainRecreate)

	tracker.Resized(640, 480)
	attempts := 0
	err = tracker.Recreate(func(w, h int) (int, int, error) {
		attempts++
		return 0, 0, gfx.ErrUnsupportedExtent
	})
	c.Assert(errors.Is(err, gfx.ErrFrameSkipped), qt.Equals, true)
	c.Assert(tracker.State(), qt.Equals, gfx.SwapchainRecreate)

	err = tracker.Recreate(func(w, h int) (int, int, error) {
		attempts++
		return 640, 480, nil
	})
	c.Assert(err, qt.IsNil)
	c.Assert(attempts, qt.Equals, 2)
	c.Assert(tracker.State(), qt.Equals, gfx.SwapchainNormal)
}

func TestRecreateErrorPropagates(t *testing.T) {
	c := qt.New(t)
	tracker := gfx.NewSwapchainTracker(1280, 720)
	tracker.Resized(800, 600)

	boom := errors.New("device lost")
	err := tracker.Recreate(func(w, h int) (int, int, error) {
		return 0, 0, boom
	})
	c.Assert(err, qt.Equals, boom)
	c.Assert(tracker.State(), qt.Equals, gfx.SwapchainRecreate)
}
