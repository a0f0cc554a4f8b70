// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"
)

// NewTime creates a new time service, the start instant is now
func NewTime(cfg TimeConfiguration) *Time {
	return newTimeWithClock(cfg, time.Now)
}

func newTimeWithClock(cfg TimeConfiguration, now func() time.Time) *Time {
	start := now()
	t := &Time{
		now:        now,
		firstStart: start,
		lastTick:   start,
		fps:        cfg.FramesPerSecond,
	}
	if cfg.FramesPerSecond > 0 {
		t.fpsTicker = time.NewTicker(time.Second / time.Duration(cfg.FramesPerSecond))
	}
	return t
}

// Time contains the frame timer and the pacing ticker.
// It only reports time, pacing is up to whoever reads FpsTicker.
type Time struct {
	now func() time.Time

	firstStart time.Time
	lastTick   time.Time

	fps       int
	fpsTicker *time.Ticker
}

// Tick returns the time elapsed since the previous Tick,
// or since creation on the first call, and restarts the measurement.
func (t *Time) Tick() time.Duration {
	now := t.now()
	delta := now.Sub(t.lastTick)
	if delta < 0 {
		delta = 0
	}
	if now.After(t.lastTick) {
		t.lastTick = now
	}
	return delta
}

// SinceStart returns the time elapsed since the service was created
func (t *Time) SinceStart() time.Duration {
	since := t.now().Sub(t.firstStart)
	if since < 0 {
		return 0
	}
	return since
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// FpsTicker gets the initialized fps ticker, nil when unlimited
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// Stop stops the fps ticker
func (t *Time) Stop() {
	if t.fpsTicker != nil {
		t.fpsTicker.Stop()
	}
}
