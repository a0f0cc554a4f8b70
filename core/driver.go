// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/sprite/gfx"
)

// FrameFunc records one frame, dt is the time since the previous frame.
// Returning gfx.ErrFrameSkipped drops the frame, any other error stops the loop.
type FrameFunc func(dt time.Duration) error

// Stats counts what happened in the loop so far
type Stats struct {
	Frames  uint64
	Skipped uint64
	Resizes uint64
}

// NewDriver creates the main loop driver over an already opened window and device
func NewDriver(window Window, device gfx.Device, timer *Time, cfg Configuration) *Driver {
	return &Driver{
		window:         window,
		device:         device,
		time:           timer,
		title:          cfg.Window.Title,
		reportInterval: cfg.Time.ReportInterval.Duration,
	}
}

// Driver owns the frame loop: poll events, tick, render, present.
// All of it runs on the thread that called Run.
type Driver struct {
	window Window
	device gfx.Device
	time   *Time

	title          string
	reportInterval time.Duration

	stats        Stats
	reportFrames uint64
	lastReport   time.Duration
}

// Run loops until the window is closed, Escape is pressed or ctx is done.
// Errors other than skipped frames end the loop and are returned.
func (d *Driver) Run(ctx context.Context, frame FrameFunc) error {
	var pace <-chan time.Time
	if ticker := d.time.FpsTicker(); ticker != nil {
		pace = ticker.C
	}

	log.WithField("fps", d.time.Fps()).Info("Main loop started")
EventLoop:
	for {
		select {
		case <-ctx.Done():
			break EventLoop
		default:
		}

		running, err := d.Step(frame)
		if err != nil {
			return err
		}
		if !running {
			break EventLoop
		}

		if pace != nil {
			select {
			case <-pace:
			case <-ctx.Done():
				break EventLoop
			}
		}
	}

	log.WithFields(log.Fields{
		"frames":  d.stats.Frames,
		"skipped": d.stats.Skipped,
		"resizes": d.stats.Resizes,
	}).Info("Main loop stopped")
	return nil
}

// Step runs a single iteration of the loop. It returns false when
// the loop was asked to stop.
func (d *Driver) Step(frame FrameFunc) (bool, error) {
	for _, event := range d.window.PollEvents() {
		switch event.Kind {
		case EventQuit, EventKeyEscape:
			log.WithField("event", event.Kind).Debug("Stop requested")
			return false, nil
		case EventResize:
			if err := d.device.Resize(event.Width, event.Height); err != nil {
				return false, err
			}
			d.stats.Resizes++
			log.WithFields(log.Fields{
				"width":  event.Width,
				"height": event.Height,
			}).Debug("Window resized")
		}
	}

	dt := d.time.Tick()

	if err := d.device.BeginFrame(); err == gfx.ErrFrameSkipped {
		d.stats.Skipped++
		return true, nil
	} else if err != nil {
		return false, err
	}

	// the frame is always ended once begun, so the device stays consistent
	frameErr := frame(dt)
	endErr := d.device.EndFrame()

	if frameErr != nil && frameErr != gfx.ErrFrameSkipped {
		return false, frameErr
	}
	if endErr != nil && endErr != gfx.ErrFrameSkipped {
		return false, endErr
	}
	if frameErr != nil || endErr != nil {
		d.stats.Skipped++
		return true, nil
	}

	d.stats.Frames++
	d.reportFrames++
	d.report()
	return true, nil
}

func (d *Driver) report() {
	if d.reportInterval <= 0 {
		return
	}
	now := d.time.SinceStart()
	elapsed := now - d.lastReport
	if elapsed < d.reportInterval {
		return
	}

	rate := float64(d.reportFrames) / elapsed.Seconds()
	d.window.SetTitle(fmt.Sprintf("%s %.0f FPS", d.title, rate))
	log.WithField("fps", fmt.Sprintf("%.1f", rate)).Debug("Frame rate")

	d.reportFrames = 0
	d.lastReport = now
}

// Stats returns the loop counters
func (d *Driver) Stats() Stats {
	return d.stats
}
