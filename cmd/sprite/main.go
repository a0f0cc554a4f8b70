// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/sprite/core"
	"github.com/devblok/sprite/gfx"
	"github.com/devblok/sprite/gfx/glr"
	"github.com/devblok/sprite/gfx/vkr"
	"github.com/devblok/sprite/window"
)

func init() {
	runtime.LockOSThread()
}

var (
	configPath = flag.String("config", "", "TOML configuration file")
	dumpConfig = flag.Bool("dumpconfig", false, "Print the effective configuration and exit")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Could not read .env")
	}

	cfg, err := core.LoadConfiguration(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *dumpConfig {
		if _, err := cfg.WriteTo(os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)

	if err := window.Init(); err != nil {
		log.Fatal(err)
	}
	defer window.Quit()

	win, device, instance, err := open(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer win.Destroy()
	if instance != nil {
		defer instance.Destroy()
	}
	defer device.Release()

	source, closeSource, err := core.NewAssetSource(cfg.Assets)
	if err != nil {
		log.Fatal(err)
	}
	defer closeSource()

	store := core.NewResourceStore(device, source, core.DefaultManifest(), cfg.Assets)
	defer store.Shutdown()
	if err := store.Initialise(); err != nil {
		log.Fatal(err)
	}

	renderer, err := core.NewSpriteRenderer(device, store, core.DefaultCamera(cfg.Renderer.FieldOfView))
	if err != nil {
		log.Fatal(err)
	}
	defer renderer.Release()

	timer := core.NewTime(cfg.Time)
	defer timer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		select {
		case <-interrupt:
			log.Info("Interrupted")
			cancel()
		case <-ctx.Done():
		}
	}()

	driver := core.NewDriver(win, device, timer, cfg)
	if err := driver.Run(ctx, renderer.Draw); err != nil {
		log.Fatal(err)
	}

	stats := driver.Stats()
	log.WithFields(log.Fields{
		"frames":  stats.Frames,
		"skipped": stats.Skipped,
		"resizes": stats.Resizes,
	}).Info("Event loop exited")
}

// open creates the window and the device for the configured backend.
// The instance is nil for OpenGL.
func open(cfg core.Configuration) (*window.Window, gfx.Device, *vkr.Instance, error) {
	switch cfg.Renderer.Backend {
	case core.BackendVulkan:
		win, err := window.NewVulkan(cfg)
		if err != nil {
			return nil, nil, nil, err
		}

		instance, err := vkr.NewInstance(vkr.DefaultApplicationInfo, win.VulkanProcAddr(), vkr.InstanceConfiguration{
			Extensions: win.VulkanInstanceExtensions(),
			Debug:      cfg.Renderer.Debug,
		})
		if err != nil {
			win.Destroy()
			return nil, nil, nil, err
		}

		surface, err := win.CreateVulkanSurface(instance.Instance())
		if err != nil {
			instance.Destroy()
			win.Destroy()
			return nil, nil, nil, err
		}
		instance.SetSurface(surface)

		width, height := win.DrawableSize()
		device, err := vkr.NewDevice(instance, cfg.Renderer, width, height)
		if err != nil {
			instance.Destroy()
			win.Destroy()
			return nil, nil, nil, err
		}
		return win, device, instance, nil

	default:
		win, err := window.NewOpenGL(cfg)
		if err != nil {
			return nil, nil, nil, err
		}

		width, height := win.DrawableSize()
		device, err := glr.NewDevice(win, cfg.Renderer, width, height)
		if err != nil {
			win.Destroy()
			return nil, nil, nil, err
		}
		return win, device, nil, nil
	}
}
