// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobuffalo/envy"
	log "github.com/sirupsen/logrus"
)

// Supported rendering backends
const (
	BackendOpenGL = "opengl"
	BackendVulkan = "vulkan"
)

// Supported asset sources
const (
	AssetSourceBox     = "box"
	AssetSourceDir     = "dir"
	AssetSourceArchive = "archive"
)

// Environment variables that override the configuration file
const (
	EnvBackend  = "SPRITE_BACKEND"
	EnvAssets   = "SPRITE_ASSETS"
	EnvArchive  = "SPRITE_ARCHIVE"
	EnvLogLevel = "SPRITE_LOG_LEVEL"
	EnvFps      = "SPRITE_FPS"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	LogLevel string                `toml:"log_level"`
	Window   WindowConfiguration   `toml:"window"`
	Time     TimeConfiguration     `toml:"time"`
	Renderer RendererConfiguration `toml:"renderer"`
	Assets   AssetsConfiguration   `toml:"assets"`
}

// WindowConfiguration describes the native window
type WindowConfiguration struct {
	Title     string `toml:"title"`
	Width     uint32 `toml:"width"`
	Height    uint32 `toml:"height"`
	Resizable bool   `toml:"resizable"`
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int `toml:"frames_per_second"`

	// ReportInterval is how often the frame rate is reported
	ReportInterval Duration `toml:"report_interval"`
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	Backend          string     `toml:"backend"`
	SwapchainSize    uint32     `toml:"swapchain_size"`
	DeviceExtensions []string   `toml:"device_extensions"`
	Debug            bool       `toml:"debug"`
	VSync            bool       `toml:"vsync"`
	Multisampling    int        `toml:"multisampling"`
	ClearColor       [4]float32 `toml:"clear_color"`
	FieldOfView      float32    `toml:"field_of_view"`
}

// AssetsConfiguration tells where assets are read from
type AssetsConfiguration struct {
	Source    string `toml:"source"`
	Directory string `toml:"directory"`
	Archive   string `toml:"archive"`

	// FlipTextures flips decoded images vertically, so the first row
	// ends up at texture coordinate v=0.
	FlipTextures bool `toml:"flip_textures"`
}

// Duration is a time.Duration read from and written as text, like "500ms"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfiguration returns the configuration used when nothing is overridden
func DefaultConfiguration() Configuration {
	return Configuration{
		LogLevel: "info",
		Window: WindowConfiguration{
			Title:     "Sprite",
			Width:     1280,
			Height:    720,
			Resizable: true,
		},
		Time: TimeConfiguration{
			FramesPerSecond: 250,
			ReportInterval:  Duration{500 * time.Millisecond},
		},
		Renderer: RendererConfiguration{
			Backend:       BackendOpenGL,
			SwapchainSize: 3,
			DeviceExtensions: []string{
				"VK_KHR_swapchain",
			},
			Multisampling: 8,
			ClearColor:    [4]float32{0, 1, 0, 1},
			FieldOfView:   90,
		},
		Assets: AssetsConfiguration{
			Source:       AssetSourceBox,
			Directory:    "./assets",
			FlipTextures: true,
		},
	}
}

// LoadConfiguration reads the TOML file at path on top of the defaults,
// then applies environment overrides. An empty path skips the file.
func LoadConfiguration(path string) (Configuration, error) {
	cfg := DefaultConfiguration()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %s", path, err.Error())
		}
		log.WithField("path", path).Debug("Configuration file loaded")
	}

	if err := cfg.applyEnvironment(); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Configuration) applyEnvironment() error {
	c.Renderer.Backend = envy.Get(EnvBackend, c.Renderer.Backend)
	c.LogLevel = envy.Get(EnvLogLevel, c.LogLevel)

	if dir := envy.Get(EnvAssets, ""); dir != "" {
		c.Assets.Source = AssetSourceDir
		c.Assets.Directory = dir
	}
	if archive := envy.Get(EnvArchive, ""); archive != "" {
		c.Assets.Source = AssetSourceArchive
		c.Assets.Archive = archive
	}

	if fps := envy.Get(EnvFps, ""); fps != "" {
		num, err := strconv.Atoi(fps)
		if err != nil {
			return fmt.Errorf("%s: %s", EnvFps, err.Error())
		}
		c.Time.FramesPerSecond = num
	}
	return nil
}

// Validate checks the configuration for values the engine cannot start with
func (c Configuration) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size %dx%d is not valid", c.Window.Width, c.Window.Height)
	}

	switch c.Renderer.Backend {
	case BackendOpenGL, BackendVulkan:
	default:
		return fmt.Errorf("unknown renderer backend %q", c.Renderer.Backend)
	}

	if c.Renderer.Backend == BackendVulkan && c.Renderer.SwapchainSize == 0 {
		return fmt.Errorf("swapchain size must be at least 1")
	}

	if c.Time.FramesPerSecond < 0 {
		return fmt.Errorf("frames per second cannot be negative")
	}

	if c.Renderer.FieldOfView <= 0 || c.Renderer.FieldOfView >= 180 {
		return fmt.Errorf("field of view %.1f is out of range", c.Renderer.FieldOfView)
	}

	switch c.Assets.Source {
	case AssetSourceBox, AssetSourceDir, AssetSourceArchive:
	default:
		return fmt.Errorf("unknown asset source %q", c.Assets.Source)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// WriteTo writes the configuration out as TOML
func (c Configuration) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := toml.NewEncoder(cw).Encode(c)
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
