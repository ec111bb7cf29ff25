// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/meshview/internal/engine/input"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/pkg/encoding"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all viewer settings.
type Config struct {
	Window      WindowConfig      `yaml:"window"`
	Camera      CameraConfig      `yaml:"camera"`
	Render      RenderConfig      `yaml:"render"`
	Controls    ControlsConfig    `yaml:"controls"`
	Import      ImportConfig      `yaml:"import"`
	Screenshots ScreenshotsConfig `yaml:"screenshots"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// CameraConfig holds navigation and projection settings.
type CameraConfig struct {
	FOV              float32 `yaml:"fov"`
	MinFOV           float32 `yaml:"min_fov"`
	MaxFOV           float32 `yaml:"max_fov"`
	ZoomStep         float32 `yaml:"zoom_step"`
	Near             float32 `yaml:"near"`
	Far              float32 `yaml:"far"`
	Speed            float32 `yaml:"speed"`
	Sensitivity      float32 `yaml:"sensitivity"`
	OrbitSensitivity float32 `yaml:"orbit_sensitivity"`
	MinFocusDistance float32 `yaml:"min_focus_distance"`
	FrameSafety      float32 `yaml:"frame_safety"`
}

// RenderConfig holds drawing settings.
type RenderConfig struct {
	Wireframe          bool       `yaml:"wireframe"`
	ShowBounds         bool       `yaml:"show_bounds"`
	ClearColor         [3]float32 `yaml:"clear_color,flow"`
	HighlightColor     [3]float32 `yaml:"highlight_color,flow"`
	BoundsColor        [3]float32 `yaml:"bounds_color,flow"`
	WireframeLineWidth float32    `yaml:"wireframe_line_width"`
}

// ControlsConfig names the key or mouse button of every action.
type ControlsConfig struct {
	Forward    string `yaml:"forward"`
	Back       string `yaml:"back"`
	Left       string `yaml:"left"`
	Right      string `yaml:"right"`
	Up         string `yaml:"up"`
	Down       string `yaml:"down"`
	Focus      string `yaml:"focus"`
	Wireframe  string `yaml:"wireframe"`
	Bounds     string `yaml:"bounds"`
	Open       string `yaml:"open"`
	Screenshot string `yaml:"screenshot"`
	Exit       string `yaml:"exit"`
	Look       string `yaml:"look_button"`
	Orbit      string `yaml:"orbit_button"`
}

// ImportConfig holds scene loading settings.
type ImportConfig struct {
	// Watch reloads the current model when its file changes.
	Watch bool `yaml:"watch"`
	// TextureCharset decodes non-UTF-8 texture references: auto,
	// windows-1252 or euc-kr.
	TextureCharset string `yaml:"texture_charset"`
	// MaxTextureSize downscales larger textures; 0 keeps the built-in limit.
	MaxTextureSize int `yaml:"max_texture_size"`
}

// ScreenshotsConfig holds capture settings.
type ScreenshotsConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "meshview",
			Width:  800,
			Height: 600,
			VSync:  true,
		},
		Camera: CameraConfig{
			FOV:              45,
			MinFOV:           10,
			MaxFOV:           90,
			ZoomStep:         2,
			Near:             0.01,
			Far:              1000,
			Speed:            5,
			Sensitivity:      0.1,
			OrbitSensitivity: 0.3,
			MinFocusDistance: 2,
			FrameSafety:      1.5,
		},
		Render: RenderConfig{
			ClearColor:         [3]float32{0.2, 0.3, 0.3},
			HighlightColor:     [3]float32{0, 1, 0},
			BoundsColor:        [3]float32{1, 0.8, 0},
			WireframeLineWidth: 2,
		},
		Controls: ControlsConfig{
			Forward:    "W",
			Back:       "S",
			Left:       "A",
			Right:      "D",
			Up:         "E",
			Down:       "Q",
			Focus:      "F",
			Wireframe:  "Tab",
			Bounds:     "B",
			Open:       "O",
			Screenshot: "F12",
			Exit:       "Escape",
			Look:       "right",
			Orbit:      "middle",
		},
		Import: ImportConfig{
			TextureCharset: string(encoding.Auto),
		},
		Screenshots: ScreenshotsConfig{
			Dir:    "screenshots",
			Prefix: "meshview",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Bindings resolves the configured key and button names.
func (c ControlsConfig) Bindings() (input.Bindings, error) {
	var b input.Bindings
	keys := []struct {
		name string
		dst  *input.Key
	}{
		{c.Forward, &b.Forward},
		{c.Back, &b.Back},
		{c.Left, &b.Left},
		{c.Right, &b.Right},
		{c.Up, &b.Up},
		{c.Down, &b.Down},
		{c.Focus, &b.Focus},
		{c.Wireframe, &b.Wireframe},
		{c.Bounds, &b.Bounds},
		{c.Open, &b.Open},
		{c.Screenshot, &b.Screenshot},
		{c.Exit, &b.Exit},
	}
	for _, k := range keys {
		key, err := input.ParseKey(k.name)
		if err != nil {
			return input.Bindings{}, err
		}
		*k.dst = key
	}

	var err error
	if b.Look, err = input.ParseButton(c.Look); err != nil {
		return input.Bindings{}, err
	}
	if b.Orbit, err = input.ParseButton(c.Orbit); err != nil {
		return input.Bindings{}, err
	}
	if b.Look == b.Orbit {
		return input.Bindings{}, fmt.Errorf("look and orbit share the %s button", b.Look)
	}
	return b, nil
}

// Validate rejects values the viewer cannot run with.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}

	cam := c.Camera
	if cam.MinFOV <= 0 || cam.MaxFOV >= 180 || cam.MinFOV > cam.MaxFOV {
		return fmt.Errorf("%w: fov range [%v, %v]", ErrInvalid, cam.MinFOV, cam.MaxFOV)
	}
	if cam.FOV < cam.MinFOV || cam.FOV > cam.MaxFOV {
		return fmt.Errorf("%w: fov %v outside [%v, %v]", ErrInvalid, cam.FOV, cam.MinFOV, cam.MaxFOV)
	}
	if cam.Near <= 0 || cam.Far <= cam.Near {
		return fmt.Errorf("%w: clip planes near=%v far=%v", ErrInvalid, cam.Near, cam.Far)
	}
	if cam.Speed < 0 || cam.Sensitivity < 0 || cam.OrbitSensitivity < 0 {
		return fmt.Errorf("%w: negative camera speed or sensitivity", ErrInvalid)
	}
	if cam.MinFocusDistance <= 0 {
		return fmt.Errorf("%w: min_focus_distance %v", ErrInvalid, cam.MinFocusDistance)
	}
	if cam.FrameSafety < 1 {
		return fmt.Errorf("%w: frame_safety %v is below 1", ErrInvalid, cam.FrameSafety)
	}

	if c.Render.WireframeLineWidth <= 0 {
		return fmt.Errorf("%w: wireframe_line_width %v", ErrInvalid, c.Render.WireframeLineWidth)
	}

	if _, err := c.Controls.Bindings(); err != nil {
		return fmt.Errorf("%w: controls: %w", ErrInvalid, err)
	}

	if _, err := encoding.ParseCharset(c.Import.TextureCharset); err != nil {
		return fmt.Errorf("%w: import: %w", ErrInvalid, err)
	}
	if c.Import.MaxTextureSize < 0 {
		return fmt.Errorf("%w: max_texture_size %d", ErrInvalid, c.Import.MaxTextureSize)
	}

	if !logger.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Logging.Level)
	}
	return nil
}
