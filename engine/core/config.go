package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/bits"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/hubastard/vkdemo/engine/colors"
	"github.com/hubastard/vkdemo/engine/gfx/frame"
)

// Config for the engine run. Zero values are never used directly; start
// from DefaultConfig.
type Config struct {
	Window  WindowConfig  `toml:"window" yaml:"window"`
	Render  RenderConfig  `toml:"render" yaml:"render"`
	Scene   SceneConfig   `toml:"scene" yaml:"scene"`
	Log     LogConfig     `toml:"log" yaml:"log"`
	Profile ProfileConfig `toml:"profile" yaml:"profile"`
}

type WindowConfig struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
}

type RenderConfig struct {
	FramesInFlight int    `toml:"frames_in_flight" yaml:"frames_in_flight"`
	PresentMode    string `toml:"present_mode" yaml:"present_mode"`
	MaxSamples     int    `toml:"max_samples" yaml:"max_samples"` // 0 = device max
	Validation     bool   `toml:"validation" yaml:"validation"`
	ClearColor     string `toml:"clear_color" yaml:"clear_color"` // sRGB hex
}

type SceneConfig struct {
	Model     string     `toml:"model" yaml:"model"`           // "" = built-in quads
	Texture   string     `toml:"texture" yaml:"texture"`       // "" = checker
	ShaderDir string     `toml:"shader_dir" yaml:"shader_dir"` // "" = embedded, not watched
	LightPos  [3]float32 `toml:"light_pos" yaml:"light_pos"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

type ProfileConfig struct {
	Capacity int  `toml:"capacity" yaml:"capacity"`
	Dump     bool `toml:"dump" yaml:"dump"`
}

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{Title: "Vulkan_demo", Width: 800, Height: 600},
		Render: RenderConfig{
			FramesInFlight: frame.DefaultFramesInFlight,
			PresentMode:    frame.PresentModeMailbox.String(),
			ClearColor:     "#000000",
		},
		Scene:   SceneConfig{LightPos: [3]float32{2, 2, 0}},
		Log:     LogConfig{Level: "info"},
		Profile: ProfileConfig{Capacity: 1 << 16},
	}
}

// LoadConfig reads a TOML or YAML file (by extension) over the defaults and
// validates the result. Unknown keys are errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := decodeConfig(&cfg, filepath.Ext(path), b); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

func decodeConfig(cfg *Config, ext string, b []byte) error {
	switch strings.ToLower(ext) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
	return fmt.Errorf("unsupported config format %q", ext)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	case c.Render.FramesInFlight < 1:
		return fmt.Errorf("render.frames_in_flight %d must be at least 1", c.Render.FramesInFlight)
	case c.Render.MaxSamples < 0 || (c.Render.MaxSamples > 0 && bits.OnesCount(uint(c.Render.MaxSamples)) != 1):
		return fmt.Errorf("render.max_samples %d must be 0 or a power of two", c.Render.MaxSamples)
	case c.Profile.Capacity < 0:
		return fmt.Errorf("profile.capacity %d must not be negative", c.Profile.Capacity)
	}
	if _, err := c.PresentMode(); err != nil {
		return err
	}
	if _, err := c.ClearColor(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

func (c Config) PresentMode() (frame.PresentMode, error) {
	m, err := frame.ParsePresentMode(c.Render.PresentMode)
	if err != nil {
		return 0, fmt.Errorf("render.present_mode: %w", err)
	}
	return m, nil
}

// ClearColor returns the clear color in linear space, ready for an sRGB
// target.
func (c Config) ClearColor() (colors.Color, error) {
	col, err := colors.ParseHex(c.Render.ClearColor)
	if err != nil {
		return colors.Color{}, fmt.Errorf("render.clear_color: %w", err)
	}
	return col.Linear(), nil
}

func (c Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
