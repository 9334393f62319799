// Package config loads SmartBoard settings from a TOML file layered over
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"SmartBoard/internal/render"
	"SmartBoard/internal/smooth"
	"SmartBoard/internal/state"
)

type Canvas struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Background string `toml:"background"`
	GridColor  string `toml:"grid_color"`
	Grid       bool   `toml:"grid"`
}

type Pen struct {
	Color     string  `toml:"color"`
	Size      float64 `toml:"size"`
	Smoothing bool    `toml:"smoothing"`
	Pressure  bool    `toml:"pressure"`
}

type Highlighter struct {
	Color string  `toml:"color"`
	Size  float64 `toml:"size"`
	Alpha float64 `toml:"alpha"`
}

type Shape struct {
	Kind   string  `toml:"kind"`
	Stroke string  `toml:"stroke"`
	Fill   string  `toml:"fill"`
	Width  float64 `toml:"width"`
}

type Eraser struct {
	Size float64 `toml:"size"`
}

type Zoom struct {
	Min float64 `toml:"min"`
	Max float64 `toml:"max"`
}

type History struct {
	Limit int `toml:"limit"`
}

type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	MDNS bool   `toml:"mdns"`
	Name string `toml:"name"`
}

type Record struct {
	FPS       int `toml:"fps"`
	MaxFrames int `toml:"max_frames"`
}

type Export struct {
	Dir string `toml:"dir"`
}

type Data struct {
	Dir      string `toml:"dir"`
	Autosave bool   `toml:"autosave"`
}

// Config is the full settings tree.
type Config struct {
	Canvas      Canvas      `toml:"canvas"`
	Pen         Pen         `toml:"pen"`
	Highlighter Highlighter `toml:"highlighter"`
	Shape       Shape       `toml:"shape"`
	Eraser      Eraser      `toml:"eraser"`
	Zoom        Zoom        `toml:"zoom"`
	History     History     `toml:"history"`
	Server      Server      `toml:"server"`
	Record      Record      `toml:"record"`
	Export      Export      `toml:"export"`
	Data        Data        `toml:"data"`
}

// Default returns the built-in settings.
func Default() Config {
	b := state.DefaultOptions()
	r := render.DefaultOptions()
	return Config{
		Canvas:      Canvas{Width: 1280, Height: 800, Background: r.Background, GridColor: r.GridColor},
		Pen:         Pen{Color: b.Pen.Color, Size: b.Pen.Size, Smoothing: true, Pressure: true},
		Highlighter: Highlighter{Color: b.Highlighter.Color, Size: b.Highlighter.Size, Alpha: b.Highlighter.Alpha},
		Shape:       Shape{Kind: string(b.Shape.Kind), Stroke: b.Shape.Stroke, Fill: b.Shape.Fill, Width: b.Shape.Width},
		Eraser:      Eraser{Size: b.EraserSize},
		Zoom:        Zoom{Min: b.MinZoom, Max: b.MaxZoom},
		History:     History{Limit: b.HistoryLimit},
		Server:      Server{Port: 8765, MDNS: true, Name: "SmartBoard"},
		Record:      Record{FPS: 10, MaxFrames: 600},
		Export:      Export{Dir: "."},
		Data:        Data{Autosave: true},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/smartboard/config.toml, or the
// platform config directory equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config dir: %w", err)
	}
	return filepath.Join(dir, "smartboard", "config.toml"), nil
}

// Load reads path over the defaults. It returns the keys it did not
// recognise so callers can warn about them. A missing file is an error
// wrapping os.ErrNotExist.
func Load(path string) (Config, []string, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil, fmt.Errorf("load config: %w", err)
		}
		return Default(), nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	var unknown []string
	for _, k := range md.Undecoded() {
		unknown = append(unknown, k.String())
	}
	if err := cfg.Validate(); err != nil {
		return Default(), unknown, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, unknown, nil
}

// Validate reports settings no component can honour.
func (c Config) Validate() error {
	var errs []error
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		errs = append(errs, fmt.Errorf("canvas size %dx%d must be positive", c.Canvas.Width, c.Canvas.Height))
	}
	if c.Zoom.Min <= 0 || c.Zoom.Max < c.Zoom.Min {
		errs = append(errs, fmt.Errorf("zoom range [%v, %v] is invalid", c.Zoom.Min, c.Zoom.Max))
	}
	if c.Pen.Size <= 0 || c.Highlighter.Size <= 0 || c.Eraser.Size <= 0 {
		errs = append(errs, errors.New("tool sizes must be positive"))
	}
	if c.Highlighter.Alpha <= 0 || c.Highlighter.Alpha > 1 {
		errs = append(errs, fmt.Errorf("highlighter alpha %v must be in (0, 1]", c.Highlighter.Alpha))
	}
	if !state.Kind(c.Shape.Kind).IsShape() {
		errs = append(errs, fmt.Errorf("unknown shape kind %q", c.Shape.Kind))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}

// BoardOptions returns the Board settings.
func (c Config) BoardOptions() state.Options {
	return state.Options{
		Pen:          state.PenStyle{Color: c.Pen.Color, Size: c.Pen.Size, Smoothing: c.Pen.Smoothing, Pressure: c.Pen.Pressure},
		Highlighter:  state.HighlighterStyle{Color: c.Highlighter.Color, Size: c.Highlighter.Size, Alpha: c.Highlighter.Alpha},
		Shape:        state.ShapeStyle{Kind: state.Kind(c.Shape.Kind), Stroke: c.Shape.Stroke, Fill: c.Shape.Fill, Width: c.Shape.Width},
		EraserSize:   c.Eraser.Size,
		MinZoom:      c.Zoom.Min,
		MaxZoom:      c.Zoom.Max,
		HistoryLimit: c.History.Limit,
	}
}

// RenderOptions returns the surface colours.
func (c Config) RenderOptions() render.Options {
	return render.Options{Background: c.Canvas.Background, GridColor: c.Canvas.GridColor}
}

// SmoothOptions returns the pen smoothing settings.
func (c Config) SmoothOptions() smooth.Options {
	return smooth.Options{Smoothing: c.Pen.Smoothing, Pressure: c.Pen.Pressure}
}
