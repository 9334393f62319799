package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
[pen]
color = "#FF0000"
size = 6

[zoom]
max = 5

[server]
port = 9000
mdns = false

[bogus]
key = 1
`)
	cfg, unknown, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pen.Color != "#FF0000" || cfg.Pen.Size != 6 {
		t.Errorf("pen = %+v", cfg.Pen)
	}
	if !cfg.Pen.Smoothing {
		t.Error("unset keys should keep their defaults")
	}
	if cfg.Zoom.Min != 0.4 || cfg.Zoom.Max != 5 {
		t.Errorf("zoom = %+v", cfg.Zoom)
	}
	if cfg.Server.Port != 9000 || cfg.Server.MDNS {
		t.Errorf("server = %+v", cfg.Server)
	}
	if len(unknown) != 1 || unknown[0] != "bogus.key" {
		t.Errorf("unknown = %v, want [bogus.key]", unknown)
	}

	opts := cfg.BoardOptions()
	if opts.Pen.Color != "#FF0000" || opts.MaxZoom != 5 {
		t.Errorf("BoardOptions = %+v", opts)
	}
}

func TestLoadMissing(t *testing.T) {
	cfg, _, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
	if cfg.Pen.Size != Default().Pen.Size {
		t.Error("missing config should return defaults")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[pen\n", "parse config"},
		{"zoom", "[zoom]\nmin = 2\nmax = 1\n", "zoom range"},
		{"alpha", "[highlighter]\nalpha = 3\n", "alpha"},
		{"shape", "[shape]\nkind = \"star\"\n", "shape kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
