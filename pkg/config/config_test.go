package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/h264play/pkg/codec/colorconv"
	"github.com/user/h264play/pkg/player"
	"github.com/user/h264play/pkg/ports"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.FPS != 30 {
		t.Errorf("fps = %v, want 30", cfg.FPS)
	}
	if cfg.Repeat {
		t.Error("repeat should be off by default")
	}
	if cfg.Snapshot.Preset != "overview" {
		t.Errorf("preset = %q, want overview", cfg.Snapshot.Preset)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "h264play.yaml")
	data := `
fps: 25
repeat: true
pixel_format: rgba
snapshot:
  columns: 6
  format: jpg
  banner: false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.FPS != 25 || !cfg.Repeat || cfg.PixelFormat != "rgba" {
		t.Errorf("playback = %v/%v/%q", cfg.FPS, cfg.Repeat, cfg.PixelFormat)
	}
	if cfg.Snapshot.Columns != 6 || cfg.Snapshot.Format != "jpg" {
		t.Errorf("snapshot = %+v", cfg.Snapshot)
	}
	if cfg.Snapshot.Banner == nil || *cfg.Snapshot.Banner {
		t.Error("banner should be explicitly off")
	}
	if cfg.Snapshot.Labels != nil {
		t.Error("labels were not in the file")
	}
	// untouched keys keep defaults
	if cfg.Snapshot.Preset != "overview" || cfg.LogLevel != "info" {
		t.Errorf("defaults lost: preset %q, level %q", cfg.Snapshot.Preset, cfg.LogLevel)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("fps: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestFrameInterval(t *testing.T) {
	tests := []struct {
		fps  float64
		want time.Duration
	}{
		{25, 40 * time.Millisecond},
		{50, 20 * time.Millisecond},
		{0, player.DefaultFrameInterval},
		{-1, player.DefaultFrameInterval},
	}
	for _, tt := range tests {
		cfg := Config{FPS: tt.fps}
		if got := cfg.FrameInterval(); got != tt.want {
			t.Errorf("FrameInterval(%v) = %v, want %v", tt.fps, got, tt.want)
		}
	}
}

func TestPlayerOptions(t *testing.T) {
	cfg := Defaults()
	cfg.FPS = 25
	cfg.Repeat = true
	cfg.PixelFormat = "rgba"

	opts, err := cfg.PlayerOptions()
	if err != nil {
		t.Fatalf("PlayerOptions: %v", err)
	}
	if !opts.Repeat || opts.FrameInterval != 40*time.Millisecond || opts.Format != colorconv.FormatRGBA {
		t.Errorf("options = %+v", opts)
	}

	cfg.PixelFormat = "yuv"
	if _, err := cfg.PlayerOptions(); err == nil {
		t.Error("expected error for unknown pixel format")
	}
}

func TestToOrchestratorConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Snapshot.Columns = 5
	cfg.Snapshot.Every = 2
	cfg.Snapshot.Background = "#102030"
	cfg.Snapshot.Format = "jpeg"
	cfg.Snapshot.Quality = 70

	oc, err := cfg.ToOrchestratorConfig("clip.h264", "sheet.jpg")
	if err != nil {
		t.Fatalf("ToOrchestratorConfig: %v", err)
	}
	if oc.InputPath != "clip.h264" || oc.OutputPath != "sheet.jpg" {
		t.Errorf("paths = %q, %q", oc.InputPath, oc.OutputPath)
	}
	if oc.Columns != 5 || oc.Every != 2 || oc.MaxFrames != 12 {
		t.Errorf("columns/every/max = %d/%d/%d", oc.Columns, oc.Every, oc.MaxFrames)
	}
	if oc.BackgroundColor != [4]uint8{0x10, 0x20, 0x30, 0xff} {
		t.Errorf("background = %v", oc.BackgroundColor)
	}
	if oc.Format != ports.FormatJPEG || oc.Quality != 70 {
		t.Errorf("format/quality = %v/%d", oc.Format, oc.Quality)
	}
	if !oc.BannerEnabled || !oc.Labels {
		t.Error("banner and labels should follow defaults")
	}
}

func TestToOrchestratorConfig_Filmstrip(t *testing.T) {
	cfg := Defaults()
	cfg.Snapshot.Preset = "filmstrip"

	oc, err := cfg.ToOrchestratorConfig("a.264", "a.jpg")
	if err != nil {
		t.Fatalf("ToOrchestratorConfig: %v", err)
	}
	if oc.Columns != 8 || oc.MaxFrames != 8 || oc.ThumbWidth != 120 {
		t.Errorf("filmstrip = %d columns, %d frames, %dpx", oc.Columns, oc.MaxFrames, oc.ThumbWidth)
	}
	if oc.Labels || oc.BannerEnabled {
		t.Error("filmstrip should have no labels or banner")
	}
	if oc.Format != ports.FormatJPEG {
		t.Errorf("format = %v", oc.Format)
	}

	on := true
	cfg.Snapshot.Labels = &on
	cfg.Snapshot.Format = "png"
	oc, err = cfg.ToOrchestratorConfig("a.264", "a.png")
	if err != nil {
		t.Fatalf("ToOrchestratorConfig: %v", err)
	}
	if !oc.Labels || oc.Format != ports.FormatPNG {
		t.Errorf("overrides lost: labels=%v format=%v", oc.Labels, oc.Format)
	}
}

func TestToOrchestratorConfig_Errors(t *testing.T) {
	cfg := Defaults()
	cfg.Snapshot.Preset = "mosaic"
	if _, err := cfg.ToOrchestratorConfig("a", "b"); err == nil {
		t.Error("expected error for unknown preset")
	}

	cfg = Defaults()
	cfg.Snapshot.Format = "gif"
	if _, err := cfg.ToOrchestratorConfig("a", "b"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.Color
	}{
		{"#ff8000", color.RGBA{R: 255, G: 128, B: 0, A: 255}},
		{"1A2b3C", color.RGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 255}},
		{"#fff", color.RGBA{R: 255, G: 255, B: 255, A: 255}},
		{"#11223380", color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x80}},
		{"", color.Black},
		{"#12345", color.Black},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseColor(tt.in); got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
