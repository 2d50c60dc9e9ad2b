// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"github.com/user/h264play/pkg/codec/colorconv"
	"github.com/user/h264play/pkg/h264play"
	"github.com/user/h264play/pkg/orchestrator"
	"github.com/user/h264play/pkg/player"
	"github.com/user/h264play/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Config represents the full configuration for h264play.
type Config struct {
	// Playback
	FPS         float64 `yaml:"fps"`
	Repeat      bool    `yaml:"repeat"`
	PixelFormat string  `yaml:"pixel_format"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // console, text or json
	LogFile   string `yaml:"log_file"`

	// Snapshot
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// SnapshotConfig represents contact sheet settings. Zero values and nil
// flags keep the preset's choice.
type SnapshotConfig struct {
	Preset     string `yaml:"preset"` // overview or filmstrip
	Columns    int    `yaml:"columns"`
	ThumbWidth int    `yaml:"thumb_width"`
	MaxFrames  int    `yaml:"max_frames"`
	Every      int    `yaml:"every"`
	Background string `yaml:"background"`
	Border     string `yaml:"border"`
	Banner     *bool  `yaml:"banner"`
	Labels     *bool  `yaml:"labels"`
	Credit     string `yaml:"credit"`
	Format     string `yaml:"format"`
	Quality    int    `yaml:"quality"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		// Playback
		FPS:         30.0,
		Repeat:      false,
		PixelFormat: "bgra",

		// Logging
		LogLevel:  "info",
		LogFormat: "console",

		// Snapshot
		Snapshot: SnapshotConfig{
			Preset: "overview",
		},

		// Debug
		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// FrameInterval returns the playback period derived from FPS.
func (c Config) FrameInterval() time.Duration {
	if c.FPS <= 0 {
		return player.DefaultFrameInterval
	}
	return time.Duration(float64(time.Second) / c.FPS)
}

// PlayerOptions converts the playback settings to player.Options.
func (c Config) PlayerOptions() (player.Options, error) {
	format, err := colorconv.ParseFormat(c.PixelFormat)
	if err != nil {
		return player.Options{}, err
	}
	return player.Options{
		Repeat:        c.Repeat,
		FrameInterval: c.FrameInterval(),
		Format:        format,
	}, nil
}

// SheetConfig converts the snapshot settings to h264play.Config.
func (c Config) SheetConfig() (h264play.Config, error) {
	s := c.Snapshot

	var b *h264play.ConfigBuilder
	switch s.Preset {
	case "overview", "":
		b = h264play.NewConfigBuilder()
	case "filmstrip":
		b = h264play.NewFilmstripConfigBuilder()
	default:
		return h264play.Config{}, fmt.Errorf("unknown snapshot preset %q", s.Preset)
	}

	if s.Format != "" {
		format, err := ports.ParseImageFormat(s.Format)
		if err != nil {
			return h264play.Config{}, err
		}
		b.WithFormat(format)
	}
	if s.Columns > 0 {
		b.WithColumns(s.Columns)
	}
	if s.ThumbWidth > 0 {
		b.WithThumbWidth(s.ThumbWidth)
	}
	if s.MaxFrames > 0 {
		b.WithMaxFrames(s.MaxFrames)
	}
	if s.Every > 0 {
		b.WithEvery(s.Every)
	}
	if s.Background != "" {
		b.WithBackgroundColor(ParseColor(s.Background))
	}
	if s.Border != "" {
		b.WithBorderColor(ParseColor(s.Border))
	}
	if s.Credit != "" {
		b.WithCredit(s.Credit)
	}
	if s.Quality > 0 {
		b.WithQuality(s.Quality)
	}
	if s.Banner != nil {
		b.WithBanner(*s.Banner)
	}
	if s.Labels != nil {
		b.WithLabels(*s.Labels)
	}

	return b.Build(), nil
}

// ToOrchestratorConfig converts the snapshot settings to orchestrator.Config.
func (c Config) ToOrchestratorConfig(inputPath, outputPath string) (orchestrator.Config, error) {
	sheet, err := c.SheetConfig()
	if err != nil {
		return orchestrator.Config{}, err
	}
	return sheet.ToOrchestratorConfig(inputPath, outputPath), nil
}

// ParseColor parses a hex color string to color.Color.
func ParseColor(hex string) color.Color {
	if len(hex) == 0 {
		return color.Black
	}

	if hex[0] == '#' {
		hex = hex[1:]
	}

	switch len(hex) {
	case 3:
		r, g, b := hexValue(hex[0]), hexValue(hex[1]), hexValue(hex[2])
		return color.RGBA{R: r<<4 | r, G: g<<4 | g, B: b<<4 | b, A: 255}
	case 6:
		return color.RGBA{R: hexByte(hex[0:2]), G: hexByte(hex[2:4]), B: hexByte(hex[4:6]), A: 255}
	case 8:
		return color.NRGBA{R: hexByte(hex[0:2]), G: hexByte(hex[2:4]), B: hexByte(hex[4:6]), A: hexByte(hex[6:8])}
	default:
		return color.Black
	}
}

func hexByte(s string) uint8 {
	return hexValue(s[0])<<4 | hexValue(s[1])
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
