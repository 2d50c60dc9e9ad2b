// Package h264play provides a high-level API for building contact sheets
// of raw H.264 streams.
package h264play

import (
	"image/color"

	"github.com/user/h264play/pkg/orchestrator"
	"github.com/user/h264play/pkg/ports"
)

// QualityPreset represents an output quality preset name.
type QualityPreset string

const (
	QualityLow    QualityPreset = "low"
	QualityMedium QualityPreset = "medium"
	QualityHigh   QualityPreset = "high"
)

// QualitySettings contains the thumbnail size and JPEG quality of a preset.
type QualitySettings struct {
	ThumbWidth  int
	JPEGQuality int
}

// GetQualitySettings returns quality settings for the given preset.
func GetQualitySettings(preset QualityPreset) QualitySettings {
	switch preset {
	case QualityLow:
		return QualitySettings{ThumbWidth: 120, JPEGQuality: 60}
	case QualityHigh:
		return QualitySettings{ThumbWidth: 320, JPEGQuality: 92}
	default: // medium
		return QualitySettings{ThumbWidth: 160, JPEGQuality: 80}
	}
}

// Config describes a contact sheet.
type Config struct {
	// Sampling
	MaxFrames int // frames on the sheet (min: 1)
	Every     int // keep every Nth decoded frame (min: 1)

	// Layout
	Columns    int // thumbnails per row (min: 1)
	ThumbWidth int // thumbnail width in pixels (min: 16)
	Margin     int
	Gap        int
	Labels     bool // caption every thumbnail with its index and frame_num

	// Style
	BackgroundColor color.Color
	BorderColor     color.Color

	// Banner
	Banner bool
	Credit string

	// Encoding
	Format  ports.ImageFormat
	Quality int // JPEG quality (1-100)
}

// ConfigBuilder provides a fluent interface for building Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a ConfigBuilder with the overview preset: a
// labelled grid of the first frames.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: overviewDefaults(),
	}
}

// NewFilmstripConfigBuilder creates a ConfigBuilder with the filmstrip
// preset: one unlabelled row, no banner.
func NewFilmstripConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: filmstripDefaults(),
	}
}

func overviewDefaults() Config {
	return Config{
		MaxFrames: 12,
		Every:     1,

		Columns:    4,
		ThumbWidth: 160,
		Margin:     16,
		Gap:        8,
		Labels:     true,

		BackgroundColor: color.RGBA{R: 30, G: 30, B: 30, A: 255},
		BorderColor:     color.RGBA{R: 80, G: 80, B: 80, A: 255},

		Banner: true,
		Credit: "h264play",

		Format:  ports.FormatPNG,
		Quality: 80,
	}
}

func filmstripDefaults() Config {
	return Config{
		MaxFrames: 8,
		Every:     1,

		Columns:    8,
		ThumbWidth: 120,
		Margin:     4,
		Gap:        2,
		Labels:     false,

		BackgroundColor: color.Black,
		BorderColor:     color.RGBA{R: 40, G: 40, B: 40, A: 255},

		Banner: false,
		Credit: "h264play",

		Format:  ports.FormatJPEG,
		Quality: 80,
	}
}

// Build returns the final Config, applying validation and constraints.
func (b *ConfigBuilder) Build() Config {
	cfg := b.config

	if cfg.MaxFrames < 1 {
		cfg.MaxFrames = 1
	}
	if cfg.Every < 1 {
		cfg.Every = 1
	}
	if cfg.Columns < 1 {
		cfg.Columns = 1
	}
	if cfg.ThumbWidth < 16 {
		cfg.ThumbWidth = 16
	}
	if cfg.Quality < 1 || cfg.Quality > 100 {
		cfg.Quality = GetQualitySettings(QualityMedium).JPEGQuality
	}

	return cfg
}

// WithMaxFrames sets how many frames end up on the sheet.
func (b *ConfigBuilder) WithMaxFrames(n int) *ConfigBuilder {
	b.config.MaxFrames = n
	return b
}

// WithEvery keeps every Nth decoded frame.
func (b *ConfigBuilder) WithEvery(n int) *ConfigBuilder {
	b.config.Every = n
	return b
}

// WithColumns sets the number of thumbnails per row.
func (b *ConfigBuilder) WithColumns(columns int) *ConfigBuilder {
	b.config.Columns = columns
	return b
}

// WithThumbWidth sets the thumbnail width.
func (b *ConfigBuilder) WithThumbWidth(width int) *ConfigBuilder {
	b.config.ThumbWidth = width
	return b
}

// WithMargin sets the margin around the grid.
func (b *ConfigBuilder) WithMargin(margin int) *ConfigBuilder {
	b.config.Margin = margin
	return b
}

// WithGap sets the gap between thumbnails.
func (b *ConfigBuilder) WithGap(gap int) *ConfigBuilder {
	b.config.Gap = gap
	return b
}

// WithLabels toggles thumbnail captions.
func (b *ConfigBuilder) WithLabels(on bool) *ConfigBuilder {
	b.config.Labels = on
	return b
}

// WithBackgroundColor sets the sheet background color.
func (b *ConfigBuilder) WithBackgroundColor(c color.Color) *ConfigBuilder {
	b.config.BackgroundColor = c
	return b
}

// WithBorderColor sets the thumbnail border color.
func (b *ConfigBuilder) WithBorderColor(c color.Color) *ConfigBuilder {
	b.config.BorderColor = c
	return b
}

// WithBanner toggles the stream banner.
func (b *ConfigBuilder) WithBanner(on bool) *ConfigBuilder {
	b.config.Banner = on
	return b
}

// WithCredit sets the text shown in the banner.
func (b *ConfigBuilder) WithCredit(credit string) *ConfigBuilder {
	b.config.Credit = credit
	return b
}

// WithFormat sets the output image format.
func (b *ConfigBuilder) WithFormat(format ports.ImageFormat) *ConfigBuilder {
	b.config.Format = format
	return b
}

// WithQuality sets the JPEG quality.
func (b *ConfigBuilder) WithQuality(quality int) *ConfigBuilder {
	b.config.Quality = quality
	return b
}

// WithQualityPreset applies a quality preset (low, medium, high).
func (b *ConfigBuilder) WithQualityPreset(preset QualityPreset) *ConfigBuilder {
	settings := GetQualitySettings(preset)
	b.config.ThumbWidth = settings.ThumbWidth
	b.config.Quality = settings.JPEGQuality
	return b
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig(inputPath, outputPath string) orchestrator.Config {
	cfg := orchestrator.DefaultConfig()

	cfg.InputPath = inputPath
	cfg.OutputPath = outputPath

	cfg.MaxFrames = c.MaxFrames
	cfg.Every = c.Every

	cfg.Columns = c.Columns
	cfg.ThumbWidth = c.ThumbWidth
	cfg.Gap = c.Gap
	cfg.Padding = c.Margin
	cfg.Labels = c.Labels

	if c.BackgroundColor != nil {
		cfg.BackgroundColor = colorToArray(c.BackgroundColor)
	}
	if c.BorderColor != nil {
		cfg.BorderColor = colorToArray(c.BorderColor)
	}

	cfg.BannerEnabled = c.Banner
	cfg.Credit = c.Credit

	cfg.Format = c.Format
	cfg.Quality = c.Quality

	return cfg
}

// colorToArray converts color.Color to [4]uint8 array.
func colorToArray(c color.Color) [4]uint8 {
	r, g, b, a := c.RGBA()
	return [4]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}
