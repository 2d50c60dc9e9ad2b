// Package orchestrator coordinates the contact sheet stages.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"path/filepath"

	"github.com/user/h264play/pkg/codec/decoder"
	"github.com/user/h264play/pkg/pipeline"
	"github.com/user/h264play/pkg/ports"
)

// Config contains all configuration for a snapshot run.
type Config struct {
	// Input
	InputPath  string
	Name       string // shown on the banner, defaults to the input file name
	OutputPath string

	// Sampling
	MaxFrames int
	Every     int

	// Layout
	Columns     int
	ThumbWidth  int
	Gap         int
	Padding     int
	Labels      bool
	LabelHeight int

	// Style
	BackgroundColor [4]uint8 // RGBA
	BorderColor     [4]uint8 // RGBA

	// Banner
	BannerEnabled bool
	BannerHeight  int
	Credit        string

	// Encoding
	Format  ports.ImageFormat
	Quality int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	layout := pipeline.DefaultLayoutInput()
	encode := pipeline.DefaultEncodeInput()
	return Config{
		MaxFrames: 12,
		Every:     1,

		Columns:     layout.Columns,
		ThumbWidth:  layout.ThumbWidth,
		Gap:         layout.Gap,
		Padding:     layout.Padding,
		Labels:      true,
		LabelHeight: layout.LabelHeight,

		BannerEnabled: true,
		BannerHeight:  76,

		Format:  encode.Format,
		Quality: encode.Quality,
	}
}

// Orchestrator coordinates the execution of all pipeline stages.
type Orchestrator struct {
	decodeStage    pipeline.Stage[pipeline.DecodeInput, pipeline.DecodeResult]
	layoutStage    pipeline.Stage[pipeline.LayoutInput, pipeline.LayoutResult]
	bannerStage    pipeline.Stage[pipeline.BannerInput, pipeline.BannerResult]
	compositeStage pipeline.Stage[pipeline.CompositeInput, pipeline.CompositeResult]
	encodeStage    pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult]
	fs             ports.FileSystem
	sink           ports.DebugSink
	logger         ports.Logger
}

// New creates a new Orchestrator.
func New(
	decodeStage pipeline.Stage[pipeline.DecodeInput, pipeline.DecodeResult],
	layoutStage pipeline.Stage[pipeline.LayoutInput, pipeline.LayoutResult],
	bannerStage pipeline.Stage[pipeline.BannerInput, pipeline.BannerResult],
	compositeStage pipeline.Stage[pipeline.CompositeInput, pipeline.CompositeResult],
	encodeStage pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult],
	fs ports.FileSystem,
	sink ports.DebugSink,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		decodeStage:    decodeStage,
		layoutStage:    layoutStage,
		bannerStage:    bannerStage,
		compositeStage: compositeStage,
		encodeStage:    encodeStage,
		fs:             fs,
		sink:           sink,
		logger:         logger,
	}
}

// Run decodes config.InputPath and writes its contact sheet to config.OutputPath.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	o.logger.Info("Starting pipeline")

	data, err := o.fs.ReadFile(config.InputPath)
	if err != nil {
		o.logger.Error("Failed to read %s: %v", config.InputPath, err)
		return RunResult{}, fmt.Errorf("read input: %w", err)
	}
	name := config.Name
	if name == "" {
		name = filepath.Base(config.InputPath)
	}

	// 1. Decode
	o.logger.Info("Decoding %s (%d bytes)", name, len(data))
	decoded, err := o.decodeStage.Execute(ctx, pipeline.DecodeInput{
		Name:      name,
		Data:      data,
		MaxFrames: config.MaxFrames,
		Every:     config.Every,
	})
	if err != nil {
		o.logger.Error("Failed to decode stream: %v", err)
		return RunResult{}, fmt.Errorf("decode stage: %w", err)
	}
	o.logger.Info("Decoded %d frames, %d skipped units", decoded.Total, decoded.Errors)

	if o.sink.Enabled() {
		if js, err := json.MarshalIndent(decoded.Stats, "", "  "); err == nil {
			o.sink.SaveStreamJSON("decode", js)
		}
	}

	// 2. Layout
	o.logger.Info("Calculating layout")
	layout, err := o.layoutStage.Execute(ctx, o.buildLayoutInput(config, decoded))
	if err != nil {
		o.logger.Error("Failed to calculate layout: %v", err)
		return RunResult{}, fmt.Errorf("layout stage: %w", err)
	}
	o.logger.Info("Layout calculated: %dx%d canvas, %d columns", layout.Canvas.Width, layout.Canvas.Height, config.Columns)

	if o.sink.Enabled() {
		if js, err := json.MarshalIndent(layout, "", "  "); err == nil {
			o.sink.SaveStreamJSON("layout", js)
		}
	}

	// 3. Banner (optional)
	var banner *pipeline.BannerResult
	if config.BannerEnabled {
		o.logger.Info("Generating banner")
		b, err := o.bannerStage.Execute(ctx, o.buildBannerInput(config, name, layout, decoded))
		if err != nil {
			o.logger.Error("Failed to generate banner: %v", err)
			return RunResult{}, fmt.Errorf("banner stage: %w", err)
		}
		banner = &b
	}

	// 4. Compose
	o.logger.Info("Compositing %d frames", len(decoded.Frames))
	composite, err := o.compositeStage.Execute(ctx, o.buildCompositeInput(config, layout, decoded, banner))
	if err != nil {
		o.logger.Error("Failed to composite frames: %v", err)
		return RunResult{}, fmt.Errorf("composite stage: %w", err)
	}

	// 5. Encode
	encoded, err := o.encodeStage.Execute(ctx, pipeline.EncodeInput{
		Image:   composite.Image,
		Format:  config.Format,
		Quality: config.Quality,
	})
	if err != nil {
		o.logger.Error("Failed to encode image: %v", err)
		return RunResult{}, fmt.Errorf("encode stage: %w", err)
	}

	// 6. Write output file
	if err := o.fs.WriteFile(config.OutputPath, encoded.Data); err != nil {
		o.logger.Error("Failed to write output: %v", err)
		return RunResult{}, fmt.Errorf("write output: %w", err)
	}

	o.logger.Info("Pipeline completed successfully")

	return RunResult{
		Name:        name,
		OutputPath:  config.OutputPath,
		Width:       decoded.Size.Width,
		Height:      decoded.Size.Height,
		FPS:         decoded.FPS,
		Matrix:      decoded.Matrix.String(),
		Profile:     decoded.Profile,
		Level:       decoded.Level,
		FrameCount:  decoded.Total,
		Sampled:     len(decoded.Frames),
		Errors:      decoded.Errors,
		Stats:       decoded.Stats,
		SheetWidth:  layout.Canvas.Width,
		SheetHeight: layout.Canvas.Height,
		FileSize:    encoded.FileSize,
	}, nil
}

func (o *Orchestrator) buildLayoutInput(config Config, decoded pipeline.DecodeResult) pipeline.LayoutInput {
	return pipeline.LayoutInput{
		Frames:       len(decoded.Frames),
		Source:       decoded.Size,
		Columns:      config.Columns,
		ThumbWidth:   config.ThumbWidth,
		Gap:          config.Gap,
		Padding:      config.Padding,
		LabelHeight:  conditionalInt(config.Labels, config.LabelHeight, 0),
		BannerHeight: conditionalInt(config.BannerEnabled, config.BannerHeight, 0),
	}
}

func (o *Orchestrator) buildBannerInput(config Config, name string, layout pipeline.LayoutResult, decoded pipeline.DecodeResult) pipeline.BannerInput {
	return pipeline.BannerInput{
		Width:   layout.Canvas.Width,
		Height:  config.BannerHeight,
		Name:    name,
		Size:    decoded.Size,
		Frames:  decoded.Total,
		Sampled: len(decoded.Frames),
		FPS:     decoded.FPS,
		Matrix:  decoded.Matrix.String(),
		Profile: decoded.Profile,
		Level:   decoded.Level,
		Credit:  config.Credit,
		Theme:   pipeline.DefaultBannerTheme(),
	}
}

func (o *Orchestrator) buildCompositeInput(
	config Config,
	layout pipeline.LayoutResult,
	decoded pipeline.DecodeResult,
	banner *pipeline.BannerResult,
) pipeline.CompositeInput {
	theme := pipeline.DefaultCompositeTheme()
	if config.BackgroundColor != [4]uint8{} {
		theme.BackgroundColor = rgbaFromArray(config.BackgroundColor)
	}
	if config.BorderColor != [4]uint8{} {
		theme.BorderColor = rgbaFromArray(config.BorderColor)
	}

	return pipeline.CompositeInput{
		Frames: decoded.Frames,
		Layout: layout,
		Banner: banner,
		Theme:  theme,
	}
}

func conditionalInt(condition bool, trueVal, falseVal int) int {
	if condition {
		return trueVal
	}
	return falseVal
}

func rgbaFromArray(c [4]uint8) color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// RunResult contains the results of a snapshot run for summary generation.
type RunResult struct {
	Name       string
	OutputPath string

	// Stream information
	Width   int
	Height  int
	FPS     float64
	Matrix  string
	Profile int
	Level   int

	// Decoding
	FrameCount int
	Sampled    int
	Errors     int
	Stats      decoder.Stats

	// Output
	SheetWidth  int
	SheetHeight int
	FileSize    int64
}
