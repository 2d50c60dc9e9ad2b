package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/user/h264play/pkg/adapters/codecdetect"
	"github.com/user/h264play/pkg/adapters/filesink"
	"github.com/user/h264play/pkg/adapters/ggrenderer"
	"github.com/user/h264play/pkg/adapters/nullsink"
	"github.com/user/h264play/pkg/adapters/osfilesystem"
	"github.com/user/h264play/pkg/config"
	"github.com/user/h264play/pkg/h264play"
	"github.com/user/h264play/pkg/orchestrator"
	"github.com/user/h264play/pkg/ports"
	"github.com/user/h264play/pkg/probe"
	"github.com/user/h264play/pkg/stages/banner"
	"github.com/user/h264play/pkg/stages/composite"
	"github.com/user/h264play/pkg/stages/decode"
	"github.com/user/h264play/pkg/stages/encode"
	"github.com/user/h264play/pkg/stages/layout"
	"github.com/user/h264play/pkg/summarizer"
)

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:      "snapshot",
		Usage:     l10n.T("Render a contact sheet of decoded frames"),
		ArgsUsage: "<stream.h264>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    l10n.T("Output image path (single input only)"),
				Category: l10n.T("Output"),
			},
			&cli.StringFlag{
				Name:     "output-dir",
				Usage:    l10n.T("Directory for contact sheets when several inputs are given"),
				Category: l10n.T("Output"),
			},
			&cli.StringFlag{
				Name:     "format",
				Usage:    l10n.T("Image format (png, jpg)"),
				Category: l10n.T("Output"),
			},
			&cli.IntFlag{
				Name:     "quality",
				Aliases:  []string{"q"},
				Usage:    l10n.T("JPEG quality (1-100, overrides quality preset)"),
				Category: l10n.T("Output"),
			},
			&cli.StringFlag{
				Name:     "summary",
				Usage:    l10n.T("Write a stream summary next to each sheet (md or json)"),
				Category: l10n.T("Output"),
			},
			&cli.StringFlag{
				Name:     "preset",
				Aliases:  []string{"p"},
				Usage:    l10n.T("Sheet preset (overview, filmstrip)"),
				Category: l10n.T("Preset"),
			},
			&cli.StringFlag{
				Name:     "quality-preset",
				Usage:    l10n.T("Quality preset (low, medium, high)"),
				Category: l10n.T("Preset"),
			},
			&cli.IntFlag{
				Name:     "max-frames",
				Aliases:  []string{"n"},
				Usage:    l10n.T("Number of frames on the sheet"),
				Category: l10n.T("Sampling"),
			},
			&cli.IntFlag{
				Name:     "every",
				Usage:    l10n.T("Keep every Nth decoded frame"),
				Category: l10n.T("Sampling"),
			},
			&cli.IntFlag{
				Name:     "columns",
				Usage:    l10n.T("Number of columns (min: 1)"),
				Category: l10n.T("Layout and Style"),
			},
			&cli.IntFlag{
				Name:     "thumb-width",
				Usage:    l10n.T("Thumbnail width in pixels"),
				Category: l10n.T("Layout and Style"),
			},
			&cli.StringFlag{
				Name:     "background",
				Usage:    l10n.T("Background color (hex, e.g., #1e1e1e)"),
				Category: l10n.T("Layout and Style"),
			},
			&cli.StringFlag{
				Name:     "border",
				Usage:    l10n.T("Border color (hex, e.g., #505050)"),
				Category: l10n.T("Layout and Style"),
			},
			&cli.BoolFlag{
				Name:     "no-labels",
				Usage:    l10n.T("Hide thumbnail captions"),
				Category: l10n.T("Layout and Style"),
			},
			&cli.BoolFlag{
				Name:     "no-banner",
				Usage:    l10n.T("Hide the stream banner"),
				Category: l10n.T("Banner"),
			},
			&cli.StringFlag{
				Name:     "credit",
				Usage:    l10n.T("Custom text shown in banner (default: h264play)"),
				Category: l10n.T("Banner"),
			},
			&cli.IntFlag{
				Name:     "workers",
				Usage:    l10n.T("Parallel inputs and thumbnail workers (0 = number of CPUs)"),
				Category: l10n.T("Performance"),
			},
			&cli.BoolFlag{
				Name:     "debug",
				Aliases:  []string{"d"},
				Usage:    l10n.T("Save decoded frames and intermediate results"),
				Category: l10n.T("Debug"),
			},
			&cli.StringFlag{
				Name:     "debug-dir",
				Usage:    l10n.T("Directory for debug output"),
				Category: l10n.T("Debug"),
			},
		},
		Action: runSnapshot,
	}
}

func runSnapshot(c *cli.Context) error {
	inputs := c.Args().Slice()
	if len(inputs) == 0 {
		return errors.New(l10n.T("At least one stream argument is required"))
	}
	if c.IsSet("output") && len(inputs) > 1 {
		return errors.New(l10n.T("--output accepts a single input, use --output-dir"))
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applySnapshotFlags(c, &cfg)

	sheet, err := buildSheetConfig(c, cfg)
	if err != nil {
		return err
	}

	log, closer := newLogger(c, cfg)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	workers := c.Int("workers")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, input := range inputs {
		g.Go(func() error {
			output := outputPath(c, input, sheet.Format)
			job := snapshotJob{
				fs:       fs,
				renderer: renderer,
				log:      log.WithComponent(filepath.Base(input)),
				workers:  workers,
				summary:  c.String("summary"),
			}
			if cfg.Debug {
				job.debugDir = filepath.Join(cfg.DebugDir, strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)))
			}
			return job.run(ctx, sheet.ToOrchestratorConfig(input, output))
		})
	}
	return g.Wait()
}

func applySnapshotFlags(c *cli.Context, cfg *config.Config) {
	s := &cfg.Snapshot
	if c.IsSet("preset") {
		s.Preset = c.String("preset")
	}
	if c.IsSet("max-frames") {
		s.MaxFrames = c.Int("max-frames")
	}
	if c.IsSet("every") {
		s.Every = c.Int("every")
	}
	if c.IsSet("columns") {
		s.Columns = c.Int("columns")
	}
	if c.IsSet("thumb-width") {
		s.ThumbWidth = c.Int("thumb-width")
	}
	if c.IsSet("background") {
		s.Background = c.String("background")
	}
	if c.IsSet("border") {
		s.Border = c.String("border")
	}
	off := false
	if c.Bool("no-labels") {
		s.Labels = &off
	}
	if c.Bool("no-banner") {
		s.Banner = &off
	}
	if c.IsSet("credit") {
		s.Credit = c.String("credit")
	}
	if c.IsSet("format") {
		s.Format = c.String("format")
	}
	if c.IsSet("quality") {
		s.Quality = c.Int("quality")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
	}
	if c.IsSet("debug-dir") {
		cfg.DebugDir = c.String("debug-dir")
	}
}

// buildSheetConfig resolves the configured sheet and applies the quality
// preset, letting an explicit --quality or --thumb-width win over it.
func buildSheetConfig(c *cli.Context, cfg config.Config) (h264play.Config, error) {
	sheet, err := cfg.SheetConfig()
	if err != nil {
		return sheet, err
	}
	if !c.IsSet("quality-preset") {
		return sheet, nil
	}
	preset := h264play.GetQualitySettings(h264play.QualityPreset(c.String("quality-preset")))
	if !c.IsSet("thumb-width") {
		sheet.ThumbWidth = preset.ThumbWidth
	}
	if !c.IsSet("quality") {
		sheet.Quality = preset.JPEGQuality
	}
	return sheet, nil
}

func outputPath(c *cli.Context, input string, format ports.ImageFormat) string {
	if out := c.String("output"); out != "" {
		return out
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + "." + format.Extension()
	if dir := c.String("output-dir"); dir != "" {
		return filepath.Join(dir, base)
	}
	return filepath.Join(filepath.Dir(input), base)
}

// snapshotJob renders one contact sheet.
type snapshotJob struct {
	fs       ports.FileSystem
	renderer ports.Renderer
	log      ports.Logger
	workers  int
	debugDir string
	summary  string
}

func (j snapshotJob) run(ctx context.Context, oc orchestrator.Config) error {
	data, err := j.fs.ReadFile(oc.InputPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", oc.InputPath, err)
	}
	detected, err := codecdetect.Detect(data)
	if err != nil {
		return fmt.Errorf("%s: %w", oc.InputPath, err)
	}

	var sink ports.DebugSink = nullsink.New()
	if j.debugDir != "" {
		if err := j.fs.MkdirAll(j.debugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(j.debugDir, j.fs, j.renderer)
	}

	orch := orchestrator.New(
		decode.NewStage(sink, j.log),
		layout.NewStage(),
		banner.NewStage(j.renderer, banner.DefaultSubtitle, j.log),
		composite.NewStage(j.renderer, sink, j.log, j.workers),
		encode.NewStage(j.renderer, j.log),
		j.fs,
		sink,
		j.log,
	)

	result, runErr := orch.Run(ctx, oc)
	if runErr == nil {
		j.log.Info("Contact sheet saved to %s (%dx%d, %d of %d frames)",
			result.OutputPath, result.SheetWidth, result.SheetHeight, result.Sampled, result.FrameCount)
	} else {
		j.removeStale(oc.OutputPath)
	}

	if j.summary != "" {
		if err := j.writeSummary(ctx, oc.InputPath, data, detected, result, runErr); err != nil {
			j.log.Warn("Failed to write summary: %v", err)
		}
	}
	return runErr
}

// removeStale deletes a sheet left by an earlier run so a failed input
// never keeps an image of different content.
func (j snapshotJob) removeStale(path string) {
	ok, err := j.fs.Exists(path)
	if err != nil || !ok {
		return
	}
	if err := j.fs.Remove(path); err != nil {
		j.log.Warn("Failed to remove stale sheet %s: %v", path, err)
		return
	}
	j.log.Debug("Removed stale sheet %s", path)
}

func (j snapshotJob) writeSummary(ctx context.Context, input string, data []byte, detected codecdetect.Result, result orchestrator.RunResult, runErr error) error {
	probed, probeErr := probe.Run(ctx, data, j.log)

	b := summarizer.NewBuilder().
		WithStream(filepath.Base(input), string(detected.Container), int64(len(data))).
		WithProbe(probed)
	if runErr == nil {
		b.WithSheet(summarizer.SheetInfo{
			Path:     result.OutputPath,
			Width:    result.SheetWidth,
			Height:   result.SheetHeight,
			Sampled:  result.Sampled,
			FileSize: result.FileSize,
		})
	}
	if runErr != nil {
		b.WithFailure(runErr)
	} else if probeErr != nil {
		b.WithFailure(probeErr)
	}

	beside := result.OutputPath
	if beside == "" {
		beside = input
	}
	w := summarizer.NewWriter(summaryFormatter(j.summary), j.summary, j.fs)
	path, err := w.WriteBeside(beside, "", b.Build())
	if err != nil {
		return err
	}
	j.log.Info("Summary saved to %s", path)
	return nil
}

func summaryFormatter(kind string) summarizer.Formatter {
	if kind == "json" {
		return summarizer.NewJSONFormatter()
	}
	return summarizer.NewMarkdownFormatter(
		summarizer.WithTranslator(l10n.T),
		summarizer.WithVersion(version),
	)
}
