package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/user/h264play/pkg/adapters/codecdetect"
	"github.com/user/h264play/pkg/adapters/osfilesystem"
	"github.com/user/h264play/pkg/ports"
	"github.com/user/h264play/pkg/probe"
	"github.com/user/h264play/pkg/summarizer"
)

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Report NAL units, parameter sets and decoder statistics"),
		ArgsUsage: "<stream.h264>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:     "json",
				Usage:    l10n.T("Print JSON instead of Markdown"),
				Category: l10n.T("Output"),
			},
			&cli.StringFlag{
				Name:     "output-dir",
				Usage:    l10n.T("Write one report per input into this directory"),
				Category: l10n.T("Output"),
			},
			&cli.BoolFlag{
				Name:     "strict",
				Usage:    l10n.T("Fail when a stream cannot be decoded to the end"),
				Category: l10n.T("Output"),
			},
		},
		Action: runProbe,
	}
}

func runProbe(c *cli.Context) error {
	inputs := c.Args().Slice()
	if len(inputs) == 0 {
		return errors.New(l10n.T("At least one stream argument is required"))
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, closer := newLogger(c, cfg)
	defer closer.Close()

	fs := osfilesystem.New()
	summaries := make([]*summarizer.Summary, len(inputs))
	failures := make([]error, len(inputs))

	g, ctx := errgroup.WithContext(c.Context)
	for i, input := range inputs {
		g.Go(func() error {
			s, err := probeFile(ctx, fs, input, log.WithComponent(filepath.Base(input)))
			if s == nil {
				return err
			}
			summaries[i], failures[i] = s, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	kind := "md"
	if c.Bool("json") {
		kind = "json"
	}
	formatter := summaryFormatter(kind)
	w := summarizer.NewWriter(formatter, kind, fs)

	for i, s := range summaries {
		if dir := c.String("output-dir"); dir != "" {
			path, err := w.WriteBeside(inputs[i], dir, s)
			if err != nil {
				return fmt.Errorf("write report for %s: %w", inputs[i], err)
			}
			log.Info("Summary saved to %s", path)
			continue
		}
		fmt.Fprintln(c.App.Writer, formatter.Format(s))
	}

	if c.Bool("strict") {
		return errors.Join(failures...)
	}
	return nil
}

// probeFile returns a summary for path. A stream that stops decoding part
// way still yields a summary along with the error; read failures yield none.
func probeFile(ctx context.Context, fs ports.FileSystem, path string, log ports.Logger) (*summarizer.Summary, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	b := summarizer.NewBuilder()
	detected, err := codecdetect.Detect(data)
	b.WithStream(filepath.Base(path), string(detected.Container), int64(len(data)))
	if err != nil {
		log.Warn("Failed to load %s: %v", path, err)
		return b.WithFailure(err).Build(), fmt.Errorf("%s: %w", path, err)
	}

	result, err := probe.Run(ctx, data, log)
	b.WithProbe(result)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("Decoding stopped: %v", err)
		return b.WithFailure(err).Build(), fmt.Errorf("%s: %w", path, err)
	}
	return b.Build(), nil
}
