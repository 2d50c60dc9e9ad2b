package main

import (
	"errors"
	"fmt"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/h264play/pkg/adapters/osfilesystem"
	"github.com/user/h264play/pkg/codec/synth"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: l10n.T("Write a synthetic colour bar test stream"),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    l10n.T("Output H.264 file path (required)"),
				Required: true,
				Category: l10n.T("Output"),
			},
			&cli.IntFlag{
				Name:     "width",
				Value:    320,
				Usage:    l10n.T("Picture width, rounded up to a multiple of 16"),
				Category: l10n.T("Stream"),
			},
			&cli.IntFlag{
				Name:     "height",
				Value:    240,
				Usage:    l10n.T("Picture height, rounded up to a multiple of 16"),
				Category: l10n.T("Stream"),
			},
			&cli.IntFlag{
				Name:     "frames",
				Value:    60,
				Usage:    l10n.T("Number of frames"),
				Category: l10n.T("Stream"),
			},
			&cli.IntFlag{
				Name:     "gop",
				Value:    15,
				Usage:    l10n.T("Frames between IDR pictures"),
				Category: l10n.T("Stream"),
			},
			&cli.Float64Flag{
				Name:     "fps",
				Value:    30,
				Usage:    l10n.T("Frame rate written to the SPS timing info (0 = none)"),
				Category: l10n.T("Stream"),
			},
			&cli.BoolFlag{
				Name:     "b-slices",
				Usage:    l10n.T("Insert non-reference B slices the player must skip"),
				Category: l10n.T("Stream"),
			},
		},
		Action: runGenerate,
	}
}

func runGenerate(c *cli.Context) error {
	width, height := c.Int("width"), c.Int("height")
	if width <= 0 || height <= 0 {
		return errors.New(l10n.T("Width and height must be positive"))
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, closer := newLogger(c, cfg)
	defer closer.Close()

	s, err := synth.Bars(synth.BarsConfig{
		WidthMbs:  (width + 15) / 16,
		HeightMbs: (height + 15) / 16,
		Frames:    c.Int("frames"),
		GOP:       c.Int("gop"),
		BSlices:   c.Bool("b-slices"),
		FPS:       c.Float64("fps"),
	})
	if err != nil {
		return fmt.Errorf("generate stream: %w", err)
	}
	data, err := s.AnnexB()
	if err != nil {
		return fmt.Errorf("marshal stream: %w", err)
	}

	output := c.String("output")
	if err := osfilesystem.New().WriteFile(output, data); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	log.Info("Wrote %d frames (%d bytes) to %s", c.Int("frames"), len(data), output)
	return nil
}
