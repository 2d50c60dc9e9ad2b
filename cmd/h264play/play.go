package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/h264play/pkg/adapters/filesink"
	"github.com/user/h264play/pkg/adapters/filesource"
	"github.com/user/h264play/pkg/adapters/ggrenderer"
	"github.com/user/h264play/pkg/adapters/imagetarget"
	"github.com/user/h264play/pkg/adapters/nullsink"
	"github.com/user/h264play/pkg/adapters/osfilesystem"
	"github.com/user/h264play/pkg/player"
	"github.com/user/h264play/pkg/ports"
)

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     l10n.T("Play a raw H.264 stream into an offscreen frame buffer"),
		ArgsUsage: "<stream.h264>",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:     "fps",
				Usage:    l10n.T("Playback rate in frames per second"),
				Category: l10n.T("Playback"),
			},
			&cli.BoolFlag{
				Name:     "repeat",
				Aliases:  []string{"r"},
				Usage:    l10n.T("Restart from the first frame at the end of the stream"),
				Category: l10n.T("Playback"),
			},
			&cli.IntFlag{
				Name:     "loops",
				Usage:    l10n.T("Stop after this many loops when repeating (0 = forever)"),
				Category: l10n.T("Playback"),
			},
			&cli.DurationFlag{
				Name:     "duration",
				Usage:    l10n.T("Stop after this much wall-clock time (0 = no limit)"),
				Category: l10n.T("Playback"),
			},
			&cli.StringFlag{
				Name:     "format",
				Usage:    l10n.T("Pixel format of the frame buffer (bgra, rgba)"),
				Category: l10n.T("Output"),
			},
			&cli.BoolFlag{
				Name:     "debug",
				Aliases:  []string{"d"},
				Usage:    l10n.T("Save every published frame as PNG"),
				Category: l10n.T("Debug"),
			},
			&cli.StringFlag{
				Name:     "debug-dir",
				Usage:    l10n.T("Directory for debug output"),
				Category: l10n.T("Debug"),
			},
		},
		Action: runPlay,
	}
}

func runPlay(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("Exactly one stream argument is required"))
	}
	path := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("fps") {
		cfg.FPS = c.Float64("fps")
	}
	if c.IsSet("repeat") {
		cfg.Repeat = c.Bool("repeat")
	}
	if c.IsSet("format") {
		cfg.PixelFormat = c.String("format")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
	}
	if c.IsSet("debug-dir") {
		cfg.DebugDir = c.String("debug-dir")
	}

	opts, err := cfg.PlayerOptions()
	if err != nil {
		return err
	}

	log, closer := newLogger(c, cfg)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	fs := osfilesystem.New()
	var sink ports.DebugSink = nullsink.New()
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs, ggrenderer.New())
	}

	source := filesource.Load(ctx, fs, path, log)
	target := imagetarget.New(opts.Format)
	p := player.New(source, target, opts, log)
	if sink.Enabled() {
		p.AddListener(ports.FrameListenerFunc(func(ev ports.FrameEvent) {
			if err := sink.SaveFrame(ev.Sequence, target.Image()); err != nil {
				log.Warn("Failed to save debug frame %d: %v", ev.Sequence, err)
			}
		}))
	}

	log.Info("Playing %s at %.2f fps", path, float64(time.Second)/float64(opts.FrameInterval))
	err = play(ctx, p, opts.FrameInterval, c.Int("loops"))

	stats := p.Stats()
	log.Info("Published %d frames (%d loops, %d damaged frames held back)",
		stats.Published, stats.Loops, stats.Substituted)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Warn("Interrupted, stopping playback")
		return nil
	}
	return err
}

// play drives p from a ticker until the stream ends, ctx is done or the
// loop limit is reached.
func play(ctx context.Context, p *player.Player, interval time.Duration, loops int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			if _, err := p.Tick(elapsed); err != nil {
				return err
			}
		}

		if p.Status() == player.StatusEnded {
			return nil
		}
		if loops > 0 && p.Stats().Loops >= loops {
			return nil
		}
	}
}
