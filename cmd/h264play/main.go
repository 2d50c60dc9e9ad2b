// Package main provides the CLI entry point for h264play.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/h264play/pkg/adapters/logger"
	"github.com/user/h264play/pkg/config"
	"github.com/user/h264play/pkg/ports"
)

var version = "dev"

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the command tree. out and errOut receive command output
// and console logs.
func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "h264play",
		Usage:     l10n.T("Play and inspect raw H.264 streams"),
		UsageText: "h264play [global options] command [command options] [arguments...]",
		Description: l10n.T("h264play decodes Annex-B H.264 elementary streams " +
			"(baseline and main profile, CAVLC) for playback, probing and contact sheets."),
		Version:   version,
		Writer:    out,
		ErrWriter: errOut,
		Flags:     globalFlags(),
		Commands: []*cli.Command{
			playCommand(),
			snapshotCommand(),
			probeCommand(),
			generateCommand(),
			versionCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    l10n.T("YAML configuration file"),
			Category: l10n.T("Configuration"),
		},
		&cli.StringFlag{
			Name:     "log-level",
			Aliases:  []string{"l"},
			Usage:    l10n.T("Log level (debug, info, warn, error)"),
			Category: l10n.T("Logging"),
		},
		&cli.StringFlag{
			Name:     "log-format",
			Usage:    l10n.T("Log format (console, text, json)"),
			Category: l10n.T("Logging"),
		},
		&cli.StringFlag{
			Name:     "log-file",
			Usage:    l10n.T("Write logs to a rotating file instead of the console"),
			Category: l10n.T("Logging"),
		},
		&cli.BoolFlag{
			Name:     "quiet",
			Aliases:  []string{"Q"},
			Usage:    l10n.T("Suppress all log output"),
			Category: l10n.T("Logging"),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, l10n.F("h264play version %s", version))
			return nil
		},
	}
}

// loadConfig reads --config when given and applies the global logging flags.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if c.IsSet("log-file") {
		cfg.LogFile = c.String("log-file")
	}
	if c.Bool("quiet") {
		cfg.LogLevel = "quiet"
	}
	return cfg, nil
}

// newLogger builds the logger selected by cfg. The returned closer flushes
// a log file and is never nil.
func newLogger(c *cli.Context, cfg config.Config) (ports.Logger, io.Closer) {
	level := ports.ParseLogLevel(cfg.LogLevel)
	if level == ports.LevelQuiet {
		return logger.NewNoop(), nopCloser{}
	}

	if cfg.LogFile != "" {
		w := logger.NewFileWriter(cfg.LogFile, logger.FileOptions{MaxBackups: 3})
		format := cfg.LogFormat
		if format == "console" {
			format = "text"
		}
		return logger.NewLogrus(level, format, w), w
	}

	switch cfg.LogFormat {
	case "text", "json":
		return logger.NewLogrus(level, cfg.LogFormat, c.App.ErrWriter), nopCloser{}
	default:
		if c.App.Writer == os.Stdout {
			return logger.NewConsole(level), nopCloser{}
		}
		return logger.NewConsoleTo(level, c.App.ErrWriter, c.App.ErrWriter), nopCloser{}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
