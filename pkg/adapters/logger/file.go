package logger

import (
	"io"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions controls log file rotation.
type FileOptions struct {
	MaxSizeMB  int // rotate after this many megabytes
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewFileWriter returns a rotating writer appending to path.
func NewFileWriter(path string, opts FileOptions) io.WriteCloser {
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 20
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		LocalTime:  true,
		Compress:   opts.Compress,
	}
}
