package logger

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/user/h264play/pkg/ports"
)

// LogrusLogger writes structured records through logrus. Messages are
// formatted but not translated so that log files stay greppable.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrus creates a logger writing to w. format is "json" or "text".
func NewLogrus(level ports.LogLevel, format string, w io.Writer) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrusLevel(level))
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

func logrusLevel(level ports.LogLevel) logrus.Level {
	switch level {
	case ports.LevelDebug:
		return logrus.DebugLevel
	case ports.LevelInfo:
		return logrus.InfoLevel
	case ports.LevelWarn:
		return logrus.WarnLevel
	case ports.LevelError:
		return logrus.ErrorLevel
	default:
		// quiet
		return logrus.PanicLevel
	}
}

func (l *LogrusLogger) Debug(msg string, args ...interface{}) {
	l.entry.Debug(fmt.Sprintf(msg, args...))
}

func (l *LogrusLogger) Info(msg string, args ...interface{}) {
	l.entry.Info(fmt.Sprintf(msg, args...))
}

func (l *LogrusLogger) Warn(msg string, args ...interface{}) {
	l.entry.Warn(fmt.Sprintf(msg, args...))
}

func (l *LogrusLogger) Error(msg string, args ...interface{}) {
	l.entry.Error(fmt.Sprintf(msg, args...))
}

// WithComponent returns a logger carrying component as a field.
func (l *LogrusLogger) WithComponent(component string) ports.Logger {
	return &LogrusLogger{entry: l.entry.WithField("component", component)}
}

var _ ports.Logger = (*LogrusLogger)(nil)
