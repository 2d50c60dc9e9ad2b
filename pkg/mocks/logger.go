package mocks

import (
	"fmt"
	"sync"

	"github.com/user/h264play/pkg/ports"
)

// LogEntry is one recorded log call.
type LogEntry struct {
	Level     ports.LogLevel
	Component string
	Msg       string // the untranslated key
	Text      string // formatted
}

// Logger records every message it receives. Component loggers share
// the parent's record.
type Logger struct {
	component string
	rec       *logRecord
}

type logRecord struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogger creates a recording logger.
func NewLogger() *Logger {
	return &Logger{rec: &logRecord{}}
}

func (m *Logger) Debug(msg string, args ...interface{}) { m.add(ports.LevelDebug, msg, args) }
func (m *Logger) Info(msg string, args ...interface{})  { m.add(ports.LevelInfo, msg, args) }
func (m *Logger) Warn(msg string, args ...interface{})  { m.add(ports.LevelWarn, msg, args) }
func (m *Logger) Error(msg string, args ...interface{}) { m.add(ports.LevelError, msg, args) }

func (m *Logger) WithComponent(component string) ports.Logger {
	return &Logger{component: component, rec: m.rec}
}

func (m *Logger) add(level ports.LogLevel, msg string, args []interface{}) {
	m.rec.mu.Lock()
	defer m.rec.mu.Unlock()
	m.rec.entries = append(m.rec.entries, LogEntry{
		Level:     level,
		Component: m.component,
		Msg:       msg,
		Text:      fmt.Sprintf(msg, args...),
	})
}

// Entries returns a copy of the recorded entries.
func (m *Logger) Entries() []LogEntry {
	m.rec.mu.Lock()
	defer m.rec.mu.Unlock()
	return append([]LogEntry(nil), m.rec.entries...)
}

// Count returns how many entries were logged at level.
func (m *Logger) Count(level ports.LogLevel) int {
	n := 0
	for _, e := range m.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

var _ ports.Logger = (*Logger)(nil)
