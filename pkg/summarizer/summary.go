// Package summarizer turns probe and snapshot results into reports.
package summarizer

import (
	"time"

	"github.com/user/h264play/pkg/probe"
)

// Formatter renders a Summary as report text.
type Formatter interface {
	Format(summary *Summary) string
}

// FormatFunc lets a plain function act as a Formatter.
type FormatFunc func(summary *Summary) string

func (f FormatFunc) Format(summary *Summary) string { return f(summary) }

// Summary contains everything known about one stream.
type Summary struct {
	GeneratedAt time.Time `json:"generated_at"`

	Stream StreamInfo        `json:"stream"`
	Units  []probe.UnitCount `json:"units,omitempty"`
	SPS    []probe.SPSInfo   `json:"sps,omitempty"`
	Decode DecodeInfo        `json:"decode"`

	// Sheet is set when a contact sheet was rendered.
	Sheet *SheetInfo `json:"sheet,omitempty"`

	// Failure holds the error that stopped decoding, if any.
	Failure string `json:"failure,omitempty"`
}

// StreamInfo identifies the input.
type StreamInfo struct {
	Name      string `json:"name"`
	Container string `json:"container"`
	Bytes     int64  `json:"bytes"`
}

// DecodeInfo contains decoder counters.
type DecodeInfo struct {
	Units     int `json:"units"`
	Slices    int `json:"slices"`
	Frames    int `json:"frames"`
	IDRs      int `json:"idrs"`
	Skipped   int `json:"skipped"`
	Concealed int `json:"concealed"`
}

// SheetInfo describes a rendered contact sheet.
type SheetInfo struct {
	Path     string `json:"path"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Sampled  int    `json:"sampled"`
	FileSize int64  `json:"file_size"`
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithStream sets the stream identity.
func (b *Builder) WithStream(name, container string, size int64) *Builder {
	b.summary.Stream = StreamInfo{
		Name:      name,
		Container: container,
		Bytes:     size,
	}
	return b
}

// WithProbe copies the unit counts, parameter sets and decoder counters.
func (b *Builder) WithProbe(r probe.Result) *Builder {
	b.summary.Units = r.Units
	b.summary.SPS = r.SPS
	b.summary.Decode = DecodeInfo{
		Units:     r.Total,
		Slices:    r.Stats.Slices,
		Frames:    r.Frames,
		IDRs:      r.IDRs,
		Skipped:   r.Stats.Skipped,
		Concealed: r.Stats.Concealed,
	}
	return b
}

// WithSheet records a rendered contact sheet.
func (b *Builder) WithSheet(sheet SheetInfo) *Builder {
	b.summary.Sheet = &sheet
	return b
}

// WithFailure records the error that ended decoding early.
func (b *Builder) WithFailure(err error) *Builder {
	if err != nil {
		b.summary.Failure = err.Error()
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
