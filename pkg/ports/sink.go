package ports

import (
	"image"
)

// DebugSink receives intermediate results worth inspecting after a run.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveFrame saves a published frame under its publish sequence number.
	SaveFrame(seq int64, img image.Image) error

	// SaveContactSheet saves a rendered contact sheet.
	SaveContactSheet(img image.Image) error

	// SaveStreamJSON saves the probe summary of a stream.
	SaveStreamJSON(name string, data []byte) error
}
