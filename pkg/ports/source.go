// Package ports defines interfaces for external dependencies.
package ports

// VideoSource is an asynchronously loaded Annex-B H.264 elementary stream.
// The player polls it until it is loaded and then reads all bytes at once.
type VideoSource interface {
	// Loaded reports whether Bytes returns the complete stream.
	Loaded() bool

	// Bytes returns the stream. It is only called once Loaded is true,
	// and again each time playback rewinds to the start.
	Bytes() []byte

	// Err returns the reason loading failed, or nil while loading
	// is in progress or has succeeded.
	Err() error
}
