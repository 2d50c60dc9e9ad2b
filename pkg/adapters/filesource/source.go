// Package filesource loads an H.264 stream from a file in the background.
package filesource

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/user/h264play/pkg/adapters/codecdetect"
	"github.com/user/h264play/pkg/ports"
)

type loadResult struct {
	data []byte
	err  error
}

// Source is a ports.VideoSource filled by a background read.
type Source struct {
	path   string
	result atomic.Pointer[loadResult]
	done   chan struct{}
}

// Load starts reading path and returns immediately. MP4 files are
// rejected with codecdetect.ErrContainer.
func Load(ctx context.Context, fs ports.FileSystem, path string, logger ports.Logger) *Source {
	s := &Source{path: path, done: make(chan struct{})}
	log := logger.WithComponent("source")

	go func() {
		defer close(s.done)

		data, err := fs.ReadFile(path)
		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			_, err = codecdetect.Detect(data)
		}
		if err != nil {
			log.Error("Failed to load %s: %v", path, err)
			s.result.Store(&loadResult{err: fmt.Errorf("load %s: %w", path, err)})
			return
		}
		log.Debug("Read %d bytes from %s", len(data), path)
		s.result.Store(&loadResult{data: data})
	}()

	return s
}

// FromBytes returns a source that is already loaded.
func FromBytes(name string, data []byte) *Source {
	s := &Source{path: name, done: make(chan struct{})}
	s.result.Store(&loadResult{data: data})
	close(s.done)
	return s
}

// Path returns the file the source reads.
func (s *Source) Path() string {
	return s.path
}

// Done is closed once loading finished, successfully or not.
func (s *Source) Done() <-chan struct{} {
	return s.done
}

// Loaded reports whether the stream is available.
func (s *Source) Loaded() bool {
	r := s.result.Load()
	return r != nil && r.err == nil
}

// Bytes returns the stream, or nil while loading.
func (s *Source) Bytes() []byte {
	if r := s.result.Load(); r != nil {
		return r.data
	}
	return nil
}

// Err returns the load failure, if any.
func (s *Source) Err() error {
	if r := s.result.Load(); r != nil {
		return r.err
	}
	return nil
}

var _ ports.VideoSource = (*Source)(nil)
