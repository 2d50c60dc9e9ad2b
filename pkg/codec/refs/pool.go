// Package refs manages the short-term reference pictures used by P slices.
package refs

import (
	"errors"
	"fmt"

	"github.com/user/h264play/pkg/codec/picture"
)

// Sentinel errors
var (
	// ErrMissingReference is returned when a reference index has no resident picture.
	ErrMissingReference = errors.New("refs: missing reference picture")
	// ErrUnsupportedModification is returned for long-term list modifications.
	ErrUnsupportedModification = errors.New("refs: unsupported list modification")
)

// Pool is a bounded sliding window of reference pictures, ordered by
// decode recency. Stored pictures are never written again.
type Pool struct {
	pics     []*picture.Picture // oldest first
	capacity int
}

// NewPool creates a pool holding at most capacity pictures (minimum 1).
func NewPool(capacity int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{capacity: capacity}
}

// Cap returns the pool capacity.
func (p *Pool) Cap() int {
	return p.capacity
}

// Len returns the number of resident pictures.
func (p *Pool) Len() int {
	return len(p.pics)
}

// SetCapacity changes the capacity, evicting the oldest pictures if needed.
func (p *Pool) SetCapacity(capacity int) []*picture.Picture {
	if capacity < 1 {
		capacity = 1
	}
	p.capacity = capacity
	var evicted []*picture.Picture
	for len(p.pics) > p.capacity {
		evicted = append(evicted, p.pics[0])
		p.pics = p.pics[1:]
	}
	return evicted
}

// Store inserts pic as the most recent reference. When the pool is full
// the oldest picture is evicted and returned.
func (p *Pool) Store(pic *picture.Picture) *picture.Picture {
	var evicted *picture.Picture
	if len(p.pics) >= p.capacity {
		evicted = p.pics[0]
		copy(p.pics, p.pics[1:])
		p.pics = p.pics[:len(p.pics)-1]
	}
	p.pics = append(p.pics, pic)
	return evicted
}

// Resolve returns the picture at recency index idx (0 = most recently stored).
func (p *Pool) Resolve(idx int) (*picture.Picture, error) {
	if idx < 0 || idx >= len(p.pics) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrMissingReference, idx, len(p.pics))
	}
	return p.pics[len(p.pics)-1-idx], nil
}

// Pictures returns the resident pictures, most recent first.
func (p *Pool) Pictures() []*picture.Picture {
	out := make([]*picture.Picture, len(p.pics))
	for i, pic := range p.pics {
		out[len(p.pics)-1-i] = pic
	}
	return out
}

// Remove unmarks the picture with the given frame_num and returns it, or
// nil when no resident picture has that number.
func (p *Pool) Remove(frameNum uint32) *picture.Picture {
	for i, pic := range p.pics {
		if pic.FrameNum == frameNum {
			p.pics = append(p.pics[:i], p.pics[i+1:]...)
			return pic
		}
	}
	return nil
}

// Reset drops every reference.
func (p *Pool) Reset() {
	clear(p.pics)
	p.pics = p.pics[:0]
}
