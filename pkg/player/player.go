// Package player paces decoding of an Annex-B H.264 stream and publishes
// each frame into a host-owned render target.
//
// The player is driven entirely by Tick. It never blocks and holds no
// goroutines, so a host calls it from its own frame loop.
package player

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/user/h264play/pkg/codec/colorconv"
	"github.com/user/h264play/pkg/codec/decoder"
	"github.com/user/h264play/pkg/codec/nal"
	"github.com/user/h264play/pkg/ports"
)

// Sentinel errors
var (
	// ErrNoPictures is returned when a full pass over the stream yields no picture.
	ErrNoPictures = errors.New("player: stream produced no pictures")
	// ErrSourceFailed is returned when the source reports a loading error.
	ErrSourceFailed = errors.New("player: source failed to load")
)

// DefaultFrameInterval is used when Options.FrameInterval is not positive.
const DefaultFrameInterval = time.Second / 30

// Status is the playback state.
type Status int

const (
	StatusLoading Status = iota
	StatusPlaying
	StatusPaused
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Markers are the host-visible control flags. Paused is also asserted
// when playback ends.
type Markers struct {
	Loading bool
	Paused  bool
	Ended   bool
}

// Options configures a Player.
type Options struct {
	// Repeat restarts the stream from the first byte once it is exhausted.
	Repeat        bool
	FrameInterval time.Duration
	Format        colorconv.Format
}

// Stats counts playback activity.
type Stats struct {
	Published   int64
	Substituted int // damaged frames not written to the target
	Loops       int // completed rewinds
	Decoder     decoder.Stats
}

// Player schedules decoding for one stream. It is not safe for concurrent use.
type Player struct {
	id        uuid.UUID
	log       ports.Logger
	source    ports.VideoSource
	target    ports.RenderTarget
	opts      Options
	listeners []ports.FrameListener

	dec   *decoder.Decoder
	demux *nal.Demuxer // nil while loading

	paused bool
	ended  bool
	acc    time.Duration

	streamLen int

	// per pass over the stream
	drained    bool
	passFrames int
	// slice unit read ahead while checking for the end of the stream
	pending *nal.Unit

	stats Stats
}

// New creates a player in the loading state.
func New(source ports.VideoSource, target ports.RenderTarget, opts Options, log ports.Logger) *Player {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	return &Player{
		id:     uuid.New(),
		log:    log.WithComponent("player"),
		source: source,
		target: target,
		opts:   opts,
		dec:    decoder.New(log),
	}
}

// ID identifies the player in frame events.
func (p *Player) ID() uuid.UUID {
	return p.id
}

// Options returns the effective options.
func (p *Player) Options() Options {
	return p.opts
}

// AddListener registers l for frame-updated notifications.
func (p *Player) AddListener(l ports.FrameListener) {
	p.listeners = append(p.listeners, l)
}

// Status returns the current playback state.
func (p *Player) Status() Status {
	switch {
	case p.ended:
		return StatusEnded
	case p.demux == nil:
		return StatusLoading
	case p.paused:
		return StatusPaused
	default:
		return StatusPlaying
	}
}

// Markers returns the control flags as the host sees them.
func (p *Player) Markers() Markers {
	return Markers{
		Loading: !p.ended && p.demux == nil,
		Paused:  p.paused,
		Ended:   p.ended,
	}
}

// Stats returns playback and decoder counters.
func (p *Player) Stats() Stats {
	s := p.stats
	s.Decoder = p.dec.Stats()
	return s
}

// Pause stops decoding. Progress toward the next frame is kept.
func (p *Player) Pause() {
	if p.paused || p.ended {
		return
	}
	p.paused = true
	p.log.Info("Paused")
}

// Resume continues a paused player. An ended player replays from the start.
func (p *Player) Resume() error {
	if p.ended {
		p.ended = false
		p.paused = false
		if p.demux != nil {
			if err := p.rewind(); err != nil {
				p.end()
				return err
			}
		}
		p.log.Info("Replaying from the start")
		return nil
	}
	if p.paused {
		p.paused = false
		p.log.Info("Resumed")
	}
	return nil
}

// Restart rewinds to the first byte of the stream and clears the
// accumulator. The pause marker is left as it is.
func (p *Player) Restart() error {
	p.ended = false
	p.acc = 0
	if p.demux == nil {
		return nil
	}
	if err := p.rewind(); err != nil {
		p.end()
		return err
	}
	p.log.Info("Restarted")
	return nil
}

// Tick advances playback by elapsed and returns the number of frames
// published. While loading, the tick that finds the source ready only
// starts playback. Errors are stream-level: the player has ended.
func (p *Player) Tick(elapsed time.Duration) (int, error) {
	if p.ended {
		return 0, nil
	}

	if p.demux == nil {
		if err := p.source.Err(); err != nil {
			p.end()
			return 0, fmt.Errorf("%w: %v", ErrSourceFailed, err)
		}
		if !p.source.Loaded() {
			return 0, nil
		}
		if err := p.rewind(); err != nil {
			p.end()
			return 0, err
		}
		p.log.Info("Source loaded, %d bytes", p.streamLen)
		return 0, nil
	}

	if p.paused {
		return 0, nil
	}

	p.acc += elapsed
	published := 0
	for p.acc >= p.opts.FrameInterval && !p.paused && !p.ended {
		p.acc -= p.opts.FrameInterval

		f, err := p.next()
		if err != nil {
			p.end()
			return published, err
		}
		if f == nil {
			p.end()
			break
		}

		ok, err := p.publish(f)
		if err != nil {
			p.end()
			return published, err
		}
		if ok {
			published++
		}
		if !p.opts.Repeat {
			if err := p.lookahead(); err != nil {
				p.end()
				return published, err
			}
			if p.drained {
				p.end()
			}
		}
	}
	return published, nil
}

// next pulls units until the decoder completes a frame. It returns nil
// once a non-repeating stream is exhausted.
func (p *Player) next() (*decoder.Frame, error) {
	for {
		if p.drained {
			if p.passFrames == 0 {
				return nil, ErrNoPictures
			}
			if !p.opts.Repeat {
				return nil, nil
			}
			if err := p.rewind(); err != nil {
				return nil, err
			}
			p.stats.Loops++
			p.log.Debug("Looping, pass %d", p.stats.Loops+1)
		}

		if p.pending != nil {
			u := *p.pending
			p.pending = nil
			f, err := p.decode(u)
			if err != nil {
				return nil, err
			}
			if f != nil {
				p.passFrames++
				return f, nil
			}
			continue
		}

		u, err := p.demux.Next()
		if errors.Is(err, io.EOF) {
			p.drained = true
			if f := p.dec.Flush(); f != nil {
				p.passFrames++
				return f, nil
			}
			continue
		}
		if err != nil {
			p.log.Warn("Skipping NAL unit: %v", err)
			continue
		}

		f, err := p.decode(u)
		if err != nil {
			return nil, err
		}
		if f != nil {
			p.passFrames++
			return f, nil
		}
	}
}

// decode feeds u to the decoder. Only stream-level errors are returned.
func (p *Player) decode(u nal.Unit) (*decoder.Frame, error) {
	f, err := p.dec.Decode(u)
	if err != nil {
		if !decoder.IsRecoverable(err) {
			return nil, err
		}
		p.log.Warn("Skipping NAL unit at offset %d: %v", u.Offset, err)
	}
	return f, nil
}

// lookahead consumes the non-slice units that follow a finished picture,
// so a stream whose last picture was closed by a trailing unit is seen as
// drained right away. The first slice unit found is kept for next.
func (p *Player) lookahead() error {
	for !p.drained && p.pending == nil && !p.dec.Pending() {
		u, err := p.demux.Next()
		if errors.Is(err, io.EOF) {
			p.drained = true
			return nil
		}
		if err != nil {
			p.log.Warn("Skipping NAL unit: %v", err)
			continue
		}
		if u.IsSlice() {
			p.pending = &u
			return nil
		}
		if _, err := p.decode(u); err != nil {
			return err
		}
	}
	return nil
}

// publish writes f to the target and notifies listeners. A damaged frame
// leaves the previous one in place, unless nothing has been shown yet.
func (p *Player) publish(f *decoder.Frame) (bool, error) {
	if f.Corrupt() && p.stats.Published > 0 {
		p.stats.Substituted++
		p.log.Warn("Frame %d damaged, %d macroblocks concealed; keeping previous frame", f.FrameNum, f.Concealed)
		return false, nil
	}

	w, h := f.Width(), f.Height()
	if tw, th := p.target.Size(); tw != w || th != h {
		p.log.Debug("Resizing render target from %dx%d to %dx%d", tw, th, w, h)
		p.target.Resize(w, h)
	}
	if err := colorconv.Convert(f.Picture, p.target.Pixels(), p.opts.Format, colorconv.MatrixFor(f.SPS)); err != nil {
		return false, fmt.Errorf("publish frame %d: %w", f.FrameNum, err)
	}

	p.stats.Published++
	ev := ports.FrameEvent{
		PlayerID: p.id,
		Sequence: p.stats.Published,
		FrameNum: f.FrameNum,
		Width:    w,
		Height:   h,
	}
	for _, l := range p.listeners {
		l.FrameUpdated(ev)
	}
	return true, nil
}

func (p *Player) rewind() error {
	buf := p.source.Bytes()
	dm, err := nal.NewDemuxer(buf)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	p.demux = dm
	p.streamLen = len(buf)
	p.dec.Reset()
	p.drained = false
	p.passFrames = 0
	p.pending = nil
	return nil
}

func (p *Player) end() {
	if p.ended {
		return
	}
	p.ended = true
	p.paused = true
	p.acc = 0
	p.log.Info("Playback ended after %d frames", p.stats.Published)
}
