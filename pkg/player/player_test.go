package player

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/user/h264play/pkg/codec/colorconv"
	"github.com/user/h264play/pkg/codec/nal"
	"github.com/user/h264play/pkg/codec/params"
	"github.com/user/h264play/pkg/codec/synth"
	"github.com/user/h264play/pkg/mocks"
	"github.com/user/h264play/pkg/ports"
)

const interval = 40 * time.Millisecond

// clip builds an IDR followed by n-1 skipped P frames at 32x16.
func clip(t *testing.T, n int) *synth.Stream {
	t.Helper()
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 2, HeightMbs: 1, MaxNumRefFrames: 1}, synth.PPSConfig{})
	white := synth.Macroblock{Kind: synth.PCM, Fill: [3]byte{235, 128, 128}}
	if err := s.Picture(synth.SliceHeader{Type: synth.SliceI, IDR: true, RefIdc: 3}, white); err != nil {
		t.Fatalf("IDR: %v", err)
	}
	for i := 1; i < n; i++ {
		h := synth.SliceHeader{Type: synth.SliceP, RefIdc: 2, FrameNum: uint32(i)}
		if err := s.Picture(h, synth.Macroblock{Kind: synth.Skip}); err != nil {
			t.Fatalf("P frame %d: %v", i, err)
		}
	}
	return s
}

func annexB(t *testing.T, s *synth.Stream) []byte {
	t.Helper()
	buf, err := s.AnnexB()
	if err != nil {
		t.Fatalf("AnnexB: %v", err)
	}
	return buf
}

type fixture struct {
	player *Player
	source *mocks.VideoSource
	target *mocks.RenderTarget
	events *mocks.FrameRecorder
	log    *mocks.Logger
}

func newFixture(t *testing.T, data []byte, repeat bool) *fixture {
	t.Helper()
	f := &fixture{
		source: mocks.NewVideoSource(data),
		target: mocks.NewRenderTarget(12, 12),
		events: &mocks.FrameRecorder{},
		log:    mocks.NewLogger(),
	}
	f.player = New(f.source, f.target, Options{Repeat: repeat, FrameInterval: interval}, f.log)
	f.player.AddListener(f.events)
	return f
}

// start promotes the player out of Loading.
func (f *fixture) start(t *testing.T) {
	t.Helper()
	if n, err := f.player.Tick(0); err != nil || n != 0 {
		t.Fatalf("loading tick = %d, %v", n, err)
	}
	if got := f.player.Status(); got != StatusPlaying {
		t.Fatalf("status after load = %s, want playing", got)
	}
}

func (f *fixture) tick(t *testing.T, d time.Duration) int {
	t.Helper()
	n, err := f.player.Tick(d)
	if err != nil {
		t.Fatalf("Tick(%v): %v", d, err)
	}
	return n
}

func TestLoading(t *testing.T) {
	f := newFixture(t, annexB(t, clip(t, 2)), false)
	f.source.Ready = false

	if n := f.tick(t, 10*interval); n != 0 {
		t.Errorf("published %d frames while loading", n)
	}
	if got := f.player.Status(); got != StatusLoading {
		t.Errorf("status = %s, want loading", got)
	}
	if !f.player.Markers().Loading {
		t.Error("loading marker not set")
	}
	if f.source.BytesCalls != 0 {
		t.Error("source read before it was loaded")
	}

	f.source.Ready = true
	// the promoting tick does not count toward the first frame
	if n := f.tick(t, 10*interval); n != 0 {
		t.Errorf("promoting tick published %d frames", n)
	}
	if f.player.Markers().Loading {
		t.Error("loading marker still set")
	}
	if n := f.tick(t, interval); n != 1 {
		t.Errorf("published %d frames, want 1", n)
	}
}

func TestFirstFrameResizesTarget(t *testing.T) {
	f := newFixture(t, annexB(t, clip(t, 1)), false)
	f.start(t)
	f.tick(t, interval)

	if f.target.Width != 32 || f.target.Height != 16 {
		t.Fatalf("target = %dx%d, want 32x16", f.target.Width, f.target.Height)
	}
	if f.target.Resizes != 1 {
		t.Errorf("resizes = %d, want 1", f.target.Resizes)
	}
	if px := f.target.Pixel(31, 15); px != [4]byte{255, 255, 255, 255} {
		t.Errorf("pixel = %v, want white", px)
	}

	if len(f.events.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(f.events.Events))
	}
	ev := f.events.Events[0]
	want := ports.FrameEvent{PlayerID: f.player.ID(), Sequence: 1, FrameNum: 0, Width: 32, Height: 16}
	if ev != want {
		t.Errorf("event = %+v, want %+v", ev, want)
	}
}

func TestPixelFormat(t *testing.T) {
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 1, HeightMbs: 1}, synth.PPSConfig{})
	// saturated red in BT.601 limited range
	red := synth.Macroblock{Kind: synth.PCM, Fill: [3]byte{81, 90, 240}}
	if err := s.Picture(synth.SliceHeader{Type: synth.SliceI, IDR: true, RefIdc: 3}, red); err != nil {
		t.Fatal(err)
	}

	for _, format := range []colorconv.Format{colorconv.FormatBGRA, colorconv.FormatRGBA} {
		target := mocks.NewRenderTarget(16, 16)
		p := New(mocks.NewVideoSource(annexB(t, s)), target, Options{FrameInterval: interval, Format: format}, mocks.NewLogger())
		if _, err := p.Tick(0); err != nil {
			t.Fatal(err)
		}
		if n, err := p.Tick(interval); err != nil || n != 1 {
			t.Fatalf("%s: Tick = %d, %v", format, n, err)
		}
		px := target.Pixel(0, 0)
		r, b := px[0], px[2]
		if format == colorconv.FormatBGRA {
			r, b = b, r
		}
		if r < 250 || b > 5 {
			t.Errorf("%s: pixel %v is not red", format, px)
		}
		if target.Resizes != 0 {
			t.Errorf("%s: target resized although it matched", format)
		}
	}
}

func TestPauseResume(t *testing.T) {
	f := newFixture(t, annexB(t, clip(t, 5)), false)
	f.start(t)

	f.tick(t, interval/2)
	f.player.Pause()
	if got := f.player.Status(); got != StatusPaused {
		t.Fatalf("status = %s, want paused", got)
	}
	if !f.player.Markers().Paused {
		t.Error("pause marker not set")
	}

	for i := 0; i < 10; i++ {
		if n := f.tick(t, 3*interval); n != 0 {
			t.Fatalf("paused tick published %d frames", n)
		}
	}
	if len(f.events.Events) != 0 {
		t.Fatalf("got %d notifications while paused", len(f.events.Events))
	}

	if err := f.player.Resume(); err != nil {
		t.Fatal(err)
	}
	// half an interval was banked before pausing
	if n := f.tick(t, interval/2); n != 1 {
		t.Errorf("published %d frames after resume, want 1", n)
	}
	if n := f.tick(t, interval); n != 1 {
		t.Errorf("published %d frames, want 1", n)
	}
	if len(f.events.Events) != 2 {
		t.Errorf("notifications = %d, want 2", len(f.events.Events))
	}
}

func TestMultipleFramesPerTick(t *testing.T) {
	f := newFixture(t, annexB(t, clip(t, 5)), false)
	f.start(t)

	if n := f.tick(t, interval*5/2); n != 2 {
		t.Errorf("published %d frames, want 2", n)
	}
	if n := f.tick(t, interval/2); n != 1 {
		t.Errorf("published %d frames, want 1", n)
	}
	if got := f.events.FrameNums(); !reflect.DeepEqual(got, []uint32{0, 1, 2}) {
		t.Errorf("frame nums = %v", got)
	}
}

func TestRepeat(t *testing.T) {
	f := newFixture(t, annexB(t, clip(t, 3)), true)
	f.start(t)

	for i := 0; i < 7; i++ {
		f.tick(t, interval)
	}
	want := []uint32{0, 1, 2, 0, 1, 2, 0}
	if got := f.events.FrameNums(); !reflect.DeepEqual(got, want) {
		t.Errorf("frame nums = %v, want %v", got, want)
	}
	if f.player.Status() != StatusPlaying {
		t.Errorf("status = %s, want playing", f.player.Status())
	}
	if got := f.player.Stats().Loops; got != 2 {
		t.Errorf("loops = %d, want 2", got)
	}
	// one read to load plus one per rewind
	if f.source.BytesCalls != 3 {
		t.Errorf("source read %d times, want 3", f.source.BytesCalls)
	}
}

func TestEndOfStream(t *testing.T) {
	f := newFixture(t, annexB(t, clip(t, 3)), false)
	f.start(t)

	if n := f.tick(t, 10*interval); n != 3 {
		t.Fatalf("published %d frames, want 3", n)
	}
	if got := f.player.Status(); got != StatusEnded {
		t.Fatalf("status = %s, want ended", got)
	}
	m := f.player.Markers()
	if !m.Paused || !m.Ended || m.Loading {
		t.Errorf("markers = %+v", m)
	}
	if n := f.tick(t, 10*interval); n != 0 {
		t.Errorf("ended player published %d frames", n)
	}
	f.player.Pause()
	if len(f.events.Events) != 3 {
		t.Errorf("notifications = %d, want 3", len(f.events.Events))
	}

	// resuming after the end replays
	if err := f.player.Resume(); err != nil {
		t.Fatal(err)
	}
	f.events.Reset()
	f.tick(t, interval)
	if got := f.events.FrameNums(); !reflect.DeepEqual(got, []uint32{0}) {
		t.Errorf("frame nums after replay = %v", got)
	}
}

// aud is an access unit delimiter (primary_pic_type 7).
var aud = []byte{0x09, 0xF0}

func TestEndOfStreamAfterTrailingUnit(t *testing.T) {
	s := clip(t, 3)
	s.Append(aud)
	f := newFixture(t, annexB(t, s), false)
	f.start(t)

	// the delimiter closes the last picture; the end is known on the same tick
	if n := f.tick(t, 3*interval); n != 3 {
		t.Fatalf("published %d frames, want 3", n)
	}
	if got := f.player.Status(); got != StatusEnded {
		t.Errorf("status = %s, want ended", got)
	}
	if !f.player.Markers().Ended {
		t.Error("ended marker not set with the last frame")
	}
}

func TestDelimitedPictures(t *testing.T) {
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 1, HeightMbs: 1, MaxNumRefFrames: 1}, synth.PPSConfig{})
	s.Append(aud)
	if err := s.Picture(synth.SliceHeader{Type: synth.SliceI, IDR: true, RefIdc: 3}, synth.Macroblock{Kind: synth.PCM, Fill: [3]byte{100, 128, 128}}); err != nil {
		t.Fatal(err)
	}
	for i := 1; i < 3; i++ {
		s.Append(aud)
		if err := s.Picture(synth.SliceHeader{Type: synth.SliceP, RefIdc: 2, FrameNum: uint32(i)}, synth.Macroblock{Kind: synth.Skip}); err != nil {
			t.Fatal(err)
		}
	}
	s.Append(aud)

	f := newFixture(t, annexB(t, s), false)
	f.start(t)
	for i := 0; i < 2; i++ {
		if n := f.tick(t, interval); n != 1 {
			t.Fatalf("tick %d published %d frames", i, n)
		}
		if got := f.player.Status(); got != StatusPlaying {
			t.Fatalf("status after frame %d = %s", i, got)
		}
	}
	if n := f.tick(t, interval); n != 1 {
		t.Fatalf("last tick published %d frames", n)
	}
	if got := f.events.FrameNums(); !reflect.DeepEqual(got, []uint32{0, 1, 2}) {
		t.Errorf("frame nums = %v", got)
	}
	if got := f.player.Status(); got != StatusEnded {
		t.Errorf("status = %s, want ended", got)
	}
}

func TestRestart(t *testing.T) {
	f := newFixture(t, annexB(t, clip(t, 4)), false)
	f.start(t)
	f.tick(t, 2*interval)

	if err := f.player.Restart(); err != nil {
		t.Fatal(err)
	}
	f.tick(t, interval)
	if got := f.events.FrameNums(); !reflect.DeepEqual(got, []uint32{0, 1, 0}) {
		t.Errorf("frame nums = %v", got)
	}

	f.player.Pause()
	if err := f.player.Restart(); err != nil {
		t.Fatal(err)
	}
	if got := f.player.Status(); got != StatusPaused {
		t.Errorf("status after restart = %s, want paused", got)
	}
	if n := f.tick(t, 5*interval); n != 0 {
		t.Errorf("paused player published %d frames", n)
	}
}

func TestRestartWhileLoading(t *testing.T) {
	f := newFixture(t, annexB(t, clip(t, 1)), false)
	f.source.Ready = false
	if err := f.player.Restart(); err != nil {
		t.Fatal(err)
	}
	if f.player.Status() != StatusLoading {
		t.Errorf("status = %s, want loading", f.player.Status())
	}
}

func TestSkipsBSlices(t *testing.T) {
	s := clip(t, 1)
	if err := s.Slice(synth.SliceHeader{Type: synth.SliceB, FrameNum: 1}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Picture(synth.SliceHeader{Type: synth.SliceP, RefIdc: 2, FrameNum: 1}, synth.Macroblock{Kind: synth.Skip}); err != nil {
		t.Fatal(err)
	}

	f := newFixture(t, annexB(t, s), false)
	f.start(t)
	if n := f.tick(t, 5*interval); n != 2 {
		t.Errorf("published %d frames, want 2", n)
	}
	if got := f.events.FrameNums(); !reflect.DeepEqual(got, []uint32{0, 1}) {
		t.Errorf("frame nums = %v", got)
	}
	if f.log.Count(ports.LevelWarn) != 1 {
		t.Errorf("warnings = %d, want 1", f.log.Count(ports.LevelWarn))
	}
	if got := f.player.Stats().Decoder.Skipped; got != 1 {
		t.Errorf("skipped = %d, want 1", got)
	}
}

func TestDamagedFrameKeepsPrevious(t *testing.T) {
	s := clip(t, 1)
	// covers one of the two macroblocks
	if err := s.Slice(synth.SliceHeader{Type: synth.SliceP, RefIdc: 2, FrameNum: 1}, []synth.Macroblock{{Kind: synth.Skip}}); err != nil {
		t.Fatal(err)
	}

	f := newFixture(t, annexB(t, s), false)
	f.start(t)
	if n := f.tick(t, 2*interval); n != 1 {
		t.Errorf("published %d frames, want 1", n)
	}
	st := f.player.Stats()
	if st.Substituted != 1 || st.Published != 1 {
		t.Errorf("stats = %+v", st)
	}
	if f.player.Status() != StatusEnded {
		t.Errorf("status = %s, want ended", f.player.Status())
	}
}

func TestMalformedStream(t *testing.T) {
	f := newFixture(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, true)
	_, err := f.player.Tick(0)
	if !errors.Is(err, nal.ErrMalformedStartCode) {
		t.Fatalf("err = %v, want ErrMalformedStartCode", err)
	}
	if f.player.Status() != StatusEnded {
		t.Errorf("status = %s, want ended", f.player.Status())
	}
	if len(f.events.Events) != 0 {
		t.Error("malformed stream published a frame")
	}
}

func TestSourceFailure(t *testing.T) {
	f := newFixture(t, nil, false)
	f.source.Ready = false
	f.source.LoadErr = errors.New("404")

	_, err := f.player.Tick(interval)
	if !errors.Is(err, ErrSourceFailed) {
		t.Fatalf("err = %v, want ErrSourceFailed", err)
	}
	if f.player.Status() != StatusEnded {
		t.Errorf("status = %s, want ended", f.player.Status())
	}
}

func TestNoPictures(t *testing.T) {
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 1, HeightMbs: 1}, synth.PPSConfig{})
	f := newFixture(t, annexB(t, s), true)
	f.start(t)

	_, err := f.player.Tick(interval)
	if !errors.Is(err, ErrNoPictures) {
		t.Fatalf("err = %v, want ErrNoPictures", err)
	}
	if f.player.Status() != StatusEnded {
		t.Errorf("status = %s, want ended", f.player.Status())
	}
}

func TestUnsupportedStream(t *testing.T) {
	w := &synth.Writer{}
	w.WriteUE(0)
	w.WriteUE(0)
	w.WriteFlag(true) // CABAC
	w.WriteTrailing()

	s := clip(t, 1)
	s.Append(synth.NALU(3, 8, w.Bytes()))
	f := newFixture(t, annexB(t, s), false)
	f.start(t)

	n, err := f.player.Tick(interval)
	if !errors.Is(err, params.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	// the IDR was finished by the failing unit but never shown
	if n != 0 || f.player.Status() != StatusEnded {
		t.Errorf("n = %d, status = %s", n, f.player.Status())
	}
}

func TestDefaultInterval(t *testing.T) {
	p := New(mocks.NewVideoSource(nil), mocks.NewRenderTarget(1, 1), Options{}, mocks.NewLogger())
	if p.Options().FrameInterval != DefaultFrameInterval {
		t.Errorf("interval = %v", p.Options().FrameInterval)
	}
}
