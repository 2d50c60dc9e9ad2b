package orchestrator

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/user/h264play/pkg/adapters/logger"
	"github.com/user/h264play/pkg/codec/synth"
	"github.com/user/h264play/pkg/mocks"
	"github.com/user/h264play/pkg/pipeline"
	"github.com/user/h264play/pkg/stages/banner"
	"github.com/user/h264play/pkg/stages/composite"
	"github.com/user/h264play/pkg/stages/decode"
	"github.com/user/h264play/pkg/stages/encode"
	"github.com/user/h264play/pkg/stages/layout"
)

// mockDecodeStage is a mock for the decode stage.
type mockDecodeStage struct {
	result pipeline.DecodeResult
	err    error
	input  pipeline.DecodeInput
}

func (m *mockDecodeStage) Execute(ctx context.Context, input pipeline.DecodeInput) (pipeline.DecodeResult, error) {
	m.input = input
	if m.err != nil {
		return pipeline.DecodeResult{}, m.err
	}
	return m.result, nil
}

// mockLayoutStage is a mock for the layout stage.
type mockLayoutStage struct {
	result pipeline.LayoutResult
	input  pipeline.LayoutInput
}

func (m *mockLayoutStage) Execute(ctx context.Context, input pipeline.LayoutInput) (pipeline.LayoutResult, error) {
	m.input = input
	return m.result, nil
}

// mockBannerStage is a mock for the banner stage.
type mockBannerStage struct {
	result pipeline.BannerResult
	err    error
}

func (m *mockBannerStage) Execute(ctx context.Context, input pipeline.BannerInput) (pipeline.BannerResult, error) {
	if m.err != nil {
		return pipeline.BannerResult{}, m.err
	}
	return m.result, nil
}

// mockCompositeStage is a mock for the composite stage.
type mockCompositeStage struct {
	result pipeline.CompositeResult
	input  pipeline.CompositeInput
}

func (m *mockCompositeStage) Execute(ctx context.Context, input pipeline.CompositeInput) (pipeline.CompositeResult, error) {
	m.input = input
	return m.result, nil
}

// mockEncodeStage is a mock for the encode stage.
type mockEncodeStage struct {
	result pipeline.EncodeResult
	err    error
}

func (m *mockEncodeStage) Execute(ctx context.Context, input pipeline.EncodeInput) (pipeline.EncodeResult, error) {
	if m.err != nil {
		return pipeline.EncodeResult{}, m.err
	}
	return m.result, nil
}

type fixture struct {
	decode    *mockDecodeStage
	layout    *mockLayoutStage
	banner    *mockBannerStage
	composite *mockCompositeStage
	encode    *mockEncodeStage
	fs        *mocks.FileSystem
	sink      *mocks.DebugSink
}

func newFixture(debug bool) *fixture {
	f := &fixture{
		decode: &mockDecodeStage{
			result: pipeline.DecodeResult{
				Frames: []pipeline.DecodedFrame{
					{Index: 0, IDR: true, Image: image.NewRGBA(image.Rect(0, 0, 64, 32))},
					{Index: 1, FrameNum: 1, Image: image.NewRGBA(image.Rect(0, 0, 64, 32))},
				},
				Size:    pipeline.Dimension{Width: 64, Height: 32},
				Profile: 66,
				Level:   30,
				Total:   2,
			},
		},
		layout: &mockLayoutStage{
			result: pipeline.LayoutResult{
				Canvas: pipeline.Dimension{Width: 352, Height: 140},
				Thumb:  pipeline.Dimension{Width: 160, Height: 80},
			},
		},
		banner: &mockBannerStage{
			result: pipeline.BannerResult{Image: image.NewRGBA(image.Rect(0, 0, 352, 76))},
		},
		composite: &mockCompositeStage{
			result: pipeline.CompositeResult{Image: image.NewRGBA(image.Rect(0, 0, 352, 140))},
		},
		encode: &mockEncodeStage{
			result: pipeline.EncodeResult{Data: []byte{0x89, 'P', 'N', 'G'}, FileSize: 4},
		},
		fs:   mocks.NewFileSystem(),
		sink: mocks.NewDebugSink(debug),
	}
	f.fs.WriteFile("in/clip.h264", []byte{0, 0, 0, 1, 0x67})
	return f
}

func (f *fixture) orchestrator() *Orchestrator {
	return New(f.decode, f.layout, f.banner, f.composite, f.encode, f.fs, f.sink, logger.NewNoop())
}

func testConfig() Config {
	config := DefaultConfig()
	config.InputPath = "in/clip.h264"
	config.OutputPath = "out/sheet.png"
	return config
}

func TestOrchestrator_Run(t *testing.T) {
	f := newFixture(false)

	result, err := f.orchestrator().Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, ok := f.fs.GetFile("out/sheet.png")
	if !ok {
		t.Fatal("expected output file to be written")
	}
	if len(data) != 4 {
		t.Errorf("output has %d bytes, want 4", len(data))
	}

	if f.decode.input.Name != "clip.h264" {
		t.Errorf("stream name = %q, want clip.h264", f.decode.input.Name)
	}
	if f.decode.input.MaxFrames != 12 {
		t.Errorf("max frames = %d, want 12", f.decode.input.MaxFrames)
	}
	if f.layout.input.Frames != 2 || f.layout.input.Source.Width != 64 {
		t.Errorf("layout input = %+v", f.layout.input)
	}
	if f.layout.input.BannerHeight != 76 || f.layout.input.LabelHeight != 16 {
		t.Errorf("banner/label height = %d/%d", f.layout.input.BannerHeight, f.layout.input.LabelHeight)
	}
	if f.composite.input.Banner == nil {
		t.Error("expected banner to be passed to composition")
	}
	if len(f.composite.input.Frames) != 2 {
		t.Errorf("composited %d frames, want 2", len(f.composite.input.Frames))
	}

	if result.Width != 64 || result.Height != 32 || result.FrameCount != 2 || result.Sampled != 2 {
		t.Errorf("result = %+v", result)
	}
	if result.SheetWidth != 352 || result.FileSize != 4 {
		t.Errorf("sheet = %dx%d, %d bytes", result.SheetWidth, result.SheetHeight, result.FileSize)
	}
	if result.Matrix != "BT.601 limited" {
		t.Errorf("matrix = %q", result.Matrix)
	}
}

func TestOrchestrator_Run_NoBannerNoLabels(t *testing.T) {
	f := newFixture(false)
	f.banner.err = errors.New("banner must not run")

	config := testConfig()
	config.BannerEnabled = false
	config.Labels = false
	config.BackgroundColor = [4]uint8{1, 2, 3, 255}

	if _, err := f.orchestrator().Run(context.Background(), config); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.layout.input.BannerHeight != 0 || f.layout.input.LabelHeight != 0 {
		t.Errorf("banner/label height = %d/%d, want 0/0", f.layout.input.BannerHeight, f.layout.input.LabelHeight)
	}
	if f.composite.input.Banner != nil {
		t.Error("banner passed while disabled")
	}
	bg := f.composite.input.Theme.BackgroundColor
	if r, g, b, _ := bg.RGBA(); r>>8 != 1 || g>>8 != 2 || b>>8 != 3 {
		t.Errorf("background = %v", bg)
	}
}

func TestOrchestrator_Run_WithDebugSink(t *testing.T) {
	f := newFixture(true)

	if _, err := f.orchestrator().Run(context.Background(), testConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.sink.Streams["layout"]) == 0 {
		t.Error("expected layout JSON to be saved")
	}
	if len(f.sink.Streams["decode"]) == 0 {
		t.Error("expected decode JSON to be saved")
	}
}

func TestOrchestrator_Run_Errors(t *testing.T) {
	t.Run("missing input", func(t *testing.T) {
		f := newFixture(false)
		config := testConfig()
		config.InputPath = "nope.h264"
		if _, err := f.orchestrator().Run(context.Background(), config); err == nil {
			t.Error("expected error for missing input")
		}
	})

	t.Run("decode failure", func(t *testing.T) {
		f := newFixture(false)
		boom := errors.New("boom")
		f.decode.err = boom
		_, err := f.orchestrator().Run(context.Background(), testConfig())
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want wrapped decode error", err)
		}
		if _, ok := f.fs.GetFile("out/sheet.png"); ok {
			t.Error("output written after a failed decode")
		}
	})

	t.Run("write failure", func(t *testing.T) {
		f := newFixture(false)
		f.fs.WriteErr = errors.New("disk full")
		if _, err := f.orchestrator().Run(context.Background(), testConfig()); err == nil {
			t.Error("expected error when the output cannot be written")
		}
	})
}

// TestOrchestrator_EndToEnd runs the real stages over a generated stream.
func TestOrchestrator_EndToEnd(t *testing.T) {
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 2, HeightMbs: 1, MaxNumRefFrames: 1}, synth.PPSConfig{})
	if err := s.Picture(synth.SliceHeader{Type: synth.SliceI, IDR: true, RefIdc: 3}, synth.Macroblock{Kind: synth.PCM, Fill: [3]byte{81, 90, 240}}); err != nil {
		t.Fatal(err)
	}
	for i := 1; i < 6; i++ {
		if err := s.Picture(synth.SliceHeader{Type: synth.SliceP, RefIdc: 2, FrameNum: uint32(i)}, synth.Macroblock{Kind: synth.Skip}); err != nil {
			t.Fatal(err)
		}
	}
	stream, err := s.AnnexB()
	if err != nil {
		t.Fatal(err)
	}

	fs := mocks.NewFileSystem()
	fs.WriteFile("clip.h264", stream)
	renderer := &mocks.Renderer{}
	sink := mocks.NewDebugSink(false)
	log := logger.NewNoop()

	orch := New(
		decode.NewStage(sink, log),
		layout.NewStage(),
		banner.NewStage(renderer, "", log),
		composite.NewStage(renderer, sink, log, 2),
		encode.NewStage(renderer, log),
		fs,
		sink,
		log,
	)

	config := DefaultConfig()
	config.InputPath = "clip.h264"
	config.OutputPath = "clip.png"
	config.Every = 2

	result, err := orch.Run(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FrameCount != 6 || result.Sampled != 3 {
		t.Errorf("frames = %d, sampled = %d, want 6 and 3", result.FrameCount, result.Sampled)
	}
	if result.Width != 32 || result.Height != 16 {
		t.Errorf("size = %dx%d", result.Width, result.Height)
	}
	if data, ok := fs.GetFile("clip.png"); !ok || string(data) != "png" {
		t.Errorf("output = %q, %v", data, ok)
	}
	// banner canvas plus the sheet
	if len(renderer.Canvases) != 2 {
		t.Errorf("created %d canvases, want 2", len(renderer.Canvases))
	}
}
