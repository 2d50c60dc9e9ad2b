package summarizer

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/h264play/pkg/codec/decoder"
	"github.com/user/h264play/pkg/mocks"
	"github.com/user/h264play/pkg/probe"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
}

func TestBuilder_WithStream(t *testing.T) {
	summary := NewBuilder().
		WithStream("clip.h264", "annexb", 4096).
		Build()

	if summary.Stream.Name != "clip.h264" {
		t.Errorf("expected name 'clip.h264', got '%s'", summary.Stream.Name)
	}
	if summary.Stream.Container != "annexb" || summary.Stream.Bytes != 4096 {
		t.Errorf("stream = %+v", summary.Stream)
	}
}

func TestBuilder_WithProbe(t *testing.T) {
	r := probe.Result{
		Units:  []probe.UnitCount{{Code: 5, Type: "IDR", Count: 1}},
		Total:  4,
		SPS:    []probe.SPSInfo{{Width: 64, Height: 48}},
		Frames: 2,
		IDRs:   1,
		Stats:  decoder.Stats{Slices: 3, Skipped: 1, Concealed: 1},
	}
	summary := NewBuilder().WithProbe(r).Build()

	want := DecodeInfo{Units: 4, Slices: 3, Frames: 2, IDRs: 1, Skipped: 1, Concealed: 1}
	if summary.Decode != want {
		t.Errorf("decode = %+v, want %+v", summary.Decode, want)
	}
	if len(summary.Units) != 1 || len(summary.SPS) != 1 {
		t.Errorf("units = %v, sps = %v", summary.Units, summary.SPS)
	}
}

func TestBuilder_WithSheetAndFailure(t *testing.T) {
	summary := NewBuilder().
		WithSheet(SheetInfo{Path: "out.png", Width: 696, Height: 252}).
		WithFailure(nil).
		Build()

	if summary.Sheet == nil || summary.Sheet.Path != "out.png" {
		t.Errorf("sheet = %+v", summary.Sheet)
	}
	if summary.Failure != "" {
		t.Errorf("failure = %q, want empty", summary.Failure)
	}

	summary = NewBuilder().WithFailure(errors.New("params: unsupported stream")).Build()
	if summary.Failure != "params: unsupported stream" {
		t.Errorf("failure = %q", summary.Failure)
	}
}

func TestJSONFormatter(t *testing.T) {
	summary := NewBuilder().
		WithStream("clip.h264", "annexb", 10).
		WithSheet(SheetInfo{Path: "out.png"}).
		Build()

	out := NewJSONFormatter().Format(summary)

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	stream, ok := decoded["stream"].(map[string]interface{})
	if !ok || stream["name"] != "clip.h264" {
		t.Errorf("stream = %v", decoded["stream"])
	}
	if _, ok := decoded["sheet"]; !ok {
		t.Error("expected sheet in JSON output")
	}
	if _, ok := decoded["failure"]; ok {
		t.Error("empty failure should be omitted")
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	formatter := FormatFunc(func(s *Summary) string { return "report for " + s.Stream.Name })
	w := NewWriter(formatter, "md", fs)

	summary := NewBuilder().WithStream("clip.h264", "", 0).Build()
	if err := w.Write("reports/clip.md", summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, ok := fs.GetFile("reports/clip.md")
	if !ok {
		t.Fatal("expected report to be written")
	}
	if string(data) != "report for clip.h264" {
		t.Errorf("content = %q", data)
	}
	if exists, _ := fs.Exists("reports"); !exists {
		t.Error("expected parent directory to be created")
	}

	fs.WriteErr = errors.New("read-only")
	if err := w.Write("clip.md", summary); err == nil {
		t.Error("expected write error")
	}
}

func TestWriter_WriteBeside(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(NewJSONFormatter(), "json", fs)
	summary := NewBuilder().WithStream("clip.h264", "annexb", 10).Build()

	path, err := w.WriteBeside("media/clip.h264", "", summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "media/clip.json" {
		t.Errorf("path = %q", path)
	}
	if _, ok := fs.GetFile("media/clip.json"); !ok {
		t.Error("expected report beside the input")
	}

	path, err = w.WriteBeside("media/clip.h264", "reports", summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join("reports", "clip.json") {
		t.Errorf("path = %q", path)
	}
}
