package summarizer

import (
	"strings"
	"testing"
	"time"

	"github.com/user/h264play/pkg/probe"
)

func fullSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Stream: StreamInfo{
			Name:      "clip.h264",
			Container: "annexb",
			Bytes:     1024 * 1024,
		},
		Units: []probe.UnitCount{
			{Code: 1, Type: "NonIDR", Count: 29},
			{Code: 5, Type: "IDR", Count: 1},
		},
		SPS: []probe.SPSInfo{
			{ID: 0, Profile: 77, Level: 31, Width: 1280, Height: 720, RefFrames: 4, FPS: 30, Matrix: "BT.709 limited"},
		},
		Decode: DecodeInfo{Units: 32, Slices: 30, Frames: 30, IDRs: 1, Skipped: 2, Concealed: 1},
	}
}

func TestMarkdownFormatter_Format_Basic(t *testing.T) {
	result := NewMarkdownFormatter().Format(fullSummary())

	checks := []string{
		"# Stream Summary",
		"clip.h264",
		"annexb",
		"1.00 MB",
		"| 0 | Main | 3.1 | 1280x720 | 4 | 30.00 | BT.709 limited |",
		"| 1 | NonIDR | 29 |",
		"30 (1 IDR)",
		"2024-01-15 10:30:00",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q\n%s", check, result)
		}
	}

	if strings.Contains(result, "Contact Sheet") {
		t.Error("output should not have a sheet section without a sheet")
	}
	if strings.Contains(result, "Failure") {
		t.Error("output should not report a failure")
	}
}

func TestMarkdownFormatter_Format_SheetAndFailure(t *testing.T) {
	s := fullSummary()
	s.Sheet = &SheetInfo{Path: "clip.png", Width: 696, Height: 252, Sampled: 12, FileSize: 2048}
	s.Failure = "params: unsupported stream"

	result := NewMarkdownFormatter().Format(s)

	for _, check := range []string{"## Contact Sheet", "clip.png", "696x252", "2.00 KB", "params: unsupported stream"} {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}
}

func TestMarkdownFormatter_Format_Minimal(t *testing.T) {
	result := NewMarkdownFormatter().Format(&Summary{Stream: StreamInfo{Name: "empty.h264"}})

	if strings.Contains(result, "Sequence Parameters") || strings.Contains(result, "Container") {
		t.Errorf("unexpected sections in minimal summary:\n%s", result)
	}
	if !strings.Contains(result, "0 B") {
		t.Error("expected zero size")
	}
}

func TestMarkdownFormatter_WithTranslator(t *testing.T) {
	translator := func(key string) string {
		translations := map[string]string{
			"Stream Summary": "ストリーム概要",
			"Decoding":       "デコード",
		}
		if v, ok := translations[key]; ok {
			return v
		}
		return key
	}

	result := NewMarkdownFormatter(WithTranslator(translator)).Format(fullSummary())

	if !strings.Contains(result, "ストリーム概要") {
		t.Error("expected translated 'Stream Summary'")
	}
	if !strings.Contains(result, "デコード") {
		t.Error("expected translated 'Decoding'")
	}
}

func TestMarkdownFormatter_WithVersion(t *testing.T) {
	result := NewMarkdownFormatter(WithVersion("v1.2.0")).Format(fullSummary())

	if !strings.Contains(result, "v1.2.0") {
		t.Error("expected output to contain version 'v1.2.0'")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
		{1536 * 1024 * 1024, "1.50 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := formatBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
