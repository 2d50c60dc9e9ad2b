package banner

import (
	"context"
	"strings"
	"testing"

	"github.com/user/h264play/pkg/adapters/logger"
	"github.com/user/h264play/pkg/mocks"
	"github.com/user/h264play/pkg/pipeline"
)

func testInput() pipeline.BannerInput {
	return pipeline.BannerInput{
		Width:   696,
		Name:    "clip.h264",
		Size:    pipeline.Dimension{Width: 1280, Height: 720},
		Frames:  300,
		Sampled: 12,
		FPS:     29.97,
		Matrix:  "BT.709 limited",
		Profile: 77,
		Level:   31,
		Theme:   pipeline.DefaultBannerTheme(),
	}
}

func TestStage_Execute(t *testing.T) {
	renderer := &mocks.Renderer{}
	stage := NewStage(renderer, "", logger.NewNoop())

	result, err := stage.Execute(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Image == nil {
		t.Fatal("expected image to be created")
	}

	bounds := result.Image.Bounds()
	if bounds.Dx() != 696 || bounds.Dy() != DefaultHeight {
		t.Errorf("size = %dx%d, want 696x%d", bounds.Dx(), bounds.Dy(), DefaultHeight)
	}

	if len(renderer.Canvases) != 1 {
		t.Fatalf("expected 1 canvas, got %d", len(renderer.Canvases))
	}
	texts := strings.Join(renderer.Canvases[0].Texts, "\n")
	for _, want := range []string{
		"clip.h264",
		"1280x720 · 300 frames (12 shown) · 29.97 fps",
		"h264play",
		"Profile Main 3.1",
		"Matrix BT.709 limited",
	} {
		if !strings.Contains(texts, want) {
			t.Errorf("banner text missing %q:\n%s", want, texts)
		}
	}
}

func TestStage_Execute_CustomSubtitle(t *testing.T) {
	renderer := &mocks.Renderer{}
	stage := NewStage(renderer, "{{.Resolution}} / {{.Credit}}", logger.NewNoop())

	input := testInput()
	input.Credit = "Custom Credit"
	input.Height = 90

	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Image.Bounds().Dy() != 90 {
		t.Errorf("height = %d, want 90", result.Image.Bounds().Dy())
	}

	texts := renderer.Canvases[0].Texts
	if texts[1] != "1280x720 / Custom Credit" {
		t.Errorf("subtitle = %q", texts[1])
	}
}

func TestStage_Execute_BadTemplate(t *testing.T) {
	stage := NewStage(&mocks.Renderer{}, "{{.Missing", logger.NewNoop())
	if _, err := stage.Execute(context.Background(), testInput()); err == nil {
		t.Error("expected error for unparsable template")
	}
}

func TestNewTemplateVars(t *testing.T) {
	tests := []struct {
		name        string
		credit      string
		sampled     int
		fps         float64
		wantCredit  string
		wantSampled int
		wantFPS     string
	}{
		{
			name:        "with custom credit",
			credit:      "My Credit",
			sampled:     12,
			fps:         25,
			wantCredit:  "My Credit",
			wantSampled: 12,
			wantFPS:     "25.00 fps",
		},
		{
			name:        "empty credit defaults to h264play",
			sampled:     300,
			wantCredit:  "h264play",
			wantSampled: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := testInput()
			input.Credit = tt.credit
			input.Sampled = tt.sampled
			input.FPS = tt.fps

			vars := NewTemplateVars(input)
			if vars.Credit != tt.wantCredit {
				t.Errorf("Credit = %q, want %q", vars.Credit, tt.wantCredit)
			}
			if vars.Sampled != tt.wantSampled {
				t.Errorf("Sampled = %d, want %d", vars.Sampled, tt.wantSampled)
			}
			if vars.FPS != tt.wantFPS {
				t.Errorf("FPS = %q, want %q", vars.FPS, tt.wantFPS)
			}
			if vars.MainTitle != "clip.h264" {
				t.Errorf("MainTitle = %q", vars.MainTitle)
			}
		})
	}
}

func TestRenderSubtitle(t *testing.T) {
	vars := TemplateVars{Resolution: "320x240", Frames: 10}

	got, err := RenderSubtitle(vars, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "320x240 · 10 frames" {
		t.Errorf("subtitle = %q", got)
	}
}

func TestProfileName(t *testing.T) {
	cases := map[int]string{66: "Baseline", 77: "Main", 100: "High", 44: "profile 44"}
	for idc, want := range cases {
		if got := ProfileName(idc); got != want {
			t.Errorf("ProfileName(%d) = %q, want %q", idc, got, want)
		}
	}
	if got := LevelName(40); got != "4.0" {
		t.Errorf("LevelName(40) = %q", got)
	}
}
