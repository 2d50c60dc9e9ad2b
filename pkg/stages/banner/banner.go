// Package banner implements the banner generation stage.
package banner

import (
	"context"
	"fmt"

	"github.com/user/h264play/pkg/pipeline"
	"github.com/user/h264play/pkg/ports"
)

// DefaultHeight is used when the input leaves Height at zero.
const DefaultHeight = 76

// Stage draws a banner with the stream facts.
type Stage struct {
	renderer ports.Renderer
	subtitle string
	logger   ports.Logger
}

// NewStage creates a new banner stage. subtitle is a text/template for
// the second line; empty selects DefaultSubtitle.
func NewStage(renderer ports.Renderer, subtitle string, logger ports.Logger) *Stage {
	return &Stage{
		renderer: renderer,
		subtitle: subtitle,
		logger:   logger.WithComponent("banner"),
	}
}

// Execute draws the banner onto a fresh canvas.
func (s *Stage) Execute(ctx context.Context, input pipeline.BannerInput) (pipeline.BannerResult, error) {
	result := pipeline.BannerResult{}

	s.logger.Debug("Generating banner")

	vars := NewTemplateVars(input)
	subtitle, err := RenderSubtitle(vars, s.subtitle)
	if err != nil {
		return result, fmt.Errorf("render subtitle: %w", err)
	}

	height := input.Height
	if height <= 0 {
		height = DefaultHeight
	}
	theme := input.Theme
	const pad = 12

	canvas := s.renderer.CreateCanvas(input.Width, height, theme.BackgroundColor)

	canvas.DrawText(vars.MainTitle, pad, 18, ports.TextStyle{FontSize: 15, Color: theme.TextColor})
	canvas.DrawText(subtitle, pad, 36, ports.TextStyle{FontSize: 11, Color: theme.AccentColor})
	canvas.DrawRect(pad, 48, input.Width-2*pad, 1, theme.AccentColor)

	canvas.DrawText(vars.Credit, pad, 62, ports.TextStyle{FontSize: 12, Color: theme.TextColor})

	// properties and the date are right-aligned in reverse order
	x := input.Width - pad
	items := []string{vars.CreatedAt}
	for i := len(vars.Properties) - 1; i >= 0; i-- {
		p := vars.Properties[i]
		items = append(items, p.Label+" "+p.Value)
	}
	for _, text := range items {
		style := ports.TextStyle{FontSize: 11, Color: theme.TextColor, Align: ports.AlignRight}
		canvas.DrawText(text, x, 62, style)
		w, _ := canvas.MeasureText(text, style)
		x -= int(w) + pad
	}

	result.Image = canvas.ToImage()
	s.logger.Debug("Banner generated: %dx%d", input.Width, height)
	return result, nil
}
