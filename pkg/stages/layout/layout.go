// Package layout implements the thumbnail grid layout stage.
package layout

import (
	"context"

	"github.com/user/h264play/pkg/pipeline"
)

// Stage calculates where each thumbnail goes on the contact sheet.
// This is a pure function with no external dependencies.
type Stage struct{}

// NewStage creates a new layout stage.
func NewStage() *Stage {
	return &Stage{}
}

// Execute calculates the layout based on the input parameters.
func (s *Stage) Execute(ctx context.Context, input pipeline.LayoutInput) (pipeline.LayoutResult, error) {
	return ComputeLayout(input), nil
}

// ComputeLayout lays out input.Frames cells in rows of at most
// input.Columns, below an optional banner. Thumbnails keep the source
// aspect ratio; 16:9 is assumed when the source size is unknown.
func ComputeLayout(input pipeline.LayoutInput) pipeline.LayoutResult {
	columns := input.Columns
	if columns < 1 {
		columns = 1
	}
	if input.Frames > 0 && input.Frames < columns {
		columns = input.Frames
	}
	rows := 0
	if input.Frames > 0 {
		rows = (input.Frames + columns - 1) / columns
	}

	thumbW := input.ThumbWidth
	if thumbW < 1 {
		thumbW = pipeline.DefaultLayoutInput().ThumbWidth
	}
	thumbH := thumbW * 9 / 16
	if input.Source.Width > 0 && input.Source.Height > 0 {
		thumbH = (thumbW*input.Source.Height + input.Source.Width/2) / input.Source.Width
	}
	if thumbH < 1 {
		thumbH = 1
	}

	rowHeight := thumbH + input.LabelHeight
	top := input.BannerHeight + input.Padding

	cells := make([]pipeline.Rectangle, input.Frames)
	var labels []pipeline.Rectangle
	if input.LabelHeight > 0 {
		labels = make([]pipeline.Rectangle, input.Frames)
	}
	for i := range cells {
		col, row := i%columns, i/columns
		cells[i] = pipeline.Rectangle{
			X:      input.Padding + col*(thumbW+input.Gap),
			Y:      top + row*(rowHeight+input.Gap),
			Width:  thumbW,
			Height: thumbH,
		}
		if labels != nil {
			labels[i] = pipeline.Rectangle{
				X:      cells[i].X,
				Y:      cells[i].Y + thumbH,
				Width:  thumbW,
				Height: input.LabelHeight,
			}
		}
	}

	width := input.Padding*2 + columns*thumbW + (columns-1)*input.Gap
	height := top + input.Padding
	if rows > 0 {
		height += rows*rowHeight + (rows-1)*input.Gap
	}

	var banner pipeline.Rectangle
	if input.BannerHeight > 0 {
		banner = pipeline.Rectangle{Width: width, Height: input.BannerHeight}
	}

	return pipeline.LayoutResult{
		Canvas:     pipeline.Dimension{Width: width, Height: height},
		Thumb:      pipeline.Dimension{Width: thumbW, Height: thumbH},
		Cells:      cells,
		Labels:     labels,
		BannerArea: banner,
	}
}
