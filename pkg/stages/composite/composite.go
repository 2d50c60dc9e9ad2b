// Package composite implements the contact sheet composition stage.
package composite

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/user/h264play/pkg/pipeline"
	"github.com/user/h264play/pkg/ports"
)

// Stage draws sampled frames into a single contact sheet.
type Stage struct {
	renderer   ports.Renderer
	sink       ports.DebugSink
	logger     ports.Logger
	numWorkers int
}

// NewStage creates a new composite stage.
func NewStage(renderer ports.Renderer, sink ports.DebugSink, logger ports.Logger, numWorkers int) *Stage {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Stage{
		renderer:   renderer,
		sink:       sink,
		logger:     logger.WithComponent("composite"),
		numWorkers: numWorkers,
	}
}

// Execute composes the sheet. Thumbnails are scaled in parallel and
// drawn in frame order.
func (s *Stage) Execute(ctx context.Context, input pipeline.CompositeInput) (pipeline.CompositeResult, error) {
	layout := input.Layout
	if len(layout.Cells) < len(input.Frames) {
		return pipeline.CompositeResult{}, fmt.Errorf("layout has %d cells for %d frames", len(layout.Cells), len(input.Frames))
	}

	s.logger.Debug("Compositing %d frames with %d workers", len(input.Frames), s.numWorkers)

	thumbs, err := s.scaleParallel(ctx, input.Frames, layout.Thumb)
	if err != nil {
		return pipeline.CompositeResult{}, err
	}

	theme := input.Theme
	canvas := s.renderer.CreateCanvas(layout.Canvas.Width, layout.Canvas.Height, theme.BackgroundColor)

	if input.Banner != nil && input.Banner.Image != nil && layout.BannerArea.Height > 0 {
		canvas.DrawImage(input.Banner.Image, layout.BannerArea.X, layout.BannerArea.Y)
	}

	for i, frame := range input.Frames {
		cell := layout.Cells[i]
		canvas.DrawImage(thumbs[i], cell.X, cell.Y)

		border := theme.BorderColor
		switch {
		case frame.Corrupt:
			border = theme.CorruptColor
		case frame.IDR:
			border = theme.IDRColor
		}
		canvas.DrawRectStroke(cell.X, cell.Y, cell.Width, cell.Height, border, 1)

		if i < len(layout.Labels) {
			label := layout.Labels[i]
			style := ports.TextStyle{
				FontSize: float64(label.Height) * 0.7,
				Color:    theme.LabelColor,
				Align:    ports.AlignCenter,
			}
			canvas.DrawText(Label(frame), label.X+label.Width/2, label.Y+label.Height/2, style)
		}
	}

	result := pipeline.CompositeResult{Image: canvas.ToImage()}
	if s.sink.Enabled() {
		if err := s.sink.SaveContactSheet(result.Image); err != nil {
			s.logger.Warn("Failed to save contact sheet: %v", err)
		}
	}

	s.logger.Debug("Composition completed")
	return result, nil
}

// Label returns the caption printed under a thumbnail.
func Label(f pipeline.DecodedFrame) string {
	text := fmt.Sprintf("#%d fn=%d", f.Index, f.FrameNum)
	switch {
	case f.Corrupt:
		text += " damaged"
	case f.IDR:
		text += " IDR"
	}
	return text
}

// indexedThumb holds a scaled frame with its original index.
type indexedThumb struct {
	index int
	img   image.Image
}

// scaleParallel resizes every frame to size using a worker pool.
func (s *Stage) scaleParallel(ctx context.Context, frames []pipeline.DecodedFrame, size pipeline.Dimension) ([]image.Image, error) {
	numFrames := len(frames)
	jobs := make(chan int, numFrames)
	results := make(chan indexedThumb, numFrames)

	var wg sync.WaitGroup
	for w := 0; w < s.numWorkers; w++ {
		wg.Add(1)
		go s.worker(ctx, &wg, frames, size, jobs, results)
	}

	for i := 0; i < numFrames; i++ {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	thumbs := make([]image.Image, numFrames)
	for r := range results {
		thumbs[r.index] = r.img
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, img := range thumbs {
		if img == nil {
			return nil, fmt.Errorf("scale frame %d: no image", i)
		}
	}
	return thumbs, nil
}

// worker scales frames from the jobs channel.
func (s *Stage) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	frames []pipeline.DecodedFrame,
	size pipeline.Dimension,
	jobs <-chan int,
	results chan<- indexedThumb,
) {
	defer wg.Done()

	for idx := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		img := frames[idx].Image
		if img == nil {
			continue
		}
		b := img.Bounds()
		if b.Dx() != size.Width || b.Dy() != size.Height {
			img = s.renderer.ResizeImage(img, size.Width, size.Height)
		}
		results <- indexedThumb{index: idx, img: img}
	}
}
