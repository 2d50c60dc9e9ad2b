// Package encode implements the image encoding stage.
package encode

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/h264play/pkg/pipeline"
	"github.com/user/h264play/pkg/ports"
)

// ErrNoImage is returned when there is nothing to encode.
var ErrNoImage = errors.New("no image to encode")

// Stage encodes the contact sheet into PNG or JPEG.
type Stage struct {
	renderer ports.Renderer
	logger   ports.Logger
}

// NewStage creates a new encode stage.
func NewStage(renderer ports.Renderer, logger ports.Logger) *Stage {
	return &Stage{
		renderer: renderer,
		logger:   logger.WithComponent("encode"),
	}
}

// Execute encodes input.Image.
func (s *Stage) Execute(ctx context.Context, input pipeline.EncodeInput) (pipeline.EncodeResult, error) {
	result := pipeline.EncodeResult{}

	if input.Image == nil {
		return result, ErrNoImage
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	quality := input.Quality
	if quality < 1 || quality > 100 {
		quality = pipeline.DefaultEncodeInput().Quality
	}

	data, err := s.renderer.EncodeImage(input.Image, input.Format, quality)
	if err != nil {
		return result, fmt.Errorf("encode %s: %w", input.Format.Extension(), err)
	}

	result.Data = data
	result.FileSize = int64(len(data))
	s.logger.Debug("Encoded %s, %d bytes", input.Format.Extension(), result.FileSize)
	return result, nil
}
