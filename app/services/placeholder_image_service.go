package services

import (
	"bytes"
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"time"
)

// PlaceholderImageService is a config-gated stand-in for the real image
// provider. It deterministically renders a flat gradient card from the prompt
// so environments without provider credentials still exercise the full
// generation pipeline. No ledger cost is attributed: token counts are zero.
type PlaceholderImageService struct {
	Width  int
	Height int
}

// NewPlaceholderImageService creates a placeholder image generator
func NewPlaceholderImageService(width, height int) *PlaceholderImageService {
	if width <= 0 {
		width = 1080
	}
	if height <= 0 {
		height = 1080
	}
	return &PlaceholderImageService{Width: width, Height: height}
}

func (s *PlaceholderImageService) Provider() string { return "placeholder" }
func (s *PlaceholderImageService) Model() string    { return "placeholder" }

// Generate renders a PNG whose palette is derived from the prompt hash
func (s *PlaceholderImageService) Generate(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	start := time.Now()

	h := fnv.New32a()
	h.Write([]byte(req.Prompt))
	seed := h.Sum32()

	base := color.RGBA{
		R: uint8(seed >> 16),
		G: uint8(seed >> 8),
		B: uint8(seed),
		A: 255,
	}

	rgba := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	for y := 0; y < s.Height; y++ {
		t := float64(y) / float64(s.Height)
		row := color.RGBA{
			R: uint8(float64(base.R) * (1 - t*0.6)),
			G: uint8(float64(base.G) * (1 - t*0.6)),
			B: uint8(float64(base.B) * (1 - t*0.6)),
			A: 255,
		}
		draw.Draw(rgba, image.Rect(0, y, s.Width, y+1), &image.Uniform{C: row}, image.Point{}, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, err
	}

	return &ImageResult{
		Data:      buf.Bytes(),
		MimeType:  "image/png",
		TokensIn:  0,
		TokensOut: 0,
		LatencyMs: measureLatency(start),
	}, nil
}
