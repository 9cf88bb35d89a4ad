// Package ocr turns cropped tooltip images into text. It preprocesses images for
// recognition, defines the Engine capability every recognizer implements, and
// arbitrates between two engines by confidence.
package ocr

import (
	"context"
	"image"
)

// Mode selects the layout hint an engine should assume.
type Mode int

const (
	// ModeTitle is a single line of text (the item name).
	ModeTitle Mode = iota
	// ModeTrait is a small block of text (the trait line and its decorations).
	ModeTrait
)

func (m Mode) String() string {
	if m == ModeTrait {
		return "trait"
	}
	return "title"
}

// Result is one engine's reading of an image. Confidence is on a 0-100 scale and
// is 0 when nothing was recognized.
type Result struct {
	Engine     string  `json:"engine"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Engine recognizes text in an already preprocessed image.
type Engine interface {
	Name() string
	Extract(ctx context.Context, img image.Image, mode Mode) (Result, error)
}
