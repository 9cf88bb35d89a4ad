// Package tesseract provides the two recognizers used for tooltip crops, both
// backed by gosseract: a layout-aware line/block reader and a sparse text
// detector that reads whatever lines it can find.
package tesseract

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/BlakeDonn/inven/pkg/ocr"
	"github.com/BlakeDonn/inven/pkg/textnorm"
)

// Config is shared by both engines.
type Config struct {
	Language       string
	TessdataPrefix string
}

func (c Config) language() string {
	if c.Language == "" {
		return "eng"
	}
	return c.Language
}

// LineEngine reads a title as a single line and a trait as a single block, and
// scores the reading by the mean confidence of its recognized words.
type LineEngine struct {
	cfg           Config
	clientFactory func() *gosseract.Client
}

func NewLineEngine(cfg Config) *LineEngine {
	return &LineEngine{cfg: cfg, clientFactory: gosseract.NewClient}
}

func (e *LineEngine) Name() string { return "tesseract" }

func (e *LineEngine) Extract(ctx context.Context, img image.Image, mode ocr.Mode) (ocr.Result, error) {
	psm := gosseract.PSM_SINGLE_LINE
	if mode == ocr.ModeTrait {
		psm = gosseract.PSM_SINGLE_BLOCK
	}
	c := e.clientFactory()
	defer c.Close()
	boxes, err := recognize(ctx, c, e.cfg, img, psm, gosseract.RIL_WORD)
	if err != nil {
		return ocr.Result{}, err
	}
	words := make([]string, 0, len(boxes))
	var sum float64
	var n int
	for _, b := range boxes {
		if w := strings.TrimSpace(b.Word); w != "" {
			words = append(words, w)
		}
		// tesseract reports -1 for non-text boxes and 0 for rejects
		if b.Confidence > 0 {
			sum += b.Confidence
			n++
		}
	}
	res := ocr.Result{Engine: e.Name(), Text: textnorm.OCR(strings.Join(words, " "))}
	if n > 0 {
		res.Confidence = sum / float64(n)
	}
	return res, nil
}

// DetectorEngine ignores the mode: it detects text lines anywhere in the crop and
// scores the reading by the mean detection confidence.
type DetectorEngine struct {
	cfg           Config
	clientFactory func() *gosseract.Client
}

func NewDetectorEngine(cfg Config) *DetectorEngine {
	return &DetectorEngine{cfg: cfg, clientFactory: gosseract.NewClient}
}

func (e *DetectorEngine) Name() string { return "detector" }

func (e *DetectorEngine) Extract(ctx context.Context, img image.Image, _ ocr.Mode) (ocr.Result, error) {
	c := e.clientFactory()
	defer c.Close()
	boxes, err := recognize(ctx, c, e.cfg, img, gosseract.PSM_SPARSE_TEXT, gosseract.RIL_TEXTLINE)
	if err != nil {
		return ocr.Result{}, err
	}
	lines := make([]string, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		lines = append(lines, strings.TrimSpace(b.Word))
		sum += max(b.Confidence, 0)
	}
	res := ocr.Result{Engine: e.Name(), Text: textnorm.OCR(strings.Join(lines, " "))}
	if len(boxes) > 0 {
		res.Confidence = sum / float64(len(boxes))
	}
	return res, nil
}

func recognize(ctx context.Context, c *gosseract.Client, cfg Config, img image.Image, psm gosseract.PageSegMode, level gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error) {
	if img == nil {
		return nil, ocr.ErrImageUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(cfg.language()); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	if err := c.SetPageSegMode(psm); err != nil {
		return nil, fmt.Errorf("set psm: %w", err)
	}
	data, err := ocr.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := c.GetBoundingBoxes(level)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	return boxes, nil
}
