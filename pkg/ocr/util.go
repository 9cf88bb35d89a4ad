package ocr

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"

	"github.com/BlakeDonn/inven/pkg/textnorm"
)

// snippet returns a shortened version of text for logging.
func snippet(s string, max int) string {
	return textnorm.Snippet(s, max)
}

// EncodePNG serializes img for engines that take encoded bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
