package ocr

import "errors"

// ErrImageUnavailable is returned when an image is missing, undecodable or empty.
var ErrImageUnavailable = errors.New("image unavailable")
