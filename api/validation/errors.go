package validation

import "errors"

var (
	ErrMissingInput         = errors.New("no image file provided")
	ErrInvalidForm          = errors.New("invalid multipart form")
	ErrUnsupportedMediaType = errors.New("only image files are allowed")
	ErrPayloadTooLarge      = errors.New("file size exceeds upload limit")
)
