package calculator

import "errors"

var (
	// ErrEmptyImage is returned when the request carries no image or a blank canvas.
	ErrEmptyImage = errors.New("image is empty: draw something before running")
	// ErrInvalidImage is returned when the image is not a decodable base64 data URL.
	ErrInvalidImage = errors.New("image must be a base64 encoded PNG, JPEG or GIF data URL")
	// ErrAnalyzerUnavailable is returned when no vision model is configured.
	ErrAnalyzerUnavailable = errors.New("vision model is not configured")
	// ErrUnparseableAnswer is returned when the model reply is not a list of results.
	ErrUnparseableAnswer = errors.New("vision model returned an unparseable answer")
)
