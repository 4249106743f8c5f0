package extract

import "errors"

var (
	// ErrExtraction is returned when direct text extraction fails or yields
	// only whitespace.
	ErrExtraction = errors.New("text extraction failed")

	// ErrOCR is returned when page images cannot be produced or recognized.
	ErrOCR = errors.New("ocr failed")
)
