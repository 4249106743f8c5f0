// Package tesseract recognizes page images with a local Tesseract install
// through github.com/otiai10/gosseract/v2.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/papercomputeco/docrag/pkg/extract"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Recognizer implements extract.Recognizer.
type Recognizer struct {
	languages []string
}

// New returns a Recognizer for the given Tesseract languages.
func New(languages ...string) *Recognizer {
	if len(languages) == 0 {
		languages = []string{DefaultLanguage}
	}
	return &Recognizer{languages: languages}
}

// Recognize runs Tesseract over img. A client is created per call since
// gosseract clients are not safe for concurrent use.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("%w: encoding page: %w", extract.ErrOCR, err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.languages...); err != nil {
		return "", fmt.Errorf("%w: %w", extract.ErrOCR, err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("%w: %w", extract.ErrOCR, err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %w", extract.ErrOCR, err)
	}

	return text, nil
}

var _ extract.Recognizer = (*Recognizer)(nil)
