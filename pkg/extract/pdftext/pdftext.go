// Package pdftext reads the text layer of a PDF with github.com/ledongthuc/pdf.
package pdftext

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/papercomputeco/docrag/pkg/extract"
)

// Source implements extract.TextSource.
type Source struct{}

// New returns a PDF text source.
func New() *Source {
	return &Source{}
}

// Pages returns the plain text of each page in order. Pages without content
// streams yield an empty string.
func (s *Source) Pages(ctx context.Context, data []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	return pages, nil
}

var _ extract.TextSource = (*Source)(nil)
