// Package pdfimages produces page images from a PDF by extracting the images
// embedded on each page with pdfcpu. Scanned documents carry one raster image
// per page, which is what the OCR fallback needs.
package pdfimages

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/tiff"

	"github.com/papercomputeco/docrag/pkg/extract"
)

// Renderer implements extract.PageRenderer.
type Renderer struct {
	conf *model.Configuration
}

// New returns a Renderer using relaxed PDF validation.
func New() *Renderer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &Renderer{conf: conf}
}

// RenderPages returns the largest decodable image of every page that has
// one, in page order. Images in formats the standard decoders cannot read
// (JPEG 2000, for example) are skipped.
func (r *Renderer) RenderPages(ctx context.Context, data []byte) ([]image.Image, error) {
	perPage, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, r.conf)
	if err != nil {
		return nil, fmt.Errorf("extracting page images: %w", err)
	}

	best := map[int]image.Image{}
	for _, images := range perPage {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, img := range images {
			decoded, _, err := image.Decode(img)
			if err != nil {
				continue
			}

			if cur, ok := best[img.PageNr]; ok && area(cur) >= area(decoded) {
				continue
			}
			best[img.PageNr] = decoded
		}
	}

	pageNrs := make([]int, 0, len(best))
	for nr := range best {
		pageNrs = append(pageNrs, nr)
	}
	sort.Ints(pageNrs)

	pages := make([]image.Image, 0, len(pageNrs))
	for _, nr := range pageNrs {
		pages = append(pages, best[nr])
	}

	return pages, nil
}

func area(img image.Image) int {
	b := img.Bounds()
	return b.Dx() * b.Dy()
}

var _ extract.PageRenderer = (*Renderer)(nil)
