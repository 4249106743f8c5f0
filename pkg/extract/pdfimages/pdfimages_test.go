package pdfimages_test

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/extract/pdfimages"
)

// scanned.pdf has two pages of flate-encoded gray images: page one carries a
// 4x4 image (0x40) and a 16x8 image (0xC0), page two a single 10x10 image
// (0x80).
func scanned() []byte {
	data, err := os.ReadFile(filepath.Join("testdata", "scanned.pdf"))
	Expect(err).NotTo(HaveOccurred())
	return data
}

func grayAt(img image.Image, x, y int) uint8 {
	b := img.Bounds()
	return color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
}

var _ = Describe("Renderer", func() {
	It("returns the largest image of each page in page order", func() {
		pages, err := pdfimages.New().RenderPages(context.Background(), scanned())
		Expect(err).NotTo(HaveOccurred())
		Expect(pages).To(HaveLen(2))

		Expect(pages[0].Bounds().Dx()).To(Equal(16))
		Expect(pages[0].Bounds().Dy()).To(Equal(8))
		Expect(grayAt(pages[0], 0, 0)).To(Equal(uint8(0xC0)))

		Expect(pages[1].Bounds().Dx()).To(Equal(10))
		Expect(pages[1].Bounds().Dy()).To(Equal(10))
		Expect(grayAt(pages[1], 5, 5)).To(Equal(uint8(0x80)))
	})

	It("returns no pages for a pdf without images", func() {
		data, err := os.ReadFile(filepath.Join("..", "pdftext", "testdata", "three_pages.pdf"))
		Expect(err).NotTo(HaveOccurred())

		pages, err := pdfimages.New().RenderPages(context.Background(), data)
		Expect(err).NotTo(HaveOccurred())
		Expect(pages).To(BeEmpty())
	})

	It("fails on bytes that are not a pdf", func() {
		_, err := pdfimages.New().RenderPages(context.Background(), []byte("not a pdf"))
		Expect(err).To(HaveOccurred())
	})
})
