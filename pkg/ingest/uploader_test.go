package ingest_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/embeddings"
	"github.com/papercomputeco/docrag/pkg/eventstream"
	"github.com/papercomputeco/docrag/pkg/ingest"
	testutils "github.com/papercomputeco/docrag/pkg/utils/test"
	"github.com/papercomputeco/docrag/pkg/vector"
	"github.com/papercomputeco/docrag/pkg/vector/inmemory"
)

var _ = Describe("Uploader", func() {
	var (
		ctx       context.Context
		embedder  *testutils.MockEmbedder
		driver    *inmemory.Driver
		publisher *testutils.MockPublisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		driver = inmemory.NewDriver()
		publisher = &testutils.MockPublisher{}
		Expect(driver.CreateCollection(ctx, "manuals", 3)).To(Succeed())
	})

	newUploader := func(pages []string) *ingest.Uploader {
		return ingest.NewUploader(ingest.UploaderConfig{
			Pipeline:  newPipeline(pages, embedder),
			Driver:    driver,
			Publisher: publisher,
		})
	}

	It("stores one point per chunk and publishes an event", func() {
		res, err := newUploader(threePages).Upload(ctx, ingest.UploadRequest{
			Collection: "manuals",
			Name:       "greek.pdf",
			DocType:    "alphabet",
			Data:       []byte("%PDF"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Chunks).To(BeNumerically(">=", 3))
		Expect(driver.Count("manuals")).To(Equal(res.Chunks))

		hits, err := driver.Search(ctx, "manuals", []float32{0.1, 0.2, 0.3}, vector.SearchParams{Limit: 100})
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(HaveLen(res.Chunks))
		for _, h := range hits {
			Expect(h.Payload.DocumentID).To(Equal(res.DocumentID.String()))
			Expect(h.Payload.DocumentName).To(Equal("greek.pdf"))
			Expect(h.Payload.DocType).To(Equal("alphabet"))
		}

		events := publisher.Events()
		Expect(events).To(HaveLen(1))
		Expect(events[0].EventType).To(Equal(eventstream.EventTypeDocumentIngested))
		Expect(events[0].Collection).To(Equal("manuals"))
		Expect(events[0].DocumentID).To(Equal(res.DocumentID.String()))
		Expect(events[0].Chunks).To(Equal(res.Chunks))
	})

	It("writes nothing when embedding fails", func() {
		embedder.FailAll = true

		_, err := newUploader(threePages).Upload(ctx, ingest.UploadRequest{Collection: "manuals", Name: "x.pdf"})
		Expect(errors.Is(err, embeddings.ErrEmbedding)).To(BeTrue())
		Expect(driver.Count("manuals")).To(Equal(0))
		Expect(publisher.Events()).To(BeEmpty())
	})

	It("passes ErrNoContent through", func() {
		_, err := newUploader([]string{" "}).Upload(ctx, ingest.UploadRequest{Collection: "manuals", Name: "blank.pdf"})
		Expect(errors.Is(err, ingest.ErrNoContent)).To(BeTrue())
	})

	It("surfaces unknown collections", func() {
		_, err := newUploader(threePages).Upload(ctx, ingest.UploadRequest{Collection: "missing", Name: "x.pdf"})
		Expect(errors.Is(err, vector.ErrCollectionNotFound)).To(BeTrue())
	})

	It("does not fail the upload when publishing fails", func() {
		publisher.Err = errors.New("broker down")

		res, err := newUploader(threePages).Upload(ctx, ingest.UploadRequest{Collection: "manuals", Name: "x.pdf"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Chunks).To(BeNumerically(">", 0))
	})
})
