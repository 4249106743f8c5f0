package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/ingest"
)

type recordingUploader struct {
	mu       sync.Mutex
	requests []ingest.UploadRequest
	started  chan struct{}
	release  chan struct{}
	err      error
}

func (r *recordingUploader) Upload(_ context.Context, req ingest.UploadRequest) (*ingest.UploadResult, error) {
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return &ingest.UploadResult{Chunks: 1}, nil
}

func (r *recordingUploader) Requests() []ingest.UploadRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ingest.UploadRequest(nil), r.requests...)
}

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	return path
}

var _ = Describe("Pool", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("requires an uploader", func() {
		_, err := ingest.NewPool(&ingest.PoolConfig{})
		Expect(err).To(HaveOccurred())
	})

	It("refuses jobs after close", func() {
		uploader := &recordingUploader{}
		pool, err := ingest.NewPool(&ingest.PoolConfig{Uploader: uploader})
		Expect(err).NotTo(HaveOccurred())
		pool.Close()

		path := writeFile(dir, "late.pdf", "L")
		Expect(pool.Enqueue(ingest.Job{Collection: "docs", Path: path})).To(BeFalse())
		Expect(pool.Close).NotTo(Panic())
		Expect(uploader.Requests()).To(BeEmpty())
	})

	It("uploads queued files and drains on close", func() {
		uploader := &recordingUploader{}
		pool, err := ingest.NewPool(&ingest.PoolConfig{Uploader: uploader})
		Expect(err).NotTo(HaveOccurred())

		a := writeFile(dir, "a.pdf", "A")
		b := writeFile(dir, "b.pdf", "B")
		Expect(pool.Enqueue(ingest.Job{Collection: "docs", Path: a, DocType: "memo"})).To(BeTrue())
		Expect(pool.Enqueue(ingest.Job{Collection: "docs", Path: b, Name: "renamed.pdf"})).To(BeTrue())
		pool.Close()

		reqs := uploader.Requests()
		Expect(reqs).To(HaveLen(2))
		Expect(reqs).To(ContainElement(ingest.UploadRequest{Collection: "docs", Name: "a.pdf", DocType: "memo", Data: []byte("A")}))
		Expect(reqs).To(ContainElement(ingest.UploadRequest{Collection: "docs", Name: "renamed.pdf", Data: []byte("B")}))
	})

	It("drops jobs when the queue is full", func() {
		uploader := &recordingUploader{
			started: make(chan struct{}, 3),
			release: make(chan struct{}),
		}
		pool, err := ingest.NewPool(&ingest.PoolConfig{Uploader: uploader, NumWorkers: 1, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())

		path := writeFile(dir, "a.pdf", "A")
		Expect(pool.Enqueue(ingest.Job{Path: path})).To(BeTrue())
		Eventually(uploader.started).Should(Receive())

		Expect(pool.Enqueue(ingest.Job{Path: path})).To(BeTrue())
		Expect(pool.Enqueue(ingest.Job{Path: path})).To(BeFalse())

		close(uploader.release)
		pool.Close()
		Expect(uploader.Requests()).To(HaveLen(2))
	})

	It("reports each outcome, including failures", func() {
		var (
			mu       sync.Mutex
			outcomes []error
		)
		uploader := &recordingUploader{err: errors.New("vector store down")}
		pool, err := ingest.NewPool(&ingest.PoolConfig{
			Uploader: uploader,
			OnDone: func(_ ingest.Job, _ *ingest.UploadResult, err error) {
				mu.Lock()
				defer mu.Unlock()
				outcomes = append(outcomes, err)
			},
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(pool.Enqueue(ingest.Job{Path: writeFile(dir, "a.pdf", "A")})).To(BeTrue())
		Expect(pool.Enqueue(ingest.Job{Path: filepath.Join(dir, "missing.pdf")})).To(BeTrue())
		pool.Close()

		Expect(outcomes).To(HaveLen(2))
		Expect(outcomes).To(HaveEach(HaveOccurred()))
		Expect(uploader.Requests()).To(HaveLen(1))
	})
})
