package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/conversation"
	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/ingest"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/query"
	testutils "github.com/papercomputeco/docrag/pkg/utils/test"
	"github.com/papercomputeco/docrag/pkg/vector/inmemory"
)

type fakeUploader struct {
	requests []ingest.UploadRequest
	err      error
}

func (f *fakeUploader) Upload(_ context.Context, req ingest.UploadRequest) (*ingest.UploadResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &ingest.UploadResult{DocumentID: uuid.New(), Chunks: 3}, nil
}

func jsonRequest(method, target string, body any) *http.Request {
	b, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(target, filename string, data []byte, fields map[string]string) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		Expect(w.WriteField(k, v)).To(Succeed())
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(w.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](resp *http.Response) T {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())

	var out T
	Expect(json.Unmarshal(body, &out)).To(Succeed(), string(body))
	return out
}

var _ = Describe("Server", func() {
	var (
		driver    *inmemory.Driver
		uploader  *fakeUploader
		completer *testutils.MockCompleter
		sessions  *conversation.Store
		server    *Server
	)

	BeforeEach(func() {
		driver = inmemory.NewDriver()
		uploader = &fakeUploader{}
		completer = testutils.NewMockCompleter("Five days.")
		sessions = conversation.NewStore(conversation.DefaultConfig())

		answerer := query.NewPipeline(query.PipelineConfig{
			Embedder:  testutils.NewMockEmbedder(),
			Driver:    driver,
			Completer: completer,
			Config:    query.DefaultConfig(),
		})

		var err error
		server, err = NewServer(Config{ListenAddr: ":0", VectorSize: 3}, Deps{
			Driver:   driver,
			Uploader: uploader,
			Answerer: answerer,
			Sessions: sessions,
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("requires a vector driver", func() {
			_, err := NewServer(Config{}, Deps{Uploader: uploader}, nil)
			Expect(err).To(MatchError(ContainSubstring("vector driver is required")))
		})
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decode[string](resp)).To(Equal("pong"))
		})
	})

	Describe("POST /v1/collections", func() {
		It("creates a collection with the default vector size", func() {
			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/collections", CreateCollectionRequest{Name: "faq"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(decode[MessageResponse](resp).Message).To(Equal("Collection faq created successfully"))
		})

		It("reports a conflict for an existing collection", func() {
			Expect(driver.CreateCollection(context.Background(), "faq", 3)).To(Succeed())

			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/collections", CreateCollectionRequest{Name: "faq"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("rejects a missing name", func() {
			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/collections", CreateCollectionRequest{}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decode[ErrorResponse](resp).Error).To(Equal("name is required"))
		})
	})

	Describe("POST /v1/collections/:collection/documents", func() {
		It("uploads the file under its filename", func() {
			resp, err := server.app.Test(uploadRequest("/v1/collections/faq/documents", "refunds.pdf", []byte("%PDF"), map[string]string{"doc_type": "policy"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			out := decode[UploadResponse](resp)
			Expect(out.Message).To(Equal("Document refunds.pdf uploaded successfully"))
			Expect(out.Chunks).To(Equal(3))

			Expect(uploader.requests).To(HaveLen(1))
			Expect(uploader.requests[0].Collection).To(Equal("faq"))
			Expect(uploader.requests[0].DocType).To(Equal("policy"))
			Expect(uploader.requests[0].Data).To(Equal([]byte("%PDF")))
		})

		It("prefers an explicit name", func() {
			resp, err := server.app.Test(uploadRequest("/v1/collections/faq/documents", "upload.pdf", []byte("%PDF"), map[string]string{"name": "Refund policy"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(uploader.requests[0].Name).To(Equal("Refund policy"))
		})

		It("requires a file", func() {
			resp, err := server.app.Test(uploadRequest("/v1/collections/faq/documents", "", nil, map[string]string{"name": "x"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("maps a document without text to 422", func() {
			uploader.err = ingest.ErrNoContent

			resp, err := server.app.Test(uploadRequest("/v1/collections/faq/documents", "blank.pdf", []byte("%PDF"), nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
			Expect(decode[ErrorResponse](resp).Error).To(Equal(errProcessDocument))
		})
	})

	Describe("POST /v1/collections/:collection/chat", func() {
		BeforeEach(func() {
			ctx := context.Background()
			Expect(driver.CreateCollection(ctx, "faq", 3)).To(Succeed())
			Expect(driver.Upsert(ctx, "faq", []document.Point{{
				ID:      uuid.New(),
				Vector:  []float32{0.1, 0.2, 0.3},
				Payload: document.Payload{Text: "refunds take five days", DocumentID: "d1", DocumentName: "refunds.pdf"},
			}})).To(Succeed())
		})

		It("answers and records the exchange in the session", func() {
			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/collections/faq/chat", ChatRequest{SessionID: "s1", Message: "refunds?"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			out := decode[ChatResponse](resp)
			Expect(out.AIResponse).To(Equal("Five days."))
			Expect(out.SearchResults).To(HaveLen(1))
			Expect(out.SearchResults[0].DocumentName).To(Equal("refunds.pdf"))

			m, ok := sessions.Lookup("s1")
			Expect(ok).To(BeTrue())
			Expect(m.Len()).To(Equal(3))
		})

		It("maps an unknown collection to 404", func() {
			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/collections/missing/chat", ChatRequest{Message: "refunds?"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("maps a generation failure to 502", func() {
			completer.Err = fmt.Errorf("upstream down")

			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/collections/faq/chat", ChatRequest{Message: "refunds?"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		})

		It("rejects an empty message", func() {
			resp, err := server.app.Test(jsonRequest(http.MethodPost, "/v1/collections/faq/chat", ChatRequest{Message: "  "}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("sessions", func() {
		It("returns 404 for an unknown session", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/sessions/nope", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("lists and resets a session's turns", func() {
			sessions.Get("s1").AppendUserTurn("hi", "ctx")

			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/v1/sessions/s1", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(decode[SessionResponse](resp).Turns).To(HaveLen(2))

			resp, err = server.app.Test(httptest.NewRequest(http.MethodDelete, "/v1/sessions/s1", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(sessions.Get("s1").Len()).To(Equal(1))
		})
	})

	Describe("statusFor", func() {
		DescribeTable("maps errors to status codes",
			func(err error, status int) {
				Expect(statusFor(err)).To(Equal(status))
			},
			Entry("timeout", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), http.StatusGatewayTimeout),
			Entry("embedding", &query.StageError{Stage: query.StageEmbed, Err: query.ErrEmbedding}, http.StatusBadGateway),
			Entry("rerank", query.ErrRerank, http.StatusBadGateway),
			Entry("other", fmt.Errorf("boom"), http.StatusInternalServerError),
		)
	})
})
