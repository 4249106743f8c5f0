package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/eventstream"
	"github.com/papercomputeco/docrag/pkg/eventstream/nop"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/vector"
)

// UploadRequest names a document and the collection it goes into.
type UploadRequest struct {
	Collection string
	Name       string
	DocType    string
	Data       []byte
}

// UploadResult reports what was stored.
type UploadResult struct {
	DocumentID uuid.UUID
	Chunks     int
	Source     string
}

// UploaderConfig configures an Uploader.
type UploaderConfig struct {
	Pipeline *Pipeline
	Driver   vector.Driver

	// Publisher receives a DocumentIngested event per upload. Defaults to a
	// no-op publisher.
	Publisher eventstream.Publisher

	Logger *slog.Logger
}

// Uploader ingests a document and persists its chunks as one batch.
type Uploader struct {
	pipeline  *Pipeline
	driver    vector.Driver
	publisher eventstream.Publisher
	logger    *slog.Logger
}

// NewUploader creates an Uploader.
func NewUploader(c UploaderConfig) *Uploader {
	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}
	pub := c.Publisher
	if pub == nil {
		pub = nop.NewPublisher()
	}
	return &Uploader{
		pipeline:  c.Pipeline,
		driver:    c.Driver,
		publisher: pub,
		logger:    l,
	}
}

// Upload runs the pipeline and upserts one point per chunk. Nothing is
// written unless every chunk was embedded. Event publish failures are logged
// and do not fail the upload.
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	res, err := u.pipeline.Ingest(ctx, req.Data)
	if err != nil {
		return nil, err
	}

	docID := res.DocumentID.String()
	points := make([]document.Point, len(res.Chunks))
	for i, c := range res.Chunks {
		points[i] = document.Point{
			ID:     uuid.New(),
			Vector: c.Embedding,
			Payload: document.Payload{
				Text:         c.Text,
				DocumentID:   docID,
				DocumentName: req.Name,
				DocType:      req.DocType,
			},
		}
	}

	if err := u.driver.Upsert(ctx, req.Collection, points); err != nil {
		return nil, fmt.Errorf("storing %d chunks of %s: %w", len(points), req.Name, err)
	}

	u.logger.Info("document stored",
		"collection", req.Collection,
		"document_name", req.Name,
		"document_id", docID,
		"chunks", len(points),
	)

	event := eventstream.NewDocumentIngestedEvent(req.Collection, docID, req.Name, req.DocType, len(points))
	if err := u.publisher.PublishDocumentIngested(ctx, event); err != nil {
		u.logger.Warn("failed to publish ingestion event",
			"document_id", docID,
			logger.Err(err),
		)
	}

	return &UploadResult{
		DocumentID: res.DocumentID,
		Chunks:     len(points),
		Source:     string(res.Source),
	}, nil
}
