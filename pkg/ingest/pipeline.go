// Package ingest turns documents into embedded chunks and stores them in a
// vector collection, either synchronously or through an asynchronous worker
// pool fed by a directory watcher.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/embeddings"
	"github.com/papercomputeco/docrag/pkg/extract"
	"github.com/papercomputeco/docrag/pkg/logger"
)

// Extractor produces the text of a document.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*extract.Result, error)
}

// Splitter divides text into overlapping chunks.
type Splitter interface {
	Split(text string) []string
}

// Result is the outcome of Ingest.
type Result struct {
	DocumentID uuid.UUID
	Chunks     []document.Chunk
	Count      int
	Source     extract.Source
}

// Pipeline runs extraction, chunking and embedding for one document.
type Pipeline struct {
	extractor Extractor
	splitter  Splitter
	embedder  embeddings.Embedder
	logger    *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(extractor Extractor, splitter Splitter, embedder embeddings.Embedder, l *slog.Logger) *Pipeline {
	if l == nil {
		l = logger.Nop()
	}
	return &Pipeline{
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		logger:    l,
	}
}

// Ingest extracts, splits and embeds data. Every chunk shares one fresh
// document id. Chunks are embedded in their passage form but keep the plain
// text. ErrNoContent is returned when extraction yields only whitespace; any
// embedding failure aborts the whole call.
func (p *Pipeline) Ingest(ctx context.Context, data []byte) (*Result, error) {
	extracted, err := p.extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	if extracted.Empty() {
		return nil, ErrNoContent
	}

	texts := p.splitter.Split(extracted.Text)
	if len(texts) == 0 {
		return nil, ErrNoContent
	}

	docID := uuid.New()
	chunks := make([]document.Chunk, 0, len(texts))
	for i, text := range texts {
		vec, err := p.embedder.Embed(ctx, embeddings.Passage(text))
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d of %d: %w", embeddings.ErrEmbedding, i+1, len(texts), err)
		}

		chunks = append(chunks, document.Chunk{
			DocumentID: docID,
			Text:       text,
			Embedding:  vec,
		})
	}

	p.logger.Debug("document ingested",
		"document_id", docID.String(),
		"source", string(extracted.Source),
		"chunks", len(chunks),
	)

	return &Result{
		DocumentID: docID,
		Chunks:     chunks,
		Count:      len(chunks),
		Source:     extracted.Source,
	}, nil
}
