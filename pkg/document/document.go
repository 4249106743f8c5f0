// Package document holds the records that flow through ingestion and
// retrieval: chunks produced from a document, the points stored in a vector
// collection, and the results handed back to callers.
package document

import "github.com/google/uuid"

// Payload keys as stored alongside each vector.
const (
	PayloadText         = "text"
	PayloadDocumentID   = "document_id"
	PayloadDocumentName = "document_name"
	PayloadDocType      = "doc_type"
)

// Chunk is a bounded slice of extracted document text and its embedding.
// All chunks produced by one ingestion share a DocumentID.
type Chunk struct {
	DocumentID uuid.UUID
	Text       string
	Embedding  []float32
}

// Payload is the metadata stored with every point.
type Payload struct {
	Text         string `json:"text"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	DocType      string `json:"doc_type"`
}

// Point is a single stored chunk in a vector collection.
type Point struct {
	ID      uuid.UUID
	Vector  []float32
	Payload Payload
}

// Hit is a candidate returned by a vector search or re-ranking pass.
type Hit struct {
	Payload Payload

	// Score is the similarity (or relevance, after re-ranking) score.
	// Higher is more relevant.
	Score float32
}

// SearchResult is what callers see for a retrieved chunk. It deliberately
// omits the chunk text.
type SearchResult struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	DocType      string  `json:"doc_type"`
	Score        float32 `json:"score"`
}

// ToMap renders the payload using the stored key names.
func (p Payload) ToMap() map[string]any {
	return map[string]any{
		PayloadText:         p.Text,
		PayloadDocumentID:   p.DocumentID,
		PayloadDocumentName: p.DocumentName,
		PayloadDocType:      p.DocType,
	}
}

// PayloadFromMap reads a payload back from a generic metadata map. Missing
// or non-string values are left empty.
func PayloadFromMap(m map[string]any) Payload {
	str := func(key string) string {
		if v, ok := m[key].(string); ok {
			return v
		}
		return ""
	}

	return Payload{
		Text:         str(PayloadText),
		DocumentID:   str(PayloadDocumentID),
		DocumentName: str(PayloadDocumentName),
		DocType:      str(PayloadDocType),
	}
}

// Result strips the chunk text from a hit.
func (h Hit) Result() SearchResult {
	return SearchResult{
		DocumentID:   h.Payload.DocumentID,
		DocumentName: h.Payload.DocumentName,
		DocType:      h.Payload.DocType,
		Score:        h.Score,
	}
}

// Results strips the chunk text from every hit, preserving order.
func Results(hits []Hit) []SearchResult {
	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = h.Result()
	}
	return out
}
