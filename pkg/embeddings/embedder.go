// Package embeddings maps text to fixed-dimension vectors.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmbedding is returned when embedding generation fails.
var ErrEmbedding = errors.New("embedding failed")

const (
	// PassagePrefix marks text embedded for storage.
	PassagePrefix = "passage: "

	// QueryPrefix marks text embedded for retrieval.
	QueryPrefix = "query: "
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// Passage returns the storage form of text expected by asymmetric
// query/passage embedding models.
func Passage(text string) string {
	return PassagePrefix + text
}

// Query returns the retrieval form of text.
func Query(text string) string {
	return QueryPrefix + text
}
