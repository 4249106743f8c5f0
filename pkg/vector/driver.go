// Package vector provides interfaces and implementations for chunk vector storage
// and thresholded nearest-neighbor search.
package vector

import (
	"context"

	"github.com/papercomputeco/docrag/pkg/document"
)

const (
	// DefaultScoreThreshold excludes candidates less similar than this.
	DefaultScoreThreshold float32 = 0.25

	// DefaultLimit caps the number of candidates a search returns.
	DefaultLimit = 25
)

// SearchParams bounds a similarity search.
type SearchParams struct {
	// ScoreThreshold is the minimum cosine similarity a hit must reach.
	ScoreThreshold float32

	// Limit is the maximum number of hits. Zero means DefaultLimit.
	Limit int
}

// DefaultSearchParams returns the default threshold and limit.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		ScoreThreshold: DefaultScoreThreshold,
		Limit:          DefaultLimit,
	}
}

// Driver persists chunk vectors with their payload and answers cosine
// similarity queries.
type Driver interface {
	// CreateCollection creates a cosine-distance collection of the given
	// vector dimensions. Creating an existing collection returns
	// ErrCollectionExists.
	CreateCollection(ctx context.Context, name string, dimensions uint) error

	// Upsert stores points, replacing any with the same ID.
	Upsert(ctx context.Context, collection string, points []document.Point) error

	// Search returns hits in descending score order. Hits scoring below
	// params.ScoreThreshold are excluded; no qualifying hits is an empty
	// slice, not an error.
	Search(ctx context.Context, collection string, vector []float32, params SearchParams) ([]document.Hit, error)

	// Close releases any resources held by the driver.
	Close() error
}
