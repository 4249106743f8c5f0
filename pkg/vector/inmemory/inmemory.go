// Package inmemory provides a process-local vector driver with brute-force
// cosine search.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/vector"
)

type collection struct {
	dimensions uint
	points     []document.Point
	index      map[string]int
}

// Driver implements vector.Driver in memory. Points keep insertion order so
// equal scores are returned in the order they were stored.
type Driver struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		collections: make(map[string]*collection),
	}
}

func (d *Driver) CreateCollection(_ context.Context, name string, dimensions uint) error {
	if name == "" {
		return fmt.Errorf("%w: collection name is required", vector.ErrVectorStore)
	}
	if dimensions == 0 {
		return fmt.Errorf("%w: dimensions must be positive", vector.ErrVectorStore)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.collections[name]; ok {
		return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)
	}

	d.collections[name] = &collection{
		dimensions: dimensions,
		index:      make(map[string]int),
	}
	return nil
}

func (d *Driver) Upsert(_ context.Context, name string, points []document.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}

	for _, p := range points {
		if uint(len(p.Vector)) != c.dimensions {
			return fmt.Errorf("%w: got %d, collection %s has %d", vector.ErrDimensionMismatch, len(p.Vector), name, c.dimensions)
		}
	}

	for _, p := range points {
		key := p.ID.String()
		if i, ok := c.index[key]; ok {
			c.points[i] = p
			continue
		}
		c.index[key] = len(c.points)
		c.points = append(c.points, p)
	}

	return nil
}

func (d *Driver) Search(_ context.Context, name string, vec []float32, params vector.SearchParams) ([]document.Hit, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	if uint(len(vec)) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, collection %s has %d", vector.ErrDimensionMismatch, len(vec), name, c.dimensions)
	}

	hits := make([]document.Hit, 0)
	for _, p := range c.points {
		score := vector.Cosine(vec, p.Vector)
		if score < params.ScoreThreshold {
			continue
		}
		hits = append(hits, document.Hit{Payload: p.Payload, Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if limit := params.EffectiveLimit(); len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

// Count returns the number of points stored in a collection.
func (d *Driver) Count(name string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if c, ok := d.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

func (d *Driver) Close() error {
	return nil
}

var _ vector.Driver = (*Driver)(nil)
