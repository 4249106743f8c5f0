// Package chroma provides a Chroma vector database driver over its REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/vector"
)

const (
	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

	defaultMaxRetries    = 5
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 5 * time.Second
)

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// MaxRetries bounds connection attempts while Chroma starts up.
	MaxRetries int

	// RetryDelay is the first backoff delay, doubled per attempt up to
	// MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Driver implements vector.Driver using Chroma's REST API. Collections are
// created with cosine space so distances convert to similarity as 1 - d.
type Driver struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu  sync.RWMutex
	ids map[string]string
}

// NewDriver creates a Chroma driver, waiting for the server's heartbeat.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = defaultMaxRetryDelay
	}

	d := &Driver{
		baseURL: strings.TrimSuffix(c.URL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
		ids:    make(map[string]string),
	}

	delay := c.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		lastErr = d.heartbeat(context.Background())
		if lastErr == nil {
			logger.Info("connected to chroma", "url", c.URL)
			return d, nil
		}

		logger.Warn("chroma not ready",
			"attempt", attempt,
			"max_retries", c.MaxRetries,
			"error", lastErr,
		)

		if attempt < c.MaxRetries {
			time.Sleep(delay)
			delay = min(delay*2, c.MaxRetryDelay)
		}
	}

	return nil, fmt.Errorf("%w: connecting to chroma after %d attempts: %w", vector.ErrVectorStore, c.MaxRetries, lastErr)
}

func (d *Driver) heartbeat(ctx context.Context) error {
	resp, err := d.do(ctx, http.MethodGet, "/api/v2/heartbeat", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("heartbeat returned status %d", resp.StatusCode)
	}
	return nil
}

// CreateCollection creates a cosine-space collection.
func (d *Driver) CreateCollection(ctx context.Context, name string, _ uint) error {
	if _, err := d.collectionID(ctx, name); err == nil {
		return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)
	}

	resp, err := d.do(ctx, http.MethodPost, collectionsPath, chromaCreateRequest{
		Name:     name,
		Metadata: map[string]any{"hnsw:space": "cosine"},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", vector.ErrVectorStore, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError("creating collection", resp)
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return fmt.Errorf("%w: decoding create response: %w", vector.ErrVectorStore, err)
	}

	d.mu.Lock()
	d.ids[name] = collection.ID
	d.mu.Unlock()

	d.logger.Info("created chroma collection",
		"collection", name,
		"collection_id", collection.ID,
	)

	return nil
}

// Upsert stores points with their text as the Chroma document and the rest
// of the payload as metadata.
func (d *Driver) Upsert(ctx context.Context, collection string, points []document.Point) error {
	if len(points) == 0 {
		return nil
	}

	id, err := d.collectionID(ctx, collection)
	if err != nil {
		return err
	}

	req := chromaUpsertRequest{
		IDs:        make([]string, len(points)),
		Embeddings: make([][]float32, len(points)),
		Metadatas:  make([]map[string]any, len(points)),
		Documents:  make([]string, len(points)),
	}
	for i, p := range points {
		meta := p.Payload.ToMap()
		delete(meta, document.PayloadText)

		req.IDs[i] = p.ID.String()
		req.Embeddings[i] = p.Vector
		req.Metadatas[i] = meta
		req.Documents[i] = p.Payload.Text
	}

	resp, err := d.do(ctx, http.MethodPost, collectionsPath+"/"+id+"/upsert", req)
	if err != nil {
		return fmt.Errorf("%w: %w", vector.ErrVectorStore, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError("upserting points", resp)
	}

	d.logger.Debug("upserted points to chroma",
		"collection", collection,
		"count", len(points),
	)

	return nil
}

// Search queries the nearest points and drops those below the threshold.
func (d *Driver) Search(ctx context.Context, collection string, vec []float32, params vector.SearchParams) ([]document.Hit, error) {
	id, err := d.collectionID(ctx, collection)
	if err != nil {
		return nil, err
	}

	resp, err := d.do(ctx, http.MethodPost, collectionsPath+"/"+id+"/query", chromaQueryRequest{
		QueryEmbeddings: [][]float32{vec},
		NResults:        params.EffectiveLimit(),
		Include:         []string{"metadatas", "documents", "distances"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrVectorStore, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("querying", resp)
	}

	var queryResp chromaQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("%w: decoding query response: %w", vector.ErrVectorStore, err)
	}

	hits := make([]document.Hit, 0)
	if len(queryResp.IDs) == 0 {
		return hits, nil
	}

	for i := range queryResp.IDs[0] {
		if i >= len(queryResp.Distances[0]) {
			break
		}

		score := 1 - queryResp.Distances[0][i]
		if score < params.ScoreThreshold {
			continue
		}

		var meta map[string]any
		if len(queryResp.Metadatas) > 0 && i < len(queryResp.Metadatas[0]) {
			meta = queryResp.Metadatas[0][i]
		}
		payload := document.PayloadFromMap(meta)
		if len(queryResp.Documents) > 0 && i < len(queryResp.Documents[0]) {
			payload.Text = queryResp.Documents[0][i]
		}

		hits = append(hits, document.Hit{Payload: payload, Score: score})
	}

	d.logger.Debug("queried chroma",
		"collection", collection,
		"results", len(hits),
	)

	return hits, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return nil
}

// collectionID resolves a collection name to its Chroma id, caching hits.
func (d *Driver) collectionID(ctx context.Context, name string) (string, error) {
	d.mu.RLock()
	id, ok := d.ids[name]
	d.mu.RUnlock()
	if ok {
		return id, nil
	}

	resp, err := d.do(ctx, http.MethodGet, collectionsPath+"/"+url.PathEscape(name), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", vector.ErrVectorStore, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	default:
		return "", statusError("getting collection", resp)
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("%w: decoding collection response: %w", vector.ErrVectorStore, err)
	}

	d.mu.Lock()
	d.ids[name] = collection.ID
	d.mu.Unlock()

	return collection.ID, nil
}

func (d *Driver) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return d.httpClient.Do(req)
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%w: %s: status %d: %s", vector.ErrVectorStore, op, resp.StatusCode, string(body))
}

var _ vector.Driver = (*Driver)(nil)
