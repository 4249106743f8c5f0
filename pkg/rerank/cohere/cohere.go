// Package cohere scores query/passage pairs with Cohere's rerank API.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/docrag/pkg/rerank"
)

const (
	DefaultBaseURL = "https://api.cohere.ai"
	DefaultModel   = "rerank-english-v3.0"
)

// Config configures a Scorer.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// Scorer calls {BaseURL}/v1/rerank.
type Scorer struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

type rerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// New creates a Cohere scorer, filling defaults for empty fields.
func New(c Config) *Scorer {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return &Scorer{
		baseURL:    strings.TrimRight(c.BaseURL, "/"),
		model:      c.Model,
		apiKey:     c.APIKey,
		httpClient: &http.Client{Timeout: c.Timeout},
	}
}

// Score asks for every document back so each text gets a score.
func (s *Scorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	body, err := json.Marshal(rerankRequest{
		Model:     s.model,
		Query:     query,
		Documents: texts,
		TopN:      len(texts),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cohere returned status %d: %s", resp.StatusCode, string(b))
	}

	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(out.Results) != len(texts) {
		return nil, fmt.Errorf("cohere returned %d results for %d texts", len(out.Results), len(texts))
	}

	scores := make([]float64, len(texts))
	for _, r := range out.Results {
		if r.Index < 0 || r.Index >= len(texts) {
			return nil, fmt.Errorf("cohere returned invalid index %d", r.Index)
		}
		scores[r.Index] = r.RelevanceScore
	}
	return scores, nil
}

var _ rerank.Scorer = (*Scorer)(nil)
