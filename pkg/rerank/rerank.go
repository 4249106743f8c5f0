// Package rerank re-scores retrieved candidates against the query with a
// pairwise relevance model and keeps the best top-K.
package rerank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/logger"
)

// DefaultTopK is the number of candidates kept when the caller asks for none.
const DefaultTopK = 5

// ErrRerank is returned when no candidate could be scored.
var ErrRerank = errors.New("rerank failed")

// Scorer scores each text's relevance to query. It must return exactly one
// score per text, in input order. Higher is more relevant.
type Scorer interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Reranker orders hits by Scorer relevance. A nil Scorer keeps the vector
// order and scores and only truncates.
type Reranker struct {
	scorer Scorer
	logger *slog.Logger
}

// New creates a Reranker.
func New(scorer Scorer, l *slog.Logger) *Reranker {
	if l == nil {
		l = logger.Nop()
	}
	return &Reranker{scorer: scorer, logger: l}
}

// Rerank returns at most min(topK, len(hits)) hits sorted by descending
// relevance, ties keeping their input order. Returned hits carry the rerank
// score. When the batch call fails each pair is scored on its own; pairs that
// still fail sink to the bottom, and ErrRerank is returned only if every pair
// fails.
func (r *Reranker) Rerank(ctx context.Context, query string, hits []document.Hit, topK int) ([]document.Hit, error) {
	if len(hits) == 0 {
		return []document.Hit{}, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	k := min(topK, len(hits))

	if r.scorer == nil {
		out := make([]document.Hit, k)
		copy(out, hits[:k])
		return out, nil
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Payload.Text
	}

	scores, err := r.scorer.Score(ctx, query, texts)
	if err == nil && len(scores) != len(texts) {
		err = fmt.Errorf("scorer returned %d scores for %d texts", len(scores), len(texts))
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		r.logger.Warn("batch rerank failed, scoring pairs individually", logger.Err(err))

		scores, err = r.scorePairs(ctx, query, texts)
		if err != nil {
			return nil, err
		}
	}

	scored := make([]document.Hit, len(hits))
	for i, h := range hits {
		scored[i] = document.Hit{Payload: h.Payload, Score: float32(scores[i])}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored[:k], nil
}

func (r *Reranker) scorePairs(ctx context.Context, query string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	failed := 0
	var lastErr error

	for i, text := range texts {
		s, err := r.scorer.Score(ctx, query, []string{text})
		if err == nil && len(s) != 1 {
			err = fmt.Errorf("scorer returned %d scores for 1 text", len(s))
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.logger.Warn("rerank pair failed", "candidate", i, logger.Err(err))
			scores[i] = math.Inf(-1)
			failed++
			lastErr = err
			continue
		}
		scores[i] = s[0]
	}

	if failed == len(texts) {
		return nil, fmt.Errorf("%w: all %d candidates failed: %w", ErrRerank, failed, lastErr)
	}

	return scores, nil
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, query string, texts []string) ([]float64, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	return f(ctx, query, texts)
}
