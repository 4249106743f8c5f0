// Package query answers user messages from a document collection: the
// message is reformulated against the session history, embedded, searched,
// re-ranked and handed to the model together with the retrieved chunks.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/docrag/pkg/conversation"
	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/embeddings"
	"github.com/papercomputeco/docrag/pkg/llm"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/reformulate"
	"github.com/papercomputeco/docrag/pkg/vector"
)

const (
	// NoResultsContext replaces the context when nothing was retrieved.
	NoResultsContext = "No results found"

	// DefaultFallbackAnswer is returned without calling the model when
	// nothing was retrieved.
	DefaultFallbackAnswer = "I don't have enough information to answer this question accurately"

	DefaultTopK         = 5
	DefaultMaxTokens    = 500
	DefaultHistoryTurns = 5
)

// Reformulator rewrites a query into a standalone question.
type Reformulator interface {
	Reformulate(ctx context.Context, query string, recent []llm.Message) (string, error)
}

// Reranker reorders and truncates candidates.
type Reranker interface {
	Rerank(ctx context.Context, query string, hits []document.Hit, topK int) ([]document.Hit, error)
}

// Config tunes retrieval and generation.
type Config struct {
	Search       vector.SearchParams
	TopK         int
	MaxTokens    int
	HistoryTurns int

	// FallbackOnEmpty answers with FallbackAnswer, skipping the model, when
	// no candidate passes the score threshold.
	FallbackOnEmpty bool
	FallbackAnswer  string
}

// DefaultConfig returns the default retrieval and generation settings.
func DefaultConfig() Config {
	return Config{
		Search:          vector.DefaultSearchParams(),
		TopK:            DefaultTopK,
		MaxTokens:       DefaultMaxTokens,
		HistoryTurns:    DefaultHistoryTurns,
		FallbackOnEmpty: true,
		FallbackAnswer:  DefaultFallbackAnswer,
	}
}

// PipelineConfig wires the pipeline's collaborators. Reformulator and
// Reranker are optional.
type PipelineConfig struct {
	Reformulator Reformulator
	Embedder     embeddings.Embedder
	Driver       vector.Driver
	Reranker     Reranker
	Completer    llm.Completer
	Config       Config
	Logger       *slog.Logger
}

// Pipeline answers messages.
type Pipeline struct {
	reformulator Reformulator
	embedder     embeddings.Embedder
	driver       vector.Driver
	reranker     Reranker
	completer    llm.Completer
	cfg          Config
	logger       *slog.Logger
}

// Answer is the outcome of one exchange.
type Answer struct {
	AIResponse    string                  `json:"ai_response"`
	SearchResults []document.SearchResult `json:"search_results"`

	// Query is the reformulated query that was searched.
	Query string `json:"query"`

	// Context is the chunk text the model was given.
	Context string `json:"-"`
}

// NewPipeline creates a Pipeline, filling zero config values with defaults.
func NewPipeline(c PipelineConfig) *Pipeline {
	cfg := c.Config
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = def.HistoryTurns
	}
	if cfg.FallbackAnswer == "" {
		cfg.FallbackAnswer = def.FallbackAnswer
	}

	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	return &Pipeline{
		reformulator: c.Reformulator,
		embedder:     c.Embedder,
		driver:       c.Driver,
		reranker:     c.Reranker,
		completer:    c.Completer,
		cfg:          cfg,
		logger:       l,
	}
}

// Answer runs one exchange on session. The session is held for the whole
// exchange. On a generation failure the user turn stays recorded and no
// assistant turn is added.
func (p *Pipeline) Answer(ctx context.Context, session *conversation.Manager, collection, message string) (*Answer, error) {
	session.Lock()
	defer session.Unlock()

	q := p.reformulate(ctx, session, message)

	hits, err := p.Retrieve(ctx, collection, q, 0)
	if err != nil {
		return nil, err
	}

	retrieved := BuildContext(hits)
	session.AppendUserTurn(message, retrieved)

	var response string
	if len(hits) == 0 && p.cfg.FallbackOnEmpty {
		p.logger.Debug("no candidates qualified, using fallback answer", "collection", collection)
		response = p.cfg.FallbackAnswer
	} else {
		response, err = p.completer.Complete(ctx, session.Messages(), llm.CompleteOptions{MaxTokens: p.cfg.MaxTokens})
		if err != nil {
			return nil, stageErr(StageGenerate, ErrGeneration, err)
		}
	}

	session.AppendAssistantTurn(response)

	return &Answer{
		AIResponse:    response,
		SearchResults: document.Results(hits),
		Query:         q,
		Context:       retrieved,
	}, nil
}

func (p *Pipeline) reformulate(ctx context.Context, session *conversation.Manager, message string) string {
	if p.reformulator == nil {
		return message
	}

	q, err := p.reformulator.Reformulate(ctx, message, session.History(p.cfg.HistoryTurns))
	if err != nil {
		if !errors.Is(err, reformulate.ErrReformulation) {
			err = fmt.Errorf("%w: %w", reformulate.ErrReformulation, err)
		}
		p.logger.Warn("query reformulation failed, using the raw message", logger.Err(err))
		return message
	}
	return q
}

// Retrieve embeds q, searches collection and re-ranks the candidates down to
// topK, or to the configured top-K when topK is not positive. The result is
// empty, never nil, when nothing passes the score threshold.
func (p *Pipeline) Retrieve(ctx context.Context, collection, q string, topK int) ([]document.Hit, error) {
	if topK <= 0 {
		topK = p.cfg.TopK
	}

	vec, err := p.embedder.Embed(ctx, embeddings.Query(q))
	if err != nil {
		return nil, stageErr(StageEmbed, ErrEmbedding, err)
	}

	hits, err := p.driver.Search(ctx, collection, vec, p.cfg.Search)
	if err != nil {
		return nil, stageErr(StageSearch, ErrVectorStore, err)
	}

	p.logger.Debug("vector search",
		"collection", collection,
		"candidates", len(hits),
	)

	if len(hits) == 0 {
		return []document.Hit{}, nil
	}

	if p.reranker == nil {
		return hits[:min(topK, len(hits))], nil
	}

	ranked, err := p.reranker.Rerank(ctx, q, hits, topK)
	if err != nil {
		return nil, stageErr(StageRerank, ErrRerank, err)
	}
	return ranked, nil
}

// BuildContext numbers each hit's trimmed text as "Chunk i:". An empty input
// yields NoResultsContext.
func BuildContext(hits []document.Hit) string {
	if len(hits) == 0 {
		return NoResultsContext
	}

	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("Chunk %d:\n%s", i+1, strings.TrimSpace(h.Payload.Text))
	}
	return strings.Join(parts, "\n")
}
