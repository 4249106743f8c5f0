// Package rag assembles the ingestion and query pipelines from a resolved
// configuration. It is the composition root shared by the serve and watch
// commands.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/papercomputeco/docrag/pkg/chunker"
	"github.com/papercomputeco/docrag/pkg/config"
	"github.com/papercomputeco/docrag/pkg/conversation"
	"github.com/papercomputeco/docrag/pkg/credentials"
	"github.com/papercomputeco/docrag/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/docrag/pkg/embeddings/utils"
	"github.com/papercomputeco/docrag/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/docrag/pkg/eventstream/utils"
	"github.com/papercomputeco/docrag/pkg/extract"
	"github.com/papercomputeco/docrag/pkg/extract/pdfimages"
	"github.com/papercomputeco/docrag/pkg/extract/pdftext"
	"github.com/papercomputeco/docrag/pkg/extract/tesseract"
	"github.com/papercomputeco/docrag/pkg/extract/visionocr"
	"github.com/papercomputeco/docrag/pkg/ingest"
	"github.com/papercomputeco/docrag/pkg/llm/provider"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/query"
	"github.com/papercomputeco/docrag/pkg/reformulate"
	rerankutils "github.com/papercomputeco/docrag/pkg/rerank/utils"
	"github.com/papercomputeco/docrag/pkg/vector"
	vectorutils "github.com/papercomputeco/docrag/pkg/vector/utils"
)

// KeyResolver supplies provider API keys not set in the configuration.
// Satisfied by *credentials.Manager.
type KeyResolver interface {
	Resolve(provider, explicit string) (string, error)
}

// Options configures New.
type Options struct {
	Config *config.Config

	// Keys resolves API keys. When nil, keys come from the configuration
	// and the environment only.
	Keys KeyResolver

	Logger *slog.Logger
}

// RAG holds every long-lived component of a docrag process.
type RAG struct {
	Config    *config.Config
	Driver    vector.Driver
	Embedder  embeddings.Embedder
	Publisher eventstream.Publisher
	Ingest    *ingest.Pipeline
	Uploader  *ingest.Uploader
	Query     *query.Pipeline
	Sessions  *conversation.Store

	logger  *slog.Logger
	closers []func() error
}

// New builds every component named by o.Config. Components already built
// are closed when a later one fails.
func New(ctx context.Context, o Options) (_ *RAG, err error) {
	if o.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := o.Config

	l := o.Logger
	if l == nil {
		l = logger.Nop()
	}

	keys := o.Keys
	if keys == nil {
		keys = envKeys{}
	}

	r := &RAG{Config: cfg, logger: l}
	defer func() {
		if err != nil {
			_ = r.Close()
		}
	}()

	r.Driver, err = vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       cfg.VectorStore.Target,
		APIKey:       cfg.VectorStore.APIKey,
		UseTLS:       cfg.VectorStore.UseTLS,
		Logger:       l,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	r.closers = append(r.closers, r.Driver.Close)

	embedKey, err := keys.Resolve(cfg.Embedding.Provider, cfg.Embedding.APIKey)
	if err != nil {
		return nil, fmt.Errorf("resolving embedding key: %w", err)
	}
	r.Embedder, err = embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       embedKey,
		Dimensions:   cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	r.closers = append(r.closers, r.Embedder.Close)

	r.Publisher, err = eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      SplitList(cfg.Events.Brokers),
		Topic:        cfg.Events.Topic,
		Logger:       l,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	r.closers = append(r.closers, r.Publisher.Close)

	splitter, err := chunker.New(int(cfg.Chunking.Size), int(cfg.Chunking.Overlap), nil)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	extractor, err := NewExtractor(cfg, l)
	if err != nil {
		return nil, err
	}

	r.Ingest = ingest.NewPipeline(extractor, splitter, r.Embedder, l)
	r.Uploader = ingest.NewUploader(ingest.UploaderConfig{
		Pipeline:  r.Ingest,
		Driver:    r.Driver,
		Publisher: r.Publisher,
		Logger:    l,
	})

	llmKey, err := keys.Resolve(cfg.LLM.Provider, cfg.LLM.APIKey)
	if err != nil {
		return nil, fmt.Errorf("resolving llm key: %w", err)
	}
	completer, err := provider.New(provider.Config{
		Provider: cfg.LLM.Provider,
		BaseURL:  cfg.LLM.Target,
		Model:    cfg.LLM.Model,
		APIKey:   llmKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	rerankKey, err := keys.Resolve(cfg.Reranker.Provider, cfg.Reranker.APIKey)
	if err != nil {
		return nil, fmt.Errorf("resolving reranker key: %w", err)
	}
	reranker, err := rerankutils.NewReranker(&rerankutils.NewRerankerOpts{
		ProviderType: cfg.Reranker.Provider,
		TargetURL:    cfg.Reranker.Target,
		Model:        cfg.Reranker.Model,
		APIKey:       rerankKey,
		Logger:       l,
	})
	if err != nil {
		return nil, fmt.Errorf("creating reranker: %w", err)
	}

	convCfg, err := ConversationConfig(cfg)
	if err != nil {
		return nil, err
	}
	r.Sessions = conversation.NewStore(convCfg)

	r.Query = query.NewPipeline(query.PipelineConfig{
		Reformulator: reformulate.New(completer, l),
		Embedder:     r.Embedder,
		Driver:       r.Driver,
		Reranker:     reranker,
		Completer:    completer,
		Config:       QueryConfig(cfg),
		Logger:       l,
	})

	l.Debug("components ready",
		"vector_store", cfg.VectorStore.Provider,
		"embedding", cfg.Embedding.Provider,
		"reranker", cfg.Reranker.Provider,
		"llm", cfg.LLM.Provider,
		"ocr", cfg.OCR.Provider,
		"events", cfg.Events.Provider,
	)

	return r, nil
}

// Close releases components in reverse creation order.
func (r *RAG) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// NewPool starts an ingestion worker pool that uploads through r.
func (r *RAG) NewPool(onDone func(ingest.Job, *ingest.UploadResult, error)) (*ingest.Pool, error) {
	return ingest.NewPool(&ingest.PoolConfig{
		Uploader:   r.Uploader,
		NumWorkers: r.Config.Ingest.Workers,
		QueueSize:  r.Config.Ingest.QueueSize,
		OnDone:     onDone,
		Logger:     r.logger,
	})
}

// Watch ingests files that appear in dir into collection until ctx is done.
// Queued jobs are drained before it returns.
func (r *RAG) Watch(ctx context.Context, dir, collection, docType string) error {
	delay, err := SettleDelay(r.Config)
	if err != nil {
		return err
	}

	pool, err := r.NewPool(func(job ingest.Job, res *ingest.UploadResult, err error) {
		if err != nil {
			r.logger.Error("ingest failed", "path", job.Path, logger.Err(err))
			return
		}
		r.logger.Info("ingested document",
			"path", job.Path,
			"document_id", res.DocumentID,
			"chunks", res.Chunks,
		)
	})
	if err != nil {
		return fmt.Errorf("starting ingest pool: %w", err)
	}
	defer pool.Close()

	w, err := ingest.NewWatcher(ingest.WatcherConfig{
		Dir:         dir,
		Collection:  collection,
		DocType:     docType,
		SettleDelay: delay,
		Queue:       pool,
		Logger:      r.logger,
	})
	if err != nil {
		return err
	}

	return w.Run(ctx)
}

// NewExtractor builds the direct-then-OCR extractor for cfg.OCR.
func NewExtractor(cfg *config.Config, l *slog.Logger) (*extract.Extractor, error) {
	c := extract.Config{
		TextSource:       pdftext.New(),
		MaxPageDimension: int(cfg.OCR.MaxPageDimension),
		Logger:           l,
	}

	switch cfg.OCR.Provider {
	case "tesseract":
		c.Renderer = pdfimages.New()
		c.Recognizer = tesseract.New(SplitLanguages(cfg.OCR.Languages)...)
	case "vision":
		c.Renderer = pdfimages.New()
		c.Recognizer = visionocr.New(visionocr.Config{
			BaseURL: cfg.OCR.Target,
			Model:   cfg.OCR.Model,
		})
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported ocr provider: %s", cfg.OCR.Provider)
	}

	return extract.New(c), nil
}

// ConversationConfig maps the conversation section. A token budget loads the
// tiktoken encoding.
func ConversationConfig(cfg *config.Config) (conversation.Config, error) {
	c := conversation.DefaultConfig()
	c.MaxTurns = int(cfg.Conversation.MaxTurns)
	c.IncludeContext = cfg.Conversation.IncludeContextInHistory

	if cfg.Conversation.MaxTokens > 0 {
		counter, err := conversation.NewTiktokenCounter("")
		if err != nil {
			return c, fmt.Errorf("loading token encoding: %w", err)
		}
		c.MaxTokens = int(cfg.Conversation.MaxTokens)
		c.Counter = counter
	}

	return c, nil
}

// QueryConfig maps the retrieval, reranker and llm sections.
func QueryConfig(cfg *config.Config) query.Config {
	c := query.DefaultConfig()
	c.Search = vector.SearchParams{
		ScoreThreshold: float32(cfg.Retrieval.ScoreThreshold),
		Limit:          int(cfg.Retrieval.Limit),
	}
	c.TopK = int(cfg.Reranker.TopK)
	c.MaxTokens = int(cfg.LLM.MaxTokens)
	c.HistoryTurns = int(cfg.Conversation.HistoryTurns)
	c.FallbackOnEmpty = cfg.Retrieval.FallbackOnEmpty
	if cfg.Retrieval.FallbackAnswer != "" {
		c.FallbackAnswer = cfg.Retrieval.FallbackAnswer
	}
	return c
}

// SettleDelay parses the watcher settle delay, falling back to the default
// for an empty value.
func SettleDelay(cfg *config.Config) (time.Duration, error) {
	if cfg.Ingest.SettleDelay == "" {
		return ingest.DefaultSettleDelay, nil
	}
	d, err := time.ParseDuration(cfg.Ingest.SettleDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid ingest.settle_delay %q: %w", cfg.Ingest.SettleDelay, err)
	}
	return d, nil
}

// SplitList splits a comma separated list, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SplitLanguages splits tesseract's "eng+deu" language form.
func SplitLanguages(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' })
}

// envKeys resolves keys from the configuration and environment only.
type envKeys struct{}

func (envKeys) Resolve(provider, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := credentials.EnvVarForProvider(provider); env != "" {
		return os.Getenv(env), nil
	}
	return "", nil
}
