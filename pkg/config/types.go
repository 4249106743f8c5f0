package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent docrag configuration stored as config.toml
// in the .docrag/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version      int                `toml:"version"`
	API          APIConfig          `toml:"api"`
	Client       ClientConfig       `toml:"client"`
	VectorStore  VectorStoreConfig  `toml:"vector_store"`
	Embedding    EmbeddingConfig    `toml:"embedding"`
	Reranker     RerankerConfig     `toml:"reranker"`
	LLM          LLMConfig          `toml:"llm"`
	OCR          OCRConfig          `toml:"ocr"`
	Chunking     ChunkingConfig     `toml:"chunking"`
	Retrieval    RetrievalConfig    `toml:"retrieval"`
	Conversation ConversationConfig `toml:"conversation"`
	Ingest       IngestConfig       `toml:"ingest"`
	Events       EventsConfig       `toml:"events"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running API
// server (e.g. docrag chat --remote). Targets are full URLs.
type ClientConfig struct {
	APITarget  string `toml:"api_target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// VectorStoreConfig holds vector store settings. Target is a host:port for
// qdrant, a URL for chroma, a file path for sqlite and a DSN for pgvector.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
	UseTLS   bool   `toml:"use_tls,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// RerankerConfig holds cross-encoder reranker settings.
type RerankerConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
	TopK     uint   `toml:"top_k,omitempty"`
}

// LLMConfig holds generation settings shared by reformulation and answers.
type LLMConfig struct {
	Provider  string `toml:"provider,omitempty"`
	Target    string `toml:"target,omitempty"`
	Model     string `toml:"model,omitempty"`
	APIKey    string `toml:"api_key,omitempty"`
	MaxTokens uint   `toml:"max_tokens,omitempty"`
}

// OCRConfig holds the OCR fallback settings. Languages uses tesseract's
// "eng+deu" form.
type OCRConfig struct {
	Provider         string `toml:"provider,omitempty"`
	Target           string `toml:"target,omitempty"`
	Model            string `toml:"model,omitempty"`
	Languages        string `toml:"languages,omitempty"`
	MaxPageDimension uint   `toml:"max_page_dimension,omitempty"`
}

// ChunkingConfig holds the splitter settings, in characters.
type ChunkingConfig struct {
	Size    uint `toml:"size,omitempty"`
	Overlap uint `toml:"overlap,omitempty"`
}

// RetrievalConfig holds search and fallback settings.
type RetrievalConfig struct {
	ScoreThreshold  float64 `toml:"score_threshold,omitempty"`
	Limit           uint    `toml:"limit,omitempty"`
	FallbackOnEmpty bool    `toml:"fallback_on_empty"`
	FallbackAnswer  string  `toml:"fallback_answer,omitempty"`
}

// ConversationConfig bounds per-session history.
type ConversationConfig struct {
	MaxTurns                uint `toml:"max_turns,omitempty"`
	MaxTokens               uint `toml:"max_tokens,omitempty"`
	HistoryTurns            uint `toml:"history_turns,omitempty"`
	IncludeContextInHistory bool `toml:"include_context_in_history,omitempty"`
}

// IngestConfig holds the async ingestion settings. SettleDelay is a Go
// duration string.
type IngestConfig struct {
	Workers     uint   `toml:"workers,omitempty"`
	QueueSize   uint   `toml:"queue_size,omitempty"`
	SettleDelay string `toml:"settle_delay,omitempty"`
}

// EventsConfig holds event publishing settings. Brokers is comma separated.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

// orderedKeys lists every supported key in TOML section order.
var orderedKeys = []string{
	"api.listen",
	"client.api_target",
	"client.collection",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.api_key",
	"vector_store.use_tls",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.api_key",
	"embedding.dimensions",
	"reranker.provider",
	"reranker.target",
	"reranker.model",
	"reranker.api_key",
	"reranker.top_k",
	"llm.provider",
	"llm.target",
	"llm.model",
	"llm.api_key",
	"llm.max_tokens",
	"ocr.provider",
	"ocr.target",
	"ocr.model",
	"ocr.languages",
	"ocr.max_page_dimension",
	"chunking.size",
	"chunking.overlap",
	"retrieval.score_threshold",
	"retrieval.limit",
	"retrieval.fallback_on_empty",
	"retrieval.fallback_answer",
	"conversation.max_turns",
	"conversation.max_tokens",
	"conversation.history_turns",
	"conversation.include_context_in_history",
	"ingest.workers",
	"ingest.queue_size",
	"ingest.settle_delay",
	"events.provider",
	"events.brokers",
	"events.topic",
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),
	"client.collection": stringKey(func(c *Config) *string { return &c.Client.Collection }),

	"vector_store.provider": stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":   stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.api_key":  stringKey(func(c *Config) *string { return &c.VectorStore.APIKey }),
	"vector_store.use_tls":  boolKey("vector_store.use_tls", func(c *Config) *bool { return &c.VectorStore.UseTLS }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.api_key":    stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),

	"reranker.provider": stringKey(func(c *Config) *string { return &c.Reranker.Provider }),
	"reranker.target":   stringKey(func(c *Config) *string { return &c.Reranker.Target }),
	"reranker.model":    stringKey(func(c *Config) *string { return &c.Reranker.Model }),
	"reranker.api_key":  stringKey(func(c *Config) *string { return &c.Reranker.APIKey }),
	"reranker.top_k":    uintKey("reranker.top_k", func(c *Config) *uint { return &c.Reranker.TopK }),

	"llm.provider":   stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.target":     stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.model":      stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.api_key":    stringKey(func(c *Config) *string { return &c.LLM.APIKey }),
	"llm.max_tokens": uintKey("llm.max_tokens", func(c *Config) *uint { return &c.LLM.MaxTokens }),

	"ocr.provider":           stringKey(func(c *Config) *string { return &c.OCR.Provider }),
	"ocr.target":             stringKey(func(c *Config) *string { return &c.OCR.Target }),
	"ocr.model":              stringKey(func(c *Config) *string { return &c.OCR.Model }),
	"ocr.languages":          stringKey(func(c *Config) *string { return &c.OCR.Languages }),
	"ocr.max_page_dimension": uintKey("ocr.max_page_dimension", func(c *Config) *uint { return &c.OCR.MaxPageDimension }),

	"chunking.size":    uintKey("chunking.size", func(c *Config) *uint { return &c.Chunking.Size }),
	"chunking.overlap": uintKey("chunking.overlap", func(c *Config) *uint { return &c.Chunking.Overlap }),

	"retrieval.score_threshold":   floatKey("retrieval.score_threshold", func(c *Config) *float64 { return &c.Retrieval.ScoreThreshold }),
	"retrieval.limit":             uintKey("retrieval.limit", func(c *Config) *uint { return &c.Retrieval.Limit }),
	"retrieval.fallback_on_empty": boolKey("retrieval.fallback_on_empty", func(c *Config) *bool { return &c.Retrieval.FallbackOnEmpty }),
	"retrieval.fallback_answer":   stringKey(func(c *Config) *string { return &c.Retrieval.FallbackAnswer }),

	"conversation.max_turns":     uintKey("conversation.max_turns", func(c *Config) *uint { return &c.Conversation.MaxTurns }),
	"conversation.max_tokens":    uintKey("conversation.max_tokens", func(c *Config) *uint { return &c.Conversation.MaxTokens }),
	"conversation.history_turns": uintKey("conversation.history_turns", func(c *Config) *uint { return &c.Conversation.HistoryTurns }),
	"conversation.include_context_in_history": boolKey("conversation.include_context_in_history", func(c *Config) *bool {
		return &c.Conversation.IncludeContextInHistory
	}),

	"ingest.workers":      uintKey("ingest.workers", func(c *Config) *uint { return &c.Ingest.Workers }),
	"ingest.queue_size":   uintKey("ingest.queue_size", func(c *Config) *uint { return &c.Ingest.QueueSize }),
	"ingest.settle_delay": stringKey(func(c *Config) *string { return &c.Ingest.SettleDelay }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),
}
