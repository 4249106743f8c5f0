package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --collection
// on "docrag ingest", "docrag watch", "docrag chat" and "docrag ask").
type Flag struct {
	// Name is the long flag name (e.g. "collection").
	Name string

	// Shorthand is the one-letter short flag (e.g. "c"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.collection").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling the Add*Flag helpers and
// BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen       = "api-listen"
	FlagAPITarget       = "api-target"
	FlagCollection      = "collection"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagRerankerProv    = "reranker-provider"
	FlagRerankerTgt     = "reranker-target"
	FlagTopK            = "top-k"
	FlagLLMProvider     = "llm-provider"
	FlagLLMTarget       = "llm-target"
	FlagLLMModel        = "llm-model"
	FlagOCRProvider     = "ocr-provider"
	FlagChunkSize       = "chunk-size"
	FlagChunkOverlap    = "chunk-overlap"
	FlagScoreThreshold  = "score-threshold"
	FlagSearchLimit     = "limit"
	FlagWorkers         = "workers"
	FlagEventsProvider  = "events-provider"
)

// DefaultFlags is the shared registry used by every docrag command.
var DefaultFlags = FlagSet{
	FlagAPIListen:       {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagAPITarget:       {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "docrag API server URL"},
	FlagCollection:      {Name: "collection", Shorthand: "c", ViperKey: "client.collection", Description: "Vector collection to use"},
	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store provider (qdrant, memory, chroma, sqlite, pgvector)"},
	FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store address, URL, path or DSN"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (ollama, openai)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagRerankerProv:    {Name: "reranker-provider", ViperKey: "reranker.provider", Description: "Reranker provider (tei, cohere, none)"},
	FlagRerankerTgt:     {Name: "reranker-target", ViperKey: "reranker.target", Description: "Reranker URL"},
	FlagTopK:            {Name: "top-k", Shorthand: "k", ViperKey: "reranker.top_k", Description: "Number of reranked chunks given to the model"},
	FlagLLMProvider:     {Name: "llm-provider", ViperKey: "llm.provider", Description: "LLM provider (groq, openai, anthropic, ollama)"},
	FlagLLMTarget:       {Name: "llm-target", ViperKey: "llm.target", Description: "LLM provider base URL"},
	FlagLLMModel:        {Name: "model", Shorthand: "m", ViperKey: "llm.model", Description: "LLM model name"},
	FlagOCRProvider:     {Name: "ocr-provider", ViperKey: "ocr.provider", Description: "OCR fallback (tesseract, vision, none)"},
	FlagChunkSize:       {Name: "chunk-size", ViperKey: "chunking.size", Description: "Chunk size in characters"},
	FlagChunkOverlap:    {Name: "chunk-overlap", ViperKey: "chunking.overlap", Description: "Chunk overlap in characters"},
	FlagScoreThreshold:  {Name: "score-threshold", ViperKey: "retrieval.score_threshold", Description: "Minimum similarity score for retrieved chunks"},
	FlagSearchLimit:     {Name: "limit", ViperKey: "retrieval.limit", Description: "Maximum candidates returned by vector search"},
	FlagWorkers:         {Name: "workers", Shorthand: "w", ViperKey: "ingest.workers", Description: "Number of concurrent ingestion workers"},
	FlagEventsProvider:  {Name: "events-provider", ViperKey: "events.provider", Description: "Event publisher (none, kafka)"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFloatFlag registers a float64 flag on cmd from the given FlagSet.
func AddFloatFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *float64) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetFloat64(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().Float64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Float64Var(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper instance holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
