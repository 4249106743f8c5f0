package config

const (
	defaultAPIListen       = ":8000"
	defaultClientAPITarget = "http://localhost:8000"
	defaultCollection      = "documents"

	defaultVectorProvider = "qdrant"
	defaultVectorTarget   = "localhost:6334"

	defaultOllamaTarget        = "http://localhost:11434"
	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultRerankerProvider = "tei"
	defaultRerankerTarget   = "http://localhost:8080"
	defaultTopK             = 5

	defaultLLMProvider  = "groq"
	defaultLLMModel     = "llama3-70b-8192"
	defaultLLMMaxTokens = 500

	defaultOCRProvider      = "tesseract"
	defaultOCRModel         = "llava"
	defaultOCRLanguages     = "eng"
	defaultMaxPageDimension = 2000

	defaultChunkSize    = 1000
	defaultChunkOverlap = 500

	defaultScoreThreshold = 0.25
	defaultSearchLimit    = 25
	defaultFallbackAnswer = "I don't have enough information to answer this question accurately"

	defaultMaxTurns     = 50
	defaultHistoryTurns = 5

	defaultIngestWorkers = 3
	defaultQueueSize     = 256
	defaultSettleDelay   = "2s"

	defaultEventsProvider = "none"
	defaultEventsBrokers  = "localhost:9092"
	defaultEventsTopic    = "docrag.documents"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget:  defaultClientAPITarget,
			Collection: defaultCollection,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
			Target:   defaultVectorTarget,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultOllamaTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Reranker: RerankerConfig{
			Provider: defaultRerankerProvider,
			Target:   defaultRerankerTarget,
			TopK:     defaultTopK,
		},
		LLM: LLMConfig{
			Provider:  defaultLLMProvider,
			Model:     defaultLLMModel,
			MaxTokens: defaultLLMMaxTokens,
		},
		OCR: OCRConfig{
			Provider:         defaultOCRProvider,
			Target:           defaultOllamaTarget,
			Model:            defaultOCRModel,
			Languages:        defaultOCRLanguages,
			MaxPageDimension: defaultMaxPageDimension,
		},
		Chunking: ChunkingConfig{
			Size:    defaultChunkSize,
			Overlap: defaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{
			ScoreThreshold:  defaultScoreThreshold,
			Limit:           defaultSearchLimit,
			FallbackOnEmpty: true,
			FallbackAnswer:  defaultFallbackAnswer,
		},
		Conversation: ConversationConfig{
			MaxTurns:     defaultMaxTurns,
			HistoryTurns: defaultHistoryTurns,
		},
		Ingest: IngestConfig{
			Workers:     defaultIngestWorkers,
			QueueSize:   defaultQueueSize,
			SettleDelay: defaultSettleDelay,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Brokers:  defaultEventsBrokers,
			Topic:    defaultEventsTopic,
		},
	}
}
