package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Anthropic (captioning + chat completion)
	AnthropicAPIKey string
	AnthropicModel  string

	// OpenAI (embeddings)
	OpenAIAPIKey       string
	EmbeddingModel     string
	EmbeddingDimension int

	// OpenSearch
	OpenSearchURL      string
	OpenSearchUsername string
	OpenSearchPassword string
	DefaultIndex       string

	// Retrieval
	RAGThreshold float64
	TopK         int

	// Indexing
	BulkBatchSize int

	// Blob storage (bucket = directory under StorageRoot)
	StorageRoot     string
	MarkdownBucket  string
	CaptionedBucket string
	ImageBucket     string
	ChunkBucket     string
	ImageBaseURL    string

	// Chat history store; empty URL means in-memory.
	HistoryURL    string
	HistoryAPIKey string

	// Layout extraction
	TitleSize       float64
	SubtitleSize    float64
	SubsubtitleSize float64
	LineTolerance   float64
	MinImageWidth   float64
	MinImageHeight  float64

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("MANUALRAG_API_KEY"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),

		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		EmbeddingModel:     envOr("EMBEDDING_MODEL", "text-embedding-ada-002"),
		EmbeddingDimension: envInt("EMBEDDING_DIMENSION", 1536),

		OpenSearchURL:      envOr("OPENSEARCH_URL", "http://localhost:9200"),
		OpenSearchUsername: os.Getenv("OPENSEARCH_USERNAME"),
		OpenSearchPassword: os.Getenv("OPENSEARCH_PASSWORD"),
		DefaultIndex:       envOr("DEFAULT_INDEX", "manuals"),

		RAGThreshold: envFloat("RAG_THRESHOLD", 0.58),
		TopK:         envInt("TOP_K", 3),

		BulkBatchSize: envInt("BULK_BATCH_SIZE", 500),

		StorageRoot:     envOr("STORAGE_ROOT", "./data"),
		MarkdownBucket:  envOr("MARKDOWN_BUCKET", "markdown"),
		CaptionedBucket: envOr("CAPTIONED_BUCKET", "captioned"),
		ImageBucket:     envOr("IMAGE_BUCKET", "images"),
		ChunkBucket:     envOr("CHUNK_BUCKET", "chunks"),
		ImageBaseURL:    envOr("IMAGE_BASE_URL", "http://localhost:8090/images"),

		HistoryURL:    os.Getenv("HISTORY_URL"),
		HistoryAPIKey: os.Getenv("HISTORY_API_KEY"),

		TitleSize:       envFloat("TITLE_SIZE", 19.5),
		SubtitleSize:    envFloat("SUBTITLE_SIZE", 15),
		SubsubtitleSize: envFloat("SUBSUBTITLE_SIZE", 14),
		LineTolerance:   envFloat("LINE_TOLERANCE", 5),
		MinImageWidth:   envFloat("MIN_IMAGE_WIDTH", 25),
		MinImageHeight:  envFloat("MIN_IMAGE_HEIGHT", 25),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.BulkBatchSize <= 0 {
		cfg.BulkBatchSize = 500
	}
	if cfg.EmbeddingDimension <= 0 {
		cfg.EmbeddingDimension = 1536
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("MANUALRAG_API_KEY is required")
	}
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
