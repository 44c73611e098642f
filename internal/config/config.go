package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel     string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimension int    `envconfig:"EMBEDDING_DIMENSION" default:"768"`

	// Chunking, in tokens. The splitter works on a 4-chars-per-token
	// approximation; token counts are recomputed exactly afterwards.
	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"512"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"50"`
	MinChunkSize int `envconfig:"MIN_CHUNK_SIZE" default:"100"`

	// Retrieval defaults. SimilarityThreshold is the single authoritative
	// default; callers may pass a per-call override.
	TopK                int     `envconfig:"TOP_K" default:"5"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.3"`

	EmbedBatchSize  int `envconfig:"EMBED_BATCH_SIZE" default:"32"`
	InsertBatchSize int `envconfig:"INSERT_BATCH_SIZE" default:"100"`

	// RefreshInterval enables the background re-ingestion worker when set
	// to a positive duration (e.g. "24h").
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL"`

	// Optional S3-compatible archive for raw scraped documents.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docrag-archive"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCRAG", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.EmbeddingDimension)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold >= 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in [0, 1), got %f", c.SimilarityThreshold)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
