package config

import (
	"fmt"
	"log"

	"github.com/brainnote/paperbase/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"paperbase-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey         string `envconfig:"OPENAI_API_KEY"`
	OpenAIEmbeddingModel string `envconfig:"OPENAI_EMBEDDING_MODEL"`
	OpenAIChatModel      string `envconfig:"OPENAI_CHAT_MODEL"`

	ChunkSize       int    `envconfig:"CHUNK_SIZE" default:"512"`
	RetrievalTopK   int    `envconfig:"RETRIEVAL_TOP_K" default:"5"`
	MetadataProfile string `envconfig:"METADATA_PROFILE" default:"bibliographic"`

	// Language the query pipeline falls back to when the question's language
	// is ambiguous.
	FallbackLanguage string `envconfig:"FALLBACK_LANGUAGE" default:"Traditional Chinese"`

	// Optional static bearer token guarding the API; auth is disabled when empty.
	APIKey string `envconfig:"API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PAPERBASE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if !domain.IsValidMetadataProfile(domain.MetadataProfile(cfg.MetadataProfile)) {
		return nil, fmt.Errorf("invalid metadata profile: %q", cfg.MetadataProfile)
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

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasAuth() bool {
	return c.APIKey != ""
}
