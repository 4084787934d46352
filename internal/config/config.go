// Package config loads runtime settings from the environment, after reading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderHash   = "hash"

	ExtractorLocal  = "local"
	ExtractorGemini = "gemini"
	ExtractorChain  = "chain"
)

type Config struct {
	HTTPAddr       string
	LogLevel       slog.Level
	DatabaseURL    string
	ValkeyURL      string
	ValkeyPassword string
	GeminiAPIKey   string
	WorkerID       string

	S3        S3Config
	Embedding EmbeddingConfig

	Extractor          string
	ExtractConcurrency int
	MaxUploadBytes     int64
}

type S3Config struct {
	EndpointURL string
	Region      string
	AccessKey   string
	SecretKey   string
	Bucket      string
}

type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
	Device    string
	BaseURL   string
	Serialize bool
}

var defaultDimensions = map[string]int{
	ProviderOllama: 384,
	ProviderGemini: 768,
	ProviderHash:   384,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("embedding_provider", ProviderOllama)
	v.SetDefault("embedding_dimension", 0)
	v.SetDefault("embedding_device", "auto")
	v.SetDefault("embedding_serialize", false)
	v.SetDefault("extractor", ExtractorLocal)
	v.SetDefault("extract_concurrency", 4)
	v.SetDefault("max_upload_bytes", 32<<20)
}

// Load reads the given .env files (".env" when none are named) and then the
// environment. Variables already present in the environment win over the
// file, and a missing file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", v.GetString("log_level"), err)
	}

	cfg := &Config{
		HTTPAddr:       v.GetString("http_addr"),
		LogLevel:       level,
		DatabaseURL:    v.GetString("database_url"),
		ValkeyURL:      v.GetString("valkey_url"),
		ValkeyPassword: v.GetString("valkey_password"),
		GeminiAPIKey:   v.GetString("gemini_api_key"),
		WorkerID:       v.GetString("worker_id"),
		S3: S3Config{
			EndpointURL: v.GetString("s3_endpoint_url"),
			Region:      v.GetString("s3_region"),
			AccessKey:   v.GetString("s3_access_key"),
			SecretKey:   v.GetString("s3_secret_key"),
			Bucket:      v.GetString("s3_bucket_name"),
		},
		Embedding: EmbeddingConfig{
			Provider:  strings.ToLower(v.GetString("embedding_provider")),
			Model:     v.GetString("embedding_model"),
			Dimension: v.GetInt("embedding_dimension"),
			Device:    strings.ToLower(v.GetString("embedding_device")),
			BaseURL:   v.GetString("embedding_base_url"),
			Serialize: v.GetBool("embedding_serialize"),
		},
		Extractor:          strings.ToLower(v.GetString("extractor")),
		ExtractConcurrency: v.GetInt("extract_concurrency"),
		MaxUploadBytes:     v.GetInt64("max_upload_bytes"),
	}

	if cfg.WorkerID == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("WORKER_ID is not set and the hostname is unavailable: %w", err)
		}
		cfg.WorkerID = host
	}

	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = defaultDimensions[cfg.Embedding.Provider]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every entry point needs.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := defaultDimensions[c.Embedding.Provider]; !ok {
		errs = append(errs, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.Embedding.Dimension))
	}
	switch c.Embedding.Device {
	case "auto", "cpu", "gpu":
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDING_DEVICE %q", c.Embedding.Device))
	}
	switch c.Extractor {
	case ExtractorLocal, ExtractorGemini, ExtractorChain:
	default:
		errs = append(errs, fmt.Errorf("unknown EXTRACTOR %q", c.Extractor))
	}
	if c.ExtractConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("EXTRACT_CONCURRENCY must be positive, got %d", c.ExtractConcurrency))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes))
	}
	if c.needsGemini() && c.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required by the configured provider or extractor"))
	}

	return errors.Join(errs...)
}

// RequireServices checks the backing services used by the api and worker.
func (c *Config) RequireServices() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}
	if c.ValkeyURL == "" {
		errs = append(errs, errors.New("VALKEY_URL is not set"))
	}
	if c.S3.Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET_NAME is not set"))
	}
	return errors.Join(errs...)
}

func (c *Config) needsGemini() bool {
	return c.Embedding.Provider == ProviderGemini || c.Extractor == ExtractorGemini || c.Extractor == ExtractorChain
}

// NewLogger returns the JSON logger every binary writes to stdout.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
