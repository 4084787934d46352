// Package engine assembles the extraction and ranking components selected by
// the configuration. Every binary builds its pipeline through here.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"resume-ranker/internal/config"
	"resume-ranker/internal/embedding"
	"resume-ranker/internal/extract"
	"resume-ranker/internal/geministore"
	"resume-ranker/internal/ollama"
	"resume-ranker/internal/pdftext"
	"resume-ranker/internal/pipeline"
	"resume-ranker/internal/ranker"
)

// NewPipeline wires the configured extractor and embedding model into a
// ranking pipeline.
func NewPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	var gemini *geministore.GeminiClient
	if cfg.GeminiAPIKey != "" {
		client, err := geministore.New(ctx, geministore.Config{
			APIKey:         cfg.GeminiAPIKey,
			EmbeddingModel: geminiModel(cfg),
			Dimension:      cfg.Embedding.Dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		gemini = client
	}

	model, err := NewEmbedder(cfg, gemini)
	if err != nil {
		return nil, err
	}

	extractor, err := NewExtractor(cfg, gemini)
	if err != nil {
		return nil, err
	}

	r, err := ranker.New(model, ranker.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create ranker: %w", err)
	}

	logger.Info("ranking engine ready",
		"provider", cfg.Embedding.Provider,
		"dimension", model.Dimension(),
		"extractor", cfg.Extractor,
	)

	return pipeline.New(extractor, r,
		pipeline.WithConcurrency(cfg.ExtractConcurrency),
		pipeline.WithLogger(logger),
	), nil
}

// NewEmbedder returns the embedding model for cfg. gemini may be nil unless
// the gemini provider is selected.
func NewEmbedder(cfg *config.Config, gemini *geministore.GeminiClient) (embedding.Embedder, error) {
	var model embedding.Embedder

	switch cfg.Embedding.Provider {
	case config.ProviderOllama:
		model = ollama.NewClient(ollama.Config{
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			Device:    ollama.Device(cfg.Embedding.Device),
		})
	case config.ProviderGemini:
		if gemini == nil {
			return nil, fmt.Errorf("gemini embedding provider requires GEMINI_API_KEY")
		}
		model = gemini
	case config.ProviderHash:
		hashing, err := embedding.NewHashEmbedder(cfg.Embedding.Dimension)
		if err != nil {
			return nil, err
		}
		model = hashing
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	if cfg.Embedding.Serialize {
		return embedding.NewGuarded(model), nil
	}
	return model, nil
}

// NewExtractor returns the PDF text extractor for cfg. The chain extractor
// tries the local parser first and falls back to gemini.
func NewExtractor(cfg *config.Config, gemini *geministore.GeminiClient) (extract.TextExtractor, error) {
	switch cfg.Extractor {
	case config.ExtractorLocal:
		return pdftext.New(), nil
	case config.ExtractorGemini, config.ExtractorChain:
		if gemini == nil {
			return nil, fmt.Errorf("%s extractor requires GEMINI_API_KEY", cfg.Extractor)
		}
		if cfg.Extractor == config.ExtractorGemini {
			return gemini, nil
		}
		return extract.NewChain(pdftext.New(), gemini), nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", cfg.Extractor)
	}
}

func geminiModel(cfg *config.Config) string {
	if cfg.Embedding.Provider == config.ProviderGemini {
		return cfg.Embedding.Model
	}
	return ""
}
