package engine

import (
	"context"
	"testing"

	"resume-ranker/internal/config"
	"resume-ranker/internal/embedding"
	"resume-ranker/internal/ollama"
	"resume-ranker/internal/pdftext"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder(t *testing.T) {
	t.Run("ollama", func(t *testing.T) {
		cfg := &config.Config{Embedding: config.EmbeddingConfig{Provider: config.ProviderOllama, Dimension: 384, Device: "cpu"}}
		model, err := NewEmbedder(cfg, nil)
		require.NoError(t, err)
		assert.IsType(t, &ollama.Client{}, model)
		assert.Equal(t, 384, model.Dimension())
	})

	t.Run("hash serialized", func(t *testing.T) {
		cfg := &config.Config{Embedding: config.EmbeddingConfig{Provider: config.ProviderHash, Dimension: 64, Serialize: true}}
		model, err := NewEmbedder(cfg, nil)
		require.NoError(t, err)
		assert.IsType(t, &embedding.Guarded{}, model)
		assert.Equal(t, 64, model.Dimension())
	})

	t.Run("gemini without client", func(t *testing.T) {
		cfg := &config.Config{Embedding: config.EmbeddingConfig{Provider: config.ProviderGemini, Dimension: 768}}
		_, err := NewEmbedder(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := &config.Config{Embedding: config.EmbeddingConfig{Provider: "word2vec", Dimension: 10}}
		_, err := NewEmbedder(cfg, nil)
		assert.Error(t, err)
	})
}

func TestNewExtractor(t *testing.T) {
	extractor, err := NewExtractor(&config.Config{Extractor: config.ExtractorLocal}, nil)
	require.NoError(t, err)
	assert.IsType(t, &pdftext.Extractor{}, extractor)

	_, err = NewExtractor(&config.Config{Extractor: config.ExtractorChain}, nil)
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	_, err = NewExtractor(&config.Config{Extractor: "ocr"}, nil)
	assert.Error(t, err)
}

func TestNewPipeline_Offline(t *testing.T) {
	cfg := &config.Config{
		Embedding:          config.EmbeddingConfig{Provider: config.ProviderHash, Dimension: 128},
		Extractor:          config.ExtractorLocal,
		ExtractConcurrency: 2,
	}

	p, err := NewPipeline(context.Background(), cfg, config.NewLogger(0))
	require.NoError(t, err)

	report, err := p.Run(context.Background(), "golang engineer", nil)
	require.NoError(t, err)
	assert.True(t, report.Empty())
}
