// Package ranker scores resumes against a job description by the cosine
// similarity of their embeddings and orders them best match first.
//
// A Ranker holds no state between calls besides its embedding model, so Rank
// may be called concurrently as long as the model allows it (see
// embedding.Guarded for models that do not).
package ranker

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"resume-ranker/internal/embedding"
	"resume-ranker/internal/models"
	"resume-ranker/internal/preprocess"
)

var (
	// ErrJobDescriptionUnembeddable means there is nothing to rank against.
	ErrJobDescriptionUnembeddable = errors.New("job description could not be embedded")

	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	ErrInvalidEmbedding = errors.New("embedding contains NaN or Inf")
)

type Ranker struct {
	model  embedding.Embedder
	dim    int
	logger *slog.Logger
}

type Option func(*Ranker)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func New(model embedding.Embedder, opts ...Option) (*Ranker, error) {
	if model == nil {
		return nil, fmt.Errorf("embedding model is required")
	}

	dim := model.Dimension()
	if dim <= 0 {
		return nil, fmt.Errorf("embedding model reports invalid dimension %d", dim)
	}

	r := &Ranker{
		model:  model,
		dim:    dim,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Dimension is the length of every embedding this ranker produces.
func (r *Ranker) Dimension() int {
	return r.dim
}

// Embed returns the embedding of the normalized text. Text that normalizes to
// "" gets the zero vector instead of a model call.
func (r *Ranker) Embed(ctx context.Context, text string) ([]float32, error) {
	normalized := preprocess.Normalize(text)
	if normalized == "" {
		return make([]float32, r.dim), nil
	}

	vec, err := r.model.Embed(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}

	if err := r.validate(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// Rank scores every document against the job description and returns the
// scored ones, highest score first. Documents with equal scores keep their
// input order. Documents that cannot be scored are left out; use Report to
// see why.
//
// An empty job description or document list yields an empty Ranking and no
// error. The only failures are an unembeddable job description and a
// cancelled context.
func (r *Ranker) Rank(ctx context.Context, jobDescription string, documents []models.Document) (models.Ranking, error) {
	outcomes, err := r.Evaluate(ctx, jobDescription, documents)
	if err != nil {
		return nil, err
	}
	return rankingOf(outcomes), nil
}

// Report is Rank plus the list of excluded documents and their reasons.
func (r *Ranker) Report(ctx context.Context, jobDescription string, documents []models.Document) (*models.Report, error) {
	outcomes, err := r.Evaluate(ctx, jobDescription, documents)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		Results:  rankingOf(outcomes),
		Excluded: []models.Exclusion{},
	}
	for _, o := range outcomes {
		if o.Excluded {
			report.Excluded = append(report.Excluded, o.Exclusion())
		}
	}
	return report, nil
}

// Evaluate returns one Outcome per document, in input order.
func (r *Ranker) Evaluate(ctx context.Context, jobDescription string, documents []models.Document) ([]Outcome, error) {
	if preprocess.Normalize(jobDescription) == "" || len(documents) == 0 {
		return nil, nil
	}

	outcomes := make([]Outcome, len(documents))
	var pending []int
	for i, doc := range documents {
		outcomes[i] = Outcome{
			SourceIndex: i,
			Name:        displayName(doc.Name, i),
			Text:        doc.Text,
		}
		if preprocess.Normalize(doc.Text) == "" {
			outcomes[i] = excluded(outcomes[i], models.ReasonEmptyText, nil)
			continue
		}
		pending = append(pending, i)
	}

	if r.scoreBatch(ctx, jobDescription, documents, pending, outcomes) {
		return outcomes, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ranking interrupted: %w", err)
	}

	jobVec, err := r.Embed(ctx, jobDescription)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJobDescriptionUnembeddable, err)
	}

	for _, i := range pending {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("ranking interrupted: %w", err)
		}

		vec, err := r.Embed(ctx, documents[i].Text)
		if err != nil {
			r.logger.Debug("resume excluded", "source_index", i, "error", err)
			outcomes[i] = excluded(outcomes[i], models.ReasonEmbeddingFailed, err)
			continue
		}
		outcomes[i].Score = CosineSimilarity(jobVec, vec)
	}

	return outcomes, nil
}

// scoreBatch embeds the job description and all pending documents in one
// model call. It returns false, leaving outcomes untouched, whenever the
// batch cannot be used as is, so the caller falls back to one call per text.
func (r *Ranker) scoreBatch(ctx context.Context, jobDescription string, documents []models.Document, pending []int, outcomes []Outcome) bool {
	batcher, ok := r.model.(embedding.BatchEmbedder)
	if !ok || len(pending) == 0 {
		return false
	}

	texts := make([]string, 0, len(pending)+1)
	texts = append(texts, preprocess.Normalize(jobDescription))
	for _, i := range pending {
		texts = append(texts, preprocess.Normalize(documents[i].Text))
	}

	vectors, err := batcher.EmbedBatch(ctx, texts)
	if err != nil {
		r.logger.Debug("batch embedding failed, embedding one by one", "error", err)
		return false
	}
	if len(vectors) != len(texts) {
		r.logger.Debug("batch embedding returned wrong count, embedding one by one",
			"want", len(texts), "got", len(vectors))
		return false
	}
	for _, vec := range vectors {
		if r.validate(vec) != nil {
			return false
		}
	}

	jobVec := vectors[0]
	for k, i := range pending {
		outcomes[i].Score = CosineSimilarity(jobVec, vectors[k+1])
	}
	return true
}

func (r *Ranker) validate(vec []float32) error {
	if len(vec) != r.dim {
		return fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, r.dim, len(vec))
	}
	for _, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return ErrInvalidEmbedding
		}
	}
	return nil
}

func rankingOf(outcomes []Outcome) models.Ranking {
	ranking := models.Ranking{}
	for _, o := range outcomes {
		if !o.Excluded {
			ranking = append(ranking, o.Result())
		}
	}

	slices.SortStableFunc(ranking, func(a, b models.RankedResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranking
}

func displayName(name string, index int) string {
	if strings.TrimSpace(name) == "" {
		return fmt.Sprintf("Resume %d", index+1)
	}
	return name
}
