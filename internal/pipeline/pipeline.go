// Package pipeline runs the whole resume screening flow: PDF text extraction
// for every upload, then ranking against the job description.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "resume-ranker/internal/errors"
	"resume-ranker/internal/extract"
	"resume-ranker/internal/models"
	"resume-ranker/internal/preprocess"

	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// Resume is an uploaded PDF and the name it is displayed under. Err is set
// when the upload itself could not be fetched; such a resume is excluded
// without being extracted.
type Resume struct {
	Name string
	Data []byte
	Err  error
}

type Reporter interface {
	Report(ctx context.Context, jobDescription string, documents []models.Document) (*models.Report, error)
}

type Pipeline struct {
	extractor   extract.TextExtractor
	ranker      Reporter
	concurrency int
	logger      *slog.Logger
}

type Option func(*Pipeline)

func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func New(extractor extract.TextExtractor, ranker Reporter, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   extractor,
		ranker:      ranker,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run extracts every resume and ranks the results. A resume that fails
// extraction is excluded with the reason of the failure, it never fails the
// run. Errors come only from the ranker or a cancelled context.
func (p *Pipeline) Run(ctx context.Context, jobDescription string, resumes []Resume) (*models.Report, error) {
	if preprocess.Normalize(jobDescription) == "" || len(resumes) == 0 {
		return &models.Report{Results: models.Ranking{}, Excluded: []models.Exclusion{}}, nil
	}

	docs := make([]models.Document, len(resumes))
	failures := make([]error, len(resumes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, resume := range resumes {
		docs[i].Name = resume.Name
		if resume.Err != nil {
			failures[i] = resume.Err
			continue
		}
		g.Go(func() error {
			text, err := p.extractor.ExtractText(gctx, resume.Data)
			if err != nil {
				failures[i] = err
				return nil
			}
			docs[i].Text = text
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extraction interrupted: %w", err)
	}

	report, err := p.ranker.Report(ctx, jobDescription, docs)
	if err != nil {
		return nil, err
	}

	for k, exclusion := range report.Excluded {
		if failure := failures[exclusion.SourceIndex]; failure != nil {
			report.Excluded[k].Reason = ReasonFor(failure)
			report.Excluded[k].Detail = failure.Error()
		}
		p.logger.Warn("resume excluded from ranking",
			"source_index", exclusion.SourceIndex,
			"name", report.Excluded[k].Name,
			"reason", report.Excluded[k].Reason,
			"detail", report.Excluded[k].Detail,
		)
	}

	return report, nil
}

// ReasonFor maps an extraction error to the exclusion reason shown to users.
func ReasonFor(err error) models.ExclusionReason {
	switch {
	case errors.Is(err, apperrors.ErrInvalidPDF):
		return models.ReasonNotPDF
	case errors.Is(err, apperrors.ErrNoText):
		return models.ReasonNoTextExtracted
	default:
		return models.ReasonExtractionFailed
	}
}
