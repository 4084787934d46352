package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "resume-ranker/internal/errors"
	"resume-ranker/internal/models"
	"resume-ranker/internal/objectstore"
	"resume-ranker/internal/pipeline"
	"resume-ranker/internal/queue"
	"resume-ranker/internal/storage"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

const (
	maxRetries   = 3
	consumePause = 5 * time.Second
)

// Runner ranks downloaded resumes against a job description.
type Runner interface {
	Run(ctx context.Context, jobDescription string, resumes []pipeline.Resume) (*models.Report, error)
}

type JobProcessor struct {
	db       storage.JobUpdater
	queue    queue.JobConsumer
	store    objectstore.FileStorer
	s3Bucket string
	pipeline Runner
	logger   *slog.Logger

	newBackOff func() backoff.BackOff
	pause      time.Duration
}

type Option func(*JobProcessor)

func WithLogger(logger *slog.Logger) Option {
	return func(p *JobProcessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBackOff replaces the exponential retry policy.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(p *JobProcessor) {
		p.newBackOff = newBackOff
	}
}

// WithConsumePause sets how long Run waits after the queue itself fails.
func WithConsumePause(d time.Duration) Option {
	return func(p *JobProcessor) {
		p.pause = d
	}
}

func NewJobProcessor(db storage.JobUpdater, queue queue.JobConsumer, store objectstore.FileStorer, s3Bucket string, runner Runner, opts ...Option) *JobProcessor {
	p := &JobProcessor{
		db:       db,
		queue:    queue,
		store:    store,
		s3Bucket: s3Bucket,
		pipeline: runner,
		logger:   slog.Default(),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		pause: consumePause,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run pulls job ids off the queue until ctx is cancelled. A job is
// acknowledged once it reached a final state, or when it can never be
// processed.
func (p *JobProcessor) Run(ctx context.Context) {
	p.logger.Info("job processor has started, waiting for jobs")

	for ctx.Err() == nil {
		jobIDStr, err := p.queue.ConsumeJob(ctx)
		if errors.Is(err, queue.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Error("error consuming job from queue", "error", err)
			p.wait(ctx)
			continue
		}

		jobID, err := uuid.Parse(jobIDStr)
		if err != nil {
			p.logger.Warn("dropping invalid job id", "job_id", jobIDStr)
			p.ack(ctx, jobIDStr)
			continue
		}

		if err := p.processJob(ctx, jobID); err != nil {
			p.logger.Error("job processing failed", "job_id", jobID, "error", err)
			if !apperrors.IsPermanent(err) {
				// left in the processing list, recovered on the next start
				continue
			}
		}
		p.ack(ctx, jobIDStr)
	}

	p.logger.Info("job processor stopped")
}

func (p *JobProcessor) wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(p.pause):
	}
}

func (p *JobProcessor) ack(ctx context.Context, jobID string) {
	if err := p.queue.AckJob(ctx, jobID); err != nil {
		p.logger.Error("failed to acknowledge job", "job_id", jobID, "error", err)
	}
}

// processJob takes a job from queued to completed or failed. The returned
// error is permanent when retrying the job cannot help.
func (p *JobProcessor) processJob(ctx context.Context, jobID uuid.UUID) error {
	p.logger.Info("processing job", "job_id", jobID)

	job, err := p.fetchJobWithRetry(ctx, jobID)
	if err != nil {
		return err
	}

	if job.Status.Done() {
		p.logger.Info("job already finished, skipping", "job_id", jobID, "status", job.Status)
		return nil
	}

	if err := p.retry(ctx, func() error {
		return p.db.UpdateJobStatus(ctx, jobID, models.StatusProcessing)
	}); err != nil {
		return fmt.Errorf("failed to update job status for job %s: %w", jobID, err)
	}

	resumes := p.downloadResumes(ctx, job)

	report, err := p.pipeline.Run(ctx, job.JobDescription, resumes)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("job %s interrupted: %w", jobID, err)
		}
		return p.failJob(ctx, jobID, err)
	}

	if err := p.saveResultsWithRetry(ctx, jobID, report); err != nil {
		if ctx.Err() != nil {
			return err
		}
		// the report cannot be stored, so the job must not stay in processing
		return p.failJob(ctx, jobID, err)
	}

	p.logger.Info("job completed",
		"job_id", jobID,
		"ranked", len(report.Results),
		"excluded", len(report.Excluded),
	)
	return nil
}

func (p *JobProcessor) fetchJobWithRetry(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	var job *models.Job

	err := p.retry(ctx, func() error {
		var err error
		job, err = p.db.JobByID(ctx, jobID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job %s: %w", jobID, err)
	}
	return job, nil
}

// downloadResumes fetches every resume of the job. A file that cannot be
// downloaded is carried with its error, so it is excluded from the ranking
// instead of failing the job.
func (p *JobProcessor) downloadResumes(ctx context.Context, job *models.Job) []pipeline.Resume {
	resumes := make([]pipeline.Resume, len(job.Resumes))

	for i, file := range job.Resumes {
		resumes[i].Name = file.FileName

		err := p.retry(ctx, func() error {
			data, err := p.store.Download(ctx, p.s3Bucket, file.ObjectKey)
			if err != nil {
				return err
			}
			resumes[i].Data = data
			return nil
		})
		if err != nil {
			p.logger.Warn("failed downloading resume",
				"job_id", job.ID,
				"object_key", file.ObjectKey,
				"error", err,
			)
			resumes[i].Err = fmt.Errorf("failed to download %s: %w", file.FileName, err)
		}
	}

	return resumes
}

// saveResultsWithRetry is the final step of a job. The report is kept even
// when an earlier attempt failed half way.
func (p *JobProcessor) saveResultsWithRetry(ctx context.Context, jobID uuid.UUID, report *models.Report) error {
	err := p.retry(ctx, func() error {
		return p.db.CompleteJob(ctx, jobID, report)
	})
	if err != nil {
		return fmt.Errorf("failed to save results for job %s: %w", jobID, err)
	}
	return nil
}

func (p *JobProcessor) failJob(ctx context.Context, jobID uuid.UUID, cause error) error {
	p.logger.Error("job failed", "job_id", jobID, "error", cause)

	err := p.retry(ctx, func() error {
		return p.db.FailJob(ctx, jobID, cause.Error())
	})
	if err != nil {
		return fmt.Errorf("failed to mark job %s as failed: %w", jobID, err)
	}
	return nil
}

// retry runs op with the configured back off. Permanent errors stop it at
// once.
func (p *JobProcessor) retry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), maxRetries), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err != nil && apperrors.IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
