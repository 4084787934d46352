package postgresdb

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	apperrors "resume-ranker/internal/errors"
	"resume-ranker/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, connString string) (*Store, error) {
	if connString == "" {
		return nil, fmt.Errorf("database connection string is required")
	}

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid database connection string: %w", err)
	}

	// pool required in order to handle concurrent access
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateJob inserts the job and its resume files in one transaction. The job
// always starts out queued.
func (s *Store) CreateJob(ctx context.Context, job *models.Job) error {

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	job.Status = models.StatusQueued

	err = tx.QueryRow(ctx, `
		INSERT INTO ranking_jobs (id, job_status, job_description)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
		`,
		job.ID,
		job.Status.String(),
		cleanText(job.JobDescription),
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, classify(err))
	}

	batch := &pgx.Batch{}
	for _, r := range job.Resumes {
		batch.Queue(`
			INSERT INTO job_resumes (job_id, position, file_name, object_key)
			VALUES ($1, $2, $3, $4)
			`, job.ID, r.Position, cleanText(r.FileName), r.ObjectKey)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert resumes for job %s: %w", job.ID, classify(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit job %s: %w", job.ID, err)
	}
	return nil
}

// JobByID loads the job with its resumes, and its report once completed.
func (s *Store) JobByID(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {

	var job models.Job

	// convert to string before sending back
	var statusString string

	err := s.Pool.QueryRow(ctx, `
		SELECT id, job_status, job_description, error_message, created_at, updated_at
		FROM ranking_jobs
		WHERE id = $1
		`,
		jobID,
	).Scan(
		&job.ID,
		&statusString,
		&job.JobDescription,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", jobID, apperrors.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve job %s: %w", jobID, err)
	}

	job.Status, err = models.ParseStatus(statusString)
	if err != nil {
		return nil, fmt.Errorf("database contains invalid job status string: %w", err)
	}

	if job.Resumes, err = s.resumes(ctx, jobID); err != nil {
		return nil, err
	}

	if job.Status == models.StatusCompleted {
		if job.Report, err = s.report(ctx, jobID); err != nil {
			return nil, err
		}
	}

	return &job, nil
}

func (s *Store) resumes(ctx context.Context, jobID uuid.UUID) ([]models.ResumeFile, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT position, file_name, object_key
		FROM job_resumes
		WHERE job_id = $1
		ORDER BY position
		`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resumes for job %s: %w", jobID, err)
	}

	resumes, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.ResumeFile])
	if err != nil {
		return nil, fmt.Errorf("failed to read resumes for job %s: %w", jobID, err)
	}
	return resumes, nil
}

func (s *Store) report(ctx context.Context, jobID uuid.UUID) (*models.Report, error) {
	report := &models.Report{Results: models.Ranking{}, Excluded: []models.Exclusion{}}

	rows, err := s.Pool.Query(ctx, `
		SELECT source_index, name, resume_text, score
		FROM job_results
		WHERE job_id = $1
		ORDER BY rank
		`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for job %s: %w", jobID, err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RankedResult, error) {
		var r models.RankedResult
		err := row.Scan(&r.SourceIndex, &r.Name, &r.Text, &r.Score)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read results for job %s: %w", jobID, err)
	}
	report.Results = append(report.Results, results...)

	rows, err = s.Pool.Query(ctx, `
		SELECT source_index, name, reason, detail
		FROM job_exclusions
		WHERE job_id = $1
		ORDER BY source_index
		`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exclusions for job %s: %w", jobID, err)
	}
	excluded, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Exclusion, error) {
		var e models.Exclusion
		var reason string
		err := row.Scan(&e.SourceIndex, &e.Name, &reason, &e.Detail)
		e.Reason = models.ExclusionReason(reason)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read exclusions for job %s: %w", jobID, err)
	}
	report.Excluded = append(report.Excluded, excluded...)

	return report, nil
}

func (s *Store) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status models.Status) error {

	tag, err := s.Pool.Exec(ctx, `
		UPDATE ranking_jobs
		SET job_status = $1, updated_at = NOW()
		WHERE id = $2
		`, status.String(), jobID)
	if err != nil {
		return fmt.Errorf("failed to update status of job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", jobID, apperrors.ErrJobNotFound)
	}
	return nil
}

// CompleteJob stores the report and marks the job completed. Storing the same
// report twice replaces the first one.
func (s *Store) CompleteJob(ctx context.Context, jobID uuid.UUID, report *models.Report) error {

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM job_results WHERE job_id = $1`, jobID)
	batch.Queue(`DELETE FROM job_exclusions WHERE job_id = $1`, jobID)

	if report != nil {
		for rank, r := range report.Results {
			batch.Queue(`
				INSERT INTO job_results (job_id, rank, source_index, name, score, resume_text)
				VALUES ($1, $2, $3, $4, $5, $6)
				`, jobID, rank+1, r.SourceIndex, cleanText(r.Name), r.Score, cleanText(r.Text))
		}
		for _, e := range report.Excluded {
			batch.Queue(`
				INSERT INTO job_exclusions (job_id, source_index, name, reason, detail)
				VALUES ($1, $2, $3, $4, $5)
				`, jobID, e.SourceIndex, cleanText(e.Name), string(e.Reason), cleanText(e.Detail))
		}
	}

	batch.Queue(`
		UPDATE ranking_jobs
		SET job_status = $1, error_message = NULL, updated_at = NOW()
		WHERE id = $2
		`, models.StatusCompleted.String(), jobID)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to store results for job %s: %w", jobID, classify(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit results for job %s: %w", jobID, classify(err))
	}
	return nil
}

func (s *Store) FailJob(ctx context.Context, jobID uuid.UUID, reason string) error {

	_, err := s.Pool.Exec(ctx, `
		UPDATE ranking_jobs
		SET job_status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3
		`, models.StatusFailed.String(), cleanText(reason), jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job %s as failed: %w", jobID, classify(err))
	}
	return nil
}

// cleanText makes extracted text storable in a text column, which rejects
// NUL bytes and invalid UTF-8.
func cleanText(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "")
}

// classify marks data exceptions (SQLSTATE class 22) as permanent: the same
// values fail the same way on every retry.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "22") {
		return fmt.Errorf("%w: %w", apperrors.ErrPermanentFailure, err)
	}
	return err
}
