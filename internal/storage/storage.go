package storage

import (
	"context"

	"resume-ranker/internal/models"

	"github.com/google/uuid"
)

type JobCreator interface {
	CreateJob(ctx context.Context, job *models.Job) error
}

type JobReader interface {
	JobByID(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
}

type JobUpdater interface {
	JobReader
	UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status models.Status) error
	CompleteJob(ctx context.Context, jobID uuid.UUID, report *models.Report) error
	FailJob(ctx context.Context, jobID uuid.UUID, reason string) error
}

type JobStore interface {
	JobCreator
	JobUpdater
}
