package queue

import (
	"context"
	"errors"
)

// ErrEmpty is returned by ConsumeJob when no job arrived before the poll
// timeout. Callers simply poll again.
var ErrEmpty = errors.New("queue is empty")

type JobQueuer interface {
	InsertJob(ctx context.Context, jobID string) error
}

type JobConsumer interface {
	ConsumeJob(ctx context.Context) (string, error)
	AckJob(ctx context.Context, jobID string) error
}
