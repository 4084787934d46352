package valkeydb

import (
	"context"
	"fmt"

	"resume-ranker/internal/queue"

	"github.com/valkey-io/valkey-go"
)

const (
	pendingKey    = "ranking-jobs:pending"
	processingKey = "ranking-jobs:processing"

	// seconds a consumer blocks before ConsumeJob returns queue.ErrEmpty
	pollTimeout = 5
)

type ValkeyClient struct {
	Client valkey.Client

	processing string
}

func New(ctx context.Context, address string, password string) (*ValkeyClient, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{address},
		Password:    password,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create Valkey client: %w", err)
	}

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to ping Valkey: %w", err)
	}

	return &ValkeyClient{Client: client, processing: processingKey}, nil
}

// ForWorker returns a client sharing the connection whose in-flight jobs are
// kept in a processing list of their own. RequeueInFlight on it only
// recovers jobs of the named worker, so live workers never take each
// other's jobs. The worker id must be stable across restarts.
func (v *ValkeyClient) ForWorker(workerID string) *ValkeyClient {
	return &ValkeyClient{Client: v.Client, processing: processingKey + ":" + workerID}
}

// ProcessingKey is the list holding this client's in-flight jobs.
func (v *ValkeyClient) ProcessingKey() string {
	if v.processing == "" {
		return processingKey
	}
	return v.processing
}

func (v *ValkeyClient) Close() {
	v.Client.Close()
}

func (v *ValkeyClient) HealthCheck(ctx context.Context) error {
	if err := v.Client.Do(ctx, v.Client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("failed to ping valkey: %w", err)
	}
	return nil
}

// InsertJob pushes a ranking job id onto the pending list.
func (v *ValkeyClient) InsertJob(ctx context.Context, jobID string) error {

	cmd := v.Client.B().Lpush().
		Key(pendingKey).
		Element(jobID).
		Build()

	if _, err := v.Client.Do(ctx, cmd).AsInt64(); err != nil {
		return fmt.Errorf("unable to add job (%s) to the queue: %w", jobID, err)
	}

	return nil
}

// ConsumeJob moves the oldest pending job into the processing list, so a job
// held by a crashed worker is not lost. It returns queue.ErrEmpty when
// nothing arrives within the poll timeout.
func (v *ValkeyClient) ConsumeJob(ctx context.Context) (string, error) {

	cmd := v.Client.B().Blmove().
		Source(pendingKey).
		Destination(v.ProcessingKey()).
		Right().
		Left().
		Timeout(pollTimeout).
		Build()

	jobID, err := v.Client.Do(ctx, cmd).ToString()
	if valkey.IsValkeyNil(err) {
		return "", queue.ErrEmpty
	}
	if err != nil {
		return "", fmt.Errorf("failed to move job into processing queue: %w", err)
	}

	return jobID, nil
}

// AckJob removes a finished job from the processing list.
func (v *ValkeyClient) AckJob(ctx context.Context, jobID string) error {

	cmd := v.Client.B().Lrem().
		Key(v.ProcessingKey()).
		Count(1).
		Element(jobID).
		Build()

	if err := v.Client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("unable to acknowledge job (%s): %w", jobID, err)
	}

	return nil
}

// RequeueInFlight moves every job left in this client's processing list back
// to the pending list. Workers call it on startup to pick up jobs abandoned
// by their previous run. It returns the number of jobs moved.
func (v *ValkeyClient) RequeueInFlight(ctx context.Context) (int, error) {

	moved := 0
	for {
		cmd := v.Client.B().Lmove().
			Source(v.ProcessingKey()).
			Destination(pendingKey).
			Left().
			Right().
			Build()

		_, err := v.Client.Do(ctx, cmd).ToString()
		if valkey.IsValkeyNil(err) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("unable to requeue in-flight jobs: %w", err)
		}
		moved++
	}
}
