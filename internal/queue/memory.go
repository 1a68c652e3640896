package queue

import (
	"context"
	"time"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

// memoryQueueCapacity bounds each in-memory stage queue
const memoryQueueCapacity = 1024

// MemoryQueue implements Queue on buffered channels, one per stage.
// Channel receive gives the same atomic-claim guarantee as BLPOP.
type MemoryQueue struct {
	queues map[models.Stage]chan string
}

// NewMemoryQueue creates an in-memory queue for every pipeline stage
func NewMemoryQueue() *MemoryQueue {
	queues := make(map[models.Stage]chan string, len(models.Stages))
	for _, stage := range models.Stages {
		queues[stage] = make(chan string, memoryQueueCapacity)
	}
	return &MemoryQueue{queues: queues}
}

// Push appends a job id to a stage's queue
func (q *MemoryQueue) Push(ctx context.Context, stage models.Stage, jobID string) error {
	select {
	case q.queues[stage] <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop blocks until an entry is available or the timeout elapses
func (q *MemoryQueue) Pop(ctx context.Context, stage models.Stage, timeout time.Duration) (string, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case jobID := <-q.queues[stage]:
		return jobID, true, nil
	case <-timer.C:
		return "", false, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// Len returns the pending entry count for a stage
func (q *MemoryQueue) Len(_ context.Context, stage models.Stage) (int64, error) {
	return int64(len(q.queues[stage])), nil
}
