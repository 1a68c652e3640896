// Package queue provides the durable FIFO stage queues the pipeline
// coordinates through.
package queue

import (
	"context"
	"time"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

// Queue holds one FIFO queue of job ids per pipeline stage.
//
// Pop is the single concurrency primitive the pipeline relies on for
// safety: it must be atomic across concurrent consumers, so two workers
// can never claim the same entry. A Pop that times out with no work
// returns ok == false and a nil error.
type Queue interface {
	Push(ctx context.Context, stage models.Stage, jobID string) error
	Pop(ctx context.Context, stage models.Stage, timeout time.Duration) (jobID string, ok bool, err error)
	// Len returns the number of entries currently enqueued and not yet
	// claimed for a stage
	Len(ctx context.Context, stage models.Stage) (int64, error)
}
