package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
	"github.com/nclamvn/prismy-ultimate/internal/db/repos"
	"github.com/nclamvn/prismy-ultimate/internal/logger"
	"github.com/nclamvn/prismy-ultimate/internal/queue"
)

// infraBackoff is the wait after a store or queue error before the loop
// resumes polling
const infraBackoff = time.Second

// Processor performs one stage's unit of work on a claimed job. It is
// responsible for persisting the stage's resulting fields and handing the
// job onward (AdvanceStage or CompleteJob). A returned error fails the job
// unless it wraps ErrTerminal, which means the job was cancelled underneath
// the worker and must be skipped silently.
type Processor interface {
	Stage() models.Stage
	Process(ctx context.Context, job *models.Job) error
}

// PoolConfig sizes the worker pools per stage
type PoolConfig struct {
	Extraction     int
	Chunking       int
	Translation    int
	Reconstruction int
}

func (c PoolConfig) size(stage models.Stage) int {
	switch stage {
	case models.StageExtraction:
		return c.Extraction
	case models.StageChunking:
		return c.Chunking
	case models.StageTranslation:
		return c.Translation
	case models.StageReconstruction:
		return c.Reconstruction
	default:
		return 0
	}
}

// LaunchWorkers starts the configured number of worker goroutines for each
// processor's stage. Workers run until ctx is cancelled.
func LaunchWorkers(ctx context.Context, wg *sync.WaitGroup, m *Manager, q queue.Queue, popTimeout time.Duration, cfg PoolConfig, processors ...Processor) {
	for _, p := range processors {
		n := cfg.size(p.Stage())
		for i := 0; i < n; i++ {
			wg.Add(1)
			go runWorker(ctx, wg, m, q, p, popTimeout)
		}
	}
}

// runWorker is the long-lived loop for one worker instance. The only
// suspension point is the bounded blocking pop; one job's failure never
// crashes the loop.
func runWorker(ctx context.Context, wg *sync.WaitGroup, m *Manager, q queue.Queue, p Processor, popTimeout time.Duration) {
	defer wg.Done()
	stage := p.Stage()
	logger.Infof("%s worker started", stage)

	for {
		select {
		case <-ctx.Done():
			logger.Infof("%s worker received shutdown signal, stopping...", stage)
			return
		default:
		}

		jobID, ok, err := q.Pop(ctx, stage, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("%s worker: queue error: %v", stage, err)
			time.Sleep(infraBackoff)
			continue
		}
		if !ok {
			// no work within the timeout; not an error
			continue
		}

		processOne(ctx, m, p, jobID)
	}
}

// processOne claims one queue entry and runs the stage on it
func processOne(ctx context.Context, m *Manager, p Processor, jobID string) {
	stage := p.Stage()

	job, err := m.GetJob(ctx, jobID)
	if errors.Is(err, repos.ErrNotFound) {
		// stale queue entry for a deleted record
		logger.Debugf("%s worker: skipping missing job %s", stage, jobID)
		return
	}
	if err != nil {
		logger.Errorf("%s worker: failed to load job %s: %v", stage, jobID, err)
		return
	}
	if job.Status.IsTerminal() {
		logger.Debugf("%s worker: skipping terminal job %s (%s)", stage, jobID, job.Status)
		return
	}

	job, err = m.BeginStage(ctx, jobID, stage)
	if errors.Is(err, ErrTerminal) {
		return
	}
	if err != nil {
		logger.Errorf("%s worker: failed to claim job %s: %v", stage, jobID, err)
		return
	}

	logger.InfoWithFields("Processing job", map[string]interface{}{
		"job_id": jobID,
		"stage":  stage.String(),
	})

	if err := p.Process(ctx, job); err != nil {
		if errors.Is(err, ErrTerminal) {
			logger.Debugf("%s worker: job %s cancelled mid-stage", stage, jobID)
			return
		}
		logger.ErrorWithFields("Stage failed", map[string]interface{}{
			"job_id": jobID,
			"stage":  stage.String(),
			"error":  err.Error(),
		})
		if ferr := m.FailJob(ctx, jobID, err.Error()); ferr != nil {
			logger.Errorf("%s worker: failed to mark job %s failed: %v", stage, jobID, ferr)
		}
		return
	}

	logger.InfoWithFields("Stage completed", map[string]interface{}{
		"job_id": jobID,
		"stage":  stage.String(),
	})
}
