// Package services coordinates jobs through the four-stage pipeline:
// extraction, chunking, translation, reconstruction.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
	"github.com/nclamvn/prismy-ultimate/internal/db/repos"
	"github.com/nclamvn/prismy-ultimate/internal/logger"
	"github.com/nclamvn/prismy-ultimate/internal/notify"
	"github.com/nclamvn/prismy-ultimate/internal/queue"
)

// ErrTerminal marks an operation skipped because the job already reached
// COMPLETED or FAILED. Workers treat it as a silent skip, which is how
// cooperative cancellation lands: every writer re-reads status before
// persisting and aborts on a terminal record.
var ErrTerminal = errors.New("job is in a terminal state")

// ErrCancelCompleted is returned when cancelling an already completed job
var ErrCancelCompleted = errors.New("cannot cancel a completed job")

// CancelledByUser is the error message recorded on user cancellation
const CancelledByUser = "Cancelled by user"

// mutateRetries bounds optimistic-concurrency retry loops
const mutateRetries = 5

// Manager creates jobs, owns record mutations, and reports queue state
type Manager struct {
	store     repos.JobStore
	artifacts repos.ArtifactStore
	queues    queue.Queue
	notifier  notify.Notifier
}

// NewManager creates a Manager. A nil notifier disables notifications.
func NewManager(store repos.JobStore, artifacts repos.ArtifactStore, queues queue.Queue, notifier notify.Notifier) *Manager {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Manager{store: store, artifacts: artifacts, queues: queues, notifier: notifier}
}

// Artifacts exposes the artifact store the stages read and write through
func (m *Manager) Artifacts() repos.ArtifactStore {
	return m.artifacts
}

// CreateJobParams carries the validated inputs for a new job
type CreateJobParams struct {
	SourcePath string
	SourceLang string
	TargetLang string
	Tier       models.Tier
	TotalPages int
}

// CreateJob writes the initial PENDING record and enqueues it for
// extraction. The external task-execution notification is best effort:
// the job is already durably enqueued, so a failed notification is logged
// and the job stays valid.
func (m *Manager) CreateJob(ctx context.Context, params CreateJobParams) (*models.Job, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ID:         uuid.NewString(),
		SourcePath: params.SourcePath,
		SourceLang: params.SourceLang,
		TargetLang: params.TargetLang,
		Tier:       params.Tier,
		Status:     models.JobStatusPending,
		Progress:   0,
		TotalPages: params.TotalPages,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := m.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job record: %w", err)
	}
	if err := m.queues.Push(ctx, models.StageExtraction, job.ID); err != nil {
		return nil, fmt.Errorf("failed to enqueue job %s for extraction: %w", job.ID, err)
	}

	if err := m.notifier.JobCreated(ctx, job.ID); err != nil {
		logger.Warnf("Job %s created but notification failed: %v", job.ID, err)
	}

	logger.InfoWithFields("Job created", map[string]interface{}{
		"job_id":      job.ID,
		"tier":        job.Tier.String(),
		"target_lang": job.TargetLang,
	})
	return job, nil
}

// GetJob loads a job record by id
func (m *Manager) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return m.store.Get(ctx, jobID)
}

// UpdateJob bumps updated_at and overwrites the full record
func (m *Manager) UpdateJob(ctx context.Context, job *models.Job) error {
	job.UpdatedAt = time.Now().UTC()
	return m.store.Put(ctx, job)
}

// mutate runs a read-modify-write cycle with bounded retries on revision
// conflicts. The mutation is skipped with ErrTerminal when the record has
// already reached a terminal state.
func (m *Manager) mutate(ctx context.Context, jobID string, fn func(*models.Job) error) (*models.Job, error) {
	for attempt := 0; attempt < mutateRetries; attempt++ {
		job, err := m.store.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Status.IsTerminal() {
			return job, ErrTerminal
		}
		if err := fn(job); err != nil {
			return nil, err
		}
		job.UpdatedAt = time.Now().UTC()
		err = m.store.Put(ctx, job)
		if err == nil {
			return job, nil
		}
		if !errors.Is(err, repos.ErrRevisionConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("job %s: %w after %d attempts", jobID, repos.ErrRevisionConflict, mutateRetries)
}

// UpdateProgress advances a job's progress and optionally its processed
// page count. Progress never decreases: a lower value is dropped.
func (m *Manager) UpdateProgress(ctx context.Context, jobID string, progress float64, processedPages *int) error {
	_, err := m.mutate(ctx, jobID, func(job *models.Job) error {
		if progress < job.Progress {
			logger.Debugf("Job %s: ignoring progress regression %.1f -> %.1f", jobID, job.Progress, progress)
		} else {
			job.Progress = progress
		}
		if processedPages != nil {
			job.ProcessedPages = *processedPages
		}
		return nil
	})
	return err
}

// BeginStage marks a job as claimed by a stage worker, transitioning it to
// the stage's in-progress status. A job already carrying that status (set
// by the previous stage's success transition) is left unchanged.
func (m *Manager) BeginStage(ctx context.Context, jobID string, stage models.Stage) (*models.Job, error) {
	return m.mutate(ctx, jobID, func(job *models.Job) error {
		target := stage.InProgressStatus()
		if job.Status == target {
			return nil
		}
		if !job.Status.CanTransitionTo(target) {
			return fmt.Errorf("job %s: invalid transition %s -> %s", jobID, job.Status, target)
		}
		job.Status = target
		return nil
	})
}

// AdvanceStage records a stage's success transition and hands the job to
// the next stage's queue. The record update happens before the enqueue; a
// crash between the two leaves the job recorded but not enqueued, which an
// external sweep must recover (documented limitation).
func (m *Manager) AdvanceStage(ctx context.Context, jobID string, stage models.Stage, progress float64) error {
	next, ok := stage.Next()
	if !ok {
		return fmt.Errorf("stage %s has no next stage", stage)
	}
	_, err := m.mutate(ctx, jobID, func(job *models.Job) error {
		target := next.InProgressStatus()
		if !job.Status.CanTransitionTo(target) {
			return fmt.Errorf("job %s: invalid transition %s -> %s", jobID, job.Status, target)
		}
		job.Status = target
		if progress > job.Progress {
			job.Progress = progress
		}
		return nil
	})
	if err != nil {
		return err
	}
	return m.queues.Push(ctx, next, jobID)
}

// FailJob marks a job FAILED with the given reason. Failing an already
// terminal job is a no-op.
func (m *Manager) FailJob(ctx context.Context, jobID string, reason string) error {
	_, err := m.mutate(ctx, jobID, func(job *models.Job) error {
		job.Status = models.JobStatusFailed
		job.Error = &reason
		return nil
	})
	if errors.Is(err, ErrTerminal) {
		return nil
	}
	return err
}

// CompleteJob marks a job COMPLETED with its final output reference
func (m *Manager) CompleteJob(ctx context.Context, jobID string, outputRef string) error {
	_, err := m.mutate(ctx, jobID, func(job *models.Job) error {
		if !job.Status.CanTransitionTo(models.JobStatusCompleted) {
			return fmt.Errorf("job %s: invalid transition %s -> %s", jobID, job.Status, models.JobStatusCompleted)
		}
		job.Status = models.JobStatusCompleted
		job.Progress = ProgressComplete
		job.FinalOutput = &outputRef
		return nil
	})
	return err
}

// CancelJob requests cooperative cancellation. Completed jobs are
// rejected; an already failed job is left as is. The terminal check rides
// the same read-modify-write cycle as every other mutation, so a job that
// completes concurrently with the cancel is still rejected rather than
// silently accepted.
func (m *Manager) CancelJob(ctx context.Context, jobID string) error {
	reason := CancelledByUser
	job, err := m.mutate(ctx, jobID, func(j *models.Job) error {
		j.Status = models.JobStatusFailed
		j.Error = &reason
		return nil
	})
	if errors.Is(err, ErrTerminal) {
		if job.Status == models.JobStatusCompleted {
			return ErrCancelCompleted
		}
		return nil
	}
	return err
}

// QueueStatus reports the pending entry count for each stage queue
func (m *Manager) QueueStatus(ctx context.Context) (map[models.Stage]int64, error) {
	counts := make(map[models.Stage]int64, len(models.Stages))
	for _, stage := range models.Stages {
		n, err := m.queues.Len(ctx, stage)
		if err != nil {
			return nil, err
		}
		counts[stage] = n
	}
	return counts, nil
}

// ActiveJobs returns non-terminal jobs ordered by creation time descending
func (m *Manager) ActiveJobs(ctx context.Context, limit int) ([]models.Job, error) {
	return m.store.ListActive(ctx, limit)
}
