package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
	"github.com/nclamvn/prismy-ultimate/internal/db/repos"
	"github.com/nclamvn/prismy-ultimate/internal/queue"
)

func newTestManager() (*Manager, *queue.MemoryQueue) {
	q := queue.NewMemoryQueue()
	store := repos.NewMemoryStore()
	return NewManager(store, store, q, nil), q
}

func createPendingJob(t *testing.T, m *Manager) *models.Job {
	t.Helper()
	job, err := m.CreateJob(context.Background(), CreateJobParams{
		SourcePath: "storage/uploads/doc.txt",
		SourceLang: "en",
		TargetLang: "vi",
		Tier:       models.TierStandard,
	})
	require.NoError(t, err)
	return job
}

func TestCreateJobEnqueuesForExtraction(t *testing.T) {
	ctx := context.Background()
	m, q := newTestManager()

	job := createPendingJob(t, m)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, float64(0), job.Progress)

	n, err := q.Len(ctx, models.StageExtraction)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	id, ok, err := q.Pop(ctx, models.StageExtraction, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, job.ID, id)
}

func TestUpdateProgressIsMonotonic(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	job := createPendingJob(t, m)

	require.NoError(t, m.UpdateProgress(ctx, job.ID, 25, nil))

	// a stale lower value is dropped, not an error
	require.NoError(t, m.UpdateProgress(ctx, job.ID, 10, nil))

	got, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(25), got.Progress)

	pages := 3
	require.NoError(t, m.UpdateProgress(ctx, job.ID, 40, &pages))
	got, err = m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(40), got.Progress)
	assert.Equal(t, 3, got.ProcessedPages)
}

func TestBeginStage(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	job := createPendingJob(t, m)

	got, err := m.BeginStage(ctx, job.ID, models.StageExtraction)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusExtracting, got.Status)

	// claiming a job already carrying the stage's status is a no-op
	got, err = m.BeginStage(ctx, job.ID, models.StageExtraction)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusExtracting, got.Status)

	// skipping a stage is not a valid transition
	_, err = m.BeginStage(ctx, job.ID, models.StageTranslation)
	assert.Error(t, err)
}

func TestBeginStageOnTerminalJob(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	job := createPendingJob(t, m)

	require.NoError(t, m.FailJob(ctx, job.ID, "boom"))

	_, err := m.BeginStage(ctx, job.ID, models.StageExtraction)
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestAdvanceStage(t *testing.T) {
	ctx := context.Background()
	m, q := newTestManager()
	job := createPendingJob(t, m)

	_, err := m.BeginStage(ctx, job.ID, models.StageExtraction)
	require.NoError(t, err)

	require.NoError(t, m.AdvanceStage(ctx, job.ID, models.StageExtraction, ProgressExtractionDone))

	got, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusChunking, got.Status)
	assert.Equal(t, ProgressExtractionDone, got.Progress)

	id, ok, err := q.Pop(ctx, models.StageChunking, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, job.ID, id)
}

func TestAdvanceStagePastLastStage(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	job := createPendingJob(t, m)

	err := m.AdvanceStage(ctx, job.ID, models.StageReconstruction, 90)
	assert.Error(t, err)
}

func TestFailJob(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	job := createPendingJob(t, m)

	require.NoError(t, m.FailJob(ctx, job.ID, "extraction produced no text"))

	got, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "extraction produced no text", *got.Error)

	// failing an already terminal job is a no-op, first reason wins
	require.NoError(t, m.FailJob(ctx, job.ID, "second reason"))
	got, err = m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "extraction produced no text", *got.Error)
}

func TestCompleteJob(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	job := createPendingJob(t, m)

	// completion is only valid from RECONSTRUCTING
	assert.Error(t, m.CompleteJob(ctx, job.ID, "result:"+job.ID))

	for _, stage := range models.Stages {
		_, err := m.BeginStage(ctx, job.ID, stage)
		require.NoError(t, err)
	}
	require.NoError(t, m.CompleteJob(ctx, job.ID, "result:"+job.ID))

	got, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, ProgressComplete, got.Progress)
	require.NotNil(t, got.FinalOutput)
	assert.Equal(t, "result:"+job.ID, *got.FinalOutput)
}

func TestCancelJob(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	job := createPendingJob(t, m)

	require.NoError(t, m.CancelJob(ctx, job.ID))

	got, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, CancelledByUser, *got.Error)

	// cancelling an already failed job is idempotent
	assert.NoError(t, m.CancelJob(ctx, job.ID))
}

func TestCancelCompletedJob(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	job := createPendingJob(t, m)

	for _, stage := range models.Stages {
		_, err := m.BeginStage(ctx, job.ID, stage)
		require.NoError(t, err)
	}
	require.NoError(t, m.CompleteJob(ctx, job.ID, "result:"+job.ID))

	assert.ErrorIs(t, m.CancelJob(ctx, job.ID), ErrCancelCompleted)
}

// completeOnPutStore completes the stored record out from under the first
// Put and reports a conflict, simulating a reconstruction worker finishing
// the job concurrently with another writer
type completeOnPutStore struct {
	*repos.MemoryStore
	fired bool
}

func (s *completeOnPutStore) Put(ctx context.Context, job *models.Job) error {
	if !s.fired {
		s.fired = true
		stored, err := s.MemoryStore.Get(ctx, job.ID)
		if err != nil {
			return err
		}
		stored.Status = models.JobStatusCompleted
		stored.Progress = ProgressComplete
		out := "result:" + job.ID
		stored.FinalOutput = &out
		if err := s.MemoryStore.Put(ctx, stored); err != nil {
			return err
		}
		return repos.ErrRevisionConflict
	}
	return s.MemoryStore.Put(ctx, job)
}

func TestCancelRacingCompletionIsRejected(t *testing.T) {
	ctx := context.Background()
	store := &completeOnPutStore{MemoryStore: repos.NewMemoryStore()}
	q := queue.NewMemoryQueue()
	m := NewManager(store, store.MemoryStore, q, nil)

	job, err := m.CreateJob(ctx, CreateJobParams{
		SourcePath: "storage/uploads/doc.txt",
		SourceLang: "en",
		TargetLang: "vi",
		Tier:       models.TierStandard,
	})
	require.NoError(t, err)

	// the conflict retry re-reads the now-completed record and must
	// reject the cancel instead of reporting success
	assert.ErrorIs(t, m.CancelJob(ctx, job.ID), ErrCancelCompleted)

	got, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Nil(t, got.Error)
}

func TestQueueStatus(t *testing.T) {
	ctx := context.Background()
	m, q := newTestManager()

	createPendingJob(t, m)
	createPendingJob(t, m)
	require.NoError(t, q.Push(ctx, models.StageTranslation, "job-x"))

	counts, err := m.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.StageExtraction])
	assert.Equal(t, int64(0), counts[models.StageChunking])
	assert.Equal(t, int64(1), counts[models.StageTranslation])
	assert.Equal(t, int64(0), counts[models.StageReconstruction])
}

func TestCreateJobsConcurrently(t *testing.T) {
	ctx := context.Background()
	m, q := newTestManager()

	const n = 20
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := m.CreateJob(ctx, CreateJobParams{
				SourcePath: "storage/uploads/doc.txt",
				SourceLang: "en",
				TargetLang: "vi",
				Tier:       models.TierStandard,
			})
			if !assert.NoError(t, err) {
				return
			}
			ids <- job.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "duplicate job id %s", id)
		seen[id] = true
		_, err := m.GetJob(ctx, id)
		assert.NoError(t, err)
	}
	require.Len(t, seen, n)

	depth, err := q.Len(ctx, models.StageExtraction)
	require.NoError(t, err)
	assert.Equal(t, int64(n), depth)
}

func TestActiveJobs(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	a := createPendingJob(t, m)
	b := createPendingJob(t, m)
	require.NoError(t, m.FailJob(ctx, b.ID, "boom"))

	jobs, err := m.ActiveJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, a.ID, jobs[0].ID)
}
