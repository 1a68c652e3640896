package services

import (
	"context"
	"sync"
	"time"

	"github.com/nclamvn/prismy-ultimate/internal/db/archive"
	"github.com/nclamvn/prismy-ultimate/internal/db/models"
	"github.com/nclamvn/prismy-ultimate/internal/db/repos"
	"github.com/nclamvn/prismy-ultimate/internal/logger"
)

// SweepStore is the extended store surface the janitor sweeps over.
// Record deletion is an administrative action; the pipeline itself never
// deletes records, which is why this lives outside JobStore's contract.
type SweepStore interface {
	repos.JobStore
	ListTerminal(ctx context.Context, before time.Time) ([]models.Job, error)
}

// Janitor periodically archives terminal jobs older than the TTL into the
// relational archive and removes them, with their artifacts, from the
// record store. A nil archive skips archival and only deletes.
type Janitor struct {
	store     SweepStore
	artifacts repos.ArtifactStore
	archive   *archive.Archive
	ttl       time.Duration
	interval  time.Duration
}

// NewJanitor creates a janitor sweeping every interval
func NewJanitor(store SweepStore, artifacts repos.ArtifactStore, arc *archive.Archive, ttl, interval time.Duration) *Janitor {
	return &Janitor{store: store, artifacts: artifacts, archive: arc, ttl: ttl, interval: interval}
}

// Run sweeps until ctx is cancelled
func (j *Janitor) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	logger.Infof("Janitor started (ttl=%s interval=%s)", j.ttl, j.interval)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Janitor received shutdown signal, stopping...")
			return
		case <-ticker.C:
			if n, err := j.SweepOnce(ctx); err != nil {
				logger.Errorf("Janitor sweep failed: %v", err)
			} else if n > 0 {
				logger.Infof("Janitor swept %d terminal jobs", n)
			}
		}
	}
}

// SweepOnce archives and deletes one batch of expired terminal jobs,
// returning how many were removed. A job whose archive write fails is
// kept for the next sweep.
func (j *Janitor) SweepOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-j.ttl)
	jobs, err := j.store.ListTerminal(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range jobs {
		job := jobs[i]
		if j.archive != nil {
			if err := j.archive.Save(ctx, &job); err != nil {
				logger.Errorf("Janitor: failed to archive job %s, keeping it: %v", job.ID, err)
				continue
			}
		}
		if err := j.artifacts.DeleteAll(ctx, job.ID); err != nil {
			logger.Errorf("Janitor: failed to delete artifacts for job %s: %v", job.ID, err)
			continue
		}
		if err := j.store.Delete(ctx, job.ID); err != nil {
			logger.Errorf("Janitor: failed to delete job %s: %v", job.ID, err)
			continue
		}
		swept++
	}
	return swept, nil
}
