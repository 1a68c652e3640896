// Package repos provides persistence for job records and stage artifacts.
package repos

import (
	"context"
	"errors"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

// Store errors
var (
	// ErrNotFound is returned when no record exists for a job id
	ErrNotFound = errors.New("job not found")
	// ErrAlreadyExists is returned when creating a record whose id is taken
	ErrAlreadyExists = errors.New("job already exists")
	// ErrRevisionConflict is returned when a Put carries a stale revision
	ErrRevisionConflict = errors.New("job revision conflict")
)

// JobStore is the shared record store holding one serialized record per job.
//
// The store provides no field-level patching: callers must read the whole
// record, modify it, and Put it back. Put performs an optimistic revision
// check — the record's Revision must match the stored one — so two workers
// racing on the same record cannot silently lose an update.
type JobStore interface {
	// Create writes the initial record and sets its revision to 1
	Create(ctx context.Context, job *models.Job) error
	// Get loads a record by id, returning ErrNotFound when absent
	Get(ctx context.Context, jobID string) (*models.Job, error)
	// Put overwrites the full record when job.Revision matches the stored
	// revision, then bumps both; otherwise returns ErrRevisionConflict
	Put(ctx context.Context, job *models.Job) error
	// ListActive returns non-terminal jobs ordered by created_at descending
	ListActive(ctx context.Context, limit int) ([]models.Job, error)
	// Delete removes a record. Administrative use only; the pipeline
	// itself never deletes records.
	Delete(ctx context.Context, jobID string) error
}

// ArtifactStore holds the intermediate products each stage hands to the next
type ArtifactStore interface {
	SavePages(ctx context.Context, jobID string, pages []models.Page) error
	LoadPages(ctx context.Context, jobID string) ([]models.Page, error)

	SaveChunks(ctx context.Context, jobID string, chunks []models.Chunk) error
	LoadChunks(ctx context.Context, jobID string) ([]models.Chunk, error)

	// SaveTranslated stores a single translated chunk so translation
	// progress survives incrementally
	SaveTranslated(ctx context.Context, jobID string, chunk models.TranslatedChunk) error
	LoadTranslated(ctx context.Context, jobID string) ([]models.TranslatedChunk, error)

	SaveResult(ctx context.Context, jobID string, text string) error
	LoadResult(ctx context.Context, jobID string) (string, error)

	// DeleteAll drops every artifact belonging to a job
	DeleteAll(ctx context.Context, jobID string) error
}
