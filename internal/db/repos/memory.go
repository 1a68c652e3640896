package repos

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

// MemoryStore is an in-memory JobStore and ArtifactStore used in tests and
// single-process runs. It round-trips records through the same flat map
// encoding as the Redis store so codec bugs surface in tests.
type MemoryStore struct {
	mu         sync.Mutex
	jobs       map[string]map[string]string
	pages      map[string][]models.Page
	chunks     map[string][]models.Chunk
	translated map[string]map[int]models.TranslatedChunk
	results    map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:       make(map[string]map[string]string),
		pages:      make(map[string][]models.Page),
		chunks:     make(map[string][]models.Chunk),
		translated: make(map[string]map[int]models.TranslatedChunk),
		results:    make(map[string]string),
	}
}

// Create writes the initial record and sets its revision to 1
func (s *MemoryStore) Create(_ context.Context, job *models.Job) error {
	job.Revision = 1
	if err := job.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return ErrAlreadyExists
	}
	s.jobs[job.ID] = job.ToMap()
	return nil
}

// Get loads a record by id
func (s *MemoryStore) Get(_ context.Context, jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return models.JobFromMap(m)
}

// Put overwrites the record after checking the optimistic revision
func (s *MemoryStore) Put(_ context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	stored, err := models.JobFromMap(m)
	if err != nil {
		return err
	}
	if stored.Revision != job.Revision {
		return ErrRevisionConflict
	}
	job.Revision++
	s.jobs[job.ID] = job.ToMap()
	return nil
}

// ListActive returns non-terminal jobs ordered by created_at descending
func (s *MemoryStore) ListActive(_ context.Context, limit int) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var jobs []models.Job
	for _, m := range s.jobs {
		job, err := models.JobFromMap(m)
		if err != nil {
			return nil, err
		}
		if !job.Status.IsTerminal() {
			jobs = append(jobs, *job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// ListTerminal returns terminal jobs last updated before the given time
func (s *MemoryStore) ListTerminal(_ context.Context, before time.Time) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var jobs []models.Job
	for _, m := range s.jobs {
		job, err := models.JobFromMap(m)
		if err != nil {
			return nil, err
		}
		if job.Status.IsTerminal() && job.UpdatedAt.Before(before) {
			jobs = append(jobs, *job)
		}
	}
	return jobs, nil
}

// Delete removes a record
func (s *MemoryStore) Delete(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

// SavePages stores extracted pages as the extraction artifact
func (s *MemoryStore) SavePages(_ context.Context, jobID string, pages []models.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[jobID] = append([]models.Page(nil), pages...)
	return nil
}

// LoadPages loads the extraction artifact
func (s *MemoryStore) LoadPages(_ context.Context, jobID string) ([]models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages, ok := s.pages[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]models.Page(nil), pages...), nil
}

// SaveChunks stores the chunking artifact
func (s *MemoryStore) SaveChunks(_ context.Context, jobID string, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[jobID] = append([]models.Chunk(nil), chunks...)
	return nil
}

// LoadChunks loads the chunking artifact
func (s *MemoryStore) LoadChunks(_ context.Context, jobID string) ([]models.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunks, ok := s.chunks[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]models.Chunk(nil), chunks...), nil
}

// SaveTranslated stores one translated chunk under its index
func (s *MemoryStore) SaveTranslated(_ context.Context, jobID string, chunk models.TranslatedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.translated[jobID] == nil {
		s.translated[jobID] = make(map[int]models.TranslatedChunk)
	}
	s.translated[jobID][chunk.Index] = chunk
	return nil
}

// LoadTranslated loads all translated chunks ordered by chunk index
func (s *MemoryStore) LoadTranslated(_ context.Context, jobID string) ([]models.TranslatedChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunks := make([]models.TranslatedChunk, 0, len(s.translated[jobID]))
	for _, chunk := range s.translated[jobID] {
		chunks = append(chunks, chunk)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// SaveResult stores the reconstructed output text
func (s *MemoryStore) SaveResult(_ context.Context, jobID string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[jobID] = text
	return nil
}

// LoadResult loads the reconstructed output text
func (s *MemoryStore) LoadResult(_ context.Context, jobID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.results[jobID]
	if !ok {
		return "", ErrNotFound
	}
	return text, nil
}

// DeleteAll drops every artifact belonging to a job
func (s *MemoryStore) DeleteAll(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, jobID)
	delete(s.chunks, jobID)
	delete(s.translated, jobID)
	delete(s.results, jobID)
	return nil
}
