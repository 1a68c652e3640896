package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

const (
	jobKeyPrefix        = "prismy:job:"
	pagesKeyPrefix      = "prismy:pages:"
	chunksKeyPrefix     = "prismy:chunks:"
	translatedKeyPrefix = "prismy:translated:"
	resultKeyPrefix     = "prismy:result:"

	// artifactTTL bounds how long intermediate stage products live
	artifactTTL = 24 * time.Hour
)

// createScript writes a new job hash only when the key does not exist yet.
// ARGV is a flat field/value list.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// putScript overwrites the job hash only when the stored revision matches
// ARGV[1]. The remaining ARGV entries are the new field/value list, already
// carrying the bumped revision.
var putScript = redis.NewScript(`
local rev = redis.call('HGET', KEYS[1], 'revision')
if not rev then
  return -1
end
if rev ~= ARGV[1] then
  return 0
end
redis.call('DEL', KEYS[1])
for i = 2, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i+1])
end
return 1
`)

// RedisStore persists job records as Redis hashes and stage artifacts as
// JSON values, matching the flat wire format documented on models.Job
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store backed by the given Redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func flatten(m map[string]string) []interface{} {
	args := make([]interface{}, 0, len(m)*2)
	for k, v := range m {
		args = append(args, k, v)
	}
	return args
}

// Create writes the initial record and sets its revision to 1
func (s *RedisStore) Create(ctx context.Context, job *models.Job) error {
	job.Revision = 1
	if err := job.Validate(); err != nil {
		return err
	}
	n, err := createScript.Run(ctx, s.client, []string{jobKeyPrefix + job.ID}, flatten(job.ToMap())...).Int()
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", job.ID, err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Get loads a record by id
func (s *RedisStore) Get(ctx context.Context, jobID string) (*models.Job, error) {
	m, err := s.client.HGetAll(ctx, jobKeyPrefix+jobID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	if len(m) == 0 {
		return nil, ErrNotFound
	}
	return models.JobFromMap(m)
}

// Put overwrites the record after checking the optimistic revision
func (s *RedisStore) Put(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	expected := job.Revision
	job.Revision = expected + 1
	args := append([]interface{}{strconv.FormatInt(expected, 10)}, flatten(job.ToMap())...)
	n, err := putScript.Run(ctx, s.client, []string{jobKeyPrefix + job.ID}, args...).Int()
	if err != nil {
		job.Revision = expected
		return fmt.Errorf("failed to put job %s: %w", job.ID, err)
	}
	switch n {
	case -1:
		job.Revision = expected
		return ErrNotFound
	case 0:
		job.Revision = expected
		return ErrRevisionConflict
	}
	return nil
}

// ListActive scans the job keyspace and returns non-terminal jobs ordered
// by created_at descending
func (s *RedisStore) ListActive(ctx context.Context, limit int) ([]models.Job, error) {
	var jobs []models.Job
	iter := s.client.Scan(ctx, 0, jobKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		m, err := s.client.HGetAll(ctx, iter.Val()).Result()
		if err != nil || len(m) == 0 {
			continue
		}
		job, err := models.JobFromMap(m)
		if err != nil {
			continue
		}
		if !job.Status.IsTerminal() {
			jobs = append(jobs, *job)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan jobs: %w", err)
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
func (s *RedisStore) ListTerminal(ctx context.Context, before time.Time) ([]models.Job, error) {
	var jobs []models.Job
	iter := s.client.Scan(ctx, 0, jobKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		m, err := s.client.HGetAll(ctx, iter.Val()).Result()
		if err != nil || len(m) == 0 {
			continue
		}
		job, err := models.JobFromMap(m)
		if err != nil {
			continue
		}
		if job.Status.IsTerminal() && job.UpdatedAt.Before(before) {
			jobs = append(jobs, *job)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan jobs: %w", err)
	}
	return jobs, nil
}

// Delete removes a record
func (s *RedisStore) Delete(ctx context.Context, jobID string) error {
	return s.client.Del(ctx, jobKeyPrefix+jobID).Err()
}

// SavePages stores extracted pages as the extraction artifact
func (s *RedisStore) SavePages(ctx context.Context, jobID string, pages []models.Page) error {
	return s.saveJSON(ctx, pagesKeyPrefix+jobID, pages)
}

// LoadPages loads the extraction artifact
func (s *RedisStore) LoadPages(ctx context.Context, jobID string) ([]models.Page, error) {
	var pages []models.Page
	err := s.loadJSON(ctx, pagesKeyPrefix+jobID, &pages)
	return pages, err
}

// SaveChunks stores the chunking artifact
func (s *RedisStore) SaveChunks(ctx context.Context, jobID string, chunks []models.Chunk) error {
	return s.saveJSON(ctx, chunksKeyPrefix+jobID, chunks)
}

// LoadChunks loads the chunking artifact
func (s *RedisStore) LoadChunks(ctx context.Context, jobID string) ([]models.Chunk, error) {
	var chunks []models.Chunk
	err := s.loadJSON(ctx, chunksKeyPrefix+jobID, &chunks)
	return chunks, err
}

// SaveTranslated stores one translated chunk under its index
func (s *RedisStore) SaveTranslated(ctx context.Context, jobID string, chunk models.TranslatedChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	key := translatedKeyPrefix + jobID
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(chunk.Index), data)
	pipe.Expire(ctx, key, artifactTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// LoadTranslated loads all translated chunks ordered by chunk index
func (s *RedisStore) LoadTranslated(ctx context.Context, jobID string) ([]models.TranslatedChunk, error) {
	m, err := s.client.HGetAll(ctx, translatedKeyPrefix+jobID).Result()
	if err != nil {
		return nil, err
	}
	chunks := make([]models.TranslatedChunk, 0, len(m))
	for _, raw := range m {
		var chunk models.TranslatedChunk
		if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
			return nil, fmt.Errorf("corrupt translated chunk for job %s: %w", jobID, err)
		}
		chunks = append(chunks, chunk)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// SaveResult stores the reconstructed output text
func (s *RedisStore) SaveResult(ctx context.Context, jobID string, text string) error {
	return s.client.Set(ctx, resultKeyPrefix+jobID, text, artifactTTL).Err()
}

// LoadResult loads the reconstructed output text
func (s *RedisStore) LoadResult(ctx context.Context, jobID string) (string, error) {
	text, err := s.client.Get(ctx, resultKeyPrefix+jobID).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return text, err
}

// DeleteAll drops every artifact belonging to a job
func (s *RedisStore) DeleteAll(ctx context.Context, jobID string) error {
	return s.client.Del(ctx,
		pagesKeyPrefix+jobID,
		chunksKeyPrefix+jobID,
		translatedKeyPrefix+jobID,
		resultKeyPrefix+jobID,
	).Err()
}

func (s *RedisStore) saveJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, artifactTTL).Err()
}

func (s *RedisStore) loadJSON(ctx context.Context, key string, v interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
