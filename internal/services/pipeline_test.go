package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nclamvn/prismy-ultimate/internal/chunk"
	"github.com/nclamvn/prismy-ultimate/internal/db/models"
	"github.com/nclamvn/prismy-ultimate/internal/db/repos"
	"github.com/nclamvn/prismy-ultimate/internal/queue"
	"github.com/nclamvn/prismy-ultimate/internal/translate"
)

// fakeExtractor returns fixed pages regardless of the source path
type fakeExtractor struct {
	pages []models.Page
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) ([]models.Page, error) {
	return f.pages, f.err
}

// pipelineHarness runs the full worker topology against in-memory
// infrastructure
type pipelineHarness struct {
	manager *Manager
	store   *repos.MemoryStore
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
}

func startPipeline(t *testing.T, extractor *fakeExtractor, translator translate.Translator) *pipelineHarness {
	t.Helper()

	store := repos.NewMemoryStore()
	q := queue.NewMemoryQueue()
	manager := NewManager(store, store, q, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	LaunchWorkers(ctx, &wg, manager, q, 20*time.Millisecond, PoolConfig{
		Extraction:     1,
		Chunking:       1,
		Translation:    1,
		Reconstruction: 1,
	},
		NewExtractionProcessor(manager, extractor),
		NewChunkingProcessor(manager, chunk.NewSplitter(chunk.DefaultChunkSize)),
		NewTranslationProcessor(manager, translator, DefaultBatchThreshold),
		NewReconstructionProcessor(manager, ""),
	)

	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	return &pipelineHarness{manager: manager, store: store, cancel: cancel, wg: &wg}
}

func (h *pipelineHarness) waitForTerminal(t *testing.T, jobID string) *models.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := h.manager.GetJob(context.Background(), jobID)
		require.NoError(t, err)
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", jobID)
	return nil
}

func TestPipelineEndToEnd(t *testing.T) {
	extractor := &fakeExtractor{pages: []models.Page{
		{Number: 1, Text: "Hello from the first page."},
		{Number: 2, Text: "The second page has more text."},
		{Number: 3, Text: "And a closing third page."},
	}}
	h := startPipeline(t, extractor, translate.Mock{})

	job, err := h.manager.CreateJob(context.Background(), CreateJobParams{
		SourcePath: "storage/uploads/doc.txt",
		SourceLang: "en",
		TargetLang: "vi",
		Tier:       models.TierStandard,
	})
	require.NoError(t, err)

	final := h.waitForTerminal(t, job.ID)
	require.Equal(t, models.JobStatusCompleted, final.Status)
	assert.Equal(t, ProgressComplete, final.Progress)
	assert.Equal(t, 3, final.TotalPages)
	assert.Equal(t, 3, final.ProcessedPages)

	require.NotNil(t, final.ExtractionOutput)
	assert.Equal(t, "pages:"+job.ID, *final.ExtractionOutput)
	require.NotNil(t, final.TranslationOutput)
	assert.Equal(t, "translated:"+job.ID, *final.TranslationOutput)
	require.NotNil(t, final.FinalOutput)
	assert.Equal(t, "result:"+job.ID, *final.FinalOutput)
	assert.Nil(t, final.Error)

	result, err := h.store.LoadResult(context.Background(), job.ID)
	require.NoError(t, err)
	for page := 1; page <= 3; page++ {
		assert.Contains(t, result, fmt.Sprintf("--- Page %d ---", page))
	}
	assert.Contains(t, result, "[TRANSLATED from en to vi]: Hello from the first page.")
	assert.Equal(t, 3, strings.Count(result, "[TRANSLATED from en to vi]"))
}

func TestPipelineFailsOnEmptyExtraction(t *testing.T) {
	extractor := &fakeExtractor{pages: []models.Page{
		{Number: 1, Text: "   "},
	}}
	h := startPipeline(t, extractor, translate.Mock{})

	job, err := h.manager.CreateJob(context.Background(), CreateJobParams{
		SourcePath: "storage/uploads/blank.txt",
		SourceLang: "en",
		TargetLang: "vi",
		Tier:       models.TierBasic,
	})
	require.NoError(t, err)

	final := h.waitForTerminal(t, job.ID)
	require.Equal(t, models.JobStatusFailed, final.Status)
	require.NotNil(t, final.Error)
	assert.Contains(t, *final.Error, "no text")
	assert.Nil(t, final.FinalOutput)
}

func TestPipelineFailsOnExtractorError(t *testing.T) {
	extractor := &fakeExtractor{err: fmt.Errorf("corrupt document")}
	h := startPipeline(t, extractor, translate.Mock{})

	job, err := h.manager.CreateJob(context.Background(), CreateJobParams{
		SourcePath: "storage/uploads/broken.pdf",
		SourceLang: "en",
		TargetLang: "de",
		Tier:       models.TierStandard,
	})
	require.NoError(t, err)

	final := h.waitForTerminal(t, job.ID)
	require.Equal(t, models.JobStatusFailed, final.Status)
	require.NotNil(t, final.Error)
	assert.Contains(t, *final.Error, "corrupt document")
}

// failingTranslator fails every call so the translation stage fails the job
type failingTranslator struct{}

func (failingTranslator) Translate(context.Context, string, string, string, models.Tier) (string, error) {
	return "", fmt.Errorf("provider unavailable")
}

func TestPipelineFailsOnTranslationError(t *testing.T) {
	extractor := &fakeExtractor{pages: []models.Page{
		{Number: 1, Text: "Some text to translate."},
	}}
	h := startPipeline(t, extractor, failingTranslator{})

	job, err := h.manager.CreateJob(context.Background(), CreateJobParams{
		SourcePath: "storage/uploads/doc.txt",
		SourceLang: "en",
		TargetLang: "ja",
		Tier:       models.TierPremium,
	})
	require.NoError(t, err)

	final := h.waitForTerminal(t, job.ID)
	require.Equal(t, models.JobStatusFailed, final.Status)
	require.NotNil(t, final.Error)
	assert.Contains(t, *final.Error, "provider unavailable")
}

// delimiterAwareTranslator translates each delimiter-separated part on its
// own, the contract a real provider is prompted to honor for batched calls
type delimiterAwareTranslator struct{}

func (delimiterAwareTranslator) Translate(_ context.Context, text, sourceLang, targetLang string, _ models.Tier) (string, error) {
	parts := strings.Split(text, translate.ChunkDelimiter)
	for i, p := range parts {
		parts[i] = fmt.Sprintf("[%s->%s] %s", sourceLang, targetLang, strings.TrimSpace(p))
	}
	return strings.Join(parts, translate.ChunkDelimiter), nil
}

func TestTranslateBatched(t *testing.T) {
	ctx := context.Background()
	store := repos.NewMemoryStore()
	q := queue.NewMemoryQueue()
	m := NewManager(store, store, q, nil)

	job, err := m.CreateJob(ctx, CreateJobParams{
		SourcePath: "storage/uploads/doc.txt",
		SourceLang: "en",
		TargetLang: "vi",
		Tier:       models.TierStandard,
	})
	require.NoError(t, err)

	chunks := []models.Chunk{
		{Index: 0, Page: 1, Text: "first chunk"},
		{Index: 1, Page: 1, Text: "second chunk"},
		{Index: 2, Page: 2, Text: "third chunk"},
	}
	require.NoError(t, store.SaveChunks(ctx, job.ID, chunks))

	p := NewTranslationProcessor(m, delimiterAwareTranslator{}, DefaultBatchThreshold)
	translated, ok := p.translateBatched(ctx, job, chunks)
	require.True(t, ok)
	require.Len(t, translated, 3)
	assert.Equal(t, "[en->vi] first chunk", translated[0])
	assert.Equal(t, "[en->vi] third chunk", translated[2])
}

func TestTranslateBatchedWithMockMarksEveryChunk(t *testing.T) {
	ctx := context.Background()
	store := repos.NewMemoryStore()
	q := queue.NewMemoryQueue()
	m := NewManager(store, store, q, nil)

	job := &models.Job{ID: "job-1", SourceLang: "en", TargetLang: "vi", Tier: models.TierStandard}
	chunks := []models.Chunk{
		{Index: 0, Page: 1, Text: "first chunk"},
		{Index: 1, Page: 1, Text: "second chunk"},
		{Index: 2, Page: 2, Text: "third chunk"},
	}

	// the default wiring batches small jobs through the mock; every chunk
	// must come back marked, none passed through verbatim
	p := NewTranslationProcessor(m, translate.Mock{}, DefaultBatchThreshold)
	translated, ok := p.translateBatched(ctx, job, chunks)
	require.True(t, ok)
	require.Len(t, translated, 3)
	for i, got := range translated {
		assert.Equal(t, fmt.Sprintf("[TRANSLATED from en to vi]: %s", chunks[i].Text), got)
	}
}

func TestTranslateBatchedFallsBackOverThreshold(t *testing.T) {
	ctx := context.Background()
	store := repos.NewMemoryStore()
	q := queue.NewMemoryQueue()
	m := NewManager(store, store, q, nil)

	job := &models.Job{ID: "job-1", SourceLang: "en", TargetLang: "vi", Tier: models.TierBasic}
	chunks := make([]models.Chunk, 5)
	for i := range chunks {
		chunks[i] = models.Chunk{Index: i, Page: 1, Text: fmt.Sprintf("chunk %d", i)}
	}

	p := NewTranslationProcessor(m, delimiterAwareTranslator{}, 3)
	_, ok := p.translateBatched(ctx, job, chunks)
	assert.False(t, ok, "batching must not run above the threshold")
}

func TestTranslateBatchedFallsBackOnBadSplit(t *testing.T) {
	ctx := context.Background()
	store := repos.NewMemoryStore()
	q := queue.NewMemoryQueue()
	m := NewManager(store, store, q, nil)

	job := &models.Job{ID: "job-1", SourceLang: "en", TargetLang: "vi", Tier: models.TierBasic}
	chunks := []models.Chunk{
		{Index: 0, Page: 1, Text: "first"},
		{Index: 1, Page: 1, Text: "second"},
	}

	// a translator that swallows delimiters breaks the part count and
	// must trigger the per-chunk fallback
	swallow := translatorFunc(func(_ context.Context, text, _, _ string, _ models.Tier) (string, error) {
		return strings.ReplaceAll(text, translate.ChunkDelimiter, " "), nil
	})
	p := NewTranslationProcessor(m, swallow, DefaultBatchThreshold)
	_, ok := p.translateBatched(ctx, job, chunks)
	assert.False(t, ok)
}

// translatorFunc adapts a function to the Translator interface
type translatorFunc func(ctx context.Context, text, sourceLang, targetLang string, tier models.Tier) (string, error)

func (f translatorFunc) Translate(ctx context.Context, text, sourceLang, targetLang string, tier models.Tier) (string, error) {
	return f(ctx, text, sourceLang, targetLang, tier)
}

func TestCancelDuringPipeline(t *testing.T) {
	ctx := context.Background()

	// a slow translator holds the job in TRANSLATING long enough to cancel
	started := make(chan struct{}, 1)
	slow := translatorFunc(func(ctx context.Context, text, sourceLang, targetLang string, _ models.Tier) (string, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return "[slow] " + text, nil
	})

	extractor := &fakeExtractor{pages: []models.Page{
		{Number: 1, Text: "Page to cancel mid-flight."},
	}}
	h := startPipeline(t, extractor, slow)

	job, err := h.manager.CreateJob(ctx, CreateJobParams{
		SourcePath: "storage/uploads/doc.txt",
		SourceLang: "en",
		TargetLang: "vi",
		Tier:       models.TierStandard,
	})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("translation never started")
	}
	require.NoError(t, h.manager.CancelJob(ctx, job.ID))

	final := h.waitForTerminal(t, job.ID)
	require.Equal(t, models.JobStatusFailed, final.Status)
	require.NotNil(t, final.Error)
	assert.Equal(t, CancelledByUser, *final.Error)

	// the cancelled record must stay FAILED once the worker unwinds
	time.Sleep(300 * time.Millisecond)
	after, err := h.manager.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, after.Status)
	assert.Equal(t, CancelledByUser, *after.Error)
}
