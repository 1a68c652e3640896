package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
	"github.com/nclamvn/prismy-ultimate/internal/logger"
	"github.com/nclamvn/prismy-ultimate/internal/translate"
)

// batchDelimiter separates chunks inside a single batched provider call.
// The marker must survive translation untouched, which is why batching is
// only attempted for small jobs and falls back to per-chunk calls.
const batchDelimiter = "\n" + translate.ChunkDelimiter + "\n"

// DefaultBatchThreshold is the chunk count at or below which a single
// batched provider call is attempted
const DefaultBatchThreshold = 10

// TranslationProcessor translates chunks through the provider collaborator,
// updating processed pages and progress incrementally so pollers see
// continuous advancement.
type TranslationProcessor struct {
	manager        *Manager
	translator     translate.Translator
	batchThreshold int
}

// NewTranslationProcessor creates the translation stage processor
func NewTranslationProcessor(m *Manager, translator translate.Translator, batchThreshold int) *TranslationProcessor {
	if batchThreshold <= 0 {
		batchThreshold = DefaultBatchThreshold
	}
	return &TranslationProcessor{manager: m, translator: translator, batchThreshold: batchThreshold}
}

// Stage implements Processor
func (p *TranslationProcessor) Stage() models.Stage {
	return models.StageTranslation
}

// Process implements Processor
func (p *TranslationProcessor) Process(ctx context.Context, job *models.Job) error {
	if err := p.manager.UpdateProgress(ctx, job.ID, ProgressTranslationStart, nil); err != nil {
		return err
	}

	chunks, err := p.manager.Artifacts().LoadChunks(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}

	if len(chunks) > 0 {
		translated, batched := p.translateBatched(ctx, job, chunks)
		if batched {
			if err := p.saveAll(ctx, job, chunks, translated); err != nil {
				return err
			}
		} else if err := p.translateIndividually(ctx, job, chunks); err != nil {
			return err
		}
	}

	outputRef := "translated:" + job.ID
	if _, err := p.manager.mutate(ctx, job.ID, func(j *models.Job) error {
		j.TranslationOutput = &outputRef
		return nil
	}); err != nil {
		return err
	}

	return p.manager.AdvanceStage(ctx, job.ID, models.StageTranslation, ProgressTranslationDone)
}

// translateBatched attempts one provider call for all chunks. It reports
// ok == false when the call failed or the reply did not split back into
// the expected number of chunks; the caller then falls back to per-chunk
// translation.
func (p *TranslationProcessor) translateBatched(ctx context.Context, job *models.Job, chunks []models.Chunk) ([]string, bool) {
	if len(chunks) > p.batchThreshold {
		return nil, false
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	combined, err := p.translator.Translate(ctx, strings.Join(texts, batchDelimiter), job.SourceLang, job.TargetLang, job.Tier)
	if err != nil {
		logger.Warnf("Job %s: batched translation failed, falling back to per-chunk calls: %v", job.ID, err)
		return nil, false
	}
	parts := strings.Split(combined, strings.TrimSpace(batchDelimiter))
	if len(parts) != len(chunks) {
		logger.Warnf("Job %s: batched translation returned %d parts for %d chunks, falling back", job.ID, len(parts), len(chunks))
		return nil, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, true
}

// saveAll persists a successful batched result with one progress update
// per chunk so observed progress still climbs smoothly
func (p *TranslationProcessor) saveAll(ctx context.Context, job *models.Job, chunks []models.Chunk, translated []string) error {
	lastChunkOfPage := lastChunkIndexPerPage(chunks)
	processed := 0
	for i, c := range chunks {
		if err := p.manager.Artifacts().SaveTranslated(ctx, job.ID, models.TranslatedChunk{
			Chunk:      c,
			Translated: translated[i],
		}); err != nil {
			return fmt.Errorf("failed to store translated chunk %d: %w", c.Index, err)
		}
		if lastChunkOfPage[c.Page] == c.Index {
			processed++
		}
		if err := p.manager.UpdateProgress(ctx, job.ID, translationProgress(i+1, len(chunks)), &processed); err != nil {
			return err
		}
	}
	return nil
}

// translateIndividually translates and persists one chunk at a time
func (p *TranslationProcessor) translateIndividually(ctx context.Context, job *models.Job, chunks []models.Chunk) error {
	lastChunkOfPage := lastChunkIndexPerPage(chunks)
	processed := 0
	for i, c := range chunks {
		translated, err := p.translator.Translate(ctx, c.Text, job.SourceLang, job.TargetLang, job.Tier)
		if err != nil {
			return fmt.Errorf("translation provider error on chunk %d: %w", c.Index, err)
		}
		if err := p.manager.Artifacts().SaveTranslated(ctx, job.ID, models.TranslatedChunk{
			Chunk:      c,
			Translated: translated,
		}); err != nil {
			return fmt.Errorf("failed to store translated chunk %d: %w", c.Index, err)
		}
		if lastChunkOfPage[c.Page] == c.Index {
			processed++
		}
		if err := p.manager.UpdateProgress(ctx, job.ID, translationProgress(i+1, len(chunks)), &processed); err != nil {
			return err
		}
	}
	return nil
}

// lastChunkIndexPerPage maps each page to the index of its final chunk,
// so processed_pages counts only fully translated pages
func lastChunkIndexPerPage(chunks []models.Chunk) map[int]int {
	last := make(map[int]int)
	for _, c := range chunks {
		if idx, ok := last[c.Page]; !ok || c.Index > idx {
			last[c.Page] = c.Index
		}
	}
	return last
}
