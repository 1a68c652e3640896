package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
	"github.com/nclamvn/prismy-ultimate/internal/extract"
)

// ExtractionProcessor runs the extraction stage: it delegates to the
// extractor collaborator, persists the page artifact, and hands the job
// to chunking.
type ExtractionProcessor struct {
	manager   *Manager
	extractor extract.Extractor
}

// NewExtractionProcessor creates the extraction stage processor
func NewExtractionProcessor(m *Manager, extractor extract.Extractor) *ExtractionProcessor {
	return &ExtractionProcessor{manager: m, extractor: extractor}
}

// Stage implements Processor
func (p *ExtractionProcessor) Stage() models.Stage {
	return models.StageExtraction
}

// Process implements Processor
func (p *ExtractionProcessor) Process(ctx context.Context, job *models.Job) error {
	if err := p.manager.UpdateProgress(ctx, job.ID, ProgressExtractionStart, nil); err != nil {
		return err
	}

	pages, err := p.extractor.Extract(ctx, job.SourcePath)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	if !hasText(pages) {
		return fmt.Errorf("extraction produced no text from %s", job.SourcePath)
	}

	if err := p.manager.Artifacts().SavePages(ctx, job.ID, pages); err != nil {
		return fmt.Errorf("failed to store extracted pages: %w", err)
	}

	outputRef := "pages:" + job.ID
	totalPages := len(pages)
	if _, err := p.manager.mutate(ctx, job.ID, func(j *models.Job) error {
		j.TotalPages = totalPages
		j.ExtractionOutput = &outputRef
		if ProgressExtractionDone > j.Progress {
			j.Progress = ProgressExtractionDone
		}
		return nil
	}); err != nil {
		return err
	}

	return p.manager.AdvanceStage(ctx, job.ID, models.StageExtraction, ProgressExtractionDone)
}

func hasText(pages []models.Page) bool {
	for _, page := range pages {
		if strings.TrimSpace(page.Text) != "" {
			return true
		}
	}
	return false
}
