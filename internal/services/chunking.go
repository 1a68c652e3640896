package services

import (
	"context"
	"fmt"

	"github.com/nclamvn/prismy-ultimate/internal/chunk"
	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

// ChunkingProcessor splits extracted pages into bounded-size chunks and
// passes the job straight through to translation. The stage contributes
// no progress of its own beyond the hand-off buffer.
type ChunkingProcessor struct {
	manager  *Manager
	splitter *chunk.Splitter
}

// NewChunkingProcessor creates the chunking stage processor
func NewChunkingProcessor(m *Manager, splitter *chunk.Splitter) *ChunkingProcessor {
	if splitter == nil {
		splitter = chunk.NewSplitter(chunk.DefaultChunkSize)
	}
	return &ChunkingProcessor{manager: m, splitter: splitter}
}

// Stage implements Processor
func (p *ChunkingProcessor) Stage() models.Stage {
	return models.StageChunking
}

// Process implements Processor
func (p *ChunkingProcessor) Process(ctx context.Context, job *models.Job) error {
	pages, err := p.manager.Artifacts().LoadPages(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to load extracted pages: %w", err)
	}

	var chunks []models.Chunk
	for _, page := range pages {
		for _, text := range p.splitter.Split(page.Text) {
			chunks = append(chunks, models.Chunk{
				Index: len(chunks),
				Page:  page.Number,
				Text:  text,
			})
		}
	}

	if err := p.manager.Artifacts().SaveChunks(ctx, job.ID, chunks); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}

	return p.manager.AdvanceStage(ctx, job.ID, models.StageChunking, ProgressChunkingDone)
}
