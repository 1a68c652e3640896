package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

// ReconstructionProcessor assembles translated chunks into the final
// page-delimited output and completes the job.
type ReconstructionProcessor struct {
	manager *Manager
	// outputDir, when set, receives a plain-text output file per job in
	// addition to the stored result artifact
	outputDir string
}

// NewReconstructionProcessor creates the reconstruction stage processor
func NewReconstructionProcessor(m *Manager, outputDir string) *ReconstructionProcessor {
	return &ReconstructionProcessor{manager: m, outputDir: outputDir}
}

// Stage implements Processor
func (p *ReconstructionProcessor) Stage() models.Stage {
	return models.StageReconstruction
}

// Process implements Processor
func (p *ReconstructionProcessor) Process(ctx context.Context, job *models.Job) error {
	if err := p.manager.UpdateProgress(ctx, job.ID, ProgressReconstructionStart, nil); err != nil {
		return err
	}

	chunks, err := p.manager.Artifacts().LoadTranslated(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to load translated chunks: %w", err)
	}

	text := assemble(chunks)
	if err := p.manager.Artifacts().SaveResult(ctx, job.ID, text); err != nil {
		return fmt.Errorf("failed to store reconstructed output: %w", err)
	}

	outputRef := "result:" + job.ID
	if p.outputDir != "" {
		path, err := p.writeFile(job.ID, text)
		if err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		outputRef = path
	}

	return p.manager.CompleteJob(ctx, job.ID, outputRef)
}

func (p *ReconstructionProcessor) writeFile(jobID, text string) (string, error) {
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(p.outputDir, jobID+"_translated.txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// assemble groups translated chunks by originating page in ascending
// order and joins pages with an explicit page-boundary delimiter
func assemble(chunks []models.TranslatedChunk) string {
	byPage := make(map[int][]models.TranslatedChunk)
	for _, c := range chunks {
		byPage[c.Page] = append(byPage[c.Page], c)
	}

	pages := make([]int, 0, len(byPage))
	for page := range byPage {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	var sections []string
	for _, page := range pages {
		pageChunks := byPage[page]
		sort.Slice(pageChunks, func(i, j int) bool { return pageChunks[i].Index < pageChunks[j].Index })
		texts := make([]string, len(pageChunks))
		for i, c := range pageChunks {
			texts[i] = c.Translated
		}
		sections = append(sections, fmt.Sprintf("--- Page %d ---\n\n%s", page, strings.Join(texts, "\n\n")))
	}
	return strings.Join(sections, "\n\n")
}
