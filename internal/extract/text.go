package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

// TextExtractor reads plain-text documents. Form feeds (\f) separate
// pages; a document without form feeds is a single page.
type TextExtractor struct{}

// Extract implements Extractor
func (TextExtractor) Extract(_ context.Context, path string) ([]models.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var pages []models.Page
	for _, section := range strings.Split(string(data), "\f") {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		pages = append(pages, models.Page{Number: len(pages) + 1, Text: section})
	}
	return pages, nil
}
