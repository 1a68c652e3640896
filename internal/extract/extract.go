// Package extract pulls per-page text out of source documents.
package extract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

// Extractor turns a source document into ordered pages of text
type Extractor interface {
	Extract(ctx context.Context, path string) ([]models.Page, error)
}

// ForPath selects an extractor by file extension
func ForPath(path string) Extractor {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return &PDFExtractor{}
	default:
		return &TextExtractor{}
	}
}

// Selector is the Extractor used by the extraction stage; it dispatches
// per document so one worker pool serves every supported format
type Selector struct{}

// Extract implements Extractor
func (Selector) Extract(ctx context.Context, path string) ([]models.Page, error) {
	return ForPath(path).Extract(ctx, path)
}
