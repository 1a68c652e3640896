package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

// PDFExtractor reads PDF documents through MuPDF
type PDFExtractor struct{}

// Extract implements Extractor. Pages with no extractable text are kept
// with empty text so page numbering stays aligned with the source.
func (PDFExtractor) Extract(ctx context.Context, path string) ([]models.Page, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer doc.Close()

	pages := make([]models.Page, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d of %s: %w", i+1, path, err)
		}
		pages = append(pages, models.Page{Number: i + 1, Text: strings.TrimSpace(text)})
	}
	return pages, nil
}

// CountPages returns the page count of a PDF without extracting text
func CountPages(path string) (int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}
