package handlers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nclamvn/prismy-ultimate/internal/extract"
)

// supportedExtensions are the upload types accepted by the submission
// endpoint; anything else is rejected before a job record exists
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".doc":  true,
	".docx": true,
}

// maxUploadBytes caps upload size at 100 MB
const maxUploadBytes = 100 << 20

// estimatePages guesses a page count before extraction has run. PDFs are
// counted exactly when the file opens; everything else falls back to
// size-based heuristics from observed page densities.
func estimatePages(path string, sizeBytes int64) int {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		if n, err := extract.CountPages(path); err == nil && n > 0 {
			return n
		}
		// ~0.5 MB per page
		return atLeastOne(int(sizeBytes / (512 * 1024)))
	case ".doc", ".docx":
		// ~3 KB of text per page, capped
		pages := atLeastOne(int(sizeBytes / (3 * 1024)))
		if pages > 500 {
			pages = 500
		}
		return pages
	default:
		return 1
	}
}

// estimateTime produces the human-readable processing estimate surfaced
// at submission
func estimateTime(ext string, pages int) string {
	var minutes int
	switch strings.ToLower(ext) {
	case ".pdf":
		minutes = pages / 5
	default:
		minutes = pages / 10
	}
	if minutes < 1 {
		minutes = 1
	}
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
