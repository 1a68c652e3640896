package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimatePagesHeuristics(t *testing.T) {
	// a missing PDF falls back to the size heuristic
	assert.Equal(t, 4, estimatePages("missing.pdf", 4*512*1024))
	assert.Equal(t, 1, estimatePages("missing.pdf", 100))

	assert.Equal(t, 10, estimatePages("report.docx", 30*1024))
	assert.Equal(t, 500, estimatePages("huge.doc", 100<<20), "docx estimate is capped")

	assert.Equal(t, 1, estimatePages("notes.txt", 1<<20))
}

func TestEstimateTime(t *testing.T) {
	assert.Equal(t, "1 minute", estimateTime(".pdf", 3))
	assert.Equal(t, "2 minutes", estimateTime(".pdf", 10))
	assert.Equal(t, "1 minute", estimateTime(".txt", 5))
	assert.Equal(t, "5 minutes", estimateTime(".txt", 50))
}
