package services

// Overall progress checkpoints per stage. The boundary values are empirical
// and tunable; only their relative ordering matters to callers polling
// status, which must see a smooth monotonic climb across stages.
const (
	// ProgressExtractionStart is reported once extraction begins
	ProgressExtractionStart = 10.0
	// ProgressExtractionDone caps the extraction stage's contribution
	ProgressExtractionDone = 25.0
	// ProgressChunkingDone is the hand-off buffer after chunking
	ProgressChunkingDone = 30.0
	// ProgressTranslationStart is reported once translation begins
	ProgressTranslationStart = 40.0
	// ProgressTranslationDone caps the translation stage's contribution
	ProgressTranslationDone = 80.0
	// ProgressReconstructionStart is reported once reconstruction begins
	ProgressReconstructionStart = 85.0
	// ProgressComplete is reported on success
	ProgressComplete = 100.0
)

// translationProgress maps a per-chunk completion fraction into the
// translation stage's overall progress window
func translationProgress(done, total int) float64 {
	if total <= 0 {
		return ProgressTranslationDone
	}
	span := ProgressTranslationDone - ProgressTranslationStart
	return ProgressTranslationStart + span*float64(done)/float64(total)
}
