package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

// Mock is a Translator that wraps the input in a marker instead of calling
// a provider. It is the default when no provider is configured and the
// workhorse of the pipeline tests. Delimited batch input is marked part by
// part, so every chunk comes back translated exactly as per-chunk calls
// would produce it.
type Mock struct{}

// Translate implements Translator
func (Mock) Translate(_ context.Context, text, sourceLang, targetLang string, _ models.Tier) (string, error) {
	parts := strings.Split(text, ChunkDelimiter)
	for i, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts[i] = fmt.Sprintf("[TRANSLATED from %s to %s]: %s", sourceLang, targetLang, trimmed)
	}
	return strings.Join(parts, ChunkDelimiter), nil
}
