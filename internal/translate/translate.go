// Package translate provides the translation-provider collaborators the
// translation stage delegates to.
package translate

import (
	"context"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

// ChunkDelimiter separates chunks when several are translated through one
// provider call. A provider must return the marker untouched so the reply
// splits back into the same number of parts; a reply that does not is
// rejected by the caller.
const ChunkDelimiter = "<<<CHUNK>>>"

// Translator translates one piece of text. The tier selects the provider
// quality level; everything else about the tier is opaque to the pipeline.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string, tier models.Tier) (string, error)
}
