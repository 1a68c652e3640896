package translate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nclamvn/prismy-ultimate/internal/db/models"
)

func TestMockTranslate(t *testing.T) {
	got, err := Mock{}.Translate(context.Background(), "Hello", "en", "vi", models.TierStandard)
	require.NoError(t, err)
	assert.Equal(t, "[TRANSLATED from en to vi]: Hello", got)
}

func TestMockTranslateMarksEveryDelimitedPart(t *testing.T) {
	text := "first\n" + ChunkDelimiter + "\nsecond\n" + ChunkDelimiter + "\nthird"
	got, err := Mock{}.Translate(context.Background(), text, "en", "vi", models.TierStandard)
	require.NoError(t, err)

	parts := strings.Split(got, ChunkDelimiter)
	require.Len(t, parts, 3)
	assert.Equal(t, "[TRANSLATED from en to vi]: first", strings.TrimSpace(parts[0]))
	assert.Equal(t, "[TRANSLATED from en to vi]: second", strings.TrimSpace(parts[1]))
	assert.Equal(t, "[TRANSLATED from en to vi]: third", strings.TrimSpace(parts[2]))
}

func TestMockTranslatePassesThroughBlankText(t *testing.T) {
	got, err := Mock{}.Translate(context.Background(), "   ", "en", "vi", models.TierBasic)
	require.NoError(t, err)
	assert.Equal(t, "   ", got)
}
