package quality

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreEmptyDocumentDeviatesBelowEveryLowerBound(t *testing.T) {
	score, metrics := Score(nil, "", nil)
	require.InDelta(t, 12.5, score, 1e-5)
	require.Equal(t, float64(0), metrics["total_characters"])
}

func TestHasGluedWordBoundaryDetectsTransitions(t *testing.T) {
	require.True(t, hasGluedWordBoundary("wordWord"))
	require.True(t, hasGluedWordBoundary("word123"))
	require.False(t, hasGluedWordBoundary("word word"))
	require.False(t, hasGluedWordBoundary(""))
}

func TestScoreReportsNonNegativeScoreAndMetricsForProse(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog. This is normal English prose with typical punctuation, capitalization, and line breaks.\nIt continues for a while to build up enough characters to land inside the expected ranges for typical legal or statutory text of this kind."
	tokens := make([]uint32, 0, len(text))
	for i := range text {
		tokens = append(tokens, uint32(text[i]))
	}
	score, metrics := Score(tokens, text, nil)
	require.GreaterOrEqual(t, score, float64(0))
	require.Contains(t, metrics, "ratio_whitespace")
	require.Contains(t, metrics, "type_token_ratio")
}
