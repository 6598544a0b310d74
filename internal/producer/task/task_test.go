package task

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubTokenizer struct {
	ids map[string]uint32
}

func newStubTokenizer() *stubTokenizer {
	ids := make(map[string]uint32)
	for i, st := range []string{"<|start|>", "<|end|>", "<|mask|>", "<|unk|>", "<|cls|>", "<|sep|>", "<|pad|>"} {
		ids[st] = uint32(1000 + i)
	}
	ids["\r"] = 50
	ids["\r\n"] = 51
	ids["\n"] = 52
	return &stubTokenizer{ids: ids}
}

func (s *stubTokenizer) Name() string { return "stub" }

func (s *stubTokenizer) Encode(text string, addSpecial bool) ([]uint32, error) {
	if id, ok := s.ids[text]; ok {
		return []uint32{id}, nil
	}
	ids := make([]uint32, len(text))
	for i := range text {
		ids[i] = uint32(text[i])
	}
	return ids, nil
}

func (s *stubTokenizer) Decode(ids []uint32, skipSpecial bool) (string, error) {
	return "", nil
}

func (s *stubTokenizer) IDOf(tok string) (uint32, error) {
	return s.ids[tok], nil
}

func (s *stubTokenizer) VocabSize() int { return 5000 }

func sampleTokens(n int) []uint32 {
	tokens := make([]uint32, n)
	for i := range tokens {
		tokens[i] = uint32(200 + i)
	}
	return tokens
}

func collect(t *testing.T, h Handler, tokens []uint32) []Sample {
	t.Helper()
	var samples []Sample
	for s := range h.Process(tokens) {
		samples = append(samples, s)
	}
	return samples
}

func TestMLMMasksBetween10And20Percent(t *testing.T) {
	tok := newStubTokenizer()
	h, err := New(MLM, tok)
	require.NoError(t, err)

	tokens := sampleTokens(100)
	samples := collect(t, h, tokens)
	require.Len(t, samples, 1)

	masked := 0
	for i, label := range samples[0].Labels {
		if label != LabelMaskID {
			masked++
			require.Equal(t, int32(tokens[i]), label)
		} else {
			require.Equal(t, int32(tokens[i]), samples[0].InputIDs[i])
		}
	}
	require.GreaterOrEqual(t, masked, 10)
	require.LessOrEqual(t, masked, 20)
}

func TestPMLMLabelsOnlyAtMaskedPositions(t *testing.T) {
	tok := newStubTokenizer()
	h, err := New(PMLM, tok)
	require.NoError(t, err)

	tokens := sampleTokens(100)
	samples := collect(t, h, tokens)
	require.Len(t, samples, 1)

	for i, label := range samples[0].Labels {
		if label == LabelMaskID {
			continue
		}
		require.Equal(t, int32(tokens[i]), label)
		require.Equal(t, int32(1002), samples[0].InputIDs[i])
	}
}

func TestLMLMTogglesOnNewlines(t *testing.T) {
	tok := newStubTokenizer()
	h, err := New(LMLM, tok)
	require.NoError(t, err)

	newline, err := tok.Encode("\n", false)
	require.NoError(t, err)
	tokens := append(sampleTokens(5), newline[0])
	tokens = append(tokens, sampleTokens(5)...)

	samples := collect(t, h, tokens)
	require.Len(t, samples, 1)
	require.Len(t, samples[0].InputIDs, len(tokens))

	// The state flips at the newline (index 5) and applies to the newline
	// itself, so positions 0-4 share one state and 5-10 the other.
	firstMasked := samples[0].Labels[0] != LabelMaskID
	for i, label := range samples[0].Labels {
		require.Equal(t, firstMasked == (i < 5), label != LabelMaskID)
	}
}

func TestCLMLabelsEqualInputs(t *testing.T) {
	tok := newStubTokenizer()
	h, err := New(CLM, tok)
	require.NoError(t, err)

	tokens := sampleTokens(10)
	samples := collect(t, h, tokens)
	require.Len(t, samples, 1)
	require.Equal(t, samples[0].InputIDs, samples[0].Labels)
}

func TestEmptyTokensYieldNoSamples(t *testing.T) {
	tok := newStubTokenizer()
	for _, tt := range []TaskType{MLM, PMLM, LMLM, CLM} {
		h, err := New(tt, tok)
		require.NoError(t, err)
		require.Empty(t, collect(t, h, nil))
	}
}
