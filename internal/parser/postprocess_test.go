package parser

import (
	"testing"

	"github.com/alea-labs/kl3mpipe/internal/model"
	"github.com/alea-labs/kl3mpipe/internal/parser/filters"
	"github.com/alea-labs/kl3mpipe/internal/tokenizer"
	"github.com/stretchr/testify/require"
)

type stubTokenizer struct{ name string }

func (s stubTokenizer) Name() string { return s.name }
func (s stubTokenizer) Encode(text string, addSpecial bool) ([]uint32, error) {
	ids := make([]uint32, len(text))
	for i, r := range []byte(text) {
		ids[i] = uint32(r)
	}
	return ids, nil
}
func (s stubTokenizer) Decode(ids []uint32, skipSpecial bool) (string, error) { return "", nil }
func (s stubTokenizer) IDOf(token string) (uint32, error)                    { return 0, nil }
func (s stubTokenizer) VocabSize() int                                       { return 256 }

var _ tokenizer.Tokenizer = stubTokenizer{}

func TestPostprocessDropsEmptyRepresentationsAfterFiltering(t *testing.T) {
	doc := &model.ParsedDocument{
		Identifier: "doc-1",
		Representations: map[string]*model.Representation{
			"text/plain": {Content: "VerDate Mar<15>2010 16:40 Jun 14, 2010\n", MimeType: "text/plain"},
			"text/markdown": {Content: "# hello\nworld", MimeType: "text/markdown"},
		},
	}

	got := Postprocess(doc, "s3://bucket/key", filters.Default, []tokenizer.Tokenizer{stubTokenizer{"t1"}})
	require.NotNil(t, got)
	require.Equal(t, "s3://bucket/key", got.OriginalURI)
	require.Len(t, got.Representations, 1)
	require.Contains(t, got.Representations, "text/markdown")
	require.NotEmpty(t, got.Representations["text/markdown"].Tokens["t1"])
}

func TestPostprocessDropsDocumentWithNoSurvivingRepresentations(t *testing.T) {
	doc := &model.ParsedDocument{
		Identifier: "doc-2",
		Representations: map[string]*model.Representation{
			"text/plain": {Content: "VerDate only\n", MimeType: "text/plain"},
		},
	}
	doc.Representations["text/plain"].Content = "VerDate only"

	got := Postprocess(doc, "s3://bucket/key2", filters.Default, []tokenizer.Tokenizer{stubTokenizer{"t1"}})
	require.Nil(t, got)
}

func TestVerDateFilterRemovesHeaderLines(t *testing.T) {
	content := "line one\nVerDate Mar<15>2010 16:40 Jun 14, 2010\nline two"
	filtered := filters.VerDate(content)
	require.Equal(t, "line one\nline two", filtered)
}
