package source

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alea-labs/kl3mpipe/internal/columnar"
	"github.com/alea-labs/kl3mpipe/internal/keys"
	"github.com/alea-labs/kl3mpipe/internal/model"
	"github.com/alea-labs/kl3mpipe/internal/objectstore"
)

type sliceStream struct {
	items []int
	index int
}

func (s *sliceStream) Next() (int, bool, error) {
	if s.index >= len(s.items) {
		return 0, false, nil
	}
	v := s.items[s.index]
	s.index++
	return v, true, nil
}

func TestInterleaveRoundRobinsUntilAllExhausted(t *testing.T) {
	streams := []Stream[int]{
		&sliceStream{items: []int{1, 2}},
		&sliceStream{items: []int{10, 20, 30}},
	}

	var got []int
	for v, err := range Interleave(streams) {
		require.NoError(t, err)
		got = append(got, v)
	}

	// Round 1: 1, 10; round 2: 2, 20; round 3: stream 0 exhausted, stream 1
	// still yields 30; round 4: both exhausted, stop.
	require.Equal(t, []int{1, 10, 2, 20, 30}, got)
}

func TestInterleaveEmptyStreamsYieldsNothing(t *testing.T) {
	count := 0
	for range Interleave([]Stream[int]{}) {
		count++
	}
	require.Equal(t, 0, count)
}

type stubTokenizer struct{}

func (stubTokenizer) Name() string { return "stub" }
func (stubTokenizer) Encode(text string, addSpecial bool) ([]uint32, error) {
	ids := make([]uint32, len(text))
	for i := range text {
		ids[i] = uint32(text[i])
	}
	return ids, nil
}
func (stubTokenizer) Decode(ids []uint32, skipSpecial bool) (string, error) {
	b := make([]byte, len(ids))
	for i, id := range ids {
		b[i] = byte(id)
	}
	return string(b), nil
}
func (stubTokenizer) IDOf(token string) (uint32, error) { return 0, nil }
func (stubTokenizer) VocabSize() int                    { return 256 }

func putParquet(t *testing.T, s *objectstore.MemStore, bucket, dataset, identifier, docPath, text string) {
	t.Helper()
	doc := &model.ParsedDocument{
		Identifier: identifier,
		Representations: map[string]*model.Representation{
			"text/plain": {Content: text, MimeType: "text/plain"},
		},
	}
	blob, err := columnar.Serialize(doc, stubTokenizer{})
	require.NoError(t, err)
	key := keys.ParquetKey(dataset, docPath)
	require.NoError(t, s.Put(context.Background(), bucket, key, blob))
}

func TestDatasetStreamYieldsEveryDocumentThenExhausts(t *testing.T) {
	s := objectstore.NewMemStore()
	for i := 0; i < 3; i++ {
		putParquet(t, s, "bucket", "ds1", fmt.Sprintf("doc-%d", i), fmt.Sprintf("p/doc-%d.json", i), "hello")
	}

	stream := NewDatasetStream(context.Background(), s, "bucket", "ds1")
	var docs []TokenDocument
	for {
		doc, ok, err := stream.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		docs = append(docs, doc)
	}
	require.Len(t, docs, 3)
	for _, doc := range docs {
		require.Equal(t, "ds1", doc.Dataset)
		require.Equal(t, "text/plain", doc.MimeType)
		require.NotEmpty(t, doc.Tokens)
	}
}
