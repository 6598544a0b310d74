package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	brokerstore "github.com/alea-labs/kl3mpipe/internal/broker/store"
	"github.com/alea-labs/kl3mpipe/internal/columnar"
	"github.com/alea-labs/kl3mpipe/internal/keys"
	"github.com/alea-labs/kl3mpipe/internal/model"
	"github.com/alea-labs/kl3mpipe/internal/objectstore"
	"github.com/alea-labs/kl3mpipe/internal/producer/task"
)

type stubTokenizer struct {
	name string
	ids  map[string]uint32
}

func newStubTokenizer(name string) *stubTokenizer {
	ids := make(map[string]uint32)
	for i, st := range []string{"<|start|>", "<|end|>", "<|mask|>", "<|unk|>", "<|cls|>", "<|sep|>", "<|pad|>"} {
		ids[st] = uint32(1000 + i)
	}
	return &stubTokenizer{name: name, ids: ids}
}

func (s *stubTokenizer) Name() string { return s.name }

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
	b := make([]byte, 0, len(ids))
	for _, id := range ids {
		if id < 256 {
			b = append(b, byte(id))
		}
	}
	return string(b), nil
}

func (s *stubTokenizer) IDOf(tok string) (uint32, error) { return s.ids[tok], nil }

func (s *stubTokenizer) VocabSize() int { return 5000 }

func putParquet(t *testing.T, s *objectstore.MemStore, bucket, dataset, identifier, docPath, text string, tok *stubTokenizer) {
	t.Helper()
	doc := &model.ParsedDocument{
		Identifier: identifier,
		Representations: map[string]*model.Representation{
			"text/plain": {Content: text, MimeType: "text/plain"},
		},
	}
	blob, err := columnar.Serialize(doc, tok)
	require.NoError(t, err)
	key := keys.ParquetKey(dataset, docPath)
	require.NoError(t, s.Put(context.Background(), bucket, key, blob))
}

func newProducerLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func TestRunOncePushesWindowedSamplesOntoSampleStore(t *testing.T) {
	store := objectstore.NewMemStore()
	tok := newStubTokenizer("stub")

	text := "this is forty characters of text!!!!!!!!"
	require.Len(t, text, 40)
	putParquet(t, store, "bucket", "ds1", "doc-0", "p/doc-0.json", text, tok)

	sampleStore := brokerstore.NewMemListStore()
	p := &Producer{ObjectStore: store, SampleStore: sampleStore, Logger: newProducerLogger()}

	opts := Options{
		Bucket:          "bucket",
		Datasets:        []string{"ds1"},
		Tasks:           []task.TaskType{task.CLM},
		SourceTokenizer: tok,
		TargetTokenizer: tok,
		SequenceLength:  16,
		BatchSize:       1,
		HighWaterMark:   1000,
	}

	require.NoError(t, p.Run(context.Background(), opts, false))

	sampleKeys, err := sampleStore.Keys(context.Background(), "kl3m:samples:clm:*")
	require.NoError(t, err)
	require.Len(t, sampleKeys, 1)

	n, err := sampleStore.LLen(context.Background(), sampleKeys[0])
	require.NoError(t, err)
	require.Greater(t, n, int64(0))

	raw, ok, err := sampleStore.LPop(context.Background(), sampleKeys[0])
	require.NoError(t, err)
	require.True(t, ok)

	decoded, err := inflateSample(raw)
	require.NoError(t, err)
	require.Equal(t, 16, len(decoded.InputIDs))
	require.Equal(t, "clm", decoded.Task)
	require.Equal(t, "ds1", decoded.DatasetID)
}

func TestRunOnceSkipsEmptyDataset(t *testing.T) {
	store := objectstore.NewMemStore()
	tok := newStubTokenizer("stub")
	sampleStore := brokerstore.NewMemListStore()
	p := &Producer{ObjectStore: store, SampleStore: sampleStore, Logger: newProducerLogger()}

	opts := Options{
		Bucket:          "bucket",
		Datasets:        []string{"empty"},
		Tasks:           []task.TaskType{task.CLM},
		SourceTokenizer: tok,
		TargetTokenizer: tok,
		SequenceLength:  16,
		BatchSize:       4,
	}
	require.NoError(t, p.Run(context.Background(), opts, false))

	sampleKeys, err := sampleStore.Keys(context.Background(), "kl3m:samples:*")
	require.NoError(t, err)
	require.Empty(t, sampleKeys)
}

func TestParseTaskTypesAndDatasetsTrimAndSkipEmpty(t *testing.T) {
	require.Equal(t, []task.TaskType{task.MLM, task.CLM}, ParseTaskTypes(" mlm ,clm,"))
	require.Equal(t, []string{"ds1", "ds2"}, ParseDatasets("ds1, ds2 ,"))
}

func inflateSample(raw []byte) (model.Sample, error) {
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()
	inflated, err := io.ReadAll(r)
	if err != nil {
		return model.Sample{}, fmt.Errorf("inflate: %w", err)
	}
	var sample model.Sample
	if err := json.Unmarshal(inflated, &sample); err != nil {
		return model.Sample{}, err
	}
	return sample, nil
}
