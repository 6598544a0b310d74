package exporter

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/alea-labs/kl3mpipe/internal/columnar"
	"github.com/alea-labs/kl3mpipe/internal/keys"
	"github.com/alea-labs/kl3mpipe/internal/model"
	"github.com/alea-labs/kl3mpipe/internal/objectstore"
)

type identityTokenizer struct{}

func (identityTokenizer) Name() string { return "identity" }
func (identityTokenizer) Encode(text string, addSpecial bool) ([]uint32, error) {
	ids := make([]uint32, len(text))
	for i := range text {
		ids[i] = uint32(text[i])
	}
	return ids, nil
}
func (identityTokenizer) Decode(ids []uint32, skipSpecial bool) (string, error) {
	b := make([]byte, len(ids))
	for i, id := range ids {
		b[i] = byte(id)
	}
	return string(b), nil
}
func (identityTokenizer) IDOf(token string) (uint32, error) { return 0, nil }
func (identityTokenizer) VocabSize() int                    { return 256 }

func putParquet(t *testing.T, store *objectstore.MemStore, bucket, dataset, identifier, docPath, text string) {
	t.Helper()
	doc := &model.ParsedDocument{
		Identifier: identifier,
		Representations: map[string]*model.Representation{
			"text/plain": {Content: text, MimeType: "text/plain"},
		},
	}
	blob, err := columnar.Serialize(doc, identityTokenizer{})
	require.NoError(t, err)
	key := keys.ParquetKey(dataset, docPath)
	require.NoError(t, store.Put(context.Background(), bucket, key, blob))
}

func decodeLines(t *testing.T, raw []byte) []Record {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer gz.Close()

	var records []Record
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record Record
		require.NoError(t, json.Unmarshal(line, &record))
		records = append(records, record)
	}
	require.NoError(t, scanner.Err())
	return records
}

func newTestExporter(store *objectstore.MemStore) *Exporter {
	return &Exporter{
		Store:     store,
		Bucket:    "test-bucket",
		Canonical: identityTokenizer{},
		Logger:    arbor.NewLogger(),
	}
}

func TestExportTokensModeWritesValidGzipJSONL(t *testing.T) {
	store := objectstore.NewMemStore()
	putParquet(t, store, "test-bucket", "ds1", "doc-a", "a/doc-a.json", "hello world")
	putParquet(t, store, "test-bucket", "ds1", "doc-b", "b/doc-b.json", "goodbye world")

	exp := newTestExporter(store)
	var buf bytes.Buffer
	stats, err := exp.Export(context.Background(), &buf, Options{Dataset: "ds1"})
	require.NoError(t, err)
	require.Equal(t, 2, stats.Processed)
	require.Equal(t, 2, stats.Exported)
	require.Equal(t, 0, stats.Errored)

	records := decodeLines(t, buf.Bytes())
	require.Len(t, records, 2)
	for _, r := range records {
		require.Equal(t, "ds1", r.Dataset)
		require.Equal(t, "text/plain", r.MimeType)
		require.NotEmpty(t, r.Tokens)
		require.Empty(t, r.Text)
	}
}

func TestExportTextModeDecodesTokens(t *testing.T) {
	store := objectstore.NewMemStore()
	putParquet(t, store, "test-bucket", "ds1", "doc-a", "a/doc-a.json", "hello world")

	exp := newTestExporter(store)
	var buf bytes.Buffer
	_, err := exp.Export(context.Background(), &buf, Options{Dataset: "ds1", Format: FormatText})
	require.NoError(t, err)

	records := decodeLines(t, buf.Bytes())
	require.Len(t, records, 1)
	require.Equal(t, "hello world", records[0].Text)
	require.Nil(t, records[0].Tokens)
}

func TestExportDedupCollapsesIdenticalLeadingTokens(t *testing.T) {
	store := objectstore.NewMemStore()
	// Two of three documents share identical content (and therefore
	// identical first-1024 tokens); dedup must collapse them to one.
	putParquet(t, store, "test-bucket", "ds1", "doc-a", "a/doc-a.json", "shared content")
	putParquet(t, store, "test-bucket", "ds1", "doc-b", "b/doc-b.json", "shared content")
	putParquet(t, store, "test-bucket", "ds1", "doc-c", "c/doc-c.json", "unique content")

	exp := newTestExporter(store)
	var buf bytes.Buffer
	stats, err := exp.Export(context.Background(), &buf, Options{Dataset: "ds1", Dedup: true})
	require.NoError(t, err)
	require.Equal(t, 3, stats.Processed)
	require.Equal(t, 2, stats.Exported)
	require.Equal(t, 1, stats.Skipped)

	records := decodeLines(t, buf.Bytes())
	require.Len(t, records, 2)
}

func TestExportDedupDisabledKeepsAllRecords(t *testing.T) {
	store := objectstore.NewMemStore()
	putParquet(t, store, "test-bucket", "ds1", "doc-a", "a/doc-a.json", "shared content")
	putParquet(t, store, "test-bucket", "ds1", "doc-b", "b/doc-b.json", "shared content")
	putParquet(t, store, "test-bucket", "ds1", "doc-c", "c/doc-c.json", "unique content")

	exp := newTestExporter(store)
	var buf bytes.Buffer
	stats, err := exp.Export(context.Background(), &buf, Options{Dataset: "ds1", Dedup: false})
	require.NoError(t, err)
	require.Equal(t, 3, stats.Exported)

	records := decodeLines(t, buf.Bytes())
	require.Len(t, records, 3)
}

func TestExportQualityGateRejectsLowScoreDocuments(t *testing.T) {
	store := objectstore.NewMemStore()
	// A degenerate, highly repetitive document should score poorly against
	// the expected-range table and be rejected by the quality gate.
	putParquet(t, store, "test-bucket", "ds1", "doc-bad", "a/doc-bad.json", "!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!")
	putParquet(t, store, "test-bucket", "ds1", "doc-good", "b/doc-good.json",
		"The quick brown fox jumps over the lazy dog. This is ordinary English prose with typical punctuation, capitalization, and sentence structure that should land well inside the expected metric ranges.")

	exp := newTestExporter(store)
	var buf bytes.Buffer
	stats, err := exp.Export(context.Background(), &buf, Options{
		Dataset:          "ds1",
		QualityGate:      true,
		QualityThreshold: 5.0,
	})
	require.NoError(t, err)
	require.Less(t, stats.Exported, stats.Processed)

	records := decodeLines(t, buf.Bytes())
	for _, r := range records {
		require.NotNil(t, r.Score)
	}
}

func TestExportIncludeAllDocumentsBypassesQualityGate(t *testing.T) {
	store := objectstore.NewMemStore()
	putParquet(t, store, "test-bucket", "ds1", "doc-bad", "a/doc-bad.json", "!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!")

	exp := newTestExporter(store)
	var buf bytes.Buffer
	stats, err := exp.Export(context.Background(), &buf, Options{
		Dataset:             "ds1",
		QualityGate:         true,
		QualityThreshold:    0.0001,
		IncludeAllDocuments: true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Exported)

	records := decodeLines(t, buf.Bytes())
	require.Len(t, records, 1)
	require.Nil(t, records[0].Score)
}

func TestExportEmptyDatasetProducesEmptyGzipStream(t *testing.T) {
	store := objectstore.NewMemStore()
	exp := newTestExporter(store)
	var buf bytes.Buffer
	stats, err := exp.Export(context.Background(), &buf, Options{Dataset: "ds-empty"})
	require.NoError(t, err)
	require.Equal(t, 0, stats.Exported)

	records := decodeLines(t, buf.Bytes())
	require.Empty(t, records)
}
