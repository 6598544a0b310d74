package source

import (
	"context"
	"fmt"

	"github.com/alea-labs/kl3mpipe/internal/columnar"
	"github.com/alea-labs/kl3mpipe/internal/keys"
	"github.com/alea-labs/kl3mpipe/internal/objectstore"
)

// TokenDocument is one re-tokenizable unit the producer consumes: an
// identifier plus the token-id sequence of its chosen representation.
type TokenDocument struct {
	Identifier string
	Dataset    string
	MimeType   string
	Tokens     []uint32
}

// DatasetStream is a Stream[TokenDocument] over one dataset's stage-3
// parquet objects, lazily listing keys the first time Next is called and
// fetching/deserializing one object per call.
type DatasetStream struct {
	ctx     context.Context
	store   objectstore.Store
	bucket  string
	dataset string

	keys  []string
	index int
	err   error
}

// NewDatasetStream builds a DatasetStream over dataset's stage-3 objects.
func NewDatasetStream(ctx context.Context, s objectstore.Store, bucket, dataset string) *DatasetStream {
	return &DatasetStream{ctx: ctx, store: s, bucket: bucket, dataset: dataset}
}

func (d *DatasetStream) ensureListed() {
	if d.keys != nil || d.err != nil {
		return
	}
	prefix := keys.StagePrefix(keys.StageParquet, d.dataset, "")
	var listed []string
	for key, err := range d.store.List(d.ctx, d.bucket, prefix) {
		if err != nil {
			d.err = fmt.Errorf("list stage-3 objects for %s: %w", d.dataset, err)
			return
		}
		listed = append(listed, key)
	}
	d.keys = listed
}

// Next implements Stream[TokenDocument].
func (d *DatasetStream) Next() (TokenDocument, bool, error) {
	d.ensureListed()
	if d.err != nil {
		return TokenDocument{}, false, d.err
	}
	if d.index >= len(d.keys) {
		return TokenDocument{}, false, nil
	}
	key := d.keys[d.index]
	d.index++

	raw, err := d.store.Get(d.ctx, d.bucket, key)
	if err != nil {
		return TokenDocument{}, false, fmt.Errorf("fetch %s: %w", key, err)
	}
	doc, err := columnar.Deserialize(raw)
	if err != nil {
		return TokenDocument{}, false, fmt.Errorf("deserialize %s: %w", key, err)
	}

	mimeType, tokens := pickRepresentation(doc.Representations)
	if mimeType == "" {
		return d.Next()
	}

	return TokenDocument{
		Identifier: doc.Identifier,
		Dataset:    d.dataset,
		MimeType:   mimeType,
		Tokens:     tokens,
	}, true, nil
}

// pickRepresentation deterministically picks the lexicographically smallest
// mime type, matching internal/exporter's firstRepresentation choice.
func pickRepresentation(reps map[string][]uint32) (string, []uint32) {
	var chosen string
	for mimeType := range reps {
		if chosen == "" || mimeType < chosen {
			chosen = mimeType
		}
	}
	if chosen == "" {
		return "", nil
	}
	return chosen, reps[chosen]
}

var _ Stream[TokenDocument] = (*DatasetStream)(nil)
