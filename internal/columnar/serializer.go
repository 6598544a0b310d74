// Package columnar implements the Columnar Serializer of spec.md §4.5: a
// single-row {identifier, representations: map<string, []uint32>} blob,
// deflate-compressed as a whole.
package columnar

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"html"

	"github.com/klauspost/compress/flate"

	"github.com/alea-labs/kl3mpipe/internal/model"
	"github.com/alea-labs/kl3mpipe/internal/tokenizer"
)

func init() {
	gob.Register(model.ColumnarDocument{})
}

// textualRepresentations is the set of media types whose text must have
// HTML entities unescaped before re-tokenization (spec.md §4.5).
var textualRepresentations = map[string]bool{
	"text/plain":    true,
	"text/markdown": true,
}

// Serialize re-tokenizes every representation of doc with the canonical
// tokenizer and emits a deflate-compressed gob blob of the resulting
// ColumnarDocument. Representation text is never reused from stage-2
// tokenization, because stage-2 may carry multiple tokenizers.
func Serialize(doc *model.ParsedDocument, canonical tokenizer.Tokenizer) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("cannot serialize a nil document")
	}

	columnar := model.ColumnarDocument{
		Identifier:      doc.Identifier,
		Representations: make(map[string][]uint32, len(doc.Representations)),
	}

	for mimeType, rep := range doc.Representations {
		text := rep.Content
		if textualRepresentations[mimeType] {
			text = html.UnescapeString(text)
		}
		ids, err := canonical.Encode(text, false)
		if err != nil {
			return nil, fmt.Errorf("re-tokenize representation %s: %w", mimeType, err)
		}
		columnar.Representations[mimeType] = ids
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(columnar); err != nil {
		return nil, fmt.Errorf("gob-encode columnar document: %w", err)
	}

	var compressed bytes.Buffer
	w, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("create deflate writer: %w", err)
	}
	if _, err := w.Write(raw.Bytes()); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("deflate columnar blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close deflate writer: %w", err)
	}

	return compressed.Bytes(), nil
}

// Deserialize reverses Serialize, reconstituting the in-memory
// {identifier, representations} map.
func Deserialize(blob []byte) (*model.ColumnarDocument, error) {
	r := flate.NewReader(bytes.NewReader(blob))
	defer r.Close()

	var doc model.ColumnarDocument
	if err := gob.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("gob-decode columnar document: %w", err)
	}
	return &doc, nil
}
