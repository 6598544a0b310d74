package broker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// compressRecord deflate-compresses the JSON encoding of v, matching the
// wire form the Training-sample Producer pushes onto the ordered-list store
// (spec.md §4.8 step 4: "deflate-compressed JSON blob").
func compressRecord(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestSpeed)
	if err != nil {
		return nil, fmt.Errorf("create deflate writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("deflate write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate close: %w", err)
	}
	return buf.Bytes(), nil
}

// decompressRecord reverses compressRecord into an arbitrary JSON value,
// tolerating plain (uncompressed) JSON so the broker can also read records
// written by producers/tests that skip compression.
func decompressRecord(data []byte) (map[string]any, error) {
	raw := data
	if r := flate.NewReader(bytes.NewReader(data)); r != nil {
		defer r.Close()
		if inflated, err := io.ReadAll(r); err == nil {
			raw = inflated
		}
	}
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return record, nil
}
