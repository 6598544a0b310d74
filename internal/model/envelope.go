// Package model holds the wire and in-memory data types shared by every
// pipeline stage: the stage-1 document envelope, the stage-2 parsed document,
// the stage-3 columnar document, the per-dataset index, and training samples.
package model

// Envelope is the stage-1 document record produced by external source
// collaborators and consumed, never mutated, by the core.
type Envelope struct {
	ID         string         `json:"id"`
	Identifier string         `json:"identifier"`
	DatasetID  string         `json:"dataset_id"`
	Format     string         `json:"format"`
	Source     string         `json:"source,omitempty"`
	Title      string         `json:"title,omitempty"`
	Date       string         `json:"date,omitempty"`
	Content    string         `json:"content"` // base64(deflate(raw bytes)) on the wire
	Size       int64          `json:"size"`
	Blake2b    string         `json:"blake2b,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}
