package model

// Sample is a single training record pushed onto (and popped from) the
// ordered-list store. Fixed-length arrays all have length SequenceLength
// once windowed by the producer; see internal/producer/window.go.
type Sample struct {
	Identifier     string  `json:"identifier"`
	DatasetID      string  `json:"dataset_id"`
	Source         string  `json:"source,omitempty"`
	MimeType       string  `json:"mime_type"`
	Task           string  `json:"task"`
	InputIDs       []int32 `json:"input_ids"`
	Labels         []int32 `json:"labels"`
	AttentionMask  []int32 `json:"attention_mask"`
	TokenTypeIDs   []int32 `json:"token_type_ids"`
}

// SourceRecord is the lighter record held in the kl3m:sources:<dataset>
// queues and served by GET /source/random.
type SourceRecord struct {
	Identifier string         `json:"identifier"`
	Dataset    string         `json:"dataset,omitempty"`
	MimeType   string         `json:"mime_type"`
	Text       string         `json:"text,omitempty"`
	Tokens     []uint32       `json:"tokens,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
