package model

import "time"

// IndexMetadata carries the summary fields stored alongside an index's key
// list.
type IndexMetadata struct {
	DatasetID string    `json:"dataset_id"`
	KeyPrefix string    `json:"key_prefix,omitempty"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}

// IndexFile is the per-dataset index: every stage-2 key for the dataset,
// plus summary metadata. Rebuilt wholesale on every BuildIndex call.
type IndexFile struct {
	Objects  []string      `json:"objects"`
	Metadata IndexMetadata `json:"metadata"`
}
