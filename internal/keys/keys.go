// Package keys implements the pure key algebra of spec.md §4.1: mapping
// between the documents/, representations/, parquet/, and index/ namespaces.
// Every function here is side-effect free and fails closed with
// ErrMalformedKey when the input does not match the expected shape.
package keys

import (
	"errors"
	"fmt"
	"strings"
)

// Stage identifies one of the three canonical object-store namespaces.
type Stage string

const (
	StageDocuments      Stage = "documents"
	StageRepresentations Stage = "representations"
	StageParquet        Stage = "parquet"

	// RawPrefix is the implementation-defined namespace for unparsed
	// binaries mentioned in spec.md §4.1. The core never writes to it; it
	// is exported only so callers can recognize and skip it when listing.
	RawPrefix = "raw/"

	indexPrefix = "index/"
)

// ErrMalformedKey is returned when a key does not match the expected
// "<namespace>/<dataset>/<path>" shape.
var ErrMalformedKey = errors.New("malformed key")

func stagePrefix(s Stage) string {
	return string(s) + "/"
}

// DocumentKey builds the stage-1 key for a dataset and document path.
func DocumentKey(dataset, docPath string) string {
	return build(StageDocuments, dataset, docPath)
}

// RepresentationKey builds the stage-2 key.
func RepresentationKey(dataset, docPath string) string {
	return build(StageRepresentations, dataset, docPath)
}

// ParquetKey builds the stage-3 key, stripping a trailing ".json" from the
// document path per spec.md §4.1.
func ParquetKey(dataset, docPath string) string {
	return build(StageParquet, dataset, strings.TrimSuffix(docPath, ".json"))
}

func build(stage Stage, dataset, docPath string) string {
	docPath = strings.TrimPrefix(docPath, "/")
	return fmt.Sprintf("%s%s/%s", stagePrefix(stage), dataset, docPath)
}

// IndexKey builds the index key for dataset D with optional sub-prefix P,
// flattening interior slashes in P to hyphens per spec.md §4.1.
func IndexKey(dataset, subPrefix string) string {
	if subPrefix == "" {
		return fmt.Sprintf("%s%s.json.gz", indexPrefix, dataset)
	}
	flattened := strings.ReplaceAll(strings.Trim(subPrefix, "/"), "/", "-")
	return fmt.Sprintf("%s%s-%s.json.gz", indexPrefix, dataset, flattened)
}

// split breaks a key of the form "<stage>/<dataset>/<path>" into its parts.
func split(key string) (stage Stage, dataset string, docPath string, err error) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	switch Stage(parts[0]) {
	case StageDocuments, StageRepresentations, StageParquet:
		return Stage(parts[0]), parts[1], parts[2], nil
	default:
		return "", "", "", fmt.Errorf("%w: unknown stage in %q", ErrMalformedKey, key)
	}
}

// StageOf returns the stage namespace a key belongs to.
func StageOf(key string) (Stage, error) {
	stage, _, _, err := split(key)
	return stage, err
}

// DatasetOf returns the dataset_id component of a key.
func DatasetOf(key string) (string, error) {
	_, dataset, _, err := split(key)
	return dataset, err
}

// DocumentPathOf returns the document-path component of a key (everything
// after "<stage>/<dataset>/").
func DocumentPathOf(key string) (string, error) {
	_, _, docPath, err := split(key)
	return docPath, err
}

// DocumentToRepresentation converts a stage-1 key to its stage-2
// counterpart: replace the leading "documents/" with "representations/",
// preserving path and ".json" suffix.
func DocumentToRepresentation(key string) (string, error) {
	stage, dataset, docPath, err := split(key)
	if err != nil {
		return "", err
	}
	if stage != StageDocuments {
		return "", fmt.Errorf("%w: %q is not a documents key", ErrMalformedKey, key)
	}
	return RepresentationKey(dataset, docPath), nil
}

// RepresentationToParquet converts a stage-2 key to its stage-3
// counterpart: replace the leading "representations/" with "parquet/" and
// strip a trailing ".json".
func RepresentationToParquet(key string) (string, error) {
	stage, dataset, docPath, err := split(key)
	if err != nil {
		return "", err
	}
	if stage != StageRepresentations {
		return "", fmt.Errorf("%w: %q is not a representations key", ErrMalformedKey, key)
	}
	return ParquetKey(dataset, docPath), nil
}

// DocumentToParquet composes DocumentToRepresentation and
// RepresentationToParquet; it is provided for callers that only ever need
// the stage-1 -> stage-3 mapping (e.g. existence checks).
func DocumentToParquet(key string) (string, error) {
	repKey, err := DocumentToRepresentation(key)
	if err != nil {
		return "", err
	}
	return RepresentationToParquet(repKey)
}

// StagePrefix returns the listing prefix "<stage>/<dataset>/" (optionally
// narrowed by a sub-prefix) for a dataset's stage.
func StagePrefix(stage Stage, dataset, subPrefix string) string {
	prefix := stagePrefix(stage) + dataset + "/"
	if subPrefix != "" {
		prefix += strings.Trim(subPrefix, "/") + "/"
	}
	return prefix
}
