package keys

import "testing"

func TestDocumentToRepresentationToParquet(t *testing.T) {
	doc := DocumentKey("demo", "a/b/c.json")
	if doc != "documents/demo/a/b/c.json" {
		t.Fatalf("unexpected document key: %s", doc)
	}

	rep, err := DocumentToRepresentation(doc)
	if err != nil {
		t.Fatalf("DocumentToRepresentation: %v", err)
	}
	if rep != "representations/demo/a/b/c.json" {
		t.Fatalf("unexpected representation key: %s", rep)
	}

	parquet, err := RepresentationToParquet(rep)
	if err != nil {
		t.Fatalf("RepresentationToParquet: %v", err)
	}
	if parquet != "parquet/demo/a/b/c" {
		t.Fatalf("unexpected parquet key: %s", parquet)
	}
}

func TestDocumentToParquetComposition(t *testing.T) {
	doc := DocumentKey("demo", "x/y.json")
	parquet, err := DocumentToParquet(doc)
	if err != nil {
		t.Fatalf("DocumentToParquet: %v", err)
	}
	if parquet != "parquet/demo/x/y" {
		t.Fatalf("unexpected parquet key: %s", parquet)
	}
}

func TestIndexKey(t *testing.T) {
	if got := IndexKey("demo", ""); got != "index/demo.json.gz" {
		t.Fatalf("unexpected index key: %s", got)
	}
	if got := IndexKey("demo", "a/b"); got != "index/demo-a-b.json.gz" {
		t.Fatalf("unexpected prefixed index key: %s", got)
	}
}

func TestMalformedKey(t *testing.T) {
	cases := []string{"", "documents", "documents/demo", "unknown/demo/path"}
	for _, c := range cases {
		if _, err := DocumentToRepresentation(c); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}

func TestWrongStageConversionRejected(t *testing.T) {
	rep := RepresentationKey("demo", "a.json")
	if _, err := DocumentToRepresentation(rep); err == nil {
		t.Fatalf("expected error converting a representations key as a documents key")
	}
}

func TestStageOfAndDatasetOf(t *testing.T) {
	key := ParquetKey("demo", "nested/doc.json")
	stage, err := StageOf(key)
	if err != nil || stage != StageParquet {
		t.Fatalf("StageOf: got %v, %v", stage, err)
	}
	dataset, err := DatasetOf(key)
	if err != nil || dataset != "demo" {
		t.Fatalf("DatasetOf: got %v, %v", dataset, err)
	}
	docPath, err := DocumentPathOf(key)
	if err != nil || docPath != "nested/doc" {
		t.Fatalf("DocumentPathOf: got %v, %v", docPath, err)
	}
}

func TestStagePrefix(t *testing.T) {
	if got := StagePrefix(StageDocuments, "demo", ""); got != "documents/demo/" {
		t.Fatalf("unexpected prefix: %s", got)
	}
	if got := StagePrefix(StageDocuments, "demo", "jurisdiction/sub"); got != "documents/demo/jurisdiction/sub/" {
		t.Fatalf("unexpected nested prefix: %s", got)
	}
}
