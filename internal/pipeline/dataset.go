// Package pipeline implements the Dataset Pipeline of spec.md §4.4:
// enumerate, plan, and execute forward stage transitions for a single
// dataset, optionally filtered to a sub-prefix.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alea-labs/kl3mpipe/internal/columnar"
	"github.com/alea-labs/kl3mpipe/internal/keys"
	"github.com/alea-labs/kl3mpipe/internal/model"
	"github.com/alea-labs/kl3mpipe/internal/objectstore"
	"github.com/alea-labs/kl3mpipe/internal/parser"
	"github.com/alea-labs/kl3mpipe/internal/parser/filters"
	"github.com/alea-labs/kl3mpipe/internal/tokenizer"
	"github.com/ternarybob/arbor"
)

// StageCounts is the per-stage document count returned by Status.
type StageCounts struct {
	Documents       int
	Representations int
	Parquet         int
}

// MissingCounts is the per-transition missing-set size returned by Status.
type MissingCounts struct {
	DocumentsToRepresentations int
	RepresentationsToParquet   int
}

// StatusResult bundles both halves of a Status call.
type StatusResult struct {
	Counts  StageCounts
	Missing MissingCounts
}

// DatasetPipeline enumerates, plans, and executes forward stage
// transitions for one dataset.
type DatasetPipeline struct {
	Store      objectstore.Store
	Bucket     string
	Dataset    string
	SubPrefix  string
	Tokenizers []tokenizer.Tokenizer
	Canonical  tokenizer.Tokenizer
	Logger     arbor.ILogger
}

// Status returns per-stage counts and per-transition missing-set sizes by
// listing each stage's prefix and computing a string-set difference over
// document paths (spec.md §4.4 "Status operation").
func (p *DatasetPipeline) Status(ctx context.Context) (*StatusResult, error) {
	docPaths, err := p.listDocPaths(ctx, keys.StageDocuments)
	if err != nil {
		return nil, fmt.Errorf("list documents stage: %w", err)
	}
	repPaths, err := p.listDocPaths(ctx, keys.StageRepresentations)
	if err != nil {
		return nil, fmt.Errorf("list representations stage: %w", err)
	}
	parquetPaths, err := p.listDocPaths(ctx, keys.StageParquet)
	if err != nil {
		return nil, fmt.Errorf("list parquet stage: %w", err)
	}

	result := &StatusResult{
		Counts: StageCounts{
			Documents:       len(docPaths),
			Representations: len(repPaths),
			Parquet:         len(parquetPaths),
		},
	}

	repSet := toSet(repPaths)
	missingReps := 0
	for path := range docPaths {
		rep, err := keys.DocumentToRepresentation(keys.DocumentKey(p.Dataset, path))
		if err != nil {
			continue
		}
		repPath, err := keys.DocumentPathOf(rep)
		if err != nil {
			continue
		}
		if !repSet[repPath] {
			missingReps++
		}
	}
	result.Missing.DocumentsToRepresentations = missingReps

	parquetSet := toSet(parquetPaths)
	missingParquet := 0
	for path := range repPaths {
		pq, err := keys.RepresentationToParquet(keys.RepresentationKey(p.Dataset, path))
		if err != nil {
			continue
		}
		pqPath, err := keys.DocumentPathOf(pq)
		if err != nil {
			continue
		}
		if !parquetSet[pqPath] {
			missingParquet++
		}
	}
	result.Missing.RepresentationsToParquet = missingParquet

	return result, nil
}

// listDocPaths lists every document path under a stage's prefix for the
// dataset, returning it as a set for O(1) membership checks.
func (p *DatasetPipeline) listDocPaths(ctx context.Context, stage keys.Stage) (map[string]struct{}, error) {
	prefix := keys.StagePrefix(stage, p.Dataset, p.SubPrefix)
	paths := make(map[string]struct{})
	for key, err := range p.Store.List(ctx, p.Bucket, prefix) {
		if err != nil {
			return nil, err
		}
		docPath, err := keys.DocumentPathOf(key)
		if err != nil {
			continue
		}
		paths[docPath] = struct{}{}
	}
	return paths, nil
}

func toSet(paths map[string]struct{}) map[string]bool {
	set := make(map[string]bool, len(paths))
	for p := range paths {
		set[p] = true
	}
	return set
}

// Transition names the two forward stage transitions a Process call can
// execute.
type Transition string

const (
	TransitionDocumentsToRepresentations Transition = "documents_to_representations"
	TransitionRepresentationsToParquet   Transition = "representations_to_parquet"
)

// ProcessOptions configures a single Process call.
type ProcessOptions struct {
	Transition Transition
	Workers    int
	MaxSize    int
	Clobber    bool
}

// Process submits the missing (or, with Clobber, full) task list for a
// transition to a bounded worker pool and returns (processed, errored)
// counts. A single failing task never aborts the batch (spec.md §4.4).
func (p *DatasetPipeline) Process(ctx context.Context, opts ProcessOptions) (processed int, errored int, err error) {
	tasks, err := p.planTasks(ctx, opts)
	if err != nil {
		return 0, 0, err
	}
	if len(tasks) == 0 {
		return 0, 0, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	var (
		processedCount atomicCounter
		errorCount     atomicCounter
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for _, task := range tasks {
		task := task
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			if err := p.runTask(groupCtx, opts.Transition, task, opts.MaxSize); err != nil {
				errorCount.Add(1)
				p.Logger.Error().Err(err).Str("key", task).Msg("pipeline: task failed")
				return nil
			}
			processedCount.Add(1)
			return nil
		})
	}
	// errgroup.Wait only returns non-nil if a Go func returns an error;
	// every task here swallows its own error into errorCount, so a
	// nil-returning Wait is the expected outcome even when tasks fail.
	_ = group.Wait()

	return processedCount.Load(), errorCount.Load(), nil
}

func (p *DatasetPipeline) planTasks(ctx context.Context, opts ProcessOptions) ([]string, error) {
	var sourceStage keys.Stage
	switch opts.Transition {
	case TransitionDocumentsToRepresentations:
		sourceStage = keys.StageDocuments
	case TransitionRepresentationsToParquet:
		sourceStage = keys.StageRepresentations
	default:
		return nil, fmt.Errorf("unknown transition %q", opts.Transition)
	}

	sourcePaths, err := p.listDocPaths(ctx, sourceStage)
	if err != nil {
		return nil, err
	}

	if opts.Clobber {
		tasks := make([]string, 0, len(sourcePaths))
		for path := range sourcePaths {
			tasks = append(tasks, buildStageKey(sourceStage, p.Dataset, path))
		}
		return tasks, nil
	}

	var targetStage keys.Stage
	if opts.Transition == TransitionDocumentsToRepresentations {
		targetStage = keys.StageRepresentations
	} else {
		targetStage = keys.StageParquet
	}
	targetPaths, err := p.listDocPaths(ctx, targetStage)
	if err != nil {
		return nil, err
	}

	var tasks []string
	for path := range sourcePaths {
		sourceKey := buildStageKey(sourceStage, p.Dataset, path)
		convertedKey, convErr := convert(opts.Transition, sourceKey)
		if convErr != nil {
			continue
		}
		targetPath, pathErr := keys.DocumentPathOf(convertedKey)
		if pathErr != nil {
			continue
		}
		if _, done := targetPaths[targetPath]; !done {
			tasks = append(tasks, sourceKey)
		}
	}
	return tasks, nil
}

func buildStageKey(stage keys.Stage, dataset, docPath string) string {
	if stage == keys.StageDocuments {
		return keys.DocumentKey(dataset, docPath)
	}
	return keys.RepresentationKey(dataset, docPath)
}

func convert(t Transition, sourceKey string) (string, error) {
	if t == TransitionDocumentsToRepresentations {
		return keys.DocumentToRepresentation(sourceKey)
	}
	return keys.RepresentationToParquet(sourceKey)
}

// runTask executes one worker's unit of work for a transition.
func (p *DatasetPipeline) runTask(ctx context.Context, t Transition, sourceKey string, maxSize int) error {
	switch t {
	case TransitionDocumentsToRepresentations:
		return p.runDocumentToRepresentation(ctx, sourceKey, maxSize)
	case TransitionRepresentationsToParquet:
		return p.runRepresentationToParquet(ctx, sourceKey)
	default:
		return fmt.Errorf("unknown transition %q", t)
	}
}

func (p *DatasetPipeline) runDocumentToRepresentation(ctx context.Context, docKey string, maxSize int) error {
	raw, err := p.Store.Get(ctx, p.Bucket, docKey)
	if err != nil {
		return fmt.Errorf("get envelope %s: %w", docKey, err)
	}

	var envelope model.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("unmarshal envelope %s: %w", docKey, err)
	}

	content, err := model.DecodeWirePayload(envelope.Content)
	if err != nil {
		return fmt.Errorf("decode envelope content %s: %w", docKey, err)
	}

	docs, err := parser.Dispatch(content, envelope.Format, envelope.Source, parser.Options{
		Key:     docKey,
		MaxSize: maxSize,
	}, p.Logger)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", docKey, err)
	}

	docs = parser.PostprocessAll(docs, "s3://"+p.Bucket+"/"+docKey, filters.Default, p.Tokenizers)
	if len(docs) == 0 {
		return fmt.Errorf("no surviving representations for %s", docKey)
	}

	repKey, err := keys.DocumentToRepresentation(docKey)
	if err != nil {
		return fmt.Errorf("derive representation key for %s: %w", docKey, err)
	}

	payload, err := json.Marshal(model.RepresentationEnvelope{Documents: docs})
	if err != nil {
		return fmt.Errorf("marshal representation envelope %s: %w", repKey, err)
	}

	return p.Store.Put(ctx, p.Bucket, repKey, payload)
}

func (p *DatasetPipeline) runRepresentationToParquet(ctx context.Context, repKey string) error {
	raw, err := p.Store.Get(ctx, p.Bucket, repKey)
	if err != nil {
		return fmt.Errorf("get representation envelope %s: %w", repKey, err)
	}

	var envelope model.RepresentationEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("unmarshal representation envelope %s: %w", repKey, err)
	}
	if len(envelope.Documents) == 0 {
		return fmt.Errorf("empty representation envelope %s", repKey)
	}

	blob, err := columnar.Serialize(envelope.Documents[0], p.Canonical)
	if err != nil {
		return fmt.Errorf("serialize columnar document for %s: %w", repKey, err)
	}

	pqKey, err := keys.RepresentationToParquet(repKey)
	if err != nil {
		return fmt.Errorf("derive parquet key for %s: %w", repKey, err)
	}

	return p.Store.Put(ctx, p.Bucket, pqKey, blob)
}

// ProcessAll runs both transitions sequentially, then rebuilds the index
// if any progress was made (spec.md §4.4 "Process-all operation").
func (p *DatasetPipeline) ProcessAll(ctx context.Context, workers, maxSize int, clobber bool) error {
	processed1, _, err := p.Process(ctx, ProcessOptions{
		Transition: TransitionDocumentsToRepresentations,
		Workers:    workers,
		MaxSize:    maxSize,
		Clobber:    clobber,
	})
	if err != nil {
		return err
	}

	processed2, _, err := p.Process(ctx, ProcessOptions{
		Transition: TransitionRepresentationsToParquet,
		Workers:    workers,
		Clobber:    clobber,
	})
	if err != nil {
		return err
	}

	if processed1+processed2 > 0 {
		if _, err := p.BuildIndex(ctx); err != nil {
			return fmt.Errorf("build index after process-all: %w", err)
		}
	}
	return nil
}

// BuildIndex lists the full stage-2 prefix, serializes the key list plus
// metadata into compressed JSON, and writes it under index/ (spec.md §4.4
// "Build-index operation").
func (p *DatasetPipeline) BuildIndex(ctx context.Context) (*model.IndexFile, error) {
	prefix := keys.StagePrefix(keys.StageRepresentations, p.Dataset, p.SubPrefix)
	objects, err := objectstore.CollectPrefix(ctx, p.Store, p.Bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("list stage-2 prefix for index: %w", err)
	}

	index := &model.IndexFile{
		Objects: objects,
		Metadata: model.IndexMetadata{
			DatasetID: p.Dataset,
			KeyPrefix: prefix,
			Count:     len(objects),
			CreatedAt: time.Now().UTC(),
		},
	}

	raw, err := json.Marshal(index)
	if err != nil {
		return nil, fmt.Errorf("marshal index: %w", err)
	}
	compressed, err := model.GzipBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("compress index: %w", err)
	}

	indexKey := keys.IndexKey(p.Dataset, p.SubPrefix)
	if err := p.Store.Put(ctx, p.Bucket, indexKey, compressed); err != nil {
		return nil, fmt.Errorf("put index %s: %w", indexKey, err)
	}

	return index, nil
}
