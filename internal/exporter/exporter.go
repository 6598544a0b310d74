// Package exporter implements the JSONL Exporter of spec.md §4.6: a
// strict producer/consumer pipeline that drains a dataset's stage-3
// parquet objects into a gzipped, line-delimited JSON stream with
// deduplication and optional quality gating.
package exporter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/alea-labs/kl3mpipe/internal/columnar"
	"github.com/alea-labs/kl3mpipe/internal/exporter/quality"
	"github.com/alea-labs/kl3mpipe/internal/keys"
	"github.com/alea-labs/kl3mpipe/internal/objectstore"
	"github.com/alea-labs/kl3mpipe/internal/tokenizer"
)

// Format selects whether output records carry raw token ids or decoded
// text.
type Format string

const (
	FormatTokens Format = "tokens"
	FormatText   Format = "text"
)

// Options configures one Export run.
type Options struct {
	Dataset   string
	SubPrefix string

	Fetchers   int
	QueueDepth int

	Format Format

	Dedup          bool
	DedupKeyTokens int
	DedupKeyChars  int

	QualityGate         bool
	QualityThreshold    float64
	IncludeAllDocuments bool

	FlushBytes    int
	FlushInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Fetchers <= 0 {
		o.Fetchers = 8
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = 5000
	}
	if o.Format == "" {
		o.Format = FormatTokens
	}
	if o.DedupKeyTokens <= 0 {
		o.DedupKeyTokens = 1024
	}
	if o.DedupKeyChars <= 0 {
		o.DedupKeyChars = 1000
	}
	if o.FlushBytes <= 0 {
		o.FlushBytes = 4 * 1024 * 1024
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 2 * time.Second
	}
	return o
}

// Stats summarizes one Export run.
type Stats struct {
	Processed int
	Exported  int
	Skipped   int
	Errored   int
}

// Exporter drains one dataset's stage-3 objects into a gzipped JSONL
// stream.
type Exporter struct {
	Store     objectstore.Store
	Bucket    string
	Canonical tokenizer.Tokenizer
	Logger    arbor.ILogger
}

type fetchResult struct {
	key string
	raw []byte
}

// Export runs the lister -> fetcher pool -> transform -> single-writer
// pipeline described in spec.md §4.6 and writes the result to w as a
// gzip stream.
func (e *Exporter) Export(ctx context.Context, w io.Writer, opts Options) (Stats, error) {
	opts = opts.withDefaults()

	prefix := keys.StagePrefix(keys.StageParquet, opts.Dataset, opts.SubPrefix)

	keyCh := make(chan string, opts.QueueDepth)
	fetchCh := make(chan fetchResult, opts.QueueDepth)
	recordCh := make(chan Record, opts.QueueDepth)

	var stats Stats
	var statsMu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(keyCh)
		for key, err := range e.Store.List(gctx, e.Bucket, prefix) {
			if err != nil {
				return fmt.Errorf("list stage-3 prefix: %w", err)
			}
			select {
			case keyCh <- key:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var fetchWG sync.WaitGroup
	fetchWG.Add(opts.Fetchers)
	for i := 0; i < opts.Fetchers; i++ {
		group.Go(func() error {
			defer fetchWG.Done()
			for key := range keyCh {
				raw, err := e.Store.Get(gctx, e.Bucket, key)
				if err != nil {
					e.Logger.Error().Err(err).Str("key", key).Msg("exporter: fetch failed")
					statsMu.Lock()
					stats.Errored++
					statsMu.Unlock()
					continue
				}
				select {
				case fetchCh <- fetchResult{key: key, raw: raw}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		fetchWG.Wait()
		close(fetchCh)
	}()

	dedup := newDedupSet()

	group.Go(func() error {
		defer close(recordCh)
		for result := range fetchCh {
			statsMu.Lock()
			stats.Processed++
			statsMu.Unlock()

			record, skip, err := e.transform(result, opts, dedup)
			if err != nil {
				e.Logger.Error().Err(err).Str("key", result.key).Msg("exporter: transform failed")
				statsMu.Lock()
				stats.Errored++
				statsMu.Unlock()
				continue
			}
			if skip {
				statsMu.Lock()
				stats.Skipped++
				statsMu.Unlock()
				continue
			}
			select {
			case recordCh <- record:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var exported int
	group.Go(func() error {
		var err error
		exported, err = writeRecords(gctx, w, recordCh, opts)
		return err
	})

	if err := group.Wait(); err != nil {
		return stats, err
	}
	stats.Exported = exported
	return stats, nil
}

// transform deserializes one fetched parquet blob, picks a representation,
// applies the quality gate, and checks/updates the dedup set. The
// returned bool is true when the record should be skipped (quality gate
// rejection or duplicate), not when an error occurred.
func (e *Exporter) transform(result fetchResult, opts Options, dedup *dedupSet) (Record, bool, error) {
	doc, err := columnar.Deserialize(result.raw)
	if err != nil {
		return Record{}, false, fmt.Errorf("deserialize %s: %w", result.key, err)
	}

	mimeType, tokens := firstRepresentation(doc.Representations)
	if mimeType == "" {
		return Record{}, true, nil
	}

	record := Record{
		Identifier: doc.Identifier,
		Dataset:    opts.Dataset,
		MimeType:   mimeType,
	}

	var dedupKey uint64
	switch opts.Format {
	case FormatText:
		text, err := e.Canonical.Decode(tokens, false)
		if err != nil {
			return Record{}, false, fmt.Errorf("decode tokens for %s: %w", result.key, err)
		}
		record.Text = text
		if len(text) == 0 {
			return Record{}, true, nil
		}
		dedupKey = hashText(text, opts.DedupKeyChars)
	default:
		record.Tokens = tokens
		if len(tokens) == 0 {
			return Record{}, true, nil
		}
		dedupKey = hashTokens(tokens, opts.DedupKeyTokens)
	}

	if opts.QualityGate && !opts.IncludeAllDocuments {
		text := record.Text
		if opts.Format != FormatText {
			decoded, err := e.Canonical.Decode(tokens, false)
			if err == nil {
				text = decoded
			}
		}
		score, metrics := quality.Score(tokens, text, e.Canonical)
		record.Score = &score
		record.Metrics = metrics
		if score > opts.QualityThreshold {
			return Record{}, true, nil
		}
	}

	if opts.Dedup && dedup.seenBefore(dedupKey) {
		return Record{}, true, nil
	}

	return record, false, nil
}

// firstRepresentation picks the lexicographically smallest mime type so
// the choice is deterministic across runs (the object's internal map
// iteration order is not).
func firstRepresentation(reps map[string][]uint32) (string, []uint32) {
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

func hashTokens(tokens []uint32, limit int) uint64 {
	if limit > len(tokens) {
		limit = len(tokens)
	}
	buf := make([]byte, 0, limit*4)
	for _, id := range tokens[:limit] {
		buf = append(buf, byte(id), byte(id>>8), byte(id>>16), byte(id>>24))
	}
	return xxhash.Sum64(buf)
}

func hashText(text string, limit int) uint64 {
	if limit > len(text) {
		limit = len(text)
	}
	return xxhash.Sum64String(text[:limit])
}

type dedupSet struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
}

func newDedupSet() *dedupSet {
	return &dedupSet{seen: make(map[uint64]struct{})}
}

// seenBefore reports whether key was already recorded, recording it if
// not, all under one mutex (spec.md §4.6 "the hash set is protected by a
// single mutex").
func (d *dedupSet) seenBefore(key uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

// writeRecords is the single writer goroutine: one JSON object per line,
// gzip-compressed, flushing on byte threshold or wall-clock timeout,
// whichever fires first.
func writeRecords(ctx context.Context, w io.Writer, recordCh <-chan Record, opts Options) (int, error) {
	gz := gzip.NewWriter(w)
	buf := bufio.NewWriterSize(gz, opts.FlushBytes)

	ticker := time.NewTicker(opts.FlushInterval)
	defer ticker.Stop()

	exported := 0
	pendingBytes := 0

	flush := func() error {
		if err := buf.Flush(); err != nil {
			return fmt.Errorf("flush buffer: %w", err)
		}
		pendingBytes = 0
		return nil
	}

	for {
		select {
		case record, ok := <-recordCh:
			if !ok {
				if err := flush(); err != nil {
					return exported, err
				}
				if err := gz.Close(); err != nil {
					return exported, fmt.Errorf("close gzip writer: %w", err)
				}
				return exported, nil
			}
			line, err := json.Marshal(record)
			if err != nil {
				return exported, fmt.Errorf("marshal record: %w", err)
			}
			line = append(line, '\n')
			if _, err := buf.Write(line); err != nil {
				return exported, fmt.Errorf("write record: %w", err)
			}
			exported++
			pendingBytes += len(line)
			if pendingBytes >= opts.FlushBytes {
				if err := flush(); err != nil {
					return exported, err
				}
			}
		case <-ticker.C:
			if pendingBytes > 0 {
				if err := flush(); err != nil {
					return exported, err
				}
			}
		case <-ctx.Done():
			_ = flush()
			_ = gz.Close()
			return exported, ctx.Err()
		}
	}
}
