// Package producer implements the Training-sample Producer of spec.md
// §4.8: a cooperative, single-threaded loop that interleaves one or more
// datasets' stage-3 token streams, runs each document through every
// enabled task handler, windows the results to sequence_length, and
// pushes the windowed samples onto the Sample Broker's ordered-list
// store, backing off when a queue grows past its high-water mark.
package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/ternarybob/arbor"

	"github.com/alea-labs/kl3mpipe/internal/broker/store"
	"github.com/alea-labs/kl3mpipe/internal/model"
	"github.com/alea-labs/kl3mpipe/internal/objectstore"
	"github.com/alea-labs/kl3mpipe/internal/producer/source"
	"github.com/alea-labs/kl3mpipe/internal/producer/task"
	"github.com/alea-labs/kl3mpipe/internal/tokenizer"
)

const sampleKeyPrefix = "kl3m:samples:"

func sampleKey(taskType task.TaskType, dataset string) string {
	return sampleKeyPrefix + string(taskType) + ":" + dataset
}

// Options configures one Producer run.
type Options struct {
	Bucket string

	Datasets []string // round-robin interleaved per spec.md §4.8 step 1
	Tasks    []task.TaskType

	SourceTokenizer tokenizer.Tokenizer // tokenizer the stage-3 tokens were encoded with
	TargetTokenizer tokenizer.Tokenizer // tokenizer this run trains against

	SequenceLength int
	BatchSize      int // per-(task,dataset) buffer flush threshold
	HighWaterMark  int
	Backpressure   time.Duration
}

func (o Options) withDefaults() Options {
	if o.SequenceLength <= 0 {
		o.SequenceLength = 512
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	if o.HighWaterMark <= 0 {
		o.HighWaterMark = 10000
	}
	if o.Backpressure <= 0 {
		o.Backpressure = 500 * time.Millisecond
	}
	return o
}

// Producer runs the interleave -> handle -> window -> push loop.
type Producer struct {
	ObjectStore objectstore.Store
	SampleStore store.ListStore
	Logger      arbor.ILogger
}

// buffer accumulates windowed samples for one (task, dataset) pair until
// BatchSize is reached, matching spec.md §4.8 step 4's batch-push shape.
type buffer struct {
	key     string
	samples []model.Sample
}

// Run drives the producer loop until ctx is cancelled or every source
// stream is exhausted (when loop is false), or forever, reloading the
// interleave once exhausted (when loop is true).
func (p *Producer) Run(ctx context.Context, opts Options, loop bool) error {
	opts = opts.withDefaults()

	handlers := make(map[task.TaskType]task.Handler, len(opts.Tasks))
	for _, t := range opts.Tasks {
		h, err := task.New(t, opts.TargetTokenizer)
		if err != nil {
			return fmt.Errorf("construct handler for task %s: %w", t, err)
		}
		handlers[t] = h
	}

	padID, err := opts.TargetTokenizer.IDOf(string(tokenizer.TokenPad))
	if err != nil {
		return fmt.Errorf("resolve pad token: %w", err)
	}

	for {
		if err := p.runOnce(ctx, opts, handlers, padID); err != nil {
			return err
		}
		if !loop {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (p *Producer) runOnce(ctx context.Context, opts Options, handlers map[task.TaskType]task.Handler, padID uint32) error {
	streams := make([]source.Stream[source.TokenDocument], 0, len(opts.Datasets))
	for _, dataset := range opts.Datasets {
		streams = append(streams, source.NewDatasetStream(ctx, p.ObjectStore, opts.Bucket, dataset))
	}

	buffers := make(map[string]*buffer)

	for doc, err := range source.Interleave(streams) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			p.Logger.Error().Err(err).Msg("producer: source stream error")
			continue
		}

		tokens, err := retokenize(doc.Tokens, opts.SourceTokenizer, opts.TargetTokenizer)
		if err != nil {
			p.Logger.Error().Err(err).Str("identifier", doc.Identifier).Msg("producer: retokenize failed")
			continue
		}

		for taskType, handler := range handlers {
			for sample := range handler.Process(tokens) {
				for _, w := range Window(sample, opts.SequenceLength, handler.StartID(), handler.EndID(), padID) {
					if !w.Valid(opts.SequenceLength) {
						continue
					}
					record := model.Sample{
						Identifier:    doc.Identifier,
						DatasetID:     doc.Dataset,
						MimeType:      doc.MimeType,
						Task:          string(taskType),
						InputIDs:      w.InputIDs,
						Labels:        w.Labels,
						AttentionMask: w.AttentionMask,
						TokenTypeIDs:  w.TokenTypeIDs,
					}
					if err := p.enqueue(ctx, opts, buffers, taskType, doc.Dataset, record); err != nil {
						return err
					}
				}
			}
		}
	}

	for key, buf := range buffers {
		if len(buf.samples) == 0 {
			continue
		}
		if err := p.flush(ctx, key, buf); err != nil {
			return err
		}
	}
	return nil
}

// enqueue appends record to its (task, dataset) buffer, flushing and
// applying backpressure once the buffer reaches BatchSize.
func (p *Producer) enqueue(ctx context.Context, opts Options, buffers map[string]*buffer, taskType task.TaskType, dataset string, record model.Sample) error {
	key := sampleKey(taskType, dataset)
	buf, ok := buffers[key]
	if !ok {
		buf = &buffer{key: key}
		buffers[key] = buf
	}
	buf.samples = append(buf.samples, record)
	if len(buf.samples) < opts.BatchSize {
		return nil
	}

	if err := p.flush(ctx, key, buf); err != nil {
		return err
	}
	return p.backoffIfSaturated(ctx, key, opts)
}

// flush pushes every buffered sample onto its queue from a random side and
// clears the buffer.
func (p *Producer) flush(ctx context.Context, key string, buf *buffer) error {
	for _, sample := range buf.samples {
		blob, err := compressSample(sample)
		if err != nil {
			return fmt.Errorf("compress sample for %s: %w", key, err)
		}
		push := p.SampleStore.RPush
		if rand.Float64() < 0.5 {
			push = p.SampleStore.LPush
		}
		if err := push(ctx, key, blob); err != nil {
			return fmt.Errorf("push sample onto %s: %w", key, err)
		}
	}
	buf.samples = buf.samples[:0]
	return nil
}

// backoffIfSaturated sleeps Backpressure when key's queue has grown past
// HighWaterMark, giving the Sample Broker time to drain it (spec.md §4.8
// step 4).
func (p *Producer) backoffIfSaturated(ctx context.Context, key string, opts Options) error {
	length, err := p.SampleStore.LLen(ctx, key)
	if err != nil {
		return fmt.Errorf("llen %s: %w", key, err)
	}
	if length < int64(opts.HighWaterMark) {
		return nil
	}
	p.Logger.Warn().Str("queue", key).Int64("length", length).Msg("producer: backpressure")
	select {
	case <-time.After(opts.Backpressure):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// retokenize decodes ids with source and re-encodes with target. When the
// two tokenizers share a name the ids are already in the target vocabulary
// and are returned unchanged (spec.md §4.8 step 2).
func retokenize(ids []uint32, source, target tokenizer.Tokenizer) ([]uint32, error) {
	if source == nil || target == nil || source.Name() == target.Name() {
		return ids, nil
	}
	text, err := source.Decode(ids, true)
	if err != nil {
		return nil, fmt.Errorf("decode with source tokenizer: %w", err)
	}
	out, err := target.Encode(text, false)
	if err != nil {
		return nil, fmt.Errorf("encode with target tokenizer: %w", err)
	}
	return out, nil
}

// compressSample deflate-compresses the JSON encoding of sample, matching
// the wire form internal/broker's codec expects (spec.md §4.8 step 4:
// "deflate-compressed JSON blob").
func compressSample(sample model.Sample) ([]byte, error) {
	raw, err := json.Marshal(sample)
	if err != nil {
		return nil, fmt.Errorf("marshal sample: %w", err)
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

// ParseTaskTypes splits a comma-separated config.ProducerConfig.Tasks value
// into task.TaskType values, trimming whitespace and skipping empties.
func ParseTaskTypes(csv string) []task.TaskType {
	var out []task.TaskType
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, task.TaskType(part))
	}
	return out
}

// ParseDatasets splits a comma-separated config.ProducerConfig.SourceDatasets
// value into dataset ids, trimming whitespace and skipping empties.
func ParseDatasets(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
