package broker

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/alea-labs/kl3mpipe/internal/broker/store"
)

const (
	sampleKeyPrefix = "kl3m:samples:"
	sourceKeyPrefix = "kl3m:sources:"
)

func sampleQueuePattern(task string) string {
	return sampleKeyPrefix + task + ":*"
}

// datasetOfSampleKey extracts the "<dataset>" component of a
// "kl3m:samples:<task>:<dataset>" key.
func datasetOfSampleKey(key string) string {
	parts := strings.SplitN(key, ":", 4)
	if len(parts) < 4 {
		return ""
	}
	return parts[3]
}

// totalQueueLength sums LLen across every queue matching the task.
func totalQueueLength(ctx context.Context, s store.ListStore, task string) (int64, []string, error) {
	queues, err := s.Keys(ctx, sampleQueuePattern(task))
	if err != nil {
		return 0, nil, fmt.Errorf("list sample queues for task %s: %w", task, err)
	}
	var total int64
	for _, queue := range queues {
		n, err := s.LLen(ctx, queue)
		if err != nil {
			return 0, nil, fmt.Errorf("llen %s: %w", queue, err)
		}
		total += n
	}
	return total, queues, nil
}

// popRandomSide pops one element from queue, coin-flipping between head and
// tail (spec.md §4.7 "randomizes which end is drained, smoothing
// producer/consumer interaction").
func popRandomSide(ctx context.Context, s store.ListStore, queue string) ([]byte, bool, error) {
	if rand.Float64() < 0.5 {
		return s.LPop(ctx, queue)
	}
	return s.RPop(ctx, queue)
}

// GetSamplesUniform implements spec.md §4.7's uniform batch algorithm:
// shuffle the matching queues, then loop popping one element per queue from
// a random side until the accumulator has batch_size samples drawn from at
// least minDatasets distinct queues.
func GetSamplesUniform(ctx context.Context, s store.ListStore, task string, batchSize, minDatasets int) ([]map[string]any, error) {
	queues, err := s.Keys(ctx, sampleQueuePattern(task))
	if err != nil {
		return nil, fmt.Errorf("list sample queues for task %s: %w", task, err)
	}
	if len(queues) == 0 {
		return nil, ErrNoQueuesAvailable
	}
	rand.Shuffle(len(queues), func(i, j int) { queues[i], queues[j] = queues[j], queues[i] })

	if minDatasets > batchSize {
		minDatasets = batchSize
	}

	samples := make([]map[string]any, 0, batchSize)
	unique := make(map[string]struct{})
	remaining := batchSize

	for len(samples) < batchSize || len(unique) < minDatasets {
		progressed := false
		for _, queue := range queues {
			raw, ok, err := popRandomSide(ctx, s, queue)
			if err != nil {
				return nil, fmt.Errorf("pop %s: %w", queue, err)
			}
			if ok {
				record, err := decompressRecord(raw)
				if err != nil {
					return nil, fmt.Errorf("decode sample from %s: %w", queue, err)
				}
				unique[queue] = struct{}{}
				samples = append(samples, record)
				remaining--
				progressed = true
			}
			if remaining <= 0 {
				break
			}
		}
		if remaining <= 0 {
			break
		}
		if !progressed {
			// Every queue came back empty this round; stop rather than
			// spin forever on exhausted queues, even if batch_size or
			// min_datasets was not fully satisfied.
			break
		}
	}

	rand.Shuffle(len(samples), func(i, j int) { samples[i], samples[j] = samples[j], samples[i] })
	if len(samples) > batchSize {
		samples = samples[:batchSize]
	}
	return samples, nil
}

// GetSamplesWeighted implements spec.md §4.7's weighted batch algorithm:
// filter queues to those named in weights, then draw one queue per
// iteration with probability proportional to its weight.
func GetSamplesWeighted(ctx context.Context, s store.ListStore, task string, batchSize int, weights map[string]float64) ([]map[string]any, error) {
	allQueues, err := s.Keys(ctx, sampleQueuePattern(task))
	if err != nil {
		return nil, fmt.Errorf("list sample queues for task %s: %w", task, err)
	}
	if len(allQueues) == 0 {
		return nil, ErrNoQueuesAvailable
	}

	var validQueues []string
	var queueWeights []float64
	for _, queue := range allQueues {
		dataset := datasetOfSampleKey(queue)
		if w, ok := weights[dataset]; ok {
			validQueues = append(validQueues, queue)
			queueWeights = append(queueWeights, w)
		}
	}
	if len(validQueues) == 0 {
		return nil, ErrNoQueuesAvailable
	}

	samples := make([]map[string]any, 0, batchSize)
	remaining := batchSize

	for len(samples) < batchSize {
		queue := validQueues[weightedChoice(queueWeights)]
		raw, ok, err := popRandomSide(ctx, s, queue)
		if err != nil {
			return nil, fmt.Errorf("pop %s: %w", queue, err)
		}
		if ok {
			record, err := decompressRecord(raw)
			if err != nil {
				return nil, fmt.Errorf("decode sample from %s: %w", queue, err)
			}
			samples = append(samples, record)
			remaining--
		}
		if remaining <= 0 {
			break
		}
	}

	rand.Shuffle(len(samples), func(i, j int) { samples[i], samples[j] = samples[j], samples[i] })
	if len(samples) > batchSize {
		samples = samples[:batchSize]
	}
	return samples, nil
}

// weightedChoice picks an index into weights with probability proportional
// to its value (random.choices' single-pick form).
func weightedChoice(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rand.Intn(len(weights))
	}
	r := rand.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if r < cumulative {
			return i
		}
	}
	return len(weights) - 1
}
