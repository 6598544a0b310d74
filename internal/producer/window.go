package producer

import (
	"github.com/alea-labs/kl3mpipe/internal/producer/task"
)

// Windowed is one fixed-length (sequence_length) chunk ready to push onto
// the sample store, before the producer attaches identifier/dataset/task
// metadata (spec.md §4.8 step 3's final paragraph).
type Windowed struct {
	InputIDs      []int32
	Labels        []int32
	AttentionMask []int32
	TokenTypeIDs  []int32
}

// Window chunks a task.Sample into sequenceLength-2-sized pieces, wraps
// each with startID/endID, and pads to sequenceLength with padID, building
// the attention mask (1 real, 0 pad) and using task.LabelMaskID at every
// start/end/pad position.
func Window(s task.Sample, sequenceLength int, startID, endID, padID uint32) []Windowed {
	chunkLen := sequenceLength - 2
	if chunkLen <= 0 || len(s.InputIDs) == 0 {
		return nil
	}

	var windows []Windowed
	for start := 0; start < len(s.InputIDs); start += chunkLen {
		end := min(start+chunkLen, len(s.InputIDs))
		chunkInputs := s.InputIDs[start:end]
		chunkLabels := s.Labels[start:end]

		inputIDs := make([]int32, 0, sequenceLength)
		labels := make([]int32, 0, sequenceLength)
		attention := make([]int32, 0, sequenceLength)
		tokenType := make([]int32, 0, sequenceLength)

		inputIDs = append(inputIDs, int32(startID))
		labels = append(labels, task.LabelMaskID)
		attention = append(attention, 1)
		tokenType = append(tokenType, 0)

		inputIDs = append(inputIDs, chunkInputs...)
		labels = append(labels, chunkLabels...)
		for range chunkInputs {
			attention = append(attention, 1)
			tokenType = append(tokenType, 0)
		}

		inputIDs = append(inputIDs, int32(endID))
		labels = append(labels, task.LabelMaskID)
		attention = append(attention, 1)
		tokenType = append(tokenType, 0)

		for len(inputIDs) < sequenceLength {
			inputIDs = append(inputIDs, int32(padID))
			labels = append(labels, task.LabelMaskID)
			attention = append(attention, 0)
			tokenType = append(tokenType, 0)
		}

		windows = append(windows, Windowed{
			InputIDs:      inputIDs,
			Labels:        labels,
			AttentionMask: attention,
			TokenTypeIDs:  tokenType,
		})
	}
	return windows
}

// Valid reports whether w passes the producer's pre-push sanity check
// (spec.md §4.8 step 4): exact sequenceLength arrays, at least 1% of
// positions attended to, and at least 1% carrying a real label.
func (w Windowed) Valid(sequenceLength int) bool {
	if len(w.InputIDs) != sequenceLength || len(w.Labels) != sequenceLength ||
		len(w.AttentionMask) != sequenceLength || len(w.TokenTypeIDs) != sequenceLength {
		return false
	}

	attended := 0
	labeled := 0
	for i := range w.AttentionMask {
		if w.AttentionMask[i] == 1 {
			attended++
		}
		if w.Labels[i] != task.LabelMaskID {
			labeled++
		}
	}

	minCount := max(sequenceLength/100, 1)
	return attended >= minCount && labeled >= minCount
}
