// Package task implements the Training-sample Producer's four task
// handlers (spec.md §4.8 step 3), ported one-to-one from
// original_source/kl3m_data/api/loader/task/{base,mlm,pmlm,lmlm,clm}.py.
package task

import (
	"fmt"
	"iter"
	"math/rand"

	"github.com/alea-labs/kl3mpipe/internal/tokenizer"
)

// TaskType names one of the four masking tasks spec.md §4.8 enumerates.
type TaskType string

const (
	MLM  TaskType = "mlm"
	PMLM TaskType = "pmlm"
	LMLM TaskType = "lmlm"
	CLM  TaskType = "clm"
)

// LabelMaskID is the sentinel label id for positions that carry no
// training signal, matching the original's label_mask_id = -100.
const LabelMaskID int32 = -100

// reservedLowID is the lowest id PMLM's random-token perturbation may draw,
// inherited from the original's `random.randint(100, vocab_size - 1)` —
// the original reserves the low end of its custom vocabulary; this module
// keeps the same numeric floor for behavioral parity even though the
// canonical tokenizer's low ids are ordinary byte tokens.
const reservedLowID = 100

// Sample is one handler-emitted (input_ids, labels) pair before windowing.
type Sample struct {
	InputIDs []int32
	Labels   []int32
	Task     TaskType
}

// Handler processes a re-tokenized document into zero or more Samples.
type Handler interface {
	Type() TaskType

	// StartID and EndID are the wrapping special-token ids window.go uses
	// when padding a chunk to sequence_length (spec.md §4.8 step 3): MLM,
	// PMLM, and LMLM wrap with <|cls|>/<|sep|>, CLM wraps with
	// <|start|>/<|end|>, matching the original's per-task start_sequence
	// / end_sequence assignment.
	StartID() uint32
	EndID() uint32

	Process(tokens []uint32) iter.Seq[Sample]
}

// base holds the special-token ids every handler needs, resolved once from
// the tokenizer at construction time.
type base struct {
	tok      tokenizer.Tokenizer
	maskID   uint32
	clsID    uint32
	sepID    uint32
	startID  uint32
	endID    uint32
	vocabLen int
}

func newBase(tok tokenizer.Tokenizer) (base, error) {
	ids := make(map[tokenizer.SpecialToken]uint32, len(tokenizer.SpecialTokens))
	for _, st := range tokenizer.SpecialTokens {
		id, err := tok.IDOf(string(st))
		if err != nil {
			return base{}, fmt.Errorf("resolve special token %s: %w", st, err)
		}
		ids[st] = id
	}
	return base{
		tok:      tok,
		maskID:   ids[tokenizer.TokenMask],
		clsID:    ids[tokenizer.TokenCLS],
		sepID:    ids[tokenizer.TokenSEP],
		startID:  ids[tokenizer.TokenStart],
		endID:    ids[tokenizer.TokenEnd],
		vocabLen: tok.VocabSize(),
	}, nil
}

// New constructs the Handler for taskType over tok.
func New(taskType TaskType, tok tokenizer.Tokenizer) (Handler, error) {
	b, err := newBase(tok)
	if err != nil {
		return nil, err
	}
	switch taskType {
	case MLM:
		return &mlmHandler{base: b}, nil
	case PMLM:
		return &pmlmHandler{base: b}, nil
	case LMLM:
		h, err := newLMLMHandler(b)
		if err != nil {
			return nil, err
		}
		return h, nil
	case CLM:
		return &clmHandler{base: b}, nil
	default:
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}
}

// maskCount picks a mask count in [10%, 20%] of sampleLength, floored at 1
// and 2 respectively, matching the original's
// `min_mask = max(0.1*n, 1)`, `max_mask = max(0.2*n, 2)`,
// `randint(min_mask, max_mask)`.
func maskCount(sampleLength int) int {
	minMask := int(max(0.1*float64(sampleLength), 1.0))
	maxMask := int(max(0.2*float64(sampleLength), 2.0))
	if maxMask <= minMask {
		return minMask
	}
	return minMask + rand.Intn(maxMask-minMask+1)
}

// chooseIndices draws count distinct indices from [0, n) without
// replacement, the Go analog of numpy.random.choice(..., replace=False).
func chooseIndices(n, count int) map[int]struct{} {
	if count > n {
		count = n
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	chosen := make(map[int]struct{}, count)
	for _, idx := range pool[:count] {
		chosen[idx] = struct{}{}
	}
	return chosen
}
