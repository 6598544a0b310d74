package task

import (
	"fmt"
	"iter"
	"math/rand"
	"strings"
)

// lmlmHandler implements Line-Masked Language Modeling: a boolean
// "in masked line" state toggles at every newline-token occurrence,
// initialized randomly; positions inside a masked line are replaced with
// the mask token and carry their original id as a label, positions outside
// carry the sentinel label.
type lmlmHandler struct {
	base
	newlineIDs map[uint32]struct{}
}

func newLMLMHandler(b base) (*lmlmHandler, error) {
	newlineIDs := make(map[uint32]struct{})
	candidates := []string{"\r", "\r\n"}
	for i := 1; i < 10; i++ {
		candidates = append(candidates, strings.Repeat("\n", i))
	}
	for _, candidate := range candidates {
		ids, err := b.tok.Encode(candidate, false)
		if err != nil {
			return nil, fmt.Errorf("encode newline candidate %q: %w", candidate, err)
		}
		if len(ids) == 1 {
			newlineIDs[ids[0]] = struct{}{}
		}
	}
	return &lmlmHandler{base: b, newlineIDs: newlineIDs}, nil
}

func (h *lmlmHandler) Type() TaskType  { return LMLM }
func (h *lmlmHandler) StartID() uint32 { return h.clsID }
func (h *lmlmHandler) EndID() uint32   { return h.sepID }

func (h *lmlmHandler) Process(tokens []uint32) iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		n := len(tokens)
		if n == 0 {
			return
		}

		inMaskedLine := rand.Intn(2) == 0
		numMasked := 0
		inputIDs := make([]int32, 0, n)
		labels := make([]int32, 0, n)

		for _, tokenID := range tokens {
			if _, ok := h.newlineIDs[tokenID]; ok {
				inMaskedLine = !inMaskedLine
			}

			if inMaskedLine {
				inputIDs = append(inputIDs, int32(h.maskID))
				labels = append(labels, int32(tokenID))
				numMasked++
			} else {
				inputIDs = append(inputIDs, int32(tokenID))
				labels = append(labels, LabelMaskID)
			}
		}

		if numMasked > 0 {
			yield(Sample{InputIDs: inputIDs, Labels: labels, Task: LMLM})
		}
	}
}
