package task

import "iter"

// clmHandler implements Causal Language Modeling: labels equal inputs, no
// masking — next-token prediction is left entirely to the training loop's
// shift-by-one convention.
type clmHandler struct {
	base
}

func (h *clmHandler) Type() TaskType  { return CLM }
func (h *clmHandler) StartID() uint32 { return h.startID }
func (h *clmHandler) EndID() uint32   { return h.endID }

func (h *clmHandler) Process(tokens []uint32) iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		if len(tokens) == 0 {
			return
		}
		inputIDs := make([]int32, len(tokens))
		labels := make([]int32, len(tokens))
		for i, tokenID := range tokens {
			inputIDs[i] = int32(tokenID)
			labels[i] = int32(tokenID)
		}
		yield(Sample{InputIDs: inputIDs, Labels: labels, Task: CLM})
	}
}
