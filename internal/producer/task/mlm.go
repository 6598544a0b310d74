package task

import "iter"

// mlmHandler implements Masked Language Modeling: a uniformly chosen
// fraction of positions (without replacement) are replaced with the mask
// token; labels carry the original token only at masked positions.
type mlmHandler struct {
	base
}

func (h *mlmHandler) Type() TaskType { return MLM }
func (h *mlmHandler) StartID() uint32 { return h.clsID }
func (h *mlmHandler) EndID() uint32   { return h.sepID }

func (h *mlmHandler) Process(tokens []uint32) iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		n := len(tokens)
		if n == 0 {
			return
		}
		masked := chooseIndices(n, maskCount(n))

		inputIDs := make([]int32, n)
		labels := make([]int32, n)
		for i, tokenID := range tokens {
			if _, ok := masked[i]; ok {
				inputIDs[i] = int32(h.maskID)
				labels[i] = int32(tokenID)
			} else {
				inputIDs[i] = int32(tokenID)
				labels[i] = LabelMaskID
			}
		}

		yield(Sample{InputIDs: inputIDs, Labels: labels, Task: MLM})
	}
}
