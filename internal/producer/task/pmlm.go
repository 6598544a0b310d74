package task

import (
	"iter"
	"math/rand"
)

// pmlmHandler implements Perturbed Masked Language Modeling: like MLM, but
// an additional smaller fraction of non-masked positions are replaced with
// random vocabulary tokens (excluding the reserved low-id range) rather
// than left untouched. Labels are unaffected by the perturbation — only
// masked positions carry a label.
type pmlmHandler struct {
	base
}

func (h *pmlmHandler) Type() TaskType  { return PMLM }
func (h *pmlmHandler) StartID() uint32 { return h.clsID }
func (h *pmlmHandler) EndID() uint32   { return h.sepID }

func (h *pmlmHandler) Process(tokens []uint32) iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		n := len(tokens)
		if n == 0 {
			return
		}

		numMask := maskCount(n)
		masked := chooseIndices(n, numMask)

		minPerturb := max(0, (numMask-1)/2-1)
		maxPerturb := max(0, numMask/2-1)

		perturbed := make(map[int]struct{})
		if maxPerturb > 0 {
			numPerturb := minPerturb + rand.Intn(maxPerturb-minPerturb+1)
			candidates := make([]int, 0, n-len(masked))
			for i := 0; i < n; i++ {
				if _, ok := masked[i]; !ok {
					candidates = append(candidates, i)
				}
			}
			rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
			if numPerturb > len(candidates) {
				numPerturb = len(candidates)
			}
			for _, idx := range candidates[:numPerturb] {
				perturbed[idx] = struct{}{}
			}
		}

		inputIDs := make([]int32, n)
		labels := make([]int32, n)
		for i, tokenID := range tokens {
			switch {
			case contains(perturbed, i):
				inputIDs[i] = int32(reservedLowID + rand.Intn(max(1, h.vocabLen-reservedLowID)))
			case contains(masked, i):
				inputIDs[i] = int32(h.maskID)
			default:
				inputIDs[i] = int32(tokenID)
			}

			if contains(masked, i) {
				labels[i] = int32(tokenID)
			} else {
				labels[i] = LabelMaskID
			}
		}

		yield(Sample{InputIDs: inputIDs, Labels: labels, Task: PMLM})
	}
}

func contains(set map[int]struct{}, i int) bool {
	_, ok := set[i]
	return ok
}
