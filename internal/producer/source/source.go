// Package source implements the Training-sample Producer's multi-source
// interleaving (spec.md §4.8 step 1): round-robin over N underlying
// document streams, stopping once every source has signalled exhaustion in
// the same round ("all-exhausted").
package source

import "iter"

// Stream is one underlying document source the producer round-robins over.
// Next returns (doc, true, nil) while documents remain, and (zero, false,
// nil) once exhausted; exhausted streams are skipped on subsequent rounds
// rather than retried.
type Stream[T any] interface {
	Next() (T, bool, error)
}

// Interleave round-robins over streams, yielding one document per active
// stream per round, until every stream has reported exhaustion in the same
// pass.
func Interleave[T any](streams []Stream[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if len(streams) == 0 {
			return
		}
		exhausted := make([]bool, len(streams))

		for {
			progressed := false
			for i, s := range streams {
				if exhausted[i] {
					continue
				}
				doc, ok, err := s.Next()
				if err != nil {
					var zero T
					if !yield(zero, err) {
						return
					}
					continue
				}
				if !ok {
					exhausted[i] = true
					continue
				}
				progressed = true
				if !yield(doc, nil) {
					return
				}
			}
			if !progressed {
				return
			}
		}
	}
}
