package pipeline

import "sync/atomic"

// atomicCounter is a trivial goroutine-safe counter; Process's workers
// share no mutable state beyond this (spec.md §4.4 "Concurrency contract").
type atomicCounter struct {
	value int64
}

func (c *atomicCounter) Add(delta int64) {
	atomic.AddInt64(&c.value, delta)
}

func (c *atomicCounter) Load() int {
	return int(atomic.LoadInt64(&c.value))
}
