package core

import "sync/atomic"

// IDSource hands out identifiers for unnamed pools and workers.
type IDSource interface {
	Next() uint64
}

// Counter is a monotonically increasing IDSource. The zero value starts at 0.
type Counter struct {
	next atomic.Uint64
}

// NewCounter returns a Counter whose first ID is start.
func NewCounter(start uint64) *Counter {
	c := &Counter{}
	c.next.Store(start)
	return c
}

// Next returns the current value and advances the counter.
func (c *Counter) Next() uint64 {
	return c.next.Add(1) - 1
}

// Process-wide sources used when no IDSource is injected.
var (
	defaultPoolIDs   = &Counter{}
	defaultWorkerIDs = &Counter{}
)
