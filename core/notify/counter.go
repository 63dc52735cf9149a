package notify

import (
	"context"
	"sync"
)

// Counts maps a table to the number of inserts not yet seen.
type Counts map[string]int

// Apply folds e into c and returns the new counts. c is not modified.
func Apply(c Counts, e Event) Counts {
	out := make(Counts, len(c)+1)
	for k, v := range c {
		out[k] = v
	}

	switch e.Kind {
	case KindInserted:
		out[e.Table]++
	case KindSeen:
		out[e.Table] = 0
	}
	return out
}

// Counter keeps the live counts for the admin dashboard.
type Counter struct {
	mu     sync.Mutex
	counts Counts
}

func NewCounter() *Counter {
	c := make(Counts, len(Tables))
	for _, t := range Tables {
		c[t] = 0
	}
	return &Counter{counts: c}
}

// Run applies events in arrival order until events is closed or ctx is done.
func (c *Counter) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			c.mu.Lock()
			c.counts = Apply(c.counts, e)
			c.mu.Unlock()
		}
	}
}

func (c *Counter) Snapshot() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}
