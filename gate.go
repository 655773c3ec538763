package deeply

import (
	"context"
	"sync/atomic"
)

// gate bounds the number of leaf hooks running at once. Composites never hold
// a slot while waiting on their children, so nesting depth cannot exhaust it.
// A size of zero or less means unbounded.
type gate struct {
	slots  chan struct{}
	active atomic.Int64
}

func newGate(size int) *gate {
	g := &gate{}
	if size > 0 {
		g.slots = make(chan struct{}, size)
	}
	return g
}

// acquire blocks until a slot is free or ctx is done, returning the number of
// hooks running including the caller.
func (g *gate) acquire(ctx context.Context) (int, error) {
	if g.slots != nil {
		select {
		case g.slots <- struct{}{}:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return int(g.active.Add(1)), nil
}

func (g *gate) release() {
	g.active.Add(-1)
	if g.slots != nil {
		<-g.slots
	}
}
