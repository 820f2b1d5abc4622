package runloop

import (
	"context"
	"sync"
	"time"
)

// Gate is a level-triggered switch. Wait returns immediately while the
// gate is set and blocks while it is cleared. Engines use one gate per
// pipeline as the pause/resume checkpoint.
type Gate struct {
	mu   sync.Mutex
	open chan struct{}
	set  bool
}

func NewGate(set bool) *Gate {
	g := &Gate{open: make(chan struct{}), set: set}
	if set {
		close(g.open)
	}
	return g
}

func (g *Gate) Set() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.set {
		return
	}
	g.set = true
	close(g.open)
}

func (g *Gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.set {
		return
	}
	g.set = false
	g.open = make(chan struct{})
}

func (g *Gate) IsSet() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set
}

// Wait blocks until the gate is set or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		if g.set {
			g.mu.Unlock()
			return nil
		}
		open := g.open
		g.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-open:
		}
	}
}

// SleepWithPause sleeps for d in short slices, holding at the gate
// between slices so a cleared gate pauses the sleep mid-way. Returns
// early only when ctx is done.
func SleepWithPause(ctx context.Context, d time.Duration, gate *Gate) error {
	const slice = 100 * time.Millisecond

	remaining := d
	for remaining > 0 {
		if gate != nil {
			if err := gate.Wait(ctx); err != nil {
				return err
			}
		}

		step := slice
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step):
		}
		remaining -= step
	}
	return nil
}
