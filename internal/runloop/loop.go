// Package runloop provides the serial executor backing both pipeline
// engines. Each engine owns one Loop: a dedicated goroutine that runs
// submitted functions one at a time, so engine state never needs a
// mutex of its own.
package runloop

import (
	"context"
	"errors"
	"sync"
)

var ErrLoopClosed = errors.New("run loop closed")

type task struct {
	fn   func()
	done chan struct{}
}

// Loop is a single-goroutine serial executor. Submit enqueues work,
// SubmitWait blocks until the work ran. SubmitWait must not be called
// from inside a task running on the same loop.
type Loop struct {
	mu     sync.Mutex
	tasks  chan task
	closed bool
	ready  chan struct{}
	done   chan struct{}
}

func NewLoop(buffer int) *Loop {
	if buffer < 1 {
		buffer = 64
	}
	l := &Loop{
		tasks: make(chan task, buffer),
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	close(l.ready)
	defer close(l.done)
	for t := range l.tasks {
		t.fn()
		if t.done != nil {
			close(t.done)
		}
	}
}

// Ready is closed once the loop goroutine has started.
func (l *Loop) Ready() <-chan struct{} {
	return l.ready
}

// Done is closed after Close once every queued task drained.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Submit enqueues fn without waiting for it to run.
func (l *Loop) Submit(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLoopClosed
	}
	l.tasks <- task{fn: fn}
	return nil
}

// SubmitWait runs fn on the loop and blocks until it returns, or until
// ctx is done. The task still runs even if ctx expires first.
func (l *Loop) SubmitWait(ctx context.Context, fn func()) error {
	done := make(chan struct{})

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	l.tasks <- task{fn: fn, done: done}
	l.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and lets queued tasks drain.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.tasks)
}
