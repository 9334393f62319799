package net

import (
	"context"
	"time"
)

// Loop runs closures on a single goroutine. Everything that touches the
// board is funnelled through it, so board state needs no lock.
type Loop struct {
	queue chan func()
	done  chan struct{}
}

// NewLoop returns a loop with a queue of the given capacity.
func NewLoop(capacity int) *Loop {
	return &Loop{queue: make(chan func(), capacity), done: make(chan struct{})}
}

// Post queues f. It blocks while the queue is full and drops f once the
// loop has stopped. Post must not be called from the loop goroutine.
func (l *Loop) Post(f func()) {
	select {
	case l.queue <- f:
	case <-l.done:
	}
}

// Do runs f on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		f()
	}
	select {
	case l.queue <- wrapped:
	case <-l.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes the queue until ctx is done, calling tick every period.
func (l *Loop) Run(ctx context.Context, period time.Duration, tick func()) {
	defer close(l.done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-l.queue:
			f()
		case <-ticker.C:
			tick()
		}
	}
}
