package net

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoopRunsInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewLoop(8)
	go l.Run(ctx, time.Hour, func() {})

	var got []int
	for i := range 5 {
		l.Post(func() { got = append(got, i) })
	}
	if err := l.Do(ctx, func() {}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got %v, want 0..4 in order", got)
		}
	}
	if len(got) != 5 {
		t.Fatalf("ran %d closures, want 5", len(got))
	}
}

func TestLoopTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ticks := make(chan struct{}, 1)
	l := NewLoop(1)
	go l.Run(ctx, time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})
	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("tick never ran")
	}
}

func TestLoopStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop(0)
	stopped := make(chan struct{})
	go func() {
		l.Run(ctx, time.Hour, func() {})
		close(stopped)
	}()
	cancel()
	<-stopped

	// Neither call may block once the loop is gone.
	l.Post(func() { t.Error("posted closure ran after stop") })
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Do after stop = %v, want context.Canceled", err)
	}
}

func TestLoopDoHonorsContext(t *testing.T) {
	l := NewLoop(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Do(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do without a running loop = %v, want deadline exceeded", err)
	}
}
