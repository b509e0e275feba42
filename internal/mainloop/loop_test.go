package mainloop

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoopRunsCallbacksInPostOrder(t *testing.T) {
	t.Parallel()

	loop := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	var order []int
	for i := 0; i < 50; i++ {
		i := i
		if !loop.Post(func() { order = append(order, i) }) {
			t.Fatalf("post %d rejected", i)
		}
	}

	var got []int
	if err := loop.Call(ctx, func() error {
		got = append(got, order...)
		return nil
	}); err != nil {
		t.Fatalf("call failed: %v", err)
	}

	if len(got) != 50 {
		t.Fatalf("expected 50 callbacks, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("callback %d ran out of order: %v", i, got)
		}
	}
}

func TestLoopPostFromLoopDoesNotBlock(t *testing.T) {
	t.Parallel()

	loop := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	ran := make(chan struct{})
	loop.Post(func() {
		for i := 0; i < 1000; i++ {
			loop.Post(func() {})
		}
		loop.Post(func() { close(ran) })
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("nested posts did not drain")
	}
}

func TestLoopCallReturnsCallbackError(t *testing.T) {
	t.Parallel()

	loop := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	want := errors.New("boom")
	if err := loop.Call(ctx, func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestLoopRejectsPostsAfterClose(t *testing.T) {
	t.Parallel()

	loop := New()
	loop.Close()
	loop.Close()

	if loop.Post(func() {}) {
		t.Fatalf("expected post to be rejected after close")
	}
	if err := loop.Call(context.Background(), func() error { return nil }); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("expected run on closed loop to return nil, got %v", err)
	}
}

func TestLoopRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	loop := New()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}

	select {
	case <-loop.Done():
	default:
		t.Fatalf("expected loop to be closed after run returns")
	}
}
