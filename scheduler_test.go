package termengine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSyncSchedulerRunsInline(t *testing.T) {
	s := NewSyncScheduler()

	ran := false
	s.Schedule(time.Hour, func() { ran = true })
	if !ran {
		t.Error("expected work to run before Schedule returns")
	}
}

func TestSyncSchedulerNestedWorkIsQueued(t *testing.T) {
	s := NewSyncScheduler()

	var order []string
	s.Schedule(0, func() {
		s.Schedule(0, func() { order = append(order, "inner") })
		order = append(order, "outer")
	})

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("expected [outer inner], got %v", order)
	}
}

func TestSyncSchedulerCancelNested(t *testing.T) {
	s := NewSyncScheduler()

	ran := false
	s.Schedule(0, func() {
		cancel := s.Schedule(0, func() { ran = true })
		cancel()
	})

	if ran {
		t.Error("expected cancelled work not to run")
	}
}

func TestLoopSchedulerRun(t *testing.T) {
	loop := NewLoopScheduler(4)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var got []int
	for i := 0; i < 10; i++ {
		wg.Add(1)
		n := i
		loop.Schedule(0, func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, n)
			mu.Unlock()
		})
	}
	wg.Wait()

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(got) != 10 {
		t.Errorf("expected 10 tasks, got %d", len(got))
	}
}

func TestLoopSchedulerCancel(t *testing.T) {
	loop := NewLoopScheduler(4)

	ran := false
	cancel := loop.Schedule(0, func() { ran = true })
	cancel()

	ctx, stop := context.WithCancel(context.Background())
	loop.Post(stop)
	loop.Run(ctx)

	if ran {
		t.Error("expected cancelled work not to run")
	}
}

func TestLoopSchedulerPostKeepsOrderWhenFull(t *testing.T) {
	loop := NewLoopScheduler(1)
	ctx, cancel := context.WithCancel(context.Background())

	var got []int
	for i := 0; i < 6; i++ {
		n := i
		loop.Post(func() { got = append(got, n) })
	}
	loop.Post(cancel)

	if err := loop.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("expected 6 tasks, got %v", got)
	}
	for i, n := range got {
		if n != i {
			t.Errorf("expected tasks in posting order, got %v", got)
			break
		}
	}
}

func TestLoopSchedulerDrivesTerminal(t *testing.T) {
	loop := NewLoopScheduler(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	buffers := &bufferRecorder{}
	term := New(WithScheduler(loop), WithWriteBuffer(buffers), WithMaxBufferSize(100))
	term.WriteString("hello")

	deadline := time.Now().Add(2 * time.Second)
	for buffers.last() != 100 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the loop to process output")
		}
		time.Sleep(time.Millisecond)
	}

	if term.LineContent(0) != "hello" {
		t.Errorf("expected 'hello', got '%s'", term.LineContent(0))
	}
}
