package syncer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherRunsEveryTask(t *testing.T) {
	dispatcher := NewDispatcher(4, time.Second)

	var ran atomic.Int64
	for i := 0; i < 32; i++ {
		dispatcher.Dispatch("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	dispatcher.Wait()

	if got := ran.Load(); got != 32 {
		t.Fatalf("expected 32 tasks to run, got %d", got)
	}
}

func TestDispatcherSurvivesPanicsAndErrors(t *testing.T) {
	dispatcher := NewDispatcher(2, time.Second)

	var after atomic.Bool
	dispatcher.Dispatch("panics", func(ctx context.Context) error {
		panic("boom")
	})
	dispatcher.Dispatch("fails", func(ctx context.Context) error {
		return context.Canceled
	})
	dispatcher.Dispatch("runs", func(ctx context.Context) error {
		after.Store(true)
		return nil
	})
	dispatcher.Wait()

	if !after.Load() {
		t.Fatal("sibling task must run after a panic")
	}
}

func TestDispatcherBoundsTaskContext(t *testing.T) {
	dispatcher := NewDispatcher(1, 10*time.Millisecond)

	var expired atomic.Bool
	dispatcher.Dispatch("waits", func(ctx context.Context) error {
		<-ctx.Done()
		expired.Store(true)
		return ctx.Err()
	})
	dispatcher.Wait()

	if !expired.Load() {
		t.Fatal("task context must expire at the timeout")
	}
}
