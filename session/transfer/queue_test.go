package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestResult_Err(t *testing.T) {
	wantErr := errors.New("boom")
	q := NewQueue(0)

	r := q.Start(t.Context(), "a", func(ctx context.Context) error {
		return wantErr
	})

	if err := r.Err(); !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
}

func TestResult_Done(t *testing.T) {
	q := NewQueue(0)

	r := q.Start(t.Context(), "a", func(ctx context.Context) error {
		return nil
	})

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("Done channel was not closed in time")
	}

	if err := r.Err(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestQueue_Wait_JoinedErrors(t *testing.T) {
	err1 := errors.New("error one")
	err2 := errors.New("error two")
	q := NewQueue(0)

	q.Start(t.Context(), "1", func(ctx context.Context) error { return err1 })
	q.Start(t.Context(), "2", func(ctx context.Context) error { return err2 })
	q.Start(t.Context(), "3", func(ctx context.Context) error { return nil })

	err := q.Wait()
	if !errors.Is(err, err1) || !errors.Is(err, err2) {
		t.Errorf("expected joined error containing both, got %v", err)
	}
}

func TestQueue_ConcurrencyLimit(t *testing.T) {
	const limit = 2
	const total = 5

	q := NewQueue(limit)

	var running atomic.Int32
	var maxRunning atomic.Int32
	barrier := make(chan struct{})

	for i := range total {
		q.Start(t.Context(), fmt.Sprint(i), func(ctx context.Context) error {
			cur := running.Add(1)
			for {
				old := maxRunning.Load()
				if cur <= old || maxRunning.CompareAndSwap(old, cur) {
					break
				}
			}
			<-barrier
			running.Add(-1)
			return nil
		})
	}

	// Let all goroutines proceed concurrently.
	time.Sleep(50 * time.Millisecond)
	close(barrier)

	if err := q.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if peak := maxRunning.Load(); peak > limit {
		t.Errorf("max concurrent was %d, want <= %d", peak, limit)
	}
}

func TestResult_CancelWithCause(t *testing.T) {
	q := NewQueue(0)
	cause := errors.New("stop")

	started := make(chan struct{})
	r := q.Start(t.Context(), "a", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return context.Cause(ctx)
	})

	<-started
	r.Cancel(cause)

	if err := r.Err(); !errors.Is(err, cause) {
		t.Errorf("expected %v, got %v", cause, err)
	}
}

func TestQueue_CancelAll(t *testing.T) {
	q := NewQueue(0)
	cause := errors.New("invalidated")

	var started atomic.Int32
	for i := range 3 {
		q.Start(t.Context(), fmt.Sprint(i), func(ctx context.Context) error {
			started.Add(1)
			<-ctx.Done()
			return context.Cause(ctx)
		})
	}

	for started.Load() < 3 {
		time.Sleep(5 * time.Millisecond)
	}

	if got := q.Len(); got != 3 {
		t.Errorf("expected 3 running, got %d", got)
	}

	q.CancelAll(cause)

	if err := q.Wait(); !errors.Is(err, cause) {
		t.Errorf("expected %v, got %v", cause, err)
	}
	if got := q.Len(); got != 0 {
		t.Errorf("expected 0 running, got %d", got)
	}
}

func TestQueue_ContextCancellationOnSemaphore(t *testing.T) {
	q := NewQueue(1)

	release := make(chan struct{})
	q.Start(t.Context(), "holder", func(ctx context.Context) error {
		<-release
		return nil
	})

	// Give goroutine time to acquire the semaphore.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	r := q.Start(ctx, "waiter", func(ctx context.Context) error {
		t.Error("work function should not have run")
		return nil
	})

	if err := r.Err(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	close(release)
}

func TestQueue_Shutdown(t *testing.T) {
	q := NewQueue(0)
	q.Shutdown()

	if !q.IsShutdown() {
		t.Fatal("expected queue to report shutdown")
	}

	r := q.Start(t.Context(), "a", func(ctx context.Context) error {
		t.Error("work function should not have run after shutdown")
		return nil
	})

	if err := r.Err(); !errors.Is(err, ErrQueueShutdown) {
		t.Errorf("expected ErrQueueShutdown, got %v", err)
	}
}

func TestQueue_WaitClearsErrors(t *testing.T) {
	q := NewQueue(0)
	boom := errors.New("boom")

	q.Start(t.Context(), "a", func(ctx context.Context) error { return boom })
	if err := q.Wait(); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if err := q.Wait(); err != nil {
		t.Errorf("expected errors cleared after Wait, got %v", err)
	}
}

func TestQueue_DiscardErrors(t *testing.T) {
	q := NewQueue(0, DiscardErrors())

	for i := range 10 {
		r := q.Start(t.Context(), fmt.Sprint(i), func(ctx context.Context) error {
			return errors.New("failed")
		})
		if r.Err() == nil {
			t.Fatal("expected the result to carry the work error")
		}
	}

	if err := q.Wait(); err != nil {
		t.Errorf("expected no collected errors, got %v", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.errs) != 0 {
		t.Errorf("expected no retained errors, got %d", len(q.errs))
	}
}
