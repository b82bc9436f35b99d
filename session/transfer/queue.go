package transfer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// WorkFunc is the signature for queued work.
type WorkFunc func(ctx context.Context) error

// Queue runs work concurrently, bounded by an optional limit.
type Queue struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	sem      chan struct{}
	shutdown atomic.Bool
	running  map[string]context.CancelCauseFunc
	discard  bool
	errs     []error
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// DiscardErrors stops the queue from keeping work errors for Wait. Use it
// when every work item reports its own result.
func DiscardErrors() QueueOption {
	return func(q *Queue) {
		q.discard = true
	}
}

// NewQueue creates a Queue with the given concurrency limit.
// If maxConcurrent <= 0, concurrency is unlimited.
func NewQueue(maxConcurrent int, opts ...QueueOption) *Queue {
	q := &Queue{running: make(map[string]context.CancelCauseFunc)}
	if maxConcurrent > 0 {
		q.sem = make(chan struct{}, maxConcurrent)
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Wait blocks until all started work completes.
// Returns the errors collected since the previous Wait, joined via errors.Join.
func (q *Queue) Wait() error {
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()

	err := errors.Join(q.errs...)
	q.errs = nil
	return err
}

// Shutdown prevents new work from executing in this queue.
// Work already running is unaffected.
func (q *Queue) Shutdown() {
	q.shutdown.Store(true)
}

// IsShutdown reports whether Shutdown has been called.
func (q *Queue) IsShutdown() bool {
	return q.shutdown.Load()
}

// CancelAll cancels the context of every started, unfinished work item with cause.
func (q *Queue) CancelAll(cause error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, cancel := range q.running {
		cancel(cause)
	}
}

// Len reports the number of started, unfinished work items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.running)
}

// Start launches fn in a new goroutine managed by the queue
// and returns a Result for tracking it. id must be unique among running work.
func (q *Queue) Start(ctx context.Context, id string, fn WorkFunc) *Result {
	ctx, cancel := context.WithCancelCause(ctx)
	r := &Result{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	q.mu.Lock()
	q.running[id] = cancel
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer func() {
			cancel(context.Canceled)
			q.mu.Lock()
			delete(q.running, id)
			q.mu.Unlock()
			close(r.done)
			q.wg.Done()
		}()

		if q.sem != nil {
			select {
			case q.sem <- struct{}{}:
				defer func() {
					<-q.sem
				}()
			case <-ctx.Done():
				r.err = context.Cause(ctx)
				q.recordErr(r.err)
				return
			}
		}

		if q.shutdown.Load() {
			r.err = ErrQueueShutdown
			q.recordErr(r.err)
			return
		}

		r.err = fn(ctx)
		if r.err != nil {
			q.recordErr(r.err)
		}
	}()

	return r
}

// recordErr keeps err for Wait unless the queue discards errors.
func (q *Queue) recordErr(err error) {
	if q.discard {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.errs = append(q.errs, err)
}

// Result represents in-flight or completed queued work.
type Result struct {
	done   chan struct{}
	err    error
	cancel context.CancelCauseFunc
}

// Done returns a channel that is closed when the work completes.
func (r *Result) Done() <-chan struct{} { return r.done }

// Err blocks until the work completes and returns its error.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Cancel cancels the work's context with cause.
func (r *Result) Cancel(cause error) {
	r.cancel(cause)
}
