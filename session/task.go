package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/httpsession/session/transfer"
)

// ErrNoResumeData is returned by CancelByProducingResumeData when the task
// cannot be resumed.
var ErrNoResumeData = errors.New("no resume data")

// TaskKind identifies what a task does with its response.
type TaskKind int

const (
	TaskData TaskKind = iota + 1
	TaskDownload
	TaskUpload
)

func (k TaskKind) String() string {
	switch k {
	case TaskData:
		return "data"
	case TaskDownload:
		return "download"
	case TaskUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// TaskState is the lifecycle position of a task.
type TaskState int

const (
	TaskSuspended TaskState = iota
	TaskRunning
	TaskCanceling
	TaskCompleted
)

func (s TaskState) String() string {
	switch s {
	case TaskSuspended:
		return "suspended"
	case TaskRunning:
		return "running"
	case TaskCanceling:
		return "canceling"
	default:
		return "completed"
	}
}

// Task is a single request issued through a Session. Tasks are created
// suspended and start on Resume. Completion is reported exactly once, to
// the task delegates and to the completion handler given at creation.
type Task struct {
	id      uuid.UUID
	kind    TaskKind
	session *Session
	ctx     context.Context
	request *http.Request

	// work performs the task. Its error completes the task.
	work func(ctx context.Context) error
	// onComplete delivers the payload to the completion handler.
	onComplete func(err error)

	mu         sync.Mutex
	state      TaskState
	delegates  delegates
	result     *transfer.Result
	response   *http.Response
	wantResume bool
	resumeData []byte
	path       string
	err        error
	span       trace.Span
	started    time.Time

	once sync.Once
	done chan struct{}
}

func (s *Session) newTask(ctx context.Context, kind TaskKind, req *http.Request) *Task {
	return &Task{
		id:        uuid.New(),
		kind:      kind,
		session:   s,
		ctx:       ctx,
		request:   req,
		delegates: newDelegates(s.taskDelegate, s.sessionDelegate),
		done:      make(chan struct{}),
	}
}

// ID uniquely identifies the task.
func (t *Task) ID() uuid.UUID { return t.id }

func (t *Task) Kind() TaskKind { return t.kind }

// OriginalRequest returns the request the task was created with.
func (t *Task) OriginalRequest() *http.Request { return t.request }

func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Response returns the response once headers have arrived, or nil.
func (t *Task) Response() *http.Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.response
}

// Done is closed once the task completed.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task completes and returns its error.
func (t *Task) Wait() error {
	<-t.done

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// SetDelegate replaces the task delegate inherited from the session.
// It has no effect once the task was resumed.
func (t *Task) SetDelegate(d TaskDelegate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == TaskSuspended {
		t.delegates = newDelegates(d, t.session.sessionDelegate)
	}
}

// Resume starts a suspended task on the session queue.
func (t *Task) Resume() {
	t.mu.Lock()

	if t.state != TaskSuspended {
		t.mu.Unlock()
		return
	}
	if t.session.invalidated.Load() {
		t.state = TaskCanceling
		t.mu.Unlock()
		t.finish(ErrSessionInvalidated)
		return
	}

	t.state = TaskRunning
	t.started = time.Now()
	ActiveTasks.Inc()

	ctx, span := t.session.tracer.Start(t.ctx, "session."+t.kind.String())
	span.SetAttributes(
		attribute.String("task.id", t.id.String()),
		attribute.String("http.method", t.request.Method),
		attribute.String("url", t.request.URL.Redacted()),
	)
	t.span = span

	result := t.session.queue.Start(ctx, t.id.String(), func(ctx context.Context) error {
		t.finish(t.work(ctx))
		return nil
	})
	t.result = result
	t.mu.Unlock()

	// Work that never ran, because its context ended while queued or the
	// queue shut down, still has to complete.
	go func() {
		if err := result.Err(); err != nil {
			t.finish(err)
		}
	}()
}

// Cancel stops the task. A suspended task completes immediately.
func (t *Task) Cancel() {
	t.mu.Lock()

	switch t.state {
	case TaskSuspended:
		t.state = TaskCanceling
		t.mu.Unlock()
		t.finish(ErrCancelled)
	case TaskRunning:
		t.state = TaskCanceling
		result := t.result
		t.mu.Unlock()
		result.Cancel(ErrCancelled)
	default:
		t.mu.Unlock()
	}
}

// CancelByProducingResumeData cancels a download task, keeps the partial
// file and returns data to continue it with ResumeDownload or
// DownloadTaskWithResumeData.
func (t *Task) CancelByProducingResumeData() ([]byte, error) {
	if t.kind != TaskDownload {
		return nil, fmt.Errorf("%w: %s task", ErrNoResumeData, t.kind)
	}

	t.mu.Lock()
	t.wantResume = true
	t.mu.Unlock()

	t.Cancel()
	<-t.done

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.resumeData == nil {
		return nil, fmt.Errorf("%w: task finished with %v", ErrNoResumeData, t.err)
	}
	return t.resumeData, nil
}

func (t *Task) wantsResumeData() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wantResume
}

func (t *Task) setResumeData(b []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resumeData = b
}

// Path returns the file written by a successful download task.
func (t *Task) Path() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path
}

func (t *Task) setPath(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.path = p
}

func (t *Task) setResponse(resp *http.Response) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.response = resp
}

// finish completes the task once.
func (t *Task) finish(err error) {
	t.once.Do(func() {
		t.mu.Lock()
		t.state = TaskCompleted
		t.err = err
		span, started := t.span, t.started
		t.mu.Unlock()

		outcome := outcomeSuccess
		switch {
		case errors.Is(err, ErrCancelled), errors.Is(err, ErrSessionInvalidated):
			outcome = outcomeCancelled
		case err != nil:
			outcome = outcomeError
		}
		TasksTotal.WithLabelValues(t.kind.String(), outcome).Inc()

		if !started.IsZero() {
			TaskDuration.WithLabelValues(t.kind.String()).Observe(time.Since(started).Seconds())
			ActiveTasks.Dec()
		}

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}

		if err != nil {
			t.session.logger.Debug("task failed", "task", t.id.String(), "kind", t.kind.String(), "error", err)
		} else {
			t.session.logger.Debug("task completed", "task", t.id.String(), "kind", t.kind.String())
		}

		t.delegates.didComplete(t, err)
		if t.onComplete != nil {
			t.onComplete(err)
		}
		close(t.done)
	})
}

// exchange sends req and returns the response with its body tied to the
// request timeout. release must be called once the body is consumed.
func (t *Task) exchange(ctx context.Context, req *http.Request) (*http.Response, context.Context, func(), error) {
	s := t.session

	ctx, cancel := context.WithCancelCause(ctx)
	timer := newIdleTimer(s.cfg.TimeoutForRequest, func() { cancel(ErrRequestTimedOut) })
	release := func() {
		timer.stop()
		cancel(context.Canceled)
	}

	// When waiting for connectivity the request timer starts with the
	// connection, not with the dial.
	if s.waitsForConnectivity() {
		ctx = httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
			GotConn: func(httptrace.GotConnInfo) { timer.arm() },
		})
	} else {
		timer.arm()
	}

	req = req.WithContext(ctx)
	if req.Body != nil && req.Body != http.NoBody {
		req.Body = &activityReader{r: req.Body, timer: timer}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		err = causeErr(ctx, err)
		release()
		return nil, nil, nil, err
	}

	timer.arm()
	t.setResponse(resp)
	t.delegates.didReceiveResponse(t, resp)
	resp.Body = &activityReader{r: resp.Body, timer: timer}

	return resp, ctx, release, nil
}

// causeErr adds the cancellation cause of ctx to err when the context was
// cancelled by the session rather than by the caller.
func causeErr(ctx context.Context, err error) error {
	cause := context.Cause(ctx)
	if cause == nil || errors.Is(err, cause) ||
		errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", cause, err)
}
