package session

import (
	"io"
	"sync"
	"time"
)

// idleTimer fires once no activity was reported for d. A zero or negative
// d never fires.
type idleTimer struct {
	d    time.Duration
	fire func()

	mu      sync.Mutex
	t       *time.Timer
	stopped bool
}

func newIdleTimer(d time.Duration, fire func()) *idleTimer {
	return &idleTimer{d: d, fire: fire}
}

// arm starts the timer if it is not running yet.
func (it *idleTimer) arm() {
	if it.d <= 0 {
		return
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if it.stopped || it.t != nil {
		return
	}
	it.t = time.AfterFunc(it.d, it.fire)
}

// touch restarts the countdown, arming the timer if needed.
func (it *idleTimer) touch() {
	if it.d <= 0 {
		return
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if it.stopped {
		return
	}
	if it.t == nil {
		it.t = time.AfterFunc(it.d, it.fire)
		return
	}
	it.t.Reset(it.d)
}

func (it *idleTimer) stop() {
	it.mu.Lock()
	defer it.mu.Unlock()

	it.stopped = true
	if it.t != nil {
		it.t.Stop()
	}
}

// activityReader reports every successful read to an idleTimer.
type activityReader struct {
	r     io.ReadCloser
	timer *idleTimer
}

func (ar *activityReader) Read(p []byte) (int, error) {
	n, err := ar.r.Read(p)
	if n > 0 {
		ar.timer.touch()
	}
	return n, err
}

func (ar *activityReader) Close() error {
	return ar.r.Close()
}
