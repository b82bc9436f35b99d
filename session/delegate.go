package session

import (
	"net/http"
	"reflect"
)

// SessionDelegate observes session wide events. A SessionDelegate that also
// implements TaskDelegate receives the events of every task, after the
// task's own delegate.
type SessionDelegate interface {
	// DidBecomeInvalid is called once the session is invalidated. err is nil
	// when invalidation waited for running tasks.
	DidBecomeInvalid(err error)
}

// RedirectDelegate may be implemented by a SessionDelegate to control
// redirects. Returning http.ErrUseLastResponse stops following them.
type RedirectDelegate interface {
	WillPerformRedirect(req *http.Request, via []*http.Request) error
}

// TaskDelegate observes the events of a single task.
type TaskDelegate interface {
	DidReceiveResponse(t *Task, resp *http.Response)
	DidComplete(t *Task, err error)
}

// TransferDelegate may be implemented by a TaskDelegate to receive
// progress. total is -1 when unknown.
type TransferDelegate interface {
	DidSendBodyData(t *Task, sent, total int64)
	DidWriteData(t *Task, written, total int64)
}

// delegates fans task events out to the task delegate and the session
// delegate, skipping whichever is absent.
type delegates []TaskDelegate

func newDelegates(task TaskDelegate, sess SessionDelegate) delegates {
	var d delegates
	if task != nil {
		d = append(d, task)
	}
	if td, ok := sess.(TaskDelegate); ok && !sameDelegate(td, task) {
		d = append(d, td)
	}
	return d
}

// sameDelegate reports whether a and b are the same comparable value.
// Delegates of non-comparable types are never considered the same.
func sameDelegate(a, b TaskDelegate) bool {
	if a == nil || b == nil {
		return false
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

func (d delegates) didReceiveResponse(t *Task, resp *http.Response) {
	for _, td := range d {
		td.DidReceiveResponse(t, resp)
	}
}

func (d delegates) didComplete(t *Task, err error) {
	for _, td := range d {
		td.DidComplete(t, err)
	}
}

func (d delegates) didSendBodyData(t *Task, sent, total int64) {
	for _, td := range d {
		if tr, ok := td.(TransferDelegate); ok {
			tr.DidSendBodyData(t, sent, total)
		}
	}
}

func (d delegates) didWriteData(t *Task, written, total int64) {
	for _, td := range d {
		if tr, ok := td.(TransferDelegate); ok {
			tr.DidWriteData(t, written, total)
		}
	}
}

func (d delegates) wantsProgress() bool {
	for _, td := range d {
		if _, ok := td.(TransferDelegate); ok {
			return true
		}
	}
	return false
}
