package session

import "net/http"

// resumer is a submitted task that has not started yet.
type resumer interface {
	Resume()
}

// await adapts a completion handler based task to a blocking call. submit
// creates the task with the given completion handler. A completion without
// an error must carry a payload accepted by present and a response,
// otherwise the call fails with ErrInvalidResponse.
func await[P any](submit func(complete func(P, *http.Response, error)) (resumer, error), present func(P) bool) (P, *http.Response, error) {
	type outcome struct {
		payload P
		resp    *http.Response
		err     error
	}

	var zero P
	ch := make(chan outcome, 1)

	task, err := submit(func(p P, resp *http.Response, err error) {
		ch <- outcome{payload: p, resp: resp, err: err}
	})
	if err != nil {
		return zero, nil, err
	}
	task.Resume()

	o := <-ch
	switch {
	case o.err != nil:
		return o.payload, o.resp, o.err
	case o.resp == nil || !present(o.payload):
		return zero, o.resp, ErrInvalidResponse
	}

	return o.payload, o.resp, nil
}

func hasBytes(b []byte) bool { return b != nil }

func hasPath(p string) bool { return p != "" }
