package session

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unexpected status code.
const maxErrBodySize = 4 << 10 // 4KB

var (
	// ErrInvalidResponse is returned when a task completes with neither a
	// payload nor an error.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrRequestTimedOut is the cause of a task cancelled because no data
	// arrived within the request timeout.
	ErrRequestTimedOut = errors.New("request timed out")
	// ErrNetworkAccessDenied is returned when the only route to a host runs
	// over an interface class the session disallows.
	ErrNetworkAccessDenied = errors.New("network access denied")
	// ErrSessionInvalidated is returned for tasks created or cancelled after
	// the session was invalidated.
	ErrSessionInvalidated = errors.New("session invalidated")
	// ErrCancelled is the cause of a task stopped by Cancel.
	ErrCancelled = errors.New("task cancelled")
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
)

// RequestBuildError reports that a Requestable failed to build its request.
// Two RequestBuildErrors are equal, as reported by errors.Is, when their
// underlying errors have the same message.
type RequestBuildError struct {
	Err error
}

func (e *RequestBuildError) Error() string {
	return fmt.Sprintf("building request: %v", e.Err)
}

func (e *RequestBuildError) Unwrap() error {
	return e.Err
}

func (e *RequestBuildError) Is(target error) bool {
	t, ok := target.(*RequestBuildError)
	if !ok {
		return false
	}
	if e.Err == nil || t.Err == nil {
		return e.Err == t.Err
	}
	return e.Err.Error() == t.Err.Error()
}

// UnexpectedStatusError is returned when the HTTP response status code
// does not match an expected value.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}

// CheckStatus returns an *UnexpectedStatusError if resp's status code is not
// one of codes. Without codes any 2xx status is accepted. The body is only
// read on mismatch, when it is still open.
func CheckStatus(resp *http.Response, codes ...int) error {
	if len(codes) == 0 && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if slices.Contains(codes, resp.StatusCode) {
		return nil
	}

	var body string
	if resp.Body != nil {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if err != nil {
			b = []byte("unable to read body")
		}
		body = string(b)
	}

	return &UnexpectedStatusError{
		StatusCode: resp.StatusCode,
		Body:       body,
		Err:        ErrUnexpectedStatusCode,
	}
}
