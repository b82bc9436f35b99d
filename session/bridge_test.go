package session

import (
	"errors"
	"net/http"
	"testing"
)

// callbackTask invokes its completion handler with fixed values on Resume.
type callbackTask struct {
	complete func([]byte, *http.Response, error)
	data     []byte
	resp     *http.Response
	err      error
}

func (c *callbackTask) Resume() {
	go c.complete(c.data, c.resp, c.err)
}

func TestAwait(t *testing.T) {
	failure := errors.New("connection reset")
	resp := &http.Response{StatusCode: http.StatusOK}

	tests := map[string]struct {
		task     callbackTask
		wantData string
		wantErr  error
	}{
		"noDataNoError": {
			wantErr: ErrInvalidResponse,
		},
		"dataWithoutResponse": {
			task:    callbackTask{data: []byte("x")},
			wantErr: ErrInvalidResponse,
		},
		"error": {
			task:    callbackTask{resp: resp, err: failure},
			wantErr: failure,
		},
		"data": {
			task:     callbackTask{data: []byte("payload"), resp: resp},
			wantData: "payload",
		},
		"emptyBody": {
			task: callbackTask{data: []byte{}, resp: resp},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			task := tc.task
			b, _, err := await(func(complete func([]byte, *http.Response, error)) (resumer, error) {
				task.complete = complete
				return &task, nil
			}, hasBytes)

			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if string(b) != tc.wantData {
				t.Errorf("expected data %q, got %q", tc.wantData, b)
			}
		})
	}
}

func TestAwait_SubmitError(t *testing.T) {
	buildErr := &RequestBuildError{Err: errors.New("bad")}

	_, resp, err := await(func(complete func(string, *http.Response, error)) (resumer, error) {
		return nil, buildErr
	}, hasPath)

	if !errors.Is(err, buildErr) {
		t.Errorf("expected %v, got %v", buildErr, err)
	}
	if resp != nil {
		t.Errorf("expected nil response, got %v", resp)
	}
}
