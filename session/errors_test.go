package session

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestRequestBuildError_Is(t *testing.T) {
	tests := map[string]struct {
		a, b error
		want bool
	}{
		"sameMessage": {
			a:    &RequestBuildError{Err: errors.New("bad url")},
			b:    &RequestBuildError{Err: errors.New("bad url")},
			want: true,
		},
		"differentMessage": {
			a: &RequestBuildError{Err: errors.New("bad url")},
			b: &RequestBuildError{Err: errors.New("bad method")},
		},
		"otherKind": {
			a: &RequestBuildError{Err: errors.New("bad url")},
			b: ErrInvalidResponse,
		},
		"invalidResponse": {
			a:    ErrInvalidResponse,
			b:    ErrInvalidResponse,
			want: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := errors.Is(tc.a, tc.b); got != tc.want {
				t.Errorf("expected %t, got %t", tc.want, got)
			}
		})
	}
}

func TestRequestBuildError_Surfaces(t *testing.T) {
	cause := errors.New("no host")

	s := New(Ephemeral)
	defer s.FinishTasksAndInvalidate()

	_, _, err := s.Data(t.Context(), RequestFunc(func() (*http.Request, error) { return nil, cause }))

	var buildErr *RequestBuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected *RequestBuildError, got %T: %v", err, err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected underlying error %v to be carried", cause)
	}
	if !errors.Is(err, &RequestBuildError{Err: errors.New("no host")}) {
		t.Error("expected equality by underlying message")
	}
}

func TestCheckStatus(t *testing.T) {
	tests := map[string]struct {
		status  int
		codes   []int
		wantErr bool
	}{
		"anySuccess":  {status: http.StatusNoContent},
		"notSuccess":  {status: http.StatusNotFound, wantErr: true},
		"listed":      {status: http.StatusPartialContent, codes: []int{http.StatusOK, http.StatusPartialContent}},
		"notListed":   {status: http.StatusOK, codes: []int{http.StatusCreated}, wantErr: true},
		"listedError": {status: http.StatusNotFound, codes: []int{http.StatusNotFound}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tc.status, Body: io.NopCloser(strings.NewReader("details"))}
			err := CheckStatus(resp, tc.codes...)

			if !tc.wantErr {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}

			var statusErr *UnexpectedStatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected *UnexpectedStatusError, got %v", err)
			}
			if statusErr.StatusCode != tc.status || statusErr.Body != "details" {
				t.Errorf("unexpected error contents: %+v", statusErr)
			}
			if !errors.Is(err, ErrUnexpectedStatusCode) {
				t.Error("expected ErrUnexpectedStatusCode")
			}
		})
	}
}
