package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Requestable builds the request a task issues.
type Requestable interface {
	BuildRequest() (*http.Request, error)
}

// RequestFunc adapts a function to Requestable.
type RequestFunc func() (*http.Request, error)

func (f RequestFunc) BuildRequest() (*http.Request, error) {
	return f()
}

// FromHTTPRequest returns a Requestable yielding a clone of req.
func FromHTTPRequest(req *http.Request) Requestable {
	return RequestFunc(func() (*http.Request, error) {
		if req == nil {
			return nil, errors.New("nil request")
		}
		return req.Clone(req.Context()), nil
	})
}

// Request describes a request by URL, method and options.
type Request struct {
	URL    string
	Method string
	Opts   []RequestOption
}

// NewRequest returns a Request for rawURL. Option errors are reported
// when the request is built.
func NewRequest(rawURL, method string, opts ...RequestOption) *Request {
	return &Request{URL: rawURL, Method: method, Opts: opts}
}

// BuildRequest instantiates the *http.Request. Content-Type defaults to
// `application/json` when a payload is set and WithContentType is not.
func (r *Request) BuildRequest() (*http.Request, error) {
	var settings requestOpts
	for _, opt := range r.Opts {
		if err := opt(&settings); err != nil {
			return nil, err
		}
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("url %q must be absolute", r.URL)
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host == "" {
		return nil, fmt.Errorf("url %q has no host", r.URL)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var req *http.Request
	if settings.body != nil {
		var payload bytes.Buffer
		if err := json.NewEncoder(&payload).Encode(settings.body); err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
		req, err = http.NewRequestWithContext(context.Background(), method, u.String(), &payload)
	} else {
		req, err = http.NewRequestWithContext(context.Background(), method, u.String(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	for _, cookie := range settings.cookies {
		req.AddCookie(cookie)
	}

	switch {
	case settings.contentType != nil:
		req.Header.Set("Content-Type", *settings.contentType)
	case settings.body != nil:
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range settings.headers {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}

	return req, nil
}

// URL creates a url.URL for use in NewRequest.
func URL(scheme, host, path string, opts ...URLOption) *url.URL {
	var settings urlOpts
	for _, opt := range opts {
		opt(&settings)
	}

	if settings.port != nil {
		host = fmt.Sprintf("%s:%d", host, *settings.port)
	}

	endpoint := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   path,
	}

	if settings.queryStrings != nil {
		queryParams := url.Values{}
		for k, v := range settings.queryStrings {
			queryParams.Add(k, v)
		}

		endpoint.RawQuery = queryParams.Encode()
	}

	return &endpoint
}

// buildRequest builds r and binds it to ctx.
func buildRequest(ctx context.Context, r Requestable) (*http.Request, error) {
	if r == nil {
		return nil, &RequestBuildError{Err: errors.New("nil requestable")}
	}

	req, err := r.BuildRequest()
	if err != nil {
		return nil, &RequestBuildError{Err: err}
	}
	if req == nil {
		return nil, &RequestBuildError{Err: errors.New("nil request")}
	}

	return req.WithContext(ctx), nil
}
