package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ResumeData records a partially downloaded file and the request that
// produced it, so the download can continue with a range request.
type ResumeData struct {
	URL          string      `json:"url"`
	Header       http.Header `json:"header,omitempty"`
	Path         string      `json:"path"`
	Offset       int64       `json:"offset"`
	ETag         string      `json:"etag,omitempty"`
	LastModified string      `json:"lastModified,omitempty"`
}

// NewResumeData captures the state of a download of req, whose partial body
// of offset bytes sits at path. resp may be nil if no response arrived.
func NewResumeData(req *http.Request, resp *http.Response, path string, offset int64) *ResumeData {
	h := req.Header.Clone()
	h.Del("Range")
	h.Del("If-Range")

	d := ResumeData{
		URL:    req.URL.String(),
		Header: h,
		Path:   path,
		Offset: offset,
	}

	if resp != nil {
		d.ETag = resp.Header.Get("ETag")
		d.LastModified = resp.Header.Get("Last-Modified")
	}

	return &d
}

// Encode serializes the resume data.
func (d *ResumeData) Encode() ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding resume data: %w", err)
	}
	return b, nil
}

// DecodeResumeData parses data produced by [ResumeData.Encode].
func DecodeResumeData(b []byte) (*ResumeData, error) {
	if len(b) == 0 {
		return nil, &Error{Err: ErrInvalidResumeData, Detail: "empty"}
	}

	var d ResumeData
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, &Error{Err: ErrInvalidResumeData, Detail: err.Error()}
	}

	switch {
	case d.URL == "":
		return nil, &Error{Err: ErrInvalidResumeData, Detail: "missing url"}
	case d.Path == "":
		return nil, &Error{Err: ErrInvalidResumeData, Detail: "missing path"}
	case d.Offset < 0:
		return nil, &Error{Err: ErrInvalidResumeData, Detail: fmt.Sprintf("negative offset %d", d.Offset)}
	}

	return &d, nil
}

// Request builds the range request continuing the download.
func (d *ResumeData) Request(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("instantiating resume request: %w", err)
	}

	for k, v := range d.Header {
		req.Header[k] = append([]string(nil), v...)
	}

	if d.Offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", d.Offset))
		switch {
		case d.ETag != "":
			req.Header.Set("If-Range", d.ETag)
		case d.LastModified != "":
			req.Header.Set("If-Range", d.LastModified)
		}
	}

	return req, nil
}

// StartOffset returns where the body of resp belongs in the partial file:
// the recorded offset for a partial content response, zero otherwise.
func (d *ResumeData) StartOffset(resp *http.Response) int64 {
	if resp.StatusCode == http.StatusPartialContent {
		return d.Offset
	}
	return 0
}
