package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/adamwoolhether/httpsession/session/transfer"
)

// DataCompletion receives the result of a data or upload task.
type DataCompletion func(data []byte, resp *http.Response, err error)

// DownloadCompletion receives the result of a download task. path names a
// file owned by the caller.
type DownloadCompletion func(path string, resp *http.Response, err error)

// Data issues the request built by r and returns the response body.
// The returned response's Body rereads the same bytes.
func (s *Session) Data(ctx context.Context, r Requestable) ([]byte, *http.Response, error) {
	return await(func(complete func([]byte, *http.Response, error)) (resumer, error) {
		return s.DataTask(ctx, r, complete)
	}, hasBytes)
}

// Download issues the request built by r and streams the response body
// into a new file in the download directory. The caller owns the file.
func (s *Session) Download(ctx context.Context, r Requestable) (string, *http.Response, error) {
	return await(func(complete func(string, *http.Response, error)) (resumer, error) {
		return s.DownloadTask(ctx, r, complete)
	}, hasPath)
}

// ResumeDownload continues the download described by resumeData, as
// produced by Task.CancelByProducingResumeData.
func (s *Session) ResumeDownload(ctx context.Context, resumeData []byte) (string, *http.Response, error) {
	return await(func(complete func(string, *http.Response, error)) (resumer, error) {
		return s.DownloadTaskWithResumeData(ctx, resumeData, complete)
	}, hasPath)
}

// UploadFile sends the file at path as the body of the request built by r
// and returns the response body.
func (s *Session) UploadFile(ctx context.Context, r Requestable, path string) ([]byte, *http.Response, error) {
	return await(func(complete func([]byte, *http.Response, error)) (resumer, error) {
		return s.UploadTaskFromFile(ctx, r, path, complete)
	}, hasBytes)
}

// UploadData sends body as the body of the request built by r and returns
// the response body.
func (s *Session) UploadData(ctx context.Context, r Requestable, body []byte) ([]byte, *http.Response, error) {
	return await(func(complete func([]byte, *http.Response, error)) (resumer, error) {
		return s.UploadTaskFromData(ctx, r, body, complete)
	}, hasBytes)
}

// DataTask returns a suspended task fetching the response body of the
// request built by r. completion may be nil.
func (s *Session) DataTask(ctx context.Context, r Requestable, completion DataCompletion) (*Task, error) {
	req, err := s.prepare(ctx, r)
	if err != nil {
		return nil, err
	}

	t := s.newTask(ctx, TaskData, req)
	s.bindData(t, req, completion)

	return t, nil
}

// UploadTaskFromFile returns a suspended task sending the file at path.
func (s *Session) UploadTaskFromFile(ctx context.Context, r Requestable, path string, completion DataCompletion) (*Task, error) {
	req, err := s.prepare(ctx, r)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat upload file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("upload file %s is not a regular file", path)
	}

	req.ContentLength = info.Size()
	req.GetBody = func() (io.ReadCloser, error) {
		return os.Open(path)
	}
	req.Body = nil

	t := s.newTask(ctx, TaskUpload, req)
	s.bindData(t, req, completion)

	return t, nil
}

// UploadTaskFromData returns a suspended task sending body.
func (s *Session) UploadTaskFromData(ctx context.Context, r Requestable, body []byte, completion DataCompletion) (*Task, error) {
	req, err := s.prepare(ctx, r)
	if err != nil {
		return nil, err
	}

	req.ContentLength = int64(len(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.Body = nil

	t := s.newTask(ctx, TaskUpload, req)
	s.bindData(t, req, completion)

	return t, nil
}

// DownloadTask returns a suspended task streaming the response body of the
// request built by r to a file.
func (s *Session) DownloadTask(ctx context.Context, r Requestable, completion DownloadCompletion) (*Task, error) {
	req, err := s.prepare(ctx, r)
	if err != nil {
		return nil, err
	}

	t := s.newTask(ctx, TaskDownload, req)

	var path string
	t.work = func(ctx context.Context) error {
		p, err := s.download(ctx, t, req, nil)
		path = p
		return err
	}
	t.onComplete = func(err error) {
		if completion != nil {
			completion(path, t.Response(), err)
		}
	}

	return t, nil
}

// DownloadTaskWithResumeData returns a suspended task continuing the
// download described by resumeData into its partial file.
func (s *Session) DownloadTaskWithResumeData(ctx context.Context, resumeData []byte, completion DownloadCompletion) (*Task, error) {
	if s.invalidated.Load() {
		return nil, ErrSessionInvalidated
	}

	rd, err := transfer.DecodeResumeData(resumeData)
	if err != nil {
		return nil, err
	}

	req, err := rd.Request(ctx)
	if err != nil {
		return nil, err
	}

	t := s.newTask(ctx, TaskDownload, req)

	var path string
	t.work = func(ctx context.Context) error {
		p, err := s.download(ctx, t, req, rd)
		path = p
		return err
	}
	t.onComplete = func(err error) {
		if completion != nil {
			completion(path, t.Response(), err)
		}
	}

	return t, nil
}

// prepare builds the request of a new task.
func (s *Session) prepare(ctx context.Context, r Requestable) (*http.Request, error) {
	if s.invalidated.Load() {
		return nil, ErrSessionInvalidated
	}
	return buildRequest(ctx, r)
}

// bindData sets up t to read the whole response body into memory.
func (s *Session) bindData(t *Task, req *http.Request, completion DataCompletion) {
	var data []byte

	t.work = func(ctx context.Context) error {
		send := req
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return fmt.Errorf("opening upload body: %w", err)
			}
			if t.delegates.wantsProgress() {
				body = transfer.NewProgressReader(body, req.ContentLength, func(sent, total int64) {
					t.delegates.didSendBodyData(t, sent, total)
				})
			}
			send = req.Clone(ctx)
			send.Body = body
			// Only Body carries the progress and idle-timer readers.
			send.GetBody = nil
		}

		resp, ctx, release, err := t.exchange(ctx, send)
		if err != nil {
			return err
		}
		defer release()

		b, err := io.ReadAll(resp.Body)
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Error("failed to close response body", "error", cerr)
		}
		if err != nil {
			return causeErr(ctx, err)
		}

		resp.Body = io.NopCloser(bytes.NewReader(b))
		data = b
		return nil
	}

	t.onComplete = func(err error) {
		if completion != nil {
			completion(data, t.Response(), err)
		}
	}
}

// download runs a download task. With resume data the body goes into the
// recorded partial file, otherwise into a new file in the download directory.
func (s *Session) download(ctx context.Context, t *Task, req *http.Request, rd *transfer.ResumeData) (string, error) {
	resp, ctx, release, err := t.exchange(ctx, req)
	if err != nil {
		return "", err
	}
	defer release()

	defer func() {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil && ctx.Err() == nil {
			s.logger.Error("failed to discard unused body", "error", err)
		}
		if err := resp.Body.Close(); err != nil {
			s.logger.Error("failed to close response body", "error", err)
		}
		resp.Body = http.NoBody
	}()

	var (
		path   string
		offset int64
	)
	switch {
	case rd != nil:
		if err := CheckStatus(resp, http.StatusOK, http.StatusPartialContent); err != nil {
			return "", err
		}
		path, offset = rd.Path, rd.StartOffset(resp)
	default:
		path, err = s.createDownloadFile()
		if err != nil {
			return "", err
		}
	}

	var progress transfer.ProgressFunc
	if t.delegates.wantsProgress() {
		progress = func(written, total int64) {
			t.delegates.didWriteData(t, written, total)
		}
	}

	size, err := transfer.WriteFile(ctx, resp.Body, resp.ContentLength, path, offset, s.logger, progress)
	if err == nil {
		t.setPath(path)
		return path, nil
	}
	err = causeErr(ctx, err)

	if t.wantsResumeData() {
		b, encErr := transfer.NewResumeData(req, resp, path, size).Encode()
		if encErr != nil {
			return "", errors.Join(err, encErr)
		}
		t.setResumeData(b)
		return "", err
	}

	if rd == nil {
		if rmErr := os.Remove(path); rmErr != nil {
			s.logger.Error("removing failed download", "path", path, "error", rmErr)
		}
	}

	return "", err
}

func (s *Session) createDownloadFile() (string, error) {
	dir := s.cfg.DownloadDirectory
	if dir == "" {
		dir = os.TempDir()
	}

	f, err := os.CreateTemp(dir, "httpsession-*.download")
	if err != nil {
		return "", fmt.Errorf("creating download file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing download file: %w", err)
	}

	return f.Name(), nil
}
