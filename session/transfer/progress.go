package transfer

import (
	"io"
	"time"
)

// ProgressFunc receives the bytes moved so far and the expected total,
// which is -1 when unknown.
type ProgressFunc func(transferred, total int64)

// progressInterval limits how often a ProgressFunc is invoked mid-transfer.
const progressInterval = 250 * time.Millisecond

// progress reports transfer progress at most once per interval,
// plus once when the expected total is reached.
type progress struct {
	fn          ProgressFunc
	transferred int64
	total       int64
	lastReport  time.Time
}

func (p *progress) add(n int) {
	if n <= 0 || p.fn == nil {
		return
	}
	p.transferred += int64(n)

	if p.total >= 0 && p.transferred == p.total {
		p.lastReport = time.Now()
		p.fn(p.transferred, p.total)
		return
	}

	if time.Since(p.lastReport) >= progressInterval {
		p.lastReport = time.Now()
		p.fn(p.transferred, p.total)
	}
}

// ProgressWriter is an io.Writer reporting bytes written through fn.
type ProgressWriter struct {
	w io.Writer
	p progress
}

// NewProgressWriter wraps w. offset counts bytes already written before w.
func NewProgressWriter(w io.Writer, offset, total int64, fn ProgressFunc) *ProgressWriter {
	return &ProgressWriter{w: w, p: progress{fn: fn, transferred: offset, total: total}}
}

func (pw *ProgressWriter) Write(b []byte) (int, error) {
	n, err := pw.w.Write(b)
	pw.p.add(n)
	return n, err
}

// ProgressReader is an io.ReadCloser reporting bytes read through fn.
type ProgressReader struct {
	r io.ReadCloser
	p progress
}

// NewProgressReader wraps r, whose full size is total.
func NewProgressReader(r io.ReadCloser, total int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, p: progress{fn: fn, total: total}}
}

func (pr *ProgressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	pr.p.add(n)
	return n, err
}

func (pr *ProgressReader) Close() error {
	return pr.r.Close()
}
