package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// WriteFile streams body into path starting at offset. Bytes before offset
// are kept and anything after it is truncated. contentLength is the length of
// body, or -1 if unknown.
//
// The returned size is the number of bytes in the file when WriteFile
// returns, on success and on failure alike, so a failed transfer can be
// continued from there. The file is never removed.
func WriteFile(ctx context.Context, body io.Reader, contentLength int64, path string, offset int64, logger *slog.Logger, fn ProgressFunc) (int64, error) {
	if offset < 0 {
		return 0, fmt.Errorf("offset[%d] must not be negative", offset)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return 0, fmt.Errorf("opening download file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("defer closing download file", "error", err)
		}
	}()

	if err := file.Truncate(offset); err != nil {
		return 0, fmt.Errorf("truncating download file: %w", err)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seeking download file: %w", err)
	}

	total := int64(-1)
	if contentLength >= 0 {
		total = offset + contentLength
	}

	var writer io.Writer = file
	if fn != nil {
		writer = NewProgressWriter(file, offset, total, fn)
	}

	n, err := io.Copy(writer, &contextReader{ctx: ctx, r: body})
	size := offset + n
	if err != nil {
		return size, fmt.Errorf("copying body: %w", err)
	}

	if contentLength >= 0 && n != contentLength {
		return size, &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", contentLength, n),
		}
	}

	if err := file.Sync(); err != nil {
		return size, fmt.Errorf("syncing download file: %w", err)
	}
	if err := file.Close(); err != nil {
		return size, fmt.Errorf("closing download file: %w", err)
	}

	return size, nil
}

// contextReader stops reading once ctx is done, reporting its cause.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if cr.ctx.Err() != nil {
		return 0, context.Cause(cr.ctx)
	}
	return cr.r.Read(p)
}
