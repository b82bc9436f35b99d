package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrContentLengthMismatch indicates the byte count did not match Content-Length.
	ErrContentLengthMismatch = errors.New("content length mismatch")
	// ErrChecksumMismatch indicates the file checksum did not match the expected value.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrQueueShutdown indicates work was started on a queue that no longer accepts it.
	ErrQueueShutdown = errors.New("queue shut down")
	// ErrInvalidResumeData indicates resume data could not be decoded or is incomplete.
	ErrInvalidResumeData = errors.New("invalid resume data")
)

// Error wraps a sentinel error with additional detail.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}
