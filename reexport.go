package httpsession

import (
	"github.com/adamwoolhether/httpsession/session"
	"github.com/adamwoolhether/httpsession/session/transfer"
)

// ————————————————————————————————————————————————————————————————————
// Type aliases – re-export user-facing types from [session].
// ————————————————————————————————————————————————————————————————————

type (
	// Session issues tasks using a resolved configuration.
	Session = session.Session

	// Configuration is one declarative option contributed to a session.
	Configuration = session.Configuration

	// RequestBuildError reports that a Requestable failed to build its request.
	RequestBuildError = session.RequestBuildError
)

// ————————————————————————————————————————————————————————————————————
// Sentinel errors
// ————————————————————————————————————————————————————————————————————

var (
	// ErrInvalidResponse is returned when a task completes with neither a payload nor an error.
	ErrInvalidResponse = session.ErrInvalidResponse

	// ErrRequestTimedOut indicates no data arrived within the request timeout.
	ErrRequestTimedOut = session.ErrRequestTimedOut

	// ErrInvalidResumeData indicates resume data could not be decoded.
	ErrInvalidResumeData = transfer.ErrInvalidResumeData

	// ErrContentLengthMismatch indicates the byte count did not match Content-Length.
	ErrContentLengthMismatch = transfer.ErrContentLengthMismatch
)
