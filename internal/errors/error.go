package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// common errors
	ErrConnectionTimeout = errors.New("connection timeout")

	// imap errors
	ErrMailboxNotFound      = errors.New("mailbox not found")
	ErrMessageNotResolved   = errors.New("message could not be resolved on server")
	ErrRawSourceUnavailable = errors.New("raw message source unavailable")

	// storage errors
	ErrStorageNotWritable = errors.New("storage root is not writable")

	// upload errors
	ErrPreflightFailed = errors.New("preflight failed")
	ErrUploadFailed    = errors.New("upload failed")
)

// PreflightFailedError is returned when local validation rejects a file before any network call.
type PreflightFailedError struct {
	Path   string
	Reason string
}

func (e *PreflightFailedError) Error() string {
	return "Preflight failed: " + e.Reason
}

func (e *PreflightFailedError) Is(target error) bool {
	return target == ErrPreflightFailed
}

// HTTPError carries a classified non-2xx response.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Status == 406 {
		return fmt.Sprintf("Lexware 406 Not Acceptable, likely file type/extension issue or e-invoice not enabled. Response: %s", e.Body)
	}
	return fmt.Sprintf("Lexware upload failed: HTTP %d: %s", e.Status, e.Body)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrUploadFailed
}

// TransportError is returned once every attempt failed below the HTTP layer.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Lexware transport failure after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrUploadFailed
}

// GenericError wraps unexpected faults while building or sending a request.
type GenericError struct {
	Err error
}

func (e *GenericError) Error() string {
	return e.Err.Error()
}

func (e *GenericError) Unwrap() error {
	return e.Err
}

func (e *GenericError) Is(target error) bool {
	return target == ErrUploadFailed
}

func IsPreflightFailed(err error) bool {
	return errors.Is(err, ErrPreflightFailed)
}
