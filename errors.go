package switcher

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the error kinds named in the design: callers
// use errors.Is against these to branch on failure category without
// parsing message strings.
var (
	// ErrContextInvalid is returned when BuildContext (or a subsequent
	// operation that requires auth) is missing a required field.
	ErrContextInvalid = errors.New("switcher: context invalid")

	// ErrAuthFailed is returned whenever the auth call fails: a 401 from
	// /criteria/auth, any other non-2xx or transport error on that call,
	// or a success response that carries no token.
	ErrAuthFailed = errors.New("switcher: authentication failed")

	// ErrRemoteFailed is returned for any non-2xx response from a remote
	// transport operation other than auth (snapshot version check,
	// snapshot resolve, health check).
	ErrRemoteFailed = errors.New("switcher: remote operation failed")

	// ErrCriteriaRemoteFailed is returned for a non-2xx response from
	// POST /criteria specifically.
	ErrCriteriaRemoteFailed = errors.New("switcher: remote criteria check failed")

	// ErrSnapshotNotLoaded is returned by the resolver when local
	// evaluation is requested but no snapshot has been loaded yet.
	ErrSnapshotNotLoaded = errors.New("switcher: snapshot not loaded")

	// ErrKeyNotFound is returned by the resolver when no config in the
	// snapshot carries the requested key.
	ErrKeyNotFound = errors.New("switcher: key not found in snapshot")

	// ErrValidationInput is returned for malformed caller input: a
	// missing key, a bad duration string, or an unsupported time unit.
	ErrValidationInput = errors.New("switcher: invalid input")
)

// OpError wraps one of the sentinel errors above with the operation name
// and, where applicable, an HTTP status code, following the
// wrap-with-context error style used in internal/core/errors.go and
// internal/infrastructure/publishing/webhook_errors.go.
type OpError struct {
	Op     string // operation name, e.g. "checkSnapshotVersion"
	Status int    // HTTP status code, 0 if not applicable
	Err    error  // one of the sentinels above
	Cause  error  // underlying cause, if any (network error, decode error...)
}

func (e *OpError) Error() string {
	if e.Status != 0 {
		if e.Cause != nil {
			return fmt.Sprintf("switcher: %s: %v (status=%d): %v", e.Op, e.Err, e.Status, e.Cause)
		}
		return fmt.Sprintf("switcher: %s: %v (status=%d)", e.Op, e.Err, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("switcher: %s: %v: %v", e.Op, e.Err, e.Cause)
	}
	return fmt.Sprintf("switcher: %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func newOpError(op string, kind error, status int, cause error) *OpError {
	return &OpError{Op: op, Status: status, Err: kind, Cause: cause}
}
