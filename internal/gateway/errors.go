package gateway

import (
	"errors"
	"fmt"
)

// ErrUnprocessable marks a 422 response from the comments API, which is how
// a rejected comment position shows up. It is wrapped in a *FatalError since
// retrying the identical payload cannot succeed.
var ErrUnprocessable = errors.New("unprocessable entity")

// TransientError is a retryable failure: rate limiting, server errors,
// timeouts, or network-class problems. The retry policy backs off and tries
// again until attempts are exhausted, at which point the last TransientError
// escalates to the caller.
type TransientError struct {
	// Op names the operation that failed, e.g. "fetch files".
	Op string

	// Err is the underlying cause.
	Err error
}

// Error returns the formatted error string.
func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// FatalError is a non-retryable failure: bad credentials, a missing pull
// request, or a payload the API permanently rejects. Fatal errors abort the
// operation immediately.
type FatalError struct {
	// Op names the operation that failed.
	Op string

	// Err is the underlying cause.
	Err error
}

// Error returns the formatted error string.
func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: fatal: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsFatal reports whether err is (or wraps) a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
