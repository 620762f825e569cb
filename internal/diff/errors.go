package diff

import (
	"errors"
	"fmt"
)

// ErrBinaryPatch is returned by Parse when the patch text describes a binary
// change. Binary files carry no line content to review, so callers should
// record the file as skipped rather than treating this as a failure.
var ErrBinaryPatch = errors.New("binary patch has no reviewable lines")

// ErrNotAdded is the sentinel wrapped by NotAddedError. Use errors.Is with
// this value to detect rejected comment targets regardless of how deeply the
// error has been wrapped.
var ErrNotAdded = errors.New("target line is not an addition")

// MalformedError describes a patch that cannot be parsed: a hunk whose
// declared ranges disagree with the lines actually present, or a body line
// with no recognizable prefix. The error is scoped to a single file; callers
// decide whether to skip the file or abort the run.
type MalformedError struct {
	// Path is the new-file path the patch belongs to.
	Path string

	// Offset is the 1-based line offset into the raw patch text where
	// parsing failed. Zero when the failure is not tied to one line.
	Offset int

	// Reason is a human-readable description of the failure.
	Reason string
}

// Error returns the formatted error string.
func (e *MalformedError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("malformed diff for %s at patch line %d: %s",
			e.Path, e.Offset, e.Reason)
	}
	return fmt.Sprintf("malformed diff for %s: %s", e.Path, e.Reason)
}

// NotAddedError reports that a requested comment target is not an added line:
// it is either a context line, a line outside the changed region, or a line
// that was removed (and so has no new-file number at all).
type NotAddedError struct {
	// Path is the file the lookup ran against.
	Path string

	// Line is the requested new-file line number.
	Line int
}

// Error returns the formatted error string.
func (e *NotAddedError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, ErrNotAdded)
}

// Unwrap makes errors.Is(err, ErrNotAdded) work.
func (e *NotAddedError) Unwrap() error {
	return ErrNotAdded
}
