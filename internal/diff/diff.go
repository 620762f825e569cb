// Package diff parses unified-diff patch text into hunks with per-line
// classification and computes the diff-relative positions the GitHub review
// API uses to anchor inline comments. The position scheme is the usual source
// of misplaced review comments: the API wants a counter over the patch text
// itself, not the new-file line number, and the two drift apart as soon as a
// diff has context lines or more than one hunk.
package diff

import (
	"github.com/lightningnetwork/lnd/fn/v2"
)

// LineClass classifies a single line within a hunk.
type LineClass uint8

const (
	// ClassContext is a line present in both the old and new file.
	ClassContext LineClass = iota

	// ClassAdded is a line present only in the new file. Added lines are
	// the only valid targets for inline review comments.
	ClassAdded

	// ClassRemoved is a line present only in the old file.
	ClassRemoved
)

// String returns a human-readable name for the classification.
func (c LineClass) String() string {
	switch c {
	case ClassContext:
		return "context"
	case ClassAdded:
		return "added"
	case ClassRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Line is a single classified line of a hunk body.
type Line struct {
	// Class is the line classification.
	Class LineClass

	// Text is the line content with the leading +/-/space prefix
	// stripped.
	Text string

	// OldLine is the old-file line number. It is only defined for
	// context and removed lines.
	OldLine fn.Option[int]

	// NewLine is the new-file line number. It is only defined for
	// context and added lines.
	NewLine fn.Option[int]

	// Position is the diff-relative position of this line within the
	// file's whole patch. The line just below the first @@ header is
	// position 1, and every later line of the patch, subsequent @@
	// headers included, consumes a position. This counter, not NewLine,
	// is what the review API expects when anchoring a comment.
	Position int
}

// Hunk is one contiguous changed region of a file, with the old/new ranges
// declared by its @@ header and the classified body lines.
type Hunk struct {
	// OldStart and OldLines are the old-file range from the header.
	OldStart int
	OldLines int

	// NewStart and NewLines are the new-file range from the header.
	NewStart int
	NewLines int

	// Lines are the classified body lines in patch order.
	Lines []Line
}
