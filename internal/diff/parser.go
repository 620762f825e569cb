package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// hunkHeaderRe matches a unified-diff hunk header. The length fields are
// optional and default to 1 when omitted, per the unified-diff format.
var hunkHeaderRe = regexp.MustCompile(
	`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`,
)

// binaryMarkers identify patch text that describes a binary change rather
// than reviewable lines.
var binaryMarkers = []string{
	"Binary files ",
	"GIT binary patch",
}

// preamblePrefixes are git metadata lines that may appear before the first
// hunk header when callers hand us a full git diff rather than the bare
// patch body the GitHub files API returns.
var preamblePrefixes = []string{
	"diff ",
	"index ",
	"--- ",
	"+++ ",
	"old mode",
	"new mode",
	"new file mode",
	"deleted file mode",
	"similarity index",
	"dissimilarity index",
	"rename from",
	"rename to",
	"copy from",
	"copy to",
}

// Parse parses raw unified-diff text for a single file into an ordered
// sequence of hunks. It is a pure function: the same input always yields the
// same hunks.
//
// Empty input yields no hunks and no error, which is how pure renames show
// up. Binary patches yield ErrBinaryPatch. Any structural inconsistency, a
// hunk whose declared ranges disagree with the lines present or a body line
// with an unrecognized prefix, yields a *MalformedError. The parser never
// guesses: deciding whether a malformed file sinks the whole run is the
// caller's policy.
func Parse(raw, path string) ([]Hunk, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	for _, marker := range binaryMarkers {
		if strings.Contains(raw, marker) {
			return nil, fmt.Errorf("%s: %w", path, ErrBinaryPatch)
		}
	}

	lines := strings.Split(raw, "\n")
	if n := len(lines); lines[n-1] == "" {
		lines = lines[:n-1]
	}

	var (
		hunks    []Hunk
		cur      *Hunk
		curStart int
		oldNext  int
		newNext  int
		position int
	)

	closeHunk := func() error {
		if cur == nil {
			return nil
		}
		return checkHunkCounts(cur, path, curStart)
	}

	for i, ln := range lines {
		offset := i + 1

		if m := hunkHeaderRe.FindStringSubmatch(ln); m != nil {
			if err := closeHunk(); err != nil {
				return nil, err
			}

			// The first header starts the position counter at
			// zero so its first body line lands on position 1.
			// Every later header consumes a position itself.
			if len(hunks) > 0 {
				position++
			}

			hunks = append(hunks, Hunk{
				OldStart: mustAtoi(m[1]),
				OldLines: atoiDefault(m[2], 1),
				NewStart: mustAtoi(m[3]),
				NewLines: atoiDefault(m[4], 1),
			})
			cur = &hunks[len(hunks)-1]
			curStart = offset
			oldNext = cur.OldStart
			newNext = cur.NewStart
			continue
		}

		if cur == nil {
			if isPreamble(ln) {
				continue
			}
			return nil, &MalformedError{
				Path:   path,
				Offset: offset,
				Reason: fmt.Sprintf("unexpected line %q "+
					"before first hunk header", ln),
			}
		}

		position++

		switch {
		case strings.HasPrefix(ln, "+"):
			cur.Lines = append(cur.Lines, Line{
				Class:    ClassAdded,
				Text:     ln[1:],
				OldLine:  fn.None[int](),
				NewLine:  fn.Some(newNext),
				Position: position,
			})
			newNext++

		case strings.HasPrefix(ln, "-"):
			cur.Lines = append(cur.Lines, Line{
				Class:    ClassRemoved,
				Text:     ln[1:],
				OldLine:  fn.Some(oldNext),
				NewLine:  fn.None[int](),
				Position: position,
			})
			oldNext++

		case strings.HasPrefix(ln, " "), ln == "":
			// Some producers emit genuinely empty lines for empty
			// context lines instead of a single space.
			text := ln
			if text != "" {
				text = ln[1:]
			}
			cur.Lines = append(cur.Lines, Line{
				Class:    ClassContext,
				Text:     text,
				OldLine:  fn.Some(oldNext),
				NewLine:  fn.Some(newNext),
				Position: position,
			})
			oldNext++
			newNext++

		case strings.HasPrefix(ln, `\`):
			// "\ No newline at end of file". The marker consumes
			// a position in the API's addressing scheme but is
			// not a content line, so it is never emitted as a
			// Line and can never be a comment target.

		default:
			return nil, &MalformedError{
				Path:   path,
				Offset: offset,
				Reason: fmt.Sprintf("unrecognized line "+
					"prefix in %q", ln),
			}
		}
	}

	if err := closeHunk(); err != nil {
		return nil, err
	}

	return hunks, nil
}

// checkHunkCounts verifies the parser self-consistency invariant: within a
// hunk, context+added lines must equal the declared new-range length and
// context+removed lines must equal the declared old-range length.
func checkHunkCounts(h *Hunk, path string, headerOffset int) error {
	var oldCount, newCount int
	for _, ln := range h.Lines {
		switch ln.Class {
		case ClassContext:
			oldCount++
			newCount++
		case ClassAdded:
			newCount++
		case ClassRemoved:
			oldCount++
		}
	}

	if oldCount != h.OldLines || newCount != h.NewLines {
		return &MalformedError{
			Path:   path,
			Offset: headerOffset,
			Reason: fmt.Sprintf("hunk declares ranges "+
				"-%d,%d +%d,%d but contains %d old and "+
				"%d new lines",
				h.OldStart, h.OldLines, h.NewStart,
				h.NewLines, oldCount, newCount),
		}
	}

	return nil
}

// isPreamble reports whether a line is git metadata allowed before the first
// hunk header.
func isPreamble(ln string) bool {
	for _, prefix := range preamblePrefixes {
		if strings.HasPrefix(ln, prefix) {
			return true
		}
	}
	return false
}

// mustAtoi converts digits already validated by hunkHeaderRe.
func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// atoiDefault converts an optional header length field, falling back to the
// given default when the field was omitted.
func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, _ := strconv.Atoi(s)
	return n
}
