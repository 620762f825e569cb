package diff

import "slices"

// AddedLine is one added line of a file, addressed by its new-file line
// number. Added lines are the only inputs handed to a judge and the only
// valid inline comment targets.
type AddedLine struct {
	// Number is the new-file line number.
	Number int

	// Text is the line content without the diff prefix.
	Text string
}

// lineInfo is the per-line lookup record held by a FileIndex.
type lineInfo struct {
	class    LineClass
	position int
}

// FileIndex is a prebuilt mapping from new-file line number to
// classification and diff-relative position for one file's hunks. A linear
// scan over the hunks would do for typical diff sizes, but candidate
// validation queries the same file repeatedly within a run, so the index is
// built once per file and shared.
type FileIndex struct {
	path   string
	byLine map[int]lineInfo
	added  []AddedLine
}

// NewFileIndex builds the line-number index for a file's parsed hunks.
func NewFileIndex(path string, hunks []Hunk) *FileIndex {
	idx := &FileIndex{
		path:   path,
		byLine: make(map[int]lineInfo),
	}

	for _, h := range hunks {
		for _, ln := range h.Lines {
			// Removed lines have no new-file number and are
			// deliberately absent from the index, so lookups for
			// them fail the same way as lines outside the diff.
			if !ln.NewLine.IsSome() {
				continue
			}

			num := ln.NewLine.UnwrapOr(0)
			idx.byLine[num] = lineInfo{
				class:    ln.Class,
				position: ln.Position,
			}

			if ln.Class == ClassAdded {
				idx.added = append(idx.added, AddedLine{
					Number: num,
					Text:   ln.Text,
				})
			}
		}
	}

	return idx
}

// Path returns the file path the index was built for.
func (f *FileIndex) Path() string {
	return f.path
}

// PositionFor resolves a new-file line number to the diff-relative position
// the review API expects. It returns a *NotAddedError when the line is a
// context line, falls outside the changed region entirely, or was removed.
// This single check is what guarantees comments never land on unmodified or
// deleted lines.
func (f *FileIndex) PositionFor(targetLine int) (int, error) {
	info, ok := f.byLine[targetLine]
	if !ok || info.class != ClassAdded {
		return 0, &NotAddedError{Path: f.path, Line: targetLine}
	}
	return info.position, nil
}

// AddedLines returns the file's added lines in new-file line order.
func (f *FileIndex) AddedLines() []AddedLine {
	return slices.Clone(f.added)
}
