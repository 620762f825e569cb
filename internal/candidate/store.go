// Package candidate collects proposed inline review comments for a single
// run, enforcing the two invariants that keep a review postable: at most one
// comment per (file, line), and comments only on added lines.
package candidate

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roasbeef/prreview/internal/diff"
)

// mergeSeparator joins the bodies of candidates that collide on the same
// (file, line) key.
const mergeSeparator = "\n\n---\n\n"

// Disposition is the outcome of proposing a candidate.
type Disposition uint8

const (
	// DispositionRejected means the candidate violated an invariant and
	// was not stored.
	DispositionRejected Disposition = iota

	// DispositionAccepted means the candidate was stored under a fresh
	// key.
	DispositionAccepted

	// DispositionMerged means the candidate's body was folded into an
	// existing candidate for the same (file, line).
	DispositionMerged
)

// String returns a human-readable name for the disposition.
func (d Disposition) String() string {
	switch d {
	case DispositionRejected:
		return "rejected"
	case DispositionAccepted:
		return "accepted"
	case DispositionMerged:
		return "merged"
	default:
		return "unknown"
	}
}

// Key identifies a candidate by file path and new-file line number.
type Key struct {
	Path string
	Line int
}

// Candidate is a proposed but not-yet-posted inline comment.
type Candidate struct {
	// Path is the file the comment targets.
	Path string

	// Line is the new-file line number of the target.
	Line int

	// Position is the diff-relative position for the target line. The
	// store always recomputes this from its registered index rather than
	// trusting the proposer.
	Position int

	// Body is the comment text.
	Body string

	// Provenance names the rules or judgments that produced the comment,
	// in first-seen order.
	Provenance []string
}

// Key returns the candidate's (path, line) key.
func (c *Candidate) Key() Key {
	return Key{Path: c.Path, Line: c.Line}
}

// Store holds the candidates of one review run. One store exists per run and
// is never shared across runs; the mutex only guards concurrent proposers
// within that run.
type Store struct {
	mu      sync.Mutex
	indexes map[string]*diff.FileIndex
	byKey   map[Key]*Candidate
}

// NewStore creates an empty candidate store.
func NewStore() *Store {
	return &Store{
		indexes: make(map[string]*diff.FileIndex),
		byKey:   make(map[Key]*Candidate),
	}
}

// Register associates a file path with its diff index. Candidates for
// unregistered paths are rejected, since without an index there is no way to
// prove the target is an added line.
func (s *Store) Register(idx *diff.FileIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.indexes[idx.Path()] = idx
}

// Propose validates a candidate and stores it. The target line must resolve
// to an added line through the file's registered index; this re-check is
// defense in depth on top of the engine filtering judge inputs to added
// lines. On a (file, line) collision the bodies are concatenated and the
// provenance lists appended in first-seen order, so a single review never
// carries duplicate comments on one line.
func (s *Store) Propose(c Candidate) (Disposition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexes[c.Path]
	if !ok {
		return DispositionRejected, fmt.Errorf(
			"no diff index registered for %s", c.Path,
		)
	}

	pos, err := idx.PositionFor(c.Line)
	if err != nil {
		return DispositionRejected, err
	}
	c.Position = pos

	if strings.TrimSpace(c.Body) == "" {
		return DispositionRejected, fmt.Errorf(
			"empty comment body for %s:%d", c.Path, c.Line,
		)
	}

	key := c.Key()
	if existing := s.byKey[key]; existing != nil {
		existing.Body += mergeSeparator + c.Body
		existing.Provenance = append(
			existing.Provenance, c.Provenance...,
		)
		return DispositionMerged, nil
	}

	stored := c
	stored.Provenance = slices.Clone(c.Provenance)
	s.byKey[key] = &stored

	return DispositionAccepted, nil
}

// Drain returns the stored candidates ordered by file path, then line
// number. The ordering is deterministic regardless of insertion order so
// posting is reproducible, and the call is a pure read: draining twice
// without intervening proposals yields identical output.
func (s *Store) Drain() []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Candidate, 0, len(s.byKey))
	for _, c := range s.byKey {
		cc := *c
		cc.Provenance = slices.Clone(c.Provenance)
		out = append(out, cc)
	}

	slices.SortFunc(out, func(a, b Candidate) int {
		if a.Path != b.Path {
			return strings.Compare(a.Path, b.Path)
		}
		return a.Line - b.Line
	})

	return out
}

// Len returns the number of stored candidates.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.byKey)
}
