// Package gateway wraps the two operations the review engine needs from the
// code-hosting API: fetching a pull request's changed files and posting
// inline review comments. It owns retry with bounded exponential backoff,
// the transient/fatal error split, per-candidate partial-failure reporting,
// and idempotency across re-posts within a gateway's lifetime.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/roasbeef/prreview/internal/candidate"
)

// PullRequestRef identifies one pull request. Credentials and identifiers
// are always explicit parameters here, never process-wide state, so the
// gateway can be reused and tested in isolation.
type PullRequestRef struct {
	// Owner is the repository owner login.
	Owner string

	// Repo is the repository name.
	Repo string

	// Number is the pull request number.
	Number int
}

// String returns the owner/repo#number form of the reference.
func (r PullRequestRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// Validate checks that all reference fields are populated.
func (r PullRequestRef) Validate() error {
	if r.Owner == "" || r.Repo == "" {
		return fmt.Errorf("pull request ref missing owner/repo")
	}
	if r.Number <= 0 {
		return fmt.Errorf("pull request ref has invalid number %d",
			r.Number)
	}
	return nil
}

// ChangedFile is one file of a pull request's change set.
type ChangedFile struct {
	// Path is the new-file path.
	Path string

	// Patch is the unified-diff body for the file. Empty for binary or
	// oversized files and for pure renames.
	Patch string

	// Status is the change kind reported by the API: added, modified,
	// removed, renamed, copied.
	Status string

	// Binary is set when the API returned no patch text for the file.
	Binary bool
}

// ChangeSet is the full set of per-file diffs for one pull request at fetch
// time. It is created once per review run, immutable afterwards, and
// discarded when the run ends.
type ChangeSet struct {
	// Ref is the pull request the change set was fetched from.
	Ref PullRequestRef

	// Files are the changed files in API order.
	Files []ChangedFile

	// FetchedAt records when the change set was retrieved.
	FetchedAt time.Time
}

// PostResult reports the per-candidate outcome of a PostComments call.
// Partial failure is the expected case: one malformed position must not
// block posting the rest.
type PostResult struct {
	// Succeeded holds the keys of candidates that are confirmed posted,
	// including candidates that already succeeded on an earlier attempt
	// and were skipped this time.
	Succeeded map[candidate.Key]struct{}

	// Failed maps each failed candidate key to the reason it failed.
	Failed map[candidate.Key]string
}

// NewPostResult creates an empty PostResult.
func NewPostResult() *PostResult {
	return &PostResult{
		Succeeded: make(map[candidate.Key]struct{}),
		Failed:    make(map[candidate.Key]string),
	}
}

// Gateway is the engine-facing interface over the code-hosting API. The
// engine only ever needs these two calls; everything else about the HTTP
// surface stays behind this boundary.
type Gateway interface {
	// FetchChangedFiles retrieves the pull request's changed files with
	// their patches. Rate-limit and network-class failures surface as
	// *TransientError after retries are exhausted; authorization and
	// not-found failures surface as *FatalError without retrying.
	FetchChangedFiles(ctx context.Context,
		ref PullRequestRef) (*ChangeSet, error)

	// PostComments posts the given candidates as inline review
	// comments, reporting success and failure per candidate. Candidates
	// that already succeeded through this gateway instance are not
	// re-posted.
	PostComments(ctx context.Context, ref PullRequestRef,
		cands []candidate.Candidate) (*PostResult, error)
}
