package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/prreview/internal/candidate"
	"github.com/roasbeef/prreview/internal/diff"
	"github.com/roasbeef/prreview/internal/gateway"
)

// SkippedFile records a file the run could not analyze, and why. Skips are
// surfaced in the run report rather than silently dropped so a reviewer can
// audit what the run did not look at.
type SkippedFile struct {
	Path   string
	Reason string
}

// runContext carries the per-run mutable state shared across dispatch
// steps: the candidate store, the parsed file indexes, and the skip list.
// One runContext exists per run; it is never shared across runs.
type runContext struct {
	store   *candidate.Store
	indexes map[string]*diff.FileIndex
	skipped []SkippedFile
	parsed  bool
}

// fileFindings is the per-file result of one analysis round.
type fileFindings struct {
	proposals  []candidate.Candidate
	morePasses bool
}

// analyze runs one analysis round over the change set: parse every file's
// patch (first round only; indexes are cached for later rounds), select
// added lines through the file index, and fan the judge out across files.
//
// Parsing failures are file-scoped: a malformed or binary patch records a
// skip and the round continues. Judge failures likewise cost only that
// file's findings for this round. Neither is ever fatal to the run.
func (r *Runner) analyze(ctx context.Context, log *slog.Logger,
	cs *gateway.ChangeSet, rc *runContext) AnalysisCompleteEvent {

	if !rc.parsed {
		r.parseChangeSet(log, cs, rc)
		rc.parsed = true
	}

	// Collect the files that actually have added lines to judge.
	type target struct {
		path  string
		added []diff.AddedLine
	}
	var targets []target
	for _, f := range cs.Files {
		idx, ok := rc.indexes[f.Path]
		if !ok {
			continue
		}
		added := idx.AddedLines()
		if len(added) == 0 {
			continue
		}
		targets = append(targets, target{path: f.Path, added: added})
	}

	// Fan out per file, bounded by the worker semaphore. Result order
	// does not matter: the candidate store re-sorts on drain.
	results := make([]fn.Result[fileFindings], len(targets))
	sem := make(chan struct{}, r.cfg.FileWorkers)

	var wg sync.WaitGroup
	for i, tgt := range targets {
		wg.Add(1)
		go func(i int, tgt target) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			judgment, err := r.judge.Evaluate(
				ctx, tgt.path, tgt.added,
			)
			if err != nil {
				results[i] = fn.Err[fileFindings](err)
				return
			}

			ff := fileFindings{
				morePasses: judgment.MorePasses,
			}
			for _, finding := range judgment.Findings {
				ff.proposals = append(
					ff.proposals, candidate.Candidate{
						Path: tgt.path,
						Line: finding.Line,
						Body: finding.Body,
						Provenance: []string{
							finding.Rule,
						},
					},
				)
			}
			results[i] = fn.Ok(ff)
		}(i, tgt)
	}
	wg.Wait()

	var event AnalysisCompleteEvent
	for i, res := range results {
		ff, err := res.Unpack()
		if err != nil {
			// An opaque judge failure means no findings from
			// this file for this round, nothing more.
			log.Warn("Judge failed for file",
				"path", targets[i].path, "error", err,
			)
			continue
		}

		event.Proposals = append(event.Proposals, ff.proposals...)
		event.MorePasses = event.MorePasses || ff.morePasses
	}

	return event
}

// parseChangeSet parses every file's patch once, registering indexes for
// parseable files and recording explicit skips for the rest.
func (r *Runner) parseChangeSet(log *slog.Logger, cs *gateway.ChangeSet,
	rc *runContext) {

	for _, f := range cs.Files {
		if f.Patch == "" {
			// Pure renames and copies legitimately carry no
			// patch; everything else without one is binary or
			// oversized and cannot be reviewed line by line.
			if f.Status == "renamed" || f.Status == "copied" {
				continue
			}
			rc.skipped = append(rc.skipped, SkippedFile{
				Path:   f.Path,
				Reason: "no textual patch (binary or oversized)",
			})
			continue
		}

		hunks, err := diff.Parse(f.Patch, f.Path)
		switch {
		case errors.Is(err, diff.ErrBinaryPatch):
			rc.skipped = append(rc.skipped, SkippedFile{
				Path:   f.Path,
				Reason: "binary patch",
			})
			continue

		case err != nil:
			// Malformed diffs are skipped, not fatal: the
			// engine raises, the run-level policy here is to
			// keep going with the rest of the change set.
			log.Warn("Skipping unparseable file",
				"path", f.Path, "error", err,
			)
			rc.skipped = append(rc.skipped, SkippedFile{
				Path:   f.Path,
				Reason: err.Error(),
			})
			continue
		}

		idx := diff.NewFileIndex(f.Path, hunks)
		rc.indexes[f.Path] = idx
		rc.store.Register(idx)
	}
}
