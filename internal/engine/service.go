// Package engine drives a bounded review run over one pull request: fetch
// the change set, judge the added lines, collect candidates, and post the
// review. The control flow is an explicit state machine with an iteration
// cap rather than an open-ended tool-calling loop, so a run's cost is
// bounded by construction and every transition is testable in isolation.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/roasbeef/prreview/internal/candidate"
	"github.com/roasbeef/prreview/internal/diff"
	"github.com/roasbeef/prreview/internal/gateway"
)

// Outcome labels how a run ended.
type Outcome string

const (
	// OutcomeDone means the run completed, possibly with per-candidate
	// post failures in the report.
	OutcomeDone Outcome = "done"

	// OutcomeFailed means a fatal error aborted the run.
	OutcomeFailed Outcome = "failed"
)

// Report is the user-visible summary of one run. A run always ends with an
// explicit outcome: Done with a full or partial success report, or Failed
// with the fatal cause returned alongside, never a silent no-op.
type Report struct {
	// RunID uniquely identifies the run.
	RunID string

	// Ref is the reviewed pull request.
	Ref gateway.PullRequestRef

	// Outcome is done or failed.
	Outcome Outcome

	// Termination is the recorded termination reason.
	Termination Termination

	// Iterations is the number of completed analysis rounds.
	Iterations int

	// Candidates is the number of validated candidates at post time.
	Candidates int

	// Posted is the number of successfully posted comments.
	Posted int

	// Failed maps candidate keys to the reason they failed to post.
	// Failures here are never retried automatically within the run; a
	// caller may re-invoke with the failed subset.
	Failed map[candidate.Key]string

	// Skipped lists files the run could not analyze.
	Skipped []SkippedFile

	// DryRun is set when posting was skipped by configuration.
	DryRun bool
}

// Runner executes review runs. A single Runner may serve many runs; all
// per-run state lives in the run's own FSM environment and runContext.
type Runner struct {
	cfg   Config
	gw    gateway.Gateway
	judge Judge
	log   *slog.Logger
}

// NewRunner creates a Runner from the given configuration, gateway, and
// judge.
func NewRunner(cfg Config, gw gateway.Gateway, judge Judge) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if gw == nil {
		return nil, fmt.Errorf("runner requires a gateway")
	}
	if judge == nil {
		return nil, fmt.Errorf("runner requires a judge")
	}

	return &Runner{
		cfg:   cfg,
		gw:    gw,
		judge: judge,
		log:   cfg.Logger.With("component", "engine"),
	}, nil
}

// Run executes one review run for the given pull request. The returned
// report is non-nil whenever the run progressed far enough to have one;
// a non-nil error means the run Failed and carries the fatal cause.
func (r *Runner) Run(ctx context.Context,
	ref gateway.PullRequestRef) (*Report, error) {

	if err := ref.Validate(); err != nil {
		return nil, err
	}

	runID := newRunID()
	log := r.log.With("run_id", runID, "pr", ref.String())

	fsm := NewLoopFSM(ref, r.cfg.MaxIterations)
	rc := &runContext{
		store:   candidate.NewStore(),
		indexes: make(map[string]*diff.FileIndex),
	}

	report := &Report{
		RunID:  runID,
		Ref:    ref,
		DryRun: r.cfg.DryRun,
		Failed: make(map[candidate.Key]string),
	}

	log.Info("Starting review run",
		"max_iterations", r.cfg.MaxIterations,
		"file_workers", r.cfg.FileWorkers,
		"dry_run", r.cfg.DryRun,
	)

	// Drive the FSM: dispatch each outbox event, feed the resulting
	// loop event back in, and stop when the state machine is terminal.
	queue := []LoopOutboxEvent{FetchFiles{}}
	for len(queue) > 0 && !fsm.IsTerminal() {
		next := queue[0]
		queue = queue[1:]

		event := r.dispatch(ctx, log, ref, next, rc, report)
		if event == nil {
			continue
		}

		outbox, err := fsm.ProcessEvent(ctx, event)
		if err != nil {
			return nil, err
		}
		queue = append(queue, outbox...)
	}

	stats := fsm.Stats()
	report.Iterations = stats.Iterations
	report.Posted = stats.Posted
	report.Termination = stats.Termination
	report.Skipped = rc.skipped

	if failed, ok := fsm.State().(*StateFailed); ok {
		report.Outcome = OutcomeFailed
		return report, failed.Err
	}

	report.Outcome = OutcomeDone
	return report, nil
}

// dispatch executes one outbox event's side effect and returns the loop
// event to feed back into the FSM, or nil when the outbox event produces
// none. External calls check for cancellation first: a cancelled run aborts
// before the next call boundary, never mid-write of a comment batch.
func (r *Runner) dispatch(ctx context.Context, log *slog.Logger,
	ref gateway.PullRequestRef, outbox LoopOutboxEvent, rc *runContext,
	report *Report) LoopEvent {

	switch o := outbox.(type) {
	case FetchFiles:
		if err := ctx.Err(); err != nil {
			return FetchFailedEvent{Err: err}
		}

		cs, err := r.gw.FetchChangedFiles(ctx, ref)
		if err != nil {
			log.Error("Fetching changed files failed",
				"error", err,
			)
			return FetchFailedEvent{Err: err}
		}
		return FetchSucceededEvent{ChangeSet: cs}

	case AnalyzeChangeSet:
		return r.analyze(ctx, log, o.ChangeSet, rc)

	case CommitProposals:
		var committed ProposalsCommittedEvent
		for _, proposal := range o.Proposals {
			disp, err := rc.store.Propose(proposal)
			switch disp {
			case candidate.DispositionAccepted:
				committed.Accepted++
			case candidate.DispositionMerged:
				committed.Merged++
			case candidate.DispositionRejected:
				committed.Rejected++
				log.Warn("Rejected candidate",
					"path", proposal.Path,
					"line", proposal.Line,
					"error", err,
				)
			}
		}
		log.Debug("Committed proposals",
			"accepted", committed.Accepted,
			"merged", committed.Merged,
			"rejected", committed.Rejected,
		)
		return committed

	case PostDrained:
		drained := rc.store.Drain()
		report.Candidates = len(drained)

		if r.cfg.DryRun || len(drained) == 0 {
			return PostCompletedEvent{
				Result: gateway.NewPostResult(),
			}
		}

		if err := ctx.Err(); err != nil {
			return FatalErrorEvent{Err: err}
		}

		// Posting is serialized per run; the gateway owns retry and
		// rate-limit backoff.
		result, err := r.gw.PostComments(ctx, ref, drained)
		if err != nil {
			log.Error("Posting comments failed", "error", err)
			return FatalErrorEvent{Err: err}
		}

		for key, reason := range result.Failed {
			report.Failed[key] = reason
		}
		return PostCompletedEvent{Result: result}

	case RecordOutcome:
		log.Info("Review run finished",
			"termination", string(o.Termination),
		)
		return nil

	default:
		return FatalErrorEvent{
			Err: fmt.Errorf("unknown outbox event %T", outbox),
		}
	}
}

// newRunID returns a time-ordered unique run identifier, falling back to a
// random ID if V7 generation fails.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
