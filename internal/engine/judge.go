package engine

import (
	"context"

	"github.com/roasbeef/prreview/internal/diff"
)

// Finding is one issue a judge raised against an added line.
type Finding struct {
	// Line is the new-file line number the finding targets. The line
	// must be one of the added lines the judge was given; anything else
	// is rejected downstream by the candidate store.
	Line int

	// Body is the comment text.
	Body string

	// Rule names the rule or judgment that produced the finding, kept
	// as candidate provenance.
	Rule string
}

// Judgment is the outcome of evaluating one file's added lines.
type Judgment struct {
	// Findings are the issues raised, if any.
	Findings []Finding

	// MorePasses is set when the judge wants another evaluation round
	// over the change set. Rounds are bounded by Config.MaxIterations;
	// past the cap the loop posts whatever candidates exist.
	MorePasses bool
}

// Judge is the pluggable decision procedure that turns added lines into
// candidate comments. The engine treats implementations as opaque,
// potentially slow, and potentially failing: an evaluation error means "no
// findings from this file for this round" and is never fatal to the run.
// Implementations carry their own ruleset; the engine does not inspect or
// validate rule content. Any deterministic or learned procedure satisfying
// this contract is substitutable.
type Judge interface {
	// Evaluate judges the added lines of a single file. Only added
	// lines are ever passed in, so implementations never waste work on
	// lines that could not carry a comment anyway.
	Evaluate(ctx context.Context, path string,
		added []diff.AddedLine) (Judgment, error)
}
