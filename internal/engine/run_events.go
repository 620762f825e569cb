package engine

import (
	"github.com/roasbeef/prreview/internal/candidate"
	"github.com/roasbeef/prreview/internal/gateway"
)

// LoopEvent is the sealed interface for events that drive the review loop
// FSM. All event types must implement the unexported isLoopEvent method.
type LoopEvent interface {
	// isLoopEvent seals the interface to prevent external
	// implementations.
	isLoopEvent()
}

// Ensure all event types implement LoopEvent.
func (FetchSucceededEvent) isLoopEvent()      {}
func (FetchFailedEvent) isLoopEvent()         {}
func (AnalysisCompleteEvent) isLoopEvent()    {}
func (ProposalsCommittedEvent) isLoopEvent()  {}
func (PostCompletedEvent) isLoopEvent()       {}
func (FatalErrorEvent) isLoopEvent()          {}

// FetchSucceededEvent is sent when the pull request's change set has been
// retrieved.
type FetchSucceededEvent struct {
	ChangeSet *gateway.ChangeSet
}

// FetchFailedEvent is sent when fetching the change set failed, either
// fatally or after retries were exhausted. Both abort the run.
type FetchFailedEvent struct {
	Err error
}

// AnalysisCompleteEvent is sent when one analysis round over the change set
// has finished.
type AnalysisCompleteEvent struct {
	// Proposals are the candidates produced by the judges this round.
	Proposals []candidate.Candidate

	// MorePasses is set when any judge asked for another round.
	MorePasses bool
}

// ProposalsCommittedEvent is sent after this round's proposals have been
// validated against the candidate store.
type ProposalsCommittedEvent struct {
	Accepted int
	Merged   int
	Rejected int
}

// PostCompletedEvent is sent when the drained candidates have been posted,
// possibly with per-candidate failures.
type PostCompletedEvent struct {
	Result *gateway.PostResult
}

// FatalErrorEvent is sent when an unrecoverable error occurred in any
// non-terminal state.
type FatalErrorEvent struct {
	Err error
}
