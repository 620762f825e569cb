package engine

import (
	"github.com/roasbeef/prreview/internal/candidate"
	"github.com/roasbeef/prreview/internal/gateway"
)

// LoopOutboxEvent is the sealed interface for side effects requested by the
// loop FSM. States never perform I/O themselves; they emit outbox events and
// the Runner dispatches them, which keeps every transition pure and
// testable.
type LoopOutboxEvent interface {
	// isLoopOutboxEvent seals the interface to prevent external
	// implementations.
	isLoopOutboxEvent()
}

// Ensure all outbox event types implement LoopOutboxEvent.
func (FetchFiles) isLoopOutboxEvent()       {}
func (AnalyzeChangeSet) isLoopOutboxEvent() {}
func (CommitProposals) isLoopOutboxEvent()  {}
func (PostDrained) isLoopOutboxEvent()      {}
func (RecordOutcome) isLoopOutboxEvent()    {}

// FetchFiles requests retrieval of the pull request's changed files.
type FetchFiles struct{}

// AnalyzeChangeSet requests one analysis round: parse each file's patch,
// select its added lines, and run the judge over them.
type AnalyzeChangeSet struct {
	ChangeSet *gateway.ChangeSet
}

// CommitProposals requests validation and insertion of this round's
// proposals into the candidate store.
type CommitProposals struct {
	Proposals []candidate.Candidate
}

// PostDrained requests draining the candidate store and posting the result.
type PostDrained struct{}

// RecordOutcome requests that the run's final outcome be recorded in the
// report and the run log.
type RecordOutcome struct {
	Termination Termination
}
