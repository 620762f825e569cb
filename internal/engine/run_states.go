package engine

import (
	"context"
	"fmt"

	"github.com/roasbeef/prreview/internal/gateway"
)

// Termination is the recorded reason a run ended.
type Termination string

const (
	// TerminationCompleted means the loop ran to completion.
	TerminationCompleted Termination = "completed"

	// TerminationIterationCap means the judge kept requesting more
	// rounds and the loop forced posting with whatever candidates
	// existed. This bounds cost and prevents runaway tool-calling.
	TerminationIterationCap Termination = "iteration-cap-reached"

	// TerminationFatal means an unrecoverable error aborted the run.
	TerminationFatal Termination = "fatal-error"
)

// RunStats is the bookkeeping owned exclusively by the loop: it is part of
// the FSM environment and never shared outside the run.
type RunStats struct {
	// Iterations counts completed analysis rounds.
	Iterations int

	// Posted is the cumulative count of successfully posted comments.
	Posted int

	// LastAction names the most recent action taken.
	LastAction string

	// Termination is the recorded reason the run ended.
	Termination Termination
}

// LoopEnvironment provides the context state transitions operate on.
type LoopEnvironment struct {
	// Ref is the pull request under review.
	Ref gateway.PullRequestRef

	// MaxIterations caps analysis rounds.
	MaxIterations int

	// ChangeSet is populated once fetching succeeds and reused for
	// every later analysis round.
	ChangeSet *gateway.ChangeSet

	// Stats is the run bookkeeping.
	Stats RunStats
}

// LoopState is the sealed interface for all loop states. Each state handles
// incoming events and returns a transition with the outbox events the Runner
// should dispatch next.
type LoopState interface {
	// ProcessEvent handles an incoming event and returns the next state
	// along with any outbox events to emit.
	ProcessEvent(ctx context.Context, event LoopEvent,
		env *LoopEnvironment) (*LoopTransition, error)

	// IsTerminal returns true if this is a terminal state.
	IsTerminal() bool

	// String returns a human-readable name for the state.
	String() string

	// isLoopState seals the interface.
	isLoopState()
}

// LoopTransition represents the result of processing an event.
type LoopTransition struct {
	NextState    LoopState
	OutboxEvents []LoopOutboxEvent
}

// Compile-time verification that all concrete states implement LoopState.
var (
	_ LoopState = (*StateFetching)(nil)
	_ LoopState = (*StateAnalyzing)(nil)
	_ LoopState = (*StateProposing)(nil)
	_ LoopState = (*StatePosting)(nil)
	_ LoopState = (*StateDone)(nil)
	_ LoopState = (*StateFailed)(nil)
)

// failTransition is the shared fatal-error transition reachable from any
// non-terminal state.
func failTransition(env *LoopEnvironment, err error) *LoopTransition {
	env.Stats.Termination = TerminationFatal
	return &LoopTransition{
		NextState: &StateFailed{Err: err},
		OutboxEvents: []LoopOutboxEvent{
			RecordOutcome{Termination: TerminationFatal},
		},
	}
}

// =============================================================================
// StateFetching: retrieving the pull request's change set.
// =============================================================================

// StateFetching is the initial state: the change set is being retrieved.
type StateFetching struct{}

// ProcessEvent handles events in the Fetching state.
func (s *StateFetching) ProcessEvent(_ context.Context, event LoopEvent,
	env *LoopEnvironment) (*LoopTransition, error) {

	switch e := event.(type) {
	case FetchSucceededEvent:
		env.ChangeSet = e.ChangeSet
		env.Stats.LastAction = "fetch"
		return &LoopTransition{
			NextState: &StateAnalyzing{},
			OutboxEvents: []LoopOutboxEvent{
				AnalyzeChangeSet{ChangeSet: e.ChangeSet},
			},
		}, nil

	case FetchFailedEvent:
		return failTransition(env, e.Err), nil

	case FatalErrorEvent:
		return failTransition(env, e.Err), nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state Fetching", event,
		)
	}
}

func (s *StateFetching) IsTerminal() bool { return false }
func (s *StateFetching) String() string   { return "fetching" }
func (s *StateFetching) isLoopState()     {}

// =============================================================================
// StateAnalyzing: parsing diffs and running judges over added lines.
// =============================================================================

// StateAnalyzing indicates an analysis round is in progress.
type StateAnalyzing struct{}

// ProcessEvent handles events in the Analyzing state.
func (s *StateAnalyzing) ProcessEvent(_ context.Context, event LoopEvent,
	env *LoopEnvironment) (*LoopTransition, error) {

	switch e := event.(type) {
	case AnalysisCompleteEvent:
		env.Stats.Iterations++
		env.Stats.LastAction = "analyze"
		return &LoopTransition{
			NextState: &StateProposing{MorePasses: e.MorePasses},
			OutboxEvents: []LoopOutboxEvent{
				CommitProposals{Proposals: e.Proposals},
			},
		}, nil

	case FatalErrorEvent:
		return failTransition(env, e.Err), nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state Analyzing", event,
		)
	}
}

func (s *StateAnalyzing) IsTerminal() bool { return false }
func (s *StateAnalyzing) String() string   { return "analyzing" }
func (s *StateAnalyzing) isLoopState()     {}

// =============================================================================
// StateProposing: inserting this round's proposals into the store.
// =============================================================================

// StateProposing indicates the round's findings are being validated and
// inserted into the candidate store. MorePasses carries whether the judge
// asked for another round.
type StateProposing struct {
	MorePasses bool
}

// ProcessEvent handles events in the Proposing state. Once the proposals
// are committed the loop either starts another analysis round, if the judge
// asked for one and the iteration cap permits it, or moves on to posting.
func (s *StateProposing) ProcessEvent(_ context.Context, event LoopEvent,
	env *LoopEnvironment) (*LoopTransition, error) {

	switch e := event.(type) {
	case ProposalsCommittedEvent:
		env.Stats.LastAction = "propose"

		if s.MorePasses {
			if env.Stats.Iterations < env.MaxIterations {
				return &LoopTransition{
					NextState: &StateAnalyzing{},
					OutboxEvents: []LoopOutboxEvent{
						AnalyzeChangeSet{
							ChangeSet: env.ChangeSet,
						},
					},
				}, nil
			}

			// The judge wants more rounds than the cap allows:
			// force posting with whatever candidates exist.
			env.Stats.Termination = TerminationIterationCap
		}

		return &LoopTransition{
			NextState:    &StatePosting{},
			OutboxEvents: []LoopOutboxEvent{PostDrained{}},
		}, nil

	case FatalErrorEvent:
		return failTransition(env, e.Err), nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state Proposing", event,
		)
	}
}

func (s *StateProposing) IsTerminal() bool { return false }
func (s *StateProposing) String() string   { return "proposing" }
func (s *StateProposing) isLoopState()     {}

// =============================================================================
// StatePosting: draining the store and posting the review.
// =============================================================================

// StatePosting indicates the drained candidates are being posted.
type StatePosting struct{}

// ProcessEvent handles events in the Posting state. Partial post failures
// are recorded in the result and the run still completes as Done; only a
// batch-level failure surfaces as FatalErrorEvent.
func (s *StatePosting) ProcessEvent(_ context.Context, event LoopEvent,
	env *LoopEnvironment) (*LoopTransition, error) {

	switch e := event.(type) {
	case PostCompletedEvent:
		if e.Result != nil {
			env.Stats.Posted = len(e.Result.Succeeded)
		}
		env.Stats.LastAction = "post"
		if env.Stats.Termination == "" {
			env.Stats.Termination = TerminationCompleted
		}
		return &LoopTransition{
			NextState: &StateDone{},
			OutboxEvents: []LoopOutboxEvent{
				RecordOutcome{
					Termination: env.Stats.Termination,
				},
			},
		}, nil

	case FatalErrorEvent:
		return failTransition(env, e.Err), nil

	default:
		return nil, fmt.Errorf(
			"unexpected event %T in state Posting", event,
		)
	}
}

func (s *StatePosting) IsTerminal() bool { return false }
func (s *StatePosting) String() string   { return "posting" }
func (s *StatePosting) isLoopState()     {}

// =============================================================================
// Terminal states: Done, Failed.
// =============================================================================

// StateDone indicates the run completed, possibly with a non-empty
// per-candidate failure list in its report.
type StateDone struct{}

// ProcessEvent returns an error since Done is a terminal state.
func (s *StateDone) ProcessEvent(_ context.Context, event LoopEvent,
	_ *LoopEnvironment) (*LoopTransition, error) {

	return nil, fmt.Errorf(
		"run is in terminal state Done, cannot process %T", event,
	)
}

func (s *StateDone) IsTerminal() bool { return true }
func (s *StateDone) String() string   { return "done" }
func (s *StateDone) isLoopState()     {}

// StateFailed indicates the run aborted on a fatal error.
type StateFailed struct {
	Err error
}

// ProcessEvent returns an error since Failed is a terminal state.
func (s *StateFailed) ProcessEvent(_ context.Context, event LoopEvent,
	_ *LoopEnvironment) (*LoopTransition, error) {

	return nil, fmt.Errorf(
		"run is in terminal state Failed, cannot process %T", event,
	)
}

func (s *StateFailed) IsTerminal() bool { return true }
func (s *StateFailed) String() string   { return "failed" }
func (s *StateFailed) isLoopState()     {}
