package engine

import (
	"context"
	"fmt"

	"github.com/roasbeef/prreview/internal/gateway"
)

// LoopFSM manages review-run state transitions using the ProcessEvent
// pattern. States are pure: every side effect is requested through outbox
// events that the Runner dispatches, so the whole control flow can be
// exercised in tests without touching the network.
type LoopFSM struct {
	state LoopState
	env   *LoopEnvironment
}

// NewLoopFSM creates a loop FSM in the Fetching state for the given pull
// request.
func NewLoopFSM(ref gateway.PullRequestRef, maxIterations int) *LoopFSM {
	return &LoopFSM{
		state: &StateFetching{},
		env: &LoopEnvironment{
			Ref:           ref,
			MaxIterations: maxIterations,
		},
	}
}

// ProcessEvent processes an event and returns the outbox events the caller
// should dispatch.
func (f *LoopFSM) ProcessEvent(ctx context.Context,
	event LoopEvent) ([]LoopOutboxEvent, error) {

	transition, err := f.state.ProcessEvent(ctx, event, f.env)
	if err != nil {
		return nil, fmt.Errorf("process event %T: %w", event, err)
	}

	f.state = transition.NextState

	return transition.OutboxEvents, nil
}

// CurrentState returns a string representation of the current state.
func (f *LoopFSM) CurrentState() string {
	return f.state.String()
}

// State returns the current LoopState.
func (f *LoopFSM) State() LoopState {
	return f.state
}

// IsTerminal returns true if the run has reached a terminal state.
func (f *LoopFSM) IsTerminal() bool {
	return f.state.IsTerminal()
}

// Stats returns a copy of the run bookkeeping.
func (f *LoopFSM) Stats() RunStats {
	return f.env.Stats
}

// Environment returns the FSM's environment.
func (f *LoopFSM) Environment() *LoopEnvironment {
	return f.env
}
