// Package agent defines the Agent contract internal/match drives each turn,
// plus the three reference implementations named in spec.md §6: random,
// baseline, and fallible. The interface shape (ID/Probe/Act) is grounded on
// the teacher's native.Runtime (internal/native/types.go): Probe(ctx)
// mirrors Runtime.Probe(ctx) verbatim as the preflight/health-check hook,
// and Act(ctx, observation) generalizes Runtime.StartTurn from a streamed
// multi-event thread protocol down to the spec's simpler one-shot
// raw-text-out-per-turn contract.
package agent

import (
	"context"

	"github.com/marcohefti/matchlab/internal/jsonval"
)

// ID is an agent's registry key plus instance identity (spec.md's agentId).
type ID string

// Agent is resolved by internal/registry and driven once per turn by
// internal/match. Act must not block past ctx's deadline; the match runner
// races it against the per-turn timeout and abandons (never kills) a
// goroutine that overruns, per spec.md §5's no-shared-mutation-after-
// timeout rule.
type Agent interface {
	// ID is the agent's registry name (e.g. "random", "baseline",
	// "fallible"), not the per-match instance identifier assigned by the
	// match/tournament runner.
	ID() string

	// Probe is a cheap preflight check the runner can call before the
	// match starts; a non-nil error here becomes a MatchSetupFailed event
	// rather than a mid-match forfeiture.
	Probe(ctx context.Context) error

	// Act receives the turn's observation (scenario.Scenario.Observation's
	// output) and returns the raw text the agent "emitted" — the match
	// runner feeds this through internal/decoder, never parses it itself.
	Act(ctx context.Context, observation jsonval.Value) (raw string, err error)
}

// Constructor matches what internal/registry expects from an agent
// package's New function.
type Constructor func(seed uint32) (Agent, error)
