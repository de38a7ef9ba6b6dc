// Package scenario defines the Scenario contract that internal/match drives
// turn by turn; the two reference scenarios named in spec.md §6 live in its
// subpackages: numberguess (single-agent, fully-observed) and heist
// (two-agent, hidden state, competitive-mode aggregation). The interface
// shape is grounded on the teacher's campaign.MissionExecutor
// (internal/campaign/engine.go): its Prepare/RunMission/Cleanup drive is
// generalized from whole-mission execution to per-turn stepping
// (Init, then Observe/Adjudicate each turn) since a match needs to
// interleave scenario state advance with agent I/O and event emission. The
// query methods below (Observe/Adjudicate/IsTerminal/Summarize/Score/
// Reveal) mirror spec.md §6's external Scenario interface directly, so the
// match runner never special-cases a scenario's internals.
package scenario

import (
	"context"

	"github.com/marcohefti/matchlab/internal/decoder"
	"github.com/marcohefti/matchlab/internal/jsonval"
)

// AgentSeat is a (1-based) position index into the match's agent slice.
type AgentSeat int

// Scenario is implemented once per game and resolved by name through
// internal/registry. All methods are deterministic functions of the
// scenario's internal state plus the scenarioSeed handed to Init: the match
// runner never calls time.Now or crypto/rand on a scenario's behalf.
type Scenario interface {
	// Name is the registry key (e.g. "numberguess", "heist").
	Name() string

	// ContractVersion pins the wire shape of Observation/Action/feedback
	// this scenario emits, so a bundle validator can flag a stale producer.
	ContractVersion() int

	// MaxTurns bounds the match; the runner ends the match once exceeded
	// even if the scenario never naturally concludes.
	MaxTurns() int

	// CompetitiveMode reports whether this scenario runs each agent through
	// an independent solo instance of the scenario rather than a single
	// shared match (heist's dual-solo-run design, spec.md §4.E).
	CompetitiveMode() bool

	// Init seeds scenario-internal state from the match's scenario seed.
	// agentIDs is the full lineup in standard mode, or the single occupant
	// of this lane in competitive mode.
	Init(ctx context.Context, scenarioSeed uint32, agentIDs []string) error

	// Briefing returns the scenario's gameRules blob: deterministic,
	// scenario-versioned, contains no seed-dependent fields. Embedded by
	// the match runner into the turn-1 ObservationEmitted only.
	Briefing() jsonval.Value

	// Observe returns the turn's observation for a given agent seat. Both
	// reference scenarios ignore the seat: numberguess has one agent, and
	// heist runs one instance per agent, so each lane's view is its own
	// agent's. Never includes
	// gameRules itself — the match runner splices Briefing() in on turn 1.
	Observe(turn int, seat AgentSeat) jsonval.Value

	// ActionValidator returns the decoder.Validator this seat's actions
	// must parse under. May return nil to accept any syntactically valid
	// JSON value (scripted agents never go through the decoder at all).
	ActionValidator(seat AgentSeat) decoder.Validator

	// Adjudicate applies a decoded action from the given seat and returns
	// whether it was accepted plus the feedback to emit. action may be any
	// decoder.Result.Value shape; scenarios must treat it as untrusted and
	// reject anything malformed via valid=false rather than panicking.
	Adjudicate(turn int, seat AgentSeat, agentID string, action jsonval.Value) (valid bool, feedback jsonval.Value, err error)

	// IsTerminal reports whether the scenario has concluded naturally (not
	// via maxTurns/timeout/forfeit, which the runner tracks itself).
	IsTerminal() bool

	// Summarize returns the StateUpdated.summary payload: must never
	// include any key in HiddenKeys().
	Summarize() jsonval.Value

	// Score returns the current per-agent score. Called once at match end.
	Score() map[string]float64

	// Reveal returns the hidden final state (placed under MatchEnded.
	// details._private by the runner), or nil if nothing is hidden.
	Reveal() jsonval.Value

	// DefaultAction is substituted when an agent times out, errors, or
	// fails to decode, so the match can still advance deterministically.
	DefaultAction(seat AgentSeat) jsonval.Value

	// HiddenKeys lists the summary keys Summarize() must never emit (e.g.
	// "secretNumber" for numberguess). No code in this module calls it.
	HiddenKeys() []string
}

// Registry-facing constructor signature: every scenario package exposes a
// New(agentCount int) (Scenario, error) func matching this type, so
// internal/registry can resolve by name without an import cycle back to
// internal/scenario/numberguess or .../heist.
type Constructor func(agentCount int) (Scenario, error)
