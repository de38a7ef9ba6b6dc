// Package match implements the single-match turn loop (spec.md §4.E). The
// sequential turn-by-turn drive, per-turn timeout racing via context
// abandonment, and forfeiture-on-consecutive-timeout design are grounded on
// the teacher's campaign.executeMissionEngineLocked (internal/campaign/
// engine.go): that loop drives one mission at a time through
// Prepare/RunMission/Cleanup and records lifecycle events as it goes: here
// the same discipline drives one match through
// Init/Observe/Adjudicate turn by turn, appending match events instead of
// campaign progress events.
package match

import (
	"context"
	"fmt"
	"time"

	"github.com/marcohefti/matchlab/internal/agent"
	"github.com/marcohefti/matchlab/internal/decoder"
	"github.com/marcohefti/matchlab/internal/event"
	"github.com/marcohefti/matchlab/internal/hashing"
	"github.com/marcohefti/matchlab/internal/rng"
	"github.com/marcohefti/matchlab/internal/scenario"
)

// Reason is the closed set of values MatchEnded.reason may take (spec.md
// §3/§8).
const (
	ReasonCompleted       = "completed"
	ReasonMaxTurnsReached = "maxTurnsReached"
	ReasonAgentForfeited  = "agentForfeited"
	ReasonSetupFailed     = "setupFailed"
)

// Config bounds a match's runtime behavior. Every field has a spec.md §5
// default a caller may override.
type Config struct {
	// MaxTurns is the match's turn budget (spec.md §4.E's
	// config.maxTurns). nil means "use the scenario's own MaxTurns()";
	// a non-nil value, including a pointer to 0, is authoritative and
	// overrides the scenario's default even down to a zero-turn match.
	MaxTurns               *int
	TurnTimeout            time.Duration
	MaxConsecutiveTimeouts int
	Decoder                decoder.Options
	Provenance             event.Provenance
}

// effectiveMaxTurns resolves the turn budget a match actually runs under:
// cfg.MaxTurns when the caller set one, otherwise sc's own default.
func effectiveMaxTurns(cfg Config, sc scenario.Scenario) int {
	if cfg.MaxTurns != nil {
		return *cfg.MaxTurns
	}
	return sc.MaxTurns()
}

func (c Config) normalized() Config {
	if c.TurnTimeout < 0 {
		c.TurnTimeout = 0
	}
	if c.MaxConsecutiveTimeouts <= 0 {
		c.MaxConsecutiveTimeouts = 3
	}
	return c
}

// AgentSpec names one participant: its per-match agentId (used in events,
// e.g. "random-1" in a tournament) and its already-resolved Agent
// implementation.
type AgentSpec struct {
	AgentID string
	Agent   agent.Agent
}

// Result is the full outcome of running one match, including the MatchEnded
// reason and forfeit bookkeeping spec.md §4.E requires callers surface in
// MatchSummary.
type Result struct {
	MatchID          string
	Events           []event.Event
	Scores           map[string]float64
	MaxTurns         int // the configured turn budget, distinct from Turns actually played
	Turns            int
	MaxTurnTimeMs    int64
	TimeoutsPerAgent map[string]int
	ForfeitedBy      string
	Reason           string
}

// Run derives the full match seed tree from matchSeed, constructs the
// scenario (once for standard mode, once per agent for competitive mode),
// probes every agent, and drives the turn loop to completion. It never
// consults time.Now or crypto/rand: every seed used anywhere in the match
// traces back to matchSeed through internal/rng. A setup failure (agent
// probe or scenario construction/init) is never returned as a Go error: it
// is recorded as a MatchSetupFailed + MatchEnded{reason:"setupFailed"}
// pair in Result.Events so the artifact writer always has something to
// write (spec.md §7).
func Run(ctx context.Context, matchSeed uint32, scenarioName string, scenarioCtor scenario.Constructor, agents []AgentSpec, cfg Config) (Result, error) {
	cfg = cfg.normalized()
	tree := rng.DeriveMatchTree(matchSeed, len(agents))

	for _, a := range agents {
		if err := a.Agent.Probe(ctx); err != nil {
			return setupFailureResult(tree, cfg, fmt.Sprintf("agent %q probe failed: %v", a.AgentID, err)), nil
		}
	}

	// CompetitiveMode is type-level metadata (a constant per scenario), not
	// a function of how many real agents will play, so a single-agent probe
	// instance is enough to read it even for scenarios like heist whose
	// real constructor only ever models one lane at a time.
	probe, err := scenarioCtor(1)
	if err != nil {
		return setupFailureResult(tree, cfg, fmt.Sprintf("scenario construction failed: %v", err)), nil
	}
	if probe.CompetitiveMode() {
		return runCompetitive(ctx, tree, scenarioName, scenarioCtor, agents, cfg)
	}
	return runShared(ctx, tree, scenarioName, scenarioCtor, agents, cfg)
}

func setupFailureResult(tree rng.MatchSeedTree, cfg Config, reason string) Result {
	seq := 0
	var events []event.Event
	emit := func(e event.Event) {
		e.Seq = seq
		e.MatchID = tree.MatchID
		events = append(events, e)
		seq++
	}
	emit(event.NewMatchSetupFailed(0, tree.MatchID, reason, nil))
	emit(event.NewMatchEnded(0, tree.MatchID, ReasonSetupFailed, map[string]float64{}, 0, nil))
	return Result{
		MatchID:          tree.MatchID,
		Events:           events,
		Scores:           map[string]float64{},
		TimeoutsPerAgent: map[string]int{},
		MaxTurnTimeMs:    cfg.TurnTimeout.Milliseconds(),
		Reason:           ReasonSetupFailed,
	}
}

func runShared(ctx context.Context, tree rng.MatchSeedTree, scenarioName string, scenarioCtor scenario.Constructor, agents []AgentSpec, cfg Config) (Result, error) {
	sc, err := scenarioCtor(len(agents))
	if err != nil {
		return setupFailureResult(tree, cfg, fmt.Sprintf("scenario construction failed: %v", err)), nil
	}
	agentIDs := make([]string, len(agents))
	for i, a := range agents {
		agentIDs[i] = a.AgentID
	}
	if err := sc.Init(ctx, tree.ScenarioSeed, agentIDs); err != nil {
		return setupFailureResult(tree, cfg, fmt.Sprintf("scenario init failed: %v", err)), nil
	}

	seq := 0
	var events []event.Event
	emit := func(e event.Event) {
		e.Seq = seq
		e.MatchID = tree.MatchID
		events = append(events, e)
		seq++
	}
	maxTurns := effectiveMaxTurns(cfg, sc)
	emit(event.NewMatchStarted(0, tree.MatchID, tree.ScenarioSeed, agentIDs, sc.Name(), maxTurns, cfg.Provenance))

	turnEvents, timeouts, forfeitedBy, turns := driveTurns(ctx, tree.MatchID, &seq, sc, agents, cfg, maxTurns)
	events = append(events, turnEvents...)

	scores := sc.Score()
	reason := ReasonMaxTurnsReached
	switch {
	case forfeitedBy != "":
		reason = ReasonAgentForfeited
		applyForfeitAdjustment(scores, forfeitedBy)
	case sc.IsTerminal():
		reason = ReasonCompleted
	}

	details := revealDetails(sc)
	emit(event.NewMatchEnded(0, tree.MatchID, reason, scores, turns, details))

	return Result{
		MatchID:          tree.MatchID,
		Events:           events,
		Scores:           scores,
		MaxTurns:         maxTurns,
		Turns:            turns,
		MaxTurnTimeMs:    cfg.TurnTimeout.Milliseconds(),
		TimeoutsPerAgent: timeouts,
		ForfeitedBy:      forfeitedBy,
		Reason:           reason,
	}, nil
}

// runCompetitive executes heist's two-solo-lanes aggregation (spec.md
// §4.E): one independent solo scenario instance per agent, same
// derivation tree, whose event streams are concatenated after a single
// re-emitted MatchStarted and before one synthesised MatchEnded, with seq
// renumbered densely across the whole merged stream.
func runCompetitive(ctx context.Context, tree rng.MatchSeedTree, scenarioName string, scenarioCtor scenario.Constructor, agents []AgentSpec, cfg Config) (Result, error) {
	agentIDs := make([]string, len(agents))
	for i, a := range agents {
		agentIDs[i] = a.AgentID
	}

	maxTurns := 0
	if cfg.MaxTurns != nil {
		maxTurns = *cfg.MaxTurns
	} else if probe, err := scenarioCtor(1); err == nil {
		maxTurns = probe.MaxTurns()
	}

	seq := 0
	var events []event.Event
	emit := func(e event.Event) {
		e.Seq = seq
		e.MatchID = tree.MatchID
		events = append(events, e)
		seq++
	}
	emit(event.NewMatchStarted(0, tree.MatchID, tree.ScenarioSeed, agentIDs, scenarioName, maxTurns, cfg.Provenance))

	scores := make(map[string]float64, len(agents))
	timeouts := make(map[string]int, len(agents))
	details := map[string]jsonvalAny{}
	lanes := make(map[string]jsonvalAny, len(agents))
	forfeitedBy := ""
	allTerminal := true
	maxTurnsSeen := 0

	for i, a := range agents {
		lane, err := scenarioCtor(1)
		if err != nil {
			return setupFailureResult(tree, cfg, fmt.Sprintf("scenario construction failed for lane %q: %v", a.AgentID, err)), nil
		}
		laneSeed := tree.AgentSeeds[i]
		if err := lane.Init(ctx, laneSeed, []string{a.AgentID}); err != nil {
			return setupFailureResult(tree, cfg, fmt.Sprintf("scenario init failed for lane %q: %v", a.AgentID, err)), nil
		}
		laneEvents, laneTimeouts, laneForfeitedBy, laneTurns := driveTurns(ctx, tree.MatchID, &seq, lane, []AgentSpec{a}, cfg, maxTurns)
		events = append(events, laneEvents...)
		if laneTurns > maxTurnsSeen {
			maxTurnsSeen = laneTurns
		}
		for k, v := range laneTimeouts {
			timeouts[k] += v
		}
		laneScores := lane.Score()
		for k, v := range laneScores {
			scores[k] = v
		}
		if laneForfeitedBy != "" {
			forfeitedBy = laneForfeitedBy
		}
		if !lane.IsTerminal() {
			allTerminal = false
		}
		laneDetails := map[string]jsonvalAny{}
		if rev := lane.Reveal(); rev != nil {
			laneDetails["_private"] = rev
		}
		lanes[a.AgentID] = laneDetails
	}

	reason := ReasonMaxTurnsReached
	switch {
	case forfeitedBy != "":
		reason = ReasonAgentForfeited
		applyForfeitAdjustment(scores, forfeitedBy)
	case allTerminal:
		reason = ReasonCompleted
	}
	details["lanes"] = lanes

	emit(event.NewMatchEnded(0, tree.MatchID, reason, scores, maxTurnsSeen, details))

	return Result{
		MatchID:          tree.MatchID,
		Events:           events,
		Scores:           scores,
		MaxTurns:         maxTurns,
		Turns:            maxTurnsSeen,
		MaxTurnTimeMs:    cfg.TurnTimeout.Milliseconds(),
		TimeoutsPerAgent: timeouts,
		ForfeitedBy:      forfeitedBy,
		Reason:           reason,
	}, nil
}

// applyForfeitAdjustment lifts every agent whose score is <= the
// forfeiting agent's score to forfeitingScore+1 (spec.md §4.E step 4),
// ensuring a forfeit can never leave the forfeiter undefeated.
func applyForfeitAdjustment(scores map[string]float64, forfeitedBy string) {
	forfeitScore := scores[forfeitedBy]
	for id, s := range scores {
		if id == forfeitedBy {
			continue
		}
		if s <= forfeitScore {
			scores[id] = forfeitScore + 1
		}
	}
}

func revealDetails(sc scenario.Scenario) jsonvalAny {
	rev := sc.Reveal()
	if rev == nil {
		return nil
	}
	return map[string]jsonvalAny{"_private": rev}
}

// jsonvalAny avoids importing internal/jsonval just for a map value type in
// this file; the alias is identical to jsonval.Value.
type jsonvalAny = any

// driveTurns runs the shared per-turn loop against one scenario instance
// and one or more agents occupying sequential seats. *seq is the caller's
// running sequence counter; driveTurns advances it in place so callers can
// keep appending more events (e.g. a final MatchEnded) afterward. It
// returns the turn events, the per-agent timeout totals, the forfeiting
// agent's id (empty if none), and the number of turns actually played.
func driveTurns(ctx context.Context, matchID string, seq *int, sc scenario.Scenario, agents []AgentSpec, cfg Config, maxTurns int) ([]event.Event, map[string]int, string, int) {
	var events []event.Event
	emit := func(e event.Event) {
		e.Seq = *seq
		e.MatchID = matchID
		events = append(events, e)
		*seq++
	}

	consecutiveTimeouts := make(map[string]int, len(agents))
	timeoutsTotal := make(map[string]int, len(agents))
	turn := 0

	if maxTurns <= 0 || sc.IsTerminal() {
		return events, timeoutsTotal, "", 0
	}

turnLoop:
	for turn = 1; turn <= maxTurns; turn++ {
		if sc.IsTerminal() {
			turn--
			break
		}
		emit(event.NewTurnStarted(0, matchID, turn))
		for i, a := range agents {
			if sc.IsTerminal() {
				break
			}
			seat := scenario.AgentSeat(i + 1)
			obs := sc.Observe(turn, seat)
			if turn == 1 {
				obs = withBriefing(obs, sc.Briefing())
			}
			emit(event.NewObservationEmitted(0, matchID, a.AgentID, turn, obs))

			raw, actErr := actWithTimeout(ctx, a.Agent, obs, cfg.TurnTimeout)
			var act jsonvalAny
			var forensics event.ActionForensics
			var skipAdjudicate bool

			switch {
			case actErr == errTimedOut:
				consecutiveTimeouts[a.AgentID]++
				timeoutsTotal[a.AgentID]++
				emit(event.NewAgentError(0, matchID, a.AgentID, turn, "agent turn timed out", "timeout"))
				if consecutiveTimeouts[a.AgentID] >= cfg.MaxConsecutiveTimeouts {
					return events, timeoutsTotal, a.AgentID, turn
				}
				act = sc.DefaultAction(seat)
				forensics = event.ActionForensics{Method: "default_timeout", ChosenAction: act}
			case actErr != nil:
				emit(event.NewAgentError(0, matchID, a.AgentID, turn, actErr.Error(), "agent_runtime_error"))
				skipAdjudicate = true
			default:
				consecutiveTimeouts[a.AgentID] = 0
				rawBytes := len(raw)
				rawSha := "sha256:" + hashing.SHA256Hex([]byte(raw))
				emit(event.NewAgentRawOutput(0, matchID, a.AgentID, turn, rawSha, rawBytes, false, raw))

				validator := sc.ActionValidator(seat)
				decRes := decoder.Decode(raw, validator, sc.DefaultAction(seat), cfg.Decoder)
				act = decRes.Value
				forensics = event.ActionForensics{
					Method:          string(decRes.Method),
					FallbackReason:  decRes.FallbackReason,
					ChosenAction:    act,
					Warnings:        decRes.Warnings,
					Errors:          decRes.Errors,
					CandidateAction: decRes.CandidateAction,
					RawSha256:       decRes.RawSha256,
					RawBytes:        decRes.RawBytes,
					Truncated:       decRes.Truncated,
				}
				if decRes.OK {
					forensics.AdjudicationPath = "text+tolerant_decode"
				} else {
					forensics.AdjudicationPath = "fallback"
				}
			}

			if skipAdjudicate {
				continue
			}

			emit(event.NewActionSubmitted(0, matchID, a.AgentID, turn, act, &forensics))

			valid, feedback, adjErr := sc.Adjudicate(turn, seat, a.AgentID, act)
			if adjErr != nil {
				emit(event.NewAgentError(0, matchID, a.AgentID, turn, adjErr.Error(), "scenario_error"))
				continue
			}
			emit(event.NewActionAdjudicated(0, matchID, a.AgentID, turn, valid, feedback, &forensics))
			if !valid {
				emit(event.NewInvalidAction(0, matchID, a.AgentID, turn, "scenario rejected action", act))
			}
		}
		emit(event.NewStateUpdated(0, matchID, turn, sc.Summarize()))
		if sc.IsTerminal() {
			break turnLoop
		}
	}

	playedTurns := turn
	if playedTurns > maxTurns {
		playedTurns = maxTurns
	}
	return events, timeoutsTotal, "", playedTurns
}

// withBriefing returns obs with a "gameRules" key set to briefing, used
// only on turn 1 (spec.md §3's one-shot briefing rule).
func withBriefing(obs jsonvalAny, briefing jsonvalAny) jsonvalAny {
	m, ok := obs.(map[string]jsonvalAny)
	if !ok {
		return map[string]jsonvalAny{"observation": obs, "gameRules": briefing}
	}
	out := make(map[string]jsonvalAny, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out["gameRules"] = briefing
	return out
}

var errTimedOut = fmt.Errorf("turn timed out")

// actWithTimeout races agent.Act against cfg's per-turn timeout. On
// timeout it returns errTimedOut immediately and abandons the agent's
// goroutine rather than mutating any shared state from it later (spec.md
// §5): the goroutine may still complete in the background, but its result
// is discarded by the unbuffered-send-to-buffered-channel pattern below. A
// zero or negative timeout disables the race entirely, per spec.md §4.E's
// "maxTurnTimeMs = 0 or non-finite disables the timeout" rule.
func actWithTimeout(ctx context.Context, a agent.Agent, obs interface{}, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		return a.Act(ctx, obs)
	}
	turnCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		raw string
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		raw, err := a.Act(turnCtx, obs)
		ch <- outcome{raw: raw, err: err}
	}()

	select {
	case out := <-ch:
		return out.raw, out.err
	case <-turnCtx.Done():
		return "", errTimedOut
	}
}
