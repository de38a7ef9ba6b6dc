// Package numberguess implements the reference single-agent scenario named
// in spec.md §6: the scenario picks a hidden integer and the agent submits
// guesses until it finds it or MaxTurns elapses. Its only hidden-state key
// is secretNumber; it runs in standard (non-competitive) mode.
package numberguess

import (
	"context"
	"fmt"

	"github.com/marcohefti/matchlab/internal/decoder"
	"github.com/marcohefti/matchlab/internal/jsonval"
	"github.com/marcohefti/matchlab/internal/rng"
	"github.com/marcohefti/matchlab/internal/scenario"
)

const (
	ContractVersion = 1
	LowerBound      = 1
	UpperBound      = 100
	defaultMaxTurns = 20
)

type Game struct {
	maxTurns int
	target   int
	agentID  string
	lastHint string
	solved   bool
	turn     int
}

// New constructs a numberguess scenario for exactly one agent.
func New(agentCount int) (scenario.Scenario, error) {
	if agentCount != 1 {
		return nil, fmt.Errorf("numberguess requires exactly 1 agent, got %d", agentCount)
	}
	return &Game{maxTurns: defaultMaxTurns}, nil
}

func (g *Game) Name() string          { return "numberguess" }
func (g *Game) ContractVersion() int  { return ContractVersion }
func (g *Game) MaxTurns() int         { return g.maxTurns }
func (g *Game) CompetitiveMode() bool { return false }

func (g *Game) HiddenKeys() []string { return []string{"secretNumber"} }

func (g *Game) Init(_ context.Context, scenarioSeed uint32, agentIDs []string) error {
	if len(agentIDs) != 1 {
		return fmt.Errorf("numberguess requires exactly 1 agent id, got %d", len(agentIDs))
	}
	g.agentID = agentIDs[0]
	r := rng.New(scenarioSeed)
	g.target = LowerBound + int(r.Float64()*float64(UpperBound-LowerBound+1))
	if g.target > UpperBound {
		g.target = UpperBound
	}
	return nil
}

func (g *Game) Briefing() jsonval.Value {
	return map[string]jsonval.Value{
		"lowerBound": float64(LowerBound),
		"upperBound": float64(UpperBound),
		"maxTurns":   float64(g.maxTurns),
		"instructions": "Guess the hidden integer. Reply with {\"guess\": <integer>}. " +
			"Each turn you'll be told whether the target is higher or lower.",
	}
}

func (g *Game) Observe(turn int, _ scenario.AgentSeat) jsonval.Value {
	obs := map[string]jsonval.Value{
		"turn": float64(turn),
	}
	if g.lastHint != "" {
		obs["hint"] = g.lastHint
	}
	return obs
}

func (g *Game) ActionValidator(_ scenario.AgentSeat) decoder.Validator {
	return decoder.ValidatorFunc(func(v jsonval.Value) (jsonval.Value, error) {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("action must be an object with a %q field", "guess")
		}
		guessRaw, ok := obj["guess"]
		if !ok {
			return nil, fmt.Errorf("missing %q field", "guess")
		}
		guessF, ok := guessRaw.(float64)
		if !ok {
			return nil, fmt.Errorf("%q must be a number", "guess")
		}
		return map[string]jsonval.Value{"guess": guessF}, nil
	})
}

func (g *Game) Adjudicate(turn int, _ scenario.AgentSeat, _ string, action jsonval.Value) (bool, jsonval.Value, error) {
	g.turn = turn
	obj, ok := action.(map[string]any)
	if !ok {
		return false, map[string]jsonval.Value{"reason": "action must be an object with a \"guess\" field"}, nil
	}
	guessF, ok := obj["guess"].(float64)
	if !ok {
		return false, map[string]jsonval.Value{"reason": "\"guess\" must be a number"}, nil
	}
	guess := int(guessF)

	switch {
	case guess == g.target:
		g.solved = true
		return true, map[string]jsonval.Value{"result": "correct"}, nil
	case guess < g.target:
		g.lastHint = "higher"
	default:
		g.lastHint = "lower"
	}
	return true, map[string]jsonval.Value{"result": "incorrect", "hint": g.lastHint}, nil
}

func (g *Game) IsTerminal() bool { return g.solved }

func (g *Game) Summarize() jsonval.Value {
	return map[string]jsonval.Value{
		"turn":   float64(g.turn),
		"solved": g.solved,
	}
}

func (g *Game) Score() map[string]float64 {
	if g.solved {
		score := float64(g.maxTurns-g.turn+1) / float64(g.maxTurns)
		return map[string]float64{g.agentID: score}
	}
	return map[string]float64{g.agentID: 0}
}

func (g *Game) Reveal() jsonval.Value {
	return map[string]jsonval.Value{"secretNumber": float64(g.target)}
}

func (g *Game) DefaultAction(_ scenario.AgentSeat) jsonval.Value {
	return map[string]jsonval.Value{"guess": float64(LowerBound + (UpperBound-LowerBound)/2)}
}
