// Package fallible implements the reference agent named in spec.md §6: it
// deliberately emits messy, non-direct-JSON output (markdown fences,
// leading/trailing prose, and occasionally a bare word that is not JSON) so that
// internal/decoder's fallback stages and internal/event's ActionForensics
// get real exercise in the two reference scenarios and in tests. Its
// "mess style" is chosen deterministically from its seeded internal/rng
// stream, never from wall-clock or process entropy.
package fallible

import (
	"context"
	"fmt"

	"github.com/marcohefti/matchlab/internal/jsonval"
	"github.com/marcohefti/matchlab/internal/rng"
)

type Agent struct {
	r *rng.Rng
}

func New(seed uint32) (*Agent, error) {
	return &Agent{r: rng.New(seed)}, nil
}

func (a *Agent) ID() string { return "fallible" }

func (a *Agent) Probe(_ context.Context) error { return nil }

func (a *Agent) Act(_ context.Context, observation jsonval.Value) (string, error) {
	obs, _ := observation.(map[string]any)
	inner := a.decide(obs)

	switch style := int(a.r.Float64() * 4); style {
	case 0:
		return inner, nil // direct_json
	case 1:
		return "```json\n" + inner + "\n```", nil // fenced_json
	case 2:
		return "Here's my move:\n" + inner + "\nHope that's right!", nil // brace_extract
	default:
		return a.bareWord(obs), nil // not JSON: decoder falls back
	}
}

func (a *Agent) decide(obs map[string]any) string {
	if rules, ok := gameRules(obs); ok {
		if _, isHeist := rules["rooms"]; isHeist {
			return a.decideHeist(obs)
		}
		if _, isNumberguess := rules["lowerBound"]; isNumberguess {
			lo := intOr(rules["lowerBound"], 1)
			return fmt.Sprintf(`{"guess": %d}`, lo)
		}
	}
	if _, ok := obs["itemsHere"]; ok {
		// Not turn 1, but still heist-shaped (itemsHere only ever appears
		// there): keep behaving like a heist agent.
		return a.decideHeist(obs)
	}
	return `{"guess": 1}`
}

func (a *Agent) decideHeist(obs map[string]any) string {
	if items, ok := obs["itemsHere"].([]any); ok {
		for _, it := range items {
			if s, _ := it.(string); s != "" {
				return fmt.Sprintf(`{"type":"pickup","itemId":%q}`, s)
			}
		}
	}
	if exits, ok := obs["exits"].([]any); ok && len(exits) > 0 {
		room, _ := exits[0].(string)
		return fmt.Sprintf(`{"type":"move","toRoomId":%q}`, room)
	}
	return `{"type":"wait"}`
}

func (a *Agent) bareWord(obs map[string]any) string {
	if _, isHeist := obs["currentRoom"]; isHeist {
		return "wait"
	}
	return "fifty"
}

func gameRules(obs map[string]any) (map[string]any, bool) {
	if obs == nil {
		return nil, false
	}
	rules, ok := obs["gameRules"].(map[string]any)
	return rules, ok
}

func intOr(v any, def int) int {
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return int(f)
}
