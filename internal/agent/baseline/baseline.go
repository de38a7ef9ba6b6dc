// Package baseline implements the reference agent named in spec.md §6: a
// deterministic, non-random heuristic agent that tracks hints across turns
// (binary search against numberguess's higher/lower hint; greedy room
// exploration preferring unvisited exits against heist's exits/itemsHere
// observation). It
// carries state across Act calls because the match runner reuses one
// Agent instance for an entire match.
package baseline

import (
	"context"
	"fmt"

	"github.com/marcohefti/matchlab/internal/jsonval"
)

type Agent struct {
	// numberguess binary-search bounds, lazily initialized from turn 1's
	// gameRules.
	lo, hi    int
	boundsSet bool

	// heist exploration state: whether this match is heist at all, and
	// which rooms we've already visited (so we prefer unexplored exits).
	isHeist bool
	visited map[string]bool
}

func New(_ uint32) (*Agent, error) {
	return &Agent{}, nil
}

func (a *Agent) ID() string { return "baseline" }

func (a *Agent) Probe(_ context.Context) error { return nil }

func (a *Agent) Act(_ context.Context, observation jsonval.Value) (string, error) {
	obs, _ := observation.(map[string]any)
	if rules, ok := gameRules(obs); ok {
		if _, isHeist := rules["rooms"]; isHeist {
			a.isHeist = true
		} else if _, isNumberguess := rules["lowerBound"]; isNumberguess {
			a.initNumberguessBounds(rules)
		}
	}

	if a.isHeist {
		return a.actHeist(obs)
	}
	return a.actNumberguess(obs)
}

func gameRules(obs map[string]any) (map[string]any, bool) {
	if obs == nil {
		return nil, false
	}
	rules, ok := obs["gameRules"].(map[string]any)
	return rules, ok
}

func (a *Agent) initNumberguessBounds(rules map[string]any) {
	if a.boundsSet {
		return
	}
	a.lo = intOr(rules["lowerBound"], 1)
	a.hi = intOr(rules["upperBound"], 100)
	a.boundsSet = true
}

func (a *Agent) actNumberguess(obs map[string]any) (string, error) {
	hint, _ := obs["hint"].(string)
	switch hint {
	case "higher":
		a.lo = a.midpoint() + 1
	case "lower":
		a.hi = a.midpoint() - 1
	}
	guess := a.midpoint()
	return fmt.Sprintf(`{"guess": %d}`, guess), nil
}

func (a *Agent) midpoint() int {
	if a.hi < a.lo {
		a.hi = a.lo
	}
	return a.lo + (a.hi-a.lo)/2
}

// actHeist picks up the keycard as soon as it's visible in the current
// room, otherwise heads toward the vault along an unvisited exit when one
// exists, falling back to any exit to avoid getting stuck in a dead end.
// It never walks into the vault without the keycard in hand.
func (a *Agent) actHeist(obs map[string]any) (string, error) {
	if a.visited == nil {
		a.visited = map[string]bool{}
	}
	currentRoom, _ := obs["currentRoom"].(string)
	a.visited[currentRoom] = true

	if items, ok := obs["itemsHere"].([]any); ok {
		for _, it := range items {
			if s, _ := it.(string); s != "" {
				return fmt.Sprintf(`{"type":"pickup","itemId":%q}`, s), nil
			}
		}
	}

	hasKeycard, _ := obs["hasKeycard"].(bool)
	exits, _ := obs["exits"].([]any)
	if len(exits) == 0 {
		return `{"type":"wait"}`, nil
	}

	var unvisited, fallback string
	for _, e := range exits {
		room, _ := e.(string)
		if room == "vault" && !hasKeycard {
			continue
		}
		if fallback == "" {
			fallback = room
		}
		if !a.visited[room] && unvisited == "" {
			unvisited = room
		}
	}
	target := unvisited
	if target == "" {
		target = fallback
	}
	if target == "" {
		return `{"type":"wait"}`, nil
	}
	return fmt.Sprintf(`{"type":"move","toRoomId":%q}`, target), nil
}

func intOr(v any, def int) int {
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return int(f)
}
