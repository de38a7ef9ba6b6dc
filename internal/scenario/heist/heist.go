// Package heist implements the reference two-agent scenario named in
// spec.md §6: a small hidden room graph with a keycard item. Each agent
// independently explores the graph, must find and pick up the keycard, and
// reach the vault room to succeed — competing on fewest turns. Because the
// two agents never interact with or observe each other, the match runner
// executes heist in "competitive mode": two independent solo runs of the
// same scenario (one per agent, distinct per-agent seeds) whose event
// streams are merged and seq-renumbered into a single match.jsonl
// (spec.md §4.E). This package models ONE agent's solo run; internal/match
// drives two Game instances and merges the results.
package heist

import (
	"context"
	"fmt"
	"sort"

	"github.com/marcohefti/matchlab/internal/decoder"
	"github.com/marcohefti/matchlab/internal/jsonval"
	"github.com/marcohefti/matchlab/internal/rng"
	"github.com/marcohefti/matchlab/internal/scenario"
)

const (
	ContractVersion = 1
	defaultMaxTurns = 15
	keycardID       = "keycard-1"
	startRoom       = "entrance"
	vaultRoom       = "vault"
)

// roomGraph is the fixed room layout every heist lane shares: only the
// keycard's starting location is seeded per-lane (see Init), keeping the
// topology itself deterministic and seed-independent so it can safely live
// in Briefing() without leaking anything the agent couldn't otherwise infer
// from exploring.
var roomGraph = map[string][]string{
	"entrance": {"room-2"},
	"room-2":   {"entrance", "room-3"},
	"room-3":   {"room-2", "vault"},
	"vault":    {"room-3"},
}

var roomIDs = func() []string {
	ids := make([]string, 0, len(roomGraph))
	for id := range roomGraph {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}()

type Game struct {
	maxTurns     int
	agentID      string
	currentRoom  string
	itemLocation string // room currently holding the keycard, "" once picked up
	hasKeycard   bool
	turn         int
	lastFeedback string
	cracked      bool
	alarmTripped bool
}

// New constructs a single-agent heist run (one "lane" of the two-lane
// competitive match). internal/match calls New twice per heist match.
func New(agentCount int) (scenario.Scenario, error) {
	if agentCount != 1 {
		return nil, fmt.Errorf("heist.New models one solo lane; got agentCount=%d (internal/match drives two lanes)", agentCount)
	}
	return &Game{maxTurns: defaultMaxTurns}, nil
}

func (g *Game) Name() string          { return "heist" }
func (g *Game) ContractVersion() int  { return ContractVersion }
func (g *Game) MaxTurns() int         { return g.maxTurns }
func (g *Game) CompetitiveMode() bool { return true }

func (g *Game) HiddenKeys() []string { return []string{"rooms", "itemLocations"} }

func (g *Game) Init(_ context.Context, scenarioSeed uint32, agentIDs []string) error {
	if len(agentIDs) != 1 {
		return fmt.Errorf("heist lane requires exactly 1 agent id, got %d", len(agentIDs))
	}
	g.agentID = agentIDs[0]
	g.currentRoom = startRoom
	r := rng.New(scenarioSeed)
	// The keycard starts in room-2 or room-3, decided per-lane by the
	// scenario seed so the two agents' runs aren't trivially identical.
	candidates := []string{"room-2", "room-3"}
	g.itemLocation = candidates[int(r.Float64()*float64(len(candidates)))%len(candidates)]
	return nil
}

func (g *Game) Briefing() jsonval.Value {
	return map[string]jsonval.Value{
		"rooms":    roomIDsValue(),
		"maxTurns": float64(g.maxTurns),
		"instructions": "Explore the rooms, find and pick up the keycard, then reach the vault. " +
			"Submit {\"type\":\"move\",\"toRoomId\":\"<room>\"}, {\"type\":\"pickup\",\"itemId\":\"<item>\"}, or {\"type\":\"wait\"}.",
	}
}

func roomIDsValue() []jsonval.Value {
	out := make([]jsonval.Value, len(roomIDs))
	for i, id := range roomIDs {
		out[i] = id
	}
	return out
}

func (g *Game) Observe(turn int, _ scenario.AgentSeat) jsonval.Value {
	exits := make([]jsonval.Value, 0, len(roomGraph[g.currentRoom]))
	for _, r := range roomGraph[g.currentRoom] {
		exits = append(exits, r)
	}
	itemsHere := []jsonval.Value{}
	if g.itemLocation == g.currentRoom {
		itemsHere = append(itemsHere, keycardID)
	}
	obs := map[string]jsonval.Value{
		"turn":        float64(turn),
		"currentRoom": g.currentRoom,
		"exits":       exits,
		"itemsHere":   itemsHere,
		"hasKeycard":  g.hasKeycard,
	}
	if g.lastFeedback != "" {
		obs["lastResult"] = g.lastFeedback
	}
	return obs
}

func (g *Game) ActionValidator(_ scenario.AgentSeat) decoder.Validator {
	return decoder.ValidatorFunc(func(v jsonval.Value) (jsonval.Value, error) {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("action must be an object with a %q field", "type")
		}
		kind, ok := obj["type"].(string)
		if !ok {
			return nil, fmt.Errorf("missing %q field", "type")
		}
		switch kind {
		case "move":
			toRoomID, ok := obj["toRoomId"].(string)
			if !ok || toRoomID == "" {
				return nil, fmt.Errorf("move action requires a %q string", "toRoomId")
			}
			return map[string]jsonval.Value{"type": "move", "toRoomId": toRoomID}, nil
		case "pickup":
			itemID, ok := obj["itemId"].(string)
			if !ok || itemID == "" {
				return nil, fmt.Errorf("pickup action requires an %q string", "itemId")
			}
			return map[string]jsonval.Value{"type": "pickup", "itemId": itemID}, nil
		case "wait":
			return map[string]jsonval.Value{"type": "wait"}, nil
		default:
			return nil, fmt.Errorf("unknown action type %q", kind)
		}
	})
}

func (g *Game) Adjudicate(turn int, _ scenario.AgentSeat, _ string, act jsonval.Value) (bool, jsonval.Value, error) {
	g.turn = turn
	obj, ok := act.(map[string]any)
	if !ok {
		g.lastFeedback = "invalid"
		return false, map[string]jsonval.Value{"reason": "action must be an object with a \"type\" field"}, nil
	}
	kind, _ := obj["type"].(string)

	switch kind {
	case "move":
		toRoomID, _ := obj["toRoomId"].(string)
		if !isAdjacent(g.currentRoom, toRoomID) {
			g.lastFeedback = "blocked"
			return false, map[string]jsonval.Value{"reason": fmt.Sprintf("room %q is not reachable from %q", toRoomID, g.currentRoom)}, nil
		}
		g.currentRoom = toRoomID
		g.lastFeedback = "moved"
		if g.currentRoom == vaultRoom {
			if g.hasKeycard {
				g.cracked = true
				return true, map[string]jsonval.Value{"result": "vault_reached", "hasKeycard": true}, nil
			}
			g.alarmTripped = true
			return true, map[string]jsonval.Value{"result": "alarm_tripped", "reason": "entered vault without keycard"}, nil
		}
		return true, map[string]jsonval.Value{"result": "moved", "currentRoom": g.currentRoom}, nil

	case "pickup":
		itemID, _ := obj["itemId"].(string)
		if itemID != keycardID || g.itemLocation != g.currentRoom {
			g.lastFeedback = "nothing_here"
			return false, map[string]jsonval.Value{"reason": fmt.Sprintf("item %q is not in this room", itemID)}, nil
		}
		g.hasKeycard = true
		g.itemLocation = ""
		g.lastFeedback = "picked_up"
		return true, map[string]jsonval.Value{"result": "picked_up", "itemId": itemID}, nil

	case "wait":
		g.lastFeedback = "waited"
		return true, map[string]jsonval.Value{"result": "waited"}, nil

	default:
		g.lastFeedback = "invalid"
		return false, map[string]jsonval.Value{"reason": fmt.Sprintf("unknown action type %q", kind)}, nil
	}
}

func isAdjacent(from, to string) bool {
	for _, r := range roomGraph[from] {
		if r == to {
			return true
		}
	}
	return false
}

func (g *Game) IsTerminal() bool { return g.cracked || g.alarmTripped }

func (g *Game) Summarize() jsonval.Value {
	return map[string]jsonval.Value{
		"turn":         float64(g.turn),
		"currentRoom":  g.currentRoom,
		"hasKeycard":   g.hasKeycard,
		"cracked":      g.cracked,
		"alarmTripped": g.alarmTripped,
	}
}

func (g *Game) Score() map[string]float64 {
	if g.cracked {
		score := float64(g.maxTurns-g.turn+1) / float64(g.maxTurns)
		return map[string]float64{g.agentID: score}
	}
	return map[string]float64{g.agentID: 0}
}

func (g *Game) Reveal() jsonval.Value {
	locations := map[string]jsonval.Value{}
	if g.itemLocation != "" {
		locations[keycardID] = g.itemLocation
	} else {
		locations[keycardID] = "carried:" + g.agentID
	}
	return map[string]jsonval.Value{
		"rooms":         roomGraphValue(),
		"itemLocations": locations,
	}
}

func roomGraphValue() jsonval.Value {
	out := make(map[string]jsonval.Value, len(roomGraph))
	for room, exits := range roomGraph {
		vals := make([]jsonval.Value, len(exits))
		for i, e := range exits {
			vals[i] = e
		}
		out[room] = vals
	}
	return out
}

func (g *Game) DefaultAction(_ scenario.AgentSeat) jsonval.Value {
	return map[string]jsonval.Value{"type": "wait"}
}
