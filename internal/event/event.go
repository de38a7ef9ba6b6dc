// Package event implements the match event stream: a discriminated union
// keyed on `type`, represented here as a thin envelope (Type, Seq, MatchID)
// plus a generic field bag, with one typed constructor per event kind so
// callers never hand-build the required-field shape. This mirrors the
// teacher's schema.TraceEventV1/NoteEventV1 style (one struct per artifact
// line, SchemaVersion-free here because the event stream itself IS the
// versioned artifact, pinned by MatchManifest.runner.version).
package event

import (
	"fmt"

	"github.com/marcohefti/matchlab/internal/jsonval"
)

// Kind is the closed set of event types. KindUnknown is declared, but no
// parser produces it and no writer ever emits it: ParseJSONL rejects any
// type not in this list, and replay-match reads through ParseJSONL too, so
// a log with an unknown type is not rendered at all.
type Kind string

const (
	KindMatchStarted        Kind = "MatchStarted"
	KindTurnStarted         Kind = "TurnStarted"
	KindObservationEmitted  Kind = "ObservationEmitted"
	KindActionSubmitted     Kind = "ActionSubmitted"
	KindActionAdjudicated   Kind = "ActionAdjudicated"
	KindAgentRawOutput      Kind = "AgentRawOutput"
	KindAgentError          Kind = "AgentError"
	KindInvalidAction       Kind = "InvalidAction"
	KindStateUpdated        Kind = "StateUpdated"
	KindMatchEnded          Kind = "MatchEnded"
	KindMatchSetupFailed    Kind = "MatchSetupFailed"
	KindUnknown             Kind = "Unknown"
)

// requiredFields is the besides-{type,seq,matchId} required-field table
// from spec.md §3, used by Parse to reject structurally incomplete lines.
var requiredFields = map[Kind][]string{
	KindMatchStarted:       {"seed", "agentIds", "scenarioName", "maxTurns"},
	KindTurnStarted:        {"turn"},
	KindObservationEmitted: {"agentId", "turn", "observation"},
	KindActionSubmitted:    {"agentId", "turn", "action"},
	KindActionAdjudicated:  {"agentId", "turn", "valid", "feedback"},
	KindAgentRawOutput:     {"agentId", "turn", "rawSha256", "rawBytes", "truncated"},
	KindAgentError:         {"agentId", "turn", "message"},
	KindInvalidAction:      {"agentId", "turn", "reason", "attemptedAction"},
	KindStateUpdated:       {"turn", "summary"},
	KindMatchEnded:         {"reason", "scores", "turns"},
	KindMatchSetupFailed:   {"message"},
}

// Event is one line of the match event stream.
type Event struct {
	Type    Kind
	Seq     int
	MatchID string
	Data    map[string]jsonval.Value
}

// ToValue renders the event as the flat JSON object the canonical JSON
// layer and JSONL writer expect.
func (e Event) ToValue() jsonval.Value {
	out := make(map[string]jsonval.Value, len(e.Data)+3)
	for k, v := range e.Data {
		out[k] = v
	}
	out["type"] = string(e.Type)
	out["seq"] = float64(e.Seq)
	out["matchId"] = e.MatchID
	return out
}

// ErrParse is returned by Parse/ParseJSONL for a structurally invalid line.
type ErrParse struct {
	Reason string
}

func (e *ErrParse) Error() string { return "parse error: " + e.Reason }

// Parse decodes a single canonical-JSON object into an Event, rejecting
// non-object values, missing type/seq/matchId, unknown types, and any
// missing required field for the event's declared type.
func Parse(v jsonval.Value) (Event, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Event{}, &ErrParse{Reason: "line is not a JSON object"}
	}
	typeRaw, ok := obj["type"].(string)
	if !ok || typeRaw == "" {
		return Event{}, &ErrParse{Reason: "missing type"}
	}
	kind := Kind(typeRaw)
	required, known := requiredFields[kind]
	if !known {
		return Event{}, &ErrParse{Reason: fmt.Sprintf("unknown event type %q", typeRaw)}
	}
	seqRaw, ok := obj["seq"].(float64)
	if !ok {
		return Event{}, &ErrParse{Reason: "missing seq"}
	}
	matchID, ok := obj["matchId"].(string)
	if !ok || matchID == "" {
		return Event{}, &ErrParse{Reason: "missing matchId"}
	}
	for _, field := range required {
		if _, present := obj[field]; !present {
			return Event{}, &ErrParse{Reason: fmt.Sprintf("%s missing required field %q", typeRaw, field)}
		}
	}
	data := make(map[string]jsonval.Value, len(obj))
	for k, val := range obj {
		if k == "type" || k == "seq" || k == "matchId" {
			continue
		}
		data[k] = val
	}
	return Event{Type: kind, Seq: int(seqRaw), MatchID: matchID, Data: data}, nil
}

// ParseJSONL parses a full match.jsonl body into an ordered event slice,
// rejecting non-object lines, missing required fields, unknown types, and
// non-dense seq (the set of seq values must be exactly [0, len(events))).
func ParseJSONL(lines []jsonval.Value) ([]Event, error) {
	events := make([]Event, 0, len(lines))
	seen := make(map[int]bool, len(lines))
	for i, line := range lines {
		ev, err := Parse(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		if seen[ev.Seq] {
			return nil, &ErrParse{Reason: fmt.Sprintf("duplicate seq %d", ev.Seq)}
		}
		seen[ev.Seq] = true
		events = append(events, ev)
	}
	for i := 0; i < len(events); i++ {
		if !seen[i] {
			return nil, &ErrParse{Reason: fmt.Sprintf("seq is not dense: missing %d", i)}
		}
	}
	return events, nil
}
