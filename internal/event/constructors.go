package event

import "github.com/marcohefti/matchlab/internal/jsonval"

// Provenance carries the optional engine identification fields that
// MatchStarted includes only when the caller supplied them (spec.md §3).
type Provenance struct {
	EngineCommit  string
	EngineVersion string
}

func NewMatchStarted(seq int, matchID string, seed uint32, agentIDs []string, scenarioName string, maxTurns int, prov Provenance) Event {
	ids := make([]jsonval.Value, len(agentIDs))
	for i, id := range agentIDs {
		ids[i] = id
	}
	data := map[string]jsonval.Value{
		"seed":         float64(seed),
		"agentIds":     ids,
		"scenarioName": scenarioName,
		"maxTurns":     float64(maxTurns),
	}
	if prov.EngineCommit != "" {
		data["engineCommit"] = prov.EngineCommit
	}
	if prov.EngineVersion != "" {
		data["engineVersion"] = prov.EngineVersion
	}
	return Event{Type: KindMatchStarted, Seq: seq, MatchID: matchID, Data: data}
}

func NewTurnStarted(seq int, matchID string, turn int) Event {
	return Event{Type: KindTurnStarted, Seq: seq, MatchID: matchID, Data: map[string]jsonval.Value{
		"turn": float64(turn),
	}}
}

func NewObservationEmitted(seq int, matchID, agentID string, turn int, observation jsonval.Value) Event {
	return Event{Type: KindObservationEmitted, Seq: seq, MatchID: matchID, Data: map[string]jsonval.Value{
		"agentId":     agentID,
		"turn":        float64(turn),
		"observation": observation,
	}}
}

// ActionForensics carries the fields that only fallible (decoder-backed)
// agents populate on ActionSubmitted/ActionAdjudicated.
type ActionForensics struct {
	Method           string
	FallbackReason   string
	ChosenAction     jsonval.Value
	Warnings         []string
	Errors           []string
	CandidateAction  jsonval.Value
	AdjudicationPath string
	RawSha256        string
	RawBytes         int
	Truncated        bool
}

func NewActionSubmitted(seq int, matchID, agentID string, turn int, action jsonval.Value, f *ActionForensics) Event {
	data := map[string]jsonval.Value{
		"agentId": agentID,
		"turn":    float64(turn),
		"action":  action,
	}
	applyForensics(data, f)
	return Event{Type: KindActionSubmitted, Seq: seq, MatchID: matchID, Data: data}
}

func NewActionAdjudicated(seq int, matchID, agentID string, turn int, valid bool, feedback jsonval.Value, f *ActionForensics) Event {
	data := map[string]jsonval.Value{
		"agentId":  agentID,
		"turn":     float64(turn),
		"valid":    valid,
		"feedback": feedback,
	}
	applyForensics(data, f)
	return Event{Type: KindActionAdjudicated, Seq: seq, MatchID: matchID, Data: data}
}

func applyForensics(data map[string]jsonval.Value, f *ActionForensics) {
	if f == nil {
		return
	}
	if f.Method != "" {
		data["method"] = f.Method
	}
	if f.FallbackReason != "" {
		data["fallbackReason"] = f.FallbackReason
	}
	if f.ChosenAction != nil {
		data["chosenAction"] = f.ChosenAction
	}
	if len(f.Warnings) > 0 {
		data["warnings"] = stringsToValues(f.Warnings)
	}
	if len(f.Errors) > 0 {
		data["errors"] = stringsToValues(f.Errors)
	}
	if f.CandidateAction != nil {
		data["candidateAction"] = f.CandidateAction
	}
	if f.AdjudicationPath != "" {
		data["adjudicationPath"] = f.AdjudicationPath
	}
}

func stringsToValues(ss []string) []jsonval.Value {
	out := make([]jsonval.Value, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func NewAgentRawOutput(seq int, matchID, agentID string, turn int, rawSha256 string, rawBytes int, truncated bool, rawText string) Event {
	return Event{Type: KindAgentRawOutput, Seq: seq, MatchID: matchID, Data: map[string]jsonval.Value{
		"agentId":   agentID,
		"turn":      float64(turn),
		"rawSha256": rawSha256,
		"rawBytes":  float64(rawBytes),
		"truncated": truncated,
		"_private":  map[string]jsonval.Value{"rawText": rawText},
	}}
}

func NewAgentError(seq int, matchID, agentID string, turn int, message, errorType string) Event {
	data := map[string]jsonval.Value{
		"agentId": agentID,
		"turn":    float64(turn),
		"message": message,
	}
	if errorType != "" {
		data["errorType"] = errorType
	}
	return Event{Type: KindAgentError, Seq: seq, MatchID: matchID, Data: data}
}

func NewInvalidAction(seq int, matchID, agentID string, turn int, reason string, attemptedAction jsonval.Value) Event {
	return Event{Type: KindInvalidAction, Seq: seq, MatchID: matchID, Data: map[string]jsonval.Value{
		"agentId":         agentID,
		"turn":            float64(turn),
		"reason":          reason,
		"attemptedAction": attemptedAction,
	}}
}

func NewStateUpdated(seq int, matchID string, turn int, summary jsonval.Value) Event {
	return Event{Type: KindStateUpdated, Seq: seq, MatchID: matchID, Data: map[string]jsonval.Value{
		"turn":    float64(turn),
		"summary": summary,
	}}
}

func NewMatchEnded(seq int, matchID, reason string, scores map[string]float64, turns int, details jsonval.Value) Event {
	scoreVals := make(map[string]jsonval.Value, len(scores))
	for k, v := range scores {
		scoreVals[k] = v
	}
	data := map[string]jsonval.Value{
		"reason": reason,
		"scores": scoreVals,
		"turns":  float64(turns),
	}
	if details != nil {
		data["details"] = details
	}
	return Event{Type: KindMatchEnded, Seq: seq, MatchID: matchID, Data: data}
}

func NewMatchSetupFailed(seq int, matchID, message string, details jsonval.Value) Event {
	data := map[string]jsonval.Value{"message": message}
	if details != nil {
		data["details"] = details
	}
	return Event{Type: KindMatchSetupFailed, Seq: seq, MatchID: matchID, Data: data}
}
