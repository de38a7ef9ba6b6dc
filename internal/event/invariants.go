package event

import "fmt"

// CheckInvariants verifies the §8 structural invariants that hold for every
// match event stream, independent of any particular scenario. It is used
// both by tests and by the bundle verifier's per-match pass.
func CheckInvariants(events []Event) []error {
	var errs []error

	if len(events) == 0 {
		return []error{fmt.Errorf("empty event stream")}
	}
	first := events[0]
	if first.Type != KindMatchStarted && first.Type != KindMatchSetupFailed {
		errs = append(errs, fmt.Errorf("first event must be MatchStarted or MatchSetupFailed, got %s", first.Type))
	}
	last := events[len(events)-1]
	if last.Type != KindMatchEnded {
		errs = append(errs, fmt.Errorf("last event must be MatchEnded, got %s", last.Type))
	}

	matchID := first.MatchID
	startedCount, endedCount := 0, 0
	for i, ev := range events {
		if ev.Seq != i {
			errs = append(errs, fmt.Errorf("event %d has seq %d, expected dense ordering", i, ev.Seq))
		}
		if ev.MatchID != matchID {
			errs = append(errs, fmt.Errorf("event %d has matchId %q, expected %q", i, ev.MatchID, matchID))
		}
		switch ev.Type {
		case KindMatchStarted:
			startedCount++
		case KindMatchEnded:
			endedCount++
		case KindObservationEmitted:
			turn, _ := ev.Data["turn"].(float64)
			if turn < 1 {
				errs = append(errs, fmt.Errorf("event %d: ObservationEmitted.turn must be >= 1, got %v", i, turn))
			}
			hasRules := observationHasGameRules(ev)
			if turn == 1 && !hasRules {
				errs = append(errs, fmt.Errorf("event %d: turn-1 ObservationEmitted missing gameRules", i))
			}
			if turn != 1 && hasRules {
				errs = append(errs, fmt.Errorf("event %d: gameRules must only appear on turn 1", i))
			}
		}
		if err := checkPrivateScope(ev); err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", i, err))
		}
	}
	if startedCount > 1 {
		errs = append(errs, fmt.Errorf("expected at most one MatchStarted, found %d", startedCount))
	}
	if endedCount != 1 {
		errs = append(errs, fmt.Errorf("expected exactly one MatchEnded, found %d", endedCount))
	}
	return errs
}

func observationHasGameRules(ev Event) bool {
	obs, ok := ev.Data["observation"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = obs["gameRules"]
	return ok
}

// checkPrivateScope enforces that no "_private" key appears anywhere except
// under MatchEnded.details or AgentRawOutput's top level.
func checkPrivateScope(ev Event) error {
	for k, v := range ev.Data {
		if k == "_private" {
			if ev.Type == KindAgentRawOutput {
				continue
			}
			return fmt.Errorf("_private key outside MatchEnded.details/AgentRawOutput")
		}
		insideDetails := ev.Type == KindMatchEnded && k == "details"
		if err := scanForStrayPrivate(v, insideDetails); err != nil {
			return err
		}
	}
	return nil
}

func scanForStrayPrivate(v any, insideDetails bool) error {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if k == "_private" {
				if insideDetails {
					continue
				}
				return fmt.Errorf("_private key outside MatchEnded.details/AgentRawOutput")
			}
			if err := scanForStrayPrivate(val, insideDetails); err != nil {
				return err
			}
		}
	case []any:
		for _, val := range t {
			if err := scanForStrayPrivate(val, insideDetails); err != nil {
				return err
			}
		}
	}
	return nil
}
