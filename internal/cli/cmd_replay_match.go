package cli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/marcohefti/matchlab/internal/event"
	"github.com/marcohefti/matchlab/internal/jsonval"
	"github.com/marcohefti/matchlab/internal/store"
)

// runReplayMatch renders a match.jsonl as a human-readable markdown
// transcript (spec.md §6 "replay-match --in FILE [--out-md FILE]"). The
// replay viewer proper (moment detection, highlight reels) is out of
// scope per spec.md §1; this is the plain event-by-event rendering every
// other adapter can build on, redacting `_private` the way every
// spectator-facing surface must (spec.md §3/§9).
func (r Runner) runReplayMatch(args []string) int {
	fs := flag.NewFlagSet("replay-match", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	in := fs.String("in", "", "match.jsonl file to replay")
	outMD := fs.String("out-md", "", "write the markdown transcript to this file instead of stdout")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("replay-match: invalid flags")
	}
	if *help {
		fmt.Fprintln(r.Stdout, "matchctl replay-match --in FILE [--out-md FILE]")
		return 0
	}
	if *in == "" {
		return r.failUsage("replay-match: --in is required")
	}

	lines, err := readJSONLLines(*in)
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("replay-match: %s", err))
	}
	events, err := event.ParseJSONL(lines)
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("replay-match: %s", err))
	}

	var sb strings.Builder
	renderTranscript(&sb, events)

	if *outMD != "" {
		if err := writeFileHelper(*outMD, []byte(sb.String())); err != nil {
			return r.fail(codeIO, fmt.Sprintf("replay-match: %s", err))
		}
		fmt.Fprintf(r.Stdout, "wrote transcript to %s\n", *outMD)
		return 0
	}
	fmt.Fprint(r.Stdout, sb.String())
	return 0
}

func readJSONLLines(path string) ([]jsonval.Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []jsonval.Value
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		v, err := jsonval.Parse([]byte(raw))
		if err != nil {
			return nil, err
		}
		lines = append(lines, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// renderTranscript writes one markdown section per event, redacting any
// `_private` key so a replayed transcript can be shared with spectators
// without leaking hidden scenario state.
func renderTranscript(sb *strings.Builder, events []event.Event) {
	fmt.Fprintln(sb, "# Match transcript")
	for _, ev := range events {
		data := redactPrivate(ev.Data).(map[string]any)
		fmt.Fprintf(sb, "\n## [%d] %s\n", ev.Seq, ev.Type)
		switch ev.Type {
		case event.KindTurnStarted:
			fmt.Fprintf(sb, "turn %v\n", data["turn"])
		case event.KindObservationEmitted:
			fmt.Fprintf(sb, "agent `%v` observes (turn %v)\n", data["agentId"], data["turn"])
		case event.KindActionSubmitted:
			fmt.Fprintf(sb, "agent `%v` submits (turn %v): %s\n", data["agentId"], data["turn"], mustCanon(data["action"]))
		case event.KindActionAdjudicated:
			fmt.Fprintf(sb, "agent `%v` adjudicated valid=%v feedback=%s\n", data["agentId"], data["valid"], mustCanon(data["feedback"]))
		case event.KindAgentError:
			fmt.Fprintf(sb, "agent `%v` error: %v\n", data["agentId"], data["message"])
		case event.KindInvalidAction:
			fmt.Fprintf(sb, "agent `%v` invalid action: %v\n", data["agentId"], data["reason"])
		case event.KindStateUpdated:
			fmt.Fprintf(sb, "state summary: %s\n", mustCanon(data["summary"]))
		case event.KindMatchStarted:
			fmt.Fprintf(sb, "seed=%v agents=%v scenario=%v maxTurns=%v\n", data["seed"], data["agentIds"], data["scenarioName"], data["maxTurns"])
		case event.KindMatchEnded:
			fmt.Fprintf(sb, "reason=%v scores=%v turns=%v\n", data["reason"], data["scores"], data["turns"])
		case event.KindMatchSetupFailed:
			fmt.Fprintf(sb, "setup failed: %v\n", data["message"])
		default:
			fmt.Fprintf(sb, "%s\n", mustCanon(data))
		}
	}
}

// mustCanon renders a fragment for a markdown transcript preview. This is a
// spectator-facing rendering path, not a hash-critical one, so it uses
// store.CanonicalJSON rather than the JCS canonicalizer internal/jsonval
// reserves for bytes that feed match.jsonl hashes.
func mustCanon(v jsonval.Value) string {
	b, err := store.CanonicalJSON(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
