package cli

import (
	"encoding/json"
	"os"
)

// writeFileHelper writes raw to path with the permissions every CLI
// artifact output uses.
func writeFileHelper(path string, raw []byte) error {
	return os.WriteFile(path, raw, 0o644)
}

// jsonMarshalIndent marshals v through the same _private redaction pass
// writeJSON applies, for callers writing to a file instead of stdout
// (run-match --out).
func jsonMarshalIndent(v any) ([]byte, error) {
	return json.MarshalIndent(redactPrivate(v), "", "  ")
}

// redactPrivate strips any object key literally named "_private" from a
// JSON-shaped value before the CLI prints it. Hidden scenario state is
// deliberately nested under MatchEnded.details._private so a match.jsonl
// file on disk retains it for forensics, but spec.md §3/§9 forbid it
// leaking into any other operator-facing surface the CLI renders (replay
// transcripts, --out summaries, verbose validate-bundle dumps). This walks
// the generic map[string]any/[]any shape jsonval.Value produces rather than
// typed structs, the way internal/jsonval itself stays type-agnostic.
func redactPrivate(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if k == "_private" {
				continue
			}
			out[k] = redactPrivate(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = redactPrivate(val)
		}
		return out
	default:
		return v
	}
}
