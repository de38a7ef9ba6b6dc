package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/marcohefti/matchlab/internal/codes"
	"github.com/marcohefti/matchlab/internal/verify"
)

// runVerifyMatch recomputes a single match directory's logHash/manifestHash
// and compares them to the stored match_summary.json, per spec.md §6's
// "verify-match --path DIR" surface: exit 0 pass, 1 hash mismatch, 2
// structural error.
func (r Runner) runVerifyMatch(args []string) int {
	fs := flag.NewFlagSet("verify-match", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	path := fs.String("path", "", "match directory to verify")
	jsonOut := fs.Bool("json", false, "print the check result as JSON")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("verify-match: invalid flags")
	}
	if *help {
		fmt.Fprintln(r.Stdout, "matchctl verify-match --path DIR")
		return 0
	}
	if *path == "" {
		return r.failUsage("verify-match: --path is required")
	}

	result := verify.ValidateMatchDir(*path)

	if *jsonOut {
		r.writeJSON(map[string]any{
			"name":     result.Name,
			"status":   string(result.Status),
			"errors":   result.Errors,
			"warnings": result.Warnings,
		})
	} else {
		fmt.Fprintf(r.Stdout, "%s: %s\n", result.Name, result.Status)
		for _, e := range result.Errors {
			fmt.Fprintf(r.Stdout, "  error: %s\n", e)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(r.Stdout, "  warning: %s\n", w)
		}
	}

	switch result.Status {
	case verify.StatusError:
		fmt.Fprintf(r.Stderr, "%s: verify-match: structural error\n", codes.StructuralError)
		return 2
	case verify.StatusFail:
		fmt.Fprintf(r.Stderr, "%s: verify-match: hash mismatch\n", codes.HashMismatch)
		return 1
	default:
		return 0
	}
}
