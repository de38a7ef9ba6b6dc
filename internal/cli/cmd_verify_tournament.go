package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/marcohefti/matchlab/internal/codes"
	"github.com/marcohefti/matchlab/internal/verify"
)

// runVerifyTournament recomputes every content hash and the truth bundle
// hash of a tournament bundle, per spec.md §6's "verify-tournament --path
// DIR" surface. It runs the same seven checks validate-bundle does but
// never requires signatures, matching the "verify" vs "validate" split the
// spec draws between hash recomputation and full bundle inspection.
func (r Runner) runVerifyTournament(args []string) int {
	fs := flag.NewFlagSet("verify-tournament", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	path := fs.String("path", "", "tournament directory to verify")
	jsonOut := fs.Bool("json", false, "print the report as JSON")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("verify-tournament: invalid flags")
	}
	if *help {
		fmt.Fprintln(r.Stdout, "matchctl verify-tournament --path DIR")
		return 0
	}
	if *path == "" {
		return r.failUsage("verify-tournament: --path is required")
	}

	report := verify.ValidateTournamentBundle(*path, false)
	r.printReport(report, *jsonOut)

	switch report.Status() {
	case verify.StatusError:
		fmt.Fprintf(r.Stderr, "%s: verify-tournament: structural error\n", codes.StructuralError)
		return 2
	case verify.StatusFail:
		fmt.Fprintf(r.Stderr, "%s: verify-tournament: hash mismatch\n", codes.HashMismatch)
		return 1
	default:
		return 0
	}
}

func (r Runner) printReport(report verify.Report, jsonOut bool) {
	if jsonOut {
		checks := make([]map[string]any, len(report.Checks))
		for i, c := range report.Checks {
			checks[i] = map[string]any{
				"name":     c.Name,
				"status":   string(c.Status),
				"errors":   c.Errors,
				"warnings": c.Warnings,
			}
		}
		r.writeJSON(map[string]any{"status": string(report.Status()), "checks": checks})
		return
	}
	for _, c := range report.Checks {
		fmt.Fprintf(r.Stdout, "%s: %s\n", c.Name, c.Status)
		for _, e := range c.Errors {
			fmt.Fprintf(r.Stdout, "  error: %s\n", e)
		}
		for _, w := range c.Warnings {
			fmt.Fprintf(r.Stdout, "  warning: %s\n", w)
		}
	}
	fmt.Fprintf(r.Stdout, "overall: %s\n", report.Status())
}
