package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/marcohefti/matchlab/internal/codes"
	"github.com/marcohefti/matchlab/internal/verify"
)

// runValidateBundle runs all seven checks in internal/verify against a
// tournament bundle (spec.md §4.I / §6 "validate-bundle --path DIR").
// Every check's status line and every error are always printed. --verbose
// prints warnings for every check; without it, warnings are printed only
// under failing and erroring checks, keeping a clean bundle's output to one
// line per check.
func (r Runner) runValidateBundle(args []string) int {
	fs := flag.NewFlagSet("validate-bundle", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	path := fs.String("path", "", "tournament directory to validate")
	requireSignatures := fs.Bool("require-signatures", false, "treat an absent receipt as an error instead of a warning")
	verbose := fs.Bool("verbose", false, "print warnings for passing checks too")
	jsonOut := fs.Bool("json", false, "print the report as JSON")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("validate-bundle: invalid flags")
	}
	if *help {
		fmt.Fprintln(r.Stdout, "matchctl validate-bundle --path DIR [--require-signatures] [--verbose]")
		return 0
	}
	if *path == "" {
		return r.failUsage("validate-bundle: --path is required")
	}

	report := verify.ValidateTournamentBundle(*path, *requireSignatures)

	if *jsonOut {
		r.printReport(report, true)
	} else {
		for _, c := range report.Checks {
			fmt.Fprintf(r.Stdout, "%s: %s\n", c.Name, c.Status)
			for _, e := range c.Errors {
				fmt.Fprintf(r.Stdout, "  error: %s\n", e)
			}
			if *verbose || c.Status == verify.StatusFail || c.Status == verify.StatusError {
				for _, w := range c.Warnings {
					fmt.Fprintf(r.Stdout, "  warning: %s\n", w)
				}
			}
		}
		fmt.Fprintf(r.Stdout, "overall: %s\n", report.Status())
	}

	switch report.Status() {
	case verify.StatusError:
		fmt.Fprintf(r.Stderr, "%s: validate-bundle: structural error\n", codes.StructuralError)
		return 2
	case verify.StatusFail:
		fmt.Fprintf(r.Stderr, "%s: validate-bundle: check failed\n", codes.HashMismatch)
		return 1
	default:
		return 0
	}
}
