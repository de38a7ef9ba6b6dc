// Package cli is the matchctl command dispatcher. Grounded on the teacher's
// internal/cli/cli.go Runner{Version, Now, Stdout, Stderr}.Run(args) []
// dispatch and its flag.FlagSet-per-subcommand idiom (flag.ContinueOnError,
// SetOutput(io.Discard) so the stdlib flag package never writes its own
// usage text, a --help bool per command), narrowed from the teacher's
// eighteen attempt/campaign/enrich commands down to the eight stable
// run/verify/sign commands spec.md §6 defines.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/marcohefti/matchlab/internal/codes"
)

// Runner holds the dependencies every subcommand needs, injected so tests
// never touch the real stdout/stderr or wall clock.
type Runner struct {
	Version string
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
	log     zerolog.Logger
}

func (r Runner) prepared() Runner {
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Stderr == nil {
		r.Stderr = os.Stderr
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	r.log = zerolog.New(zerolog.ConsoleWriter{Out: r.Stderr, NoColor: true, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "matchctl").Logger()
	return r
}

// Run dispatches args[0] to its subcommand and returns a process exit code.
func (r Runner) Run(args []string) int {
	r = r.prepared()

	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printRootHelp(r.Stdout)
		return 0
	}

	switch args[0] {
	case "run-match":
		return r.runRunMatch(args[1:])
	case "run-tournament":
		return r.runRunTournament(args[1:])
	case "verify-match":
		return r.runVerifyMatch(args[1:])
	case "verify-tournament":
		return r.runVerifyTournament(args[1:])
	case "validate-bundle":
		return r.runValidateBundle(args[1:])
	case "sign-tournament":
		return r.runSignTournament(args[1:])
	case "verify-receipt":
		return r.runVerifyReceipt(args[1:])
	case "replay-match":
		return r.runReplayMatch(args[1:])
	case "init":
		return r.runInit(args[1:])
	case "version":
		fmt.Fprintf(r.Stdout, "%s\n", r.Version)
		return 0
	default:
		fmt.Fprintf(r.Stderr, "%s: unknown command %q\n", codes.Usage, args[0])
		printRootHelp(r.Stderr)
		return 2
	}
}

func (r Runner) failUsage(msg string) int {
	fmt.Fprintf(r.Stderr, "%s: %s\n", codes.Usage, msg)
	return 1
}

func (r Runner) fail(code, msg string) int {
	fmt.Fprintf(r.Stderr, "%s: %s\n", code, msg)
	return 1
}

// writeJSON prints v to stdout through the _private redaction pass, the
// way every inspection surface (run-match --out, replay-match) must per
// spec.md §3/§9: hidden scenario state never reaches an operator-facing
// artifact outside MatchEnded.details._private itself.
func (r Runner) writeJSON(v any) int {
	enc := json.NewEncoder(r.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(redactPrivate(v)); err != nil {
		fmt.Fprintf(r.Stderr, "%s: failed to encode json: %s\n", codes.IO, err)
		return 1
	}
	return 0
}

func printRootHelp(w io.Writer) {
	fmt.Fprint(w, `matchctl - deterministic agent-match harness

Usage:
  matchctl run-match --scenario K --seed N --turns N [--matchId S] [--agents A,B,...] [--outDir DIR] [--out FILE] [--gateway local|http] [--agent-urls U,...] [--emit-provenance] [--engine-commit S] [--engine-version S]
  matchctl run-tournament --seed N --rounds N --maxTurns N --scenario K --agents A,B,... --outDir DIR [--agents-file roster.yaml] [--bundle-out FILE]
  matchctl verify-match --path DIR
  matchctl verify-tournament --path DIR
  matchctl validate-bundle --path DIR [--require-signatures] [--verbose]
  matchctl sign-tournament DIR --key PATH --issuer S
  matchctl verify-receipt DIR --pub PATH [--match M] [--skip-hashes]
  matchctl replay-match --in FILE [--out-md FILE]
  matchctl init [--storage-root .matchlab] [--config matchlab.config.json]
  matchctl version

Commands:
  run-match          Run a single match and write its bundle.
  run-tournament     Run a round-robin tournament and write its bundle.
  verify-match       Recompute one match directory's hashes (exit 0/1/2).
  verify-tournament  Recompute one tournament bundle's hashes (exit 0/1/2).
  validate-bundle    Run all structural/hash/signature checks on a bundle.
  sign-tournament    Ed25519-sign every match and the tournament as a whole.
  verify-receipt     Verify receipts in a directory against a public key.
  replay-match       Render a match.jsonl as a human-readable transcript.
  init               Write matchlab.config.json and the storage root.
`)
}
