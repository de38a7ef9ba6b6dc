package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/marcohefti/matchlab/internal/artifact"
	"github.com/marcohefti/matchlab/internal/jsonval"
	"github.com/marcohefti/matchlab/internal/receipt"
)

// runSignTournament Ed25519-signs every match in a tournament bundle plus
// the tournament as a whole (spec.md §4.H / §6 "sign-tournament DIR --key
// PATH --issuer S"). Payloads are built strictly from bytes already on
// disk (match_summary.json hashes, tournament_manifest.json's
// truthBundleHash) so a receipt can never assert a hash nobody verified.
func (r Runner) runSignTournament(args []string) int {
	fs := flag.NewFlagSet("sign-tournament", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	keyPath := fs.String("key", "", "PEM-encoded Ed25519 private key")
	issuer := fs.String("issuer", "", "issuedBy identity stamped on every receipt")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("sign-tournament: invalid flags")
	}
	if *help {
		fmt.Fprintln(r.Stdout, "matchctl sign-tournament DIR --key PATH --issuer S")
		return 0
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return r.failUsage("sign-tournament: a single tournament DIR positional argument is required")
	}
	dir := rest[0]
	if *keyPath == "" {
		return r.failUsage("sign-tournament: --key is required")
	}
	if *issuer == "" {
		return r.failUsage("sign-tournament: --issuer is required")
	}

	pemBytes, err := os.ReadFile(*keyPath)
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("sign-tournament: %s", err))
	}
	priv, err := receipt.LoadPrivateKeyPEM(pemBytes)
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("sign-tournament: %s", err))
	}

	manifestVal, err := readJSONFile(filepath.Join(dir, artifact.TournamentManifestFile))
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("sign-tournament: %s", err))
	}
	manifest, ok := manifestVal.(map[string]any)
	if !ok {
		return r.fail(codeIO, "sign-tournament: tournament_manifest.json is not an object")
	}
	matches, _ := manifest["matches"].([]any)
	truthHash, _ := manifest["truthBundleHash"].(string)

	signedAt := r.Now()
	count := 0
	for _, mv := range matches {
		m, ok := mv.(map[string]any)
		if !ok {
			continue
		}
		matchKey, _ := m["matchKey"].(string)
		matchDir := artifact.MatchDir(dir, matchKey)
		summaryVal, err := readJSONFile(filepath.Join(matchDir, artifact.MatchSummaryFile))
		if err != nil {
			return r.fail(codeIO, fmt.Sprintf("sign-tournament: %s: %s", matchKey, err))
		}
		summary, ok := summaryVal.(map[string]any)
		if !ok {
			return r.fail(codeIO, fmt.Sprintf("sign-tournament: %s: match_summary.json is not an object", matchKey))
		}
		matchID, _ := summary["matchId"].(string)
		hashes, _ := summary["hashes"].(map[string]any)
		logHash, _ := hashes["logHash"].(string)
		manifestHash, _ := hashes["manifestHash"].(string)

		payload := receipt.MatchPayload(matchID, logHash, manifestHash, r.Version, *issuer)
		rcpt, err := receipt.Sign(payload, priv, signedAt)
		if err != nil {
			return r.fail(codeIO, fmt.Sprintf("sign-tournament: %s: %s", matchKey, err))
		}
		if err := artifact.WriteReceipt(matchDir, rcpt.ToValue()); err != nil {
			return r.fail(codeIO, fmt.Sprintf("sign-tournament: %s: %s", matchKey, err))
		}
		count++
	}

	tPayload := receipt.TournamentPayload(bundleIDOf(manifest), truthHash, count, *issuer)
	tReceipt, err := receipt.Sign(tPayload, priv, signedAt)
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("sign-tournament: %s", err))
	}
	if err := artifact.WriteTournamentReceipt(dir, tReceipt.ToValue()); err != nil {
		return r.fail(codeIO, fmt.Sprintf("sign-tournament: %s", err))
	}

	fmt.Fprintf(r.Stdout, "signed %d match receipts and 1 tournament receipt in %s\n", count, dir)
	return 0
}

func readJSONFile(path string) (jsonval.Value, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jsonval.Parse(b)
}

// bundleIDOf derives the receipt's tournamentId from the manifest:
// TournamentManifest has no dedicated id field, so the id is always
// "<scenarioName>-<tournamentSeed>". Two tournaments with the same scenario
// and seed get the same id.
func bundleIDOf(manifest map[string]any) string {
	scenarioName, _ := manifest["scenarioName"].(string)
	seed, _ := manifest["tournamentSeed"].(float64)
	return fmt.Sprintf("%s-%d", scenarioName, int64(seed))
}
