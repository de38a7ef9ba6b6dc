package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/marcohefti/matchlab/internal/artifact"
	"github.com/marcohefti/matchlab/internal/codes"
	"github.com/marcohefti/matchlab/internal/hashing"
	"github.com/marcohefti/matchlab/internal/receipt"
)

// runVerifyReceipt verifies receipt.json/tournament_receipt.json signatures
// in DIR against a supplied public key (spec.md §6 "verify-receipt DIR
// --pub PATH [--match M] [--skip-hashes]"). --match restricts the check to
// one match subdirectory's receipt; otherwise every match receipt plus the
// tournament receipt is checked. --skip-hashes verifies only the signature,
// skipping the recompute-from-filesystem cross-check §4.H requires.
func (r Runner) runVerifyReceipt(args []string) int {
	fs := flag.NewFlagSet("verify-receipt", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	pubPath := fs.String("pub", "", "PEM-encoded Ed25519 public key")
	matchKey := fs.String("match", "", "restrict the check to this match's receipt")
	skipHashes := fs.Bool("skip-hashes", false, "verify only the signature, not the recomputed hashes")
	jsonOut := fs.Bool("json", false, "print results as JSON")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("verify-receipt: invalid flags")
	}
	if *help {
		fmt.Fprintln(r.Stdout, "matchctl verify-receipt DIR --pub PATH [--match M] [--skip-hashes]")
		return 0
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return r.failUsage("verify-receipt: a single tournament DIR positional argument is required")
	}
	dir := rest[0]
	if *pubPath == "" {
		return r.failUsage("verify-receipt: --pub is required")
	}

	pemBytes, err := os.ReadFile(*pubPath)
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("verify-receipt: %s", err))
	}
	pub, err := receipt.LoadPublicKeyPEM(pemBytes)
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("verify-receipt: %s", err))
	}

	type result struct {
		name string
		ok   bool
		err  string
	}
	var results []result
	anyFail := false
	anyStructural := false

	checkMatch := func(key string) {
		matchDir := artifact.MatchDir(dir, key)
		rv, err := readJSONFile(filepath.Join(matchDir, artifact.ReceiptFile))
		if err != nil {
			results = append(results, result{name: key, ok: false, err: err.Error()})
			anyStructural = true
			return
		}
		rcpt, err := receipt.FromValue(rv)
		if err != nil {
			results = append(results, result{name: key, ok: false, err: err.Error()})
			anyStructural = true
			return
		}
		ok, err := receipt.VerifyAgainstKey(rcpt, pub)
		if err != nil || !ok {
			msg := "signature invalid"
			if err != nil {
				msg = err.Error()
			}
			results = append(results, result{name: key, ok: false, err: msg})
			anyFail = true
			return
		}
		if !*skipHashes {
			payload, _ := rcpt.Payload.(map[string]any)
			wantLog, _ := payload["logHash"].(string)
			wantManifest, _ := payload["manifestHash"].(string)
			gotLog, lerr := hashing.HashFile(filepath.Join(matchDir, artifact.MatchLogFile))
			if lerr != nil || gotLog != wantLog {
				results = append(results, result{name: key, ok: false, err: "logHash mismatch"})
				anyFail = true
				return
			}
			manifestVal, merr := readJSONFile(filepath.Join(matchDir, artifact.MatchManifestFile))
			gotManifest, herr := hashing.HashManifestCore(manifestVal)
			if merr != nil || herr != nil || gotManifest != wantManifest {
				results = append(results, result{name: key, ok: false, err: "manifestHash mismatch"})
				anyFail = true
				return
			}
		}
		results = append(results, result{name: key, ok: true})
	}

	checkTournament := func() {
		rv, err := readJSONFile(filepath.Join(dir, artifact.TournamentReceiptFile))
		if err != nil {
			results = append(results, result{name: "tournament", ok: false, err: err.Error()})
			anyStructural = true
			return
		}
		rcpt, err := receipt.FromValue(rv)
		if err != nil {
			results = append(results, result{name: "tournament", ok: false, err: err.Error()})
			anyStructural = true
			return
		}
		ok, err := receipt.VerifyAgainstKey(rcpt, pub)
		if err != nil || !ok {
			msg := "signature invalid"
			if err != nil {
				msg = err.Error()
			}
			results = append(results, result{name: "tournament", ok: false, err: msg})
			anyFail = true
			return
		}
		if !*skipHashes {
			payload, _ := rcpt.Payload.(map[string]any)
			wantTruth, _ := payload["truthBundleHash"].(string)
			manifestVal, merr := readJSONFile(filepath.Join(dir, artifact.TournamentManifestFile))
			manifest, ok := manifestVal.(map[string]any)
			if merr != nil || !ok {
				results = append(results, result{name: "tournament", ok: false, err: "tournament_manifest.json unreadable"})
				anyStructural = true
				return
			}
			gotTruth, _ := manifest["truthBundleHash"].(string)
			if gotTruth != wantTruth {
				results = append(results, result{name: "tournament", ok: false, err: "truthBundleHash mismatch"})
				anyFail = true
				return
			}
		}
		results = append(results, result{name: "tournament", ok: true})
	}

	if *matchKey != "" {
		checkMatch(*matchKey)
	} else {
		manifestVal, err := readJSONFile(filepath.Join(dir, artifact.TournamentManifestFile))
		if err != nil {
			return r.fail(codes.StructuralError, fmt.Sprintf("verify-receipt: %s", err))
		}
		manifest, ok := manifestVal.(map[string]any)
		if !ok {
			return r.fail(codes.StructuralError, "verify-receipt: tournament_manifest.json is not an object")
		}
		matches, _ := manifest["matches"].([]any)
		for _, mv := range matches {
			m, ok := mv.(map[string]any)
			if !ok {
				continue
			}
			key, _ := m["matchKey"].(string)
			checkMatch(key)
		}
		checkTournament()
	}

	if *jsonOut {
		out := make([]map[string]any, len(results))
		for i, res := range results {
			out[i] = map[string]any{"name": res.name, "pass": res.ok, "error": res.err}
		}
		r.writeJSON(out)
	} else {
		for _, res := range results {
			if res.ok {
				fmt.Fprintf(r.Stdout, "%s: pass\n", res.name)
			} else {
				fmt.Fprintf(r.Stdout, "%s: fail (%s)\n", res.name, res.err)
			}
		}
	}

	switch {
	case anyStructural:
		return 2
	case anyFail:
		return 1
	default:
		return 0
	}
}
