package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcohefti/matchlab/internal/bundle"
	"github.com/marcohefti/matchlab/internal/config"
	"github.com/marcohefti/matchlab/internal/event"
	"github.com/marcohefti/matchlab/internal/match"
	"github.com/marcohefti/matchlab/internal/registry"
	"github.com/marcohefti/matchlab/internal/rng"
)

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r Runner) runRunMatch(args []string) int {
	fs := flag.NewFlagSet("run-match", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	scenarioName := fs.String("scenario", "", "registered scenario name (numberguess, heist)")
	seed := fs.Uint("seed", 0, "match seed")
	turns := fs.Int("turns", -1, "match turn budget; overrides the scenario's own default (omit or pass a negative value to use the scenario's default, 0 for a zero-turn match)")
	matchID := fs.String("matchId", "", "override the generated matchId used as the bundle directory name")
	agentsCSV := fs.String("agents", "", "comma-separated registered agent names, in seat order")
	outDir := fs.String("outDir", "", "storage root to write the match bundle under (overrides MATCHLAB_STORAGE_ROOT)")
	outFile := fs.String("out", "", "also write the redacted match summary to this file as JSON")
	gateway := fs.String("gateway", "local", "agent gateway: local (in-process registry) or http (not implemented)")
	agentURLs := fs.String("agent-urls", "", "comma-separated agent endpoint URLs, required with --gateway http")
	emitProvenance := fs.Bool("emit-provenance", false, "include engineCommit/engineVersion on MatchStarted")
	engineCommit := fs.String("engine-commit", "", "engine commit hash to stamp on MatchStarted")
	engineVersion := fs.String("engine-version", "", "engine version to stamp on MatchStarted")
	jsonOut := fs.Bool("json", false, "print the match summary as JSON")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("run-match: invalid flags")
	}
	if *help {
		fmt.Fprintln(r.Stdout, "matchctl run-match --scenario K --seed N --turns N [--matchId S] [--agents A,B,...] [--outDir DIR] [--out FILE] [--gateway local|http] [--agent-urls U,...] [--emit-provenance] [--engine-commit S] [--engine-version S]")
		return 0
	}
	if *scenarioName == "" {
		return r.failUsage("run-match: --scenario is required")
	}
	agentNames := splitCSV(*agentsCSV)
	if len(agentNames) == 0 {
		return r.failUsage("run-match: --agents is required")
	}
	if *gateway != "local" && *gateway != "http" {
		return r.failUsage("run-match: --gateway must be local or http")
	}
	if *gateway == "http" {
		// Live HTTP agent gateways talk to out-of-process LLM clients, which
		// spec.md §1 places outside this engine's scope; accepting the flag
		// keeps the documented surface stable while failing clearly instead
		// of silently falling back to local.
		if strings.TrimSpace(*agentURLs) == "" {
			return r.failUsage("run-match: --gateway http requires --agent-urls")
		}
		return r.fail(codeResolve, "run-match: --gateway http is not implemented; use --gateway local")
	}

	scenarios := registry.DefaultScenarios()
	ctor, err := scenarios.Constructor(*scenarioName)
	if err != nil {
		return r.fail(codeResolve, fmt.Sprintf("run-match: %s", err))
	}

	resolved, err := config.ResolveStorageRoot(*outDir)
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("run-match: %s", err))
	}

	matchSeed := uint32(*seed)
	tree := rng.DeriveMatchTree(matchSeed, len(agentNames))

	agents := registry.DefaultAgents()
	specs, err := bundle.ResolveAgents(tree, agentNames, agentNames, agents)
	if err != nil {
		return r.fail(codeResolve, fmt.Sprintf("run-match: %s", err))
	}

	prov := event.Provenance{}
	if *emitProvenance {
		prov = event.Provenance{EngineCommit: *engineCommit, EngineVersion: *engineVersion}
	}

	matchCfg := match.Config{Provenance: prov}
	if *turns >= 0 {
		t := *turns
		matchCfg.MaxTurns = &t
	}
	result, err := match.Run(context.Background(), matchSeed, *scenarioName, ctor, specs, matchCfg)
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("run-match: %s", err))
	}

	key := *matchID
	if key == "" {
		key = result.MatchID
	}
	dir := filepath.Join(resolved.StorageRoot, key)

	scenarioInfo := bundle.ScenarioInfo{ID: *scenarioName, Version: "1", ContractVersion: 1}
	agentInfos := bundle.BuildAgentInfos(agentNames, agentNames, r.Version)
	cfgVal := bundle.MatchConfig{MaxTurns: result.MaxTurns, MaxTurnTimeMs: result.MaxTurnTimeMs, Seed: matchSeed}
	manifest := bundle.BuildMatchManifest(result.MatchID, "", scenarioInfo, agentInfos, cfgVal, bundle.RunnerInfo{Name: "matchctl", Version: r.Version}, r.Now())
	summary := bundle.BuildMatchSummary(key, matchSeed, agentNames, result, nil)

	written, err := bundle.WriteMatch(dir, result, manifest, summary)
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("run-match: %s", err))
	}

	if *outFile != "" {
		raw, merr := jsonMarshalIndent(written.Summary)
		if merr != nil {
			return r.fail(codeIO, fmt.Sprintf("run-match: %s", merr))
		}
		if err := os.WriteFile(*outFile, raw, 0o644); err != nil {
			return r.fail(codeIO, fmt.Sprintf("run-match: %s", err))
		}
	}

	if *jsonOut {
		return r.writeJSON(written.Summary)
	}
	fmt.Fprintf(r.Stdout, "match %s written to %s (reason=%s turns=%d)\n", result.MatchID, dir, result.Reason, result.Turns)
	return 0
}
