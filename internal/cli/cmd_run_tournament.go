package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/marcohefti/matchlab/internal/bundle"
	"github.com/marcohefti/matchlab/internal/config"
	"github.com/marcohefti/matchlab/internal/match"
	"github.com/marcohefti/matchlab/internal/registry"
	"github.com/marcohefti/matchlab/internal/tournament"
)

// rosterFile is the optional --agents-file YAML shape, mirroring the
// teacher's suite/campaign YAML-spec-file pattern: a flat list under a
// single `agents` key, nothing more, since run-tournament has no other
// per-roster configuration spec.md names.
type rosterFile struct {
	Agents []string `yaml:"agents"`
}

func loadAgentsFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rf rosterFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return rf.Agents, nil
}

func (r Runner) runRunTournament(args []string) int {
	fs := flag.NewFlagSet("run-tournament", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	seed := fs.Uint("seed", 0, "tournament seed")
	rounds := fs.Int("rounds", 1, "rounds each unordered pair plays")
	maxTurns := fs.Int("maxTurns", -1, "per-match turn budget; overrides the scenario's own default (omit or pass a negative value to use the scenario's default, 0 for zero-turn matches)")
	scenarioName := fs.String("scenario", "", "registered scenario name")
	agentsCSV := fs.String("agents", "", "comma-separated registered agent names, in roster order")
	agentsFile := fs.String("agents-file", "", "YAML file with an `agents: [...]` roster list, used instead of --agents")
	outDir := fs.String("outDir", "", "storage root to write the tournament bundle under")
	bundleOut := fs.String("bundle-out", "", "also write the redacted tournament manifest to this file as JSON")
	jsonOut := fs.Bool("json", false, "print the tournament manifest as JSON")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return r.failUsage("run-tournament: invalid flags")
	}
	if *help {
		fmt.Fprintln(r.Stdout, "matchctl run-tournament --seed N --rounds N --maxTurns N --scenario K --agents A,B,... --outDir DIR [--agents-file roster.yaml] [--bundle-out FILE]")
		return 0
	}
	if *scenarioName == "" {
		return r.failUsage("run-tournament: --scenario is required")
	}
	agentNames := splitCSV(*agentsCSV)
	if *agentsFile != "" {
		fromFile, err := loadAgentsFile(*agentsFile)
		if err != nil {
			return r.fail(codeIO, fmt.Sprintf("run-tournament: %s", err))
		}
		agentNames = fromFile
	}
	if len(agentNames) < 2 {
		return r.failUsage("run-tournament: --agents or --agents-file requires at least two entries")
	}
	if *outDir == "" {
		return r.failUsage("run-tournament: --outDir is required")
	}

	scenarios := registry.DefaultScenarios()
	ctor, err := scenarios.Constructor(*scenarioName)
	if err != nil {
		return r.fail(codeResolve, fmt.Sprintf("run-tournament: %s", err))
	}

	resolved, err := config.ResolveStorageRoot(*outDir)
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("run-tournament: %s", err))
	}

	matchCfg := match.Config{}
	if *maxTurns >= 0 {
		t := *maxTurns
		matchCfg.MaxTurns = &t
	}

	cfg := tournament.Config{
		TournamentSeed: uint32(*seed),
		ScenarioName:   *scenarioName,
		ScenarioCtor:   ctor,
		AgentNames:     agentNames,
		Agents:         registry.DefaultAgents(),
		Rounds:         *rounds,
		MatchConfig:    matchCfg,
		Runner:         bundle.RunnerInfo{Name: "matchctl", Version: r.Version},
		ScenarioInfo:   bundle.ScenarioInfo{ID: *scenarioName, Version: "1", ContractVersion: 1},
		OutDir:         resolved.StorageRoot,
		CreatedAt:      r.Now(),
	}

	result, err := tournament.RunRoundRobin(context.Background(), cfg)
	if err != nil {
		return r.fail(codeIO, fmt.Sprintf("run-tournament: %s", err))
	}

	if *bundleOut != "" {
		raw, merr := jsonMarshalIndent(result.Manifest)
		if merr != nil {
			return r.fail(codeIO, fmt.Sprintf("run-tournament: %s", merr))
		}
		if err := writeFileHelper(*bundleOut, raw); err != nil {
			return r.fail(codeIO, fmt.Sprintf("run-tournament: %s", err))
		}
	}

	if *jsonOut {
		return r.writeJSON(result.Manifest)
	}
	fmt.Fprintf(r.Stdout, "tournament written to %s (%d matches, truthBundleHash=%s)\n", resolved.StorageRoot, len(result.Matches), result.TruthBundleHash)
	return 0
}
