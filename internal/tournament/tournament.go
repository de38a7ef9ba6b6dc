// Package tournament implements the deterministic round-robin runner
// (spec.md §4.F): every unordered agent pair plays `rounds` matches each,
// seat order alternates to remove first-move bias, and matches are driven
// strictly sequentially so side-effect ordering (event emission, file
// writes) never depends on host scheduling. Standings aggregate match
// outcomes with a fixed points table and deterministic tie-break.
//
// Grounded on the teacher's campaign.gate_profile.go aggregation style
// (accumulate per-entity counters across a run, then one deterministic
// sort.Slice at the end) — generalized from per-gate pass/fail counts to
// per-agent points/scoreDiff.
package tournament

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/marcohefti/matchlab/internal/artifact"
	"github.com/marcohefti/matchlab/internal/bundle"
	"github.com/marcohefti/matchlab/internal/hashing"
	"github.com/marcohefti/matchlab/internal/jsonval"
	"github.com/marcohefti/matchlab/internal/match"
	"github.com/marcohefti/matchlab/internal/registry"
	"github.com/marcohefti/matchlab/internal/rng"
	"github.com/marcohefti/matchlab/internal/scenario"
)

// Config bounds one round-robin run.
type Config struct {
	TournamentSeed uint32
	ScenarioName   string
	ScenarioCtor   scenario.Constructor
	AgentNames     []string // registry keys, in roster order; duplicates allowed
	Agents         *registry.Agents
	Rounds         int
	MatchConfig    match.Config
	Runner         bundle.RunnerInfo
	ModeProfileID  string
	ScenarioInfo   bundle.ScenarioInfo
	OutDir         string
	CreatedAt      time.Time
}

// MatchRecord is one played match's outcome, kept for standings
// computation and the tournament manifest's matches[] array.
type MatchRecord struct {
	MatchKey string
	Seed     uint32
	AgentIDs []string // order actually played (post seat-swap)
	MaxTurns int
	LogHash  string
	Scores   map[string]float64
	Reason   string
}

// Result is the full outcome of one round-robin run.
type Result struct {
	CompetitorIDs   []string // "${name}-${index}" roster, stable across runs
	Matches         []MatchRecord
	Standings       []StandingsRow
	TruthBundleHash string
	Manifest        jsonval.Value
}

// competitorID is the stable `${key}-${index}` id spec.md §4.F requires,
// 1-based index disambiguating repeated agent names in the roster.
func competitorID(name string, index int) string {
	return fmt.Sprintf("%s-%d", name, index+1)
}

// RunRoundRobin iterates every unordered pair and round sequentially (never
// `go func()`, per spec.md §4.F and §5), writing each match's directory via
// internal/bundle.WriteMatch as it goes, then assembles and writes the
// tournament-level artifacts.
func RunRoundRobin(ctx context.Context, cfg Config) (Result, error) {
	names := cfg.AgentNames
	ids := make([]string, len(names))
	for i, n := range names {
		ids[i] = competitorID(n, i)
	}

	acc := newStandingsAccumulator(ids)
	var records []MatchRecord
	var logHashes []string
	matchManifestEntries := make([]jsonval.Value, 0, len(names)*(len(names)-1)/2*cfg.Rounds)

	for round := 0; round < cfg.Rounds; round++ {
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				rec, entry, err := cfg.playMatch(ctx, round, i, j, names, ids)
				if err != nil {
					return Result{}, err
				}
				records = append(records, rec)
				matchManifestEntries = append(matchManifestEntries, entry)
				logHashes = append(logHashes, rec.LogHash)
				acc.record(rec)
			}
		}
	}

	standings := acc.rows()
	truthHash := hashing.TruthBundleHash(logHashes)

	manifest := buildTournamentManifest(cfg, ids, matchManifestEntries, truthHash)
	if err := writeTournamentArtifacts(cfg.OutDir, manifest, standings); err != nil {
		return Result{}, err
	}

	matchKeys := make([]string, len(records))
	for i, rec := range records {
		matchKeys[i] = rec.MatchKey
	}
	broadcast, err := bundle.BuildTournamentBroadcastManifest(cfg.OutDir, cfg.ModeProfileID, matchKeys, truthHash)
	if err != nil {
		return Result{}, err
	}
	if err := artifact.WriteBroadcastManifest(cfg.OutDir, broadcast); err != nil {
		return Result{}, err
	}

	return Result{
		CompetitorIDs:   ids,
		Matches:         records,
		Standings:       standings,
		TruthBundleHash: truthHash,
		Manifest:        manifest,
	}, nil
}

// playMatch runs and writes one round-robin match between roster slots i
// and j, applying the seat-order swap rule (spec.md §4.F: "swap = (round +
// i + j) mod 2 == 1").
func (cfg Config) playMatch(ctx context.Context, round, i, j int, names, ids []string) (MatchRecord, jsonval.Value, error) {
	matchKey := fmt.Sprintf("RR:%s-vs-%s:round%d", ids[i], ids[j], round+1)
	matchSeed := rng.DeriveMatchSeed(cfg.TournamentSeed, matchKey)

	playNames := []string{names[i], names[j]}
	playIDs := []string{ids[i], ids[j]}
	swap := (round+i+j)%2 == 1
	if swap {
		playNames[0], playNames[1] = playNames[1], playNames[0]
		playIDs[0], playIDs[1] = playIDs[1], playIDs[0]
	}

	tree := rng.DeriveMatchTree(matchSeed, len(playNames))
	agents, err := bundle.ResolveAgents(tree, playNames, playIDs, cfg.Agents)
	if err != nil {
		return MatchRecord{}, nil, err
	}

	result, err := match.Run(ctx, matchSeed, cfg.ScenarioName, cfg.ScenarioCtor, agents, cfg.MatchConfig)
	if err != nil {
		return MatchRecord{}, nil, err
	}

	agentInfos := bundle.BuildAgentInfos(playNames, playIDs, cfg.Runner.Version)
	matchConfigVal := bundle.MatchConfig{
		MaxTurns:       maxTurnsOf(cfg),
		MaxTurnTimeMs:  result.MaxTurnTimeMs,
		Seed:           matchSeed,
		TournamentSeed: cfg.TournamentSeed,
		MatchKey:       matchKey,
	}
	manifest := bundle.BuildMatchManifest(result.MatchID, cfg.ModeProfileID, cfg.ScenarioInfo, agentInfos, matchConfigVal, cfg.Runner, cfg.CreatedAt)
	summary := bundle.BuildMatchSummary(matchKey, matchSeed, playIDs, result, nil)

	dir := bundle.MatchDir(cfg.OutDir, matchKey)
	written, err := bundle.WriteMatch(dir, result, manifest, summary)
	if err != nil {
		return MatchRecord{}, nil, err
	}

	rec := MatchRecord{
		MatchKey: matchKey,
		Seed:     matchSeed,
		AgentIDs: playIDs,
		MaxTurns: maxTurnsOf(cfg),
		LogHash:  written.LogHash,
		Scores:   result.Scores,
		Reason:   result.Reason,
	}
	entry := map[string]jsonval.Value{
		"matchKey":     matchKey,
		"seed":         float64(matchSeed),
		"scenarioName": cfg.ScenarioName,
		"agentIds":     toValues(playIDs),
		"maxTurns":     float64(rec.MaxTurns),
	}
	return rec, entry, nil
}

// maxTurnsOf resolves the turn budget recorded on every match this
// tournament plays: cfg.MatchConfig.MaxTurns when the caller overrode it,
// otherwise the scenario's own default. The probe always constructs with
// agentCount=1, matching internal/match.Run's own probe call, since every
// reference scenario models one seat (or one solo lane) regardless of how
// many names are in the tournament roster.
func maxTurnsOf(cfg Config) int {
	if cfg.MatchConfig.MaxTurns != nil {
		return *cfg.MatchConfig.MaxTurns
	}
	if probe, err := cfg.ScenarioCtor(1); err == nil {
		return probe.MaxTurns()
	}
	return 0
}

func toValues(ss []string) []jsonval.Value {
	out := make([]jsonval.Value, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func buildTournamentManifest(cfg Config, ids []string, matches []jsonval.Value, truthHash string) jsonval.Value {
	m := map[string]jsonval.Value{
		"tournamentSeed":  float64(cfg.TournamentSeed),
		"scenarioName":    cfg.ScenarioName,
		"agents":          toValues(ids),
		"matches":         matches,
		"truthBundleHash": truthHash,
		"createdAt":       cfg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if cfg.ModeProfileID != "" {
		m["modeProfile"] = cfg.ModeProfileID
	}
	if cfg.Runner.Version != "" {
		m["harnessVersion"] = cfg.Runner.Version
	}
	return m
}

// StandingsRow is one row of standings.json, sorted points desc, scoreDiff
// desc, agentId asc (spec.md §4.F).
type StandingsRow struct {
	AgentID   string  `json:"agentId"`
	Points    int     `json:"points"`
	Wins      int     `json:"wins"`
	Draws     int     `json:"draws"`
	Losses    int     `json:"losses"`
	ScoreDiff float64 `json:"scoreDiff"`
}

func (r StandingsRow) toValue() jsonval.Value {
	return map[string]jsonval.Value{
		"agentId":   r.AgentID,
		"points":    float64(r.Points),
		"wins":      float64(r.Wins),
		"draws":     float64(r.Draws),
		"losses":    float64(r.Losses),
		"scoreDiff": r.ScoreDiff,
	}
}

type standingsAccumulator struct {
	rowsByID map[string]*StandingsRow
	order    []string
}

func newStandingsAccumulator(ids []string) *standingsAccumulator {
	acc := &standingsAccumulator{rowsByID: map[string]*StandingsRow{}}
	for _, id := range ids {
		if _, exists := acc.rowsByID[id]; exists {
			continue
		}
		acc.rowsByID[id] = &StandingsRow{AgentID: id}
		acc.order = append(acc.order, id)
	}
	return acc
}

// record applies one match's outcome (3 points win, 1 each draw, 0 loss) to
// both participants' running totals.
func (acc *standingsAccumulator) record(rec MatchRecord) {
	if len(rec.AgentIDs) != 2 {
		return
	}
	a, b := rec.AgentIDs[0], rec.AgentIDs[1]
	sa, sb := rec.Scores[a], rec.Scores[b]
	ra, rb := acc.rowsByID[a], acc.rowsByID[b]
	if ra == nil || rb == nil {
		return
	}
	ra.ScoreDiff += sa - sb
	rb.ScoreDiff += sb - sa
	switch {
	case sa > sb:
		ra.Points += 3
		ra.Wins++
		rb.Losses++
	case sb > sa:
		rb.Points += 3
		rb.Wins++
		ra.Losses++
	default:
		ra.Points++
		rb.Points++
		ra.Draws++
		rb.Draws++
	}
}

func (acc *standingsAccumulator) rows() []StandingsRow {
	out := make([]StandingsRow, 0, len(acc.order))
	for _, id := range acc.order {
		out = append(out, *acc.rowsByID[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].ScoreDiff != out[j].ScoreDiff {
			return out[i].ScoreDiff > out[j].ScoreDiff
		}
		return out[i].AgentID < out[j].AgentID
	})
	return out
}

func writeTournamentArtifacts(dir string, manifest jsonval.Value, standings []StandingsRow) error {
	if err := artifact.WriteTournamentManifest(dir, manifest); err != nil {
		return err
	}
	rows := make([]jsonval.Value, len(standings))
	for i, r := range standings {
		rows[i] = r.toValue()
	}
	return artifact.WriteStandings(dir, map[string]jsonval.Value{"rows": rows})
}
