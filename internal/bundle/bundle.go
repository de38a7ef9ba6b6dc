// Package bundle builds the jsonval.Value bodies for MatchManifest and
// MatchSummary (spec.md §3) and drives internal/artifact to write one
// match directory, in the order §5 requires (match.jsonl before
// match_manifest.json's hash can be trusted, both before match_summary.json
// references their hashes). internal/tournament and the run-match CLI
// command both call WriteMatch so a standalone match and a tournament's
// per-match directory share identical on-disk shape.
package bundle

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/marcohefti/matchlab/internal/artifact"
	"github.com/marcohefti/matchlab/internal/hashing"
	"github.com/marcohefti/matchlab/internal/jsonval"
	"github.com/marcohefti/matchlab/internal/match"
	"github.com/marcohefti/matchlab/internal/registry"
	"github.com/marcohefti/matchlab/internal/rng"
)

// ResolveAgents constructs one agent.Agent per name via agents, seeded from
// tree.AgentSeeds in order (spec.md §4.C step 2: "for each agent in order,
// agentSeed_i = derive_seed(masterRng)"). names and ids are parallel
// slices: names are registry keys, ids are the per-match agentId each
// resolved Agent plays under (which may differ from its registry key, e.g.
// tournament competitor ids like "random-1").
func ResolveAgents(tree rng.MatchSeedTree, names, ids []string, agents *registry.Agents) ([]match.AgentSpec, error) {
	specs := make([]match.AgentSpec, len(names))
	for i, name := range names {
		a, err := agents.Resolve(name, tree.AgentSeeds[i])
		if err != nil {
			return nil, err
		}
		specs[i] = match.AgentSpec{AgentID: ids[i], Agent: a}
	}
	return specs, nil
}

// agentKindOf is a closed lookup from registry key to MatchManifest agent
// "kind": scripted reference agents are deterministic and never touch the
// decoder; fallible talks only through raw text + internal/decoder, the
// shape spec.md §6 calls "LLM-shaped".
func agentKindOf(name string) string {
	if name == "fallible" {
		return "fallible"
	}
	return "scripted"
}

// BuildAgentInfos builds one AgentInfo per resolved agent, in the same
// order as ids/names, for MatchManifest.agents.
func BuildAgentInfos(names, ids []string, version string) []AgentInfo {
	infos := make([]AgentInfo, len(names))
	for i := range names {
		infos[i] = AgentInfo{
			ID:      ids[i],
			Kind:    agentKindOf(names[i]),
			Purpose: "primary",
			Version: version,
		}
	}
	return infos
}

// ScenarioInfo describes the scenario.Scenario a match was run against, for
// MatchManifest.scenario.
type ScenarioInfo struct {
	ID              string
	Version         string
	ContractVersion int
}

// ContentHash returns a stable content-addressed hash for a scenario or
// agent descriptor. Scenarios and agents here are compiled into the binary
// rather than loaded from external rulebook files, so "content" is the
// descriptor tuple itself rather than file bytes.
func ContentHash(parts ...string) string {
	return "sha256:" + hashing.SHA256Hex([]byte(strings.Join(parts, "|")))
}

func (s ScenarioInfo) toValue() jsonval.Value {
	return map[string]jsonval.Value{
		"id":              s.ID,
		"version":         s.Version,
		"contractVersion": float64(s.ContractVersion),
		"contentHash":     ContentHash(s.ID, s.Version, itoa(s.ContractVersion)),
	}
}

// AgentInfo describes one participant for MatchManifest.agents.
type AgentInfo struct {
	ID       string // per-match agent id, e.g. "random-1"
	Kind     string // "scripted" | "fallible"
	Purpose  string // "primary"
	Provider string // "" for scripted agents
	Model    string // "" for scripted agents
	Version  string
	Metadata jsonval.Value
}

func (a AgentInfo) toValue() jsonval.Value {
	v := map[string]jsonval.Value{
		"id":          a.ID,
		"kind":        a.Kind,
		"purpose":     a.Purpose,
		"provider":    a.Provider,
		"model":       a.Model,
		"version":     a.Version,
		"contentHash": ContentHash(a.ID, a.Kind, a.Provider, a.Model, a.Version),
	}
	if a.Metadata != nil {
		v["metadata"] = a.Metadata
	}
	return v
}

// RunnerInfo identifies the engine build that produced a match.
type RunnerInfo struct {
	Name      string
	Version   string
	GitCommit string
}

func (r RunnerInfo) toValue() jsonval.Value {
	return map[string]jsonval.Value{
		"name":      r.Name,
		"version":   r.Version,
		"gitCommit": r.GitCommit,
	}
}

// MatchConfig carries MatchManifest.config (spec.md §3).
type MatchConfig struct {
	MaxTurns       int
	MaxTurnTimeMs  int64
	Seed           uint32
	TournamentSeed uint32 // 0 when not part of a tournament
	MatchKey       string // "" when not part of a tournament
}

func (c MatchConfig) toValue() jsonval.Value {
	return map[string]jsonval.Value{
		"maxTurns":      float64(c.MaxTurns),
		"maxTurnTimeMs": float64(c.MaxTurnTimeMs),
		"seed":          float64(c.Seed),
		"seedDerivationInputs": map[string]jsonval.Value{
			"tournamentSeed": float64(c.TournamentSeed),
			"matchKey":       c.MatchKey,
		},
	}
}

// BuildMatchManifest assembles the canonical MatchManifest (spec.md §3).
// modeProfileID may be "" when the caller has no mode-profile concept.
func BuildMatchManifest(matchID, modeProfileID string, scenarioInfo ScenarioInfo, agents []AgentInfo, cfg MatchConfig, runner RunnerInfo, createdAt time.Time) jsonval.Value {
	agentVals := make([]jsonval.Value, len(agents))
	for i, a := range agents {
		agentVals[i] = a.toValue()
	}
	m := map[string]jsonval.Value{
		"matchId":  matchID,
		"scenario": scenarioInfo.toValue(),
		"agents":   agentVals,
		"config":   cfg.toValue(),
		"runner":   runner.toValue(),
		"createdAt": createdAt.UTC().Format(time.RFC3339Nano),
	}
	if modeProfileID != "" {
		m["modeProfileId"] = modeProfileID
	}
	return m
}

// winner returns the highest-scoring agent id, ties broken by ascending
// agentId (the same deterministic tie-break internal/tournament uses for
// standings).
func winner(scores map[string]float64) string {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	best := ""
	bestScore := 0.0
	first := true
	for _, id := range ids {
		s := scores[id]
		if first || s > bestScore {
			best, bestScore, first = id, s, false
		}
	}
	return best
}

// BuildMatchSummary assembles the canonical MatchSummary (spec.md §3) from
// a match.Result, before hashes are known. Callers must set summary's
// "hashes" field once match.jsonl and match_manifest.json are written on
// disk (see WriteMatch).
func BuildMatchSummary(matchKey string, seed uint32, agentIDs []string, result match.Result, failureModes []string) jsonval.Value {
	scoreVals := make(map[string]jsonval.Value, len(result.Scores))
	for k, v := range result.Scores {
		scoreVals[k] = v
	}
	timeoutVals := make(map[string]jsonval.Value, len(result.TimeoutsPerAgent))
	for k, v := range result.TimeoutsPerAgent {
		timeoutVals[k] = float64(v)
	}
	idVals := make([]jsonval.Value, len(agentIDs))
	for i, id := range agentIDs {
		idVals[i] = id
	}
	s := map[string]jsonval.Value{
		"matchId":          result.MatchID,
		"matchKey":         matchKey,
		"seed":             float64(seed),
		"agentIds":         idVals,
		"scores":           scoreVals,
		"timeoutsPerAgent": timeoutVals,
		"winner":           winner(result.Scores),
		"turns":            float64(result.Turns),
		"reason":           result.Reason,
	}
	if result.ForfeitedBy != "" {
		s["forfeitedBy"] = result.ForfeitedBy
	}
	if len(failureModes) > 0 {
		vals := make([]jsonval.Value, len(failureModes))
		for i, f := range failureModes {
			vals[i] = f
		}
		s["failureModes"] = vals
	}
	return s
}

// Written is the result of writing one match directory: the hashes every
// caller (tournament aggregation, receipt signing, the CLI report) needs.
type Written struct {
	LogHash      string
	ManifestHash string
	Summary      jsonval.Value
}

// WriteMatch writes match.jsonl, match_manifest.json, and match_summary.json
// into dir, in that order (spec.md §5), merging the resulting hashes into
// summary before it is written.
func WriteMatch(dir string, result match.Result, manifest jsonval.Value, summary jsonval.Value) (Written, error) {
	logHash, err := artifact.WriteMatchLog(dir, result.Events)
	if err != nil {
		return Written{}, err
	}
	manifestHash, err := artifact.WriteMatchManifest(dir, manifest)
	if err != nil {
		return Written{}, err
	}
	full := mergeHashes(summary, logHash, manifestHash)
	if err := artifact.WriteMatchSummary(dir, full); err != nil {
		return Written{}, err
	}
	return Written{LogHash: logHash, ManifestHash: manifestHash, Summary: full}, nil
}

func mergeHashes(summary jsonval.Value, logHash, manifestHash string) jsonval.Value {
	m, ok := summary.(map[string]any)
	out := make(map[string]jsonval.Value, len(m)+1)
	if ok {
		for k, v := range m {
			out[k] = v
		}
	}
	out["hashes"] = map[string]jsonval.Value{
		"logHash":      logHash,
		"manifestHash": manifestHash,
	}
	return out
}

// MatchDir mirrors artifact.MatchDir for callers that only import bundle.
func MatchDir(tournamentDir, matchKey string) string {
	return filepath.Join(artifact.MatchDir(tournamentDir, matchKey))
}

// BroadcastFile is one entry in a BroadcastManifest.files[] array.
type BroadcastFile struct {
	Path        string
	Class       string // truth | telemetry | show
	ContentHash string
}

func (f BroadcastFile) toValue() jsonval.Value {
	v := map[string]jsonval.Value{
		"path":  f.Path,
		"class": f.Class,
	}
	if f.ContentHash != "" {
		v["contentHash"] = f.ContentHash
	}
	return v
}

// BuildTournamentBroadcastManifest enumerates every bundle-visible file in a
// freshly written tournament directory (spec.md §3 BroadcastManifest,
// §4.G), hashing every truth file so internal/verify's broadcast-manifest
// check (§4.I item 6) can recompute and compare. Only truth files are
// listed: the tournament manifest, its alias, standings.json, and each
// match's match.jsonl, match_manifest.json and match_summary.json.
func BuildTournamentBroadcastManifest(tournamentDir, modeProfileID string, matchKeys []string, truthBundleHash string) (jsonval.Value, error) {
	var files []BroadcastFile

	for _, top := range []string{artifact.TournamentManifestFile, artifact.TournamentAliasFile, artifact.StandingsFile} {
		hash, err := hashing.HashFile(filepath.Join(tournamentDir, top))
		if err != nil {
			return nil, err
		}
		files = append(files, BroadcastFile{Path: top, Class: "truth", ContentHash: hash})
	}

	for _, key := range matchKeys {
		dir := artifact.MatchDir(tournamentDir, key)
		for _, name := range []string{artifact.MatchLogFile, artifact.MatchManifestFile, artifact.MatchSummaryFile} {
			hash, err := hashing.HashFile(filepath.Join(dir, name))
			if err != nil {
				return nil, err
			}
			files = append(files, BroadcastFile{
				Path:        filepath.Join(artifact.MatchesDirName, key, name),
				Class:       "truth",
				ContentHash: hash,
			})
		}
	}

	vals := make([]jsonval.Value, len(files))
	for i, f := range files {
		vals[i] = f.toValue()
	}
	m := map[string]jsonval.Value{
		"bundleId":        artifact.NewBundleID(),
		"bundleType":      "tournament",
		"createdBy":       "matchctl",
		"files":           vals,
		"truthBundleHash": truthBundleHash,
	}
	if modeProfileID != "" {
		m["modeProfileId"] = modeProfileID
	}
	return m, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}
