package tournament

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marcohefti/matchlab/internal/bundle"
	"github.com/marcohefti/matchlab/internal/match"
	"github.com/marcohefti/matchlab/internal/registry"
	"github.com/marcohefti/matchlab/internal/scenario"
	"github.com/marcohefti/matchlab/internal/scenario/numberguess"
)

func testConfig(t *testing.T, outDir string) Config {
	t.Helper()
	return Config{
		TournamentSeed: 101,
		ScenarioName:   "numberguess",
		ScenarioCtor:   scenario.Constructor(numberguess.New),
		AgentNames:     []string{"random", "baseline"},
		Agents:         registry.DefaultAgents(),
		Rounds:         1,
		MatchConfig:    match.Config{},
		Runner:         bundle.RunnerInfo{Name: "matchctl", Version: "test"},
		ScenarioInfo:   bundle.ScenarioInfo{ID: "numberguess", Version: "1", ContractVersion: 1},
		OutDir:         outDir,
		CreatedAt:      time.Unix(0, 0),
	}
}

func TestRunRoundRobin_Deterministic(t *testing.T) {
	dir1, dir2 := t.TempDir(), t.TempDir()
	r1, err := RunRoundRobin(context.Background(), testConfig(t, dir1))
	require.NoError(t, err)
	r2, err := RunRoundRobin(context.Background(), testConfig(t, dir2))
	require.NoError(t, err)

	require.Equal(t, r1.TruthBundleHash, r2.TruthBundleHash)
	require.Equal(t, len(r1.Matches), len(r2.Matches))
	for i := range r1.Matches {
		require.Equal(t, r1.Matches[i].LogHash, r2.Matches[i].LogHash)
	}
}

func TestRunRoundRobin_PlaysEveryPairOncePerRound(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.AgentNames = []string{"random", "baseline", "random"}
	cfg.Rounds = 2
	res, err := RunRoundRobin(context.Background(), cfg)
	require.NoError(t, err)
	// 3 agents -> 3 pairs per round, 2 rounds -> 6 matches.
	require.Len(t, res.Matches, 6)
	require.ElementsMatch(t, []string{"random-1", "baseline-2", "random-3"}, res.CompetitorIDs)
}

func TestStandings_SortedDeterministically(t *testing.T) {
	dir := t.TempDir()
	res, err := RunRoundRobin(context.Background(), testConfig(t, dir))
	require.NoError(t, err)
	require.Len(t, res.Standings, 2)
	for i := 1; i < len(res.Standings); i++ {
		prev, cur := res.Standings[i-1], res.Standings[i]
		ok := prev.Points > cur.Points ||
			(prev.Points == cur.Points && prev.ScoreDiff > cur.ScoreDiff) ||
			(prev.Points == cur.Points && prev.ScoreDiff == cur.ScoreDiff && prev.AgentID < cur.AgentID)
		require.True(t, ok, "standings not sorted: %+v then %+v", prev, cur)
	}
}
