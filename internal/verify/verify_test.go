package verify

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marcohefti/matchlab/internal/artifact"
	"github.com/marcohefti/matchlab/internal/bundle"
	"github.com/marcohefti/matchlab/internal/hashing"
	"github.com/marcohefti/matchlab/internal/jsonval"
	"github.com/marcohefti/matchlab/internal/match"
	"github.com/marcohefti/matchlab/internal/receipt"
	"github.com/marcohefti/matchlab/internal/registry"
	"github.com/marcohefti/matchlab/internal/scenario"
	"github.com/marcohefti/matchlab/internal/scenario/numberguess"
	"github.com/marcohefti/matchlab/internal/tournament"
)

func buildBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := tournament.Config{
		TournamentSeed: 7,
		ScenarioName:   "numberguess",
		ScenarioCtor:   scenario.Constructor(numberguess.New),
		AgentNames:     []string{"random", "baseline"},
		Agents:         registry.DefaultAgents(),
		Rounds:         1,
		MatchConfig:    match.Config{},
		Runner:         bundle.RunnerInfo{Name: "matchctl", Version: "test"},
		ScenarioInfo:   bundle.ScenarioInfo{ID: "numberguess", Version: "1", ContractVersion: 1},
		OutDir:         dir,
		CreatedAt:      time.Unix(0, 0),
	}
	_, err := tournament.RunRoundRobin(context.Background(), cfg)
	require.NoError(t, err)
	return dir
}

func signBundle(t *testing.T, dir string) {
	t.Helper()
	_, priv, err := receipt.GenerateKey()
	require.NoError(t, err)

	matchesDir := filepath.Join(dir, artifact.MatchesDirName)
	entries, err := os.ReadDir(matchesDir)
	require.NoError(t, err)

	var logHashes []string
	for _, e := range entries {
		sub := filepath.Join(matchesDir, e.Name())
		summaryVal, err := readJSON(filepath.Join(sub, artifact.MatchSummaryFile))
		require.NoError(t, err)
		summary := summaryVal.(map[string]any)
		hashes := summary["hashes"].(map[string]any)
		logHash := hashes["logHash"].(string)
		manifestHash := hashes["manifestHash"].(string)
		logHashes = append(logHashes, logHash)

		payload := receipt.MatchPayload(summary["matchId"].(string), logHash, manifestHash, "test", "operator")
		r, err := receipt.Sign(payload, priv, time.Time{})
		require.NoError(t, err)
		require.NoError(t, artifact.WriteReceipt(sub, r.ToValue()))
	}

	truthHash := hashing.TruthBundleHash(logHashes)
	payload := receipt.TournamentPayload("t-1", truthHash, len(entries), "operator")
	r, err := receipt.Sign(payload, priv, time.Time{})
	require.NoError(t, err)
	require.NoError(t, artifact.WriteTournamentReceipt(dir, r.ToValue()))
}

func TestValidateTournamentBundle_FreshBundlePasses(t *testing.T) {
	dir := buildBundle(t)
	report := ValidateTournamentBundle(dir, false)
	require.Equal(t, 0, report.ExitCode())
	for _, c := range report.Checks {
		require.Empty(t, c.Errors, "check %s: %v", c.Name, c.Errors)
	}
}

func TestValidateTournamentBundle_RequireSignaturesWithoutReceiptsErrors(t *testing.T) {
	dir := buildBundle(t)
	report := ValidateTournamentBundle(dir, true)
	require.Equal(t, 2, report.ExitCode())
}

func TestValidateTournamentBundle_SignedBundlePasses(t *testing.T) {
	dir := buildBundle(t)
	signBundle(t, dir)
	report := ValidateTournamentBundle(dir, true)
	require.Equal(t, 0, report.ExitCode())
}

func TestValidateTournamentBundle_TamperedLogFailsContentHash(t *testing.T) {
	dir := buildBundle(t)
	matchesDir := filepath.Join(dir, artifact.MatchesDirName)
	entries, err := os.ReadDir(matchesDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	logPath := filepath.Join(matchesDir, entries[0].Name(), artifact.MatchLogFile)
	b, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(logPath, append(b, '\n'), 0o644))

	report := ValidateTournamentBundle(dir, false)
	require.Equal(t, 1, report.ExitCode())
	found := false
	for _, c := range report.Checks {
		if c.Name == "content-hashes" && c.Status == StatusFail {
			found = true
		}
	}
	require.True(t, found, "expected content-hashes check to fail")
}

func TestValidateTournamentBundle_TamperedTruthBundleHashFails(t *testing.T) {
	dir := buildBundle(t)
	val, err := readJSON(filepath.Join(dir, artifact.TournamentManifestFile))
	require.NoError(t, err)
	manifest := val.(map[string]any)
	manifest["truthBundleHash"] = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

	canon, err := jsonval.Canonicalize(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.TournamentManifestFile), []byte(canon+"\n"), 0o644))

	report := ValidateTournamentBundle(dir, false)
	require.Equal(t, 1, report.ExitCode())
}

func TestValidateTournamentBundle_MissingMatchesDirIsStructuralError(t *testing.T) {
	dir := buildBundle(t)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, artifact.MatchesDirName)))
	report := ValidateTournamentBundle(dir, false)
	require.Equal(t, 2, report.ExitCode())
}

func TestValidateMatchDir_RecomputesFromSingleDirectory(t *testing.T) {
	dir := buildBundle(t)
	matchesDir := filepath.Join(dir, artifact.MatchesDirName)
	entries, err := os.ReadDir(matchesDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	result := ValidateMatchDir(filepath.Join(matchesDir, entries[0].Name()))
	require.Equal(t, StatusPass, result.Status)
}
