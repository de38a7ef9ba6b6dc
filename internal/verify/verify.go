// Package verify implements the bundle validator (spec.md §4.I): seven
// independent checks over a tournament directory on disk, each producing its
// own CheckResult, rolled into one exit code. Every check recomputes from
// raw bytes rather than trusting a sibling package's in-memory values —
// internal/tournament and internal/bundle build the truth files, this
// package only ever reads them back, the same separation
// lattice-substrate-json-canon's ValidateEvidenceBundle draws between a
// writer and its validator.
package verify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/marcohefti/matchlab/internal/artifact"
	"github.com/marcohefti/matchlab/internal/hashing"
	"github.com/marcohefti/matchlab/internal/jsonval"
	"github.com/marcohefti/matchlab/internal/receipt"
	"github.com/marcohefti/matchlab/internal/store"
)

// Status is one check's verdict.
type Status string

const (
	StatusPass  Status = "pass"
	StatusWarn  Status = "warn"
	StatusFail  Status = "fail"
	StatusError Status = "error"
)

var statusRank = map[Status]int{StatusPass: 0, StatusWarn: 1, StatusFail: 2, StatusError: 3}

// CheckResult is one named check's outcome.
type CheckResult struct {
	Name     string
	Status   Status
	Errors   []string
	Warnings []string
}

func newCheck(name string) CheckResult {
	return CheckResult{Name: name, Status: StatusPass}
}

// addError records a mismatch: the check ran to completion but found bad
// data. Never downgrades an already-Error status to Fail.
func (r *CheckResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	if r.Status != StatusError {
		r.Status = StatusFail
	}
}

// addStructuralError records that the check itself could not run (a file is
// missing, unreadable, or not the expected shape).
func (r *CheckResult) addStructuralError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Status = StatusError
}

func (r *CheckResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
	if r.Status == StatusPass {
		r.Status = StatusWarn
	}
}

// Report is the full outcome of validating one tournament bundle.
type Report struct {
	Checks []CheckResult
}

// Status is the worst status across every check.
func (r Report) Status() Status {
	worst := StatusPass
	for _, c := range r.Checks {
		if statusRank[c.Status] > statusRank[worst] {
			worst = c.Status
		}
	}
	return worst
}

// ExitCode follows spec.md §4.I: 0 pass, 1 fail (mismatch), 2 error
// (structural); warnings never affect the exit code.
func (r Report) ExitCode() int {
	switch r.Status() {
	case StatusError:
		return 2
	case StatusFail:
		return 1
	default:
		return 0
	}
}

func readJSON(path string) (jsonval.Value, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jsonval.Parse(b)
}

func asObject(v jsonval.Value) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func asArray(m map[string]any, key string) []any {
	a, _ := m[key].([]any)
	return a
}

// matchRef is one manifest-referenced match directory, resolved once by
// checkCrossReferences and reused by every later check so they never
// re-parse the same files.
type matchRef struct {
	MatchKey string
	Dir      string
	Summary  map[string]any
	Manifest map[string]any
}

// ValidateTournamentBundle runs all seven checks against dir, a tournament
// bundle root. requireSignatures promotes an absent receipt from a warning
// to a structural error (exit 2) in check 7.
func ValidateTournamentBundle(dir string, requireSignatures bool) Report {
	var report Report

	structureResult, matchKeys := checkStructure(dir)
	report.Checks = append(report.Checks, structureResult)

	manifestVal, err := readJSON(filepath.Join(dir, artifact.TournamentManifestFile))
	manifest, ok := asObject(manifestVal)
	if err != nil || !ok {
		skip := func(name string) CheckResult {
			c := newCheck(name)
			c.addStructuralError("skipped: tournament_manifest.json could not be read: %v", err)
			return c
		}
		report.Checks = append(report.Checks,
			skip("cross-references"), skip("content-hashes"), skip("tournament-hash"),
			skip("standings"), checkBroadcastManifest(dir), skip("signatures"))
		return report
	}

	crossResult, refs := checkCrossReferences(dir, matchKeys, manifest)
	report.Checks = append(report.Checks, crossResult)

	contentResult, logHashes := checkContentHashes(refs)
	report.Checks = append(report.Checks, contentResult)

	report.Checks = append(report.Checks, checkTournamentHash(manifest, logHashes))
	report.Checks = append(report.Checks, checkStandings(dir, refs))
	report.Checks = append(report.Checks, checkBroadcastManifest(dir))
	report.Checks = append(report.Checks, checkSignatures(dir, refs, logHashes, requireSignatures))

	return report
}

// ValidateMatchDir runs the content-hash check in isolation against a
// single match directory, for the verify-match command, which has no
// tournament manifest to cross-reference against.
func ValidateMatchDir(dir string) CheckResult {
	summaryVal, err := readJSON(filepath.Join(dir, artifact.MatchSummaryFile))
	summary, ok := asObject(summaryVal)
	if err != nil || !ok {
		c := newCheck("content-hashes")
		c.addStructuralError("cannot read match_summary.json: %v", err)
		return c
	}
	ref := matchRef{MatchKey: asString(summary, "matchKey"), Dir: dir, Summary: summary}
	result, _ := checkContentHashes([]matchRef{ref})
	return result
}

// requiredMatchFiles is the per-match file set check 1 requires present.
var requiredMatchFiles = []string{artifact.MatchLogFile, artifact.MatchManifestFile, artifact.MatchSummaryFile}

// checkStructure is check 1. It returns the match-directory names found on
// disk regardless of what the manifest later claims, so cross-reference
// checking can diff the two sets.
func checkStructure(dir string) (CheckResult, []string) {
	r := newCheck("structure")

	for _, f := range []string{artifact.TournamentManifestFile, artifact.StandingsFile} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			r.addStructuralError("missing root file %s", f)
		}
	}

	matchesDir := filepath.Join(dir, artifact.MatchesDirName)
	childCount, err := store.CountChildDirs(matchesDir)
	if err != nil {
		r.addStructuralError("missing matches directory: %v", err)
		return r, nil
	}
	if childCount == 0 {
		r.addStructuralError("matches directory has no subdirectories")
		return r, nil
	}

	entries, err := os.ReadDir(matchesDir)
	if err != nil {
		r.addStructuralError("missing matches directory: %v", err)
		return r, nil
	}

	var matchKeys []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		matchKeys = append(matchKeys, e.Name())
		sub := filepath.Join(matchesDir, e.Name())
		for _, f := range requiredMatchFiles {
			if _, err := os.Stat(filepath.Join(sub, f)); err != nil {
				r.addStructuralError("match %s: missing %s", e.Name(), f)
			}
		}
		logPath := filepath.Join(sub, artifact.MatchLogFile)
		if nonEmpty, err := store.JSONLHasNonEmptyLine(logPath); err == nil && !nonEmpty {
			r.addStructuralError("match %s: %s has no non-empty lines", e.Name(), artifact.MatchLogFile)
		}
	}
	sort.Strings(matchKeys)
	return r, matchKeys
}

// checkCrossReferences is check 2.
func checkCrossReferences(dir string, matchKeysOnDisk []string, manifest map[string]any) (CheckResult, []matchRef) {
	r := newCheck("cross-references")

	onDisk := make(map[string]bool, len(matchKeysOnDisk))
	for _, k := range matchKeysOnDisk {
		onDisk[k] = true
	}
	referenced := map[string]bool{}

	var refs []matchRef
	for _, raw := range asArray(manifest, "matches") {
		entry, ok := asObject(raw)
		if !ok {
			r.addStructuralError("tournament manifest matches[] entry is not an object")
			continue
		}
		matchKey := asString(entry, "matchKey")
		referenced[matchKey] = true
		if !onDisk[matchKey] {
			r.addError("manifest references matchKey %q with no matches/ subdirectory", matchKey)
			continue
		}

		subDir := filepath.Join(dir, artifact.MatchesDirName, matchKey)
		summaryVal, err := readJSON(filepath.Join(subDir, artifact.MatchSummaryFile))
		summary, ok := asObject(summaryVal)
		if err != nil || !ok {
			r.addStructuralError("%s: cannot read match_summary.json: %v", matchKey, err)
			continue
		}
		if asString(summary, "matchKey") != matchKey {
			r.addError("%s: match_summary.json matchKey %q does not match directory name", matchKey, asString(summary, "matchKey"))
		}

		manifestVal, err := readJSON(filepath.Join(subDir, artifact.MatchManifestFile))
		matchManifest, ok := asObject(manifestVal)
		if err != nil || !ok {
			r.addStructuralError("%s: cannot read match_manifest.json: %v", matchKey, err)
			continue
		}
		if asString(summary, "matchId") != asString(matchManifest, "matchId") {
			r.addError("%s: matchId mismatch between match_summary.json and match_manifest.json", matchKey)
		}

		refs = append(refs, matchRef{MatchKey: matchKey, Dir: subDir, Summary: summary, Manifest: matchManifest})
	}

	for _, k := range matchKeysOnDisk {
		if !referenced[k] {
			r.addWarning("matches/%s is not referenced by tournament_manifest.json", k)
		}
	}

	return r, refs
}

// checkContentHashes is check 3: recompute logHash/manifestHash from the
// bytes on disk and compare to what match_summary.json recorded. It returns
// the recomputed logHash per match for checks 4 and 7 to reuse.
func checkContentHashes(refs []matchRef) (CheckResult, map[string]string) {
	r := newCheck("content-hashes")
	logHashes := make(map[string]string, len(refs))

	for _, ref := range refs {
		logHash, err := hashing.HashFile(filepath.Join(ref.Dir, artifact.MatchLogFile))
		if err != nil {
			r.addStructuralError("%s: cannot hash match.jsonl: %v", ref.MatchKey, err)
			continue
		}
		manifestVal, err := readJSON(filepath.Join(ref.Dir, artifact.MatchManifestFile))
		if err != nil {
			r.addStructuralError("%s: cannot read match_manifest.json: %v", ref.MatchKey, err)
			continue
		}
		manifestHash, err := hashing.HashManifestCore(manifestVal)
		if err != nil {
			r.addStructuralError("%s: cannot hash match_manifest.json: %v", ref.MatchKey, err)
			continue
		}

		hashes, _ := asObject(ref.Summary["hashes"])
		if asString(hashes, "logHash") != logHash {
			r.addError("%s: logHash mismatch (recomputed %s, recorded %s)", ref.MatchKey, logHash, asString(hashes, "logHash"))
		}
		if asString(hashes, "manifestHash") != manifestHash {
			r.addError("%s: manifestHash mismatch (recomputed %s, recorded %s)", ref.MatchKey, manifestHash, asString(hashes, "manifestHash"))
		}
		logHashes[ref.MatchKey] = logHash
	}

	return r, logHashes
}

// checkTournamentHash is check 4.
func checkTournamentHash(manifest map[string]any, logHashes map[string]string) CheckResult {
	r := newCheck("tournament-hash")
	recomputed := hashing.TruthBundleHash(valuesOf(logHashes))
	recorded := asString(manifest, "truthBundleHash")
	if recorded == "" {
		r.addStructuralError("tournament_manifest.json missing truthBundleHash")
		return r
	}
	if recorded != recomputed {
		r.addError("truthBundleHash mismatch (recomputed %s, recorded %s)", recomputed, recorded)
	}
	return r
}

func valuesOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// standingsRow mirrors internal/tournament.StandingsRow but is computed
// independently here rather than imported, so the validator can never be
// fooled by a bug shared with the writer it is checking.
type standingsRow struct {
	AgentID   string
	Points    int
	Wins      int
	Draws     int
	Losses    int
	ScoreDiff float64
}

func recomputeStandings(refs []matchRef) []standingsRow {
	rowsByID := map[string]*standingsRow{}
	var order []string
	ensure := func(id string) *standingsRow {
		if row, ok := rowsByID[id]; ok {
			return row
		}
		row := &standingsRow{AgentID: id}
		rowsByID[id] = row
		order = append(order, id)
		return row
	}

	for _, ref := range refs {
		idsRaw := asArray(ref.Summary, "agentIds")
		if len(idsRaw) != 2 {
			continue
		}
		a, _ := idsRaw[0].(string)
		b, _ := idsRaw[1].(string)
		scores, _ := asObject(ref.Summary["scores"])
		sa, _ := scores[a].(float64)
		sb, _ := scores[b].(float64)
		ra, rb := ensure(a), ensure(b)
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

	out := make([]standingsRow, 0, len(order))
	for _, id := range order {
		out = append(out, *rowsByID[id])
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

// checkStandings is check 5.
func checkStandings(dir string, refs []matchRef) CheckResult {
	r := newCheck("standings")

	standingsVal, err := readJSON(filepath.Join(dir, artifact.StandingsFile))
	standingsObj, ok := asObject(standingsVal)
	if err != nil || !ok {
		r.addStructuralError("cannot read standings.json: %v", err)
		return r
	}

	recorded := asArray(standingsObj, "rows")
	recomputed := recomputeStandings(refs)
	if len(recorded) != len(recomputed) {
		r.addError("standings row count mismatch: recorded %d, recomputed %d", len(recorded), len(recomputed))
	}

	for i, row := range recomputed {
		if i >= len(recorded) {
			break
		}
		rec, ok := asObject(recorded[i])
		if !ok {
			r.addError("standings row %d is not an object", i)
			continue
		}
		if asString(rec, "agentId") != row.AgentID {
			r.addError("standings row %d: agentId mismatch (recomputed %s, recorded %s)", i, row.AgentID, asString(rec, "agentId"))
			continue
		}
		pts, _ := rec["points"].(float64)
		if int(pts) != row.Points {
			r.addError("standings row %d (%s): points mismatch (recomputed %d, recorded %d)", i, row.AgentID, row.Points, int(pts))
		}
		diff, _ := rec["scoreDiff"].(float64)
		if diff != row.ScoreDiff {
			r.addError("standings row %d (%s): scoreDiff mismatch (recomputed %v, recorded %v)", i, row.AgentID, row.ScoreDiff, diff)
		}
	}

	return r
}

// expectedTruthFiles is the closed set check 6 accepts as legitimately
// classified "truth" (spec.md §4.I item 6).
var expectedTruthFiles = map[string]bool{
	artifact.TournamentManifestFile: true,
	artifact.TournamentAliasFile:    true,
	artifact.StandingsFile:          true,
	artifact.MatchLogFile:           true,
	artifact.MatchManifestFile:      true,
	artifact.MatchSummaryFile:       true,
}

// checkBroadcastManifest is check 6. broadcast_manifest.json is optional
// (spec.md §4.G); its absence is not even a warning.
func checkBroadcastManifest(dir string) CheckResult {
	r := newCheck("broadcast-manifest")

	path := filepath.Join(dir, artifact.BroadcastManifestFile)
	if _, err := os.Stat(path); err != nil {
		return r
	}

	val, err := readJSON(path)
	obj, ok := asObject(val)
	if err != nil || !ok {
		r.addStructuralError("cannot read broadcast_manifest.json: %v", err)
		return r
	}

	for _, raw := range asArray(obj, "files") {
		entry, ok := asObject(raw)
		if !ok {
			r.addWarning("broadcast manifest files[] entry is not an object")
			continue
		}
		relPath := asString(entry, "path")
		if relPath == "" {
			r.addWarning("broadcast manifest entry missing path")
			continue
		}
		full := filepath.Join(dir, relPath)
		info, err := os.Stat(full)
		if err != nil {
			r.addError("broadcast manifest lists %s but it does not exist", relPath)
			continue
		}

		class := asString(entry, "class")
		base := filepath.Base(relPath)
		if class == "truth" && !expectedTruthFiles[base] {
			r.addWarning("broadcast manifest classifies %s as truth, which is not a recognized truth file", relPath)
		}

		if wantHash := asString(entry, "contentHash"); wantHash != "" && !info.IsDir() {
			got, err := hashing.HashFile(full)
			if err != nil {
				r.addError("cannot hash %s: %v", relPath, err)
				continue
			}
			if got != wantHash {
				r.addError("contentHash mismatch for %s (recomputed %s, recorded %s)", relPath, got, wantHash)
			}
		}
	}

	return r
}

// checkSignatures is check 7.
func checkSignatures(dir string, refs []matchRef, logHashes map[string]string, requireSignatures bool) CheckResult {
	r := newCheck("signatures")

	for _, ref := range refs {
		val, err := readJSON(filepath.Join(ref.Dir, artifact.ReceiptFile))
		if err != nil {
			if requireSignatures {
				r.addStructuralError("%s: missing receipt.json", ref.MatchKey)
			} else {
				r.addWarning("%s: no receipt.json (signature absent)", ref.MatchKey)
			}
			continue
		}
		rec, parseErr := receipt.FromValue(val)
		if parseErr != nil {
			r.addError("%s: malformed receipt.json: %v", ref.MatchKey, parseErr)
			continue
		}
		ok, verifyErr := receipt.Verify(rec)
		if verifyErr != nil || !ok {
			r.addError("%s: receipt signature invalid: %v", ref.MatchKey, verifyErr)
			continue
		}
		payload, _ := asObject(rec.Payload)
		hashes, _ := asObject(ref.Summary["hashes"])
		if asString(payload, "logHash") != asString(hashes, "logHash") {
			r.addError("%s: receipt payload logHash does not match match_summary.json", ref.MatchKey)
		}
		if asString(payload, "manifestHash") != asString(hashes, "manifestHash") {
			r.addError("%s: receipt payload manifestHash does not match match_summary.json", ref.MatchKey)
		}
	}

	val, err := readJSON(filepath.Join(dir, artifact.TournamentReceiptFile))
	if err != nil {
		if requireSignatures {
			r.addStructuralError("missing tournament_receipt.json")
		} else {
			r.addWarning("no tournament_receipt.json (signature absent)")
		}
		return r
	}
	rec, parseErr := receipt.FromValue(val)
	if parseErr != nil {
		r.addError("malformed tournament_receipt.json: %v", parseErr)
		return r
	}
	ok, verifyErr := receipt.Verify(rec)
	if verifyErr != nil || !ok {
		r.addError("tournament receipt signature invalid: %v", verifyErr)
		return r
	}
	payload, _ := asObject(rec.Payload)
	if asString(payload, "truthBundleHash") != hashing.TruthBundleHash(valuesOf(logHashes)) {
		r.addError("tournament receipt payload truthBundleHash does not match recomputed value")
	}
	matchCount, _ := payload["matchCount"].(float64)
	if int(matchCount) != len(refs) {
		r.addError("tournament receipt payload matchCount (%d) does not match match count (%d)", int(matchCount), len(refs))
	}
	return r
}
