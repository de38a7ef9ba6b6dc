// Package artifact writes the on-disk truth files a match or tournament
// produces, grounded on the teacher's internal/store primitives: JSON files
// go through store.WriteJSONAtomic/WriteFileAtomic, so a crash mid-write
// never leaves a half-written JSON file; match.jsonl is appended event by
// event through store.AppendJSONL, which is not atomic, so a crash can
// leave it with fewer lines or a partial last line. Callers (internal/match driver glue and internal/tournament) build
// the jsonval.Value bodies; this package only owns file names, write
// ordering, and the hashes derived from bytes actually committed to disk.
package artifact

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/marcohefti/matchlab/internal/event"
	"github.com/marcohefti/matchlab/internal/hashing"
	"github.com/marcohefti/matchlab/internal/jsonval"
	"github.com/marcohefti/matchlab/internal/store"
)

const (
	MatchLogFile           = "match.jsonl"
	MatchManifestFile      = "match_manifest.json"
	MatchSummaryFile       = "match_summary.json"
	MatchStatusFile        = "match_status.json"
	MomentsFile            = "moments.json"
	HighlightsFile         = "highlights.json"
	BroadcastManifestFile  = "broadcast_manifest.json"
	VerificationResultFile = "verification_result.json"
	ReceiptFile            = "receipt.json"

	TournamentManifestFile = "tournament_manifest.json"
	TournamentAliasFile    = "tournament.json"
	StandingsFile          = "standings.json"
	TournamentReceiptFile  = "tournament_receipt.json"
	MatchesDirName         = "matches"
)

// MatchDir returns the per-match subdirectory of a tournament bundle.
func MatchDir(tournamentDir, matchKey string) string {
	return filepath.Join(tournamentDir, MatchesDirName, matchKey)
}

// WriteMatchLog writes dir/match.jsonl as one canonical JSON object per
// line, appending event by event via store.AppendJSONL, and returns the
// hash of the bytes actually written. logHash is computed from disk, not
// from the in-memory events, so that downstream verification catches
// on-disk corruption, not just a logic bug in the writer. Any stale file
// at path is removed first so a retried write never appends onto a prior
// attempt's bytes.
func WriteMatchLog(dir string, events []event.Event) (string, error) {
	path := filepath.Join(dir, MatchLogFile)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", err
	}
	for _, e := range events {
		if err := store.AppendJSONL(path, e.ToValue()); err != nil {
			return "", err
		}
	}
	return hashing.HashFile(path)
}

// WriteMatchManifest writes dir/match_manifest.json and returns its
// manifest-core hash (see internal/hashing for the excluded-key set).
func WriteMatchManifest(dir string, manifest jsonval.Value) (string, error) {
	if err := store.WriteJSONAtomic(filepath.Join(dir, MatchManifestFile), manifest); err != nil {
		return "", err
	}
	return hashing.HashManifestCore(manifest)
}

// WriteMatchSummary writes dir/match_summary.json. Callers must merge
// hashes.logHash/manifestHash into summary before calling this, and must
// call WriteMatchLog/WriteMatchManifest first — match_summary.json may
// reference hashes only of files that already exist on disk.
func WriteMatchSummary(dir string, summary jsonval.Value) error {
	return store.WriteJSONAtomic(filepath.Join(dir, MatchSummaryFile), summary)
}

// WriteMatchStatus atomically overwrites dir/match_status.json. A reader
// polling match_status.json while the match runs must never observe a
// partial file; store.WriteFileAtomic's temp-then-rename guarantees that.
func WriteMatchStatus(dir string, status jsonval.Value) error {
	return store.WriteJSONAtomic(filepath.Join(dir, MatchStatusFile), status)
}

func WriteMoments(dir string, moments jsonval.Value) error {
	return store.WriteJSONAtomic(filepath.Join(dir, MomentsFile), moments)
}

func WriteHighlights(dir string, highlights jsonval.Value) error {
	return store.WriteJSONAtomic(filepath.Join(dir, HighlightsFile), highlights)
}

func WriteBroadcastManifest(dir string, manifest jsonval.Value) error {
	return store.WriteJSONAtomic(filepath.Join(dir, BroadcastManifestFile), manifest)
}

func WriteVerificationResult(dir string, result jsonval.Value) error {
	return store.WriteJSONAtomic(filepath.Join(dir, VerificationResultFile), result)
}

func WriteReceipt(dir string, receipt jsonval.Value) error {
	return store.WriteJSONAtomic(filepath.Join(dir, ReceiptFile), receipt)
}

func WriteTournamentReceipt(dir string, receipt jsonval.Value) error {
	return store.WriteJSONAtomic(filepath.Join(dir, TournamentReceiptFile), receipt)
}

// WriteTournamentManifest writes tournament_manifest.json and its
// byte-identical alias tournament.json from the same canonicalized bytes,
// so the two files can never drift.
func WriteTournamentManifest(dir string, manifest jsonval.Value) error {
	canon, err := jsonval.Canonicalize(manifest)
	if err != nil {
		return err
	}
	b := []byte(canon + "\n")
	if err := store.WriteFileAtomic(filepath.Join(dir, TournamentManifestFile), b); err != nil {
		return err
	}
	return store.WriteFileAtomic(filepath.Join(dir, TournamentAliasFile), b)
}

func WriteStandings(dir string, standings jsonval.Value) error {
	return store.WriteJSONAtomic(filepath.Join(dir, StandingsFile), standings)
}

// WithLock serializes writers to dir: the match/tournament directory is
// owned by exactly one writer at a time (§5's shared-resource policy).
func WithLock(dir string, wait time.Duration, fn func() error) error {
	return store.WithDirLock(filepath.Join(dir, ".lock"), wait, fn)
}

// NewBundleID returns a fresh identifier for BroadcastManifest.bundleId.
func NewBundleID() string {
	return uuid.NewString()
}
