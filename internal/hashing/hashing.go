// Package hashing implements the content-hash primitives the artifact
// writer and bundle verifier both depend on: file hashes, the canonical
// manifest-core hash, and the tournament truth-bundle hash.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sort"
	"strings"

	"github.com/marcohefti/matchlab/internal/jsonval"
)

// manifestExcludedKeys is the pinned exclusion set for HashManifestCore:
// every mutable timestamp and every field that is itself a hash of the
// artifact being described. This is the single place that set is defined;
// both the writer and every verifier call ManifestCore so they can never
// drift (see the Open Question in DESIGN.md).
var manifestExcludedKeys = map[string]bool{
	"createdAt":       true,
	"receipt":         true,
	"logHash":         true,
	"manifestHash":    true,
	"truthBundleHash": true,
}

// SHA256Hex returns the lowercase hex SHA-256 digest of b, no prefix.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashFile returns "sha256:"+hex of the file's bytes.
func HashFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "sha256:" + SHA256Hex(b), nil
}

// ManifestCore removes the excluded-key set from manifest (only at the top
// level, not recursively; nested hash-like fields such as
// agents[].contentHash are part of the manifest's meaning, not derived from
// hashing the manifest itself, so they are kept).
func ManifestCore(manifest jsonval.Value) jsonval.Value {
	m, ok := manifest.(map[string]any)
	if !ok {
		return manifest
	}
	out := make(map[string]jsonval.Value, len(m))
	for k, v := range m {
		if manifestExcludedKeys[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// HashManifestCore canonicalizes ManifestCore(manifest) and returns
// "sha256:"+hex of the resulting bytes.
func HashManifestCore(manifest jsonval.Value) (string, error) {
	core := ManifestCore(manifest)
	canon, err := jsonval.Canonicalize(core)
	if err != nil {
		return "", err
	}
	return "sha256:" + SHA256Hex([]byte(canon)), nil
}

// TruthBundleHash sorts logHashes lexicographically on their full string
// form (including the "sha256:" prefix), concatenates them, and hashes once
// more: a one-level Merkle root over every match's log hash.
func TruthBundleHash(logHashes []string) string {
	sorted := append([]string(nil), logHashes...)
	sort.Strings(sorted)
	return "sha256:" + SHA256Hex([]byte(strings.Join(sorted, "")))
}
