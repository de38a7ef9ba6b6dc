package hashing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0o644))
	h1, err := HashFile(path)
	require.NoError(t, err)
	require.Regexp(t, `^sha256:[0-9a-f]{64}$`, h1)

	require.NoError(t, os.WriteFile(path, []byte("hello!\n"), 0o644))
	h2, err := HashFile(path)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}

func TestHashManifestCore_ExcludesMutableFields(t *testing.T) {
	base := map[string]any{"matchId": "m-1", "createdAt": "2026-01-01T00:00:00Z"}
	other := map[string]any{"matchId": "m-1", "createdAt": "2099-01-01T00:00:00Z"}
	h1, err := HashManifestCore(base)
	require.NoError(t, err)
	h2, err := HashManifestCore(other)
	require.NoError(t, err)
	require.Equal(t, h1, h2, "createdAt must not affect the manifest core hash")
}

func TestHashManifestCore_DetectsRealChange(t *testing.T) {
	base := map[string]any{"matchId": "m-1"}
	tampered := map[string]any{"matchId": "m-2"}
	h1, _ := HashManifestCore(base)
	h2, _ := HashManifestCore(tampered)
	require.NotEqual(t, h1, h2)
}

func TestTruthBundleHash_OrderIndependent(t *testing.T) {
	a := TruthBundleHash([]string{"sha256:bb", "sha256:aa"})
	b := TruthBundleHash([]string{"sha256:aa", "sha256:bb"})
	require.Equal(t, a, b)
}

func TestTruthBundleHash_DetectsTamper(t *testing.T) {
	good := TruthBundleHash([]string{"sha256:" + SHA256Hex([]byte("m1")), "sha256:" + SHA256Hex([]byte("m2"))})
	tampered := TruthBundleHash([]string{"sha256:" + SHA256Hex([]byte("m1-tampered")), "sha256:" + SHA256Hex([]byte("m2"))})
	require.NotEqual(t, good, tampered)
}
