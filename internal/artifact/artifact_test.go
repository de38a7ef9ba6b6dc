package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marcohefti/matchlab/internal/event"
	"github.com/marcohefti/matchlab/internal/hashing"
)

func sampleEvents() []event.Event {
	return []event.Event{
		event.NewMatchStarted(0, "m-1", 7, []string{"a"}, "numberguess", 10, event.Provenance{}),
		event.NewTurnStarted(1, "m-1", 1),
		event.NewMatchEnded(2, "m-1", "completed", map[string]float64{"a": 1}, 1, nil),
	}
}

func TestWriteMatchLog_DeterministicHash(t *testing.T) {
	dir1, dir2 := t.TempDir(), t.TempDir()

	h1, err := WriteMatchLog(dir1, sampleEvents())
	require.NoError(t, err)
	h2, err := WriteMatchLog(dir2, sampleEvents())
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	want, err := hashing.HashFile(filepath.Join(dir1, MatchLogFile))
	require.NoError(t, err)
	require.Equal(t, want, h1)
}

func TestWriteMatchLog_OneObjectPerLineTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteMatchLog(dir, sampleEvents())
	require.NoError(t, err)

	b, err := readFile(filepath.Join(dir, MatchLogFile))
	require.NoError(t, err)
	require.True(t, len(b) > 0)
	require.Equal(t, byte('\n'), b[len(b)-1])
	require.NotEqual(t, byte('\n'), b[len(b)-2])
}

func TestWriteMatchManifest_HashExcludesMutableFields(t *testing.T) {
	dir := t.TempDir()
	base := map[string]any{
		"matchId":   "m-1",
		"createdAt": "2020-01-01T00:00:00Z",
	}
	h1, err := WriteMatchManifest(dir, base)
	require.NoError(t, err)

	dir2 := t.TempDir()
	changed := map[string]any{
		"matchId":   "m-1",
		"createdAt": "2099-12-31T23:59:59Z",
	}
	h2, err := WriteMatchManifest(dir2, changed)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestWriteTournamentManifest_AliasesStayByteIdentical(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteTournamentManifest(dir, map[string]any{"tournamentSeed": 1.0}))

	a, err := readFile(filepath.Join(dir, TournamentManifestFile))
	require.NoError(t, err)
	b, err := readFile(filepath.Join(dir, TournamentAliasFile))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestWithLock_SerializesAccess(t *testing.T) {
	dir := t.TempDir()
	var order []int
	err := WithLock(dir, 0, func() error {
		order = append(order, 1)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, WithLock(dir, 0, func() error {
		order = append(order, 2)
		return nil
	}))
	require.Equal(t, []int{1, 2}, order)
}

func TestNewBundleID_Unique(t *testing.T) {
	a := NewBundleID()
	b := NewBundleID()
	require.NotEqual(t, a, b)
	require.NotEmpty(t, a)
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
