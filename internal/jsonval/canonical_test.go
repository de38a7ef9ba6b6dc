package jsonval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalize_SortsKeys(t *testing.T) {
	a, err := Canonicalize(map[string]any{"b": 1.0, "a": 2.0})
	require.NoError(t, err)
	c, err := Canonicalize(map[string]any{"a": 2.0, "b": 1.0})
	require.NoError(t, err)
	require.Equal(t, a, c)
	require.Equal(t, `{"a":2,"b":1}`, a)
}

func TestCanonicalize_RejectsNonFinite(t *testing.T) {
	_, err := Canonicalize(map[string]any{"x": math.NaN()})
	require.Error(t, err)
}

func TestCanonicalize_RejectsCycle(t *testing.T) {
	m := map[string]any{}
	m["self"] = m
	_, err := Canonicalize(m)
	require.Error(t, err)
}

func TestCanonicalizeRoundTrip(t *testing.T) {
	v := map[string]any{
		"seq":     0.0,
		"matchId": "m-1",
		"nested":  map[string]any{"z": 1.0, "a": []any{1.0, 2.0, 3.0}},
	}
	canon, err := Canonicalize(v)
	require.NoError(t, err)
	parsed, err := Parse([]byte(canon))
	require.NoError(t, err)
	canon2, err := Canonicalize(parsed)
	require.NoError(t, err)
	require.Equal(t, canon, canon2)
}

func TestCanonicalizeJSONL(t *testing.T) {
	out, err := CanonicalizeJSONL([]Value{
		map[string]any{"a": 1.0},
		map[string]any{"b": 2.0},
	})
	require.NoError(t, err)
	require.Equal(t, "{\"a\":1}\n{\"b\":2}\n", out)
}
