package rng

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFloat64_Deterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 10; i++ {
		require.Equal(t, a.Float64(), b.Float64())
	}
}

func TestFloat64_InRange(t *testing.T) {
	r := New(7)
	for i := 0; i < 1000; i++ {
		v := r.Float64()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestDeriveMatchSeed_Deterministic(t *testing.T) {
	a := DeriveMatchSeed(101, "RR:agent-a-vs-agent-b:round1")
	b := DeriveMatchSeed(101, "RR:agent-a-vs-agent-b:round1")
	require.Equal(t, a, b)
}

func TestDeriveMatchSeed_DiffersByKey(t *testing.T) {
	a := DeriveMatchSeed(101, "RR:a-vs-b:round1")
	b := DeriveMatchSeed(101, "RR:a-vs-b:round2")
	require.NotEqual(t, a, b)
}

func TestDeriveMatchTree_Deterministic(t *testing.T) {
	t1 := DeriveMatchTree(42, 2)
	t2 := DeriveMatchTree(42, 2)
	require.Equal(t, t1, t2)
	require.Len(t, t1.AgentSeeds, 2)
	require.NotEqual(t, t1.AgentSeeds[0], t1.AgentSeeds[1])
}

func TestGenerateMatchID_Stable(t *testing.T) {
	id := GenerateMatchID(New(1))
	require.Regexp(t, `^m-[0-9a-z]+-[0-9a-z]+-[0-9a-z]+$`, id)
}
