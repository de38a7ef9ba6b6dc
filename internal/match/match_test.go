package match

import (
	"context"
	"testing"
	"time"

	"github.com/marcohefti/matchlab/internal/agent/baseline"
	"github.com/marcohefti/matchlab/internal/agent/random"
	"github.com/marcohefti/matchlab/internal/event"
	"github.com/marcohefti/matchlab/internal/scenario"
	"github.com/marcohefti/matchlab/internal/scenario/heist"
	"github.com/marcohefti/matchlab/internal/scenario/numberguess"
	"github.com/stretchr/testify/require"
)

func TestRun_Numberguess_BaselineSolves(t *testing.T) {
	bAgent, err := baseline.New(0)
	require.NoError(t, err)

	res, err := Run(context.Background(), 12345, "numberguess",
		scenario.Constructor(numberguess.New),
		[]AgentSpec{{AgentID: "baseline-1", Agent: bAgent}},
		Config{TurnTimeout: 2 * time.Second},
	)
	require.NoError(t, err)
	require.NotEmpty(t, res.Events)
	require.Equal(t, event.KindMatchStarted, res.Events[0].Type)
	require.Equal(t, event.KindMatchEnded, res.Events[len(res.Events)-1].Type)
	errs := event.CheckInvariants(res.Events)
	require.Empty(t, errs)
}

func TestRun_Numberguess_DeterministicAcrossReruns(t *testing.T) {
	run := func() []event.Event {
		a, err := random.New(7)
		require.NoError(t, err)
		res, err := Run(context.Background(), 999, "numberguess",
			scenario.Constructor(numberguess.New),
			[]AgentSpec{{AgentID: "random-1", Agent: a}},
			Config{TurnTimeout: 2 * time.Second},
		)
		require.NoError(t, err)
		return res.Events
	}
	a := run()
	b := run()
	require.Equal(t, len(a), len(b))
	for i := range a {
		require.Equal(t, a[i].ToValue(), b[i].ToValue())
	}
}

func TestRun_Heist_CompetitiveAggregatesLanes(t *testing.T) {
	a1, err := baseline.New(0)
	require.NoError(t, err)
	a2, err := random.New(1)
	require.NoError(t, err)

	res, err := Run(context.Background(), 42, "heist",
		scenario.Constructor(heist.New),
		[]AgentSpec{
			{AgentID: "baseline-1", Agent: a1},
			{AgentID: "random-1", Agent: a2},
		},
		Config{TurnTimeout: 2 * time.Second},
	)
	require.NoError(t, err)
	require.Contains(t, []string{ReasonCompleted, ReasonMaxTurnsReached, ReasonAgentForfeited}, res.Reason)
	require.Contains(t, res.Scores, "baseline-1")
	require.Contains(t, res.Scores, "random-1")
	errs := event.CheckInvariants(res.Events)
	require.Empty(t, errs)
}

func TestRun_TimeoutForfeits(t *testing.T) {
	slow := slowAgent{}
	res, err := Run(context.Background(), 1, "numberguess",
		scenario.Constructor(numberguess.New),
		[]AgentSpec{{AgentID: "slow-1", Agent: slow}},
		Config{TurnTimeout: 5 * time.Millisecond, MaxConsecutiveTimeouts: 2},
	)
	require.NoError(t, err)
	require.Equal(t, ReasonAgentForfeited, res.Reason)
	require.Equal(t, "slow-1", res.ForfeitedBy)
	require.Equal(t, 0.0, res.Scores["slow-1"])
}

type slowAgent struct{}

func (slowAgent) ID() string { return "slow" }
func (slowAgent) Probe(_ context.Context) error { return nil }
func (slowAgent) Act(ctx context.Context, _ interface{}) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
