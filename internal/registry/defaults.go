package registry

import (
	"github.com/marcohefti/matchlab/internal/agent"
	"github.com/marcohefti/matchlab/internal/agent/baseline"
	"github.com/marcohefti/matchlab/internal/agent/fallible"
	"github.com/marcohefti/matchlab/internal/agent/random"
	"github.com/marcohefti/matchlab/internal/scenario"
	"github.com/marcohefti/matchlab/internal/scenario/heist"
	"github.com/marcohefti/matchlab/internal/scenario/numberguess"
)

// DefaultScenarios returns a Scenarios registry pre-populated with the two
// reference scenarios from spec.md §6.
func DefaultScenarios() *Scenarios {
	s := NewScenarios()
	s.MustRegister("numberguess", scenario.Constructor(numberguess.New))
	s.MustRegister("heist", scenario.Constructor(heist.New))
	return s
}

// DefaultAgents returns an Agents registry pre-populated with the three
// reference agents from spec.md §6.
func DefaultAgents() *Agents {
	a := NewAgents()
	a.MustRegister("random", func(seed uint32) (agent.Agent, error) { return random.New(seed) })
	a.MustRegister("baseline", func(seed uint32) (agent.Agent, error) { return baseline.New(seed) })
	a.MustRegister("fallible", func(seed uint32) (agent.Agent, error) { return fallible.New(seed) })
	return a
}
