// Package registry resolves scenario and agent names to constructors. It is
// grounded on the teacher's internal/native.Registry + resolve.go: a simple
// name-keyed map guarded by a mutex (concurrent registration isn't needed
// here since both registries are populated once at process start, but the
// teacher's Runtime registry shape is kept, here as Register/Resolve/Names,
// since it costs nothing and matches the corpus's idiom), with a distinct
// ResolveError wrapping an unknown name the way native.Resolve wraps an
// unsupported strategy.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/marcohefti/matchlab/internal/agent"
	"github.com/marcohefti/matchlab/internal/codes"
	"github.com/marcohefti/matchlab/internal/scenario"
)

// ErrResolve is returned when a scenario or agent name has no registered
// constructor. Its message is always prefixed with codes.ResolveError.
type ErrResolve struct {
	Kind string // "scenario" or "agent"
	Name string
}

func (e *ErrResolve) Error() string {
	return fmt.Sprintf("%s: unknown %s %q", codes.ResolveError, e.Kind, e.Name)
}

// Scenarios holds every registered scenario.Constructor, keyed by name.
type Scenarios struct {
	mu    sync.RWMutex
	items map[string]scenario.Constructor
}

func NewScenarios() *Scenarios {
	return &Scenarios{items: map[string]scenario.Constructor{}}
}

func (s *Scenarios) Register(name string, ctor scenario.Constructor) error {
	if name == "" {
		return fmt.Errorf("scenario name is empty")
	}
	if ctor == nil {
		return fmt.Errorf("scenario constructor is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[name]; exists {
		return fmt.Errorf("scenario %q already registered", name)
	}
	s.items[name] = ctor
	return nil
}

func (s *Scenarios) MustRegister(name string, ctor scenario.Constructor) {
	if err := s.Register(name, ctor); err != nil {
		panic(err)
	}
}

func (s *Scenarios) Resolve(name string, agentCount int) (scenario.Scenario, error) {
	s.mu.RLock()
	ctor, ok := s.items[name]
	s.mu.RUnlock()
	if !ok {
		return nil, &ErrResolve{Kind: "scenario", Name: name}
	}
	return ctor(agentCount)
}

// Constructor returns the raw scenario.Constructor for name, for callers
// (the tournament runner, the CLI) that must construct a scenario once per
// match or once per lane rather than once up front.
func (s *Scenarios) Constructor(name string) (scenario.Constructor, error) {
	s.mu.RLock()
	ctor, ok := s.items[name]
	s.mu.RUnlock()
	if !ok {
		return nil, &ErrResolve{Kind: "scenario", Name: name}
	}
	return ctor, nil
}

func (s *Scenarios) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.items))
	for name := range s.items {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Agents holds every registered agent.Constructor, keyed by name.
type Agents struct {
	mu    sync.RWMutex
	items map[string]agent.Constructor
}

func NewAgents() *Agents {
	return &Agents{items: map[string]agent.Constructor{}}
}

func (a *Agents) Register(name string, ctor agent.Constructor) error {
	if name == "" {
		return fmt.Errorf("agent name is empty")
	}
	if ctor == nil {
		return fmt.Errorf("agent constructor is nil")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.items[name]; exists {
		return fmt.Errorf("agent %q already registered", name)
	}
	a.items[name] = ctor
	return nil
}

func (a *Agents) MustRegister(name string, ctor agent.Constructor) {
	if err := a.Register(name, ctor); err != nil {
		panic(err)
	}
}

func (a *Agents) Resolve(name string, seed uint32) (agent.Agent, error) {
	a.mu.RLock()
	ctor, ok := a.items[name]
	a.mu.RUnlock()
	if !ok {
		return nil, &ErrResolve{Kind: "agent", Name: name}
	}
	return ctor(seed)
}

func (a *Agents) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.items))
	for name := range a.items {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
