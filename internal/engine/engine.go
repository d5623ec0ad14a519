// Package engine holds the simulation engines the experiments drive. Each
// engine is a small stand-in for an agent-based model: agents carry a few
// state flags and every random decision is drawn from a named rng stream,
// so the seeding policy alone decides whether paired runs share their
// random numbers.
package engine

import (
	"context"
	"fmt"
	"sort"

	config "github.com/Vincent-lau/crnfigs/internal/configs"
	"github.com/Vincent-lau/crnfigs/internal/rng"
	"golang.org/x/exp/maps"
)

// RunKey identifies one run.
type RunKey struct {
	Scenario string
	Seed     uint64
	Policy   rng.Policy
	Arm      string
}

func (k RunKey) String() string {
	return fmt.Sprintf("%s/seed=%d/%s/%s", k.Scenario, k.Seed, k.Policy, k.Arm)
}

// RunResult is the trajectory of one run. Every channel has one value per
// step.
type RunResult struct {
	Key      RunKey
	Config   config.ScenarioConfig
	Steps    int
	Channels map[string][]float64
}

func newResult(cfg config.ScenarioConfig, seed uint64, arm config.Arm, names ...string) *RunResult {
	r := &RunResult{
		Key: RunKey{
			Scenario: cfg.Scenario,
			Seed:     seed,
			Policy:   cfg.Policy,
			Arm:      arm.Name,
		},
		Config:   cfg,
		Steps:    cfg.Steps,
		Channels: make(map[string][]float64, len(names)),
	}
	for _, n := range names {
		r.Channels[n] = make([]float64, cfg.Steps)
	}
	return r
}

// ChannelNames returns the channel names in sorted order.
func (r *RunResult) ChannelNames() []string {
	names := maps.Keys(r.Channels)
	sort.Strings(names)
	return names
}

func (r *RunResult) Channel(name string) ([]float64, error) {
	ch, ok := r.Channels[name]
	if !ok {
		return nil, fmt.Errorf("run %s has no channel %q, have %v", r.Key, name, r.ChannelNames())
	}
	return ch, nil
}

// Final is the last value of a channel.
func (r *RunResult) Final(name string) (float64, error) {
	ch, err := r.Channel(name)
	if err != nil {
		return 0, err
	}
	if len(ch) == 0 {
		return 0, fmt.Errorf("run %s: channel %q is empty", r.Key, name)
	}
	return ch[len(ch)-1], nil
}

// Engine runs one scenario. Run must be deterministic in (cfg, seed, arm)
// and take every random number from an rng.Source built from cfg.Policy
// and seed.
type Engine interface {
	Name() string
	Run(ctx context.Context, cfg config.ScenarioConfig, seed uint64, arm config.Arm) (*RunResult, error)
}

// SimulationError wraps a failure raised by an engine.
type SimulationError struct {
	Key RunKey
	Err error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation %s failed: %v", e.Key, e.Err)
}

func (e *SimulationError) Unwrap() error { return e.Err }

var engines = map[string]Engine{
	config.SIR:  SIR{},
	config.PPH:  PPH{},
	config.VMMC: VMMC{},
}

func Lookup(scenario string) (Engine, error) {
	e, ok := engines[scenario]
	if !ok {
		return nil, fmt.Errorf("no engine for scenario %q", scenario)
	}
	return e, nil
}

func uidRange(n int) []int {
	u := make([]int, n)
	for i := range u {
		u[i] = i
	}
	return u
}
