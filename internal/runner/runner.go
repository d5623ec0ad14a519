// Package runner executes a scenario for every seed and arm under both
// seeding policies and collects the results as CRN/centralized pairs.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	config "github.com/Vincent-lau/crnfigs/internal/configs"
	"github.com/Vincent-lau/crnfigs/internal/engine"
	"github.com/Vincent-lau/crnfigs/internal/metrics"
	"github.com/Vincent-lau/crnfigs/internal/rng"
	"github.com/Vincent-lau/crnfigs/internal/store"
	log "github.com/sirupsen/logrus"
)

var RunLogger = log.WithFields(log.Fields{"prefix": "runner"})

// Pair holds the two runs of one seed and arm. Their configurations are
// identical except for the seeding policy.
type Pair struct {
	Seed        uint64
	Arm         config.Arm
	CRN         *engine.RunResult
	Centralized *engine.RunResult
}

// Get returns the run of the given policy.
func (p Pair) Get(pol rng.Policy) *engine.RunResult {
	if pol == rng.CRN {
		return p.CRN
	}
	return p.Centralized
}

// Result holds every pair, indexed by arm then seed.
type Result struct {
	Config config.ScenarioConfig
	Arms   []config.Arm
	Seeds  []uint64
	Pairs  [][]Pair
}

type Runner struct {
	eng     engine.Engine
	cache   *store.Cache
	workers int
}

type Option func(*Runner)

// WithCache serves runs from c when present and stores new ones in it.
func WithCache(c *store.Cache) Option {
	return func(r *Runner) { r.cache = c }
}

// WithWorkers bounds the number of concurrent runs.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func New(eng engine.Engine, opts ...Option) *Runner {
	r := &Runner{eng: eng, workers: 1}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes every seed × arm × policy combination. Results do not
// depend on the number of workers. The first engine failure is returned as
// a *engine.SimulationError and nothing is retried.
func (r *Runner) Run(ctx context.Context, cfg config.ScenarioConfig, seeds []uint64) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, &config.ConfigurationError{Field: "seeds", Reason: "empty seed list"}
	}
	if r.eng.Name() != cfg.Scenario {
		return nil, fmt.Errorf("engine %s cannot run scenario %s", r.eng.Name(), cfg.Scenario)
	}

	arms := cfg.Arms()
	pols := rng.Policies()
	res := &Result{
		Config: cfg,
		Arms:   arms,
		Seeds:  seeds,
		Pairs:  make([][]Pair, len(arms)),
	}
	for a, arm := range arms {
		res.Pairs[a] = make([]Pair, len(seeds))
		for s, seed := range seeds {
			res.Pairs[a][s] = Pair{Seed: seed, Arm: arm}
		}
	}

	st := time.Now()
	jobs := len(arms) * len(seeds) * len(pols)

	RunLogger.WithFields(log.Fields{
		"scenario": cfg.Scenario,
		"arms":     len(arms),
		"seeds":    len(seeds),
		"runs":     jobs,
		"workers":  r.workers,
	}).Info("starting paired runs")

	err := runPool(ctx, r.workers, jobs, func(ctx context.Context, i int) error {
		p := i % len(pols)
		s := (i / len(pols)) % len(seeds)
		a := i / (len(pols) * len(seeds))

		out, err := r.runOne(ctx, cfg.WithPolicy(pols[p]), seeds[s], arms[a])
		if err != nil {
			return err
		}
		// every slot is written by exactly one job
		if pols[p] == rng.CRN {
			res.Pairs[a][s].CRN = out
		} else {
			res.Pairs[a][s].Centralized = out
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	RunLogger.WithFields(log.Fields{
		"scenario":   cfg.Scenario,
		"runs":       jobs,
		"time taken": time.Since(st).Seconds(),
	}).Info("paired runs done")

	return res, nil
}

func (r *Runner) runOne(ctx context.Context, cfg config.ScenarioConfig, seed uint64, arm config.Arm) (*engine.RunResult, error) {
	key := engine.RunKey{Scenario: cfg.Scenario, Seed: seed, Policy: cfg.Policy, Arm: arm.Name}

	if r.cache != nil {
		out, ok, err := r.cache.Get(ctx, cfg, seed, arm)
		if err != nil {
			return nil, err
		}
		if ok {
			metrics.CacheHits.Inc()
			RunLogger.WithFields(log.Fields{
				"run": key,
			}).Debug("served from cache")
			return out, nil
		}
	}

	t := time.Now()
	out, err := r.invoke(ctx, cfg, seed, arm)
	if err != nil {
		metrics.RunFailures.WithLabelValues(cfg.Scenario).Inc()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &engine.SimulationError{Key: key, Err: err}
	}
	metrics.RunsTotal.WithLabelValues(cfg.Scenario, cfg.Policy.String()).Inc()
	metrics.RunLatency.WithLabelValues(cfg.Scenario).Observe(float64(time.Since(t).Microseconds()))

	RunLogger.WithFields(log.Fields{
		"run":        key,
		"time taken": time.Since(t).Milliseconds(),
	}).Debug("run finished")

	if r.cache != nil {
		if err := r.cache.Put(ctx, out, arm); err != nil {
			RunLogger.WithFields(log.Fields{
				"run":   key,
				"error": err,
			}).Warn("cannot cache run")
		}
	}
	return out, nil
}

// invoke turns an engine panic into an error.
func (r *Runner) invoke(ctx context.Context, cfg config.ScenarioConfig, seed uint64, arm config.Arm) (out *engine.RunResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("engine panic: %v", p)
		}
	}()
	return r.eng.Run(ctx, cfg, seed, arm)
}
