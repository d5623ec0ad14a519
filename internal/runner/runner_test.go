package runner

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	config "github.com/Vincent-lau/crnfigs/internal/configs"
	"github.com/Vincent-lau/crnfigs/internal/engine"
	"github.com/Vincent-lau/crnfigs/internal/rng"
	"github.com/Vincent-lau/crnfigs/internal/store"
)

// countingEngine wraps an engine, counts calls per run and can fail or
// panic on one seed.
type countingEngine struct {
	engine.Engine

	mu    sync.Mutex
	calls map[engine.RunKey]int

	failSeed  int64
	panicSeed int64
}

var errBoom = errors.New("boom")

func newCounting(e engine.Engine) *countingEngine {
	return &countingEngine{Engine: e, calls: make(map[engine.RunKey]int), failSeed: -1, panicSeed: -1}
}

func (c *countingEngine) Run(ctx context.Context, cfg config.ScenarioConfig, seed uint64, arm config.Arm) (*engine.RunResult, error) {
	c.mu.Lock()
	c.calls[engine.RunKey{Scenario: cfg.Scenario, Seed: seed, Policy: cfg.Policy, Arm: arm.Name}]++
	c.mu.Unlock()

	if int64(seed) == c.failSeed {
		return nil, errBoom
	}
	if int64(seed) == c.panicSeed {
		panic("engine exploded")
	}
	return c.Engine.Run(ctx, cfg, seed, arm)
}

func (c *countingEngine) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func smallSIR(t *testing.T) config.ScenarioConfig {
	t.Helper()
	c, _ := config.Defaults(config.SIR)
	c.Population = 300
	c.Steps = 30
	c.Seeds = 3
	c.Intervention.Start = 5
	c.Intervention.Coverages = []float64{0.5}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	return c
}

func channels(res *Result) [][]map[string][]float64 {
	out := make([][]map[string][]float64, 0)
	for _, row := range res.Pairs {
		r := make([]map[string][]float64, 0)
		for _, p := range row {
			r = append(r, p.CRN.Channels, p.Centralized.Channels)
		}
		out = append(out, r)
	}
	return out
}

func TestRunDeterministic(t *testing.T) {
	cfg := smallSIR(t)
	a, err := New(engine.SIR{}).Run(context.Background(), cfg, cfg.SeedList())
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(engine.SIR{}, WithWorkers(4)).Run(context.Background(), cfg, cfg.SeedList())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(channels(a), channels(b)) {
		t.Fatal("results depend on the run or on the number of workers")
	}
	if len(a.Pairs) != 2 || len(a.Pairs[0]) != 3 {
		t.Fatalf("got %dx%d pairs, want 2x3", len(a.Pairs), len(a.Pairs[0]))
	}
}

func TestPairsDifferOnlyInPolicy(t *testing.T) {
	cfg := smallSIR(t)
	res, err := New(engine.SIR{}, WithWorkers(2)).Run(context.Background(), cfg, cfg.SeedList())
	if err != nil {
		t.Fatal(err)
	}
	for a, row := range res.Pairs {
		for s, p := range row {
			if p.CRN == nil || p.Centralized == nil {
				t.Fatalf("pair %d/%d incomplete", a, s)
			}
			if p.CRN.Config.Policy != rng.CRN || p.Centralized.Config.Policy != rng.Centralized {
				t.Fatalf("pair %d/%d has policies %v and %v", a, s, p.CRN.Config.Policy, p.Centralized.Config.Policy)
			}
			other := p.Centralized.Config
			other.Policy = p.CRN.Config.Policy
			if !reflect.DeepEqual(p.CRN.Config, other) {
				t.Fatalf("pair %d/%d configs differ beyond the policy", a, s)
			}
			if p.CRN.Key.Seed != p.Seed || p.Centralized.Key.Seed != p.Seed {
				t.Fatalf("pair %d/%d seeds differ", a, s)
			}
			if p.Get(rng.CRN) != p.CRN || p.Get(rng.Centralized) != p.Centralized {
				t.Fatal("Pair.Get returned the wrong run")
			}
		}
	}
}

func TestRunFailureNotRetried(t *testing.T) {
	cfg := smallSIR(t)
	eng := newCounting(engine.SIR{})
	eng.failSeed = 1

	_, err := New(eng).Run(context.Background(), cfg, cfg.SeedList())
	var se *engine.SimulationError
	if !errors.As(err, &se) {
		t.Fatalf("Run() = %v, want a *SimulationError", err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("error does not wrap the engine failure: %v", err)
	}
	if se.Key.Seed != 1 {
		t.Fatalf("failure reported for %v", se.Key)
	}

	eng.mu.Lock()
	defer eng.mu.Unlock()
	for k, n := range eng.calls {
		if n != 1 {
			t.Fatalf("run %v invoked %d times", k, n)
		}
	}
}

func TestRunPanicBecomesError(t *testing.T) {
	cfg := smallSIR(t)
	eng := newCounting(engine.SIR{})
	eng.panicSeed = 2

	_, err := New(eng, WithWorkers(3)).Run(context.Background(), cfg, cfg.SeedList())
	var se *engine.SimulationError
	if !errors.As(err, &se) {
		t.Fatalf("Run() = %v, want a *SimulationError", err)
	}
}

func TestRunWithCache(t *testing.T) {
	ctx := context.Background()
	cache, err := store.Open(ctx, filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	cfg := smallSIR(t)
	eng := newCounting(engine.SIR{})
	first, err := New(eng, WithCache(cache), WithWorkers(2)).Run(ctx, cfg, cfg.SeedList())
	if err != nil {
		t.Fatal(err)
	}
	calls := eng.total()
	if calls != 2*3*2 {
		t.Fatalf("engine called %d times, want 12", calls)
	}

	second, err := New(eng, WithCache(cache)).Run(ctx, cfg, cfg.SeedList())
	if err != nil {
		t.Fatal(err)
	}
	if eng.total() != calls {
		t.Fatalf("engine called again despite the cache: %d", eng.total()-calls)
	}
	if !reflect.DeepEqual(channels(first), channels(second)) {
		t.Fatal("cached results differ from fresh ones")
	}
}

func TestRunRejects(t *testing.T) {
	cfg := smallSIR(t)
	if _, err := New(engine.PPH{}).Run(context.Background(), cfg, cfg.SeedList()); err == nil {
		t.Fatal("expected an error for a mismatched engine")
	}

	var ce *config.ConfigurationError
	if _, err := New(engine.SIR{}).Run(context.Background(), cfg, nil); !errors.As(err, &ce) {
		t.Fatalf("empty seed list: %v", err)
	}

	bad := cfg
	bad.Population = -5
	if _, err := New(engine.SIR{}).Run(context.Background(), bad, cfg.SeedList()); !errors.As(err, &ce) {
		t.Fatalf("invalid config: %v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	cfg := smallSIR(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(engine.SIR{}).Run(ctx, cfg, cfg.SeedList()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run on a canceled context = %v", err)
	}
}

func TestRunPool(t *testing.T) {
	var n int64
	seen := make([]int32, 50)
	err := runPool(context.Background(), 8, len(seen), func(_ context.Context, i int) error {
		atomic.AddInt64(&n, 1)
		atomic.AddInt32(&seen[i], 1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range seen {
		if v != 1 {
			t.Fatalf("job %d ran %d times", i, v)
		}
	}

	if err := runPool(context.Background(), 4, 0, nil); err != nil {
		t.Fatalf("empty pool: %v", err)
	}
}
