// Package experiment chains configuration, paired runs, comparison and
// plotting for one scenario.
package experiment

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Vincent-lau/crnfigs/internal/compare"
	config "github.com/Vincent-lau/crnfigs/internal/configs"
	"github.com/Vincent-lau/crnfigs/internal/engine"
	"github.com/Vincent-lau/crnfigs/internal/plot"
	"github.com/Vincent-lau/crnfigs/internal/runner"
	"github.com/Vincent-lau/crnfigs/internal/store"
	"github.com/Vincent-lau/crnfigs/internal/util"
	log "github.com/sirupsen/logrus"
)

var ExpLogger = log.WithFields(log.Fields{"prefix": "experiment"})

type Options struct {
	// figures go to FigDir/<scenario>
	FigDir string
	// 0 means one per processor
	Workers int
	// empty disables the run cache
	CachePath string
}

// OptionsFromFlags reads the process wide settings in config.
func OptionsFromFlags() Options {
	return Options{
		FigDir:    config.FigDir,
		Workers:   config.Workers,
		CachePath: config.CachePath,
	}
}

type Outcome struct {
	Summary *compare.ComparisonSummary
	Files   []string
}

// RunScenario runs every seed and arm of cfg under both seeding policies,
// summarizes the effect on cfg.Outcome and writes the figures.
func RunScenario(ctx context.Context, cfg config.ScenarioConfig, opts Options) (*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eng, err := engine.Lookup(cfg.Scenario)
	if err != nil {
		return nil, err
	}

	ropts := []runner.Option{runner.WithWorkers(util.Workers(opts.Workers))}
	if opts.CachePath != "" {
		c, err := store.Open(ctx, opts.CachePath)
		if err != nil {
			return nil, err
		}
		defer c.Close()
		ropts = append(ropts, runner.WithCache(c))
	}

	st := time.Now()
	res, err := runner.New(eng, ropts...).Run(ctx, cfg, cfg.SeedList())
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", cfg.Scenario, err)
	}

	sum, err := compare.Summarize(res, cfg.Outcome)
	if err != nil {
		return nil, fmt.Errorf("summarizing %s: %w", cfg.Scenario, err)
	}

	files, err := plot.Render(sum, filepath.Join(opts.FigDir, cfg.Scenario))
	if err != nil {
		return nil, fmt.Errorf("plotting %s: %w", cfg.Scenario, err)
	}

	for _, a := range sum.Arms {
		ExpLogger.WithFields(log.Fields{
			"scenario":           cfg.Scenario,
			"arm":                a.Arm.Name,
			"crn var":            util.LogFloat(a.CRN.Var),
			"centralized var":    util.LogFloat(a.Centralized.Var),
			"variance reduction": util.LogFloat(a.VarianceReduction),
			"bias":               util.LogFloat(a.Bias),
		}).Info("arm summary")
	}
	ExpLogger.WithFields(log.Fields{
		"scenario":   cfg.Scenario,
		"files":      len(files),
		"time taken": time.Since(st).Seconds(),
	}).Info("scenario done")

	return &Outcome{Summary: sum, Files: files}, nil
}

// Scenario loads the defaults of a scenario, applies the optional YAML file
// and runs it.
func Scenario(ctx context.Context, scenario, file string, opts Options) (*Outcome, error) {
	cfg, err := config.Load(scenario, file)
	if err != nil {
		return nil, err
	}
	return RunScenario(ctx, cfg, opts)
}
