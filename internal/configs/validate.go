package config

import (
	"fmt"
	"os"

	"golang.org/x/exp/slices"
)

// ConfigurationError reports a missing or out of range parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func bad(field, format string, a ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, a...)}
}

func checkProb(field string, p float64) error {
	if p < 0 || p > 1 || p != p {
		return bad(field, "probability %v outside [0, 1]", p)
	}
	return nil
}

// Validate returns the first problem found as a *ConfigurationError.
func (c ScenarioConfig) Validate() error {
	if !slices.Contains([]string{SIR, PPH, VMMC}, c.Scenario) {
		return bad("scenario", "unknown scenario %q", c.Scenario)
	}
	if c.Population <= 0 {
		return bad("population", "must be positive, got %d", c.Population)
	}
	if c.Steps <= 0 {
		return bad("steps", "must be positive, got %d", c.Steps)
	}
	if c.Seeds <= 0 {
		return bad("seeds", "must be positive, got %d", c.Seeds)
	}
	if c.Outcome == "" {
		return bad("outcome", "missing")
	}

	if err := c.validateNetwork(); err != nil {
		return err
	}

	iv := c.Intervention
	if iv.Start < 0 || iv.Start >= c.Steps {
		return bad("intervention.start", "%d outside [0, %d)", iv.Start, c.Steps)
	}
	if len(iv.Coverages) == 0 {
		return bad("intervention.coverages", "no coverage levels")
	}
	seen := make(map[float64]bool)
	for _, cov := range iv.Coverages {
		if err := checkProb("intervention.coverages", cov); err != nil {
			return err
		}
		if seen[cov] {
			return bad("intervention.coverages", "duplicate level %v", cov)
		}
		seen[cov] = true
	}
	if err := checkProb("intervention.efficacy", iv.Efficacy); err != nil {
		return err
	}

	switch c.Scenario {
	case SIR:
		return c.SIR.validate()
	case PPH:
		return c.PPH.validate()
	default:
		return c.VMMC.validate()
	}
}

func (c ScenarioConfig) validateNetwork() error {
	n := c.Network
	switch n.Kind {
	case NetNone:
		if c.Scenario != PPH {
			return bad("network.kind", "scenario %s needs a contact network", c.Scenario)
		}
	case NetRandom:
		if n.MeanDegree <= 0 || n.MeanDegree > float64(c.Population-1) {
			return bad("network.mean_degree", "%v outside (0, %d]", n.MeanDegree, c.Population-1)
		}
	case NetMatrix:
		if n.MatrixFile == "" {
			return bad("network.matrix_file", "missing")
		}
		if _, err := os.Stat(n.MatrixFile); err != nil {
			return bad("network.matrix_file", "%v", err)
		}
	default:
		return bad("network.kind", "unknown kind %q", n.Kind)
	}
	return nil
}

func (p SIRParams) validate() error {
	if err := checkProb("sir.init_prev", p.InitPrev); err != nil {
		return err
	}
	if err := checkProb("sir.beta", p.Beta); err != nil {
		return err
	}
	if p.DurInf <= 0 {
		return bad("sir.dur_inf", "must be positive, got %v", p.DurInf)
	}
	return nil
}

func (p PPHParams) validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"pph.conception", p.Conception},
		{"pph.pph_rate", p.PPHRate},
		{"pph.pph_death", p.PPHDeath},
		{"pph.infant_death", p.InfantDeath},
		{"pph.infant_death_orphaned", p.InfantDeathOrphaned},
	} {
		if err := checkProb(f.name, f.v); err != nil {
			return err
		}
	}
	if p.Gestation <= 0 {
		return bad("pph.gestation", "must be positive, got %d", p.Gestation)
	}
	return nil
}

func (p VMMCParams) validate() error {
	if err := checkProb("vmmc.init_prev", p.InitPrev); err != nil {
		return err
	}
	if err := checkProb("vmmc.beta", p.Beta); err != nil {
		return err
	}
	if p.SurvShape <= 0 || p.SurvScale <= 0 {
		return bad("vmmc.surv", "shape and scale must be positive, got %v and %v", p.SurvShape, p.SurvScale)
	}
	return nil
}
