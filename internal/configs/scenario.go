package config

import (
	"fmt"

	"github.com/Vincent-lau/crnfigs/internal/rng"
	"golang.org/x/exp/slices"
)

const (
	SIR  = "sir"
	PPH  = "pph"
	VMMC = "vmmc"
)

// network kinds
const (
	NetNone   = "none"
	NetRandom = "random"
	NetMatrix = "matrix"
)

type NetworkConfig struct {
	Kind       string  `yaml:"kind"`
	MeanDegree float64 `yaml:"mean_degree,omitempty"`
	// 0/1 adjacency matrix, one comma separated row per line
	MatrixFile string `yaml:"matrix_file,omitempty"`
}

type InterventionConfig struct {
	Start     int       `yaml:"start"`
	Coverages []float64 `yaml:"coverages"`
	Efficacy  float64   `yaml:"efficacy"`
}

type SIRParams struct {
	InitPrev float64 `yaml:"init_prev"`
	Beta     float64 `yaml:"beta"`
	// mean infectious duration in steps
	DurInf float64 `yaml:"dur_inf"`
}

type PPHParams struct {
	Conception float64 `yaml:"conception"`
	Gestation  int     `yaml:"gestation"`
	PPHRate    float64 `yaml:"pph_rate"`
	PPHDeath   float64 `yaml:"pph_death"`
	// infant death risk with a surviving and a deceased mother
	InfantDeath         float64 `yaml:"infant_death"`
	InfantDeathOrphaned float64 `yaml:"infant_death_orphaned"`
}

type VMMCParams struct {
	InitPrev float64 `yaml:"init_prev"`
	// per partnership per step
	Beta float64 `yaml:"beta"`
	// Weibull survival after infection, in steps
	SurvShape float64 `yaml:"surv_shape"`
	SurvScale float64 `yaml:"surv_scale"`
}

// ScenarioConfig is built once per invocation and never mutated. Methods
// that derive a variant return a copy.
type ScenarioConfig struct {
	Scenario   string     `yaml:"scenario"`
	Population int        `yaml:"population"`
	Steps      int        `yaml:"steps"`
	SeedBase   uint64     `yaml:"seed_base"`
	Seeds      int        `yaml:"seeds"`
	Outcome    string     `yaml:"outcome"`
	Policy     rng.Policy `yaml:"-"`

	Network      NetworkConfig      `yaml:"network"`
	Intervention InterventionConfig `yaml:"intervention"`

	SIR  SIRParams  `yaml:"sir,omitempty"`
	PPH  PPHParams  `yaml:"pph,omitempty"`
	VMMC VMMCParams `yaml:"vmmc,omitempty"`
}

// Arm is one intervention level. The baseline arm has zero coverage.
type Arm struct {
	Name     string
	Coverage float64
}

const BaselineArm = "baseline"

func (c ScenarioConfig) clone() ScenarioConfig {
	c.Intervention.Coverages = slices.Clone(c.Intervention.Coverages)
	return c
}

// WithPolicy returns a copy of c that differs only in its seeding policy.
func (c ScenarioConfig) WithPolicy(p rng.Policy) ScenarioConfig {
	cc := c.clone()
	cc.Policy = p
	return cc
}

// Arms returns the baseline followed by one arm per coverage level.
func (c ScenarioConfig) Arms() []Arm {
	arms := []Arm{{Name: BaselineArm}}
	for _, cov := range c.Intervention.Coverages {
		arms = append(arms, Arm{Name: fmt.Sprintf("coverage_%.2f", cov), Coverage: cov})
	}
	return arms
}

// SeedList is SeedBase, SeedBase+1, ... for Seeds entries.
func (c ScenarioConfig) SeedList() []uint64 {
	s := make([]uint64, c.Seeds)
	for i := range s {
		s[i] = c.SeedBase + uint64(i)
	}
	return s
}

// Defaults returns the built-in parameters of a scenario.
func Defaults(scenario string) (ScenarioConfig, error) {
	var c ScenarioConfig
	switch scenario {
	case SIR:
		c = defaultSIR
	case PPH:
		c = defaultPPH
	case VMMC:
		c = defaultVMMC
	default:
		return ScenarioConfig{}, &ConfigurationError{Field: "scenario", Reason: fmt.Sprintf("unknown scenario %q", scenario)}
	}
	return c.clone(), nil
}

var (
	defaultSIR = ScenarioConfig{
		Scenario:   SIR,
		Population: 1000,
		Steps:      100,
		SeedBase:   0,
		Seeds:      10,
		Outcome:    "cum_infections",
		Network: NetworkConfig{
			Kind:       NetRandom,
			MeanDegree: 4,
		},
		Intervention: InterventionConfig{
			Start:     10,
			Coverages: []float64{0.25, 0.5, 0.75},
			Efficacy:  0.8,
		},
		SIR: SIRParams{
			InitPrev: 0.01,
			Beta:     0.05,
			DurInf:   10,
		},
	}

	defaultPPH = ScenarioConfig{
		Scenario:   PPH,
		Population: 2000,
		Steps:      120,
		SeedBase:   0,
		Seeds:      10,
		Outcome:    "cum_infant_deaths",
		Network:    NetworkConfig{Kind: NetNone},
		Intervention: InterventionConfig{
			Start:     12,
			Coverages: []float64{0.5, 0.9},
			Efficacy:  0.6,
		},
		PPH: PPHParams{
			Conception:          0.02,
			Gestation:           9,
			PPHRate:             0.1,
			PPHDeath:            0.1,
			InfantDeath:         0.03,
			InfantDeathOrphaned: 0.4,
		},
	}

	defaultVMMC = ScenarioConfig{
		Scenario:   VMMC,
		Population: 1000,
		Steps:      120,
		SeedBase:   0,
		Seeds:      10,
		Outcome:    "cum_infections",
		Network: NetworkConfig{
			Kind:       NetRandom,
			MeanDegree: 2,
		},
		Intervention: InterventionConfig{
			Start:     12,
			Coverages: []float64{0.3, 0.6},
			Efficacy:  0.6,
		},
		VMMC: VMMCParams{
			InitPrev:  0.05,
			Beta:      0.01,
			SurvShape: 2.5,
			SurvScale: 120,
		},
	}
)
