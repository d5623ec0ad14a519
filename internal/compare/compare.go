// Package compare turns paired runs into variance and bias summaries. It
// is pure: the same pairs always give the same summary.
package compare

import (
	"fmt"
	"math"

	config "github.com/Vincent-lau/crnfigs/internal/configs"
	"github.com/Vincent-lau/crnfigs/internal/rng"
	"github.com/Vincent-lau/crnfigs/internal/runner"
	"gonum.org/v1/gonum/stat"
)

// Stats describes the per-seed intervention effect under one policy.
type Stats struct {
	Effects []float64
	Mean    float64
	Var     float64
	Std     float64
}

// Band is the per-step mean and standard deviation of effect trajectories.
type Band struct {
	Mean []float64
	Std  []float64
}

type ArmSummary struct {
	Arm config.Arm

	CRN         Stats
	Centralized Stats

	CRNBand         Band
	CentralizedBand Band

	// Centralized.Var / CRN.Var
	VarianceReduction float64
	// CRN.Mean - Centralized.Mean
	Bias float64
}

func (a ArmSummary) Stats(p rng.Policy) Stats {
	if p == rng.CRN {
		return a.CRN
	}
	return a.Centralized
}

func (a ArmSummary) Band(p rng.Policy) Band {
	if p == rng.CRN {
		return a.CRNBand
	}
	return a.CentralizedBand
}

// ComparisonSummary holds one ArmSummary per intervention arm; the
// baseline is the reference and has none.
type ComparisonSummary struct {
	Scenario string
	Outcome  string
	Seeds    int
	Steps    int
	Arms     []ArmSummary
}

// Summarize computes, for every intervention arm and policy, the effect
// (arm outcome minus baseline outcome of the same seed and policy) on the
// final value of the outcome channel.
func Summarize(res *runner.Result, outcome string) (*ComparisonSummary, error) {
	if len(res.Arms) < 2 || len(res.Pairs) != len(res.Arms) {
		return nil, fmt.Errorf("need a baseline and at least one intervention arm, got %d arms", len(res.Arms))
	}
	if len(res.Seeds) == 0 {
		return nil, fmt.Errorf("no seeds")
	}

	sum := &ComparisonSummary{
		Scenario: res.Config.Scenario,
		Outcome:  outcome,
		Seeds:    len(res.Seeds),
		Steps:    res.Config.Steps,
	}

	base := res.Pairs[0]
	for a := 1; a < len(res.Arms); a++ {
		as := ArmSummary{Arm: res.Arms[a]}
		for _, pol := range rng.Policies() {
			traj, err := effects(base, res.Pairs[a], pol, outcome)
			if err != nil {
				return nil, err
			}
			st, band := summarize(traj)
			if pol == rng.CRN {
				as.CRN, as.CRNBand = st, band
			} else {
				as.Centralized, as.CentralizedBand = st, band
			}
		}
		as.VarianceReduction = ratio(as.Centralized.Var, as.CRN.Var)
		as.Bias = as.CRN.Mean - as.Centralized.Mean
		sum.Arms = append(sum.Arms, as)
	}
	return sum, nil
}

// effects returns one effect trajectory per seed.
func effects(base, arm []runner.Pair, pol rng.Policy, outcome string) ([][]float64, error) {
	if len(base) != len(arm) {
		return nil, fmt.Errorf("baseline has %d seeds, arm has %d", len(base), len(arm))
	}
	out := make([][]float64, len(base))
	for s := range base {
		b, err := base[s].Get(pol).Channel(outcome)
		if err != nil {
			return nil, err
		}
		x, err := arm[s].Get(pol).Channel(outcome)
		if err != nil {
			return nil, err
		}
		if len(b) != len(x) || len(b) == 0 {
			return nil, fmt.Errorf("seed %d: trajectories of length %d and %d", base[s].Seed, len(b), len(x))
		}
		d := make([]float64, len(b))
		for t := range b {
			d[t] = x[t] - b[t]
		}
		out[s] = d
	}
	return out, nil
}

func summarize(traj [][]float64) (Stats, Band) {
	steps := len(traj[0])
	final := make([]float64, len(traj))
	for s, d := range traj {
		final[s] = d[steps-1]
	}

	st := Stats{Effects: final}
	st.Mean, st.Var = meanVar(final)
	st.Std = math.Sqrt(st.Var)

	band := Band{Mean: make([]float64, steps), Std: make([]float64, steps)}
	col := make([]float64, len(traj))
	for t := 0; t < steps; t++ {
		for s := range traj {
			col[s] = traj[s][t]
		}
		m, v := meanVar(col)
		band.Mean[t] = m
		band.Std[t] = math.Sqrt(v)
	}
	return st, band
}

// meanVar is the mean and unbiased variance, with zero variance for fewer
// than two samples.
func meanVar(x []float64) (float64, float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	return stat.MeanVariance(x, nil)
}

func ratio(num, den float64) float64 {
	if den == 0 {
		if num == 0 {
			return math.NaN()
		}
		return math.Inf(1)
	}
	return num / den
}
