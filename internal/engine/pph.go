package engine

import (
	"context"

	config "github.com/Vincent-lau/crnfigs/internal/configs"
	"github.com/Vincent-lau/crnfigs/internal/rng"
	log "github.com/sirupsen/logrus"
)

// PPH follows a cohort of women through pregnancies. Each delivery may end
// in postpartum hemorrhage, which can kill the mother; a newborn whose
// mother died is far more likely to die too. From the intervention start a
// share of hemorrhage cases is treated, scaling maternal death risk by
// 1 - efficacy.
type PPH struct{}

func (PPH) Name() string { return config.PPH }

func (PPH) Run(ctx context.Context, cfg config.ScenarioConfig, seed uint64, arm config.Arm) (*RunResult, error) {
	n := cfg.Population
	p := cfg.PPH
	src := rng.New(cfg.Policy, seed)

	res := newResult(cfg, seed, arm,
		"births", "pph", "treated", "maternal_deaths", "infant_deaths",
		"cum_maternal_deaths", "cum_infant_deaths")

	alive := make([]bool, n)
	pregnant := make([]bool, n)
	dueAt := make([]int, n)
	for i := range alive {
		alive[i] = true
	}

	var cumMat, cumInf int
	for ti := 0; ti < cfg.Steps; ti++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var open, delivering []int
		for i := 0; i < n; i++ {
			if !alive[i] {
				continue
			}
			if !pregnant[i] {
				open = append(open, i)
			} else if dueAt[i] == ti {
				delivering = append(delivering, i)
			}
		}

		for _, u := range rng.Bernoulli(src.Stream("conception"), ti, open, p.Conception) {
			pregnant[u] = true
			dueAt[u] = ti + p.Gestation
		}

		pph := rng.Bernoulli(src.Stream("pph"), ti, delivering, p.PPHRate)

		treated := make(map[int]bool)
		if ti >= cfg.Intervention.Start && arm.Coverage > 0 {
			for _, u := range rng.Bernoulli(src.Stream("pph_treatment"), ti, pph, arm.Coverage) {
				treated[u] = true
			}
		}

		deathP := make([]float64, len(pph))
		for k, u := range pph {
			deathP[k] = p.PPHDeath
			if treated[u] {
				deathP[k] *= 1 - cfg.Intervention.Efficacy
			}
		}
		matDeaths := rng.BernoulliEach(src.Stream("maternal_death"), ti, pph, deathP)
		died := make(map[int]bool, len(matDeaths))
		for _, u := range matDeaths {
			died[u] = true
		}

		// newborns use their mother's slot
		infP := make([]float64, len(delivering))
		for k, u := range delivering {
			infP[k] = p.InfantDeath
			if died[u] {
				infP[k] = p.InfantDeathOrphaned
			}
		}
		infDeaths := rng.BernoulliEach(src.Stream("infant_death"), ti, delivering, infP)

		for _, u := range delivering {
			pregnant[u] = false
			if died[u] {
				alive[u] = false
			}
		}
		cumMat += len(matDeaths)
		cumInf += len(infDeaths)

		res.Channels["births"][ti] = float64(len(delivering))
		res.Channels["pph"][ti] = float64(len(pph))
		res.Channels["treated"][ti] = float64(len(treated))
		res.Channels["maternal_deaths"][ti] = float64(len(matDeaths))
		res.Channels["infant_deaths"][ti] = float64(len(infDeaths))
		res.Channels["cum_maternal_deaths"][ti] = float64(cumMat)
		res.Channels["cum_infant_deaths"][ti] = float64(cumInf)
	}

	log.WithFields(log.Fields{
		"run":                 res.Key,
		"cum_maternal_deaths": cumMat,
		"cum_infant_deaths":   cumInf,
	}).Trace("pph run done")

	return res, nil
}
