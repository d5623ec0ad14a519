package engine

import (
	"context"
	"math"

	config "github.com/Vincent-lau/crnfigs/internal/configs"
	"github.com/Vincent-lau/crnfigs/internal/rng"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// VMMC spreads HIV over a heterosexual partnership network. At the
// intervention start a share of men is circumcised, which scales their
// acquisition risk by 1 - efficacy. Infected agents die after a Weibull
// distributed survival time.
type VMMC struct{}

func (VMMC) Name() string { return config.VMMC }

func (VMMC) Run(ctx context.Context, cfg config.ScenarioConfig, seed uint64, arm config.Arm) (*RunResult, error) {
	n := cfg.Population
	p := cfg.VMMC
	src := rng.New(cfg.Policy, seed)

	all := uidRange(n)
	male := make([]bool, n)
	var men []int
	for _, u := range rng.Bernoulli(src.Stream("sex"), 0, all, 0.5) {
		male[u] = true
		men = append(men, u)
	}

	opposite := func(i, j int) bool { return male[i] != male[j] }
	net, err := buildNetwork(cfg.Network, n, cfg.Network.MeanDegree/(float64(n)/2), opposite, src)
	if err != nil {
		return nil, err
	}

	res := newResult(cfg, seed, arm,
		"new_infections", "cum_infections", "prevalent", "deaths", "cum_deaths", "circumcised")

	alive := make([]bool, n)
	hiv := make([]bool, n)
	dieAt := make([]int, n)
	relSus := make([]float64, n)
	for i := range alive {
		alive[i] = true
		relSus[i] = 1
	}

	surv := distuv.Weibull{K: p.SurvShape, Lambda: p.SurvScale}
	infect := func(ti int, uids []int) {
		us := src.Stream("survival").Floats(ti, uids)
		for k, u := range uids {
			hiv[u] = true
			dieAt[u] = ti + int(math.Max(1, math.Ceil(surv.Quantile(us[k]))))
		}
	}

	var cum, cumDeaths, circumcised int
	for ti := 0; ti < cfg.Steps; ti++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		newInf := make([]int, 0)
		if ti == 0 {
			newInf = rng.Bernoulli(src.Stream("init"), ti, all, p.InitPrev)
		}

		if ti == cfg.Intervention.Start && arm.Coverage > 0 {
			mc := rng.Bernoulli(src.Stream("vmmc"), ti, men, arm.Coverage)
			for _, u := range mc {
				relSus[u] *= 1 - cfg.Intervention.Efficacy
			}
			circumcised = len(mc)
		}

		newInf = append(newInf, net.transmit(src.Stream("transmission"), ti,
			func(i int) bool { return alive[i] && hiv[i] },
			func(j int) bool { return alive[j] && !hiv[j] },
			func(j int) float64 { return p.Beta * relSus[j] },
		)...)

		deaths := 0
		for i := 0; i < n; i++ {
			if alive[i] && hiv[i] && dieAt[i] <= ti {
				alive[i] = false
				deaths++
			}
		}
		infect(ti, newInf)
		cum += len(newInf)
		cumDeaths += deaths

		prev := 0
		for i := 0; i < n; i++ {
			if alive[i] && hiv[i] {
				prev++
			}
		}
		res.Channels["new_infections"][ti] = float64(len(newInf))
		res.Channels["cum_infections"][ti] = float64(cum)
		res.Channels["prevalent"][ti] = float64(prev)
		res.Channels["deaths"][ti] = float64(deaths)
		res.Channels["cum_deaths"][ti] = float64(cumDeaths)
		res.Channels["circumcised"][ti] = float64(circumcised)
	}

	log.WithFields(log.Fields{
		"run":            res.Key,
		"edges":          net.Edges(),
		"cum_infections": cum,
	}).Trace("vmmc run done")

	return res, nil
}
