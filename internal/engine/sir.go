package engine

import (
	"context"
	"math"

	config "github.com/Vincent-lau/crnfigs/internal/configs"
	"github.com/Vincent-lau/crnfigs/internal/rng"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// SIR spreads an infection over a static contact network. At the
// intervention start a share of agents is vaccinated, which scales their
// susceptibility by 1 - efficacy.
type SIR struct{}

func (SIR) Name() string { return config.SIR }

const (
	susceptible = iota
	infected
	recovered
)

func (SIR) Run(ctx context.Context, cfg config.ScenarioConfig, seed uint64, arm config.Arm) (*RunResult, error) {
	n := cfg.Population
	p := cfg.SIR
	src := rng.New(cfg.Policy, seed)

	net, err := buildNetwork(cfg.Network, n, cfg.Network.MeanDegree/float64(n-1), anyPair, src)
	if err != nil {
		return nil, err
	}

	res := newResult(cfg, seed, arm,
		"susceptible", "infected", "recovered", "new_infections", "cum_infections", "vaccinated")

	all := uidRange(n)
	state := make([]int, n)
	recoverAt := make([]int, n)
	relSus := make([]float64, n)
	for i := range relSus {
		relSus[i] = 1
	}

	durInf := distuv.Exponential{Rate: 1 / p.DurInf}
	infect := func(ti int, uids []int) {
		us := src.Stream("dur_inf").Floats(ti, uids)
		for k, u := range uids {
			state[u] = infected
			recoverAt[u] = ti + int(math.Max(1, math.Ceil(durInf.Quantile(us[k]))))
		}
	}

	cum := 0
	vaccinated := 0
	for ti := 0; ti < cfg.Steps; ti++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		newInf := make([]int, 0)
		if ti == 0 {
			newInf = rng.Bernoulli(src.Stream("init"), ti, all, p.InitPrev)
		}

		if ti == cfg.Intervention.Start && arm.Coverage > 0 {
			vax := rng.Bernoulli(src.Stream("vaccine"), ti, all, arm.Coverage)
			for _, u := range vax {
				relSus[u] *= 1 - cfg.Intervention.Efficacy
			}
			vaccinated = len(vax)
		}

		newInf = append(newInf, net.transmit(src.Stream("transmission"), ti,
			func(i int) bool { return state[i] == infected },
			func(j int) bool { return state[j] == susceptible },
			func(j int) float64 { return p.Beta * relSus[j] },
		)...)

		for i := 0; i < n; i++ {
			if state[i] == infected && recoverAt[i] <= ti {
				state[i] = recovered
			}
		}
		infect(ti, newInf)
		cum += len(newInf)

		var s, in, r int
		for _, st := range state {
			switch st {
			case susceptible:
				s++
			case infected:
				in++
			default:
				r++
			}
		}
		res.Channels["susceptible"][ti] = float64(s)
		res.Channels["infected"][ti] = float64(in)
		res.Channels["recovered"][ti] = float64(r)
		res.Channels["new_infections"][ti] = float64(len(newInf))
		res.Channels["cum_infections"][ti] = float64(cum)
		res.Channels["vaccinated"][ti] = float64(vaccinated)
	}

	log.WithFields(log.Fields{
		"run":            res.Key,
		"edges":          net.Edges(),
		"cum_infections": cum,
	}).Trace("sir run done")

	return res, nil
}
