package engine

import (
	"fmt"

	config "github.com/Vincent-lau/crnfigs/internal/configs"
	"github.com/Vincent-lau/crnfigs/internal/rng"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph/simple"
)

// Network is a static undirected contact network over agent uids.
type Network struct {
	Graph *simple.UndirectedGraph
	Adj   [][]int
}

func (n *Network) Edges() int {
	return n.Graph.Edges().Len()
}

// candidate reports whether agents i < j may be linked.
type candidate func(i, j int) bool

// buildNetwork draws the network at step 0 from the "network" stream. For a
// random network every candidate pair is linked with probability p; under
// CRN the pair value comes from the two agents' slots, so the network does
// not depend on the order pairs are visited.
func buildNetwork(nc config.NetworkConfig, n int, p float64, ok candidate, src rng.Source) (*Network, error) {
	g := simple.NewUndirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}

	switch nc.Kind {
	case config.NetNone:
	case config.NetRandom:
		st := src.Stream("network")
		trg := make([]int, 0, n)
		srcs := make([]int, 0, n)
		for i := 0; i < n; i++ {
			trg = trg[:0]
			srcs = srcs[:0]
			for j := i + 1; j < n; j++ {
				if ok(i, j) {
					srcs = append(srcs, i)
					trg = append(trg, j)
				}
			}
			for k, u := range st.Pairs(0, srcs, trg) {
				if u < p {
					g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(trg[k])})
				}
			}
		}
	case config.NetMatrix:
		m, err := config.ReadMat(nc.MatrixFile)
		if err != nil {
			return nil, err
		}
		if len(m) != n {
			return nil, fmt.Errorf("matrix %s has %d nodes, population is %d", nc.MatrixFile, len(m), n)
		}
		for i, nb := range config.AdjList(m) {
			for _, j := range nb {
				if i < j && ok(i, j) {
					g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
				}
			}
		}
	default:
		return nil, fmt.Errorf("unknown network kind %q", nc.Kind)
	}

	net := &Network{Graph: g, Adj: make([][]int, n)}
	for i := 0; i < n; i++ {
		it := g.From(int64(i))
		nb := make([]int, 0, it.Len())
		for it.Next() {
			nb = append(nb, int(it.Node().ID()))
		}
		slices.Sort(nb)
		net.Adj[i] = nb
	}
	return net, nil
}

func anyPair(int, int) bool { return true }

// transmit draws one pairwise value for every edge from an infectious to a
// susceptible agent and returns the newly infected agents in uid order of
// their first infector. prob gives the per-edge probability for a target.
func (n *Network) transmit(st rng.Stream, ti int, infectious, susceptible func(int) bool, prob func(int) float64) []int {
	var from, to []int
	for i, nb := range n.Adj {
		if !infectious(i) {
			continue
		}
		for _, j := range nb {
			if susceptible(j) {
				from = append(from, i)
				to = append(to, j)
			}
		}
	}

	hit := make(map[int]bool)
	newInf := make([]int, 0)
	for k, u := range st.Pairs(ti, from, to) {
		j := to[k]
		if !hit[j] && u < prob(j) {
			hit[j] = true
			newInf = append(newInf, j)
		}
	}
	return newInf
}
