// Package pairwise measures how faithfully pairwise random-number
// combiners reproduce an Erdős–Rényi graph distribution. Many graphs are
// drawn on a handful of nodes with each method, every distinct graph is
// counted, and each method's histogram is tested against the one from
// independent per-pair draws.
package pairwise

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Vincent-lau/crnfigs/internal/metrics"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph/simple"
)

var BiasLogger = log.WithFields(log.Fields{"prefix": "pairwise"})

type Config struct {
	Nodes    int
	Reps     int
	EdgeProb float64
	Seed     uint64
}

// every pair needs a bit of a uint64 mask
const maxNodes = 11

var DefaultConfig = Config{
	Nodes:    4,
	Reps:     2_000_000,
	EdgeProb: 0.5,
	Seed:     0,
}

func (c Config) Validate() error {
	if c.Nodes < 2 || c.Nodes > maxNodes {
		return fmt.Errorf("invalid pairwise config: nodes must be in [2, %d], got %d", maxNodes, c.Nodes)
	}
	if c.Reps <= 0 {
		return fmt.Errorf("invalid pairwise config: reps must be positive, got %d", c.Reps)
	}
	if c.EdgeProb < 0 || c.EdgeProb > 1 {
		return fmt.Errorf("invalid pairwise config: edge probability %v outside [0, 1]", c.EdgeProb)
	}
	return nil
}

// Tally is the graph histogram of one method.
type Tally struct {
	Method  Method
	Counts  map[string]int
	Graphs  map[string]*simple.UndirectedGraph
	Elapsed time.Duration
}

// graphMask sets bit k when pair k is an edge.
func graphMask(u []float64, p float64) uint64 {
	var m uint64
	for k := range u {
		if u[k] < p {
			m |= 1 << k
		}
	}
	return m
}

// graphKey is the edge list "i-j;" in sorted order, which is the order the
// pairs are generated in.
func graphKey(n1, n2 []int, mask uint64) string {
	var sb strings.Builder
	for k := range n1 {
		if mask&(1<<k) != 0 {
			fmt.Fprintf(&sb, "%d-%d;", n1[k], n2[k])
		}
	}
	return sb.String()
}

// Hash is the first six hex digits of the SHA-256 of a graph key.
func Hash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:6]
}

func toGraph(nodes int, n1, n2 []int, mask uint64) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for i := 0; i < nodes; i++ {
		g.AddNode(simple.Node(i))
	}
	for k := range n1 {
		if mask&(1<<k) != 0 {
			g.SetEdge(simple.Edge{F: simple.Node(n1[k]), T: simple.Node(n2[k])})
		}
	}
	return g
}

// keep records g under h unless another graph already holds that hash.
// Colliding graphs share one count, and the first one drawn names it.
func (t *Tally) keep(h string, g *simple.UndirectedGraph) {
	if _, ok := t.Graphs[h]; !ok {
		t.Graphs[h] = g
	}
}

// MakeGraphs draws cfg.Reps graphs with method m.
func MakeGraphs(ctx context.Context, cfg Config, m Method) (*Tally, error) {
	st := time.Now()
	n1, n2 := triu(cfg.Nodes)
	u := make([]float64, len(n1))
	d := newDrawer(m, cfg.Nodes, cfg.Seed)

	t := &Tally{
		Method: m,
		Counts: make(map[string]int),
		Graphs: make(map[string]*simple.UndirectedGraph),
	}
	hashes := make(map[uint64]string)

	for rep := 0; rep < cfg.Reps; rep++ {
		if rep%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		d.draw(n1, n2, u)
		mask := graphMask(u, cfg.EdgeProb)
		h, ok := hashes[mask]
		if !ok {
			h = Hash(graphKey(n1, n2, mask))
			hashes[mask] = h
			t.keep(h, toGraph(cfg.Nodes, n1, n2, mask))
		}
		t.Counts[h]++
	}
	t.Elapsed = time.Since(st)
	metrics.GraphsDrawn.WithLabelValues(m.String()).Add(float64(cfg.Reps))

	BiasLogger.WithFields(log.Fields{
		"method":        m.String(),
		"unique graphs": len(t.Graphs),
		"time taken":    t.Elapsed.Seconds(),
	}).Debug("graphs drawn")

	return t, nil
}

// EdgeList renders g as sorted "p1 p2" lines.
func EdgeList(g *simple.UndirectedGraph) string {
	var sb strings.Builder
	n := g.Nodes().Len()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if g.HasEdgeBetween(int64(i), int64(j)) {
				fmt.Fprintf(&sb, "%d %d\n", i, j)
			}
		}
	}
	return sb.String()
}
