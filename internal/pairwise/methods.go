package pairwise

import (
	"fmt"
	"math/rand/v2"

	"github.com/Vincent-lau/crnfigs/internal/rng"
)

// Method is a way of producing one uniform per node pair.
type Method int

const (
	TrueRandom Method = iota
	ModuloSum
	MiddleSquare
	XOR
)

var methodNames = []string{"True Random", "Modulo", "Middle Square", "XOR"}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("method(%d)", int(m))
	}
	return methodNames[m]
}

func Methods() []Method {
	return []Method{TrueRandom, ModuloSum, MiddleSquare, XOR}
}

// drawer fills u with one value per pair (n1[k], n2[k]).
type drawer struct {
	m      Method
	n      int
	r      *rand.Rand
	f1, f2 []float64
	r1, r2 []uint64
}

func newDrawer(m Method, nodes int, seed uint64) *drawer {
	return &drawer{
		m:  m,
		n:  nodes,
		r:  rand.New(rand.NewPCG(seed, uint64(m))),
		f1: make([]float64, nodes),
		f2: make([]float64, nodes),
		r1: make([]uint64, nodes),
		r2: make([]uint64, nodes),
	}
}

func (d *drawer) draw(n1, n2 []int, u []float64) {
	switch d.m {
	case TrueRandom:
		for k := range u {
			u[k] = d.r.Float64()
		}
	case ModuloSum:
		for i := 0; i < d.n; i++ {
			d.f1[i] = d.r.Float64()
		}
		for i := 0; i < d.n; i++ {
			d.f2[i] = d.r.Float64()
		}
		for k := range u {
			u[k] = rng.Modulo(d.f1[n1[k]], d.f2[n2[k]])
		}
	default:
		for i := 0; i < d.n; i++ {
			d.r1[i] = d.r.Uint64()
		}
		for i := 0; i < d.n; i++ {
			d.r2[i] = d.r.Uint64()
		}
		combine := rng.XOR
		if d.m == MiddleSquare {
			combine = rng.MiddleSquare
		}
		for k := range u {
			u[k] = combine(d.r1[n1[k]], d.r2[n2[k]])
		}
	}
}

// triu lists the pairs i < j in row major order.
func triu(n int) ([]int, []int) {
	var n1, n2 []int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			n1 = append(n1, i)
			n2 = append(n2, j)
		}
	}
	return n1, n2
}
