/*
	Seeded random number sources for simulation runs.

	Under CRN every named decision owns its own stream, reseeded at each
	time step, and agent slot i always reads the i-th value of that stream.
	Under the centralized policy all decisions share one generator and
	values are handed out in call order, so any extra draw shifts every
	later one.
*/

package rng

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
)

type Policy int

const (
	CRN Policy = iota
	Centralized
)

var policyNames = []string{"crn", "centralized"}

func (p Policy) String() string {
	if p < 0 || int(p) >= len(policyNames) {
		return fmt.Sprintf("policy(%d)", int(p))
	}
	return policyNames[p]
}

func ParsePolicy(s string) (Policy, error) {
	for i, n := range policyNames {
		if strings.EqualFold(s, n) {
			return Policy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown seeding policy %q", s)
}

// Policies lists every policy in a fixed order.
func Policies() []Policy {
	return []Policy{CRN, Centralized}
}

// Stream is one named random decision. Streams are not safe for
// concurrent use; every run owns its own Source.
type Stream interface {
	// Raws returns one raw 64-bit value per uid at step ti.
	Raws(ti int, uids []int) []uint64
	// Floats returns one uniform value in [0,1) per uid at step ti.
	Floats(ti int, uids []int) []float64
	// Pairs returns one uniform value in [0,1) per directed pair
	// (src[k], trg[k]) at step ti.
	Pairs(ti int, src, trg []int) []float64
}

type Source interface {
	Stream(name string) Stream
	Policy() Policy
	Seed() uint64
}

func New(p Policy, seed uint64) Source {
	if p == Centralized {
		return &centralSource{
			seed: seed,
			r:    rand.New(rand.NewPCG(seed, 0)),
		}
	}
	return &crnSource{
		seed:    seed,
		streams: make(map[string]*crnStream),
	}
}

type crnSource struct {
	seed    uint64
	streams map[string]*crnStream
}

func (s *crnSource) Policy() Policy { return CRN }
func (s *crnSource) Seed() uint64   { return s.seed }

func (s *crnSource) Stream(name string) Stream {
	if st, ok := s.streams[name]; ok {
		return st
	}
	st := &crnStream{key: streamKey(name, s.seed), ti: -1}
	s.streams[name] = st
	return st
}

func streamKey(name string, seed uint64) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	h.Write(b[:])
	return h.Sum64()
}

// crnStream keeps two raw values per slot for the current step: the first
// is used when the slot acts as a source (or draws alone), the second when
// it is the target of a pairwise decision.
type crnStream struct {
	key  uint64
	ti   int
	vals []uint64
}

func (st *crnStream) fill(ti, maxUID int) {
	need := 2 * (maxUID + 1)
	if st.ti == ti && len(st.vals) >= need {
		return
	}
	// regenerating from the start keeps slot values independent of how
	// many slots were asked for earlier in the same step
	g := rand.NewPCG(st.key, uint64(ti))
	if cap(st.vals) < need {
		st.vals = make([]uint64, need)
	}
	st.vals = st.vals[:need]
	for i := range st.vals {
		st.vals[i] = g.Uint64()
	}
	st.ti = ti
}

func maxOf(xs ...[]int) int {
	m := -1
	for _, x := range xs {
		for _, v := range x {
			if v > m {
				m = v
			}
		}
	}
	return m
}

func (st *crnStream) Raws(ti int, uids []int) []uint64 {
	out := make([]uint64, len(uids))
	if len(uids) == 0 {
		return out
	}
	st.fill(ti, maxOf(uids))
	for k, u := range uids {
		out[k] = st.vals[2*u]
	}
	return out
}

func (st *crnStream) Floats(ti int, uids []int) []float64 {
	raws := st.Raws(ti, uids)
	out := make([]float64, len(raws))
	for k, r := range raws {
		out[k] = toUnit(r)
	}
	return out
}

func (st *crnStream) Pairs(ti int, src, trg []int) []float64 {
	if len(src) != len(trg) {
		panic("rng: source and target lengths differ")
	}
	out := make([]float64, len(src))
	if len(src) == 0 {
		return out
	}
	st.fill(ti, maxOf(src, trg))
	for k := range src {
		out[k] = XOR(st.vals[2*src[k]], st.vals[2*trg[k]+1])
	}
	return out
}

type centralSource struct {
	seed uint64
	r    *rand.Rand
}

func (s *centralSource) Policy() Policy { return Centralized }
func (s *centralSource) Seed() uint64   { return s.seed }

// every name maps onto the same generator
func (s *centralSource) Stream(string) Stream { return centralStream{r: s.r} }

type centralStream struct {
	r *rand.Rand
}

func (st centralStream) Raws(_ int, uids []int) []uint64 {
	out := make([]uint64, len(uids))
	for k := range out {
		out[k] = st.r.Uint64()
	}
	return out
}

func (st centralStream) Floats(_ int, uids []int) []float64 {
	out := make([]float64, len(uids))
	for k := range out {
		out[k] = st.r.Float64()
	}
	return out
}

func (st centralStream) Pairs(_ int, src, trg []int) []float64 {
	if len(src) != len(trg) {
		panic("rng: source and target lengths differ")
	}
	out := make([]float64, len(src))
	for k := range out {
		out[k] = st.r.Float64()
	}
	return out
}

// Bernoulli returns the uids whose draw at step ti falls below p.
func Bernoulli(st Stream, ti int, uids []int, p float64) []int {
	us := st.Floats(ti, uids)
	hit := make([]int, 0)
	for k, u := range us {
		if u < p {
			hit = append(hit, uids[k])
		}
	}
	return hit
}

// BernoulliEach is Bernoulli with a probability per uid.
func BernoulliEach(st Stream, ti int, uids []int, ps []float64) []int {
	if len(uids) != len(ps) {
		panic("rng: uids and probabilities lengths differ")
	}
	us := st.Floats(ti, uids)
	hit := make([]int, 0)
	for k, u := range us {
		if u < ps[k] {
			hit = append(hit, uids[k])
		}
	}
	return hit
}
