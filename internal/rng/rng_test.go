package rng

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestParsePolicy(t *testing.T) {
	for _, p := range Policies() {
		got, err := ParsePolicy(p.String())
		if err != nil {
			t.Fatalf("ParsePolicy(%q) error: %v", p.String(), err)
		}
		if got != p {
			t.Fatalf("ParsePolicy(%q) = %v, want %v", p.String(), got, p)
		}
	}
	if _, err := ParsePolicy("antithetic"); err == nil {
		t.Fatal("expected an error for an unknown policy")
	}
}

func TestCRNSlotIndependence(t *testing.T) {
	a := New(CRN, 7).Stream("transmission")
	b := New(CRN, 7).Stream("transmission")

	all := a.Floats(3, []int{0, 1, 2, 3, 4, 5})
	some := b.Floats(3, []int{5, 2})

	if some[0] != all[5] || some[1] != all[2] {
		t.Fatalf("slot values depend on the requested set: %v vs %v", some, all)
	}
}

func TestCRNGrowingPopulation(t *testing.T) {
	st := New(CRN, 11).Stream("init")
	small := st.Raws(0, []int{0, 1, 2})
	large := st.Raws(0, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	for i := range small {
		if small[i] != large[i] {
			t.Fatalf("slot %d changed after the population grew: %d vs %d", i, small[i], large[i])
		}
	}
}

func TestCRNStreamsAndStepsDiffer(t *testing.T) {
	src := New(CRN, 1)
	x := src.Stream("a").Raws(0, []int{0})[0]
	y := src.Stream("b").Raws(0, []int{0})[0]
	z := src.Stream("a").Raws(1, []int{0})[0]
	if x == y || x == z {
		t.Fatalf("expected distinct values, got %d %d %d", x, y, z)
	}
}

func TestCRNReproducible(t *testing.T) {
	uids := []int{0, 3, 9}
	x := New(CRN, 42).Stream("recovery").Floats(5, uids)
	y := New(CRN, 42).Stream("recovery").Floats(5, uids)
	for i := range x {
		if x[i] != y[i] {
			t.Fatalf("draw %d not reproducible: %v vs %v", i, x[i], y[i])
		}
	}
}

func TestCentralizedSharesGenerator(t *testing.T) {
	src := New(Centralized, 3)
	first := src.Stream("a").Floats(0, []int{0})[0]

	other := New(Centralized, 3)
	other.Stream("b").Floats(0, []int{0})
	shifted := other.Stream("a").Floats(0, []int{0})[0]

	if first == shifted {
		t.Fatal("an extra draw on another stream should shift later draws")
	}
}

func TestCRNPairsDirected(t *testing.T) {
	st := New(CRN, 5).Stream("edges")
	ab := st.Pairs(0, []int{0}, []int{1})[0]
	ba := st.Pairs(0, []int{1}, []int{0})[0]
	if ab == ba {
		t.Fatal("pair draws should depend on direction")
	}
}

func TestBernoulli(t *testing.T) {
	uids := make([]int, 10000)
	for i := range uids {
		uids[i] = i
	}
	hit := Bernoulli(New(CRN, 9).Stream("coin"), 0, uids, 0.3)
	frac := float64(len(hit)) / float64(len(uids))
	if math.Abs(frac-0.3) > 0.03 {
		t.Fatalf("Bernoulli(0.3) hit fraction %.3f", frac)
	}

	if got := Bernoulli(New(CRN, 9).Stream("coin"), 0, uids, 0); len(got) != 0 {
		t.Fatalf("Bernoulli(0) = %d hits, want 0", len(got))
	}
	if got := Bernoulli(New(CRN, 9).Stream("coin"), 0, uids, 1); len(got) != len(uids) {
		t.Fatalf("Bernoulli(1) = %d hits, want %d", len(got), len(uids))
	}
}

func TestBernoulliEach(t *testing.T) {
	hit := BernoulliEach(New(Centralized, 1).Stream("x"), 0, []int{4, 8}, []float64{0, 1})
	if len(hit) != 1 || hit[0] != 8 {
		t.Fatalf("BernoulliEach = %v, want [8]", hit)
	}
}

func TestCombinersInUnitInterval(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	edges := []uint64{0, 1, math.MaxUint64, math.MaxUint64 - 1, 1 << 63}
	check := func(name string, v float64) {
		if v < 0 || v >= 1 || math.IsNaN(v) {
			t.Fatalf("%s out of [0,1): %v", name, v)
		}
	}
	for _, a := range edges {
		for _, b := range edges {
			check("XOR", XOR(a, b))
			check("MiddleSquare", MiddleSquare(a, b))
		}
	}
	for i := 0; i < 10000; i++ {
		check("XOR", XOR(r.Uint64(), r.Uint64()))
		check("MiddleSquare", MiddleSquare(r.Uint64(), r.Uint64()))
		check("Modulo", Modulo(r.Float64(), r.Float64()))
	}
}

func TestXORMean(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	n := 200000
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += XOR(r.Uint64(), r.Uint64())
	}
	if m := sum / float64(n); math.Abs(m-0.5) > 0.01 {
		t.Fatalf("XOR mean %.4f, want about 0.5", m)
	}
}
