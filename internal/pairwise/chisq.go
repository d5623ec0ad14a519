package pairwise

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ChiSquare is the chi-square test of independence on a contingency
// table. Rows whose cells are all zero are dropped. With one degree of
// freedom the Yates continuity correction is applied.
func ChiSquare(table [][]float64) (stat, p float64, dof int, err error) {
	var rows [][]float64
	for _, r := range table {
		s := 0.0
		for _, v := range r {
			if v < 0 {
				return 0, 0, 0, fmt.Errorf("negative count %v", v)
			}
			s += v
		}
		if s > 0 {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return 0, 0, 0, fmt.Errorf("empty contingency table")
	}
	cols := len(rows[0])

	rowSum := make([]float64, len(rows))
	colSum := make([]float64, cols)
	total := 0.0
	for i, r := range rows {
		if len(r) != cols {
			return 0, 0, 0, fmt.Errorf("row %d has %d columns, want %d", i, len(r), cols)
		}
		for j, v := range r {
			rowSum[i] += v
			colSum[j] += v
			total += v
		}
	}
	for j, s := range colSum {
		if s == 0 {
			return 0, 0, 0, fmt.Errorf("column %d is all zero", j)
		}
	}

	dof = (len(rows) - 1) * (cols - 1)
	if dof == 0 {
		return 0, 1, 0, nil
	}

	for i, r := range rows {
		for j, obs := range r {
			exp := rowSum[i] * colSum[j] / total
			diff := obs - exp
			if dof == 1 {
				diff = math.Copysign(math.Max(math.Abs(diff)-0.5, 0), diff)
			}
			stat += diff * diff / exp
		}
	}

	p = distuv.ChiSquared{K: float64(dof)}.Survival(stat)
	return stat, p, dof, nil
}
