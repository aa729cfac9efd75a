package corr

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// OrdinalRanks assigns ranks 1..n, breaking ties by order of appearance.
func OrdinalRanks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	ranks := make([]float64, len(v))
	for r, i := range idx {
		ranks[i] = float64(r + 1)
	}

	return ranks
}

// Spearman is the rank correlation of a and b using ordinal ranks, with a
// two-sided p-value from Student's t distribution on n-2 degrees of freedom.
// Fewer than 3 observations yield NaN for both.
func Spearman(a, b []float64) (rho, p float64) {
	n := len(a)
	if n < 3 || n != len(b) {
		return math.NaN(), math.NaN()
	}

	// Ordinal ranks are a permutation of 1..n, so the rank-difference form
	// is exact.
	ra, rb := OrdinalRanks(a), OrdinalRanks(b)
	sumD2 := 0.0
	for i := range ra {
		d := ra[i] - rb[i]
		sumD2 += d * d
	}
	nf := float64(n)
	rho = 1 - 6*sumD2/(nf*(nf*nf-1))

	df := float64(n - 2)
	denom := (1 - rho) * (1 + rho)
	if denom <= 0 {
		return rho, 0
	}

	t := rho * math.Sqrt(df/denom)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}

	return rho, 2 * dist.Survival(math.Abs(t))
}
