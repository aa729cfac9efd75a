// Package doc implements the Dissimilarity-Overlap Curve analysis of
// Bashan et al. (2016), "Universality of human microbial dynamics", Nature
// 534:259-262: pairwise overlap and root Jensen-Shannon dissimilarity between
// samples, a LOWESS curve through them, and a bootstrap confidence band.
package doc

// Pair is an unordered pair of distinct sample IDs. A is the sample that
// came first in the selection order.
type Pair struct {
	A, B string
}

func (p Pair) String() string {
	return p.A + "\t" + p.B
}

// Swap returns the same pair with its members reversed.
func (p Pair) Swap() Pair {
	return Pair{A: p.B, B: p.A}
}

// Combinations returns every 2-combination of samples in selection order:
// (s0,s1), (s0,s2), ..., (s1,s2), ...
func Combinations(samples []string) []Pair {
	n := len(samples)
	if n < 2 {
		return []Pair{}
	}

	out := make([]Pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, Pair{A: samples[i], B: samples[j]})
		}
	}

	return out
}

// NumPairs is n choose 2.
func NumPairs(n int) int {
	if n < 2 {
		return 0
	}

	return n * (n - 1) / 2
}
