package corr

import (
	"fmt"
	"math"
	"sort"
)

// Method is a multiple-testing correction.
type Method string

const (
	Bonferroni         Method = "bonferroni"
	Holm               Method = "holm"
	BenjaminiHochberg  Method = "fdr_bh"
	BenjaminiYekutieli Method = "fdr_by"
)

func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case Bonferroni, Holm, BenjaminiHochberg, BenjaminiYekutieli:
		return m, nil
	}

	return "", fmt.Errorf("unknown multiple testing method %q (expected one of bonferroni, holm, fdr_bh, fdr_by)", s)
}

// Adjust returns corrected p-values in the order of p.
func Adjust(p []float64, method Method) ([]float64, error) {
	m := len(p)
	out := make([]float64, m)
	if m == 0 {
		return out, nil
	}

	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return p[order[a]] < p[order[b]] })

	switch method {
	case Bonferroni:
		for i, v := range p {
			out[i] = math.Min(v*float64(m), 1)
		}

	case Holm:
		running := 0.0
		for rank, idx := range order {
			adj := math.Min(p[idx]*float64(m-rank), 1)
			running = math.Max(running, adj)
			out[idx] = running
		}

	case BenjaminiHochberg, BenjaminiYekutieli:
		scale := 1.0
		if method == BenjaminiYekutieli {
			scale = 0
			for k := 1; k <= m; k++ {
				scale += 1 / float64(k)
			}
		}

		running := 1.0
		for rank := m - 1; rank >= 0; rank-- {
			idx := order[rank]
			adj := p[idx] * float64(m) * scale / float64(rank+1)
			running = math.Min(running, adj)
			out[idx] = running
		}

	default:
		return nil, fmt.Errorf("unknown multiple testing method %q", method)
	}

	return out, nil
}
