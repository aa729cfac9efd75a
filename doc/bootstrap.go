package doc

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/carbocation/biomisc/lowess"
)

type BootstrapOptions struct {
	// Iterations is the number of resampling replicates.
	Iterations int

	// Frac is the LOWESS fraction used in each replicate.
	Frac float64

	// LowerPercentile and UpperPercentile bound the interval, on a 0-100
	// scale.
	LowerPercentile float64
	UpperPercentile float64

	// Rand drives the resampling. Nil seeds from the clock.
	Rand *rand.Rand
}

func DefaultBootstrapOptions() BootstrapOptions {
	return BootstrapOptions{
		Iterations:      100,
		Frac:            0.5,
		LowerPercentile: 3,
		UpperPercentile: 97,
	}
}

// Interval is the bootstrap band for one pair. N is the number of replicates
// that contributed a fitted value.
type Interval struct {
	Lower float64
	Upper float64
	N     int
}

// Bootstrap estimates a confidence band for the LOWESS curve through
// results. Each replicate resamples the n sample IDs with replacement, keeps
// the original pairs whose members were both drawn, and refits LOWESS of
// Dissimilarity on Overlap over those pairs. A replicate that keeps a single
// pair contributes that pair's Dissimilarity. The band for each pair is the
// [LowerPercentile, UpperPercentile] range of the fitted values it received.
//
// If any pair was never drawn, the error wraps ErrIncompleteCoverage.
func Bootstrap(results []Result, samples []string, opts BootstrapOptions) (map[Pair]Interval, error) {
	if opts.Iterations < 1 {
		return nil, fmt.Errorf("bootstrap: iterations must be at least 1, got %d", opts.Iterations)
	}
	if opts.LowerPercentile < 0 || opts.UpperPercentile > 100 || opts.LowerPercentile > opts.UpperPercentile {
		return nil, fmt.Errorf("bootstrap: invalid percentile range [%v, %v]", opts.LowerPercentile, opts.UpperPercentile)
	}
	if err := checkComplete(results, len(samples)); err != nil {
		return nil, err
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	// Work on results in Overlap order so every replicate's subset is already
	// sorted for LOWESS. Ties keep combination order.
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return results[order[a]].Overlap < results[order[b]].Overlap
	})

	fitted := make([][]float64, len(results))
	drawn := make(map[string]struct{}, len(samples))

	x := make([]float64, 0, len(results))
	y := make([]float64, 0, len(results))
	kept := make([]int, 0, len(results))

	for iter := 0; iter < opts.Iterations; iter++ {
		for k := range drawn {
			delete(drawn, k)
		}
		for range samples {
			drawn[samples[rng.Intn(len(samples))]] = struct{}{}
		}

		x, y, kept = x[:0], y[:0], kept[:0]
		for _, idx := range order {
			r := results[idx]
			_, okA := drawn[r.A]
			_, okB := drawn[r.B]
			if !okA || !okB {
				continue
			}
			x = append(x, r.Overlap)
			y = append(y, r.Dissimilarity)
			kept = append(kept, idx)
		}

		// A lone pair is its own fit.
		if len(kept) == 0 {
			continue
		}

		smoothed, err := lowess.Fit(x, y, lowess.Options{Frac: opts.Frac, Iterations: 3, Sorted: true})
		if err != nil {
			return nil, fmt.Errorf("bootstrap replicate %d: %w", iter, err)
		}

		for j, idx := range kept {
			fitted[idx] = append(fitted[idx], smoothed[j])
		}
	}

	missing := 0
	for _, v := range fitted {
		if len(v) == 0 {
			missing++
		}
	}
	if missing > 0 {
		return nil, fmt.Errorf("%w (%d of %d pairs were never resampled in %d iterations)", ErrIncompleteCoverage, missing, len(results), opts.Iterations)
	}

	out := make(map[Pair]Interval, len(results))
	for i, r := range results {
		sort.Float64s(fitted[i])
		out[r.Pair] = Interval{
			Lower: Percentile(fitted[i], opts.LowerPercentile),
			Upper: Percentile(fitted[i], opts.UpperPercentile),
			N:     len(fitted[i]),
		}
	}

	return out, nil
}

// Percentile returns the p-th percentile (0-100) of sorted, interpolating
// linearly between the two nearest order statistics. This is numpy's default
// ("linear", Hyndman-Fan type 7).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}

	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= n-1 {
		return sorted[n-1]
	}

	return sorted[lo] + (sorted[lo+1]-sorted[lo])*(pos-float64(lo))
}
