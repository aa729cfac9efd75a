package doc

import (
	"fmt"
	"math"

	"github.com/carbocation/biomisc/abundance"
	"gonum.org/v1/gonum/stat"
)

// Result holds the overlap and dissimilarity of one sample pair.
type Result struct {
	Pair
	Overlap       float64
	Dissimilarity float64
}

// Calculate computes Overlap and Dissimilarity for every 2-combination of
// samples. Abundances are converted to within-sample relative abundance
// first, so raw counts and already-normalized tables give the same answer.
// Results are in combination order.
func Calculate(t *abundance.Table, samples []string) ([]Result, error) {
	seen := make(map[string]struct{}, len(samples))
	vectors := make(map[string][]float64, len(samples))
	for _, sid := range samples {
		if _, dup := seen[sid]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSample, sid)
		}
		seen[sid] = struct{}{}

		v, ok := t.SampleVector(sid)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSample, sid)
		}
		vectors[sid] = relative(v)
	}

	pairs := Combinations(samples)
	out := make([]Result, 0, len(pairs))
	for _, p := range pairs {
		overlap, dissimilarity := Pairwise(vectors[p.A], vectors[p.B])
		out = append(out, Result{Pair: p, Overlap: overlap, Dissimilarity: dissimilarity})
	}

	if err := checkComplete(out, len(samples)); err != nil {
		return nil, err
	}

	return out, nil
}

// checkComplete enforces one result per distinct unordered pair.
func checkComplete(results []Result, nSamples int) error {
	expected := NumPairs(nSamples)
	if len(results) != expected {
		return fmt.Errorf("%w: expected %d results for %d samples, got %d", ErrIncompletePairs, expected, nSamples, len(results))
	}

	seen := make(map[Pair]struct{}, len(results))
	for _, r := range results {
		if _, dup := seen[r.Pair]; dup {
			return fmt.Errorf("%w: pair %s appears more than once", ErrIncompletePairs, r.Pair)
		}
		if _, dup := seen[r.Pair.Swap()]; dup {
			return fmt.Errorf("%w: pair %s appears in both orders", ErrIncompletePairs, r.Pair)
		}
		seen[r.Pair] = struct{}{}
	}

	return nil
}

// Pairwise computes the overlap and root Jensen-Shannon dissimilarity of two
// relative-abundance vectors aligned by feature. Only features positive in
// both vectors are considered. For the dissimilarity each shared feature's
// two abundances are renormalized to sum to 1. Pairs with no shared features
// get 0 for both.
func Pairwise(x, y []float64) (overlap, dissimilarity float64) {
	var renormX, renormY []float64
	for i := range x {
		if x[i] > 0 && y[i] > 0 {
			sum := x[i] + y[i]
			overlap += sum / 2
			renormX = append(renormX, x[i]/sum)
			renormY = append(renormY, y[i]/sum)
		}
	}

	return overlap, RootJSD(renormX, renormY)
}

// RootJSD is the square root of the mean of KL(x || m) and KL(y || m), with
// m the elementwise mean of x and y and natural logs. Each KL normalizes both
// of its arguments to sum to 1 first. A degenerate mean distribution
// (empty, or non-positive mass) yields 0.
func RootJSD(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}

	m := make([]float64, len(x))
	mass := 0.0
	for i := range x {
		m[i] = (x[i] + y[i]) / 2
		mass += m[i]
	}
	if !(mass > 0) {
		return 0
	}

	m = relative(m)
	jsd := 0.5*stat.KullbackLeibler(relative(x), m) + 0.5*stat.KullbackLeibler(relative(y), m)
	if jsd <= 0 {
		return 0
	}

	return math.Sqrt(jsd)
}

func relative(v []float64) []float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}

	out := make([]float64, len(v))
	if sum <= 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / sum
	}

	return out
}
