package doc

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/carbocation/biomisc/abundance"
	"gonum.org/v1/gonum/stat"
)

func mustTable(t *testing.T, features, samples []string, values [][]float64) *abundance.Table {
	t.Helper()
	tab, err := abundance.New(features, samples, values)
	if err != nil {
		t.Fatal(err)
	}
	return tab
}

// randomTable builds nSamples samples over nFeatures features with roughly a
// third of the entries zero.
func randomTable(t *testing.T, rng *rand.Rand, nFeatures, nSamples int) (*abundance.Table, []string) {
	t.Helper()
	features := make([]string, nFeatures)
	for i := range features {
		features[i] = fmt.Sprintf("otu%d", i)
	}
	samples := make([]string, nSamples)
	for i := range samples {
		samples[i] = fmt.Sprintf("s%d", i)
	}
	values := make([][]float64, nFeatures)
	for i := range values {
		values[i] = make([]float64, nSamples)
		for j := range values[i] {
			if rng.Intn(3) > 0 {
				values[i][j] = float64(rng.Intn(100))
			}
		}
	}
	return mustTable(t, features, samples, values), samples
}

func TestIdenticalSamples(t *testing.T) {
	tab := mustTable(t, []string{"f1", "f2"}, []string{"A", "B"}, [][]float64{{4, 4}, {6, 6}})

	results, err := Calculate(tab, []string{"A", "B"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if r := results[0]; math.Abs(r.Overlap-1) > 1e-12 || r.Dissimilarity != 0 {
		t.Errorf("expected overlap 1 and dissimilarity 0, got %+v", r)
	}
}

func TestDisjointSamples(t *testing.T) {
	tab := mustTable(t, []string{"f1", "f2"}, []string{"A", "B"}, [][]float64{{10, 0}, {0, 10}})

	results, err := Calculate(tab, []string{"A", "B"})
	if err != nil {
		t.Fatal(err)
	}
	if r := results[0]; r.Overlap != 0 || r.Dissimilarity != 0 {
		t.Errorf("expected overlap 0 and dissimilarity 0, got %+v", r)
	}
}

func TestKnownPair(t *testing.T) {
	// Shared features f1 and f2. Relative abundances: A = (.5, .5, 0),
	// B = (.25, .25, .5). Overlap = (.5+.25)/2 + (.5+.25)/2 = .75. Per
	// feature A renormalizes to 2/3 and B to 1/3 on both features, so both
	// vectors are flat and the divergence is 0.
	tab := mustTable(t, []string{"f1", "f2", "f3"}, []string{"A", "B"}, [][]float64{{1, 1}, {1, 1}, {0, 2}})

	results, err := Calculate(tab, []string{"A", "B"})
	if err != nil {
		t.Fatal(err)
	}
	if r := results[0]; math.Abs(r.Overlap-0.75) > 1e-12 || math.Abs(r.Dissimilarity) > 1e-12 {
		t.Errorf("expected overlap .75 and dissimilarity 0, got %+v", r)
	}
}

func TestRootJSD(t *testing.T) {
	// p = (1/4, 3/4), q = (3/4, 1/4), m = (1/2, 1/2).
	// KL(p||m) = 1/4 ln(1/2) + 3/4 ln(3/2) = KL(q||m).
	kl := 0.25*math.Log(0.5) + 0.75*math.Log(1.5)
	expected := math.Sqrt(kl)

	if got := RootJSD([]float64{1, 3}, []float64{3, 1}); math.Abs(got-expected) > 1e-12 {
		t.Errorf("expected %v, got %v", expected, got)
	}
	if got := RootJSD(nil, nil); got != 0 {
		t.Errorf("empty input: expected 0, got %v", got)
	}
	if got := RootJSD([]float64{0, 0}, []float64{0, 0}); got != 0 {
		t.Errorf("zero mass: expected 0, got %v", got)
	}
}

func TestPairRenormalizedDissimilarity(t *testing.T) {
	// Relative abundances A = (.5, .5), B = (.25, .75). Per-feature
	// renormalization gives A = (2/3, 2/5), B = (1/3, 3/5) and m = (1/2, 1/2).
	// Normalized, A = (5/8, 3/8) and B = (5/14, 9/14).
	klA := 5.0/8*math.Log(5.0/4) + 3.0/8*math.Log(3.0/4)
	klB := 5.0/14*math.Log(5.0/7) + 9.0/14*math.Log(9.0/7)
	expected := math.Sqrt(0.5*klA + 0.5*klB)

	tab := mustTable(t, []string{"f1", "f2"}, []string{"A", "B"}, [][]float64{{1, 1}, {1, 3}})

	results, err := Calculate(tab, []string{"A", "B"})
	if err != nil {
		t.Fatal(err)
	}
	if r := results[0]; math.Abs(r.Dissimilarity-expected) > 1e-12 {
		t.Errorf("expected dissimilarity %v, got %v", expected, r.Dissimilarity)
	}
	if math.Abs(expected-0.191016) > 1e-6 {
		t.Errorf("expected dissimilarity near 0.191016, got %v", expected)
	}

	reversed, err := Calculate(tab, []string{"B", "A"})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(reversed[0].Dissimilarity-results[0].Dissimilarity) > 1e-12 {
		t.Errorf("dissimilarity is not symmetric: %v vs %v", results[0].Dissimilarity, reversed[0].Dissimilarity)
	}
}

func TestRootJSDNormalizesMeanFromRawInputs(t *testing.T) {
	// x and y do not sum to 1; m is averaged before normalization.
	x, y := []float64{2.0 / 3, 0.4}, []float64{1.0 / 3, 0.6}
	m := []float64{0.5, 0.5}
	expected := math.Sqrt(0.5*stat.KullbackLeibler(relative(x), m) + 0.5*stat.KullbackLeibler(relative(y), m))

	if got := RootJSD(x, y); math.Abs(got-expected) > 1e-12 {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestCalculateProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tab, samples := randomTable(t, rng, 30, 9)

	results, err := Calculate(tab, samples)
	if err != nil {
		t.Fatal(err)
	}
	if expected := len(samples) * (len(samples) - 1) / 2; len(results) != expected {
		t.Fatalf("expected %d results, got %d", expected, len(results))
	}

	byPair := make(map[Pair]Result, len(results))
	for _, r := range results {
		if r.Overlap < 0 || r.Overlap > 1+1e-12 {
			t.Errorf("%s: overlap %v out of bounds", r.Pair, r.Overlap)
		}
		if r.Dissimilarity < 0 || r.Dissimilarity > 1 {
			t.Errorf("%s: dissimilarity %v out of bounds", r.Pair, r.Dissimilarity)
		}
		byPair[r.Pair] = r
	}

	// Reversing the selection reverses every pair; values must not change.
	reversed := make([]string, len(samples))
	for i, s := range samples {
		reversed[len(samples)-1-i] = s
	}
	swapped, err := Calculate(tab, reversed)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range swapped {
		orig, ok := byPair[r.Pair.Swap()]
		if !ok {
			t.Fatalf("pair %s missing from the forward run", r.Pair)
		}
		if math.Abs(orig.Dissimilarity-r.Dissimilarity) > 1e-12 || math.Abs(orig.Overlap-r.Overlap) > 1e-12 {
			t.Errorf("%s: forward %+v, reversed %+v", r.Pair, orig, r)
		}
	}

	again, err := Calculate(tab, samples)
	if err != nil {
		t.Fatal(err)
	}
	for i := range again {
		if again[i] != results[i] {
			t.Errorf("repeat %d differs: %+v vs %+v", i, again[i], results[i])
		}
	}
}

func TestCalculateCountsAndOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tab, samples := randomTable(t, rng, 5, 6)

	for n := 0; n <= len(samples); n++ {
		results, err := Calculate(tab, samples[:n])
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != NumPairs(n) {
			t.Errorf("%d samples: expected %d results, got %d", n, NumPairs(n), len(results))
		}
	}

	results, err := Calculate(tab, []string{"s2", "s0", "s1"})
	if err != nil {
		t.Fatal(err)
	}
	expected := []Pair{{"s2", "s0"}, {"s2", "s1"}, {"s0", "s1"}}
	for i, p := range expected {
		if results[i].Pair != p {
			t.Errorf("result %d: expected %s, got %s", i, p, results[i].Pair)
		}
	}
}

func TestCalculateErrors(t *testing.T) {
	tab := mustTable(t, []string{"f1"}, []string{"A", "B"}, [][]float64{{1, 2}})

	if _, err := Calculate(tab, []string{"A", "C"}); !errors.Is(err, ErrUnknownSample) {
		t.Errorf("expected ErrUnknownSample, got %v", err)
	}
	if _, err := Calculate(tab, []string{"A", "B", "A"}); !errors.Is(err, ErrDuplicateSample) {
		t.Errorf("expected ErrDuplicateSample, got %v", err)
	}
}

func TestCheckComplete(t *testing.T) {
	results := []Result{{Pair: Pair{"A", "B"}}, {Pair: Pair{"B", "A"}}, {Pair: Pair{"B", "C"}}}
	if err := checkComplete(results, 3); !errors.Is(err, ErrIncompletePairs) {
		t.Errorf("duplicate pair: expected ErrIncompletePairs, got %v", err)
	}
	if err := checkComplete(results[:2], 3); !errors.Is(err, ErrIncompletePairs) {
		t.Errorf("short result set: expected ErrIncompletePairs, got %v", err)
	}
}

func TestBootstrapCoverage(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	tab, samples := randomTable(t, rng, 20, 6)

	results, err := Calculate(tab, samples)
	if err != nil {
		t.Fatal(err)
	}

	opts := DefaultBootstrapOptions()
	opts.Iterations = 500
	opts.Rand = rand.New(rand.NewSource(1))
	intervals, err := Bootstrap(results, samples, opts)
	if err != nil {
		t.Fatal(err)
	}

	if len(intervals) != len(results) {
		t.Fatalf("expected %d intervals, got %d", len(results), len(intervals))
	}
	for _, r := range results {
		iv, ok := intervals[r.Pair]
		if !ok {
			t.Fatalf("no interval for %s", r.Pair)
		}
		if iv.N < 1 || iv.N > opts.Iterations {
			t.Errorf("%s: implausible replicate count %d", r.Pair, iv.N)
		}
		if iv.Lower > iv.Upper {
			t.Errorf("%s: lower %v above upper %v", r.Pair, iv.Lower, iv.Upper)
		}
	}
}

func TestBootstrapSingleIterationCanFail(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	tab, samples := randomTable(t, rng, 10, 6)

	results, err := Calculate(tab, samples)
	if err != nil {
		t.Fatal(err)
	}

	failures := 0
	for seed := int64(1); seed <= 20; seed++ {
		opts := DefaultBootstrapOptions()
		opts.Iterations = 1
		opts.Rand = rand.New(rand.NewSource(seed))

		intervals, err := Bootstrap(results, samples, opts)
		if err != nil {
			if !errors.Is(err, ErrIncompleteCoverage) {
				t.Fatalf("seed %d: expected ErrIncompleteCoverage, got %v", seed, err)
			}
			if intervals != nil {
				t.Errorf("seed %d: partial intervals returned with an error", seed)
			}
			failures++
			continue
		}
		if len(intervals) != len(results) {
			t.Errorf("seed %d: %d intervals for %d pairs", seed, len(intervals), len(results))
		}
	}

	if failures == 0 {
		t.Errorf("expected at least one single-iteration bootstrap to miss a pair")
	}
}

func TestBootstrapTwoSamples(t *testing.T) {
	tab := mustTable(t, []string{"f1", "f2"}, []string{"A", "B"}, [][]float64{{1, 1}, {1, 3}})
	samples := []string{"A", "B"}

	results, err := Calculate(tab, samples)
	if err != nil {
		t.Fatal(err)
	}

	opts := DefaultBootstrapOptions()
	opts.Iterations = 200
	opts.Rand = rand.New(rand.NewSource(3))
	intervals, err := Bootstrap(results, samples, opts)
	if err != nil {
		t.Fatal(err)
	}

	iv, ok := intervals[results[0].Pair]
	if !ok {
		t.Fatalf("no interval for %s", results[0].Pair)
	}
	if iv.N < 1 {
		t.Errorf("expected the pair to be resampled, got N=%d", iv.N)
	}
	d := results[0].Dissimilarity
	if math.Abs(iv.Lower-d) > 1e-12 || math.Abs(iv.Upper-d) > 1e-12 {
		t.Errorf("expected a degenerate band at %v, got [%v, %v]", d, iv.Lower, iv.Upper)
	}
}

func TestBootstrapBadOptions(t *testing.T) {
	results := []Result{{Pair: Pair{"A", "B"}}}
	samples := []string{"A", "B"}

	opts := DefaultBootstrapOptions()
	opts.Iterations = 0
	if _, err := Bootstrap(results, samples, opts); err == nil {
		t.Errorf("expected an error for zero iterations")
	}

	opts = DefaultBootstrapOptions()
	opts.LowerPercentile, opts.UpperPercentile = 90, 10
	if _, err := Bootstrap(results, samples, opts); err == nil {
		t.Errorf("expected an error for an inverted percentile range")
	}

	opts = DefaultBootstrapOptions()
	if _, err := Bootstrap(results, []string{"A", "B", "C"}, opts); !errors.Is(err, ErrIncompletePairs) {
		t.Errorf("expected ErrIncompletePairs, got %v", err)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	for _, c := range []struct {
		p, expected float64
	}{
		{0, 1},
		{3, 1.09},
		{50, 2.5},
		{97, 3.91},
		{100, 4},
	} {
		if got := Percentile(sorted, c.p); math.Abs(got-c.expected) > 1e-12 {
			t.Errorf("p=%v: expected %v, got %v", c.p, c.expected, got)
		}
	}

	if got := Percentile([]float64{7}, 3); got != 7 {
		t.Errorf("single value: expected 7, got %v", got)
	}
	if got := Percentile(nil, 50); !math.IsNaN(got) {
		t.Errorf("empty: expected NaN, got %v", got)
	}
}

func TestFitSortsByOverlap(t *testing.T) {
	results := []Result{
		{Pair: Pair{"A", "B"}, Overlap: 0.9, Dissimilarity: 0.1},
		{Pair: Pair{"A", "C"}, Overlap: 0.1, Dissimilarity: 0.9},
		{Pair: Pair{"B", "C"}, Overlap: 0.5, Dissimilarity: 0.5},
	}

	points, err := Fit(results, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !sort.SliceIsSorted(points, func(i, j int) bool { return points[i].Overlap < points[j].Overlap }) {
		t.Fatalf("points are not sorted by overlap: %+v", points)
	}
	for _, p := range points {
		if p.HasCI {
			t.Errorf("%s: unexpected interval", p.Pair)
		}
		// The three points are collinear, so the curve passes through them.
		if math.Abs(p.LOWESS-p.Dissimilarity) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", p.Pair, p.Dissimilarity, p.LOWESS)
		}
	}
	if r2 := RSquared(points); math.Abs(r2-1) > 1e-9 {
		t.Errorf("expected R² of 1, got %v", r2)
	}

	if _, err := Fit(results, 1, map[Pair]Interval{{"A", "B"}: {}}); !errors.Is(err, ErrIncompleteCoverage) {
		t.Errorf("expected ErrIncompleteCoverage for a missing interval, got %v", err)
	}
}

func TestBand(t *testing.T) {
	p := CurvePoint{LOWESS: 0.5, Lower: 0.6, Upper: 0.4}
	lo, hi := p.Band()
	if math.Abs(lo-0.4) > 1e-12 || math.Abs(hi-0.6) > 1e-12 {
		t.Errorf("expected band [0.4, 0.6], got [%v, %v]", lo, hi)
	}
}

func TestPolynomialResiduals(t *testing.T) {
	points := []CurvePoint{
		{Result: Result{Overlap: 0, Dissimilarity: 0}},
		{Result: Result{Overlap: 0.5, Dissimilarity: 1}},
		{Result: Result{Overlap: 1, Dissimilarity: 0}},
	}

	resid, err := PolynomialResiduals(points, 1)
	if err != nil {
		t.Fatal(err)
	}
	expected := []float64{-1.0 / 3, 2.0 / 3, -1.0 / 3}
	for i := range expected {
		if math.Abs(resid[i]-expected[i]) > 1e-9 {
			t.Errorf("order 1, point %d: expected %v, got %v", i, expected[i], resid[i])
		}
	}

	resid, err = PolynomialResiduals(points, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range resid {
		if math.Abs(r) > 1e-9 {
			t.Errorf("order 2, point %d: expected 0, got %v", i, r)
		}
	}

	if _, err := PolynomialResiduals(points, 3); err == nil {
		t.Errorf("expected an error when there are fewer points than coefficients")
	}
}

func TestAnalyze(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	tab, samples := randomTable(t, rng, 25, 7)

	analysis, err := Analyze(tab, samples, AnalysisOptions{
		Frac:      0.5,
		Bootstrap: true,
		BootstrapOptions: BootstrapOptions{
			Iterations:      300,
			LowerPercentile: 3,
			UpperPercentile: 97,
			Rand:            rand.New(rand.NewSource(2)),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(analysis.Points) != NumPairs(len(samples)) {
		t.Fatalf("expected %d points, got %d", NumPairs(len(samples)), len(analysis.Points))
	}
	for _, p := range analysis.Points {
		if !p.HasCI {
			t.Errorf("%s: missing interval", p.Pair)
		}
	}
	if math.IsNaN(analysis.RSquared) {
		t.Errorf("R² is NaN")
	}

	if _, err := Analyze(tab, samples[:1], AnalysisOptions{Frac: 0.5}); err == nil {
		t.Errorf("expected an error for a single sample")
	}
}
