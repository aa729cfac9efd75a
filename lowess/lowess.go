// Package lowess implements Cleveland's locally weighted scatterplot
// smoothing with tricube neighbourhood weights and bisquare robustifying
// iterations. Results match statsmodels' lowess for finite input.
package lowess

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

type Options struct {
	// Frac is the fraction of points used for each local regression.
	Frac float64

	// Iterations is the number of robustifying passes after the first fit.
	// Negative means the default of 3.
	Iterations int

	// Delta skips the local regression for points within Delta of the last
	// fitted point and interpolates linearly instead. 0 fits every point.
	Delta float64

	// Sorted declares that x is already in non-decreasing order.
	Sorted bool
}

// DefaultOptions mirrors statsmodels' defaults.
func DefaultOptions() Options {
	return Options{Frac: 2.0 / 3.0, Iterations: 3}
}

// Fit returns one smoothed y value per input point, in input order.
func Fit(x, y []float64, opts Options) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("lowess: x has %d values but y has %d", len(x), len(y))
	}
	if opts.Frac <= 0 || opts.Frac > 1 || math.IsNaN(opts.Frac) {
		return nil, fmt.Errorf("lowess: frac must be in (0, 1], got %v", opts.Frac)
	}
	if opts.Delta < 0 {
		return nil, fmt.Errorf("lowess: delta must be non-negative, got %v", opts.Delta)
	}
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) || math.IsInf(x[i], 0) || math.IsInf(y[i], 0) {
			return nil, fmt.Errorf("lowess: point %d (%v, %v) is not finite", i, x[i], y[i])
		}
	}

	iterations := opts.Iterations
	if iterations < 0 {
		iterations = 3
	}

	n := len(x)
	if n == 0 {
		return []float64{}, nil
	}

	if opts.Sorted {
		for i := 1; i < n; i++ {
			if x[i] < x[i-1] {
				return nil, fmt.Errorf("lowess: x is declared sorted but x[%d]=%v < x[%d]=%v", i, x[i], i-1, x[i-1])
			}
		}
		return fitSorted(x, y, opts.Frac, iterations, opts.Delta), nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return x[order[a]] < x[order[b]] })

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, j := range order {
		xs[i] = x[j]
		ys[i] = y[j]
	}

	fitted := fitSorted(xs, ys, opts.Frac, iterations, opts.Delta)

	out := make([]float64, n)
	for i, j := range order {
		out[j] = fitted[i]
	}

	return out, nil
}

func fitSorted(x, y []float64, frac float64, iterations int, delta float64) []float64 {
	n := len(x)
	if n == 1 {
		return []float64{y[0]}
	}

	k := int(frac*float64(n) + 1e-10)
	if k < 2 {
		k = 2
	}
	if k > n {
		k = n
	}

	yFit := make([]float64, n)
	weights := make([]float64, n)
	residWeights := make([]float64, n)
	for i := range residWeights {
		residWeights[i] = 1
	}

	for iter := 0; iter <= iterations; iter++ {
		for i := range yFit {
			yFit[i] = 0
		}

		i, lastFit := 0, -1
		left, right := 0, k
		for {
			left, right = updateNeighborhood(x, i, left, right)
			radius := math.Max(x[i]-x[left], x[right-1]-x[i])

			if calculateWeights(x, weights, residWeights, i, left, right, radius) {
				yFit[i] = localFit(x, y, weights, i, left, right)
			} else {
				yFit[i] = y[i]
			}

			if lastFit < i-1 {
				interpolateSkipped(x, yFit, lastFit, i)
			}

			i, lastFit = updateIndices(x, yFit, delta, i, lastFit)
			if lastFit >= n-1 {
				break
			}
		}

		if iter < iterations {
			updateResidualWeights(y, yFit, residWeights)
		}
	}

	return yFit
}

// updateNeighborhood slides the k-wide window [left, right) so that it holds
// the k points nearest x[i].
func updateNeighborhood(x []float64, i, left, right int) (int, int) {
	for right < len(x) && x[i] > (x[left]+x[right])/2.0 {
		left++
		right++
	}

	return left, right
}

// calculateWeights fills weights[left:right] with normalized tricube weights
// scaled by the robustness weights. It reports whether a regression is
// possible.
func calculateWeights(x, weights, residWeights []float64, i, left, right int, radius float64) bool {
	sum := 0.0
	nonZero := 0
	for j := left; j < right; j++ {
		d := 0.0
		if radius > 0 {
			d = math.Abs(x[j]-x[i]) / radius
		}
		w := 1 - d*d*d
		w = w * w * w
		if w < 0 {
			w = 0
		}
		w *= residWeights[j]
		weights[j] = w
		sum += w
		if w != 0 {
			nonZero++
		}
	}

	if sum <= 0 || nonZero == 1 {
		return false
	}

	for j := left; j < right; j++ {
		weights[j] /= sum
	}

	return true
}

// localFit evaluates the weighted least-squares line through the window at
// x[i]. When the window has no spread in x the weighted mean is used.
func localFit(x, y, weights []float64, i, left, right int) float64 {
	xw := x[left:right]
	yw := y[left:right]
	ww := weights[left:right]

	meanX := 0.0
	for j := range xw {
		meanX += ww[j] * xw[j]
	}
	sqDev := 0.0
	for j := range xw {
		sqDev += ww[j] * (xw[j] - meanX) * (xw[j] - meanX)
	}

	if sqDev <= 1e-14*math.Max(1, meanX*meanX) {
		return stat.Mean(yw, ww)
	}

	// gonum's weighted variance divides by sum(w)-1, so rescale the
	// normalized weights to sum to the window size.
	scaled := make([]float64, len(ww))
	for j, w := range ww {
		scaled[j] = w * float64(len(ww))
	}
	alpha, beta := stat.LinearRegression(xw, yw, scaled, false)

	return alpha + beta*x[i]
}

// updateIndices copies fits to repeated x values, skips ahead over points
// within delta, and returns the next point to fit along with the last fitted
// index.
func updateIndices(x, yFit []float64, delta float64, i, lastFit int) (int, int) {
	n := len(x)
	lastFit = i
	cutpoint := x[i] + delta

	// k ends on the first point beyond cutpoint, or on the final point
	k := lastFit
	for j := lastFit + 1; j < n; j++ {
		k = j
		if x[j] > cutpoint {
			break
		}
		if x[j] == x[i] {
			yFit[j] = yFit[i]
			lastFit = j
		}
	}

	next := k - 1
	if next < lastFit+1 {
		next = lastFit + 1
	}

	return next, lastFit
}

// interpolateSkipped linearly fills yFit strictly between lastFit and i.
func interpolateSkipped(x, yFit []float64, lastFit, i int) {
	if lastFit < 0 {
		return
	}

	x0, x1 := x[lastFit], x[i]
	y0, y1 := yFit[lastFit], yFit[i]
	for j := lastFit + 1; j < i; j++ {
		if x1 == x0 {
			yFit[j] = y0
			continue
		}
		alpha := (x[j] - x0) / (x1 - x0)
		yFit[j] = alpha*y1 + (1-alpha)*y0
	}
}

// updateResidualWeights computes bisquare robustness weights from the
// residuals of the current fit.
func updateResidualWeights(y, yFit, residWeights []float64) {
	resid := make([]float64, len(y))
	for i := range y {
		resid[i] = math.Abs(y[i] - yFit[i])
	}

	median := Median(resid)

	for i, r := range resid {
		var u float64
		if median == 0 {
			if r > 0 {
				u = 1
			}
		} else {
			u = r / (6 * median)
		}

		if u >= 1 {
			u = 1
		} else if u <= 0.001 {
			u = 0
		}

		b := 1 - u*u
		residWeights[i] = b * b
	}
}

// Median returns the median of v, averaging the two middle values when the
// length is even. v is not modified.
func Median(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}

	s := append([]float64(nil), v...)
	sort.Float64s(s)

	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}

	return (s[mid-1] + s[mid]) / 2
}
