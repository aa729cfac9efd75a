package doc

import (
	"fmt"
	"math"
	"sort"

	"github.com/carbocation/biomisc/lowess"
	"gonum.org/v1/gonum/stat"
)

// CurvePoint is one pair on the fitted curve. Lower and Upper are only
// meaningful when HasCI is set.
type CurvePoint struct {
	Result
	LOWESS float64
	Lower  float64
	Upper  float64
	HasCI  bool
}

// Band returns the plotted band around the central curve: the distance from
// the curve to each bootstrap bound, mirrored onto the curve.
func (c CurvePoint) Band() (lower, upper float64) {
	return c.LOWESS - math.Abs(c.LOWESS-c.Lower), c.LOWESS + math.Abs(c.Upper-c.LOWESS)
}

// Fit sorts results by Overlap and fits the central LOWESS curve of
// Dissimilarity on Overlap. When intervals is non-nil, every pair must have
// one.
func Fit(results []Result, frac float64, intervals map[Pair]Interval) ([]CurvePoint, error) {
	points := make([]CurvePoint, len(results))
	for i, r := range results {
		points[i] = CurvePoint{Result: r}
	}
	sort.SliceStable(points, func(a, b int) bool {
		return points[a].Overlap < points[b].Overlap
	})

	if len(points) == 0 {
		return points, nil
	}

	x := make([]float64, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i] = p.Overlap
		y[i] = p.Dissimilarity
	}

	smoothed, err := lowess.Fit(x, y, lowess.Options{Frac: frac, Iterations: 3, Sorted: true})
	if err != nil {
		return nil, err
	}

	for i := range points {
		points[i].LOWESS = smoothed[i]
		if intervals == nil {
			continue
		}
		iv, ok := intervals[points[i].Pair]
		if !ok {
			return nil, fmt.Errorf("%w: no interval for pair %s", ErrIncompleteCoverage, points[i].Pair)
		}
		points[i].Lower = iv.Lower
		points[i].Upper = iv.Upper
		points[i].HasCI = true
	}

	return points, nil
}

// RSquared is the coefficient of determination of the LOWESS values as
// predictions of the observed Dissimilarity.
func RSquared(points []CurvePoint) float64 {
	if len(points) == 0 {
		return math.NaN()
	}

	estimates := make([]float64, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		estimates[i] = p.LOWESS
		values[i] = p.Dissimilarity
	}

	return stat.RSquaredFrom(estimates, values, nil)
}
