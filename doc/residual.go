package doc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PolynomialResiduals fits Dissimilarity as a least-squares polynomial of the
// given order in Overlap and returns the residual of each point, in the
// order given.
func PolynomialResiduals(points []CurvePoint, order int) ([]float64, error) {
	x := make([]float64, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i] = p.Overlap
		y[i] = p.Dissimilarity
	}

	return polyResiduals(x, y, order)
}

func polyResiduals(x, y []float64, order int) ([]float64, error) {
	if order < 0 {
		return nil, fmt.Errorf("polynomial order must be non-negative, got %d", order)
	}
	n := len(x)
	if n < order+1 {
		return nil, fmt.Errorf("a polynomial of order %d needs at least %d points, got %d", order, order+1, n)
	}

	vandermonde := mat.NewDense(n, order+1, nil)
	for i, xi := range x {
		v := 1.0
		for j := 0; j <= order; j++ {
			vandermonde.Set(i, j, v)
			v *= xi
		}
	}

	var coef mat.VecDense
	if err := coef.SolveVec(vandermonde, mat.NewVecDense(n, append([]float64(nil), y...))); err != nil {
		return nil, fmt.Errorf("polynomial fit: %w", err)
	}

	var predicted mat.VecDense
	predicted.MulVec(vandermonde, &coef)

	out := make([]float64, n)
	for i := range out {
		out[i] = y[i] - predicted.AtVec(i)
	}

	return out, nil
}
