package domain

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SolveLinear solves J*x = b for x using a dense LU factorization. The
// network's symbolic sparsity pattern is used at assembly time (operator.go)
// to bucket conductors by kind and avoid touching unrelated rows; the actual
// factorization is dense (see DESIGN.md: no sparse direct solver appears
// anywhere in the reference corpus, and the node counts this domain targets
// make dense LU the pragmatic choice).
func SolveLinear(j *mat.Dense, b []float64) ([]float64, error) {
	n := len(b)
	var lu mat.LU
	lu.Factorize(j)

	bVec := mat.NewVecDense(n, b)
	xVec := mat.NewVecDense(n, nil)

	if err := lu.SolveVecTo(xVec, false, bVec); err != nil {
		return nil, InternalAssertion{What: "Jacobian factorization failed: " + err.Error()}
	}

	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = xVec.AtVec(i)
	}
	return x, nil
}

// InfNorm returns the max-absolute-value (L-infinity) norm of v.
func InfNorm(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		ax := x
		if ax < 0 {
			ax = -ax
		}
		if ax > m {
			m = ax
		}
	}
	return m
}

// TwoNorm returns the Euclidean (L2) norm of v.
func TwoNorm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
