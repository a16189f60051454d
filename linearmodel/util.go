package linearmodel

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// withIntercept prepends a constant 1.0 column to x
func withIntercept(x mat.Matrix) mat.Matrix {
	m, _ := x.Dims()
	ones := make([]float64, m)
	floats.AddConst(1.0, ones)
	onesMx := mat.NewDense(1, m, ones)

	var xWithOnes mat.Dense
	xWithOnes.Stack(onesMx, x.T())
	return xWithOnes.T()
}

// withRidgeRows appends sqrt(lambda)*I rows below x and zeros below y so that the least squares
// solution of the augmented system minimizes ||y - xb||^2 + lambda*||b||^2. The first skip
// columns are left unpenalized.
func withRidgeRows(x, y mat.Matrix, lambda float64, skip int) (mat.Matrix, mat.Matrix) {
	m, n := x.Dims()
	p := n - skip
	if p <= 0 || lambda == 0 {
		return x, y
	}

	xAug := mat.NewDense(m+p, n, nil)
	xAug.Slice(0, m, 0, n).(*mat.Dense).Copy(x)

	penalty := math.Sqrt(lambda)
	for i := 0; i < p; i++ {
		xAug.Set(m+i, skip+i, penalty)
	}

	yAug := mat.NewDense(m+p, 1, nil)
	yAug.Slice(0, m, 0, 1).(*mat.Dense).Copy(y)
	return xAug, yAug
}
