package regression

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNotFitted   = errors.New("model is not fitted")
	ErrDimMismatch = errors.New("dimension mismatch")
	ErrEmpty       = errors.New("empty input")
)

// singular values below rcond times the largest one are treated as zero
const rcond = 1e-12

// LinearRegression is ordinary least squares with an intercept. Rank deficient
// designs get the minimum norm solution.
type LinearRegression struct {
	coef      []float64
	intercept float64
	fitted    bool
}

func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

func (m *LinearRegression) Fit(X mat.Matrix, y []float64) error {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return fmt.Errorf("fit: %w", ErrEmpty)
	}
	if n != len(y) {
		return fmt.Errorf("fit: %d rows and %d targets: %w", n, len(y), ErrDimMismatch)
	}

	xMean := make([]float64, p)
	col := make([]float64, n)
	centered := mat.NewDense(n, p, nil)
	for j := 0; j < p; j++ {
		mat.Col(col, j, X)
		xMean[j] = stat.Mean(col, nil)
		floats.AddConst(-xMean[j], col)
		centered.SetCol(j, col)
	}
	yMean := stat.Mean(y, nil)
	yc := make([]float64, n)
	copy(yc, y)
	floats.AddConst(-yMean, yc)

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return fmt.Errorf("fit: singular value decomposition failed")
	}
	rank := svd.Rank(rcond)

	var coef mat.Dense
	if rank == 0 {
		coef = *mat.NewDense(p, 1, nil)
	} else {
		svd.SolveTo(&coef, mat.NewDense(n, 1, yc), rank)
	}

	m.coef = mat.Col(nil, 0, &coef)
	m.intercept = yMean - floats.Dot(xMean, m.coef)
	m.fitted = true
	return nil
}

func (m *LinearRegression) Predict(X mat.Matrix) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	n, p := X.Dims()
	if p != len(m.coef) {
		return nil, fmt.Errorf("predict: %d features, model has %d: %w", p, len(m.coef), ErrDimMismatch)
	}
	pred := make([]float64, n)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		pred[i] = floats.Dot(row, m.coef) + m.intercept
	}
	return pred, nil
}

func (m *LinearRegression) Coef() []float64 {
	return append([]float64(nil), m.coef...)
}

func (m *LinearRegression) Intercept() float64 {
	return m.intercept
}
