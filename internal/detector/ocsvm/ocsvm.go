// Package ocsvm implements the one-class support vector machine with an RBF kernel.
//
// The dual problem
//
//	min ½ αᵀKα   subject to 0 ≤ αᵢ ≤ 1, Σαᵢ = ν·n
//
// is solved by sequential minimal optimisation over the maximal violating pair.
// The fraction passed to Decision is ν, an upper bound on the share of training
// rows left outside the boundary.
package ocsvm

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/go-sod/sodfilter/internal/detector"
	"github.com/go-sod/sodfilter/internal/geom"
	"github.com/go-sod/sodfilter/internal/logging"
)

var _ detector.Scorer = (*svm)(nil)

const (
	DefaultTolerance = 1e-3
	DefaultMaxIter   = 1000000
	tau              = 1e-12
	// how often the solver checks for cancellation
	ctxCheckEvery = 1000
)

type Option func(*svm)

// WithGamma fixes the kernel coefficient, 0 keeps the scale heuristic.
func WithGamma(g float64) Option {
	return func(s *svm) {
		s.opts.gamma = g
	}
}

func WithTolerance(tol float64) Option {
	return func(s *svm) {
		s.opts.tolerance = tol
	}
}

func WithMaxIter(n int) Option {
	return func(s *svm) {
		s.opts.maxIter = n
	}
}

type Options struct {
	gamma     float64
	tolerance float64
	maxIter   int
}

func New(opts ...Option) (*svm, error) {
	s := &svm{opts: Options{tolerance: DefaultTolerance, maxIter: DefaultMaxIter}}
	for _, opt := range opts {
		opt(s)
	}
	if s.opts.gamma < 0 {
		return nil, fmt.Errorf("%w: gamma must not be negative, got %v", detector.ErrConfig, s.opts.gamma)
	}
	if s.opts.tolerance <= 0 {
		return nil, fmt.Errorf("%w: tolerance must be positive, got %v", detector.ErrConfig, s.opts.tolerance)
	}
	if s.opts.maxIter < 1 {
		return nil, fmt.Errorf("%w: max iterations must be positive, got %d", detector.ErrConfig, s.opts.maxIter)
	}
	return s, nil
}

type svm struct {
	opts Options
}

// Model is a fitted one-class boundary.
type Model struct {
	Gamma   float64
	Rho     float64
	Alpha   []float64
	Support []geom.Point
	Iter    int
}

// Decision returns Σ αⱼ K(xⱼ, x) - ρ for a new row.
func (m *Model) Decision(x geom.Point) (float64, error) {
	var sum float64
	for i, sv := range m.Support {
		d, err := geom.SquaredEuclideanDistance(sv, x)
		if err != nil {
			return 0, err
		}
		sum += m.Alpha[i] * math.Exp(-m.Gamma*d)
	}
	return sum - m.Rho, nil
}

func (s *svm) Name() string {
	return string(detector.AlgTypeOneClassSVM)
}

func (s *svm) Decision(ctx context.Context, X mat.Matrix, nu float64) ([]float64, error) {
	if err := detector.ValidateFraction(nu); err != nil {
		return nil, err
	}
	_, decision, err := s.fit(ctx, X, nu)
	if err != nil {
		return nil, err
	}
	return decision, nil
}

// Fit solves the dual problem and keeps the rows with a positive multiplier.
func (s *svm) Fit(ctx context.Context, X mat.Matrix, nu float64) (*Model, error) {
	if err := detector.ValidateFraction(nu); err != nil {
		return nil, err
	}
	model, _, err := s.fit(ctx, X, nu)
	return model, err
}

func (s *svm) fit(ctx context.Context, X mat.Matrix, nu float64) (*Model, []float64, error) {
	logger := logging.FromContext(ctx)
	if err := detector.ValidateMatrix(X); err != nil {
		return nil, nil, err
	}
	points := geom.RowsOf(X)
	n := len(points)

	gamma := s.opts.gamma
	if gamma == 0 {
		gamma = scaleGamma(X)
	}
	K := kernel(points, gamma)

	alpha := initialAlpha(n, nu)
	grad := make([]float64, n)
	for i := 0; i < n; i++ {
		if alpha[i] == 0 {
			continue
		}
		for t := 0; t < n; t++ {
			grad[t] += alpha[i] * K.At(i, t)
		}
	}

	iter := 0
	for ; iter < s.opts.maxIter; iter++ {
		if iter%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		i, j, ok := selectWorkingSet(K, alpha, grad, s.opts.tolerance)
		if !ok {
			break
		}
		update(K, alpha, grad, i, j)
	}
	if iter == s.opts.maxIter {
		return nil, nil, fmt.Errorf("%w: one-class svm did not converge in %d iterations", detector.ErrFit, iter)
	}

	rho := computeRho(alpha, grad)
	model := &Model{Gamma: gamma, Rho: rho, Iter: iter}
	decision := make([]float64, n)
	for t := 0; t < n; t++ {
		decision[t] = grad[t] - rho
		if alpha[t] > 0 {
			model.Alpha = append(model.Alpha, alpha[t])
			model.Support = append(model.Support, points[t])
		}
	}
	logger.Debugf("ocsvm: converged in %d iterations, %d support vectors, rho %f", iter, len(model.Support), rho)
	return model, decision, nil
}

// scaleGamma is 1/(features * Var(X)) over every entry of X.
func scaleGamma(X mat.Matrix) float64 {
	r, c := X.Dims()
	values := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			values = append(values, X.At(i, j))
		}
	}
	_, variance := stat.PopMeanVariance(values, nil)
	if variance == 0 {
		return 1
	}
	return 1 / (float64(c) * variance)
}

func kernel(points []geom.Point, gamma float64) *mat.SymDense {
	n := len(points)
	K := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		K.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			d, _ := geom.SquaredEuclideanDistance(points[i], points[j])
			K.SetSym(i, j, math.Exp(-gamma*d))
		}
	}
	return K
}

// initialAlpha fills the first ν·n multipliers so the equality constraint holds.
func initialAlpha(n int, nu float64) []float64 {
	alpha := make([]float64, n)
	total := nu * float64(n)
	full := int(total)
	for i := 0; i < full && i < n; i++ {
		alpha[i] = 1
	}
	if full < n {
		alpha[full] = total - float64(full)
	}
	return alpha
}

// selectWorkingSet picks i with the largest -∇ among rows that may grow and j by
// second order gain among rows that may shrink. ok is false once the KKT gap is below tol.
func selectWorkingSet(K *mat.SymDense, alpha, grad []float64, tol float64) (int, int, bool) {
	gMax, i := math.Inf(-1), -1
	for t := range alpha {
		if alpha[t] < 1 && -grad[t] >= gMax {
			gMax, i = -grad[t], t
		}
	}
	if i < 0 {
		return 0, 0, false
	}

	gMax2 := math.Inf(-1)
	objMin, j := math.Inf(1), -1
	for t := range alpha {
		if alpha[t] <= 0 {
			continue
		}
		if grad[t] > gMax2 {
			gMax2 = grad[t]
		}
		diff := gMax + grad[t]
		if diff <= 0 {
			continue
		}
		quad := K.At(i, i) + K.At(t, t) - 2*K.At(i, t)
		if quad <= 0 {
			quad = tau
		}
		if obj := -(diff * diff) / quad; obj <= objMin {
			objMin, j = obj, t
		}
	}
	if j < 0 || gMax+gMax2 < tol {
		return 0, 0, false
	}
	return i, j, true
}

// update moves mass between alpha[i] and alpha[j] keeping their sum and the box constraint.
func update(K *mat.SymDense, alpha, grad []float64, i, j int) {
	quad := K.At(i, i) + K.At(j, j) - 2*K.At(i, j)
	if quad <= 0 {
		quad = tau
	}
	oldI, oldJ := alpha[i], alpha[j]
	delta := (grad[i] - grad[j]) / quad
	sum := oldI + oldJ
	alpha[i] -= delta
	alpha[j] += delta

	if sum > 1 {
		if alpha[i] > 1 {
			alpha[i], alpha[j] = 1, sum-1
		}
	} else if alpha[j] < 0 {
		alpha[i], alpha[j] = sum, 0
	}
	if sum > 1 {
		if alpha[j] > 1 {
			alpha[i], alpha[j] = sum-1, 1
		}
	} else if alpha[i] < 0 {
		alpha[i], alpha[j] = 0, sum
	}

	dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
	for t := range grad {
		grad[t] += K.At(t, i)*dI + K.At(t, j)*dJ
	}
}

// computeRho averages the gradient over free multipliers, falling back to the middle of the feasible interval.
func computeRho(alpha, grad []float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var sumFree float64
	free := 0
	for t := range alpha {
		switch {
		case alpha[t] >= 1:
			lb = math.Max(lb, grad[t])
		case alpha[t] <= 0:
			ub = math.Min(ub, grad[t])
		default:
			free++
			sumFree += grad[t]
		}
	}
	if free > 0 {
		return sumFree / float64(free)
	}
	return (ub + lb) / 2
}
