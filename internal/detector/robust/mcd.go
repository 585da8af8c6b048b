package robust

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/go-sod/sodfilter/internal/detector"
)

const (
	// supports kept after the first two concentration steps
	bestCandidates = 10
	maxCSteps      = 30
)

// estimate is a location and scatter pair with the Cholesky factor of the scatter.
type estimate struct {
	support  []int
	location *mat.VecDense
	cov      *mat.SymDense
	chol     *mat.Cholesky
	logDet   float64
}

func newEstimate(X mat.Matrix, support []int) (*estimate, error) {
	sub := rowsOf(X, support)
	_, p := sub.Dims()

	location := mat.NewVecDense(p, nil)
	col := make([]float64, len(support))
	for j := 0; j < p; j++ {
		mat.Col(col, j, sub)
		location.SetVec(j, stat.Mean(col, nil))
	}

	cov := mat.NewSymDense(p, nil)
	stat.CovarianceMatrix(cov, sub, nil)
	return withCovariance(support, location, cov)
}

func withCovariance(support []int, location *mat.VecDense, cov *mat.SymDense) (*estimate, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, fmt.Errorf("%w: covariance matrix is singular", detector.ErrFit)
	}
	return &estimate{
		support:  support,
		location: location,
		cov:      cov,
		chol:     &chol,
		logDet:   chol.LogDet(),
	}, nil
}

// mahalanobis returns squared distances of every row of X to the estimate.
func (e *estimate) mahalanobis(X mat.Matrix) []float64 {
	n, p := X.Dims()
	diff := mat.NewVecDense(p, nil)
	solved := mat.NewVecDense(p, nil)
	dist := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			diff.SetVec(j, X.At(i, j)-e.location.AtVec(j))
		}
		if err := e.chol.SolveVecTo(solved, diff); err != nil {
			dist[i] = math.Inf(1)
			continue
		}
		dist[i] = mat.Dot(diff, solved)
	}
	return dist
}

// cStep moves the support to the h rows closest to the current estimate.
func (e *estimate) cStep(X mat.Matrix, h int) (*estimate, error) {
	dist := e.mahalanobis(X)
	idx := make([]int, len(dist))
	floats.Argsort(dist, idx)
	support := append([]int(nil), idx[:h]...)
	sort.Ints(support)
	return newEstimate(X, support)
}

// concentrate runs at most steps C-steps, stopping once the determinant stops decreasing.
func concentrate(X mat.Matrix, e *estimate, h, steps int) *estimate {
	for i := 0; i < steps; i++ {
		next, err := e.cStep(X, h)
		if err != nil || next.logDet >= e.logDet {
			return e
		}
		e = next
	}
	return e
}

// fastMCD searches the h-subset with the lowest covariance determinant.
func fastMCD(X mat.Matrix, h, trials int, rnd *rand.Rand) (*estimate, error) {
	n, _ := X.Dims()
	candidates := make([]*estimate, 0, trials)
	for t := 0; t < trials; t++ {
		support := rnd.Perm(n)[:h]
		sort.Ints(support)
		e, err := newEstimate(X, support)
		if err != nil {
			continue
		}
		candidates = append(candidates, concentrate(X, e, h, 2))
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: every initial support has a singular covariance", detector.ErrFit)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].logDet < candidates[j].logDet
	})
	if len(candidates) > bestCandidates {
		candidates = candidates[:bestCandidates]
	}

	best := candidates[0]
	for _, c := range candidates {
		c = concentrate(X, c, h, maxCSteps)
		if c.logDet < best.logDet {
			best = c
		}
	}
	return best, nil
}

func rowsOf(X mat.Matrix, rows []int) *mat.Dense {
	_, p := X.Dims()
	sub := mat.NewDense(len(rows), p, nil)
	for i, r := range rows {
		for j := 0; j < p; j++ {
			sub.Set(i, j, X.At(r, j))
		}
	}
	return sub
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
