package detector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrConfig reports an invalid detector or stage parameter. It is returned before fitting.
	ErrConfig = errors.New("invalid configuration")
	// ErrFit reports a detector that could not be fitted on the given data.
	ErrFit = errors.New("unable to fit")
)

const (
	MinFraction = 0.0
	MaxFraction = 0.5
)

type ProvideFn func() (Scorer, error)

// Scorer is a swappable outlier detection strategy.
type Scorer interface {
	Name() string
	// Decision fits the strategy on X and returns the decision function of every row of X.
	// Row i is an inlier iff the value is >= 0. fraction is the expected share of outliers.
	Decision(ctx context.Context, X mat.Matrix, fraction float64) ([]float64, error)
}

// ValidateFraction accepts fractions in (0, 0.5].
func ValidateFraction(fraction float64) error {
	if math.IsNaN(fraction) || fraction <= MinFraction || fraction > MaxFraction {
		return fmt.Errorf("%w: outlier fraction %v is outside (%v, %v]", ErrConfig, fraction, MinFraction, MaxFraction)
	}
	return nil
}

// ValidateMatrix rejects empty matrices and non finite values.
func ValidateMatrix(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return fmt.Errorf("%w: empty feature matrix %dx%d", ErrFit, r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := X.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non finite value at row %d column %d", ErrFit, i, j)
			}
		}
	}
	return nil
}

// Offset returns the 100*fraction percentile of scores, linearly interpolated between
// the closest ranks. Rows scoring below the offset are outliers.
func Offset(scores []float64, fraction float64) float64 {
	if len(scores) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	pos := fraction * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}

// DecisionFromScores subtracts the fraction offset from raw scores where higher means more normal.
func DecisionFromScores(scores []float64, fraction float64) []float64 {
	offset := Offset(scores, fraction)
	decision := make([]float64, len(scores))
	for i, s := range scores {
		decision[i] = s - offset
	}
	return decision
}
