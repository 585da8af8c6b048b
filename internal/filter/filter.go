// Package filter removes the rows a detector flags as outliers from a training set.
package filter

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/go-sod/sodfilter/internal/detector"
	"github.com/go-sod/sodfilter/internal/logging"
)

// Mask holds one flag per training row, true keeps the row.
type Mask []bool

func (m Mask) Inliers() int {
	n := 0
	for _, keep := range m {
		if keep {
			n++
		}
	}
	return n
}

func (m Mask) Outliers() int {
	return len(m) - m.Inliers()
}

// Stage wraps a scorer with an expected outlier fraction. It keeps no state between calls.
type Stage struct {
	scorer   detector.Scorer
	fraction float64
}

func New(scorer detector.Scorer, fraction float64) (*Stage, error) {
	if scorer == nil {
		return nil, fmt.Errorf("%w: scorer is not set", detector.ErrConfig)
	}
	if err := detector.ValidateFraction(fraction); err != nil {
		return nil, err
	}
	return &Stage{scorer: scorer, fraction: fraction}, nil
}

func (s *Stage) Name() string {
	return s.scorer.Name()
}

func (s *Stage) Fraction() float64 {
	return s.fraction
}

// Mask fits the scorer on X and flags rows with a negative decision as outliers.
func (s *Stage) Mask(ctx context.Context, X mat.Matrix) (Mask, error) {
	if err := detector.ValidateFraction(s.fraction); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	decision, err := s.scorer.Decision(ctx, X, s.fraction)
	if err != nil {
		return nil, fmt.Errorf("%s decision: %w", s.scorer.Name(), err)
	}
	if len(decision) != rows {
		return nil, fmt.Errorf("%w: %s returned %d decisions for %d rows", detector.ErrFit, s.scorer.Name(), len(decision), rows)
	}
	mask := make(Mask, rows)
	for i, d := range decision {
		// a decision of exactly zero is an inlier for every strategy, one-class svm included
		mask[i] = d >= 0
	}
	return mask, nil
}

// Apply returns X and y without the outlier rows, in their original order.
func (s *Stage) Apply(ctx context.Context, X mat.Matrix, y []float64) (*mat.Dense, []float64, Mask, error) {
	logger := logging.FromContext(ctx)
	if err := detector.ValidateFraction(s.fraction); err != nil {
		return nil, nil, nil, err
	}
	if rows, _ := X.Dims(); rows != len(y) {
		return nil, nil, nil, fmt.Errorf("%w: %d feature rows and %d targets", detector.ErrConfig, rows, len(y))
	}

	mask, err := s.Mask(ctx, X)
	if err != nil {
		return nil, nil, nil, err
	}
	if mask.Inliers() == 0 {
		return nil, nil, nil, fmt.Errorf("%w: %s flagged every row", detector.ErrFit, s.scorer.Name())
	}
	filteredX, filteredY, err := ApplyMask(X, y, mask)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Debugw("outliers removed",
		"strategy", s.scorer.Name(),
		"fraction", s.fraction,
		"rows", len(mask),
		"outliers", mask.Outliers())
	return filteredX, filteredY, mask, nil
}

// ApplyMask copies the rows of X and y kept by mask.
func ApplyMask(X mat.Matrix, y []float64, mask Mask) (*mat.Dense, []float64, error) {
	rows, cols := X.Dims()
	if rows != len(mask) || rows != len(y) {
		return nil, nil, fmt.Errorf("%w: %d rows, %d targets, %d mask flags", detector.ErrConfig, rows, len(y), len(mask))
	}
	kept := mask.Inliers()
	if kept == 0 {
		return nil, nil, fmt.Errorf("%w: mask keeps no rows", detector.ErrFit)
	}
	filteredX := mat.NewDense(kept, cols, nil)
	filteredY := make([]float64, 0, kept)
	row := make([]float64, cols)
	for i, keep := range mask {
		if !keep {
			continue
		}
		mat.Row(row, i, X)
		filteredX.SetRow(len(filteredY), row)
		filteredY = append(filteredY, y[i])
	}
	return filteredX, filteredY, nil
}
