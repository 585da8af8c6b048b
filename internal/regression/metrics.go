package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func MeanAbsoluteError(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	return floats.Distance(yTrue, yPred, 1) / float64(len(yTrue)), nil
}

func MeanSquaredError(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	d := floats.Distance(yTrue, yPred, 2)
	return d * d / float64(len(yTrue)), nil
}

func RootMeanSquaredError(yTrue, yPred []float64) (float64, error) {
	mse, err := MeanSquaredError(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// R2 is the coefficient of determination, 0 for a constant target.
func R2(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	if stat.Variance(yTrue, nil) == 0 || len(yTrue) < 2 {
		return 0, nil
	}
	return stat.RSquaredFrom(yPred, yTrue, nil), nil
}

func checkPair(yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return ErrEmpty
	}
	if len(yTrue) != len(yPred) {
		return fmt.Errorf("%d targets and %d predictions: %w", len(yTrue), len(yPred), ErrDimMismatch)
	}
	return nil
}
