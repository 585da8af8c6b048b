package geom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var ErrDimNotEqual = errors.New("vectors dimension is not equal")

// DistanceFn measures the distance between two rows of equal dimension.
type DistanceFn func(vec, vec1 []float64) (float64, error)

type DistanceFuncType string

const (
	DistanceFuncTypeEuclidean DistanceFuncType = "EUCLIDEAN"
	DistanceFuncTypeChebyshev DistanceFuncType = "CHEBYSHEV"
	DistanceFuncTypeManhattan DistanceFuncType = "MANHATTAN"
)

func DistanceFuncFor(d DistanceFuncType) (DistanceFn, error) {
	switch d {
	case DistanceFuncTypeEuclidean:
		return EuclideanDistance, nil
	case DistanceFuncTypeChebyshev:
		return ChebyshevDistance, nil
	case DistanceFuncTypeManhattan:
		return ManhattanDistance, nil
	default:
		return nil, fmt.Errorf("unknown distance function: %s", d)
	}
}

func EuclideanDistance(vec, vec1 []float64) (float64, error) {
	return lNorm(vec, vec1, 2)
}

func ChebyshevDistance(vec, vec1 []float64) (float64, error) {
	return lNorm(vec, vec1, math.Inf(1))
}

func ManhattanDistance(vec, vec1 []float64) (float64, error) {
	return lNorm(vec, vec1, 1)
}

// SquaredEuclideanDistance skips the square root, it keeps the ordering of EuclideanDistance.
func SquaredEuclideanDistance(vec, vec1 []float64) (float64, error) {
	if len(vec) != len(vec1) {
		return 0.0, ErrDimNotEqual
	}
	var d float64
	for i := range vec {
		diff := vec[i] - vec1[i]
		d += diff * diff
	}
	return d, nil
}

func lNorm(vec, vec1 []float64, l float64) (float64, error) {
	if len(vec) != len(vec1) {
		return 0.0, ErrDimNotEqual
	}
	if len(vec) == 0 {
		return 0.0, nil
	}
	return floats.Distance(vec, vec1, l), nil
}
