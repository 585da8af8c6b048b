// Package dataset loads regression datasets and splits them into train and test parts.
package dataset

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var ErrDataLoad = errors.New("data load error")

// Dataset is a feature matrix with one target value per row.
type Dataset struct {
	X *mat.Dense
	Y []float64
}

func New(X *mat.Dense, y []float64) (Dataset, error) {
	if X == nil || X.IsEmpty() {
		return Dataset{}, fmt.Errorf("%w: empty feature matrix", ErrDataLoad)
	}
	if rows, _ := X.Dims(); rows != len(y) {
		return Dataset{}, fmt.Errorf("%w: %d feature rows and %d targets", ErrDataLoad, rows, len(y))
	}
	return Dataset{X: X, Y: y}, nil
}

func (d Dataset) Rows() int {
	return len(d.Y)
}

func (d Dataset) Features() int {
	if d.X == nil || d.X.IsEmpty() {
		return 0
	}
	_, c := d.X.Dims()
	return c
}

func (d Dataset) Shape() (int, int) {
	return d.Rows(), d.Features()
}

// Subset copies the given rows into a new Dataset, keeping their order.
func (d Dataset) Subset(idx []int) Dataset {
	cols := d.Features()
	X := mat.NewDense(len(idx), cols, nil)
	y := make([]float64, len(idx))
	row := make([]float64, cols)
	for i, j := range idx {
		mat.Row(row, j, d.X)
		X.SetRow(i, row)
		y[i] = d.Y[j]
	}
	return Dataset{X: X, Y: y}
}
