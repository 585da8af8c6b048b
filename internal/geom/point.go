package geom

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Point is a single feature row.
type Point []float64

func NewPoint(vec []float64) Point {
	return vec
}

func (p Point) Dimensions() int {
	return len(p)
}

func (p Point) Dim(idx int) float64 {
	return p[idx]
}

func (p Point) Points() []float64 {
	return p
}

func (p Point) Equal(p1 Point) bool {
	return len(p) == len(p1) && floats.Equal(p, p1)
}

// RowsOf copies every row of m into its own Point.
func RowsOf(m mat.Matrix) []Point {
	r, c := m.Dims()
	points := make([]Point, r)
	for i := 0; i < r; i++ {
		points[i] = make(Point, c)
		mat.Row(points[i], i, m)
	}
	return points
}
