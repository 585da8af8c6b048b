package knn

import "github.com/go-sod/sodfilter/internal/geom"

// Neighbor references a built point by its position in Build.
type Neighbor struct {
	Index    int
	Distance float64
}

// Alg is a nearest neighbours index over a fixed set of points.
type Alg interface {
	Build(points ...geom.Point)
	Len() int
	// KNN returns up to k neighbours of p ordered by ascending distance.
	KNN(p geom.Point, k int) ([]Neighbor, error)
}
