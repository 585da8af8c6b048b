package kd

import (
	"errors"
	"fmt"

	"github.com/go-sod/sodfilter/internal/detector/knn"
	"github.com/go-sod/sodfilter/internal/geom"
	"github.com/go-sod/sodfilter/pkg/container/kdtree"
)

var _ knn.Alg = (*kd)(nil)

type indexed struct {
	geom.Point
	idx int
}

func NewKDAlg(distFn geom.DistanceFn) *kd {
	return &kd{distFn: distFn, tree: kdtree.New[indexed](distFn)}
}

type kd struct {
	tree   *kdtree.Tree[indexed]
	distFn geom.DistanceFn
}

func (b *kd) Build(points ...geom.Point) {
	items := make([]indexed, len(points))
	for i := range points {
		items[i] = indexed{Point: points[i], idx: i}
	}
	b.tree = kdtree.New[indexed](b.distFn)
	b.tree.Build(items...)
}

func (b *kd) Len() int {
	return b.tree.Len()
}

func (b *kd) KNN(p geom.Point, k int) ([]knn.Neighbor, error) {
	if b.tree.Len() == 0 {
		return nil, nil
	}
	nn, err := b.tree.KNN(indexed{Point: p, idx: -1}, k)
	if err != nil {
		if errors.Is(err, kdtree.ErrEmptyQuery) {
			return nil, fmt.Errorf("k must be positive, got %d", k)
		}
		return nil, fmt.Errorf("kd knn: %w", err)
	}
	result := make([]knn.Neighbor, len(nn))
	for i := range nn {
		result[i] = knn.Neighbor{Index: nn[i].Point.idx, Distance: nn[i].Distance}
	}
	return result, nil
}
