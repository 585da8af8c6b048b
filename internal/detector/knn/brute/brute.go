package brute

import (
	"fmt"

	"github.com/go-sod/sodfilter/internal/detector/knn"
	"github.com/go-sod/sodfilter/internal/geom"
	"github.com/go-sod/sodfilter/pkg/pqueue"
)

var _ knn.Alg = (*brute)(nil)

func NewBruteAlg(distFn geom.DistanceFn) *brute {
	return &brute{distFunc: distFn}
}

type brute struct {
	data     []geom.Point
	distFunc geom.DistanceFn
}

func (b *brute) Build(points ...geom.Point) {
	b.data = make([]geom.Point, len(points))
	copy(b.data, points)
}

func (b *brute) Len() int {
	return len(b.data)
}

func (b *brute) KNN(p geom.Point, k int) ([]knn.Neighbor, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	pq := pqueue.New[knn.Neighbor](pqueue.WithCap(uint(k)))
	for i, item := range b.data {
		distance, err := b.distFunc(p.Points(), item.Points())
		if err != nil {
			return nil, fmt.Errorf("unable to compute distance between %v and %v: %w", p, item, err)
		}
		pq.Push(knn.Neighbor{Index: i, Distance: distance}, distance)
	}
	return pq.PopAll(), nil
}
