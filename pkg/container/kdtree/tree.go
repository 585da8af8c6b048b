/*
 * Copyright 2020 Dennis Kuhnert
 * Copyright 2020 Ivanov Nikita
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */
package kdtree

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-sod/sodfilter/pkg/pqueue"
)

var ErrEmptyQuery = errors.New("root is nil or k is 0")

type Point interface {
	Dim(idx int) float64
	Dimensions() int
	Points() []float64
}

// Neighbor is a KNN result. Distance is measured with the tree distance function.
type Neighbor[P Point] struct {
	Point    P
	Distance float64
}

// The distance function must be an Lp norm or any metric that bounds the per-axis difference,
// otherwise pruning drops valid neighbours.
func New[P Point](distFn func(vec, vec1 []float64) (float64, error)) *Tree[P] {
	return &Tree[P]{distFn: distFn}
}

type Tree[P Point] struct {
	root   *node[P]
	len    int
	distFn func(vec, vec1 []float64) (float64, error)
}

func (t *Tree[P]) Build(points ...P) {
	sorted := make([]P, len(points))
	copy(sorted, points)
	t.len = len(sorted)
	t.root = buildTreeRecursive(sorted, 0)
}

func (t *Tree[P]) Len() int {
	return t.len
}

// KNN returns up to k nearest points ordered by ascending distance.
func (t *Tree[P]) KNN(p P, k int) ([]Neighbor[P], error) {
	if t.root == nil || k <= 0 {
		return nil, ErrEmptyQuery
	}

	queue := pqueue.New[Neighbor[P]](pqueue.WithCap(uint(k)))
	if err := t.knn(p, k, t.root, 0, queue); err != nil {
		return nil, err
	}

	return queue.PopAll(), nil
}

type step[P Point] struct {
	node *node[P]
	dim  int
}

func (t *Tree[P]) knn(p P, k int, first *node[P], dim int, queue *pqueue.Queue[Neighbor[P]]) error {
	if first == nil {
		return nil
	}

	dims := p.Dimensions()
	var path []step[P]
	for current := first; current != nil; dim = (dim + 1) % dims {
		path = append(path, step[P]{node: current, dim: dim})
		if p.Dim(dim) < current.Key.Dim(dim) {
			current = current.Left
		} else {
			current = current.Right
		}
	}

	for i := len(path) - 1; i >= 0; i-- {
		current, d := path[i].node, path[i].dim
		distance, err := t.distFn(p.Points(), current.Key.Points())
		if err != nil {
			return fmt.Errorf("compute knn error: %w", err)
		}
		if distance < kthDistance(queue, k) {
			queue.Push(Neighbor[P]{Point: current.Key, Distance: distance}, distance)
		}

		if math.Abs(p.Dim(d)-current.Key.Dim(d)) < kthDistance(queue, k) {
			next := current.Left
			if p.Dim(d) < current.Key.Dim(d) {
				next = current.Right
			}
			if err := t.knn(p, k, next, (d+1)%dims, queue); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildTreeRecursive[P Point](points []P, dim int) *node[P] {
	if len(points) == 0 {
		return nil
	}
	if len(points) == 1 {
		return &node[P]{Key: points[0]}
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Dim(dim) < points[j].Dim(dim)
	})
	mid := len(points) / 2
	// equal keys must go right to match the search descent
	for mid > 0 && points[mid-1].Dim(dim) == points[mid].Dim(dim) {
		mid--
	}
	root := points[mid]
	nextDim := (dim + 1) % root.Dimensions()
	return &node[P]{
		Key:   root,
		Left:  buildTreeRecursive(points[:mid], nextDim),
		Right: buildTreeRecursive(points[mid+1:], nextDim),
	}
}

func kthDistance[P Point](queue *pqueue.Queue[Neighbor[P]], k int) float64 {
	if queue.Len() < k {
		return math.Inf(1)
	}
	_, distance := queue.Seek(k - 1)
	return distance
}
