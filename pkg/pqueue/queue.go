package pqueue

import "sort"

// WithCap bounds the queue, the lowest priority items are dropped on overflow.
func WithCap(size uint) Option {
	return func(o *options) {
		o.cap = int(size)
	}
}

type Option func(*options)

type options struct {
	cap int
}

type item[T any] struct {
	value T
	prior float64
}

func New[T any](opts ...Option) *Queue[T] {
	o := options{cap: -1}
	for _, opt := range opts {
		opt(&o)
	}
	return &Queue[T]{options: o}
}

// Queue keeps its items sorted by ascending priority. Items with equal priority keep insertion order.
type Queue[T any] struct {
	options
	items []item[T]
}

func (q *Queue[T]) Push(val T, priority float64) {
	pos := sort.Search(len(q.items), func(i int) bool {
		return q.items[i].prior > priority
	})
	if q.cap >= 0 && pos >= q.cap {
		return
	}
	q.items = append(q.items, item[T]{})
	copy(q.items[pos+1:], q.items[pos:])
	q.items[pos] = item[T]{value: val, prior: priority}
	if q.cap >= 0 && len(q.items) > q.cap {
		q.items = q.items[:q.cap]
	}
}

func (q *Queue[T]) PopAll() []T {
	pulled := make([]T, len(q.items))
	for i := range q.items {
		pulled[i] = q.items[i].value
	}
	q.items = q.items[:0]
	return pulled
}

func (q *Queue[T]) Seek(idx int) (T, float64) {
	it := q.items[idx]
	return it.value, it.prior
}

func (q *Queue[T]) Len() int { return len(q.items) }
