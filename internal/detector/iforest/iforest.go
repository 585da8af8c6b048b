// Package iforest isolates rows with random axis aligned splits. Rows that are isolated
// after fewer splits on average are more anomalous.
package iforest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/go-sod/sodfilter/internal/detector"
	"github.com/go-sod/sodfilter/internal/logging"
)

var _ detector.Scorer = (*forest)(nil)

const eulerGamma = 0.5772156649015329

const (
	DefaultEstimators = 100
	DefaultMaxSamples = 256
)

type Option func(*forest)

func WithEstimators(n int) Option {
	return func(f *forest) {
		f.opts.estimators = n
	}
}

func WithMaxSamples(n int) Option {
	return func(f *forest) {
		f.opts.maxSamples = n
	}
}

func WithSeed(seed int64) Option {
	return func(f *forest) {
		f.opts.seed = seed
	}
}

type Options struct {
	estimators int
	maxSamples int
	seed       int64
}

func New(opts ...Option) (*forest, error) {
	f := &forest{opts: Options{estimators: DefaultEstimators, maxSamples: DefaultMaxSamples}}
	for _, opt := range opts {
		opt(f)
	}
	if f.opts.estimators < 1 {
		return nil, fmt.Errorf("%w: estimators must be positive, got %d", detector.ErrConfig, f.opts.estimators)
	}
	if f.opts.maxSamples < 2 {
		return nil, fmt.Errorf("%w: max samples must be at least 2, got %d", detector.ErrConfig, f.opts.maxSamples)
	}
	return f, nil
}

type forest struct {
	opts Options
}

type node struct {
	feature int
	split   float64
	left    *node
	right   *node
	// rows reaching a leaf
	size int
}

func (n *node) leaf() bool {
	return n.left == nil
}

func (f *forest) Name() string {
	return string(detector.AlgTypeIsolationForest)
}

func (f *forest) Decision(ctx context.Context, X mat.Matrix, fraction float64) ([]float64, error) {
	if err := detector.ValidateFraction(fraction); err != nil {
		return nil, err
	}
	scores, err := f.Scores(ctx, X)
	if err != nil {
		return nil, err
	}
	return detector.DecisionFromScores(scores, fraction), nil
}

// Scores returns -2^(-E[h(x)]/c(psi)) for every row of X, fitting the forest on X.
func (f *forest) Scores(ctx context.Context, X mat.Matrix) ([]float64, error) {
	if err := detector.ValidateMatrix(X); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	if n < 2 {
		return nil, fmt.Errorf("%w: isolation forest needs at least 2 rows, got %d", detector.ErrFit, n)
	}
	psi := f.opts.maxSamples
	if psi > n {
		logging.FromContext(ctx).Debugf("iforest: max samples %d is greater than the number of rows %d, using %d", psi, n, n)
		psi = n
	}
	heightLimit := int(math.Ceil(math.Log2(float64(psi))))

	seeds := make([]int64, f.opts.estimators)
	rnd := rand.New(rand.NewSource(f.opts.seed))
	for i := range seeds {
		seeds[i] = rnd.Int63()
	}

	depths := make([][]float64, f.opts.estimators)
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(runtime.GOMAXPROCS(0))
	for t := range seeds {
		t := t
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := rand.New(rand.NewSource(seeds[t]))
			sample := r.Perm(n)[:psi]
			root := grow(X, sample, 0, heightLimit, r)
			depths[t] = make([]float64, n)
			for i := 0; i < n; i++ {
				depths[t][i] = pathLength(X, i, root)
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	norm := averagePathLength(psi)
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for t := range depths {
			sum += depths[t][i]
		}
		scores[i] = -math.Pow(2, -(sum/float64(len(depths)))/norm)
	}
	return scores, nil
}

func grow(X mat.Matrix, rows []int, depth, limit int, r *rand.Rand) *node {
	if depth >= limit || len(rows) <= 1 {
		return &node{size: len(rows)}
	}
	_, p := X.Dims()

	// only features with spread can split the rows
	candidates := make([]int, 0, p)
	lows := make([]float64, p)
	highs := make([]float64, p)
	for j := 0; j < p; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range rows {
			v := X.At(i, j)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		lows[j], highs[j] = lo, hi
		if hi > lo {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return &node{size: len(rows)}
	}

	feature := candidates[r.Intn(len(candidates))]
	// split in (lo, hi] keeps both sides non empty
	split := highs[feature] - r.Float64()*(highs[feature]-lows[feature])

	var left, right []int
	for _, i := range rows {
		if X.At(i, feature) < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &node{
		feature: feature,
		split:   split,
		left:    grow(X, left, depth+1, limit, r),
		right:   grow(X, right, depth+1, limit, r),
	}
}

func pathLength(X mat.Matrix, row int, root *node) float64 {
	depth := 0
	current := root
	for !current.leaf() {
		if X.At(row, current.feature) < current.split {
			current = current.left
		} else {
			current = current.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(current.size)
}

// averagePathLength is c(n), the mean depth of an unsuccessful search in a binary search tree of n rows.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}
