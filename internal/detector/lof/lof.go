package lof

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/go-sod/sodfilter/internal/detector"
	"github.com/go-sod/sodfilter/internal/detector/knn"
	"github.com/go-sod/sodfilter/internal/geom"
	"github.com/go-sod/sodfilter/internal/logging"
)

var _ detector.Scorer = (*lof)(nil)

// added to the mean reachability distance so duplicated points keep a finite density
const lrdEpsilon = 1e-10

type Option func(*lof)

func WithKNum(k int) Option {
	return func(l *lof) {
		l.kNum = k
	}
}

func WithDistance(d geom.DistanceFuncType) Option {
	return func(l *lof) {
		l.opts.distanceFuncType = d
	}
}

func WithAlg(alg AlgType) Option {
	return func(l *lof) {
		l.opts.algType = alg
	}
}

var defaultOptions = Options{algType: AlgTypeKDTree, distanceFuncType: geom.DistanceFuncTypeEuclidean}

type Options struct {
	algType          AlgType
	distanceFuncType geom.DistanceFuncType
}

func New(opts ...Option) (*lof, error) {
	l := &lof{
		kNum: DefaultKNum,
		opts: defaultOptions,
	}
	for _, f := range opts {
		f(l)
	}
	if l.kNum < MinKNum {
		return nil, fmt.Errorf("%w: the k selected in the config is too small: %d", detector.ErrConfig, l.kNum)
	}
	distFunc, err := geom.DistanceFuncFor(l.opts.distanceFuncType)
	if err != nil {
		return nil, fmt.Errorf("%w: unable creating lof instance, %v", detector.ErrConfig, err)
	}
	l.distFunc = distFunc
	if _, err := NNFor(l.opts.algType, distFunc); err != nil {
		return nil, fmt.Errorf("%w: unable creating lof instance, %v", detector.ErrConfig, err)
	}
	return l, nil
}

type lof struct {
	opts     Options
	kNum     int
	distFunc geom.DistanceFn
}

func (l *lof) Name() string {
	return string(detector.AlgTypeLOF)
}

func (l *lof) KNum() int {
	return l.kNum
}

func (l *lof) Decision(ctx context.Context, X mat.Matrix, fraction float64) ([]float64, error) {
	if err := detector.ValidateFraction(fraction); err != nil {
		return nil, err
	}
	scores, err := l.Scores(ctx, X)
	if err != nil {
		return nil, err
	}
	return detector.DecisionFromScores(scores, fraction), nil
}

// Scores returns the negated local outlier factor of every row, computed against the other rows.
func (l *lof) Scores(ctx context.Context, X mat.Matrix) ([]float64, error) {
	if err := detector.ValidateMatrix(X); err != nil {
		return nil, err
	}
	points := geom.RowsOf(X)
	n := len(points)
	if n < 2 {
		return nil, fmt.Errorf("%w: lof needs at least 2 rows, got %d", detector.ErrFit, n)
	}
	k := l.kNum
	if k > n-1 {
		logging.FromContext(ctx).Debugf("lof: k=%d is not less than the number of rows %d, using %d", k, n, n-1)
		k = n - 1
	}

	alg, err := NNFor(l.opts.algType, l.distFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detector.ErrConfig, err)
	}
	alg.Build(points...)

	neighbours, err := l.neighbours(ctx, alg, points, k)
	if err != nil {
		return nil, err
	}

	kDistance := make([]float64, n)
	for i := range neighbours {
		kDistance[i] = neighbours[i][k-1].Distance
	}

	lrd := make([]float64, n)
	for i := range neighbours {
		var rSum float64
		for _, nb := range neighbours[i] {
			rSum += math.Max(kDistance[nb.Index], nb.Distance)
		}
		lrd[i] = 1 / (rSum/float64(k) + lrdEpsilon)
	}

	scores := make([]float64, n)
	for i := range neighbours {
		var ratio float64
		for _, nb := range neighbours[i] {
			ratio += lrd[nb.Index] / lrd[i]
		}
		scores[i] = -ratio / float64(k)
	}
	return scores, nil
}

func (l *lof) neighbours(ctx context.Context, alg knn.Alg, points []geom.Point, k int) ([][]knn.Neighbor, error) {
	result := make([][]knn.Neighbor, len(points))
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(runtime.GOMAXPROCS(0))
	for i := range points {
		i := i
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			nn, err := alg.KNN(points[i], k+1)
			if err != nil {
				return fmt.Errorf("unable compute KNN: %w", err)
			}
			result[i] = withoutSelf(nn, i, k)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// withoutSelf drops the query row from its own neighbourhood. With many duplicates the
// query may rank past k+1, then the farthest neighbour is dropped instead.
func withoutSelf(nn []knn.Neighbor, self, k int) []knn.Neighbor {
	out := make([]knn.Neighbor, 0, k)
	for _, nb := range nn {
		if nb.Index == self {
			continue
		}
		out = append(out, nb)
	}
	if len(out) > k {
		out = out[:k]
	}
	return out
}
