// Package robust fits a Minimum Covariance Determinant estimate and scores rows by their
// Mahalanobis distance to it, so a minority of outliers cannot inflate the covariance.
package robust

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/go-sod/sodfilter/internal/detector"
	"github.com/go-sod/sodfilter/internal/logging"
)

var _ detector.Scorer = (*envelope)(nil)

const (
	DefaultTrials = 30
	// rows beyond this chi-squared quantile are dropped when reweighting the raw estimate
	reweightQuantile = 0.975
)

type Option func(*envelope)

func WithSupportFraction(f float64) Option {
	return func(e *envelope) {
		e.opts.supportFraction = f
	}
}

func WithTrials(n int) Option {
	return func(e *envelope) {
		e.opts.trials = n
	}
}

func WithSeed(seed int64) Option {
	return func(e *envelope) {
		e.opts.seed = seed
	}
}

type Options struct {
	supportFraction float64
	trials          int
	seed            int64
}

func New(opts ...Option) (*envelope, error) {
	e := &envelope{opts: Options{trials: DefaultTrials}}
	for _, opt := range opts {
		opt(e)
	}
	if e.opts.supportFraction < 0 || e.opts.supportFraction > 1 {
		return nil, fmt.Errorf("%w: support fraction %v is outside [0, 1]", detector.ErrConfig, e.opts.supportFraction)
	}
	if e.opts.trials < 1 {
		return nil, fmt.Errorf("%w: trials must be positive, got %d", detector.ErrConfig, e.opts.trials)
	}
	return e, nil
}

type envelope struct {
	opts Options
}

func (e *envelope) Name() string {
	return string(detector.AlgTypeRobustCovariance)
}

func (e *envelope) Decision(ctx context.Context, X mat.Matrix, fraction float64) ([]float64, error) {
	if err := detector.ValidateFraction(fraction); err != nil {
		return nil, err
	}
	scores, err := e.Scores(ctx, X)
	if err != nil {
		return nil, err
	}
	return detector.DecisionFromScores(scores, fraction), nil
}

// Scores returns the negated squared Mahalanobis distance of every row to the reweighted MCD estimate.
func (e *envelope) Scores(ctx context.Context, X mat.Matrix) ([]float64, error) {
	logger := logging.FromContext(ctx)
	if err := detector.ValidateMatrix(X); err != nil {
		return nil, err
	}
	n, p := X.Dims()
	h := e.supportSize(n, p)
	if h <= p || h > n {
		return nil, fmt.Errorf("%w: support of %d rows cannot estimate %d features", detector.ErrFit, h, p)
	}

	raw, err := fastMCD(X, h, e.opts.trials, rand.New(rand.NewSource(e.opts.seed)))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chi2 := distuv.ChiSquared{K: float64(p)}
	dist := raw.mahalanobis(X)
	correction := median(dist) / chi2.Quantile(0.5)
	if correction <= 0 || math.IsNaN(correction) {
		return nil, fmt.Errorf("%w: degenerate consistency correction %v", detector.ErrFit, correction)
	}
	cutoff := chi2.Quantile(reweightQuantile)
	var support []int
	for i, d := range dist {
		if d/correction < cutoff {
			support = append(support, i)
		}
	}
	logger.Debugf("robust: raw support %d rows, reweighted support %d rows", h, len(support))

	final := raw
	if len(support) > p {
		reweighted, err := newEstimate(X, support)
		if err == nil {
			final = reweighted
		} else {
			logger.Debugf("robust: keeping the raw estimate, %v", err)
		}
	}

	dist = final.mahalanobis(X)
	scores := make([]float64, n)
	for i, d := range dist {
		scores[i] = -d
	}
	return scores, nil
}

func (e *envelope) supportSize(n, p int) int {
	if e.opts.supportFraction > 0 {
		return int(math.Ceil(e.opts.supportFraction * float64(n)))
	}
	return int(math.Ceil(0.5 * float64(n+p+1)))
}
