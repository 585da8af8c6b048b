// Package experiment compares a regression model trained on the full training set with
// models trained after each configured outlier removal strategy.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/go-sod/sodfilter/internal/dataset"
	"github.com/go-sod/sodfilter/internal/detector"
	"github.com/go-sod/sodfilter/internal/filter"
	"github.com/go-sod/sodfilter/internal/logging"
	"github.com/go-sod/sodfilter/internal/regression"
	"github.com/go-sod/sodfilter/internal/report"
)

// Contract for returning the Runner instance
type ProvideFn func() (Runner, error)

type Runner interface {
	// Run splits ds, evaluates the baseline and every strategy, and stores the report.
	Run(ctx context.Context, source string, ds dataset.Dataset) (*report.Report, error)
}

// Regressor is the model refitted on every training set variant.
type Regressor interface {
	Fit(X mat.Matrix, y []float64) error
	Predict(X mat.Matrix) ([]float64, error)
}

// Strategy names an outlier scorer and its expected fraction.
type Strategy struct {
	Name     string
	Fraction float64
	Provide  detector.ProvideFn
}

type (
	storeReportFn func(context.Context, *report.Report) error
	pruneFn       func(ctx context.Context, source string, keep int) error
)

type Options struct {
	testRatio      float64
	seed           int64
	maxConcurrency int
	maxStored      int
	newRegressor   func() Regressor
	now            func() time.Time
	store          storeReportFn
	prune          pruneFn
}

type Option func(*runner)

func WithTestRatio(r float64) Option {
	return func(o *runner) {
		o.opts.testRatio = r
	}
}

func WithSeed(seed int64) Option {
	return func(o *runner) {
		o.opts.seed = seed
	}
}

func WithMaxConcurrency(n int) Option {
	return func(o *runner) {
		o.opts.maxConcurrency = n
	}
}

func WithRegressor(fn func() Regressor) Option {
	return func(o *runner) {
		o.opts.newRegressor = fn
	}
}

func WithClock(fn func() time.Time) Option {
	return func(o *runner) {
		o.opts.now = fn
	}
}

// WithStore persists every finished report and keeps at most maxStored reports per source.
func WithStore(store storeReportFn, prune pruneFn, maxStored int) Option {
	return func(o *runner) {
		o.opts.store = store
		o.opts.prune = prune
		o.opts.maxStored = maxStored
	}
}

func New(strategies []Strategy, opts ...Option) (*runner, error) {
	r := &runner{
		strategies: strategies,
		opts: Options{
			testRatio:      0.33,
			seed:           1,
			maxConcurrency: 1,
			newRegressor: func() Regressor {
				return regression.NewLinearRegression()
			},
			now: time.Now,
		},
	}
	for _, f := range opts {
		f(r)
	}

	if r.opts.maxConcurrency < 1 {
		return nil, fmt.Errorf("%w: max concurrency must be positive, got %d", detector.ErrConfig, r.opts.maxConcurrency)
	}
	if r.opts.testRatio <= 0 || r.opts.testRatio >= 1 {
		return nil, fmt.Errorf("%w: test ratio must be in (0, 1), got %v", detector.ErrConfig, r.opts.testRatio)
	}
	for _, s := range strategies {
		if s.Provide == nil {
			return nil, fmt.Errorf("%w: strategy %s has no scorer", detector.ErrConfig, s.Name)
		}
		if err := detector.ValidateFraction(s.Fraction); err != nil {
			return nil, fmt.Errorf("strategy %s: %w", s.Name, err)
		}
	}
	return r, nil
}

type runner struct {
	opts       Options
	strategies []Strategy
}

func (r *runner) Run(ctx context.Context, source string, ds dataset.Dataset) (*report.Report, error) {
	logger := logging.FromContext(ctx)
	split, err := dataset.TrainTestSplit(ds, r.opts.testRatio, r.opts.seed)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	logger.Infow("dataset split",
		"source", source,
		"train", split.Train.Rows(),
		"test", split.Test.Rows(),
		"features", split.Train.Features())

	rep := report.New(source, r.opts.now(), r.opts.seed, r.opts.testRatio)
	rep.TestRows = split.Test.Rows()

	baseline, err := r.evaluate(ctx, report.BaselineName, 0, split.Train, split.Test)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	rep.Baseline = baseline

	results := make([]report.Result, len(r.strategies))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(r.opts.maxConcurrency)
	for i, s := range r.strategies {
		i, s := i, s
		grp.Go(func() error {
			res, err := r.runStrategy(grpCtx, s, split)
			if err != nil {
				if errors.Is(err, detector.ErrConfig) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return fmt.Errorf("strategy %s: %w", s.Name, err)
				}
				logger.Warnw("strategy failed", "strategy", s.Name, "error", err)
				res = report.Result{
					Strategy:  s.Name,
					Fraction:  s.Fraction,
					TrainRows: split.Train.Rows(),
					Features:  split.Train.Features(),
					Err:       err.Error(),
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	rep.Results = results

	if r.opts.store != nil {
		if err := r.opts.store(ctx, rep); err != nil {
			return nil, fmt.Errorf("store report: %w", err)
		}
		if r.opts.prune != nil && r.opts.maxStored > 0 {
			if err := r.opts.prune(ctx, source, r.opts.maxStored); err != nil {
				logger.Warnw("unable prune reports", "source", source, "error", err)
			}
		}
	}
	return rep, nil
}

func (r *runner) runStrategy(ctx context.Context, s Strategy, split dataset.Split) (report.Result, error) {
	logger := logging.FromContext(ctx)
	scorer, err := s.Provide()
	if err != nil {
		return report.Result{}, fmt.Errorf("create scorer: %w", err)
	}
	stage, err := filter.New(scorer, s.Fraction)
	if err != nil {
		return report.Result{}, err
	}

	start := time.Now()
	X, y, mask, err := stage.Apply(ctx, split.Train.X, split.Train.Y)
	if err != nil {
		return report.Result{}, err
	}
	logger.Infow("training set filtered",
		"strategy", s.Name,
		"fraction", s.Fraction,
		"outliers", mask.Outliers(),
		"elapsed", time.Since(start))

	res, err := r.evaluate(ctx, s.Name, s.Fraction, dataset.Dataset{X: X, Y: y}, split.Test)
	if err != nil {
		return report.Result{}, err
	}
	res.TrainRows = len(mask)
	return res, nil
}

func (r *runner) evaluate(ctx context.Context, name string, fraction float64, train, test dataset.Dataset) (report.Result, error) {
	if err := ctx.Err(); err != nil {
		return report.Result{}, err
	}
	model := r.opts.newRegressor()
	if err := model.Fit(train.X, train.Y); err != nil {
		return report.Result{}, fmt.Errorf("%w: fitting regression: %v", detector.ErrFit, err)
	}
	predicted, err := model.Predict(test.X)
	if err != nil {
		return report.Result{}, fmt.Errorf("%w: predicting: %v", detector.ErrFit, err)
	}
	mae, err := regression.MeanAbsoluteError(test.Y, predicted)
	if err != nil {
		return report.Result{}, err
	}
	return report.Result{
		Strategy:  name,
		Fraction:  fraction,
		TrainRows: train.Rows(),
		Retained:  train.Rows(),
		Features:  train.Features(),
		MAE:       mae,
	}, nil
}
