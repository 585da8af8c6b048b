package experiment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/go-sod/sodfilter/internal/dataset"
	"github.com/go-sod/sodfilter/internal/detector"
	"github.com/go-sod/sodfilter/internal/detector/mocks"
	"github.com/go-sod/sodfilter/internal/report"
)

// linearDataset returns y = 3*x0 - x1 + 2 where x1 is 1 on every fifth row.
func linearDataset(n int) dataset.Dataset {
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		flag := 0.0
		if i%5 == 0 {
			flag = 1
		}
		X.Set(i, 0, float64(i))
		X.Set(i, 1, flag)
		y[i] = 3*float64(i) - flag + 2
	}
	return dataset.Dataset{X: X, Y: y}
}

// flaggingScorer marks rows whose second feature is 1 as outliers.
func flaggingScorer(name string) detector.ProvideFn {
	return func() (detector.Scorer, error) {
		scorer := &mocks.Scorer{}
		scorer.On("Name").Return(name)
		scorer.On("Decision", mock.Anything, mock.Anything, mock.Anything).Return(
			func(_ context.Context, X mat.Matrix, _ float64) []float64 {
				rows, _ := X.Dims()
				decision := make([]float64, rows)
				for i := range decision {
					decision[i] = 1
					if X.At(i, 1) == 1 {
						decision[i] = -1
					}
				}
				return decision
			},
			nil,
		)
		return scorer, nil
	}
}

func failingScorer(err error) detector.ProvideFn {
	return func() (detector.Scorer, error) {
		scorer := &mocks.Scorer{}
		scorer.On("Name").Return("FAILING")
		scorer.On("Decision", mock.Anything, mock.Anything, mock.Anything).Return(nil, err)
		return scorer, nil
	}
}

func TestRunner_Run(t *testing.T) {
	ds := linearDataset(100)
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	var (
		mtx    sync.Mutex
		stored []*report.Report
		pruned []string
	)
	store := func(_ context.Context, r *report.Report) error {
		mtx.Lock()
		defer mtx.Unlock()
		stored = append(stored, r)
		return nil
	}
	prune := func(_ context.Context, source string, keep int) error {
		pruned = append(pruned, source)
		assert.Equal(t, 10, keep)
		return nil
	}

	r, err := New(
		[]Strategy{
			{Name: "FIRST", Fraction: 0.2, Provide: flaggingScorer("FIRST")},
			{Name: "BROKEN", Fraction: 0.1, Provide: failingScorer(detector.ErrFit)},
			{Name: "THIRD", Fraction: 0.3, Provide: flaggingScorer("THIRD")},
		},
		WithTestRatio(0.25),
		WithSeed(3),
		WithMaxConcurrency(2),
		WithClock(func() time.Time { return now }),
		WithStore(store, prune, 10),
	)
	require.NoError(t, err)

	rep, err := r.Run(context.Background(), "linear", ds)
	require.NoError(t, err)

	assert.Equal(t, "linear", rep.Source)
	assert.Equal(t, now, rep.CreatedAt)
	assert.EqualValues(t, 3, rep.Seed)
	assert.Equal(t, 25, rep.TestRows)
	assert.Equal(t, report.BaselineName, rep.Baseline.Strategy)
	assert.Equal(t, 75, rep.Baseline.TrainRows)
	assert.Equal(t, 75, rep.Baseline.Retained)
	assert.InDelta(t, 0, rep.Baseline.MAE, 1e-8)

	require.Len(t, rep.Results, 3)
	assert.Equal(t, "FIRST", rep.Results[0].Strategy)
	assert.Equal(t, "BROKEN", rep.Results[1].Strategy)
	assert.Equal(t, "THIRD", rep.Results[2].Strategy)

	for _, i := range []int{0, 2} {
		res := rep.Results[i]
		assert.False(t, res.Failed())
		assert.Equal(t, 75, res.TrainRows)
		assert.Less(t, res.Retained, res.TrainRows)
		assert.Equal(t, 2, res.Features)
		assert.GreaterOrEqual(t, res.MAE, 0.0)
	}
	assert.Equal(t, rep.Results[0].Retained, rep.Results[2].Retained)
	assert.Equal(t, 0.2, rep.Results[0].Fraction)

	assert.True(t, rep.Results[1].Failed())
	assert.Contains(t, rep.Results[1].Err, detector.ErrFit.Error())

	require.Len(t, stored, 1)
	assert.Same(t, rep, stored[0])
	assert.Equal(t, []string{"linear"}, pruned)
}

func TestRunner_Deterministic(t *testing.T) {
	ds := linearDataset(60)
	newRunner := func() Runner {
		r, err := New([]Strategy{{Name: "FLAG", Fraction: 0.2, Provide: flaggingScorer("FLAG")}}, WithSeed(11))
		require.NoError(t, err)
		return r
	}
	a, err := newRunner().Run(context.Background(), "x", ds)
	require.NoError(t, err)
	b, err := newRunner().Run(context.Background(), "x", ds)
	require.NoError(t, err)

	assert.Equal(t, a.Baseline, b.Baseline)
	assert.Equal(t, a.Results, b.Results)
}

func TestRunner_ConfigErrorAborts(t *testing.T) {
	r, err := New([]Strategy{{Name: "BAD", Fraction: 0.1, Provide: failingScorer(detector.ErrConfig)}})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "x", linearDataset(40))
	assert.ErrorIs(t, err, detector.ErrConfig)
}

func TestRunner_StoreError(t *testing.T) {
	storeErr := errors.New("disk full")
	r, err := New(nil, WithStore(func(context.Context, *report.Report) error { return storeErr }, nil, 0))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "x", linearDataset(40))
	assert.ErrorIs(t, err, storeErr)
}

func TestRunner_Cancelled(t *testing.T) {
	r, err := New([]Strategy{{Name: "FLAG", Fraction: 0.1, Provide: flaggingScorer("FLAG")}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx, "x", linearDataset(40))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Errors(t *testing.T) {
	provide := flaggingScorer("FLAG")
	tests := []struct {
		name       string
		strategies []Strategy
		opts       []Option
	}{
		{name: "fraction_too_high", strategies: []Strategy{{Name: "A", Fraction: 0.6, Provide: provide}}},
		{name: "fraction_zero", strategies: []Strategy{{Name: "A", Provide: provide}}},
		{name: "no_provider", strategies: []Strategy{{Name: "A", Fraction: 0.1}}},
		{name: "concurrency", opts: []Option{WithMaxConcurrency(0)}},
		{name: "test_ratio", opts: []Option{WithTestRatio(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.strategies, tt.opts...)
			assert.ErrorIs(t, err, detector.ErrConfig)
		})
	}
}

func TestLoadPlan(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	plan, err := LoadPlan(write("ok.toml", `
source = "housing.csv"
test_ratio = 0.25
seed = 7

[[strategy]]
type = "LOF"

[[strategy]]
type = "ONE_CLASS_SVM"
fraction = 0.01
`))
	require.NoError(t, err)
	assert.Equal(t, "housing.csv", plan.Source)
	assert.Equal(t, 0.25, plan.TestRatio)
	require.NotNil(t, plan.Seed)
	assert.EqualValues(t, 7, *plan.Seed)
	assert.Equal(t, []PlanStrategy{{Type: "LOF"}, {Type: "ONE_CLASS_SVM", Fraction: 0.01}}, plan.Strategies)

	bad := map[string]string{
		"unknown_type.toml": "[[strategy]]\ntype = \"KMEANS\"\n",
		"bad_fraction.toml": "[[strategy]]\ntype = \"LOF\"\nfraction = 0.9\n",
		"unknown_key.toml":  "rounds = 3\n",
		"bad_ratio.toml":    "test_ratio = 1.5\n",
		"not_toml.toml":     "[[strategy\n",
	}
	for name, body := range bad {
		_, err := LoadPlan(write(name, body))
		assert.ErrorIs(t, err, detector.ErrConfig, name)
	}
	_, err = LoadPlan(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, detector.ErrConfig)
}
