package experiment_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/go-sod/sodfilter/internal/config"
	"github.com/go-sod/sodfilter/internal/dataset"
	"github.com/go-sod/sodfilter/internal/detector"
	"github.com/go-sod/sodfilter/internal/experiment"
	"github.com/go-sod/sodfilter/internal/filter"
	"github.com/go-sod/sodfilter/internal/report"
	"github.com/go-sod/sodfilter/internal/setup"
)

// housingMAETolerance bounds the distance to the published housing figures, whose
// split and forests were drawn from another random source.
const housingMAETolerance = 0.35

// defaultConfig loads the environment defaults with every strategy enabled.
func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("SOD_DETECTOR_TYPES", "ISOLATION_FOREST,ROBUST_COVARIANCE,LOF,ONE_CLASS_SVM")
	t.Setenv("SOD_DETECTOR_FRACTION", "0.1")
	t.Setenv("SOD_DETECTOR_FRACTIONS", "ONE_CLASS_SVM:0.01")
	t.Setenv("SOD_DETECTOR_SEED", "1")
	t.Setenv("SOD_DATASET_TEST_RATIO", "0.33")
	t.Setenv("SOD_DATASET_SEED", "1")

	cfg := &config.Config{}
	require.NoError(t, envconfig.Process("", cfg))
	return cfg
}

func runAll(t *testing.T, cfg *config.Config, source string, ds dataset.Dataset) ([]experiment.Strategy, *report.Report) {
	t.Helper()
	strategies, err := setup.ProvideStrategiesFor(cfg, nil)
	require.NoError(t, err)
	require.Len(t, strategies, 4)

	runner, err := setup.ProvideRunnerFor(strategies, cfg.DatasetConfig(), cfg.ExperimentConfig(), nil)()
	require.NoError(t, err)
	rep, err := runner.Run(context.Background(), source, ds)
	require.NoError(t, err)
	require.Len(t, rep.Results, len(strategies))
	return strategies, rep
}

// plantedDataset returns y = 2*x0 - x1 + 0.5*x2 + 3 with gaussian noise. Every 20th row
// is moved far away from the cloud and given a corrupted target.
func plantedDataset(n int) dataset.Dataset {
	rnd := rand.New(rand.NewSource(11))
	X := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x0, x1, x2 := rnd.NormFloat64(), rnd.NormFloat64(), rnd.NormFloat64()
		target := 2*x0 - x1 + 0.5*x2 + 3 + 0.5*rnd.NormFloat64()
		if i%20 == 0 {
			x0, x1, x2 = 12+rnd.Float64()*4, -12-rnd.Float64()*4, 12+rnd.Float64()*4
			target = -100
		}
		X.SetRow(i, []float64{x0, x1, x2})
		y[i] = target
	}
	return dataset.Dataset{X: X, Y: y}
}

func TestRunner_RealScorers(t *testing.T) {
	cfg := defaultConfig(t)
	ds := plantedDataset(300)
	strategies, rep := runAll(t, cfg, "planted", ds)

	split, err := dataset.TrainTestSplit(ds, cfg.Dataset.TestRatio, cfg.Dataset.Seed)
	require.NoError(t, err)
	trainRows := split.Train.Rows()
	assert.Equal(t, split.Test.Rows(), rep.TestRows)
	assert.Equal(t, trainRows, rep.Baseline.TrainRows)
	assert.Equal(t, trainRows, rep.Baseline.Retained)

	for i, s := range strategies {
		res := rep.Results[i]
		t.Run(s.Name, func(t *testing.T) {
			require.False(t, res.Failed(), res.Err)
			assert.Equal(t, s.Name, res.Strategy)
			assert.Equal(t, trainRows, res.TrainRows)
			assert.Equal(t, 3, res.Features)
			assert.GreaterOrEqual(t, res.MAE, 0.0)
			assert.False(t, math.IsNaN(res.MAE) || math.IsInf(res.MAE, 0))

			scorer, err := s.Provide()
			require.NoError(t, err)
			stage, err := filter.New(scorer, s.Fraction)
			require.NoError(t, err)
			mask, err := stage.Mask(context.Background(), split.Train.X)
			require.NoError(t, err)
			assert.Equal(t, trainRows-mask.Outliers(), res.Retained)
			assert.Equal(t, mask.Outliers(), res.Outliers())

			if s.Name == string(detector.AlgTypeOneClassSVM) {
				assert.LessOrEqual(t, res.Outliers(), int(math.Ceil(s.Fraction*float64(trainRows)))+2)
				return
			}
			assert.InDelta(t, s.Fraction*float64(trainRows), res.Outliers(), 1.5)
			for row := 0; row < trainRows; row++ {
				if split.Train.X.At(row, 0) > 10 {
					assert.False(t, mask[row], "planted train row %d must be flagged", row)
				}
			}
		})
	}
}

func TestRunner_HousingReference(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "housing.csv"))
	if errors.Is(err, os.ErrNotExist) {
		t.Skipf("testdata/housing.csv is not present, download it from %s", dataset.DefaultSource)
	}
	require.NoError(t, err)
	defer f.Close()

	ds, err := dataset.ReadCSV(f)
	require.NoError(t, err)
	rows, cols := ds.Shape()
	require.Equal(t, 506, rows)
	require.Equal(t, 13, cols)

	cfg := defaultConfig(t)
	_, rep := runAll(t, cfg, "housing.csv", ds)

	assert.Equal(t, 167, rep.TestRows)
	assert.Equal(t, 339, rep.Baseline.TrainRows)
	assert.Equal(t, 13, rep.Baseline.Features)
	assert.InDelta(t, 3.417, rep.Baseline.MAE, housingMAETolerance)

	expected := map[string]float64{
		string(detector.AlgTypeIsolationForest): 3.220,
		string(detector.AlgTypeLOF):             3.356,
		string(detector.AlgTypeOneClassSVM):     3.431,
	}
	for _, res := range rep.Results {
		require.False(t, res.Failed(), "%s: %s", res.Strategy, res.Err)
		assert.Equal(t, 339, res.TrainRows)
		assert.Equal(t, 13, res.Features)
		assert.Equal(t, 339-res.Outliers(), res.Retained)
		if mae, ok := expected[res.Strategy]; ok {
			assert.InDelta(t, mae, res.MAE, housingMAETolerance, res.Strategy)
		}
	}
}
