package setup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sod/sodfilter/internal/config"
	"github.com/go-sod/sodfilter/internal/dataset"
	"github.com/go-sod/sodfilter/internal/detector"
	"github.com/go-sod/sodfilter/internal/experiment"
	"github.com/go-sod/sodfilter/internal/setup"
)

func TestSetup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	t.Setenv("SOD_DB_FILE", filepath.Join(dir, "reports.db"))
	t.Setenv("SOD_REDIS_ADDR", "")
	t.Setenv("SOD_EXPERIMENT_FILE", "")
	t.Setenv("SOD_DETECTOR_TYPES", "LOF,ONE_CLASS_SVM")
	t.Setenv("SOD_DETECTOR_FRACTIONS", "ONE_CLASS_SVM:0.01")

	cfg := config.Config{}
	env, err := setup.Setup(ctx, &cfg)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, env.Close(ctx))
	}()

	assert.Equal(t, dataset.DefaultSource, cfg.Dataset.Source)
	assert.Equal(t, 0.33, cfg.Dataset.TestRatio)
	assert.Equal(t, 20, cfg.LOF.KNum)
	assert.Equal(t, 0.1, cfg.Detector.FractionFor(detector.AlgTypeLOF))
	assert.Equal(t, 0.01, cfg.Detector.FractionFor(detector.AlgTypeOneClassSVM))

	require.NotNil(t, env.Database())
	require.NotNil(t, env.Reports())
	require.NotNil(t, env.Fetcher())

	for _, tp := range []detector.AlgType{
		detector.AlgTypeLOF,
		detector.AlgTypeIsolationForest,
		detector.AlgTypeRobustCovariance,
		detector.AlgTypeOneClassSVM,
	} {
		provide, ok := env.ProvideScorer(tp)
		require.True(t, ok, tp)
		scorer, err := provide()
		require.NoError(t, err)
		assert.Equal(t, string(tp), scorer.Name())
	}

	require.NotNil(t, env.ProvideRunner())
	runner, err := env.ProvideRunner()()
	require.NoError(t, err)
	assert.NotNil(t, runner)
}

func TestSetup_InvalidLOF(t *testing.T) {
	t.Setenv("SOD_DB_FILE", "")
	t.Setenv("SOD_REDIS_ADDR", "")
	t.Setenv("SOD_EXPERIMENT_FILE", "")
	t.Setenv("SOD_LOF_DISTANCE_FUNC", "COSINE")

	_, err := setup.Setup(context.Background(), &config.Config{})
	assert.ErrorIs(t, err, detector.ErrConfig)
}

func TestSetup_ExperimentFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
source = "local.csv"
seed = 9

[[strategy]]
type = "ISOLATION_FOREST"
fraction = 0.05
`), 0o600))

	t.Setenv("SOD_DB_FILE", "")
	t.Setenv("SOD_REDIS_ADDR", "")
	t.Setenv("SOD_EXPERIMENT_FILE", path)

	cfg := config.Config{}
	env, err := setup.Setup(context.Background(), &cfg)
	require.NoError(t, err)
	assert.Nil(t, env.Database())
	assert.Equal(t, "local.csv", cfg.Dataset.Source)
	assert.EqualValues(t, 9, cfg.Dataset.Seed)
	assert.Equal(t, 0.33, cfg.Dataset.TestRatio)
}

func TestProvideStrategiesFor(t *testing.T) {
	cfg := &config.Config{}
	cfg.Detector.Types = []string{"ISOLATION_FOREST", "LOF"}
	cfg.Detector.Fraction = 0.1
	cfg.Detector.Fractions = map[string]float64{"one_class_svm": 0.01}
	cfg.LOF.KNum = 5
	cfg.LOF.MetricFuncType = "EUCLIDEAN"
	cfg.LOF.AlgType = "BRUTE"
	cfg.IForest.Estimators = 10
	cfg.IForest.MaxSamples = 64

	strategies, err := setup.ProvideStrategiesFor(cfg, nil)
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.Equal(t, "ISOLATION_FOREST", strategies[0].Name)
	assert.Equal(t, "LOF", strategies[1].Name)
	assert.Equal(t, 0.1, strategies[1].Fraction)

	plan := &experiment.Plan{Strategies: []experiment.PlanStrategy{
		{Type: "one_class_svm"},
		{Type: "LOF", Fraction: 0.2},
	}}
	strategies, err = setup.ProvideStrategiesFor(cfg, plan)
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.Equal(t, "ONE_CLASS_SVM", strategies[0].Name)
	assert.Equal(t, 0.01, strategies[0].Fraction)
	assert.Equal(t, 0.2, strategies[1].Fraction)

	cfg.Detector.Types = []string{"KMEANS"}
	_, err = setup.ProvideStrategiesFor(cfg, nil)
	assert.ErrorIs(t, err, detector.ErrConfig)

	cfg.Detector.Types = []string{"LOF"}
	cfg.Detector.Fraction = 0.7
	_, err = setup.ProvideStrategiesFor(cfg, nil)
	assert.ErrorIs(t, err, detector.ErrConfig)
}
