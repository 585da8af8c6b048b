package setup

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/go-sod/sodfilter/internal/database"
	"github.com/go-sod/sodfilter/internal/datacache"
	"github.com/go-sod/sodfilter/internal/dataset"
	"github.com/go-sod/sodfilter/internal/detector"
	"github.com/go-sod/sodfilter/internal/detector/iforest"
	"github.com/go-sod/sodfilter/internal/detector/lof"
	"github.com/go-sod/sodfilter/internal/detector/ocsvm"
	"github.com/go-sod/sodfilter/internal/detector/robust"
	"github.com/go-sod/sodfilter/internal/experiment"
	"github.com/go-sod/sodfilter/internal/httputil"
	"github.com/go-sod/sodfilter/internal/logging"
	reportdb "github.com/go-sod/sodfilter/internal/report/database"
	"github.com/go-sod/sodfilter/internal/srvenv"
)

type DatasetConfigProvider interface {
	DatasetConfig() *dataset.Config
	HTTPClientConfig() *httputil.HTTPClientConfig
}

type DetectorConfigProvider interface {
	DetectorConfig() *detector.Config
	LOFConfig() *lof.Config
	IForestConfig() *iforest.Config
	RobustConfig() *robust.Config
	OCSVMConfig() *ocsvm.Config
}

type ExperimentConfigProvider interface {
	ExperimentConfig() *experiment.Config
}

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

type CacheConfigProvider interface {
	CacheConfig() *datacache.Config
}

// Setup processes the environment into config and builds the services config asks for.
func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	logger := logging.FromContext(ctx)
	var serverEnvOpts []srvenv.Option
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var plan *experiment.Plan
	if provider, ok := config.(ExperimentConfigProvider); ok && provider.ExperimentConfig().File != "" {
		logger.Infof("loading experiment file %s", provider.ExperimentConfig().File)
		p, err := experiment.LoadPlan(provider.ExperimentConfig().File)
		if err != nil {
			return nil, err
		}
		plan = p
		if dsProvider, ok := config.(DatasetConfigProvider); ok {
			ApplyPlan(plan, dsProvider.DatasetConfig())
		}
	}

	var (
		db    *database.DB
		cache *datacache.Cache
	)
	// everything opened so far is closed when a later step fails
	fail := func(err error) (*srvenv.SrvEnv, error) {
		_ = srvenv.New(serverEnvOpts...).Close(ctx)
		return nil, err
	}

	if dbConfigProvider, ok := config.(DatabaseConfigProvider); ok && dbConfigProvider.DatabaseConfig().FileName != "" {
		logger.Info("Configuring db")
		dbFromEnv, err := database.NewFromEnv(ctx, dbConfigProvider.DatabaseConfig())
		if err != nil {
			return fail(fmt.Errorf("unable to connect to database: %w", err))
		}
		db = dbFromEnv
		serverEnvOpts = append(serverEnvOpts, srvenv.WithDatabase(db))
	}

	if cacheConfigProvider, ok := config.(CacheConfigProvider); ok && cacheConfigProvider.CacheConfig().Enabled() {
		logger.Info("Configuring dataset cache")
		c, err := datacache.NewFromConfig(ctx, cacheConfigProvider.CacheConfig())
		if err != nil {
			return fail(fmt.Errorf("unable to connect to cache: %w", err))
		}
		cache = c
		serverEnvOpts = append(serverEnvOpts, srvenv.WithCache(cache))
	}

	dsProvider, hasDataset := config.(DatasetConfigProvider)
	if hasDataset {
		logger.Info("Configuring dataset fetcher")
		fetcher, err := ProvideFetcherFor(dsProvider, cache)
		if err != nil {
			return fail(fmt.Errorf("unable create dataset fetcher: %w", err))
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithFetcher(fetcher))
	}

	if detectorConfigProvider, ok := config.(DetectorConfigProvider); ok {
		logger.Info("Configuring detectors")
		for _, t := range []detector.AlgType{
			detector.AlgTypeLOF,
			detector.AlgTypeIsolationForest,
			detector.AlgTypeRobustCovariance,
			detector.AlgTypeOneClassSVM,
		} {
			provideFn, err := ProvideScorerFor(t, detectorConfigProvider)
			if err != nil {
				return fail(fmt.Errorf("unable create scorer provide function: %w", err))
			}
			serverEnvOpts = append(serverEnvOpts, srvenv.WithScorer(t, provideFn))
		}

		if hasDataset {
			strategies, err := ProvideStrategiesFor(detectorConfigProvider, plan)
			if err != nil {
				return fail(fmt.Errorf("unable configure strategies: %w", err))
			}
			var expCfg experiment.Config
			if provider, ok := config.(ExperimentConfigProvider); ok {
				expCfg = *provider.ExperimentConfig()
			}
			serverEnvOpts = append(serverEnvOpts, srvenv.WithRunner(
				ProvideRunnerFor(strategies, dsProvider.DatasetConfig(), &expCfg, db),
			))
		}
	}

	return srvenv.New(serverEnvOpts...), nil
}

// ApplyPlan copies the non-zero dataset settings of plan into cfg.
func ApplyPlan(plan *experiment.Plan, cfg *dataset.Config) {
	if plan.Source != "" {
		cfg.Source = plan.Source
	}
	if plan.TestRatio != 0 {
		cfg.TestRatio = plan.TestRatio
	}
	if plan.Seed != nil {
		cfg.Seed = *plan.Seed
	}
}

func ProvideFetcherFor(provider DatasetConfigProvider, cache *datacache.Cache) (*dataset.Fetcher, error) {
	client, err := httputil.NewClientFromConfig(*provider.HTTPClientConfig())
	if err != nil {
		return nil, err
	}
	cfg := provider.DatasetConfig()
	opts := []dataset.FetcherOption{
		dataset.WithMaxBodyBytes(cfg.MaxBodyBytes),
		dataset.WithTimeout(cfg.FetchTimeout),
	}
	if cache != nil {
		opts = append(opts, dataset.WithCache(cache))
	}
	return dataset.NewFetcher(client, opts...), nil
}

func ProvideScorerFor(t detector.AlgType, provider DetectorConfigProvider) (detector.ProvideFn, error) {
	seed := provider.DetectorConfig().Seed
	switch t {
	case detector.AlgTypeLOF:
		cfg := provider.LOFConfig()
		opts := []lof.Option{
			lof.WithKNum(cfg.KNum),
			lof.WithDistance(cfg.MetricFuncType),
			lof.WithAlg(cfg.AlgType),
		}
		// bad distance or backend names fail at startup
		if _, err := lof.New(opts...); err != nil {
			return nil, err
		}
		return func() (detector.Scorer, error) {
			l, err := lof.New(opts...)
			if err != nil {
				return nil, fmt.Errorf("unable create lof instance: %w", err)
			}
			return l, nil
		}, nil
	case detector.AlgTypeIsolationForest:
		cfg := provider.IForestConfig()
		return func() (detector.Scorer, error) {
			f, err := iforest.New(
				iforest.WithEstimators(cfg.Estimators),
				iforest.WithMaxSamples(cfg.MaxSamples),
				iforest.WithSeed(seed),
			)
			if err != nil {
				return nil, fmt.Errorf("unable create isolation forest instance: %w", err)
			}
			return f, nil
		}, nil
	case detector.AlgTypeRobustCovariance:
		cfg := provider.RobustConfig()
		return func() (detector.Scorer, error) {
			e, err := robust.New(
				robust.WithSupportFraction(cfg.SupportFraction),
				robust.WithTrials(cfg.Trials),
				robust.WithSeed(seed),
			)
			if err != nil {
				return nil, fmt.Errorf("unable create robust covariance instance: %w", err)
			}
			return e, nil
		}, nil
	case detector.AlgTypeOneClassSVM:
		cfg := provider.OCSVMConfig()
		return func() (detector.Scorer, error) {
			s, err := ocsvm.New(
				ocsvm.WithGamma(cfg.Gamma),
				ocsvm.WithTolerance(cfg.Tolerance),
				ocsvm.WithMaxIter(cfg.MaxIter),
			)
			if err != nil {
				return nil, fmt.Errorf("unable create one-class svm instance: %w", err)
			}
			return s, nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown detector type: %s", detector.ErrConfig, t)
	}
}

// ProvideStrategiesFor lists the strategies of a run. A plan replaces the environment list.
func ProvideStrategiesFor(provider DetectorConfigProvider, plan *experiment.Plan) ([]experiment.Strategy, error) {
	cfg := provider.DetectorConfig()
	type entry struct {
		t        detector.AlgType
		fraction float64
	}
	var entries []entry
	if plan != nil && len(plan.Strategies) > 0 {
		for _, s := range plan.Strategies {
			t, err := detector.ParseAlgType(s.Type)
			if err != nil {
				return nil, err
			}
			fraction := s.Fraction
			if fraction == 0 {
				fraction = cfg.FractionFor(t)
			}
			entries = append(entries, entry{t: t, fraction: fraction})
		}
	} else {
		types, err := cfg.AlgTypes()
		if err != nil {
			return nil, err
		}
		for _, t := range types {
			entries = append(entries, entry{t: t, fraction: cfg.FractionFor(t)})
		}
	}

	strategies := make([]experiment.Strategy, 0, len(entries))
	for _, e := range entries {
		provideFn, err := ProvideScorerFor(e.t, provider)
		if err != nil {
			return nil, err
		}
		if err := detector.ValidateFraction(e.fraction); err != nil {
			return nil, fmt.Errorf("strategy %s: %w", e.t, err)
		}
		strategies = append(strategies, experiment.Strategy{
			Name:     string(e.t),
			Fraction: e.fraction,
			Provide:  provideFn,
		})
	}
	return strategies, nil
}

func ProvideRunnerFor(strategies []experiment.Strategy, dsCfg *dataset.Config, expCfg *experiment.Config, db *database.DB) experiment.ProvideFn {
	return func() (experiment.Runner, error) {
		opts := []experiment.Option{
			experiment.WithTestRatio(dsCfg.TestRatio),
			experiment.WithSeed(dsCfg.Seed),
			experiment.WithMaxConcurrency(expCfg.MaxConcurrency),
		}
		if db != nil {
			reports := reportdb.New(db)
			opts = append(opts, experiment.WithStore(reports.Store, reports.Prune, expCfg.MaxStored))
		}
		r, err := experiment.New(strategies, opts...)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}
