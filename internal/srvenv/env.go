package srvenv

import (
	"context"
	"errors"

	"github.com/go-sod/sodfilter/internal/database"
	"github.com/go-sod/sodfilter/internal/datacache"
	"github.com/go-sod/sodfilter/internal/dataset"
	"github.com/go-sod/sodfilter/internal/detector"
	"github.com/go-sod/sodfilter/internal/experiment"
	reportdb "github.com/go-sod/sodfilter/internal/report/database"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{
		scorers: map[detector.AlgType]detector.ProvideFn{},
	}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	database *database.DB
	reports  *reportdb.DB
	cache    *datacache.Cache
	fetcher  *dataset.Fetcher
	scorers  map[detector.AlgType]detector.ProvideFn
	runner   experiment.ProvideFn
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

func (s *SrvEnv) Reports() *reportdb.DB {
	return s.reports
}

func (s *SrvEnv) Fetcher() *dataset.Fetcher {
	return s.fetcher
}

func (s *SrvEnv) ProvideScorer(t detector.AlgType) (detector.ProvideFn, bool) {
	fn, ok := s.scorers[t]
	return fn, ok
}

func (s *SrvEnv) ProvideRunner() experiment.ProvideFn {
	return s.runner
}

func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		s.reports = reportdb.New(db)
		return s
	}
}

func WithCache(c *datacache.Cache) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.cache = c
		return s
	}
}

func WithFetcher(f *dataset.Fetcher) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.fetcher = f
		return s
	}
}

func WithScorer(t detector.AlgType, fn detector.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.scorers[t] = fn
		return s
	}
}

func WithRunner(fn experiment.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.runner = fn
		return s
	}
}

func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close(ctx))
	}
	if s.database != nil {
		errs = append(errs, s.database.Close(ctx))
	}
	return errors.Join(errs...)
}
