// Package config composes the environment configuration of the binaries.
package config

import (
	"github.com/go-sod/sodfilter/internal/api"
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
	"github.com/go-sod/sodfilter/internal/setup"
)

var (
	_ setup.DatasetConfigProvider    = (*Config)(nil)
	_ setup.DetectorConfigProvider   = (*Config)(nil)
	_ setup.ExperimentConfigProvider = (*Config)(nil)
	_ setup.DatabaseConfigProvider   = (*Config)(nil)
	_ setup.CacheConfigProvider      = (*Config)(nil)
)

type Config struct {
	SrvAddr    string `envconfig:"SOD_ADDR" default:":8787"`
	Dataset    dataset.Config
	HTTPClient httputil.HTTPClientConfig
	Detector   detector.Config
	LOF        lof.Config
	IForest    iforest.Config
	Robust     robust.Config
	OCSVM      ocsvm.Config
	Experiment experiment.Config
	Database   database.Config
	Cache      datacache.Config
	API        api.Config
}

func (c *Config) DatasetConfig() *dataset.Config {
	return &c.Dataset
}

func (c *Config) HTTPClientConfig() *httputil.HTTPClientConfig {
	return &c.HTTPClient
}

func (c *Config) DetectorConfig() *detector.Config {
	return &c.Detector
}

func (c *Config) LOFConfig() *lof.Config {
	return &c.LOF
}

func (c *Config) IForestConfig() *iforest.Config {
	return &c.IForest
}

func (c *Config) RobustConfig() *robust.Config {
	return &c.Robust
}

func (c *Config) OCSVMConfig() *ocsvm.Config {
	return &c.OCSVM
}

func (c *Config) ExperimentConfig() *experiment.Config {
	return &c.Experiment
}

func (c *Config) DatabaseConfig() *database.Config {
	return &c.Database
}

func (c *Config) CacheConfig() *datacache.Config {
	return &c.Cache
}
