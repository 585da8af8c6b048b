package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-sod/sodfilter/internal/buildinfo"
	sod "github.com/go-sod/sodfilter/internal/config"
	"github.com/go-sod/sodfilter/internal/logging"
	"github.com/go-sod/sodfilter/internal/setup"
	"github.com/go-sod/sodfilter/internal/shutdown"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Info.Banner())

	ctx, done := shutdown.New()
	logger := logging.FromContext(ctx)
	err := run(ctx)
	done()
	_ = logger.Sync()
	if err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context) (err error) {
	logger := logging.FromContext(ctx)
	config := sod.Config{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer func() {
		if closeErr := env.Close(ctx); closeErr != nil && err == nil {
			err = fmt.Errorf("env.Close: %w", closeErr)
		}
	}()

	ds, err := env.Fetcher().Load(ctx, config.Dataset.Source)
	if err != nil {
		return fmt.Errorf("dataset.Load: %w", err)
	}
	rows, cols := ds.Shape()
	_, _ = fmt.Fprintf(os.Stdout, "Dataset: (%d, %d) (%d,)\n", rows, cols, rows)

	runner, err := env.ProvideRunner()()
	if err != nil {
		return fmt.Errorf("runner provider function error: %w", err)
	}
	rep, err := runner.Run(ctx, config.Dataset.Source, ds)
	if err != nil {
		return fmt.Errorf("runner.Run: %w", err)
	}
	if _, err := rep.WriteTo(os.Stdout); err != nil {
		return fmt.Errorf("report.WriteTo: %w", err)
	}

	best := rep.Best()
	logger.Infow("comparison finished",
		"report", rep.ID,
		"best", best.Strategy,
		"mae", best.MAE,
		"baselineMae", rep.Baseline.MAE)
	return nil
}
