package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/go-sod/sodfilter/internal/api"
	"github.com/go-sod/sodfilter/internal/buildinfo"
	sod "github.com/go-sod/sodfilter/internal/config"
	"github.com/go-sod/sodfilter/internal/logging"
	"github.com/go-sod/sodfilter/internal/server"
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

	mux := http.NewServeMux()

	filterHandler, err := api.NewFilterHandler(&config.API, env.ProvideScorer)
	if err != nil {
		return fmt.Errorf("api.NewFilterHandler: %w", err)
	}
	mux.Handle("/filter", filterHandler)
	mux.Handle("/health", api.HandleHealth(ctx))

	if reports := env.Reports(); reports != nil {
		reportsHandler, err := api.NewReportsHandler(&config.API, reports.FindAll, reports.FindByID)
		if err != nil {
			return fmt.Errorf("api.NewReportsHandler: %w", err)
		}
		mux.Handle("/reports", reportsHandler)
	}

	srv, err := server.New(config.SrvAddr)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	logger.Infof("serving on %s", srv.Addr())

	return srv.ServeHTTPHandler(ctx, mux)
}
