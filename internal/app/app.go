package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"stratsim/internal/backtest"
	"stratsim/internal/config"
	"stratsim/internal/config/loader"
	"stratsim/internal/fetch"
	"stratsim/internal/logger"
	"stratsim/internal/store"
	"stratsim/internal/store/resultstore"
)

// App wires configuration, stores, the simulator and the HTTP server.
type App struct {
	cfg     *config.Config
	prices  *store.PriceStore
	results *resultstore.Store
	sim     *backtest.Simulator
	server  *backtest.HTTPServer
	specs   *loader.SpecLoader
}

// NewApp builds the application without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	prices, err := store.NewPriceStore(cfg.Data.PricesPath)
	if err != nil {
		return nil, fmt.Errorf("open price store: %w", err)
	}
	results, err := resultstore.New(cfg.Data.ResultsPath)
	if err != nil {
		prices.Close()
		return nil, fmt.Errorf("open result store: %w", err)
	}
	sim, err := backtest.NewSimulator(backtest.SimulatorConfig{
		Prices:        prices,
		Results:       results,
		MaxConcurrent: cfg.Backtest.MaxConcurrentRuns,
	})
	if err != nil {
		return nil, err
	}
	server, err := backtest.NewHTTPServer(backtest.HTTPConfig{
		Addr:      cfg.Server.Addr,
		Simulator: sim,
		Prices:    prices,
		Results:   results,
		Source:    fetch.NewYahooSource(cfg.Fetch.BaseURL),
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		prices:  prices,
		results: results,
		sim:     sim,
		server:  server,
	}
	if cfg.Backtest.SpecsPath != "" {
		specs, err := loader.NewSpecLoader(cfg.Backtest.SpecsPath)
		if err != nil {
			return nil, fmt.Errorf("load strategy definitions: %w", err)
		}
		a.specs = specs
	}
	return a, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	a.sim.SetContext(ctx)
	logger.Infof("stratsim listening on %s (env=%s)", a.cfg.Server.Addr, a.cfg.App.Env)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	err := group.Wait()
	a.sim.Wait()
	return err
}

// RunFile executes a single run request file synchronously and reports
// the stored outcome.
func (a *App) RunFile(ctx context.Context, path string) (*resultstore.RunModel, error) {
	req, err := loader.LoadRunRequest(path)
	if err != nil {
		return nil, err
	}
	a.sim.SetContext(ctx)
	run, err := a.sim.StartRun(*req)
	if err != nil {
		return nil, err
	}
	a.sim.Wait()
	stored, err := a.results.GetRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if stored.Status == resultstore.RunStatusFailed {
		return stored, fmt.Errorf("run %s failed: %s", stored.ID, stored.Error)
	}
	logger.Infof("run %s finished: capital %.2f -> %.2f, profit %.2f (%.2f%%)",
		stored.ID, stored.InitialCap, stored.FinalCap, stored.Profit, stored.Returns*100)
	return stored, nil
}

// Specs exposes the hot-reloading strategy definitions, if configured.
func (a *App) Specs() *loader.SpecLoader { return a.specs }

// Close releases the stores.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.results != nil {
		_ = a.results.Close()
	}
	if a.prices != nil {
		_ = a.prices.Close()
	}
}
