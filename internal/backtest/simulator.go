package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"stratsim/internal/interval"
	"stratsim/internal/logger"
	"stratsim/internal/store/resultstore"
	"stratsim/internal/strategy"
)

type SimulatorConfig struct {
	Prices        SeriesLoader
	Results       *resultstore.Store
	MaxConcurrent int
}

// Simulator turns run requests into executed simulations. StartRun
// returns immediately; the run itself happens on a bounded pool of
// background workers.
type Simulator struct {
	prices  SeriesLoader
	results *resultstore.Store

	sem     chan struct{}
	baseCtx context.Context

	wg sync.WaitGroup
}

func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if cfg.Prices == nil {
		return nil, fmt.Errorf("price store cannot be nil")
	}
	if cfg.Results == nil {
		return nil, fmt.Errorf("result store cannot be nil")
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Simulator{
		prices:  cfg.Prices,
		results: cfg.Results,
		sem:     make(chan struct{}, maxConcurrent),
		baseCtx: context.Background(),
	}, nil
}

func (s *Simulator) SetContext(ctx context.Context) {
	if ctx != nil {
		s.baseCtx = ctx
	}
}

func (s *Simulator) ctx() context.Context {
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

// Wait blocks until every in-flight run has finished.
func (s *Simulator) Wait() { s.wg.Wait() }

// StartRun validates the request, persists a pending run, and schedules
// the simulation in the background.
func (s *Simulator) StartRun(req RunRequest) (*resultstore.RunModel, error) {
	cfg := req.Strategy
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start, end := cfg.Window()
	name := cfg.Name
	if name == "" {
		name = cfg.Kind
	}
	rawCfg, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	run := &resultstore.RunModel{
		ID:         uuid.NewString(),
		Name:       name,
		Ticker:     firstOrEmpty(cfg.Tickers()),
		Start:      start,
		End:        end,
		Status:     resultstore.RunStatusPending,
		ConfigJSON: datatypes.JSON(rawCfg),
		InitialCap: initialCapital(&cfg),
	}
	if err := s.results.CreateRun(s.ctx(), run); err != nil {
		return nil, err
	}
	s.wg.Add(1)
	go s.runLoop(run.ID, cfg)
	return run, nil
}

func (s *Simulator) runLoop(runID string, cfg StrategyConfig) {
	defer s.wg.Done()
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	ctx := s.ctx()
	if err := s.results.UpdateRunStatus(ctx, runID, resultstore.RunStatusRunning, ""); err != nil {
		logger.Debugf("update run status failed: %v", err)
	}
	if err := s.execute(ctx, runID, &cfg); err != nil {
		logger.Warnf("[backtest] run %s failed: %v", runID, err)
		_ = s.results.UpdateRunStatus(ctx, runID, resultstore.RunStatusFailed, err.Error())
	}
}

// execute builds the strategy, drives it day by day recording the daily
// equity, and persists the outcome.
func (s *Simulator) execute(ctx context.Context, runID string, cfg *StrategyConfig) error {
	strat, err := build(ctx, s.prices, cfg)
	if err != nil {
		return err
	}
	dates, err := interval.DateRange(strat.Start(), strat.End())
	if err != nil {
		return err
	}
	perf := make([]resultstore.PerformanceRowModel, 0, len(dates))
	for _, date := range dates {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		res, err := strat.Tick(date)
		if err != nil {
			return err
		}
		equity := strat.CurrentCapital(date)
		cash := strat.Fiat()
		perf = append(perf, resultstore.PerformanceRowModel{
			RunID:         runID,
			Date:          date,
			Cash:          cash,
			InvestedValue: equity - cash,
			TotalEquity:   equity,
		})
		if res == strategy.TickStop {
			break
		}
	}
	if err := strat.Close(strat.End(), closeTrigger(strat)); err != nil {
		return err
	}

	ops := strat.Operations()
	opModels := make([]resultstore.OperationModel, 0, len(ops))
	for _, op := range ops {
		opModels = append(opModels, resultstore.OperationModel{
			RunID:      runID,
			Type:       string(op.Type),
			CashAmount: op.CashAmount,
			Ticker:     op.Ticker,
			Price:      op.Price,
			Successful: op.Successful,
			Date:       op.Date,
			Trigger:    op.Trigger,
		})
	}
	// persistence of detail rows is best effort, the run itself succeeded
	if err := s.results.SaveOperations(ctx, opModels); err != nil {
		logger.Warnf("[backtest] run %s: save operations: %v", runID, err)
	}
	if err := s.results.SavePerformance(ctx, perf); err != nil {
		logger.Warnf("[backtest] run %s: save performance: %v", runID, err)
	}

	profit, err := strat.Profit()
	if err != nil {
		return err
	}
	returns, err := strat.Returns()
	if err != nil {
		return err
	}
	logger.Infof("[backtest] run %s done: profit %.2f (%.2f%%), %d operations",
		runID, profit, returns*100, len(ops))
	return s.results.FinishRun(ctx, runID, strat.Fiat(), profit, returns, len(ops))
}

func closeTrigger(s strategy.Strategy) string {
	switch s.(type) {
	case *strategy.Composite:
		return "force_close_global"
	case *strategy.MultiBounded:
		return "parent_force_close"
	default:
		return "force_close"
	}
}

func initialCapital(cfg *StrategyConfig) float64 {
	if cfg.Kind != KindComposite {
		return cfg.Capital
	}
	var total float64
	for i := range cfg.Children {
		total += initialCapital(&cfg.Children[i])
	}
	return total
}

func firstOrEmpty(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}
