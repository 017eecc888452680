package backtest

import (
	"context"
	"fmt"

	"stratsim/internal/series"
	"stratsim/internal/strategy"
)

// SeriesLoader resolves the price history a strategy runs against.
type SeriesLoader interface {
	LoadSeries(ctx context.Context, ticker, start, end string) (*series.Series, error)
}

// Build turns a validated config into a runnable strategy. Series are
// loaded unbounded below start so lookback references resolve.
func Build(ctx context.Context, loader SeriesLoader, cfg *StrategyConfig) (strategy.Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return build(ctx, loader, cfg)
}

func build(ctx context.Context, loader SeriesLoader, cfg *StrategyConfig) (strategy.Strategy, error) {
	if cfg.Kind == KindComposite {
		children := make([]strategy.Strategy, 0, len(cfg.Children))
		for i := range cfg.Children {
			child, err := build(ctx, loader, &cfg.Children[i])
			if err != nil {
				return nil, fmt.Errorf("child %d: %w", i, err)
			}
			children = append(children, child)
		}
		name := cfg.Name
		if name == "" {
			name = "composite"
		}
		return strategy.NewComposite(name, children...)
	}

	sr, err := loader.LoadSeries(ctx, cfg.Ticker, "", cfg.End)
	if err != nil {
		return nil, fmt.Errorf("load series for %s: %w", cfg.Ticker, err)
	}
	if sr.Len() == 0 {
		return nil, fmt.Errorf("no bars stored for %s", cfg.Ticker)
	}

	sizing, err := strategy.ParseSizing(cfg.Sizing)
	if err != nil {
		return nil, err
	}
	orders, err := manualOrders(cfg.Orders)
	if err != nil {
		return nil, err
	}
	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("%s_%s", cfg.Kind, cfg.Ticker)
	}
	book := strategy.BookConfig{
		Name:         name,
		Ticker:       cfg.Ticker,
		Start:        cfg.Start,
		End:          cfg.End,
		Capital:      cfg.Capital,
		Series:       sr,
		Sizing:       sizing,
		ManualOrders: orders,
	}

	switch cfg.Kind {
	case KindManual:
		return strategy.NewBook(book), nil
	case KindStaticBuy:
		rule, err := thresholdRule(cfg.Threshold)
		if err != nil {
			return nil, err
		}
		return strategy.NewStaticBuy(book, rule, cfg.Quantity), nil
	case KindDynamicBuy:
		rule, err := thresholdRule(cfg.Threshold)
		if err != nil {
			return nil, err
		}
		return strategy.NewDynamicBuy(book, rule, cfg.Quantity, cfg.Lookback)
	case KindStaticSell:
		rule, err := thresholdRule(cfg.Threshold)
		if err != nil {
			return nil, err
		}
		return strategy.NewStaticSell(book, rule, cfg.Quantity), nil
	case KindDynamicSell:
		rule, err := thresholdRule(cfg.Threshold)
		if err != nil {
			return nil, err
		}
		return strategy.NewDynamicSell(book, rule, cfg.Quantity, cfg.Lookback)
	case KindBounded:
		if cfg.StopLoss == 0 && cfg.TakeProfit == 0 && (cfg.StopLossPct != 0 || cfg.TakeProfitPct != 0) {
			return strategy.NewBoundedFromPercent(book, -cfg.StopLossPct, cfg.TakeProfitPct, cfg.HoldPeriod)
		}
		return strategy.NewBounded(book, cfg.StopLoss, cfg.TakeProfit, cfg.HoldPeriod)
	case KindMultiBounded:
		targets := make([]strategy.ThresholdRule, 0, len(cfg.Targets))
		for i, spec := range cfg.Targets {
			r, err := thresholdRule(spec)
			if err != nil {
				return nil, fmt.Errorf("target %d: %w", i, err)
			}
			targets = append(targets, r)
		}
		return strategy.NewMultiBounded(book, targets, cfg.AmountPerTrade, cfg.StopLossPct, cfg.TakeProfitPct, cfg.HoldPeriod)
	case KindMultiDynamicBounded:
		trigger, err := thresholdRule(cfg.Threshold)
		if err != nil {
			return nil, err
		}
		return strategy.NewDynamicMultiBounded(book, trigger, cfg.Lookback, cfg.AmountPerTrade, cfg.StopLossPct, cfg.TakeProfitPct, cfg.HoldPeriod)
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", cfg.Kind)
	}
}

func thresholdRule(spec ThresholdSpec) (strategy.ThresholdRule, error) {
	switch {
	case len(spec.Range) == 2:
		return strategy.Between(spec.Range[0], spec.Range[1]), nil
	case len(spec.Range) != 0:
		return strategy.ThresholdRule{}, fmt.Errorf("threshold range needs exactly two values, got %d", len(spec.Range))
	case spec.Value != nil:
		return strategy.Exactly(*spec.Value), nil
	default:
		return strategy.ThresholdRule{}, fmt.Errorf("threshold needs a value or a range")
	}
}

func manualOrders(specs []OrderSpec) ([]strategy.ManualOrder, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make([]strategy.ManualOrder, 0, len(specs))
	for i, spec := range specs {
		sizing, err := strategy.ParseSizing(spec.Sizing)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		var op strategy.OpType
		switch spec.Type {
		case "buy", "":
			op = strategy.OpBuy
		case "sell":
			op = strategy.OpSell
		default:
			return nil, fmt.Errorf("order %d: unknown type %q", i, spec.Type)
		}
		if spec.Date == "" {
			return nil, fmt.Errorf("order %d: date is required", i)
		}
		out = append(out, strategy.ManualOrder{
			Date:   spec.Date,
			Type:   op,
			Amount: spec.Amount,
			Sizing: sizing,
		})
	}
	return out, nil
}
