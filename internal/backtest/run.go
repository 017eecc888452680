package backtest

import (
	"fmt"
	"strings"
)

// Strategy kinds accepted by the factory.
const (
	KindManual              = "manual"
	KindStaticBuy           = "static_buy"
	KindDynamicBuy          = "dynamic_buy"
	KindStaticSell          = "static_sell"
	KindDynamicSell         = "dynamic_sell"
	KindBounded             = "bounded"
	KindMultiBounded        = "multi_bounded"
	KindMultiDynamicBounded = "multi_dynamic_bounded"
	KindComposite           = "composite"
)

// ThresholdSpec configures a price or change threshold: either a single
// value or an inclusive range.
type ThresholdSpec struct {
	Value *float64  `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	Range []float64 `json:"range,omitempty" yaml:"range,omitempty" mapstructure:"range"`
}

func (t ThresholdSpec) empty() bool { return t.Value == nil && len(t.Range) == 0 }

// OrderSpec is one scheduled manual order.
type OrderSpec struct {
	Date   string  `json:"date" yaml:"date" mapstructure:"date"`
	Type   string  `json:"type" yaml:"type" mapstructure:"type"`
	Amount float64 `json:"amount" yaml:"amount" mapstructure:"amount"`
	Sizing string  `json:"sizing,omitempty" yaml:"sizing,omitempty" mapstructure:"sizing"`
}

// StrategyConfig describes one strategy to simulate. Composite configs
// nest children and leave the single-asset fields empty.
type StrategyConfig struct {
	Kind    string  `json:"kind" yaml:"kind" mapstructure:"kind"`
	Name    string  `json:"name" yaml:"name" mapstructure:"name"`
	Ticker  string  `json:"ticker,omitempty" yaml:"ticker,omitempty" mapstructure:"ticker"`
	Start   string  `json:"start,omitempty" yaml:"start,omitempty" mapstructure:"start"`
	End     string  `json:"end,omitempty" yaml:"end,omitempty" mapstructure:"end"`
	Capital float64 `json:"capital,omitempty" yaml:"capital,omitempty" mapstructure:"capital"`
	Sizing  string  `json:"sizing,omitempty" yaml:"sizing,omitempty" mapstructure:"sizing"`

	Orders []OrderSpec `json:"orders,omitempty" yaml:"orders,omitempty" mapstructure:"orders"`

	Threshold ThresholdSpec `json:"threshold,omitempty" yaml:"threshold,omitempty" mapstructure:"threshold"`
	Quantity  float64       `json:"quantity,omitempty" yaml:"quantity,omitempty" mapstructure:"quantity"`
	Lookback  string        `json:"lookback,omitempty" yaml:"lookback,omitempty" mapstructure:"lookback"`

	StopLoss      float64 `json:"stop_loss,omitempty" yaml:"stop_loss,omitempty" mapstructure:"stop_loss"`
	TakeProfit    float64 `json:"take_profit,omitempty" yaml:"take_profit,omitempty" mapstructure:"take_profit"`
	StopLossPct   float64 `json:"stop_loss_pct,omitempty" yaml:"stop_loss_pct,omitempty" mapstructure:"stop_loss_pct"`
	TakeProfitPct float64 `json:"take_profit_pct,omitempty" yaml:"take_profit_pct,omitempty" mapstructure:"take_profit_pct"`
	HoldPeriod    string  `json:"hold_period,omitempty" yaml:"hold_period,omitempty" mapstructure:"hold_period"`

	Targets        []ThresholdSpec `json:"targets,omitempty" yaml:"targets,omitempty" mapstructure:"targets"`
	AmountPerTrade float64         `json:"amount_per_trade,omitempty" yaml:"amount_per_trade,omitempty" mapstructure:"amount_per_trade"`

	Children []StrategyConfig `json:"children,omitempty" yaml:"children,omitempty" mapstructure:"children"`
}

// Validate checks the fields every kind needs before the factory runs.
func (c *StrategyConfig) Validate() error {
	kind := strings.ToLower(strings.TrimSpace(c.Kind))
	if kind == "" {
		return fmt.Errorf("strategy kind is required")
	}
	c.Kind = kind
	if kind == KindComposite {
		if len(c.Children) == 0 {
			return fmt.Errorf("composite strategy needs children")
		}
		for i := range c.Children {
			if err := c.Children[i].Validate(); err != nil {
				return fmt.Errorf("child %d: %w", i, err)
			}
		}
		return nil
	}
	if c.Ticker == "" {
		return fmt.Errorf("%s strategy needs a ticker", kind)
	}
	if c.Start == "" || c.End == "" {
		return fmt.Errorf("%s strategy needs start and end dates", kind)
	}
	if c.End < c.Start {
		return fmt.Errorf("end date %s before start date %s", c.End, c.Start)
	}
	if c.Capital <= 0 {
		return fmt.Errorf("%s strategy needs positive capital", kind)
	}
	switch kind {
	case KindManual:
	case KindStaticBuy, KindStaticSell:
		if c.Threshold.empty() {
			return fmt.Errorf("%s strategy needs a threshold", kind)
		}
		if c.Quantity <= 0 {
			return fmt.Errorf("%s strategy needs a positive quantity", kind)
		}
	case KindDynamicBuy, KindDynamicSell:
		if c.Threshold.empty() {
			return fmt.Errorf("%s strategy needs a threshold", kind)
		}
		if c.Quantity <= 0 {
			return fmt.Errorf("%s strategy needs a positive quantity", kind)
		}
		if c.Lookback == "" {
			return fmt.Errorf("%s strategy needs a lookback interval", kind)
		}
	case KindBounded:
		// zero bounds are legal, they disable that exit
	case KindMultiBounded:
		if len(c.Targets) == 0 {
			return fmt.Errorf("multi_bounded strategy needs target prices")
		}
		if c.AmountPerTrade <= 0 {
			return fmt.Errorf("multi_bounded strategy needs a positive amount_per_trade")
		}
	case KindMultiDynamicBounded:
		if c.Threshold.empty() {
			return fmt.Errorf("multi_dynamic_bounded strategy needs a trigger threshold")
		}
		if c.Lookback == "" {
			return fmt.Errorf("multi_dynamic_bounded strategy needs a lookback interval")
		}
		if c.AmountPerTrade <= 0 {
			return fmt.Errorf("multi_dynamic_bounded strategy needs a positive amount_per_trade")
		}
	default:
		return fmt.Errorf("unknown strategy kind %q", kind)
	}
	return nil
}

// Window reports the full simulation window a config spans, covering
// children for composites.
func (c *StrategyConfig) Window() (start, end string) {
	if c.Kind != KindComposite {
		return c.Start, c.End
	}
	for _, child := range c.Children {
		cs, ce := child.Window()
		if start == "" || cs < start {
			start = cs
		}
		if end == "" || ce > end {
			end = ce
		}
	}
	return start, end
}

// Tickers collects every ticker a config touches.
func (c *StrategyConfig) Tickers() []string {
	seen := map[string]struct{}{}
	var out []string
	var walk func(cfg *StrategyConfig)
	walk = func(cfg *StrategyConfig) {
		if cfg.Ticker != "" {
			t := strings.ToUpper(cfg.Ticker)
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
		for i := range cfg.Children {
			walk(&cfg.Children[i])
		}
	}
	walk(c)
	return out
}

// RunRequest is the API payload that starts a simulation.
type RunRequest struct {
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
}
