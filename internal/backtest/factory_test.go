package backtest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stratsim/internal/series"
	"stratsim/internal/strategy"
)

type fakeLoader struct {
	series map[string]*series.Series
	calls  []string
}

func (f *fakeLoader) LoadSeries(_ context.Context, ticker, start, end string) (*series.Series, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s[%s:%s]", ticker, start, end))
	sr, ok := f.series[strings.ToUpper(ticker)]
	if !ok {
		return nil, fmt.Errorf("no bars stored for %s", ticker)
	}
	return sr, nil
}

func flatLoader(t *testing.T, ticker string, price float64, dates ...string) *fakeLoader {
	t.Helper()
	bars := make([]series.Bar, 0, len(dates))
	for _, d := range dates {
		bars = append(bars, series.Bar{Date: d, Open: price, High: price, Low: price, Close: price, Volume: 1000})
	}
	sr, err := series.New(ticker, bars)
	require.NoError(t, err)
	return &fakeLoader{series: map[string]*series.Series{strings.ToUpper(ticker): sr}}
}

func TestBuildManualBook(t *testing.T) {
	loader := flatLoader(t, "AAPL", 50, "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05")
	cfg := manualConfig()
	cfg.Orders = []OrderSpec{{Date: "2024-01-03", Type: "buy", Amount: 200}}

	strat, err := Build(context.Background(), loader, &cfg)
	require.NoError(t, err)

	book, ok := strat.(*strategy.Book)
	require.True(t, ok)
	require.Equal(t, "manual_AAPL", book.Name())
	require.Equal(t, "2024-01-02", book.Start())
	require.Equal(t, "2024-01-05", book.End())
	require.InDelta(t, 1000, book.InitialCapital(), 1e-9)

	// the series window is left open below start so lookbacks resolve
	require.Equal(t, []string{"AAPL[:2024-01-05]"}, loader.calls)
}

func TestBuildStrategyKinds(t *testing.T) {
	dates := []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}
	cases := []struct {
		name   string
		mutate func(*StrategyConfig)
		want   any
	}{
		{
			name: "static buy",
			mutate: func(c *StrategyConfig) {
				c.Kind = KindStaticBuy
				c.Threshold = ThresholdSpec{Value: floatPtr(50)}
				c.Quantity = 200
			},
			want: &strategy.StaticBuy{},
		},
		{
			name: "dynamic sell",
			mutate: func(c *StrategyConfig) {
				c.Kind = KindDynamicSell
				c.Threshold = ThresholdSpec{Value: floatPtr(0.05)}
				c.Quantity = 200
				c.Lookback = "2 days"
			},
			want: &strategy.DynamicSell{},
		},
		{
			name: "bounded with absolute levels",
			mutate: func(c *StrategyConfig) {
				c.Kind = KindBounded
				c.StopLoss = 40
				c.TakeProfit = 60
			},
			want: &strategy.Bounded{},
		},
		{
			name: "multi bounded",
			mutate: func(c *StrategyConfig) {
				c.Kind = KindMultiBounded
				c.Targets = []ThresholdSpec{{Value: floatPtr(45)}}
				c.AmountPerTrade = 500
				c.StopLossPct = -0.05
				c.TakeProfitPct = 0.1
			},
			want: &strategy.MultiBounded{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loader := flatLoader(t, "AAPL", 50, dates...)
			cfg := manualConfig()
			tc.mutate(&cfg)
			strat, err := Build(context.Background(), loader, &cfg)
			require.NoError(t, err)
			require.IsType(t, tc.want, strat)
		})
	}
}

func TestBuildBoundedFromPercent(t *testing.T) {
	loader := flatLoader(t, "AAPL", 100, "2024-01-02", "2024-01-03")
	cfg := manualConfig()
	cfg.Kind = KindBounded
	cfg.StopLossPct = -0.05
	cfg.TakeProfitPct = 0.1

	strat, err := Build(context.Background(), loader, &cfg)
	require.NoError(t, err)

	bounded, ok := strat.(*strategy.Bounded)
	require.True(t, ok)
	require.InDelta(t, 100, bounded.EntryPrice(), 1e-9)
}

func TestBuildComposite(t *testing.T) {
	loader := flatLoader(t, "AAPL", 50, "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05")
	cfg := StrategyConfig{
		Kind:     KindComposite,
		Name:     "pair",
		Children: []StrategyConfig{manualConfig(), manualConfig()},
	}

	strat, err := Build(context.Background(), loader, &cfg)
	require.NoError(t, err)

	comp, ok := strat.(*strategy.Composite)
	require.True(t, ok)
	require.Equal(t, "pair", comp.Name())
	require.InDelta(t, 2000, comp.InitialCapital(), 1e-9)
	require.Equal(t, 2, comp.ActiveChildren())
}

func TestBuildErrors(t *testing.T) {
	loader := flatLoader(t, "AAPL", 50, "2024-01-02", "2024-01-03")

	cfg := manualConfig()
	cfg.Ticker = "MSFT"
	_, err := Build(context.Background(), loader, &cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "MSFT")

	cfg = manualConfig()
	cfg.Sizing = "martingale"
	_, err = Build(context.Background(), loader, &cfg)
	require.ErrorIs(t, err, strategy.ErrUnknownSizing)

	cfg = manualConfig()
	cfg.Orders = []OrderSpec{{Type: "buy", Amount: 100}}
	_, err = Build(context.Background(), loader, &cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "date is required")
}

func TestManualOrderConversion(t *testing.T) {
	orders, err := manualOrders([]OrderSpec{
		{Date: "2024-01-03", Amount: 100},
		{Date: "2024-01-04", Type: "sell", Amount: 0.5, Sizing: "current"},
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, strategy.OpBuy, orders[0].Type)
	require.Equal(t, strategy.SizingInherit, orders[0].Sizing)
	require.Equal(t, strategy.OpSell, orders[1].Type)
	require.Equal(t, strategy.SizingCurrent, orders[1].Sizing)

	_, err = manualOrders([]OrderSpec{{Date: "2024-01-03", Type: "short", Amount: 1}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown type")
}
