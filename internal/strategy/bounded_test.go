package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedEntersAllInOnStart(t *testing.T) {
	s := flatSeries(t, "AAPL", 50, "2024-01-02", "2024-01-03")
	b, err := NewBounded(BookConfig{
		Name: "bounded", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-03",
		Capital: 1000, Series: s,
	}, 40, 60, "")
	require.NoError(t, err)
	assert.Equal(t, 50.0, b.EntryPrice())

	res, err := b.Tick("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, TickContinue, res)
	assert.Equal(t, 0.0, b.Fiat())
	assert.Equal(t, 20.0, b.Stock())
	assert.Equal(t, "initial_entry", b.Operations()[0].Trigger)
}

func TestBoundedStopLossExit(t *testing.T) {
	s := priceSeries(t, "AAPL", map[string]float64{
		"2024-01-02": 50,
		"2024-01-03": 45,
		"2024-01-04": 39,
	})
	b, err := NewBounded(BookConfig{
		Name: "sl", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-04",
		Capital: 1000, Series: s,
	}, 40, 70, "")
	require.NoError(t, err)

	_, err = b.Tick("2024-01-02")
	require.NoError(t, err)
	res, err := b.Tick("2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, TickContinue, res)

	res, err = b.Tick("2024-01-04")
	require.NoError(t, err)
	assert.Equal(t, TickStop, res)
	require.True(t, b.Closed())

	ops := b.Operations()
	last := ops[len(ops)-1]
	assert.Equal(t, "stop_loss", last.Trigger)
	assert.Equal(t, OpSell, last.Type)
	// 20 shares sold at 39
	assert.Equal(t, 780.0, b.Fiat())
}

func TestBoundedTakeProfitExit(t *testing.T) {
	s := priceSeries(t, "AAPL", map[string]float64{
		"2024-01-02": 50,
		"2024-01-03": 61,
	})
	b, err := NewBounded(BookConfig{
		Name: "tp", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-03",
		Capital: 1000, Series: s,
	}, 40, 60, "")
	require.NoError(t, err)

	_, err = b.Tick("2024-01-02")
	require.NoError(t, err)
	res, err := b.Tick("2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, TickStop, res)

	ops := b.Operations()
	assert.Equal(t, "take_profit", ops[len(ops)-1].Trigger)
	assert.Equal(t, 1220.0, b.Fiat())
}

func TestBoundedStopLossWinsOverTakeProfit(t *testing.T) {
	// degenerate bounds where the entry bar satisfies both exits
	s := flatSeries(t, "AAPL", 50, "2024-01-02")
	b, err := NewBounded(BookConfig{
		Name: "both", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-02",
		Capital: 1000, Series: s,
	}, 55, 45, "")
	require.NoError(t, err)

	res, err := b.Tick("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, TickStop, res)
	ops := b.Operations()
	assert.Equal(t, "stop_loss", ops[len(ops)-1].Trigger)
}

func TestBoundedTimeStop(t *testing.T) {
	s := flatSeries(t, "AAPL", 50,
		"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08")
	b, err := NewBounded(BookConfig{
		Name: "timed", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-08",
		Capital: 1000, Series: s,
	}, 0, 0, "3 days")
	require.NoError(t, err)

	for _, d := range []string{"2024-01-02", "2024-01-03", "2024-01-04"} {
		res, err := b.Tick(d)
		require.NoError(t, err)
		require.Equal(t, TickContinue, res, d)
	}
	res, err := b.Tick("2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, TickStop, res)
	ops := b.Operations()
	assert.Equal(t, "time_stop", ops[len(ops)-1].Trigger)
}

func TestBoundedTimeStopWaitsForTradingDay(t *testing.T) {
	// the hold period lapses over a market gap; the exit executes on the
	// next bar, not on the gap dates
	s := flatSeries(t, "AAPL", 50, "2024-01-02", "2024-01-03", "2024-01-08")
	b, err := NewBounded(BookConfig{
		Name: "gapped", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-08",
		Capital: 1000, Series: s,
	}, 0, 0, "2 days")
	require.NoError(t, err)

	_, err = b.Tick("2024-01-02")
	require.NoError(t, err)
	_, err = b.Tick("2024-01-03")
	require.NoError(t, err)

	for _, d := range []string{"2024-01-04", "2024-01-05", "2024-01-06", "2024-01-07"} {
		res, err := b.Tick(d)
		require.NoError(t, err)
		require.Equal(t, TickContinue, res, d)
		require.False(t, b.Closed(), d)
	}

	res, err := b.Tick("2024-01-08")
	require.NoError(t, err)
	assert.Equal(t, TickStop, res)
	ops := b.Operations()
	assert.Equal(t, "time_stop", ops[len(ops)-1].Trigger)
	assert.Equal(t, "2024-01-08", ops[len(ops)-1].Date)
}

func TestBoundedHoldsWithoutBounds(t *testing.T) {
	s := priceSeries(t, "AAPL", map[string]float64{
		"2024-01-02": 50,
		"2024-01-03": 10,
		"2024-01-04": 200,
	})
	b, err := NewBounded(BookConfig{
		Name: "hold", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-04",
		Capital: 1000, Series: s,
	}, 0, 0, "")
	require.NoError(t, err)

	require.NoError(t, b.Execute())
	require.True(t, b.Closed())
	// 20 shares held to the end, force-closed at 200
	assert.Equal(t, 4000.0, b.Fiat())
	ops := b.Operations()
	assert.Equal(t, "force_close", ops[len(ops)-1].Trigger)
}

func TestBoundedFromPercentDerivesBounds(t *testing.T) {
	s := priceSeries(t, "AAPL", map[string]float64{
		"2024-01-02": 100,
		"2024-01-03": 94,
	})
	b, err := NewBoundedFromPercent(BookConfig{
		Name: "pct", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-03",
		Capital: 1000, Series: s,
	}, 0.05, 0.10, "")
	require.NoError(t, err)

	_, err = b.Tick("2024-01-02")
	require.NoError(t, err)
	res, err := b.Tick("2024-01-03")
	require.NoError(t, err)
	// stop at 95 triggers on the 94 close
	assert.Equal(t, TickStop, res)
	ops := b.Operations()
	assert.Equal(t, "stop_loss", ops[len(ops)-1].Trigger)
}
