package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdRuleMatches(t *testing.T) {
	assert.True(t, Exactly(50).Matches(50))
	assert.False(t, Exactly(50).Matches(50.01))

	r := Between(40, 45)
	assert.True(t, r.Matches(40))
	assert.True(t, r.Matches(42.5))
	assert.True(t, r.Matches(45))
	assert.False(t, r.Matches(45.01))

	// endpoints normalize regardless of argument order
	assert.True(t, Between(45, 40).Matches(42))
}

func TestThresholdRuleMatchesChange(t *testing.T) {
	// +5% breakout against a 100 reference
	up := Exactly(0.05)
	assert.True(t, up.MatchesChange(105, 100))
	assert.True(t, up.MatchesChange(110, 100))
	assert.False(t, up.MatchesChange(104.99, 100))

	// -5% dip
	down := Exactly(-0.05)
	assert.True(t, down.MatchesChange(95, 100))
	assert.True(t, down.MatchesChange(90, 100))
	assert.False(t, down.MatchesChange(95.01, 100))

	// zero level never fires
	assert.False(t, Exactly(0).MatchesChange(100, 100))

	// range projects endpoints onto the reference
	band := Between(-0.10, -0.05)
	assert.True(t, band.MatchesChange(92, 100))
	assert.False(t, band.MatchesChange(96, 100))
	assert.False(t, band.MatchesChange(89, 100))

	// non-positive reference never fires
	assert.False(t, up.MatchesChange(105, 0))
}

func TestDynamicConstructorsValidate(t *testing.T) {
	s := flatSeries(t, "AAPL", 100, "2024-01-02", "2024-01-03")
	cfg := BookConfig{Name: "d", Ticker: "AAPL", Start: "2024-01-02", End: "2024-01-03", Capital: 1000, Series: s}

	_, err := NewDynamicBuy(cfg, Exactly(-1.5), 100, "1 day")
	assert.ErrorIs(t, err, ErrInvalidThreshold)

	_, err = NewDynamicBuy(cfg, Exactly(-0.05), 100, "eventually")
	assert.Error(t, err)

	_, err = NewDynamicSell(cfg, Exactly(-1.0), 100, "1 day")
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestStaticBuyBuysOnThreshold(t *testing.T) {
	s := priceSeries(t, "AAPL", map[string]float64{
		"2024-01-02": 55,
		"2024-01-03": 50,
		"2024-01-04": 52,
		"2024-01-05": 50,
	})
	sb := NewStaticBuy(BookConfig{
		Name: "buy_dip", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-06",
		Capital: 1000, Series: s,
	}, Exactly(50), 200)

	for _, d := range []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"} {
		res, err := sb.Tick(d)
		require.NoError(t, err)
		require.Equal(t, TickContinue, res)
	}
	// bought twice, on the two 50-closes
	assert.Equal(t, 600.0, sb.Fiat())
	ops := sb.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "automatic_check", ops[0].Trigger)
	assert.Equal(t, "2024-01-03", ops[0].Date)
	assert.Equal(t, "2024-01-05", ops[1].Date)
}

func TestStaticBuyHonorsTradingWindow(t *testing.T) {
	s := priceSeries(t, "AAPL", map[string]float64{
		"2024-01-02": 50,
		"2024-01-03": 50,
		"2024-01-04": 50,
		"2024-01-05": 50,
	})
	sb := NewStaticBuy(BookConfig{
		Name: "windowed", Ticker: "AAPL",
		Start: "2024-01-03", End: "2024-01-04",
		Capital: 1000, Series: s,
	}, Exactly(50), 100)

	// before the window: no trade, keep ticking
	res, err := sb.Tick("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, TickContinue, res)
	assert.Empty(t, sb.Operations())

	res, err = sb.Tick("2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, TickContinue, res)
	require.Len(t, sb.Operations(), 1)

	// end date is exclusive: the 50-close no longer triggers a buy
	res, err = sb.Tick("2024-01-04")
	require.NoError(t, err)
	assert.Equal(t, TickStop, res)
	res, err = sb.Tick("2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, TickStop, res)
	assert.Len(t, sb.Operations(), 1)
	assert.Equal(t, 900.0, sb.Fiat())
}

func TestDynamicSellStopsAtWindowEnd(t *testing.T) {
	s := priceSeries(t, "AAPL", map[string]float64{
		"2024-01-02": 100,
		"2024-01-03": 100,
		"2024-01-04": 110,
	})
	ds, err := NewDynamicSell(BookConfig{
		Name: "bounded_gains", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-04",
		Capital: 1000, Series: s,
	}, Exactly(0.05), 200, "1 day")
	require.NoError(t, err)

	_, err = ds.Tick("2024-01-02")
	require.NoError(t, err)
	_, err = ds.Tick("2024-01-03")
	require.NoError(t, err)

	// +10% breakout lands on the end date, which is already outside
	// the window
	res, err := ds.Tick("2024-01-04")
	require.NoError(t, err)
	assert.Equal(t, TickStop, res)
	require.Len(t, ds.Operations(), 1)
	assert.Equal(t, "initial_restock", ds.Operations()[0].Trigger)
}

func TestStaticBuyGoesAllInWhenCashRunsOut(t *testing.T) {
	s := flatSeries(t, "AAPL", 50, "2024-01-02", "2024-01-03", "2024-01-04")
	sb := NewStaticBuy(BookConfig{
		Name: "all_in", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-04",
		Capital: 1000, Series: s,
	}, Exactly(50), 600)

	res, err := sb.Tick("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, TickContinue, res)
	assert.Equal(t, 400.0, sb.Fiat())

	// 600 no longer covered: remaining 400 goes in and ticking stops
	res, err = sb.Tick("2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, TickStop, res)
	assert.Equal(t, 0.0, sb.Fiat())
	assert.Equal(t, 20.0, sb.Stock())

	ops := sb.Operations()
	require.Len(t, ops, 3)
	assert.False(t, ops[1].Successful)
	assert.Equal(t, "last_automatic_check", ops[2].Trigger)
	assert.True(t, ops[2].Successful)
}

func TestDynamicBuyFiresOnDip(t *testing.T) {
	s := priceSeries(t, "AAPL", map[string]float64{
		"2024-01-02": 100,
		"2024-01-03": 99,
		"2024-01-04": 94, // -5.05% vs two days back
	})
	db, err := NewDynamicBuy(BookConfig{
		Name: "dip_buyer", Ticker: "AAPL",
		Start: "2024-01-03", End: "2024-01-05",
		Capital: 1000, Series: s,
	}, Exactly(-0.05), 300, "2 days")
	require.NoError(t, err)

	res, err := db.Tick("2024-01-03")
	require.NoError(t, err)
	require.Equal(t, TickContinue, res)
	assert.Empty(t, db.Operations())

	res, err = db.Tick("2024-01-04")
	require.NoError(t, err)
	require.Equal(t, TickContinue, res)
	ops := db.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, "dynamic_check", ops[0].Trigger)
	assert.Equal(t, 700.0, db.Fiat())
}

func TestStaticSellStartsInvestedAndSellsOnThreshold(t *testing.T) {
	s := priceSeries(t, "AAPL", map[string]float64{
		"2024-01-02": 50,
		"2024-01-03": 55,
		"2024-01-04": 60,
	})
	ss := NewStaticSell(BookConfig{
		Name: "trim", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-05",
		Capital: 1000, Series: s,
	}, Exactly(60), 300)

	res, err := ss.Tick("2024-01-02")
	require.NoError(t, err)
	require.Equal(t, TickContinue, res)
	// opening restock went all-in at 50
	assert.Equal(t, 0.0, ss.Fiat())
	assert.Equal(t, 20.0, ss.Stock())
	assert.Equal(t, "initial_restock", ss.Operations()[0].Trigger)

	_, err = ss.Tick("2024-01-03")
	require.NoError(t, err)
	require.Len(t, ss.Operations(), 1)

	_, err = ss.Tick("2024-01-04")
	require.NoError(t, err)
	assert.Equal(t, 300.0, ss.Fiat())
	assert.Equal(t, 15.0, ss.Stock())
}

func TestStaticSellClosesWhenStockRunsOut(t *testing.T) {
	s := flatSeries(t, "AAPL", 50, "2024-01-02", "2024-01-03", "2024-01-04")
	ss := NewStaticSell(BookConfig{
		Name: "drain", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-04",
		Capital: 1000, Series: s,
	}, Exactly(50), 600)

	// restock to 20 shares, then sell 600 (12 shares)
	res, err := ss.Tick("2024-01-02")
	require.NoError(t, err)
	require.Equal(t, TickContinue, res)
	assert.Equal(t, 8.0, ss.Stock())

	// 600 needs 12 shares, only 8 left: liquidate and stop
	res, err = ss.Tick("2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, TickStop, res)
	assert.True(t, ss.Closed())
	assert.Equal(t, 1000.0, ss.Fiat())

	profit, err := ss.Profit()
	require.NoError(t, err)
	assert.Equal(t, 0.0, profit)
}

func TestDynamicSellFiresOnBreakout(t *testing.T) {
	s := priceSeries(t, "AAPL", map[string]float64{
		"2024-01-02": 100,
		"2024-01-03": 101,
		"2024-01-04": 107,
	})
	ds, err := NewDynamicSell(BookConfig{
		Name: "take_gains", Ticker: "AAPL",
		Start: "2024-01-02", End: "2024-01-05",
		Capital: 1000, Series: s,
	}, Exactly(0.05), 200, "2 days")
	require.NoError(t, err)

	_, err = ds.Tick("2024-01-02")
	require.NoError(t, err)
	_, err = ds.Tick("2024-01-03")
	require.NoError(t, err)
	require.Len(t, ds.Operations(), 1) // just the restock

	_, err = ds.Tick("2024-01-04")
	require.NoError(t, err)
	ops := ds.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, OpSell, ops[1].Type)
	assert.Equal(t, "dynamic_check", ops[1].Trigger)
	assert.Equal(t, 200.0, ds.Fiat())
}
