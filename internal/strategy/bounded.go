package strategy

import (
	"stratsim/internal/interval"
	"stratsim/internal/logger"
)

// Bounded goes all-in at its start date and exits on the first of stop
// loss, take profit, or an optional maximum holding period. Stop loss
// wins over take profit when both would fire on the same bar.
type Bounded struct {
	*Book
	stopLoss   float64
	takeProfit float64
	holdPeriod   string // interval spec, empty for no time stop
	entryTrigger string
	entryPrice   float64
	entered      bool
}

// SetEntryTrigger overrides the trigger recorded on the entry buy.
// Managers use it to note why a child trade was spawned.
func (b *Bounded) SetEntryTrigger(trigger string) { b.entryTrigger = trigger }

// NewBounded builds a bounded trade with absolute exit prices. A zero
// bound disables that side. holdPeriod is an interval spec like "3 m",
// empty for no time stop.
func NewBounded(cfg BookConfig, stopLoss, takeProfit float64, holdPeriod string) (*Bounded, error) {
	if holdPeriod != "" {
		if _, err := interval.Subtract(cfg.Start, holdPeriod); err != nil {
			return nil, err
		}
	}
	b := &Bounded{
		Book:         NewBook(cfg),
		stopLoss:     stopLoss,
		takeProfit:   takeProfit,
		holdPeriod:   holdPeriod,
		entryTrigger: "initial_entry",
	}
	if price, ok := cfg.Series.PriceOn(cfg.Start); ok {
		b.entryPrice = price
	} else if price, ok := cfg.Series.LastValidOnOrBefore(cfg.Start); ok {
		b.entryPrice = price
	}
	if b.entryPrice > 0 {
		if stopLoss > 0 && stopLoss >= b.entryPrice {
			logger.Warnf("%s: stop loss %.2f at or above entry %.2f, exits immediately", cfg.Name, stopLoss, b.entryPrice)
		}
		if takeProfit > 0 && takeProfit <= b.entryPrice {
			logger.Warnf("%s: take profit %.2f at or below entry %.2f, exits immediately", cfg.Name, takeProfit, b.entryPrice)
		}
	}
	return b, nil
}

// NewBoundedFromPercent derives absolute bounds from fractions of the
// entry price: 0.05 puts the stop 5% below and the target 5% above.
func NewBoundedFromPercent(cfg BookConfig, stopLossPct, takeProfitPct float64, holdPeriod string) (*Bounded, error) {
	entry, ok := cfg.Series.PriceOn(cfg.Start)
	if !ok {
		entry, ok = cfg.Series.LastValidOnOrBefore(cfg.Start)
		if !ok {
			entry = 0
		}
	}
	var sl, tp float64
	if stopLossPct > 0 {
		sl = round2(entry * (1 - stopLossPct))
	}
	if takeProfitPct > 0 {
		tp = round2(entry * (1 + takeProfitPct))
	}
	return NewBounded(cfg, sl, tp, holdPeriod)
}

// EntryPrice reports the resolved entry price, zero when no bar was
// available at or before start.
func (b *Bounded) EntryPrice() float64 { return b.entryPrice }

// enter goes all-in. Called lazily on the first tick at or after start so
// a series starting later than the window still gets an entry.
func (b *Bounded) enter(date string) {
	if b.entered || b.Closed() {
		return
	}
	outcome, err := b.BuyAll(date, b.entryTrigger)
	if err != nil {
		logger.Warnf("%s: entry on %s failed: %v", b.Name(), date, err)
		return
	}
	if outcome == OutcomeExecuted {
		b.entered = true
		if price, ok := b.Series().PriceOn(date); ok {
			b.entryPrice = price
		}
	}
}

func (b *Bounded) Tick(date string) (TickResult, error) {
	if b.Closed() {
		return TickStop, nil
	}
	if date < b.Start() {
		return TickContinue, nil
	}
	if res, err := b.Book.Tick(date); err != nil || res == TickStop {
		return res, err
	}
	b.enter(date)
	if !b.entered {
		return TickContinue, nil
	}
	// exits are only evaluated on trading days
	price, ok := b.Series().PriceOn(date)
	if !ok {
		return TickContinue, nil
	}
	if b.stopLoss > 0 && decimalLTE(price, b.stopLoss) {
		return TickStop, b.CloseTrade(date, "stop_loss")
	}
	if b.takeProfit > 0 && decimalGTE(price, b.takeProfit) {
		return TickStop, b.CloseTrade(date, "take_profit")
	}
	if b.holdPeriod != "" {
		cutoff, err := interval.Subtract(date, b.holdPeriod)
		if err == nil && cutoff >= b.Start() {
			return TickStop, b.CloseTrade(date, "time_stop")
		}
	}
	return TickContinue, nil
}

func (b *Bounded) Execute() error { return executeOver(b, "force_close") }
