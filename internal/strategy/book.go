package strategy

import (
	"fmt"
	"sort"

	"stratsim/internal/interval"
	"stratsim/internal/logger"
	"stratsim/internal/series"
)

// Strategy is the common surface of everything the simulator can drive.
// Tick advances one calendar day; Execute runs the full window and closes.
type Strategy interface {
	Name() string
	Start() string
	End() string
	InitialCapital() float64
	Fiat() float64
	Closed() bool
	Operations() []Operation
	CurrentCapital(date string) float64
	Profit() (float64, error)
	Returns() (float64, error)
	Tick(date string) (TickResult, error)
	Execute() error
	Close(date, trigger string) error
}

// BookConfig carries everything needed to open a Book.
type BookConfig struct {
	Name         string
	Ticker       string
	Start        string
	End          string
	Capital      float64
	Series       *series.Series
	Sizing       Sizing
	ManualOrders []ManualOrder
}

// Book is the single-asset trading ledger every concrete strategy embeds.
// It holds cash and stock, executes orders against a price series, and
// keeps the audit trail of every attempt.
type Book struct {
	name    string
	ticker  string
	start   string
	end     string
	initial float64
	sizing  Sizing

	fiat   float64
	stock  float64
	closed bool

	series *series.Series
	manual []ManualOrder
	ops    []Operation
}

// NewBook opens a ledger. Sizing defaults to static when inherited.
func NewBook(cfg BookConfig) *Book {
	sizing := cfg.Sizing
	if sizing == SizingInherit {
		sizing = SizingStatic
	}
	return &Book{
		name:    cfg.Name,
		ticker:  cfg.Ticker,
		start:   cfg.Start,
		end:     cfg.End,
		initial: round2(cfg.Capital),
		sizing:  sizing,
		fiat:    round2(cfg.Capital),
		series:  cfg.Series,
		manual:  cfg.ManualOrders,
	}
}

func (b *Book) Name() string            { return b.name }
func (b *Book) Ticker() string          { return b.ticker }
func (b *Book) Start() string           { return b.start }
func (b *Book) End() string             { return b.end }
func (b *Book) InitialCapital() float64 { return b.initial }
func (b *Book) Fiat() float64           { return b.fiat }
func (b *Book) Stock() float64          { return b.stock }
func (b *Book) Closed() bool            { return b.closed }
func (b *Book) Sizing() Sizing          { return b.sizing }
func (b *Book) Series() *series.Series  { return b.series }

// setFiat and markClosed let manager strategies settle pools they run on
// top of the ledger without going through an order.
func (b *Book) setFiat(v float64) { b.fiat = v }
func (b *Book) markClosed()       { b.closed = true }

// Operations returns the audit trail ordered by date, stably keeping
// execution order within a day.
func (b *Book) Operations() []Operation {
	out := make([]Operation, len(b.ops))
	copy(out, b.ops)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// priceOn resolves an execution price, walking back to the last valid
// close when the date itself has no bar.
func (b *Book) priceOn(date string) (float64, bool) {
	if p, ok := b.series.PriceOn(date); ok {
		return p, true
	}
	return b.series.LastValidOnOrBefore(date)
}

// orderAmount converts a requested quantity into a cash amount under the
// given sizing. Both fraction sizings resolve sells against the position
// value at the execution price; only buys distinguish initial capital
// from current cash.
func (b *Book) orderAmount(op OpType, qty, price float64, sizing Sizing) float64 {
	if sizing == SizingInherit {
		sizing = b.sizing
	}
	switch sizing {
	case SizingInitial:
		if op == OpSell {
			return round2(qty * b.stock * price)
		}
		return round2(qty * b.initial)
	case SizingCurrent:
		if op == OpSell {
			return round2(qty * b.stock * price)
		}
		return round2(qty * b.fiat)
	default:
		return round2(qty)
	}
}

// Buy attempts to spend cash on stock. Insufficient cash is an outcome,
// not a panic; the failed attempt still lands in the audit trail.
func (b *Book) Buy(date string, qty float64, sizing Sizing, trigger string) (TradeOutcome, error) {
	price, ok := b.priceOn(date)
	if !ok {
		logger.Warnf("%s: no price for %s on or before %s, skipping buy", b.name, b.ticker, date)
		return OutcomeSkipped, nil
	}
	cash := b.orderAmount(OpBuy, qty, price, sizing)
	if cash < 0.01 {
		return OutcomeSkipped, nil
	}
	if !cashCovers(b.fiat, cash) {
		b.ops = append(b.ops, Operation{
			Type: OpBuy, CashAmount: cash, Ticker: b.ticker,
			Price: price, Successful: false, Date: date, Trigger: trigger,
		})
		return OutcomeInsufficientCash, fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientCash, cash, b.fiat)
	}
	b.fiat = round2(b.fiat - cash)
	if b.fiat < 0 {
		b.fiat = 0
	}
	b.stock = round8(b.stock + cash/price)
	b.ops = append(b.ops, Operation{
		Type: OpBuy, CashAmount: cash, Ticker: b.ticker,
		Price: price, Successful: true, Date: date, Trigger: trigger,
	})
	return OutcomeExecuted, nil
}

// BuyAll spends the whole cash balance.
func (b *Book) BuyAll(date, trigger string) (TradeOutcome, error) {
	return b.Buy(date, b.fiat, SizingStatic, trigger)
}

// Sell attempts to convert stock back into cash.
func (b *Book) Sell(date string, qty float64, sizing Sizing, trigger string) (TradeOutcome, error) {
	price, ok := b.priceOn(date)
	if !ok {
		logger.Warnf("%s: no price for %s on or before %s, skipping sell", b.name, b.ticker, date)
		return OutcomeSkipped, nil
	}
	cash := b.orderAmount(OpSell, qty, price, sizing)
	if cash < 0.01 {
		return OutcomeSkipped, nil
	}
	amount := cash / price
	if !stockCovers(b.stock, amount) {
		b.ops = append(b.ops, Operation{
			Type: OpSell, CashAmount: cash, Ticker: b.ticker,
			Price: price, Successful: false, Date: date, Trigger: trigger,
		})
		return OutcomeInsufficientStock, fmt.Errorf("%w: need %.8f, have %.8f", ErrInsufficientStock, amount, b.stock)
	}
	b.stock = round8(b.stock - amount)
	if b.stock < 0 {
		b.stock = 0
	}
	b.fiat = round2(b.fiat + cash)
	b.ops = append(b.ops, Operation{
		Type: OpSell, CashAmount: cash, Ticker: b.ticker,
		Price: price, Successful: true, Date: date, Trigger: trigger,
	})
	return OutcomeExecuted, nil
}

// SellAll liquidates the whole position at the resolved price. It never
// goes through the sufficiency check: the cash leg is the rounded
// position value and the position always ends at zero, so cent rounding
// cannot strand a close.
func (b *Book) SellAll(date, trigger string) (TradeOutcome, error) {
	price, ok := b.priceOn(date)
	if !ok {
		logger.Warnf("%s: no price for %s on or before %s, skipping sell", b.name, b.ticker, date)
		return OutcomeSkipped, nil
	}
	cash := round2(b.stock * price)
	if cash < 0.01 {
		// dust below a cent, drop the position without an audit row
		b.stock = 0
		return OutcomeSkipped, nil
	}
	b.stock = 0
	b.fiat = round2(b.fiat + cash)
	b.ops = append(b.ops, Operation{
		Type: OpSell, CashAmount: cash, Ticker: b.ticker,
		Price: price, Successful: true, Date: date, Trigger: trigger,
	})
	return OutcomeExecuted, nil
}

// CloseTrade liquidates and marks the trade closed. Idempotent.
func (b *Book) CloseTrade(date, trigger string) error {
	if b.closed {
		return nil
	}
	if b.stock > 0 {
		if _, err := b.SellAll(date, trigger); err != nil {
			return err
		}
	}
	b.closed = true
	logger.Infof("%s: closed on %s (%s), final capital %.2f", b.name, date, trigger, b.fiat)
	return nil
}

// Close satisfies the Strategy interface.
func (b *Book) Close(date, trigger string) error { return b.CloseTrade(date, trigger) }

// CurrentCapital values the book on a date: cash plus position marked at
// the last valid price.
func (b *Book) CurrentCapital(date string) float64 {
	if b.stock <= 0 {
		return b.fiat
	}
	price, ok := b.priceOn(date)
	if !ok {
		return b.fiat
	}
	return round2(b.fiat + b.stock*price)
}

// Profit is final cash minus initial capital. Only meaningful once the
// trade is closed.
func (b *Book) Profit() (float64, error) {
	if !b.closed {
		return 0, ErrTradeNotClosed
	}
	return round2(b.fiat - b.initial), nil
}

// Returns is profit as a fraction of initial capital.
func (b *Book) Returns() (float64, error) {
	p, err := b.Profit()
	if err != nil {
		return 0, err
	}
	if b.initial == 0 {
		return 0, nil
	}
	return p / b.initial, nil
}

// Tick executes any manual orders scheduled for the date. Order failures
// are logged, not fatal.
func (b *Book) Tick(date string) (TickResult, error) {
	for _, mo := range b.manual {
		if mo.Date != date {
			continue
		}
		var err error
		switch mo.Type {
		case OpSell:
			_, err = b.Sell(date, mo.Amount, mo.Sizing, "manual_order")
		default:
			_, err = b.Buy(date, mo.Amount, mo.Sizing, "manual_order")
		}
		if err != nil {
			logger.Warnf("%s: manual order on %s failed: %v", b.name, date, err)
		}
	}
	return TickContinue, nil
}

// Execute runs the book over its trading dates and force-closes at the
// end of the window.
func (b *Book) Execute() error {
	for _, date := range b.series.Dates() {
		if date < b.start || date > b.end {
			continue
		}
		res, err := b.Tick(date)
		if err != nil {
			return err
		}
		if res == TickStop {
			break
		}
	}
	return b.CloseTrade(b.end, "force_close")
}

var (
	_ Strategy = (*Book)(nil)
	_ Strategy = (*StaticBuy)(nil)
	_ Strategy = (*DynamicBuy)(nil)
	_ Strategy = (*StaticSell)(nil)
	_ Strategy = (*DynamicSell)(nil)
	_ Strategy = (*Bounded)(nil)
	_ Strategy = (*MultiBounded)(nil)
	_ Strategy = (*Composite)(nil)
)

// executeOver drives an arbitrary Strategy across its calendar window and
// force-closes it with the given trigger. Managers use the full calendar
// rather than any single ticker's trading dates.
func executeOver(s Strategy, closeTrigger string) error {
	dates, err := interval.DateRange(s.Start(), s.End())
	if err != nil {
		return err
	}
	for _, date := range dates {
		res, err := s.Tick(date)
		if err != nil {
			return err
		}
		if res == TickStop {
			break
		}
	}
	return s.Close(s.End(), closeTrigger)
}
