package strategy

import (
	"fmt"
	"sort"

	"stratsim/internal/interval"
	"stratsim/internal/logger"
)

// ThresholdRule matches a price against a level or an inclusive range.
type ThresholdRule struct {
	lo      float64
	hi      float64
	isRange bool
}

// Exactly matches the level itself. For change rules the level is a
// signed fraction: +0.05 fires on a 5% rise, -0.05 on a 5% drop.
func Exactly(level float64) ThresholdRule {
	return ThresholdRule{lo: level, hi: level}
}

// Between matches any price inside the inclusive range.
func Between(lo, hi float64) ThresholdRule {
	if hi < lo {
		lo, hi = hi, lo
	}
	return ThresholdRule{lo: lo, hi: hi, isRange: true}
}

// Matches tests an absolute price against the rule.
func (r ThresholdRule) Matches(price float64) bool {
	if r.isRange {
		return decimalGTE(price, r.lo) && decimalLTE(price, r.hi)
	}
	return decFromFloat(price).Equal(decFromFloat(r.lo))
}

// MatchesChange tests the relative move of price against a reference.
// A positive level is a breakout at or above (1+level)*ref, a negative
// level a dip at or below. A zero level never fires. Ranges project both
// endpoints onto the reference and test inclusion.
func (r ThresholdRule) MatchesChange(price, ref float64) bool {
	if ref <= 0 {
		return false
	}
	if r.isRange {
		a, b := (1+r.lo)*ref, (1+r.hi)*ref
		if b < a {
			a, b = b, a
		}
		return decimalGTE(price, a) && decimalLTE(price, b)
	}
	switch {
	case r.lo > 0:
		return decimalGTE(price, (1+r.lo)*ref)
	case r.lo < 0:
		return decimalLTE(price, (1+r.lo)*ref)
	default:
		return false
	}
}

// validatePercent rejects change levels at or below -100%.
func (r ThresholdRule) validatePercent() error {
	if r.lo <= -1.0 || r.hi <= -1.0 {
		return fmt.Errorf("%w: change level must be above -1.0", ErrInvalidThreshold)
	}
	return nil
}

// StaticBuy buys a fixed quantity each time the close hits an absolute
// threshold. When cash runs out it goes all-in once and stops.
type StaticBuy struct {
	*Book
	rule ThresholdRule
	qty  float64
}

func NewStaticBuy(cfg BookConfig, rule ThresholdRule, qty float64) *StaticBuy {
	return &StaticBuy{Book: NewBook(cfg), rule: rule, qty: qty}
}

func (s *StaticBuy) Tick(date string) (TickResult, error) {
	if s.Closed() || date >= s.End() {
		return TickStop, nil
	}
	if date < s.Start() {
		return TickContinue, nil
	}
	if res, err := s.Book.Tick(date); err != nil || res == TickStop {
		return res, err
	}
	price, ok := s.Series().PriceOn(date)
	if !ok || !s.rule.Matches(price) {
		return TickContinue, nil
	}
	outcome, err := s.Buy(date, s.qty, SizingInherit, "automatic_check")
	if outcome == OutcomeInsufficientCash {
		if _, err := s.BuyAll(date, "last_automatic_check"); err != nil {
			logger.Warnf("%s: final buy-all on %s failed: %v", s.Name(), date, err)
		}
		return TickStop, nil
	}
	return TickContinue, err
}

func (s *StaticBuy) Execute() error { return executeOver(s, "force_close") }

// DynamicBuy buys when the close has moved by the threshold fraction
// relative to the last valid price a lookback interval earlier.
type DynamicBuy struct {
	*Book
	rule     ThresholdRule
	qty      float64
	lookback string
}

func NewDynamicBuy(cfg BookConfig, rule ThresholdRule, qty float64, lookback string) (*DynamicBuy, error) {
	if err := rule.validatePercent(); err != nil {
		return nil, err
	}
	if _, err := interval.Subtract(cfg.Start, lookback); err != nil {
		return nil, err
	}
	return &DynamicBuy{Book: NewBook(cfg), rule: rule, qty: qty, lookback: lookback}, nil
}

func (s *DynamicBuy) Tick(date string) (TickResult, error) {
	if s.Closed() || date >= s.End() {
		return TickStop, nil
	}
	if date < s.Start() {
		return TickContinue, nil
	}
	if res, err := s.Book.Tick(date); err != nil || res == TickStop {
		return res, err
	}
	price, ok := s.Series().PriceOn(date)
	if !ok {
		return TickContinue, nil
	}
	past, _ := interval.Subtract(date, s.lookback)
	ref, ok := s.Series().LastValidOnOrBefore(past)
	if !ok || !s.rule.MatchesChange(price, ref) {
		return TickContinue, nil
	}
	outcome, err := s.Buy(date, s.qty, SizingInherit, "dynamic_check")
	if outcome == OutcomeInsufficientCash {
		if _, err := s.BuyAll(date, "last_automatic_check"); err != nil {
			logger.Warnf("%s: final buy-all on %s failed: %v", s.Name(), date, err)
		}
		return TickStop, nil
	}
	return TickContinue, err
}

func (s *DynamicBuy) Execute() error { return executeOver(s, "force_close") }

// restock converts the opening capital into stock so a sell strategy
// starts fully invested. Runs once, on the first tick with a resolvable
// price at or after start.
func restock(b *Book, date string, entered *bool) {
	if *entered || b.Closed() {
		return
	}
	outcome, err := b.BuyAll(date, "initial_restock")
	if err != nil {
		logger.Warnf("%s: restock on %s failed: %v", b.Name(), date, err)
		return
	}
	if outcome == OutcomeExecuted {
		*entered = true
	}
}

// StaticSell starts fully invested and sells a fixed quantity each time
// the close hits an absolute threshold. When the position runs dry the
// trade closes.
type StaticSell struct {
	*Book
	rule    ThresholdRule
	qty     float64
	entered bool
}

func NewStaticSell(cfg BookConfig, rule ThresholdRule, qty float64) *StaticSell {
	return &StaticSell{Book: NewBook(cfg), rule: rule, qty: qty}
}

func (s *StaticSell) Tick(date string) (TickResult, error) {
	if s.Closed() || date >= s.End() {
		return TickStop, nil
	}
	if date < s.Start() {
		return TickContinue, nil
	}
	if res, err := s.Book.Tick(date); err != nil || res == TickStop {
		return res, err
	}
	restock(s.Book, date, &s.entered)
	price, ok := s.Series().PriceOn(date)
	if !ok || !s.rule.Matches(price) {
		return TickContinue, nil
	}
	outcome, err := s.Sell(date, s.qty, SizingInherit, "automatic_check")
	if outcome == OutcomeInsufficientStock {
		if err := s.CloseTrade(date, "force_close"); err != nil {
			return TickStop, err
		}
		return TickStop, nil
	}
	return TickContinue, err
}

func (s *StaticSell) Execute() error { return executeOver(s, "force_close") }

// DynamicSell starts fully invested and sells on a relative move against
// a lookback reference.
type DynamicSell struct {
	*Book
	rule     ThresholdRule
	qty      float64
	lookback string
	entered  bool
}

func NewDynamicSell(cfg BookConfig, rule ThresholdRule, qty float64, lookback string) (*DynamicSell, error) {
	if err := rule.validatePercent(); err != nil {
		return nil, err
	}
	if _, err := interval.Subtract(cfg.Start, lookback); err != nil {
		return nil, err
	}
	return &DynamicSell{Book: NewBook(cfg), rule: rule, qty: qty, lookback: lookback}, nil
}

func (s *DynamicSell) Tick(date string) (TickResult, error) {
	if s.Closed() || date >= s.End() {
		return TickStop, nil
	}
	if date < s.Start() {
		return TickContinue, nil
	}
	if res, err := s.Book.Tick(date); err != nil || res == TickStop {
		return res, err
	}
	restock(s.Book, date, &s.entered)
	price, ok := s.Series().PriceOn(date)
	if !ok {
		return TickContinue, nil
	}
	past, _ := interval.Subtract(date, s.lookback)
	ref, ok := s.Series().LastValidOnOrBefore(past)
	if !ok || !s.rule.MatchesChange(price, ref) {
		return TickContinue, nil
	}
	outcome, err := s.Sell(date, s.qty, SizingInherit, "dynamic_check")
	if outcome == OutcomeInsufficientStock {
		if err := s.CloseTrade(date, "force_close"); err != nil {
			return TickStop, err
		}
		return TickStop, nil
	}
	return TickContinue, err
}

func (s *DynamicSell) Execute() error { return executeOver(s, "force_close") }

// sortOpsByDate sorts an operation list stably by date.
func sortOpsByDate(ops []Operation) {
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].Date < ops[j].Date })
}
