package strategy

import (
	"fmt"
	"sort"

	"stratsim/internal/interval"
	"stratsim/internal/logger"
)

// MultiBounded is a manager that watches price triggers and spawns child
// Bounded trades, each funded from the cash pool with an allocation
// resolved through the manager's sizing mode. Static targets fire once
// each; the dynamic variant refires on every qualifying move while cash
// remains.
type MultiBounded struct {
	*Book

	amountPerTrade float64
	stopLossPct    float64
	takeProfitPct  float64
	holdPeriod     string

	// static target mode
	targets    []ThresholdRule
	triggered  []bool
	initialRef float64

	// dynamic mode
	dynamic  bool
	trigger  ThresholdRule
	lookback string

	active   []*Bounded
	finished []*Bounded
}

// NewMultiBounded builds a manager with static price targets. Point
// targets are direction-aware against the last valid price before start:
// a target below that reference fires when the close drops to it, one
// above fires when the close rises to it. Range targets fire on
// inclusion. Each target fires at most once, and only once a child
// actually spawned; an unfunded hit stays armed.
func NewMultiBounded(cfg BookConfig, targets []ThresholdRule, amountPerTrade, stopLossPct, takeProfitPct float64, holdPeriod string) (*MultiBounded, error) {
	m, err := newMultiBounded(cfg, amountPerTrade, stopLossPct, takeProfitPct, holdPeriod)
	if err != nil {
		return nil, err
	}
	// highest target first, so it claims pool cash when several fire on
	// the same day
	m.targets = make([]ThresholdRule, len(targets))
	copy(m.targets, targets)
	sort.SliceStable(m.targets, func(i, j int) bool { return m.targets[i].lo > m.targets[j].lo })
	m.triggered = make([]bool, len(targets))
	if ref, ok := cfg.Series.LastValidOnOrBefore(cfg.Start); ok {
		m.initialRef = ref
	}
	return m, nil
}

// NewDynamicMultiBounded builds a manager that spawns a child on every
// qualifying relative move against a lookback reference.
func NewDynamicMultiBounded(cfg BookConfig, trigger ThresholdRule, lookback string, amountPerTrade, stopLossPct, takeProfitPct float64, holdPeriod string) (*MultiBounded, error) {
	if err := trigger.validatePercent(); err != nil {
		return nil, err
	}
	if _, err := interval.Subtract(cfg.Start, lookback); err != nil {
		return nil, err
	}
	m, err := newMultiBounded(cfg, amountPerTrade, stopLossPct, takeProfitPct, holdPeriod)
	if err != nil {
		return nil, err
	}
	m.dynamic = true
	m.trigger = trigger
	m.lookback = lookback
	return m, nil
}

func newMultiBounded(cfg BookConfig, amountPerTrade, stopLossPct, takeProfitPct float64, holdPeriod string) (*MultiBounded, error) {
	if amountPerTrade <= 0 {
		return nil, fmt.Errorf("%w: amount per trade must be positive", ErrInvalidThreshold)
	}
	if stopLossPct <= -1.0 {
		return nil, fmt.Errorf("%w: stop loss fraction must be above -1.0", ErrInvalidThreshold)
	}
	if holdPeriod != "" {
		if _, err := interval.Subtract(cfg.Start, holdPeriod); err != nil {
			return nil, err
		}
	}
	return &MultiBounded{
		Book:           NewBook(cfg),
		amountPerTrade: amountPerTrade,
		stopLossPct:    stopLossPct,
		takeProfitPct:  takeProfitPct,
		holdPeriod:     holdPeriod,
	}, nil
}

// ActiveChildren reports how many child trades are currently open.
func (m *MultiBounded) ActiveChildren() int { return len(m.active) }

// FinishedChildren reports how many child trades have closed.
func (m *MultiBounded) FinishedChildren() int { return len(m.finished) }

// spawnChild funds and activates a new bounded trade at the current
// price. The allocation runs through the manager's sizing mode: static
// is the raw amount, initial a fraction of the manager's opening
// capital, current a fraction of the pool. Returns false when the pool
// cannot cover it.
func (m *MultiBounded) spawnChild(date, reason string) bool {
	p, ok := m.Series().PriceOn(date)
	if !ok || p <= 0 {
		return false
	}
	alloc := m.orderAmount(OpBuy, m.amountPerTrade, p, SizingInherit)
	if alloc < 0.01 {
		return false
	}
	if !cashCovers(m.Fiat(), alloc) {
		logger.Debugf("%s: trigger on %s unfunded, pool %.2f below %.2f", m.Name(), date, m.Fiat(), alloc)
		return false
	}
	sl := round2(p * (1 + m.stopLossPct))
	tp := round2(p * (1 + m.takeProfitPct))
	child, err := NewBounded(BookConfig{
		Name:    fmt.Sprintf("%s/child-%d", m.Name(), len(m.active)+len(m.finished)+1),
		Ticker:  m.Ticker(),
		Start:   date,
		End:     m.End(),
		Capital: alloc,
		Series:  m.Series(),
	}, sl, tp, m.holdPeriod)
	if err != nil {
		logger.Warnf("%s: child spawn on %s failed: %v", m.Name(), date, err)
		return false
	}
	child.SetEntryTrigger(reason)
	m.debitPool(alloc)
	m.active = append(m.active, child)
	logger.Infof("%s: spawned %s at %.2f (%s)", m.Name(), child.Name(), p, reason)
	return true
}

// debitPool moves cash from the manager's pool into a child allocation.
func (m *MultiBounded) debitPool(amount float64) {
	f := round2(m.Fiat() - amount)
	if f < 0 {
		f = 0
	}
	m.setFiat(f)
}

// creditPool returns a closed child's remaining cash to the pool.
func (m *MultiBounded) creditPool(amount float64) {
	m.setFiat(round2(m.Fiat() + amount))
}

// checkTriggers evaluates spawn conditions for the date.
func (m *MultiBounded) checkTriggers(date string, price float64) {
	if m.dynamic {
		past, _ := interval.Subtract(date, m.lookback)
		ref, ok := m.Series().LastValidOnOrBefore(past)
		if !ok || !m.trigger.MatchesChange(price, ref) {
			return
		}
		change := (price - ref) / ref
		m.spawnChild(date, fmt.Sprintf("dynamic_check %+.2f%% in %s", change*100, m.lookback))
		return
	}
	for i, target := range m.targets {
		if m.triggered[i] {
			continue
		}
		hit := false
		if target.isRange {
			hit = target.Matches(price)
		} else {
			switch {
			case target.lo < m.initialRef:
				hit = decimalLTE(price, target.lo)
			case target.lo > m.initialRef:
				hit = decimalGTE(price, target.lo)
			}
		}
		if hit && m.spawnChild(date, fmt.Sprintf("automatic_check target %.2f", target.lo)) {
			m.triggered[i] = true
		}
	}
}

// Tick evaluates triggers, then advances every active child. Finished
// children are collected first and moved out afterwards so the active
// list is never mutated mid-iteration.
func (m *MultiBounded) Tick(date string) (TickResult, error) {
	if m.Closed() {
		return TickStop, nil
	}
	if res, err := m.Book.Tick(date); err != nil || res == TickStop {
		return res, err
	}
	price, ok := m.Series().PriceOn(date)
	if !ok {
		return TickContinue, nil
	}
	m.checkTriggers(date, price)

	var done []int
	for i, child := range m.active {
		res, err := child.Tick(date)
		if err != nil {
			logger.Warnf("%s: child %s tick on %s failed: %v", m.Name(), child.Name(), date, err)
		}
		if res == TickStop || child.Closed() {
			done = append(done, i)
		}
	}
	m.retire(done)
	return TickContinue, nil
}

// retire moves the children at the given ascending indexes to finished
// and reclaims their cash.
func (m *MultiBounded) retire(done []int) {
	if len(done) == 0 {
		return
	}
	keep := m.active[:0]
	di := 0
	for i, child := range m.active {
		if di < len(done) && done[di] == i {
			di++
			m.finished = append(m.finished, child)
			m.creditPool(child.Fiat())
			continue
		}
		keep = append(keep, child)
	}
	m.active = keep
}

// Close force-closes every active child and settles the pool.
func (m *MultiBounded) Close(date, trigger string) error {
	if m.Closed() {
		return nil
	}
	for _, child := range m.active {
		if err := child.Close(date, trigger); err != nil {
			logger.Warnf("%s: closing child %s failed: %v", m.Name(), child.Name(), err)
		}
		m.creditPool(child.Fiat())
		m.finished = append(m.finished, child)
	}
	m.active = nil
	m.markClosed()
	logger.Infof("%s: closed on %s (%s), final capital %.2f", m.Name(), date, trigger, m.Fiat())
	return nil
}

// CurrentCapital is the pool plus the marked value of every open child.
func (m *MultiBounded) CurrentCapital(date string) float64 {
	total := m.Fiat()
	for _, child := range m.active {
		total += child.CurrentCapital(date)
	}
	return round2(total)
}

// Operations aggregates the audit trails of every child, ordered by date.
func (m *MultiBounded) Operations() []Operation {
	var out []Operation
	for _, child := range m.active {
		out = append(out, child.Operations()...)
	}
	for _, child := range m.finished {
		out = append(out, child.Operations()...)
	}
	sortOpsByDate(out)
	return out
}

func (m *MultiBounded) Execute() error { return executeOver(m, "parent_force_close") }
