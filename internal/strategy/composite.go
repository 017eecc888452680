package strategy

import (
	"errors"

	"stratsim/internal/logger"
)

// Composite runs several independent strategies side by side as one. Its
// window spans the earliest child start to the latest child end, and its
// cash pool collects the fiat of children as they finish.
type Composite struct {
	name    string
	start   string
	end     string
	initial float64
	fiat    float64
	closed  bool

	active   []Strategy
	finished []Strategy
}

// NewComposite wraps a set of strategies. At least one child is required.
func NewComposite(name string, children ...Strategy) (*Composite, error) {
	if len(children) == 0 {
		return nil, errors.New("composite strategy needs at least one child")
	}
	c := &Composite{
		name:   name,
		start:  children[0].Start(),
		end:    children[0].End(),
		active: children,
	}
	for _, child := range children {
		if child.Start() < c.start {
			c.start = child.Start()
		}
		if child.End() > c.end {
			c.end = child.End()
		}
		c.initial = round2(c.initial + child.InitialCapital())
	}
	return c, nil
}

// Combine merges two strategies into one composite. Composites on either
// side are flattened so the result never nests.
func Combine(name string, a, b Strategy) (*Composite, error) {
	var children []Strategy
	for _, s := range []Strategy{a, b} {
		if c, ok := s.(*Composite); ok {
			children = append(children, c.active...)
			children = append(children, c.finished...)
		} else {
			children = append(children, s)
		}
	}
	return NewComposite(name, children...)
}

func (c *Composite) Name() string            { return c.name }
func (c *Composite) Start() string           { return c.start }
func (c *Composite) End() string             { return c.end }
func (c *Composite) InitialCapital() float64 { return c.initial }
func (c *Composite) Fiat() float64           { return c.fiat }
func (c *Composite) Closed() bool            { return c.closed }

// ActiveChildren reports how many children are still running.
func (c *Composite) ActiveChildren() int { return len(c.active) }

// Tick delegates to every active child. Children that stop or run dry are
// closed best-effort and their cash pooled; collection happens after the
// pass so the active list is never mutated mid-iteration.
func (c *Composite) Tick(date string) (TickResult, error) {
	if c.closed {
		return TickStop, nil
	}
	var done []int
	for i, child := range c.active {
		res, err := child.Tick(date)
		if err != nil {
			logger.Warnf("%s: child %s tick on %s failed: %v", c.name, child.Name(), date, err)
		}
		if res == TickStop || child.Closed() {
			done = append(done, i)
		}
	}
	if len(done) == 0 {
		return TickContinue, nil
	}
	keep := c.active[:0]
	di := 0
	for i, child := range c.active {
		if di < len(done) && done[di] == i {
			di++
			if !child.Closed() {
				if err := child.Close(date, "sub_strategy_finish"); err != nil {
					logger.Warnf("%s: closing child %s failed: %v", c.name, child.Name(), err)
				}
			}
			c.fiat = round2(c.fiat + child.Fiat())
			c.finished = append(c.finished, child)
			continue
		}
		keep = append(keep, child)
	}
	c.active = keep
	return TickContinue, nil
}

// Close force-closes every remaining child and settles the pool.
func (c *Composite) Close(date, trigger string) error {
	if c.closed {
		return nil
	}
	for _, child := range c.active {
		if !child.Closed() {
			if err := child.Close(date, trigger); err != nil {
				logger.Warnf("%s: closing child %s failed: %v", c.name, child.Name(), err)
			}
		}
		c.fiat = round2(c.fiat + child.Fiat())
		c.finished = append(c.finished, child)
	}
	c.active = nil
	c.closed = true
	logger.Infof("%s: closed on %s (%s), final capital %.2f", c.name, date, trigger, c.fiat)
	return nil
}

// Execute runs the full calendar window and force-closes at the end.
func (c *Composite) Execute() error { return executeOver(c, "force_close_global") }

// CurrentCapital is the pooled cash plus the equity of every running
// child.
func (c *Composite) CurrentCapital(date string) float64 {
	total := c.fiat
	for _, child := range c.active {
		total += child.CurrentCapital(date)
	}
	return round2(total)
}

func (c *Composite) Profit() (float64, error) {
	if !c.closed {
		return 0, ErrTradeNotClosed
	}
	return round2(c.fiat - c.initial), nil
}

func (c *Composite) Returns() (float64, error) {
	p, err := c.Profit()
	if err != nil {
		return 0, err
	}
	if c.initial == 0 {
		return 0, nil
	}
	return p / c.initial, nil
}

// Operations aggregates every child's audit trail, ordered by date.
func (c *Composite) Operations() []Operation {
	var out []Operation
	for _, child := range c.active {
		out = append(out, child.Operations()...)
	}
	for _, child := range c.finished {
		out = append(out, child.Operations()...)
	}
	sortOpsByDate(out)
	return out
}
