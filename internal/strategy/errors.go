package strategy

import "errors"

// Control-flow sentinels: expected market conditions that loop drivers
// branch on, not crashes. A rejected order still leaves an audit
// Operation behind before one of these is returned.
var (
	ErrInsufficientCash  = errors.New("insufficient cash")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// API-misuse sentinels: these indicate the caller did something wrong,
// not that the market did.
var (
	ErrTradeNotClosed   = errors.New("trade not closed")
	ErrUnknownSizing    = errors.New("unknown sizing mode")
	ErrInvalidThreshold = errors.New("invalid threshold")
)

// TradeOutcome classifies what happened to a buy/sell attempt.
type TradeOutcome int

const (
	// OutcomeExecuted means the order mutated the book and a successful
	// Operation was logged.
	OutcomeExecuted TradeOutcome = iota
	// OutcomeSkipped means nothing happened: no resolvable price, or the
	// computed amount fell under the one-cent dust threshold.
	OutcomeSkipped
	// OutcomeInsufficientCash means the buy was rejected; a failed
	// Operation was logged for audit.
	OutcomeInsufficientCash
	// OutcomeInsufficientStock means the sell was rejected; a failed
	// Operation was logged for audit.
	OutcomeInsufficientStock
)

func (o TradeOutcome) String() string {
	switch o {
	case OutcomeExecuted:
		return "executed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeInsufficientCash:
		return "insufficient_cash"
	case OutcomeInsufficientStock:
		return "insufficient_stock"
	default:
		return "unknown"
	}
}

// TickResult tells the execution loop whether the strategy wants to keep
// receiving dates.
type TickResult int

const (
	TickContinue TickResult = iota
	TickStop
)
