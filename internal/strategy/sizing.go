package strategy

import "fmt"

// Sizing selects how an order quantity is interpreted.
type Sizing int

const (
	// SizingInherit defers to the book's default sizing.
	SizingInherit Sizing = iota
	// SizingStatic reads the quantity as an absolute cash amount.
	SizingStatic
	// SizingInitial reads the quantity as a fraction of initial capital.
	SizingInitial
	// SizingCurrent reads the quantity as a fraction of current cash for
	// buys, or of current position value for sells.
	SizingCurrent
)

// ParseSizing maps a config string onto a Sizing. The empty string means
// inherit.
func ParseSizing(s string) (Sizing, error) {
	switch s {
	case "":
		return SizingInherit, nil
	case "static":
		return SizingStatic, nil
	case "initial":
		return SizingInitial, nil
	case "current":
		return SizingCurrent, nil
	default:
		return SizingInherit, fmt.Errorf("%w: %q", ErrUnknownSizing, s)
	}
}

func (s Sizing) String() string {
	switch s {
	case SizingStatic:
		return "static"
	case SizingInitial:
		return "initial"
	case SizingCurrent:
		return "current"
	default:
		return "inherit"
	}
}

// ManualOrder is a scheduled order executed by the book on its date.
type ManualOrder struct {
	Date   string
	Type   OpType
	Amount float64
	Sizing Sizing
}
