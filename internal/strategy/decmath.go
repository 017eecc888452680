package strategy

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	cashSlack  = decimal.NewFromFloat(-0.01)
	stockSlack = decimal.NewFromFloat(-1e-6)
)

func decFromFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func round2(v float64) float64 {
	return decFromFloat(v).Round(2).InexactFloat64()
}

func round8(v float64) float64 {
	return decFromFloat(v).Round(8).InexactFloat64()
}

// cashCovers reports whether fiat can fund cash, with a one-cent slack to
// absorb the rounding applied at every mutation.
func cashCovers(fiat, cash float64) bool {
	return decFromFloat(fiat).Sub(decFromFloat(cash)).Cmp(cashSlack) > 0
}

// stockCovers reports whether held stock can fund amount. Fractional share
// math is float-lossy, so the comparison tolerates 1e-6.
func stockCovers(stock, amount float64) bool {
	return decFromFloat(stock).Sub(decFromFloat(amount)).Cmp(stockSlack) >= 0
}

func decimalLTE(a, b float64) bool { return decFromFloat(a).Cmp(decFromFloat(b)) <= 0 }
func decimalGTE(a, b float64) bool { return decFromFloat(a).Cmp(decFromFloat(b)) >= 0 }
