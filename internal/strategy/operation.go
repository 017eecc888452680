package strategy

import "fmt"

// OpType is the direction of an operation.
type OpType string

const (
	OpBuy  OpType = "buy"
	OpSell OpType = "sell"
)

// Operation is the immutable audit record of one attempted trade. Failed
// attempts are recorded too, still carrying the requested cash amount and
// the price at the time.
type Operation struct {
	Type       OpType  `json:"type"`
	CashAmount float64 `json:"cash_amount"`
	Ticker     string  `json:"ticker"`
	Price      float64 `json:"price"`
	Successful bool    `json:"successful"`
	Date       string  `json:"date"`
	Trigger    string  `json:"trigger"`
}

// Description renders the operation for logs and reports.
func (o Operation) Description() string {
	status := "Successful"
	if !o.Successful {
		status = "Unsuccessful"
	}
	return fmt.Sprintf("%s %s (%s) operation of %.2f$ worth of %s at %.2f$ in %s",
		status, o.Type, o.Trigger, o.CashAmount, o.Ticker, o.Price, o.Date)
}
