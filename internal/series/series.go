// Package series holds the immutable date-indexed daily price history a
// simulation runs against. Lookups come in two flavours: exact date, and
// last valid price on or before a date, which bridges weekend and holiday
// gaps.
package series

import (
	"fmt"
	"math"
	"sort"

	"stratsim/internal/interval"
)

// Bar is one daily OHLC record.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Series is a read-only, date-sorted price history for one ticker. It is
// never mutated after construction, so a single Series may be shared by
// any number of strategies.
type Series struct {
	ticker string
	dates  []string
	bars   map[string]Bar
}

// New builds a Series from raw bars. Bars are sorted by date, duplicate
// dates are rejected, and non-finite numeric fields are coerced to 0
// (a lossy but deliberate ingest policy).
func New(ticker string, bars []Bar) (*Series, error) {
	s := &Series{
		ticker: ticker,
		dates:  make([]string, 0, len(bars)),
		bars:   make(map[string]Bar, len(bars)),
	}
	for _, b := range bars {
		if _, dup := s.bars[b.Date]; dup {
			return nil, fmt.Errorf("series %s: duplicate date %s", ticker, b.Date)
		}
		b.Open = finite(b.Open)
		b.High = finite(b.High)
		b.Low = finite(b.Low)
		b.Close = finite(b.Close)
		b.Volume = finite(b.Volume)
		s.bars[b.Date] = b
		s.dates = append(s.dates, b.Date)
	}
	sort.Strings(s.dates)
	return s, nil
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Ticker returns the symbol this series was loaded for.
func (s *Series) Ticker() string { return s.ticker }

// Dates returns every trading date in ascending order. Callers must not
// modify the returned slice.
func (s *Series) Dates() []string { return s.dates }

// Len reports the number of bars.
func (s *Series) Len() int { return len(s.dates) }

// FirstDate returns the earliest trading date, or "" for an empty series.
func (s *Series) FirstDate() string {
	if len(s.dates) == 0 {
		return ""
	}
	return s.dates[0]
}

// LastDate returns the latest trading date, or "" for an empty series.
func (s *Series) LastDate() string {
	if len(s.dates) == 0 {
		return ""
	}
	return s.dates[len(s.dates)-1]
}

// Bar returns the full record for an exact date.
func (s *Series) Bar(date string) (Bar, bool) {
	b, ok := s.bars[date]
	return b, ok
}

// PriceOn returns the close price for an exact date. A missing date
// (weekend, holiday) is reported as absent, not as an error.
func (s *Series) PriceOn(date string) (float64, bool) {
	b, ok := s.bars[date]
	if !ok {
		return 0, false
	}
	return b.Close, true
}

// LastValidOnOrBefore walks backward one calendar day at a time from date
// until a bar exists or the series' first date is passed. This is how
// lookback references and entries scheduled on non-trading days resolve
// to a real price.
func (s *Series) LastValidOnOrBefore(date string) (float64, bool) {
	first := s.FirstDate()
	if first == "" {
		return 0, false
	}
	cur := date
	for cur >= first {
		if price, ok := s.PriceOn(cur); ok {
			return price, true
		}
		prev, err := interval.PrevDay(cur)
		if err != nil {
			return 0, false
		}
		cur = prev
	}
	return 0, false
}
