package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"stratsim/internal/series"
)

// YahooSource pulls daily bars from the Yahoo Finance v8 chart API.
type YahooSource struct {
	baseURL string
	client  *http.Client
}

func NewYahooSource(base string) *YahooSource {
	if base == "" {
		base = "https://query1.finance.yahoo.com"
	}
	return &YahooSource{
		baseURL: base,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (y *YahooSource) Name() string { return "yahoo" }

// Fetch downloads daily bars for a ticker over a closed date window.
// Days the exchange was closed simply have no row; half-filled rows are
// dropped.
func (y *YahooSource) Fetch(ctx context.Context, ticker, start, end string) ([]series.Bar, error) {
	if ticker == "" {
		return nil, fmt.Errorf("ticker cannot be empty")
	}
	startTs, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	endTs, err := time.Parse("2006-01-02", end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", end, err)
	}

	u, _ := url.Parse(y.baseURL)
	u.Path = "/v8/finance/chart/" + url.PathEscape(ticker)
	q := u.Query()
	q.Set("period1", strconv.FormatInt(startTs.Unix(), 10))
	// period2 is exclusive, push it past the last requested day
	q.Set("period2", strconv.FormatInt(endTs.Add(24*time.Hour).Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")
	u.RawQuery = q.Encode()

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (compatible; stratsim/1.0)")
	resp, err := y.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("yahoo returned status %d for %s", resp.StatusCode, ticker)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return ParseChart(body)
}

// ParseChart extracts daily bars from a v8 chart payload.
func ParseChart(body []byte) ([]series.Bar, error) {
	doc := gjson.ParseBytes(body)
	if errMsg := doc.Get("chart.error.description"); errMsg.Exists() && errMsg.String() != "" {
		return nil, fmt.Errorf("yahoo chart error: %s", errMsg.String())
	}
	result := doc.Get("chart.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("yahoo chart payload has no result")
	}

	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	bars := make([]series.Bar, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(closes) || closes[i].Type == gjson.Null {
			continue
		}
		date := time.Unix(ts.Int(), 0).UTC().Format("2006-01-02")
		bar := series.Bar{Date: date, Close: closes[i].Float()}
		if i < len(opens) {
			bar.Open = opens[i].Float()
		}
		if i < len(highs) {
			bar.High = highs[i].Float()
		}
		if i < len(lows) {
			bar.Low = lows[i].Float()
		}
		if i < len(volumes) {
			bar.Volume = volumes[i].Float()
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
