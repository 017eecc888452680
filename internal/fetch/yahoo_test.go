package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratsim/internal/series"
)

// 2024-01-02 and 2024-01-03 at 14:30 UTC, with a null row between them
const chartPayload = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL"},
      "timestamp": [1704205800, 1704292200, 1704378600],
      "indicators": {
        "quote": [{
          "open":   [184.2, null, 184.9],
          "high":   [186.4, null, 185.9],
          "low":    [183.9, null, 183.4],
          "close":  [185.6, null, 184.3],
          "volume": [82488700, null, 58414500]
        }]
      }
    }],
    "error": null
  }
}`

func TestParseChartSkipsNullRows(t *testing.T) {
	bars, err := ParseChart([]byte(chartPayload))
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "2024-01-02", bars[0].Date)
	assert.Equal(t, 185.6, bars[0].Close)
	assert.Equal(t, 82488700.0, bars[0].Volume)
	assert.Equal(t, "2024-01-04", bars[1].Date)
	assert.Equal(t, 184.3, bars[1].Close)
}

func TestParseChartSurfacesAPIError(t *testing.T) {
	payload := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`
	_, err := ParseChart([]byte(payload))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestParseChartRejectsEmptyPayload(t *testing.T) {
	_, err := ParseChart([]byte(`{"chart":{"result":[]}}`))
	assert.Error(t, err)
}

func TestYahooSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.URL.Query().Get("period1"))
		_, _ = w.Write([]byte(chartPayload))
	}))
	defer srv.Close()

	src := NewYahooSource(srv.URL)
	bars, err := src.Fetch(context.Background(), "AAPL", "2024-01-02", "2024-01-05")
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestYahooSourceFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewYahooSource(srv.URL).Fetch(context.Background(), "AAPL", "2024-01-02", "2024-01-05")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

type fakeSource struct {
	fail map[string]bool
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(_ context.Context, ticker, start, _ string) ([]series.Bar, error) {
	if f.fail[ticker] {
		return nil, errors.New("fetch blew up")
	}
	return []series.Bar{{Date: start, Close: 100}}, nil
}

type memSink struct {
	mu    sync.Mutex
	saved map[string]int
}

func (m *memSink) SaveBars(_ context.Context, ticker string, bars []series.Bar) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string]int)
	}
	m.saved[ticker] += len(bars)
	return len(bars), nil
}

func TestRefreshTickersStoresEverything(t *testing.T) {
	sink := &memSink{}
	err := RefreshTickers(context.Background(), &fakeSource{}, sink,
		[]string{"AAPL", "MSFT", "GOOG"}, "2024-01-02", "2024-01-05", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"AAPL": 1, "MSFT": 1, "GOOG": 1}, sink.saved)
}

func TestRefreshTickersPropagatesFailure(t *testing.T) {
	sink := &memSink{}
	err := RefreshTickers(context.Background(), &fakeSource{fail: map[string]bool{"MSFT": true}}, sink,
		[]string{"AAPL", "MSFT"}, "2024-01-02", "2024-01-05", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blew up")
}
