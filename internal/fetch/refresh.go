package fetch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"stratsim/internal/logger"
	"stratsim/internal/series"
)

// Source downloads daily bars for one ticker over a closed date window.
type Source interface {
	Name() string
	Fetch(ctx context.Context, ticker, start, end string) ([]series.Bar, error)
}

// BarSink receives downloaded bars, typically a price store.
type BarSink interface {
	SaveBars(ctx context.Context, ticker string, bars []series.Bar) (int, error)
}

// RefreshTickers fetches and stores bars for every ticker, a few at a
// time. The first failure cancels the rest.
func RefreshTickers(ctx context.Context, src Source, sink BarSink, tickers []string, start, end string, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 3
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, ticker := range tickers {
		g.Go(func() error {
			bars, err := src.Fetch(ctx, ticker, start, end)
			if err != nil {
				return err
			}
			n, err := sink.SaveBars(ctx, ticker, bars)
			if err != nil {
				return err
			}
			logger.Infof("refreshed %s from %s: %d bars", ticker, src.Name(), n)
			return nil
		})
	}
	return g.Wait()
}
