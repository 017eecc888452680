package config

import "strings"

const (
	defaultAddr        = ":9980"
	defaultLogLevel    = "info"
	defaultPricesPath  = "data/prices.db"
	defaultResultsPath = "data/results.db"
	defaultFetchBase   = "https://query1.finance.yahoo.com"
)

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.App.Env) == "" {
		c.App.Env = "dev"
	}
	if strings.TrimSpace(c.App.LogLevel) == "" {
		c.App.LogLevel = defaultLogLevel
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = defaultAddr
	}
	if strings.TrimSpace(c.Data.PricesPath) == "" {
		c.Data.PricesPath = defaultPricesPath
	}
	if strings.TrimSpace(c.Data.ResultsPath) == "" {
		c.Data.ResultsPath = defaultResultsPath
	}
	if strings.TrimSpace(c.Fetch.BaseURL) == "" {
		c.Fetch.BaseURL = defaultFetchBase
	}
	if c.Fetch.Concurrency <= 0 {
		c.Fetch.Concurrency = 3
	}
	if c.Backtest.MaxConcurrentRuns <= 0 {
		c.Backtest.MaxConcurrentRuns = 2
	}
}
