package config

import (
	"fmt"
	"strings"

	"stratsim/internal/logger"
)

func validate(c *Config) error {
	if _, err := logger.ParseLevel(c.App.LogLevel); err != nil {
		return err
	}
	c.App.LogLevel = strings.ToLower(strings.TrimSpace(c.App.LogLevel))
	if !strings.Contains(c.Server.Addr, ":") {
		return fmt.Errorf("server addr %q must contain a port", c.Server.Addr)
	}
	if c.Data.PricesPath == c.Data.ResultsPath {
		return fmt.Errorf("prices and results cannot share the file %q", c.Data.PricesPath)
	}
	if c.Fetch.Concurrency > 16 {
		return fmt.Errorf("fetch concurrency %d is too high, max 16", c.Fetch.Concurrency)
	}
	return nil
}
