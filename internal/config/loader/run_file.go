package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"stratsim/internal/backtest"
)

// LoadRunRequest reads one run request from a YAML file. The file may
// either wrap the definition in a top-level "strategy" key or be the
// bare strategy definition itself.
func LoadRunRequest(path string) (*backtest.RunRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run file: %w", err)
	}
	var req backtest.RunRequest
	if err := yaml.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("parse run file %s: %w", path, err)
	}
	if req.Strategy.Kind == "" {
		var cfg backtest.StrategyConfig
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse run file %s: %w", path, err)
		}
		req.Strategy = cfg
	}
	if err := req.Strategy.Validate(); err != nil {
		return nil, fmt.Errorf("run file %s: %w", path, err)
	}
	return &req, nil
}
