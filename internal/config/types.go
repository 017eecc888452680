package config

// Config is the root application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Data     DataConfig     `mapstructure:"data"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Backtest BacktestConfig `mapstructure:"backtest"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DataConfig names the on-disk SQLite files.
type DataConfig struct {
	PricesPath  string `mapstructure:"prices_path"`
	ResultsPath string `mapstructure:"results_path"`
}

type FetchConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Concurrency int    `mapstructure:"concurrency"`
}

type BacktestConfig struct {
	// MaxConcurrentRuns bounds how many simulations run at once.
	MaxConcurrentRuns int `mapstructure:"max_concurrent_runs"`
	// SpecsPath optionally points at a YAML file of named strategy
	// definitions loaded and watched at startup.
	SpecsPath string `mapstructure:"specs_path"`
}
