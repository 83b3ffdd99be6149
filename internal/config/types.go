package config

import "time"

// Config is the strategyd service configuration.
type Config struct {
	InstanceID string           `mapstructure:"instance_id"`
	LogLevel   string           `mapstructure:"log_level"`
	LogFormat  string           `mapstructure:"log_format"`
	DataDir    string           `mapstructure:"data_dir"`
	DryRun     bool             `mapstructure:"dry_run"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Strategy   StrategyConfig   `mapstructure:"strategy"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Executions ExecutionsConfig `mapstructure:"executions"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Relay      RelayConfig      `mapstructure:"relay"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the API
}

// StrategyConfig selects the strategy and carries its JSON configuration.
// ConfigJSON wins over Config when both are set.
type StrategyConfig struct {
	Kind       string         `mapstructure:"kind"`
	Config     map[string]any `mapstructure:"config"`
	ConfigJSON string         `mapstructure:"config_json"`
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver"` // memory | postgres
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type ExecutionsConfig struct {
	Driver        string `mapstructure:"driver"` // none | memory | clickhouse
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
}

type ChainConfig struct {
	WSEndpoint string `mapstructure:"ws_endpoint"`
	EventsFile string `mapstructure:"events_file"`
	FromSlot   uint64 `mapstructure:"from_slot"`
}

// RelayConfig configures the execution relay client.
type RelayConfig struct {
	Timeout    time.Duration     `mapstructure:"timeout"`
	MaxRetries int               `mapstructure:"max_retries"`
	URLs       map[string]string `mapstructure:"urls"` // network -> publish url
}
