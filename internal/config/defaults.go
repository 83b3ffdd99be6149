package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values.
const (
	defaultLogLevel         = "info"
	defaultLogFormat        = "text"
	defaultDataDir          = "./data"
	defaultHTTPAddr         = ":8080"
	defaultStorageDriver    = "memory"
	defaultExecutionsDriver = "memory"
	defaultRelayTimeout     = 10 * time.Second
	defaultRelayMaxRetries  = 0
)

// setDefaults registers every key so environment overrides apply to it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("instance_id", "")
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("log_format", defaultLogFormat)
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("dry_run", false)
	v.SetDefault("http.addr", defaultHTTPAddr)
	v.SetDefault("strategy.kind", "")
	v.SetDefault("strategy.config_json", "")
	v.SetDefault("storage.driver", defaultStorageDriver)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("executions.driver", defaultExecutionsDriver)
	v.SetDefault("executions.clickhouse_dsn", "")
	v.SetDefault("chain.ws_endpoint", "")
	v.SetDefault("chain.events_file", "")
	v.SetDefault("chain.from_slot", 0)
	v.SetDefault("relay.timeout", defaultRelayTimeout)
	v.SetDefault("relay.max_retries", defaultRelayMaxRetries)
}
