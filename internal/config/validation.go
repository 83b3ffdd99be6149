package config

import (
	"fmt"
	"strings"

	"sundae-strategies/internal/domain"
)

// validate checks the loaded configuration.
func validate(c *Config) error {
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if strings.TrimSpace(c.Strategy.Kind) == "" {
		return fmt.Errorf("strategy.kind is required")
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if err := c.Executions.validate(); err != nil {
		return err
	}
	if err := c.Chain.validate(); err != nil {
		return err
	}
	return c.Relay.validate()
}

func (s *StorageConfig) validate() error {
	switch s.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(s.PostgresDSN) == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be memory or postgres, got %q", s.Driver)
	}
	return nil
}

func (e *ExecutionsConfig) validate() error {
	switch e.Driver {
	case "none", "memory":
	case "clickhouse":
		if strings.TrimSpace(e.ClickhouseDSN) == "" {
			return fmt.Errorf("executions.clickhouse_dsn is required for the clickhouse driver")
		}
	default:
		return fmt.Errorf("executions.driver must be none, memory or clickhouse, got %q", e.Driver)
	}
	return nil
}

func (c *ChainConfig) validate() error {
	if c.WSEndpoint != "" && c.EventsFile != "" {
		return fmt.Errorf("chain.ws_endpoint and chain.events_file are mutually exclusive")
	}
	return nil
}

func (r *RelayConfig) validate() error {
	if r.Timeout <= 0 {
		return fmt.Errorf("relay.timeout must be positive")
	}
	if r.MaxRetries < 0 {
		return fmt.Errorf("relay.max_retries must be >= 0")
	}
	for network := range r.URLs {
		if _, err := domain.ParseNetwork(network); err != nil {
			return fmt.Errorf("relay.urls: %w", err)
		}
	}
	return nil
}
