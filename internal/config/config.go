// Package config loads the strategyd configuration from YAML files and
// STRATEGYD_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. STRATEGYD_RELAY_TIMEOUT.
const EnvPrefix = "STRATEGYD"

// instanceIDFile stores a generated instance id inside data_dir.
const instanceIDFile = "instance_id"

// Load merges the given files in order, applies environment overrides and
// defaults, and validates the result. No files means defaults and env only.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, file := range paths {
		if strings.TrimSpace(file) == "" {
			continue
		}
		if err := mergeConfigFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}

// StrategyJSON returns the strategy configuration as the JSON blob the
// engine decodes.
func (c *Config) StrategyJSON() ([]byte, error) {
	if s := strings.TrimSpace(c.Strategy.ConfigJSON); s != "" {
		if !json.Valid([]byte(s)) {
			return nil, fmt.Errorf("strategy.config_json is not valid JSON")
		}
		return []byte(s), nil
	}
	if c.Strategy.Config == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(c.Strategy.Config)
	if err != nil {
		return nil, fmt.Errorf("encoding strategy.config: %w", err)
	}
	return raw, nil
}

// EnsureInstanceID fills InstanceID when unset. A generated id is kept in
// data_dir so restarts reuse the same keys and state.
func (c *Config) EnsureInstanceID() error {
	if c.InstanceID != "" {
		return nil
	}

	path := filepath.Join(c.DataDir, instanceIDFile)
	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			c.InstanceID = id
			return nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading instance id: %w", err)
	}

	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing instance id: %w", err)
	}
	c.InstanceID = id
	return nil
}

// KeysDir is where instance key files live.
func (c *Config) KeysDir() string {
	return filepath.Join(c.DataDir, "keys")
}
