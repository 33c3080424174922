// Package config provides configuration management for the FX backtesting service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "FX_BACKTEST"

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error; defaults and environment variables are used instead.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	SetDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// SetDefaults registers the default value of every optional setting
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fx-backtest")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.sqlite_path", "data/jobs.db")

	v.SetDefault("jobs.max_concurrent", 4)
	v.SetDefault("jobs.timeout_seconds", 0)

	v.SetDefault("backtest.pair", "USD/JPY")
	v.SetDefault("backtest.signal.short_window", 5)
	v.SetDefault("backtest.signal.long_window", 20)
	v.SetDefault("backtest.signal.lookahead", 5)
	v.SetDefault("backtest.signal.baseline_confidence", 0.7)
	v.SetDefault("backtest.simulator.min_confidence", 0.6)
	v.SetDefault("backtest.simulator.min_lot_units", 1000)
	v.SetDefault("backtest.simulator.buy_fraction", 0.2)
	v.SetDefault("backtest.simulator.sell_fraction", 0.5)
	v.SetDefault("backtest.metrics.periods_per_year", 365)
	v.SetDefault("backtest.metrics.rolling_window", 30)
	v.SetDefault("backtest.metrics.var_confidence", 0.95)
	v.SetDefault("backtest.metrics.accuracy_error_band", 0.02)

	v.SetDefault("price_source.type", "parquet")
	v.SetDefault("price_source.parquet_dir", "data/candles")
	v.SetDefault("price_source.rate_limit", 10.0)
	v.SetDefault("price_source.timeout_seconds", 30)
	v.SetDefault("price_source.cache_ttl_seconds", 300)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("health.port", "8080")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// FX_BACKTEST_APP_LOG_LEVEL overrides app.log_level
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}
