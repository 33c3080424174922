// Package config provides configuration management for the FX backtesting service.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Store       StoreConfig       `mapstructure:"store" validate:"required"`
	Jobs        JobsConfig        `mapstructure:"jobs" validate:"required"`
	Backtest    BacktestConfig    `mapstructure:"backtest" validate:"required"`
	PriceSource PriceSourceConfig `mapstructure:"price_source" validate:"required"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Health      HealthConfig      `mapstructure:"health"`
	Schedules   []ScheduleConfig  `mapstructure:"schedules" validate:"omitempty,dive"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration.
// Required only when the store driver or the price source is postgres.
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
}

// StoreConfig selects the results store backend
type StoreConfig struct {
	Driver     string `mapstructure:"driver" validate:"required,storedriver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// JobsConfig controls background execution of backtest jobs
type JobsConfig struct {
	MaxConcurrent  int `mapstructure:"max_concurrent" validate:"required,gt=0"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// BacktestConfig represents the default parameters of every backtest run
type BacktestConfig struct {
	Pair      string          `mapstructure:"pair" validate:"required"`
	Signal    SignalConfig    `mapstructure:"signal" validate:"required"`
	Simulator SimulatorConfig `mapstructure:"simulator" validate:"required"`
	Metrics   AnalyticsConfig `mapstructure:"metrics" validate:"required"`
}

// SignalConfig represents the moving-average signal defaults
type SignalConfig struct {
	ShortWindow        int     `mapstructure:"short_window" validate:"required,gt=0"`
	LongWindow         int     `mapstructure:"long_window" validate:"required,gt=0"`
	Lookahead          int     `mapstructure:"lookahead" validate:"required,gt=0"`
	BaselineConfidence float64 `mapstructure:"baseline_confidence" validate:"required,gt=0,lte=1"`
}

// SimulatorConfig represents trading simulator thresholds
type SimulatorConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence" validate:"gte=0,lte=1"`
	MinLotUnits   float64 `mapstructure:"min_lot_units" validate:"gte=0"`
	BuyFraction   float64 `mapstructure:"buy_fraction" validate:"required,gt=0,lte=1"`
	SellFraction  float64 `mapstructure:"sell_fraction" validate:"required,gt=0,lte=1"`
}

// AnalyticsConfig represents metrics calculator settings
type AnalyticsConfig struct {
	PeriodsPerYear    int     `mapstructure:"periods_per_year" validate:"required,gt=0"`
	RollingWindow     int     `mapstructure:"rolling_window" validate:"required,gt=1"`
	VaRConfidence     float64 `mapstructure:"var_confidence" validate:"required,gt=0,lt=1"`
	AccuracyErrorBand float64 `mapstructure:"accuracy_error_band" validate:"gte=0"`
}

// PriceSourceConfig represents where candles are read from
type PriceSourceConfig struct {
	Type            string  `mapstructure:"type" validate:"required,sourcetype"`
	URL             string  `mapstructure:"url" validate:"omitempty,url"`
	APIKey          string  `mapstructure:"api_key"`
	ParquetDir      string  `mapstructure:"parquet_dir"`
	RateLimit       float64 `mapstructure:"rate_limit" validate:"gte=0"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" validate:"gte=0"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// HealthConfig represents the health server configuration
type HealthConfig struct {
	Port string `mapstructure:"port"`
}

// ScheduleConfig represents a recurring rolling-window backtest
type ScheduleConfig struct {
	Name           string         `mapstructure:"name" validate:"required"`
	Cron           string         `mapstructure:"cron" validate:"required"`
	LookbackDays   int            `mapstructure:"lookback_days" validate:"required,gt=0"`
	InitialCapital float64        `mapstructure:"initial_capital" validate:"required,gt=0"`
	ModelType      string         `mapstructure:"model_type" validate:"required"`
	ModelConfig    map[string]any `mapstructure:"model_config"`
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// UsesPostgres reports whether any component needs a database connection
func (c *Config) UsesPostgres() bool {
	return c.Store.Driver == "postgres" || c.PriceSource.Type == "postgres"
}

// JobTimeout returns the hard job timeout, zero meaning none
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Jobs.TimeoutSeconds) * time.Second
}

// DSN returns the PostgreSQL connection URL
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	if c.SSLMode != "" {
		u.RawQuery = "sslmode=" + c.SSLMode
	}
	return u.String()
}
