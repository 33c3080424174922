package datasource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/fx-backtest/internal/config"
	"github.com/yourusername/fx-backtest/internal/repository"
)

// SourceType represents the type of price provider
type SourceType string

const (
	// PostgresSourceType reads the fx_candles table
	PostgresSourceType SourceType = "postgres"
	// HTTPSourceType calls a JSON price API
	HTTPSourceType SourceType = "http"
	// ParquetSourceType reads yearly Parquet files
	ParquetSourceType SourceType = "parquet"
)

// NewPriceProvider builds the provider selected by cfg.Type, wrapped in a
// cache when cfg.CacheTTLSeconds is positive. candles is required for postgres.
func NewPriceProvider(cfg config.PriceSourceConfig, candles repository.CandleRepository, logger *logrus.Logger) (PriceProvider, error) {
	var provider PriceProvider

	switch SourceType(cfg.Type) {
	case PostgresSourceType:
		if candles == nil {
			return nil, fmt.Errorf("candle repository is required for the postgres price source")
		}
		provider = NewPostgresPriceProvider(candles)

	case HTTPSourceType:
		if cfg.URL == "" {
			return nil, fmt.Errorf("price source URL is required")
		}
		httpCfg := DefaultHTTPClientConfig()
		if cfg.TimeoutSeconds > 0 {
			httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		httpCfg.RateLimit = cfg.RateLimit
		provider = NewHTTPPriceProvider(NewRateLimitedHTTPClient(httpCfg, logger), cfg.URL, cfg.APIKey, logger)

	case ParquetSourceType:
		provider = NewParquetPriceProvider(cfg.ParquetDir)

	default:
		return nil, fmt.Errorf("unknown price source: %s", cfg.Type)
	}

	if cfg.CacheTTLSeconds > 0 {
		provider = NewCachedPriceProvider(provider, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	}
	return provider, nil
}
