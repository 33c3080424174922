package datasource

import (
	"context"
	"time"

	"github.com/yourusername/fx-backtest/internal/models"
	"github.com/yourusername/fx-backtest/internal/repository"
)

const postgresProviderName = "postgres"

// PostgresPriceProvider serves candles from the fx_candles table
type PostgresPriceProvider struct {
	candles repository.CandleRepository
}

// NewPostgresPriceProvider creates a provider over a candle repository
func NewPostgresPriceProvider(candles repository.CandleRepository) *PostgresPriceProvider {
	return &PostgresPriceProvider{candles: candles}
}

// GetCandles retrieves candles within the specified date range
func (p *PostgresPriceProvider) GetCandles(ctx context.Context, pair string, start, end time.Time) ([]models.Candle, error) {
	candles, err := p.candles.GetByDateRange(ctx, pair, start, end)
	if err != nil {
		return nil, NewDataSourceError(postgresProviderName, ErrCodeServerError, "failed to query candles", err)
	}
	return candles, nil
}

// CountCandles counts candles within the specified date range
func (p *PostgresPriceProvider) CountCandles(ctx context.Context, pair string, start, end time.Time) (int, error) {
	count, err := p.candles.CountByDateRange(ctx, pair, start, end)
	if err != nil {
		return 0, NewDataSourceError(postgresProviderName, ErrCodeServerError, "failed to count candles", err)
	}
	return count, nil
}

// Name returns the name of the price provider
func (p *PostgresPriceProvider) Name() string {
	return postgresProviderName
}
