package datasource

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yourusername/fx-backtest/internal/models"
)

// PriceProvider returns ordered daily candles for a currency pair
type PriceProvider interface {
	// GetCandles retrieves candles between start and end inclusive, ordered by date
	GetCandles(ctx context.Context, pair string, start, end time.Time) ([]models.Candle, error)

	// CountCandles reports how many candles exist between start and end inclusive
	CountCandles(ctx context.Context, pair string, start, end time.Time) (int, error)

	// Name returns the name of the price provider
	Name() string
}

// DataSourceError represents errors from price provider operations
type DataSourceError struct {
	Source  string // Provider name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap exposes the underlying error to errors.Is and errors.As
func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeUnknown              = "unknown"
)

// Sentinel errors
var (
	ErrNoData      = errors.New("no price data")
	ErrInvalidData = errors.New("invalid data format")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// normalizePair turns "usd/jpy" or "USDJPY" into "USDJPY"
func normalizePair(pair string) string {
	return strings.ToUpper(strings.NewReplacer("/", "", "_", "", "-", "").Replace(pair))
}

// truncateDay drops the time-of-day component
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// inRange reports whether day falls between start and end inclusive
func inRange(day, start, end time.Time) bool {
	day = truncateDay(day)
	return !day.Before(truncateDay(start)) && !day.After(truncateDay(end))
}
