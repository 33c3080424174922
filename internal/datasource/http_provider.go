package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/fx-backtest/internal/models"
)

const httpProviderName = "http"

// HTTPPriceProvider reads daily candles from a JSON price API
type HTTPPriceProvider struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	logger     *logrus.Entry
}

// httpCandle is the wire format of one candle returned by the price API
type httpCandle struct {
	Date   string           `json:"date"`
	Open   decimal.Decimal  `json:"open"`
	High   decimal.Decimal  `json:"high"`
	Low    decimal.Decimal  `json:"low"`
	Close  decimal.Decimal  `json:"close"`
	Volume *decimal.Decimal `json:"volume,omitempty"`
}

// NewHTTPPriceProvider creates a price provider backed by an HTTP API
func NewHTTPPriceProvider(httpClient *RateLimitedHTTPClient, baseURL, apiKey string, logger *logrus.Logger) *HTTPPriceProvider {
	if logger == nil {
		logger = logrus.New()
	}
	return &HTTPPriceProvider{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger.WithField("provider", httpProviderName),
	}
}

// GetCandles retrieves candles within the specified date range
func (p *HTTPPriceProvider) GetCandles(ctx context.Context, pair string, start, end time.Time) ([]models.Candle, error) {
	query := url.Values{}
	query.Set("pair", pair)
	query.Set("from", start.Format(time.DateOnly))
	query.Set("to", end.Format(time.DateOnly))
	endpoint := fmt.Sprintf("%s/candles?%s", p.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewDataSourceError(httpProviderName, ErrCodeNetworkError, "failed to create request", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewDataSourceError(httpProviderName, ErrCodeNetworkError, "failed to fetch candles", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, NewDataSourceError(httpProviderName, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case http.StatusTooManyRequests:
		return nil, NewDataSourceError(httpProviderName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case http.StatusNotFound:
		return nil, NewDataSourceError(httpProviderName, ErrCodeNotFound, fmt.Sprintf("unknown pair %s", pair), ErrNoData)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, NewDataSourceError(httpProviderName, ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var payload []httpCandle
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewDataSourceError(httpProviderName, ErrCodeInvalidData, "failed to parse response", err)
	}

	candles := make([]models.Candle, 0, len(payload))
	for _, c := range payload {
		day, err := time.Parse(time.DateOnly, c.Date)
		if err != nil {
			return nil, NewDataSourceError(httpProviderName, ErrCodeInvalidData,
				fmt.Sprintf("invalid candle date %q", c.Date), ErrInvalidData)
		}
		if !inRange(day, start, end) {
			continue
		}
		candle := models.Candle{
			Pair: pair, Date: day,
			Open: c.Open, High: c.High, Low: c.Low, Close: c.Close,
			Volume: c.Volume,
		}
		if !candle.IsConsistent() {
			p.logger.WithField("date", c.Date).Debug("Candle violates OHLC bounds")
		}
		candles = append(candles, candle)
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Date.Before(candles[j].Date) })
	return candles, nil
}

// CountCandles counts the candles the API returns for the range
func (p *HTTPPriceProvider) CountCandles(ctx context.Context, pair string, start, end time.Time) (int, error) {
	candles, err := p.GetCandles(ctx, pair, start, end)
	if err != nil {
		return 0, err
	}
	return len(candles), nil
}

// Name returns the name of the price provider
func (p *HTTPPriceProvider) Name() string {
	return httpProviderName
}
