package datasource

import (
	"context"
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/fx-backtest/internal/metrics"
	"github.com/yourusername/fx-backtest/internal/models"
)

// CachedPriceProvider memoizes another provider's results for a TTL.
// Cached slices are shared between jobs and must be treated as read-only.
type CachedPriceProvider struct {
	next  PriceProvider
	cache *cache.Cache
}

// NewCachedPriceProvider wraps next with a TTL cache
func NewCachedPriceProvider(next PriceProvider, ttl time.Duration) *CachedPriceProvider {
	return &CachedPriceProvider{
		next:  next,
		cache: cache.New(ttl, ttl*2),
	}
}

// GetCandles returns cached candles or loads them from the wrapped provider
func (p *CachedPriceProvider) GetCandles(ctx context.Context, pair string, start, end time.Time) ([]models.Candle, error) {
	key := rangeKey("candles", pair, start, end)
	if cached, found := p.cache.Get(key); found {
		if candles, ok := cached.([]models.Candle); ok {
			metrics.RecordCacheLookup(true)
			return candles, nil
		}
	}
	metrics.RecordCacheLookup(false)

	candles, err := p.next.GetCandles(ctx, pair, start, end)
	if err != nil {
		return nil, err
	}
	p.cache.SetDefault(key, candles)
	return candles, nil
}

// CountCandles returns a cached count or asks the wrapped provider
func (p *CachedPriceProvider) CountCandles(ctx context.Context, pair string, start, end time.Time) (int, error) {
	key := rangeKey("count", pair, start, end)
	if cached, found := p.cache.Get(key); found {
		if count, ok := cached.(int); ok {
			metrics.RecordCacheLookup(true)
			return count, nil
		}
	}
	metrics.RecordCacheLookup(false)

	count, err := p.next.CountCandles(ctx, pair, start, end)
	if err != nil {
		return 0, err
	}
	p.cache.SetDefault(key, count)
	return count, nil
}

// Name returns the wrapped provider's name
func (p *CachedPriceProvider) Name() string {
	return p.next.Name() + "+cache"
}

// Flush drops every cached entry
func (p *CachedPriceProvider) Flush() {
	p.cache.Flush()
}

func rangeKey(kind, pair string, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s", kind, normalizePair(pair), start.Format(time.DateOnly), end.Format(time.DateOnly))
}
