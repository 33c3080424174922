package backtest

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/fx-backtest/internal/models"
)

var testStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// dailyCandles builds one candle per calendar day starting at testStart
func dailyCandles(closes ...float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		price := decimal.NewFromFloat(c)
		candles[i] = models.Candle{
			Pair:  "USD/JPY",
			Date:  testStart.AddDate(0, 0, i),
			Open:  price,
			High:  price.Add(decimal.NewFromFloat(0.5)),
			Low:   price.Sub(decimal.NewFromFloat(0.5)),
			Close: price,
		}
	}
	return candles
}

// businessDayCandles builds a wavy weekday-only series between start and end
func businessDayCandles(start, end time.Time) []models.Candle {
	var candles []models.Candle
	i := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		px := 108 + 4*math.Sin(float64(i)/9) + 0.02*float64(i)
		price := decimal.NewFromFloat(px).Round(3)
		candles = append(candles, models.Candle{
			Pair:  "USD/JPY",
			Date:  d,
			Open:  price,
			High:  price.Add(decimal.NewFromFloat(0.3)),
			Low:   price.Sub(decimal.NewFromFloat(0.3)),
			Close: price,
		})
		i++
	}
	return candles
}

type fakeProvider struct {
	candles []models.Candle
	err     error
}

func (f *fakeProvider) GetCandles(_ context.Context, _ string, start, end time.Time) ([]models.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Candle
	for _, c := range f.candles {
		if !c.Date.Before(start) && !c.Date.After(end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeProvider) CountCandles(ctx context.Context, pair string, start, end time.Time) (int, error) {
	candles, err := f.GetCandles(ctx, pair, start, end)
	return len(candles), err
}

func (f *fakeProvider) Name() string {
	return "fake"
}
