package datasource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
	"github.com/yourusername/fx-backtest/internal/models"
)

const parquetProviderName = "parquet"

// CandleRecord is the Parquet schema for daily candle data.
type CandleRecord struct {
	Pair      string   `parquet:"pair"`
	Timestamp int64    `parquet:"timestamp,timestamp(millisecond)"` // Unix ms at 00:00 UTC
	Open      float64  `parquet:"open"`
	High      float64  `parquet:"high"`
	Low       float64  `parquet:"low"`
	Close     float64  `parquet:"close"`
	Volume    *float64 `parquet:"volume,optional"`
}

// ParquetPriceProvider reads candles from Parquet files on disk.
//
// Layout: <dataDir>/<PAIR>/<YYYY>.parquet, PAIR without separators (e.g. USDJPY).
type ParquetPriceProvider struct {
	dataDir string
}

// NewParquetPriceProvider creates a provider rooted at dataDir
func NewParquetPriceProvider(dataDir string) *ParquetPriceProvider {
	return &ParquetPriceProvider{dataDir: dataDir}
}

// GetCandles reads every yearly file overlapping the range
func (p *ParquetPriceProvider) GetCandles(ctx context.Context, pair string, start, end time.Time) ([]models.Candle, error) {
	var candles []models.Candle
	for year := start.Year(); year <= end.Year(); year++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := p.yearPath(pair, year)
		records, err := parquet.ReadFile[CandleRecord](path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, NewDataSourceError(parquetProviderName, ErrCodeInvalidData,
				fmt.Sprintf("failed to read %s", path), err)
		}

		for _, r := range records {
			day := time.UnixMilli(r.Timestamp).UTC()
			if !inRange(day, start, end) {
				continue
			}
			candles = append(candles, recordToCandle(pair, day, r))
		}
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Date.Before(candles[j].Date) })
	return candles, nil
}

// CountCandles counts candles available in the range
func (p *ParquetPriceProvider) CountCandles(ctx context.Context, pair string, start, end time.Time) (int, error) {
	candles, err := p.GetCandles(ctx, pair, start, end)
	if err != nil {
		return 0, err
	}
	return len(candles), nil
}

// Name returns the name of the price provider
func (p *ParquetPriceProvider) Name() string {
	return parquetProviderName
}

// WriteCandles merges candles into their yearly files. A candle replaces any
// stored record for the same day; records outside the written dates are kept.
func (p *ParquetPriceProvider) WriteCandles(pair string, candles []models.Candle) error {
	byYear := make(map[int]map[int64]CandleRecord)
	for _, c := range candles {
		day := truncateDay(c.Date)
		if byYear[day.Year()] == nil {
			byYear[day.Year()] = make(map[int64]CandleRecord)
		}
		r := candleToRecord(pair, day, c)
		byYear[day.Year()][r.Timestamp] = r
	}

	for year, incoming := range byYear {
		path := p.yearPath(pair, year)
		existing, err := parquet.ReadFile[CandleRecord](path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		records := make([]CandleRecord, 0, len(existing)+len(incoming))
		for _, r := range existing {
			if _, replaced := incoming[r.Timestamp]; !replaced {
				records = append(records, r)
			}
		}
		for _, r := range incoming {
			records = append(records, r)
		}
		sort.Slice(records, func(i, j int) bool { return records[i].Timestamp < records[j].Timestamp })

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create candle directory: %w", err)
		}
		if err := parquet.WriteFile(path, records); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

func (p *ParquetPriceProvider) yearPath(pair string, year int) string {
	return filepath.Join(p.dataDir, normalizePair(pair), fmt.Sprintf("%d.parquet", year))
}

func recordToCandle(pair string, day time.Time, r CandleRecord) models.Candle {
	c := models.Candle{
		Pair:  pair,
		Date:  day,
		Open:  decimal.NewFromFloat(r.Open),
		High:  decimal.NewFromFloat(r.High),
		Low:   decimal.NewFromFloat(r.Low),
		Close: decimal.NewFromFloat(r.Close),
	}
	if r.Volume != nil {
		v := decimal.NewFromFloat(*r.Volume)
		c.Volume = &v
	}
	return c
}

func candleToRecord(pair string, day time.Time, c models.Candle) CandleRecord {
	r := CandleRecord{
		Pair:      normalizePair(pair),
		Timestamp: day.UnixMilli(),
		Open:      c.Open.InexactFloat64(),
		High:      c.High.InexactFloat64(),
		Low:       c.Low.InexactFloat64(),
		Close:     c.Close.InexactFloat64(),
	}
	if c.Volume != nil {
		v := c.Volume.InexactFloat64()
		r.Volume = &v
	}
	return r
}
