package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/yourusername/fx-backtest/internal/models"
)

// TradeRecord is the parquet row layout of an exported trade
type TradeRecord struct {
	JobID             string    `parquet:"job_id"`
	Date              time.Time `parquet:"trade_date,timestamp(millisecond)"`
	Direction         string    `parquet:"direction"`
	EntryRate         float64   `parquet:"entry_rate"`
	ExitRate          *float64  `parquet:"exit_rate,optional"`
	PositionSize      float64   `parquet:"position_size"`
	ProfitLoss        *float64  `parquet:"profit_loss,optional"`
	HoldingPeriodDays *int32    `parquet:"holding_period_days,optional"`
	Confidence        float64   `parquet:"confidence"`
	MarketVolatility  float64   `parquet:"market_volatility"`
}

// ExportTradesParquet writes a job's trade log to a parquet file
func ExportTradesParquet(jobID string, trades []models.Trade, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	records := make([]TradeRecord, 0, len(trades))
	for _, trade := range trades {
		record := TradeRecord{
			JobID:            jobID,
			Date:             trade.Date,
			Direction:        string(trade.Direction),
			EntryRate:        trade.EntryRate.InexactFloat64(),
			PositionSize:     trade.PositionSize.InexactFloat64(),
			Confidence:       trade.Confidence,
			MarketVolatility: trade.MarketVolatility,
		}
		if trade.ExitRate != nil {
			v := trade.ExitRate.InexactFloat64()
			record.ExitRate = &v
		}
		if trade.ProfitLoss != nil {
			v := trade.ProfitLoss.InexactFloat64()
			record.ProfitLoss = &v
		}
		if trade.HoldingPeriodDays != nil {
			v := int32(*trade.HoldingPeriodDays)
			record.HoldingPeriodDays = &v
		}
		records = append(records, record)
	}

	if err := parquet.WriteFile(outputPath, records); err != nil {
		return fmt.Errorf("failed to write trades parquet: %w", err)
	}
	return nil
}

// ReadTradesParquet reads back an exported trade file
func ReadTradesParquet(path string) ([]TradeRecord, error) {
	records, err := parquet.ReadFile[TradeRecord](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trades parquet: %w", err)
	}
	return records, nil
}
