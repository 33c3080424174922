package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradeLogSchemaVersion is the version written with every serialized trade log
const TradeLogSchemaVersion = 1

// Trade represents a simulated transaction
type Trade struct {
	Date              time.Time        `json:"trade_date"`
	Direction         Direction        `json:"direction"`
	EntryRate         decimal.Decimal  `json:"entry_rate"`
	ExitRate          *decimal.Decimal `json:"exit_rate,omitempty"`
	PositionSize      decimal.Decimal  `json:"position_size"`
	ProfitLoss        *decimal.Decimal `json:"profit_loss,omitempty"`
	HoldingPeriodDays *int             `json:"holding_period_days,omitempty"`
	Confidence        float64          `json:"confidence"`
	MarketVolatility  float64          `json:"market_volatility"`
}

// IsOpen reports whether the trade has no exit yet
func (t *Trade) IsOpen() bool {
	return t.ExitRate == nil
}

// RealizedPnL returns the realized profit/loss and whether one exists
func (t *Trade) RealizedPnL() (decimal.Decimal, bool) {
	if t.ProfitLoss == nil {
		return decimal.Zero, false
	}
	return *t.ProfitLoss, true
}

// TradeLog is the ordered, append-only trade ledger of a job
type TradeLog struct {
	SchemaVersion int     `json:"schema_version"`
	Trades        []Trade `json:"trades"`
}

// NewTradeLog wraps trades in a versioned log
func NewTradeLog(trades []Trade) *TradeLog {
	if trades == nil {
		trades = []Trade{}
	}
	return &TradeLog{SchemaVersion: TradeLogSchemaVersion, Trades: trades}
}

// Marshal serializes the log for persistence
func (l *TradeLog) Marshal() ([]byte, error) {
	return json.Marshal(l)
}

// UnmarshalTradeLog parses a persisted trade log
func UnmarshalTradeLog(data []byte) (*TradeLog, error) {
	var log TradeLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("failed to decode trade log: %w", err)
	}
	if log.SchemaVersion != TradeLogSchemaVersion {
		return nil, fmt.Errorf("unsupported trade log schema version %d", log.SchemaVersion)
	}
	return &log, nil
}
