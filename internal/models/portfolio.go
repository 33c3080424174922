package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot records the portfolio at a day's close
type PortfolioSnapshot struct {
	Date       time.Time       `json:"date"`
	Cash       decimal.Decimal `json:"cash"`
	Position   decimal.Decimal `json:"position"`
	CloseRate  decimal.Decimal `json:"close_rate"`
	TotalValue decimal.Decimal `json:"total_value"`
}
