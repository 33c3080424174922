package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents one day's OHLC record for a currency pair.
// Sources may violate high >= max(open, close) or low <= min(open, close);
// consumers tolerate that and never repair it.
type Candle struct {
	Pair   string           `db:"pair" json:"pair"`
	Date   time.Time        `db:"date" json:"date"`
	Open   decimal.Decimal  `db:"open" json:"open"`
	High   decimal.Decimal  `db:"high" json:"high"`
	Low    decimal.Decimal  `db:"low" json:"low"`
	Close  decimal.Decimal  `db:"close" json:"close"`
	Volume *decimal.Decimal `db:"volume" json:"volume,omitempty"`
}

// IsConsistent reports whether the OHLC bounds hold
func (c Candle) IsConsistent() bool {
	return c.High.GreaterThanOrEqual(decimal.Max(c.Open, c.Close)) &&
		c.Low.LessThanOrEqual(decimal.Min(c.Open, c.Close))
}
