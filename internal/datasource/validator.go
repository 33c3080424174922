package datasource

import (
	"fmt"
	"time"

	"github.com/yourusername/fx-backtest/internal/models"
)

// SeriesReport summarises the quality of a candle series
type SeriesReport struct {
	Candles      int
	Inconsistent int
	NonPositive  int
	Duplicates   int
	OutOfOrder   int
	Issues       []string
}

// Ordered reports whether dates strictly increase across the series
func (r SeriesReport) Ordered() bool {
	return r.Duplicates == 0 && r.OutOfOrder == 0
}

// ValidateCandle returns the problems found in a single candle.
// OHLC bound violations are reported but never repaired.
func ValidateCandle(c models.Candle) []string {
	var issues []string
	day := c.Date.Format(time.DateOnly)

	if c.Date.IsZero() {
		issues = append(issues, "candle date is required")
	}
	if !c.Open.IsPositive() || !c.High.IsPositive() || !c.Low.IsPositive() || !c.Close.IsPositive() {
		issues = append(issues, fmt.Sprintf("%s: prices must be positive", day))
	}
	if !c.IsConsistent() {
		issues = append(issues, fmt.Sprintf("%s: high/low do not bound open/close", day))
	}
	if c.Volume != nil && c.Volume.IsNegative() {
		issues = append(issues, fmt.Sprintf("%s: volume cannot be negative", day))
	}
	return issues
}

// ValidateSeries checks every candle and the ordering of the series
func ValidateSeries(candles []models.Candle) SeriesReport {
	report := SeriesReport{Candles: len(candles)}

	for i, c := range candles {
		issues := ValidateCandle(c)
		report.Issues = append(report.Issues, issues...)
		if !c.IsConsistent() {
			report.Inconsistent++
		}
		if !c.Close.IsPositive() {
			report.NonPositive++
		}
		if i == 0 {
			continue
		}

		prev := candles[i-1].Date
		switch {
		case c.Date.Equal(prev):
			report.Duplicates++
			report.Issues = append(report.Issues, fmt.Sprintf("%s: duplicate candle", c.Date.Format(time.DateOnly)))
		case c.Date.Before(prev):
			report.OutOfOrder++
			report.Issues = append(report.Issues, fmt.Sprintf("%s: candle out of order", c.Date.Format(time.DateOnly)))
		}
	}
	return report
}
