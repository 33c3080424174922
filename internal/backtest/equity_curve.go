package backtest

import (
	"time"

	"github.com/yourusername/fx-backtest/internal/models"
)

// EquityPoint represents a point in the equity curve
type EquityPoint struct {
	Time     time.Time `json:"time"`
	Value    float64   `json:"value"`
	Drawdown float64   `json:"drawdown"`
	DailyPnL float64   `json:"daily_pnl"`
}

// EquityCurve represents a time-series of equity points
type EquityCurve []EquityPoint

// NewEquityCurve builds the curve from portfolio snapshots.
// Drawdown is (value - running peak) / running peak and is never positive.
func NewEquityCurve(snapshots []models.PortfolioSnapshot) EquityCurve {
	curve := make(EquityCurve, 0, len(snapshots))
	peak := 0.0
	prev := 0.0
	for i, snap := range snapshots {
		value := snap.TotalValue.InexactFloat64()
		if i == 0 || value > peak {
			peak = value
		}
		drawdown := 0.0
		if peak > 0 {
			drawdown = (value - peak) / peak
		}
		pnl := 0.0
		if i > 0 {
			pnl = value - prev
		}
		curve = append(curve, EquityPoint{
			Time:     snap.Date,
			Value:    value,
			Drawdown: drawdown,
			DailyPnL: pnl,
		})
		prev = value
	}
	return curve
}

// Values returns the raw equity values
func (e EquityCurve) Values() []float64 {
	values := make([]float64, len(e))
	for i, point := range e {
		values[i] = point.Value
	}
	return values
}

// GetReturns calculates periodic returns from equity curve
func (e EquityCurve) GetReturns() []float64 {
	return pctChanges(e.Values())
}

// GetDownsideReturns returns only the negative periodic returns
func (e EquityCurve) GetDownsideReturns() []float64 {
	var downside []float64
	for _, r := range e.GetReturns() {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	return downside
}

// MaxDrawdown returns the deepest drawdown of the curve
func (e EquityCurve) MaxDrawdown() float64 {
	worst := 0.0
	for _, point := range e {
		if point.Drawdown < worst {
			worst = point.Drawdown
		}
	}
	return worst
}

// CurrentDrawdown returns the drawdown at the last point
func (e EquityCurve) CurrentDrawdown() float64 {
	if len(e) == 0 {
		return 0
	}
	return e[len(e)-1].Drawdown
}
