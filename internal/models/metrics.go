package models

import "time"

// MonthlyReturn is the return of one calendar month
type MonthlyReturn struct {
	Month  string  `json:"month"`
	Return float64 `json:"return"`
}

// RollingPoint is one value of a rolling series
type RollingPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Metrics represents the performance and risk statistics of a completed job
type Metrics struct {
	TotalReturn        float64            `json:"total_return"`
	AnnualizedReturn   float64            `json:"annualized_return"`
	Volatility         float64            `json:"volatility"`
	SharpeRatio        float64            `json:"sharpe_ratio"`
	SortinoRatio       float64            `json:"sortino_ratio"`
	CalmarRatio        *float64           `json:"calmar_ratio"`
	MaxDrawdown        float64            `json:"max_drawdown"`
	CurrentDrawdown    float64            `json:"current_drawdown"`
	ValueAtRisk95      float64            `json:"var_95"`
	TotalTrades        int                `json:"total_trades"`
	WinningTrades      int                `json:"winning_trades"`
	LosingTrades       int                `json:"losing_trades"`
	WinRate            float64            `json:"win_rate"`
	FinalValue         float64            `json:"final_value"`
	TradingDays        int                `json:"trading_days"`
	MonthlyReturns     []MonthlyReturn    `json:"monthly_returns"`
	RollingSharpe      []RollingPoint     `json:"rolling_sharpe"`
	PredictionAccuracy map[string]float64 `json:"prediction_accuracy"`
	PredictionHitRate  map[string]float64 `json:"prediction_hit_rate"`
}

// Clone returns a deep copy of the metrics
func (m *Metrics) Clone() *Metrics {
	if m == nil {
		return nil
	}
	c := *m
	if m.CalmarRatio != nil {
		v := *m.CalmarRatio
		c.CalmarRatio = &v
	}
	c.MonthlyReturns = append([]MonthlyReturn(nil), m.MonthlyReturns...)
	c.RollingSharpe = append([]RollingPoint(nil), m.RollingSharpe...)
	c.PredictionAccuracy = cloneFloatMap(m.PredictionAccuracy)
	c.PredictionHitRate = cloneFloatMap(m.PredictionHitRate)
	return &c
}

func cloneFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	c := make(map[string]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
