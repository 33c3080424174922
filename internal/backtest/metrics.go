package backtest

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/yourusername/fx-backtest/internal/logger"
	"github.com/yourusername/fx-backtest/internal/models"
)

// ErrInsufficientData is returned by a metric step that has too few observations
var ErrInsufficientData = errors.New("insufficient data")

// MetricsCalculator derives performance and risk statistics from a simulation
type MetricsCalculator struct {
	params Params
	log    *logger.RunLogger
}

// NewMetricsCalculator creates a calculator; fallbacks are reported to log when non-nil
func NewMetricsCalculator(params Params, log *logger.RunLogger) *MetricsCalculator {
	return &MetricsCalculator{params: params, log: log}
}

// Calculate computes the full metric set for one simulation
func (c *MetricsCalculator) Calculate(result *SimulationResult, signals []models.Signal, candles []models.Candle, initialCapital decimal.Decimal) (*models.Metrics, error) {
	if result == nil {
		return nil, fmt.Errorf("simulation result is required")
	}
	if !initialCapital.IsPositive() {
		return nil, fmt.Errorf("initial capital must be positive")
	}

	curve := NewEquityCurve(result.Snapshots)
	returns := curve.GetReturns()
	initial := initialCapital.InexactFloat64()
	final := result.FinalValue.InexactFloat64()

	m := &models.Metrics{
		FinalValue:      final,
		TradingDays:     len(result.Snapshots),
		MaxDrawdown:     curve.MaxDrawdown(),
		CurrentDrawdown: curve.CurrentDrawdown(),
	}

	m.TotalReturn = (final - initial) / initial
	m.AnnualizedReturn = c.fallback("annualized_return", 0)(AnnualizedReturn(m.TotalReturn, calendarDays(result.Snapshots)))
	m.Volatility = c.fallback("volatility", 0)(Volatility(returns, c.params.PeriodsPerYear))
	m.SharpeRatio = SharpeRatio(m.AnnualizedReturn, m.Volatility)
	m.SortinoRatio = c.fallback("sortino_ratio", 0)(SortinoRatio(m.AnnualizedReturn, curve.GetDownsideReturns(), c.params.PeriodsPerYear))
	m.CalmarRatio = CalmarRatio(m.AnnualizedReturn, m.MaxDrawdown)
	m.ValueAtRisk95 = c.fallback("var_95", 0)(ValueAtRisk(returns, c.params.VaRConfidence))

	m.TotalTrades, m.WinningTrades, m.LosingTrades = tradeCounts(result.Trades)
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	}

	monthly, err := MonthlyReturns(curve)
	if err != nil {
		c.logFallback("monthly_returns", err)
		monthly = []models.MonthlyReturn{}
	}
	m.MonthlyReturns = monthly

	rolling, err := RollingSharpe(curve, c.params.RollingWindow, c.params.PeriodsPerYear)
	if err != nil {
		c.logFallback("rolling_sharpe", err)
		rolling = []models.RollingPoint{}
	}
	m.RollingSharpe = rolling

	accuracy, hitRate, err := PredictionAccuracy(signals, candles, c.params.AccuracyErrorBand)
	if err != nil {
		c.logFallback("prediction_accuracy", err)
		accuracy, hitRate = map[string]float64{}, map[string]float64{}
	}
	m.PredictionAccuracy = accuracy
	m.PredictionHitRate = hitRate

	return m, nil
}

// fallback returns an adapter that substitutes def and logs when a step fails
func (c *MetricsCalculator) fallback(metric string, def float64) func(float64, error) float64 {
	return func(v float64, err error) float64 {
		if err != nil {
			c.logFallback(metric, err)
			return def
		}
		return v
	}
}

func (c *MetricsCalculator) logFallback(metric string, err error) {
	if c.log != nil {
		c.log.LogMetricFallback(metric, err)
	}
}

// AnnualizedReturn compounds the total return over a calendar-day span
func AnnualizedReturn(totalReturn float64, days int) (float64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("annualized return over %d days: %w", days, ErrInsufficientData)
	}
	return math.Pow(1+totalReturn, 365/float64(days)) - 1, nil
}

// Volatility is the annualized sample standard deviation of returns
func Volatility(returns []float64, periodsPerYear int) (float64, error) {
	if len(returns) < 2 {
		return 0, fmt.Errorf("volatility needs 2 returns, got %d: %w", len(returns), ErrInsufficientData)
	}
	return sampleStdDev(returns) * math.Sqrt(float64(periodsPerYear)), nil
}

// SharpeRatio is annualized return over volatility, zero when volatility is zero
func SharpeRatio(annualized, volatility float64) float64 {
	if volatility == 0 {
		return 0
	}
	return annualized / volatility
}

// SortinoRatio divides by the annualized deviation of negative returns only
func SortinoRatio(annualized float64, downside []float64, periodsPerYear int) (float64, error) {
	if len(downside) < 2 {
		return 0, fmt.Errorf("sortino needs 2 downside returns, got %d: %w", len(downside), ErrInsufficientData)
	}
	deviation := sampleStdDev(downside) * math.Sqrt(float64(periodsPerYear))
	if deviation == 0 {
		return 0, nil
	}
	return annualized / deviation, nil
}

// CalmarRatio returns nil exactly when there was no drawdown
func CalmarRatio(annualized, maxDrawdown float64) *float64 {
	if maxDrawdown == 0 {
		return nil
	}
	calmar := math.Abs(annualized / maxDrawdown)
	return &calmar
}

// ValueAtRisk is the historical return quantile at 1 - confidence
func ValueAtRisk(returns []float64, confidence float64) (float64, error) {
	if len(returns) == 0 {
		return 0, fmt.Errorf("value at risk: %w", ErrInsufficientData)
	}
	return percentile(returns, (1-confidence)*100), nil
}

// MonthlyReturns compares each month's last value to the previous month's last value.
// The first month is measured against the first point of the curve.
func MonthlyReturns(curve EquityCurve) ([]models.MonthlyReturn, error) {
	if len(curve) < 2 {
		return nil, fmt.Errorf("monthly returns: %w", ErrInsufficientData)
	}

	var months []string
	lastValue := map[string]float64{}
	for _, point := range curve {
		key := point.Time.Format("2006-01")
		if _, seen := lastValue[key]; !seen {
			months = append(months, key)
		}
		lastValue[key] = point.Value
	}

	out := make([]models.MonthlyReturn, 0, len(months))
	base := curve[0].Value
	for _, month := range months {
		end := lastValue[month]
		r := 0.0
		if base != 0 {
			r = (end - base) / base
		}
		out = append(out, models.MonthlyReturn{Month: month, Return: r})
		base = end
	}
	return out, nil
}

// RollingSharpe computes annualized mean/std over a sliding window of returns.
// Each point is dated at the curve point closing its window.
func RollingSharpe(curve EquityCurve, window, periodsPerYear int) ([]models.RollingPoint, error) {
	returns := curve.GetReturns()
	if window < 2 || len(returns) < window {
		return nil, fmt.Errorf("rolling sharpe window %d over %d returns: %w", window, len(returns), ErrInsufficientData)
	}

	scale := math.Sqrt(float64(periodsPerYear))
	out := make([]models.RollingPoint, 0, len(returns)-window+1)
	for end := window; end <= len(returns); end++ {
		slice := returns[end-window : end]
		value := 0.0
		if std := sampleStdDev(slice); std != 0 {
			value = mean(slice) / std * scale
		}
		out = append(out, models.RollingPoint{Date: curve[end].Time, Value: value})
	}
	return out, nil
}

// PredictionAccuracy scores signals whose target date has a realized candle.
// Accuracy is mean(max(0, 1 - |actual-predicted|/actual)); the hit rate is the
// share of signals whose relative error is within band. Both are keyed by horizon.
func PredictionAccuracy(signals []models.Signal, candles []models.Candle, band float64) (map[string]float64, map[string]float64, error) {
	actual := make(map[string]float64, len(candles))
	for _, candle := range candles {
		actual[dayKey(candle.Date)] = candle.Close.InexactFloat64()
	}

	type tally struct {
		score float64
		hits  int
		n     int
	}
	byHorizon := map[string]*tally{}

	for _, sig := range signals {
		realized, ok := actual[dayKey(sig.TargetDate)]
		if !ok || realized == 0 {
			continue
		}
		relErr := math.Abs(realized-sig.PredictedRate) / math.Abs(realized)
		key := fmt.Sprintf("%dd", sig.Horizon)
		t := byHorizon[key]
		if t == nil {
			t = &tally{}
			byHorizon[key] = t
		}
		t.score += math.Max(0, 1-relErr)
		if relErr <= band {
			t.hits++
		}
		t.n++
	}

	if len(byHorizon) == 0 {
		return nil, nil, fmt.Errorf("prediction accuracy: no realized targets: %w", ErrInsufficientData)
	}

	accuracy := make(map[string]float64, len(byHorizon))
	hitRate := make(map[string]float64, len(byHorizon))
	for key, t := range byHorizon {
		accuracy[key] = t.score / float64(t.n)
		hitRate[key] = float64(t.hits) / float64(t.n)
	}
	return accuracy, hitRate, nil
}

func tradeCounts(trades []models.Trade) (total, winning, losing int) {
	total = len(trades)
	for i := range trades {
		pnl, ok := trades[i].RealizedPnL()
		if !ok {
			continue
		}
		switch {
		case pnl.IsPositive():
			winning++
		case pnl.IsNegative():
			losing++
		}
	}
	return total, winning, losing
}

func calendarDays(snapshots []models.PortfolioSnapshot) int {
	if len(snapshots) < 2 {
		return 0
	}
	return holdingDays(snapshots[0].Date, snapshots[len(snapshots)-1].Date)
}
