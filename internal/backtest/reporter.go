package backtest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yourusername/fx-backtest/internal/models"
)

const reportPrecision = 4

// Rounded returns a copy of m with every ratio rounded to 4 decimal places
func Rounded(m *models.Metrics) *models.Metrics {
	if m == nil {
		return nil
	}
	out := m.Clone()
	out.TotalReturn = round4(out.TotalReturn)
	out.AnnualizedReturn = round4(out.AnnualizedReturn)
	out.Volatility = round4(out.Volatility)
	out.SharpeRatio = round4(out.SharpeRatio)
	out.SortinoRatio = round4(out.SortinoRatio)
	out.MaxDrawdown = round4(out.MaxDrawdown)
	out.CurrentDrawdown = round4(out.CurrentDrawdown)
	out.ValueAtRisk95 = round4(out.ValueAtRisk95)
	out.WinRate = round4(out.WinRate)
	out.FinalValue = round4(out.FinalValue)
	if out.CalmarRatio != nil {
		v := round4(*out.CalmarRatio)
		out.CalmarRatio = &v
	}
	for i := range out.MonthlyReturns {
		out.MonthlyReturns[i].Return = round4(out.MonthlyReturns[i].Return)
	}
	for i := range out.RollingSharpe {
		out.RollingSharpe[i].Value = round4(out.RollingSharpe[i].Value)
	}
	for k, v := range out.PredictionAccuracy {
		out.PredictionAccuracy[k] = round4(v)
	}
	for k, v := range out.PredictionHitRate {
		out.PredictionHitRate[k] = round4(v)
	}
	return out
}

func round4(v float64) float64 {
	scale := math.Pow10(reportPrecision)
	return math.Round(v*scale) / scale
}

// GenerateConsoleReport formats a finished job for terminal output
func GenerateConsoleReport(job *models.Job) string {
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Job: %s\n", job.ID))
	builder.WriteString(fmt.Sprintf("Pair: %s (%s to %s)\n", job.Pair, job.StartDate.Format("2006-01-02"), job.EndDate.Format("2006-01-02")))
	builder.WriteString(fmt.Sprintf("Status: %s\n", job.Status))
	if job.ErrorMessage != nil {
		builder.WriteString(fmt.Sprintf("Error: %s\n", *job.ErrorMessage))
	}
	if job.Metrics == nil {
		return builder.String()
	}

	m := Rounded(job.Metrics)
	builder.WriteString(fmt.Sprintf("Final Value: %.2f\n", m.FinalValue))
	builder.WriteString(fmt.Sprintf("Total Return: %.2f%%\n", m.TotalReturn*100))
	builder.WriteString(fmt.Sprintf("Annualized Return: %.2f%%\n", m.AnnualizedReturn*100))
	builder.WriteString(fmt.Sprintf("Volatility: %.4f\n", m.Volatility))
	builder.WriteString(fmt.Sprintf("Sharpe Ratio: %.4f\n", m.SharpeRatio))
	builder.WriteString(fmt.Sprintf("Sortino Ratio: %.4f\n", m.SortinoRatio))
	if m.CalmarRatio != nil {
		builder.WriteString(fmt.Sprintf("Calmar Ratio: %.4f\n", *m.CalmarRatio))
	} else {
		builder.WriteString("Calmar Ratio: n/a\n")
	}
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", m.MaxDrawdown*100))
	builder.WriteString(fmt.Sprintf("VaR 95%%: %.4f\n", m.ValueAtRisk95))
	builder.WriteString(fmt.Sprintf("Trades: %d (won %d, lost %d, win rate %.2f%%)\n",
		m.TotalTrades, m.WinningTrades, m.LosingTrades, m.WinRate*100))

	horizons := make([]string, 0, len(m.PredictionAccuracy))
	for h := range m.PredictionAccuracy {
		horizons = append(horizons, h)
	}
	sort.Strings(horizons)
	for _, h := range horizons {
		builder.WriteString(fmt.Sprintf("Prediction Accuracy %s: %.4f (hit rate %.4f)\n", h, m.PredictionAccuracy[h], m.PredictionHitRate[h]))
	}
	return builder.String()
}
