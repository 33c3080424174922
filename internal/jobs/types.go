package jobs

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/fx-backtest/internal/models"
)

// SubmitRequest is the input of Submit
type SubmitRequest struct {
	StartDate      time.Time       `json:"start_date" validate:"required"`
	EndDate        time.Time       `json:"end_date" validate:"required"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	ModelType      string          `json:"model_type" validate:"required"`
	ModelConfig    map[string]any  `json:"model_config,omitempty"`
}

// JobHandle is returned by a successful Submit
type JobHandle struct {
	JobID                      string           `json:"job_id"`
	Status                     models.JobStatus `json:"status"`
	StartDate                  time.Time        `json:"start_date"`
	EndDate                    time.Time        `json:"end_date"`
	CreatedAt                  time.Time        `json:"created_at"`
	EstimatedCompletionSeconds int              `json:"estimated_completion_seconds"`
}

// TradePage is one page of a job's trade log plus whole-log summary figures
type TradePage struct {
	JobID         string          `json:"job_id"`
	TotalTrades   int             `json:"total_trades"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
	TotalPages    int             `json:"total_pages"`
	Trades        []models.Trade  `json:"trades"`
	ProfitTrades  int             `json:"profit_trades"`
	LossTrades    int             `json:"loss_trades"`
	AverageProfit decimal.Decimal `json:"average_profit"`
	AverageLoss   decimal.Decimal `json:"average_loss"`
	LargestProfit decimal.Decimal `json:"largest_profit"`
	LargestLoss   decimal.Decimal `json:"largest_loss"`
}

// newTradePage slices trades by offset and summarises realized P&L over all of them
func newTradePage(jobID string, trades []models.Trade, page, pageSize int) *TradePage {
	total := len(trades)
	result := &TradePage{
		JobID:       jobID,
		TotalTrades: total,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  (total + pageSize - 1) / pageSize,
		Trades:      []models.Trade{},
	}

	offset := (page - 1) * pageSize
	if offset < total {
		end := offset + pageSize
		if end > total {
			end = total
		}
		result.Trades = append(result.Trades, trades[offset:end]...)
	}

	profitSum, lossSum := decimal.Zero, decimal.Zero
	for i := range trades {
		pnl, ok := trades[i].RealizedPnL()
		if !ok {
			continue
		}
		switch {
		case pnl.IsPositive():
			result.ProfitTrades++
			profitSum = profitSum.Add(pnl)
			if pnl.GreaterThan(result.LargestProfit) {
				result.LargestProfit = pnl
			}
		case pnl.IsNegative():
			result.LossTrades++
			lossSum = lossSum.Add(pnl)
			if pnl.LessThan(result.LargestLoss) {
				result.LargestLoss = pnl
			}
		}
	}
	if result.ProfitTrades > 0 {
		result.AverageProfit = profitSum.Div(decimal.NewFromInt(int64(result.ProfitTrades)))
	}
	if result.LossTrades > 0 {
		result.AverageLoss = lossSum.Div(decimal.NewFromInt(int64(result.LossTrades)))
	}
	return result
}
