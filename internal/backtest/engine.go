package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/fx-backtest/internal/datasource"
	"github.com/yourusername/fx-backtest/internal/logger"
	"github.com/yourusername/fx-backtest/internal/models"
)

// RunRequest describes a single backtest run
type RunRequest struct {
	JobID          string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital decimal.Decimal
	Params         Params
}

// RunResult is the output of a completed run
type RunResult struct {
	Metrics     *models.Metrics
	Trades      []models.Trade
	Snapshots   []models.PortfolioSnapshot
	EquityCurve EquityCurve
}

// Engine runs the retrieval, signal, simulation and metrics stages in order
type Engine struct {
	provider datasource.PriceProvider
	logger   *logrus.Logger
}

// NewEngine creates a new backtesting engine
func NewEngine(provider datasource.PriceProvider, log *logrus.Logger) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("price provider is required")
	}
	if log == nil {
		log = logrus.New()
	}
	return &Engine{provider: provider, logger: log}, nil
}

// Run executes one backtest. All working state is private to the call.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if err := req.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest parameters: %w", err)
	}
	runLog := logger.NewRunLogger(e.logger, req.JobID)

	candles, err := e.provider.GetCandles(ctx, req.Params.Pair, req.StartDate, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load candles: %w", err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles for %s between %s and %s: %w",
			req.Params.Pair, req.StartDate.Format(time.DateOnly), req.EndDate.Format(time.DateOnly), datasource.ErrNoData)
	}
	report := datasource.ValidateSeries(candles)
	if !report.Ordered() {
		return nil, fmt.Errorf("candle series has %d duplicate and %d out of order dates: %w",
			report.Duplicates, report.OutOfOrder, datasource.ErrInvalidData)
	}
	runLog.LogStage("load_candles", logrus.Fields{
		"candles":      len(candles),
		"provider":     e.provider.Name(),
		"inconsistent": report.Inconsistent,
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	generator := NewMovingAverageGenerator(req.Params)
	signals, err := generator.Generate(candles)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signals: %w", err)
	}
	runLog.LogStage("generate_signals", logrus.Fields{"signals": len(signals), "generator": generator.Name()})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sim := NewSimulator(req.Params).Run(candles, signals, req.InitialCapital)
	runLog.LogStage("simulate", logrus.Fields{
		"trades":      len(sim.Trades),
		"final_value": sim.FinalValue.StringFixed(2),
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics, err := NewMetricsCalculator(req.Params, runLog).Calculate(sim, signals, candles, req.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate metrics: %w", err)
	}
	runLog.LogStage("metrics", logrus.Fields{
		"total_return": metrics.TotalReturn,
		"sharpe_ratio": metrics.SharpeRatio,
	})

	return &RunResult{
		Metrics:     metrics,
		Trades:      sim.Trades,
		Snapshots:   sim.Snapshots,
		EquityCurve: NewEquityCurve(sim.Snapshots),
	}, nil
}
