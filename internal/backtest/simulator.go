package backtest

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/fx-backtest/internal/models"
)

// SimulationResult is the output of one simulator replay
type SimulationResult struct {
	Trades        []models.Trade
	Snapshots     []models.PortfolioSnapshot
	FinalCash     decimal.Decimal
	FinalPosition decimal.Decimal
	FinalValue    decimal.Decimal
}

// simulationState tracks the virtual portfolio during a replay
type simulationState struct {
	cash     decimal.Decimal
	position decimal.Decimal
	trades   []models.Trade
}

// Simulator replays signals against a candle series
type Simulator struct {
	params Params
}

// NewSimulator creates a trading simulator
func NewSimulator(params Params) *Simulator {
	return &Simulator{params: params}
}

// Run replays the candles in order. Signals are matched to candles by prediction date.
func (s *Simulator) Run(candles []models.Candle, signals []models.Signal, initialCapital decimal.Decimal) *SimulationResult {
	state := &simulationState{
		cash:     initialCapital,
		position: decimal.Zero,
		trades:   []models.Trade{},
	}

	byDay := make(map[string]models.Signal, len(signals))
	for _, sig := range signals {
		byDay[dayKey(sig.PredictionDate)] = sig
	}

	closes := closePrices(candles)
	snapshots := make([]models.PortfolioSnapshot, 0, len(candles))

	for i, candle := range candles {
		snapshots = append(snapshots, state.snapshot(candle))

		sig, ok := byDay[dayKey(candle.Date)]
		if !ok || sig.Confidence < s.params.MinConfidence {
			continue
		}

		volatility := marketVolatility(closes, i, s.params.LongWindow)
		switch sig.Direction {
		case models.DirectionBuy:
			s.buy(state, candle, sig, volatility)
		case models.DirectionSell:
			s.sell(state, candle, sig, volatility)
		}
	}

	final := state.cash
	if len(candles) > 0 {
		final = state.cash.Add(state.position.Mul(candles[len(candles)-1].Close))
	}

	return &SimulationResult{
		Trades:        state.trades,
		Snapshots:     snapshots,
		FinalCash:     state.cash,
		FinalPosition: state.position,
		FinalValue:    final,
	}
}

func (s *Simulator) buy(state *simulationState, candle models.Candle, sig models.Signal, volatility float64) {
	if !state.cash.GreaterThan(candle.Close.Mul(s.params.MinLotUnits)) {
		return
	}
	if !candle.Close.IsPositive() {
		return
	}

	invest := decimal.Min(state.cash.Mul(s.params.BuyFraction), state.cash)
	units := invest.Div(candle.Close)

	state.cash = state.cash.Sub(invest)
	state.position = state.position.Add(units)
	state.trades = append(state.trades, models.Trade{
		Date:             candle.Date,
		Direction:        models.DirectionBuy,
		EntryRate:        candle.Close,
		PositionSize:     units,
		Confidence:       sig.Confidence,
		MarketVolatility: volatility,
	})
}

// sell liquidates part of the position, closes the most recent open trade,
// and also appends its own zero-P&L sell record.
func (s *Simulator) sell(state *simulationState, candle models.Candle, sig models.Signal, volatility float64) {
	if !state.position.IsPositive() {
		return
	}

	sold := state.position.Mul(s.params.SellFraction)
	state.cash = state.cash.Add(sold.Mul(candle.Close))
	state.position = state.position.Sub(sold)

	if idx := lastOpenTrade(state.trades); idx >= 0 {
		open := &state.trades[idx]
		exit := candle.Close
		pnl := sold.Mul(exit.Sub(open.EntryRate))
		holding := holdingDays(open.Date, candle.Date)
		open.ExitRate = &exit
		open.ProfitLoss = &pnl
		open.HoldingPeriodDays = &holding
	}

	exit := candle.Close
	zero := decimal.Zero
	held := 0
	state.trades = append(state.trades, models.Trade{
		Date:              candle.Date,
		Direction:         models.DirectionSell,
		EntryRate:         candle.Close,
		ExitRate:          &exit,
		PositionSize:      sold,
		ProfitLoss:        &zero,
		HoldingPeriodDays: &held,
		Confidence:        sig.Confidence,
		MarketVolatility:  volatility,
	})
}

func (st *simulationState) snapshot(candle models.Candle) models.PortfolioSnapshot {
	return models.PortfolioSnapshot{
		Date:       candle.Date,
		Cash:       st.cash,
		Position:   st.position,
		CloseRate:  candle.Close,
		TotalValue: st.cash.Add(st.position.Mul(candle.Close)),
	}
}

func lastOpenTrade(trades []models.Trade) int {
	for i := len(trades) - 1; i >= 0; i-- {
		if trades[i].IsOpen() {
			return i
		}
	}
	return -1
}

func holdingDays(entry, exit time.Time) int {
	return int(exit.Sub(entry).Hours() / 24)
}

// marketVolatility is the sample std of the daily close returns preceding index i
func marketVolatility(closes []float64, i, window int) float64 {
	from := i - window - 1
	if from < 0 {
		from = 0
	}
	returns := pctChanges(closes[from:i])
	if len(returns) < 2 {
		return 0
	}
	return sampleStdDev(returns)
}

func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
