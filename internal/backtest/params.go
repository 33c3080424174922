package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/yourusername/fx-backtest/internal/config"
)

// Params is the immutable parameter set of one backtest run.
// It is built once per job and passed by value to every stage.
type Params struct {
	Pair      string
	ModelType string

	ShortWindow        int
	LongWindow         int
	Lookahead          int
	BaselineConfidence float64

	MinConfidence float64
	MinLotUnits   decimal.Decimal
	BuyFraction   decimal.Decimal
	SellFraction  decimal.Decimal

	PeriodsPerYear    int
	RollingWindow     int
	VaRConfidence     float64
	AccuracyErrorBand float64
}

// DefaultParams returns the moving-average crossover defaults
func DefaultParams() Params {
	return Params{
		Pair:               "USD/JPY",
		ShortWindow:        5,
		LongWindow:         20,
		Lookahead:          5,
		BaselineConfidence: 0.7,
		MinConfidence:      0.6,
		MinLotUnits:        decimal.NewFromInt(1000),
		BuyFraction:        decimal.NewFromFloat(0.2),
		SellFraction:       decimal.NewFromFloat(0.5),
		PeriodsPerYear:     365,
		RollingWindow:      30,
		VaRConfidence:      0.95,
		AccuracyErrorBand:  0.02,
	}
}

// FromConfig converts app config to backtest params
func FromConfig(cfg *config.BacktestConfig) Params {
	if cfg == nil {
		return DefaultParams()
	}
	return Params{
		Pair:               cfg.Pair,
		ShortWindow:        cfg.Signal.ShortWindow,
		LongWindow:         cfg.Signal.LongWindow,
		Lookahead:          cfg.Signal.Lookahead,
		BaselineConfidence: cfg.Signal.BaselineConfidence,
		MinConfidence:      cfg.Simulator.MinConfidence,
		MinLotUnits:        decimal.NewFromFloat(cfg.Simulator.MinLotUnits),
		BuyFraction:        decimal.NewFromFloat(cfg.Simulator.BuyFraction),
		SellFraction:       decimal.NewFromFloat(cfg.Simulator.SellFraction),
		PeriodsPerYear:     cfg.Metrics.PeriodsPerYear,
		RollingWindow:      cfg.Metrics.RollingWindow,
		VaRConfidence:      cfg.Metrics.VaRConfidence,
		AccuracyErrorBand:  cfg.Metrics.AccuracyErrorBand,
	}
}

// WithOverrides returns a copy of p with recognised model_config keys applied.
// Unknown keys are ignored; known keys with unconvertible values are an error.
func (p Params) WithOverrides(modelType string, overrides map[string]any) (Params, error) {
	out := p
	out.ModelType = modelType

	for key, raw := range overrides {
		var err error
		switch key {
		case "pair":
			out.Pair, err = cast.ToStringE(raw)
		case "short_window":
			out.ShortWindow, err = cast.ToIntE(raw)
		case "long_window":
			out.LongWindow, err = cast.ToIntE(raw)
		case "lookahead":
			out.Lookahead, err = cast.ToIntE(raw)
		case "confidence", "baseline_confidence":
			out.BaselineConfidence, err = cast.ToFloat64E(raw)
		case "min_confidence":
			out.MinConfidence, err = cast.ToFloat64E(raw)
		case "buy_fraction":
			var f float64
			f, err = cast.ToFloat64E(raw)
			out.BuyFraction = decimal.NewFromFloat(f)
		case "sell_fraction":
			var f float64
			f, err = cast.ToFloat64E(raw)
			out.SellFraction = decimal.NewFromFloat(f)
		default:
			continue
		}
		if err != nil {
			return Params{}, fmt.Errorf("invalid model_config %q: %w", key, err)
		}
	}

	return out, out.Validate()
}

// Validate validates parameter ranges
func (p Params) Validate() error {
	if p.ShortWindow <= 0 || p.LongWindow <= 0 {
		return fmt.Errorf("moving average windows must be positive")
	}
	if p.ShortWindow >= p.LongWindow {
		return fmt.Errorf("short window must be smaller than long window")
	}
	if p.Lookahead <= 0 {
		return fmt.Errorf("lookahead must be positive")
	}
	if p.BaselineConfidence < 0 || p.BaselineConfidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1")
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be between 0 and 1")
	}
	if p.MinLotUnits.IsNegative() {
		return fmt.Errorf("min lot units cannot be negative")
	}
	if p.BuyFraction.LessThanOrEqual(decimal.Zero) || p.BuyFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("buy fraction must be in (0, 1]")
	}
	if p.SellFraction.LessThanOrEqual(decimal.Zero) || p.SellFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("sell fraction must be in (0, 1]")
	}
	if p.PeriodsPerYear <= 0 {
		return fmt.Errorf("periods per year must be positive")
	}
	if p.RollingWindow < 2 {
		return fmt.Errorf("rolling window must be at least 2")
	}
	if p.VaRConfidence <= 0 || p.VaRConfidence >= 1 {
		return fmt.Errorf("VaR confidence must be between 0 and 1")
	}
	if p.AccuracyErrorBand < 0 {
		return fmt.Errorf("accuracy error band cannot be negative")
	}
	return nil
}
