package models

import "time"

// Direction is the side of a signal or trade
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Signal is a directional prediction emitted for a historical day
type Signal struct {
	PredictionDate time.Time `json:"prediction_date"`
	TargetDate     time.Time `json:"target_date"`
	Direction      Direction `json:"direction"`
	Confidence     float64   `json:"confidence"`
	PredictedRate  float64   `json:"predicted_rate"`
	Horizon        int       `json:"horizon"`
}
