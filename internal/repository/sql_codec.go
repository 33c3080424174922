package repository

import (
	"encoding/json"
	"fmt"

	"github.com/yourusername/fx-backtest/internal/models"
)

const jobsTable = "backtest_jobs"

func encodeModelConfig(cfg map[string]any) ([]byte, error) {
	if cfg == nil {
		cfg = map[string]any{}
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode model config: %w", err)
	}
	return data, nil
}

func decodeModelConfig(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode model config: %w", err)
	}
	return cfg, nil
}

func encodeMetrics(metrics *models.Metrics) ([]byte, error) {
	data, err := json.Marshal(metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metrics: %w", err)
	}
	return data, nil
}

func decodeMetrics(data []byte) (*models.Metrics, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var metrics models.Metrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, fmt.Errorf("failed to decode metrics: %w", err)
	}
	return &metrics, nil
}
