package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobStatus represents the lifecycle state of a backtest job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are allowed
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether the status may move to next.
// Allowed: pending -> running, running -> completed, running -> failed.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusRunning
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// Job represents one backtest run and its observable lifecycle
type Job struct {
	ID             string          `db:"id" json:"job_id"`
	Status         JobStatus       `db:"status" json:"status"`
	Pair           string          `db:"pair" json:"pair"`
	StartDate      time.Time       `db:"start_date" json:"start_date"`
	EndDate        time.Time       `db:"end_date" json:"end_date"`
	InitialCapital decimal.Decimal `db:"initial_capital" json:"initial_capital"`
	ModelType      string          `db:"model_type" json:"model_type"`
	ModelConfig    map[string]any  `db:"model_config" json:"model_config,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	ErrorMessage   *string         `db:"error_message" json:"error_message,omitempty"`
	Metrics        *Metrics        `db:"metrics" json:"metrics,omitempty"`
}

// Clone returns a deep copy so readers never share mutable state with the store
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.ModelConfig != nil {
		c.ModelConfig = make(map[string]any, len(j.ModelConfig))
		for k, v := range j.ModelConfig {
			c.ModelConfig[k] = v
		}
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		c.ErrorMessage = &msg
	}
	if j.Metrics != nil {
		c.Metrics = j.Metrics.Clone()
	}
	return &c
}
