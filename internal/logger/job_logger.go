// Package logger provides backtest job logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// JobLogger provides dedicated logging for the backtest job lifecycle.
type JobLogger struct {
	*logrus.Entry
}

// NewJobLogger creates a new job logger.
func NewJobLogger(baseLogger *logrus.Logger) *JobLogger {
	return &JobLogger{
		Entry: baseLogger.WithField("component", "jobs"),
	}
}

// ForJob returns an entry scoped to a single job.
func (jl *JobLogger) ForJob(jobID string) *logrus.Entry {
	return jl.WithField("job_id", jobID)
}

// LogJobSubmitted logs the acceptance of a new job.
func (jl *JobLogger) LogJobSubmitted(jobID, pair string, startDate, endDate time.Time, modelType string) {
	jl.WithFields(logrus.Fields{
		"job_id":     jobID,
		"pair":       pair,
		"start_date": startDate.Format(time.DateOnly),
		"end_date":   endDate.Format(time.DateOnly),
		"model_type": modelType,
	}).Info("Backtest job submitted")
}

// LogJobRejected logs a request that failed validation.
func (jl *JobLogger) LogJobRejected(reason string) {
	jl.WithField("reason", reason).Warn("Backtest request rejected")
}

// LogJobStarted logs the transition to running.
func (jl *JobLogger) LogJobStarted(jobID string) {
	jl.WithFields(logrus.Fields{
		"job_id":     jobID,
		"event_type": "running",
	}).Info("Backtest job started")
}

// LogJobCompleted logs a successful run with its headline metrics.
func (jl *JobLogger) LogJobCompleted(jobID string, totalReturn, sharpe float64, totalTrades int, duration time.Duration) {
	jl.WithFields(logrus.Fields{
		"job_id":       jobID,
		"event_type":   "completed",
		"total_return": totalReturn,
		"sharpe_ratio": sharpe,
		"total_trades": totalTrades,
		"duration_ms":  duration.Milliseconds(),
	}).Info("Backtest job completed")
}

// LogJobFailed logs a failed run.
func (jl *JobLogger) LogJobFailed(jobID string, err error, duration time.Duration) {
	jl.WithFields(logrus.Fields{
		"job_id":      jobID,
		"event_type":  "failed",
		"error":       err.Error(),
		"duration_ms": duration.Milliseconds(),
	}).Error("Backtest job failed")
}
