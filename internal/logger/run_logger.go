// Package logger provides backtest pipeline logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// RunLogger logs the stages of a single backtest pipeline.
type RunLogger struct {
	*logrus.Entry
}

// NewRunLogger creates a run logger bound to a job.
func NewRunLogger(baseLogger *logrus.Logger, jobID string) *RunLogger {
	return &RunLogger{
		Entry: baseLogger.WithFields(logrus.Fields{
			"component": "backtest",
			"job_id":    jobID,
		}),
	}
}

// LogStage logs completion of a pipeline stage.
func (rl *RunLogger) LogStage(stage string, fields logrus.Fields) {
	rl.WithField("stage", stage).WithFields(fields).Info("Pipeline stage completed")
}

// LogMetricFallback logs a metric that fell back to its default value.
func (rl *RunLogger) LogMetricFallback(metric string, err error) {
	rl.WithFields(logrus.Fields{
		"metric": metric,
		"reason": err.Error(),
	}).Warn("Metric fell back to default")
}
