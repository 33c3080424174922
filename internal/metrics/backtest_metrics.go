// Package metrics defines backtest job lifecycle metrics.
package metrics

// RecordJobSubmitted records an accepted submission.
func RecordJobSubmitted(modelType string) {
	JobsSubmittedTotal.WithLabelValues(modelType).Inc()
	JobTransitionsTotal.WithLabelValues("pending").Inc()
}

// RecordJobRejected records a submission rejected by validation.
// reason should be one of: "date_range", "data_availability", "invalid_request"
func RecordJobRejected(reason string) {
	JobsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordJobStarted records the transition to running.
func RecordJobStarted() {
	JobTransitionsTotal.WithLabelValues("running").Inc()
	JobsInFlight.Inc()
}

// RecordJobFinished records a terminal transition and the job's duration.
// status should be one of: "completed", "failed"
func RecordJobFinished(status string, durationSeconds float64, trades int) {
	JobTransitionsTotal.WithLabelValues(status).Inc()
	JobsInFlight.Dec()
	JobDuration.WithLabelValues(status).Observe(durationSeconds)
	if status == "completed" {
		TradesPerJob.Observe(float64(trades))
	}
}
